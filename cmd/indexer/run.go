package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"sputnikScope/internal/config"
	"sputnikScope/internal/indexer"
	"sputnikScope/internal/nearblocks"
	"sputnikScope/internal/storage"
	"sputnikScope/internal/storage/postgres"
	"sputnikScope/internal/storage/sqlite"
)

func runIndexer(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	contracts, err := indexer.ParseAccountIDs(cfg.Contracts)
	if err != nil {
		return err
	}
	if len(contracts) == 0 {
		return fmt.Errorf("contract list is required")
	}

	ctx, logger, cleanup, err := startCommand(cfg.Common)
	if err != nil {
		return err
	}
	defer cleanup()

	var sqliteStore *sqlite.Store
	openSQLite := func() (*sqlite.Store, error) {
		if sqliteStore != nil {
			return sqliteStore, nil
		}
		store, err := sqlite.NewStore(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		sqliteStore = store
		return store, nil
	}
	defer func() {
		if sqliteStore != nil {
			sqliteStore.Close()
		}
	}()

	var storageSink storage.Storage
	switch cfg.Storage {
	case "jsonl":
		storageSink = storage.NewJsonlStorage(cfg.Out)
	case "sqlite":
		store, err := openSQLite()
		if err != nil {
			return err
		}
		storageSink = store
	default:
		return fmt.Errorf("unknown storage %q", cfg.Storage)
	}

	var checkpoints indexer.CheckpointStore
	if cfg.CheckpointEnabled {
		switch cfg.CheckpointStore {
		case "file":
			checkpoints = indexer.NewFileCheckpointStore(cfg.Checkpoint, true)
		case "sqlite":
			store, err := openSQLite()
			if err != nil {
				return err
			}
			checkpoints = store
		case "postgres":
			store, err := postgres.NewStore(ctx, cfg.PGDSN)
			if err != nil {
				return fmt.Errorf("connect postgres: %w", err)
			}
			defer store.Close()
			if err := store.Migrate(ctx); err != nil {
				return fmt.Errorf("migrate postgres: %w", err)
			}
			checkpoints = store
		default:
			return fmt.Errorf("unknown checkpoint store %q", cfg.CheckpointStore)
		}
	}

	client := nearblocks.NewClient(nearblocks.Config{
		BaseURL:       cfg.BaseURL,
		APIKey:        cfg.APIKey,
		RatePerMinute: cfg.RatePerMinute,
	}, logger)

	runner := indexer.NewRunner(indexer.RunConfig{
		Contracts:    contracts,
		Blocks:       indexer.BlockRange{From: cfg.FromBlock, To: cfg.ToBlock},
		PerPage:      cfg.PerPage,
		Order:        cfg.Order,
		MaxPages:     cfg.MaxPages,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
	}, client, storageSink, checkpoints, logger)

	logger.Info("indexer start",
		zap.Strings("contracts", contracts),
		zap.Uint64("from", cfg.FromBlock),
		zap.Uint64("to", cfg.ToBlock),
		zap.Int("per_page", cfg.PerPage),
		zap.String("order", cfg.Order),
		zap.Int("max_pages", cfg.MaxPages),
		zap.String("storage", cfg.Storage),
		zap.Bool("checkpoint_enabled", cfg.CheckpointEnabled),
		zap.String("checkpoint_store", cfg.CheckpointStore),
		zap.Bool("api_key", cfg.APIKey != ""),
	)

	return runner.Run(ctx)
}
