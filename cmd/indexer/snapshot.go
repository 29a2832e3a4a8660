package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"sputnikScope/internal/config"
	"sputnikScope/internal/devhub"
	"sputnikScope/internal/model"
	"sputnikScope/internal/nearrpc"
	"sputnikScope/internal/sputnik"
	"sputnikScope/internal/storage"
	"sputnikScope/internal/storage/postgres"
)

func runSnapshot(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadSnapshot(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	if cfg.In == "" {
		return fmt.Errorf("input path is required")
	}
	if cfg.PGDSN == "" {
		return fmt.Errorf("pg dsn is required")
	}

	ctx, logger, cleanup, err := startCommand(cfg.Common)
	if err != nil {
		return err
	}
	defer cleanup()

	rpcClient := nearrpc.NewClient(nearrpc.Config{URL: cfg.RPCURL, APIKey: cfg.RPCAPIKey}, logger)
	viewer, err := nearrpc.NewCachedViewer(rpcClient, nearrpc.CacheConfig{Addr: cfg.RedisAddr, TTL: cfg.CacheTTL}, logger)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer viewer.Close()

	store, err := postgres.NewStore(ctx, cfg.PGDSN)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer store.Close()
	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate postgres: %w", err)
	}

	appliers := []recordApplier{
		sputnik.NewSnapshotter(
			sputnik.NewProposalService(viewer),
			store,
			sputnik.SnapshotConfig{RetryDelay: cfg.RetryDelay},
			logger,
		),
		devhub.NewSnapshotter(
			devhub.NewService(viewer),
			store,
			devhub.SnapshotConfig{BlockOffset: cfg.DevHubBlockOffset},
			logger,
		),
	}

	logger.Info("snapshot start",
		zap.String("in", cfg.In),
		zap.String("rpc", cfg.RPCURL),
		zap.Bool("redis", cfg.RedisAddr != ""),
		zap.String("pg_dsn", redactDSN(cfg.PGDSN)),
		zap.Uint64("devhub_block_offset", cfg.DevHubBlockOffset),
	)

	var total, applied, ignored, failed int
	err = storage.ScanTxnRecords(ctx, cfg.In, func(pos int, record model.TxnRecord, err error) error {
		total++
		if err != nil {
			failed++
			logger.Warn("skip unreadable record", zap.Int("pos", pos), zap.Error(err))
			return nil
		}

		ok, err := applyRecord(ctx, appliers, record)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			failed++
			logger.Warn("snapshot failed",
				zap.String("txn_id", record.ID),
				zap.String("tx_hash", record.TransactionHash),
				zap.Uint64("block_height", record.ReceiptBlock.BlockHeight),
				zap.Error(err),
			)
			return nil
		}
		if ok {
			applied++
		} else {
			ignored++
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("scan input: %w", err)
	}

	logger.Info("snapshot complete",
		zap.Int("total", total),
		zap.Int("applied", applied),
		zap.Int("ignored", ignored),
		zap.Int("failed", failed),
	)
	return nil
}

type recordApplier interface {
	Apply(ctx context.Context, txn model.TxnRecord) (bool, error)
}

// applyRecord hands record to each applier in turn and reports whether any
// of them stored a snapshot. The first error stops the chain.
func applyRecord(ctx context.Context, appliers []recordApplier, record model.TxnRecord) (bool, error) {
	applied := false
	for _, applier := range appliers {
		ok, err := applier.Apply(ctx, record)
		if err != nil {
			return applied, err
		}
		applied = applied || ok
	}
	return applied, nil
}
