package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"sputnikScope/internal/config"
	"sputnikScope/internal/dump"
	"sputnikScope/internal/fixture"
	"sputnikScope/internal/indexer"
	"sputnikScope/internal/model"
	"sputnikScope/internal/nearblocks"
)

func runDump(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadDump(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	policy, err := dump.ParsePolicy(cfg.OnMalformed)
	if err != nil {
		return err
	}

	ctx, logger, cleanup, err := startCommand(cfg.Common)
	if err != nil {
		return err
	}
	defer cleanup()

	var page model.TxnPage
	switch {
	case cfg.Live:
		client := nearblocks.NewClient(nearblocks.Config{BaseURL: cfg.BaseURL, APIKey: cfg.APIKey}, logger)
		page, err = fetchLivePage(ctx, client, cfg)
		if err != nil {
			return err
		}
	case cfg.In != "":
		page, err = fixture.Load(cfg.In)
		if err != nil {
			return err
		}
	default:
		page, err = fixture.Default()
		if err != nil {
			return err
		}
	}

	written, err := dump.NewDumper(os.Stdout, policy, logger).Dump(page.Txns)
	if err != nil {
		return err
	}

	logger.Debug("dump complete",
		zap.Int("records", len(page.Txns)),
		zap.Int("written", written),
		zap.Bool("has_more", page.HasMore()),
	)
	return nil
}

type livePageSource interface {
	AccountTxns(ctx context.Context, account string, req nearblocks.PageRequest) (model.TxnPage, error)
	ReceiptByID(ctx context.Context, receiptID string) (model.TxnPage, error)
}

// fetchLivePage looks up a single receipt when one is configured, otherwise
// the first page of the account's transactions.
func fetchLivePage(ctx context.Context, source livePageSource, cfg config.DumpConfig) (model.TxnPage, error) {
	if cfg.Receipt != "" {
		page, err := source.ReceiptByID(ctx, cfg.Receipt)
		if err != nil {
			return model.TxnPage{}, fmt.Errorf("fetch receipt %s: %w", cfg.Receipt, err)
		}
		return page, nil
	}
	if err := indexer.ValidateAccountID(cfg.Account); err != nil {
		return model.TxnPage{}, err
	}
	page, err := source.AccountTxns(ctx, cfg.Account, nearblocks.PageRequest{})
	if err != nil {
		return model.TxnPage{}, fmt.Errorf("fetch page: %w", err)
	}
	return page, nil
}
