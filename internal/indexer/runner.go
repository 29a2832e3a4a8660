package indexer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"sputnikScope/internal/model"
	"sputnikScope/internal/nearblocks"
	"sputnikScope/internal/storage"
)

// PageSource serves the account transaction feed.
type PageSource interface {
	AccountTxns(ctx context.Context, account string, req nearblocks.PageRequest) (model.TxnPage, error)
}

// RunConfig holds runtime settings for the indexer.
type RunConfig struct {
	Contracts    []string
	Blocks       BlockRange
	PerPage      int
	Order        string
	MaxPages     int
	MaxRetries   int
	RetryBackoff time.Duration
}

// Runner follows the NearBlocks cursor for each contract and writes every
// page to storage before advancing the checkpoint.
type Runner struct {
	cfg         RunConfig
	source      PageSource
	storage     storage.Storage
	checkpoints CheckpointStore
	logger      *zap.Logger
	seen        map[string]struct{}
	now         func() time.Time
}

// NewRunner builds a Runner with its dependencies. A nil checkpoint store
// disables resuming.
func NewRunner(cfg RunConfig, source PageSource, storageSink storage.Storage, checkpoints CheckpointStore, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if checkpoints == nil {
		checkpoints = NewFileCheckpointStore("", false)
	}
	return &Runner{
		cfg:         cfg,
		source:      source,
		storage:     storageSink,
		checkpoints: checkpoints,
		logger:      logger,
		seen:        make(map[string]struct{}),
		now:         time.Now,
	}
}

// Run syncs every configured contract in turn.
func (r *Runner) Run(ctx context.Context) error {
	if r.source == nil {
		return fmt.Errorf("page source is nil")
	}
	if r.storage == nil {
		return fmt.Errorf("storage is nil")
	}
	if len(r.cfg.Contracts) == 0 {
		return fmt.Errorf("at least one contract is required")
	}
	if err := r.cfg.Blocks.Validate(); err != nil {
		return err
	}

	for _, contract := range r.cfg.Contracts {
		if err := r.syncContract(ctx, contract); err != nil {
			return fmt.Errorf("sync %s: %w", contract, err)
		}
	}
	return nil
}

func (r *Runner) syncContract(ctx context.Context, contract string) error {
	state, ok, err := r.checkpoints.LoadSyncState(ctx, contract)
	if err != nil {
		return fmt.Errorf("load checkpoint: %w", err)
	}
	if !ok {
		state = model.SyncState{Contract: contract}
	} else {
		r.logger.Info("resume from checkpoint",
			zap.String("contract", contract),
			zap.String("cursor", state.Cursor),
			zap.Uint64("after_block", state.AfterBlock),
		)
	}

	afterBlock := state.AfterBlock
	if r.cfg.Blocks.From > 0 && r.cfg.Blocks.From-1 > afterBlock {
		afterBlock = r.cfg.Blocks.From - 1
	}
	cursor := state.Cursor
	descending := strings.EqualFold(r.cfg.Order, "desc")

	for pages := 0; ; pages++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if r.cfg.MaxPages > 0 && pages >= r.cfg.MaxPages {
			r.logger.Info("page limit reached", zap.String("contract", contract), zap.Int("pages", pages))
			return nil
		}

		req := nearblocks.PageRequest{
			PerPage:    r.cfg.PerPage,
			Order:      r.cfg.Order,
			Cursor:     cursor,
			AfterBlock: afterBlock,
		}
		page, err := r.fetchPageWithRetry(ctx, contract, req)
		if err != nil {
			return fmt.Errorf("fetch page: %w", err)
		}

		ingestedAt := r.now().UTC()
		records := make([]model.TxnRecord, 0, len(page.Txns))
		pastRange := false
		for _, txn := range page.Txns {
			height := txn.ReceiptBlock.BlockHeight
			if r.cfg.Blocks.Exhausted(height, descending) {
				pastRange = true
				continue
			}
			if !r.cfg.Blocks.Contains(height) || r.isDuplicate(txn.ID) {
				continue
			}
			records = append(records, buildTxnRecord(contract, txn, ingestedAt))
		}

		if err := r.storage.PutTransactionBatch(records); err != nil {
			return fmt.Errorf("store transactions: %w", err)
		}

		state = advanceState(state, records)
		state.Cursor = ""
		if page.HasMore() && !pastRange {
			state.Cursor = *page.Cursor
		}
		state.UpdatedAt = ingestedAt.Format(time.RFC3339Nano)
		if err := r.checkpoints.SaveSyncState(ctx, state); err != nil {
			return fmt.Errorf("save checkpoint: %w", err)
		}

		r.logger.Info("page complete",
			zap.String("contract", contract),
			zap.Int("txns", len(page.Txns)),
			zap.Int("stored", len(records)),
			zap.Uint64("after_block", state.AfterBlock),
			zap.Bool("more", state.Cursor != ""),
		)

		if state.Cursor == "" {
			return nil
		}
		cursor = state.Cursor
	}
}

func (r *Runner) fetchPageWithRetry(ctx context.Context, contract string, req nearblocks.PageRequest) (model.TxnPage, error) {
	var page model.TxnPage
	err := withRetry(ctx, r.cfg.MaxRetries, r.cfg.RetryBackoff, func(ctx context.Context) error {
		var err error
		page, err = r.source.AccountTxns(ctx, contract, req)
		if err != nil {
			r.logger.Warn("fetch page failed", zap.Error(err), zap.String("contract", contract), zap.String("cursor", req.Cursor))
		}
		return err
	})
	return page, err
}

func (r *Runner) isDuplicate(id string) bool {
	if _, ok := r.seen[id]; ok {
		return true
	}
	r.seen[id] = struct{}{}
	return false
}
