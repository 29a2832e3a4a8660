package aggregate

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"go.uber.org/zap"

	"sputnikScope/internal/model"
	"sputnikScope/internal/storage"
)

// MetricsStore persists DAO window metrics.
type MetricsStore interface {
	UpsertDAOWindowMetrics(ctx context.Context, metrics []model.DAOWindowMetrics) error
}

// Config controls aggregation behavior. RecomputeFrom is a nanosecond
// timestamp; events before it are ignored.
type Config struct {
	WindowSeconds uint64
	BatchSize     int
	RecomputeFrom uint64
	StateStore    StateStore
}

// Summary counts the lines seen by a run.
type Summary struct {
	Total      int
	Windows    int
	Skipped    int
	OutOfOrder int
	Failed     int
}

// Aggregator folds DAO events into per-contract activity windows. Events of a
// contract are expected in ascending time order. Progress is tracked per
// contract, so contracts interleaved in the input never skip each other.
type Aggregator struct {
	cfg          Config
	store        MetricsStore
	logger       *zap.Logger
	accumulators map[string]*Accumulator
	starts       map[string]uint64
}

func NewAggregator(cfg Config, store MetricsStore, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Aggregator{
		cfg:          cfg,
		store:        store,
		logger:       logger,
		accumulators: make(map[string]*Accumulator),
		starts:       make(map[string]uint64),
	}
}

// Run executes aggregation over a DAO events JSONL file.
func (a *Aggregator) Run(ctx context.Context, inputPath string) (Summary, error) {
	file, err := os.Open(inputPath)
	if err != nil {
		return Summary{}, fmt.Errorf("open input: %w", err)
	}
	defer file.Close()

	var records []model.DAOEventRecord
	var summary Summary
	err = storage.ScanJSONL(file, func(lineNo int, line []byte) error {
		var record model.DAOEventRecord
		if err := json.Unmarshal(line, &record); err != nil {
			summary.Total++
			summary.Failed++
			a.logger.Warn("decode dao event", zap.Int("line", lineNo), zap.Error(err))
			return nil
		}
		records = append(records, record)
		return nil
	})
	if err != nil {
		return summary, err
	}

	result, err := a.Aggregate(ctx, records)
	result.Total += summary.Total
	result.Failed += summary.Failed
	return result, err
}

// Aggregate folds records into windows and upserts them in batches.
func (a *Aggregator) Aggregate(ctx context.Context, records []model.DAOEventRecord) (Summary, error) {
	var summary Summary
	if a.store == nil {
		return summary, fmt.Errorf("store is nil")
	}
	if a.cfg.WindowSeconds == 0 {
		return summary, fmt.Errorf("window seconds must be > 0")
	}
	if a.cfg.BatchSize <= 0 {
		a.cfg.BatchSize = 1000
	}

	batch := make([]model.DAOWindowMetrics, 0, a.cfg.BatchSize)
	for _, record := range records {
		summary.Total++
		startTs, err := a.startTimestamp(ctx, record.Contract)
		if err != nil {
			return summary, err
		}
		if record.Timestamp <= startTs {
			summary.Skipped++
			continue
		}

		start := windowStart(nanosToSeconds(record.Timestamp), a.cfg.WindowSeconds)
		acc := a.accumulators[record.Contract]
		if acc != nil && start < acc.WindowStart {
			summary.OutOfOrder++
			a.logger.Warn("event older than open window",
				zap.String("contract", record.Contract),
				zap.String("txn_id", record.TxnID),
				zap.Uint64("timestamp", record.Timestamp),
			)
			continue
		}
		if acc != nil && start != acc.WindowStart {
			batch = append(batch, acc.Metrics(a.cfg.WindowSeconds))
			summary.Windows++
			acc = nil
		}
		if acc == nil {
			acc = NewAccumulator(record, start, start+a.cfg.WindowSeconds)
			a.accumulators[record.Contract] = acc
		}

		if err := acc.AddEvent(record); err != nil {
			summary.Failed++
			a.logger.Warn("aggregate event", zap.Error(err), zap.String("contract", record.Contract), zap.String("txn_id", record.TxnID))
			continue
		}

		if len(batch) >= a.cfg.BatchSize {
			if err := a.store.UpsertDAOWindowMetrics(ctx, batch); err != nil {
				return summary, err
			}
			batch = batch[:0]

			if err := a.saveState(ctx); err != nil {
				return summary, err
			}
		}
	}

	for _, acc := range a.accumulators {
		batch = append(batch, acc.Metrics(a.cfg.WindowSeconds))
		summary.Windows++
	}

	if len(batch) > 0 {
		if err := a.store.UpsertDAOWindowMetrics(ctx, batch); err != nil {
			return summary, err
		}
	}
	// the last window of each contract stays open for the next run
	if err := a.saveState(ctx); err != nil {
		return summary, err
	}
	a.accumulators = make(map[string]*Accumulator)
	a.starts = make(map[string]uint64)

	a.logger.Info("aggregate complete",
		zap.Int("total", summary.Total),
		zap.Int("windows", summary.Windows),
		zap.Int("skipped", summary.Skipped),
		zap.Int("out_of_order", summary.OutOfOrder),
		zap.Int("failed", summary.Failed),
	)

	return summary, nil
}

// startTimestamp returns the cut-off below which events of contract were
// already folded, loading it from the state store on first use.
func (a *Aggregator) startTimestamp(ctx context.Context, contract string) (uint64, error) {
	if ts, ok := a.starts[contract]; ok {
		return ts, nil
	}
	var ts uint64
	switch {
	case a.cfg.RecomputeFrom > 0:
		ts = a.cfg.RecomputeFrom - 1
	case a.cfg.StateStore != nil:
		last, ok, err := a.cfg.StateStore.Load(ctx, contract)
		if err != nil {
			return 0, fmt.Errorf("load state for %s: %w", contract, err)
		}
		if ok {
			ts = last
		}
	}
	a.starts[contract] = ts
	return ts, nil
}

// saveState records, for every contract with an open window, progress up to
// just before that window, so a restart rebuilds it from its first event.
func (a *Aggregator) saveState(ctx context.Context) error {
	if a.cfg.StateStore == nil {
		return nil
	}

	for contract, acc := range a.accumulators {
		safeTs := acc.WindowStart * nanosPerSecond
		if safeTs > 0 {
			safeTs = safeTs - 1
		}
		if err := a.cfg.StateStore.Save(ctx, contract, safeTs); err != nil {
			return fmt.Errorf("save state for %s: %w", contract, err)
		}
	}
	return nil
}
