package indexer

import (
	"time"

	"sputnikScope/internal/model"
)

func buildTxnRecord(contract string, txn model.Transaction, ingestedAt time.Time) model.TxnRecord {
	return model.TxnRecord{
		Contract:    contract,
		IngestedAt:  ingestedAt.UTC().Format(time.RFC3339Nano),
		Transaction: txn,
	}
}

// advanceState moves state past every record in the batch.
func advanceState(state model.SyncState, records []model.TxnRecord) model.SyncState {
	for _, record := range records {
		if record.ReceiptBlock.BlockHeight > state.AfterBlock {
			state.AfterBlock = record.ReceiptBlock.BlockHeight
		}
		if ts, err := record.TimestampNanos(); err == nil && ts > state.AfterDate {
			state.AfterDate = ts
		}
	}
	return state
}
