package storage

import "sputnikScope/internal/model"

// Storage defines a sink for synced transactions.
type Storage interface {
	PutTransactionBatch(records []model.TxnRecord) error
}
