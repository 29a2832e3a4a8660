package model

// TxnRecord is a transaction as persisted by the sync stage.
type TxnRecord struct {
	Contract   string `json:"contract"`
	IngestedAt string `json:"ingested_at"`
	Transaction
}
