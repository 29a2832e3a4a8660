package model

// SyncState is the last-updated bookkeeping for one contract feed.
type SyncState struct {
	Contract   string `json:"contract"`
	Cursor     string `json:"cursor"`
	AfterBlock uint64 `json:"after_block"`
	AfterDate  uint64 `json:"after_date"`
	UpdatedAt  string `json:"updated_at"`
}
