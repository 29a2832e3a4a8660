package model

// DecodeError records a decode failure for a transaction line.
type DecodeError struct {
	Contract    string `json:"contract"`
	TxnID       string `json:"txn_id"`
	TxHash      string `json:"tx_hash"`
	BlockHeight uint64 `json:"block_height"`
	Method      string `json:"method"`
	Error       string `json:"error"`
}
