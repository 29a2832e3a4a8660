package model

import (
	"fmt"
	"strconv"
)

// TxnPage is one page of the account transaction feed. A nil Cursor marks the last page.
type TxnPage struct {
	Cursor *string       `json:"cursor,omitempty"`
	Txns   []Transaction `json:"txns"`
}

// HasMore reports whether another page follows.
func (p TxnPage) HasMore() bool {
	return p.Cursor != nil && *p.Cursor != ""
}

// Transaction is one settled receipt together with its parent transaction.
type Transaction struct {
	ID                           string         `json:"id"`
	ReceiptID                    string         `json:"receipt_id"`
	PredecessorAccountID         string         `json:"predecessor_account_id"`
	ReceiverAccountID            string         `json:"receiver_account_id"`
	ReceiptKind                  string         `json:"receipt_kind"`
	ReceiptBlock                 ReceiptBlock   `json:"receipt_block"`
	ReceiptOutcome               ReceiptOutcome `json:"receipt_outcome"`
	TransactionHash              string         `json:"transaction_hash"`
	IncludedInBlockHash          string         `json:"included_in_block_hash"`
	BlockTimestamp               string         `json:"block_timestamp"`
	Block                        BlockRef       `json:"block"`
	ReceiptConversionTokensBurnt Amount         `json:"receipt_conversion_tokens_burnt"`
	Actions                      []Action       `json:"actions"`
	ActionsAgg                   ActionsAgg     `json:"actions_agg"`
	Outcomes                     Outcomes       `json:"outcomes"`
	OutcomesAgg                  OutcomesAgg    `json:"outcomes_agg"`
}

type ReceiptBlock struct {
	BlockHash      string `json:"block_hash"`
	BlockHeight    uint64 `json:"block_height"`
	BlockTimestamp uint64 `json:"block_timestamp"`
}

type ReceiptOutcome struct {
	GasBurnt          uint64 `json:"gas_burnt"`
	TokensBurnt       Amount `json:"tokens_burnt"`
	ExecutorAccountID string `json:"executor_account_id"`
	Status            bool   `json:"status"`
}

type BlockRef struct {
	BlockHeight uint64 `json:"block_height"`
}

type ActionsAgg struct {
	Deposit Amount `json:"deposit"`
}

type Outcomes struct {
	Status bool `json:"status"`
}

type OutcomesAgg struct {
	TransactionFee Amount `json:"transaction_fee"`
}

// FirstAction returns actions[0]; ok is false when the record has no actions.
func (t Transaction) FirstAction() (Action, bool) {
	if len(t.Actions) == 0 {
		return Action{}, false
	}
	return t.Actions[0], true
}

// Succeeded reports the receipt outcome status.
func (t Transaction) Succeeded() bool {
	return t.ReceiptOutcome.Status
}

// TimestampNanos parses the transaction inclusion timestamp.
func (t Transaction) TimestampNanos() (uint64, error) {
	if t.BlockTimestamp == "" {
		return 0, fmt.Errorf("transaction %s has no block timestamp", t.ID)
	}
	ts, err := strconv.ParseUint(t.BlockTimestamp, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse block timestamp %q: %w", t.BlockTimestamp, err)
	}
	return ts, nil
}
