package model

import "encoding/json"

// DAOEvent is a decoded Sputnik DAO call.
type DAOEvent struct {
	Contract    string      `json:"contract"`
	TxnID       string      `json:"txn_id"`
	TxHash      string      `json:"tx_hash"`
	ReceiptID   string      `json:"receipt_id"`
	BlockHeight uint64      `json:"block_height"`
	BlockHash   string      `json:"block_hash"`
	Timestamp   uint64      `json:"timestamp"`
	Signer      string      `json:"signer"`
	Method      string      `json:"method"`
	Deposit     Amount      `json:"deposit"`
	Fee         Amount      `json:"fee"`
	Decoded     interface{} `json:"decoded"`
}

// DAOEventRecord is the JSON representation read back by later stages.
type DAOEventRecord struct {
	Contract    string          `json:"contract"`
	TxnID       string          `json:"txn_id"`
	TxHash      string          `json:"tx_hash"`
	ReceiptID   string          `json:"receipt_id"`
	BlockHeight uint64          `json:"block_height"`
	BlockHash   string          `json:"block_hash"`
	Timestamp   uint64          `json:"timestamp"`
	Signer      string          `json:"signer"`
	Method      string          `json:"method"`
	Deposit     Amount          `json:"deposit"`
	Fee         Amount          `json:"fee"`
	Decoded     json.RawMessage `json:"decoded"`
}

const (
	MethodAddProposal = "add_proposal"
	MethodActProposal = "act_proposal"
)

// AddProposalData is the decoded add_proposal payload.
type AddProposalData struct {
	Description    string          `json:"description"`
	KindName       string          `json:"kind_name"`
	Kind           json.RawMessage `json:"kind"`
	ProposalAction string          `json:"proposal_action"`
}

// ActProposalData is the decoded act_proposal payload.
type ActProposalData struct {
	ProposalID uint64         `json:"proposal_id"`
	Action     ProposalAction `json:"action"`
	Memo       *string        `json:"memo,omitempty"`
}
