// Package sputnik decodes Sputnik DAO contract calls and tracks proposal state.
package sputnik

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"sputnikScope/internal/model"
)

var (
	// ErrFailedReceipt marks records whose receipt did not succeed.
	ErrFailedReceipt = errors.New("receipt failed")
	// ErrUnhandledMethod marks calls no decoder understands.
	ErrUnhandledMethod = errors.New("unhandled method")
)

// Decoder defines a DAO call decoder.
type Decoder interface {
	CanDecode(method string) bool
	Decode(txn model.TxnRecord, ctx DecodeContext) (*model.DAOEvent, error)
}

// DecodeContext provides shared dependencies for decoders.
type DecodeContext struct {
	Context context.Context
	Logger  *zap.Logger
}

// ProposalDecoder decodes add_proposal and act_proposal calls.
type ProposalDecoder struct{}

func NewProposalDecoder() *ProposalDecoder {
	return &ProposalDecoder{}
}

func (d *ProposalDecoder) CanDecode(method string) bool {
	return method == model.MethodAddProposal || method == model.MethodActProposal
}

func (d *ProposalDecoder) Decode(txn model.TxnRecord, ctx DecodeContext) (*model.DAOEvent, error) {
	if !txn.Succeeded() {
		return nil, ErrFailedReceipt
	}
	action, ok := txn.FirstAction()
	if !ok {
		return nil, fmt.Errorf("transaction %s has no actions", txn.ID)
	}
	method, ok := action.Method()
	if !ok || !d.CanDecode(method) {
		return nil, fmt.Errorf("%w: %s", ErrUnhandledMethod, method)
	}

	var decoded interface{}
	switch method {
	case model.MethodAddProposal:
		args, err := parseAddProposalArgs(action.FunctionCall.Args)
		if err != nil {
			return nil, err
		}
		decoded = model.AddProposalData{
			Description:    args.Proposal.Description,
			KindName:       KindName(args.Proposal.Kind),
			Kind:           args.Proposal.Kind,
			ProposalAction: DecodeProposalDescription(args.Proposal.Description),
		}
	case model.MethodActProposal:
		args, err := parseActProposalArgs(action.FunctionCall.Args)
		if err != nil {
			return nil, err
		}
		decoded = model.ActProposalData{
			ProposalID: args.ID,
			Action:     args.Action,
			Memo:       args.Memo,
		}
	}

	return NewEvent(txn, method, action, decoded), nil
}

// DecodeRecord runs the first decoder that accepts the record's method.
func DecodeRecord(decoders []Decoder, txn model.TxnRecord, ctx DecodeContext) (*model.DAOEvent, error) {
	action, ok := txn.FirstAction()
	if !ok {
		return nil, fmt.Errorf("transaction %s has no actions", txn.ID)
	}
	method, _ := action.Method()
	for _, decoder := range decoders {
		if decoder.CanDecode(method) {
			return decoder.Decode(txn, ctx)
		}
	}
	if method == "" {
		method = string(action.Kind())
	}
	return nil, fmt.Errorf("%w: %s", ErrUnhandledMethod, method)
}

// NewEvent wraps a decoded call payload with the receipt metadata of txn.
func NewEvent(txn model.TxnRecord, method string, action model.Action, decoded interface{}) *model.DAOEvent {
	return &model.DAOEvent{
		Contract:    contractOf(txn),
		TxnID:       txn.ID,
		TxHash:      txn.TransactionHash,
		ReceiptID:   txn.ReceiptID,
		BlockHeight: txn.ReceiptBlock.BlockHeight,
		BlockHash:   txn.ReceiptBlock.BlockHash,
		Timestamp:   txn.ReceiptBlock.BlockTimestamp,
		Signer:      txn.PredecessorAccountID,
		Method:      method,
		Deposit:     action.Deposit(),
		Fee:         action.Fee(),
		Decoded:     decoded,
	}
}
