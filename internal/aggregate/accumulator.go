package aggregate

import (
	"encoding/json"
	"fmt"

	"sputnikScope/internal/model"
)

// Accumulator holds aggregate values for one DAO window.
type Accumulator struct {
	Contract         string
	WindowStart      uint64
	WindowEnd        uint64
	TxCount          uint64
	ProposalsAdded   uint64
	VotesApprove     uint64
	VotesReject      uint64
	VotesRemove      uint64
	ProposalsRemoved uint64
	Finalized        uint64
	Deposit          model.Amount
	Fees             model.Amount
	FirstBlock       uint64
	LastBlock        uint64
}

func NewAccumulator(record model.DAOEventRecord, windowStart, windowEnd uint64) *Accumulator {
	return &Accumulator{
		Contract:    record.Contract,
		WindowStart: windowStart,
		WindowEnd:   windowEnd,
		FirstBlock:  record.BlockHeight,
		LastBlock:   record.BlockHeight,
	}
}

func (a *Accumulator) AddEvent(record model.DAOEventRecord) error {
	switch record.Method {
	case model.MethodAddProposal:
		a.ProposalsAdded++
	case model.MethodActProposal:
		var act model.ActProposalData
		if err := json.Unmarshal(record.Decoded, &act); err != nil {
			return fmt.Errorf("decode act_proposal: %w", err)
		}
		a.applyAction(act.Action)
	}

	if record.BlockHeight > a.LastBlock {
		a.LastBlock = record.BlockHeight
	}
	if a.FirstBlock == 0 || record.BlockHeight < a.FirstBlock {
		a.FirstBlock = record.BlockHeight
	}
	a.Deposit = a.Deposit.Add(record.Deposit)
	a.Fees = a.Fees.Add(record.Fee)
	a.TxCount++
	return nil
}

func (a *Accumulator) applyAction(action model.ProposalAction) {
	switch action {
	case model.ActionVoteApprove:
		a.VotesApprove++
	case model.ActionVoteReject:
		a.VotesReject++
	case model.ActionVoteRemove:
		a.VotesRemove++
	case model.ActionRemoveProposal:
		a.ProposalsRemoved++
	case model.ActionFinalize:
		a.Finalized++
	}
}

// Metrics renders the accumulator as a stored row.
func (a *Accumulator) Metrics(windowSeconds uint64) model.DAOWindowMetrics {
	return model.DAOWindowMetrics{
		Contract:         a.Contract,
		WindowSizeSecs:   int64(windowSeconds),
		WindowStart:      secondsToTime(a.WindowStart),
		WindowEnd:        secondsToTime(a.WindowEnd),
		TxCount:          a.TxCount,
		ProposalsAdded:   a.ProposalsAdded,
		VotesApprove:     a.VotesApprove,
		VotesReject:      a.VotesReject,
		VotesRemove:      a.VotesRemove,
		ProposalsRemoved: a.ProposalsRemoved,
		Finalized:        a.Finalized,
		Deposit:          a.Deposit.Human(),
		Fees:             a.Fees.Human(),
		FirstBlock:       a.FirstBlock,
		LastBlock:        a.LastBlock,
	}
}
