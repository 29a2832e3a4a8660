package sputnik

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"sputnikScope/internal/model"
	"sputnikScope/internal/nearrpc"
)

const (
	viewGetLastProposalID = "get_last_proposal_id"
	viewGetProposal       = "get_proposal"
)

// ProposalOutput is the get_proposal view result.
type ProposalOutput struct {
	ID             uint64                     `json:"id"`
	Proposer       string                     `json:"proposer"`
	Description    string                     `json:"description"`
	Kind           json.RawMessage            `json:"kind"`
	Status         model.ProposalStatus       `json:"status"`
	VoteCounts     json.RawMessage            `json:"vote_counts"`
	Votes          map[string]json.RawMessage `json:"votes"`
	SubmissionTime U64                        `json:"submission_time"`
}

// U64 accepts both the quoted and the bare form of a u64.
type U64 uint64

func (u *U64) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		v, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return fmt.Errorf("parse u64 %q: %w", s, err)
		}
		*u = U64(v)
		return nil
	}
	var v uint64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*u = U64(v)
	return nil
}

func (u U64) MarshalJSON() ([]byte, error) {
	return json.Marshal(strconv.FormatUint(uint64(u), 10))
}

// ProposalService reads DAO proposal state through contract view calls.
type ProposalService struct {
	viewer nearrpc.Viewer
}

func NewProposalService(viewer nearrpc.Viewer) *ProposalService {
	return &ProposalService{viewer: viewer}
}

// LastProposalID returns the contract's proposal counter at blockHeight. The
// counter is the number of proposals created, so the newest id is one less.
func (s *ProposalService) LastProposalID(ctx context.Context, contract string, blockHeight uint64) (uint64, error) {
	raw, err := s.viewer.CallFunction(ctx, contract, viewGetLastProposalID, struct{}{}, blockHeight)
	if err != nil {
		return 0, fmt.Errorf("get_last_proposal_id at %d: %w", blockHeight, err)
	}
	var id uint64
	if err := json.Unmarshal(raw, &id); err != nil {
		return 0, fmt.Errorf("decode get_last_proposal_id: %w", err)
	}
	return id, nil
}

// Proposal returns proposal id as stored at blockHeight.
func (s *ProposalService) Proposal(ctx context.Context, contract string, id, blockHeight uint64) (ProposalOutput, error) {
	raw, err := s.viewer.CallFunction(ctx, contract, viewGetProposal, map[string]uint64{"id": id}, blockHeight)
	if err != nil {
		return ProposalOutput{}, fmt.Errorf("get_proposal %d at %d: %w", id, blockHeight, err)
	}
	var out ProposalOutput
	if err := json.Unmarshal(raw, &out); err != nil {
		return ProposalOutput{}, fmt.Errorf("decode get_proposal %d: %w", id, err)
	}
	return out, nil
}
