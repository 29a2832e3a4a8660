package sputnik

import (
	"encoding/json"
	"fmt"

	"sputnikScope/internal/model"
)

// AddProposalArgs is the add_proposal call payload.
type AddProposalArgs struct {
	Proposal ProposalInput `json:"proposal"`
}

type ProposalInput struct {
	Description string          `json:"description"`
	Kind        json.RawMessage `json:"kind"`
}

// ActProposalArgs is the act_proposal call payload.
type ActProposalArgs struct {
	ID     uint64               `json:"id"`
	Action model.ProposalAction `json:"action"`
	Memo   *string              `json:"memo,omitempty"`
}

func parseAddProposalArgs(args string) (AddProposalArgs, error) {
	var out AddProposalArgs
	if err := json.Unmarshal([]byte(args), &out); err != nil {
		return AddProposalArgs{}, fmt.Errorf("parse add_proposal args: %w", err)
	}
	if len(out.Proposal.Kind) == 0 {
		return AddProposalArgs{}, fmt.Errorf("parse add_proposal args: missing proposal kind")
	}
	return out, nil
}

func parseActProposalArgs(args string) (ActProposalArgs, error) {
	var out ActProposalArgs
	if err := json.Unmarshal([]byte(args), &out); err != nil {
		return ActProposalArgs{}, fmt.Errorf("parse act_proposal args: %w", err)
	}
	if out.Action == "" {
		return ActProposalArgs{}, fmt.Errorf("parse act_proposal args: missing action")
	}
	return out, nil
}

// KindName returns the variant name of a proposal kind, which serializes
// either as a bare string ("Vote") or as a single-key object.
func KindName(kind json.RawMessage) string {
	var name string
	if err := json.Unmarshal(kind, &name); err == nil {
		return name
	}
	var variant map[string]json.RawMessage
	if err := json.Unmarshal(kind, &variant); err != nil || len(variant) != 1 {
		return ""
	}
	for key := range variant {
		return key
	}
	return ""
}
