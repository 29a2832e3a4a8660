package devhub

import (
	"context"
	"encoding/json"
	"fmt"

	"sputnikScope/internal/nearrpc"
)

const (
	viewGetProposal = "get_proposal"
	viewGetRFP      = "get_rfp"
)

// Service reads DevHub proposals and RFPs through contract view calls. A zero
// block height reads final state.
type Service struct {
	viewer nearrpc.Viewer
}

func NewService(viewer nearrpc.Viewer) *Service {
	return &Service{viewer: viewer}
}

func (s *Service) Proposal(ctx context.Context, contract string, id, blockHeight uint64) (ContractProposal, error) {
	return view[ContractProposal](ctx, s.viewer, contract, viewGetProposal, map[string]uint64{"proposal_id": id}, blockHeight)
}

func (s *Service) RFP(ctx context.Context, contract string, id, blockHeight uint64) (ContractRFP, error) {
	return view[ContractRFP](ctx, s.viewer, contract, viewGetRFP, map[string]uint64{"rfp_id": id}, blockHeight)
}

func view[T any](ctx context.Context, viewer nearrpc.Viewer, contract, method string, args map[string]uint64, blockHeight uint64) (T, error) {
	var out T
	raw, err := viewer.CallFunction(ctx, contract, method, args, blockHeight)
	if err != nil {
		return out, fmt.Errorf("%s %v at %d: %w", method, args, blockHeight, err)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("decode %s: %w", method, err)
	}
	return out, nil
}
