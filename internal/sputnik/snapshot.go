package sputnik

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"sputnikScope/internal/model"
)

// ProposalReader reads proposal state at a block.
type ProposalReader interface {
	LastProposalID(ctx context.Context, contract string, blockHeight uint64) (uint64, error)
	Proposal(ctx context.Context, contract string, id, blockHeight uint64) (ProposalOutput, error)
}

// SnapshotStore persists proposal snapshots.
type SnapshotStore interface {
	UpsertProposalSnapshots(ctx context.Context, snapshots []model.ProposalSnapshot) error
	UpdateProposalStatus(ctx context.Context, id string, status model.ProposalStatus) error
}

// SnapshotConfig configures a Snapshotter.
type SnapshotConfig struct {
	RetryDelay time.Duration
}

// Snapshotter refreshes stored proposal state from add_proposal and
// act_proposal receipts.
type Snapshotter struct {
	reader     ProposalReader
	store      SnapshotStore
	logger     *zap.Logger
	retryDelay time.Duration
}

func NewSnapshotter(reader ProposalReader, store SnapshotStore, cfg SnapshotConfig, logger *zap.Logger) *Snapshotter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	return &Snapshotter{
		reader:     reader,
		store:      store,
		logger:     logger,
		retryDelay: cfg.RetryDelay,
	}
}

// Apply updates the snapshot touched by txn. Records that are not proposal
// calls, or whose receipt failed, are ignored and reported as not applied.
func (s *Snapshotter) Apply(ctx context.Context, txn model.TxnRecord) (bool, error) {
	if !txn.Succeeded() {
		return false, nil
	}
	action, ok := txn.FirstAction()
	if !ok {
		return false, fmt.Errorf("transaction %s has no actions", txn.ID)
	}
	method, _ := action.Method()

	switch method {
	case model.MethodAddProposal:
		return true, s.applyAddProposal(ctx, txn, action.FunctionCall.Args)
	case model.MethodActProposal:
		return true, s.applyActProposal(ctx, txn, action.FunctionCall.Args)
	default:
		return false, nil
	}
}

func (s *Snapshotter) applyAddProposal(ctx context.Context, txn model.TxnRecord, rawArgs string) error {
	contract := contractOf(txn)
	blockHeight := txn.ReceiptBlock.BlockHeight

	count, err := s.reader.LastProposalID(ctx, contract, blockHeight)
	if err != nil {
		s.logger.Warn("get_last_proposal_id failed, retrying",
			zap.String("contract", contract),
			zap.Uint64("block_height", blockHeight),
			zap.Error(err),
		)
		if err := sleepContext(ctx, s.retryDelay); err != nil {
			return err
		}
		count, err = s.reader.LastProposalID(ctx, contract, blockHeight)
		if err != nil {
			return err
		}
	}
	if count == 0 {
		return fmt.Errorf("contract %s reports no proposals at block %d", contract, blockHeight)
	}
	proposalID := count - 1

	proposal, err := s.reader.Proposal(ctx, contract, proposalID, blockHeight)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		args, argsErr := parseAddProposalArgs(rawArgs)
		if argsErr != nil {
			return errors.Join(err, argsErr)
		}
		s.logger.Warn("get_proposal failed, storing proposal from call args",
			zap.String("contract", contract),
			zap.Uint64("proposal_id", proposalID),
			zap.Uint64("block_height", blockHeight),
			zap.Error(err),
		)
		proposal = ProposalOutput{
			ID:             proposalID,
			Proposer:       txn.PredecessorAccountID,
			Description:    args.Proposal.Description,
			Kind:           args.Proposal.Kind,
			Status:         model.StatusRemoved,
			SubmissionTime: U64(txn.ReceiptBlock.BlockTimestamp),
		}
	}

	snapshot, err := buildSnapshot(txn, contract, proposal)
	if err != nil {
		return err
	}
	if err := s.store.UpsertProposalSnapshots(ctx, []model.ProposalSnapshot{snapshot}); err != nil {
		return fmt.Errorf("upsert snapshot %s: %w", snapshot.ID, err)
	}
	s.logger.Debug("proposal snapshot stored",
		zap.String("id", snapshot.ID),
		zap.String("status", string(snapshot.Status)),
		zap.String("submitted", FormatDate(snapshot.SubmissionTime)),
	)
	return nil
}

func (s *Snapshotter) applyActProposal(ctx context.Context, txn model.TxnRecord, rawArgs string) error {
	contract := contractOf(txn)
	blockHeight := txn.ReceiptBlock.BlockHeight

	args, err := parseActProposalArgs(rawArgs)
	if err != nil {
		return err
	}

	proposal, err := s.reader.Proposal(ctx, contract, args.ID, blockHeight)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		// Removed proposals are deleted from contract state.
		if args.Action.Removes() {
			id := model.SnapshotID(args.ID, contract)
			s.logger.Info("proposal removed", zap.String("id", id), zap.String("action", string(args.Action)))
			return s.store.UpdateProposalStatus(ctx, id, model.StatusRemoved)
		}
		return err
	}

	snapshot, err := buildSnapshot(txn, contract, proposal)
	if err != nil {
		return err
	}
	if err := s.store.UpsertProposalSnapshots(ctx, []model.ProposalSnapshot{snapshot}); err != nil {
		return fmt.Errorf("upsert snapshot %s: %w", snapshot.ID, err)
	}
	return nil
}

func buildSnapshot(txn model.TxnRecord, contract string, proposal ProposalOutput) (model.ProposalSnapshot, error) {
	txTimestamp, err := txn.TimestampNanos()
	if err != nil {
		return model.ProposalSnapshot{}, err
	}

	votes := proposal.Votes
	if votes == nil {
		votes = map[string]json.RawMessage{}
	}
	votesJSON, err := json.Marshal(votes)
	if err != nil {
		return model.ProposalSnapshot{}, fmt.Errorf("encode votes: %w", err)
	}
	voteCounts := proposal.VoteCounts
	if len(voteCounts) == 0 {
		voteCounts = json.RawMessage(`{}`)
	}
	kind := proposal.Kind
	if len(kind) == 0 {
		kind = json.RawMessage(`null`)
	}

	return model.ProposalSnapshot{
		ID:             model.SnapshotID(proposal.ID, contract),
		ProposalID:     proposal.ID,
		Description:    proposal.Description,
		Kind:           kind,
		Proposer:       proposal.Proposer,
		Status:         proposal.Status,
		SubmissionTime: uint64(proposal.SubmissionTime),
		VoteCounts:     voteCounts,
		Votes:          votesJSON,
		TotalVotes:     len(votes),
		DAOInstance:    contract,
		ProposalAction: DecodeProposalDescription(proposal.Description),
		TxTimestamp:    txTimestamp,
		Hash:           txn.TransactionHash,
		BlockHeight:    txn.ReceiptBlock.BlockHeight,
	}, nil
}

func contractOf(txn model.TxnRecord) string {
	if txn.Contract != "" {
		return txn.Contract
	}
	return txn.ReceiverAccountID
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
