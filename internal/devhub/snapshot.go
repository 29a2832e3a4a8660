package devhub

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"sputnikScope/internal/model"
	"sputnikScope/internal/sputnik"
)

// DefaultBlockOffset is how many blocks past an edit receipt the entity is
// read, so state written by the edit's callbacks is visible.
const DefaultBlockOffset = 10

// Reader reads DevHub state at a block; zero means final.
type Reader interface {
	Proposal(ctx context.Context, contract string, id, blockHeight uint64) (ContractProposal, error)
	RFP(ctx context.Context, contract string, id, blockHeight uint64) (ContractRFP, error)
}

// Store persists DevHub snapshots together with the entity row they belong to.
type Store interface {
	SaveDevHubProposalSnapshot(ctx context.Context, snapshot model.DevHubProposalSnapshot) error
	SaveRFPSnapshot(ctx context.Context, snapshot model.RFPSnapshot) error
}

type SnapshotConfig struct {
	BlockOffset uint64
}

// Snapshotter stores a snapshot of the proposal or RFP touched by each
// DevHub call.
type Snapshotter struct {
	reader      Reader
	store       Store
	logger      *zap.Logger
	blockOffset uint64
}

func NewSnapshotter(reader Reader, store Store, cfg SnapshotConfig, logger *zap.Logger) *Snapshotter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Snapshotter{
		reader:      reader,
		store:       store,
		logger:      logger,
		blockOffset: cfg.BlockOffset,
	}
}

// Apply stores the snapshot touched by txn. Records that are not DevHub calls,
// or whose receipt failed, are reported as not applied.
func (s *Snapshotter) Apply(ctx context.Context, txn model.TxnRecord) (bool, error) {
	if !txn.Succeeded() {
		return false, nil
	}
	action, ok := txn.FirstAction()
	if !ok {
		return false, fmt.Errorf("transaction %s has no actions", txn.ID)
	}
	method, _ := action.Method()
	if _, ok := methods[method]; !ok {
		return false, nil
	}
	c, err := parseCall(method, action.FunctionCall.Args)
	if err != nil {
		return true, err
	}

	if c.entity == model.EntityRFP {
		return true, s.applyRFP(ctx, txn, c)
	}
	return true, s.applyProposal(ctx, txn, c)
}

func (s *Snapshotter) applyProposal(ctx context.Context, txn model.TxnRecord, c call) error {
	contract := contractOf(txn)
	blockHeight := txn.ReceiptBlock.BlockHeight + s.blockOffset

	proposal, err := s.reader.Proposal(ctx, contract, c.id, blockHeight)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if c.callback {
			s.logger.Warn("get_proposal failed, storing proposal from call args",
				zap.String("contract", contract),
				zap.Uint64("proposal_id", c.id),
				zap.Uint64("block_height", blockHeight),
				zap.Error(err),
			)
			proposal = *c.proposal
		} else {
			s.logger.Warn("get_proposal at block failed, reading final state",
				zap.String("contract", contract),
				zap.Uint64("proposal_id", c.id),
				zap.Uint64("block_height", blockHeight),
				zap.Error(err),
			)
			var finalErr error
			proposal, finalErr = s.reader.Proposal(ctx, contract, c.id, 0)
			if finalErr != nil {
				return errors.Join(err, finalErr)
			}
		}
	}

	snapshot, err := proposalSnapshot(txn, contract, proposal)
	if err != nil {
		return err
	}
	if err := s.store.SaveDevHubProposalSnapshot(ctx, snapshot); err != nil {
		return fmt.Errorf("save proposal %d snapshot: %w", snapshot.ProposalID, err)
	}
	s.logger.Debug("devhub proposal snapshot stored",
		zap.String("contract", contract),
		zap.Uint64("proposal_id", snapshot.ProposalID),
		zap.String("method", c.method),
		zap.String("date", sputnik.FormatDate(snapshot.Timestamp)),
	)
	return nil
}

// applyRFP reads edited RFPs at the pinned block only.
func (s *Snapshotter) applyRFP(ctx context.Context, txn model.TxnRecord, c call) error {
	contract := contractOf(txn)
	blockHeight := txn.ReceiptBlock.BlockHeight + s.blockOffset

	rfp, err := s.reader.RFP(ctx, contract, c.id, blockHeight)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if !c.callback {
			return err
		}
		s.logger.Warn("get_rfp failed, storing rfp from call args",
			zap.String("contract", contract),
			zap.Uint64("rfp_id", c.id),
			zap.Uint64("block_height", blockHeight),
			zap.Error(err),
		)
		rfp = *c.rfp
	}

	snapshot, err := rfpSnapshot(txn, contract, rfp)
	if err != nil {
		return err
	}
	if err := s.store.SaveRFPSnapshot(ctx, snapshot); err != nil {
		return fmt.Errorf("save rfp %d snapshot: %w", snapshot.RFPID, err)
	}
	s.logger.Debug("devhub rfp snapshot stored",
		zap.String("contract", contract),
		zap.Uint64("rfp_id", snapshot.RFPID),
		zap.String("method", c.method),
		zap.String("date", sputnik.FormatDate(snapshot.Timestamp)),
	)
	return nil
}

func proposalSnapshot(txn model.TxnRecord, contract string, p ContractProposal) (model.DevHubProposalSnapshot, error) {
	ts, err := txn.TimestampNanos()
	if err != nil {
		return model.DevHubProposalSnapshot{}, err
	}
	version := p.ProposalVersion
	if version == "" {
		version = "V0"
	}
	body := p.Snapshot
	return model.DevHubProposalSnapshot{
		Contract:                           contract,
		ProposalID:                         p.ID,
		AuthorID:                           p.AuthorID,
		BlockHeight:                        inclusionHeight(txn),
		Timestamp:                          ts,
		EditorID:                           body.EditorID,
		SocialDBPostBlockHeight:            uint64(p.SocialDBPostBlockHeight),
		Labels:                             rawOr(body.Labels, "[]"),
		ProposalVersion:                    version,
		ProposalBodyVersion:                body.BodyVersion,
		Name:                               body.Name,
		Category:                           body.Category,
		Summary:                            body.Summary,
		Description:                        body.Description,
		LinkedProposals:                    rawOr(body.LinkedProposals, "[]"),
		LinkedRFP:                          body.LinkedRFP,
		RequestedSponsorshipUSDAmount:      rawText(body.RequestedSponsorshipUSDAmount),
		RequestedSponsorshipPaidInCurrency: body.RequestedSponsorshipPaidInCurrency,
		RequestedSponsor:                   body.RequestedSponsor,
		ReceiverAccount:                    body.ReceiverAccount,
		Supervisor:                         body.Supervisor,
		Timeline:                           rawOr(body.Timeline, "null"),
	}, nil
}

func rfpSnapshot(txn model.TxnRecord, contract string, r ContractRFP) (model.RFPSnapshot, error) {
	ts, err := txn.TimestampNanos()
	if err != nil {
		return model.RFPSnapshot{}, err
	}
	version := r.RFPVersion
	if version == "" {
		version = "V0"
	}
	body := r.Snapshot
	return model.RFPSnapshot{
		Contract:                contract,
		RFPID:                   r.ID,
		AuthorID:                r.AuthorID,
		BlockHeight:             inclusionHeight(txn),
		Timestamp:               ts,
		EditorID:                body.EditorID,
		SocialDBPostBlockHeight: uint64(r.SocialDBPostBlockHeight),
		Labels:                  rawOr(body.Labels, "[]"),
		LinkedProposals:         rawOr(body.LinkedProposals, "[]"),
		RFPVersion:              version,
		RFPBodyVersion:          body.BodyVersion,
		Name:                    body.Name,
		Category:                body.Category,
		Summary:                 body.Summary,
		Description:             body.Description,
		Timeline:                rawOr(body.Timeline, "null"),
		SubmissionDeadline:      uint64(body.SubmissionDeadline),
	}, nil
}

// inclusionHeight is the block the transaction landed in, falling back to the
// receipt block for records without it.
func inclusionHeight(txn model.TxnRecord) uint64 {
	if txn.Block.BlockHeight != 0 {
		return txn.Block.BlockHeight
	}
	return txn.ReceiptBlock.BlockHeight
}

func contractOf(txn model.TxnRecord) string {
	if txn.Contract != "" {
		return txn.Contract
	}
	return txn.ReceiverAccountID
}
