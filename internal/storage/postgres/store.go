package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"sputnikScope/internal/model"
)

//go:embed schema.sql
var schemaSQL string

const syncStatePrefix = "sync:"

const (
	upsertProposalSQL = `
		INSERT INTO dao_proposals (
			id, proposal_id, description, kind, proposer, status, submission_time,
			vote_counts, votes, total_votes, dao_instance, proposal_action,
			tx_timestamp, hash, block_height, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,now(),now())
		ON CONFLICT (id)
		DO UPDATE SET
			description = EXCLUDED.description,
			kind = EXCLUDED.kind,
			proposer = EXCLUDED.proposer,
			status = EXCLUDED.status,
			submission_time = EXCLUDED.submission_time,
			vote_counts = EXCLUDED.vote_counts,
			votes = EXCLUDED.votes,
			total_votes = EXCLUDED.total_votes,
			proposal_action = EXCLUDED.proposal_action,
			tx_timestamp = EXCLUDED.tx_timestamp,
			hash = EXCLUDED.hash,
			block_height = EXCLUDED.block_height,
			updated_at = now()
	`

	updateProposalStatusSQL = `UPDATE dao_proposals SET status = $2, updated_at = now() WHERE id = $1`

	upsertWindowMetricsSQL = `
		INSERT INTO dao_window_metrics (
			contract, window_size_seconds, window_start_ts, window_end_ts,
			tx_count, proposals_added, votes_approve, votes_reject, votes_remove,
			proposals_removed, finalized, deposit, fees, first_block, last_block,
			created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,now(),now())
		ON CONFLICT (contract, window_size_seconds, window_start_ts)
		DO UPDATE SET
			window_end_ts = EXCLUDED.window_end_ts,
			tx_count = EXCLUDED.tx_count,
			proposals_added = EXCLUDED.proposals_added,
			votes_approve = EXCLUDED.votes_approve,
			votes_reject = EXCLUDED.votes_reject,
			votes_remove = EXCLUDED.votes_remove,
			proposals_removed = EXCLUDED.proposals_removed,
			finalized = EXCLUDED.finalized,
			deposit = EXCLUDED.deposit,
			fees = EXCLUDED.fees,
			first_block = LEAST(dao_window_metrics.first_block, EXCLUDED.first_block),
			last_block = GREATEST(dao_window_metrics.last_block, EXCLUDED.last_block),
			updated_at = now()
	`

	loadStateSQL = `SELECT last_processed_ts FROM indexer_state WHERE name=$1`

	saveStateSQL = `
		INSERT INTO indexer_state (name, last_processed_ts, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE
		SET last_processed_ts = EXCLUDED.last_processed_ts, updated_at = now()
	`

	loadSyncStateSQL = `
		SELECT cursor, after_block, last_processed_ts, updated_at
		FROM indexer_state WHERE name=$1
	`

	saveSyncStateSQL = `
		INSERT INTO indexer_state (name, last_processed_ts, cursor, after_block, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (name) DO UPDATE
		SET last_processed_ts = EXCLUDED.last_processed_ts,
			cursor = EXCLUDED.cursor,
			after_block = EXCLUDED.after_block,
			updated_at = now()
	`

	upsertDevHubProposalSQL = `
		INSERT INTO devhub_proposals (contract, id, author_id, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (contract, id) DO UPDATE
		SET author_id = EXCLUDED.author_id, updated_at = now()
	`

	upsertDevHubProposalSnapshotSQL = `
		INSERT INTO devhub_proposal_snapshots (
			contract, proposal_id, ts, block_height, editor_id, social_db_post_block_height,
			labels, proposal_version, proposal_body_version, name, category, summary,
			description, linked_proposals, linked_rfp, requested_sponsorship_usd_amount,
			requested_sponsorship_paid_in_currency, requested_sponsor, receiver_account,
			supervisor, timeline
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21)
		ON CONFLICT (contract, proposal_id, ts)
		DO UPDATE SET
			block_height = EXCLUDED.block_height,
			editor_id = EXCLUDED.editor_id,
			social_db_post_block_height = EXCLUDED.social_db_post_block_height,
			labels = EXCLUDED.labels,
			proposal_version = EXCLUDED.proposal_version,
			proposal_body_version = EXCLUDED.proposal_body_version,
			name = EXCLUDED.name,
			category = EXCLUDED.category,
			summary = EXCLUDED.summary,
			description = EXCLUDED.description,
			linked_proposals = EXCLUDED.linked_proposals,
			linked_rfp = EXCLUDED.linked_rfp,
			requested_sponsorship_usd_amount = EXCLUDED.requested_sponsorship_usd_amount,
			requested_sponsorship_paid_in_currency = EXCLUDED.requested_sponsorship_paid_in_currency,
			requested_sponsor = EXCLUDED.requested_sponsor,
			receiver_account = EXCLUDED.receiver_account,
			supervisor = EXCLUDED.supervisor,
			timeline = EXCLUDED.timeline
	`

	upsertRFPSQL = `
		INSERT INTO devhub_rfps (contract, id, author_id, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (contract, id) DO UPDATE
		SET author_id = EXCLUDED.author_id, updated_at = now()
	`

	upsertRFPSnapshotSQL = `
		INSERT INTO devhub_rfp_snapshots (
			contract, rfp_id, ts, block_height, editor_id, social_db_post_block_height,
			labels, linked_proposals, rfp_version, rfp_body_version, name, category,
			summary, description, timeline, submission_deadline
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
		ON CONFLICT (contract, rfp_id, ts)
		DO UPDATE SET
			block_height = EXCLUDED.block_height,
			editor_id = EXCLUDED.editor_id,
			social_db_post_block_height = EXCLUDED.social_db_post_block_height,
			labels = EXCLUDED.labels,
			linked_proposals = EXCLUDED.linked_proposals,
			rfp_version = EXCLUDED.rfp_version,
			rfp_body_version = EXCLUDED.rfp_body_version,
			name = EXCLUDED.name,
			category = EXCLUDED.category,
			summary = EXCLUDED.summary,
			description = EXCLUDED.description,
			timeline = EXCLUDED.timeline,
			submission_deadline = EXCLUDED.submission_deadline
	`
)

// Store provides Postgres persistence for proposal snapshots, window metrics
// and sync progress.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Migrate creates the tables this store writes to.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// UpsertProposalSnapshots inserts or replaces proposal snapshots by id.
func (s *Store) UpsertProposalSnapshots(ctx context.Context, snapshots []model.ProposalSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, p := range snapshots {
		batch.Queue(upsertProposalSQL, proposalArgs(p)...)
	}
	return s.sendBatch(ctx, batch)
}

// UpdateProposalStatus sets the status of a stored snapshot. Unknown ids are
// left alone.
func (s *Store) UpdateProposalStatus(ctx context.Context, id string, status model.ProposalStatus) error {
	if !status.Valid() {
		return fmt.Errorf("invalid proposal status %q", status)
	}
	_, err := s.pool.Exec(ctx, updateProposalStatusSQL, id, string(status))
	return err
}

// UpsertDAOWindowMetrics inserts or updates window metrics.
func (s *Store) UpsertDAOWindowMetrics(ctx context.Context, metrics []model.DAOWindowMetrics) error {
	if len(metrics) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, m := range metrics {
		batch.Queue(upsertWindowMetricsSQL, windowMetricsArgs(m)...)
	}
	return s.sendBatch(ctx, batch)
}

// SaveDevHubProposalSnapshot records the proposal and its snapshot in one
// transaction.
func (s *Store) SaveDevHubProposalSnapshot(ctx context.Context, p model.DevHubProposalSnapshot) error {
	batch := &pgx.Batch{}
	batch.Queue(upsertDevHubProposalSQL, p.Contract, int64(p.ProposalID), p.AuthorID)
	batch.Queue(upsertDevHubProposalSnapshotSQL, devHubProposalSnapshotArgs(p)...)
	return s.sendTx(ctx, batch)
}

// SaveRFPSnapshot records the RFP and its snapshot in one transaction.
func (s *Store) SaveRFPSnapshot(ctx context.Context, r model.RFPSnapshot) error {
	batch := &pgx.Batch{}
	batch.Queue(upsertRFPSQL, r.Contract, int64(r.RFPID), r.AuthorID)
	batch.Queue(upsertRFPSnapshotSQL, rfpSnapshotArgs(r)...)
	return s.sendTx(ctx, batch)
}

// LoadState returns last_processed_ts for a name.
func (s *Store) LoadState(ctx context.Context, name string) (uint64, bool, error) {
	if name == "" {
		return 0, false, fmt.Errorf("state name required")
	}
	var ts int64
	row := s.pool.QueryRow(ctx, loadStateSQL, name)
	if err := row.Scan(&ts); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return uint64(ts), true, nil
}

// SaveState upserts last_processed_ts for a name.
func (s *Store) SaveState(ctx context.Context, name string, ts uint64) error {
	if name == "" {
		return fmt.Errorf("state name required")
	}
	_, err := s.pool.Exec(ctx, saveStateSQL, name, int64(ts))
	return err
}

// LoadSyncState reads the feed position of contract from indexer_state.
func (s *Store) LoadSyncState(ctx context.Context, contract string) (model.SyncState, bool, error) {
	var (
		cursor     string
		afterBlock int64
		afterDate  int64
		updatedAt  time.Time
	)
	row := s.pool.QueryRow(ctx, loadSyncStateSQL, syncStatePrefix+contract)
	if err := row.Scan(&cursor, &afterBlock, &afterDate, &updatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.SyncState{}, false, nil
		}
		return model.SyncState{}, false, err
	}
	return model.SyncState{
		Contract:   contract,
		Cursor:     cursor,
		AfterBlock: uint64(afterBlock),
		AfterDate:  uint64(afterDate),
		UpdatedAt:  updatedAt.UTC().Format(time.RFC3339Nano),
	}, true, nil
}

// SaveSyncState upserts the feed position of a contract.
func (s *Store) SaveSyncState(ctx context.Context, state model.SyncState) error {
	if state.Contract == "" {
		return fmt.Errorf("sync state contract required")
	}
	_, err := s.pool.Exec(ctx, saveSyncStateSQL, syncStatePrefix+state.Contract, int64(state.AfterDate), state.Cursor, int64(state.AfterBlock))
	return err
}

func (s *Store) sendBatch(ctx context.Context, batch *pgx.Batch) error {
	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) sendTx(ctx context.Context, batch *pgx.Batch) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	br := tx.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return err
		}
	}
	if err := br.Close(); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func proposalArgs(p model.ProposalSnapshot) []any {
	return []any{
		p.ID,
		int64(p.ProposalID),
		p.Description,
		jsonText(p.Kind),
		p.Proposer,
		string(p.Status),
		int64(p.SubmissionTime),
		jsonText(p.VoteCounts),
		jsonText(p.Votes),
		p.TotalVotes,
		p.DAOInstance,
		p.ProposalAction,
		int64(p.TxTimestamp),
		p.Hash,
		int64(p.BlockHeight),
	}
}

func windowMetricsArgs(m model.DAOWindowMetrics) []any {
	return []any{
		m.Contract,
		m.WindowSizeSecs,
		m.WindowStart,
		m.WindowEnd,
		int64(m.TxCount),
		int64(m.ProposalsAdded),
		int64(m.VotesApprove),
		int64(m.VotesReject),
		int64(m.VotesRemove),
		int64(m.ProposalsRemoved),
		int64(m.Finalized),
		m.Deposit,
		m.Fees,
		int64(m.FirstBlock),
		int64(m.LastBlock),
	}
}

func devHubProposalSnapshotArgs(p model.DevHubProposalSnapshot) []any {
	var linkedRFP *int64
	if p.LinkedRFP != nil {
		v := int64(*p.LinkedRFP)
		linkedRFP = &v
	}
	return []any{
		p.Contract,
		int64(p.ProposalID),
		int64(p.Timestamp),
		int64(p.BlockHeight),
		p.EditorID,
		int64(p.SocialDBPostBlockHeight),
		jsonText(p.Labels),
		p.ProposalVersion,
		p.ProposalBodyVersion,
		p.Name,
		p.Category,
		p.Summary,
		p.Description,
		jsonText(p.LinkedProposals),
		linkedRFP,
		p.RequestedSponsorshipUSDAmount,
		p.RequestedSponsorshipPaidInCurrency,
		p.RequestedSponsor,
		p.ReceiverAccount,
		p.Supervisor,
		jsonText(p.Timeline),
	}
}

func rfpSnapshotArgs(r model.RFPSnapshot) []any {
	return []any{
		r.Contract,
		int64(r.RFPID),
		int64(r.Timestamp),
		int64(r.BlockHeight),
		r.EditorID,
		int64(r.SocialDBPostBlockHeight),
		jsonText(r.Labels),
		jsonText(r.LinkedProposals),
		r.RFPVersion,
		r.RFPBodyVersion,
		r.Name,
		r.Category,
		r.Summary,
		r.Description,
		jsonText(r.Timeline),
		int64(r.SubmissionDeadline),
	}
}

func jsonText(raw []byte) *string {
	if len(raw) == 0 {
		return nil
	}
	text := string(raw)
	return &text
}
