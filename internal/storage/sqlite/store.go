// Package sqlite keeps synced transactions and sync state in a local SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"sputnikScope/internal/model"
)

const writeTimeout = 10 * time.Second

type Store struct {
	db *sql.DB
}

func NewStore(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// one writer; the driver serializes access to the file anyway
	db.SetMaxOpenConns(1)
	if err := createSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create sqlite schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func createSchema(db *sql.DB) error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS transactions (
			id TEXT PRIMARY KEY,
			contract TEXT NOT NULL,
			transaction_hash TEXT NOT NULL,
			receipt_id TEXT NOT NULL,
			block_height INTEGER NOT NULL,
			block_timestamp TEXT NOT NULL,
			method TEXT,
			succeeded INTEGER NOT NULL,
			body TEXT NOT NULL,
			ingested_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS transactions_contract_block
			ON transactions (contract, block_height)`,
		`CREATE TABLE IF NOT EXISTS sync_state (
			contract TEXT PRIMARY KEY,
			cursor TEXT NOT NULL,
			after_block INTEGER NOT NULL,
			after_date INTEGER NOT NULL,
			updated_at TEXT NOT NULL
		)`,
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// PutTransactionBatch stores records, ignoring ids already present.
func (s *Store) PutTransactionBatch(records []model.TxnRecord) error {
	if len(records) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO transactions (
			id, contract, transaction_hash, receipt_id, block_height, block_timestamp,
			method, succeeded, body, ingested_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING`)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, record := range records {
		body, err := json.Marshal(record)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("marshal transaction %s: %w", record.ID, err)
		}
		var method sql.NullString
		if action, ok := record.FirstAction(); ok {
			if name, ok := action.Method(); ok {
				method = sql.NullString{String: name, Valid: true}
			}
		}
		succeeded := 0
		if record.Succeeded() {
			succeeded = 1
		}
		if _, err := stmt.ExecContext(ctx,
			record.ID,
			record.Contract,
			record.TransactionHash,
			record.ReceiptID,
			int64(record.ReceiptBlock.BlockHeight),
			record.BlockTimestamp,
			method,
			succeeded,
			string(body),
			record.IngestedAt,
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert transaction %s: %w", record.ID, err)
		}
	}

	return tx.Commit()
}

// ScanTransactions calls fn for every stored record in block order. An empty
// contract visits all contracts. A body that fails to decode is passed to fn
// as err with a zero record.
func (s *Store) ScanTransactions(ctx context.Context, contract string, fn func(model.TxnRecord, error) error) error {
	query := `SELECT id, body FROM transactions`
	var args []any
	if contract != "" {
		query += ` WHERE contract = ?`
		args = append(args, contract)
	}
	query += ` ORDER BY block_height ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var id, body string
		if err := rows.Scan(&id, &body); err != nil {
			return err
		}
		var record model.TxnRecord
		if err := json.Unmarshal([]byte(body), &record); err != nil {
			err = fmt.Errorf("decode stored transaction %s: %w", id, err)
			if err := fn(model.TxnRecord{}, err); err != nil {
				return err
			}
			continue
		}
		if err := fn(record, nil); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (s *Store) LoadSyncState(ctx context.Context, contract string) (model.SyncState, bool, error) {
	row := s.db.QueryRowContext(ctx, `SELECT contract, cursor, after_block, after_date, updated_at
		FROM sync_state WHERE contract = ?`, contract)

	var state model.SyncState
	var afterBlock, afterDate int64
	if err := row.Scan(&state.Contract, &state.Cursor, &afterBlock, &afterDate, &state.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.SyncState{}, false, nil
		}
		return model.SyncState{}, false, err
	}
	state.AfterBlock = uint64(afterBlock)
	state.AfterDate = uint64(afterDate)
	return state, true, nil
}

func (s *Store) SaveSyncState(ctx context.Context, state model.SyncState) error {
	if state.UpdatedAt == "" {
		state.UpdatedAt = time.Now().UTC().Format(time.RFC3339Nano)
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO sync_state (contract, cursor, after_block, after_date, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(contract) DO UPDATE SET
			cursor = excluded.cursor,
			after_block = excluded.after_block,
			after_date = excluded.after_date,
			updated_at = excluded.updated_at`,
		state.Contract, state.Cursor, int64(state.AfterBlock), int64(state.AfterDate), state.UpdatedAt)
	return err
}
