package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"sputnikScope/internal/model"
	"sputnikScope/internal/storage/sqlite"
)

// SQLiteScheme prefixes inputs that name a SQLite transaction store written
// by run --storage sqlite.
const SQLiteScheme = "sqlite://"

// RecordFunc receives one stored transaction and its position in the input.
// A record that cannot be decoded arrives as a non-nil err; the scan goes on
// unless fn returns an error.
type RecordFunc func(pos int, record model.TxnRecord, err error) error

// ScanTxnRecords visits the transaction records at in, either a JSONL file
// path or sqlite://path.
func ScanTxnRecords(ctx context.Context, in string, fn RecordFunc) error {
	if path, ok := strings.CutPrefix(in, SQLiteScheme); ok {
		return scanSQLite(ctx, path, fn)
	}

	file, err := os.Open(in)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer file.Close()

	return ScanJSONL(file, func(lineNo int, line []byte) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		var record model.TxnRecord
		if err := json.Unmarshal(line, &record); err != nil {
			return fn(lineNo, model.TxnRecord{}, fmt.Errorf("line %d: %w", lineNo, err))
		}
		return fn(lineNo, record, nil)
	})
}

func scanSQLite(ctx context.Context, path string, fn RecordFunc) error {
	// opening creates the file, so a typo must not yield an empty store
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("open sqlite input: %w", err)
	}
	store, err := sqlite.NewStore(path)
	if err != nil {
		return fmt.Errorf("open sqlite input: %w", err)
	}
	defer store.Close()

	pos := 0
	return store.ScanTransactions(ctx, "", func(record model.TxnRecord, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		pos++
		return fn(pos, record, err)
	})
}
