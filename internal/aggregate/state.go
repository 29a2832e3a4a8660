package aggregate

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// StateStore persists, per contract, the timestamp (ns) up to which events
// are folded into flushed windows.
type StateStore interface {
	Load(ctx context.Context, contract string) (uint64, bool, error)
	Save(ctx context.Context, contract string, ts uint64) error
}

// FileStateStore keeps aggregation progress in a local JSON file.
type FileStateStore struct {
	Path string
}

type stateFile struct {
	Contracts map[string]stateRecord `json:"contracts"`
	UpdatedAt string                 `json:"updated_at"`
}

type stateRecord struct {
	LastProcessed uint64 `json:"last_processed_ns"`
	LastDate      string `json:"last_processed_date"`
}

func (s *FileStateStore) Load(ctx context.Context, contract string) (uint64, bool, error) {
	if s == nil || s.Path == "" {
		return 0, false, nil
	}
	state, err := s.read()
	if err != nil {
		return 0, false, err
	}
	rec, ok := state.Contracts[contract]
	if !ok {
		return 0, false, nil
	}
	return rec.LastProcessed, true, nil
}

func (s *FileStateStore) Save(ctx context.Context, contract string, ts uint64) error {
	if s == nil || s.Path == "" {
		return nil
	}
	state, err := s.read()
	if err != nil {
		return err
	}
	state.Contracts[contract] = stateRecord{
		LastProcessed: ts,
		LastDate:      time.Unix(0, int64(ts)).UTC().Format(time.RFC3339Nano),
	}
	state.UpdatedAt = time.Now().UTC().Format(time.RFC3339Nano)

	dir := filepath.Dir(s.Path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create state dir: %w", err)
		}
	}
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	tmp := s.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write state tmp: %w", err)
	}
	if err := os.Rename(tmp, s.Path); err != nil {
		return fmt.Errorf("rename state: %w", err)
	}
	return nil
}

func (s *FileStateStore) read() (stateFile, error) {
	state := stateFile{Contracts: make(map[string]stateRecord)}
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return state, nil
		}
		return state, fmt.Errorf("read state: %w", err)
	}
	if err := json.Unmarshal(data, &state); err != nil {
		return state, fmt.Errorf("parse state: %w", err)
	}
	if state.Contracts == nil {
		state.Contracts = make(map[string]stateRecord)
	}
	return state, nil
}
