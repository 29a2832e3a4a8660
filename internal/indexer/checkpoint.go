package indexer

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"sputnikScope/internal/model"
)

// CheckpointStore persists the feed position of each contract.
type CheckpointStore interface {
	LoadSyncState(ctx context.Context, contract string) (model.SyncState, bool, error)
	SaveSyncState(ctx context.Context, state model.SyncState) error
}

// FileCheckpointStore keeps sync states for all contracts in one JSON file.
type FileCheckpointStore struct {
	path    string
	enabled bool
	mu      sync.Mutex
}

func NewFileCheckpointStore(path string, enabled bool) *FileCheckpointStore {
	return &FileCheckpointStore{path: path, enabled: enabled}
}

func (c *FileCheckpointStore) LoadSyncState(_ context.Context, contract string) (model.SyncState, bool, error) {
	if !c.enabled {
		return model.SyncState{}, false, nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	states, err := c.readAll()
	if err != nil {
		return model.SyncState{}, false, err
	}
	state, ok := states[contract]
	return state, ok, nil
}

func (c *FileCheckpointStore) SaveSyncState(_ context.Context, state model.SyncState) error {
	if !c.enabled {
		return nil
	}
	if state.Contract == "" {
		return fmt.Errorf("checkpoint contract required")
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	states, err := c.readAll()
	if err != nil {
		return err
	}
	if state.UpdatedAt == "" {
		state.UpdatedAt = time.Now().UTC().Format(time.RFC3339Nano)
	}
	states[state.Contract] = state

	dir := filepath.Dir(c.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create checkpoint dir: %w", err)
		}
	}

	data, err := json.MarshalIndent(states, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}

	tmpPath := c.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write checkpoint tmp: %w", err)
	}
	if err := os.Rename(tmpPath, c.path); err != nil {
		return fmt.Errorf("rename checkpoint: %w", err)
	}

	return nil
}

func (c *FileCheckpointStore) readAll() (map[string]model.SyncState, error) {
	states := make(map[string]model.SyncState)

	stat, err := os.Stat(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return states, nil
		}
		return nil, fmt.Errorf("stat checkpoint: %w", err)
	}
	if stat.IsDir() {
		return nil, fmt.Errorf("checkpoint path is a directory")
	}

	data, err := os.ReadFile(c.path)
	if err != nil {
		return nil, fmt.Errorf("read checkpoint: %w", err)
	}
	if err := json.Unmarshal(data, &states); err != nil {
		return nil, fmt.Errorf("parse checkpoint: %w", err)
	}
	return states, nil
}
