package aggregate

import "context"

// StateBackend is the named-progress part of the Postgres store.
type StateBackend interface {
	LoadState(ctx context.Context, name string) (uint64, bool, error)
	SaveState(ctx context.Context, name string, ts uint64) error
}

// DBStateStore stores progress in the indexer_state table, one row per
// contract named Name:contract.
type DBStateStore struct {
	Backend StateBackend
	Name    string
}

func (s *DBStateStore) Load(ctx context.Context, contract string) (uint64, bool, error) {
	if s == nil || s.Backend == nil {
		return 0, false, nil
	}
	return s.Backend.LoadState(ctx, s.key(contract))
}

func (s *DBStateStore) Save(ctx context.Context, contract string, ts uint64) error {
	if s == nil || s.Backend == nil {
		return nil
	}
	return s.Backend.SaveState(ctx, s.key(contract), ts)
}

func (s *DBStateStore) key(contract string) string {
	return s.Name + ":" + contract
}
