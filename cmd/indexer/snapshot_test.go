package main

import (
	"context"
	"errors"
	"testing"

	"sputnikScope/internal/model"
)

type stubApplier struct {
	ok    bool
	err   error
	calls int
}

func (s *stubApplier) Apply(ctx context.Context, txn model.TxnRecord) (bool, error) {
	s.calls++
	return s.ok, s.err
}

func TestApplyRecordRunsEveryApplier(t *testing.T) {
	dao := &stubApplier{}
	devhub := &stubApplier{ok: true}
	ok, err := applyRecord(context.Background(), []recordApplier{dao, devhub}, model.TxnRecord{})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !ok {
		t.Fatalf("expected record to count as applied")
	}
	if dao.calls != 1 || devhub.calls != 1 {
		t.Fatalf("unexpected calls: dao=%d devhub=%d", dao.calls, devhub.calls)
	}
}

func TestApplyRecordStopsOnError(t *testing.T) {
	failing := &stubApplier{err: errors.New("rpc down")}
	next := &stubApplier{ok: true}
	if _, err := applyRecord(context.Background(), []recordApplier{failing, next}, model.TxnRecord{}); err == nil {
		t.Fatalf("expected error")
	}
	if next.calls != 0 {
		t.Fatalf("applier after a failure should not run")
	}
}
