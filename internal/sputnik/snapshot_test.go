package sputnik

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"sputnikScope/internal/fixture"
	"sputnikScope/internal/model"
)

type fakeReader struct {
	lastIDs    []uint64
	lastIDErrs []error
	lastCalls  int
	proposals  map[uint64]ProposalOutput
	heights    []uint64
}

func (r *fakeReader) LastProposalID(ctx context.Context, contract string, blockHeight uint64) (uint64, error) {
	i := r.lastCalls
	r.lastCalls++
	r.heights = append(r.heights, blockHeight)
	if i < len(r.lastIDErrs) && r.lastIDErrs[i] != nil {
		return 0, r.lastIDErrs[i]
	}
	return r.lastIDs[i], nil
}

func (r *fakeReader) Proposal(ctx context.Context, contract string, id, blockHeight uint64) (ProposalOutput, error) {
	r.heights = append(r.heights, blockHeight)
	proposal, ok := r.proposals[id]
	if !ok {
		return ProposalOutput{}, errors.New("ERR_NO_PROPOSAL")
	}
	return proposal, nil
}

type fakeSnapshotStore struct {
	snapshots map[string]model.ProposalSnapshot
	statuses  map[string]model.ProposalStatus
}

func newFakeSnapshotStore() *fakeSnapshotStore {
	return &fakeSnapshotStore{
		snapshots: map[string]model.ProposalSnapshot{},
		statuses:  map[string]model.ProposalStatus{},
	}
}

func (s *fakeSnapshotStore) UpsertProposalSnapshots(ctx context.Context, snapshots []model.ProposalSnapshot) error {
	for _, snapshot := range snapshots {
		s.snapshots[snapshot.ID] = snapshot
	}
	return nil
}

func (s *fakeSnapshotStore) UpdateProposalStatus(ctx context.Context, id string, status model.ProposalStatus) error {
	s.statuses[id] = status
	return nil
}

func TestSnapshotterAddProposal(t *testing.T) {
	reader := &fakeReader{
		lastIDs: []uint64{131},
		proposals: map[uint64]ProposalOutput{
			130: {
				ID:             130,
				Proposer:       "megha19.near",
				Description:    "* Proposal Action: stake <br>* Notes: test",
				Kind:           json.RawMessage(`"ChangePolicy"`),
				Status:         model.StatusInProgress,
				VoteCounts:     json.RawMessage(`{"council":[1,0,0]}`),
				Votes:          map[string]json.RawMessage{"megha19.near": json.RawMessage(`"Approve"`)},
				SubmissionTime: 1734344954790034570,
			},
		},
	}
	store := newFakeSnapshotStore()
	snapshotter := NewSnapshotter(reader, store, SnapshotConfig{}, nil)

	applied, err := snapshotter.Apply(context.Background(), fixtureRecord(t, 0))
	if err != nil || !applied {
		t.Fatalf("apply: applied=%v err=%v", applied, err)
	}

	snapshot, ok := store.snapshots["130_"+fixture.Account]
	if !ok {
		t.Fatalf("snapshot not stored: %v", store.snapshots)
	}
	if snapshot.ProposalID != 130 || snapshot.Status != model.StatusInProgress || snapshot.TotalVotes != 1 {
		t.Fatalf("unexpected snapshot: %+v", snapshot)
	}
	if snapshot.ProposalAction != "stake" || snapshot.DAOInstance != fixture.Account {
		t.Fatalf("unexpected snapshot fields: %+v", snapshot)
	}
	if snapshot.TxTimestamp != 1734344954790034570 || snapshot.BlockHeight != 135106178 {
		t.Fatalf("unexpected timestamps: %+v", snapshot)
	}
	for _, height := range reader.heights {
		if height != 135106178 {
			t.Fatalf("view calls must be pinned to the receipt block, got %d", height)
		}
	}
}

func TestSnapshotterAddProposalFallsBackToArgs(t *testing.T) {
	reader := &fakeReader{
		lastIDs:    []uint64{0, 131},
		lastIDErrs: []error{errors.New("timeout")},
	}
	store := newFakeSnapshotStore()
	snapshotter := NewSnapshotter(reader, store, SnapshotConfig{RetryDelay: 1}, nil)

	if _, err := snapshotter.Apply(context.Background(), fixtureRecord(t, 0)); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if reader.lastCalls != 2 {
		t.Fatalf("expected one retry, got %d calls", reader.lastCalls)
	}

	snapshot := store.snapshots["130_"+fixture.Account]
	if snapshot.Status != model.StatusRemoved {
		t.Fatalf("expected Removed status, got %s", snapshot.Status)
	}
	if snapshot.Description != "Update Policy" || snapshot.Proposer != "megha19.near" || snapshot.TotalVotes != 0 {
		t.Fatalf("unexpected fallback snapshot: %+v", snapshot)
	}
	if KindName(snapshot.Kind) != "ChangePolicy" {
		t.Fatalf("unexpected kind: %s", snapshot.Kind)
	}
	if string(snapshot.Votes) != "{}" || string(snapshot.VoteCounts) != "{}" {
		t.Fatalf("unexpected votes: %s %s", snapshot.Votes, snapshot.VoteCounts)
	}
}

func TestSnapshotterAddProposalCancelledStoresNothing(t *testing.T) {
	reader := &fakeReader{lastIDs: []uint64{131}}
	store := newFakeSnapshotStore()
	snapshotter := NewSnapshotter(reader, store, SnapshotConfig{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := snapshotter.Apply(ctx, fixtureRecord(t, 0)); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(store.snapshots) != 0 || len(store.statuses) != 0 {
		t.Fatalf("cancelled apply must not store anything: %v %v", store.snapshots, store.statuses)
	}
}

func TestSnapshotterActProposalRemoved(t *testing.T) {
	// record 42 is a VoteRemove on proposal 114
	store := newFakeSnapshotStore()
	snapshotter := NewSnapshotter(&fakeReader{}, store, SnapshotConfig{}, nil)

	applied, err := snapshotter.Apply(context.Background(), fixtureRecord(t, 42))
	if err != nil || !applied {
		t.Fatalf("apply: applied=%v err=%v", applied, err)
	}
	if store.statuses["114_"+fixture.Account] != model.StatusRemoved {
		t.Fatalf("expected Removed status, got %v", store.statuses)
	}
	if len(store.snapshots) != 0 {
		t.Fatalf("no snapshot should be written: %v", store.snapshots)
	}
}

func TestSnapshotterActProposalMissing(t *testing.T) {
	// record 2 is a VoteReject, which does not delete the proposal
	snapshotter := NewSnapshotter(&fakeReader{}, newFakeSnapshotStore(), SnapshotConfig{}, nil)
	if _, err := snapshotter.Apply(context.Background(), fixtureRecord(t, 2)); err == nil {
		t.Fatalf("expected error for missing proposal")
	}
}

func TestSnapshotterIgnoresOtherRecords(t *testing.T) {
	store := newFakeSnapshotStore()
	snapshotter := NewSnapshotter(&fakeReader{}, store, SnapshotConfig{}, nil)

	for _, index := range []int{1, 4, 16, 17} {
		applied, err := snapshotter.Apply(context.Background(), fixtureRecord(t, index))
		if err != nil || applied {
			t.Fatalf("record %d: applied=%v err=%v", index, applied, err)
		}
	}
}

func TestU64AcceptsQuotedBareAndNull(t *testing.T) {
	var out struct {
		Quoted U64 `json:"quoted"`
		Bare   U64 `json:"bare"`
		Null   U64 `json:"null"`
	}
	if err := json.Unmarshal([]byte(`{"quoted":"1734344954000000000","bare":42,"null":null}`), &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.Quoted != 1734344954000000000 || out.Bare != 42 || out.Null != 0 {
		t.Fatalf("unexpected values: %+v", out)
	}
	var bad U64
	if err := json.Unmarshal([]byte(`"12x"`), &bad); err == nil {
		t.Fatalf("expected parse error")
	}
}
