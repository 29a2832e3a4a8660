package postgres

import (
	"context"
	"encoding/json"
	"os"
	"regexp"
	"strconv"
	"strings"
	"testing"
	"time"

	"sputnikScope/internal/model"
)

var (
	placeholderRe = regexp.MustCompile(`\$(\d+)`)
	insertRe      = regexp.MustCompile(`(?s)INSERT INTO \w+\s*\(([^)]*)\)\s*VALUES(.*?)(ON CONFLICT|$)`)
)

func strPtr(s string) *string { return &s }

func sampleDevHubProposal() model.DevHubProposalSnapshot {
	rfp := uint64(3)
	return model.DevHubProposalSnapshot{
		Contract:                      "devhub.near",
		ProposalID:                    7,
		AuthorID:                      "author.near",
		BlockHeight:                   120000000,
		Timestamp:                     1734344954000000000,
		EditorID:                      "author.near",
		SocialDBPostBlockHeight:       119999990,
		Labels:                        json.RawMessage(`["Marketing"]`),
		ProposalVersion:               "V0",
		ProposalBodyVersion:           "V2",
		Name:                          strPtr("Grant"),
		LinkedProposals:               json.RawMessage(`[1,2]`),
		LinkedRFP:                     &rfp,
		RequestedSponsorshipUSDAmount: strPtr("5000"),
		Timeline:                      json.RawMessage(`{"status":"DRAFT"}`),
	}
}

func sampleRFP() model.RFPSnapshot {
	return model.RFPSnapshot{
		Contract:           "devhub.near",
		RFPID:              2,
		AuthorID:           "moderator.near",
		BlockHeight:        120000001,
		Timestamp:          1734344955000000000,
		EditorID:           "moderator.near",
		Labels:             json.RawMessage(`[]`),
		LinkedProposals:    json.RawMessage(`[7]`),
		RFPVersion:         "V0",
		RFPBodyVersion:     "V0",
		Name:               strPtr("Indexer"),
		Timeline:           json.RawMessage(`{"status":"ACCEPTING_SUBMISSIONS"}`),
		SubmissionDeadline: 1735000000000000000,
	}
}

func TestStatementsMatchArgs(t *testing.T) {
	cases := []struct {
		name string
		sql  string
		args int
	}{
		{"upsert proposal", upsertProposalSQL, len(proposalArgs(model.ProposalSnapshot{}))},
		{"update status", updateProposalStatusSQL, 2},
		{"upsert window", upsertWindowMetricsSQL, len(windowMetricsArgs(model.DAOWindowMetrics{}))},
		{"load state", loadStateSQL, 1},
		{"save state", saveStateSQL, 2},
		{"load sync state", loadSyncStateSQL, 1},
		{"save sync state", saveSyncStateSQL, 4},
		{"upsert devhub proposal", upsertDevHubProposalSQL, 3},
		{"upsert devhub snapshot", upsertDevHubProposalSnapshotSQL, len(devHubProposalSnapshotArgs(sampleDevHubProposal()))},
		{"upsert rfp", upsertRFPSQL, 3},
		{"upsert rfp snapshot", upsertRFPSnapshotSQL, len(rfpSnapshotArgs(sampleRFP()))},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			highest := 0
			for _, m := range placeholderRe.FindAllStringSubmatch(tc.sql, -1) {
				n, _ := strconv.Atoi(m[1])
				if n > highest {
					highest = n
				}
			}
			if highest != tc.args {
				t.Fatalf("statement uses $%d but %d args are bound", highest, tc.args)
			}

			insert := insertRe.FindStringSubmatch(tc.sql)
			if insert == nil {
				return
			}
			columns := len(strings.Split(insert[1], ","))
			values := len(placeholderRe.FindAllString(insert[2], -1)) + strings.Count(insert[2], "now()")
			if columns != values {
				t.Fatalf("%d columns but %d values", columns, values)
			}
		})
	}
}

func TestDevHubArgsKeepNulls(t *testing.T) {
	args := devHubProposalSnapshotArgs(model.DevHubProposalSnapshot{Contract: "devhub.near"})
	if linked, ok := args[14].(*int64); !ok || linked != nil {
		t.Fatalf("expected nil linked_rfp, got %#v", args[14])
	}
	if labels, ok := args[6].(*string); !ok || labels != nil {
		t.Fatalf("expected nil labels, got %#v", args[6])
	}

	args = devHubProposalSnapshotArgs(sampleDevHubProposal())
	if linked := args[14].(*int64); *linked != 3 {
		t.Fatalf("unexpected linked_rfp: %d", *linked)
	}
	if ts := args[2].(int64); ts != 1734344954000000000 {
		t.Fatalf("unexpected ts: %d", ts)
	}
}

func TestJSONText(t *testing.T) {
	if jsonText(nil) != nil || jsonText([]byte{}) != nil {
		t.Fatalf("empty json must map to NULL")
	}
	if got := jsonText([]byte(`{"a":1}`)); got == nil || *got != `{"a":1}` {
		t.Fatalf("unexpected json text: %v", got)
	}
}

// TestStoreAgainstPostgres runs every statement against a live database named
// by INDEXER_TEST_PG_DSN.
func TestStoreAgainstPostgres(t *testing.T) {
	dsn := os.Getenv("INDEXER_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("INDEXER_TEST_PG_DSN not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, err := NewStore(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer store.Close()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("migrate twice: %v", err)
	}

	suffix := strconv.FormatInt(time.Now().UnixNano(), 10)
	dao := "test-" + suffix + ".sputnik-dao.near"

	snapshot := model.ProposalSnapshot{
		ID: model.SnapshotID(1, dao), ProposalID: 1, Description: "d", Kind: json.RawMessage(`"Vote"`),
		Proposer: "p.near", Status: model.StatusInProgress, VoteCounts: json.RawMessage(`{}`),
		Votes: json.RawMessage(`{}`), DAOInstance: dao, TxTimestamp: 1, BlockHeight: 1,
	}
	if err := store.UpsertProposalSnapshots(ctx, []model.ProposalSnapshot{snapshot, snapshot}); err != nil {
		t.Fatalf("upsert proposal: %v", err)
	}
	if err := store.UpdateProposalStatus(ctx, snapshot.ID, model.StatusRemoved); err != nil {
		t.Fatalf("update status: %v", err)
	}
	var status string
	if err := store.pool.QueryRow(ctx, `SELECT status FROM dao_proposals WHERE id=$1`, snapshot.ID).Scan(&status); err != nil || status != "Removed" {
		t.Fatalf("unexpected status %q: %v", status, err)
	}

	start := time.Unix(1734307200, 0).UTC()
	window := model.DAOWindowMetrics{
		Contract: dao, WindowSizeSecs: 3600, WindowStart: start, WindowEnd: start.Add(time.Hour),
		TxCount: 2, Deposit: "0.5", Fees: "0.001", FirstBlock: 200, LastBlock: 210,
	}
	earlier := window
	earlier.FirstBlock = 150
	if err := store.UpsertDAOWindowMetrics(ctx, []model.DAOWindowMetrics{window}); err != nil {
		t.Fatalf("upsert window: %v", err)
	}
	if err := store.UpsertDAOWindowMetrics(ctx, []model.DAOWindowMetrics{earlier}); err != nil {
		t.Fatalf("upsert window again: %v", err)
	}
	var firstBlock int64
	if err := store.pool.QueryRow(ctx, `SELECT first_block FROM dao_window_metrics WHERE contract=$1`, dao).Scan(&firstBlock); err != nil || firstBlock != 150 {
		t.Fatalf("unexpected first_block %d: %v", firstBlock, err)
	}

	devhub := sampleDevHubProposal()
	devhub.Contract = "devhub-" + suffix + ".near"
	for i := 0; i < 2; i++ {
		if err := store.SaveDevHubProposalSnapshot(ctx, devhub); err != nil {
			t.Fatalf("save devhub proposal: %v", err)
		}
	}
	rfp := sampleRFP()
	rfp.Contract = devhub.Contract
	if err := store.SaveRFPSnapshot(ctx, rfp); err != nil {
		t.Fatalf("save rfp: %v", err)
	}
	var snapshots int
	if err := store.pool.QueryRow(ctx, `SELECT count(*) FROM devhub_proposal_snapshots WHERE contract=$1`, devhub.Contract).Scan(&snapshots); err != nil || snapshots != 1 {
		t.Fatalf("expected one proposal snapshot, got %d: %v", snapshots, err)
	}

	name := "aggregator:3600:" + dao
	if err := store.SaveState(ctx, name, 42); err != nil {
		t.Fatalf("save state: %v", err)
	}
	if ts, ok, err := store.LoadState(ctx, name); err != nil || !ok || ts != 42 {
		t.Fatalf("unexpected state: %d %v %v", ts, ok, err)
	}

	sync := model.SyncState{Contract: dao, Cursor: "c1", AfterBlock: 99, AfterDate: 7}
	if err := store.SaveSyncState(ctx, sync); err != nil {
		t.Fatalf("save sync state: %v", err)
	}
	got, ok, err := store.LoadSyncState(ctx, dao)
	if err != nil || !ok || got.Cursor != "c1" || got.AfterBlock != 99 || got.AfterDate != 7 {
		t.Fatalf("unexpected sync state: %+v %v %v", got, ok, err)
	}
}
