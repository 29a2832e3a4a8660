package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func runFlags() *pflag.FlagSet {
	flags := pflag.NewFlagSet("run", pflag.ContinueOnError)
	flags.StringSlice("contract", nil, "")
	flags.Uint64("from", 0, "")
	flags.Int("per-page", 25, "")
	flags.String("storage", "jsonl", "")
	flags.Duration("retry-backoff", 500*time.Millisecond, "")
	flags.String("log-level", "info", "")
	return flags
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.PerPage != 25 || cfg.Order != "asc" || cfg.RatePerMinute != 150 {
		t.Fatalf("unexpected paging defaults: %+v", cfg)
	}
	if cfg.Storage != "jsonl" || cfg.CheckpointStore != "file" || !cfg.CheckpointEnabled {
		t.Fatalf("unexpected storage defaults: %+v", cfg)
	}
	if cfg.RetryBackoff != 500*time.Millisecond || cfg.MaxRetries != 5 {
		t.Fatalf("unexpected retry defaults: %+v", cfg)
	}
	if cfg.LogLevel != "info" {
		t.Fatalf("unexpected log level: %s", cfg.LogLevel)
	}
}

func TestLoadFlagsOverrideEnv(t *testing.T) {
	t.Setenv("INDEXER_PER_PAGE", "50")
	t.Setenv("INDEXER_FROM", "100")

	flags := runFlags()
	if err := flags.Parse([]string{"--contract", "a.sputnik-dao.near, b.sputnik-dao.near", "--from", "135000000"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	cfg, err := Load("", flags)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want := []string{"a.sputnik-dao.near", "b.sputnik-dao.near"}
	if !reflect.DeepEqual(cfg.Contracts, want) {
		t.Fatalf("expected %v, got %v", want, cfg.Contracts)
	}
	if cfg.FromBlock != 135000000 {
		t.Fatalf("flag must win over env, got %d", cfg.FromBlock)
	}
	if cfg.PerPage != 50 {
		t.Fatalf("env must win over flag default, got %d", cfg.PerPage)
	}
}

func TestLoadEnvContractsAndAPIKey(t *testing.T) {
	t.Setenv("INDEXER_CONTRACT", "testing-astradao.sputnik-dao.near,,marketing.sputnik-dao.near")
	t.Setenv("NEARBLOCKS_API_KEY", "nb-key")
	t.Setenv("INDEXER_RETRY_BACKOFF", "2s")

	cfg, err := Load("", runFlags())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want := []string{"testing-astradao.sputnik-dao.near", "marketing.sputnik-dao.near"}
	if !reflect.DeepEqual(cfg.Contracts, want) {
		t.Fatalf("expected %v, got %v", want, cfg.Contracts)
	}
	if cfg.APIKey != "nb-key" {
		t.Fatalf("expected api key from NEARBLOCKS_API_KEY, got %q", cfg.APIKey)
	}
	if cfg.RetryBackoff != 2*time.Second {
		t.Fatalf("unexpected backoff: %s", cfg.RetryBackoff)
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "indexer.yaml")
	content := "contract:\n  - testing-astradao.sputnik-dao.near\nstorage: SQLite\nmax-pages: 3\nlog-level: debug\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path, nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !reflect.DeepEqual(cfg.Contracts, []string{"testing-astradao.sputnik-dao.near"}) {
		t.Fatalf("unexpected contracts: %v", cfg.Contracts)
	}
	if cfg.Storage != "sqlite" || cfg.MaxPages != 3 || cfg.LogLevel != "debug" {
		t.Fatalf("unexpected config: %+v", cfg)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), nil); err == nil {
		t.Fatalf("expected error for explicit missing config file")
	}
}

func TestLoadDecode(t *testing.T) {
	t.Setenv("INDEXER_KAFKA_BROKERS", "localhost:9092, localhost:9093")

	cfg, err := LoadDecode("", nil)
	if err != nil {
		t.Fatalf("load decode: %v", err)
	}
	if cfg.Out != "./data/dao_events.jsonl" || cfg.Errors != "./data/decode_errors.jsonl" {
		t.Fatalf("unexpected paths: %+v", cfg)
	}
	if !reflect.DeepEqual(cfg.KafkaBrokers, []string{"localhost:9092", "localhost:9093"}) {
		t.Fatalf("unexpected brokers: %v", cfg.KafkaBrokers)
	}
	if cfg.KafkaTopicPrefix != "sputnikscope-events" {
		t.Fatalf("unexpected prefix: %s", cfg.KafkaTopicPrefix)
	}
}

func TestLoadDumpAndSnapshotDefaults(t *testing.T) {
	dump, err := LoadDump("", nil)
	if err != nil {
		t.Fatalf("load dump: %v", err)
	}
	if dump.OnMalformed != "fail" || dump.Live {
		t.Fatalf("unexpected dump defaults: %+v", dump)
	}

	snapshot, err := LoadSnapshot("", nil)
	if err != nil {
		t.Fatalf("load snapshot: %v", err)
	}
	if snapshot.RPCURL != "https://rpc.mainnet.near.org" || snapshot.CacheTTL != 24*time.Hour || snapshot.RetryDelay != time.Second {
		t.Fatalf("unexpected snapshot defaults: %+v", snapshot)
	}
	if snapshot.DevHubBlockOffset != 10 {
		t.Fatalf("unexpected devhub block offset: %d", snapshot.DevHubBlockOffset)
	}
}

func TestParseTimestamp(t *testing.T) {
	cases := []struct {
		input string
		want  uint64
	}{
		{"", 0},
		{"1734344954", 1734344954 * uint64(time.Second)},
		{"2024-12-16T10:29:14Z", 1734344954 * uint64(time.Second)},
		{"2024-12-16", 1734307200 * uint64(time.Second)},
	}
	for _, tc := range cases {
		got, err := ParseTimestamp(tc.input)
		if err != nil {
			t.Fatalf("%q: %v", tc.input, err)
		}
		if got != tc.want {
			t.Fatalf("%q: expected %d, got %d", tc.input, tc.want, got)
		}
	}

	if _, err := ParseTimestamp("yesterday"); err == nil {
		t.Fatalf("expected error for invalid timestamp")
	}
}

func TestLoadDotEnv(t *testing.T) {
	const key = "INDEXER_DOTENV_PROBE"
	t.Setenv(key, "")
	os.Unsetenv(key)
	t.Setenv("INDEXER_DOTENV_KEEP", "process")

	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte(key+"=from-file\nINDEXER_DOTENV_KEEP=file\n"), 0o644); err != nil {
		t.Fatalf("write env: %v", err)
	}
	if err := LoadDotEnv(path); err != nil {
		t.Fatalf("load dotenv: %v", err)
	}
	if got := os.Getenv(key); got != "from-file" {
		t.Fatalf("expected value from .env, got %q", got)
	}
	if got := os.Getenv("INDEXER_DOTENV_KEEP"); got != "process" {
		t.Fatalf("existing variables must be kept, got %q", got)
	}

	if err := LoadDotEnv(filepath.Join(t.TempDir(), "absent.env")); err != nil {
		t.Fatalf("missing .env must be ignored: %v", err)
	}
}
