package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"sputnikScope/internal/config"
	"sputnikScope/internal/telemetry"
)

const serviceName = "sputnik-indexer"

func main() {
	root := &cobra.Command{
		Use:          "indexer",
		Short:        "Sputnik DAO indexer for the NearBlocks transaction feed",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			envFile, _ := cmd.Flags().GetString("env-file")
			return config.LoadDotEnv(envFile)
		},
	}

	root.PersistentFlags().String("config", "", "config file path")
	root.PersistentFlags().String("env-file", ".env", "dotenv file loaded before reading the environment")
	root.PersistentFlags().String("otlp-endpoint", "", "OTLP/HTTP trace endpoint, empty disables tracing")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Sync contract transactions from NearBlocks",
		RunE:  runIndexer,
	}

	runCmd.Flags().StringSlice("contract", nil, "DAO contract accounts (comma-separated)")
	runCmd.Flags().Uint64("from", 0, "first receipt block to keep (inclusive)")
	runCmd.Flags().Uint64("to", 0, "last receipt block to keep (inclusive), 0 means no limit")
	runCmd.Flags().String("base-url", "", "NearBlocks API base URL")
	runCmd.Flags().String("api-key", "", "NearBlocks API key")
	runCmd.Flags().Int("rate-per-minute", 150, "NearBlocks calls per minute")
	runCmd.Flags().Int("per-page", 25, "transactions per page")
	runCmd.Flags().String("order", "asc", "page order (asc, desc)")
	runCmd.Flags().Int("max-pages", 0, "stop after this many pages per contract, 0 means no limit")
	runCmd.Flags().String("storage", "jsonl", "transaction storage (jsonl, sqlite)")
	runCmd.Flags().String("out", "./data/txns.jsonl", "output JSONL path")
	runCmd.Flags().String("sqlite-path", "./data/sputnikscope.db", "SQLite database path")
	runCmd.Flags().String("checkpoint-store", "file", "checkpoint backend (file, sqlite, postgres)")
	runCmd.Flags().String("checkpoint", "./data/checkpoint.json", "checkpoint file path")
	runCmd.Flags().Bool("checkpoint-enabled", true, "enable checkpointing")
	runCmd.Flags().String("pg-dsn", "", "Postgres DSN for the postgres checkpoint backend")
	runCmd.Flags().Int("max-retries", 5, "maximum retry attempts")
	runCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	runCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(runCmd)

	dumpCmd := &cobra.Command{
		Use:   "dump",
		Short: "Print the first-action method of every transaction in a page",
		RunE:  runDump,
	}

	dumpCmd.Flags().String("in", "", "page JSON file, defaults to the embedded fixture")
	dumpCmd.Flags().String("account", "", "account to fetch with --live")
	dumpCmd.Flags().String("receipt", "", "receipt id to look up with --live instead of an account page")
	dumpCmd.Flags().Bool("live", false, "fetch one page from NearBlocks instead of reading a file")
	dumpCmd.Flags().String("on-malformed", "fail", "records without actions (fail, skip)")
	dumpCmd.Flags().String("base-url", "", "NearBlocks API base URL")
	dumpCmd.Flags().String("api-key", "", "NearBlocks API key")
	dumpCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(dumpCmd)

	decodeCmd := &cobra.Command{
		Use:   "decode",
		Short: "Decode synced transactions into DAO events",
		RunE:  runDecode,
	}

	decodeCmd.Flags().String("in", "", "input transactions, a JSONL path or sqlite://path")
	decodeCmd.Flags().String("out", "./data/dao_events.jsonl", "output DAO events JSONL")
	decodeCmd.Flags().String("errors", "./data/decode_errors.jsonl", "decode errors JSONL")
	decodeCmd.Flags().StringSlice("kafka-brokers", nil, "publish events to these Kafka brokers (comma-separated)")
	decodeCmd.Flags().String("kafka-topic-prefix", "sputnikscope-events", "Kafka topic prefix, the contract is appended")
	decodeCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(decodeCmd)

	aggregateCmd := &cobra.Command{
		Use:   "aggregate",
		Short: "Aggregate DAO events into window metrics",
		RunE:  runAggregate,
	}

	aggregateCmd.Flags().String("in", "", "input DAO events JSONL")
	aggregateCmd.Flags().String("window", "24h", "aggregation window (e.g. 1h, 24h)")
	aggregateCmd.Flags().String("pg-dsn", "", "Postgres DSN")
	aggregateCmd.Flags().Int("batch-size", 1000, "batch size for DB writes")
	aggregateCmd.Flags().String("state-file", "", "optional local state file for progress tracking")
	aggregateCmd.Flags().String("recompute-from", "", "recompute from timestamp (unix seconds, RFC3339 or YYYY-MM-DD)")
	aggregateCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(aggregateCmd)

	snapshotCmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Refresh DAO and DevHub snapshots from synced transactions",
		RunE:  runSnapshot,
	}

	snapshotCmd.Flags().String("in", "", "input transactions, a JSONL path or sqlite://path")
	snapshotCmd.Flags().String("rpc", "https://rpc.mainnet.near.org", "NEAR RPC URL")
	snapshotCmd.Flags().String("rpc-api-key", "", "NEAR RPC API key")
	snapshotCmd.Flags().String("redis-addr", "", "Redis address for view results, empty keeps them in memory")
	snapshotCmd.Flags().Duration("cache-ttl", 24*time.Hour, "Redis TTL for view results")
	snapshotCmd.Flags().String("pg-dsn", "", "Postgres DSN")
	snapshotCmd.Flags().Duration("retry-delay", time.Second, "delay before retrying a proposal lookup")
	snapshotCmd.Flags().Uint64("devhub-block-offset", 10, "blocks past a DevHub edit receipt at which the entity is read")
	snapshotCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(snapshotCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}

// startCommand builds the logger, the signal context and the tracer shared by
// every subcommand. The returned cleanup must run before exit.
func startCommand(common config.Common) (context.Context, *zap.Logger, func(), error) {
	logger, err := newLogger(common.LogLevel)
	if err != nil {
		return nil, nil, nil, err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	shutdownTracer, err := telemetry.InitTracer(ctx, serviceName, common.OTLPEndpoint)
	if err != nil {
		logger.Warn("tracing disabled", zap.Error(err))
	}

	cleanup := func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracer(flushCtx); err != nil {
			logger.Warn("shutdown tracer", zap.Error(err))
		}
		stop()
		_ = logger.Sync()
	}
	return ctx, logger, cleanup, nil
}

func redactDSN(dsn string) string {
	if dsn == "" {
		return dsn
	}
	return "***"
}
