package config

import (
	"time"

	"github.com/spf13/pflag"
)

// SnapshotConfig holds configuration for the snapshot command.
type SnapshotConfig struct {
	Common
	In         string
	RPCURL     string
	RPCAPIKey  string
	RedisAddr  string
	CacheTTL   time.Duration
	PGDSN      string
	RetryDelay time.Duration
	// DevHubBlockOffset is added to an edit receipt's block before reading
	// the edited DevHub entity.
	DevHubBlockOffset uint64
}

// LoadSnapshot merges config file, environment variables, and flags into SnapshotConfig.
func LoadSnapshot(cfgFile string, flags *pflag.FlagSet) (SnapshotConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"rpc":                 "https://rpc.mainnet.near.org",
		"cache-ttl":           24 * time.Hour,
		"retry-delay":         time.Second,
		"devhub-block-offset": 10,
	})
	if err != nil {
		return SnapshotConfig{}, err
	}

	cfg := SnapshotConfig{
		Common:     loadCommon(v),
		In:         v.GetString("in"),
		RPCURL:     v.GetString("rpc"),
		RPCAPIKey:  v.GetString("rpc-api-key"),
		RedisAddr:  v.GetString("redis-addr"),
		CacheTTL:   v.GetDuration("cache-ttl"),
		PGDSN:      v.GetString("pg-dsn"),
		RetryDelay: v.GetDuration("retry-delay"),

		DevHubBlockOffset: v.GetUint64("devhub-block-offset"),
	}

	return cfg, nil
}
