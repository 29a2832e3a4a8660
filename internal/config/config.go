package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Common holds settings shared by every command.
type Common struct {
	LogLevel     string
	OTLPEndpoint string
}

// Config holds configuration for the run command.
type Config struct {
	Common
	Contracts         []string
	FromBlock         uint64
	ToBlock           uint64
	BaseURL           string
	APIKey            string
	RatePerMinute     int
	PerPage           int
	Order             string
	MaxPages          int
	Storage           string
	Out               string
	SQLitePath        string
	CheckpointStore   string
	Checkpoint        string
	CheckpointEnabled bool
	PGDSN             string
	MaxRetries        int
	RetryBackoff      time.Duration
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"per-page":           25,
		"order":              "asc",
		"rate-per-minute":    150,
		"storage":            "jsonl",
		"out":                "./data/txns.jsonl",
		"sqlite-path":        "./data/sputnikscope.db",
		"checkpoint-store":   "file",
		"checkpoint":         "./data/checkpoint.json",
		"checkpoint-enabled": true,
		"max-retries":        5,
		"retry-backoff":      500 * time.Millisecond,
	})
	if err != nil {
		return Config{}, err
	}
	if err := v.BindEnv("api-key", "INDEXER_API_KEY", "NEARBLOCKS_API_KEY"); err != nil {
		return Config{}, fmt.Errorf("bind env: %w", err)
	}

	cfg := Config{
		Common:            loadCommon(v),
		Contracts:         getStringSlice(v, "contract"),
		FromBlock:         v.GetUint64("from"),
		ToBlock:           v.GetUint64("to"),
		BaseURL:           v.GetString("base-url"),
		APIKey:            v.GetString("api-key"),
		RatePerMinute:     v.GetInt("rate-per-minute"),
		PerPage:           v.GetInt("per-page"),
		Order:             v.GetString("order"),
		MaxPages:          v.GetInt("max-pages"),
		Storage:           strings.ToLower(v.GetString("storage")),
		Out:               v.GetString("out"),
		SQLitePath:        v.GetString("sqlite-path"),
		CheckpointStore:   strings.ToLower(v.GetString("checkpoint-store")),
		Checkpoint:        v.GetString("checkpoint"),
		CheckpointEnabled: v.GetBool("checkpoint-enabled"),
		PGDSN:             v.GetString("pg-dsn"),
		MaxRetries:        v.GetInt("max-retries"),
		RetryBackoff:      v.GetDuration("retry-backoff"),
	}

	return cfg, nil
}

func newViper(cfgFile string, flags *pflag.FlagSet, defaults map[string]interface{}) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix("INDEXER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("log-level", "info")
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}
	return v, nil
}

func loadCommon(v *viper.Viper) Common {
	return Common{
		LogLevel:     v.GetString("log-level"),
		OTLPEndpoint: v.GetString("otlp-endpoint"),
	}
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
