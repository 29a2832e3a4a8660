package config

import (
	"github.com/spf13/pflag"
)

// DecodeConfig holds configuration for the decode command.
type DecodeConfig struct {
	Common
	In               string
	Out              string
	Errors           string
	KafkaBrokers     []string
	KafkaTopicPrefix string
}

// LoadDecode merges config file, environment variables, and flags into DecodeConfig.
func LoadDecode(cfgFile string, flags *pflag.FlagSet) (DecodeConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"out":                "./data/dao_events.jsonl",
		"errors":             "./data/decode_errors.jsonl",
		"kafka-topic-prefix": "sputnikscope-events",
	})
	if err != nil {
		return DecodeConfig{}, err
	}

	cfg := DecodeConfig{
		Common:           loadCommon(v),
		In:               v.GetString("in"),
		Out:              v.GetString("out"),
		Errors:           v.GetString("errors"),
		KafkaBrokers:     getStringSlice(v, "kafka-brokers"),
		KafkaTopicPrefix: v.GetString("kafka-topic-prefix"),
	}

	return cfg, nil
}
