package config

import (
	"github.com/spf13/pflag"
)

// DumpConfig holds configuration for the dump command.
type DumpConfig struct {
	Common
	In          string
	Account     string
	Receipt     string
	Live        bool
	OnMalformed string
	BaseURL     string
	APIKey      string
}

// LoadDump merges config file, environment variables, and flags into DumpConfig.
func LoadDump(cfgFile string, flags *pflag.FlagSet) (DumpConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"on-malformed": "fail",
	})
	if err != nil {
		return DumpConfig{}, err
	}
	if err := v.BindEnv("api-key", "INDEXER_API_KEY", "NEARBLOCKS_API_KEY"); err != nil {
		return DumpConfig{}, err
	}

	return DumpConfig{
		Common:      loadCommon(v),
		In:          v.GetString("in"),
		Account:     v.GetString("account"),
		Receipt:     v.GetString("receipt"),
		Live:        v.GetBool("live"),
		OnMalformed: v.GetString("on-malformed"),
		BaseURL:     v.GetString("base-url"),
		APIKey:      v.GetString("api-key"),
	}, nil
}
