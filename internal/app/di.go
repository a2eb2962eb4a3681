package app

import (
	"fmt"

	"cn-alpha/internal/ingest"
	"cn-alpha/internal/panel"
	"cn-alpha/internal/saver"
)

// ProvideConfig loads config from environment (for Wire).
func ProvideConfig() (*Config, error) {
	return LoadConfig()
}

// ProvideStore creates the panel store from config (for Wire).
func ProvideStore(cfg *Config) (*panel.Store, error) {
	policy, err := panel.ParseDedupPolicy(cfg.DedupPolicy)
	if err != nil {
		return nil, err
	}
	return panel.NewStore(cfg.DataPath, policy), nil
}

// ProvideProvider creates the data provider (for Wire). Caller must Close.
func ProvideProvider() *ingest.EastmoneyProvider {
	return ingest.NewEastmoneyProvider()
}

// ProvideNavSaver creates the nav curve saver from config (for Wire).
func ProvideNavSaver(cfg *Config) (saver.NavSaver, error) {
	s := saver.NewNavSaver(cfg.ResultFormat)
	if s == nil {
		return nil, fmt.Errorf("unsupported RESULT_FORMAT %q (use: csv, parquet, json)", cfg.ResultFormat)
	}
	return s, nil
}
