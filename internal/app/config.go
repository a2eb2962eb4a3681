package app

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"

	"cn-alpha/internal/model"
)

// Config holds the pipeline configuration from env.
type Config struct {
	UpdateData   bool   `envconfig:"UPDATE_DATA" default:"false"`
	UpdateMode   string `envconfig:"UPDATE_MODE" default:"incremental" validate:"oneof=full incremental"`
	StartDate    string `envconfig:"START_DATE" default:"2020-01-01" validate:"datetime=2006-01-02"`
	EndDate      string `envconfig:"END_DATE" validate:"omitempty,datetime=2006-01-02"`
	DataPath     string `envconfig:"DATA_PATH" default:"data/stocks.parquet" validate:"required"`
	CodesFile    string `envconfig:"CODES_FILE"`
	TopN         int    `envconfig:"TOP_N" default:"30" validate:"gt=0"`
	SaveResults  bool   `envconfig:"SAVE_RESULTS" default:"true"`
	ResultFormat string `envconfig:"RESULT_FORMAT" default:"csv" validate:"oneof=csv parquet json"`
	WeightsFile  string `envconfig:"WEIGHTS_FILE"`
	DedupPolicy  string `envconfig:"DEDUP_POLICY" default:"newest" validate:"oneof=newest highest_close"`
	FetchWorkers int    `envconfig:"FETCH_WORKERS" default:"4" validate:"gt=0"`
	LogLevel     string `envconfig:"LOG_LEVEL" default:"info"`
}

// LoadConfig reads and validates config from the environment.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("read env config: %w", err)
	}
	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// Start returns the configured backtest start date.
func (c *Config) Start() model.Date {
	return model.MustDate(c.StartDate) // validated on load
}

// End returns the configured end date, today (UTC) when unset.
func (c *Config) End() model.Date {
	if c.EndDate == "" {
		return model.DateOf(time.Now())
	}
	return model.MustDate(c.EndDate)
}

// ResultsDir is where artifacts land, next to the panel file.
func (c *Config) ResultsDir() string {
	return filepath.Dir(c.DataPath)
}

// ResultsPath is the backtest results parquet artifact.
func (c *Config) ResultsPath() string {
	return filepath.Join(c.ResultsDir(), "backtest_results.parquet")
}

// NavPath is the human-readable nav curve artifact for the given extension.
func (c *Config) NavPath(ext string) string {
	return filepath.Join(c.ResultsDir(), "nav_curve."+ext)
}

// SummaryPath is the JSON run summary artifact.
func (c *Config) SummaryPath() string {
	return filepath.Join(c.ResultsDir(), "backtest_summary.json")
}
