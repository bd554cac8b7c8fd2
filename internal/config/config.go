// Package config loads the application configuration: where billing data
// comes from, which store backend to use, and how the API, forecaster and
// artifact writers are wired. Scoring thresholds live in the policy file,
// not here.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Storage backends.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendDynamoDB = "dynamodb"
)

// Environment variables that override secrets so they never need to be
// written to the config file.
const (
	EnvPostgresDSN  = "CWD_POSTGRES_DSN"
	EnvMQTTPassword = "CWD_MQTT_PASSWORD"
)

// Config is the top-level application configuration.
type Config struct {
	AWS          AWSConfig          `yaml:"aws"`
	Storage      StorageConfig      `yaml:"storage"`
	CUR          CURConfig          `yaml:"cur"`
	CostExplorer CostExplorerConfig `yaml:"cost_explorer"`
	Pipeline     PipelineConfig     `yaml:"pipeline"`
	API          APIConfig          `yaml:"api"`
	Forecast     ForecastConfig     `yaml:"forecast"`
	Notify       NotifyConfig       `yaml:"notify"`
	Artifacts    ArtifactsConfig    `yaml:"artifacts"`
	Log          LogConfig          `yaml:"log"`
}

// AWSConfig selects the credentials profile and home region.
type AWSConfig struct {
	Profile string `yaml:"profile"`
	Region  string `yaml:"region"`
}

type StorageConfig struct {
	Backend              string `yaml:"backend"`
	RecommendationsTable string `yaml:"recommendations_table"`
	UsageTable           string `yaml:"usage_table"`
	PredictionsTable     string `yaml:"predictions_table"`
	SQLitePath           string `yaml:"sqlite_path"`
	// PostgresDSN is usually supplied through CWD_POSTGRES_DSN.
	PostgresDSN string `yaml:"postgres_dsn"`
}

// CURConfig locates Cost and Usage Report files in S3.
type CURConfig struct {
	Bucket        string `yaml:"bucket"`
	Prefix        string `yaml:"prefix"`
	Format        string `yaml:"format"`
	LookbackHours int    `yaml:"lookback_hours"`
	ProcessAll    bool   `yaml:"process_all"`
	Concurrency   int    `yaml:"concurrency"`
}

// CostExplorerConfig drives the bulk-query input source.
type CostExplorerConfig struct {
	Regions        []string `yaml:"regions"`
	DaysBack       int      `yaml:"days_back"`
	Services       []string `yaml:"services"`
	SkipEnrichment bool     `yaml:"skip_enrichment"`
}

type PipelineConfig struct {
	MinCost float64 `yaml:"min_cost"`
	// PrimaryRegion overrides the policy's primary_region when set.
	PrimaryRegion string `yaml:"primary_region"`
}

type APIConfig struct {
	Addr           string   `yaml:"addr"`
	RatePerSecond  float64  `yaml:"rate_per_second"`
	Burst          int      `yaml:"burst"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	Metrics        bool     `yaml:"metrics"`
}

// ForecastConfig locates the model result files and sets alerting.
type ForecastConfig struct {
	Bucket            string  `yaml:"bucket"`
	ProphetPrefix     string  `yaml:"prophet_prefix"`
	ARIMAPrefix       string  `yaml:"arima_prefix"`
	PredictionsPrefix string  `yaml:"predictions_prefix"`
	AlertThreshold    float64 `yaml:"alert_threshold"`
	TrendThreshold    float64 `yaml:"trend_threshold"`
}

type NotifyConfig struct {
	SNSTopicARN string     `yaml:"sns_topic_arn"`
	MQTT        MQTTConfig `yaml:"mqtt"`
}

type MQTTConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Broker   string `yaml:"broker"`
	Topic    string `yaml:"topic"`
	ClientID string `yaml:"client_id"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// ArtifactsConfig is where analytics reports and Terraform files go.
type ArtifactsConfig struct {
	Bucket          string `yaml:"bucket"`
	AnalyticsPrefix string `yaml:"analytics_prefix"`
	TerraformPrefix string `yaml:"terraform_prefix"`
	TrendDays       int    `yaml:"trend_days"`
	HistoryDays     int    `yaml:"history_days"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		AWS: AWSConfig{Region: "us-east-1"},
		Storage: StorageConfig{
			Backend:              BackendSQLite,
			RecommendationsTable: "cwd-waste-recommendations",
			UsageTable:           "cwd-cost-usage-data",
			PredictionsTable:     "cwd-daily-predictions",
			SQLitePath:           "cwd.db",
		},
		CUR: CURConfig{
			Format:        "auto",
			LookbackHours: 24,
			Concurrency:   4,
		},
		CostExplorer: CostExplorerConfig{
			Regions:  []string{"us-east-1"},
			DaysBack: 7,
		},
		Pipeline: PipelineConfig{MinCost: 0.01},
		API: APIConfig{
			Addr:           ":8080",
			RatePerSecond:  10,
			Burst:          20,
			AllowedOrigins: []string{"*"},
			Metrics:        true,
		},
		Forecast: ForecastConfig{
			ProphetPrefix:     "ml-results/prophet_results_",
			ARIMAPrefix:       "ml-results/arima_results_",
			PredictionsPrefix: "predictions/",
			TrendThreshold:    2.50,
		},
		Notify: NotifyConfig{
			MQTT: MQTTConfig{Topic: "cwd/alerts", ClientID: "cwd"},
		},
		Artifacts: ArtifactsConfig{
			AnalyticsPrefix: "analytics/",
			TerraformPrefix: "terraform-scripts/",
			TrendDays:       7,
			HistoryDays:     30,
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads path over the defaults. A missing file is not an error.
// Secrets from the environment override file values.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}
	cfg.applyEnv(os.Getenv)
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	if v := getenv(EnvPostgresDSN); v != "" {
		c.Storage.PostgresDSN = v
	}
	if v := getenv(EnvMQTTPassword); v != "" {
		c.Notify.MQTT.Password = v
	}
}

// Validate returns every problem found; an empty slice means the config
// is usable. Bucket names are only checked by the commands that need them.
func (c *Config) Validate() []error {
	var errs []error

	switch c.Storage.Backend {
	case BackendMemory:
	case BackendSQLite:
		if c.Storage.SQLitePath == "" {
			errs = append(errs, fmt.Errorf("storage.sqlite_path: required for the sqlite backend"))
		}
	case BackendPostgres:
		if c.Storage.PostgresDSN == "" {
			errs = append(errs, fmt.Errorf("storage.postgres_dsn: required for the postgres backend (or set %s)", EnvPostgresDSN))
		}
	case BackendDynamoDB:
		if c.Storage.RecommendationsTable == "" || c.Storage.UsageTable == "" || c.Storage.PredictionsTable == "" {
			errs = append(errs, fmt.Errorf("storage: all three table names are required for the dynamodb backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.backend: unknown value %q; valid values: memory, sqlite, postgres, dynamodb", c.Storage.Backend))
	}

	switch strings.ToLower(c.CUR.Format) {
	case "", "auto", "cur", "simplified", "simple":
	default:
		errs = append(errs, fmt.Errorf("cur.format: unknown value %q", c.CUR.Format))
	}
	if c.CUR.LookbackHours < 0 {
		errs = append(errs, fmt.Errorf("cur.lookback_hours: must be >= 0, got %d", c.CUR.LookbackHours))
	}
	if c.CUR.Concurrency < 0 {
		errs = append(errs, fmt.Errorf("cur.concurrency: must be >= 0, got %d", c.CUR.Concurrency))
	}

	if c.CostExplorer.DaysBack < 0 {
		errs = append(errs, fmt.Errorf("cost_explorer.days_back: must be >= 0, got %d", c.CostExplorer.DaysBack))
	}
	if c.Pipeline.MinCost < 0 {
		errs = append(errs, fmt.Errorf("pipeline.min_cost: must be >= 0, got %g", c.Pipeline.MinCost))
	}

	if c.API.RatePerSecond < 0 {
		errs = append(errs, fmt.Errorf("api.rate_per_second: must be >= 0, got %g", c.API.RatePerSecond))
	}
	if c.API.Burst < 0 {
		errs = append(errs, fmt.Errorf("api.burst: must be >= 0, got %d", c.API.Burst))
	}

	if c.Forecast.AlertThreshold < 0 {
		errs = append(errs, fmt.Errorf("forecast.alert_threshold: must be >= 0, got %g", c.Forecast.AlertThreshold))
	}
	if c.Forecast.TrendThreshold < 0 {
		errs = append(errs, fmt.Errorf("forecast.trend_threshold: must be >= 0, got %g", c.Forecast.TrendThreshold))
	}

	if c.Notify.MQTT.Enabled && (c.Notify.MQTT.Broker == "" || c.Notify.MQTT.Topic == "") {
		errs = append(errs, fmt.Errorf("notify.mqtt: broker and topic are required when enabled"))
	}
	if arn := c.Notify.SNSTopicARN; arn != "" && !strings.HasPrefix(arn, "arn:") {
		errs = append(errs, fmt.Errorf("notify.sns_topic_arn: %q is not an ARN", arn))
	}

	if c.Artifacts.TrendDays < 0 || c.Artifacts.HistoryDays < 0 {
		errs = append(errs, fmt.Errorf("artifacts: trend_days and history_days must be >= 0"))
	}

	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level: unknown value %q", c.Log.Level))
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format: unknown value %q; valid values: text, json", c.Log.Format))
	}

	return errs
}
