package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all runtime settings. Values come from (highest precedence
// first) bound CLI flags, GREENROOM_* environment variables, and the
// optional YAML config file.
type Config struct {
	DatabaseURL string
	APIPort     int
	Debug       bool
	LocalMode   bool

	// Job queue tuning
	PollInterval   time.Duration
	ClaimBatchSize int
	SearchWorkers  int
	GenericWorkers int
	JobTimeout     time.Duration

	// Batch fan-out tuning
	BatchMaxItems    int
	BatchConcurrency int

	// Artifact storage
	NATSURL        string
	ArtifactBucket string
	ArtifactDir    string

	// AI provider for idea briefs
	AIProvider string
	AIModel    string
	AIAPIKey   string
	AIBaseURL  string

	// External research/media services
	SearchAPIURL      string
	SearchAPIKey      string
	TranscriptAPIURL  string
	TranscriptAPIKey  string
	ImageAPIURL       string
	ImageAPIKey       string

	// Observability
	TelemetryEnabled bool
	OTELEndpoint     string
}

// SetDefaults registers every config default with viper. Called once from
// the CLI before Load so `config show` and Load agree on values.
func SetDefaults() {
	viper.SetDefault("database_url", "greenroom.db")
	viper.SetDefault("api_port", 8585)
	viper.SetDefault("debug", false)
	viper.SetDefault("local_mode", true)

	viper.SetDefault("poll_interval", "5s")
	viper.SetDefault("claim_batch_size", 10)
	viper.SetDefault("search_workers", 2)
	viper.SetDefault("generic_workers", 2)
	viper.SetDefault("job_timeout", "10m")

	viper.SetDefault("batch_max_items", 10)
	viper.SetDefault("batch_concurrency", 3)

	viper.SetDefault("nats_url", "")
	viper.SetDefault("artifact_bucket", "greenroom-artifacts")
	viper.SetDefault("artifact_dir", "")

	viper.SetDefault("ai_provider", "openai")
	viper.SetDefault("ai_model", "gpt-4o-mini")

	viper.SetDefault("search_api_url", "")
	viper.SetDefault("transcript_api_url", "")
	viper.SetDefault("image_api_url", "")

	viper.SetDefault("telemetry_enabled", false)
	viper.SetDefault("otel_endpoint", "")
}

// Load builds a Config from viper and validates required keys.
func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL: viper.GetString("database_url"),
		APIPort:     viper.GetInt("api_port"),
		Debug:       viper.GetBool("debug"),
		LocalMode:   viper.GetBool("local_mode"),

		PollInterval:   viper.GetDuration("poll_interval"),
		ClaimBatchSize: viper.GetInt("claim_batch_size"),
		SearchWorkers:  viper.GetInt("search_workers"),
		GenericWorkers: viper.GetInt("generic_workers"),
		JobTimeout:     viper.GetDuration("job_timeout"),

		BatchMaxItems:    viper.GetInt("batch_max_items"),
		BatchConcurrency: viper.GetInt("batch_concurrency"),

		NATSURL:        viper.GetString("nats_url"),
		ArtifactBucket: viper.GetString("artifact_bucket"),
		ArtifactDir:    viper.GetString("artifact_dir"),

		AIProvider: viper.GetString("ai_provider"),
		AIModel:    viper.GetString("ai_model"),
		AIAPIKey:   viper.GetString("ai_api_key"),
		AIBaseURL:  viper.GetString("ai_base_url"),

		SearchAPIURL:     viper.GetString("search_api_url"),
		SearchAPIKey:     viper.GetString("search_api_key"),
		TranscriptAPIURL: viper.GetString("transcript_api_url"),
		TranscriptAPIKey: viper.GetString("transcript_api_key"),
		ImageAPIURL:      viper.GetString("image_api_url"),
		ImageAPIKey:      viper.GetString("image_api_key"),

		TelemetryEnabled: viper.GetBool("telemetry_enabled"),
		OTELEndpoint:     viper.GetString("otel_endpoint"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("database_url is required (set GREENROOM_DATABASE_URL or database_url in config.yaml)")
	}
	if cfg.PollInterval <= 0 {
		return nil, fmt.Errorf("poll_interval must be positive, got %s", cfg.PollInterval)
	}
	if cfg.ClaimBatchSize <= 0 {
		return nil, fmt.Errorf("claim_batch_size must be positive, got %d", cfg.ClaimBatchSize)
	}
	if cfg.BatchMaxItems <= 0 {
		return nil, fmt.Errorf("batch_max_items must be positive, got %d", cfg.BatchMaxItems)
	}
	if cfg.BatchConcurrency <= 0 {
		return nil, fmt.Errorf("batch_concurrency must be positive, got %d", cfg.BatchConcurrency)
	}

	return cfg, nil
}
