package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"    validate:"required"`
	Database  DatabaseConfig  `mapstructure:"database"  validate:"required"`
	Auth      AuthConfig      `mapstructure:"auth"      validate:"required"`
	LLM       LLMConfig       `mapstructure:"llm"       validate:"required"`
	Retention RetentionConfig `mapstructure:"retention" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains settings for the local durable store.
type DatabaseConfig struct {
	// Path is the filesystem location of the SQLite database file.
	Path string `mapstructure:"path" validate:"required"`
}

// AuthConfig contains all authentication settings.
type AuthConfig struct {
	JWTSecret            string `mapstructure:"jwt_secret"             validate:"required,min=32"`
	TokenLifetimeMinutes int    `mapstructure:"token_lifetime_minutes" validate:"required,gt=0"`
}

// LLMConfig contains all LLM integration related settings.
type LLMConfig struct {
	GeminiAPIKey      string `mapstructure:"gemini_api_key" validate:"required"`
	ModelName         string `mapstructure:"model_name"     validate:"required"`
	MaxRetries        int    `mapstructure:"max_retries"    validate:"gte=0"`
	RetryDelaySeconds int    `mapstructure:"retry_delay_seconds" validate:"gte=0"`
}

// RetentionConfig groups the eviction windows for in-memory tasks and
// the durable stores, plus the staleness threshold for the sweep.
type RetentionConfig struct {
	ResultMaxAge    time.Duration `mapstructure:"result_max_age"     validate:"required,gt=0"`
	ViewStateMaxAge time.Duration `mapstructure:"view_state_max_age" validate:"required,gt=0"`
	TaskRetention   time.Duration `mapstructure:"task_retention"     validate:"required,gt=0"`
	StaleThreshold  time.Duration `mapstructure:"stale_threshold"    validate:"required,gt=0"`
	SweepInterval   time.Duration `mapstructure:"sweep_interval"     validate:"required,gt=0"`
}
