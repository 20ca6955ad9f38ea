package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Postmark   PostmarkConfig   `yaml:"postmark"`
	Agents     AgentsConfig     `yaml:"agents"`
	Storage    StorageConfig    `yaml:"storage"`
	Auth       AuthConfig       `yaml:"auth"`
	Extraction ExtractionConfig `yaml:"extraction"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// GetHost returns the bind address, honoring container environments
// where binding to localhost would make the service unreachable.
func (c ServerConfig) GetHost() string {
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return "0.0.0.0"
	}
	if host := os.Getenv("SERVER_HOST"); host != "" {
		return host
	}
	return c.Host
}

// DatabaseConfig holds PostgreSQL connection settings
type DatabaseConfig struct {
	URL          string `yaml:"url"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

// RedisConfig holds Redis connection settings for rate limiting and
// the ingestion dedup filter.
type RedisConfig struct {
	URL     string `yaml:"url"`
	Enabled bool   `yaml:"enabled"`
}

// PostmarkConfig holds Postmark API settings for outbound notifications
type PostmarkConfig struct {
	ServerToken    string `yaml:"server_token"`
	BaseURL        string `yaml:"base_url"`
	FromEmail      string `yaml:"from_email"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	MaxRetries     int    `yaml:"max_retries"`
}

// Timeout returns the configured HTTP timeout for Postmark calls.
func (c PostmarkConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// AgentsConfig holds extraction agent settings
type AgentsConfig struct {
	Enabled    bool   `yaml:"enabled"`
	ModelID    string `yaml:"model_id"`
	Region     string `yaml:"region"`
	MaxRetries int    `yaml:"max_retries"`
	MaxTokens  int    `yaml:"max_tokens"`
}

// StorageConfig holds attachment storage settings
type StorageConfig struct {
	Type       string `yaml:"type"` // "local" or "s3"
	LocalDir   string `yaml:"local_dir"`
	S3Bucket   string `yaml:"s3_bucket"`
	S3Region   string `yaml:"s3_region"`
	AWSProfile string `yaml:"aws_profile"`
}

// GetAWSProfile returns the AWS profile, empty when running on ECS
// where the task role provides credentials.
func (c StorageConfig) GetAWSProfile() string {
	if envProfile := os.Getenv("AWS_PROFILE_OVERRIDE"); envProfile != "" {
		return envProfile
	}
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return ""
	}
	return c.AWSProfile
}

// AuthConfig holds API key signing and rate limit settings
type AuthConfig struct {
	APIKeySecret           string `yaml:"api_key_secret"`
	RateLimitRequests      int    `yaml:"rate_limit_requests"`
	RateLimitWindowSeconds int    `yaml:"rate_limit_window_seconds"`
	LockoutThreshold       int    `yaml:"lockout_threshold"`
	LockoutMinutes         int    `yaml:"lockout_minutes"`
}

// RateLimitWindow returns the sliding window duration.
func (c AuthConfig) RateLimitWindow() time.Duration {
	return time.Duration(c.RateLimitWindowSeconds) * time.Second
}

// ExtractionConfig holds background extraction pipeline settings
type ExtractionConfig struct {
	Workers   int `yaml:"workers"`
	QueueSize int `yaml:"queue_size"`
}

// Load reads configuration from a YAML file and applies defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Postmark.BaseURL == "" {
		cfg.Postmark.BaseURL = "https://api.postmarkapp.com"
	}
	if cfg.Postmark.TimeoutSeconds == 0 {
		cfg.Postmark.TimeoutSeconds = 30
	}
	if cfg.Postmark.MaxRetries == 0 {
		cfg.Postmark.MaxRetries = 3
	}
	if cfg.Agents.ModelID == "" {
		cfg.Agents.ModelID = "anthropic.claude-3-sonnet-20240229-v1:0"
	}
	if cfg.Agents.Region == "" {
		cfg.Agents.Region = "us-east-1"
	}
	if cfg.Agents.MaxRetries == 0 {
		cfg.Agents.MaxRetries = 3
	}
	if cfg.Agents.MaxTokens == 0 {
		cfg.Agents.MaxTokens = 4000
	}
	if cfg.Storage.Type == "" {
		cfg.Storage.Type = "local"
	}
	if cfg.Storage.LocalDir == "" {
		cfg.Storage.LocalDir = "attachments"
	}
	if cfg.Auth.RateLimitRequests == 0 {
		cfg.Auth.RateLimitRequests = 100
	}
	if cfg.Auth.RateLimitWindowSeconds == 0 {
		cfg.Auth.RateLimitWindowSeconds = 3600
	}
	if cfg.Auth.LockoutThreshold == 0 {
		cfg.Auth.LockoutThreshold = 5
	}
	if cfg.Auth.LockoutMinutes == 0 {
		cfg.Auth.LockoutMinutes = 15
	}
	if cfg.Extraction.Workers == 0 {
		cfg.Extraction.Workers = 4
	}
	if cfg.Extraction.QueueSize == 0 {
		cfg.Extraction.QueueSize = 256
	}
}

// LoadFromEnv loads config from a YAML file, then applies environment
// variable overrides. A missing config file is not an error; defaults
// plus env vars are enough to run.
func LoadFromEnv(path string) (*Config, error) {
	// Load .env file if it exists (no error if missing)
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		cfg = &Config{}
		applyDefaults(cfg)
	}

	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Redis.URL = v
		cfg.Redis.Enabled = true
	}
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("POSTMARK_SERVER_TOKEN"); v != "" {
		cfg.Postmark.ServerToken = v
	}
	if v := os.Getenv("POSTMARK_FROM_EMAIL"); v != "" {
		cfg.Postmark.FromEmail = v
	}
	if v := os.Getenv("AGENTS_MODEL_ID"); v != "" {
		cfg.Agents.ModelID = v
	}
	if v := os.Getenv("AWS_REGION"); v != "" {
		cfg.Agents.Region = v
	}
	if v := os.Getenv("API_KEY_SECRET"); v != "" {
		cfg.Auth.APIKeySecret = v
	}
	if v := os.Getenv("ATTACHMENTS_DIR"); v != "" {
		cfg.Storage.LocalDir = v
	}
	if v := os.Getenv("ATTACHMENTS_S3_BUCKET"); v != "" {
		cfg.Storage.S3Bucket = v
		cfg.Storage.Type = "s3"
	}

	return cfg, nil
}
