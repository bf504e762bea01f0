// Package config provides application configuration management with multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (~/.sitedex/config.yaml or ./config.yaml)
//  3. Default values
//
// Main configuration categories:
//   - Embedder: Gemini embedding model, output dimension, rate limits
//   - Storage: PostgreSQL connection (see storage.go)
//   - Fetch: HTTP fetcher timeouts and size limits
//   - Server: HTTP API listen address
//
// Security: the PostgreSQL password is never logged; config directory uses
// 0750 permissions. Validation lives in validation.go and returns sentinel
// errors checkable with errors.Is().
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrMissingAPIKey indicates a required API key is missing.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidEmbedderModel indicates the embedder model is invalid.
	ErrInvalidEmbedderModel = errors.New("invalid embedder model")

	// ErrInvalidEmbedderDimension indicates the embedder dimension is out of range.
	ErrInvalidEmbedderDimension = errors.New("invalid embedder dimension")

	// ErrInvalidEmbedderParallelism indicates the embedder parallelism is out of range.
	ErrInvalidEmbedderParallelism = errors.New("invalid embedder parallelism")

	// ErrInvalidPostgresHost indicates the PostgreSQL host is invalid.
	ErrInvalidPostgresHost = errors.New("invalid PostgreSQL host")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")

	// ErrInvalidPostgresDBName indicates the PostgreSQL database name is invalid.
	ErrInvalidPostgresDBName = errors.New("invalid PostgreSQL database name")

	// ErrInvalidPostgresPassword indicates the PostgreSQL password is invalid.
	ErrInvalidPostgresPassword = errors.New("invalid PostgreSQL password")

	// ErrInvalidPostgresSSLMode indicates the PostgreSQL SSL mode is invalid.
	ErrInvalidPostgresSSLMode = errors.New("invalid PostgreSQL SSL mode")

	// ErrInvalidFetchTimeout indicates the fetch timeout is out of range.
	ErrInvalidFetchTimeout = errors.New("invalid fetch timeout")

	// ErrInvalidServerAddr indicates the server listen address is invalid.
	ErrInvalidServerAddr = errors.New("invalid server address")
)

const (
	// DefaultEmbedderModel is the default Gemini embedding model.
	// gemini-embedding-001 outputs 3072 dimensions by default, but supports
	// truncation to 768 via OutputDimensionality (Matryoshka Representation
	// Learning). The pgvector schema uses 768 dimensions.
	DefaultEmbedderModel = "gemini-embedding-001"

	// DefaultEmbedderDimension matches the vector(768) column in the schema.
	DefaultEmbedderDimension = 768

	// DefaultEmbedderParallelism bounds concurrent embedding calls per batch.
	DefaultEmbedderParallelism = 4

	// DefaultEmbedderRPS bounds embedding API requests per second.
	DefaultEmbedderRPS = 10
)

// Config stores application configuration.
// SECURITY: Sensitive fields are explicitly masked in MarshalJSON().
// When adding new sensitive fields (passwords, API keys), update MarshalJSON.
type Config struct {
	// Embedder configuration
	EmbedderModel       string `mapstructure:"embedder_model" json:"embedder_model"`
	EmbedderDimension   int    `mapstructure:"embedder_dimension" json:"embedder_dimension"`
	EmbedderParallelism int    `mapstructure:"embedder_parallelism" json:"embedder_parallelism"`
	EmbedderRPS         int    `mapstructure:"embedder_rps" json:"embedder_rps"`

	// Synthesis configuration. Answer synthesis is optional; retrieval works
	// without it.
	SynthesisModel   string `mapstructure:"synthesis_model" json:"synthesis_model"`
	SynthesisEnabled bool   `mapstructure:"synthesis_enabled" json:"synthesis_enabled"`

	// Storage configuration (see storage.go for documentation)
	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"postgres_password"` // SENSITIVE: masked in MarshalJSON
	PostgresDBName   string `mapstructure:"postgres_db_name" json:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode" json:"postgres_ssl_mode"`

	// Fetch configuration
	FetchTimeoutMS   int   `mapstructure:"fetch_timeout_ms" json:"fetch_timeout_ms"`
	FetchMaxBodySize int64 `mapstructure:"fetch_max_body_size" json:"fetch_max_body_size"`

	// Server configuration (serve mode only)
	ServerAddr string `mapstructure:"server_addr" json:"server_addr"`
}

// Load loads configuration.
// Priority: Environment variables > Configuration file > Default values
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".sitedex")
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)
	viper.AddConfigPath(".") // Also support current directory

	setDefaults()
	bindEnvVariables()

	if err := viper.ReadInConfig(); err != nil {
		// Configuration file not found is not an error, use default values
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using default values",
			"search_paths", []string{configDir, "."},
			"config_name", "config.yaml")
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// DATABASE_URL overrides individual postgres_* settings when set.
	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults() {
	// Embedder defaults
	viper.SetDefault("embedder_model", DefaultEmbedderModel)
	viper.SetDefault("embedder_dimension", DefaultEmbedderDimension)
	viper.SetDefault("embedder_parallelism", DefaultEmbedderParallelism)
	viper.SetDefault("embedder_rps", DefaultEmbedderRPS)

	// Synthesis defaults
	viper.SetDefault("synthesis_model", "gemini-2.5-flash")
	viper.SetDefault("synthesis_enabled", true)

	// PostgreSQL defaults (matching docker-compose.yml)
	viper.SetDefault("postgres_host", "localhost")
	viper.SetDefault("postgres_port", 5432)
	viper.SetDefault("postgres_user", "sitedex")
	viper.SetDefault("postgres_password", "sitedex_dev_password")
	viper.SetDefault("postgres_db_name", "sitedex")
	viper.SetDefault("postgres_ssl_mode", "disable")

	// Fetch defaults
	viper.SetDefault("fetch_timeout_ms", 30000)
	viper.SetDefault("fetch_max_body_size", 10*1024*1024)

	// Server defaults
	viper.SetDefault("server_addr", "localhost:8350")
}

// bindEnvVariables binds environment variables explicitly.
// GEMINI_API_KEY is read directly by the genai client, not via Viper;
// its presence is checked in Validate().
func bindEnvVariables() {
	// Helper to panic on unexpected bind errors (hardcoded strings can't fail)
	mustBind := func(key, envVar string) {
		if err := viper.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("embedder_model", "SITEDEX_EMBEDDER_MODEL")
	mustBind("synthesis_model", "SITEDEX_SYNTHESIS_MODEL")
	mustBind("synthesis_enabled", "SITEDEX_SYNTHESIS_ENABLED")
	mustBind("server_addr", "SITEDEX_SERVER_ADDR")
}

// maskedValue is the placeholder for masked sensitive data.
// Full-width blocks (U+2588) avoid accidental substring matches against
// real password characters.
const maskedValue = "████████"

// maskSecret masks a secret string for safe logging.
// Secrets of 8 characters or fewer are fully masked; longer secrets show
// the first and last 2 characters for debug utility.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return maskedValue
	}
	return s[:2] + "<" + maskedValue + ">" + s[len(s)-2:]
}

// MarshalJSON implements json.Marshaler with explicit sensitive field masking.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	a := alias(c)
	a.PostgresPassword = maskSecret(a.PostgresPassword)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// String implements Stringer to prevent accidental printing of secrets.
func (c Config) String() string {
	data, err := c.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}
