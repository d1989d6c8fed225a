// Package config loads runtime settings from a .env file, an optional YAML
// config file and MONEYMEMO_* environment variables, in that order of
// increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. MONEYMEMO_GEMINI_MODEL.
const EnvPrefix = "MONEYMEMO"

// Storage backends.
const (
	BackendFile = "file"
	BackendGCS  = "gcs"
)

type StorageConfig struct {
	Backend   string `mapstructure:"backend"`
	DataDir   string `mapstructure:"data_dir"`
	BackupDir string `mapstructure:"backup_dir"`
	GCSBucket string `mapstructure:"gcs_bucket"`
	GCSPrefix string `mapstructure:"gcs_prefix"`
}

type GeminiConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type LedgerConfig struct {
	PaymentMethods     []string `mapstructure:"payment_methods"`
	Currency           string   `mapstructure:"currency"`
	ExactWhenAmbiguous bool     `mapstructure:"exact_when_ambiguous"`
}

// AuditConfig enables the BigQuery audit trail when Project is set.
type AuditConfig struct {
	Project string `mapstructure:"project"`
	Dataset string `mapstructure:"dataset"`
}

type NotionConfig struct {
	Token      string `mapstructure:"token"`
	DatabaseID string `mapstructure:"database_id"`
}

type ServerConfig struct {
	Port           int      `mapstructure:"port"`
	QueueSize      int      `mapstructure:"queue_size"`
	Workers        int      `mapstructure:"workers"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Config is the full runtime configuration.
type Config struct {
	Storage StorageConfig `mapstructure:"storage"`
	Gemini  GeminiConfig  `mapstructure:"gemini"`
	Ledger  LedgerConfig  `mapstructure:"ledger"`
	Audit   AuditConfig   `mapstructure:"audit"`
	Notion  NotionConfig  `mapstructure:"notion"`
	Server  ServerConfig  `mapstructure:"server"`
	Log     LogConfig     `mapstructure:"log"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("storage.backend", BackendFile)
	v.SetDefault("storage.data_dir", "data")
	v.SetDefault("storage.backup_dir", "backups")
	v.SetDefault("storage.gcs_bucket", "")
	v.SetDefault("storage.gcs_prefix", "")
	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model", "gemini-2.5-flash")
	v.SetDefault("gemini.timeout", 30*time.Second)
	v.SetDefault("ledger.payment_methods", []string{})
	v.SetDefault("ledger.currency", "JPY")
	v.SetDefault("ledger.exact_when_ambiguous", false)
	v.SetDefault("audit.project", "")
	v.SetDefault("audit.dataset", "moneymemo")
	v.SetDefault("notion.token", "")
	v.SetDefault("notion.database_id", "")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.queue_size", 100)
	v.SetDefault("server.workers", 5)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// Load reads configuration. An empty path searches for moneymemo.yaml in the
// working directory and $HOME/.config/moneymemo; a missing file is not an
// error. An explicit path must exist.
func Load(path string) (*Config, error) {
	// .env only fills variables that are not already set.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("moneymemo")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "moneymemo"))
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	// The conventional variable name works without the prefix.
	if cfg.Gemini.APIKey == "" {
		cfg.Gemini.APIKey = os.Getenv("GEMINI_API_KEY")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks settings that cannot be defaulted.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendFile:
		if c.Storage.DataDir == "" {
			return errors.New("storage.data_dir is required for the file backend")
		}
	case BackendGCS:
		if c.Storage.GCSBucket == "" {
			return errors.New("storage.gcs_bucket is required for the gcs backend")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	if c.Gemini.Timeout <= 0 {
		return fmt.Errorf("gemini.timeout must be positive, got %s", c.Gemini.Timeout)
	}
	if c.Server.Workers < 1 {
		return fmt.Errorf("server.workers must be at least 1, got %d", c.Server.Workers)
	}
	if c.Server.QueueSize < 1 {
		return fmt.Errorf("server.queue_size must be at least 1, got %d", c.Server.QueueSize)
	}
	return nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}
