package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Storage backends selectable through STORAGE_BACKEND.
const (
	BackendFile     = "file"
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// Config holds the server configuration.
type Config struct {
	ServerPort string `mapstructure:"SERVER_PORT"`
	LogLevel   string `mapstructure:"LOG_LEVEL"`

	StorageBackend string `mapstructure:"STORAGE_BACKEND"`
	DataDir        string `mapstructure:"DATA_DIR"`
	SQLitePath     string `mapstructure:"SQLITE_PATH"`
	PostgresURL    string `mapstructure:"POSTGRES_URL"`

	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`

	RefreshInterval time.Duration `mapstructure:"REFRESH_INTERVAL"`
	RemoveDelay     time.Duration `mapstructure:"REMOVE_DELAY"`
	SettleDelay     time.Duration `mapstructure:"SETTLE_DELAY"`
	ShutdownGrace   time.Duration `mapstructure:"SHUTDOWN_GRACE"`
}

// ClientConfig holds the blockctl configuration.
type ClientConfig struct {
	Server  string        `mapstructure:"BLOCKCTL_SERVER"`
	Timeout time.Duration `mapstructure:"BLOCKCTL_TIMEOUT"`
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	// A missing .env is fine; the environment alone is enough.
	_ = v.ReadInConfig()
	return v
}

// Load reads the server configuration from the environment and an optional .env file.
func Load() (*Config, error) {
	v := newViper()

	v.SetDefault("SERVER_PORT", "8000")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("STORAGE_BACKEND", BackendFile)
	v.SetDefault("DATA_DIR", ".")
	v.SetDefault("SQLITE_PATH", "blocklist.db")
	v.SetDefault("POSTGRES_URL", "")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REFRESH_INTERVAL", "2s")
	v.SetDefault("REMOVE_DELAY", "300ms")
	v.SetDefault("SETTLE_DELAY", "10ms")
	v.SetDefault("SHUTDOWN_GRACE", "10s")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.StorageBackend = strings.ToLower(strings.TrimSpace(cfg.StorageBackend))
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.StorageBackend {
	case BackendFile, BackendMemory, BackendSQLite, BackendRedis:
	case BackendPostgres:
		if c.PostgresURL == "" {
			return fmt.Errorf("POSTGRES_URL is required for the %s backend", BackendPostgres)
		}
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q", c.StorageBackend)
	}
	if c.RefreshInterval <= 0 {
		return fmt.Errorf("REFRESH_INTERVAL must be positive, got %s", c.RefreshInterval)
	}
	if c.RemoveDelay <= 0 || c.SettleDelay <= 0 {
		return fmt.Errorf("REMOVE_DELAY and SETTLE_DELAY must be positive")
	}
	return nil
}

// LoadClient reads the blockctl configuration.
func LoadClient() (*ClientConfig, error) {
	v := newViper()

	v.SetDefault("BLOCKCTL_SERVER", "http://localhost:8000")
	v.SetDefault("BLOCKCTL_TIMEOUT", "10s")

	var cfg ClientConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	return &cfg, nil
}
