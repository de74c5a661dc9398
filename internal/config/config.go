package config

import (
	"errors"
	"fmt"
	"time"
)

// Database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config holds server configuration values.
type Config struct {
	Addr               string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout  time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout    time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	LogLevel           string        `mapstructure:"log_level" yaml:"log_level"`
	LogFormat          string        `mapstructure:"log_format" yaml:"log_format"`
	MaxMessageBytes    int64         `mapstructure:"max_message_bytes" yaml:"max_message_bytes"`
	RateLimitPerMinute int           `mapstructure:"rate_limit_per_minute" yaml:"rate_limit_per_minute"`
	AllowedOrigins     []string      `mapstructure:"allowed_origins" yaml:"allowed_origins"`

	Database  DatabaseConfig  `mapstructure:"database" yaml:"database"`
	Chat      ChatConfig      `mapstructure:"chat" yaml:"chat"`
	Assistant AssistantConfig `mapstructure:"assistant" yaml:"assistant"`
}

// DatabaseConfig selects and locates the message store.
type DatabaseConfig struct {
	Driver string `mapstructure:"driver" yaml:"driver"`
	Path   string `mapstructure:"path" yaml:"path"`
	DSN    string `mapstructure:"dsn" yaml:"dsn"`
}

// ChatConfig tunes the relay.
type ChatConfig struct {
	DefaultRoom   string        `mapstructure:"default_room" yaml:"default_room"`
	StoreTimeout  time.Duration `mapstructure:"store_timeout" yaml:"store_timeout"`
	MaxBodyLength int           `mapstructure:"max_body_length" yaml:"max_body_length"`
}

// AssistantConfig configures the conversation assistant.
type AssistantConfig struct {
	Enabled      bool          `mapstructure:"enabled" yaml:"enabled"`
	APIKey       string        `mapstructure:"api_key" yaml:"api_key"`
	Model        string        `mapstructure:"model" yaml:"model"`
	BaseURL      string        `mapstructure:"base_url" yaml:"base_url"`
	Region       string        `mapstructure:"region" yaml:"region"`
	HistorySize  int           `mapstructure:"history_size" yaml:"history_size"`
	Timeout      time.Duration `mapstructure:"timeout" yaml:"timeout"`
	SystemPrompt string        `mapstructure:"system_prompt" yaml:"system_prompt"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:               ":3001",
		ReadHeaderTimeout:  5 * time.Second,
		ShutdownTimeout:    5 * time.Second,
		LogLevel:           "info",
		LogFormat:          "console",
		MaxMessageBytes:    64 * 1024,
		RateLimitPerMinute: 120,
		AllowedOrigins:     []string{"http://localhost:3000"},
		Database: DatabaseConfig{
			Driver: DriverSQLite,
			Path:   "relaychat.db",
		},
		Chat: ChatConfig{
			DefaultRoom:   "general",
			StoreTimeout:  5 * time.Second,
			MaxBodyLength: 2000,
		},
		Assistant: AssistantConfig{
			Enabled:     false,
			BaseURL:     "https://ark.cn-beijing.volces.com/api/v3",
			Region:      "cn-beijing",
			HistorySize: 10,
			Timeout:     30 * time.Second,
		},
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	if other.Addr != "" {
		c.Addr = other.Addr
	}
	if other.ReadHeaderTimeout != 0 {
		c.ReadHeaderTimeout = other.ReadHeaderTimeout
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.Database.Driver != "" {
		c.Database.Driver = other.Database.Driver
	}
	if other.Database.Path != "" {
		c.Database.Path = other.Database.Path
	}
	if other.Database.DSN != "" {
		c.Database.DSN = other.Database.DSN
	}
}

// Validate reports settings the server cannot start with.
func (c Config) Validate() error {
	var errs []error
	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.Path == "" {
			errs = append(errs, errors.New("database.path is required for sqlite"))
		}
	case DriverPostgres:
		if c.Database.DSN == "" {
			errs = append(errs, errors.New("database.dsn is required for postgres"))
		}
	case DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown database.driver %q", c.Database.Driver))
	}
	if c.Chat.MaxBodyLength <= 0 {
		errs = append(errs, errors.New("chat.max_body_length must be positive"))
	}
	if c.Chat.StoreTimeout <= 0 {
		errs = append(errs, errors.New("chat.store_timeout must be positive"))
	}
	if c.Assistant.Enabled && (c.Assistant.APIKey == "" || c.Assistant.Model == "") {
		errs = append(errs, errors.New("assistant.api_key and assistant.model are required when the assistant is enabled"))
	}
	return errors.Join(errs...)
}
