package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure.
// It is read-only after Load() returns and thread-safe for concurrent reads.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	LLM      LLMConfig      `yaml:"llm"`
	Content  ContentConfig  `yaml:"content"`
	Registry RegistryConfig `yaml:"registry"`
	Auth     AuthConfig     `yaml:"auth"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port            int      `yaml:"port"`
	ReadTimeout     Duration `yaml:"read_timeout"`
	WriteTimeout    Duration `yaml:"write_timeout"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
}

// DatabaseConfig contains visitor log database settings.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// LLMConfig contains chat-completion provider settings.
type LLMConfig struct {
	APIKey            string   `yaml:"-"` // env-only, never in YAML
	BaseURL           string   `yaml:"base_url"`
	Model             string   `yaml:"model"`
	ModerationTimeout Duration `yaml:"moderation_timeout"`
}

// ContentConfig points at the external content API that lists journal entries.
type ContentConfig struct {
	URL    string `yaml:"url"`
	APIKey string `yaml:"-"` // env-only, never in YAML
}

// RegistryConfig contains memory registry settings.
type RegistryConfig struct {
	Path            string        `yaml:"path"`
	RefreshInterval Duration      `yaml:"refresh_interval"`
	Publish         PublishConfig `yaml:"publish"`
}

// PublishConfig contains S3-compatible storage settings for registry uploads.
// An empty Bucket disables publishing.
type PublishConfig struct {
	Bucket    string `yaml:"bucket"`
	Endpoint  string `yaml:"endpoint"`
	Region    string `yaml:"region"`
	UseSSL    *bool  `yaml:"use_ssl"`
	ObjectKey string `yaml:"object_key"`
	AccessKey string `yaml:"-"` // env-only, never in YAML
	SecretKey string `yaml:"-"` // env-only, never in YAML
}

// AuthConfig contains authentication settings.
type AuthConfig struct {
	APIKey string `yaml:"-"` // env-only, never in YAML
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Duration is a wrapper around time.Duration that supports YAML string parsing.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler for Duration.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Load loads configuration with precedence:
// defaults → YAML file → env file → env vars.
func Load() (*Config, error) {
	cfg := newDefaults()

	configPath := getEnv("QUILL_CONFIG_PATH", "config/quill.yaml")
	if err := loadYAMLFile(cfg, configPath); err != nil {
		return nil, err
	}

	if err := loadEnvFile(getEnv("QUILL_ENV_FILE", ".env.local")); err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromFile loads configuration from a specific path.
// Used for testing and explicit path specification.
func LoadFromFile(path string) (*Config, error) {
	cfg := newDefaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// newDefaults returns a Config with all default values.
func newDefaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     Duration(30 * time.Second),
			WriteTimeout:    Duration(30 * time.Second),
			ShutdownTimeout: Duration(15 * time.Second),
		},
		Database: DatabaseConfig{
			Path: "data/quill.db",
		},
		LLM: LLMConfig{
			BaseURL:           "https://api.openai.com",
			Model:             "gpt-4o-mini",
			ModerationTimeout: Duration(10 * time.Second),
		},
		Registry: RegistryConfig{
			Path: "data/memory-registry.json",
			Publish: PublishConfig{
				ObjectKey: "registry/memory-registry.json",
			},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// loadYAMLFile loads configuration from a YAML file if it exists.
// Missing file is not an error; we just use defaults.
func loadYAMLFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}

	return nil
}

// loadEnvFile seeds the process environment from a key=value file.
// Values in the file win over variables already set. Missing file is not an error.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading env file: %w", err)
	}
	if err := godotenv.Overload(path); err != nil {
		return fmt.Errorf("parsing env file: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides to the config.
// Only non-empty env vars override config values.
func applyEnvOverrides(cfg *Config) {
	// Server
	if v := os.Getenv("QUILL_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("QUILL_READ_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.ReadTimeout = Duration(d)
		}
	}
	if v := os.Getenv("QUILL_WRITE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.WriteTimeout = Duration(d)
		}
	}
	if v := os.Getenv("QUILL_SHUTDOWN_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.ShutdownTimeout = Duration(d)
		}
	}

	// Database
	if v := os.Getenv("QUILL_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// LLM (OPENAI_* names are industry convention)
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("OPENAI_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}
	if v := os.Getenv("QUILL_LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("QUILL_MODERATION_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.LLM.ModerationTimeout = Duration(d)
		}
	}

	// Content API
	if v := os.Getenv("GPT_API_URL"); v != "" {
		cfg.Content.URL = v
	}
	if v := os.Getenv("GPT_API_KEY"); v != "" {
		cfg.Content.APIKey = v
	}

	// Registry
	if v := os.Getenv("QUILL_REGISTRY_PATH"); v != "" {
		cfg.Registry.Path = v
	}
	if v := os.Getenv("QUILL_REGISTRY_REFRESH_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Registry.RefreshInterval = Duration(d)
		}
	}
	if v := os.Getenv("QUILL_REGISTRY_BUCKET"); v != "" {
		cfg.Registry.Publish.Bucket = v
	}
	if v := os.Getenv("QUILL_S3_ENDPOINT"); v != "" {
		cfg.Registry.Publish.Endpoint = v
	}
	if v := os.Getenv("QUILL_S3_REGION"); v != "" {
		cfg.Registry.Publish.Region = v
	}
	if v := os.Getenv("QUILL_S3_ACCESS_KEY"); v != "" {
		cfg.Registry.Publish.AccessKey = v
	}
	if v := os.Getenv("QUILL_S3_SECRET_KEY"); v != "" {
		cfg.Registry.Publish.SecretKey = v
	}
	if v := os.Getenv("QUILL_S3_USE_SSL"); v != "" {
		useSSL := v == "true" || v == "1"
		cfg.Registry.Publish.UseSSL = &useSSL
	}

	// Auth
	if v := os.Getenv("QUILL_API_KEY"); v != "" {
		cfg.Auth.APIKey = v
	}

	// Log
	if v := os.Getenv("QUILL_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("QUILL_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
}

// validate checks structural configuration values.
// A missing OPENAI_API_KEY is not an error: LLM features degrade to fallbacks.
func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server port %d out of range", c.Server.Port)
	}
	if c.LLM.ModerationTimeout <= 0 {
		return errors.New("llm moderation_timeout must be positive")
	}
	if c.Registry.RefreshInterval < 0 {
		return errors.New("registry refresh_interval must not be negative")
	}
	switch c.Log.Format {
	case "json", "text", "auto":
	default:
		return fmt.Errorf("log format %q must be one of json, text, auto", c.Log.Format)
	}
	return nil
}

// RequireAuth reports an error when the HTTP API key is unset.
// In dev mode (QUILL_DEV_MODE=true), the check is skipped.
func (c *Config) RequireAuth() error {
	if os.Getenv("QUILL_DEV_MODE") == "true" {
		return nil
	}
	if c.Auth.APIKey == "" {
		return errors.New("QUILL_API_KEY is required")
	}
	return nil
}

// getEnv returns the value of an environment variable or a default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
