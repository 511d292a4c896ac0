package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

// Helper to clear all config-related env vars. t.Setenv restores them after the test.
func clearEnv(t *testing.T) {
	t.Helper()
	envVars := []string{
		"QUILL_PORT",
		"QUILL_READ_TIMEOUT",
		"QUILL_WRITE_TIMEOUT",
		"QUILL_SHUTDOWN_TIMEOUT",
		"QUILL_DB_PATH",
		"OPENAI_API_KEY",
		"OPENAI_BASE_URL",
		"QUILL_LLM_MODEL",
		"QUILL_MODERATION_TIMEOUT",
		"GPT_API_URL",
		"GPT_API_KEY",
		"QUILL_REGISTRY_PATH",
		"QUILL_REGISTRY_REFRESH_INTERVAL",
		"QUILL_REGISTRY_BUCKET",
		"QUILL_S3_ENDPOINT",
		"QUILL_S3_REGION",
		"QUILL_S3_ACCESS_KEY",
		"QUILL_S3_SECRET_KEY",
		"QUILL_S3_USE_SSL",
		"QUILL_API_KEY",
		"QUILL_LOG_LEVEL",
		"QUILL_LOG_FORMAT",
		"QUILL_DEV_MODE",
	}
	for _, v := range envVars {
		t.Setenv(v, "")
	}
	dir := t.TempDir()
	t.Setenv("QUILL_CONFIG_PATH", filepath.Join(dir, "missing.yaml"))
	t.Setenv("QUILL_ENV_FILE", filepath.Join(dir, "missing.env"))
}

// dur converts Duration to time.Duration for comparison
func dur(d Duration) time.Duration {
	return time.Duration(d)
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if dur(cfg.Server.ShutdownTimeout) != 15*time.Second {
		t.Errorf("Server.ShutdownTimeout = %v, want 15s", cfg.Server.ShutdownTimeout)
	}
	if cfg.Database.Path != "data/quill.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "data/quill.db")
	}
	if cfg.LLM.BaseURL != "https://api.openai.com" {
		t.Errorf("LLM.BaseURL = %q, want %q", cfg.LLM.BaseURL, "https://api.openai.com")
	}
	if cfg.LLM.Model != "gpt-4o-mini" {
		t.Errorf("LLM.Model = %q, want %q", cfg.LLM.Model, "gpt-4o-mini")
	}
	if dur(cfg.LLM.ModerationTimeout) != 10*time.Second {
		t.Errorf("LLM.ModerationTimeout = %v, want 10s", cfg.LLM.ModerationTimeout)
	}
	if cfg.LLM.APIKey != "" {
		t.Errorf("LLM.APIKey = %q, want empty", cfg.LLM.APIKey)
	}
	if cfg.Registry.Path != "data/memory-registry.json" {
		t.Errorf("Registry.Path = %q, want %q", cfg.Registry.Path, "data/memory-registry.json")
	}
	if cfg.Registry.RefreshInterval != 0 {
		t.Errorf("Registry.RefreshInterval = %v, want 0 (disabled)", cfg.Registry.RefreshInterval)
	}
	if cfg.Registry.Publish.ObjectKey != "registry/memory-registry.json" {
		t.Errorf("Registry.Publish.ObjectKey = %q", cfg.Registry.Publish.ObjectKey)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "json" {
		t.Errorf("Log = %+v, want info/json", cfg.Log)
	}
}

// A missing LLM credential disables features; it is not a configuration error.
func TestLoad_MissingOpenAIKeyIsNotAnError(t *testing.T) {
	clearEnv(t)

	if _, err := Load(); err != nil {
		t.Fatalf("Load() error = %v, want nil", err)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("QUILL_PORT", "9090")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("OPENAI_BASE_URL", "https://llm.internal")
	t.Setenv("QUILL_MODERATION_TIMEOUT", "3s")
	t.Setenv("GPT_API_URL", "https://content.example")
	t.Setenv("GPT_API_KEY", "content-key")
	t.Setenv("QUILL_REGISTRY_PATH", "/tmp/registry.json")
	t.Setenv("QUILL_REGISTRY_REFRESH_INTERVAL", "1h")
	t.Setenv("QUILL_S3_USE_SSL", "false")
	t.Setenv("QUILL_LOG_FORMAT", "text")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.LLM.APIKey != "sk-test" {
		t.Errorf("LLM.APIKey = %q, want sk-test", cfg.LLM.APIKey)
	}
	if cfg.LLM.BaseURL != "https://llm.internal" {
		t.Errorf("LLM.BaseURL = %q", cfg.LLM.BaseURL)
	}
	if dur(cfg.LLM.ModerationTimeout) != 3*time.Second {
		t.Errorf("LLM.ModerationTimeout = %v, want 3s", cfg.LLM.ModerationTimeout)
	}
	if cfg.Content.URL != "https://content.example" || cfg.Content.APIKey != "content-key" {
		t.Errorf("Content = %+v", cfg.Content)
	}
	if cfg.Registry.Path != "/tmp/registry.json" {
		t.Errorf("Registry.Path = %q", cfg.Registry.Path)
	}
	if dur(cfg.Registry.RefreshInterval) != time.Hour {
		t.Errorf("Registry.RefreshInterval = %v, want 1h", cfg.Registry.RefreshInterval)
	}
	if cfg.Registry.Publish.UseSSL == nil || *cfg.Registry.Publish.UseSSL {
		t.Errorf("Registry.Publish.UseSSL = %v, want false", cfg.Registry.Publish.UseSSL)
	}
	if cfg.Log.Format != "text" {
		t.Errorf("Log.Format = %q, want text", cfg.Log.Format)
	}
}

func TestLoad_YAMLFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "quill.yaml")
	content := `
server:
  port: 7070
llm:
  model: gpt-4o
  moderation_timeout: 5s
registry:
  path: out/registry.json
  refresh_interval: 30m
log:
  level: debug
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("QUILL_CONFIG_PATH", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("Server.Port = %d, want 7070", cfg.Server.Port)
	}
	if cfg.LLM.Model != "gpt-4o" {
		t.Errorf("LLM.Model = %q, want gpt-4o", cfg.LLM.Model)
	}
	if dur(cfg.LLM.ModerationTimeout) != 5*time.Second {
		t.Errorf("LLM.ModerationTimeout = %v, want 5s", cfg.LLM.ModerationTimeout)
	}
	if dur(cfg.Registry.RefreshInterval) != 30*time.Minute {
		t.Errorf("Registry.RefreshInterval = %v, want 30m", cfg.Registry.RefreshInterval)
	}
	// Unset YAML values keep their defaults
	if cfg.LLM.BaseURL != "https://api.openai.com" {
		t.Errorf("LLM.BaseURL = %q, want default", cfg.LLM.BaseURL)
	}
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "quill.yaml")
	if err := os.WriteFile(path, []byte("llm:\n  model: from-yaml\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("QUILL_CONFIG_PATH", path)
	t.Setenv("QUILL_LLM_MODEL", "from-env")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.LLM.Model != "from-env" {
		t.Errorf("LLM.Model = %q, want from-env", cfg.LLM.Model)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "quill.yaml")
	if err := os.WriteFile(path, []byte("server: [unclosed"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("QUILL_CONFIG_PATH", path)

	_, err := Load()
	if err == nil {
		t.Fatal("Load() expected error for invalid YAML")
	}
	if !strings.Contains(err.Error(), "parsing config file") {
		t.Errorf("error = %v, want 'parsing config file'", err)
	}
}

func TestLoad_EnvFileSeedsEnvironment(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, ".env.local")
	content := `# local secrets
OPENAI_API_KEY="sk-from-file"

GPT_API_URL='https://content.local'
GPT_API_KEY=plain-key
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("QUILL_ENV_FILE", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.LLM.APIKey != "sk-from-file" {
		t.Errorf("LLM.APIKey = %q, want quotes stripped", cfg.LLM.APIKey)
	}
	if cfg.Content.URL != "https://content.local" {
		t.Errorf("Content.URL = %q, want quotes stripped", cfg.Content.URL)
	}
	if cfg.Content.APIKey != "plain-key" {
		t.Errorf("Content.APIKey = %q", cfg.Content.APIKey)
	}
}

func TestLoad_EnvFileOverridesProcessEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-from-process")
	dir := t.TempDir()
	path := filepath.Join(dir, ".env.local")
	if err := os.WriteFile(path, []byte("OPENAI_API_KEY=sk-from-file\n"), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("QUILL_ENV_FILE", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.LLM.APIKey != "sk-from-file" {
		t.Errorf("LLM.APIKey = %q, want sk-from-file", cfg.LLM.APIKey)
	}
}

func TestLoad_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"bad port", map[string]string{"QUILL_PORT": "70000"}, "out of range"},
		{"zero moderation timeout", map[string]string{"QUILL_MODERATION_TIMEOUT": "0s"}, "moderation_timeout"},
		{"unknown log format", map[string]string{"QUILL_LOG_FORMAT": "xml"}, "log format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			if err == nil {
				t.Fatal("Load() expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want substring %q", err, tt.want)
			}
		})
	}
}

func TestLoadFromFile_MissingFile(t *testing.T) {
	clearEnv(t)
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("LoadFromFile() expected error for missing file")
	}
}

func TestRequireAuth(t *testing.T) {
	clearEnv(t)
	cfg := newDefaults()
	if err := cfg.RequireAuth(); err == nil {
		t.Error("RequireAuth() expected error without QUILL_API_KEY")
	}

	t.Setenv("QUILL_DEV_MODE", "true")
	if err := cfg.RequireAuth(); err != nil {
		t.Errorf("RequireAuth() in dev mode error = %v", err)
	}

	t.Setenv("QUILL_DEV_MODE", "")
	cfg.Auth.APIKey = "secret"
	if err := cfg.RequireAuth(); err != nil {
		t.Errorf("RequireAuth() with key error = %v", err)
	}
}

func TestDuration_YAMLRoundTrip(t *testing.T) {
	var d Duration
	if err := yaml.Unmarshal([]byte(`"90s"`), &d); err != nil {
		t.Fatalf("Unmarshal error = %v", err)
	}
	if dur(d) != 90*time.Second {
		t.Errorf("Duration = %v, want 90s", dur(d))
	}

	if err := yaml.Unmarshal([]byte(`"soon"`), &d); err == nil {
		t.Error("expected error for invalid duration")
	}
}
