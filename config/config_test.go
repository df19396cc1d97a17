package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kbukum/demandflow/errors"
	"github.com/kbukum/demandflow/logger"
)

func TestServiceConfigApplyDefaults(t *testing.T) {
	t.Run("empty environment defaults to development", func(t *testing.T) {
		cfg := ServiceConfig{Name: "svc"}
		cfg.ApplyDefaults()
		if cfg.Environment != "development" {
			t.Errorf("expected 'development', got %q", cfg.Environment)
		}
		if !cfg.Debug {
			t.Error("expected debug=true for development")
		}
		if cfg.Logging.Level != "info" {
			t.Errorf("expected logging defaults, got %q", cfg.Logging.Level)
		}
	})

	t.Run("production environment keeps debug false", func(t *testing.T) {
		cfg := ServiceConfig{Name: "svc", Environment: "production"}
		cfg.ApplyDefaults()
		if cfg.Debug {
			t.Error("expected debug=false for production")
		}
	})
}

func TestServiceConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     ServiceConfig
		wantErr bool
		errMsg  string
	}{
		{"valid staging", ServiceConfig{Name: "svc", Environment: "staging"}, false, ""},
		{"missing name", ServiceConfig{Environment: "production"}, true, "name: is required"},
		{"invalid environment", ServiceConfig{Name: "svc", Environment: "invalid"}, true, "environment: must be one of"},
		{"invalid log level", ServiceConfig{Name: "svc", Environment: "staging", Logging: logger.Config{Level: "loud"}}, true, "logging.level: must be one of"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.cfg.Logging.ApplyDefaults()
			err := tc.cfg.Validate()
			if err != nil && !errors.HasCode(err, errors.ErrCodeInvalidConfig) {
				t.Errorf("expected INVALID_CONFIG, got %v", err)
			}
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				if !strings.Contains(err.Error(), tc.errMsg) {
					t.Errorf("expected error containing %q, got %q", tc.errMsg, err.Error())
				}
			} else if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoadConfigWithYAML(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `
name: test-service
environment: staging
version: "1.0.0"
`)

	var cfg ServiceConfig
	if err := LoadConfig("test-service", &cfg, WithConfigFile(path)); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Name != "test-service" {
		t.Errorf("expected name 'test-service', got %q", cfg.Name)
	}
	if cfg.Environment != "staging" {
		t.Errorf("expected environment 'staging', got %q", cfg.Environment)
	}
}

func TestLoadConfigMissingExplicitFile(t *testing.T) {
	var cfg ServiceConfig
	err := LoadConfig("nonexistent-service", &cfg, WithConfigFile("/nonexistent/path.yml"))
	if !errors.HasCode(err, errors.ErrCodeInvalidConfig) {
		t.Fatalf("expected INVALID_CONFIG, got %v", err)
	}
}

func TestLoadConfigMalformedExplicitFile(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "name: [unterminated\n")
	var cfg ServiceConfig
	if err := LoadConfig("svc", &cfg, WithConfigFile(path)); err == nil {
		t.Fatal("expected error for malformed yaml")
	}
}

func TestLoadConfigEnvOverride(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "name: from-file\nversion: \"1\"\n")
	t.Setenv("VERSION", "2")

	var cfg ServiceConfig
	if err := LoadConfig("svc", &cfg, WithConfigFile(path)); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Version != "2" {
		t.Errorf("expected env override '2', got %q", cfg.Version)
	}
}

func TestResolverWithMockFS(t *testing.T) {
	fs := &mockFS{files: map[string]bool{
		"./cmd/demandflow/config.yml": true,
		".env":                        true,
	}}
	resolver := &Resolver{FileSystem: fs}
	files := resolver.ResolveFiles("demandflow", LoaderConfig{})
	if files.ConfigFile != "./cmd/demandflow/config.yml" {
		t.Errorf("expected config file at ./cmd/demandflow/config.yml, got %q", files.ConfigFile)
	}
	if files.EnvFile != ".env" {
		t.Errorf("expected .env, got %q", files.EnvFile)
	}
}

type mockFS struct {
	files map[string]bool
}

func (m *mockFS) Exists(path string) bool  { return m.files[path] }
func (m *mockFS) LoadEnv(path string) error { return nil }

func TestLoaderOptions(t *testing.T) {
	var lc LoaderConfig
	WithFileSystem(&mockFS{})(&lc)
	WithConfigFile("/path/to/config.yml")(&lc)
	WithEnvFile("/path/to/.env")(&lc)
	if lc.FileSystem == nil {
		t.Error("expected FileSystem to be set")
	}
	if lc.ConfigFile != "/path/to/config.yml" || lc.EnvFile != "/path/to/.env" {
		t.Errorf("unexpected loader config %+v", lc)
	}
}

func TestKeysOfAndEnvNames(t *testing.T) {
	type retry struct {
		MaxAttempts int `mapstructure:"max_attempts"`
	}
	type sink struct {
		Kind  string `mapstructure:"kind"`
		Retry retry  `mapstructure:"retry"`
	}
	type root struct {
		ServiceConfig `mapstructure:",squash"`
		Sink          sink          `mapstructure:"sink"`
		Interval      time.Duration `mapstructure:"progress_interval"`
		Ignored       string        `mapstructure:"-"`
		hidden        string
	}

	keys := keysOf(reflect.TypeOf(&root{}), "")
	for _, want := range []string{"name", "logging.level", "sink.kind", "sink.retry.max_attempts", "progress_interval"} {
		if !contains(keys, want) {
			t.Errorf("expected key %q in %v", want, keys)
		}
	}
	for _, unwanted := range []string{"ignored", "hidden", "sink"} {
		if contains(keys, unwanted) {
			t.Errorf("unexpected key %q", unwanted)
		}
	}
	if got := EnvName("sink.retry.max_attempts"); got != "SINK_RETRY_MAX_ATTEMPTS" {
		t.Errorf("EnvName = %q", got)
	}
}

func TestLoadConfigNestedEnvOverride(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "name: svc\nlogging:\n  level: info\n")
	t.Setenv("LOGGING_LEVEL", "debug")

	var cfg ServiceConfig
	if err := LoadConfig("svc", &cfg, WithConfigFile(path)); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected env override, got %q", cfg.Logging.Level)
	}
}

func contains(items []string, v string) bool {
	for _, it := range items {
		if it == v {
			return true
		}
	}
	return false
}

// --- Watcher ---

type tunables struct {
	Workers int `mapstructure:"workers"`
}

type watchedConfig struct {
	Name     string   `mapstructure:"name"`
	Pipeline tunables `mapstructure:"pipeline"`
}

func (c *watchedConfig) ApplyDefaults() {
	if c.Pipeline.Workers == 0 {
		c.Pipeline.Workers = 1
	}
}

func (c *watchedConfig) Validate() error {
	if c.Pipeline.Workers < 1 || c.Pipeline.Workers > 64 {
		return fmt.Errorf("pipeline.workers out of range: %d", c.Pipeline.Workers)
	}
	return nil
}

func TestWatcher_LoadsAndDefaults(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "name: w\n")
	w, err := NewWatcher[watchedConfig]("w", WithConfigFile(path))
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}
	if got := w.Current().Pipeline.Workers; got != 1 {
		t.Errorf("expected default workers 1, got %d", got)
	}
	if w.File() != path {
		t.Errorf("expected file %q, got %q", path, w.File())
	}
}

func TestWatcher_InvalidInitialConfig(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "name: w\npipeline:\n  workers: 500\n")
	_, err := NewWatcher[watchedConfig]("w", WithConfigFile(path))
	if !errors.HasCode(err, errors.ErrCodeInvalidConfig) {
		t.Fatalf("expected INVALID_CONFIG, got %v", err)
	}
}

func TestWatcher_ReloadNotifies(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "name: w\npipeline:\n  workers: 2\n")
	w, err := NewWatcher[watchedConfig]("w", WithConfigFile(path))
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}

	var mu sync.Mutex
	var seen []int
	unsubscribe := w.Subscribe(func(c watchedConfig) {
		mu.Lock()
		seen = append(seen, c.Pipeline.Workers)
		mu.Unlock()
	})

	writeConfig(t, dir, "name: w\npipeline:\n  workers: 5\n")
	if err := w.Reload(); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}
	if got := w.Current().Pipeline.Workers; got != 5 {
		t.Errorf("expected current workers 5, got %d", got)
	}

	unsubscribe()
	writeConfig(t, dir, "name: w\npipeline:\n  workers: 7\n")
	if err := w.Reload(); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 1 || seen[0] != 5 {
		t.Errorf("expected a single notification with 5, got %v", seen)
	}
}

func TestWatcher_InvalidReloadKeepsPrevious(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "name: w\npipeline:\n  workers: 3\n")
	w, err := NewWatcher[watchedConfig]("w", WithConfigFile(path))
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}
	calls := 0
	w.Subscribe(func(watchedConfig) { calls++ })

	writeConfig(t, dir, "name: w\npipeline:\n  workers: 0\n") // defaults to 1, valid
	if err := w.Reload(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	writeConfig(t, dir, "name: w\npipeline:\n  workers: 100\n")
	if err := w.Reload(); err == nil {
		t.Fatal("expected validation error")
	}
	if got := w.Current().Pipeline.Workers; got != 1 {
		t.Errorf("expected previous value 1 to remain, got %d", got)
	}
	if calls != 1 {
		t.Errorf("expected 1 notification, got %d", calls)
	}
}

func TestWatcher_CloseStopsNotifications(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "name: w\n")
	w, err := NewWatcher[watchedConfig]("w", WithConfigFile(path))
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}
	calls := 0
	w.Subscribe(func(watchedConfig) { calls++ })
	w.Close()

	writeConfig(t, dir, "name: w\npipeline:\n  workers: 4\n")
	_ = w.Reload()
	if calls != 0 {
		t.Errorf("expected no notifications after Close, got %d", calls)
	}
}
