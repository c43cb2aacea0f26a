package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	cfg := New()

	if cfg.Devtools.Port != DefaultPort {
		t.Errorf("Devtools.Port = %d, want %d", cfg.Devtools.Port, DefaultPort)
	}
	if cfg.Devtools.Host != DefaultHost {
		t.Errorf("Devtools.Host = %q, want %q", cfg.Devtools.Host, DefaultHost)
	}
	if cfg.Metrics.Namespace != DefaultNamespace {
		t.Errorf("Metrics.Namespace = %q, want %q", cfg.Metrics.Namespace, DefaultNamespace)
	}
	if !cfg.Metrics.Enabled {
		t.Error("Metrics.Enabled should default to true")
	}
	if cfg.Tracing.Enabled {
		t.Error("Tracing.Enabled should default to false")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoad(t *testing.T) {
	tmpDir := t.TempDir()

	// Test loading non-existent config
	_, err := Load(tmpDir)
	if err == nil {
		t.Error("Expected error for missing config")
	}

	configPath := filepath.Join(tmpDir, ConfigFileName)
	configJSON := `{
  "log": {
    "level": "DEBUG",
    "format": "json"
  },
  "devtools": {
    "port": 8080,
    "allowedOrigins": ["http://localhost:5173"]
  },
  "metrics": {
    "enabled": false
  },
  "tracing": {
    "enabled": true,
    "tracerName": "demo"
  },
  "debug": {
    "logEffectRuns": true
  },
  "archive": {
    "location": "s3://runs/ci",
    "region": "eu-west-1"
  }
}
`
	if err := os.WriteFile(configPath, []byte(configJSON), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want %q", cfg.Log.Level, "debug")
	}
	if cfg.Log.Format != "json" {
		t.Errorf("Log.Format = %q, want %q", cfg.Log.Format, "json")
	}
	if cfg.Devtools.Port != 8080 {
		t.Errorf("Devtools.Port = %d, want %d", cfg.Devtools.Port, 8080)
	}
	if cfg.Devtools.Host != DefaultHost {
		t.Errorf("Devtools.Host = %q, want default %q", cfg.Devtools.Host, DefaultHost)
	}
	if len(cfg.Devtools.AllowedOrigins) != 1 {
		t.Errorf("AllowedOrigins len = %d, want 1", len(cfg.Devtools.AllowedOrigins))
	}
	if cfg.Metrics.Enabled {
		t.Error("Metrics.Enabled should be false")
	}
	if cfg.Metrics.Namespace != DefaultNamespace {
		t.Errorf("Metrics.Namespace = %q, want default", cfg.Metrics.Namespace)
	}
	if !cfg.Tracing.Enabled || cfg.Tracing.TracerName != "demo" {
		t.Errorf("Tracing = %+v", cfg.Tracing)
	}
	if !cfg.Debug.LogEffectRuns {
		t.Error("Debug.LogEffectRuns should be true")
	}
	if cfg.Archive.Location != "s3://runs/ci" || cfg.Archive.Region != "eu-west-1" {
		t.Errorf("Archive = %+v", cfg.Archive)
	}
	if cfg.Path() != configPath {
		t.Errorf("Path = %q, want %q", cfg.Path(), configPath)
	}
}

func TestLoadFile_InvalidJSON(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), ConfigFileName)
	if err := os.WriteFile(configPath, []byte("not valid json"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := LoadFile(configPath)
	if err == nil {
		t.Fatal("Expected error for invalid JSON")
	}
	if !strings.Contains(err.Error(), "E201") {
		t.Errorf("Expected E201 error, got: %v", err)
	}
}

func TestLoadFile_InvalidValue(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), ConfigFileName)
	if err := os.WriteFile(configPath, []byte(`{"log": {"format": "xml"}}`), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := LoadFile(configPath)
	if err == nil {
		t.Fatal("Expected error for unknown log format")
	}
	if !strings.Contains(err.Error(), "E202") {
		t.Errorf("Expected E202 error, got: %v", err)
	}
}

func TestLoadOrDefault(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatalf("LoadOrDefault error: %v", err)
	}
	if cfg.Devtools.Port != DefaultPort {
		t.Errorf("Devtools.Port = %d, want %d", cfg.Devtools.Port, DefaultPort)
	}
	if cfg.Path() != "" {
		t.Errorf("Path = %q, want empty", cfg.Path())
	}
}

func TestSave(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, ConfigFileName)

	cfg := New()
	cfg.Devtools.Port = 9000

	// Save should fail without configPath set
	if err := cfg.Save(); err == nil {
		t.Error("Expected error when saving without path")
	}

	if err := cfg.SaveTo(configPath); err != nil {
		t.Fatalf("SaveTo error: %v", err)
	}
	if !Exists(tmpDir) {
		t.Error("Exists should be true after SaveTo")
	}

	loaded, err := LoadFile(configPath)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if loaded.Devtools.Port != 9000 {
		t.Errorf("Devtools.Port = %d, want %d", loaded.Devtools.Port, 9000)
	}

	loaded.Devtools.Port = 9001
	if err := loaded.Save(); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	reloaded, err := LoadFile(configPath)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if reloaded.Devtools.Port != 9001 {
		t.Errorf("Devtools.Port = %d, want %d", reloaded.Devtools.Port, 9001)
	}
}

func TestValidate(t *testing.T) {
	cfg := New()

	cfg.Devtools.Port = -1
	if err := cfg.Validate(); err == nil {
		t.Error("Validate should fail for negative port")
	}

	cfg.Devtools.Port = 70000
	if err := cfg.Validate(); err == nil {
		t.Error("Validate should fail for port > 65535")
	}

	cfg = New()
	cfg.Log.Level = "loud"
	if err := cfg.Validate(); err == nil {
		t.Error("Validate should fail for unknown level")
	}

	cfg = New()
	cfg.Archive.Location = "s3://"
	if err := cfg.Validate(); err == nil {
		t.Error("Validate should fail for an archive URL without bucket")
	}
}

func TestSlogLevel(t *testing.T) {
	tests := []struct {
		level string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
	}
	for _, tt := range tests {
		cfg := New()
		cfg.Log.Level = tt.level
		got, err := cfg.SlogLevel()
		if err != nil {
			t.Errorf("SlogLevel(%q) error: %v", tt.level, err)
			continue
		}
		if got != tt.want {
			t.Errorf("SlogLevel(%q) = %v, want %v", tt.level, got, tt.want)
		}
	}
}

func TestDevtoolsAddress(t *testing.T) {
	cfg := New()
	cfg.Devtools.Host = "0.0.0.0"
	cfg.Devtools.Port = 8080

	if addr := cfg.DevtoolsAddress(); addr != "0.0.0.0:8080" {
		t.Errorf("DevtoolsAddress = %q, want %q", addr, "0.0.0.0:8080")
	}
}
