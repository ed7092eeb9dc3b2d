package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/printdesk/printdesk/internal/errors"
)

func TestNew(t *testing.T) {
	cfg := New()

	if cfg.Server.Port != DefaultPort {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, DefaultPort)
	}
	if cfg.Server.Host != DefaultHost {
		t.Errorf("Server.Host = %q, want %q", cfg.Server.Host, DefaultHost)
	}
	if cfg.Storage.Dir != DefaultUploadDir {
		t.Errorf("Storage.Dir = %q, want %q", cfg.Storage.Dir, DefaultUploadDir)
	}
	if cfg.VNC.ConnectionsFile != DefaultConnectionsFile {
		t.Errorf("VNC.ConnectionsFile = %q, want %q", cfg.VNC.ConnectionsFile, DefaultConnectionsFile)
	}
	if cfg.Frontend.Build.Minify {
		t.Error("Frontend.Build.Minify should default to false")
	}
	if cfg.Frontend.Build.Target != "esnext" {
		t.Errorf("Frontend.Build.Target = %q, want esnext", cfg.Frontend.Build.Target)
	}
	if got := strings.Join(cfg.Frontend.Build.Plugins, ","); got != "vue,top-level-await" {
		t.Errorf("Frontend.Build.Plugins = %q", got)
	}
	if cfg.Frontend.Build.Alias["@"] != "src" {
		t.Errorf("Frontend.Build.Alias[@] = %q, want src", cfg.Frontend.Build.Alias["@"])
	}
	if !cfg.CustomTargetAllowed() {
		t.Error("custom targets should be allowed by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoad(t *testing.T) {
	tmpDir := t.TempDir()

	// Test loading non-existent config
	_, err := Load(tmpDir)
	if !errors.Is(err, "E101") {
		t.Errorf("Load on empty dir = %v, want E101", err)
	}

	configPath := filepath.Join(tmpDir, ConfigFileName)
	configJSON := `{
  "server": {
    "port": 8080,
    "host": "127.0.0.1"
  },
  "storage": {
    "dir": "files"
  },
  "vnc": {
    "allowCustomTarget": false,
    "heartbeatInterval": "15s"
  },
  "print": {
    "printer": "office"
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

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Address() != "127.0.0.1:8080" {
		t.Errorf("Address() = %q", cfg.Address())
	}
	if cfg.CustomTargetAllowed() {
		t.Error("allowCustomTarget: false should be honoured")
	}
	if got := Duration(cfg.VNC.HeartbeatInterval); got != 15*time.Second {
		t.Errorf("heartbeat = %v, want 15s", got)
	}
	if cfg.Print.Printer != "office" {
		t.Errorf("Print.Printer = %q", cfg.Print.Printer)
	}
	// Defaults survive for unset fields.
	if cfg.Print.Command != "lp" {
		t.Errorf("Print.Command = %q, want lp", cfg.Print.Command)
	}
	if cfg.VNC.BufferSize != DefaultBufferSize {
		t.Errorf("VNC.BufferSize = %d", cfg.VNC.BufferSize)
	}
	if cfg.UploadPath() != filepath.Join(tmpDir, "files") {
		t.Errorf("UploadPath() = %q", cfg.UploadPath())
	}
	if cfg.Path() != configPath {
		t.Errorf("Path() = %q, want %q", cfg.Path(), configPath)
	}
}

func TestLoadYAML(t *testing.T) {
	tmpDir := t.TempDir()
	yamlCfg := `server:
  port: 9000
storage:
  backend: s3
  s3:
    bucket: kiosk-files
    region: eu-west-1
frontend:
  build:
    minify: true
log:
  level: debug
`
	if err := os.WriteFile(filepath.Join(tmpDir, YAMLConfigFileName), []byte(yamlCfg), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("Server.Port = %d, want 9000", cfg.Server.Port)
	}
	if cfg.Storage.Backend != BackendS3 || cfg.Storage.S3.Bucket != "kiosk-files" {
		t.Errorf("Storage = %+v", cfg.Storage)
	}
	if !cfg.Frontend.Build.Minify {
		t.Error("Minify should be true")
	}
	if cfg.Frontend.Build.Target != "esnext" {
		t.Errorf("Target = %q, want default esnext", cfg.Frontend.Build.Target)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoadFileInvalid(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, ConfigFileName)
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := LoadFile(path)
	if !errors.Is(err, "E102") {
		t.Errorf("LoadFile = %v, want E102", err)
	}

	_, err = LoadFile(filepath.Join(tmpDir, "missing.json"))
	if !errors.Is(err, "E101") {
		t.Errorf("LoadFile(missing) = %v, want E101", err)
	}
}

func TestLoadOrDefault(t *testing.T) {
	tmpDir := t.TempDir()
	cfg, err := LoadOrDefault(tmpDir)
	if err != nil {
		t.Fatalf("LoadOrDefault: %v", err)
	}
	if cfg.Server.Port != DefaultPort {
		t.Errorf("Server.Port = %d", cfg.Server.Port)
	}
	if cfg.Dir() != tmpDir {
		t.Errorf("Dir() = %q, want %q", cfg.Dir(), tmpDir)
	}
}

func TestSave(t *testing.T) {
	tmpDir := t.TempDir()
	cfg := New()
	cfg.Server.Port = 3000
	cfg.Print.Printer = "lobby"

	path := filepath.Join(tmpDir, ConfigFileName)
	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(string(data), "\n") {
		t.Error("saved JSON should end with a newline")
	}

	loaded, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if loaded.Server.Port != 3000 || loaded.Print.Printer != "lobby" {
		t.Errorf("round trip lost values: %+v", loaded.Server)
	}

	loaded.Server.Port = 3001
	if err := loaded.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	if err := New().Save(); err == nil {
		t.Error("Save without a path should fail")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }, false},
		{"unknown backend", func(c *Config) { c.Storage.Backend = "ftp" }, false},
		{"s3 without bucket", func(c *Config) { c.Storage.Backend = BackendS3 }, false},
		{"bad duration", func(c *Config) { c.VNC.DialTimeout = "soon" }, false},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }, false},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, false},
		{"negative buffer", func(c *Config) { c.VNC.BufferSize = -1 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := New()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.ok && err != nil {
				t.Errorf("Validate() = %v, want nil", err)
			}
			if !tt.ok && !errors.Is(err, "E103") {
				t.Errorf("Validate() = %v, want E103", err)
			}
		})
	}
}

func TestShutdownTimeout(t *testing.T) {
	cfg := New()
	if cfg.ShutdownTimeout() != 5*time.Second {
		t.Errorf("ShutdownTimeout() = %v", cfg.ShutdownTimeout())
	}
	cfg.Server.ShutdownTimeout = "250ms"
	if cfg.ShutdownTimeout() != 250*time.Millisecond {
		t.Errorf("ShutdownTimeout() = %v", cfg.ShutdownTimeout())
	}
}
