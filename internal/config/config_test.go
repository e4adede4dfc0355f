package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default config failed validation: %v", err)
	}
	if cfg.Capture.Backend != "auto" {
		t.Errorf("Expected backend 'auto', got %q", cfg.Capture.Backend)
	}
	if cfg.Capture.ReadyTimeout.Std() != 5*time.Second {
		t.Errorf("Expected ready timeout 5s, got %v", cfg.Capture.ReadyTimeout.Std())
	}
}

func TestValidateNormalizes(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Capture.Backend = " EVDEV "
	cfg.Capture.DropPolicy = ""

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if cfg.Capture.Backend != "evdev" {
		t.Errorf("Expected backend 'evdev', got %q", cfg.Capture.Backend)
	}
	if cfg.Capture.DropPolicy != "drop_oldest" {
		t.Errorf("Expected drop policy 'drop_oldest', got %q", cfg.Capture.DropPolicy)
	}
}

func TestValidateReportsAllErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Capture.Backend = "xinput"
	cfg.Capture.QueueSize = -1
	cfg.Capture.DropPolicy = "block"
	cfg.API.Addr = ""
	cfg.General.LogLevel = "loud"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Expected validation error")
	}
	for _, field := range []string{"capture.backend", "capture.queue_size", "capture.drop_policy", "api.addr", "general.log_level"} {
		if !strings.Contains(err.Error(), field) {
			t.Errorf("Expected error to mention %s, got %v", field, err)
		}
	}
}

func TestFormatFor(t *testing.T) {
	tests := map[string]Format{
		"config.json": FormatJSON,
		"config.YAML": FormatYAML,
		"config.yml":  FormatYAML,
		"config.toml": FormatTOML,
		"config":      FormatJSON,
	}
	for path, want := range tests {
		if got := FormatFor(path); got != want {
			t.Errorf("FormatFor(%q) = %s, want %s", path, got, want)
		}
	}
}

func TestSaveLoadEachFormat(t *testing.T) {
	for _, name := range []string{"config.json", "config.yaml", "config.toml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)

			m, err := NewManager(path, nil)
			if err != nil {
				t.Fatalf("NewManager failed: %v", err)
			}
			cfg := m.Get()
			cfg.Capture.Backend = "synthetic"
			cfg.Capture.QueueSize = 16
			cfg.Capture.ReadyTimeout = Duration(1500 * time.Millisecond)
			cfg.API.Token = "secret"
			cfg.General.ToggleHotkey = "Ctrl+Alt+F9"
			if err := m.Set(cfg); err != nil {
				t.Fatalf("Set failed: %v", err)
			}
			if err := m.Save(); err != nil {
				t.Fatalf("Save failed: %v", err)
			}

			loaded, _ := NewManager(path, nil)
			if err := loaded.Load(); err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			if got := loaded.Get(); got != cfg {
				t.Errorf("Expected %+v, got %+v", cfg, got)
			}
		})
	}
}

func TestLoadMissingFileKeepsDefaults(t *testing.T) {
	m, _ := NewManager(filepath.Join(t.TempDir(), "absent.json"), nil)
	if err := m.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if m.Get() != DefaultConfig() {
		t.Errorf("Expected defaults, got %+v", m.Get())
	}
}

func TestLoadPartialFileKeepsOtherDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	os.WriteFile(path, []byte("capture:\n  backend: gohook\n"), 0644)

	m, _ := NewManager(path, nil)
	if err := m.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	cfg := m.Get()
	if cfg.Capture.Backend != "gohook" {
		t.Errorf("Expected backend 'gohook', got %q", cfg.Capture.Backend)
	}
	if cfg.API.Addr != "127.0.0.1:18080" {
		t.Errorf("Expected default API addr, got %q", cfg.API.Addr)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	os.WriteFile(path, []byte("[capture]\nbackend = \"joystick\"\n"), 0644)

	m, _ := NewManager(path, nil)
	if err := m.Load(); err == nil {
		t.Fatal("Expected Load to reject unknown backend")
	}
	if m.Get().Capture.Backend != "auto" {
		t.Error("Expected previous config to stay in effect")
	}
}

func TestChangeCallback(t *testing.T) {
	m, _ := NewManager(filepath.Join(t.TempDir(), "config.json"), nil)

	var got Config
	m.RegisterChangeCallback(func(c Config) { got = c })

	cfg := m.Get()
	cfg.General.Tray = false
	if err := m.Set(cfg); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if got.General.Tray {
		t.Error("Expected callback to receive the new config")
	}
}

func TestEnsureTokenGeneratesOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	m, _ := NewManager(path, nil)

	created, err := m.EnsureToken()
	if err != nil {
		t.Fatalf("EnsureToken failed: %v", err)
	}
	token := m.Get().API.Token
	if !created || token == "" {
		t.Fatalf("Expected a generated token, got created=%v token=%q", created, token)
	}

	created, err = m.EnsureToken()
	if err != nil || created {
		t.Errorf("Expected existing token to be kept, got created=%v err=%v", created, err)
	}

	reloaded, _ := NewManager(path, nil)
	if err := reloaded.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got := reloaded.Get().API.Token; got != token {
		t.Errorf("Expected persisted token %q, got %q", token, got)
	}
}

func TestEnsureTokenSkipsDisabledAPI(t *testing.T) {
	m, _ := NewManager(filepath.Join(t.TempDir(), "config.json"), nil)
	cfg := m.Get()
	cfg.API.Enabled = false
	m.Set(cfg)

	if created, _ := m.EnsureToken(); created || m.Get().API.Token != "" {
		t.Error("Expected no token when the API is disabled")
	}
}

func TestWatchReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	m, _ := NewManager(path, nil)
	if err := m.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	changed := make(chan Config, 4)
	m.RegisterChangeCallback(func(c Config) { changed <- c })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- m.Watch(ctx) }()

	// Give the watcher time to register
	time.Sleep(100 * time.Millisecond)

	cfg := DefaultConfig()
	cfg.Capture.AutoStart = true
	data, _ := Marshal(cfg, FormatJSON)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	select {
	case c := <-changed:
		if !c.Capture.AutoStart {
			t.Errorf("Expected reloaded config to have auto_start, got %+v", c.Capture)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Timed out waiting for reload")
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Watch returned error: %v", err)
	}
}
