package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"

	"inputcap/internal/logging"
)

// Manager handles loading and saving configuration
type Manager struct {
	mu         sync.Mutex
	configPath string
	format     Format
	config     Config
	onChanged  func(Config)
	logger     logging.Logger
}

// NewManager creates a manager for path. An empty path uses DefaultPath.
func NewManager(path string, logger logging.Logger) (*Manager, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	if logger == nil {
		logger = logging.Discard()
	}

	return &Manager{
		configPath: path,
		format:     FormatFor(path),
		config:     DefaultConfig(),
		logger:     logger,
	}, nil
}

// DefaultPath returns the per-user config file location
func DefaultPath() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, "Library", "Application Support", "inputcap")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			appData = filepath.Join(home, "AppData", "Roaming")
		}
		configDir = filepath.Join(appData, "inputcap")
	default:
		dir, err := os.UserConfigDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(dir, "inputcap")
	}

	return filepath.Join(configDir, "config.json"), nil
}

// Path returns the config file path
func (m *Manager) Path() string {
	return m.configPath
}

// Load reads the configuration from disk. A missing file keeps the defaults.
func (m *Manager) Load() error {
	data, err := os.ReadFile(m.configPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := Unmarshal(data, m.format, &cfg); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config %s: %w", m.configPath, err)
	}

	m.mu.Lock()
	m.config = cfg
	cb := m.onChanged
	m.mu.Unlock()

	if cb != nil {
		cb(cfg)
	}
	return nil
}

// Save writes the configuration to disk
func (m *Manager) Save() error {
	m.mu.Lock()
	cfg := m.config
	m.mu.Unlock()

	data, err := Marshal(cfg, m.format)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(m.configPath), 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	// Write then rename so the watcher never sees a half-written file
	tmp := m.configPath + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if err := os.Rename(tmp, m.configPath); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace config: %w", err)
	}

	m.logger.Info("Saved configuration", "path", m.configPath, "bytes", len(data))
	return nil
}

// Get returns a copy of the current configuration
func (m *Manager) Get() Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.config
}

// Set validates and replaces the configuration
func (m *Manager) Set(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	m.config = cfg
	cb := m.onChanged
	m.mu.Unlock()

	if cb != nil {
		cb(cfg)
	}
	return nil
}

// EnsureToken generates and saves an API token when the API is enabled
// without one. It reports whether a new token was written.
func (m *Manager) EnsureToken() (bool, error) {
	m.mu.Lock()
	if !m.config.API.Enabled || m.config.API.Token != "" {
		m.mu.Unlock()
		return false, nil
	}
	m.config.API.Token = uuid.NewString()
	m.mu.Unlock()

	if err := m.Save(); err != nil {
		return true, fmt.Errorf("save generated token: %w", err)
	}
	return true, nil
}

// RegisterChangeCallback registers a function to be called when config changes
func (m *Manager) RegisterChangeCallback(fn func(Config)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChanged = fn
}

// Watch reloads the file whenever it changes on disk until ctx is done.
// Invalid edits are logged and the previous configuration stays in effect.
func (m *Manager) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()

	// Watch the directory: editors replace files rather than write in place
	dir := filepath.Dir(m.configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	const debounce = 100 * time.Millisecond
	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	target := filepath.Clean(m.configPath)
	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
				timer.Reset(debounce)
			}

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			m.logger.Warn("Config watcher error", "err", err)

		case <-timer.C:
			if err := m.Load(); err != nil {
				m.logger.Error("Config reload failed, keeping previous settings", "err", err)
				continue
			}
			m.logger.Info("Configuration reloaded", "path", m.configPath)
		}
	}
}
