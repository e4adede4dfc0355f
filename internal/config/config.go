// Package config provides configuration management for the input capture service.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"inputcap/internal/logging"
)

// Config represents the application configuration
type Config struct {
	// Capture controls the hook backend and forwarding
	Capture CaptureConfig `json:"capture" yaml:"capture" toml:"capture"`

	// API controls the local HTTP/websocket surface
	API APIConfig `json:"api" yaml:"api" toml:"api"`

	// General contains general application settings
	General GeneralConfig `json:"general" yaml:"general" toml:"general"`
}

// CaptureConfig contains hook and forwarding settings
type CaptureConfig struct {
	// Backend is one of auto, gohook, evdev, winhook, synthetic
	Backend string `json:"backend" yaml:"backend" toml:"backend"`

	// DevicePath pins the evdev backend to one device (e.g. "/dev/input/event3")
	DevicePath string `json:"device_path,omitempty" yaml:"device_path,omitempty" toml:"device_path,omitempty"`

	// AutoStart calls start_input_listener at launch
	AutoStart bool `json:"auto_start" yaml:"auto_start" toml:"auto_start"`

	// QueueSize bounds the buffer in front of the UI sinks. Zero forwards directly.
	QueueSize int `json:"queue_size" yaml:"queue_size" toml:"queue_size"`

	// DropPolicy is drop_oldest or drop_newest
	DropPolicy string `json:"drop_policy" yaml:"drop_policy" toml:"drop_policy"`

	// ReadyTimeout warns when the hook has not come up in time
	ReadyTimeout Duration `json:"ready_timeout" yaml:"ready_timeout" toml:"ready_timeout"`
}

// APIConfig contains settings for the HTTP API server
type APIConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled" toml:"enabled"`

	// Addr is the listen address (default: 127.0.0.1:18080)
	Addr string `json:"addr" yaml:"addr" toml:"addr"`

	// Token is an optional bearer token for API requests
	Token string `json:"token,omitempty" yaml:"token,omitempty" toml:"token,omitempty"`
}

// GeneralConfig contains general application settings
type GeneralConfig struct {
	// ShowNotifications shows a desktop notification when the hook fails
	ShowNotifications bool `json:"show_notifications" yaml:"show_notifications" toml:"show_notifications"`

	// ToggleHotkey toggles capture (e.g. "Ctrl+Shift+F12"). Empty disables it.
	ToggleHotkey string `json:"toggle_hotkey,omitempty" yaml:"toggle_hotkey,omitempty" toml:"toggle_hotkey,omitempty"`

	LogLevel string `json:"log_level" yaml:"log_level" toml:"log_level"`

	// Tray shows the system tray icon
	Tray bool `json:"tray" yaml:"tray" toml:"tray"`
}

// Duration is a time.Duration written as text ("5s") in every format
type Duration time.Duration

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "" {
		*d = 0
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Std returns d as a time.Duration
func (d Duration) Std() time.Duration { return time.Duration(d) }

var backends = []string{"auto", "gohook", "evdev", "winhook", "synthetic"}

// DefaultConfig returns a new Config with sensible defaults
func DefaultConfig() Config {
	return Config{
		Capture: CaptureConfig{
			Backend:      "auto",
			QueueSize:    1024,
			DropPolicy:   "drop_oldest",
			ReadyTimeout: Duration(5 * time.Second),
		},
		API: APIConfig{
			Enabled: true,
			Addr:    "127.0.0.1:18080",
		},
		General: GeneralConfig{
			ShowNotifications: true,
			ToggleHotkey:      "Ctrl+Shift+F12",
			LogLevel:          "info",
			Tray:              true,
		},
	}
}

// Validate normalizes c in place and reports every invalid field
func (c *Config) Validate() error {
	var errs []error

	c.Capture.Backend = strings.ToLower(strings.TrimSpace(c.Capture.Backend))
	if c.Capture.Backend == "" {
		c.Capture.Backend = "auto"
	}
	if !contains(backends, c.Capture.Backend) {
		errs = append(errs, fmt.Errorf("capture.backend: unknown backend %q (expected %s)", c.Capture.Backend, strings.Join(backends, "|")))
	}

	if c.Capture.QueueSize < 0 {
		errs = append(errs, fmt.Errorf("capture.queue_size: must not be negative, got %d", c.Capture.QueueSize))
	}

	c.Capture.DropPolicy = strings.ToLower(strings.TrimSpace(c.Capture.DropPolicy))
	switch c.Capture.DropPolicy {
	case "":
		c.Capture.DropPolicy = "drop_oldest"
	case "drop_oldest", "drop_newest":
	default:
		errs = append(errs, fmt.Errorf("capture.drop_policy: invalid policy %q", c.Capture.DropPolicy))
	}

	if c.Capture.ReadyTimeout < 0 {
		errs = append(errs, fmt.Errorf("capture.ready_timeout: must not be negative"))
	}

	if c.API.Enabled && strings.TrimSpace(c.API.Addr) == "" {
		errs = append(errs, fmt.Errorf("api.addr: required when the API is enabled"))
	}

	if _, err := logging.ParseLevel(c.General.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("general.log_level: %w", err))
	}

	return errors.Join(errs...)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
