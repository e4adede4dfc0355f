// Package backend picks and builds the capture.Hook for the configured
// backend name.
package backend

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"inputcap/internal/capture"
	"inputcap/internal/hook/evdev"
	"inputcap/internal/hook/gohook"
	"inputcap/internal/hook/synthetic"
	"inputcap/internal/hook/winhook"
	"inputcap/internal/input"
	"inputcap/internal/logging"
)

const (
	Auto      = "auto"
	GoHook    = "gohook"
	Evdev     = "evdev"
	WinHook   = "winhook"
	Synthetic = "synthetic"
)

// Options configures Open
type Options struct {
	Name       string
	DevicePath string

	// Script, ScriptFile and Interval drive the synthetic backend.
	// ScriptFile is read when Script is nil; with neither, DemoScript
	// is replayed.
	Script     []input.NativeEvent
	ScriptFile string
	Interval   time.Duration

	Logger logging.Logger
}

// Resolve maps a configured name to a concrete backend for goos. "auto"
// prefers winhook on Windows and evdev on Linux when a device is readable.
func Resolve(name, goos string, evdevReadable func() bool) (string, error) {
	switch name {
	case GoHook, Evdev, WinHook, Synthetic:
		return name, nil
	case Auto, "":
	default:
		return "", fmt.Errorf("unknown backend %q", name)
	}

	switch goos {
	case "windows":
		return WinHook, nil
	case "linux":
		if evdevReadable != nil && evdevReadable() {
			return Evdev, nil
		}
	}
	return GoHook, nil
}

// Open builds the hook for opts.Name on the running platform. The second
// result is the resolved backend name.
func Open(opts Options) (capture.Hook, string, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	name, err := Resolve(opts.Name, runtime.GOOS, evdev.Available)
	if err != nil {
		return nil, "", err
	}

	switch name {
	case Evdev:
		return evdev.New(opts.DevicePath, logger), name, nil
	case WinHook:
		return winhook.New(logger), name, nil
	case Synthetic:
		script := opts.Script
		if script == nil && opts.ScriptFile != "" {
			data, err := os.ReadFile(opts.ScriptFile)
			if err != nil {
				return nil, "", fmt.Errorf("read script: %w", err)
			}
			if script, err = synthetic.Parse(string(data)); err != nil {
				return nil, "", fmt.Errorf("parse %s: %w", opts.ScriptFile, err)
			}
			logger.Info("Loaded synthetic script", "path", opts.ScriptFile, "events", len(script))
		}
		if script == nil {
			script = DemoScript()
		}
		interval := opts.Interval
		if interval <= 0 {
			interval = 500 * time.Millisecond
		}
		return synthetic.New(script, interval), name, nil
	}
	return gohook.New(logger), name, nil
}

// DemoScript is a short click-and-type sequence
func DemoScript() []input.NativeEvent {
	return []input.NativeEvent{
		input.PointerMoved{X: 320, Y: 240},
		input.ButtonPressed{Button: input.ButtonLeft},
		input.ButtonReleased{Button: input.ButtonLeft},
		input.KeyPressed{Key: "KeyH"},
		input.KeyReleased{Key: "KeyH"},
		input.KeyPressed{Key: "KeyI"},
		input.KeyReleased{Key: "KeyI"},
		input.WheelScrolled{DY: -1},
	}
}
