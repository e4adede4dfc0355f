// Package hotkey matches key and mouse button combinations observed on the
// capture hook against registered shortcuts.
package hotkey

import (
	"errors"
	"strings"
	"sync"

	"inputcap/internal/input"
	"inputcap/internal/logging"
)

var ErrEmptyHotkey = errors.New("hotkey: empty combination")

// Manager handles hotkey registration and matching
type Manager struct {
	mu           sync.RWMutex
	hotkeys      []*registeredHotkey
	currentState map[string]bool // map of current keys/buttons pressed
	logger       logging.Logger
}

type registeredHotkey struct {
	parts    []string // e.g., ["CTRL", "SHIFT", "F12"]
	original string
	callback func()
}

// NewManager creates a new hotkey manager
func NewManager(logger logging.Logger) *Manager {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Manager{
		currentState: make(map[string]bool),
		logger:       logger,
	}
}

var aliases = map[string]string{
	"CONTROL": "CTRL",
	"CMD":     "META",
	"COMMAND": "META",
	"SUPER":   "META",
	"WIN":     "META",
	"OPTION":  "ALT",
	"ESC":     "ESCAPE",
	"ENTER":   "RETURN",
	"DEL":     "DELETE",
}

// Parse splits a combination like "Ctrl+Shift+F12" into canonical parts
func Parse(hotkeyStr string) ([]string, error) {
	var parts []string
	for _, p := range strings.Split(hotkeyStr, "+") {
		p = strings.ToUpper(strings.TrimSpace(p))
		if p == "" {
			return nil, ErrEmptyHotkey
		}
		if alias, ok := aliases[p]; ok {
			p = alias
		}
		switch {
		case len(p) == 1 && p[0] >= 'A' && p[0] <= 'Z':
			p = "KEY" + p
		case len(p) == 1 && p[0] >= '0' && p[0] <= '9':
			p = "NUM" + p
		}
		parts = append(parts, p)
	}
	return parts, nil
}

// Register registers a hotkey string (e.g. "Ctrl+Alt+1", "Ctrl+MouseMiddle") and a callback.
func (m *Manager) Register(hotkeyStr string, callback func()) (int, error) {
	if strings.TrimSpace(hotkeyStr) == "" {
		return 0, ErrEmptyHotkey
	}
	parts, err := Parse(hotkeyStr)
	if err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.hotkeys = append(m.hotkeys, &registeredHotkey{
		parts:    parts,
		original: hotkeyStr,
		callback: callback,
	})

	return len(m.hotkeys) - 1, nil
}

// Clear removes all registered hotkeys
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hotkeys = nil
}

// Observe feeds a native notification into the key state. It is meant to
// be installed as the capture tap.
func (m *Manager) Observe(n input.NativeEvent) {
	switch e := n.(type) {
	case input.KeyPressed:
		m.UpdateState(input.Modifier(e.Key), true)
	case input.KeyReleased:
		m.UpdateState(input.Modifier(e.Key), false)
	case input.ButtonPressed:
		m.UpdateState("MOUSE"+string(e.Button), true)
	case input.ButtonReleased:
		m.UpdateState("MOUSE"+string(e.Button), false)
	}
}

// UpdateState updates the internal state of a key or button and checks
// for matches. Only the transition to down triggers; auto-repeat does not.
func (m *Manager) UpdateState(key string, isDown bool) {
	m.mu.Lock()
	key = strings.ToUpper(key)
	wasDown := m.currentState[key]
	if isDown {
		m.currentState[key] = true
	} else {
		delete(m.currentState, key)
	}
	m.mu.Unlock()

	if isDown && !wasDown {
		m.checkMatches(key)
	}
}

func (m *Manager) checkMatches(trigger string) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, hk := range m.hotkeys {
		match := false
		// All parts of the hotkey must be held, and the new key must be one of them
		for _, part := range hk.parts {
			if !m.currentState[part] {
				match = false
				break
			}
			if part == trigger {
				match = true
			}
		}

		if match {
			m.logger.Info("Hotkey triggered", "hotkey", hk.original)
			go hk.callback()
		}
	}
}
