package hotkey

import (
	"reflect"
	"sync/atomic"
	"testing"
	"time"

	"inputcap/internal/input"
)

func waitCount(t *testing.T, n *atomic.Int32, want int32) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if n.Load() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("Expected %d triggers, got %d", want, n.Load())
}

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"Ctrl+Shift+F12", []string{"CTRL", "SHIFT", "F12"}},
		{"control + alt + a", []string{"CTRL", "ALT", "KEYA"}},
		{"Cmd+1", []string{"META", "NUM1"}},
		{"Esc", []string{"ESCAPE"}},
		{"Ctrl+MouseMiddle", []string{"CTRL", "MOUSEMIDDLE"}},
	}
	for _, tt := range tests {
		got, err := Parse(tt.in)
		if err != nil {
			t.Fatalf("Parse(%q) failed: %v", tt.in, err)
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Parse(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}

	if _, err := Parse("Ctrl++A"); err == nil {
		t.Error("Expected error for empty part")
	}
}

func TestRegisterRejectsEmpty(t *testing.T) {
	m := NewManager(nil)
	if _, err := m.Register("  ", func() {}); err != ErrEmptyHotkey {
		t.Errorf("Expected ErrEmptyHotkey, got %v", err)
	}
}

func TestObserveTriggersOnCombination(t *testing.T) {
	m := NewManager(nil)
	var count atomic.Int32
	m.Register("Ctrl+Shift+F12", func() { count.Add(1) })

	m.Observe(input.KeyPressed{Key: "ControlRight"})
	m.Observe(input.KeyPressed{Key: "ShiftLeft"})
	m.Observe(input.KeyPressed{Key: "F12"})
	waitCount(t, &count, 1)

	// Auto-repeat does not re-trigger
	m.Observe(input.KeyPressed{Key: "F12"})
	time.Sleep(20 * time.Millisecond)
	if got := count.Load(); got != 1 {
		t.Errorf("Expected repeat to be ignored, got %d triggers", got)
	}

	m.Observe(input.KeyReleased{Key: "F12"})
	m.Observe(input.KeyPressed{Key: "F12"})
	waitCount(t, &count, 2)
}

func TestObserveIgnoresPartialCombination(t *testing.T) {
	m := NewManager(nil)
	var count atomic.Int32
	m.Register("Ctrl+A", func() { count.Add(1) })

	m.Observe(input.KeyPressed{Key: "KeyA"})
	m.Observe(input.KeyReleased{Key: "KeyA"})
	m.Observe(input.KeyPressed{Key: "ControlLeft"})
	time.Sleep(20 * time.Millisecond)

	if got := count.Load(); got != 0 {
		t.Errorf("Expected no trigger, got %d", got)
	}

	// Pressing an unrelated key with the combo held does not trigger
	m.Observe(input.KeyPressed{Key: "KeyA"})
	waitCount(t, &count, 1)
	m.Observe(input.KeyPressed{Key: "KeyB"})
	time.Sleep(20 * time.Millisecond)
	if got := count.Load(); got != 1 {
		t.Errorf("Expected unrelated key to be ignored, got %d", got)
	}
}

func TestObserveMouseButtons(t *testing.T) {
	m := NewManager(nil)
	var count atomic.Int32
	m.Register("Ctrl+MouseMiddle", func() { count.Add(1) })

	m.Observe(input.KeyPressed{Key: "ControlLeft"})
	m.Observe(input.ButtonPressed{Button: input.ButtonMiddle})
	waitCount(t, &count, 1)
}

func TestClear(t *testing.T) {
	m := NewManager(nil)
	var count atomic.Int32
	m.Register("F9", func() { count.Add(1) })
	m.Clear()

	m.Observe(input.KeyPressed{Key: "F9"})
	time.Sleep(20 * time.Millisecond)
	if got := count.Load(); got != 0 {
		t.Errorf("Expected cleared hotkeys not to fire, got %d", got)
	}
}
