package osutils

import (
	"strings"
	"testing"
)

func TestHints(t *testing.T) {
	tests := []struct {
		goos, backend string
		p             Privileges
		want          string
	}{
		{"linux", "evdev", Privileges{}, "input group"},
		{"linux", "gohook", Privileges{}, "Wayland"},
		{"windows", "winhook", Privileges{}, "administrator windows"},
		{"darwin", "gohook", Privileges{Elevated: true}, "Accessibility"},
	}
	for _, tt := range tests {
		hints := Hints(tt.goos, tt.backend, tt.p)
		if len(hints) != 1 || !strings.Contains(hints[0], tt.want) {
			t.Errorf("Hints(%s, %s, %+v) = %v, want one hint mentioning %q", tt.goos, tt.backend, tt.p, hints, tt.want)
		}
	}
}

func TestHintsSilentWithAccess(t *testing.T) {
	for _, p := range []Privileges{{InputGroup: true}, {Elevated: true}} {
		if hints := Hints("linux", "evdev", p); len(hints) != 0 {
			t.Errorf("Expected no hints for %+v, got %v", p, hints)
		}
	}
	if hints := Hints("windows", "winhook", Privileges{Elevated: true}); len(hints) != 0 {
		t.Errorf("Expected no hints for elevated windows, got %v", hints)
	}
	if hints := Hints("linux", "synthetic", Privileges{}); len(hints) != 0 {
		t.Errorf("Expected no hints for synthetic backend, got %v", hints)
	}
}
