package sink

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"golang.org/x/term"

	"inputcap/internal/input"
)

// Console writes events to a stream: one readable line per event on a
// terminal, JSON lines otherwise.
type Console struct {
	mu    sync.Mutex
	w     io.Writer
	human bool
}

// NewConsole detects whether w is a terminal
func NewConsole(w io.Writer) *Console {
	human := false
	if f, ok := w.(interface{ Fd() uintptr }); ok {
		human = term.IsTerminal(int(f.Fd()))
	}
	return &Console{w: w, human: human}
}

type consoleRecord struct {
	Event string           `json:"event"`
	Data  input.InputEvent `json:"data"`
}

func (c *Console) Emit(name string, ev input.InputEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.human {
		_, err := fmt.Fprintf(c.w, "%-13s %s\n", ev.Type, Describe(ev))
		return err
	}
	return json.NewEncoder(c.w).Encode(consoleRecord{Event: name, Data: ev})
}

// Describe renders the fields relevant to ev's type
func Describe(ev input.InputEvent) string {
	switch ev.Type {
	case input.MouseMove:
		if ev.MouseX != nil && ev.MouseY != nil {
			return fmt.Sprintf("(%d, %d)", *ev.MouseX, *ev.MouseY)
		}
	case input.MousePress, input.MouseRelease:
		if ev.Button != nil {
			return *ev.Button
		}
	default:
		if ev.Key != nil {
			return *ev.Key
		}
	}
	return ""
}
