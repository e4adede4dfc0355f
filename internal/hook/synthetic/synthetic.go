// Package synthetic replays a scripted list of native events. It backs
// the "synthetic" capture backend used for demos and headless tests.
package synthetic

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"inputcap/internal/capture"
	"inputcap/internal/input"
)

// Hook replays Events once, Interval apart, then idles until ctx ends
type Hook struct {
	Events   []input.NativeEvent
	Interval time.Duration
}

func New(events []input.NativeEvent, interval time.Duration) *Hook {
	return &Hook{Events: events, Interval: interval}
}

func (h *Hook) Listen(ctx context.Context, handler capture.Handler) error {
	handler.Ready()

	var tick <-chan time.Time
	if h.Interval > 0 {
		ticker := time.NewTicker(h.Interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for _, ev := range h.Events {
		if tick != nil {
			select {
			case <-ctx.Done():
				return nil
			case <-tick:
			}
		} else if ctx.Err() != nil {
			return nil
		}
		handler.Handle(ev)
	}

	<-ctx.Done()
	return nil
}

// Parse reads a script with one event per line:
//
//	key_press KeyA
//	key_release KeyA
//	mouse_move 100 200
//	mouse_press Left
//	mouse_release Left
//	wheel 0 -1
//
// Blank lines and lines starting with # are ignored.
func Parse(script string) ([]input.NativeEvent, error) {
	var events []input.NativeEvent
	for i, line := range strings.Split(script, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		ev, err := parseLine(strings.Fields(line))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		events = append(events, ev)
	}
	return events, nil
}

func parseLine(f []string) (input.NativeEvent, error) {
	t, err := input.ParseEventType(f[0])
	if err != nil {
		return nil, err
	}

	switch t {
	case input.KeyPress, input.KeyRelease, input.MousePress, input.MouseRelease:
		if len(f) != 2 {
			return nil, fmt.Errorf("%s takes one argument", t)
		}
	default:
		if len(f) != 3 {
			return nil, fmt.Errorf("%s takes two arguments", t)
		}
	}

	switch t {
	case input.KeyPress:
		return input.KeyPressed{Key: input.Key(f[1])}, nil
	case input.KeyRelease:
		return input.KeyReleased{Key: input.Key(f[1])}, nil
	case input.MousePress:
		return input.ButtonPressed{Button: input.Button(f[1])}, nil
	case input.MouseRelease:
		return input.ButtonReleased{Button: input.Button(f[1])}, nil
	}

	a, err := strconv.ParseInt(f[1], 10, 32)
	if err != nil {
		return nil, err
	}
	b, err := strconv.ParseInt(f[2], 10, 32)
	if err != nil {
		return nil, err
	}
	if t == input.MouseMove {
		return input.PointerMoved{X: int32(a), Y: int32(b)}, nil
	}
	return input.WheelScrolled{DX: int32(a), DY: int32(b)}, nil
}
