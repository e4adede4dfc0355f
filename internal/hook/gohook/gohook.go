//go:build cgo

// Package gohook captures global input through libuiohook (X11, macOS,
// Windows) using github.com/robotn/gohook.
package gohook

import (
	"context"
	"errors"
	"sync/atomic"

	hook "github.com/robotn/gohook"

	"inputcap/internal/capture"
	hookpkg "inputcap/internal/hook"
	"inputcap/internal/input"
	"inputcap/internal/logging"
)

// libuiohook wheel directions
const (
	wheelVertical   = 3
	wheelHorizontal = 4
)

// gohook keeps a single package-level event channel
var active atomic.Bool

// Hook implements capture.Hook on top of gohook
type Hook struct {
	logger logging.Logger
}

func New(logger logging.Logger) *Hook {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Hook{logger: logger}
}

// Listen starts libuiohook and delivers translated events until ctx ends.
// Only one Listen may run per process.
func (h *Hook) Listen(ctx context.Context, handler capture.Handler) error {
	if !active.CompareAndSwap(false, true) {
		return hookpkg.ErrInUse
	}
	defer active.Store(false)

	handler = hookpkg.ReadyOnFirstEvent(handler)

	events := hook.Start()
	defer hook.End()
	h.logger.Debug("libuiohook started")

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-events:
			if !ok {
				return errors.New("gohook: event channel closed")
			}
			switch ev.Kind {
			case hook.HookEnabled:
				handler.Ready()
				continue
			case hook.HookDisabled:
				h.logger.Warn("libuiohook reported hook disabled")
				return nil
			}
			if n, ok := Translate(ev); ok {
				handler.Handle(n)
			}
		}
	}
}

// Translate converts a gohook event. Typed and clicked events duplicate
// press/release pairs and are skipped.
func Translate(ev hook.Event) (input.NativeEvent, bool) {
	switch ev.Kind {
	case hook.KeyHold:
		return input.KeyPressed{Key: keyName(ev.Keycode)}, true
	case hook.KeyUp:
		return input.KeyReleased{Key: keyName(ev.Keycode)}, true
	case hook.MouseMove, hook.MouseDrag:
		return input.PointerMoved{X: int32(ev.X), Y: int32(ev.Y)}, true
	case hook.MouseHold:
		return input.ButtonPressed{Button: buttonName(ev.Button)}, true
	case hook.MouseDown:
		return input.ButtonReleased{Button: buttonName(ev.Button)}, true
	case hook.MouseWheel:
		// libuiohook rotation is positive towards the user
		if ev.Direction == wheelHorizontal {
			return input.WheelScrolled{DX: ev.Rotation}, true
		}
		return input.WheelScrolled{DY: -ev.Rotation}, true
	}
	return nil, false
}

func buttonName(b uint16) input.Button {
	switch b {
	case 1:
		return input.ButtonLeft
	case 2:
		return input.ButtonRight
	case 3:
		return input.ButtonMiddle
	}
	return input.UnknownButton(uint32(b))
}

// libuiohook VC_* codes outside the shared set 1 block
var extendedKeys = map[uint16]input.Key{
	0x0E1C: "KpReturn",
	0x0E1D: "ControlRight",
	0x0E35: "KpDivide",
	0x0E37: "PrintScreen",
	0x0E38: "AltGr",
	0x0E45: "Pause",
	0x0E47: "Home",
	0xE048: "UpArrow",
	0x0E49: "PageUp",
	0xE04B: "LeftArrow",
	0xE04D: "RightArrow",
	0x0E4F: "End",
	0xE050: "DownArrow",
	0x0E51: "PageDown",
	0x0E52: "Insert",
	0x0E53: "Delete",
	0x0E5B: "MetaLeft",
	0x0E5C: "MetaRight",
}

func keyName(code uint16) input.Key {
	if k, ok := input.KeyFromScancode(code); ok {
		return k
	}
	if k, ok := extendedKeys[code]; ok {
		return k
	}
	return input.UnknownKey(uint32(code))
}
