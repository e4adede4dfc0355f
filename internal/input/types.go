// Package input defines the canonical input event record and the native
// notification variants produced by the platform hook backends.
package input

import "fmt"

// EventType is the discriminant of an InputEvent
type EventType string

const (
	KeyPress     EventType = "key_press"
	KeyRelease   EventType = "key_release"
	MouseMove    EventType = "mouse_move"
	MousePress   EventType = "mouse_press"
	MouseRelease EventType = "mouse_release"
	Wheel        EventType = "wheel"
)

// Valid reports whether t is one of the known event types
func (t EventType) Valid() bool {
	switch t {
	case KeyPress, KeyRelease, MouseMove, MousePress, MouseRelease, Wheel:
		return true
	}
	return false
}

// ParseEventType converts the wire form back into an EventType
func ParseEventType(s string) (EventType, error) {
	t := EventType(s)
	if !t.Valid() {
		return "", fmt.Errorf("unknown event type %q", s)
	}
	return t, nil
}

// InputEvent represents one normalized keyboard or mouse occurrence.
// Only the fields relevant to Type are set; the rest stay nil and are
// serialized as null.
type InputEvent struct {
	Type   EventType `json:"event_type"`
	Key    *string   `json:"key"`
	MouseX *int32    `json:"mouse_x"`
	MouseY *int32    `json:"mouse_y"`
	Button *string   `json:"button"`

	// WheelDX and WheelDY carry wheel deltas as numbers. Key still holds
	// the "dx=<dx>,dy=<dy>" text for existing consumers.
	WheelDX *int32 `json:"wheel_dx"`
	WheelDY *int32 `json:"wheel_dy"`
}

// Key is the textual identifier of a keyboard key, e.g. "KeyA" or "ShiftLeft"
type Key string

// Button is the textual identifier of a mouse button
type Button string

const (
	ButtonLeft   Button = "Left"
	ButtonRight  Button = "Right"
	ButtonMiddle Button = "Middle"
)

// UnknownKey names a key code that has no mapping
func UnknownKey(code uint32) Key {
	return Key(fmt.Sprintf("Unknown(%d)", code))
}

// UnknownButton names a mouse button that has no mapping
func UnknownButton(n uint32) Button {
	return Button(fmt.Sprintf("Unknown(%d)", n))
}

// NativeEvent is a notification delivered by a platform hook. The set of
// variants is closed: only the types in this package implement it.
type NativeEvent interface {
	nativeEvent()
}

// KeyPressed is a key going down (including OS auto-repeat)
type KeyPressed struct{ Key Key }

// KeyReleased is a key going up
type KeyReleased struct{ Key Key }

// PointerMoved carries the pointer position in screen coordinates
type PointerMoved struct{ X, Y int32 }

// ButtonPressed is a mouse button going down
type ButtonPressed struct{ Button Button }

// ButtonReleased is a mouse button going up
type ButtonReleased struct{ Button Button }

// WheelScrolled carries wheel deltas in notches. Positive DY scrolls up,
// positive DX scrolls right.
type WheelScrolled struct{ DX, DY int32 }

func (KeyPressed) nativeEvent()     {}
func (KeyReleased) nativeEvent()    {}
func (PointerMoved) nativeEvent()   {}
func (ButtonPressed) nativeEvent()  {}
func (ButtonReleased) nativeEvent() {}
func (WheelScrolled) nativeEvent()  {}
