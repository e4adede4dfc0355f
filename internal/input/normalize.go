package input

import "fmt"

// Normalize maps a native notification to its canonical InputEvent.
// Pointers to the variants are accepted as well. It panics on a nil
// pointer or on a variant it does not know.
func Normalize(n NativeEvent) InputEvent {
	switch ev := deref(n).(type) {
	case KeyPressed:
		return InputEvent{Type: KeyPress, Key: ptr(string(ev.Key))}
	case KeyReleased:
		return InputEvent{Type: KeyRelease, Key: ptr(string(ev.Key))}
	case PointerMoved:
		return InputEvent{Type: MouseMove, MouseX: ptr(ev.X), MouseY: ptr(ev.Y)}
	case ButtonPressed:
		return InputEvent{Type: MousePress, Button: ptr(string(ev.Button))}
	case ButtonReleased:
		return InputEvent{Type: MouseRelease, Button: ptr(string(ev.Button))}
	case WheelScrolled:
		return InputEvent{
			Type:    Wheel,
			Key:     ptr(fmt.Sprintf("dx=%d,dy=%d", ev.DX, ev.DY)),
			WheelDX: ptr(ev.DX),
			WheelDY: ptr(ev.DY),
		}
	}
	panic(fmt.Sprintf("input: unsupported native event %T", n))
}

// deref unwraps pointer variants, which satisfy NativeEvent through the
// value receivers.
func deref(n NativeEvent) NativeEvent {
	switch ev := n.(type) {
	case *KeyPressed:
		if ev != nil {
			return *ev
		}
	case *KeyReleased:
		if ev != nil {
			return *ev
		}
	case *PointerMoved:
		if ev != nil {
			return *ev
		}
	case *ButtonPressed:
		if ev != nil {
			return *ev
		}
	case *ButtonReleased:
		if ev != nil {
			return *ev
		}
	case *WheelScrolled:
		if ev != nil {
			return *ev
		}
	}
	return n
}

func ptr[T any](v T) *T {
	return &v
}
