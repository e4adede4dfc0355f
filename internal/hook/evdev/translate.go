package evdev

import (
	"sync"

	"inputcap/internal/input"
)

// Linux input-event-codes.h values. Kept local so the translator builds
// and tests on every platform.
const (
	evSyn = 0x00
	evKey = 0x01
	evRel = 0x02

	synReport = 0x00

	relX      = 0x00
	relY      = 0x01
	relHWheel = 0x06
	relWheel  = 0x08

	btnLeft   = 0x110
	btnRight  = 0x111
	btnMiddle = 0x112
	btnSide   = 0x113
	btnTask   = 0x117

	btnDigi        = 0x140
	btnToolQuadtap = 0x14f
)

// Record is one raw struct input_event
type Record struct {
	Type  uint16
	Code  uint16
	Value int32
}

// Cursor is a virtual pointer position shared by every relative device.
// Coordinates never go below zero; a positive bound clamps the far edge.
type Cursor struct {
	mu         sync.Mutex
	x, y       int32
	maxX, maxY int32
}

// NewCursor places the virtual pointer at (x, y) inside maxX by maxY.
// Zero bounds leave the far edge open.
func NewCursor(x, y, maxX, maxY int32) *Cursor {
	c := &Cursor{maxX: maxX, maxY: maxY}
	c.x, c.y = c.clamp(x, y)
	return c
}

func (c *Cursor) move(dx, dy int32) (int32, int32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.x, c.y = c.clamp(c.x+dx, c.y+dy)
	return c.x, c.y
}

func (c *Cursor) clamp(x, y int32) (int32, int32) {
	x, y = max(x, 0), max(y, 0)
	if c.maxX > 0 {
		x = min(x, c.maxX-1)
	}
	if c.maxY > 0 {
		y = min(y, c.maxY-1)
	}
	return x, y
}

// Translator converts the record stream of one device. Relative motion is
// buffered until the SYN_REPORT that closes the frame.
type Translator struct {
	cursor *Cursor
	dx, dy int32
}

func NewTranslator(cursor *Cursor) *Translator {
	if cursor == nil {
		cursor = NewCursor(0, 0, 0, 0)
	}
	return &Translator{cursor: cursor}
}

// Translate returns the native event completed by r, if any
func (t *Translator) Translate(r Record) (input.NativeEvent, bool) {
	switch r.Type {
	case evKey:
		return translateKey(r.Code, r.Value)

	case evRel:
		switch r.Code {
		case relX:
			t.dx += r.Value
		case relY:
			t.dy += r.Value
		case relWheel:
			return input.WheelScrolled{DY: r.Value}, true
		case relHWheel:
			return input.WheelScrolled{DX: r.Value}, true
		}

	case evSyn:
		if r.Code != synReport || (t.dx == 0 && t.dy == 0) {
			return nil, false
		}
		x, y := t.cursor.move(t.dx, t.dy)
		t.dx, t.dy = 0, 0
		return input.PointerMoved{X: x, Y: y}, true
	}
	return nil, false
}

func translateKey(code uint16, value int32) (input.NativeEvent, bool) {
	// 0 release, 1 press, 2 auto-repeat
	if value < 0 || value > 2 {
		return nil, false
	}
	pressed := value != 0

	if code >= btnDigi && code <= btnToolQuadtap {
		// Touch and tool state of touchpads and tablets
		return nil, false
	}
	if code >= btnLeft && code <= btnTask {
		b := buttonName(code)
		if pressed {
			if value == 2 {
				return nil, false
			}
			return input.ButtonPressed{Button: b}, true
		}
		return input.ButtonReleased{Button: b}, true
	}

	k := keyName(code)
	if pressed {
		return input.KeyPressed{Key: k}, true
	}
	return input.KeyReleased{Key: k}, true
}

func buttonName(code uint16) input.Button {
	switch code {
	case btnLeft:
		return input.ButtonLeft
	case btnRight:
		return input.ButtonRight
	case btnMiddle:
		return input.ButtonMiddle
	}
	return input.UnknownButton(uint32(code - btnLeft + 1))
}

// KEY_* codes above the shared set 1 block
var extendedKeys = map[uint16]input.Key{
	96:  "KpReturn",
	97:  "ControlRight",
	98:  "KpDivide",
	99:  "PrintScreen",
	100: "AltGr",
	102: "Home",
	103: "UpArrow",
	104: "PageUp",
	105: "LeftArrow",
	106: "RightArrow",
	107: "End",
	108: "DownArrow",
	109: "PageDown",
	110: "Insert",
	111: "Delete",
	119: "Pause",
	125: "MetaLeft",
	126: "MetaRight",
}

func keyName(code uint16) input.Key {
	if k, ok := extendedKeys[code]; ok {
		return k
	}
	if k, ok := input.KeyFromScancode(code); ok {
		return k
	}
	return input.UnknownKey(uint32(code))
}
