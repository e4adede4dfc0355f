package winhook

import (
	"strconv"

	"inputcap/internal/input"
)

// Window messages delivered to low-level hooks
const (
	wmKeyDown     = 0x0100
	wmKeyUp       = 0x0101
	wmSysKeyDown  = 0x0104
	wmSysKeyUp    = 0x0105
	wmMouseMove   = 0x0200
	wmLButtonDown = 0x0201
	wmLButtonUp   = 0x0202
	wmRButtonDown = 0x0204
	wmRButtonUp   = 0x0205
	wmMButtonDown = 0x0207
	wmMButtonUp   = 0x0208
	wmMouseWheel  = 0x020A
	wmXButtonDown = 0x020B
	wmXButtonUp   = 0x020C
	wmMouseHWheel = 0x020E

	wheelDelta = 120

	// KBDLLHOOKSTRUCT.flags
	llkhfExtended = 0x01
)

// TranslateKey converts a WH_KEYBOARD_LL notification
func TranslateKey(msg, vk, flags uint32) (input.NativeEvent, bool) {
	k := keyName(vk, flags&llkhfExtended != 0)
	switch msg {
	case wmKeyDown, wmSysKeyDown:
		return input.KeyPressed{Key: k}, true
	case wmKeyUp, wmSysKeyUp:
		return input.KeyReleased{Key: k}, true
	}
	return nil, false
}

// Translator carries wheel remainders between mouse notifications.
// The zero value is ready to use.
type Translator struct {
	wheelX, wheelY int32
}

// TranslateMouse converts a WH_MOUSE_LL notification. x and y are screen
// coordinates; mouseData is MSLLHOOKSTRUCT.mouseData.
func (t *Translator) TranslateMouse(msg uint32, x, y int32, mouseData uint32) (input.NativeEvent, bool) {
	switch msg {
	case wmMouseMove:
		return input.PointerMoved{X: x, Y: y}, true
	case wmLButtonDown:
		return input.ButtonPressed{Button: input.ButtonLeft}, true
	case wmLButtonUp:
		return input.ButtonReleased{Button: input.ButtonLeft}, true
	case wmRButtonDown:
		return input.ButtonPressed{Button: input.ButtonRight}, true
	case wmRButtonUp:
		return input.ButtonReleased{Button: input.ButtonRight}, true
	case wmMButtonDown:
		return input.ButtonPressed{Button: input.ButtonMiddle}, true
	case wmMButtonUp:
		return input.ButtonReleased{Button: input.ButtonMiddle}, true
	case wmXButtonDown:
		return input.ButtonPressed{Button: xButton(mouseData)}, true
	case wmXButtonUp:
		return input.ButtonReleased{Button: xButton(mouseData)}, true
	case wmMouseWheel:
		if n := accumulate(&t.wheelY, mouseData); n != 0 {
			return input.WheelScrolled{DY: n}, true
		}
	case wmMouseHWheel:
		if n := accumulate(&t.wheelX, mouseData); n != 0 {
			return input.WheelScrolled{DX: n}, true
		}
	}
	return nil, false
}

// accumulate adds the signed high word of mouseData to *rem and returns
// the whole notches it now holds. Precision touchpads report fractions
// of wheelDelta, the remainder carries over to the next notification.
func accumulate(rem *int32, mouseData uint32) int32 {
	*rem += int32(int16(mouseData >> 16))
	n := *rem / wheelDelta
	*rem -= n * wheelDelta
	return n
}

// XBUTTON1 and XBUTTON2 follow the three standard buttons
func xButton(mouseData uint32) input.Button {
	return input.UnknownButton(uint32(mouseData>>16) + 3)
}

// Virtual-key codes
var vkKeys = map[uint32]input.Key{
	0x08: "Backspace",
	0x09: "Tab",
	0x0D: "Return",
	0x13: "Pause",
	0x14: "CapsLock",
	0x1B: "Escape",
	0x20: "Space",
	0x21: "PageUp",
	0x22: "PageDown",
	0x23: "End",
	0x24: "Home",
	0x25: "LeftArrow",
	0x26: "UpArrow",
	0x27: "RightArrow",
	0x28: "DownArrow",
	0x2C: "PrintScreen",
	0x2D: "Insert",
	0x2E: "Delete",
	0x5B: "MetaLeft",
	0x5C: "MetaRight",
	0x6A: "KpMultiply",
	0x6B: "KpPlus",
	0x6D: "KpMinus",
	0x6E: "KpDelete",
	0x6F: "KpDivide",
	0x90: "NumLock",
	0x91: "ScrollLock",
	0xA0: "ShiftLeft",
	0xA1: "ShiftRight",
	0xA2: "ControlLeft",
	0xA3: "ControlRight",
	0xA4: "Alt",
	0xA5: "AltGr",
	0xBA: "SemiColon",
	0xBB: "Equal",
	0xBC: "Comma",
	0xBD: "Minus",
	0xBE: "Dot",
	0xBF: "Slash",
	0xC0: "BackQuote",
	0xDB: "LeftBracket",
	0xDC: "BackSlash",
	0xDD: "RightBracket",
	0xDE: "Quote",
	0xE2: "IntlBackslash",
}

func keyName(vk uint32, extended bool) input.Key {
	switch {
	case vk == 0x0D && extended:
		return "KpReturn"
	case vk >= 0x30 && vk <= 0x39:
		return input.Key("Num" + string(rune('0'+vk-0x30)))
	case vk >= 0x41 && vk <= 0x5A:
		return input.Key("Key" + string(rune('A'+vk-0x41)))
	case vk >= 0x60 && vk <= 0x69:
		return input.Key("Kp" + string(rune('0'+vk-0x60)))
	case vk >= 0x70 && vk <= 0x7B:
		return input.Key("F" + strconv.Itoa(int(vk-0x70+1)))
	}
	if k, ok := vkKeys[vk]; ok {
		return k
	}
	return input.UnknownKey(vk)
}
