package input

// scancodeKeys maps PC/AT set 1 scancodes to key names. Linux evdev KEY_*
// codes and libuiohook VC_* codes share this numbering for the main block;
// each backend layers its own table for extended keys on top.
var scancodeKeys = map[uint16]Key{
	1:  "Escape",
	2:  "Num1",
	3:  "Num2",
	4:  "Num3",
	5:  "Num4",
	6:  "Num5",
	7:  "Num6",
	8:  "Num7",
	9:  "Num8",
	10: "Num9",
	11: "Num0",
	12: "Minus",
	13: "Equal",
	14: "Backspace",
	15: "Tab",
	16: "KeyQ",
	17: "KeyW",
	18: "KeyE",
	19: "KeyR",
	20: "KeyT",
	21: "KeyY",
	22: "KeyU",
	23: "KeyI",
	24: "KeyO",
	25: "KeyP",
	26: "LeftBracket",
	27: "RightBracket",
	28: "Return",
	29: "ControlLeft",
	30: "KeyA",
	31: "KeyS",
	32: "KeyD",
	33: "KeyF",
	34: "KeyG",
	35: "KeyH",
	36: "KeyJ",
	37: "KeyK",
	38: "KeyL",
	39: "SemiColon",
	40: "Quote",
	41: "BackQuote",
	42: "ShiftLeft",
	43: "BackSlash",
	44: "KeyZ",
	45: "KeyX",
	46: "KeyC",
	47: "KeyV",
	48: "KeyB",
	49: "KeyN",
	50: "KeyM",
	51: "Comma",
	52: "Dot",
	53: "Slash",
	54: "ShiftRight",
	55: "KpMultiply",
	56: "Alt",
	57: "Space",
	58: "CapsLock",
	59: "F1",
	60: "F2",
	61: "F3",
	62: "F4",
	63: "F5",
	64: "F6",
	65: "F7",
	66: "F8",
	67: "F9",
	68: "F10",
	69: "NumLock",
	70: "ScrollLock",
	71: "Kp7",
	72: "Kp8",
	73: "Kp9",
	74: "KpMinus",
	75: "Kp4",
	76: "Kp5",
	77: "Kp6",
	78: "KpPlus",
	79: "Kp1",
	80: "Kp2",
	81: "Kp3",
	82: "Kp0",
	83: "KpDelete",
	86: "IntlBackslash",
	87: "F11",
	88: "F12",
}

// KeyFromScancode returns the key name for a set 1 scancode. The second
// result is false when the code is outside the shared table.
func KeyFromScancode(code uint16) (Key, bool) {
	k, ok := scancodeKeys[code]
	return k, ok
}

// Modifier folds left/right modifier keys into one hotkey token
// ("CTRL", "SHIFT", "ALT", "META"). Other keys return their own name.
func Modifier(k Key) string {
	switch k {
	case "ControlLeft", "ControlRight":
		return "CTRL"
	case "ShiftLeft", "ShiftRight":
		return "SHIFT"
	case "Alt", "AltGr":
		return "ALT"
	case "MetaLeft", "MetaRight":
		return "META"
	}
	return string(k)
}
