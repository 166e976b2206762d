// File: internal/action/keys.go
package action

import (
	"fmt"
	"unicode/utf8"
)

// namedKeys maps the planner's key vocabulary onto driver key names. Aliases
// accept both the capitalized and lowercase spellings the planner has been
// observed to emit.
var namedKeys = map[string]string{
	"Alt": "alt", "alt": "alt",
	"Backspace": "backspace", "backspace": "backspace",
	"CapsLock": "capslock", "capslock": "capslock",
	"Control": "ctrl", "control": "ctrl", "ctrl": "ctrl",
	"Delete": "delete", "delete": "delete", "del": "delete",
	"DownArrow": "down", "down": "down",
	"End": "end", "end": "end",
	"Escape": "esc", "esc": "esc",
	"F1": "f1", "F2": "f2", "F3": "f3", "F4": "f4",
	"F5": "f5", "F6": "f6", "F7": "f7", "F8": "f8",
	"F9": "f9", "F10": "f10", "F11": "f11", "F12": "f12",
	"Home": "home", "home": "home",
	"LeftArrow": "left", "left": "left",
	"Meta": "cmd", "meta": "cmd", "win": "cmd", "cmd": "cmd", "command": "cmd",
	"Option": "alt", "option": "alt",
	"PageDown": "pagedown", "pagedown": "pagedown",
	"PageUp": "pageup", "pageup": "pageup",
	"Return": "enter", "return": "enter", "Enter": "enter", "enter": "enter",
	"RightArrow": "right", "right": "right",
	"Shift": "shift", "shift": "shift",
	"Space": "space", "space": "space", " ": "space",
	"Tab": "tab", "tab": "tab",
	"UpArrow": "up", "up": "up",
}

// resolveKey classifies a key payload as either a named driver key or a
// single literal character. Multi-rune payloads outside the alias table are
// rejected.
func resolveKey(key string) (driverKey string, literal bool, err error) {
	if name, ok := namedKeys[key]; ok {
		return name, false, nil
	}
	if utf8.RuneCountInString(key) == 1 {
		return key, true, nil
	}
	return "", false, fmt.Errorf("action: unknown or unsupported key %q", key)
}
