package hotkey

import "strings"

// Keys renders the shortcut as Bubble Tea key strings, so the terminal UI
// can bind it with key.WithKeys. Terminals cannot report Meta or a Shift
// held together with Ctrl, so those are dropped; Shift on a lone letter
// becomes the upper-case letter.
func (s Shortcut) Keys() []string {
	base := teaKey(s.Code)
	if base == "" {
		return nil
	}
	if s.Mods.Has(Shift) && !s.Mods.Has(Ctrl) && !s.Mods.Has(Alt) && strings.HasPrefix(s.Code, "Key") {
		base = strings.ToUpper(base)
	} else if s.Mods.Has(Shift) && !s.Mods.Has(Ctrl) {
		switch base {
		case "tab":
			base = "shift+tab"
		case "up", "down", "left", "right", "home", "end":
			base = "shift+" + base
		}
	}
	if s.Mods.Has(Ctrl) {
		base = "ctrl+" + base
	}
	if s.Mods.Has(Alt) {
		base = "alt+" + base
	}
	return []string{base}
}

var teaNames = map[string]string{
	"End":        "end",
	"Home":       "home",
	"Insert":     "insert",
	"Delete":     "delete",
	"Space":      " ",
	"Enter":      "enter",
	"Escape":     "esc",
	"Tab":        "tab",
	"Backspace":  "backspace",
	"PageUp":     "pgup",
	"PageDown":   "pgdown",
	"ArrowUp":    "up",
	"ArrowDown":  "down",
	"ArrowLeft":  "left",
	"ArrowRight": "right",
}

func teaKey(code string) string {
	if n, ok := teaNames[code]; ok {
		return n
	}
	if c, ok := strings.CutPrefix(code, "Key"); ok {
		return strings.ToLower(c)
	}
	if c, ok := strings.CutPrefix(code, "Digit"); ok {
		return c
	}
	if strings.HasPrefix(code, "F") {
		return strings.ToLower(code)
	}
	return ""
}
