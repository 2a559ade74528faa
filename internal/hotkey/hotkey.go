// Package hotkey parses the "Ctrl+Shift+KeyK" style chords stored in the
// settings and keeps track of the one shortcut currently registered.
package hotkey

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// ErrInvalidHotkey is returned for chords without a recognised main key.
var ErrInvalidHotkey = errors.New("invalid hotkey combination")

// Modifiers is a bit set of held modifier keys.
type Modifiers uint8

const (
	Ctrl Modifiers = 1 << iota
	Shift
	Alt
	Meta
)

func (m Modifiers) Has(o Modifiers) bool { return m&o == o }

// Shortcut is a parsed chord: modifiers plus one main key code such as
// "KeyK", "F4" or "ArrowUp".
type Shortcut struct {
	Mods Modifiers
	Code string
}

// String renders the canonical chord, modifiers first.
func (s Shortcut) String() string {
	parts := make([]string, 0, 5)
	for _, m := range modifierOrder {
		if s.Mods.Has(m.mod) {
			parts = append(parts, m.name)
		}
	}
	return strings.Join(append(parts, s.Code), "+")
}

var modifierOrder = []struct {
	name string
	mod  Modifiers
}{
	{"Ctrl", Ctrl},
	{"Shift", Shift},
	{"Alt", Alt},
	{"Meta", Meta},
}

// Parse reads a '+' separated chord. Modifier names are Ctrl, Shift, Alt
// and Meta; the first other token that names a key becomes the main key,
// later ones are ignored. A bare key ("F4") is a chord without modifiers.
// Tokens must match exactly, so surrounding spaces make a chord invalid.
func Parse(chord string) (Shortcut, error) {
	var s Shortcut
	for _, part := range strings.Split(chord, "+") {
		switch part {
		case "Ctrl":
			s.Mods |= Ctrl
		case "Shift":
			s.Mods |= Shift
		case "Alt":
			s.Mods |= Alt
		case "Meta":
			s.Mods |= Meta
		default:
			if s.Code == "" {
				s.Code = keyCode(part)
			}
		}
	}
	if s.Code == "" {
		return Shortcut{}, fmt.Errorf("%w: %q", ErrInvalidHotkey, chord)
	}
	return s, nil
}

var namedKeys = map[string]bool{
	"End": true, "Home": true, "Insert": true, "Delete": true,
	"Space": true, "Enter": true, "Escape": true, "Tab": true, "Backspace": true,
	"PageUp": true, "PageDown": true,
	"ArrowUp": true, "ArrowDown": true, "ArrowLeft": true, "ArrowRight": true,
}

// keyCode normalizes a key token to its code, or "" if unknown.
// Letters and digits may be written bare ("K", "1").
func keyCode(tok string) string {
	if namedKeys[tok] {
		return tok
	}
	if n, ok := strings.CutPrefix(tok, "F"); ok && n != "" {
		var i int
		if _, err := fmt.Sscanf(n, "%d", &i); err == nil && fmt.Sprint(i) == n && i >= 1 && i <= 12 {
			return tok
		}
	}
	if c, ok := strings.CutPrefix(tok, "Key"); ok {
		if isLetter(c) {
			return tok
		}
		return ""
	}
	if c, ok := strings.CutPrefix(tok, "Digit"); ok {
		if isDigit(c) {
			return tok
		}
		return ""
	}
	switch {
	case isLetter(tok):
		return "Key" + tok
	case isDigit(tok):
		return "Digit" + tok
	}
	return ""
}

func isLetter(s string) bool { return len(s) == 1 && s[0] >= 'A' && s[0] <= 'Z' }
func isDigit(s string) bool  { return len(s) == 1 && s[0] >= '0' && s[0] <= '9' }

// Registrar installs a chord as the host's global hotkey.
type Registrar interface {
	Register(ctx context.Context, chord string) error
}

// Manager is the in-process Registrar: it validates the chord and replaces
// the active shortcut. It is safe for concurrent use.
type Manager struct {
	mu      sync.RWMutex
	current Shortcut
	ok      bool
}

func NewManager() *Manager { return &Manager{} }

// Register drops the previous shortcut and installs chord. On a parse
// error the previous registration stays in place.
func (m *Manager) Register(ctx context.Context, chord string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s, err := Parse(chord)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.current, m.ok = s, true
	m.mu.Unlock()
	return nil
}

// Current returns the active shortcut, if any.
func (m *Manager) Current() (Shortcut, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current, m.ok
}
