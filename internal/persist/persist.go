// Package persist saves and loads the application state as one JSON blob
// through an opaque key-value Backend. Failures are logged and never
// returned: a failed save leaves the stored copy stale, a failed load
// yields the default state.
package persist

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/idilsaglam/krona/internal/logging"
	"github.com/idilsaglam/krona/internal/model"
)

// Key is the logical name the state blob is stored under.
const Key = "todos"

// Backend is the storage invocation. Read returns "" when nothing is stored.
type Backend interface {
	Read(ctx context.Context, key string) (string, error)
	Write(ctx context.Context, key, blob string) error
}

// Adapter serializes model.AppSettings onto a Backend.
type Adapter struct {
	backend Backend
	key     string
	log     *slog.Logger
	written *history
}

// history remembers the last blobs this process wrote, so a file watcher
// can tell its own saves from another writer's.
type history struct {
	mu    sync.Mutex
	blobs []string
}

const historySize = 16

func (h *history) add(blob string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.blobs = append(h.blobs, blob)
	if len(h.blobs) > historySize {
		h.blobs = h.blobs[len(h.blobs)-historySize:]
	}
}

func (h *history) has(blob string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return slices.Contains(h.blobs, blob)
}

// New returns an Adapter storing under Key. A nil logger discards output.
func New(backend Backend, log *slog.Logger) *Adapter {
	if log == nil {
		log = logging.Discard()
	}
	return &Adapter{backend: backend, key: Key, log: log, written: &history{}}
}

// WithKey returns a copy of the adapter storing under key.
func (a *Adapter) WithKey(key string) *Adapter {
	cp := *a
	cp.key = key
	return &cp
}

// Save writes the pretty-printed state. Errors are logged, not returned.
func (a *Adapter) Save(ctx context.Context, state model.AppSettings) {
	blob, err := Encode(state)
	if err != nil {
		a.log.Error("Failed to save todos", logging.Key(a.key), logging.Error(err))
		return
	}
	a.written.add(blob)
	if err := a.backend.Write(ctx, a.key, blob); err != nil {
		a.log.Error("Failed to save todos", logging.Key(a.key), logging.Error(err))
		return
	}
	a.log.Debug("Saved todos", logging.Key(a.key), logging.Todos(len(state.Todos)))
}

// Load reads and migrates the stored state, falling back to
// model.DefaultSettings on absence or any failure.
func (a *Adapter) Load(ctx context.Context) model.AppSettings {
	blob, err := a.backend.Read(ctx, a.key)
	if err != nil {
		a.log.Error("Failed to load todos", logging.Key(a.key), logging.Error(err))
		return model.DefaultSettings()
	}
	if blob == "" {
		a.log.Debug("No stored todos, using defaults", logging.Key(a.key))
		return model.DefaultSettings()
	}
	state, err := Decode(blob)
	if err != nil {
		a.log.Error("Failed to load todos", logging.Key(a.key), logging.Error(err))
		return model.DefaultSettings()
	}
	a.log.Debug("Loaded todos", logging.Key(a.key), logging.Todos(len(state.Todos)))
	return state
}

// Reload reads the stored state and reports whether it was written by
// someone other than this adapter. Unreadable or empty blobs report false.
func (a *Adapter) Reload(ctx context.Context) (model.AppSettings, bool) {
	blob, err := a.backend.Read(ctx, a.key)
	if err != nil {
		a.log.Error("Failed to reload todos", logging.Key(a.key), logging.Error(err))
		return model.AppSettings{}, false
	}
	if blob == "" || a.written.has(blob) {
		return model.AppSettings{}, false
	}
	state, err := Decode(blob)
	if err != nil {
		a.log.Error("Failed to reload todos", logging.Key(a.key), logging.Error(err))
		return model.AppSettings{}, false
	}
	return state, true
}

// Encode renders the state the way it is stored: two-space indented JSON.
func Encode(state model.AppSettings) (string, error) {
	if state.Todos == nil {
		state.Todos = []model.Todo{}
	}
	b, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return "", fmt.Errorf("json marshal: %w", err)
	}
	return string(b), nil
}

// storedSettings distinguishes absent fields from zero values.
type storedSettings struct {
	Title  *string       `json:"title"`
	Hotkey *string       `json:"hotkey"`
	Todos  *[]model.Todo `json:"todos"`
}

// Decode parses a stored blob. A bare array is the legacy todo-only shape
// and is wrapped with the default title and hotkey; in the object shape
// every absent field falls back to its default on its own.
func Decode(blob string) (model.AppSettings, error) {
	var raw json.RawMessage
	if err := json.Unmarshal([]byte(blob), &raw); err != nil {
		return model.AppSettings{}, fmt.Errorf("json unmarshal: %w", err)
	}

	out := model.DefaultSettings()

	if isArray(raw) {
		var todos []model.Todo
		if err := json.Unmarshal(raw, &todos); err != nil {
			return model.AppSettings{}, fmt.Errorf("json unmarshal legacy todos: %w", err)
		}
		return out.WithTodos(todos), nil
	}

	var stored storedSettings
	if err := json.Unmarshal(raw, &stored); err != nil {
		return model.AppSettings{}, fmt.Errorf("json unmarshal settings: %w", err)
	}
	if stored.Title != nil {
		out.Title = *stored.Title
	}
	if stored.Hotkey != nil {
		out.Hotkey = *stored.Hotkey
	}
	if stored.Todos != nil {
		out = out.WithTodos(*stored.Todos)
	}
	return out, nil
}

func isArray(raw json.RawMessage) bool {
	for _, c := range raw {
		switch c {
		case ' ', '\t', '\r', '\n':
			continue
		case '[':
			return true
		default:
			return false
		}
	}
	return false
}
