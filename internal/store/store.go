// Package store holds the live todo list and settings.
//
// Every mutation is a single step: compute the new state, hand it to every
// subscriber synchronously, then queue a save. Saves (and hotkey
// registrations) run on one background goroutine in submission order; their
// failures are logged and never reach the caller, and queuing never blocks,
// even while a save is stuck. Each save writes the latest committed state, so
// at most one save is pending at a time and the stored copy can lag but never
// goes backwards.
//
// A new Store publishes model.DefaultSettings immediately and replaces it
// with the stored state once the asynchronous load completes. Changes made
// before Ready is closed are overwritten by the load.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/idilsaglam/krona/internal/hotkey"
	"github.com/idilsaglam/krona/internal/logging"
	"github.com/idilsaglam/krona/internal/model"
)

// Persister saves and loads the whole state. *persist.Adapter implements it.
type Persister interface {
	Save(ctx context.Context, state model.AppSettings)
	Load(ctx context.Context) model.AppSettings
}

// Subscriber receives a private copy of the state. It runs while the store
// holds its commit lock, so it must not call Subscribe or any mutating
// method of the same Store; doing so deadlocks.
type Subscriber func(model.AppSettings)

type subscription struct {
	id uint64
	fn Subscriber
}

// Store is the state container. It is safe for concurrent use, but a
// Subscriber must not call Subscribe or a mutating method of the same Store.
type Store struct {
	// commitMu serializes compute+notify so subscribers see states in order.
	commitMu sync.Mutex

	mu    sync.RWMutex
	state model.AppSettings

	subsMu sync.Mutex
	subs   []subscription
	nextID uint64

	persister Persister
	hotkeys   hotkey.Registrar
	clock     clockwork.Clock
	newID     func() string
	log       *slog.Logger

	jobs  *dispatcher
	ready chan struct{}
	// savePending is set while a save is queued but has not read the state yet.
	savePending atomic.Bool
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces the wall clock used for timers.
func WithClock(c clockwork.Clock) Option {
	return func(s *Store) { s.clock = c }
}

// WithIDGenerator replaces uuid.NewString for new todo ids.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) { s.newID = fn }
}

// WithHotkeyRegistrar sets the target of SetHotkey's registration call.
func WithHotkeyRegistrar(r hotkey.Registrar) Option {
	return func(s *Store) { s.hotkeys = r }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.log = l }
}

// New builds a Store holding the defaults and starts loading from p.
func New(p Persister, opts ...Option) *Store {
	s := &Store{
		state:     model.DefaultSettings(),
		persister: p,
		hotkeys:   hotkey.NewManager(),
		clock:     clockwork.NewRealClock(),
		newID:     uuid.NewString,
		log:       logging.Discard(),
		jobs:      newDispatcher(),
		ready:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	if !s.jobs.submit(s.load) {
		close(s.ready)
	}
	return s
}

func (s *Store) load(ctx context.Context) {
	defer close(s.ready)
	loaded := s.persister.Load(ctx)
	s.apply(func(model.AppSettings) model.AppSettings { return loaded })
	s.log.Debug("Store loaded", logging.Todos(len(loaded.Todos)))
}

// Ready is closed once the initial load has replaced the defaults.
func (s *Store) Ready() <-chan struct{} { return s.ready }

// Get returns a copy of the current state.
func (s *Store) Get() model.AppSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

// Subscribe calls fn with the current state now and after every change.
// The returned function removes the subscription; calling it again is a no-op.
func (s *Store) Subscribe(fn Subscriber) func() {
	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	s.subsMu.Lock()
	s.nextID++
	id := s.nextID
	s.subs = append(s.subs, subscription{id: id, fn: fn})
	s.subsMu.Unlock()

	s.deliver(fn, s.Get())

	var once sync.Once
	return func() {
		once.Do(func() { s.unsubscribe(id) })
	}
}

func (s *Store) unsubscribe(id uint64) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	for i, sub := range s.subs {
		if sub.id == id {
			s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
			return
		}
	}
}

// Set replaces the whole state, notifies, then queues a save.
func (s *Store) Set(state model.AppSettings) {
	s.commit(func(model.AppSettings) model.AppSettings { return state }, true)
}

// Update derives the new state from a copy of the old one, notifies, then
// queues a save.
func (s *Store) Update(fn func(model.AppSettings) model.AppSettings) {
	s.commit(fn, true)
}

// commit applies fn and, if asked, makes sure a save will write the result.
// A save already queued reads the state when it runs, so it covers this
// change too and no second one is queued.
func (s *Store) commit(fn func(model.AppSettings) model.AppSettings, persist bool) {
	s.apply(fn)
	if !persist || !s.savePending.CompareAndSwap(false, true) {
		return
	}
	if !s.jobs.submit(s.save) {
		s.savePending.Store(false)
		s.log.Warn("Store closed, change not persisted")
	}
}

// apply is the one place state changes.
func (s *Store) apply(fn func(model.AppSettings) model.AppSettings) {
	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	s.mu.Lock()
	next := fn(s.state.Clone()).Clone()
	s.state = next
	s.mu.Unlock()

	s.notify(next)
}

func (s *Store) save(ctx context.Context) {
	s.savePending.Store(false)
	s.persister.Save(ctx, s.Get())
}

func (s *Store) notify(state model.AppSettings) {
	s.subsMu.Lock()
	subs := make([]subscription, len(s.subs))
	copy(subs, s.subs)
	s.subsMu.Unlock()

	for _, sub := range subs {
		s.deliver(sub.fn, state.Clone())
	}
}

// deliver recovers a panicking subscriber so the others still run.
func (s *Store) deliver(fn Subscriber, state model.AppSettings) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("Subscriber panicked", "panic", fmt.Sprint(r), "stack", string(debug.Stack()))
		}
	}()
	fn(state)
}

// Flush waits until every save queued so far has been attempted.
func (s *Store) Flush(ctx context.Context) error {
	return s.jobs.flush(ctx)
}

// Close flushes pending work and stops the background goroutine. Later
// mutations still notify subscribers but are not persisted.
func (s *Store) Close(ctx context.Context) error {
	return s.jobs.close(ctx)
}

func (s *Store) nowMs() int64 {
	return s.clock.Now().UnixMilli()
}
