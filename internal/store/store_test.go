package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/idilsaglam/krona/internal/hotkey"
	"github.com/idilsaglam/krona/internal/logging"
	"github.com/idilsaglam/krona/internal/model"
	"github.com/idilsaglam/krona/internal/persist"
)

var epoch = time.UnixMilli(1_700_000_000_000)

// recorder collects every state a subscriber sees.
type recorder struct {
	mu     sync.Mutex
	states []model.AppSettings
}

func (r *recorder) fn(s model.AppSettings) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, s)
}

func (r *recorder) all() []model.AppSettings {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.AppSettings(nil), r.states...)
}

func (r *recorder) last(t *testing.T) model.AppSettings {
	t.Helper()
	all := r.all()
	require.NotEmpty(t, all)
	return all[len(all)-1]
}

type fixture struct {
	backend *persist.MemoryBackend
	clock   *clockwork.FakeClock
	store   *Store
	logs    *syncWriter
}

func sequentialIDs() func() string {
	var (
		mu sync.Mutex
		n  int
	)
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func newFixture(t *testing.T, stored string, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{
		backend: persist.NewMemoryBackend(),
		clock:   clockwork.NewFakeClockAt(epoch),
		logs:    &syncWriter{},
	}
	if stored != "" {
		f.backend.Put(persist.Key, stored)
	}
	log := logging.NewWithWriter(f.logs, logging.LevelDebug)
	base := []Option{WithClock(f.clock), WithIDGenerator(sequentialIDs()), WithLogger(log)}
	f.store = New(persist.New(f.backend, log), append(base, opts...)...)
	waitReady(t, f.store)
	t.Cleanup(func() { _ = f.store.Close(context.Background()) })
	return f
}

func waitReady(t *testing.T, s *Store) {
	t.Helper()
	select {
	case <-s.Ready():
	case <-time.After(5 * time.Second):
		t.Fatal("store never became ready")
	}
}

func (f *fixture) flush(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, f.store.Flush(ctx))
}

func (f *fixture) stored(t *testing.T) model.AppSettings {
	t.Helper()
	f.flush(t)
	st, err := persist.Decode(f.backend.Get(persist.Key))
	require.NoError(t, err)
	return st
}

// syncWriter is a log sink the dispatcher goroutine can write to while a
// test reads it.
type syncWriter struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Write(p)
}

func (s *syncWriter) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}

func TestStartsWithDefaultsWhenNothingStored(t *testing.T) {
	f := newFixture(t, "")

	assert.Equal(t, model.DefaultSettings(), f.store.Get())
	f.flush(t)
	assert.Empty(t, f.backend.Writes(), "loading must not write")
}

func TestLoadReplacesDefaultsAndNotifies(t *testing.T) {
	f := newFixture(t, `{"title": "Work", "hotkey": "F4", "todos": [{"id": "a", "text": "x"}]}`)

	var rec recorder
	unsub := f.store.Subscribe(rec.fn)
	defer unsub()

	got := rec.last(t)
	assert.Equal(t, "Work", got.Title)
	assert.Equal(t, "F4", got.Hotkey)
	require.Len(t, got.Todos, 1)
	assert.Equal(t, "a", got.Todos[0].ID)
}

func TestLoadMigratesLegacyList(t *testing.T) {
	f := newFixture(t, `[{"id": "t1", "text": "one"}, {"id": "t2", "text": "two"}]`)

	got := f.store.Get()
	assert.Equal(t, model.DefaultTitle, got.Title)
	assert.Equal(t, model.DefaultHotkey, got.Hotkey)
	assert.Equal(t, []model.Todo{{ID: "t1", Text: "one"}, {ID: "t2", Text: "two"}}, got.Todos)
}

func TestSubscribeDeliversImmediatelyAndOnChange(t *testing.T) {
	f := newFixture(t, "")

	var rec recorder
	unsub := f.store.Subscribe(rec.fn)
	require.Len(t, rec.all(), 1)
	assert.Equal(t, model.DefaultSettings(), rec.all()[0])

	f.store.SetTitle("Focus")
	require.Len(t, rec.all(), 2)
	assert.Equal(t, "Focus", rec.last(t).Title)

	unsub()
	unsub()
	f.store.SetTitle("Ignored")
	assert.Len(t, rec.all(), 2)
}

func TestSubscriberGetsPrivateCopy(t *testing.T) {
	f := newFixture(t, "")
	f.store.AddTodo("x")

	unsub := f.store.Subscribe(func(s model.AppSettings) {
		s.Todos[0].Text = "mutated"
		s.Title = "mutated"
	})
	defer unsub()

	assert.Equal(t, "x", f.store.Get().Todos[0].Text)
	assert.Equal(t, model.DefaultTitle, f.store.Get().Title)
}

func TestPanickingSubscriberDoesNotStopOthers(t *testing.T) {
	f := newFixture(t, "")

	armed := false
	unsubBad := f.store.Subscribe(func(model.AppSettings) {
		if armed {
			panic("boom")
		}
	})
	defer unsubBad()
	var rec recorder
	unsub := f.store.Subscribe(rec.fn)
	defer unsub()

	armed = true
	f.store.SetTitle("still delivered")

	assert.Equal(t, "still delivered", rec.last(t).Title)
	assert.Contains(t, f.logs.String(), "Subscriber panicked")
}

func TestAddTodoAppendsAtRest(t *testing.T) {
	f := newFixture(t, "")

	first := f.store.AddTodo("one")
	second := f.store.AddTodo("two")

	assert.Equal(t, "id-1", first)
	assert.Equal(t, "id-2", second)
	assert.Equal(t, []model.Todo{
		{ID: "id-1", Text: "one"},
		{ID: "id-2", Text: "two"},
	}, f.store.Get().Todos)
	assert.Equal(t, f.store.Get(), f.stored(t))
}

func TestAddTodoDefaultIDsAreUnique(t *testing.T) {
	backend := persist.NewMemoryBackend()
	s := New(persist.New(backend, nil))
	waitReady(t, s)
	defer s.Close(context.Background())

	a := s.AddTodo("a")
	b := s.AddTodo("b")
	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
}

func TestDeleteTodoKeepsOrder(t *testing.T) {
	f := newFixture(t, "")
	f.store.AddTodo("one")
	id := f.store.AddTodo("two")
	f.store.AddTodo("three")

	f.store.DeleteTodo(id)

	todos := f.store.Get().Todos
	require.Len(t, todos, 2)
	assert.Equal(t, "one", todos[0].Text)
	assert.Equal(t, "three", todos[1].Text)
	assert.Equal(t, todos, f.stored(t).Todos)
}

func TestDeleteRunningTodoLogsAccruedTime(t *testing.T) {
	f := newFixture(t, "")
	id := f.store.AddTodo("timed")
	f.store.ToggleTimer(id)
	f.clock.Advance(3 * time.Second)

	f.store.DeleteTodo(id)

	assert.Empty(t, f.store.Get().Todos)
	assert.Contains(t, f.logs.String(), `"elapsed_ms":3000`)
}

func TestToggleAndUpdateTouchOnlyTheirField(t *testing.T) {
	f := newFixture(t, "")
	a := f.store.AddTodo("a")
	b := f.store.AddTodo("b")
	f.store.ToggleTimer(b)
	before := f.store.Get()

	f.store.ToggleTodo(a)
	after := f.store.Get()
	want := before.Clone()
	want.Todos[0].Completed = true
	assert.Equal(t, want, after)

	f.store.UpdateTodo(a, "renamed")
	want.Todos[0].Text = "renamed"
	assert.Equal(t, want, f.store.Get())

	f.store.ToggleTodo(a)
	want.Todos[0].Completed = false
	assert.Equal(t, want, f.store.Get())
}

func TestSetTitleAndHotkeyTouchOnlyTheirField(t *testing.T) {
	f := newFixture(t, "")
	f.store.AddTodo("a")
	before := f.store.Get()

	f.store.SetTitle("Deep work")
	want := before.Clone()
	want.Title = "Deep work"
	assert.Equal(t, want, f.store.Get())

	f.store.SetHotkey("F4")
	want.Hotkey = "F4"
	assert.Equal(t, want, f.store.Get())
	assert.Equal(t, want, f.stored(t))
}

func TestUnknownIDsAreNoOpsThatStillPersist(t *testing.T) {
	f := newFixture(t, "")
	f.store.AddTodo("a")
	f.flush(t)
	before := f.store.Get()
	writes := len(f.backend.Writes())

	var rec recorder
	unsub := f.store.Subscribe(rec.fn)
	defer unsub()

	f.store.DeleteTodo("missing")
	f.store.ToggleTodo("missing")
	f.store.UpdateTodo("missing", "text")
	f.flush(t)

	assert.Equal(t, before, f.store.Get())
	all := f.backend.Writes()
	require.Greater(t, len(all), writes, "no-ops still save")
	for _, blob := range all[writes:] {
		assert.Equal(t, all[writes-1], blob)
	}
	// one immediate delivery plus one per no-op
	assert.Len(t, rec.all(), 4)
	for _, st := range rec.all() {
		assert.Equal(t, before, st)
	}
}

func TestTimerScenario(t *testing.T) {
	f := newFixture(t, "")

	id := f.store.AddTodo("buy milk")
	f.store.ToggleTimer(id)

	running := f.store.Get().Todos[0]
	assert.True(t, running.TimerActive)
	require.NotNil(t, running.TimerStart)
	assert.Equal(t, epoch.UnixMilli(), *running.TimerStart)

	f.clock.Advance(5000 * time.Millisecond)
	f.store.ToggleTimer(id)

	assert.Equal(t, model.Todo{
		ID:          id,
		Text:        "buy milk",
		Completed:   false,
		TimerActive: false,
		TimerStart:  nil,
		ElapsedTime: 5000,
	}, f.store.Get().Todos[0])
	assert.Equal(t, f.store.Get(), f.stored(t))
}

func TestTimerCyclesAccumulate(t *testing.T) {
	f := newFixture(t, "")
	id := f.store.AddTodo("x")

	for _, d := range []time.Duration{2 * time.Second, 1500 * time.Millisecond} {
		f.store.ToggleTimer(id)
		f.clock.Advance(d)
		f.store.ToggleTimer(id)
	}

	assert.Equal(t, int64(3500), f.store.Get().Todos[0].ElapsedTime)
}

func TestToggleTimerStopsOtherRunningTimers(t *testing.T) {
	f := newFixture(t, "")
	a := f.store.AddTodo("a")
	b := f.store.AddTodo("b")
	c := f.store.AddTodo("c")

	f.store.ToggleTimer(a)
	f.clock.Advance(4 * time.Second)
	f.store.ToggleTimer(b)

	todos := f.store.Get().Todos
	assert.False(t, todos[0].TimerActive)
	assert.Nil(t, todos[0].TimerStart)
	assert.Equal(t, int64(4000), todos[0].ElapsedTime)
	assert.True(t, todos[1].TimerActive)
	assert.False(t, todos[2].TimerActive)

	f.clock.Advance(time.Second)
	f.store.ToggleTimer(c)
	todos = f.store.Get().Todos
	assert.Equal(t, int64(1000), todos[1].ElapsedTime)
	assert.Equal(t, 1, f.store.Get().Running())
}

func TestAtMostOneTimerRunsAfterAnyToggle(t *testing.T) {
	// start from a stored list that already has several running timers
	start := epoch.Add(-time.Minute).UnixMilli()
	f := newFixture(t, fmt.Sprintf(`{"todos": [
		{"id": "a", "text": "a", "timerActive": true, "timerStart": %d, "elapsedTime": 0},
		{"id": "b", "text": "b", "timerActive": true, "timerStart": %d, "elapsedTime": 10},
		{"id": "c", "text": "c"}
	]}`, start, start))

	for _, id := range []string{"c", "a", "a", "b", "missing", "c", "c"} {
		f.store.ToggleTimer(id)
		f.clock.Advance(time.Second)
		assert.LessOrEqual(t, f.store.Get().Running(), 1, "after toggling %s", id)
	}

	// the first toggle flushed both stray timers: one minute each
	todos := f.store.Get().Todos
	assert.GreaterOrEqual(t, todos[0].ElapsedTime, int64(60_000))
	assert.GreaterOrEqual(t, todos[1].ElapsedTime, int64(60_010))
}

func TestReorderScenario(t *testing.T) {
	f := newFixture(t, "")
	f.store.AddTodo("one")
	f.store.AddTodo("two")
	before := f.store.Get()
	t1, t2 := before.Todos[0], before.Todos[1]

	var rec recorder
	unsub := f.store.Subscribe(rec.fn)
	defer unsub()

	f.store.ReorderTodos([]model.Todo{t2, t1})

	got := rec.last(t)
	assert.Equal(t, []model.Todo{t2, t1}, got.Todos)
	assert.Equal(t, before.Title, got.Title)
	assert.Equal(t, before.Hotkey, got.Hotkey)
	assert.Equal(t, got, f.stored(t))
}

func TestReorderDoesNotValidateMembership(t *testing.T) {
	f := newFixture(t, "")
	f.store.AddTodo("one")

	f.store.ReorderTodos([]model.Todo{model.NewTodo("new", "foreign")})

	assert.Equal(t, []model.Todo{{ID: "new", Text: "foreign"}}, f.store.Get().Todos)
}

func TestSetAndUpdate(t *testing.T) {
	f := newFixture(t, "")

	f.store.Set(model.AppSettings{Title: "T", Hotkey: "F1"})
	got := f.store.Get()
	assert.Equal(t, "T", got.Title)
	assert.NotNil(t, got.Todos)

	f.store.Update(func(s model.AppSettings) model.AppSettings {
		s.Title += "!"
		return s
	})
	assert.Equal(t, "T!", f.store.Get().Title)
	assert.Equal(t, f.store.Get(), f.stored(t))
}

type fakeRegistrar struct {
	mu     sync.Mutex
	chords []string
	err    error
}

func (r *fakeRegistrar) Register(_ context.Context, chord string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chords = append(r.chords, chord)
	return r.err
}

func (r *fakeRegistrar) calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.chords...)
}

func TestSetHotkeyRegistersWithHost(t *testing.T) {
	reg := &fakeRegistrar{}
	f := newFixture(t, "", WithHotkeyRegistrar(reg))

	f.store.SetHotkey("Alt+F4")
	f.flush(t)

	assert.Equal(t, []string{"Alt+F4"}, reg.calls())
	assert.Equal(t, "Alt+F4", f.stored(t).Hotkey)
}

func TestSetHotkeyRegistrationFailureKeepsValue(t *testing.T) {
	f := newFixture(t, "", WithHotkeyRegistrar(hotkey.NewManager()))

	f.store.SetHotkey("not a chord")
	f.flush(t)

	assert.Equal(t, "not a chord", f.store.Get().Hotkey)
	assert.Equal(t, "not a chord", f.stored(t).Hotkey)
	assert.Contains(t, f.logs.String(), "Failed to update hotkey")
}

func TestSaveFailureKeepsInMemoryState(t *testing.T) {
	f := newFixture(t, "")
	f.backend.FailWrites(errors.New("disk full"))

	f.store.AddTodo("kept")
	f.flush(t)

	assert.Len(t, f.store.Get().Todos, 1)
	assert.Empty(t, f.backend.Get(persist.Key))
	assert.Contains(t, f.logs.String(), "disk full")
}

// gatedPersister holds Load until released.
type gatedPersister struct {
	Persister
	release chan struct{}
}

func (g *gatedPersister) Load(ctx context.Context) model.AppSettings {
	<-g.release
	return g.Persister.Load(ctx)
}

func TestMutationsBeforeLoadAreOverwritten(t *testing.T) {
	backend := persist.NewMemoryBackend()
	backend.Put(persist.Key, `{"title": "Stored", "todos": [{"id": "s", "text": "stored"}]}`)
	gate := &gatedPersister{Persister: persist.New(backend, nil), release: make(chan struct{})}

	s := New(gate)
	defer s.Close(context.Background())

	var rec recorder
	unsub := s.Subscribe(rec.fn)
	defer unsub()
	assert.Equal(t, model.DefaultSettings(), rec.last(t))

	s.AddTodo("too early")
	assert.Len(t, s.Get().Todos, 1)

	close(gate.release)
	waitReady(t, s)
	require.NoError(t, s.Flush(context.Background()))

	got := s.Get()
	assert.Equal(t, "Stored", got.Title)
	assert.Equal(t, []model.Todo{{ID: "s", Text: "stored"}}, got.Todos)
	assert.Equal(t, got, rec.last(t))

	// the queued save wrote the loaded state, not the lost change
	stored, err := persist.Decode(backend.Get(persist.Key))
	require.NoError(t, err)
	assert.Equal(t, got, stored)
}

func TestCloseStopsPersistingButStillNotifies(t *testing.T) {
	f := newFixture(t, "")
	f.store.AddTodo("saved")
	require.NoError(t, f.store.Close(context.Background()))
	writes := len(f.backend.Writes())

	var rec recorder
	unsub := f.store.Subscribe(rec.fn)
	defer unsub()
	f.store.AddTodo("memory only")

	assert.Len(t, rec.last(t).Todos, 2)
	assert.Len(t, f.backend.Writes(), writes)
	assert.NoError(t, f.store.Flush(context.Background()))
	assert.Contains(t, f.logs.String(), "Store closed, change not persisted")
}

// stuckPersister blocks every Save until released.
type stuckPersister struct {
	Persister
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (p *stuckPersister) Save(ctx context.Context, state model.AppSettings) {
	p.once.Do(func() { close(p.entered) })
	<-p.release
	p.Persister.Save(ctx, state)
}

func TestMutationsDoNotWaitForStuckSave(t *testing.T) {
	backend := persist.NewMemoryBackend()
	p := &stuckPersister{
		Persister: persist.New(backend, nil),
		entered:   make(chan struct{}),
		release:   make(chan struct{}),
	}
	s := New(p, WithIDGenerator(sequentialIDs()), WithHotkeyRegistrar(hotkey.NewManager()))
	waitReady(t, s)

	s.SetTitle("first")
	select {
	case <-p.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("save never started")
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 1000; i++ {
			s.SetTitle(fmt.Sprintf("title-%d", i))
			s.AddTodo("x")
			s.SetHotkey("F4")
		}
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("mutations blocked behind a stuck save")
	}
	assert.Equal(t, "title-999", s.Get().Title)

	close(p.release)
	require.NoError(t, s.Close(context.Background()))

	stored, err := persist.Decode(backend.Get(persist.Key))
	require.NoError(t, err)
	assert.Equal(t, s.Get(), stored)
	assert.LessOrEqual(t, len(backend.Writes()), 2, "queued saves coalesce")
}

func TestFlushHonoursContext(t *testing.T) {
	gate := &gatedPersister{Persister: persist.New(persist.NewMemoryBackend(), nil), release: make(chan struct{})}
	s := New(gate)
	defer func() {
		close(gate.release)
		_ = s.Close(context.Background())
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, s.Flush(ctx), context.DeadlineExceeded)
}

func TestConcurrentMutationsAreSafe(t *testing.T) {
	f := newFixture(t, "")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				id := f.store.AddTodo("x")
				f.store.ToggleTimer(id)
				_ = f.store.Get()
			}
		}()
	}
	wg.Wait()

	got := f.store.Get()
	assert.Len(t, got.Todos, 200)
	assert.Equal(t, 1, got.Running())
	assert.Equal(t, got, f.stored(t))
}
