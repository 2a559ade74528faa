package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/idilsaglam/krona/internal/model"
)

func TestTodoListDelegatesToStore(t *testing.T) {
	f := newFixture(t, "")
	list := NewTodoList(f.store)

	var got [][]model.Todo
	unsub := list.Subscribe(func(todos []model.Todo) { got = append(got, todos) })
	defer unsub()
	require.Len(t, got, 1)
	assert.Empty(t, got[0])

	a := list.Add("a")
	b := list.Add("b")
	list.Update(a, "a2")
	list.Toggle(b)
	list.Reorder([]model.Todo{f.store.Get().Todos[1], f.store.Get().Todos[0]})

	todos := f.store.Get().Todos
	require.Len(t, todos, 2)
	assert.Equal(t, model.Todo{ID: b, Text: "b", Completed: true}, todos[0])
	assert.Equal(t, model.Todo{ID: a, Text: "a2"}, todos[1])
	assert.Equal(t, todos, got[len(got)-1])

	list.Delete(b)
	assert.Equal(t, []model.Todo{{ID: a, Text: "a2"}}, f.store.Get().Todos)

	// title and hotkey are untouched by the list surface
	assert.Equal(t, model.DefaultTitle, f.store.Get().Title)
	assert.Equal(t, f.store.Get(), f.stored(t))
}

func TestTodoListToggleTimerKeepsOneRunning(t *testing.T) {
	f := newFixture(t, "")
	list := NewTodoList(f.store)
	a := list.Add("a")
	b := list.Add("b")

	list.ToggleTimer(a)
	f.clock.Advance(2 * time.Second)
	list.ToggleTimer(b)

	todos := f.store.Get().Todos
	assert.False(t, todos[0].TimerActive)
	assert.Equal(t, int64(2000), todos[0].ElapsedTime)
	assert.True(t, todos[1].TimerActive)
}
