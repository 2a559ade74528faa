package store

import "github.com/idilsaglam/krona/internal/model"

// TodoList is the older task-only surface, for callers that only know
// about the list. Every call goes through the composite Store, so timers
// follow the Store's one-running-timer rule here too.
type TodoList struct {
	store *Store
}

func NewTodoList(s *Store) *TodoList {
	return &TodoList{store: s}
}

// Subscribe delivers only the todos of each state.
func (l *TodoList) Subscribe(fn func([]model.Todo)) func() {
	return l.store.Subscribe(func(st model.AppSettings) {
		fn(st.Todos)
	})
}

func (l *TodoList) Add(text string) string     { return l.store.AddTodo(text) }
func (l *TodoList) Delete(id string)           { l.store.DeleteTodo(id) }
func (l *TodoList) Toggle(id string)           { l.store.ToggleTodo(id) }
func (l *TodoList) Update(id, text string)     { l.store.UpdateTodo(id, text) }
func (l *TodoList) ToggleTimer(id string)      { l.store.ToggleTimer(id) }
func (l *TodoList) Reorder(items []model.Todo) { l.store.ReorderTodos(items) }
