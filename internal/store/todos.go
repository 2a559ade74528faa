package store

import (
	"context"

	"github.com/idilsaglam/krona/internal/logging"
	"github.com/idilsaglam/krona/internal/model"
)

// SetTitle replaces the title.
func (s *Store) SetTitle(title string) {
	s.Update(func(st model.AppSettings) model.AppSettings {
		return st.WithTitle(title)
	})
}

// SetHotkey stores the chord and asks the registrar to install it. A
// rejected chord is logged; the stored value keeps the change either way.
func (s *Store) SetHotkey(chord string) {
	s.Update(func(st model.AppSettings) model.AppSettings {
		return st.WithHotkey(chord)
	})
	ok := s.jobs.submit(func(ctx context.Context) {
		if err := s.hotkeys.Register(ctx, chord); err != nil {
			s.log.Error("Failed to update hotkey", logging.Hotkey(chord), logging.Error(err))
			return
		}
		s.log.Info("Hotkey registered", logging.Hotkey(chord))
	})
	if !ok {
		s.log.Warn("Store closed, hotkey not registered", logging.Hotkey(chord))
	}
}

// AddTodo appends a new pending todo and returns its id.
func (s *Store) AddTodo(text string) string {
	id := s.newID()
	s.Update(func(st model.AppSettings) model.AppSettings {
		st.Todos = append(st.Todos, model.NewTodo(id, text))
		return st
	})
	return id
}

// DeleteTodo removes the todo with the given id, keeping the order of the
// rest. Time accrued by a running timer is logged, not kept.
func (s *Store) DeleteTodo(id string) {
	now := s.nowMs()
	s.Update(func(st model.AppSettings) model.AppSettings {
		out := st.Todos[:0]
		for _, t := range st.Todos {
			if t.ID == id {
				s.log.Debug("Todo deleted", logging.TodoID(id), logging.ElapsedMS(t.Accrued(now)))
				continue
			}
			out = append(out, t)
		}
		st.Todos = out
		return st
	})
}

// ToggleTodo flips the completed flag.
func (s *Store) ToggleTodo(id string) {
	s.mapTodo(id, model.Todo.Toggled)
}

// UpdateTodo replaces the text.
func (s *Store) UpdateTodo(id, text string) {
	s.mapTodo(id, func(t model.Todo) model.Todo { return t.WithText(text) })
}

// ToggleTimer starts or stops the timer of the given todo. Any other
// running timer is stopped and flushed in the same step, so at most one
// timer runs at a time.
func (s *Store) ToggleTimer(id string) {
	now := s.nowMs()
	s.Update(func(st model.AppSettings) model.AppSettings {
		for i, t := range st.Todos {
			switch {
			case t.ID == id:
				st.Todos[i] = t.ToggleTimer(now)
			case t.TimerActive:
				st.Todos[i] = t.StopTimer(now)
			}
		}
		return st
	})
}

// ReorderTodos replaces the list with todos as given. Membership is not checked.
func (s *Store) ReorderTodos(todos []model.Todo) {
	s.Update(func(st model.AppSettings) model.AppSettings {
		return st.WithTodos(todos)
	})
}

// mapTodo applies fn to the todo with the given id. Unknown ids still
// notify and persist.
func (s *Store) mapTodo(id string, fn func(model.Todo) model.Todo) {
	s.Update(func(st model.AppSettings) model.AppSettings {
		for i, t := range st.Todos {
			if t.ID == id {
				st.Todos[i] = fn(t)
			}
		}
		return st
	})
}
