package model

const (
	DefaultTitle  = "Krona"
	DefaultHotkey = "Ctrl+Shift+KeyK"
)

// AppSettings is the composite root persisted as one blob.
// The order of Todos is the display order.
type AppSettings struct {
	Title  string `json:"title"`
	Hotkey string `json:"hotkey"`
	Todos  []Todo `json:"todos"`
}

func DefaultSettings() AppSettings {
	return AppSettings{
		Title:  DefaultTitle,
		Hotkey: DefaultHotkey,
		Todos:  []Todo{},
	}
}

// Clone returns a deep copy. Todos is never nil in the result.
func (s AppSettings) Clone() AppSettings {
	out := s
	out.Todos = make([]Todo, len(s.Todos))
	for i, t := range s.Todos {
		out.Todos[i] = t.clone()
	}
	return out
}

func (s AppSettings) WithTitle(title string) AppSettings {
	out := s.Clone()
	out.Title = title
	return out
}

func (s AppSettings) WithHotkey(hotkey string) AppSettings {
	out := s.Clone()
	out.Hotkey = hotkey
	return out
}

// WithTodos replaces the list wholesale. Membership is not checked.
func (s AppSettings) WithTodos(todos []Todo) AppSettings {
	return AppSettings{Title: s.Title, Hotkey: s.Hotkey, Todos: todos}.Clone()
}

// Index returns the position of the todo with the given id, or -1.
func (s AppSettings) Index(id string) int {
	for i, t := range s.Todos {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// Stats counts done and pending todos.
func (s AppSettings) Stats() (done, pending int) {
	for _, t := range s.Todos {
		if t.Completed {
			done++
		} else {
			pending++
		}
	}
	return
}

// Running returns the number of todos with an active timer.
func (s AppSettings) Running() int {
	n := 0
	for _, t := range s.Todos {
		if t.TimerActive {
			n++
		}
	}
	return n
}

// Move returns a copy of todos with the item at from placed at to (both
// 0-based). Out-of-range positions return an unchanged copy.
func Move(todos []Todo, from, to int) []Todo {
	out := AppSettings{Todos: todos}.Clone().Todos
	if from < 0 || from >= len(out) || to < 0 || to >= len(out) || from == to {
		return out
	}
	moved := out[from]
	out = append(out[:from], out[from+1:]...)
	out = append(out[:to], append([]Todo{moved}, out[to:]...)...)
	return out
}
