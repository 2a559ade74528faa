package logging

import "log/slog"

// Canonical field names, shared so log queries stay stable.
const (
	KeyTodoID    = "todo_id"
	KeyKey       = "key"
	KeyHotkey    = "hotkey"
	KeyElapsedMS = "elapsed_ms"
	KeyTodos     = "todos"
	KeyError     = "error"
)

func TodoID(id string) slog.Attr   { return slog.String(KeyTodoID, id) }
func Key(k string) slog.Attr       { return slog.String(KeyKey, k) }
func Hotkey(h string) slog.Attr    { return slog.String(KeyHotkey, h) }
func ElapsedMS(ms int64) slog.Attr { return slog.Int64(KeyElapsedMS, ms) }
func Todos(n int) slog.Attr        { return slog.Int(KeyTodos, n) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
