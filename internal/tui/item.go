package tui

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/idilsaglam/krona/internal/model"
	"github.com/idilsaglam/krona/internal/ui"
)

// listItem adapts a todo to bubbles/list.Item. elapsed is frozen at the
// last refresh so the delegate never reads the clock.
type listItem struct {
	todo    model.Todo
	elapsed time.Duration
}

func (i listItem) Title() string       { return i.todo.Text }
func (i listItem) Description() string { return "" }
func (i listItem) FilterValue() string { return i.todo.Text }

// itemDelegate renders one todo per line: box, text, tracked time.
type itemDelegate struct {
	st styles
}

func (d itemDelegate) Height() int                         { return 1 }
func (d itemDelegate) Spacing() int                        { return 0 }
func (d itemDelegate) Update(tea.Msg, *list.Model) tea.Cmd { return nil }
func (d itemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, ok := item.(listItem)
	if !ok {
		return
	}

	box := d.st.muted.Render(d.st.boxUnchecked)
	text := it.todo.Text
	if it.todo.Completed {
		box = d.st.success.Render(d.st.boxChecked)
		text = d.st.done.Render(text)
	}
	line := box + " " + text

	switch {
	case it.todo.TimerActive:
		line += "  " + d.st.running.Render(d.st.symRunning+" "+ui.Elapsed(it.elapsed))
	case it.elapsed > 0:
		line += "  " + d.st.muted.Render(d.st.symStopped+" "+ui.Elapsed(it.elapsed))
	}

	prefix := "  "
	if index == m.Index() {
		prefix = d.st.selected.Render("> ")
	}
	fmt.Fprint(w, prefix+line)
}
