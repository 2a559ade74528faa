package cli

import (
	"fmt"
	"time"

	"github.com/idilsaglam/krona/internal/model"
	"github.com/idilsaglam/krona/internal/ui"
)

func flatLines(todos []model.Todo, now time.Time) []string {
	if len(todos) == 0 {
		return []string{ui.C(ui.Current().Muted, "no todos")}
	}
	out := make([]string, 0, len(todos))
	for i, t := range todos {
		out = append(out, todoLine(i+1, t, now))
	}
	return out
}

func todoLine(index int, t model.Todo, now time.Time) string {
	th := ui.Current()
	idx := fmt.Sprintf("%2d.", index)
	box, color := th.BoxUnchecked, th.Muted
	if t.Completed {
		box, color = th.BoxChecked, th.Success
	}
	line := fmt.Sprintf("%s %s %s", ui.Dim(idx), ui.C(color, box), ui.Truncate(t.Text, 60))

	elapsed := t.AccruedDuration(now)
	switch {
	case t.TimerActive:
		line += "  " + ui.C(th.Running, th.SymRunning+" "+ui.Elapsed(elapsed))
	case elapsed > 0:
		line += "  " + ui.C(th.Muted, th.SymStopped+" "+ui.Elapsed(elapsed))
	}
	return line
}

// groupLines keeps the original 1-based indexes so they still work with done/rm.
func groupLines(todos []model.Todo, now time.Time) []string {
	var pend, done []string
	for i, t := range todos {
		if t.Completed {
			done = append(done, todoLine(i+1, t, now))
		} else {
			pend = append(pend, todoLine(i+1, t, now))
		}
	}
	var lines []string
	lines = append(lines, ui.C(ui.Current().Accent, "Pending"))
	if len(pend) == 0 {
		lines = append(lines, ui.C(ui.Current().Muted, "(none)"))
	} else {
		lines = append(lines, pend...)
	}
	lines = append(lines, "")
	lines = append(lines, ui.C(ui.Current().Accent, "Done"))
	if len(done) == 0 {
		lines = append(lines, ui.C(ui.Current().Muted, "(none)"))
	} else {
		lines = append(lines, done...)
	}
	return lines
}
