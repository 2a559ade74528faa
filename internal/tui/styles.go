package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// styles is the Lip Gloss palette for one theme.
type styles struct {
	title, success, pending, accent, muted, err, running lipgloss.Style

	selected, done, help, border lipgloss.Style

	boxChecked, boxUnchecked, symRunning, symStopped string
}

func newStyles(theme string) styles {
	s := styles{
		title:    lipgloss.NewStyle().Bold(true),
		success:  lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		pending:  lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		accent:   lipgloss.NewStyle().Foreground(lipgloss.Color("12")),
		muted:    lipgloss.NewStyle().Faint(true),
		err:      lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		running:  lipgloss.NewStyle().Foreground(lipgloss.Color("51")).Bold(true),
		selected: lipgloss.NewStyle().Bold(true).Reverse(true),
		done:     lipgloss.NewStyle().Faint(true).Strikethrough(true),
		help:     lipgloss.NewStyle().Faint(true),
		border: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("8")).
			Padding(0, 1),

		boxChecked:   "☑",
		boxUnchecked: "☐",
		symRunning:   "▶",
		symStopped:   "⏸",
	}

	switch strings.ToLower(theme) {
	case "neon":
		s.title = s.title.Foreground(lipgloss.Color("13"))
		s.accent = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
		s.pending = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
		s.boxChecked, s.boxUnchecked = "◼", "◻"
	case "mono":
		plain := lipgloss.NewStyle()
		s.success, s.pending, s.accent, s.err, s.running = plain, plain, plain, plain, plain
		s.border = lipgloss.NewStyle().Border(lipgloss.NormalBorder()).Padding(0, 1)
		s.boxChecked, s.boxUnchecked = "[x]", "[ ]"
		s.symRunning, s.symStopped = ">", "="
	}
	return s
}
