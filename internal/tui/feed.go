package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/idilsaglam/krona/internal/model"
)

// stateMsg carries a store state into the Bubble Tea loop.
type stateMsg model.AppSettings

// feed hands store states to the program without blocking the store.
// It holds at most one pending state; a newer one replaces it.
type feed struct {
	ch chan model.AppSettings
}

func newFeed() *feed {
	return &feed{ch: make(chan model.AppSettings, 1)}
}

// push is the store subscriber.
func (f *feed) push(s model.AppSettings) {
	for {
		select {
		case f.ch <- s:
			return
		default:
		}
		select {
		case <-f.ch:
		default:
		}
	}
}

// next waits for the following state.
func (f *feed) next() tea.Cmd {
	return func() tea.Msg {
		return stateMsg(<-f.ch)
	}
}
