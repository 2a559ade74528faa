// Package tui is the interactive list: a Bubble Tea program that renders the
// store and turns key presses into store operations.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/idilsaglam/krona/internal/hotkey"
	"github.com/idilsaglam/krona/internal/model"
	"github.com/idilsaglam/krona/internal/store"
	"github.com/idilsaglam/krona/internal/ui"
)

// Store is the part of *store.Store the list drives.
type Store interface {
	Get() model.AppSettings
	Subscribe(fn store.Subscriber) func()
	SetTitle(title string)
	SetHotkey(chord string)
	AddTodo(text string) string
	DeleteTodo(id string)
	ToggleTodo(id string)
	UpdateTodo(id, text string)
	ToggleTimer(id string)
	ReorderTodos(todos []model.Todo)
}

type Options struct {
	// Hotkeys holds the registered show/hide shortcut. When nil the stored
	// chord is registered on a private manager.
	Hotkeys *hotkey.Manager
	// Tick is the redraw interval while a timer runs. Defaults to 1s.
	Tick  time.Duration
	Theme string
}

type tickMsg time.Time

type inputMode int

const (
	modeBrowse inputMode = iota
	modeAdd
	modeEdit
	modeTitle
	modeHotkey
)

func (m inputMode) prompt() string {
	switch m {
	case modeAdd:
		return "Add todo"
	case modeEdit:
		return "Edit todo"
	case modeTitle:
		return "Rename list"
	case modeHotkey:
		return "Show/hide hotkey"
	}
	return ""
}

var (
	addBind    = key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add"))
	editBind   = key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit"))
	toggleBind = key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "done"))
	deleteBind = key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete"))
	timerBind  = key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "timer"))
	upBind     = key.NewBinding(key.WithKeys("K", "shift+up"), key.WithHelp("K", "move up"))
	downBind   = key.NewBinding(key.WithKeys("J", "shift+down"), key.WithHelp("J", "move down"))
	titleBind  = key.NewBinding(key.WithKeys("T"), key.WithHelp("T", "title"))
	hotkeyBind = key.NewBinding(key.WithKeys("H"), key.WithHelp("H", "hotkey"))
	quitBind   = key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("q", "quit"))
)

type modelTUI struct {
	store   Store
	feed    *feed
	hotkeys *hotkey.Manager
	st      styles
	tick    time.Duration
	now     func() time.Time

	state model.AppSettings
	list  list.Model

	width, height int
	hidden        bool

	// inline input shared by add, edit, title and hotkey
	mode     inputMode
	ti       textinput.Model
	editID   string
	inputErr string

	// todo to select once it shows up in the list
	focusID string
}

// Run shows the list until the user quits. Changes are written through the
// store as they happen.
func Run(st Store, opt Options) error {
	m := newModel(st, opt)
	unsub := st.Subscribe(m.feed.push)
	defer unsub()

	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}

func newModel(st Store, opt Options) modelTUI {
	if opt.Tick <= 0 {
		opt.Tick = time.Second
	}
	if opt.Hotkeys == nil {
		opt.Hotkeys = hotkey.NewManager()
		_ = opt.Hotkeys.Register(context.Background(), st.Get().Hotkey)
	}

	sty := newStyles(opt.Theme)
	l := list.New(nil, itemDelegate{st: sty}, 0, 0)
	l.SetShowHelp(true)
	l.SetShowPagination(true)
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	l.Styles.Title = sty.title
	l.Styles.HelpStyle = sty.help
	l.Styles.PaginationStyle = sty.help
	l.FilterInput.Prompt = "/ "
	l.SetStatusBarItemName("todo", "todos")

	m := modelTUI{
		store:   st,
		feed:    newFeed(),
		hotkeys: opt.Hotkeys,
		st:      sty,
		tick:    opt.Tick,
		now:     time.Now,
		list:    l,
		state:   st.Get(),
	}
	extra := func() []key.Binding {
		return []key.Binding{toggleBind, addBind, editBind, deleteBind, timerBind, upBind, downBind, titleBind, hotkeyBind, m.hideBinding()}
	}
	m.list.AdditionalShortHelpKeys = extra
	m.list.AdditionalFullHelpKeys = extra

	m.ti = textinput.New()
	m.ti.Prompt = "> "
	m.ti.CharLimit = 200

	m.refresh()
	return m
}

func (m modelTUI) Init() tea.Cmd {
	return tea.Batch(m.feed.next(), m.tickCmd())
}

func (m modelTUI) tickCmd() tea.Cmd {
	return tea.Tick(m.tick, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m modelTUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case stateMsg:
		m.state = model.AppSettings(msg)
		return m, tea.Batch(m.refresh(), m.feed.next())

	case tickMsg:
		var cmd tea.Cmd
		if m.state.Running() > 0 {
			cmd = m.refresh()
		}
		return m, tea.Batch(cmd, m.tickCmd())

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil
	}

	if m.mode != modeBrowse {
		return m.updateInput(msg)
	}

	if k, ok := msg.(tea.KeyMsg); ok && !m.list.SettingFilter() {
		if next, cmd, handled := m.handleKey(k); handled {
			return next, cmd
		}
	}
	if m.hidden {
		return m, nil
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// handleKey runs the browse-mode bindings. handled is false for keys the
// list itself should see.
func (m modelTUI) handleKey(msg tea.KeyMsg) (next modelTUI, cmd tea.Cmd, handled bool) {
	switch {
	case key.Matches(msg, m.hideBinding()):
		m.hidden = !m.hidden
		return m, nil, true

	case msg.String() == "esc" && m.list.IsFiltered():
		return m, nil, false

	case key.Matches(msg, quitBind):
		return m, tea.Quit, true

	case m.hidden:
		return m, nil, true

	case key.Matches(msg, toggleBind):
		if t, ok := m.selected(); ok {
			m.store.ToggleTodo(t.ID)
		}
		return m, nil, true

	case key.Matches(msg, timerBind):
		if t, ok := m.selected(); ok {
			m.store.ToggleTimer(t.ID)
		}
		return m, nil, true

	case key.Matches(msg, deleteBind):
		if t, ok := m.selected(); ok {
			m.store.DeleteTodo(t.ID)
		}
		return m, nil, true

	case key.Matches(msg, upBind):
		m.move(-1)
		return m, nil, true

	case key.Matches(msg, downBind):
		m.move(1)
		return m, nil, true

	case key.Matches(msg, addBind):
		return m, m.startInput(modeAdd, "", "New todo..."), true

	case key.Matches(msg, editBind):
		t, ok := m.selected()
		if !ok {
			return m, nil, true
		}
		m.editID = t.ID
		return m, m.startInput(modeEdit, t.Text, "Todo text..."), true

	case key.Matches(msg, titleBind):
		return m, m.startInput(modeTitle, m.state.Title, "List title..."), true

	case key.Matches(msg, hotkeyBind):
		return m, m.startInput(modeHotkey, m.state.Hotkey, model.DefaultHotkey), true
	}
	return m, nil, false
}

func (m *modelTUI) startInput(mode inputMode, value, placeholder string) tea.Cmd {
	m.mode = mode
	m.inputErr = ""
	m.ti.SetValue(value)
	m.ti.CursorEnd()
	m.ti.Placeholder = placeholder
	return m.ti.Focus()
}

func (m *modelTUI) stopInput() {
	m.mode = modeBrowse
	m.editID = ""
	m.inputErr = ""
	m.ti.SetValue("")
	m.ti.Blur()
}

func (m modelTUI) updateInput(msg tea.Msg) (tea.Model, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok {
		switch k.String() {
		case "esc":
			m.stopInput()
			return m, nil
		case "enter":
			if err := m.submit(strings.TrimSpace(m.ti.Value())); err != "" {
				m.inputErr = err
				return m, nil
			}
			m.stopInput()
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.ti, cmd = m.ti.Update(msg)
	return m, cmd
}

// submit applies the input to the store and returns a message to show
// when the value is rejected.
func (m *modelTUI) submit(value string) string {
	switch m.mode {
	case modeAdd:
		if value == "" {
			return "Text cannot be empty"
		}
		m.focusID = m.store.AddTodo(value)
	case modeEdit:
		if value == "" {
			return "Text cannot be empty"
		}
		m.store.UpdateTodo(m.editID, value)
	case modeTitle:
		if value == "" {
			return "Title cannot be empty"
		}
		m.store.SetTitle(value)
	case modeHotkey:
		if _, err := hotkey.Parse(value); err != nil {
			return err.Error()
		}
		m.store.SetHotkey(value)
	}
	return ""
}

// move shifts the selected todo by delta positions.
func (m *modelTUI) move(delta int) {
	t, ok := m.selected()
	if !ok || m.list.IsFiltered() {
		return
	}
	todos := m.store.Get().Todos
	from := model.AppSettings{Todos: todos}.Index(t.ID)
	to := from + delta
	if from < 0 || to < 0 || to >= len(todos) {
		return
	}
	m.focusID = t.ID
	m.store.ReorderTodos(model.Move(todos, from, to))
}

func (m modelTUI) selected() (model.Todo, bool) {
	it, ok := m.list.SelectedItem().(listItem)
	return it.todo, ok
}

// hideBinding matches the registered show/hide shortcut.
func (m modelTUI) hideBinding() key.Binding {
	sc, ok := m.hotkeys.Current()
	if !ok || len(sc.Keys()) == 0 {
		return key.NewBinding(key.WithDisabled())
	}
	return key.NewBinding(key.WithKeys(sc.Keys()...), key.WithHelp(sc.Keys()[0], "hide"))
}

// refresh rebuilds the list items from state.
func (m *modelTUI) refresh() tea.Cmd {
	now := m.now()
	items := make([]list.Item, len(m.state.Todos))
	for i, t := range m.state.Todos {
		items[i] = listItem{todo: t, elapsed: t.AccruedDuration(now)}
	}
	cmd := m.list.SetItems(items)
	m.list.Title = m.header()

	if m.focusID != "" && !m.list.IsFiltered() {
		if i := m.state.Index(m.focusID); i >= 0 {
			m.list.Select(i)
			m.focusID = ""
		}
	}
	return cmd
}

func (m modelTUI) header() string {
	d, p := m.state.Stats()
	return fmt.Sprintf("%s   %s %d  %s %d  %s %d",
		m.st.title.Render(m.state.Title),
		m.st.success.Render("✔"), d,
		m.st.pending.Render("•"), p,
		m.st.accent.Render("Total"), len(m.state.Todos),
	)
}

// compact is the single line shown while the list is hidden.
func (m modelTUI) compact() string {
	status := m.st.muted.Render("idle")
	for _, t := range m.state.Todos {
		if t.TimerActive {
			status = m.st.running.Render(m.st.symRunning+" "+ui.Elapsed(t.AccruedDuration(m.now()))) + " " + t.Text
			break
		}
	}
	hint := ""
	if sc, ok := m.hotkeys.Current(); ok {
		hint = m.st.help.Render("  (" + sc.String() + " to show)")
	}
	return m.st.title.Render(m.state.Title) + "  " + status + hint
}

func (m modelTUI) View() string {
	if m.hidden {
		return m.st.border.Render(m.compact())
	}

	w, h := m.width, m.height
	if w == 0 || h == 0 {
		w, h = 80, 24
	}
	listHeight := h - 4
	if m.mode != modeBrowse {
		listHeight -= 4
	}
	m.list.SetSize(w-4, max(listHeight, 1))

	content := m.list.View()
	if m.mode != modeBrowse {
		title := m.mode.prompt()
		if m.inputErr != "" {
			title += "  " + m.st.err.Render(m.inputErr)
		}
		content += "\n" + m.st.border.Render(title+"\n"+m.ti.View())
	}
	return m.st.border.Render(content)
}
