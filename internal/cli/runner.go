package cli

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/idilsaglam/krona/internal/config"
	"github.com/idilsaglam/krona/internal/hotkey"
	"github.com/idilsaglam/krona/internal/logging"
	"github.com/idilsaglam/krona/internal/model"
	"github.com/idilsaglam/krona/internal/persist"
	"github.com/idilsaglam/krona/internal/store"
	"github.com/idilsaglam/krona/internal/store/jsonstore"
	"github.com/idilsaglam/krona/internal/tui"
	"github.com/idilsaglam/krona/internal/ui"
)

// Options tune output behavior from root flags.
type Options struct {
	Group   bool // list grouped by pending/done
	NoColor bool
	Config  *config.Config
	Logger  *slog.Logger
}

const (
	// how long a command waits for the initial load and the final flush
	ioTimeout = 10 * time.Second
	// quiet period before an external write to the data file is reloaded
	reloadDebounce = 250 * time.Millisecond
)

// Run dispatches subcommands and returns an exit code (0 ok, 1 error, 2 usage).
func Run(args []string, opt Options) int {
	if len(args) == 0 {
		PrintHelp()
		return 2
	}
	if opt.Config == nil {
		opt.Config = config.Default()
	}
	if opt.Logger == nil {
		opt.Logger = logging.Discard()
	}
	ui.SetTheme(opt.Config.TUI.Theme)
	if opt.NoColor {
		ui.SetColorForcing(false, true)
	}

	cmd, a := args[0], args[1:]

	switch cmd {
	case "help", "-h", "--help":
		PrintHelp()
		return 0

	case "ls":
		return withStore(opt, func(s *env) int { return doList(s, opt) })

	case "add":
		if len(a) == 0 {
			ui.Fail("usage: krona add <text...>")
			return 2
		}
		return withStore(opt, func(s *env) int { return doAdd(s, strings.Join(a, " ")) })

	case "done", "rm", "timer":
		if len(a) != 1 {
			ui.Fail(fmt.Sprintf("usage: krona %s <index>", cmd))
			return 2
		}
		n, err := strconv.Atoi(a[0])
		if err != nil {
			ui.Fail(cmd + ": not a number: " + a[0])
			return 2
		}
		return withStore(opt, func(s *env) int {
			switch cmd {
			case "done":
				return doToggle(s, n)
			case "rm":
				return doRemove(s, n)
			default:
				return doTimer(s, n)
			}
		})

	case "edit":
		if len(a) < 2 {
			ui.Fail("usage: krona edit <index> <text...>")
			return 2
		}
		n, err := strconv.Atoi(a[0])
		if err != nil {
			ui.Fail("edit: not a number: " + a[0])
			return 2
		}
		return withStore(opt, func(s *env) int { return doEdit(s, n, strings.Join(a[1:], " ")) })

	case "mv":
		if len(a) != 2 {
			ui.Fail("usage: krona mv <from> <to>")
			return 2
		}
		from, err1 := strconv.Atoi(a[0])
		to, err2 := strconv.Atoi(a[1])
		if err1 != nil || err2 != nil {
			ui.Fail("mv: indexes must be numbers")
			return 2
		}
		return withStore(opt, func(s *env) int { return doMove(s, from, to) })

	case "title":
		if len(a) == 0 {
			ui.Fail("usage: krona title <text...>")
			return 2
		}
		return withStore(opt, func(s *env) int { return doTitle(s, strings.Join(a, " ")) })

	case "hotkey":
		if len(a) != 1 {
			ui.Fail("usage: krona hotkey <chord>   e.g. Ctrl+Shift+KeyK")
			return 2
		}
		return withStore(opt, func(s *env) int { return doHotkey(s, a[0]) })

	case "tui":
		return withStore(opt, func(s *env) int { return doTUI(s, opt) })
	}

	ui.Fail("unknown subcommand: " + cmd)
	fmt.Fprintln(ui.Err)
	PrintHelp()
	return 2
}

func PrintHelp() {
	fmt.Fprint(ui.Out, `krona - todos with a stopwatch

Usage:
  krona [flags] <subcommand> [args]

Flags:
  -config <path>     Config file (default ~/.config/krona/config.yaml)
  -theme <name>      classic | neon | mono
  -group             Group ls output by pending/done
  -no-color          Disable colors

Subcommands:
  add <text...>          Add a new todo (text can be multiple words)
  ls                     List todos with tracked time
  done <index>           Toggle done for todo at 1-based index
  rm <index>             Remove todo at 1-based index
  edit <index> <text...> Replace the text of a todo
  timer <index>          Start/stop the stopwatch (stops any other running one)
  mv <from> <to>         Move a todo to a new position
  title <text...>        Rename the list
  hotkey <chord>         Set the show/hide hotkey (e.g. Ctrl+Shift+KeyK, F4)
  tui                    Interactive list

Examples:
  krona add "Buy milk"
  krona timer 1
  krona ls
  krona mv 3 1
`)
}

// env is what a subcommand gets: the loaded store and its hotkey registrar.
type env struct {
	store   *store.Store
	hotkeys *hotkey.Manager
	log     *slog.Logger

	backend *jsonstore.Store
	adapter *persist.Adapter
	key     string
}

// withStore opens the store, waits for the stored state, runs fn and
// flushes pending saves before returning fn's exit code.
func withStore(opt Options, fn func(*env) int) int {
	cfg := opt.Config
	backend := jsonstore.New(cfg.Storage.Dir)
	adapter := persist.New(backend, opt.Logger).WithKey(cfg.Storage.Key)
	hk := hotkey.NewManager()
	st := store.New(adapter, store.WithHotkeyRegistrar(hk), store.WithLogger(opt.Logger))

	select {
	case <-st.Ready():
	case <-time.After(ioTimeout):
		ui.Fail("load: timed out reading " + backend.Path(cfg.Storage.Key))
		return 1
	}

	code := fn(&env{
		store:   st,
		hotkeys: hk,
		log:     opt.Logger,
		backend: backend,
		adapter: adapter,
		key:     cfg.Storage.Key,
	})

	ctx, cancel := context.WithTimeout(context.Background(), ioTimeout)
	defer cancel()
	if err := st.Close(ctx); err != nil {
		ui.Fail("save: " + err.Error())
		return 1
	}
	return code
}

// -------------- subcommand impls ----------------

func doList(e *env, opt Options) int {
	state := e.store.Get()
	now := time.Now()

	d, p := state.Stats()
	header := fmt.Sprintf("%s  %s %d  %s %d  %s %d",
		ui.C(ui.Current().Title, state.Title),
		ui.C(ui.Current().Success, ui.Current().SymDone), d,
		ui.C(ui.Current().Pending, ui.Current().SymUnchecked), p,
		ui.C(ui.Current().Accent, "Total"), len(state.Todos),
	)

	var lines []string
	lines = append(lines, header)
	lines = append(lines, ui.C(ui.Current().Muted, ui.ProgressBar(d, d+p, 28)))
	lines = append(lines, "")

	if opt.Group {
		lines = append(lines, groupLines(state.Todos, now)...)
	} else {
		lines = append(lines, flatLines(state.Todos, now)...)
	}
	lines = append(lines, "")
	lines = append(lines, ui.C(ui.Current().Muted, "Tip: track time with `krona timer <index>`"))
	ui.Panel(lines)
	return 0
}

func doAdd(e *env, text string) int {
	text = strings.TrimSpace(text)
	if text == "" {
		ui.Fail("add: empty text")
		return 2
	}
	e.store.AddTodo(text)
	ui.OK("added")
	return 0
}

func doToggle(e *env, userIndex int) int {
	t, code := lookup(e, userIndex)
	if code != 0 {
		return code
	}
	e.store.ToggleTodo(t.ID)
	ui.OK("toggled")
	return 0
}

func doRemove(e *env, userIndex int) int {
	t, code := lookup(e, userIndex)
	if code != 0 {
		return code
	}
	e.store.DeleteTodo(t.ID)
	ui.OK("removed")
	return 0
}

func doEdit(e *env, userIndex int, text string) int {
	text = strings.TrimSpace(text)
	if text == "" {
		ui.Fail("edit: empty text")
		return 2
	}
	t, code := lookup(e, userIndex)
	if code != 0 {
		return code
	}
	e.store.UpdateTodo(t.ID, text)
	ui.OK("updated")
	return 0
}

func doTimer(e *env, userIndex int) int {
	t, code := lookup(e, userIndex)
	if code != 0 {
		return code
	}
	e.store.ToggleTimer(t.ID)
	if t.TimerActive {
		after := e.store.Get()
		if i := after.Index(t.ID); i >= 0 {
			ui.OK("timer stopped at " + ui.Elapsed(time.Duration(after.Todos[i].ElapsedTime)*time.Millisecond))
			return 0
		}
	}
	ui.OK("timer started")
	return 0
}

func doMove(e *env, from, to int) int {
	todos := e.store.Get().Todos
	for _, n := range []int{from, to} {
		if n < 1 || n > len(todos) {
			indexOutOfRange(len(todos), n)
			return 2
		}
	}
	e.store.ReorderTodos(model.Move(todos, from-1, to-1))
	ui.OK("moved")
	return 0
}

func doTitle(e *env, title string) int {
	title = strings.TrimSpace(title)
	if title == "" {
		ui.Fail("title: empty title")
		return 2
	}
	e.store.SetTitle(title)
	ui.OK("title set")
	return 0
}

func doHotkey(e *env, chord string) int {
	if _, err := hotkey.Parse(chord); err != nil {
		ui.Warn(err.Error() + " (stored anyway)")
	}
	e.store.SetHotkey(chord)
	ui.OK("hotkey set")
	return 0
}

func doTUI(e *env, opt Options) int {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if opt.Config.Storage.Watch {
		go watchFile(ctx, e)
	}

	if err := e.hotkeys.Register(ctx, e.store.Get().Hotkey); err != nil {
		e.log.Error("Failed to register hotkey", logging.Hotkey(e.store.Get().Hotkey), logging.Error(err))
	}
	err := tui.Run(e.store, tui.Options{
		Hotkeys: e.hotkeys,
		Tick:    opt.Config.TUI.Tick(),
		Theme:   opt.Config.TUI.Theme,
	})
	if err != nil {
		ui.Fail("tui: " + err.Error())
		return 1
	}
	return 0
}

// -------------- helpers --------------

// watchFile replaces the store state whenever another process rewrites the
// data file, until ctx is done.
func watchFile(ctx context.Context, e *env) {
	err := e.backend.Watch(ctx, e.key, reloadDebounce, func() {
		if state, changed := e.adapter.Reload(ctx); changed {
			e.log.Info("Reloaded todos changed on disk", logging.Key(e.key), logging.Todos(len(state.Todos)))
			e.store.Set(state)
		}
	})
	if err != nil {
		e.log.Error("File watcher stopped", logging.Key(e.key), logging.Error(err))
	}
}

func lookup(e *env, userIndex int) (model.Todo, int) {
	todos := e.store.Get().Todos
	if userIndex < 1 || userIndex > len(todos) {
		indexOutOfRange(len(todos), userIndex)
		return model.Todo{}, 2
	}
	return todos[userIndex-1], 0
}

func indexOutOfRange(have, got int) {
	ui.Fail(fmt.Sprintf("index out of range: have %d, got %d", have, got))
	fmt.Fprintln(ui.Err, ui.Dim("Hint: run `krona ls` to see valid indexes"))
}
