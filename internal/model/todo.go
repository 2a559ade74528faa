package model

import "time"

// Todo is the domain model for a task entry with an optional stopwatch.
// Values are treated as immutable: every helper returns a modified copy.
//
// TimerStart is a Unix timestamp in milliseconds and is non-nil iff
// TimerActive is set. ElapsedTime is the accumulated duration in
// milliseconds of every finished timer session.
type Todo struct {
	ID          string `json:"id"`
	Text        string `json:"text"`
	Completed   bool   `json:"completed"`
	TimerActive bool   `json:"timerActive"`
	TimerStart  *int64 `json:"timerStart"`
	ElapsedTime int64  `json:"elapsedTime"`
}

// NewTodo returns a pending todo with its timer at rest.
func NewTodo(id, text string) Todo {
	return Todo{ID: id, Text: text}
}

func (t Todo) WithText(text string) Todo {
	t.Text = text
	return t
}

// Toggled flips Completed and leaves every other field alone.
func (t Todo) Toggled() Todo {
	t.Completed = !t.Completed
	return t
}

// StartTimer moves a stopped timer to running. Running timers are returned unchanged.
func (t Todo) StartTimer(nowMs int64) Todo {
	if t.TimerActive {
		return t
	}
	start := nowMs
	t.TimerActive = true
	t.TimerStart = &start
	return t
}

// StopTimer flushes the running session into ElapsedTime.
// Stopped timers are returned unchanged.
func (t Todo) StopTimer(nowMs int64) Todo {
	if !t.TimerActive {
		return t
	}
	t.ElapsedTime += t.session(nowMs)
	t.TimerActive = false
	t.TimerStart = nil
	return t
}

// ToggleTimer flips between Stopped and Running.
func (t Todo) ToggleTimer(nowMs int64) Todo {
	if t.TimerActive {
		return t.StopTimer(nowMs)
	}
	return t.StartTimer(nowMs)
}

// Accrued is ElapsedTime plus the running session, if any.
func (t Todo) Accrued(nowMs int64) int64 {
	if !t.TimerActive {
		return t.ElapsedTime
	}
	return t.ElapsedTime + t.session(nowMs)
}

// AccruedDuration is Accrued as a time.Duration.
func (t Todo) AccruedDuration(now time.Time) time.Duration {
	return time.Duration(t.Accrued(now.UnixMilli())) * time.Millisecond
}

// session is the length of the current run. A missing start or a clock
// that went backwards counts as zero.
func (t Todo) session(nowMs int64) int64 {
	if t.TimerStart == nil {
		return 0
	}
	d := nowMs - *t.TimerStart
	if d < 0 {
		return 0
	}
	return d
}

// clone copies the todo, including the TimerStart pointee, so the copy
// shares no memory with the original.
func (t Todo) clone() Todo {
	if t.TimerStart != nil {
		start := *t.TimerStart
		t.TimerStart = &start
	}
	return t
}
