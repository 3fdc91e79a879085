package reconcile

import (
	"sync"
	"time"

	"github.com/user/blocklist-service/pkg/metrics"
)

const (
	DefaultRemoveDelay = 300 * time.Millisecond
	DefaultSettleDelay = 10 * time.Millisecond

	// DetectedPlaceholder is shown in place of an empty detected list.
	DetectedPlaceholder = "None Detected"
)

// RowState is the visual state of a row.
type RowState string

const (
	StateEntering RowState = "entering"
	StateSettled  RowState = "settled"
	StateLeaving  RowState = "leaving"
)

// Action names a row event.
type Action string

const (
	ActionEnter  Action = "enter"
	ActionSettle Action = "settle"
	ActionLeave  Action = "leave"
	ActionRemove Action = "remove"
	ActionReset  Action = "reset"
)

// Row is a snapshot of one displayed row.
type Row struct {
	Label       string   `json:"label"`
	State       RowState `json:"state"`
	Placeholder bool     `json:"placeholder,omitempty"`
}

// Event describes one row transition. Reveal asks the view to scroll the row
// into sight. Rows is set on reset only.
type Event struct {
	List        string `json:"list"`
	Action      Action `json:"action"`
	Label       string `json:"label,omitempty"`
	Placeholder bool   `json:"placeholder,omitempty"`
	Reveal      bool   `json:"reveal,omitempty"`
	Rows        []Row  `json:"rows,omitempty"`
}

// Options configures a List. Zero delays fall back to the defaults; use a
// negative delay for an immediate transition.
type Options struct {
	Name        string
	Placeholder string // empty means the list has no placeholder row
	RemoveDelay time.Duration
	SettleDelay time.Duration
	Clock       Clock
	OnEvent     func(Event)
}

type row struct {
	label       string
	state       RowState
	placeholder bool
	seq         uint64
	timer       Timer
}

func (r *row) stop() {
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}

// List is the displayed state of one site list. Apply never blocks on the
// transition delays; each row owns one cancellable timer, and a callback
// whose row has moved on since scheduling is ignored.
//
// Events are queued under mu in the order their transitions happen and
// handed to OnEvent by a single dispatcher at a time, so a row's enter is
// always delivered before its settle or leave.
type List struct {
	opts Options

	mu          sync.Mutex
	rows        []*row
	seq         uint64
	pending     []Event
	dispatching bool
}

// NewList creates a list that starts out empty, or showing its placeholder.
func NewList(opts Options) *List {
	if opts.RemoveDelay == 0 {
		opts.RemoveDelay = DefaultRemoveDelay
	}
	if opts.SettleDelay == 0 {
		opts.SettleDelay = DefaultSettleDelay
	}
	if opts.RemoveDelay < 0 {
		opts.RemoveDelay = 0
	}
	if opts.SettleDelay < 0 {
		opts.SettleDelay = 0
	}
	if opts.Clock == nil {
		opts.Clock = RealClock()
	}
	l := &List{opts: opts}
	if opts.Placeholder != "" {
		l.rows = []*row{l.placeholderRow()}
	}
	return l
}

// Name returns the list name used in events.
func (l *List) Name() string { return l.opts.Name }

// Apply moves the list towards next and returns the membership patch that was applied.
func (l *List) Apply(next []string) Patch {
	l.mu.Lock()
	patch := Diff(l.liveLabelsLocked(), next)

	var events []Event
	if len(next) == 0 && l.opts.Placeholder != "" {
		events = l.resetLocked()
	} else {
		events = l.applyLocked(patch)
	}
	l.pending = append(l.pending, events...)
	l.mu.Unlock()

	l.dispatch()
	return patch
}

func (l *List) applyLocked(patch Patch) []Event {
	var events []Event

	removed := make(map[string]struct{}, len(patch.Removed))
	for _, s := range patch.Removed {
		removed[s] = struct{}{}
	}
	for _, r := range l.rows {
		if r.state == StateLeaving {
			continue
		}
		// Reaching here with a placeholder row means next is not empty.
		_, gone := removed[r.label]
		if !gone && !r.placeholder {
			continue
		}
		r.stop()
		r.state = StateLeaving
		r.seq = l.nextSeq()
		l.schedule(r, l.opts.RemoveDelay, l.removeFunc(r, r.seq))
		events = append(events, Event{List: l.opts.Name, Action: ActionLeave, Label: r.label, Placeholder: r.placeholder})
	}

	for _, label := range patch.Added {
		if r := l.leavingRowLocked(label); r != nil {
			r.stop()
			r.state = StateSettled
			r.seq = l.nextSeq()
			events = append(events, Event{List: l.opts.Name, Action: ActionSettle, Label: label})
			continue
		}
		r := &row{label: label, state: StateEntering, seq: l.nextSeq()}
		l.rows = append(l.rows, r)
		l.schedule(r, l.opts.SettleDelay, l.settleFunc(r, r.seq))
		events = append(events, Event{List: l.opts.Name, Action: ActionEnter, Label: label})
	}
	return events
}

func (l *List) resetLocked() []Event {
	if len(l.rows) == 1 && l.rows[0].placeholder && l.rows[0].state == StateSettled {
		return nil
	}
	for _, r := range l.rows {
		r.stop()
	}
	l.rows = []*row{l.placeholderRow()}
	return []Event{{List: l.opts.Name, Action: ActionReset, Rows: l.snapshotLocked()}}
}

func (l *List) placeholderRow() *row {
	return &row{label: l.opts.Placeholder, state: StateSettled, placeholder: true}
}

func (l *List) schedule(r *row, d time.Duration, f func()) {
	r.timer = l.opts.Clock.AfterFunc(d, f)
}

func (l *List) settleFunc(target *row, seq uint64) func() {
	return func() {
		l.mu.Lock()
		if target.seq != seq || !l.hasRowLocked(target) {
			l.mu.Unlock()
			return
		}
		target.state = StateSettled
		target.timer = nil
		l.pending = append(l.pending, Event{List: l.opts.Name, Action: ActionSettle, Label: target.label, Reveal: true})
		l.mu.Unlock()
		l.dispatch()
	}
}

func (l *List) removeFunc(target *row, seq uint64) func() {
	return func() {
		l.mu.Lock()
		if target.seq != seq {
			l.mu.Unlock()
			return
		}
		idx := l.indexLocked(target)
		if idx < 0 {
			l.mu.Unlock()
			return
		}
		l.rows = append(l.rows[:idx], l.rows[idx+1:]...)
		l.pending = append(l.pending, Event{List: l.opts.Name, Action: ActionRemove, Label: target.label, Placeholder: target.placeholder})
		l.mu.Unlock()
		l.dispatch()
	}
}

// Rows returns a snapshot of the displayed rows in display order.
func (l *List) Rows() []Row {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snapshotLocked()
}

// Stop cancels every pending transition.
func (l *List) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, r := range l.rows {
		r.stop()
		r.seq = l.nextSeq()
	}
}

func (l *List) snapshotLocked() []Row {
	out := make([]Row, len(l.rows))
	for i, r := range l.rows {
		out[i] = Row{Label: r.label, State: r.state, Placeholder: r.placeholder}
	}
	return out
}

func (l *List) liveLabelsLocked() []string {
	out := make([]string, 0, len(l.rows))
	for _, r := range l.rows {
		if r.placeholder || r.state == StateLeaving {
			continue
		}
		out = append(out, r.label)
	}
	return out
}

func (l *List) leavingRowLocked(label string) *row {
	for _, r := range l.rows {
		if !r.placeholder && r.state == StateLeaving && r.label == label {
			return r
		}
	}
	return nil
}

func (l *List) hasRowLocked(target *row) bool {
	return l.indexLocked(target) >= 0
}

func (l *List) indexLocked(target *row) int {
	for i, r := range l.rows {
		if r == target {
			return i
		}
	}
	return -1
}

func (l *List) nextSeq() uint64 {
	l.seq++
	return l.seq
}

// dispatch drains the pending queue unless another call is already doing so.
// Events queued by OnEvent itself, or by timers it fires, are delivered after
// the current one returns.
func (l *List) dispatch() {
	l.mu.Lock()
	if l.dispatching {
		l.mu.Unlock()
		return
	}
	l.dispatching = true
	for len(l.pending) > 0 {
		events := l.pending
		l.pending = nil
		l.mu.Unlock()
		for _, ev := range events {
			metrics.ReconcileEventsTotal.WithLabelValues(ev.List, string(ev.Action)).Inc()
			if l.opts.OnEvent != nil {
				l.opts.OnEvent(ev)
			}
		}
		l.mu.Lock()
	}
	l.dispatching = false
	l.mu.Unlock()
}
