// Package progress reports the liveness of a running command as an animated status line.
package progress

import (
	"fmt"
	"strings"
	"time"

	"github.com/cnosuke/commando/scheduler"
	"github.com/cnosuke/commando/types"
	"go.uber.org/zap"
)

// DefaultStatusKey names the status entry the watcher writes to
const DefaultStatusKey = "commando-command"

const (
	defaultInitialDelay = 500 * time.Millisecond
	defaultInterval     = 200 * time.Millisecond
	defaultClearDelay   = 3000 * time.Millisecond
)

// Target is what the watcher observes. It is only ever read.
type Target interface {
	State() types.RunnerState
}

// StatusSink displays status text under a key. Empty text clears it.
type StatusSink interface {
	SetStatus(key, text string)
}

// StatusSinkFunc adapts a function to StatusSink
type StatusSinkFunc func(key, text string)

// SetStatus implements StatusSink
func (f StatusSinkFunc) SetStatus(key, text string) {
	f(key, text)
}

// Phase of the watcher state machine
type Phase int

const (
	Idle Phase = iota
	Polling
	ReportingDone
	Terminated
)

// State is owned by the watcher and touched only from scheduler callbacks
type State struct {
	// Counter cycles through 0..3 and sets the number of dots shown
	Counter int
	// ObservedLongRunning is set the first time a tick sees the target running
	ObservedLongRunning bool
	Phase               Phase
}

// Watcher polls a Target on a Scheduler and reports progress to a StatusSink
type Watcher struct {
	target Target
	label  string
	sched  scheduler.Scheduler
	sink   StatusSink

	key          string
	initialDelay time.Duration
	interval     time.Duration
	clearDelay   time.Duration

	state State
	done  chan struct{}
}

// Option configures a Watcher
type Option func(*Watcher)

// WithStatusKey sets the status key
func WithStatusKey(key string) Option {
	return func(w *Watcher) {
		if key != "" {
			w.key = key
		}
	}
}

// WithTiming sets the first check delay, the polling interval and the clear delay.
// Non-positive values keep the defaults.
func WithTiming(initialDelay, interval, clearDelay time.Duration) Option {
	return func(w *Watcher) {
		if initialDelay > 0 {
			w.initialDelay = initialDelay
		}
		if interval > 0 {
			w.interval = interval
		}
		if clearDelay > 0 {
			w.clearDelay = clearDelay
		}
	}
}

// NewWatcher creates a Watcher. label is usually the space-joined argv.
func NewWatcher(target Target, label string, sched scheduler.Scheduler, sink StatusSink, opts ...Option) *Watcher {
	w := &Watcher{
		target:       target,
		label:        label,
		sched:        sched,
		sink:         sink,
		key:          DefaultStatusKey,
		initialDelay: defaultInitialDelay,
		interval:     defaultInterval,
		clearDelay:   defaultClearDelay,
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start schedules the first check. Later calls have no effect.
func (w *Watcher) Start() {
	w.sched.Post(func() {
		if w.state.Phase != Idle {
			return
		}
		w.state.Phase = Polling
		w.sched.AfterFunc(w.initialDelay, w.tick)
	})
}

// Done is closed when the watcher has terminated
func (w *Watcher) Done() <-chan struct{} {
	return w.done
}

func (w *Watcher) tick() {
	if w.state.Phase != Polling {
		return
	}

	w.state.Counter = (w.state.Counter + 1) % 4

	if w.target.State() == types.Running {
		w.state.ObservedLongRunning = true
		w.sink.SetStatus(w.key, RunningText(w.label, w.state.Counter))
		w.sched.AfterFunc(w.interval, w.tick)
		return
	}

	if !w.state.ObservedLongRunning {
		w.terminate()
		return
	}

	w.state.Phase = ReportingDone
	w.sink.SetStatus(w.key, DoneText(w.label))
	w.sched.AfterFunc(w.clearDelay, func() {
		w.sink.SetStatus(w.key, "")
		w.terminate()
	})
}

func (w *Watcher) terminate() {
	zap.S().Debugw("progress watcher terminated",
		"command", w.label,
		"observed_long_running", w.state.ObservedLongRunning)
	w.state.Phase = Terminated
	close(w.done)
}

// RunningText renders the animated running status with a fixed width
func RunningText(label string, counter int) string {
	return fmt.Sprintf("%s: Running%s%s", label, strings.Repeat(".", counter), strings.Repeat(" ", 3-counter))
}

// DoneText renders the completion status
func DoneText(label string) string {
	return label + ": Done!"
}
