package app

import (
	"sync"
	"time"
	"unicode/utf8"
)

const (
	// DefaultRevealLimit caps how many characters of an excerpt are shown.
	DefaultRevealLimit = 200
	// DefaultCadence is the per-character delay when the client sends none.
	DefaultCadence = 150 * time.Millisecond

	// MinCadence and MaxCadence bound a client-supplied cadence.
	MinCadence = 10 * time.Millisecond
	MaxCadence = time.Second
)

// ClampCadence bounds a client-supplied cadence; zero means DefaultCadence.
func ClampCadence(d time.Duration) time.Duration {
	switch {
	case d == 0:
		return DefaultCadence
	case d < MinCadence:
		return MinCadence
	case d > MaxCadence:
		return MaxCadence
	}
	return d
}

// RevealState is the lifecycle of one excerpt's reveal.
type RevealState int

const (
	// RevealIdle: nothing started, or stopped.
	RevealIdle RevealState = iota
	// RevealRunning: one more character per cadence tick.
	RevealRunning
	// RevealPaused: frozen by an answer.
	RevealPaused
	// RevealComplete: the bound was reached.
	RevealComplete
)

func (s RevealState) String() string {
	switch s {
	case RevealRunning:
		return "revealing"
	case RevealPaused:
		return "paused"
	case RevealComplete:
		return "complete"
	default:
		return "idle"
	}
}

// Revealer counts up the characters shown for the current excerpt, one per
// cadence tick, until min(len(text), limit). Each Start bumps a generation;
// ticks scheduled for an older generation are dropped, so a superseded
// question can never receive an update.
type Revealer struct {
	sched   Scheduler
	cadence time.Duration
	limit   int
	onTick  func(gen uint64, revealed int)

	mu    sync.Mutex
	state RevealState
	gen   uint64
	bound int
	count int
	timer Timer
}

// NewRevealer builds a revealer. onTick, if set, is called outside the
// revealer's lock after every increment.
func NewRevealer(sched Scheduler, cadence time.Duration, limit int, onTick func(gen uint64, revealed int)) *Revealer {
	if limit <= 0 {
		limit = DefaultRevealLimit
	}
	return &Revealer{
		sched:   sched,
		cadence: ClampCadence(cadence),
		limit:   limit,
		onTick:  onTick,
	}
}

// Start resets the count for text and begins revealing. It returns the
// generation the subsequent ticks belong to.
func (r *Revealer) Start(text string) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.stopTimerLocked()
	r.gen++
	r.count = 0
	r.bound = utf8.RuneCountInString(text)
	if r.bound > r.limit {
		r.bound = r.limit
	}
	if r.bound == 0 {
		r.state = RevealComplete
		return r.gen
	}
	r.state = RevealRunning
	r.scheduleLocked(r.gen)
	return r.gen
}

// Freeze pauses the reveal and returns the characters shown so far.
func (r *Revealer) Freeze() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopTimerLocked()
	if r.state == RevealRunning {
		r.state = RevealPaused
	}
	return r.count
}

// Stop cancels any pending tick and invalidates the current generation.
func (r *Revealer) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopTimerLocked()
	r.gen++
	r.state = RevealIdle
}

// Revealed returns the current count.
func (r *Revealer) Revealed() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// Bound returns the count at which the reveal completes.
func (r *Revealer) Bound() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.bound
}

// State returns the current lifecycle state.
func (r *Revealer) State() RevealState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Revealer) scheduleLocked(gen uint64) {
	r.timer = r.sched.AfterFunc(r.cadence, func() { r.tick(gen) })
}

func (r *Revealer) stopTimerLocked() {
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}

func (r *Revealer) tick(gen uint64) {
	r.mu.Lock()
	if gen != r.gen || r.state != RevealRunning {
		r.mu.Unlock()
		return
	}
	r.count++
	if r.count >= r.bound {
		r.state = RevealComplete
		r.timer = nil
	} else {
		r.scheduleLocked(gen)
	}
	revealed := r.count
	r.mu.Unlock()

	if r.onTick != nil {
		r.onTick(gen, revealed)
	}
}
