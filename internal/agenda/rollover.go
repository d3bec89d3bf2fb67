package agenda

import (
	"sync"
	"time"
)

// State is the lifecycle of a Rollover.
type State int

const (
	Armed State = iota
	Fired
	Cancelled
)

func (s State) String() string {
	switch s {
	case Armed:
		return "armed"
	case Fired:
		return "fired"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Timer is a pending single-shot wake-up.
type Timer interface {
	Stop() bool
}

// Scheduler runs f once after d.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type systemScheduler struct{}

func (systemScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// SystemScheduler is backed by time.AfterFunc.
var SystemScheduler Scheduler = systemScheduler{}

// UntilRollover is the delay from now to one second past the end of now's day.
func UntilRollover(now time.Time) time.Duration {
	return EndOfDay(now).Sub(now) + time.Second
}

// Rollover wakes up shortly after each local midnight, refreshes "now" and
// notifies onTick. It rearms itself after each wake-up until stopped.
type Rollover struct {
	clock  Clock
	sched  Scheduler
	onTick func(now time.Time)

	mu    sync.Mutex
	now   time.Time
	state State
	timer Timer
	gen   uint64
}

// NewRollover captures now from clock and arms the first wake-up.
// A nil clock uses the wall clock and a nil scheduler uses SystemScheduler.
func NewRollover(clock Clock, sched Scheduler, onTick func(now time.Time)) *Rollover {
	if clock == nil {
		clock = SystemClock
	}
	if sched == nil {
		sched = SystemScheduler
	}
	r := &Rollover{clock: clock, sched: sched, onTick: onTick}

	r.mu.Lock()
	r.now = clock()
	r.armLocked()
	r.mu.Unlock()
	return r
}

// armLocked schedules the next wake-up against r.now. Caller holds r.mu.
func (r *Rollover) armLocked() {
	r.gen++
	gen := r.gen
	r.state = Armed
	r.timer = r.sched.AfterFunc(UntilRollover(r.now), func() { r.fire(gen) })
}

func (r *Rollover) fire(gen uint64) {
	r.mu.Lock()
	if r.state == Cancelled || gen != r.gen {
		r.mu.Unlock()
		return
	}
	r.state = Fired
	r.now = r.clock()
	now := r.now
	r.mu.Unlock()

	if r.onTick != nil {
		r.onTick(now)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	// onTick may have stopped us.
	if r.state == Cancelled || gen != r.gen {
		return
	}
	r.armLocked()
}

// Now returns the instant captured at construction or the latest wake-up.
func (r *Rollover) Now() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.now
}

// State returns the current lifecycle state.
func (r *Rollover) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Stop cancels any pending wake-up. It is safe to call more than once.
func (r *Rollover) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == Cancelled {
		return
	}
	r.state = Cancelled
	r.gen++
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}
