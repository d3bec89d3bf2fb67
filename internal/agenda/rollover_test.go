package agenda

import (
	"sync"
	"testing"
	"time"
)

type fakeTimer struct {
	d       time.Duration
	f       func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	was := !t.stopped
	t.stopped = true
	return was
}

type fakeScheduler struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

func (s *fakeScheduler) AfterFunc(d time.Duration, f func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &fakeTimer{d: d, f: f}
	s.timers = append(s.timers, t)
	return t
}

func (s *fakeScheduler) last() *fakeTimer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timers[len(s.timers)-1]
}

type steppingClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *steppingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *steppingClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

func TestUntilRollover(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
		want time.Duration
	}{
		{"one minute to midnight", date(2025, 6, 10, 23, 59), time.Minute + time.Second - time.Nanosecond},
		{"at midnight", date(2025, 6, 10, 0, 0), 24*time.Hour + time.Second - time.Nanosecond},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := UntilRollover(tt.now)
			if got != tt.want {
				t.Errorf("UntilRollover() = %v, want %v", got, tt.want)
			}
			if !tt.now.Add(got).After(EndOfDay(tt.now)) {
				t.Error("wake-up must land after the end of the day")
			}
		})
	}
}

func TestRolloverFiresAndRearms(t *testing.T) {
	clock := &steppingClock{now: date(2025, 6, 10, 23, 59)}
	sched := &fakeScheduler{}
	var ticks []time.Time

	r := NewRollover(clock.Now, sched, func(now time.Time) { ticks = append(ticks, now) })

	if r.State() != Armed {
		t.Fatalf("State() = %v, want armed", r.State())
	}
	first := sched.last()
	if first.d != UntilRollover(date(2025, 6, 10, 23, 59)) {
		t.Errorf("first delay = %v", first.d)
	}

	next := time.Date(2025, 6, 11, 0, 0, 1, 0, time.UTC)
	clock.Set(next)
	first.f()

	if len(ticks) != 1 || !ticks[0].Equal(next) {
		t.Fatalf("ticks = %v, want [%v]", ticks, next)
	}
	if !r.Now().Equal(next) {
		t.Errorf("Now() = %v, want %v", r.Now(), next)
	}
	if len(sched.timers) != 2 {
		t.Fatalf("timers = %d, want rearmed", len(sched.timers))
	}
	if sched.last().d != UntilRollover(next) {
		t.Errorf("second delay = %v, want %v", sched.last().d, UntilRollover(next))
	}
	if r.State() != Armed {
		t.Errorf("State() = %v, want armed after rearm", r.State())
	}

	// a duplicate wake-up from the first timer is stale
	first.f()
	if len(ticks) != 1 {
		t.Errorf("stale wake-up ticked: %v", ticks)
	}
}

func TestRolloverStop(t *testing.T) {
	clock := &steppingClock{now: date(2025, 6, 10, 12, 0)}
	sched := &fakeScheduler{}
	ticked := false

	r := NewRollover(clock.Now, sched, func(time.Time) { ticked = true })
	pending := sched.last()

	r.Stop()
	if r.State() != Cancelled {
		t.Errorf("State() = %v, want cancelled", r.State())
	}
	if !pending.stopped {
		t.Error("pending timer was not stopped")
	}

	// a wake-up racing with Stop must not call back
	pending.f()
	if ticked {
		t.Error("callback ran after Stop")
	}
	if len(sched.timers) != 1 {
		t.Error("rearmed after Stop")
	}

	r.Stop()
	if r.State() != Cancelled {
		t.Errorf("second Stop changed state to %v", r.State())
	}
}

func TestRolloverStopInsideCallback(t *testing.T) {
	clock := &steppingClock{now: date(2025, 6, 10, 23, 59)}
	sched := &fakeScheduler{}

	var r *Rollover
	r = NewRollover(clock.Now, sched, func(time.Time) { r.Stop() })
	sched.last().f()

	if r.State() != Cancelled {
		t.Errorf("State() = %v, want cancelled", r.State())
	}
	if len(sched.timers) != 1 {
		t.Errorf("timers = %d, stopped rollover must not rearm", len(sched.timers))
	}
}

func TestRolloverStopAfterFire(t *testing.T) {
	clock := &steppingClock{now: date(2025, 6, 10, 23, 59)}
	sched := &fakeScheduler{}

	r := NewRollover(clock.Now, sched, nil)
	sched.last().f()
	r.Stop()
	r.Stop()

	if !sched.last().stopped {
		t.Error("rearmed timer was not stopped")
	}
}

func TestRolloverDisplayZone(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*60*60)
	host := date(2025, 6, 10, 20, 0)
	sched := &fakeScheduler{}

	NewRollover(func() time.Time { return host.In(tokyo) }, sched, nil)

	// 05:00 on Jun 11 in Tokyo, so the next midnight is 19h away.
	want := UntilRollover(host.In(tokyo))
	if want != 19*time.Hour+time.Second-time.Nanosecond {
		t.Fatalf("UntilRollover(tokyo) = %v", want)
	}
	if got := sched.last().d; got != want {
		t.Errorf("delay = %v, want %v (host-zone delay %v)", got, want, UntilRollover(host))
	}
	fires := host.Add(sched.last().d).In(tokyo)
	if fires.Hour() != 0 || fires.Day() != 12 {
		t.Errorf("fires at %v, want just after midnight Jun 12 in Tokyo", fires)
	}
}

func TestClockIn(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*60*60)
	tests := []struct {
		name string
		loc  *time.Location
		want *time.Location
	}{
		{"display zone", tokyo, tokyo},
		{"nil means local", nil, time.Local},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClockIn(tt.loc)().Location(); got != tt.want {
				t.Errorf("Location() = %v, want %v", got, tt.want)
			}
		})
	}
}
