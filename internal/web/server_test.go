package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/pulsedash/dashcal/internal/core"
)

type fakeProvider struct {
	mu     sync.Mutex
	events []core.Event
	err    error
	calls  int
	last   core.FetchOptions
}

func (p *fakeProvider) ID() string   { return "fake" }
func (p *fakeProvider) Name() string { return "Fake" }

func (p *fakeProvider) FetchEvents(_ context.Context, opts core.FetchOptions) ([]core.Event, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	p.last = opts
	return p.events, p.err
}

func at(y int, m time.Month, d, hh, mm int) time.Time {
	return time.Date(y, m, d, hh, mm, 0, 0, time.UTC)
}

func sampleEvents() []core.Event {
	return []core.Event{
		{ID: "review", Title: "Review", Start: at(2025, 5, 27, 9, 0), Color: "#e67c73"},
		{ID: "standup", Title: "Standup", Start: at(2025, 6, 10, 9, 0)},
		{ID: "demo", Title: "Demo", Start: at(2025, 6, 12, 15, 0), End: at(2025, 6, 12, 16, 0)},
		{ID: "july", Title: "Kickoff", Start: at(2025, 7, 2, 10, 0)},
	}
}

func newTestServer(p *fakeProvider, rollingDays int) *Server {
	return NewServer(p, Config{
		RollingDays: rollingDays,
		Location:    time.UTC,
		Clock:       func() time.Time { return at(2025, 6, 10, 14, 0) },
	})
}

func get(t *testing.T, s *Server, target string) (*httptest.ResponseRecorder, calendarResponse) {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))

	var resp calendarResponse
	if rec.Code == http.StatusOK {
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode response: %v\n%s", err, rec.Body.String())
		}
	}
	return rec, resp
}

func upcomingIDs(resp calendarResponse) []string {
	var out []string
	for _, e := range resp.Upcoming {
		out = append(out, e.ID)
	}
	return out
}

func equal(a []string, b ...string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestHealth(t *testing.T) {
	s := newTestServer(&fakeProvider{}, 7)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil || body["status"] != "ok" {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestCalendarRolling(t *testing.T) {
	p := &fakeProvider{events: sampleEvents()}
	rec, resp := get(t, newTestServer(p, 7), "/api/calendar")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	if resp.Mode != "rolling" || resp.Title != "Next 7 days" || resp.AgendaTitle != "Events until Jun 16, 2025" {
		t.Errorf("headings = %q %q %q", resp.Mode, resp.Title, resp.AgendaTitle)
	}
	if len(resp.Days) != 7 || resp.Days[0].Date != "2025-06-10" || !resp.Days[0].Today || !resp.Days[0].Selected {
		t.Errorf("days = %+v", resp.Days)
	}
	if got := upcomingIDs(resp); !equal(got, "standup", "demo") {
		t.Errorf("upcoming = %v", got)
	}
	if resp.Upcoming[0].Color != core.DefaultColor {
		t.Errorf("default color = %q", resp.Upcoming[0].Color)
	}
	if !p.last.Start.Equal(at(2025, 6, 10, 0, 0)) || !p.last.End.Equal(at(2025, 6, 17, 0, 0)) {
		t.Errorf("fetch range = %v .. %v", p.last.Start, p.last.End)
	}
}

func TestCalendarMonthlyDelegatedSelection(t *testing.T) {
	p := &fakeProvider{events: sampleEvents()}
	s := newTestServer(p, 7)

	rec, resp := get(t, s, "/api/calendar?days=0&selected=2025-05-27")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if resp.Mode != "monthly" || resp.Month != "2025-06" || resp.Title != "June 2025" {
		t.Errorf("mode %q month %q title %q", resp.Mode, resp.Month, resp.Title)
	}
	if resp.Selected != "2025-05-27" || resp.AgendaSubtitle != "From May 27, 2025" {
		t.Errorf("selected %q subtitle %q", resp.Selected, resp.AgendaSubtitle)
	}
	if len(resp.Days) != 42 {
		t.Fatalf("days = %d, want 42", len(resp.Days))
	}

	var may27 dayDTO
	for _, d := range resp.Days {
		if d.Date == "2025-05-27" {
			may27 = d
		}
	}
	if !may27.Selected || may27.InMonth || may27.Total != 1 || !equal(may27.Indicators, "#e67c73") {
		t.Errorf("May 27 cell = %+v", may27)
	}
	if got := upcomingIDs(resp); !equal(got, "review", "standup", "demo", "july") {
		t.Errorf("upcoming = %v", got)
	}
}

func TestCalendarMonthAndLimit(t *testing.T) {
	p := &fakeProvider{events: sampleEvents()}
	rec, resp := get(t, newTestServer(p, 0), "/api/calendar?month=2025-07&limit=1")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if resp.Title != "July 2025" || resp.Selected != "2025-06-10" {
		t.Errorf("title %q selected %q", resp.Title, resp.Selected)
	}
	if got := upcomingIDs(resp); !equal(got, "standup") {
		t.Errorf("upcoming = %v, want [standup]", got)
	}
}

func TestCalendarEmpty(t *testing.T) {
	_, resp := get(t, newTestServer(&fakeProvider{}, 7), "/api/calendar")
	if resp.Upcoming == nil || len(resp.Upcoming) != 0 {
		t.Errorf("upcoming = %#v, want empty list", resp.Upcoming)
	}
}

func TestCalendarBadQuery(t *testing.T) {
	for _, target := range []string{
		"/api/calendar?days=abc",
		"/api/calendar?days=-1",
		"/api/calendar?month=June",
		"/api/calendar?selected=2025-13-01",
		"/api/calendar?limit=x",
	} {
		rec, _ := get(t, newTestServer(&fakeProvider{}, 7), target)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", target, rec.Code)
		}
	}
}

func TestCalendarProviderError(t *testing.T) {
	rec, _ := get(t, newTestServer(&fakeProvider{err: errors.New("boom")}, 7), "/api/calendar")
	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", rec.Code)
	}
}

func TestEventCache(t *testing.T) {
	p := &fakeProvider{events: sampleEvents()}
	s := newTestServer(p, 7)

	get(t, s, "/api/calendar")
	get(t, s, "/api/calendar?limit=1")
	if p.calls != 1 {
		t.Errorf("provider calls = %d, want 1 for the same range", p.calls)
	}

	get(t, s, "/api/calendar?days=3")
	if p.calls != 2 {
		t.Errorf("provider calls = %d, want 2 after a new range", p.calls)
	}

	s.Invalidate()
	get(t, s, "/api/calendar")
	if p.calls != 3 {
		t.Errorf("provider calls = %d, want 3 after Invalidate", p.calls)
	}
}

func TestEventCacheExpiry(t *testing.T) {
	p := &fakeProvider{events: sampleEvents()}
	var mu sync.Mutex
	clock := at(2025, 6, 10, 14, 0)
	s := NewServer(p, Config{
		RollingDays: 7,
		Location:    time.UTC,
		CacheTTL:    5 * time.Minute,
		Clock: func() time.Time {
			mu.Lock()
			defer mu.Unlock()
			return clock
		},
	})
	advance := func(d time.Duration) {
		mu.Lock()
		clock = clock.Add(d)
		mu.Unlock()
	}
	cached := func() int {
		s.mu.Lock()
		defer s.mu.Unlock()
		return len(s.cache)
	}

	for _, target := range []string{
		"/api/calendar?days=1",
		"/api/calendar?days=2",
		"/api/calendar?days=3",
		"/api/calendar?days=4",
	} {
		get(t, s, target)
	}
	if n := cached(); n != 4 {
		t.Fatalf("cache entries = %d, want 4", n)
	}

	advance(time.Minute)
	get(t, s, "/api/calendar?days=1")
	if p.calls != 4 {
		t.Errorf("provider calls = %d, want 4 within the TTL", p.calls)
	}

	advance(10 * time.Minute)
	get(t, s, "/api/calendar?days=5")
	if n := cached(); n != 1 {
		t.Errorf("cache entries = %d, want expired ranges swept", n)
	}

	get(t, s, "/api/calendar?days=1")
	if p.calls != 6 {
		t.Errorf("provider calls = %d, want 6 after expiry", p.calls)
	}
	if n := cached(); n != 2 {
		t.Errorf("cache entries = %d, want 2", n)
	}
}
