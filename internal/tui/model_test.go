package tui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/pulsedash/dashcal/internal/agenda"
	"github.com/pulsedash/dashcal/internal/core"
)

type fakeProvider struct {
	events []core.Event
	err    error
	last   core.FetchOptions
	calls  int
}

func (p *fakeProvider) ID() string   { return "fake" }
func (p *fakeProvider) Name() string { return "Fake" }

func (p *fakeProvider) FetchEvents(_ context.Context, opts core.FetchOptions) ([]core.Event, error) {
	p.calls++
	p.last = opts
	return p.events, p.err
}

func day(y int, m time.Month, d, hh, mm int) time.Time {
	return time.Date(y, m, d, hh, mm, 0, 0, time.UTC)
}

var june10 = day(2025, 6, 10, 14, 0)

func newTestModel(t *testing.T, rollingDays, horizon int, p *fakeProvider) Model {
	t.Helper()
	cal := agenda.New(agenda.Options{
		RollingDays: rollingDays,
		Clock:       func() time.Time { return june10 },
		Location:    time.UTC,
	})
	return NewModel(p, cal, core.FetchOptions{}, horizon)
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	nm, ok := next.(Model)
	if !ok {
		t.Fatalf("Update returned %T, want Model", next)
	}
	return nm, cmd
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestFetchCoversWindowAndHorizon(t *testing.T) {
	p := &fakeProvider{events: []core.Event{
		{ID: "a", Title: "Standup", Start: day(2025, 6, 11, 9, 0)},
	}}
	m := newTestModel(t, 0, 60, p)

	msg := m.fetchCmd(m.seq)()
	if !p.last.Start.Equal(day(2025, 5, 26, 0, 0)) || !p.last.End.Equal(day(2025, 8, 10, 0, 0)) {
		t.Errorf("fetch range = %v .. %v", p.last.Start, p.last.End)
	}

	m, _ = update(t, m, msg)
	if m.loading {
		t.Error("loading should clear after events arrive")
	}
	if len(m.cal.Events()) != 1 {
		t.Errorf("calendar has %d events, want 1", len(m.cal.Events()))
	}
}

func TestStaleFetchIgnored(t *testing.T) {
	p := &fakeProvider{events: []core.Event{{ID: "old", Start: day(2025, 6, 11, 9, 0)}}}
	m := newTestModel(t, 7, 0, p)

	stale := m.fetchCmd(m.seq)()
	m, cmd := update(t, m, RefreshMsg{})
	if cmd == nil {
		t.Fatal("RefreshMsg should start a fetch")
	}

	m, _ = update(t, m, stale)
	if len(m.cal.Events()) != 0 || !m.loading {
		t.Error("a result from an earlier fetch must be dropped")
	}

	m, _ = update(t, m, cmd())
	if len(m.cal.Events()) != 1 || m.loading {
		t.Error("the latest fetch should be applied")
	}
}

func TestFocusAndSelect(t *testing.T) {
	tests := []struct {
		name      string
		horizon   int
		wantFetch bool
	}{
		{"selection inside grid range", 0, false},
		{"selection moves horizon", 60, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestModel(t, 0, tt.horizon, &fakeProvider{})

			m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRight})
			if !m.focus.Equal(day(2025, 6, 11, 0, 0)) {
				t.Fatalf("focus = %v, want Jun 11", m.focus)
			}
			if !m.cal.Selected().Equal(day(2025, 6, 10, 0, 0)) {
				t.Error("moving focus must not change the selection")
			}

			m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
			if !m.cal.Selected().Equal(day(2025, 6, 11, 0, 0)) {
				t.Errorf("Selected() = %v, want Jun 11", m.cal.Selected())
			}
			if (cmd != nil) != tt.wantFetch {
				t.Errorf("fetch after select = %v, want %v", cmd != nil, tt.wantFetch)
			}
		})
	}
}

func TestMonthKeys(t *testing.T) {
	m := newTestModel(t, 0, 0, &fakeProvider{})

	m, cmd := update(t, m, runes("]"))
	if !m.cal.MonthCursor().Equal(day(2025, 7, 1, 0, 0)) {
		t.Errorf("MonthCursor() = %v, want Jul 1", m.cal.MonthCursor())
	}
	if !m.focus.Equal(day(2025, 7, 1, 0, 0)) {
		t.Errorf("focus = %v, want Jul 1", m.focus)
	}
	if cmd == nil {
		t.Error("changing month should fetch")
	}
	if !m.cal.Selected().Equal(day(2025, 6, 10, 0, 0)) {
		t.Error("month navigation must keep the selection")
	}

	m, _ = update(t, m, runes("["))
	m, _ = update(t, m, runes("["))
	if !m.cal.MonthCursor().Equal(day(2025, 5, 1, 0, 0)) {
		t.Errorf("MonthCursor() = %v, want May 1", m.cal.MonthCursor())
	}

	m, _ = update(t, m, runes("t"))
	if !m.cal.MonthCursor().Equal(day(2025, 6, 1, 0, 0)) || !m.focus.Equal(day(2025, 6, 10, 0, 0)) {
		t.Errorf("today key: cursor %v focus %v", m.cal.MonthCursor(), m.focus)
	}
}

func TestFocusFollowsIntoPreviousMonth(t *testing.T) {
	m := newTestModel(t, 0, 0, &fakeProvider{})

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyUp})
	if cmd != nil {
		t.Error("staying in June should not fetch")
	}
	m, cmd = update(t, m, tea.KeyMsg{Type: tea.KeyUp})
	if !m.focus.Equal(day(2025, 5, 27, 0, 0)) {
		t.Errorf("focus = %v, want May 27", m.focus)
	}
	if !m.cal.MonthCursor().Equal(day(2025, 5, 1, 0, 0)) || cmd == nil {
		t.Error("leaving the month should move the cursor and fetch")
	}
}

func TestRollingFocusClamped(t *testing.T) {
	m := newTestModel(t, 7, 0, &fakeProvider{})

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyLeft})
	if !m.focus.Equal(day(2025, 6, 10, 0, 0)) {
		t.Errorf("focus moved before the window: %v", m.focus)
	}
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	if !m.focus.Equal(day(2025, 6, 10, 0, 0)) {
		t.Errorf("focus moved past the window: %v", m.focus)
	}
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRight})
	if !m.focus.Equal(day(2025, 6, 11, 0, 0)) {
		t.Errorf("focus = %v, want Jun 11", m.focus)
	}

	m, cmd := update(t, m, runes("]"))
	if cmd != nil || !m.cal.MonthCursor().Equal(day(2025, 6, 1, 0, 0)) {
		t.Error("month keys do nothing in rolling mode")
	}
}

func TestRolloverMsg(t *testing.T) {
	m := newTestModel(t, 7, 0, &fakeProvider{})
	seq := m.seq

	m, cmd := update(t, m, RolloverMsg(day(2025, 6, 11, 0, 0).Add(time.Second)))
	if !m.cal.Today().Equal(day(2025, 6, 11, 0, 0)) {
		t.Errorf("Today() = %v, want Jun 11", m.cal.Today())
	}
	if !m.focus.Equal(day(2025, 6, 11, 0, 0)) {
		t.Errorf("focus = %v, want Jun 11", m.focus)
	}
	if cmd == nil || m.seq != seq+1 {
		t.Error("rollover should refetch the shifted window")
	}
	if w := m.cal.Window(); !w.Days[6].Equal(day(2025, 6, 17, 0, 0)) {
		t.Errorf("window ends %v, want Jun 17", w.Days[6])
	}
}

func TestView(t *testing.T) {
	tests := []struct {
		name        string
		rollingDays int
		events      []core.Event
		err         error
		want        []string
	}{
		{
			name: "monthly empty",
			want: []string{"June 2025", "Upcoming events", "From Jun 10, 2025", emptyAgenda},
		},
		{
			name:        "rolling with event",
			rollingDays: 7,
			events: []core.Event{
				{ID: "a", Title: "Sprint planning", Location: "Room 2", Start: day(2025, 6, 12, 9, 0), End: day(2025, 6, 12, 10, 0)},
			},
			want: []string{"Next 7 days", "Events until Jun 16, 2025", "Sprint planning", "Jun 12, 2025 9:00 AM", "Room 2"},
		},
		{
			name: "fetch error",
			err:  errors.New("token expired"),
			want: []string{"Error: token expired"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &fakeProvider{events: tt.events, err: tt.err}
			m := newTestModel(t, tt.rollingDays, 0, p)

			if got := m.View(); got != "Loading..." {
				t.Errorf("View() before sizing = %q", got)
			}

			m, _ = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
			m, _ = update(t, m, m.fetchCmd(m.seq)())

			view := m.View()
			for _, s := range tt.want {
				if !strings.Contains(view, s) {
					t.Errorf("View() missing %q", s)
				}
			}
		})
	}
}

func TestCompactLayoutSwitchesPanels(t *testing.T) {
	m := newTestModel(t, 0, 0, &fakeProvider{})
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 60, Height: 30})
	m, _ = update(t, m, m.fetchCmd(m.seq)())

	if !m.compactMode {
		t.Fatal("60 columns should be compact")
	}
	if v := m.View(); !strings.Contains(v, "[Calendar]") || strings.Contains(v, emptyAgenda) {
		t.Error("compact mode should start on the calendar panel")
	}

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	if v := m.View(); !strings.Contains(v, "[Agenda]") || !strings.Contains(v, emptyAgenda) {
		t.Error("tab should switch to the agenda panel")
	}
}

func TestHelpAndQuit(t *testing.T) {
	m := newTestModel(t, 7, 0, &fakeProvider{})
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})

	m, _ = update(t, m, runes("?"))
	if !m.showHelp || !strings.Contains(m.View(), "Keyboard Shortcuts") {
		t.Fatal("? should open the help panel")
	}
	m, cmd := update(t, m, runes("q"))
	if m.showHelp || cmd != nil {
		t.Error("any key should only dismiss help")
	}

	_, cmd = update(t, m, runes("q"))
	if cmd == nil {
		t.Fatal("q should quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q should return tea.Quit")
	}
}

func TestRenderDots(t *testing.T) {
	events := make([]core.Event, 6)
	for i := range events {
		events[i] = core.Event{ID: string(rune('a' + i)), Start: day(2025, 6, 10, 9+i, 0)}
	}
	got := renderDots(agenda.IndicatorsFor(events), 20)
	if strings.Count(got, dot) != agenda.MaxIndicators || !strings.Contains(got, "+2") {
		t.Errorf("renderDots() = %q", got)
	}
	if got := renderDots(agenda.Indicators{}, 20); got != "" {
		t.Errorf("renderDots(empty) = %q", got)
	}
}

func TestFormatting(t *testing.T) {
	durations := []struct {
		d    time.Duration
		want string
	}{
		{45 * time.Minute, "45m"},
		{time.Hour, "1h"},
		{90 * time.Minute, "1h 30m"},
		{26 * time.Hour, "1d 2h"},
		{48 * time.Hour, "2d"},
	}
	for _, tt := range durations {
		if got := formatDuration(tt.d); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}

	timed := core.Event{Start: day(2025, 6, 12, 15, 4)}
	if got := formatStart(timed, time.UTC); got != "Jun 12, 2025 3:04 PM" {
		t.Errorf("formatStart(timed) = %q", got)
	}
	allDay := core.Event{Start: day(2025, 6, 12, 0, 0), IsAllDay: true}
	if got := formatStart(allDay, time.UTC); got != "Jun 12, 2025 (all day)" {
		t.Errorf("formatStart(all day) = %q", got)
	}
}

func TestTickAcrossMidnight(t *testing.T) {
	tests := []struct {
		name      string
		tick      time.Time
		wantToday time.Time
		wantFetch bool
	}{
		{"same day", day(2025, 6, 10, 14, 1), day(2025, 6, 10, 0, 0), false},
		{"missed midnight", day(2025, 6, 11, 7, 30), day(2025, 6, 11, 0, 0), true},
		{"two days asleep", day(2025, 6, 12, 8, 0), day(2025, 6, 12, 0, 0), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestModel(t, 7, 0, &fakeProvider{})
			seq := m.seq

			m, cmd := update(t, m, tickMsg(tt.tick))
			if cmd == nil {
				t.Fatal("tick must schedule the next tick")
			}
			if !m.cal.Today().Equal(tt.wantToday) {
				t.Errorf("Today() = %v, want %v", m.cal.Today(), tt.wantToday)
			}
			if fetched := m.seq != seq; fetched != tt.wantFetch {
				t.Errorf("refetched = %v, want %v", fetched, tt.wantFetch)
			}
			if tt.wantFetch && !m.focus.Equal(tt.wantToday) {
				t.Errorf("focus = %v, want %v", m.focus, tt.wantToday)
			}
		})
	}
}
