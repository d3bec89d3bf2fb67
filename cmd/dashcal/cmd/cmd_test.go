package cmd

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/pulsedash/dashcal/internal/agenda"
	"github.com/pulsedash/dashcal/internal/core"
)

// Tuesday
var now = time.Date(2025, 6, 10, 14, 0, 0, 0, time.UTC)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"today", date(2025, 6, 10)},
		{" Tomorrow ", date(2025, 6, 11)},
		{"yesterday", date(2025, 6, 9)},
		{"friday", date(2025, 6, 13)},
		{"next tue", date(2025, 6, 17)},
		{"monday", date(2025, 6, 16)},
		{"2025-07-04", date(2025, 7, 4)},
		{"12/25/2024", date(2024, 12, 25)},
		{"08-01", date(2025, 8, 1)},
		{"08/01", date(2025, 8, 1)},
	}
	for _, tt := range tests {
		got, err := parseDate(tt.in, now)
		if err != nil {
			t.Errorf("parseDate(%q) error: %v", tt.in, err)
			continue
		}
		if !got.Equal(tt.want) {
			t.Errorf("parseDate(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}

	for _, bad := range []string{"", "someday", "2025-13-01", "32/01"} {
		if _, err := parseDate(bad, now); err == nil {
			t.Errorf("parseDate(%q) expected error", bad)
		}
	}
}

func TestParseMonth(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"this", date(2025, 6, 1)},
		{"next", date(2025, 7, 1)},
		{"last", date(2025, 5, 1)},
		{"2024-12", date(2024, 12, 1)},
	}
	for _, tt := range tests {
		got, err := parseMonth(tt.in, now)
		if err != nil {
			t.Errorf("parseMonth(%q) error: %v", tt.in, err)
			continue
		}
		if !got.Equal(tt.want) {
			t.Errorf("parseMonth(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
	if _, err := parseMonth("June", now); err == nil {
		t.Error("parseMonth(June) expected error")
	}
}

func TestResolveCalendarNames(t *testing.T) {
	calendars := map[string]string{
		"primary":     "Ada Lovelace",
		"team@group":  "Team Events",
		"holidays@cc": "Holidays in Sweden",
	}
	got := resolveCalendarNames([]string{"team", " primary ", "", "nope", "HOLIDAYS"}, calendars)
	want := []string{"team@group", "primary", "holidays@cc"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("resolveCalendarNames = %v, want %v", got, want)
	}
}

func TestExpandPath(t *testing.T) {
	t.Setenv("HOME", "/home/ada")
	if got := expandPath("~/cal/token.json"); got != filepath.Join("/home/ada", "cal/token.json") {
		t.Errorf("expandPath = %q", got)
	}
	if got := expandPath("/etc/dashcal.yaml"); got != "/etc/dashcal.yaml" {
		t.Errorf("expandPath absolute = %q", got)
	}
}

func TestWrapText(t *testing.T) {
	got := wrapText("one two three four\n\nfive", 9)
	want := []string{"one two", "three", "four", "five"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("wrapText = %q, want %q", got, want)
	}
}

func TestFormatEventTime(t *testing.T) {
	at := func(d, h, m int) time.Time { return time.Date(2025, 6, d, h, m, 0, 0, time.UTC) }
	tests := []struct {
		name string
		e    core.Event
		want string
	}{
		{"same day", core.Event{Start: at(10, 9, 0), End: at(10, 10, 30)}, "Tue, Jun 10, 9:00 AM - 10:30 AM"},
		{"no end", core.Event{Start: at(10, 9, 0)}, "Tue, Jun 10, 9:00 AM"},
		{"overnight", core.Event{Start: at(10, 22, 0), End: at(11, 2, 0)}, "Tue, Jun 10 10:00 PM - Wed, Jun 11 2:00 AM"},
		{"all day", core.Event{Start: at(10, 0, 0), End: at(11, 0, 0), IsAllDay: true}, "Tue, Jun 10 (all day)"},
		{"multi day", core.Event{Start: at(10, 0, 0), End: at(13, 0, 0), IsAllDay: true}, "Tue, Jun 10 - Thu, Jun 12 (all day)"},
	}
	for _, tt := range tests {
		if got := formatEventTime(tt.e, time.UTC); got != tt.want {
			t.Errorf("%s: got %q, want %q", tt.name, got, tt.want)
		}
	}
}

func testCalendar(days int, events []core.Event) *agenda.Calendar {
	cal := agenda.New(agenda.Options{
		RollingDays: days,
		Location:    time.UTC,
		Clock:       func() time.Time { return now },
	})
	cal.SetEvents(events)
	return cal
}

func TestPrintAgenda(t *testing.T) {
	events := []core.Event{
		{ID: "s1", Title: "Standup", Start: now.Add(-30 * time.Minute), End: now.Add(30 * time.Minute),
			Calendar: core.Calendar{Name: "Team"}, Location: "Room 4",
			Description: "<p>Daily sync</p>", URL: "https://example.com/e/1"},
		{ID: "r1", Title: "", Start: date(2025, 6, 12).Add(15 * time.Hour)},
		{ID: "late", Title: "Outside", Start: date(2025, 6, 20)},
	}

	var buf bytes.Buffer
	printAgenda(&buf, testCalendar(7, events), DefaultDisplayOptions())
	out := buf.String()

	for _, want := range []string{
		"📅 Events until Jun 16, 2025",
		"  Standup\n",
		"📅 Calendar:    Team",
		"⏱️  Duration:    1h",
		"📍 Location:    Room 4",
		"   Daily sync",
		"🟢 IN PROGRESS (30m remaining)",
		"(no title)",
		"Total: 2 events",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Outside") || strings.Contains(out, "🆔") {
		t.Errorf("unexpected entry or ID line:\n%s", out)
	}
}

func TestPrintAgendaEmpty(t *testing.T) {
	var buf bytes.Buffer
	printAgenda(&buf, testCalendar(0, nil), DefaultDisplayOptions())
	out := buf.String()
	if !strings.Contains(out, "📅 Upcoming events\nFrom Jun 10, 2025\n") || !strings.Contains(out, emptyAgenda) {
		t.Errorf("output:\n%s", out)
	}
	if strings.Contains(out, "Total:") {
		t.Errorf("empty agenda should not print a total:\n%s", out)
	}
}

func TestMonthPrinter(t *testing.T) {
	ev := func(n int) []core.Event { return make([]core.Event, n) }
	tests := []struct {
		name string
		cell agenda.DayCell
		want string
	}{
		{"plain", agenda.DayCell{Day: date(2025, 6, 3), InMonth: true}, "  3        "},
		{"selected today", agenda.DayCell{Day: date(2025, 6, 10), InMonth: true, Selected: true, Today: true,
			Indicators: agenda.Indicators{Events: ev(2), Total: 2}}, "[10]*••    "},
		{"overflow", agenda.DayCell{Day: date(2025, 6, 12), InMonth: true,
			Indicators: agenda.Indicators{Events: ev(4), Overflow: 3, Total: 7}}, " 12  ••••+3"},
	}
	for _, tt := range tests {
		if got := (monthPrinter{}).RenderDay(tt.cell); got != tt.want {
			t.Errorf("%s: got %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestPrintGrid(t *testing.T) {
	var buf bytes.Buffer
	printGrid(&buf, testCalendar(0, []core.Event{{ID: "a", Title: "A", Start: now}}))
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")

	if lines[0] != "🗓  June 2025" {
		t.Errorf("heading = %q", lines[0])
	}
	if !strings.HasPrefix(lines[2], " Mon") || !strings.HasSuffix(lines[2], "Sun") {
		t.Errorf("weekday row = %q", lines[2])
	}
	// 6 weeks
	if rows := len(lines) - 3; rows != 6 {
		t.Fatalf("rows = %d, want 6\n%s", rows, buf.String())
	}
	if !strings.Contains(lines[5], "[10]*•") {
		t.Errorf("week of Jun 9 = %q", lines[5])
	}
}

func TestDisplayOptionsFromConfig(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("display.id", true)
	viper.Set("display.description", false)

	opts := DisplayOptionsFromConfig()
	if !opts.ShowID || opts.ShowDesc || !opts.ShowCalendar {
		t.Errorf("opts = %+v", opts)
	}
}

func TestProfileRoundTrip(t *testing.T) {
	old := cfgFile
	cfgFile = filepath.Join(t.TempDir(), "nested", "config.yaml")
	t.Cleanup(func() { cfgFile = old })

	fs := pflag.NewFlagSet("profile", pflag.ContinueOnError)
	addProfileFlags(fs)
	if err := fs.Parse([]string{"--provider=ics", "--days=0", "--show-id", "--horizon-days=30"}); err != nil {
		t.Fatal(err)
	}

	settings := map[string]any{}
	if !applyProfileFlags(fs, settings) {
		t.Fatal("expected changes")
	}
	if err := saveProfileToConfig("kitchen", settings); err != nil {
		t.Fatal(err)
	}

	cfg, err := readConfigFile()
	if err != nil {
		t.Fatal(err)
	}
	got, ok := lookupProfile(cfg, "kitchen")
	if !ok {
		t.Fatalf("profile missing: %v", cfg)
	}
	for key, want := range map[string]any{
		"provider":     "ics",
		"days":         0,
		"horizon_days": 30,
		"display.id":   true,
	} {
		if v, ok := getNested(got, key); !ok || v != want {
			t.Errorf("%s = %v (%T), want %v", key, v, v, want)
		}
	}
	if _, ok := getNested(got, "limit"); ok {
		t.Error("unchanged flag should not be saved")
	}
	if _, ok := lookupProfile(cfg, "work"); ok {
		t.Error("unexpected profile")
	}
}

func TestCallbackRouter(t *testing.T) {
	codes := make(chan string, 1)
	errs := make(chan error, 1)
	h := callbackRouter("s3cret", codes, errs)

	call := func(query string) int {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?"+query, nil))
		return rec.Code
	}

	if code := call("state=forged&code=abc"); code != http.StatusBadRequest {
		t.Errorf("forged state status = %d", code)
	}
	if len(codes) != 0 {
		t.Error("forged state delivered a code")
	}
	if code := call("state=s3cret&code=abc"); code != http.StatusOK {
		t.Errorf("valid status = %d", code)
	}
	if got := <-codes; got != "abc" {
		t.Errorf("code = %q", got)
	}
	if code := call("state=s3cret&error=access_denied"); code != http.StatusBadRequest {
		t.Errorf("denied status = %d", code)
	}
	if err := <-errs; err == nil || !strings.Contains(err.Error(), "access_denied") {
		t.Errorf("err = %v", err)
	}
}
