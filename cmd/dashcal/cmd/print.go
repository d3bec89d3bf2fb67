package cmd

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/pulsedash/dashcal/internal/agenda"
	"github.com/pulsedash/dashcal/internal/core"
	"github.com/pulsedash/dashcal/internal/util"
	"github.com/spf13/viper"
)

const (
	divider      = "─────────────────────────────────────────────────"
	emptyAgenda  = "No events in this period."
	descWidth    = 60
	monthCellLen = 11
)

// DisplayOptions controls how agenda entries are printed
type DisplayOptions struct {
	ShowCalendar   bool   // Show calendar name
	ShowTime       bool   // Show when/duration
	ShowLocation   bool   // Show location
	ShowDesc       bool   // Show description
	ShowURL        bool   // Show event link
	ShowID         bool   // Show event ID
	ShowInProgress bool   // Show in-progress status
	Indent         string // Indentation prefix
}

// DefaultDisplayOptions returns options for the agenda list
func DefaultDisplayOptions() DisplayOptions {
	return DisplayOptions{
		ShowCalendar:   true,
		ShowTime:       true,
		ShowLocation:   true,
		ShowDesc:       true,
		ShowURL:        true,
		ShowID:         false,
		ShowInProgress: true,
		Indent:         "  ",
	}
}

// DisplayOptionsFromConfig builds display options from viper config
func DisplayOptionsFromConfig() DisplayOptions {
	opts := DefaultDisplayOptions()

	for key, field := range map[string]*bool{
		"display.calendar":    &opts.ShowCalendar,
		"display.time":        &opts.ShowTime,
		"display.location":    &opts.ShowLocation,
		"display.description": &opts.ShowDesc,
		"display.url":         &opts.ShowURL,
		"display.id":          &opts.ShowID,
		"display.in_progress": &opts.ShowInProgress,
	} {
		if viper.IsSet(key) {
			*field = viper.GetBool(key)
		}
	}
	return opts
}

// printAgenda writes the agenda heading and every upcoming entry.
func printAgenda(w io.Writer, cal *agenda.Calendar, opts DisplayOptions) {
	title, subtitle := cal.AgendaHeading()
	fmt.Fprintf(w, "📅 %s\n", title)
	if subtitle != "" {
		fmt.Fprintln(w, subtitle)
	}
	fmt.Fprintln(w, divider)

	entries := cal.RenderAgenda(agendaPrinter{opts: opts, now: cal.Now(), loc: cal.Location()})
	if len(entries) == 0 {
		fmt.Fprintln(w, emptyAgenda)
		return
	}
	for _, entry := range entries {
		fmt.Fprintln(w)
		fmt.Fprint(w, entry)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, divider)
	fmt.Fprintf(w, "Total: %d events\n", len(entries))
}

// printGrid writes the window heading, a weekday row and one row per week.
func printGrid(w io.Writer, cal *agenda.Calendar) {
	fmt.Fprintf(w, "🗓  %s\n", cal.Heading())
	fmt.Fprintln(w, divider)

	cells := cal.Cells()
	var header strings.Builder
	for i := 0; i < min(7, len(cells)); i++ {
		fmt.Fprintf(&header, "%-*s", monthCellLen, " "+cells[i].Day.Format("Mon"))
	}
	fmt.Fprintln(w, strings.TrimRight(header.String(), " "))

	rendered := cal.RenderCells(monthPrinter{})
	for i := 0; i < len(rendered); i += 7 {
		row := rendered[i:min(i+7, len(rendered))]
		fmt.Fprintln(w, strings.TrimRight(strings.Join(row, ""), " "))
	}
	fmt.Fprintln(w)
}

// agendaPrinter renders one entry as a block of labelled lines.
type agendaPrinter struct {
	opts DisplayOptions
	now  time.Time
	loc  *time.Location
}

func (p agendaPrinter) RenderEvent(e core.Event) string {
	indent := p.opts.Indent
	var b strings.Builder

	title := e.Title
	if title == "" {
		title = "(no title)"
	}
	fmt.Fprintf(&b, "%s%s\n", indent, title)

	if p.opts.ShowCalendar && e.Calendar.Name != "" {
		fmt.Fprintf(&b, "%s📅 Calendar:    %s\n", indent, e.Calendar.Name)
	}

	if p.opts.ShowTime {
		fmt.Fprintf(&b, "%s🕐 When:        %s\n", indent, formatEventTime(e, p.loc))
		if d := e.Duration(); d > 0 && !e.IsAllDay {
			fmt.Fprintf(&b, "%s⏱️  Duration:    %s\n", indent, formatDurationCompact(d))
		}
	}

	if p.opts.ShowLocation && e.Location != "" {
		fmt.Fprintf(&b, "%s📍 Location:    %s\n", indent, e.Location)
	}

	if p.opts.ShowDesc && e.Description != "" {
		fmt.Fprintf(&b, "%s📝 Description:\n", indent)
		for _, line := range wrapText(util.HTMLToText(e.Description, descWidth), descWidth) {
			fmt.Fprintf(&b, "%s   %s\n", indent, line)
		}
	}

	if p.opts.ShowURL && e.URL != "" {
		fmt.Fprintf(&b, "%s🔗 Event:       %s\n", indent, util.MakeHyperlink(e.URL, util.TruncateText(e.URL, descWidth)))
	}

	if p.opts.ShowInProgress && !e.IsAllDay && e.InProgress(p.now) {
		fmt.Fprintf(&b, "%s🟢 IN PROGRESS (%s remaining)\n", indent, formatDurationCompact(e.End.Sub(p.now)))
	}

	if p.opts.ShowID {
		fmt.Fprintf(&b, "%s🆔 ID:          %s\n", indent, e.ID)
	}
	return b.String()
}

// monthPrinter renders a fixed-width cell: "[12]*" for a selected today,
// then one dot per indicator and "+N" for the rest.
type monthPrinter struct{}

var outOfMonth = lipgloss.NewStyle().Faint(true)

func (monthPrinter) RenderDay(cell agenda.DayCell) string {
	label := fmt.Sprintf(" %2d ", cell.Day.Day())
	if cell.Selected {
		label = fmt.Sprintf("[%2d]", cell.Day.Day())
	}
	if cell.Today {
		label += "*"
	} else {
		label += " "
	}

	dots := strings.Repeat("•", len(cell.Indicators.Events))
	if cell.Indicators.Overflow > 0 {
		dots += fmt.Sprintf("+%d", cell.Indicators.Overflow)
	}

	s := fmt.Sprintf("%-*s", monthCellLen, label+dots)
	if !cell.InMonth {
		return outOfMonth.Render(s)
	}
	return s
}

// wrapText wraps text to the given width
func wrapText(s string, width int) []string {
	var lines []string
	for _, paragraph := range strings.Split(s, "\n") {
		words := strings.Fields(paragraph)
		if len(words) == 0 {
			continue
		}

		line := words[0]
		for _, word := range words[1:] {
			if len(line)+1+len(word) > width {
				lines = append(lines, line)
				line = word
			} else {
				line += " " + word
			}
		}
		lines = append(lines, line)
	}
	return lines
}

// formatDurationCompact formats a duration in a compact way
func formatDurationCompact(d time.Duration) string {
	if d < 0 {
		d = -d
	}

	days := int(d.Hours() / 24)
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60

	if days > 0 {
		if hours > 0 {
			return fmt.Sprintf("%dd %dh", days, hours)
		}
		return fmt.Sprintf("%dd", days)
	}
	if hours > 0 {
		if minutes > 0 {
			return fmt.Sprintf("%dh %dm", hours, minutes)
		}
		return fmt.Sprintf("%dh", hours)
	}
	return fmt.Sprintf("%dm", minutes)
}

func formatEventTime(e core.Event, loc *time.Location) string {
	start := e.Start.In(loc)
	if e.IsAllDay {
		if e.End.IsZero() || e.End.Sub(e.Start) <= 24*time.Hour {
			return start.Format("Mon, Jan 2") + " (all day)"
		}
		last := e.End.In(loc).Add(-24 * time.Hour)
		return fmt.Sprintf("%s - %s (all day)", start.Format("Mon, Jan 2"), last.Format("Mon, Jan 2"))
	}
	if e.End.IsZero() {
		return start.Format("Mon, Jan 2, 3:04 PM")
	}

	end := e.End.In(loc)
	if agenda.SameDay(start, end) {
		return fmt.Sprintf("%s, %s - %s", start.Format("Mon, Jan 2"), start.Format("3:04 PM"), end.Format("3:04 PM"))
	}
	return fmt.Sprintf("%s - %s", start.Format("Mon, Jan 2 3:04 PM"), end.Format("Mon, Jan 2 3:04 PM"))
}
