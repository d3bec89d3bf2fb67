package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/pulsedash/dashcal/internal/agenda"
	"github.com/pulsedash/dashcal/internal/core"
	"github.com/pulsedash/dashcal/internal/util"
)

const (
	dot       = "●"
	accentBar = "▌"
)

// cellRenderer draws one grid cell as two lines of fixed width.
type cellRenderer struct {
	width int
	focus time.Time
}

func (r cellRenderer) RenderDay(cell agenda.DayCell) string {
	label := fmt.Sprintf("%2d", cell.Day.Day())
	if cell.Today {
		if r.width >= 9 {
			label += " " + TodayBadgeStyle.Render("Today")
		} else {
			label += TodayBadgeStyle.Render("*")
		}
	}

	style := CellStyle
	if !cell.InMonth {
		style = OutOfMonthStyle
	}
	focused := agenda.SameDay(cell.Day, r.focus)
	switch {
	case cell.Selected && focused:
		style = SelectedCellStyle.Underline(true)
	case cell.Selected:
		style = SelectedCellStyle
	case focused:
		style = FocusCellStyle
	}

	return style.Width(r.width).Height(2).Render(label + "\n" + renderDots(cell.Indicators, r.width))
}

// renderDots draws one colored dot per shown event and the overflow count.
func renderDots(ind agenda.Indicators, width int) string {
	var b strings.Builder
	for _, e := range ind.Events {
		b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(e.DisplayColor())).Render(dot))
	}
	if ind.Overflow > 0 {
		b.WriteString(OverflowStyle.Render(fmt.Sprintf("+%d", ind.Overflow)))
	}
	return ansi.Truncate(b.String(), width, "")
}

// entryRenderer draws one agenda entry as a block with a color accent bar.
type entryRenderer struct {
	width int
	now   time.Time
	loc   *time.Location
}

func (r entryRenderer) RenderEvent(e core.Event) string {
	bar := lipgloss.NewStyle().Foreground(lipgloss.Color(e.DisplayColor())).Render(accentBar) + " "
	inner := max(r.width-2, 10)

	title := e.Title
	if title == "" {
		title = "(no title)"
	}
	head := EventTitleStyle.Render(util.TruncateText(title, inner))
	if e.InProgress(r.now) {
		head += " " + InProgressStyle.Render("NOW")
	}

	when := formatStart(e, r.loc)
	if d := e.Duration(); d > 0 && !e.IsAllDay {
		when += " · " + formatDuration(d)
	}
	lines := []string{head, TimeStyle.Render(when)}

	if e.Location != "" {
		lines = append(lines, LabelStyle.Render("@ ")+ValueStyle.Render(util.TruncateText(e.Location, inner-2)))
	}
	if e.Calendar.Name != "" {
		lines = append(lines, CalendarBadgeStyle.Render(util.TruncateText(e.Calendar.Name, inner)))
	}
	if e.Description != "" {
		desc := ansi.Wordwrap(util.Summary(e.Description, inner*2), inner, "")
		lines = append(lines, DescStyle.Render(desc))
	}
	if e.URL != "" {
		lines = append(lines, util.MakeHyperlink(e.URL, LinkStyle.Render("open")))
	}

	var b strings.Builder
	for i, block := range lines {
		for j, line := range strings.Split(block, "\n") {
			if i > 0 || j > 0 {
				b.WriteString("\n")
			}
			b.WriteString(bar + line)
		}
	}
	return b.String()
}

// formatStart renders the start as "Jan 2, 2006 3:04 PM", or the date only
// for all-day events.
func formatStart(e core.Event, loc *time.Location) string {
	start := e.Start.In(loc)
	if e.IsAllDay {
		return start.Format("Jan 2, 2006") + " (all day)"
	}
	return start.Format("Jan 2, 2006 3:04 PM")
}

func formatDuration(d time.Duration) string {
	if d < 0 {
		d = -d
	}

	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60

	switch {
	case days > 0 && hours > 0:
		return fmt.Sprintf("%dd %dh", days, hours)
	case days > 0:
		return fmt.Sprintf("%dd", days)
	case hours > 0 && minutes > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	case hours > 0:
		return fmt.Sprintf("%dh", hours)
	}
	return fmt.Sprintf("%dm", minutes)
}

// weekdayHeader labels each grid column. Monthly grids always start on
// Monday; rolling windows start on today's weekday.
func weekdayHeader(w agenda.Window, cellWidth int) string {
	cols := make([]string, 0, 7)
	for i := 0; i < 7 && i < len(w.Days); i++ {
		cols = append(cols, WeekdayStyle.Width(cellWidth).Render(w.Days[i].Format("Mon")))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cols...)
}
