package tui

import "github.com/charmbracelet/lipgloss"

var (
	// Colors
	primaryColor   = lipgloss.Color("#7C3AED") // Purple
	secondaryColor = lipgloss.Color("#10B981") // Green
	mutedColor     = lipgloss.Color("#6B7280") // Gray
	accentColor    = lipgloss.Color("#F59E0B") // Amber
	errorColor     = lipgloss.Color("#EF4444") // Red
	dimColor       = lipgloss.Color("#52525B")
	fgColor        = lipgloss.Color("#F9FAFB") // Light

	// Layout styles
	AppStyle    = lipgloss.NewStyle().Padding(1, 2)
	HeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(primaryColor)

	// Calendar grid (left side)
	GridPanelStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(mutedColor).Padding(0, 1)
	GridTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(primaryColor)
	WeekdayStyle   = lipgloss.NewStyle().Foreground(mutedColor).Bold(true)

	// Agenda (right side)
	AgendaPanelStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(primaryColor).Padding(0, 2)
	AgendaTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(primaryColor)
	SubtitleStyle    = lipgloss.NewStyle().Foreground(mutedColor).Italic(true)
	EmptyStyle       = lipgloss.NewStyle().Foreground(mutedColor).Italic(true)

	// Day cells
	CellStyle         = lipgloss.NewStyle().Foreground(fgColor)
	OutOfMonthStyle   = lipgloss.NewStyle().Foreground(dimColor).Faint(true)
	SelectedCellStyle = lipgloss.NewStyle().Background(primaryColor).Foreground(fgColor).Bold(true)
	FocusCellStyle    = lipgloss.NewStyle().Foreground(accentColor).Bold(true).Underline(true)
	TodayBadgeStyle   = lipgloss.NewStyle().Foreground(secondaryColor).Bold(true)
	OverflowStyle     = lipgloss.NewStyle().Foreground(mutedColor)

	// Agenda entries
	EventTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(fgColor)
	TimeStyle       = lipgloss.NewStyle().Foreground(secondaryColor)
	LabelStyle      = lipgloss.NewStyle().Foreground(accentColor)
	ValueStyle      = lipgloss.NewStyle().Foreground(fgColor)
	DescStyle       = lipgloss.NewStyle().Foreground(mutedColor)
	LinkStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#60A5FA")).Underline(true)

	// Help bar
	HelpStyle    = lipgloss.NewStyle().Foreground(mutedColor).MarginTop(1)
	HelpKeyStyle = lipgloss.NewStyle().Foreground(primaryColor).Bold(true)

	// In progress indicator
	InProgressStyle = lipgloss.NewStyle().Background(secondaryColor).Foreground(fgColor).Bold(true).Padding(0, 1)

	// Calendar badge
	CalendarBadgeStyle = lipgloss.NewStyle().Foreground(mutedColor).Italic(true)

	ErrorStyle = lipgloss.NewStyle().Foreground(errorColor)
)
