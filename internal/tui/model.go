package tui

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/pulsedash/dashcal/internal/agenda"
	"github.com/pulsedash/dashcal/internal/core"
)

const (
	compactThreshold = 70
	fetchTimeout     = 30 * time.Second
	emptyAgenda      = "No events in this period."
)

// KeyMap defines the keybindings for the TUI
type KeyMap struct {
	Left       key.Binding
	Right      key.Binding
	Up         key.Binding
	Down       key.Binding
	Select     key.Binding
	PrevMonth  key.Binding
	NextMonth  key.Binding
	Today      key.Binding
	Open       key.Binding
	ScrollUp   key.Binding
	ScrollDown key.Binding
	Refresh    key.Binding
	Tab        key.Binding
	Quit       key.Binding
	Help       key.Binding
}

var DefaultKeyMap = KeyMap{
	Left: key.NewBinding(
		key.WithKeys("left", "h"),
		key.WithHelp("←", "prev day"),
	),
	Right: key.NewBinding(
		key.WithKeys("right", "l"),
		key.WithHelp("→", "next day"),
	),
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑", "prev week"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓", "next week"),
	),
	Select: key.NewBinding(
		key.WithKeys("enter", " "),
		key.WithHelp("enter", "select day"),
	),
	PrevMonth: key.NewBinding(
		key.WithKeys("["),
		key.WithHelp("[", "prev month"),
	),
	NextMonth: key.NewBinding(
		key.WithKeys("]"),
		key.WithHelp("]", "next month"),
	),
	Today: key.NewBinding(
		key.WithKeys("t"),
		key.WithHelp("t", "today"),
	),
	Open: key.NewBinding(
		key.WithKeys("o"),
		key.WithHelp("o", "open event"),
	),
	ScrollUp: key.NewBinding(
		key.WithKeys("ctrl+u", "pgup"),
		key.WithHelp("ctrl+u", "scroll up"),
	),
	ScrollDown: key.NewBinding(
		key.WithKeys("ctrl+d", "pgdown"),
		key.WithHelp("ctrl+d", "scroll down"),
	),
	Refresh: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "refresh"),
	),
	Tab: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("tab", "switch panel"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "help"),
	),
}

// Panel focus for compact mode
type PanelFocus int

const (
	FocusGrid PanelFocus = iota
	FocusAgenda
)

// RolloverMsg tells the model the local date changed. Send it from the
// midnight rollover callback.
type RolloverMsg time.Time

// RefreshMsg asks the model to fetch events again.
type RefreshMsg struct{}

type eventsLoadedMsg struct {
	seq    int
	events []core.Event
	err    error
}

type tickMsg time.Time

// Model is the Bubble Tea model for the calendar and agenda.
type Model struct {
	cal          *agenda.Calendar
	provider     core.Provider
	fetchOptions core.FetchOptions
	horizonDays  int

	// focus is the cell the cursor is on; selection only changes on Select.
	focus    time.Time
	lastTick time.Time
	seq      int

	width         int
	height        int
	gridWidth     int
	agendaWidth   int
	cellWidth     int
	contentHeight int
	keys          KeyMap
	loading       bool
	err           error
	agendaView    viewport.Model
	viewportReady bool
	compactMode   bool
	focusedPanel  PanelFocus
	showHelp      bool
}

// NewModel creates a TUI model over cal. Events come from provider; opts
// carries the calendar filters, and its range is replaced on every fetch.
func NewModel(provider core.Provider, cal *agenda.Calendar, opts core.FetchOptions, horizonDays int) Model {
	return Model{
		cal:          cal,
		provider:     provider,
		fetchOptions: opts,
		horizonDays:  horizonDays,
		focus:        cal.Selected(),
		lastTick:     cal.Now(),
		seq:          1,
		keys:         DefaultKeyMap,
		loading:      true,
	}
}

// loadEvents fetches the range the calendar currently needs. Results of
// older fetches are dropped when they arrive after a newer one was issued.
func (m *Model) loadEvents() tea.Cmd {
	m.seq++
	m.loading = true
	return m.fetchCmd(m.seq)
}

func (m Model) fetchCmd(seq int) tea.Cmd {
	opts := m.fetchOptions
	opts.Start, opts.End = m.cal.FetchRange(m.horizonDays)
	provider := m.provider

	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()
		events, err := provider.FetchEvents(ctx, opts)
		return eventsLoadedMsg{seq: seq, events: events, err: err}
	}
}

// rollTo moves the calendar to now, keeps a rolling focus inside the
// window and refetches.
func (m *Model) rollTo(now time.Time) tea.Cmd {
	m.cal.SetNow(now)
	m.lastTick = now
	if m.cal.Mode() == agenda.ModeRolling && m.focus.Before(m.cal.Today()) {
		m.focus = m.cal.Today()
	}
	log.Debug("date rolled over", "today", m.cal.Today().Format(time.DateOnly))
	return m.loadEvents()
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Minute, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.fetchCmd(m.seq), tickCmd())
}

// calculateLayout calculates responsive layout dimensions
func (m *Model) calculateLayout() {
	height := max(m.height, 10)

	// Header, help bar and padding take six lines
	m.contentHeight = max(height-6, 5)
	m.compactMode = m.width < compactThreshold

	if m.compactMode {
		m.gridWidth = max(m.width-4, 30)
		m.agendaWidth = m.gridWidth
	} else {
		m.gridWidth = min(max(m.width*55/100, 38), 84)
		m.agendaWidth = max(m.width-m.gridWidth-5, 30)
	}

	// border and padding take four columns
	m.cellWidth = max((m.gridWidth-4)/7, 3)
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.calculateLayout()

		// Agenda header and borders take four lines, padding four columns
		vpHeight := max(m.contentHeight-4, 1)
		vpWidth := max(m.agendaWidth-6, 10)
		if !m.viewportReady {
			m.agendaView = viewport.New(vpWidth, vpHeight)
			m.agendaView.Style = lipgloss.NewStyle()
			m.viewportReady = true
		} else {
			m.agendaView.Width = vpWidth
			m.agendaView.Height = vpHeight
		}
		m.updateAgendaContent()
		return m, nil

	case eventsLoadedMsg:
		if msg.seq != m.seq {
			return m, nil
		}
		m.loading = false
		m.err = msg.err
		if msg.err == nil {
			m.cal.SetEvents(msg.events)
		} else {
			log.Error("fetching events failed", "provider", m.provider.ID(), "err", msg.err)
		}
		m.updateAgendaContent()
		m.agendaView.GotoTop()
		return m, nil

	case RolloverMsg:
		cmd := m.rollTo(time.Time(msg))
		return m, cmd

	case RefreshMsg:
		return m, m.loadEvents()

	case tickMsg:
		// Refresh every minute so in-progress badges stay current.
		// The midnight timer runs late after a suspend, so the tick
		// also catches a missed day change.
		now := time.Time(msg)
		if !agenda.SameDay(m.cal.Now(), now) {
			cmd := m.rollTo(now)
			return m, tea.Batch(cmd, tickCmd())
		}
		m.lastTick = now
		m.updateAgendaContent()
		return m, tickCmd()

	case tea.KeyMsg:
		// When help overlay is shown, any key dismisses it
		if m.showHelp {
			m.showHelp = false
			return m, nil
		}

		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit

		case key.Matches(msg, m.keys.Help):
			m.showHelp = true
			return m, nil

		case key.Matches(msg, m.keys.Left):
			return m, m.moveFocus(-1)

		case key.Matches(msg, m.keys.Right):
			return m, m.moveFocus(1)

		case key.Matches(msg, m.keys.Up):
			return m, m.moveFocus(-7)

		case key.Matches(msg, m.keys.Down):
			return m, m.moveFocus(7)

		case key.Matches(msg, m.keys.Select):
			return m, m.selectDay(m.focus)

		case key.Matches(msg, m.keys.PrevMonth):
			if m.cal.Mode() != agenda.ModeMonthly {
				return m, nil
			}
			m.cal.PrevMonth()
			m.focus = m.cal.MonthCursor()
			return m, m.loadEvents()

		case key.Matches(msg, m.keys.NextMonth):
			if m.cal.Mode() != agenda.ModeMonthly {
				return m, nil
			}
			m.cal.NextMonth()
			m.focus = m.cal.MonthCursor()
			return m, m.loadEvents()

		case key.Matches(msg, m.keys.Today):
			m.cal.Refresh()
			today := m.cal.Today()
			m.focus = today
			m.cal.GotoMonth(today)
			return m, m.selectDay(today)

		case key.Matches(msg, m.keys.Tab):
			if m.focusedPanel == FocusGrid {
				m.focusedPanel = FocusAgenda
			} else {
				m.focusedPanel = FocusGrid
			}
			return m, nil

		case key.Matches(msg, m.keys.ScrollUp):
			m.agendaView.ViewUp()
			return m, nil

		case key.Matches(msg, m.keys.ScrollDown):
			m.agendaView.ViewDown()
			return m, nil

		case key.Matches(msg, m.keys.Refresh):
			return m, m.loadEvents()

		case key.Matches(msg, m.keys.Open):
			for _, e := range m.cal.EventsOn(m.focus) {
				if e.URL != "" {
					return m, openURL(e.URL)
				}
			}
			return m, nil
		}
	}
	return m, nil
}

// moveFocus shifts the focus cell by n days. Rolling windows clamp to the
// visible days; monthly grids follow the focus into the next month.
func (m *Model) moveFocus(n int) tea.Cmd {
	next := agenda.AddDays(m.focus, n)
	if m.cal.Mode() == agenda.ModeRolling {
		if !m.cal.Window().Contains(next) {
			return nil
		}
		m.focus = next
		return nil
	}

	m.focus = next
	if !agenda.SameMonth(next, m.cal.MonthCursor()) {
		m.cal.GotoMonth(next)
		return m.loadEvents()
	}
	return nil
}

// selectDay records the click. A monthly agenda runs from the selected day
// to the horizon, so moving the selection can move the range to fetch.
func (m *Model) selectDay(day time.Time) tea.Cmd {
	fromBefore, toBefore := m.cal.FetchRange(m.horizonDays)
	m.cal.Select(day)
	m.updateAgendaContent()
	m.agendaView.GotoTop()

	from, to := m.cal.FetchRange(m.horizonDays)
	if !from.Equal(fromBefore) || !to.Equal(toBefore) {
		return m.loadEvents()
	}
	return nil
}

// View renders the TUI
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	header := m.renderHeader()

	var content string
	switch {
	case m.compactMode && m.showHelp:
		content = m.renderHelpPanel()
	case m.compactMode && m.focusedPanel == FocusGrid:
		content = m.renderGridPanel()
	case m.compactMode:
		content = m.renderAgendaPanel()
	default:
		// Side-by-side mode; help replaces the agenda panel
		right := m.renderAgendaPanel()
		if m.showHelp {
			right = m.renderHelpPanel()
		}
		content = lipgloss.JoinHorizontal(lipgloss.Top, m.renderGridPanel(), " ", right)
	}

	return AppStyle.Render(
		lipgloss.JoinVertical(lipgloss.Left, header, content, m.renderHelp()),
	)
}

func (m Model) renderHeader() string {
	now := m.cal.Now()
	title := HeaderStyle.Render("dashcal")
	date := lipgloss.NewStyle().Foreground(mutedColor).Render("Today • " + now.Format("Monday, January 2, 2006"))

	status := ""
	if m.loading {
		status = SubtitleStyle.Render("  refreshing…")
	}

	panelIndicator := ""
	if m.compactMode {
		label := " [Calendar]"
		if m.focusedPanel == FocusAgenda {
			label = " [Agenda]"
		}
		panelIndicator = lipgloss.NewStyle().Foreground(primaryColor).Bold(true).Render(label)
	}

	return lipgloss.JoinHorizontal(lipgloss.Center, title, "  ", date, panelIndicator, status) + "\n"
}

func (m Model) renderGridPanel() string {
	w := m.cal.Window()

	title := GridTitleStyle.Render(m.cal.Heading())
	if w.Mode == agenda.ModeMonthly {
		title = HelpKeyStyle.Render("[ ") + title + HelpKeyStyle.Render(" ]")
	}

	cells := m.cal.RenderCells(cellRenderer{width: m.cellWidth, focus: m.focus})
	var rows []string
	for i := 0; i < len(cells); i += 7 {
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cells[i:min(i+7, len(cells))]...))
	}

	body := lipgloss.JoinVertical(lipgloss.Left,
		title,
		"",
		weekdayHeader(w, m.cellWidth),
		strings.Join(rows, "\n"),
	)
	return GridPanelStyle.Width(m.gridWidth).Height(m.contentHeight).Render(body)
}

// updateAgendaContent renders the agenda into its viewport.
func (m *Model) updateAgendaContent() {
	if !m.viewportReady {
		return
	}

	entries := m.cal.RenderAgenda(entryRenderer{
		width: m.agendaView.Width,
		now:   m.lastTick,
		loc:   m.cal.Location(),
	})
	if len(entries) == 0 {
		m.agendaView.SetContent(EmptyStyle.Render(emptyAgenda))
	} else {
		m.agendaView.SetContent(strings.Join(entries, "\n\n"))
	}
}

func (m Model) renderAgendaPanel() string {
	heading, sub := m.cal.AgendaHeading()
	header := AgendaTitleStyle.Render(heading)
	if sub != "" {
		header += "  " + SubtitleStyle.Render(sub)
	}
	if m.viewportReady && m.agendaView.TotalLineCount() > m.agendaView.Height {
		header += SubtitleStyle.Render(fmt.Sprintf(" (%d%%)", int(m.agendaView.ScrollPercent()*100)))
	}

	var content string
	switch {
	case m.err != nil:
		content = ErrorStyle.Render(fmt.Sprintf("Error: %v", m.err))
	case m.loading && len(m.cal.Events()) == 0:
		content = SubtitleStyle.Render("Loading events...")
	default:
		content = m.agendaView.View()
	}

	return AgendaPanelStyle.Width(m.agendaWidth).Height(m.contentHeight).Render(
		lipgloss.JoinVertical(lipgloss.Left, header, "", content),
	)
}

func (m Model) renderHelp() string {
	keys := []string{
		HelpKeyStyle.Render("←↑↓→") + " move",
		HelpKeyStyle.Render("enter") + " select",
		HelpKeyStyle.Render("[/]") + " month",
		HelpKeyStyle.Render("t") + " today",
		HelpKeyStyle.Render("tab") + " panel",
		HelpKeyStyle.Render("r") + " refresh",
		HelpKeyStyle.Render("q") + " quit",
	}

	fullLine := strings.Join(keys, "  •  ")
	if lipgloss.Width(fullLine) > m.width-4 {
		return HelpStyle.Render(HelpKeyStyle.Render("?") + " help")
	}
	return HelpStyle.Render(fullLine)
}

func (m Model) renderHelpPanel() string {
	header := AgendaTitleStyle.Render("Keyboard Shortcuts")

	lines := []string{
		"",
		HelpKeyStyle.Render("  ← / →      ") + " Previous / next day",
		HelpKeyStyle.Render("  ↑ / ↓      ") + " Previous / next week",
		HelpKeyStyle.Render("  enter      ") + " Select the focused day",
		HelpKeyStyle.Render("  [ / ]      ") + " Previous / next month",
		HelpKeyStyle.Render("  t          ") + " Jump to today",
		HelpKeyStyle.Render("  o          ") + " Open event on focused day",
		HelpKeyStyle.Render("  ctrl+u/d   ") + " Scroll agenda",
		HelpKeyStyle.Render("  tab        ") + " Switch panel",
		HelpKeyStyle.Render("  r          ") + " Refresh events",
		HelpKeyStyle.Render("  q / ctrl+c ") + " Quit",
		"",
		SubtitleStyle.Render("  Press any key to close"),
	}

	return AgendaPanelStyle.Width(m.agendaWidth).Height(m.contentHeight).Render(
		lipgloss.JoinVertical(lipgloss.Left, header, strings.Join(lines, "\n")),
	)
}

// openURL opens a URL in the default browser
func openURL(url string) tea.Cmd {
	return func() tea.Msg {
		var cmd *exec.Cmd
		switch runtime.GOOS {
		case "darwin":
			cmd = exec.Command("open", url)
		case "linux":
			cmd = exec.Command("xdg-open", url)
		case "windows":
			cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
		default:
			return nil
		}
		if err := cmd.Start(); err != nil {
			log.Warn("could not open browser", "url", url, "err", err)
		}
		return nil
	}
}
