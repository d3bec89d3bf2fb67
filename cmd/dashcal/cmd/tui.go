package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/pulsedash/dashcal/internal/agenda"
	"github.com/pulsedash/dashcal/internal/tui"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"
)

var tuiCmd = &cobra.Command{
	Use:   "ui",
	Short: "Launch the interactive TUI",
	Long: `Launch an interactive calendar grid with the agenda beside it.

The view rolls over to the next day at local midnight and re-fetches events
on the 'refresh' cron schedule. When stdout is not a terminal the agenda is
printed instead.`,
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, args []string) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		log.Debug("stdout is not a terminal, printing agenda")
		return runAgenda(cmd, args)
	}
	// Log lines would tear the alt screen.
	if viper.GetString("log_file") == "" {
		redirectLog(filepath.Join(configDir(), appName+".log"))
	}

	cal, err := newCalendar()
	if err != nil {
		return err
	}
	opts, err := buildFetchOptions()
	if err != nil {
		return err
	}

	m := tui.NewModel(adapter, cal, opts, viper.GetInt("horizon_days"))
	p := tea.NewProgram(
		m,
		tea.WithAltScreen(),
		tea.WithContext(cmd.Context()),
	)

	rollover := agenda.NewRollover(agenda.ClockIn(cal.Location()), nil, func(now time.Time) {
		p.Send(tui.RolloverMsg(now))
	})
	defer rollover.Stop()

	refresher, err := newRefresher(func() { p.Send(tui.RefreshMsg{}) })
	if err != nil {
		return err
	}
	refresher.Start()
	defer refresher.Stop()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}

// newRefresher schedules fn on the 'refresh' cron spec. An empty spec
// yields a scheduler with no entries.
func newRefresher(fn func()) (*cron.Cron, error) {
	c := cron.New()
	spec := viper.GetString("refresh")
	if spec == "" {
		return c, nil
	}
	if _, err := c.AddFunc(spec, fn); err != nil {
		return nil, fmt.Errorf("invalid refresh schedule %q: %w", spec, err)
	}
	log.Debug("refresh scheduled", "spec", spec)
	return c, nil
}
