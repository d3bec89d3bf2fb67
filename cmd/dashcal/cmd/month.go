package cmd

import (
	"github.com/spf13/cobra"
)

var monthCmd = &cobra.Command{
	Use:   "month",
	Short: "Print the calendar grid followed by the agenda",
	Long: `Print the visible window as a grid with event indicators, then the agenda.

With --days=0 the grid is the month containing --month (default: this month),
six weeks starting on Monday. Otherwise it is the rolling window from today.

Example:
  dashcal month --days=0 --month=next
  dashcal month --days=0 --select=2025-06-18`,
	RunE: runMonth,
}

func init() {
	rootCmd.AddCommand(monthCmd)
	// Window and filter flags are inherited from root as persistent flags
}

func runMonth(cmd *cobra.Command, args []string) error {
	cal, err := loadCalendar(cmd.Context())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	printGrid(out, cal)
	printAgenda(out, cal, DisplayOptionsFromConfig())
	return nil
}
