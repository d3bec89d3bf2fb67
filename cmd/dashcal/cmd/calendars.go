package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var calendarsCmd = &cobra.Command{
	Use:     "calendars",
	Aliases: []string{"cal", "cals"},
	Short:   "List available calendars",
	Long:    `List the calendars the configured provider exposes, with the names accepted by --calendars.`,
	RunE:    runCalendars,
}

func init() {
	rootCmd.AddCommand(calendarsCmd)
}

func runCalendars(cmd *cobra.Command, args []string) error {
	calendars := adapter.Calendars()
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "📅 Calendars from %s:\n", adapter.Name())
	fmt.Fprintln(out, divider)

	ids := make([]string, 0, len(calendars))
	for id := range calendars {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if calendars[ids[i]] != calendars[ids[j]] {
			return calendars[ids[i]] < calendars[ids[j]]
		}
		return ids[i] < ids[j]
	})

	for _, id := range ids {
		fmt.Fprintf(out, "\n  • %s\n", calendars[id])
		fmt.Fprintf(out, "    ID: %s\n", id)
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "Total: %d calendars\n", len(calendars))
	fmt.Fprintln(out, "\nTip: Use 'dashcal -c \"calendar name\"' to filter events by calendar")
	return nil
}
