package cli

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/jtbaccus/datahub-project/internal/domain"
)

var summaryCmd = LeafCommand{
	Use:   "summary",
	Short: "Show deduplicated daily totals for key metrics",
	IntFlags: []IntFlag{
		{Name: "days", Usage: "number of days to summarize", Default: 7},
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime(cmd.Context())
		if err != nil {
			return err
		}
		defer rt.Close()

		days, _ := cmd.Flags().GetInt("days")
		now := time.Now().UTC()
		since := sinceFromDays(days)
		w := cmd.OutOrStdout()

		_, _ = fmt.Fprintln(w, Header(fmt.Sprintf("\nDaily Summary - Last %d Days (Deduplicated)", days)))

		steps, err := rt.aggregator.DailyTotals(cmd.Context(), domain.MetricSteps, since, now)
		if err != nil {
			return err
		}
		if len(steps) > 0 {
			// Newest first for reading.
			sort.Slice(steps, func(i, j int) bool { return steps[i].Date > steps[j].Date })

			_, _ = fmt.Fprintln(w, Header("\nDaily Steps"))
			rows := make([][]string, 0, len(steps))
			for _, d := range steps {
				rows = append(rows, []string{d.Date, formatCount(d.Total)})
			}
			renderTable(w, []string{"Date", "Steps"}, rows, alignLeft, alignRight)
		}

		sleep, err := rt.aggregator.DailyTotals(cmd.Context(), domain.MetricSleepMinutes, since, now)
		if err != nil {
			return err
		}
		if len(sleep) > 0 {
			sort.Slice(sleep, func(i, j int) bool { return sleep[i].Date > sleep[j].Date })

			_, _ = fmt.Fprintln(w, Header("\nDaily Sleep"))
			rows := make([][]string, 0, len(sleep))
			for _, d := range sleep {
				rows = append(rows, []string{d.Date, fmt.Sprintf("%.1f h", d.Total/60)})
			}
			renderTable(w, []string{"Date", "Sleep"}, rows, alignLeft, alignRight)
		}

		calories, err := rt.aggregator.DailyTotals(cmd.Context(), domain.MetricActiveCalories, since, now)
		if err != nil {
			return err
		}
		if len(calories) > 0 {
			sort.Slice(calories, func(i, j int) bool { return calories[i].Date > calories[j].Date })

			_, _ = fmt.Fprintln(w, Header("\nDaily Active Calories"))
			rows := make([][]string, 0, len(calories))
			for _, d := range calories {
				rows = append(rows, []string{d.Date, formatCount(d.Total)})
			}
			renderTable(w, []string{"Date", "kcal"}, rows, alignLeft, alignRight)
		}

		return nil
	},
}.Build()
