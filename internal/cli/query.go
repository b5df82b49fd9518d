package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jtbaccus/datahub-project/internal/domain"
)

var queryCmd = LeafCommand{
	Use:   "query METRIC_TYPE",
	Short: "Show raw measurements of one type",
	Args:  cobra.ExactArgs(1),
	IntFlags: []IntFlag{
		{Name: "days", Usage: "number of days to look back", Default: 7},
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime(cmd.Context())
		if err != nil {
			return err
		}
		defer rt.Close()

		days, _ := cmd.Flags().GetInt("days")
		metric := domain.MetricType(args[0])
		w := cmd.OutOrStdout()

		records, err := rt.repo.RecentMeasurements(cmd.Context(), metric, sinceFromDays(days), 50)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			_, _ = fmt.Fprintln(w, Warning(fmt.Sprintf("No %s data found in the last %d days.", metric, days)))
			return nil
		}

		_, _ = fmt.Fprintln(w, Header(fmt.Sprintf("\n%s - Last %d days", metric, days)))
		rows := make([][]string, 0, len(records))
		for _, m := range records {
			rows = append(rows, []string{
				m.Timestamp.UTC().Format("2006-01-02 15:04"),
				fmt.Sprintf("%.1f", m.Value),
				m.Unit,
				m.Source,
			})
		}
		renderTable(w, []string{"Date", "Value", "Unit", "Source"}, rows, alignLeft, alignRight, alignLeft, alignLeft)
		return nil
	},
}.Build()
