package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jtbaccus/datahub-project/internal/domain"
)

var statusCmd = LeafCommand{
	Use:   "status",
	Short: "Show stored data and recent sync history",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime(cmd.Context())
		if err != nil {
			return err
		}
		defer rt.Close()

		ctx := cmd.Context()
		w := cmd.OutOrStdout()

		byType, err := rt.repo.CountsByMetricType(ctx)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(w, Header("\nMeasurements by Type"))
		rows := make([][]string, 0, len(byType))
		for _, c := range byType {
			latest := "N/A"
			if c.Latest != nil {
				latest = c.Latest.UTC().Format("2006-01-02")
			}
			rows = append(rows, []string{string(c.MetricType), strconv.FormatInt(c.Count, 10), latest})
		}
		renderTable(w, []string{"Type", "Count", "Latest"}, rows, alignLeft, alignRight, alignLeft)

		bySource, err := rt.repo.CountsBySource(ctx)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(w, Header("\nMeasurements by Source"))
		rows = rows[:0]
		for _, c := range bySource {
			rows = append(rows, []string{c.Source, strconv.FormatInt(c.Count, 10)})
		}
		renderTable(w, []string{"Source", "Count"}, rows, alignLeft, alignRight)

		bySpendSource, err := rt.repo.EntryTotalsBySource(ctx)
		if err != nil {
			return err
		}
		if len(bySpendSource) > 0 {
			_, _ = fmt.Fprintln(w, Header("\nTransactions"))
			rows = rows[:0]
			for _, s := range bySpendSource {
				rows = append(rows, []string{s.Source, strconv.FormatInt(s.Count, 10), formatMoney(s.Total)})
			}
			renderTable(w, []string{"Account/Source", "Count", "Total"}, rows, alignLeft, alignRight, alignRight)
		}

		syncs, err := rt.repo.RecentSyncLogs(ctx, 5)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(w, Header("\nRecent Syncs"))
		rows = rows[:0]
		for _, log := range syncs {
			status := Success(string(log.Status))
			if log.Status != domain.SyncStatusSuccess {
				status = Error(string(log.Status))
			}
			rows = append(rows, []string{
				log.Connector,
				status,
				strconv.Itoa(log.RecordsAdded),
				log.StartedAt.UTC().Format("2006-01-02 15:04"),
			})
		}
		renderTable(w, []string{"Connector", "Status", "Records", "When"}, rows, alignLeft, alignLeft, alignRight, alignLeft)

		return nil
	},
}.Build()
