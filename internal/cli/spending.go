package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var spendingCmd = LeafCommand{
	Use:   "spending",
	Short: "Show spending breakdown by category",
	IntFlags: []IntFlag{
		{Name: "days", Usage: "number of days to analyze", Default: 30},
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

		byCategory, err := rt.repo.SpendingByCategory(cmd.Context(), since, now)
		if err != nil {
			return err
		}
		if len(byCategory) == 0 {
			_, _ = fmt.Fprintln(w, Warning(fmt.Sprintf("No spending data found in the last %d days.", days)))
			return nil
		}

		_, _ = fmt.Fprintln(w, Header(fmt.Sprintf("\nSpending by Category - Last %d days", days)))
		rows := make([][]string, 0, len(byCategory))
		total := decimal.Zero
		for _, c := range byCategory {
			name := c.Category
			if name == "" {
				name = "Uncategorized"
			}
			rows = append(rows, []string{name, strconv.FormatInt(c.Count, 10), Error(formatMoney(c.Total.Abs()))})
			total = total.Add(c.Total)
		}
		renderTable(w, []string{"Category", "Count", "Total"}, rows, alignLeft, alignRight, alignRight)

		_, _ = fmt.Fprintf(w, "\n%s %s\n", Header("Total Spending:"), Error(formatMoney(total.Abs())))
		return nil
	},
}.Build()
