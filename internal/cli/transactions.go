package cli

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/jtbaccus/datahub-project/internal/domain"
)

var transactionsCmd = LeafCommand{
	Use:   "transactions",
	Short: "Show recent transactions",
	IntFlags: []IntFlag{
		{Name: "days", Usage: "number of days to look back", Default: 30},
		{Name: "limit", Usage: "max transactions to show", Default: 25},
	},
	StrFlags: []StringFlag{
		{Name: "category", Usage: "filter by category"},
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime(cmd.Context())
		if err != nil {
			return err
		}
		defer rt.Close()

		days, _ := cmd.Flags().GetInt("days")
		limit, _ := cmd.Flags().GetInt("limit")
		category, _ := cmd.Flags().GetString("category")

		now := time.Now().UTC()
		since := sinceFromDays(days)
		w := cmd.OutOrStdout()

		var entries []domain.FinancialEntry
		if category != "" {
			entries, err = rt.repo.ListEntriesByCategory(cmd.Context(), category, since, now, limit)
		} else {
			entries, err = rt.repo.ListEntries(cmd.Context(), since, now, limit)
		}
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			_, _ = fmt.Fprintln(w, Warning(fmt.Sprintf("No transactions found in the last %d days.", days)))
			return nil
		}

		_, _ = fmt.Fprintln(w, Header(fmt.Sprintf("\nTransactions - Last %d days", days)))
		rows := make([][]string, 0, len(entries))
		total := decimal.Zero
		for _, e := range entries {
			amount := Success(formatMoney(e.Amount))
			if e.Amount.IsNegative() {
				amount = Error(formatMoney(e.Amount))
			}
			description := e.Description
			if len(description) > 40 {
				description = description[:40] + "..."
			}
			rows = append(rows, []string{
				e.Date.UTC().Format("2006-01-02"),
				amount,
				description,
				e.Category,
			})
			total = total.Add(e.Amount)
		}
		renderTable(w, []string{"Date", "Amount", "Description", "Category"}, rows, alignLeft, alignRight, alignLeft, alignLeft)

		_, _ = fmt.Fprintf(w, "\n%s %s\n", Header("Total:"), formatMoney(total))
		return nil
	},
}.Build()
