package cli

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/jtbaccus/datahub-project/internal/dedupe"
	"github.com/jtbaccus/datahub-project/internal/domain"
)

var insightsCmd = LeafCommand{
	Use:   "insights",
	Short: "Show cross-domain insights from deduplicated data",
	IntFlags: []IntFlag{
		{Name: "days", Usage: "number of days to analyze", Default: 30},
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime(cmd.Context())
		if err != nil {
			return err
		}
		defer rt.Close()

		ctx := cmd.Context()
		days, _ := cmd.Flags().GetInt("days")
		now := time.Now().UTC()
		since := sinceFromDays(days)
		w := cmd.OutOrStdout()

		_, _ = fmt.Fprintln(w, Header(fmt.Sprintf("\nInsights - Last %d Days (Deduplicated)", days)))
		_, _ = fmt.Fprintln(w)

		dailySteps, err := rt.aggregator.DailyTotals(ctx, domain.MetricSteps, since, now)
		if err != nil {
			return err
		}
		dailySleep, err := rt.aggregator.DailyTotals(ctx, domain.MetricSleepMinutes, since, now)
		if err != nil {
			return err
		}
		dailyReadiness, err := rt.aggregator.DailyTotals(ctx, domain.MetricReadinessScore, since, now)
		if err != nil {
			return err
		}
		dailySpending, err := rt.repo.DailySpending(ctx, since, now)
		if err != nil {
			return err
		}

		var avgSteps float64
		if len(dailySteps) > 0 {
			avgSteps = meanOf(dailySteps)
			best, worst := dailySteps[0], dailySteps[0]
			for _, d := range dailySteps {
				if d.Total > best.Total {
					best = d
				}
				if d.Total < worst.Total {
					worst = d
				}
			}
			_, _ = fmt.Fprintf(w, "%s %s\n", Primary("Average Daily Steps:"), formatCount(avgSteps))
			_, _ = fmt.Fprintf(w, "  Best day: %s (%s steps)\n", best.Date, formatCount(best.Total))
			_, _ = fmt.Fprintf(w, "  Lowest day: %s (%s steps)\n", worst.Date, formatCount(worst.Total))
		}

		if len(dailySleep) > 0 {
			_, _ = fmt.Fprintf(w, "\n%s %.1f hours\n", Primary("Average Sleep:"), meanOf(dailySleep)/60)
		}
		if len(dailyReadiness) > 0 {
			_, _ = fmt.Fprintf(w, "\n%s %.0f\n", Primary("Average Readiness Score:"), meanOf(dailyReadiness))
		}

		spendingByDate := make(map[string]float64, len(dailySpending))
		var spendingSum float64
		for _, d := range dailySpending {
			amount, _ := d.Total.Abs().Float64()
			spendingByDate[d.Date] = amount
			spendingSum += amount
		}
		if len(dailySpending) > 0 {
			_, _ = fmt.Fprintf(w, "\n%s %s\n", Primary("Average Daily Spending:"), formatMoneyFloat(spendingSum/float64(len(dailySpending))))
		}

		// Do high-activity days cost more or less?
		if len(dailySteps) > 0 && len(dailySpending) > 0 {
			_, _ = fmt.Fprintln(w, Header("\nActivity vs Spending"))

			var highSum, lowSum float64
			var highDays, lowDays, highMatched, lowMatched int
			for _, d := range dailySteps {
				switch {
				case d.Total > avgSteps*1.2:
					highDays++
					if amount, ok := spendingByDate[d.Date]; ok {
						highSum += amount
						highMatched++
					}
				case d.Total < avgSteps*0.8:
					lowDays++
					if amount, ok := spendingByDate[d.Date]; ok {
						lowSum += amount
						lowMatched++
					}
				}
			}
			if highMatched > 0 && lowMatched > 0 {
				_, _ = fmt.Fprintf(w, "  High activity days (%d): avg %s spending\n", highDays, formatMoneyFloat(highSum/float64(highMatched)))
				_, _ = fmt.Fprintf(w, "  Low activity days (%d): avg %s spending\n", lowDays, formatMoneyFloat(lowSum/float64(lowMatched)))
			}
		}

		workouts, err := rt.repo.CountWorkouts(ctx, since)
		if err != nil {
			return err
		}
		if workouts > 0 {
			_, _ = fmt.Fprintf(w, "\n%s %d in %d days (%.1f/week)\n",
				Primary("Workouts:"), workouts, days, float64(workouts)/float64(days)*7)
		}

		return nil
	},
}.Build()

func meanOf(totals []dedupe.DailyTotal) float64 {
	if len(totals) == 0 {
		return 0
	}
	var sum float64
	for _, d := range totals {
		sum += d.Total
	}
	return sum / float64(len(totals))
}

func formatMoneyFloat(amount float64) string {
	return formatMoney(decimal.NewFromFloat(amount).Round(2))
}
