package dedupe

import (
	"context"
	"time"

	"github.com/jtbaccus/datahub-project/internal/domain"
)

// Total sums the canonical daily values over the range. Empty data yields 0.
func (a *Aggregator) Total(ctx context.Context, metric domain.MetricType, start, end time.Time) (float64, error) {
	daily, err := a.DailyTotals(ctx, metric, start, end)
	if err != nil {
		return 0, err
	}
	var total float64
	for _, d := range daily {
		total += d.Total
	}
	return total, nil
}

// DailyAverage is the mean of canonical daily totals, averaged over days that
// have data. Days without records do not count as zero in the denominator.
// Empty data yields 0, never a division failure.
func (a *Aggregator) DailyAverage(ctx context.Context, metric domain.MetricType, start, end time.Time) (float64, error) {
	daily, err := a.DailyTotals(ctx, metric, start, end)
	if err != nil {
		return 0, err
	}
	if len(daily) == 0 {
		return 0, nil
	}
	var total float64
	for _, d := range daily {
		total += d.Total
	}
	return total / float64(len(daily)), nil
}
