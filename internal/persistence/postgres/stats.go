package postgres

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jtbaccus/datahub-project/internal/domain"
)

// MetricTypeCount summarises stored measurements for one metric type.
type MetricTypeCount struct {
	MetricType domain.MetricType
	Count      int64
	Latest     *time.Time
}

// SourceCount summarises stored measurements for one source.
type SourceCount struct {
	Source string
	Count  int64
}

// SourceSpend summarises transactions per source.
type SourceSpend struct {
	Source string
	Count  int64
	Total  decimal.Decimal
}

// CategorySpend summarises outflows per category.
type CategorySpend struct {
	Category string
	Count    int64
	Total    decimal.Decimal
}

// DailySpend is one day's summed outflow.
type DailySpend struct {
	Date  string
	Total decimal.Decimal
}

// CountsByMetricType groups measurements by type, most common first.
func (r *Repository) CountsByMetricType(ctx context.Context) ([]MetricTypeCount, error) {
	const query = `SELECT metric_type, COUNT(*), MAX(ts)
        FROM measurements
        GROUP BY metric_type
        ORDER BY COUNT(*) DESC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]MetricTypeCount, 0)
	for rows.Next() {
		var (
			c     MetricTypeCount
			mtype string
		)
		if err := rows.Scan(&mtype, &c.Count, &c.Latest); err != nil {
			return nil, err
		}
		c.MetricType = domain.MetricType(mtype)
		out = append(out, c)
	}
	return out, rows.Err()
}

// CountsBySource groups measurements by source, most common first.
func (r *Repository) CountsBySource(ctx context.Context) ([]SourceCount, error) {
	const query = `SELECT source, COUNT(*)
        FROM measurements
        GROUP BY source
        ORDER BY COUNT(*) DESC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]SourceCount, 0)
	for rows.Next() {
		var c SourceCount
		if err := rows.Scan(&c.Source, &c.Count); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// EntryTotalsBySource sums transactions per source.
func (r *Repository) EntryTotalsBySource(ctx context.Context) ([]SourceSpend, error) {
	const query = `SELECT source, COUNT(*), COALESCE(SUM(amount),0)::text
        FROM financial_entries
        GROUP BY source`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]SourceSpend, 0)
	for rows.Next() {
		var (
			s     SourceSpend
			total string
		)
		if err := rows.Scan(&s.Source, &s.Count, &total); err != nil {
			return nil, err
		}
		if s.Total, err = decimal.NewFromString(total); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// SpendingByCategory sums outflows per category over a range, largest outflow
// first.
func (r *Repository) SpendingByCategory(ctx context.Context, start, end time.Time) ([]CategorySpend, error) {
	const query = `SELECT COALESCE(category,''), COUNT(*), SUM(amount)::text
        FROM financial_entries
        WHERE entry_date >= $1 AND entry_date <= $2 AND amount < 0
        GROUP BY category
        ORDER BY SUM(amount)`

	rows, err := r.pool.Query(ctx, query, start.UTC(), end.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]CategorySpend, 0)
	for rows.Next() {
		var (
			c     CategorySpend
			total string
		)
		if err := rows.Scan(&c.Category, &c.Count, &total); err != nil {
			return nil, err
		}
		if c.Total, err = decimal.NewFromString(total); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// DailySpending sums outflows per calendar day over a range, ascending.
func (r *Repository) DailySpending(ctx context.Context, start, end time.Time) ([]DailySpend, error) {
	const query = `SELECT TO_CHAR(entry_date, 'YYYY-MM-DD'), SUM(amount)::text
        FROM financial_entries
        WHERE entry_date >= $1 AND entry_date <= $2 AND amount < 0
        GROUP BY 1
        ORDER BY 1`

	rows, err := r.pool.Query(ctx, query, start.UTC(), end.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]DailySpend, 0)
	for rows.Next() {
		var (
			d     DailySpend
			total string
		)
		if err := rows.Scan(&d.Date, &total); err != nil {
			return nil, err
		}
		if d.Total, err = decimal.NewFromString(total); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// SpendingTotal sums all outflows over a range.
func (r *Repository) SpendingTotal(ctx context.Context, start, end time.Time) (decimal.Decimal, error) {
	const query = `SELECT COALESCE(SUM(amount),0)::text
        FROM financial_entries
        WHERE entry_date >= $1 AND entry_date <= $2 AND amount < 0`

	var total string
	if err := r.pool.QueryRow(ctx, query, start.UTC(), end.UTC()).Scan(&total); err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString(total)
}

// CountMeasurements reports the total number of stored measurements.
func (r *Repository) CountMeasurements(ctx context.Context) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM measurements`).Scan(&count)
	return count, err
}

// CountEntries reports the total number of stored financial entries.
func (r *Repository) CountEntries(ctx context.Context) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM financial_entries`).Scan(&count)
	return count, err
}

// CountWorkouts counts workout-style records (cardio and strength) since a
// cutoff.
func (r *Repository) CountWorkouts(ctx context.Context, since time.Time) (int64, error) {
	const query = `SELECT COUNT(*)
        FROM measurements
        WHERE metric_type IN ('workout','strength_workout') AND ts >= $1`

	var count int64
	err := r.pool.QueryRow(ctx, query, since.UTC()).Scan(&count)
	return count, err
}

// SumMetric sums raw values of one metric since a cutoff, with no
// deduplication. Used for metrics that only ever have one source, such as
// strength volume.
func (r *Repository) SumMetric(ctx context.Context, metric domain.MetricType, since time.Time) (float64, error) {
	const query = `SELECT COALESCE(SUM(value),0)
        FROM measurements
        WHERE metric_type=$1 AND ts >= $2`

	var total float64
	err := r.pool.QueryRow(ctx, query, string(metric), since.UTC()).Scan(&total)
	return total, err
}
