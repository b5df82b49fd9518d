// Package dedupe resolves overlapping measurements from multiple sources into
// canonical per-bucket values. Several devices frequently record the same
// real-world activity; summing raw rows would double- or triple-count it.
// Records are grouped into fixed-width time buckets and, per bucket, only the
// highest-priority source's values count. Deduplication is a read-time view:
// losing records stay in the store untouched.
package dedupe

import (
	"context"
	"sort"
	"time"

	"github.com/jtbaccus/datahub-project/internal/domain"
	"github.com/jtbaccus/datahub-project/internal/observability"
	"github.com/jtbaccus/datahub-project/internal/priority"
)

// DefaultBucketWidth is used for sub-daily aggregation.
const DefaultBucketWidth = time.Hour

// Reader is the slice of the store the aggregator reads from.
type Reader interface {
	ListMeasurements(ctx context.Context, metric domain.MetricType, start, end time.Time) ([]domain.Measurement, error)
}

// BucketValue is the canonical (source, value) pair chosen for one bucket.
type BucketValue struct {
	BucketStart time.Time
	Timestamp   time.Time
	Source      string
	Value       float64
	Unit        string
}

// DailyTotal is one row of the daily rollup.
type DailyTotal struct {
	Date  string  `json:"date"`
	Total float64 `json:"total"`
}

// Aggregator computes deduplicated rollups over a queried range. All
// intermediate state is query-scoped; nothing is persisted.
type Aggregator struct {
	reader     Reader
	priorities *priority.Table
}

// NewAggregator builds an Aggregator with an explicit priority table.
func NewAggregator(reader Reader, priorities *priority.Table) *Aggregator {
	return &Aggregator{reader: reader, priorities: priorities}
}

type bucketWinner struct {
	timestamp time.Time
	source    string
	priority  int
	value     float64
	unit      string
}

// resolveBuckets runs the winner-selection pass over records already fetched
// in timestamp order. First record per bucket wins unconditionally; a
// strictly higher priority replaces the winner outright (any accumulated
// value is discarded with it); equal priority from the same source
// accumulates; everything else is excluded from the total.
func (a *Aggregator) resolveBuckets(metric domain.MetricType, records []domain.Measurement, width time.Duration) map[int64]*bucketWinner {
	widthSec := int64(width / time.Second)
	if widthSec <= 0 {
		widthSec = int64(DefaultBucketWidth / time.Second)
	}

	buckets := make(map[int64]*bucketWinner)
	for _, rec := range records {
		key := rec.Timestamp.Unix() / widthSec
		prio := a.priorities.Lookup(metric, rec.Source)

		existing, ok := buckets[key]
		switch {
		case !ok:
			buckets[key] = &bucketWinner{
				timestamp: rec.Timestamp,
				source:    rec.Source,
				priority:  prio,
				value:     rec.Value,
				unit:      rec.Unit,
			}
		case prio > existing.priority:
			buckets[key] = &bucketWinner{
				timestamp: rec.Timestamp,
				source:    rec.Source,
				priority:  prio,
				value:     rec.Value,
				unit:      rec.Unit,
			}
		case prio == existing.priority && rec.Source == existing.source:
			// Multiple readings from the same source within one bucket are
			// legitimately distinct; sum them.
			existing.value += rec.Value
		}
	}
	return buckets
}

// CanonicalBuckets returns one canonical value per bucket over [start, end],
// sorted by bucket start. An empty range yields an empty slice, never an
// error.
func (a *Aggregator) CanonicalBuckets(ctx context.Context, metric domain.MetricType, start, end time.Time, width time.Duration) ([]BucketValue, error) {
	defer observability.ObserveAggregation(string(metric), time.Now())

	if width <= 0 {
		width = DefaultBucketWidth
	}
	records, err := a.reader.ListMeasurements(ctx, metric, start, end)
	if err != nil {
		return nil, err
	}
	buckets := a.resolveBuckets(metric, records, width)

	widthSec := int64(width / time.Second)
	out := make([]BucketValue, 0, len(buckets))
	for key, w := range buckets {
		out = append(out, BucketValue{
			BucketStart: time.Unix(key*widthSec, 0).UTC(),
			Timestamp:   w.timestamp,
			Source:      w.source,
			Value:       w.value,
			Unit:        w.unit,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BucketStart.Before(out[j].BucketStart) })
	return out, nil
}

// DailyTotals is the primary reporting surface: hourly winner selection first,
// then winners regrouped by calendar day. Running the hourly pass before the
// daily regroup is what lets two devices both contribute to one day's total
// as long as they do not claim overlapping hours. Rows are sorted ascending
// by date.
func (a *Aggregator) DailyTotals(ctx context.Context, metric domain.MetricType, start, end time.Time) ([]DailyTotal, error) {
	defer observability.ObserveAggregation(string(metric), time.Now())

	records, err := a.reader.ListMeasurements(ctx, metric, start, end)
	if err != nil {
		return nil, err
	}
	buckets := a.resolveBuckets(metric, records, DefaultBucketWidth)

	byDay := make(map[string]float64)
	for _, w := range buckets {
		byDay[w.timestamp.UTC().Format("2006-01-02")] += w.value
	}

	out := make([]DailyTotal, 0, len(byDay))
	for date, total := range byDay {
		out = append(out, DailyTotal{Date: date, Total: total})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}
