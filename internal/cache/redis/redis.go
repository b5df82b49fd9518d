// Package redis caches deduplicated daily rollups. The cache is optional:
// when no Redis address is configured the aggregator is queried directly on
// every read.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jtbaccus/datahub-project/internal/dedupe"
	"github.com/jtbaccus/datahub-project/internal/domain"
)

// Adapter caches aggregation results in Redis.
type Adapter struct {
	client *redis.Client
	ttl    time.Duration
}

// New connects to Redis at addr and verifies the connection.
func New(addr string, ttl time.Duration) (*Adapter, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Adapter{client: client, ttl: ttl}, nil
}

func rollupKey(metric domain.MetricType, start, end time.Time) string {
	return fmt.Sprintf("rollup:%s:%d:%d", metric, start.Unix(), end.Unix())
}

// GetDailyTotals returns cached totals for the window, or (nil, false) on a
// miss. Cache errors degrade to a miss.
func (a *Adapter) GetDailyTotals(ctx context.Context, metric domain.MetricType, start, end time.Time) ([]dedupe.DailyTotal, bool) {
	data, err := a.client.Get(ctx, rollupKey(metric, start, end)).Result()
	if err != nil {
		return nil, false
	}

	var totals []dedupe.DailyTotal
	if err := json.Unmarshal([]byte(data), &totals); err != nil {
		return nil, false
	}
	return totals, true
}

// SetDailyTotals stores totals for the window with the configured TTL.
func (a *Adapter) SetDailyTotals(ctx context.Context, metric domain.MetricType, start, end time.Time, totals []dedupe.DailyTotal) error {
	data, err := json.Marshal(totals)
	if err != nil {
		return err
	}
	return a.client.Set(ctx, rollupKey(metric, start, end), data, a.ttl).Err()
}

// Close closes the connection.
func (a *Adapter) Close() error {
	return a.client.Close()
}
