package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/jtbaccus/datahub-project/internal/dedupe"
	"github.com/jtbaccus/datahub-project/internal/domain"
	"github.com/jtbaccus/datahub-project/internal/persistence/postgres"
)

type fakeStats struct {
	measurements int64
	entries      int64
	workouts     int64
	spending     map[string]decimal.Decimal // keyed by start date
	err          error
}

func (f *fakeStats) CountMeasurements(context.Context) (int64, error) {
	return f.measurements, f.err
}

func (f *fakeStats) CountEntries(context.Context) (int64, error) { return f.entries, f.err }

func (f *fakeStats) CountWorkouts(context.Context, time.Time) (int64, error) {
	return f.workouts, f.err
}

func (f *fakeStats) SumMetric(context.Context, domain.MetricType, time.Time) (float64, error) {
	return 0, f.err
}

func (f *fakeStats) CountsByMetricType(context.Context) ([]postgres.MetricTypeCount, error) {
	return nil, f.err
}

func (f *fakeStats) SpendingByCategory(context.Context, time.Time, time.Time) ([]postgres.CategorySpend, error) {
	return nil, f.err
}

func (f *fakeStats) DailySpending(context.Context, time.Time, time.Time) ([]postgres.DailySpend, error) {
	return nil, f.err
}

func (f *fakeStats) SpendingTotal(_ context.Context, start, _ time.Time) (decimal.Decimal, error) {
	if f.spending == nil {
		return decimal.Zero, f.err
	}
	return f.spending[start.Format("2006-01-02")], f.err
}

func (f *fakeStats) ListEntries(context.Context, time.Time, time.Time, int) ([]domain.FinancialEntry, error) {
	return nil, f.err
}

func (f *fakeStats) RecentMeasurements(context.Context, domain.MetricType, time.Time, int) ([]domain.Measurement, error) {
	return nil, f.err
}

func (f *fakeStats) RecentSyncLogs(context.Context, int) ([]domain.SyncLog, error) {
	return nil, f.err
}

type fakeRollups struct {
	totals map[domain.MetricType]float64
	daily  map[domain.MetricType][]dedupe.DailyTotal
	calls  map[domain.MetricType]int
	err    error
}

func (f *fakeRollups) DailyTotals(_ context.Context, metric domain.MetricType, _, _ time.Time) ([]dedupe.DailyTotal, error) {
	if f.calls == nil {
		f.calls = map[domain.MetricType]int{}
	}
	f.calls[metric]++
	return f.daily[metric], f.err
}

func (f *fakeRollups) Total(_ context.Context, metric domain.MetricType, _, _ time.Time) (float64, error) {
	return f.totals[metric], f.err
}

func (f *fakeRollups) DailyAverage(_ context.Context, metric domain.MetricType, _, _ time.Time) (float64, error) {
	return f.totals[metric], f.err
}

type fakeCache struct {
	store map[domain.MetricType][]dedupe.DailyTotal
	sets  int
}

func (c *fakeCache) GetDailyTotals(_ context.Context, metric domain.MetricType, _, _ time.Time) ([]dedupe.DailyTotal, bool) {
	totals, ok := c.store[metric]
	return totals, ok
}

func (c *fakeCache) SetDailyTotals(_ context.Context, metric domain.MetricType, _, _ time.Time, totals []dedupe.DailyTotal) error {
	if c.store == nil {
		c.store = map[domain.MetricType][]dedupe.DailyTotal{}
	}
	c.store[metric] = totals
	c.sets++
	return nil
}

func newTestServer(stats Stats, rollups Rollups, cache RollupCache) *httptest.Server {
	mux := http.NewServeMux()
	NewHandler(stats, rollups, cache).RegisterRoutes(mux)
	return httptest.NewServer(mux)
}

func getJSON(t *testing.T, url string, out any) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func TestAPIStats(t *testing.T) {
	server := newTestServer(
		&fakeStats{measurements: 1234, entries: 56},
		&fakeRollups{totals: map[domain.MetricType]float64{domain.MetricSteps: 42000}},
		nil,
	)
	defer server.Close()

	var payload StatsResponse
	resp := getJSON(t, server.URL+"/api/stats", &payload)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	require.Equal(t, StatsResponse{
		StepsWeek:         42000,
		MeasurementsTotal: 1234,
		TransactionsTotal: 56,
	}, payload)
}

func TestAPIStatsMethodNotAllowed(t *testing.T) {
	server := newTestServer(&fakeStats{}, &fakeRollups{}, nil)
	defer server.Close()

	resp, err := http.Post(server.URL+"/api/stats", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)

	var payload map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	require.Equal(t, "method_not_allowed", payload["type"])
}

func TestAPIStatsStoreError(t *testing.T) {
	server := newTestServer(
		&fakeStats{err: errors.New("db down")},
		&fakeRollups{},
		nil,
	)
	defer server.Close()

	resp := getJSON(t, server.URL+"/api/stats", nil)
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestAPIDashboardSpendingChange(t *testing.T) {
	now := time.Now().UTC()
	stats := &fakeStats{spending: map[string]decimal.Decimal{
		now.AddDate(0, 0, -30).Format("2006-01-02"): decimal.RequireFromString("-300.00"),
		now.AddDate(0, 0, -60).Format("2006-01-02"): decimal.RequireFromString("-200.00"),
	}}
	server := newTestServer(stats, &fakeRollups{}, nil)
	defer server.Close()

	var payload DashboardResponse
	resp := getJSON(t, server.URL+"/api/dashboard", &payload)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "300.00", payload.SpendingMonth)
	require.Equal(t, "200.00", payload.SpendingLastMonth)
	require.NotNil(t, payload.SpendingChangePct)
	require.InDelta(t, -50, *payload.SpendingChangePct, 0.001,
		"-300 this month vs -200 last month spends 50% more")
}

func TestAPIDashboardNoPriorSpendingOmitsChange(t *testing.T) {
	server := newTestServer(&fakeStats{}, &fakeRollups{}, nil)
	defer server.Close()

	var payload DashboardResponse
	resp := getJSON(t, server.URL+"/api/dashboard", &payload)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Nil(t, payload.SpendingChangePct)
}

func TestAPIDashboardMergesCalories(t *testing.T) {
	rollups := &fakeRollups{daily: map[domain.MetricType][]dedupe.DailyTotal{
		domain.MetricActiveCalories: {
			{Date: "2024-01-15", Total: 500},
			{Date: "2024-01-16", Total: 450},
		},
		domain.MetricRestingCalories: {
			{Date: "2024-01-15", Total: 1700},
		},
		domain.MetricSleepMinutes: {
			{Date: "2024-01-15", Total: 450},
		},
	}}
	server := newTestServer(&fakeStats{}, rollups, nil)
	defer server.Close()

	var payload DashboardResponse
	resp := getJSON(t, server.URL+"/api/dashboard", &payload)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.Equal(t, []DailyCalories{
		{Date: "2024-01-15", Active: 500, Resting: 1700, Total: 2200},
		{Date: "2024-01-16", Active: 450, Resting: 0, Total: 450},
	}, payload.DailyCalories)
	require.Equal(t, []dedupe.DailyTotal{{Date: "2024-01-15", Total: 7.5}}, payload.DailySleepHours,
		"sleep minutes surface as hours")
}

func TestAPIFitnessDailyData(t *testing.T) {
	rollups := &fakeRollups{daily: map[domain.MetricType][]dedupe.DailyTotal{
		domain.MetricSteps:     {{Date: "2024-01-15", Total: 9000}},
		domain.MetricHeartRate: {{Date: "2024-01-15", Total: 62}},
	}}
	server := newTestServer(&fakeStats{}, rollups, nil)
	defer server.Close()

	var payload FitnessResponse
	resp := getJSON(t, server.URL+"/api/fitness", &payload)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, []DailyMetric{
		{Date: "2024-01-15", MetricType: "steps", Total: 9000},
		{Date: "2024-01-15", MetricType: "heart_rate", Total: 62},
	}, payload.DailyData)
}

func TestDailyTotalsUsesCache(t *testing.T) {
	cached := []dedupe.DailyTotal{{Date: "2024-01-15", Total: 9999}}
	cache := &fakeCache{store: map[domain.MetricType][]dedupe.DailyTotal{
		domain.MetricSteps: cached,
	}}
	rollups := &fakeRollups{}
	handler := NewHandler(&fakeStats{}, rollups, cache)

	now := time.Now().UTC()
	totals, err := handler.dailyTotals(context.Background(), domain.MetricSteps, now.AddDate(0, 0, -7), now)
	require.NoError(t, err)
	require.Equal(t, cached, totals)
	require.Zero(t, rollups.calls[domain.MetricSteps], "a cache hit never recomputes")

	// Miss path computes and backfills the cache.
	_, err = handler.dailyTotals(context.Background(), domain.MetricActiveCalories, now.AddDate(0, 0, -7), now)
	require.NoError(t, err)
	require.Equal(t, 1, rollups.calls[domain.MetricActiveCalories])
	require.Equal(t, 1, cache.sets)
}

func TestHealthz(t *testing.T) {
	server := newTestServer(&fakeStats{}, &fakeRollups{}, nil)
	defer server.Close()

	resp, err := http.Get(server.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}
