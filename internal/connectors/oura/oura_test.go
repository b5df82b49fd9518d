package oura

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jtbaccus/datahub-project/internal/domain"
)

type fakeMeasurementStore struct {
	seen    map[string]struct{}
	records []domain.Measurement
}

func newFakeMeasurementStore() *fakeMeasurementStore {
	return &fakeMeasurementStore{seen: map[string]struct{}{}}
}

func (s *fakeMeasurementStore) InsertMeasurements(_ context.Context, batch []domain.Measurement) (int, error) {
	inserted := 0
	for _, m := range batch {
		key := m.Source + "|" + m.Fingerprint
		if _, ok := s.seen[key]; ok {
			continue
		}
		s.seen[key] = struct{}{}
		s.records = append(s.records, m)
		inserted++
	}
	return inserted, nil
}

func (s *fakeMeasurementStore) ListMeasurements(context.Context, domain.MetricType, time.Time, time.Time) ([]domain.Measurement, error) {
	return s.records, nil
}

func (s *fakeMeasurementStore) byMetric(metric domain.MetricType) []domain.Measurement {
	out := make([]domain.Measurement, 0)
	for _, m := range s.records {
		if m.MetricType == metric {
			out = append(out, m)
		}
	}
	return out
}

func newAPIStub(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/sleep", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		require.NotEmpty(t, r.URL.Query().Get("start_date"))
		_, _ = w.Write([]byte(`{"data":[
            {"id":"sl-1","type":"long_sleep","bedtime_start":"2024-01-14T23:10:00+00:00",
             "total_sleep_duration":27000,"efficiency":92,"average_hrv":48,
             "lowest_heart_rate":44,"average_heart_rate":52},
            {"id":"sl-2","type":"nap","bedtime_start":"2024-01-15T14:00:00+00:00",
             "total_sleep_duration":1800}
        ]}`))
	})
	mux.HandleFunc("/daily_readiness", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[
            {"day":"2024-01-15","score":85,"temperature_deviation":-0.2,
             "contributors":{"hrv_balance":90}},
            {"day":"2024-01-16","score":null}
        ]}`))
	})
	mux.HandleFunc("/daily_activity", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[
            {"day":"2024-01-15","steps":8500,"active_calories":450}
        ]}`))
	})
	return httptest.NewServer(mux)
}

func TestSyncWritesAllFactKinds(t *testing.T) {
	server := newAPIStub(t)
	defer server.Close()

	store := newFakeMeasurementStore()
	connector := New(store, "test-token", 100, WithBaseURL(server.URL))

	result, err := connector.Sync(context.Background(), time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	// Two sleep sessions, one HRV fact, one readiness (null score dropped),
	// steps and calories.
	require.Equal(t, 6, result.Added)
	require.Equal(t, 0, result.Skipped)

	sleep := store.byMetric(domain.MetricSleepMinutes)
	require.Len(t, sleep, 2)
	require.Equal(t, float64(450), sleep[0].Value, "27000 seconds is 450 minutes")
	require.Equal(t, "sleep_sl-1", sleep[0].SourceID)
	require.Equal(t, "oura", sleep[0].Source)
	require.Equal(t, "oura_sleep_sl-1", sleep[0].Fingerprint)

	hrv := store.byMetric(domain.MetricHRV)
	require.Len(t, hrv, 1, "sleep without average_hrv produces no HRV fact")
	require.Equal(t, float64(48), hrv[0].Value)
	require.Equal(t, "sleep_hrv_sl-1", hrv[0].SourceID)

	readiness := store.byMetric(domain.MetricReadinessScore)
	require.Len(t, readiness, 1)
	require.Equal(t, float64(85), readiness[0].Value)
	require.Equal(t, "readiness_2024-01-15", readiness[0].SourceID)

	steps := store.byMetric(domain.MetricSteps)
	require.Len(t, steps, 1)
	require.Equal(t, float64(8500), steps[0].Value)
	require.Equal(t, "activity_steps_2024-01-15", steps[0].SourceID)

	calories := store.byMetric(domain.MetricActiveCalories)
	require.Len(t, calories, 1)
	require.Equal(t, "activity_cal_2024-01-15", calories[0].SourceID)
}

func TestSyncIsIdempotent(t *testing.T) {
	server := newAPIStub(t)
	defer server.Close()

	store := newFakeMeasurementStore()
	connector := New(store, "test-token", 100, WithBaseURL(server.URL))
	since := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)

	first, err := connector.Sync(context.Background(), since)
	require.NoError(t, err)
	require.Equal(t, 6, first.Added)

	second, err := connector.Sync(context.Background(), since)
	require.NoError(t, err)
	require.Equal(t, 0, second.Added)
	require.Equal(t, 6, second.Skipped)
}

func TestSyncWithoutTokenFails(t *testing.T) {
	connector := New(newFakeMeasurementStore(), "", 100)

	_, err := connector.Sync(context.Background(), time.Time{})
	require.ErrorIs(t, err, ErrNotConfigured)
}

func TestSyncSurfacesAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	connector := New(newFakeMeasurementStore(), "bad-token", 100, WithBaseURL(server.URL))

	_, err := connector.Sync(context.Background(), time.Time{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "status 401")
}
