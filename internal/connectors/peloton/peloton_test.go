package peloton

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
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

var rideStart = time.Date(2024, 1, 15, 18, 0, 0, 0, time.UTC)

func newAPIStub(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		var creds struct {
			UsernameOrEmail string `json:"username_or_email"`
			Password        string `json:"password"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
		if creds.Password != "hunter2" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "peloton_session_id", Value: "sess-1", Path: "/"})
		_, _ = w.Write([]byte(`{"user_id":"user-1","session_id":"sess-1"}`))
	})
	mux.HandleFunc("/api/user/user-1/workouts", func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie("peloton_session_id")
		require.NoError(t, err, "workout listing requires the session cookie")
		require.Equal(t, "sess-1", cookie.Value)

		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		if page > 0 {
			_, _ = w.Write([]byte(`{"data":[]}`))
			return
		}
		_, _ = fmt.Fprintf(w, `{"data":[
            {"id":"w-1","start_time":%d},
            {"id":"w-2","start_time":%d},
            {"id":"w-old","start_time":%d}
        ]}`, rideStart.Unix(), rideStart.Add(-time.Hour).Unix(), rideStart.AddDate(0, -2, 0).Unix())
	})
	mux.HandleFunc("/api/workout/w-1", func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprintf(w, `{
            "id":"w-1","start_time":%d,"fitness_discipline":"cycling",
            "total_work":250000,"avg_watts":180,"distance":12.3,"calories":412,
            "avg_heart_rate":142,
            "ride":{"title":"45 min Power Zone","duration":2700,
                    "instructor":{"name":"Matt Wilpers"}}
        }`, rideStart.Unix())
	})
	mux.HandleFunc("/api/workout/w-2", func(w http.ResponseWriter, r *http.Request) {
		// No calories, distance, or heart rate; only the workout record itself.
		_, _ = fmt.Fprintf(w, `{
            "id":"w-2","start_time":%d,"fitness_discipline":"strength",
            "ride":{"title":"10 min Core","duration":600}
        }`, rideStart.Add(-time.Hour).Unix())
	})
	mux.HandleFunc("/api/workout/w-old", func(w http.ResponseWriter, r *http.Request) {
		t.Error("workouts before the cutoff must not be fetched")
	})
	return httptest.NewServer(mux)
}

func TestSyncWritesWorkoutAndDerivedFacts(t *testing.T) {
	server := newAPIStub(t)
	defer server.Close()

	store := newFakeMeasurementStore()
	connector := New(store, "dan@example.com", "hunter2", 100, WithBaseURL(server.URL))

	result, err := connector.Sync(context.Background(), rideStart.AddDate(0, -1, 0))
	require.NoError(t, err)
	// w-1 expands to workout + calories + distance + heart rate; w-2 only to
	// its workout record.
	require.Equal(t, 5, result.Added)

	workouts := store.byMetric(domain.MetricWorkout)
	require.Len(t, workouts, 2)
	ride := workouts[0]
	require.Equal(t, "w-1", ride.SourceID)
	require.Equal(t, "peloton_w-1", ride.Fingerprint)
	require.Equal(t, float64(45), ride.Value, "2700 seconds is 45 minutes")
	require.Equal(t, "min", ride.Unit)
	require.Equal(t, rideStart, ride.Timestamp)
	require.Equal(t, "45 min Power Zone", ride.Extra["title"])
	require.Equal(t, "Matt Wilpers", ride.Extra["instructor"])
	require.Equal(t, "cycling", ride.Extra["fitness_discipline"])

	calories := store.byMetric(domain.MetricActiveCalories)
	require.Len(t, calories, 1)
	require.Equal(t, "w-1_cal", calories[0].SourceID)
	require.Equal(t, float64(412), calories[0].Value)

	distance := store.byMetric(domain.MetricDistance)
	require.Len(t, distance, 1)
	require.Equal(t, "w-1_dist", distance[0].SourceID)

	heartRate := store.byMetric(domain.MetricHeartRate)
	require.Len(t, heartRate, 1)
	require.Equal(t, "w-1_hr", heartRate[0].SourceID)
	require.Equal(t, float64(142), heartRate[0].Value)
}

func TestSyncIsIdempotent(t *testing.T) {
	server := newAPIStub(t)
	defer server.Close()

	store := newFakeMeasurementStore()
	connector := New(store, "dan@example.com", "hunter2", 100, WithBaseURL(server.URL))
	since := rideStart.AddDate(0, -1, 0)

	first, err := connector.Sync(context.Background(), since)
	require.NoError(t, err)
	require.Equal(t, 5, first.Added)

	second, err := connector.Sync(context.Background(), since)
	require.NoError(t, err)
	require.Equal(t, 0, second.Added)
	require.Equal(t, 5, second.Skipped)
}

func TestSyncBadCredentials(t *testing.T) {
	server := newAPIStub(t)
	defer server.Close()

	connector := New(newFakeMeasurementStore(), "dan@example.com", "wrong", 100, WithBaseURL(server.URL))

	_, err := connector.Sync(context.Background(), time.Time{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "authentication failed")
}

func TestSyncMissingCredentials(t *testing.T) {
	connector := New(newFakeMeasurementStore(), "", "", 100)

	_, err := connector.Sync(context.Background(), time.Time{})
	require.ErrorIs(t, err, ErrNotConfigured)
}
