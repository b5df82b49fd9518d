// Package peloton syncs workout data from Peloton's unofficial API.
//
// Authentication is a session login; the session cookie rides on the shared
// cookie jar for the rest of the run. One workout expands into a primary
// workout record plus derived calorie, distance, and heart-rate facts.
package peloton

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jtbaccus/datahub-project/internal/domain"
	"github.com/jtbaccus/datahub-project/internal/ingest"
)

// DefaultBaseURL is Peloton's API root.
const DefaultBaseURL = "https://api.onepeloton.com"

const (
	sourceTag = "peloton"
	pageSize  = 50
	maxPages  = 50
)

// ErrNotConfigured is returned when credentials are missing.
var ErrNotConfigured = errors.New("peloton credentials not configured; run: datahub config peloton.username YOUR_EMAIL && datahub config peloton.password YOUR_PASSWORD")

// Connector syncs from the Peloton API.
type Connector struct {
	store     domain.MeasurementStore
	username  string
	password  string
	baseURL   string
	client    *http.Client
	batchSize int

	userID string
}

// Option configures optional connector behaviour.
type Option func(*Connector)

// WithBaseURL points the connector at an alternate API root; used by tests.
func WithBaseURL(baseURL string) Option {
	return func(c *Connector) { c.baseURL = baseURL }
}

// New builds a Connector.
func New(store domain.MeasurementStore, username, password string, batchSize int, opts ...Option) *Connector {
	jar, _ := cookiejar.New(nil)
	c := &Connector{
		store:     store,
		username:  username,
		password:  password,
		baseURL:   DefaultBaseURL,
		client:    &http.Client{Timeout: 30 * time.Second, Jar: jar},
		batchSize: batchSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name implements connectors.Syncer.
func (c *Connector) Name() string { return sourceTag }

type workoutSummary struct {
	ID        string `json:"id"`
	StartTime int64  `json:"start_time"`
}

type workoutDetail struct {
	ID                string  `json:"id"`
	StartTime         int64   `json:"start_time"`
	FitnessDiscipline string  `json:"fitness_discipline"`
	TotalWork         float64 `json:"total_work"`
	AvgWatts          float64 `json:"avg_watts"`
	MaxWatts          float64 `json:"max_watts"`
	AvgCadence        float64 `json:"avg_cadence"`
	MaxCadence        float64 `json:"max_cadence"`
	AvgResistance     float64 `json:"avg_resistance"`
	MaxResistance     float64 `json:"max_resistance"`
	AvgSpeed          float64 `json:"avg_speed"`
	MaxSpeed          float64 `json:"max_speed"`
	Distance          float64 `json:"distance"`
	Calories          float64 `json:"calories"`
	AvgHeartRate      float64 `json:"avg_heart_rate"`
	MaxHeartRate      float64 `json:"max_heart_rate"`
	Ride              struct {
		Title      string  `json:"title"`
		Duration   float64 `json:"duration"`
		Instructor struct {
			Name string `json:"name"`
		} `json:"instructor"`
	} `json:"ride"`
}

// Sync authenticates, pages through the workout history until it reaches the
// cutoff, and writes each workout's derived facts through the idempotent
// writer. Workouts the store has already seen count as skipped via the
// fingerprint conflict, so no pre-check round trip is needed.
func (c *Connector) Sync(ctx context.Context, since time.Time) (domain.SyncResult, error) {
	if c.username == "" || c.password == "" {
		return domain.SyncResult{}, ErrNotConfigured
	}
	if err := c.authenticate(ctx); err != nil {
		return domain.SyncResult{}, err
	}

	writer := ingest.NewMeasurementWriter(c.store, c.batchSize)

	for page := 0; page < maxPages; page++ {
		summaries, err := c.fetchWorkouts(ctx, page)
		if err != nil {
			return writer.Result(), err
		}
		if len(summaries) == 0 {
			break
		}

		reachedCutoff := false
		for _, summary := range summaries {
			if summary.ID == "" {
				continue
			}
			started := time.Unix(summary.StartTime, 0).UTC()
			if !since.IsZero() && started.Before(since) {
				reachedCutoff = true
				continue
			}

			detail, err := c.fetchWorkoutDetail(ctx, summary.ID)
			if err != nil {
				// Skip problematic workouts rather than aborting the run.
				continue
			}
			if err := c.writeWorkout(ctx, writer, detail); err != nil {
				return writer.Result(), err
			}
		}
		if reachedCutoff {
			break
		}
	}

	if err := writer.Flush(ctx); err != nil {
		return writer.Result(), err
	}
	return writer.Result(), nil
}

func (c *Connector) authenticate(ctx context.Context) error {
	body := fmt.Sprintf(`{"username_or_email":%q,"password":%q}`, c.username, c.password)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/login", strings.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("peloton authentication failed: status %d", resp.StatusCode)
	}

	var login struct {
		UserID    string `json:"user_id"`
		SessionID string `json:"session_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&login); err != nil {
		return err
	}
	if login.UserID == "" {
		return errors.New("peloton authentication failed: no user id in response")
	}
	c.userID = login.UserID
	return nil
}

func (c *Connector) fetchWorkouts(ctx context.Context, page int) ([]workoutSummary, error) {
	endpoint := fmt.Sprintf("%s/api/user/%s/workouts?%s", c.baseURL, c.userID, url.Values{
		"limit": {strconv.Itoa(pageSize)},
		"page":  {strconv.Itoa(page)},
		"joins": {"ride,ride.instructor"},
	}.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("peloton workouts page %d: unexpected status %d", page, resp.StatusCode)
	}

	var envelope struct {
		Data []workoutSummary `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, err
	}
	return envelope.Data, nil
}

func (c *Connector) fetchWorkoutDetail(ctx context.Context, workoutID string) (workoutDetail, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/workout/"+workoutID, nil)
	if err != nil {
		return workoutDetail{}, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return workoutDetail{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return workoutDetail{}, fmt.Errorf("peloton workout %s: unexpected status %d", workoutID, resp.StatusCode)
	}

	var detail workoutDetail
	if err := json.NewDecoder(resp.Body).Decode(&detail); err != nil {
		return workoutDetail{}, err
	}
	return detail, nil
}

func (c *Connector) writeWorkout(ctx context.Context, writer *ingest.Writer[domain.Measurement], detail workoutDetail) error {
	started := time.Unix(detail.StartTime, 0).UTC()

	err := writer.Write(ctx, domain.Measurement{
		Timestamp:   started,
		MetricType:  domain.MetricWorkout,
		Value:       detail.Ride.Duration / 60,
		Unit:        "min",
		Source:      sourceTag,
		SourceID:    detail.ID,
		Fingerprint: ingest.SourceFingerprint(sourceTag, detail.ID),
		Extra: map[string]any{
			"workout_id":         detail.ID,
			"title":              detail.Ride.Title,
			"instructor":         detail.Ride.Instructor.Name,
			"fitness_discipline": detail.FitnessDiscipline,
			"total_output":       detail.TotalWork,
			"avg_output":         detail.AvgWatts,
			"max_output":         detail.MaxWatts,
			"avg_cadence":        detail.AvgCadence,
			"max_cadence":        detail.MaxCadence,
			"avg_resistance":     detail.AvgResistance,
			"max_resistance":     detail.MaxResistance,
			"avg_speed":          detail.AvgSpeed,
			"max_speed":          detail.MaxSpeed,
			"distance":           detail.Distance,
			"calories":           detail.Calories,
			"avg_heart_rate":     detail.AvgHeartRate,
			"max_heart_rate":     detail.MaxHeartRate,
		},
	})
	if err != nil {
		return err
	}

	if detail.Calories > 0 {
		calID := ingest.WithSuffix(detail.ID, "cal")
		err = writer.Write(ctx, domain.Measurement{
			Timestamp:   started,
			MetricType:  domain.MetricActiveCalories,
			Value:       detail.Calories,
			Unit:        "kcal",
			Source:      sourceTag,
			SourceID:    calID,
			Fingerprint: ingest.SourceFingerprint(sourceTag, calID),
		})
		if err != nil {
			return err
		}
	}

	if detail.Distance > 0 {
		distID := ingest.WithSuffix(detail.ID, "dist")
		err = writer.Write(ctx, domain.Measurement{
			Timestamp:   started,
			MetricType:  domain.MetricDistance,
			Value:       detail.Distance,
			Unit:        "mi",
			Source:      sourceTag,
			SourceID:    distID,
			Fingerprint: ingest.SourceFingerprint(sourceTag, distID),
		})
		if err != nil {
			return err
		}
	}

	if detail.AvgHeartRate > 0 {
		hrID := ingest.WithSuffix(detail.ID, "hr")
		err = writer.Write(ctx, domain.Measurement{
			Timestamp:   started,
			MetricType:  domain.MetricHeartRate,
			Value:       detail.AvgHeartRate,
			Unit:        "bpm",
			Source:      sourceTag,
			SourceID:    hrID,
			Fingerprint: ingest.SourceFingerprint(sourceTag, hrID),
			Extra:       map[string]any{"type": "workout_average"},
		})
		if err != nil {
			return err
		}
	}

	return nil
}
