// Package tonal syncs strength workout data from Tonal.
//
// Tonal has no official public API; these endpoints are reverse engineered
// and may break without notice. Tonal data can always be imported through an
// Apple Health export instead.
package tonal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jtbaccus/datahub-project/internal/domain"
	"github.com/jtbaccus/datahub-project/internal/ingest"
)

// DefaultBaseURL is Tonal's API root.
const DefaultBaseURL = "https://api.tonal.com"

const (
	sourceTag = "tonal"
	pageSize  = 50
	maxOffset = 500
)

// ErrNotConfigured is returned when credentials are missing.
var ErrNotConfigured = errors.New("tonal credentials not configured; run: datahub config tonal.email YOUR_EMAIL && datahub config tonal.password YOUR_PASSWORD")

// ErrAuthFailed is returned when none of the known login endpoints accept the
// credentials.
var ErrAuthFailed = errors.New("tonal authentication failed; the API is unofficial and may have changed, import via apple health export instead")

// Connector syncs from the Tonal API.
type Connector struct {
	store     domain.MeasurementStore
	email     string
	password  string
	baseURL   string
	client    *http.Client
	batchSize int

	accessToken string
	userID      string
}

// Option configures optional connector behaviour.
type Option func(*Connector)

// WithBaseURL points the connector at an alternate API root; used by tests.
func WithBaseURL(baseURL string) Option {
	return func(c *Connector) { c.baseURL = baseURL }
}

// New builds a Connector.
func New(store domain.MeasurementStore, email, password string, batchSize int, opts ...Option) *Connector {
	c := &Connector{
		store:     store,
		email:     email,
		password:  password,
		baseURL:   DefaultBaseURL,
		client:    &http.Client{Timeout: 30 * time.Second},
		batchSize: batchSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name implements connectors.Syncer.
func (c *Connector) Name() string { return sourceTag }

type workoutSet struct {
	Reps   float64 `json:"reps"`
	Weight float64 `json:"weight"`
}

type workoutExercise struct {
	Name string       `json:"name"`
	Sets []workoutSet `json:"sets"`
}

type workout struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Type      string            `json:"type"`
	StartedAt string            `json:"startedAt"`
	Duration  float64           `json:"duration"`
	Calories  float64           `json:"calories"`
	Exercises []workoutExercise `json:"exercises"`
}

// Sync authenticates, pages through the workout history until it reaches the
// cutoff, and writes each workout's derived facts through the idempotent
// writer.
func (c *Connector) Sync(ctx context.Context, since time.Time) (domain.SyncResult, error) {
	if c.email == "" || c.password == "" {
		return domain.SyncResult{}, ErrNotConfigured
	}
	if err := c.authenticate(ctx); err != nil {
		return domain.SyncResult{}, err
	}

	writer := ingest.NewMeasurementWriter(c.store, c.batchSize)

	for offset := 0; offset <= maxOffset; offset += pageSize {
		workouts, err := c.fetchWorkouts(ctx, offset)
		if err != nil {
			return writer.Result(), err
		}
		if len(workouts) == 0 {
			break
		}

		reachedCutoff := false
		for _, summary := range workouts {
			if summary.ID == "" {
				continue
			}
			started := parseTimestamp(summary.StartedAt)
			if !since.IsZero() && !started.IsZero() && started.Before(since) {
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
		if reachedCutoff || len(workouts) < pageSize {
			break
		}
	}

	if err := writer.Flush(ctx); err != nil {
		return writer.Result(), err
	}
	return writer.Result(), nil
}

// authenticate tries the login endpoints the mobile app has been observed to
// use, in order.
func (c *Connector) authenticate(ctx context.Context) error {
	paths := []string{"/v1/auth/login", "/v1/login", "/auth/login"}
	body := fmt.Sprintf(`{"email":%q,"password":%q}`, c.email, c.password)

	for _, path := range paths {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			continue
		}

		var login struct {
			AccessToken  string `json:"access_token"`
			Token        string `json:"token"`
			AccessToken2 string `json:"accessToken"`
			UserID       string `json:"user_id"`
			UserID2      string `json:"userId"`
			ID           string `json:"id"`
		}
		decodeErr := json.NewDecoder(resp.Body).Decode(&login)
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK || decodeErr != nil {
			continue
		}

		token := firstNonEmpty(login.AccessToken, login.Token, login.AccessToken2)
		if token == "" {
			continue
		}
		c.accessToken = token
		c.userID = firstNonEmpty(login.UserID, login.UserID2, login.ID)
		return nil
	}
	return ErrAuthFailed
}

func (c *Connector) fetchWorkouts(ctx context.Context, offset int) ([]workout, error) {
	params := url.Values{
		"limit":  {strconv.Itoa(pageSize)},
		"offset": {strconv.Itoa(offset)},
	}
	if c.userID != "" {
		params.Set("userId", c.userID)
	}

	var raw json.RawMessage
	if err := c.get(ctx, "/v1/workouts?"+params.Encode(), &raw); err != nil {
		return nil, err
	}

	// The endpoint has been seen returning both a bare list and a wrapped one.
	var list []workout
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, nil
	}
	var wrapped struct {
		Workouts []workout `json:"workouts"`
		Data     []workout `json:"data"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, err
	}
	if wrapped.Workouts != nil {
		return wrapped.Workouts, nil
	}
	return wrapped.Data, nil
}

func (c *Connector) fetchWorkoutDetail(ctx context.Context, workoutID string) (workout, error) {
	var detail workout
	if err := c.get(ctx, "/v1/workouts/"+workoutID, &detail); err != nil {
		return workout{}, err
	}
	return detail, nil
}

func (c *Connector) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("tonal %s: unexpected status %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Connector) writeWorkout(ctx context.Context, writer *ingest.Writer[domain.Measurement], detail workout) error {
	started := parseTimestamp(detail.StartedAt)
	if started.IsZero() {
		started = time.Now().UTC()
	}
	durationMinutes := detail.Duration / 60

	var totalVolume, totalReps float64
	totalSets := 0
	type exerciseSummary struct {
		Name   string  `json:"name"`
		Sets   int     `json:"sets"`
		Reps   float64 `json:"reps"`
		Volume float64 `json:"volume"`
	}
	exercises := make([]exerciseSummary, 0, len(detail.Exercises))
	for _, exercise := range detail.Exercises {
		summary := exerciseSummary{Name: exercise.Name, Sets: len(exercise.Sets)}
		for _, set := range exercise.Sets {
			summary.Reps += set.Reps
			summary.Volume += set.Reps * set.Weight
		}
		totalVolume += summary.Volume
		totalReps += summary.Reps
		totalSets += summary.Sets
		exercises = append(exercises, summary)
	}

	name := detail.Name
	if name == "" {
		name = "Tonal Workout"
	}
	workoutType := detail.Type
	if workoutType == "" {
		workoutType = "strength"
	}

	err := writer.Write(ctx, domain.Measurement{
		Timestamp:   started,
		MetricType:  domain.MetricStrengthWorkout,
		Value:       durationMinutes,
		Unit:        "min",
		Source:      sourceTag,
		SourceID:    detail.ID,
		Fingerprint: ingest.SourceFingerprint(sourceTag, detail.ID),
		Extra: map[string]any{
			"workout_id":       detail.ID,
			"name":             name,
			"type":             workoutType,
			"total_sets":       totalSets,
			"total_reps":       totalReps,
			"total_volume_lbs": totalVolume,
			"exercises":        exercises,
			"calories":         detail.Calories,
		},
	})
	if err != nil {
		return err
	}

	if totalVolume > 0 {
		volID := ingest.WithSuffix(detail.ID, "vol")
		err = writer.Write(ctx, domain.Measurement{
			Timestamp:   started,
			MetricType:  domain.MetricVolume,
			Value:       totalVolume,
			Unit:        "lbs",
			Source:      sourceTag,
			SourceID:    volID,
			Fingerprint: ingest.SourceFingerprint(sourceTag, volID),
		})
		if err != nil {
			return err
		}
	}

	// Also recorded as a general workout so aggregate counts include strength.
	workoutID := ingest.WithSuffix(detail.ID, "workout")
	err = writer.Write(ctx, domain.Measurement{
		Timestamp:   started,
		MetricType:  domain.MetricWorkout,
		Value:       durationMinutes,
		Unit:        "min",
		Source:      sourceTag,
		SourceID:    workoutID,
		Fingerprint: ingest.SourceFingerprint(sourceTag, workoutID),
		Extra:       map[string]any{"type": "strength", "name": name},
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

	for i, exercise := range exercises {
		if exercise.Volume <= 0 {
			continue
		}
		exID := ingest.WithSuffix(detail.ID, "ex"+strconv.Itoa(i))
		err = writer.Write(ctx, domain.Measurement{
			Timestamp:   started,
			MetricType:  domain.MetricStrengthExercise,
			Value:       exercise.Volume,
			Unit:        "lbs",
			Source:      sourceTag,
			SourceID:    exID,
			Fingerprint: ingest.SourceFingerprint(sourceTag, exID),
			Extra: map[string]any{
				"name":   exercise.Name,
				"sets":   exercise.Sets,
				"reps":   exercise.Reps,
				"volume": exercise.Volume,
			},
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// parseTimestamp accepts the RFC 3339 and space-separated forms the API has
// been observed to return. Zero time means unparseable.
func parseTimestamp(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	if strings.Contains(value, "T") {
		if ts, err := time.Parse(time.RFC3339, value); err == nil {
			return ts.UTC()
		}
		return time.Time{}
	}
	if ts, err := time.ParseInLocation("2006-01-02 15:04:05", value, time.UTC); err == nil {
		return ts
	}
	return time.Time{}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
