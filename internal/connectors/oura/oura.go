// Package oura syncs sleep, readiness, and activity data from the Oura Ring
// API v2.
//
// Oura supplies durable record identifiers, so idempotency rides on
// source-namespaced fingerprints; one sleep session expands into several
// independently idempotent facts (sleep minutes, HRV).
package oura

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/jtbaccus/datahub-project/internal/domain"
	"github.com/jtbaccus/datahub-project/internal/ingest"
)

// DefaultBaseURL is Oura's user collection API root.
const DefaultBaseURL = "https://api.ouraring.com/v2/usercollection"

const sourceTag = "oura"

// ErrNotConfigured is returned when no personal access token is set.
var ErrNotConfigured = errors.New("oura token not configured; run: datahub config oura.token YOUR_TOKEN")

// Connector syncs from the Oura API.
type Connector struct {
	store     domain.MeasurementStore
	token     string
	baseURL   string
	client    *http.Client
	batchSize int
}

// Option configures optional connector behaviour.
type Option func(*Connector)

// WithBaseURL points the connector at an alternate API root; used by tests.
func WithBaseURL(baseURL string) Option {
	return func(c *Connector) { c.baseURL = baseURL }
}

// New builds a Connector.
func New(store domain.MeasurementStore, token string, batchSize int, opts ...Option) *Connector {
	c := &Connector{
		store:     store,
		token:     token,
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

type sleepRecord struct {
	ID                 string  `json:"id"`
	Type               string  `json:"type"`
	BedtimeStart       string  `json:"bedtime_start"`
	TotalSleepDuration float64 `json:"total_sleep_duration"`
	Efficiency         float64 `json:"efficiency"`
	RemSleepDuration   float64 `json:"rem_sleep_duration"`
	DeepSleepDuration  float64 `json:"deep_sleep_duration"`
	LightSleepDuration float64 `json:"light_sleep_duration"`
	AwakeTime          float64 `json:"awake_time"`
	AverageHRV         float64 `json:"average_hrv"`
	LowestHeartRate    float64 `json:"lowest_heart_rate"`
	AverageHeartRate   float64 `json:"average_heart_rate"`
}

type readinessRecord struct {
	Day                  string         `json:"day"`
	Score                *float64       `json:"score"`
	TemperatureDeviation float64        `json:"temperature_deviation"`
	Contributors         map[string]any `json:"contributors"`
}

type activityRecord struct {
	Day            string  `json:"day"`
	Steps          float64 `json:"steps"`
	ActiveCalories float64 `json:"active_calories"`
}

// Sync fetches sleep sessions, daily readiness, and daily activity for the
// window and writes each derived fact through the idempotent writer.
func (c *Connector) Sync(ctx context.Context, since time.Time) (domain.SyncResult, error) {
	if c.token == "" {
		return domain.SyncResult{}, ErrNotConfigured
	}
	if since.IsZero() {
		since = time.Now().UTC().AddDate(0, 0, -30)
	}
	startDate := since.UTC().Format("2006-01-02")
	endDate := time.Now().UTC().Format("2006-01-02")

	writer := ingest.NewMeasurementWriter(c.store, c.batchSize)

	var sleep []sleepRecord
	if err := c.fetch(ctx, "/sleep", startDate, endDate, &sleep); err != nil {
		return writer.Result(), err
	}
	if err := c.writeSleep(ctx, writer, sleep); err != nil {
		return writer.Result(), err
	}

	var readiness []readinessRecord
	if err := c.fetch(ctx, "/daily_readiness", startDate, endDate, &readiness); err != nil {
		return writer.Result(), err
	}
	if err := c.writeReadiness(ctx, writer, readiness); err != nil {
		return writer.Result(), err
	}

	var activity []activityRecord
	if err := c.fetch(ctx, "/daily_activity", startDate, endDate, &activity); err != nil {
		return writer.Result(), err
	}
	if err := c.writeActivity(ctx, writer, activity); err != nil {
		return writer.Result(), err
	}

	if err := writer.Flush(ctx); err != nil {
		return writer.Result(), err
	}
	return writer.Result(), nil
}

func (c *Connector) fetch(ctx context.Context, path, startDate, endDate string, out any) error {
	endpoint := fmt.Sprintf("%s%s?%s", c.baseURL, path, url.Values{
		"start_date": {startDate},
		"end_date":   {endDate},
	}.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("oura %s: unexpected status %d", path, resp.StatusCode)
	}

	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return err
	}
	return json.Unmarshal(envelope.Data, out)
}

func (c *Connector) writeSleep(ctx context.Context, writer *ingest.Writer[domain.Measurement], records []sleepRecord) error {
	for _, rec := range records {
		if rec.ID == "" || rec.BedtimeStart == "" {
			continue
		}
		ts, err := time.Parse(time.RFC3339, rec.BedtimeStart)
		if err != nil {
			continue
		}

		sleepID := "sleep_" + rec.ID
		err = writer.Write(ctx, domain.Measurement{
			Timestamp:   ts.UTC(),
			MetricType:  domain.MetricSleepMinutes,
			Value:       rec.TotalSleepDuration / 60,
			Unit:        "min",
			Source:      sourceTag,
			SourceID:    sleepID,
			Fingerprint: ingest.SourceFingerprint(sourceTag, sleepID),
			Extra: map[string]any{
				"type":        rec.Type,
				"efficiency":  rec.Efficiency,
				"rem_sleep":   rec.RemSleepDuration,
				"deep_sleep":  rec.DeepSleepDuration,
				"light_sleep": rec.LightSleepDuration,
				"awake_time":  rec.AwakeTime,
				"lowest_hr":   rec.LowestHeartRate,
				"average_hr":  rec.AverageHeartRate,
			},
		})
		if err != nil {
			return err
		}

		if rec.AverageHRV > 0 {
			hrvID := "sleep_hrv_" + rec.ID
			err = writer.Write(ctx, domain.Measurement{
				Timestamp:   ts.UTC(),
				MetricType:  domain.MetricHRV,
				Value:       rec.AverageHRV,
				Unit:        "ms",
				Source:      sourceTag,
				SourceID:    hrvID,
				Fingerprint: ingest.SourceFingerprint(sourceTag, hrvID),
			})
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *Connector) writeReadiness(ctx context.Context, writer *ingest.Writer[domain.Measurement], records []readinessRecord) error {
	for _, rec := range records {
		if rec.Day == "" || rec.Score == nil {
			continue
		}
		ts, err := time.ParseInLocation("2006-01-02", rec.Day, time.UTC)
		if err != nil {
			continue
		}

		sourceID := "readiness_" + rec.Day
		err = writer.Write(ctx, domain.Measurement{
			Timestamp:   ts,
			MetricType:  domain.MetricReadinessScore,
			Value:       *rec.Score,
			Unit:        "score",
			Source:      sourceTag,
			SourceID:    sourceID,
			Fingerprint: ingest.SourceFingerprint(sourceTag, sourceID),
			Extra: map[string]any{
				"temperature_deviation": rec.TemperatureDeviation,
				"contributors":          rec.Contributors,
			},
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (c *Connector) writeActivity(ctx context.Context, writer *ingest.Writer[domain.Measurement], records []activityRecord) error {
	for _, rec := range records {
		if rec.Day == "" {
			continue
		}
		ts, err := time.ParseInLocation("2006-01-02", rec.Day, time.UTC)
		if err != nil {
			continue
		}

		if rec.Steps > 0 {
			sourceID := "activity_steps_" + rec.Day
			err = writer.Write(ctx, domain.Measurement{
				Timestamp:   ts,
				MetricType:  domain.MetricSteps,
				Value:       rec.Steps,
				Unit:        "steps",
				Source:      sourceTag,
				SourceID:    sourceID,
				Fingerprint: ingest.SourceFingerprint(sourceTag, sourceID),
			})
			if err != nil {
				return err
			}
		}

		if rec.ActiveCalories > 0 {
			sourceID := "activity_cal_" + rec.Day
			err = writer.Write(ctx, domain.Measurement{
				Timestamp:   ts,
				MetricType:  domain.MetricActiveCalories,
				Value:       rec.ActiveCalories,
				Unit:        "kcal",
				Source:      sourceTag,
				SourceID:    sourceID,
				Fingerprint: ingest.SourceFingerprint(sourceTag, sourceID),
			})
			if err != nil {
				return err
			}
		}
	}
	return nil
}
