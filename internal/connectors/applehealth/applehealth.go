// Package applehealth imports Apple Health XML exports.
//
// Exports have no per-record identifiers, so records are fingerprinted over
// their natural key (timestamp, metric type, value) within each source.
// Large exports run to hundreds of megabytes; parsing is a streaming token
// walk, never a full-document load.
package applehealth

import (
	"context"
	"encoding/xml"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jtbaccus/datahub-project/internal/domain"
	"github.com/jtbaccus/datahub-project/internal/ingest"
	"github.com/jtbaccus/datahub-project/internal/observability"
)

// typeMap translates HealthKit type identifiers to datahub metric types.
var typeMap = map[string]domain.MetricType{
	"HKQuantityTypeIdentifierStepCount":                domain.MetricSteps,
	"HKQuantityTypeIdentifierHeartRate":                domain.MetricHeartRate,
	"HKQuantityTypeIdentifierHeartRateVariabilitySDNN": domain.MetricHRV,
	"HKQuantityTypeIdentifierActiveEnergyBurned":       domain.MetricActiveCalories,
	"HKQuantityTypeIdentifierBasalEnergyBurned":        domain.MetricRestingCalories,
	"HKQuantityTypeIdentifierDistanceWalkingRunning":   domain.MetricDistance,
	"HKQuantityTypeIdentifierFlightsClimbed":           domain.MetricFloorsClimbed,
	"HKQuantityTypeIdentifierBodyMass":                 domain.MetricWeight,
	"HKQuantityTypeIdentifierBodyFatPercentage":        domain.MetricBodyFat,
	"HKQuantityTypeIdentifierOxygenSaturation":         domain.MetricSpO2,
	"HKQuantityTypeIdentifierRespiratoryRate":          domain.MetricRespiratoryRate,
	"HKCategoryTypeIdentifierSleepAnalysis":            domain.MetricSleepStage,
}

// bundlePrefixes maps app bundle identifiers to friendly source tags.
var bundlePrefixes = map[string]string{
	"com.ouraring.oura": "oura",
	"com.tonal.app":     "tonal",
	"com.apple.health":  "apple_watch",
	"com.apple.Health":  "apple_health_app",
}

// ParseExportDate parses the export's date format, e.g.
// "2024-01-15 08:30:00 -0500". The zone suffix is dropped; timestamps are
// normalised to the reference clock.
func ParseExportDate(value string) (time.Time, error) {
	if len(value) > 19 {
		value = value[:19]
	}
	return time.ParseInLocation("2006-01-02 15:04:05", value, time.UTC)
}

// SourceName attributes a record to a device tag from its sourceName and
// bundle identifier.
func SourceName(sourceName, sourceBundle string) string {
	for prefix, name := range bundlePrefixes {
		if sourceBundle != "" && strings.HasPrefix(sourceBundle, prefix) {
			return name
		}
	}
	lower := strings.ToLower(sourceName)
	switch {
	case strings.Contains(lower, "oura"):
		return "oura"
	case strings.Contains(lower, "tonal"):
		return "tonal"
	case strings.Contains(lower, "watch"):
		return "apple_watch"
	case strings.Contains(lower, "peloton"):
		return "peloton"
	}
	return "apple_health"
}

// Connector imports one export.xml per run.
type Connector struct {
	store     domain.MeasurementStore
	batchSize int
}

// New builds a Connector.
func New(store domain.MeasurementStore, batchSize int) *Connector {
	return &Connector{store: store, batchSize: batchSize}
}

// Name implements connectors.FileImporter.
func (c *Connector) Name() string { return "apple_health" }

// ImportFile walks the export and writes every recognised Record and Workout
// element through the idempotent writer. Unrecognised types are ignored;
// malformed elements are dropped without aborting the import.
func (c *Connector) ImportFile(ctx context.Context, path string) (domain.SyncResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.SyncResult{}, err
	}
	defer f.Close()

	writer := ingest.NewMeasurementWriter(c.store, c.batchSize)
	decoder := xml.NewDecoder(f)
	malformed := 0

	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return writer.Result(), err
		}

		start, ok := token.(xml.StartElement)
		if !ok {
			continue
		}

		switch start.Name.Local {
		case "Record":
			record, ok := parseRecord(start)
			if !ok {
				if _, recognised := typeMap[attr(start, "type")]; recognised {
					malformed++
				}
				continue
			}
			if err := writer.Write(ctx, record); err != nil {
				return writer.Result(), err
			}
		case "Workout":
			record, ok := parseWorkout(start)
			if !ok {
				malformed++
				continue
			}
			if err := writer.Write(ctx, record); err != nil {
				return writer.Result(), err
			}
		}
	}

	if err := writer.Flush(ctx); err != nil {
		return writer.Result(), err
	}
	observability.RecordIngested(c.Name(), "malformed", malformed)
	return writer.Result(), nil
}

func parseRecord(elem xml.StartElement) (domain.Measurement, bool) {
	metric, ok := typeMap[attr(elem, "type")]
	if !ok {
		return domain.Measurement{}, false
	}

	ts, err := ParseExportDate(attr(elem, "startDate"))
	if err != nil {
		return domain.Measurement{}, false
	}
	value, err := strconv.ParseFloat(attr(elem, "value"), 64)
	if err != nil {
		return domain.Measurement{}, false
	}

	source := SourceName(attr(elem, "sourceName"), attr(elem, "sourceVersion"))

	return domain.Measurement{
		Timestamp:   ts,
		MetricType:  metric,
		Value:       value,
		Unit:        attr(elem, "unit"),
		Source:      source,
		Fingerprint: ingest.ValueFingerprint(ts, value, string(metric)),
	}, true
}

func parseWorkout(elem xml.StartElement) (domain.Measurement, bool) {
	ts, err := ParseExportDate(attr(elem, "startDate"))
	if err != nil {
		return domain.Measurement{}, false
	}
	duration, err := strconv.ParseFloat(attr(elem, "duration"), 64)
	if err != nil {
		return domain.Measurement{}, false
	}

	source := SourceName(attr(elem, "sourceName"), attr(elem, "sourceVersion"))
	extra := map[string]any{
		"workout_type": attr(elem, "workoutActivityType"),
		"end_date":     attr(elem, "endDate"),
	}
	if calories := attr(elem, "totalEnergyBurned"); calories != "" {
		extra["calories"] = calories
	}
	if distance := attr(elem, "totalDistance"); distance != "" {
		extra["distance"] = distance
	}

	return domain.Measurement{
		Timestamp:   ts,
		MetricType:  domain.MetricWorkout,
		Value:       duration,
		Unit:        "min",
		Source:      source,
		Fingerprint: ingest.ValueFingerprint(ts, duration, string(domain.MetricWorkout)),
		Extra:       extra,
	}, true
}

func attr(elem xml.StartElement, name string) string {
	for _, a := range elem.Attr {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}
