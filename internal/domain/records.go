// Package domain defines the records stored by datahub and the contracts
// the rest of the system depends on.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// MetricType categorises a health/fitness measurement. The set is open-ended;
// these are the types the bundled connectors emit.
type MetricType string

const (
	MetricSteps            MetricType = "steps"
	MetricHeartRate        MetricType = "heart_rate"
	MetricHRV              MetricType = "hrv"
	MetricActiveCalories   MetricType = "active_calories"
	MetricRestingCalories  MetricType = "resting_calories"
	MetricDistance         MetricType = "distance"
	MetricFloorsClimbed    MetricType = "floors"
	MetricSleepMinutes     MetricType = "sleep_minutes"
	MetricSleepStage       MetricType = "sleep_stage"
	MetricWeight           MetricType = "weight"
	MetricBodyFat          MetricType = "body_fat"
	MetricWorkout          MetricType = "workout"
	MetricSpO2             MetricType = "spo2"
	MetricRespiratoryRate  MetricType = "respiratory_rate"
	MetricReadinessScore   MetricType = "readiness"
	MetricStrainScore      MetricType = "strain"
	MetricStrengthWorkout  MetricType = "strength_workout"
	MetricStrengthExercise MetricType = "strength_exercise"
	MetricVolume           MetricType = "volume"
)

// Measurement is a single timestamped health/fitness fact from one source.
// Measurements are immutable once stored and are never deleted by the core.
type Measurement struct {
	ID          int64
	Timestamp   time.Time
	MetricType  MetricType
	Value       float64
	Unit        string // informational only, never compared
	Source      string // connector/device tag, e.g. "apple_watch", "oura"
	SourceID    string // originating-system identifier when the source has one
	Fingerprint string
	Extra       map[string]any // opaque payload (workout details, sleep stages)
	CreatedAt   time.Time
}

// FinancialEntry is a single bank/card transaction from one source.
// Amounts are signed; negative means outflow.
type FinancialEntry struct {
	ID          int64
	Date        time.Time
	Amount      decimal.Decimal
	Description string
	Merchant    string
	Category    string
	Account     string
	Source      string
	SourceID    string
	Fingerprint string
	Extra       map[string]any
	CreatedAt   time.Time
}

// SyncStatus is the lifecycle state of one connector run.
type SyncStatus string

const (
	SyncStatusRunning SyncStatus = "running"
	SyncStatusSuccess SyncStatus = "success"
	SyncStatusFailed  SyncStatus = "failed"
)

// SyncLog records one connector sync/import run for user-facing history.
type SyncLog struct {
	ID             string
	Connector      string
	StartedAt      time.Time
	CompletedAt    *time.Time
	Status         SyncStatus
	RecordsAdded   int
	RecordsSkipped int
	ErrorMessage   string
}

// SyncResult is the outcome of a connector run: how many incoming records were
// materialised and how many were recognised as re-imports. Malformed records
// dropped at the connector boundary count as neither.
type SyncResult struct {
	Added   int
	Skipped int
}

// Merge folds another result into this one.
func (r *SyncResult) Merge(other SyncResult) {
	r.Added += other.Added
	r.Skipped += other.Skipped
}
