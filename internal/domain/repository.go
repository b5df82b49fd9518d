package domain

import (
	"context"
	"time"
)

// MeasurementStore captures the write/read surface the ingestion and
// aggregation paths need for measurements. InsertMeasurements must be
// idempotent on (source, fingerprint): re-inserting an existing record is a
// no-op, and the return value is the number of rows actually materialised.
type MeasurementStore interface {
	InsertMeasurements(ctx context.Context, records []Measurement) (int, error)
	ListMeasurements(ctx context.Context, metric MetricType, start, end time.Time) ([]Measurement, error)
}

// EntryStore is the equivalent surface for financial entries.
type EntryStore interface {
	InsertEntries(ctx context.Context, entries []FinancialEntry) (int, error)
	ListEntries(ctx context.Context, start, end time.Time, limit int) ([]FinancialEntry, error)
}

// SyncLogStore persists connector run history. It is a collaborator of the
// core, not part of it: ingestion works the same with a nil log.
type SyncLogStore interface {
	StartSyncLog(ctx context.Context, log SyncLog) error
	FinishSyncLog(ctx context.Context, log SyncLog) error
	RecentSyncLogs(ctx context.Context, limit int) ([]SyncLog, error)
}
