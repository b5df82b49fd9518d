package postgres

import "context"

// Schema bootstraps the datahub tables. The UNIQUE (source, fingerprint)
// constraints are load-bearing: they collapse the check-then-insert
// idempotency pattern into a single atomic operation.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS measurements (
        id BIGSERIAL PRIMARY KEY,
        ts TIMESTAMPTZ NOT NULL,
        metric_type TEXT NOT NULL,
        value DOUBLE PRECISION NOT NULL,
        unit TEXT,
        source TEXT NOT NULL,
        source_id TEXT,
        fingerprint TEXT NOT NULL,
        extra JSONB,
        created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
        UNIQUE (source, fingerprint)
    )`,
	`CREATE INDEX IF NOT EXISTS ix_measurements_type_ts ON measurements (metric_type, ts)`,
	`CREATE INDEX IF NOT EXISTS ix_measurements_source_ts ON measurements (source, ts)`,
	`CREATE TABLE IF NOT EXISTS financial_entries (
        id BIGSERIAL PRIMARY KEY,
        entry_date TIMESTAMPTZ NOT NULL,
        amount NUMERIC(14,2) NOT NULL,
        description TEXT NOT NULL,
        merchant TEXT,
        category TEXT,
        account TEXT,
        source TEXT NOT NULL,
        source_id TEXT,
        fingerprint TEXT NOT NULL,
        extra JSONB,
        created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
        UNIQUE (source, fingerprint)
    )`,
	`CREATE INDEX IF NOT EXISTS ix_entries_date_amount ON financial_entries (entry_date, amount)`,
	`CREATE TABLE IF NOT EXISTS sync_logs (
        id UUID PRIMARY KEY,
        connector TEXT NOT NULL,
        started_at TIMESTAMPTZ NOT NULL,
        completed_at TIMESTAMPTZ,
        status TEXT NOT NULL,
        records_added INTEGER NOT NULL DEFAULT 0,
        records_skipped INTEGER NOT NULL DEFAULT 0,
        error_message TEXT
    )`,
	`CREATE INDEX IF NOT EXISTS ix_sync_logs_connector ON sync_logs (connector, started_at DESC)`,
}

// Init creates the schema if it does not exist yet.
func (r *Repository) Init(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := r.pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
