// Package postgres provides pgx-backed persistence for measurements,
// financial entries, and sync history.
package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/jtbaccus/datahub-project/internal/domain"
)

// Repository is the store of record. It enforces the (source, fingerprint)
// uniqueness that makes ingestion insert-or-skip atomic: a conflicting insert
// is silently dropped and reported as skipped by the caller.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const insertMeasurementStmt = `INSERT INTO measurements (ts, metric_type, value, unit, source, source_id, fingerprint, extra)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
    ON CONFLICT (source, fingerprint) DO NOTHING`

// InsertMeasurements persists a batch, skipping rows whose (source,
// fingerprint) already exists. Returns the number of rows actually inserted.
func (r *Repository) InsertMeasurements(ctx context.Context, records []domain.Measurement) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, rec := range records {
		extra, err := marshalExtra(rec.Extra)
		if err != nil {
			return 0, err
		}
		batch.Queue(insertMeasurementStmt,
			rec.Timestamp.UTC(),
			string(rec.MetricType),
			rec.Value,
			nullIfEmpty(rec.Unit),
			rec.Source,
			nullIfEmpty(rec.SourceID),
			rec.Fingerprint,
			extra,
		)
	}

	return r.sendBatch(ctx, batch, len(records))
}

const insertEntryStmt = `INSERT INTO financial_entries (entry_date, amount, description, merchant, category, account, source, source_id, fingerprint, extra)
    VALUES ($1,$2::numeric,$3,$4,$5,$6,$7,$8,$9,$10)
    ON CONFLICT (source, fingerprint) DO NOTHING`

// InsertEntries persists a batch of financial entries with the same
// insert-or-skip semantics as InsertMeasurements.
func (r *Repository) InsertEntries(ctx context.Context, entries []domain.FinancialEntry) (int, error) {
	if len(entries) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, e := range entries {
		extra, err := marshalExtra(e.Extra)
		if err != nil {
			return 0, err
		}
		batch.Queue(insertEntryStmt,
			e.Date.UTC(),
			e.Amount.String(),
			e.Description,
			nullIfEmpty(e.Merchant),
			nullIfEmpty(e.Category),
			nullIfEmpty(e.Account),
			e.Source,
			nullIfEmpty(e.SourceID),
			e.Fingerprint,
			extra,
		)
	}

	return r.sendBatch(ctx, batch, len(entries))
}

// sendBatch executes all queued inserts in one transaction and sums affected
// rows, so a flushed batch is committed or rolled back as a unit.
func (r *Repository) sendBatch(ctx context.Context, batch *pgx.Batch, n int) (int, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	results := tx.SendBatch(ctx, batch)
	inserted := 0
	for i := 0; i < n; i++ {
		tag, err := results.Exec()
		if err != nil {
			results.Close()
			return 0, err
		}
		inserted += int(tag.RowsAffected())
	}
	if err := results.Close(); err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return inserted, nil
}

// ListMeasurements returns measurements of one metric type within [start,
// end], ordered by timestamp ascending.
func (r *Repository) ListMeasurements(ctx context.Context, metric domain.MetricType, start, end time.Time) ([]domain.Measurement, error) {
	const query = `SELECT id, ts, metric_type, value, COALESCE(unit,''), source, COALESCE(source_id,''), fingerprint, extra, created_at
        FROM measurements
        WHERE metric_type=$1 AND ts >= $2 AND ts <= $3
        ORDER BY ts`

	rows, err := r.pool.Query(ctx, query, string(metric), start.UTC(), end.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanMeasurements(rows)
}

// RecentMeasurements returns the newest measurements of one metric type since
// a cutoff, newest first, capped at limit.
func (r *Repository) RecentMeasurements(ctx context.Context, metric domain.MetricType, since time.Time, limit int) ([]domain.Measurement, error) {
	const query = `SELECT id, ts, metric_type, value, COALESCE(unit,''), source, COALESCE(source_id,''), fingerprint, extra, created_at
        FROM measurements
        WHERE metric_type=$1 AND ts >= $2
        ORDER BY ts DESC
        LIMIT $3`

	rows, err := r.pool.Query(ctx, query, string(metric), since.UTC(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanMeasurements(rows)
}

// ListEntries returns financial entries within [start, end], newest first.
// limit <= 0 means no cap.
func (r *Repository) ListEntries(ctx context.Context, start, end time.Time, limit int) ([]domain.FinancialEntry, error) {
	query := `SELECT id, entry_date, amount::text, description, COALESCE(merchant,''), COALESCE(category,''), COALESCE(account,''), source, COALESCE(source_id,''), fingerprint, extra, created_at
        FROM financial_entries
        WHERE entry_date >= $1 AND entry_date <= $2
        ORDER BY entry_date DESC`
	args := []interface{}{start.UTC(), end.UTC()}
	if limit > 0 {
		query += ` LIMIT $3`
		args = append(args, limit)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]domain.FinancialEntry, 0)
	for rows.Next() {
		var (
			e      domain.FinancialEntry
			amount string
			extra  []byte
		)
		if err := rows.Scan(&e.ID, &e.Date, &amount, &e.Description, &e.Merchant, &e.Category, &e.Account, &e.Source, &e.SourceID, &e.Fingerprint, &extra, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Amount, err = decimal.NewFromString(amount)
		if err != nil {
			return nil, err
		}
		if e.Extra, err = unmarshalExtra(extra); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// ExportMeasurements returns measurements since a cutoff, oldest first.
// metric narrows to one type; empty means all types.
func (r *Repository) ExportMeasurements(ctx context.Context, metric domain.MetricType, since time.Time) ([]domain.Measurement, error) {
	query := `SELECT id, ts, metric_type, value, COALESCE(unit,''), source, COALESCE(source_id,''), fingerprint, extra, created_at
        FROM measurements
        WHERE ts >= $1`
	args := []interface{}{since.UTC()}
	if metric != "" {
		query += ` AND metric_type = $2`
		args = append(args, string(metric))
	}
	query += ` ORDER BY ts`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanMeasurements(rows)
}

// ListEntriesByCategory is ListEntries narrowed to one category.
func (r *Repository) ListEntriesByCategory(ctx context.Context, category string, start, end time.Time, limit int) ([]domain.FinancialEntry, error) {
	query := `SELECT id, entry_date, amount::text, description, COALESCE(merchant,''), COALESCE(category,''), COALESCE(account,''), source, COALESCE(source_id,''), fingerprint, extra, created_at
        FROM financial_entries
        WHERE entry_date >= $1 AND entry_date <= $2 AND category = $3
        ORDER BY entry_date DESC`
	args := []interface{}{start.UTC(), end.UTC(), category}
	if limit > 0 {
		query += ` LIMIT $4`
		args = append(args, limit)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]domain.FinancialEntry, 0)
	for rows.Next() {
		var (
			e      domain.FinancialEntry
			amount string
			extra  []byte
		)
		if err := rows.Scan(&e.ID, &e.Date, &amount, &e.Description, &e.Merchant, &e.Category, &e.Account, &e.Source, &e.SourceID, &e.Fingerprint, &extra, &e.CreatedAt); err != nil {
			return nil, err
		}
		if e.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, err
		}
		if e.Extra, err = unmarshalExtra(extra); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func scanMeasurements(rows pgx.Rows) ([]domain.Measurement, error) {
	records := make([]domain.Measurement, 0)
	for rows.Next() {
		var (
			m     domain.Measurement
			mtype string
			extra []byte
		)
		if err := rows.Scan(&m.ID, &m.Timestamp, &mtype, &m.Value, &m.Unit, &m.Source, &m.SourceID, &m.Fingerprint, &extra, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.MetricType = domain.MetricType(mtype)
		var err error
		if m.Extra, err = unmarshalExtra(extra); err != nil {
			return nil, err
		}
		records = append(records, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

func marshalExtra(extra map[string]any) (interface{}, error) {
	if len(extra) == 0 {
		return nil, nil
	}
	return json.Marshal(extra)
}

func unmarshalExtra(raw []byte) (map[string]any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func nullIfEmpty(value string) interface{} {
	if value == "" {
		return nil
	}
	return value
}
