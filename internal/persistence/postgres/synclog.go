package postgres

import (
	"context"

	"github.com/jtbaccus/datahub-project/internal/domain"
)

// StartSyncLog records the beginning of a connector run.
func (r *Repository) StartSyncLog(ctx context.Context, log domain.SyncLog) error {
	const stmt = `INSERT INTO sync_logs (id, connector, started_at, status)
        VALUES ($1,$2,$3,$4)`
	_, err := r.pool.Exec(ctx, stmt, log.ID, log.Connector, log.StartedAt.UTC(), string(log.Status))
	return err
}

// FinishSyncLog records the terminal state of a connector run.
func (r *Repository) FinishSyncLog(ctx context.Context, log domain.SyncLog) error {
	const stmt = `UPDATE sync_logs
        SET completed_at=$2, status=$3, records_added=$4, records_skipped=$5, error_message=$6
        WHERE id=$1`
	_, err := r.pool.Exec(ctx, stmt,
		log.ID,
		log.CompletedAt,
		string(log.Status),
		log.RecordsAdded,
		log.RecordsSkipped,
		nullIfEmpty(log.ErrorMessage),
	)
	return err
}

// RecentSyncLogs returns the newest runs across all connectors.
func (r *Repository) RecentSyncLogs(ctx context.Context, limit int) ([]domain.SyncLog, error) {
	const query = `SELECT id, connector, started_at, completed_at, status, records_added, records_skipped, COALESCE(error_message,'')
        FROM sync_logs
        ORDER BY started_at DESC
        LIMIT $1`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]domain.SyncLog, 0, limit)
	for rows.Next() {
		var (
			log    domain.SyncLog
			status string
		)
		if err := rows.Scan(&log.ID, &log.Connector, &log.StartedAt, &log.CompletedAt, &status, &log.RecordsAdded, &log.RecordsSkipped, &log.ErrorMessage); err != nil {
			return nil, err
		}
		log.Status = domain.SyncStatus(status)
		logs = append(logs, log)
	}
	return logs, rows.Err()
}
