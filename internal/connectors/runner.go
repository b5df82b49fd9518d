// Package connectors defines the contract every data source implements and
// the runner that wraps each run with sync-history logging.
package connectors

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/jtbaccus/datahub-project/internal/domain"
	"github.com/jtbaccus/datahub-project/internal/observability"
)

// Syncer pulls records from an external API. since bounds how far back the
// sync looks; the zero value means "all available history".
type Syncer interface {
	Name() string
	Sync(ctx context.Context, since time.Time) (domain.SyncResult, error)
}

// FileImporter ingests records from a local export file.
type FileImporter interface {
	Name() string
	ImportFile(ctx context.Context, path string) (domain.SyncResult, error)
}

// Runner executes connector runs, recording each in the sync log. Connector
// failures propagate to the caller after being recorded; the ingestion
// primitives themselves carry no retry policy.
type Runner struct {
	logs   domain.SyncLogStore
	logger *slog.Logger
}

// NewRunner builds a Runner.
func NewRunner(logs domain.SyncLogStore, logger *slog.Logger) *Runner {
	return &Runner{logs: logs, logger: logger}
}

// RunSync executes an API sync with history logging.
func (r *Runner) RunSync(ctx context.Context, connector Syncer, since time.Time) (domain.SyncLog, error) {
	return r.run(ctx, connector.Name(), func() (domain.SyncResult, error) {
		return connector.Sync(ctx, since)
	})
}

// RunImport executes a file import with history logging.
func (r *Runner) RunImport(ctx context.Context, connector FileImporter, path string) (domain.SyncLog, error) {
	return r.run(ctx, connector.Name(), func() (domain.SyncResult, error) {
		return connector.ImportFile(ctx, path)
	})
}

func (r *Runner) run(ctx context.Context, name string, fn func() (domain.SyncResult, error)) (domain.SyncLog, error) {
	log := domain.SyncLog{
		ID:        uuid.NewString(),
		Connector: name,
		StartedAt: time.Now().UTC(),
		Status:    domain.SyncStatusRunning,
	}
	if err := r.logs.StartSyncLog(ctx, log); err != nil {
		return log, err
	}

	result, runErr := fn()
	completed := time.Now().UTC()
	log.CompletedAt = &completed
	log.RecordsAdded = result.Added
	log.RecordsSkipped = result.Skipped

	if runErr != nil {
		log.Status = domain.SyncStatusFailed
		log.ErrorMessage = runErr.Error()
		if err := r.logs.FinishSyncLog(ctx, log); err != nil {
			r.logger.Error("failed to record sync failure", "connector", name, "error", err)
		}
		return log, runErr
	}

	log.Status = domain.SyncStatusSuccess
	if err := r.logs.FinishSyncLog(ctx, log); err != nil {
		return log, err
	}

	observability.RecordIngested(name, "added", result.Added)
	observability.RecordIngested(name, "skipped", result.Skipped)
	observability.RecordSyncCompleted(name, completed)
	r.logger.Info("sync complete", "connector", name, "added", result.Added, "skipped", result.Skipped)
	return log, nil
}
