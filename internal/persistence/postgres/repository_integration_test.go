//go:build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	postgrescontainer "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/jtbaccus/datahub-project/internal/domain"
	"github.com/jtbaccus/datahub-project/internal/ingest"
)

func startRepository(t *testing.T, ctx context.Context) *Repository {
	t.Helper()

	pg, err := postgrescontainer.RunContainer(ctx,
		postgrescontainer.WithDatabase("datahub"),
		postgrescontainer.WithUsername("datahub"),
		postgrescontainer.WithPassword("datahub"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pg.Terminate(ctx) })

	connStr, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	require.NoError(t, waitForDatabase(ctx, connStr))

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })

	repo := NewRepository(pool)
	require.NoError(t, repo.Init(ctx))
	return repo
}

func waitForDatabase(ctx context.Context, connStr string) error {
	deadline := time.Now().Add(30 * time.Second)
	for {
		pool, err := pgxpool.New(ctx, connStr)
		if err == nil {
			err = pool.Ping(ctx)
			pool.Close()
			if err == nil {
				return nil
			}
		}
		if time.Now().After(deadline) {
			return err
		}
		time.Sleep(time.Second)
	}
}

func watchSteps(ts time.Time, sourceID string, value float64) domain.Measurement {
	return domain.Measurement{
		Timestamp:   ts,
		MetricType:  domain.MetricSteps,
		Value:       value,
		Unit:        "steps",
		Source:      "apple_watch",
		SourceID:    sourceID,
		Fingerprint: ingest.SourceFingerprint("apple_watch", sourceID),
		Extra:       map[string]any{"device": "watch"},
	}
}

func TestInsertMeasurementsIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := startRepository(t, ctx)

	ts := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)
	batch := []domain.Measurement{
		watchSteps(ts, "rec-1", 500),
		watchSteps(ts.Add(time.Hour), "rec-2", 300),
	}

	inserted, err := repo.InsertMeasurements(ctx, batch)
	require.NoError(t, err)
	require.Equal(t, 2, inserted)

	// Re-inserting the same fingerprints materialises nothing.
	inserted, err = repo.InsertMeasurements(ctx, batch)
	require.NoError(t, err)
	require.Equal(t, 0, inserted)

	// The same native ID from a different source is a distinct record.
	other := watchSteps(ts, "rec-1", 480)
	other.Source = "apple_health"
	other.Fingerprint = ingest.SourceFingerprint("apple_health", "rec-1")
	inserted, err = repo.InsertMeasurements(ctx, []domain.Measurement{other})
	require.NoError(t, err)
	require.Equal(t, 1, inserted)

	count, err := repo.CountMeasurements(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(3), count)
}

func TestListMeasurementsRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := startRepository(t, ctx)

	ts := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)
	_, err := repo.InsertMeasurements(ctx, []domain.Measurement{
		watchSteps(ts, "rec-1", 500),
		watchSteps(ts.AddDate(0, 0, 5), "rec-out-of-range", 999),
	})
	require.NoError(t, err)

	records, err := repo.ListMeasurements(ctx, domain.MetricSteps, ts.Add(-time.Hour), ts.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, records, 1)

	got := records[0]
	require.Equal(t, ts, got.Timestamp.UTC())
	require.Equal(t, domain.MetricSteps, got.MetricType)
	require.Equal(t, float64(500), got.Value)
	require.Equal(t, "apple_watch", got.Source)
	require.Equal(t, "rec-1", got.SourceID)
	require.Equal(t, "watch", got.Extra["device"])
	require.NotZero(t, got.ID)
	require.False(t, got.CreatedAt.IsZero())
}

func TestEntriesAndSpendingStats(t *testing.T) {
	ctx := context.Background()
	repo := startRepository(t, ctx)

	jan := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	entries := []domain.FinancialEntry{
		{
			Date:        jan,
			Amount:      decimal.RequireFromString("-42.50"),
			Description: "COFFEE SHOP",
			Category:    "Food & Drink",
			Account:     "Sapphire",
			Source:      "csv_chase",
			SourceID:    "row-1",
			Fingerprint: ingest.SourceFingerprint("csv_chase", "row-1"),
		},
		{
			Date:        jan.AddDate(0, 0, 1),
			Amount:      decimal.RequireFromString("-10.00"),
			Description: "PARKING",
			Category:    "Travel",
			Source:      "csv_chase",
			SourceID:    "row-2",
			Fingerprint: ingest.SourceFingerprint("csv_chase", "row-2"),
		},
		{
			Date:        jan.AddDate(0, 0, 2),
			Amount:      decimal.RequireFromString("2500.00"),
			Description: "PAYCHECK",
			Category:    "Income",
			Source:      "csv_chase",
			SourceID:    "row-3",
			Fingerprint: ingest.SourceFingerprint("csv_chase", "row-3"),
		},
	}

	inserted, err := repo.InsertEntries(ctx, entries)
	require.NoError(t, err)
	require.Equal(t, 3, inserted)

	inserted, err = repo.InsertEntries(ctx, entries)
	require.NoError(t, err)
	require.Equal(t, 0, inserted, "re-import is a no-op")

	start, end := jan.AddDate(0, 0, -1), jan.AddDate(0, 0, 7)

	total, err := repo.SpendingTotal(ctx, start, end)
	require.NoError(t, err)
	require.True(t, total.Equal(decimal.RequireFromString("-52.50")),
		"income is excluded from spending, got %s", total)

	byCategory, err := repo.SpendingByCategory(ctx, start, end)
	require.NoError(t, err)
	require.Len(t, byCategory, 2)
	require.Equal(t, "Food & Drink", byCategory[0].Category, "largest spend first")
	require.True(t, byCategory[0].Total.Equal(decimal.RequireFromString("-42.50")))

	listed, err := repo.ListEntries(ctx, start, end, 10)
	require.NoError(t, err)
	require.Len(t, listed, 3)
	require.Equal(t, "PAYCHECK", listed[0].Description, "newest first")

	travelOnly, err := repo.ListEntriesByCategory(ctx, "Travel", start, end, 10)
	require.NoError(t, err)
	require.Len(t, travelOnly, 1)
	require.Equal(t, "PARKING", travelOnly[0].Description)
}

func TestSyncLogLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := startRepository(t, ctx)

	log := domain.SyncLog{
		ID:        uuid.NewString(),
		Connector: "oura",
		StartedAt: time.Now().UTC().Truncate(time.Second),
		Status:    domain.SyncStatusRunning,
	}
	require.NoError(t, repo.StartSyncLog(ctx, log))

	completed := time.Now().UTC().Truncate(time.Second)
	log.CompletedAt = &completed
	log.Status = domain.SyncStatusSuccess
	log.RecordsAdded = 42
	log.RecordsSkipped = 7
	require.NoError(t, repo.FinishSyncLog(ctx, log))

	recent, err := repo.RecentSyncLogs(ctx, 5)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	require.Equal(t, log.ID, recent[0].ID)
	require.Equal(t, domain.SyncStatusSuccess, recent[0].Status)
	require.Equal(t, 42, recent[0].RecordsAdded)
	require.Equal(t, 7, recent[0].RecordsSkipped)
	require.NotNil(t, recent[0].CompletedAt)
}
