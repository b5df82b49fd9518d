// Package cli implements the datahub command tree.
package cli

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/jtbaccus/datahub-project/internal/config"
	"github.com/jtbaccus/datahub-project/internal/connectors"
	"github.com/jtbaccus/datahub-project/internal/dedupe"
	"github.com/jtbaccus/datahub-project/internal/persistence/postgres"
	"github.com/jtbaccus/datahub-project/internal/priority"
)

// runtime bundles everything a command needs: env config, the settings file,
// the store, and the deduplicating aggregator.
type runtime struct {
	cfg        config.Config
	settings   *config.Settings
	pool       *pgxpool.Pool
	repo       *postgres.Repository
	aggregator *dedupe.Aggregator
	runner     *connectors.Runner
	logger     *slog.Logger
}

// openRuntime connects to the database and loads settings.
func openRuntime(ctx context.Context) (*runtime, error) {
	cfg := config.Load()

	settings, err := config.OpenDefaultSettings()
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	repo := postgres.NewRepository(pool)

	return &runtime{
		cfg:        cfg,
		settings:   settings,
		pool:       pool,
		repo:       repo,
		aggregator: dedupe.NewAggregator(repo, priority.Default()),
		runner:     connectors.NewRunner(repo, logger),
		logger:     logger,
	}, nil
}

func (rt *runtime) Close() {
	rt.pool.Close()
}

// sinceFromDays converts a --days flag into a cutoff; days <= 0 means no
// cutoff (the zero time).
func sinceFromDays(days int) time.Time {
	if days <= 0 {
		return time.Time{}
	}
	return time.Now().UTC().AddDate(0, 0, -days)
}

// groupDigits inserts thousands separators into a string of digits.
func groupDigits(digits string) string {
	var b strings.Builder
	for i, digit := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(digit)
	}
	return b.String()
}

// formatMoney renders a decimal as $1,234.56 (sign preserved).
func formatMoney(amount decimal.Decimal) string {
	text := amount.StringFixed(2)
	negative := strings.HasPrefix(text, "-")
	text = strings.TrimPrefix(text, "-")

	whole, frac, _ := strings.Cut(text, ".")
	out := "$" + groupDigits(whole) + "." + frac
	if negative {
		out = "-" + out
	}
	return out
}

// formatCount renders an integer-valued float with thousands separators.
func formatCount(value float64) string {
	text := decimal.NewFromFloat(value).Round(0).String()
	negative := strings.HasPrefix(text, "-")
	text = strings.TrimPrefix(text, "-")
	out := groupDigits(text)
	if negative {
		out = "-" + out
	}
	return out
}
