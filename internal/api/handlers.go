// Package api exposes the dashboard's JSON endpoints.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jtbaccus/datahub-project/internal/dedupe"
	"github.com/jtbaccus/datahub-project/internal/domain"
	"github.com/jtbaccus/datahub-project/internal/persistence/postgres"
)

// Stats is the read-side store surface the dashboard needs.
type Stats interface {
	CountMeasurements(ctx context.Context) (int64, error)
	CountEntries(ctx context.Context) (int64, error)
	CountWorkouts(ctx context.Context, since time.Time) (int64, error)
	SumMetric(ctx context.Context, metric domain.MetricType, since time.Time) (float64, error)
	CountsByMetricType(ctx context.Context) ([]postgres.MetricTypeCount, error)
	SpendingByCategory(ctx context.Context, start, end time.Time) ([]postgres.CategorySpend, error)
	DailySpending(ctx context.Context, start, end time.Time) ([]postgres.DailySpend, error)
	SpendingTotal(ctx context.Context, start, end time.Time) (decimal.Decimal, error)
	ListEntries(ctx context.Context, start, end time.Time, limit int) ([]domain.FinancialEntry, error)
	RecentMeasurements(ctx context.Context, metric domain.MetricType, since time.Time, limit int) ([]domain.Measurement, error)
	RecentSyncLogs(ctx context.Context, limit int) ([]domain.SyncLog, error)
}

// Rollups is the deduplicated read path.
type Rollups interface {
	DailyTotals(ctx context.Context, metric domain.MetricType, start, end time.Time) ([]dedupe.DailyTotal, error)
	Total(ctx context.Context, metric domain.MetricType, start, end time.Time) (float64, error)
	DailyAverage(ctx context.Context, metric domain.MetricType, start, end time.Time) (float64, error)
}

// RollupCache holds recently computed daily totals. Nil disables caching.
type RollupCache interface {
	GetDailyTotals(ctx context.Context, metric domain.MetricType, start, end time.Time) ([]dedupe.DailyTotal, bool)
	SetDailyTotals(ctx context.Context, metric domain.MetricType, start, end time.Time, totals []dedupe.DailyTotal) error
}

// Handler coordinates HTTP requests with the stores.
type Handler struct {
	stats   Stats
	rollups Rollups
	cache   RollupCache
}

// NewHandler builds a Handler. cache may be nil.
func NewHandler(stats Stats, rollups Rollups, cache RollupCache) *Handler {
	return &Handler{stats: stats, rollups: rollups, cache: cache}
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/stats", h.apiStats)
	mux.HandleFunc("/api/dashboard", h.apiDashboard)
	mux.HandleFunc("/api/fitness", h.apiFitness)
	mux.HandleFunc("/api/finance", h.apiFinance)
	mux.HandleFunc("/healthz", healthz)
}

// healthz reports a simple OK status for health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// StatsResponse is the payload for GET /api/stats.
type StatsResponse struct {
	StepsWeek         float64 `json:"steps_week"`
	MeasurementsTotal int64   `json:"measurements_total"`
	TransactionsTotal int64   `json:"transactions_total"`
}

func (h *Handler) apiStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	ctx := r.Context()
	now := time.Now().UTC()
	weekAgo := now.AddDate(0, 0, -7)

	steps, err := h.rollups.Total(ctx, domain.MetricSteps, weekAgo, now)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	measurements, err := h.stats.CountMeasurements(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	entries, err := h.stats.CountEntries(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, StatsResponse{
		StepsWeek:         steps,
		MeasurementsTotal: measurements,
		TransactionsTotal: entries,
	})
}

// DailyCalories is one day's calorie breakdown.
type DailyCalories struct {
	Date    string  `json:"date"`
	Active  float64 `json:"active"`
	Resting float64 `json:"resting"`
	Total   float64 `json:"total"`
}

// DashboardResponse is the payload for GET /api/dashboard.
type DashboardResponse struct {
	StepsWeek          float64                    `json:"steps_week"`
	WorkoutsWeek       int64                      `json:"workouts_week"`
	SpendingMonth      string                     `json:"spending_month"`
	SpendingLastMonth  string                     `json:"spending_last_month"`
	SpendingChangePct  *float64                   `json:"spending_change_pct"`
	ActiveCaloriesWeek float64                    `json:"active_calories_week"`
	TotalCaloriesWeek  float64                    `json:"total_calories_week"`
	AvgSleepHours      float64                    `json:"avg_sleep_hours"`
	AvgHRV             float64                    `json:"avg_hrv"`
	DataByType         []postgres.MetricTypeCount `json:"data_by_type"`
	DailySteps         []dedupe.DailyTotal        `json:"daily_steps"`
	DailyCalories      []DailyCalories            `json:"daily_calories"`
	DailySleepHours    []dedupe.DailyTotal        `json:"daily_sleep_hours"`
	RecentTransactions []domain.FinancialEntry    `json:"recent_transactions"`
	RecentSyncs        []domain.SyncLog           `json:"recent_syncs"`
}

func (h *Handler) apiDashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	ctx := r.Context()
	now := time.Now().UTC()
	weekAgo := now.AddDate(0, 0, -7)
	monthAgo := now.AddDate(0, 0, -30)
	twoMonthsAgo := now.AddDate(0, 0, -60)
	twoWeeksAgo := now.AddDate(0, 0, -14)

	resp := DashboardResponse{}
	var err error

	if resp.StepsWeek, err = h.rollups.Total(ctx, domain.MetricSteps, weekAgo, now); err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	if resp.WorkoutsWeek, err = h.stats.CountWorkouts(ctx, weekAgo); err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	spendingMonth, err := h.stats.SpendingTotal(ctx, monthAgo, now)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	spendingLastMonth, err := h.stats.SpendingTotal(ctx, twoMonthsAgo, monthAgo)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	resp.SpendingMonth = spendingMonth.Abs().StringFixed(2)
	resp.SpendingLastMonth = spendingLastMonth.Abs().StringFixed(2)
	if !spendingLastMonth.IsZero() {
		change, _ := spendingMonth.Sub(spendingLastMonth).
			Div(spendingLastMonth.Abs()).
			Mul(decimal.NewFromInt(100)).
			Float64()
		resp.SpendingChangePct = &change
	}

	active, err := h.rollups.Total(ctx, domain.MetricActiveCalories, weekAgo, now)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	resting, err := h.rollups.Total(ctx, domain.MetricRestingCalories, weekAgo, now)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	resp.ActiveCaloriesWeek = active
	resp.TotalCaloriesWeek = active + resting

	avgSleepMinutes, err := h.rollups.DailyAverage(ctx, domain.MetricSleepMinutes, weekAgo, now)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	resp.AvgSleepHours = avgSleepMinutes / 60
	if resp.AvgHRV, err = h.rollups.DailyAverage(ctx, domain.MetricHRV, weekAgo, now); err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	if resp.DataByType, err = h.stats.CountsByMetricType(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	if resp.DailySteps, err = h.dailyTotals(ctx, domain.MetricSteps, twoWeeksAgo, now); err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	dailyActive, err := h.dailyTotals(ctx, domain.MetricActiveCalories, twoWeeksAgo, now)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	dailyResting, err := h.dailyTotals(ctx, domain.MetricRestingCalories, twoWeeksAgo, now)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	restingByDate := make(map[string]float64, len(dailyResting))
	for _, d := range dailyResting {
		restingByDate[d.Date] = d.Total
	}
	resp.DailyCalories = make([]DailyCalories, 0, len(dailyActive))
	for _, d := range dailyActive {
		resp.DailyCalories = append(resp.DailyCalories, DailyCalories{
			Date:    d.Date,
			Active:  d.Total,
			Resting: restingByDate[d.Date],
			Total:   d.Total + restingByDate[d.Date],
		})
	}

	dailySleep, err := h.dailyTotals(ctx, domain.MetricSleepMinutes, twoWeeksAgo, now)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	resp.DailySleepHours = make([]dedupe.DailyTotal, 0, len(dailySleep))
	for _, d := range dailySleep {
		resp.DailySleepHours = append(resp.DailySleepHours, dedupe.DailyTotal{Date: d.Date, Total: d.Total / 60})
	}

	if resp.RecentTransactions, err = h.stats.ListEntries(ctx, time.Time{}, now, 10); err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	if resp.RecentSyncs, err = h.stats.RecentSyncLogs(ctx, 10); err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// DailyMetric is one day's deduplicated total for one metric type.
type DailyMetric struct {
	Date       string  `json:"date"`
	MetricType string  `json:"metric_type"`
	Total      float64 `json:"total"`
}

// FitnessResponse is the payload for GET /api/fitness.
type FitnessResponse struct {
	Workouts         []domain.Measurement `json:"workouts"`
	StrengthWorkouts []domain.Measurement `json:"strength_workouts"`
	DailyData        []DailyMetric        `json:"daily_data"`
	TotalVolume      float64              `json:"total_volume"`
}

func (h *Handler) apiFitness(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	ctx := r.Context()
	now := time.Now().UTC()
	monthAgo := now.AddDate(0, 0, -30)

	resp := FitnessResponse{}
	var err error

	if resp.Workouts, err = h.stats.RecentMeasurements(ctx, domain.MetricWorkout, time.Time{}, 50); err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	if resp.StrengthWorkouts, err = h.stats.RecentMeasurements(ctx, domain.MetricStrengthWorkout, time.Time{}, 20); err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	resp.DailyData = make([]DailyMetric, 0)
	for _, metric := range []domain.MetricType{domain.MetricSteps, domain.MetricActiveCalories, domain.MetricHeartRate} {
		totals, err := h.dailyTotals(ctx, metric, monthAgo, now)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "server_error", err.Error())
			return
		}
		for _, d := range totals {
			resp.DailyData = append(resp.DailyData, DailyMetric{
				Date:       d.Date,
				MetricType: string(metric),
				Total:      d.Total,
			})
		}
	}

	if resp.TotalVolume, err = h.stats.SumMetric(ctx, domain.MetricVolume, monthAgo); err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// FinanceResponse is the payload for GET /api/finance.
type FinanceResponse struct {
	SpendingByCategory []postgres.CategorySpend `json:"spending_by_category"`
	RecentTransactions []domain.FinancialEntry  `json:"recent_transactions"`
	DailySpending      []postgres.DailySpend    `json:"daily_spending"`
}

func (h *Handler) apiFinance(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	ctx := r.Context()
	now := time.Now().UTC()
	monthAgo := now.AddDate(0, 0, -30)

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	resp := FinanceResponse{}
	var err error

	if resp.SpendingByCategory, err = h.stats.SpendingByCategory(ctx, monthAgo, now); err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	if resp.RecentTransactions, err = h.stats.ListEntries(ctx, time.Time{}, now, limit); err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	if resp.DailySpending, err = h.stats.DailySpending(ctx, monthAgo, now); err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// dailyTotals consults the rollup cache before computing.
func (h *Handler) dailyTotals(ctx context.Context, metric domain.MetricType, start, end time.Time) ([]dedupe.DailyTotal, error) {
	if h.cache != nil {
		if totals, ok := h.cache.GetDailyTotals(ctx, metric, start, end); ok {
			return totals, nil
		}
	}

	totals, err := h.rollups.DailyTotals(ctx, metric, start, end)
	if err != nil {
		return nil, err
	}

	if h.cache != nil {
		// Best effort; a failed cache write never fails the request.
		_ = h.cache.SetDailyTotals(ctx, metric, start, end, totals)
	}
	return totals, nil
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	payload := map[string]string{
		"type":   code,
		"detail": detail,
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
