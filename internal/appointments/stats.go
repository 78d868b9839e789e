package appointments

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agendei/agendei-server/pkg/logging"
)

// Stats represents per-provider booking metrics for the dashboard.
type Stats struct {
	ProviderID            string  `json:"provider_id"`
	AppointmentsTotal     int64   `json:"appointments_total"`
	AppointmentsConfirmed int64   `json:"appointments_confirmed"`
	AppointmentsCancelled int64   `json:"appointments_cancelled"`
	RevenueTotal          float64 `json:"revenue_total"`
	PeriodStart           string  `json:"period_start"`
	PeriodEnd             string  `json:"period_end"`
}

// statsDB defines the database interface needed by StatsRepository
type statsDB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// StatsRepository queries provider metrics from the database.
type StatsRepository struct {
	db statsDB
}

// NewStatsRepository creates a new stats repository.
func NewStatsRepository(pool *pgxpool.Pool) *StatsRepository {
	if pool == nil {
		panic("appointments: pgx pool required for stats")
	}
	return &StatsRepository{db: pool}
}

// NewStatsRepositoryWithDB allows injecting a mock database for testing.
func NewStatsRepositoryWithDB(db statsDB) *StatsRepository {
	return &StatsRepository{db: db}
}

// GetStats retrieves aggregated metrics for a provider.
// Optional start/end times for filtering. If nil, returns all-time stats.
func (r *StatsRepository) GetStats(ctx context.Context, providerID string, start, end *time.Time) (*Stats, error) {
	stats := &Stats{ProviderID: providerID}

	var timeFilter string
	args := []any{providerID}
	if start != nil && end != nil {
		timeFilter = " AND created_at >= $2 AND created_at < $3"
		args = append(args, *start, *end)
		stats.PeriodStart = start.Format(time.RFC3339)
		stats.PeriodEnd = end.Format(time.RFC3339)
	} else {
		stats.PeriodStart = "all-time"
		stats.PeriodEnd = "now"
	}

	totalQuery := `SELECT COUNT(*) FROM appointments WHERE provider_id = $1` + timeFilter
	if err := r.db.QueryRow(ctx, totalQuery, args...).Scan(&stats.AppointmentsTotal); err != nil {
		return nil, fmt.Errorf("appointments stats: count total: %w", err)
	}

	confirmedQuery := `SELECT COUNT(*) FROM appointments WHERE provider_id = $1 AND status = 'confirmed'` + timeFilter
	if err := r.db.QueryRow(ctx, confirmedQuery, args...).Scan(&stats.AppointmentsConfirmed); err != nil {
		return nil, fmt.Errorf("appointments stats: count confirmed: %w", err)
	}

	cancelledQuery := `SELECT COUNT(*) FROM appointments WHERE provider_id = $1 AND status = 'cancelled'` + timeFilter
	if err := r.db.QueryRow(ctx, cancelledQuery, args...).Scan(&stats.AppointmentsCancelled); err != nil {
		return nil, fmt.Errorf("appointments stats: count cancelled: %w", err)
	}

	revenueQuery := `SELECT COALESCE(SUM(price), 0) FROM appointments WHERE provider_id = $1 AND status = 'confirmed'` + timeFilter
	if err := r.db.QueryRow(ctx, revenueQuery, args...).Scan(&stats.RevenueTotal); err != nil {
		return nil, fmt.Errorf("appointments stats: sum revenue: %w", err)
	}

	return stats, nil
}

// StatsHandler provides HTTP endpoints for provider statistics.
type StatsHandler struct {
	repo   *StatsRepository
	logger *logging.Logger
}

// NewStatsHandler creates a new stats HTTP handler.
func NewStatsHandler(repo *StatsRepository, logger *logging.Logger) *StatsHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &StatsHandler{
		repo:   repo,
		logger: logger,
	}
}

// GetStats returns aggregated metrics for a provider.
// GET /providers/{providerID}/stats
// Query params:
//   - start: RFC3339 timestamp for period start (optional)
//   - end: RFC3339 timestamp for period end (optional)
func (h *StatsHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	providerID := chi.URLParam(r, "providerID")
	if providerID == "" {
		http.Error(w, `{"error": "provider_id required"}`, http.StatusBadRequest)
		return
	}

	var start, end *time.Time
	if s := r.URL.Query().Get("start"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			http.Error(w, `{"error": "invalid start time, use RFC3339 format"}`, http.StatusBadRequest)
			return
		}
		start = &t
	}
	if e := r.URL.Query().Get("end"); e != "" {
		t, err := time.Parse(time.RFC3339, e)
		if err != nil {
			http.Error(w, `{"error": "invalid end time, use RFC3339 format"}`, http.StatusBadRequest)
			return
		}
		end = &t
	}

	// If only one is provided, require both
	if (start == nil) != (end == nil) {
		http.Error(w, `{"error": "both start and end must be provided, or neither"}`, http.StatusBadRequest)
		return
	}

	stats, err := h.repo.GetStats(r.Context(), providerID, start, end)
	if err != nil {
		h.logger.Error("failed to get provider stats", "provider_id", providerID, "error", err)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(stats); err != nil {
		h.logger.Error("failed to encode provider stats", "provider_id", providerID, "error", err)
	}
}
