// Package httpadapter is the small ops surface: a health check and a
// read-only preview of the weekly summary, useful for checking a user's
// numbers without waiting for report day.
package httpadapter

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/PabloGalante/hydrolog/internal/app/report"
	"github.com/PabloGalante/hydrolog/internal/domain"
)

type Server struct {
	users   domain.UserStore
	records domain.RecordStore
	now     func() time.Time
}

func NewServer(users domain.UserStore, records domain.RecordStore) http.Handler {
	s := &Server{users: users, records: records, now: time.Now}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealthz)

	// /users/{id}/summary → GET: trailing-7-day aggregates
	mux.HandleFunc("/users/", s.handleUserRoutes)

	return chainMiddlewares(mux, withLogging)
}

// ─────────────────────────────────────────────
// DTOs
// ─────────────────────────────────────────────

type summaryResponse struct {
	UserID        string    `json:"user_id"`
	DaysLogged    int       `json:"days_logged"`
	TotalWaterML  float64   `json:"total_water_ml"`
	AvgCaffeineMG float64   `json:"avg_caffeine_mg"`
	GoalPct       float64   `json:"goal_pct"`
	GeneratedAt   time.Time `json:"generated_at"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// ─────────────────────────────────────────────
// Handlers
// ─────────────────────────────────────────────

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// /users/{id}/summary
func (s *Server) handleUserRoutes(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/users/")
	parts := strings.Split(path, "/")

	if len(parts) != 2 || parts[0] == "" || parts[1] != "summary" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}

	s.handleUserSummary(w, r, domain.UserID(parts[0]))
}

func (s *Server) handleUserSummary(w http.ResponseWriter, r *http.Request, id domain.UserID) {
	ctx := r.Context()

	cfg, err := s.users.GetUser(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		internalError(w, err)
		return
	}

	recs, err := s.records.ListRecords(ctx, id)
	if err != nil {
		internalError(w, err)
		return
	}

	now := s.now().In(domain.Location)
	sum, _ := report.Summarize(cfg, recs, now)

	writeJSON(w, http.StatusOK, summaryResponse{
		UserID:        string(cfg.UserID),
		DaysLogged:    sum.DaysLogged,
		TotalWaterML:  sum.TotalWaterML,
		AvgCaffeineMG: sum.AvgCaffeineMG,
		GoalPct:       sum.GoalPct,
		GeneratedAt:   now,
	})
}

// ─────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func methodNotAllowed(w http.ResponseWriter) {
	writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
}

func internalError(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
}
