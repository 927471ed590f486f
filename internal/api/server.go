// Package api serves schedules, goals, income and dashboards as read-only JSON.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/Veraticus/pace/internal/common"
	"github.com/Veraticus/pace/internal/dashboard"
	"github.com/Veraticus/pace/internal/goals"
	"github.com/Veraticus/pace/internal/income"
	"github.com/Veraticus/pace/internal/model"
	"github.com/Veraticus/pace/internal/schedule"
)

// errBadRequest marks malformed path or query parameters.
var errBadRequest = errors.New("bad request")

// Services are the read paths the API exposes.
type Services struct {
	Schedules *schedule.Service
	Goals     *goals.Service
	Income    *income.Service
	Dashboard *dashboard.Service
}

// Server is the HTTP front end.
type Server struct {
	svc    Services
	router *mux.Router
	now    func() time.Time
}

// NewServer builds the router. now supplies the default dashboard cutoff.
func NewServer(svc Services, now func() time.Time) *Server {
	if now == nil {
		now = time.Now
	}
	s := &Server{svc: svc, router: mux.NewRouter(), now: now}

	s.router.Use(logRequests)
	s.router.HandleFunc("/healthz", s.health).Methods(http.MethodGet)

	users := s.router.PathPrefix("/users/{user}").Subrouter()
	users.HandleFunc("/schedules/{year:[0-9]+}", s.getSchedule).Methods(http.MethodGet)
	users.HandleFunc("/schedules/{year:[0-9]+}/preview", s.previewSchedule).Methods(http.MethodGet)
	users.HandleFunc("/goals/{year:[0-9]+}", s.getGoals).Methods(http.MethodGet)
	users.HandleFunc("/tracker/{year:[0-9]+}", s.getTracker).Methods(http.MethodGet)
	users.HandleFunc("/income/{year:[0-9]+}", s.getIncome).Methods(http.MethodGet)
	users.HandleFunc("/dashboard/{year:[0-9]+}", s.getDashboard).Methods(http.MethodGet)

	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "route not found")
	})
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	slog.Info("HTTP server stopped")
	return nil
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) getSchedule(w http.ResponseWriter, r *http.Request) {
	user, year, err := userYear(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	state, err := s.svc.Schedules.Load(r.Context(), user, year)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

type previewResponse struct {
	Totals   model.DayCounts `json:"totals"`
	Weekdays model.Weekdays  `json:"weekdays"`
}

func (s *Server) previewSchedule(w http.ResponseWriter, r *http.Request) {
	user, year, err := userYear(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	weekdays, err := model.ParseWeekdays(r.URL.Query().Get("weekdays"))
	if err != nil {
		s.fail(w, r, fmt.Errorf("%w: %w", errBadRequest, err))
		return
	}

	state, err := s.svc.Schedules.Load(r.Context(), user, year)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	totals := s.svc.Schedules.TotalWithHistory(r.Context(), user, year, weekdays, state.Exceptions)
	writeJSON(w, http.StatusOK, previewResponse{Totals: totals, Weekdays: weekdays})
}

func (s *Server) getGoals(w http.ResponseWriter, r *http.Request) {
	user, year, err := userYear(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	sheet, err := s.svc.Goals.Sheet(r.Context(), user, year)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sheet)
}

func (s *Server) getTracker(w http.ResponseWriter, r *http.Request) {
	user, year, err := userYear(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	rows, err := s.svc.Goals.Tracker(r.Context(), user, year)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if rows == nil {
		rows = []model.TrackerRow{}
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) getIncome(w http.ResponseWriter, r *http.Request) {
	user, year, err := userYear(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	var opts income.Options
	if raw := r.URL.Query().Get("zero"); raw != "" {
		if opts.IncludeZeroValues, err = strconv.ParseBool(raw); err != nil {
			s.fail(w, r, fmt.Errorf("%w: zero=%q", errBadRequest, raw))
			return
		}
	}

	seqs, err := s.svc.Income.Sequences(r.Context(), user, year, opts)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, seqs)
}

func (s *Server) getDashboard(w http.ResponseWriter, r *http.Request) {
	user, year, err := userYear(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	cutoff := model.Day(s.now())
	if raw := r.URL.Query().Get("cutoff"); raw != "" {
		if cutoff, err = model.ParseDate(raw); err != nil {
			s.fail(w, r, fmt.Errorf("%w: %w", errBadRequest, err))
			return
		}
	}

	summary, err := s.svc.Dashboard.Summary(r.Context(), user, year, cutoff)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func userYear(r *http.Request) (string, int, error) {
	vars := mux.Vars(r)
	year, err := strconv.Atoi(vars["year"])
	if err != nil {
		return "", 0, fmt.Errorf("%w: year %q", errBadRequest, vars["year"])
	}
	return vars["user"], year, nil
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		common.LogError(err, "Request failed", common.Fields{"path": r.URL.Path})
		writeError(w, status, "internal error")
		return
	}
	writeError(w, status, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, common.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errBadRequest),
		errors.Is(err, common.ErrInvalidInput),
		errors.Is(err, schedule.ErrInvalidYear),
		errors.Is(err, schedule.ErrEmptyUser),
		errors.Is(err, goals.ErrInvalidYear),
		errors.Is(err, goals.ErrEmptyUser),
		errors.Is(err, income.ErrInvalidYear),
		errors.Is(err, income.ErrEmptyUser),
		errors.Is(err, income.ErrInvalidTransaction):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		common.LogDebug("HTTP request", common.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.status,
			"duration": time.Since(start),
		})
	})
}
