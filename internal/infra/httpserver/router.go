package httpserver

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	appinsights "fanfilter/internal/application/insights"
	appsessions "fanfilter/internal/application/sessions"
	domain "fanfilter/internal/domain/followers"
	dominsights "fanfilter/internal/domain/insights"
	"fanfilter/internal/middleware"
)

type Router struct {
	sessionsSvc *appsessions.Service
	insightsSvc *appinsights.Service
}

func NewRouter(sessionsSvc *appsessions.Service, insightsSvc *appinsights.Service, checkers map[string]middleware.HealthChecker) http.Handler {
	r := &Router{sessionsSvc: sessionsSvc, insightsSvc: insightsSvc}
	mux := chi.NewRouter()

	mux.Get("/health", middleware.HealthHandler(checkers))
	mux.Get("/metrics", middleware.MetricsHandler)

	mux.Route("/v1", func(rt chi.Router) {
		rt.Post("/jobs", r.wrap(r.handleStartJob))
		rt.Get("/jobs/{id}", r.wrap(r.handleSnapshot))
		rt.Get("/jobs/{id}/export", r.wrap(r.handleExport))
		rt.Post("/jobs/{id}/cancel", r.wrap(r.handleCancel))
		rt.Post("/jobs/{id}/digest", r.wrap(r.handleDigest))
		rt.Get("/runs", r.wrap(r.handleRuns))
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if err := h(w, req); err != nil {
			var vErr *domain.ValidationError
			if errors.As(err, &vErr) {
				http.Error(w, vErr.Error(), http.StatusBadRequest)
				return
			}
			if errors.Is(err, appsessions.ErrSessionNotFound) || errors.Is(err, sql.ErrNoRows) {
				http.Error(w, "not found", http.StatusNotFound)
				return
			}
			if errors.Is(err, appsessions.ErrNoRecords) {
				http.Error(w, "no records accumulated", http.StatusConflict)
				return
			}
			if errors.Is(err, dominsights.ErrQuotaExceeded) {
				http.Error(w, "ai quota exceeded", http.StatusTooManyRequests)
				return
			}
			if errors.Is(err, dominsights.ErrDisabled) {
				http.Error(w, "ai digest disabled", http.StatusServiceUnavailable)
				return
			}
			var tErr *domain.StreamTransportError
			if errors.As(err, &tErr) {
				http.Error(w, tErr.Error(), http.StatusBadGateway)
				return
			}
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}
}

// POST /v1/jobs
// Body: {"identifier": "@handle", "count": 200, "prompt": "...", "cursor": "...", "resume": false}
// Count may arrive as a JSON number or string; validation happens before any
// connection attempt.
func (r *Router) handleStartJob(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		Identifier string `json:"identifier"`
		Count      any    `json:"count"`
		Prompt     string `json:"prompt"`
		Cursor     string `json:"cursor"`
		Resume     bool   `json:"resume"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return err
	}

	sess, err := r.sessionsSvc.Start(req.Context(), appsessions.StartCommand{
		Identifier: body.Identifier,
		Count:      rawCount(body.Count),
		Prompt:     body.Prompt,
		Cursor:     body.Cursor,
		Resume:     body.Resume,
	})
	if err != nil {
		return err
	}

	middleware.IncrementRunsStarted()
	go func() {
		<-sess.Done()
		switch sess.State() {
		case domain.StateCompleted:
			middleware.IncrementRunsDone()
		case domain.StateFailed:
			middleware.IncrementRunsFailed()
		case domain.StateCancelled:
			middleware.IncrementRunsCancelled()
		}
	}()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	return json.NewEncoder(w).Encode(map[string]any{
		"id":         sess.ID,
		"identifier": sess.Req.Identifier,
		"count":      sess.Req.Count,
		"status":     sess.State(),
	})
}

// GET /v1/jobs/{id}
func (r *Router) handleSnapshot(w http.ResponseWriter, req *http.Request) error {
	sess, err := r.sessionsSvc.Get(domain.RunID(chi.URLParam(req, "id")))
	if err != nil {
		return err
	}
	snap := sess.Snapshot(r.sessionsSvc.Clock.Now())

	resp := map[string]any{
		"id":            snap.ID,
		"identifier":    snap.Identifier,
		"status":        snap.State,
		"total_fetched": snap.TotalFetched,
		"merged_count":  len(snap.Records),
		"records":       snap.Records,
		"duration_ms":   snap.DurationMS,
	}
	if snap.Cursor != "" {
		resp["cursor"] = snap.Cursor
	}
	if snap.Err != nil {
		resp["error"] = snap.Err.Error()
	}

	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(resp)
}

// GET /v1/jobs/{id}/export
// Works mid-stream as well: a partial snapshot exports as a valid document.
func (r *Router) handleExport(w http.ResponseWriter, req *http.Request) error {
	data, filename, err := r.sessionsSvc.Export(domain.RunID(chi.URLParam(req, "id")))
	if err != nil {
		return err
	}

	middleware.AddRecordsExported(strings.Count(string(data), "\n"))

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	_, err = w.Write(data)
	return err
}

// POST /v1/jobs/{id}/cancel
func (r *Router) handleCancel(w http.ResponseWriter, req *http.Request) error {
	id := domain.RunID(chi.URLParam(req, "id"))
	if err := r.sessionsSvc.Cancel(id); err != nil {
		return err
	}
	sess, err := r.sessionsSvc.Get(id)
	if err != nil {
		return err
	}

	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(map[string]any{
		"id":     id,
		"status": sess.State(),
	})
}

// POST /v1/jobs/{id}/digest
// Summarizes the analysis notes of the records merged so far.
func (r *Router) handleDigest(w http.ResponseWriter, req *http.Request) error {
	sess, err := r.sessionsSvc.Get(domain.RunID(chi.URLParam(req, "id")))
	if err != nil {
		return err
	}

	var notes []string
	for _, rec := range sess.Records() {
		if rec.AIAnalysisNotes != "" {
			notes = append(notes, fmt.Sprintf("@%s: %s", rec.ScreenName, rec.AIAnalysisNotes))
		}
	}
	if len(notes) == 0 {
		return appsessions.ErrNoRecords
	}

	digest, err := r.insightsSvc.Digest(req.Context(), strings.Join(notes, "\n"))
	if err != nil {
		return err
	}

	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(map[string]any{
		"id":     sess.ID,
		"digest": digest,
	})
}

// GET /v1/runs?limit=20
func (r *Router) handleRuns(w http.ResponseWriter, req *http.Request) error {
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))

	list, err := r.sessionsSvc.Latest(req.Context(), limit)
	if err != nil {
		return err
	}

	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(list)
}

// rawCount renders the count field back to its raw textual form so request
// validation owns all interpretation.
func rawCount(v any) string {
	switch c := v.(type) {
	case nil:
		return ""
	case string:
		return c
	case float64:
		if c == float64(int64(c)) {
			return strconv.FormatInt(int64(c), 10)
		}
		return strconv.FormatFloat(c, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", c)
	}
}
