// Package httptransport serves the operational surface: liveness, readiness,
// Prometheus metrics, and manual triggers for the background sweeps.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"procura/internal/assignment"
	"procura/internal/delivery"
	dErrors "procura/pkg/domain-errors"
	"procura/pkg/platform/httputil"
	"procura/pkg/platform/middleware/admin"
	"procura/pkg/platform/middleware/metadata"
	"procura/pkg/platform/middleware/requestid"
	"procura/pkg/platform/middleware/requesttime"
	"procura/pkg/requestcontext"
)

//go:generate mockgen -source=router.go -destination=mocks/mocks.go -package=mocks

// Assignments runs the department batch on demand.
type Assignments interface {
	ProcessAllDepartments(ctx context.Context) (assignment.BatchSummary, error)
}

// Deliveries re-sends failed email deliveries on demand.
type Deliveries interface {
	RetryFailed(ctx context.Context, limit int) (delivery.RetryReport, error)
}

// Check reports whether one dependency is reachable.
type Check func(ctx context.Context) error

const (
	checkTimeout      = 2 * time.Second
	defaultRetryLimit = 100
	maxRetryLimit     = 1000
)

type Handler struct {
	checks      map[string]Check
	assignments Assignments
	deliveries  Deliveries
	logger      *slog.Logger
}

func NewHandler(assignments Assignments, deliveries Deliveries, checks map[string]Check, logger *slog.Logger) *Handler {
	return &Handler{
		checks:      checks,
		assignments: assignments,
		deliveries:  deliveries,
		logger:      logger,
	}
}

// NewRouter mounts every operational endpoint. The /ops triggers require
// adminToken; an empty token leaves them unreachable.
func NewRouter(h *Handler, adminToken string) http.Handler {
	r := chi.NewRouter()
	r.Use(requestid.Middleware)
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)

	r.Get("/healthz", h.handleHealth)
	r.Get("/readyz", h.handleReady)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/ops", func(r chi.Router) {
		r.Use(admin.RequireToken(adminToken, h.logger))
		r.Post("/assignments/process", h.handleProcessAssignments)
		r.Post("/deliveries/retry", h.handleRetryDeliveries)
	})
	return r
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type readinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	resp := readinessResponse{Status: "ok", Checks: make(map[string]string, len(h.checks))}
	for name, check := range h.checks {
		ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
		err := check(ctx)
		cancel()
		if err != nil {
			resp.Status = "unavailable"
			resp.Checks[name] = err.Error()
			if h.logger != nil {
				h.logger.WarnContext(r.Context(), "readiness check failed",
					"check", name,
					"request_id", requestcontext.RequestID(r.Context()),
					"error", err,
				)
			}
			continue
		}
		resp.Checks[name] = "ok"
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	httputil.WriteJSON(w, status, resp)
}

type batchResponse struct {
	Processed         int      `json:"processed"`
	AutoAssigned      int      `json:"autoAssigned"`
	NotificationsSent int      `json:"notificationsSent"`
	Errors            int      `json:"errors"`
	Failed            []string `json:"failed,omitempty"`
}

func (h *Handler) handleProcessAssignments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	summary, err := h.assignments.ProcessAllDepartments(ctx)
	if err != nil {
		h.logError(ctx, "assignment batch failed", err)
		httputil.WriteError(w, err)
		return
	}

	resp := batchResponse{
		Processed:         summary.Processed,
		AutoAssigned:      summary.AutoAssigned,
		NotificationsSent: summary.NotificationsSent,
		Errors:            summary.Errors,
	}
	for _, d := range summary.Failed {
		resp.Failed = append(resp.Failed, d.String())
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

type retryResponse struct {
	Attempted int `json:"attempted"`
	Delivered int `json:"delivered"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}

func (h *Handler) handleRetryDeliveries(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	limit := defaultRetryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxRetryLimit {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "limit must be between 1 and 1000"))
			return
		}
		limit = n
	}

	report, err := h.deliveries.RetryFailed(ctx, limit)
	if err != nil {
		h.logError(ctx, "delivery retry failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, retryResponse{
		Attempted: report.Attempted,
		Delivered: report.Delivered,
		Failed:    report.Failed,
		Skipped:   report.Skipped,
	})
}

func (h *Handler) logError(ctx context.Context, msg string, err error) {
	if h.logger == nil {
		return
	}
	h.logger.ErrorContext(ctx, msg,
		"request_id", requestcontext.RequestID(ctx),
		"client_ip", metadata.ClientIP(ctx),
		"error", err,
	)
}
