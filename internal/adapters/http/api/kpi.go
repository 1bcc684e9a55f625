package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	service "github.com/okian/scorecard/internal/app"
	"github.com/okian/scorecard/internal/domain/model"
	"github.com/okian/scorecard/pkg/logger"
)

// KPIDependencies defines the submission operations.
type KPIDependencies interface {
	Submit(ctx context.Context, req service.SubmitRequest) (service.SubmitResult, error)
	Latest(ctx context.Context, email, role string) (model.Submission, error)
	History(ctx context.Context, email, role string, weeks int) ([]model.Submission, error)
	Statuses(ctx context.Context, email, role string) (service.StatusReport, error)
}

// KPIHandler handles submission requests.
type KPIHandler struct {
	deps KPIDependencies
	log  logger.Logger
}

// NewKPIHandler creates a new KPI handler.
func NewKPIHandler(deps KPIDependencies, log logger.Logger) *KPIHandler {
	return &KPIHandler{deps: deps, log: log}
}

type submitResponse struct {
	Status string `json:"status"`
	service.SubmitResult
	Message string `json:"message"`
}

// HandleSubmit handles POST /api/kpi/submit.
func (h *KPIHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	if !methodAllowed(w, r, http.MethodPost) {
		return
	}
	var req service.SubmitRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	res, err := h.deps.Submit(r.Context(), req)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, submitResponse{
		Status:       "success",
		SubmitResult: res,
		Message:      fmt.Sprintf("KPIs submitted for the week of %s", res.Week.Label()),
	})
}

// HandleLatest handles GET /api/kpi/latest?email=&role=. A person without
// submissions is reported as not_found with status 200.
func (h *KPIHandler) HandleLatest(w http.ResponseWriter, r *http.Request) {
	if !methodAllowed(w, r, http.MethodGet) {
		return
	}
	q := r.URL.Query()
	sub, err := h.deps.Latest(r.Context(), q.Get("email"), q.Get("role"))
	if errors.Is(err, model.ErrNotFound) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "not_found"})
		return
	}
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "submission": sub})
}

// HandleHistory handles GET /api/kpi/history?email=&role=&weeks=N.
func (h *KPIHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	if !methodAllowed(w, r, http.MethodGet) {
		return
	}
	weeks, err := intParam(r, "weeks", 0)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	q := r.URL.Query()
	subs, err := h.deps.History(r.Context(), q.Get("email"), q.Get("role"), weeks)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	if subs == nil {
		subs = []model.Submission{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "success",
		"count":       len(subs),
		"submissions": subs,
	})
}

// HandleStatus handles GET /api/kpi/status?email=&role=.
func (h *KPIHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if !methodAllowed(w, r, http.MethodGet) {
		return
	}
	q := r.URL.Query()
	report, err := h.deps.Statuses(r.Context(), q.Get("email"), q.Get("role"))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Status string `json:"status"`
		service.StatusReport
	}{Status: "success", StatusReport: report})
}
