package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/okian/scorecard/internal/domain/escalation"
	"github.com/okian/scorecard/internal/domain/model"
	"github.com/okian/scorecard/pkg/logger"
)

// AlertDependencies defines alert listing and maintenance.
type AlertDependencies interface {
	Alerts(ctx context.Context, email, role, state string) ([]model.Alert, error)
	ResolveAlert(ctx context.Context, id int64) (model.Alert, error)
	CheckEscalations(ctx context.Context, email, role string) (escalation.Result, error)
}

// AlertsHandler handles alert requests.
type AlertsHandler struct {
	deps AlertDependencies
	log  logger.Logger
}

// NewAlertsHandler creates a new alerts handler.
func NewAlertsHandler(deps AlertDependencies, log logger.Logger) *AlertsHandler {
	return &AlertsHandler{deps: deps, log: log}
}

// HandleList handles GET /api/alerts?email=&role=&state=.
func (h *AlertsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	if !methodAllowed(w, r, http.MethodGet) {
		return
	}
	q := r.URL.Query()
	alerts, err := h.deps.Alerts(r.Context(), q.Get("email"), q.Get("role"), q.Get("state"))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	if alerts == nil {
		alerts = []model.Alert{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "count": len(alerts), "alerts": alerts})
}

// HandleResolve handles POST /api/alerts/{id}/resolve.
func (h *AlertsHandler) HandleResolve(w http.ResponseWriter, r *http.Request) {
	const op = "api.resolve_alert"
	if !methodAllowed(w, r, http.MethodPost) {
		return
	}
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, r, h.log, model.WrapKind(op, ErrBadRequest, errors.New("alert id must be an integer")))
		return
	}
	a, err := h.deps.ResolveAlert(r.Context(), id)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "alert": a})
}

// HandleCheck handles POST /api/escalations/check?email=&role=.
func (h *AlertsHandler) HandleCheck(w http.ResponseWriter, r *http.Request) {
	if !methodAllowed(w, r, http.MethodPost) {
		return
	}
	q := r.URL.Query()
	res, err := h.deps.CheckEscalations(r.Context(), q.Get("email"), q.Get("role"))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Status string `json:"status"`
		escalation.Result
	}{Status: "success", Result: res})
}
