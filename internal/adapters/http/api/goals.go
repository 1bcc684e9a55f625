package api

import (
	"context"
	"net/http"

	"github.com/okian/scorecard/internal/domain/model"
	"github.com/okian/scorecard/pkg/logger"
)

// GoalDependencies defines goal management.
type GoalDependencies interface {
	Goals(ctx context.Context, role string) ([]model.Goal, error)
	UpsertGoal(ctx context.Context, g model.Goal) (model.Goal, error)
}

// GoalsHandler handles goal requests.
type GoalsHandler struct {
	deps GoalDependencies
	log  logger.Logger
}

// NewGoalsHandler creates a new goals handler.
func NewGoalsHandler(deps GoalDependencies, log logger.Logger) *GoalsHandler {
	return &GoalsHandler{deps: deps, log: log}
}

// HandleGoals serves GET /api/goals[?role=] and POST /api/goals.
func (h *GoalsHandler) HandleGoals(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		goals, err := h.deps.Goals(r.Context(), r.URL.Query().Get("role"))
		if err != nil {
			writeError(w, r, h.log, err)
			return
		}
		if goals == nil {
			goals = []model.Goal{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "success", "goals": goals})
	case http.MethodPost:
		var g model.Goal
		if err := decodeJSON(w, r, &g); err != nil {
			writeError(w, r, h.log, err)
			return
		}
		saved, err := h.deps.UpsertGoal(r.Context(), g)
		if err != nil {
			writeError(w, r, h.log, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "success", "goal": saved})
	default:
		w.Header().Set("Allow", "GET, POST")
		writeStatus(w, http.StatusMethodNotAllowed, "method_not_allowed", http.StatusText(http.StatusMethodNotAllowed))
	}
}
