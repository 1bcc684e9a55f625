package api

import (
	"context"
	"net/http"

	"github.com/okian/scorecard/internal/domain/model"
	"github.com/okian/scorecard/pkg/logger"
)

// TeamDependencies defines the team-wide read operations.
type TeamDependencies interface {
	Team(ctx context.Context, weekOf string) ([]model.Submission, error)
	Members(ctx context.Context, activeOnly bool) ([]model.Member, error)
}

// TeamHandler handles team requests.
type TeamHandler struct {
	deps TeamDependencies
	log  logger.Logger
}

// NewTeamHandler creates a new team handler.
func NewTeamHandler(deps TeamDependencies, log logger.Logger) *TeamHandler {
	return &TeamHandler{deps: deps, log: log}
}

// HandleTeamKPIs handles GET /api/team/kpis[?week_of=].
func (h *TeamHandler) HandleTeamKPIs(w http.ResponseWriter, r *http.Request) {
	if !methodAllowed(w, r, http.MethodGet) {
		return
	}
	weekOf := r.URL.Query().Get("week_of")
	subs, err := h.deps.Team(r.Context(), weekOf)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	if subs == nil {
		subs = []model.Submission{}
	}
	resp := map[string]any{
		"status":      "success",
		"count":       len(subs),
		"submissions": subs,
	}
	if weekOf != "" {
		if week, err := model.ParseWeek(weekOf); err == nil {
			resp["week_of"] = week
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleMembers handles GET /api/team/members[?active=false].
func (h *TeamHandler) HandleMembers(w http.ResponseWriter, r *http.Request) {
	if !methodAllowed(w, r, http.MethodGet) {
		return
	}
	activeOnly, err := boolParam(r, "active", true)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	members, err := h.deps.Members(r.Context(), activeOnly)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	if members == nil {
		members = []model.Member{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "members": members})
}
