package api

import (
	"context"
	"net/http"

	"github.com/okian/scorecard/internal/adapters/scheduler"
	"github.com/okian/scorecard/pkg/logger"
)

// ReminderDependencies defines on-demand reminders.
type ReminderDependencies interface {
	SendReminder(ctx context.Context, kind string) (scheduler.Result, error)
}

// ReminderHandler handles reminder requests.
type ReminderHandler struct {
	deps ReminderDependencies
	log  logger.Logger
}

// NewReminderHandler creates a new reminder handler.
func NewReminderHandler(deps ReminderDependencies, log logger.Logger) *ReminderHandler {
	return &ReminderHandler{deps: deps, log: log}
}

// HandleSendReminder handles POST /api/slack/send-reminder?submission_type=.
// A failed delivery is reported in the body; the request still succeeds.
func (h *ReminderHandler) HandleSendReminder(w http.ResponseWriter, r *http.Request) {
	if !methodAllowed(w, r, http.MethodPost) {
		return
	}
	res, err := h.deps.SendReminder(r.Context(), r.URL.Query().Get("submission_type"))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":          "success",
		"submission_type": res.Kind,
		"delivered":       res.Sent,
		"direct_sent":     res.Direct,
	})
}
