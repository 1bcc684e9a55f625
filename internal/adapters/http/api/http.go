// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"

	"github.com/okian/scorecard/pkg/logger"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	KPIDependencies
	TeamDependencies
	GoalDependencies
	AlertDependencies
	ReminderDependencies
	Pinger
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	kpiHandler      *KPIHandler
	teamHandler     *TeamHandler
	goalsHandler    *GoalsHandler
	alertsHandler   *AlertsHandler
	reminderHandler *ReminderHandler
}

// Option configures a Server.
type Option func(*serverConfig)

type serverConfig struct {
	logger logger.Logger
}

// WithLogger sets the logger used for failed requests.
func WithLogger(l logger.Logger) Option {
	return func(c *serverConfig) {
		c.logger = l
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	cfg := serverConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = logger.Get().Named("api")
	}
	return &Server{
		healthHandler:   NewHealthHandler(deps),
		statsHandler:    NewStatsHandler(statsProvider),
		kpiHandler:      NewKPIHandler(deps, cfg.logger),
		teamHandler:     NewTeamHandler(deps, cfg.logger),
		goalsHandler:    NewGoalsHandler(deps, cfg.logger),
		alertsHandler:   NewAlertsHandler(deps, cfg.logger),
		reminderHandler: NewReminderHandler(deps, cfg.logger),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.Handle("/metrics", s.healthHandler.MetricsHandler())
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	mux.HandleFunc("/api/kpi/submit", MetricsMiddleware(s.kpiHandler.HandleSubmit, "kpi_submit"))
	mux.HandleFunc("/api/kpi/latest", MetricsMiddleware(s.kpiHandler.HandleLatest, "kpi_latest"))
	mux.HandleFunc("/api/kpi/history", MetricsMiddleware(s.kpiHandler.HandleHistory, "kpi_history"))
	mux.HandleFunc("/api/kpi/status", MetricsMiddleware(s.kpiHandler.HandleStatus, "kpi_status"))

	mux.HandleFunc("/api/team/kpis", MetricsMiddleware(s.teamHandler.HandleTeamKPIs, "team_kpis"))
	mux.HandleFunc("/api/team/members", MetricsMiddleware(s.teamHandler.HandleMembers, "team_members"))

	mux.HandleFunc("/api/goals", MetricsMiddleware(s.goalsHandler.HandleGoals, "goals"))

	mux.HandleFunc("/api/alerts", MetricsMiddleware(s.alertsHandler.HandleList, "alerts"))
	mux.HandleFunc("/api/alerts/{id}/resolve", MetricsMiddleware(s.alertsHandler.HandleResolve, "alerts_resolve"))
	mux.HandleFunc("/api/escalations/check", MetricsMiddleware(s.alertsHandler.HandleCheck, "escalations_check"))

	mux.HandleFunc("/api/slack/send-reminder", MetricsMiddleware(s.reminderHandler.HandleSendReminder, "send_reminder"))
}

// Handler returns mux wrapped with the request id middleware.
func Handler(mux *http.ServeMux) http.Handler {
	return RequestID(mux)
}
