package service

import (
	"context"
	"strings"

	"github.com/okian/scorecard/internal/adapters/scheduler"
	"github.com/okian/scorecard/internal/domain/escalation"
	"github.com/okian/scorecard/internal/domain/message"
	"github.com/okian/scorecard/internal/domain/model"
	"github.com/okian/scorecard/pkg/logger"
	"github.com/okian/scorecard/pkg/metrics"
)

// Goals returns the goals of role, or every goal when role is empty.
func (s *Service) Goals(ctx context.Context, role string) ([]model.Goal, error) {
	const op = "service.goals"
	st, err := s.storeOrErr()
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(role) == "" {
		goals, err := st.AllGoals(ctx)
		return goals, model.Wrap(op, err)
	}
	r, err := model.ParseRole(role)
	if err != nil {
		return nil, model.Wrap(op, err)
	}
	goals, err := st.Goals(ctx, r)
	return goals, model.Wrap(op, err)
}

// UpsertGoal normalizes and stores g. It replaces any goal for the same role
// and metric.
func (s *Service) UpsertGoal(ctx context.Context, g model.Goal) (model.Goal, error) {
	const op = "service.upsert_goal"
	st, err := s.storeOrErr()
	if err != nil {
		return model.Goal{}, err
	}
	if g.Role, err = model.ParseRole(string(g.Role)); err != nil {
		return model.Goal{}, model.Wrap(op, err)
	}
	if g.Type, err = model.ParseGoalType(string(g.Type)); err != nil {
		return model.Goal{}, model.Wrap(op, err)
	}
	g.Metric = strings.TrimSpace(g.Metric)
	if err := st.UpsertGoal(ctx, &g); err != nil {
		return model.Goal{}, model.Wrap(op, err)
	}
	s.logger.Info(ctx, "goal updated",
		logger.String("role", string(g.Role)),
		logger.String("metric", g.Metric),
		logger.String("type", string(g.Type)),
		logger.Float64("target", g.Target))
	return g, nil
}

// Members returns the roster.
func (s *Service) Members(ctx context.Context, activeOnly bool) ([]model.Member, error) {
	st, err := s.storeOrErr()
	if err != nil {
		return nil, err
	}
	members, err := st.Members(ctx, activeOnly)
	return members, model.Wrap("service.members", err)
}

// Alerts lists alerts. state is "open" (the default), "resolved" or "all".
func (s *Service) Alerts(ctx context.Context, email, role, state string) ([]model.Alert, error) {
	const op = "service.alerts"
	st, err := s.storeOrErr()
	if err != nil {
		return nil, err
	}
	f := model.AlertFilter{Email: model.NormalizeEmail(email), State: strings.ToLower(strings.TrimSpace(state))}
	if strings.TrimSpace(role) != "" {
		if f.Role, err = model.ParseRole(role); err != nil {
			return nil, model.Wrap(op, err)
		}
	}
	alerts, err := st.ListAlerts(ctx, f)
	return alerts, model.Wrap(op, err)
}

// ResolveAlert closes an open alert by hand.
func (s *Service) ResolveAlert(ctx context.Context, id int64) (model.Alert, error) {
	const op = "service.resolve_alert"
	st, err := s.storeOrErr()
	if err != nil {
		return model.Alert{}, err
	}
	if id <= 0 {
		return model.Alert{}, model.Invalid(op, "alert id must be positive")
	}
	a, err := st.ResolveAlert(ctx, id, model.ResolvedManual, s.now().UTC())
	if err != nil {
		return model.Alert{}, model.Wrap(op, err)
	}
	metrics.RecordAlertResolved(model.ResolvedManual, 1)
	s.logger.Info(ctx, "alert resolved manually",
		logger.Int64("id", id),
		logger.String("email", a.Email),
		logger.String("metric", a.Metric))
	return a, nil
}

// CheckEscalations re-runs the tracker for email and role. Repeated calls on
// unchanged history change nothing.
func (s *Service) CheckEscalations(ctx context.Context, email, role string) (escalation.Result, error) {
	const op = "service.check_escalations"
	if _, err := s.storeOrErr(); err != nil {
		return escalation.Result{}, err
	}
	email, r, err := identity(op, email, role)
	if err != nil {
		return escalation.Result{}, err
	}
	res, err := s.tracker.Check(ctx, email, r)
	if err != nil {
		return escalation.Result{}, model.Wrap(op, err)
	}
	return res, nil
}

// SendReminder sends a reminder now. An empty kind selects the weekly
// kickoff. Delivery failures are reported in the result, never as errors.
func (s *Service) SendReminder(ctx context.Context, kind string) (scheduler.Result, error) {
	const op = "service.send_reminder"
	if _, err := s.storeOrErr(); err != nil {
		return scheduler.Result{}, err
	}
	k, err := message.ParseReminderKind(kind)
	if err != nil {
		return scheduler.Result{}, model.Wrap(op, err)
	}
	res, err := s.scheduler.RunNow(ctx, k)
	if err != nil {
		return res, model.Wrap(op, err)
	}
	s.logger.Info(ctx, "reminder sent on demand",
		logger.String("kind", string(k)),
		logger.Bool("sent", res.Sent),
		logger.Int("direct_sent", res.Direct))
	return res, nil
}
