package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/okian/scorecard/internal/domain/escalation"
	"github.com/okian/scorecard/internal/domain/model"
	"github.com/okian/scorecard/internal/domain/status"
	"github.com/okian/scorecard/pkg/logger"
	"github.com/okian/scorecard/pkg/metrics"
)

const defaultHistoryLimit = 4

// SubmitRequest is one KPI submission as received from a client.
type SubmitRequest struct {
	Role    string          `json:"role"`
	WeekOf  string          `json:"week_of"`
	Metrics json.RawMessage `json:"metrics"`
}

// AlertChanges lists the alert changes caused by a submission.
type AlertChanges struct {
	Created  []model.Alert `json:"created"`
	Updated  []model.Alert `json:"updated"`
	Resolved []string      `json:"resolved"`
}

// SubmitResult describes a stored submission.
type SubmitResult struct {
	ID       int64                `json:"submission_id"`
	Week     model.Week           `json:"week_of"`
	Statuses []model.StatusResult `json:"statuses"`
	Gaps     []string             `json:"unevaluated_metrics,omitempty"`
	Alerts   AlertChanges         `json:"alerts"`
}

// StatusReport is the evaluation of a person's latest submission.
type StatusReport struct {
	Submission model.Submission     `json:"submission"`
	Statuses   []model.StatusResult `json:"statuses"`
	Gaps       []string             `json:"unevaluated_metrics,omitempty"`
}

// Submit validates and stores one submission, then re-evaluates the
// submitter's escalations. Escalation failures are logged and do not fail
// the submission.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (SubmitResult, error) {
	const op = "service.submit"
	st, err := s.storeOrErr()
	if err != nil {
		return SubmitResult{}, err
	}

	role, err := model.ParseRole(req.Role)
	if err != nil {
		metrics.RecordSubmissionRejected("role")
		return SubmitResult{}, model.Wrap(op, err)
	}
	week, err := s.resolveWeek(req.WeekOf)
	if err != nil {
		metrics.RecordSubmissionRejected("week")
		return SubmitResult{}, model.Wrap(op, err)
	}
	parsed, err := s.validator.Validate(role, req.Metrics)
	if err != nil {
		metrics.RecordSubmissionRejected("metrics")
		return SubmitResult{}, model.Wrap(op, err)
	}

	sub := model.Submission{
		Role:        role,
		PersonName:  parsed.Name,
		Email:       parsed.Email,
		WeekOf:      week,
		Metrics:     parsed.Values,
		SubmittedAt: s.now().UTC(),
	}
	if err := st.Append(ctx, &sub); err != nil {
		return SubmitResult{}, model.Wrap(op, err)
	}
	metrics.RecordSubmission(string(role))
	s.logger.Info(ctx, "submission stored",
		logger.Int64("id", sub.ID),
		logger.String("email", sub.Email),
		logger.String("role", string(role)),
		logger.String("week_of", week.String()),
	)

	res := SubmitResult{ID: sub.ID, Week: week}
	res.Statuses, res.Gaps, err = s.evaluate(ctx, &sub)
	if err != nil {
		s.logger.Warn(ctx, "status evaluation failed", logger.Int64("id", sub.ID), logger.Error(err))
	}

	check, err := s.tracker.CheckSubmission(ctx, &sub)
	if err != nil {
		s.logger.Error(ctx, "escalation check failed",
			logger.String("email", sub.Email),
			logger.String("role", string(role)),
			logger.Error(err))
		return res, nil
	}
	res.Alerts = changes(check)
	return res, nil
}

func changes(r escalation.Result) AlertChanges {
	return AlertChanges{Created: r.Created, Updated: r.Raised, Resolved: r.Resolved}
}

// resolveWeek parses raw or defaults to the current week.
func (s *Service) resolveWeek(raw string) (model.Week, error) {
	if strings.TrimSpace(raw) == "" {
		return model.WeekOf(s.now(), s.loc), nil
	}
	return model.ParseWeek(raw)
}

func (s *Service) evaluate(ctx context.Context, sub *model.Submission) ([]model.StatusResult, []string, error) {
	goals, err := s.store.Goals(ctx, sub.Role)
	if err != nil {
		return nil, nil, err
	}
	return s.evaluator.EvaluateSubmission(sub, status.GoalIndex(goals))
}

func identity(op, email, role string) (string, model.Role, error) {
	email = model.NormalizeEmail(email)
	if email == "" {
		return "", "", model.Invalid(op, "email is required")
	}
	r, err := model.ParseRole(role)
	if err != nil {
		return "", "", model.Wrap(op, err)
	}
	return email, r, nil
}

// Latest returns the most recent submission for email and role.
func (s *Service) Latest(ctx context.Context, email, role string) (model.Submission, error) {
	const op = "service.latest"
	st, err := s.storeOrErr()
	if err != nil {
		return model.Submission{}, err
	}
	email, r, err := identity(op, email, role)
	if err != nil {
		return model.Submission{}, err
	}
	sub, err := st.Latest(ctx, email, r)
	if err != nil {
		return model.Submission{}, model.Wrap(op, err)
	}
	return sub, nil
}

// History returns up to weeks submissions, most recent first. Zero selects
// the default of four.
func (s *Service) History(ctx context.Context, email, role string, weeks int) ([]model.Submission, error) {
	const op = "service.history"
	st, err := s.storeOrErr()
	if err != nil {
		return nil, err
	}
	email, r, err := identity(op, email, role)
	if err != nil {
		return nil, err
	}
	if weeks == 0 {
		weeks = defaultHistoryLimit
	}
	if weeks < 1 || weeks > s.maxHistoryWeeks {
		return nil, model.Invalid(op, fmt.Sprintf("weeks must be between 1 and %d", s.maxHistoryWeeks))
	}
	subs, err := st.History(ctx, email, r, weeks)
	if err != nil {
		return nil, model.Wrap(op, err)
	}
	return subs, nil
}

// Team returns every submission for weekOf, or when weekOf is empty the
// latest submission per person and role within the trailing window.
func (s *Service) Team(ctx context.Context, weekOf string) ([]model.Submission, error) {
	const op = "service.team"
	st, err := s.storeOrErr()
	if err != nil {
		return nil, err
	}
	var subs []model.Submission
	if strings.TrimSpace(weekOf) != "" {
		week, perr := model.ParseWeek(weekOf)
		if perr != nil {
			return nil, model.Wrap(op, perr)
		}
		subs, err = st.AllForWeek(ctx, week)
	} else {
		since := s.now().UTC().AddDate(0, 0, -s.teamWindowDays)
		subs, err = st.RecentAcrossTeam(ctx, since)
	}
	if err != nil {
		return nil, model.Wrap(op, err)
	}
	return subs, nil
}

// Statuses evaluates the latest submission of email and role against the
// current goals.
func (s *Service) Statuses(ctx context.Context, email, role string) (StatusReport, error) {
	const op = "service.statuses"
	sub, err := s.Latest(ctx, email, role)
	if err != nil {
		return StatusReport{}, err
	}
	statuses, gaps, err := s.evaluate(ctx, &sub)
	if err != nil {
		return StatusReport{}, model.Wrap(op, err)
	}
	return StatusReport{Submission: sub, Statuses: statuses, Gaps: gaps}, nil
}
