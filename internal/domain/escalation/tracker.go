package escalation

import (
	"context"
	"fmt"
	"hash/fnv"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/okian/scorecard/internal/domain/message"
	"github.com/okian/scorecard/internal/domain/model"
	"github.com/okian/scorecard/internal/domain/status"
	"github.com/okian/scorecard/pkg/logger"
	"github.com/okian/scorecard/pkg/metrics"
)

const (
	defaultHistoryWeeks = 12
	lockStripes         = 32
)

// Store is the persistence the tracker needs.
type Store interface {
	WeeklyHistory(ctx context.Context, email string, role model.Role, weeks int) ([]model.Submission, error)
	Goals(ctx context.Context, role model.Role) ([]model.Goal, error)
	OpenAlerts(ctx context.Context, email string, role model.Role) ([]model.Alert, error)
	// LastResolvedAlerts returns the most recently resolved alert of each
	// (metric, kind) for a person and role.
	LastResolvedAlerts(ctx context.Context, email string, role model.Role) ([]model.Alert, error)
	// CreateAlert inserts a when no open alert with the same key exists and
	// reports whether it did. On insert a.ID is set.
	CreateAlert(ctx context.Context, a *model.Alert) (bool, error)
	RaiseAlert(ctx context.Context, id int64, count int, week model.Week, at time.Time) error
	ResolveAlerts(ctx context.Context, email string, role model.Role, metric, reason string, at time.Time) (int, error)
}

// Notifier hands a rendered notification to delivery. It reports whether the
// notification was accepted.
type Notifier interface {
	Notify(ctx context.Context, n model.Notification) bool
}

// Result summarizes one evaluation of a person's history.
type Result struct {
	Week     model.Week           `json:"week_of"`
	Statuses []model.StatusResult `json:"statuses"`
	Gaps     []string             `json:"unevaluated_metrics,omitempty"`
	Streaks  []model.MissStreak   `json:"streaks"`
	Created  []model.Alert        `json:"created"`
	Raised   []model.Alert        `json:"updated"`
	Resolved []string             `json:"resolved"`
}

// Tracker evaluates streaks after each submission and maintains alerts.
type Tracker struct {
	store        Store
	evaluator    *status.Evaluator
	policy       Policy
	historyWeeks int
	notifier     Notifier
	renderer     *message.Renderer
	destination  string
	now          func() time.Time
	logger       logger.Logger

	locks [lockStripes]sync.Mutex
}

// NewTracker creates a Tracker over store.
func NewTracker(store Store, opts ...Option) *Tracker {
	t := &Tracker{
		store:        store,
		evaluator:    status.New(),
		policy:       DefaultPolicy(),
		historyWeeks: defaultHistoryWeeks,
		renderer:     message.NewRenderer(),
		destination:  "#leadership",
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.logger == nil {
		t.logger = logger.Get().Named("tracker")
	}
	if t.historyWeeks < t.policy.PIPWeeks {
		t.historyWeeks = t.policy.PIPWeeks
	}
	return t
}

// Policy returns the active escalation policy.
func (t *Tracker) Policy() Policy { return t.policy }

func (t *Tracker) lock(email string, role model.Role) func() {
	h := fnv.New32a()
	_, _ = h.Write([]byte(email + "|" + string(role)))
	m := &t.locks[h.Sum32()%lockStripes]
	m.Lock()
	return m.Unlock
}

// Check re-evaluates email/role and applies the resulting alert changes.
// Running it again on unchanged history changes nothing.
func (t *Tracker) Check(ctx context.Context, email string, role model.Role) (Result, error) {
	return t.check(ctx, email, role, nil)
}

// CheckSubmission is Check run right after sub was stored. Besides the
// newest week, an on-target metric in sub's week resolves that metric's open
// alerts, so resubmitting an older week can close them.
func (t *Tracker) CheckSubmission(ctx context.Context, sub *model.Submission) (Result, error) {
	return t.check(ctx, sub.Email, sub.Role, sub)
}

func (t *Tracker) check(ctx context.Context, email string, role model.Role, sub *model.Submission) (Result, error) {
	const op = "escalation.check"
	unlock := t.lock(email, role)
	defer unlock()

	history, err := t.store.WeeklyHistory(ctx, email, role, t.historyWeeks)
	if err != nil {
		return Result{}, model.Wrap(op, err)
	}
	weeks := LatestPerWeek(history)
	if len(weeks) == 0 {
		return Result{}, nil
	}
	head := weeks[0]

	goals, err := t.store.Goals(ctx, role)
	if err != nil {
		return Result{}, model.Wrap(op, err)
	}
	idx := status.GoalIndex(goals)

	statuses, gaps, err := t.evaluator.EvaluateSubmission(&head, idx)
	if err != nil {
		return Result{}, model.Wrap(op, err)
	}
	latest := make(map[string]model.Status, len(statuses))
	for _, s := range statuses {
		latest[s.Metric] = s.Status
		metrics.RecordStatusEvaluation(string(s.Status))
	}
	for _, g := range gaps {
		metrics.RecordConfigGap(string(role))
		t.logger.Warn(ctx, "metric has no goal configured; not evaluated",
			logger.String("role", string(role)),
			logger.String("metric", g),
			logger.String("email", email),
		)
	}

	var submitted map[string]model.Status
	if sub != nil && sub.WeekOf != head.WeekOf {
		if submitted, err = t.weekStatuses(weeks, sub, idx); err != nil {
			return Result{}, model.Wrap(op, err)
		}
	}

	streaks, err := Streaks(weeks, idx, t.evaluator, t.policy)
	if err != nil {
		return Result{}, model.Wrap(op, err)
	}
	for _, s := range streaks {
		metrics.RecordStreakLength(s.Count)
	}

	open, err := t.store.OpenAlerts(ctx, email, role)
	if err != nil {
		return Result{}, model.Wrap(op, err)
	}

	closed, err := t.store.LastResolvedAlerts(ctx, email, role)
	if err != nil {
		return Result{}, model.Wrap(op, err)
	}

	now := t.now().UTC()
	subject := Subject{PersonName: head.PersonName, Email: head.Email, Role: role}
	decision := Plan(subject, streaks, State{Latest: latest, Submitted: submitted, Open: open, Resolved: closed}, t.policy, now)

	res := Result{Week: head.WeekOf, Statuses: statuses, Gaps: gaps, Streaks: streaks}
	if decision.Empty() {
		return res, nil
	}

	for _, metric := range decision.Resolve {
		n, err := t.store.ResolveAlerts(ctx, email, role, metric, model.ResolvedOnTarget, now)
		if err != nil {
			return res, model.Wrap(op, err)
		}
		if n > 0 {
			metrics.RecordAlertResolved(model.ResolvedOnTarget, n)
			res.Resolved = append(res.Resolved, metric)
			t.logger.Info(ctx, "alerts resolved by on-target week",
				logger.String("email", email),
				logger.String("metric", metric),
				logger.Int("count", n),
			)
		}
	}

	for _, r := range decision.Raise {
		if err := t.store.RaiseAlert(ctx, r.Alert.ID, r.Count, r.Week, now); err != nil {
			return res, model.Wrap(op, err)
		}
		a := r.Alert
		a.ConsecutiveMisses = r.Count
		a.LastWeekOf = r.Week
		a.UpdatedAt = now
		res.Raised = append(res.Raised, a)
	}

	for i := range decision.Create {
		a := decision.Create[i]
		created, err := t.store.CreateAlert(ctx, &a)
		if err != nil {
			return res, model.Wrap(op, err)
		}
		if !created {
			continue
		}
		metrics.RecordAlertRaised(string(a.Kind))
		res.Created = append(res.Created, a)
		t.logger.Info(ctx, "alert raised",
			logger.String("email", email),
			logger.String("metric", a.Metric),
			logger.String("kind", string(a.Kind)),
			logger.Int("weeks", a.ConsecutiveMisses),
		)
	}

	t.announce(ctx, subject, res.Created)
	return res, nil
}

// weekStatuses evaluates the row that currently stands for sub's week. That
// is the latest row in the window, or sub itself when its week is older than
// the window.
func (t *Tracker) weekStatuses(weeks []model.Submission, sub *model.Submission, idx map[string]model.Goal) (map[string]model.Status, error) {
	row := sub
	for i := range weeks {
		if weeks[i].WeekOf == sub.WeekOf {
			row = &weeks[i]
			break
		}
	}
	statuses, _, err := t.evaluator.EvaluateSubmission(row, idx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]model.Status, len(statuses))
	for _, s := range statuses {
		out[s.Metric] = s.Status
	}
	return out, nil
}

// announce sends one leadership message per alert kind among created.
func (t *Tracker) announce(ctx context.Context, subject Subject, created []model.Alert) {
	if t.notifier == nil || len(created) == 0 {
		return
	}
	byKind := make(map[model.AlertKind][]model.Alert)
	for _, a := range created {
		byKind[a.Kind] = append(byKind[a.Kind], a)
	}
	for _, kind := range []model.AlertKind{model.AlertCoaching, model.AlertPerformanceImprovement} {
		alerts := byKind[kind]
		if len(alerts) == 0 {
			continue
		}
		ids := make([]string, len(alerts))
		for i, a := range alerts {
			ids[i] = strconv.FormatInt(a.ID, 10)
		}
		n := model.Notification{
			Key:         fmt.Sprintf("alert:%s:%s", kind, strings.Join(ids, ",")),
			Destination: t.destination,
			Text:        t.renderer.Alert(kind, subject.PersonName, subject.Email, alerts),
		}
		if !t.notifier.Notify(ctx, n) {
			t.logger.Warn(ctx, "alert notification not queued",
				logger.String("email", subject.Email),
				logger.String("kind", string(kind)),
			)
		}
	}
}
