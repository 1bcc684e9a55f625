// Package repository defines the record store interfaces and their SQLite
// implementation.
package repository

import (
	"context"
	"time"

	"github.com/okian/scorecard/internal/domain/model"
)

// SubmissionStore keeps submissions. Rows are never updated or deleted.
type SubmissionStore interface {
	// Append stores s and sets s.ID.
	Append(ctx context.Context, s *model.Submission) error

	// Latest returns the most recently submitted row for a person and role.
	// Returns ErrNotFound if there is none.
	Latest(ctx context.Context, email string, role model.Role) (model.Submission, error)

	// History returns up to limit rows, most recently submitted first.
	History(ctx context.Context, email string, role model.Role, limit int) ([]model.Submission, error)

	// WeeklyHistory returns every row of the person's most recent weeks
	// distinct weeks, newest week first.
	WeeklyHistory(ctx context.Context, email string, role model.Role, weeks int) ([]model.Submission, error)

	// AllForWeek returns every row for week ordered by role and person name.
	AllForWeek(ctx context.Context, week model.Week) ([]model.Submission, error)

	// RecentAcrossTeam returns the latest row per (email, role) among rows
	// submitted at or after since.
	RecentAcrossTeam(ctx context.Context, since time.Time) ([]model.Submission, error)
}

// GoalStore keeps per-role metric goals.
type GoalStore interface {
	Goals(ctx context.Context, role model.Role) ([]model.Goal, error)
	AllGoals(ctx context.Context) ([]model.Goal, error)
	// UpsertGoal inserts or replaces the goal for (role, metric) and sets g.ID.
	UpsertGoal(ctx context.Context, g *model.Goal) error
}

// RosterStore keeps team members.
type RosterStore interface {
	Members(ctx context.Context, activeOnly bool) ([]model.Member, error)
	// Member returns ErrNotFound for an unknown email.
	Member(ctx context.Context, email string) (model.Member, error)
	UpsertMember(ctx context.Context, m *model.Member) error
}

// AlertStore keeps escalation alerts.
type AlertStore interface {
	OpenAlerts(ctx context.Context, email string, role model.Role) ([]model.Alert, error)
	// LastResolvedAlerts returns the most recently resolved alert of each
	// (metric, kind) for a person and role.
	LastResolvedAlerts(ctx context.Context, email string, role model.Role) ([]model.Alert, error)
	// CreateAlert inserts a unless an open alert with the same
	// (email, role, metric, kind) exists. Reports whether it inserted.
	CreateAlert(ctx context.Context, a *model.Alert) (bool, error)
	// RaiseAlert increases an open alert's count. Lower counts are ignored.
	RaiseAlert(ctx context.Context, id int64, count int, week model.Week, at time.Time) error
	ResolveAlerts(ctx context.Context, email string, role model.Role, metric, reason string, at time.Time) (int, error)
	// ResolveAlert closes one open alert. Returns ErrNotFound if no open
	// alert has that id.
	ResolveAlert(ctx context.Context, id int64, reason string, at time.Time) (model.Alert, error)
	ListAlerts(ctx context.Context, f model.AlertFilter) ([]model.Alert, error)
}

// Store aggregates every store and its lifecycle.
type Store interface {
	SubmissionStore
	GoalStore
	RosterStore
	AlertStore

	Ping(ctx context.Context) error
	Close() error
}
