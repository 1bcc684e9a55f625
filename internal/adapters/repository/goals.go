package repository

import (
	"context"
	"time"

	"github.com/okian/scorecard/internal/domain/model"
)

const goalColumns = `id, role, metric_name, goal_type, goal_value, goal_max, frequency`

const (
	goalsByRoleSQL = `SELECT ` + goalColumns + ` FROM kpi_goals WHERE role = ? ORDER BY metric_name`
	allGoalsSQL    = `SELECT ` + goalColumns + ` FROM kpi_goals ORDER BY role, metric_name`
	upsertGoalSQL  = `INSERT INTO kpi_goals (role, metric_name, goal_type, goal_value, goal_max, frequency)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(role, metric_name) DO UPDATE SET
			goal_type = excluded.goal_type,
			goal_value = excluded.goal_value,
			goal_max = excluded.goal_max,
			frequency = excluded.frequency
		RETURNING id`

	memberColumns    = `id, name, email, role, slack_user_id, active`
	membersSQL       = `SELECT ` + memberColumns + ` FROM team_members ORDER BY role, name`
	activeMembersSQL = `SELECT ` + memberColumns + ` FROM team_members WHERE active = 1 ORDER BY role, name`
	memberSQL        = `SELECT ` + memberColumns + ` FROM team_members WHERE email = ?`
	upsertMemberSQL  = `INSERT INTO team_members (name, email, role, slack_user_id, active)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(email) DO UPDATE SET
			name = excluded.name,
			role = excluded.role,
			slack_user_id = excluded.slack_user_id,
			active = excluded.active
		RETURNING id`
)

// Goals returns the goals of role ordered by metric name.
func (s *SQLiteStore) Goals(ctx context.Context, role model.Role) ([]model.Goal, error) {
	return s.queryGoals(ctx, "repository.goals", goalsByRoleSQL, string(role))
}

// AllGoals returns every goal ordered by role and metric name.
func (s *SQLiteStore) AllGoals(ctx context.Context) ([]model.Goal, error) {
	return s.queryGoals(ctx, "repository.all_goals", allGoalsSQL)
}

// UpsertGoal inserts or replaces the goal for (role, metric).
func (s *SQLiteStore) UpsertGoal(ctx context.Context, g *model.Goal) error {
	const op = "repository.upsert_goal"
	if g.Frequency == "" {
		g.Frequency = "weekly"
	}
	if err := g.Validate(); err != nil {
		return err
	}
	start := time.Now()
	defer observeUpdate(start)

	err := s.db.QueryRowContext(ctx, upsertGoalSQL,
		string(g.Role), g.Metric, string(g.Type), g.Target, g.Max, g.Frequency).Scan(&g.ID)
	if err != nil {
		return s.fail(op, err)
	}
	return nil
}

func (s *SQLiteStore) queryGoals(ctx context.Context, op, query string, args ...any) ([]model.Goal, error) {
	start := time.Now()
	defer observeQuery(start)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, s.fail(op, err)
	}
	defer rows.Close()

	out := []model.Goal{}
	for rows.Next() {
		var (
			g        model.Goal
			role, gt string
		)
		if err := rows.Scan(&g.ID, &role, &g.Metric, &gt, &g.Target, &g.Max, &g.Frequency); err != nil {
			return nil, s.fail(op, err)
		}
		g.Role = model.Role(role)
		g.Type = model.GoalType(gt)
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, s.fail(op, err)
	}
	return out, nil
}

// Members lists the roster, optionally only active members.
func (s *SQLiteStore) Members(ctx context.Context, activeOnly bool) ([]model.Member, error) {
	const op = "repository.members"
	query := membersSQL
	if activeOnly {
		query = activeMembersSQL
	}
	start := time.Now()
	defer observeQuery(start)

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, s.fail(op, err)
	}
	defer rows.Close()

	out := []model.Member{}
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, s.fail(op, err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, s.fail(op, err)
	}
	return out, nil
}

// Member looks up one roster entry by email.
func (s *SQLiteStore) Member(ctx context.Context, email string) (model.Member, error) {
	const op = "repository.member"
	start := time.Now()
	defer observeQuery(start)

	m, err := scanMember(s.db.QueryRowContext(ctx, memberSQL, email))
	if isNoRows(err) {
		return model.Member{}, model.Wrap(op, ErrNotFound)
	}
	if err != nil {
		return model.Member{}, s.fail(op, err)
	}
	return m, nil
}

// UpsertMember inserts or updates the roster entry keyed by email.
func (s *SQLiteStore) UpsertMember(ctx context.Context, m *model.Member) error {
	const op = "repository.upsert_member"
	if m.Email == "" {
		return model.Invalid(op, "member email is required")
	}
	if m.Role == "" {
		return model.Invalid(op, "member role is required")
	}
	start := time.Now()
	defer observeUpdate(start)

	err := s.db.QueryRowContext(ctx, upsertMemberSQL,
		m.Name, m.Email, string(m.Role), m.SlackID, boolInt(m.Active)).Scan(&m.ID)
	if err != nil {
		return s.fail(op, err)
	}
	return nil
}

func scanMember(sc scanner) (model.Member, error) {
	var (
		m      model.Member
		role   string
		active int
	)
	if err := sc.Scan(&m.ID, &m.Name, &m.Email, &role, &m.SlackID, &active); err != nil {
		return model.Member{}, err
	}
	m.Role = model.Role(role)
	m.Active = active != 0
	return m, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
