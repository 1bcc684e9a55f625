package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/okian/scorecard/internal/domain/model"
)

const alertColumns = `id, person_name, email, role, metric_name, alert_type, consecutive_misses,
	last_week_of, created_at, updated_at, resolved, resolved_at, resolution`

const (
	openAlertsSQL = `SELECT ` + alertColumns + ` FROM alerts
		WHERE email = ? AND role = ? AND resolved = 0
		ORDER BY metric_name, alert_type`

	lastResolvedAlertsSQL = `SELECT ` + alertColumns + ` FROM alerts
		WHERE id IN (SELECT MAX(id) FROM alerts
			WHERE email = ? AND role = ? AND resolved = 1
			GROUP BY metric_name, alert_type)
		ORDER BY metric_name, alert_type`

	createAlertSQL = `INSERT OR IGNORE INTO alerts
		(person_name, email, role, metric_name, alert_type, consecutive_misses, last_week_of, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	raiseAlertSQL = `UPDATE alerts SET consecutive_misses = ?, last_week_of = ?, updated_at = ?
		WHERE id = ? AND resolved = 0 AND consecutive_misses < ?`

	resolveAlertsSQL = `UPDATE alerts SET resolved = 1, resolved_at = ?, updated_at = ?, resolution = ?
		WHERE email = ? AND role = ? AND metric_name = ? AND resolved = 0`

	resolveAlertSQL = `UPDATE alerts SET resolved = 1, resolved_at = ?, updated_at = ?, resolution = ?
		WHERE id = ? AND resolved = 0`

	alertByIDSQL = `SELECT ` + alertColumns + ` FROM alerts WHERE id = ?`
)

// OpenAlerts returns the unresolved alerts of a person and role.
func (s *SQLiteStore) OpenAlerts(ctx context.Context, email string, role model.Role) ([]model.Alert, error) {
	return s.queryAlerts(ctx, "repository.open_alerts", openAlertsSQL, email, string(role))
}

// LastResolvedAlerts returns the newest resolved alert per metric and kind.
func (s *SQLiteStore) LastResolvedAlerts(ctx context.Context, email string, role model.Role) ([]model.Alert, error) {
	return s.queryAlerts(ctx, "repository.last_resolved_alerts", lastResolvedAlertsSQL, email, string(role))
}

// CreateAlert inserts a unless an equivalent open alert exists.
func (s *SQLiteStore) CreateAlert(ctx context.Context, a *model.Alert) (bool, error) {
	const op = "repository.create_alert"
	if a.CreatedAt.IsZero() {
		a.CreatedAt = s.now()
	}
	if a.UpdatedAt.IsZero() {
		a.UpdatedAt = a.CreatedAt
	}
	start := time.Now()
	defer observeUpdate(start)

	res, err := s.db.ExecContext(ctx, createAlertSQL,
		a.PersonName, a.Email, string(a.Role), a.Metric, string(a.Kind), a.ConsecutiveMisses,
		a.LastWeekOf.String(), formatTS(a.CreatedAt), formatTS(a.UpdatedAt))
	if err != nil {
		return false, s.fail(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, s.fail(op, err)
	}
	if n == 0 {
		return false, nil
	}
	if a.ID, err = res.LastInsertId(); err != nil {
		return false, s.fail(op, err)
	}
	return true, nil
}

// RaiseAlert sets a higher miss count on an open alert.
func (s *SQLiteStore) RaiseAlert(ctx context.Context, id int64, count int, week model.Week, at time.Time) error {
	const op = "repository.raise_alert"
	start := time.Now()
	defer observeUpdate(start)

	if _, err := s.db.ExecContext(ctx, raiseAlertSQL, count, week.String(), formatTS(at), id, count); err != nil {
		return s.fail(op, err)
	}
	return nil
}

// ResolveAlerts closes every open alert of a person, role and metric.
func (s *SQLiteStore) ResolveAlerts(ctx context.Context, email string, role model.Role, metric, reason string, at time.Time) (int, error) {
	const op = "repository.resolve_alerts"
	start := time.Now()
	defer observeUpdate(start)

	ts := formatTS(at)
	res, err := s.db.ExecContext(ctx, resolveAlertsSQL, ts, ts, reason, email, string(role), metric)
	if err != nil {
		return 0, s.fail(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, s.fail(op, err)
	}
	return int(n), nil
}

// ResolveAlert closes one open alert and returns it.
func (s *SQLiteStore) ResolveAlert(ctx context.Context, id int64, reason string, at time.Time) (model.Alert, error) {
	const op = "repository.resolve_alert"
	start := time.Now()
	defer observeUpdate(start)

	ts := formatTS(at)
	res, err := s.db.ExecContext(ctx, resolveAlertSQL, ts, ts, reason, id)
	if err != nil {
		return model.Alert{}, s.fail(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return model.Alert{}, s.fail(op, err)
	}
	if n == 0 {
		return model.Alert{}, model.Wrap(op, fmt.Errorf("open alert %d: %w", id, ErrNotFound))
	}

	a, err := scanAlert(s.db.QueryRowContext(ctx, alertByIDSQL, id))
	if err != nil {
		return model.Alert{}, s.fail(op, err)
	}
	return a, nil
}

// ListAlerts returns alerts matching f, newest first.
func (s *SQLiteStore) ListAlerts(ctx context.Context, f model.AlertFilter) ([]model.Alert, error) {
	const op = "repository.list_alerts"
	var (
		where []string
		args  []any
	)
	if f.Email != "" {
		where = append(where, "email = ?")
		args = append(args, f.Email)
	}
	if f.Role != "" {
		where = append(where, "role = ?")
		args = append(args, string(f.Role))
	}
	switch f.State {
	case "", "open":
		where = append(where, "resolved = 0")
	case "resolved":
		where = append(where, "resolved = 1")
	case "all":
	default:
		return nil, model.Invalid(op, fmt.Sprintf("unknown alert state %q", f.State))
	}

	query := `SELECT ` + alertColumns + ` FROM alerts`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at DESC, id DESC`
	return s.queryAlerts(ctx, op, query, args...)
}

func (s *SQLiteStore) queryAlerts(ctx context.Context, op, query string, args ...any) ([]model.Alert, error) {
	start := time.Now()
	defer observeQuery(start)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, s.fail(op, err)
	}
	defer rows.Close()

	out := []model.Alert{}
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, s.fail(op, err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, s.fail(op, err)
	}
	return out, nil
}

func scanAlert(sc scanner) (model.Alert, error) {
	var (
		a                    model.Alert
		role, kind, week     string
		createdAt, updatedAt string
		resolved             int
		resolvedAt           sql.NullString
	)
	if err := sc.Scan(&a.ID, &a.PersonName, &a.Email, &role, &a.Metric, &kind, &a.ConsecutiveMisses,
		&week, &createdAt, &updatedAt, &resolved, &resolvedAt, &a.Resolution); err != nil {
		return model.Alert{}, err
	}
	a.Role = model.Role(role)
	a.Kind = model.AlertKind(kind)
	a.Resolved = resolved != 0

	w, err := model.ParseWeek(week)
	if err != nil {
		return model.Alert{}, fmt.Errorf("alert %d: bad last_week_of %q", a.ID, week)
	}
	a.LastWeekOf = w
	if a.CreatedAt, err = parseTS(createdAt); err != nil {
		return model.Alert{}, err
	}
	if a.UpdatedAt, err = parseTS(updatedAt); err != nil {
		return model.Alert{}, err
	}
	if resolvedAt.Valid {
		t, err := parseTS(resolvedAt.String)
		if err != nil {
			return model.Alert{}, err
		}
		a.ResolvedAt = &t
	}
	return a, nil
}
