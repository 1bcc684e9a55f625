package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/okian/scorecard/internal/domain/model"
)

const submissionColumns = `id, role, person_name, email, week_of, metrics, submitted_at`

const (
	insertSubmissionSQL = `INSERT INTO kpi_submissions (role, person_name, email, week_of, metrics, submitted_at)
		VALUES (?, ?, ?, ?, ?, ?)`

	latestSubmissionSQL = `SELECT ` + submissionColumns + ` FROM kpi_submissions
		WHERE email = ? AND role = ?
		ORDER BY submitted_at DESC, id DESC LIMIT 1`

	historySQL = `SELECT ` + submissionColumns + ` FROM kpi_submissions
		WHERE email = ? AND role = ?
		ORDER BY submitted_at DESC, id DESC LIMIT ?`

	weeklyHistorySQL = `SELECT ` + submissionColumns + ` FROM kpi_submissions
		WHERE email = ? AND role = ? AND week_of IN (
			SELECT DISTINCT week_of FROM kpi_submissions
			WHERE email = ? AND role = ?
			ORDER BY week_of DESC LIMIT ?
		)
		ORDER BY week_of DESC, submitted_at DESC, id DESC`

	allForWeekSQL = `SELECT ` + submissionColumns + ` FROM kpi_submissions
		WHERE week_of = ?
		ORDER BY role, person_name, submitted_at DESC, id DESC`

	recentAcrossTeamSQL = `SELECT ` + submissionColumns + ` FROM (
			SELECT *, ROW_NUMBER() OVER (
				PARTITION BY email, role ORDER BY submitted_at DESC, id DESC
			) AS rn
			FROM kpi_submissions
			WHERE submitted_at >= ?
		)
		WHERE rn = 1
		ORDER BY role, person_name`
)

// Append stores s and sets s.ID.
func (s *SQLiteStore) Append(ctx context.Context, sub *model.Submission) error {
	const op = "repository.append"
	if err := sub.Validate(); err != nil {
		return err
	}
	metricsJSON, err := json.Marshal(sub.Metrics)
	if err != nil {
		return model.WrapKind(op, model.ErrInvalidMetric, err)
	}

	start := time.Now()
	defer observeUpdate(start)
	res, err := s.db.ExecContext(ctx, insertSubmissionSQL,
		string(sub.Role), sub.PersonName, sub.Email, sub.WeekOf.String(), string(metricsJSON), formatTS(sub.SubmittedAt))
	if err != nil {
		return s.fail(op, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return s.fail(op, err)
	}
	sub.ID = id
	return nil
}

// Latest returns the most recently submitted row for a person and role.
func (s *SQLiteStore) Latest(ctx context.Context, email string, role model.Role) (model.Submission, error) {
	const op = "repository.latest"
	start := time.Now()
	defer observeQuery(start)

	sub, err := scanSubmission(s.db.QueryRowContext(ctx, latestSubmissionSQL, email, string(role)))
	if isNoRows(err) {
		return model.Submission{}, model.Wrap(op, ErrNotFound)
	}
	if err != nil {
		return model.Submission{}, s.fail(op, err)
	}
	return sub, nil
}

// History returns up to limit rows, most recently submitted first.
func (s *SQLiteStore) History(ctx context.Context, email string, role model.Role, limit int) ([]model.Submission, error) {
	if limit <= 0 {
		return []model.Submission{}, nil
	}
	return s.querySubmissions(ctx, "repository.history", historySQL, email, string(role), limit)
}

// WeeklyHistory returns every row of the person's most recent weeks distinct
// weeks.
func (s *SQLiteStore) WeeklyHistory(ctx context.Context, email string, role model.Role, weeks int) ([]model.Submission, error) {
	if weeks <= 0 {
		return []model.Submission{}, nil
	}
	return s.querySubmissions(ctx, "repository.weekly_history", weeklyHistorySQL,
		email, string(role), email, string(role), weeks)
}

// AllForWeek returns every row for week.
func (s *SQLiteStore) AllForWeek(ctx context.Context, week model.Week) ([]model.Submission, error) {
	return s.querySubmissions(ctx, "repository.all_for_week", allForWeekSQL, week.String())
}

// RecentAcrossTeam returns the latest row per (email, role) submitted at or
// after since.
func (s *SQLiteStore) RecentAcrossTeam(ctx context.Context, since time.Time) ([]model.Submission, error) {
	return s.querySubmissions(ctx, "repository.recent_across_team", recentAcrossTeamSQL, formatTS(since))
}

func (s *SQLiteStore) querySubmissions(ctx context.Context, op, query string, args ...any) ([]model.Submission, error) {
	start := time.Now()
	defer observeQuery(start)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, s.fail(op, err)
	}
	defer rows.Close()

	out := []model.Submission{}
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, s.fail(op, err)
		}
		out = append(out, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, s.fail(op, err)
	}
	return out, nil
}

func scanSubmission(sc scanner) (model.Submission, error) {
	var (
		sub         model.Submission
		role        string
		week        string
		metricsJSON string
		submittedAt string
	)
	if err := sc.Scan(&sub.ID, &role, &sub.PersonName, &sub.Email, &week, &metricsJSON, &submittedAt); err != nil {
		return model.Submission{}, err
	}
	sub.Role = model.Role(role)

	w, err := model.ParseWeek(week)
	if err != nil {
		return model.Submission{}, fmt.Errorf("submission %d: bad week_of %q", sub.ID, week)
	}
	sub.WeekOf = w
	if sub.SubmittedAt, err = parseTS(submittedAt); err != nil {
		return model.Submission{}, fmt.Errorf("submission %d: %w", sub.ID, err)
	}
	if err := json.Unmarshal([]byte(metricsJSON), &sub.Metrics); err != nil {
		return model.Submission{}, fmt.Errorf("submission %d metrics: %w", sub.ID, err)
	}
	if sub.Metrics == nil {
		sub.Metrics = map[string]float64{}
	}
	return sub, nil
}
