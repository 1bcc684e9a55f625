// Package escalation turns consecutive weekly misses into coaching and
// performance-improvement alerts.
package escalation

import (
	"fmt"
	"sort"

	"github.com/okian/scorecard/internal/domain/model"
	"github.com/okian/scorecard/internal/domain/status"
)

// GapPolicy decides what a week with no data does to a running streak.
type GapPolicy string

// Gap policies.
const (
	// GapReset ends the streak at the first missing week.
	GapReset GapPolicy = "reset"
	// GapPause skips missing weeks and keeps counting across them.
	GapPause GapPolicy = "pause"
)

// ParseGapPolicy resolves a policy name.
func ParseGapPolicy(s string) (GapPolicy, error) {
	switch GapPolicy(s) {
	case "", GapReset:
		return GapReset, nil
	case GapPause:
		return GapPause, nil
	default:
		return "", fmt.Errorf("unknown gap policy %q", s)
	}
}

// Policy holds the escalation thresholds.
type Policy struct {
	CoachingWeeks      int
	PIPWeeks           int
	AtRiskCountsAsMiss bool
	Gap                GapPolicy
}

// DefaultPolicy returns the 2-week coaching / 4-week PIP policy.
func DefaultPolicy() Policy {
	return Policy{CoachingWeeks: 2, PIPWeeks: 4, Gap: GapReset}
}

func (p Policy) isMiss(s model.Status) bool {
	return s == model.StatusOffTarget || (p.AtRiskCountsAsMiss && s == model.StatusAtRisk)
}

// LatestPerWeek keeps the most recently submitted row for each week and
// returns them newest week first.
func LatestPerWeek(history []model.Submission) []model.Submission {
	byWeek := make(map[model.Week]model.Submission, len(history))
	for _, s := range history {
		cur, ok := byWeek[s.WeekOf]
		if !ok || s.SubmittedAt.After(cur.SubmittedAt) || (s.SubmittedAt.Equal(cur.SubmittedAt) && s.ID > cur.ID) {
			byWeek[s.WeekOf] = s
		}
	}
	out := make([]model.Submission, 0, len(byWeek))
	for _, s := range byWeek {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[j].WeekOf.Before(out[i].WeekOf) })
	return out
}

// Streaks computes, for every goal, how many of the most recent submitted
// weeks missed it in a row. The walk starts at the newest submitted week and
// stops at the first non-miss. A week absent from history, or a week whose
// submission lacks the metric, is a gap handled by p.Gap.
func Streaks(history []model.Submission, goals map[string]model.Goal, ev *status.Evaluator, p Policy) ([]model.MissStreak, error) {
	weeks := LatestPerWeek(history)
	if len(weeks) == 0 {
		return nil, nil
	}
	if ev == nil {
		ev = status.New()
	}

	names := make([]string, 0, len(goals))
	for name := range goals {
		names = append(names, name)
	}
	sort.Strings(names)

	head := weeks[0]
	out := make([]model.MissStreak, 0, len(names))
	for _, name := range names {
		count, first, err := streak(weeks, name, goals[name], ev, p)
		if err != nil {
			return nil, err
		}
		out = append(out, model.MissStreak{
			Email:             head.Email,
			Role:              head.Role,
			Metric:            name,
			Count:             count,
			LastEvaluatedWeek: head.WeekOf,
			FirstMissedWeek:   first,
		})
	}
	return out, nil
}

func streak(weeks []model.Submission, metric string, goal model.Goal, ev *status.Evaluator, p Policy) (int, model.Week, error) {
	var (
		count int
		first model.Week
	)
	for i, sub := range weeks {
		if i > 0 && weeks[i-1].WeekOf.WeeksSince(sub.WeekOf) > 1 && p.Gap != GapPause {
			break
		}
		v, ok := sub.Metrics[metric]
		if !ok {
			if p.Gap == GapPause {
				continue
			}
			break
		}
		st, err := ev.EvaluateGoal(v, goal)
		if err != nil {
			return 0, model.Week{}, err
		}
		if !p.isMiss(st) {
			break
		}
		count++
		first = sub.WeekOf
	}
	return count, first, nil
}
