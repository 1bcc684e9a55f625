package escalation

import (
	"time"

	"github.com/okian/scorecard/internal/domain/model"
)

// Raise bumps an open alert's miss count.
type Raise struct {
	Alert model.Alert
	Count int
	Week  model.Week
}

// Decision is the set of alert changes implied by the current streaks.
type Decision struct {
	Create  []model.Alert
	Raise   []Raise
	Resolve []string // metrics whose open alerts close
}

// Empty reports whether the decision changes nothing.
func (d Decision) Empty() bool {
	return len(d.Create) == 0 && len(d.Raise) == 0 && len(d.Resolve) == 0
}

// Subject identifies whose alerts are being planned.
type Subject struct {
	PersonName string
	Email      string
	Role       model.Role
}

// State is what Plan weighs the streaks against.
type State struct {
	// Latest holds the newest week's statuses.
	Latest map[string]model.Status
	// Submitted holds the statuses of the week just submitted. It may be an
	// older week than Latest, or nil.
	Submitted map[string]model.Status
	Open      []model.Alert
	// Resolved holds the most recently resolved alert per (metric, kind).
	Resolved []model.Alert
}

type alertKey struct {
	metric string
	kind   model.AlertKind
}

// Plan compares streaks with the open and resolved alerts and returns what
// must change. It is pure: applying the same inputs twice yields an empty
// decision the second time.
//
// An on-target status in either the newest or the submitted week resolves
// every open alert for that metric. A streak at or past a threshold creates
// the alert for that level unless one is open, or one was already resolved
// within the same streak; an open alert whose count trails the streak is
// raised. Counts are never lowered.
func Plan(subject Subject, streaks []model.MissStreak, st State, p Policy, now time.Time) Decision {
	var d Decision

	openByKey := make(map[alertKey]model.Alert, len(st.Open))
	openMetrics := make(map[string]bool, len(st.Open))
	for _, a := range st.Open {
		openByKey[alertKey{a.Metric, a.Kind}] = a
		openMetrics[a.Metric] = true
	}
	closedByKey := make(map[alertKey]model.Alert, len(st.Resolved))
	for _, a := range st.Resolved {
		k := alertKey{a.Metric, a.Kind}
		if cur, ok := closedByKey[k]; !ok || cur.LastWeekOf.Before(a.LastWeekOf) {
			closedByKey[k] = a
		}
	}

	levels := []struct {
		kind  model.AlertKind
		weeks int
	}{
		{model.AlertCoaching, p.CoachingWeeks},
		{model.AlertPerformanceImprovement, p.PIPWeeks},
	}

	for _, s := range streaks {
		if st.Latest[s.Metric] == model.StatusOnTarget || st.Submitted[s.Metric] == model.StatusOnTarget {
			if openMetrics[s.Metric] {
				d.Resolve = append(d.Resolve, s.Metric)
			}
			continue
		}
		for _, lvl := range levels {
			if lvl.weeks <= 0 || s.Count < lvl.weeks {
				continue
			}
			key := alertKey{s.Metric, lvl.kind}
			if existing, ok := openByKey[key]; ok {
				if s.Count > existing.ConsecutiveMisses {
					d.Raise = append(d.Raise, Raise{Alert: existing, Count: s.Count, Week: s.LastEvaluatedWeek})
				}
				continue
			}
			if closed, ok := closedByKey[key]; ok && inStreak(s, closed.LastWeekOf) {
				continue
			}
			d.Create = append(d.Create, model.Alert{
				PersonName:        subject.PersonName,
				Email:             subject.Email,
				Role:              subject.Role,
				Metric:            s.Metric,
				Kind:              lvl.kind,
				ConsecutiveMisses: s.Count,
				LastWeekOf:        s.LastEvaluatedWeek,
				CreatedAt:         now,
				UpdatedAt:         now,
			})
		}
	}
	return d
}

// inStreak reports whether week falls between the streak's first missed
// week and its newest week.
func inStreak(s model.MissStreak, week model.Week) bool {
	if s.Count == 0 || s.FirstMissedWeek.IsZero() {
		return false
	}
	return !week.Before(s.FirstMissedWeek) && !s.LastEvaluatedWeek.Before(week)
}
