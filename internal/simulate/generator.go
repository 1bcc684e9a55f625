package simulate

import (
	"context"
	"crypto/rand"
	"fmt"
	"math"
	"math/big"
	"time"

	"github.com/google/uuid"

	"github.com/okian/scorecard/pkg/logger"
)

const (
	weekLayout   = "2006-01-02"
	daysPerWeek  = 7
	maxHeadroom  = 3
	emailIDChars = 8
)

// Plan is the full set of submissions for one run.
type Plan struct {
	Members []Member                `json:"members"`
	Weeks   []string                `json:"weeks"`
	Entries map[string][]Submission `json:"entries"` // keyed by member email, in week order
}

// randInt returns a uniform integer in [0, n).
func randInt(n int64) int64 {
	if n <= 0 {
		return 0
	}
	v, err := rand.Int(rand.Reader, big.NewInt(n))
	if err != nil {
		return 0
	}
	return v.Int64()
}

// weekStarts returns n consecutive Mondays starting at the week of start.
func weekStarts(start time.Time, n int) []string {
	offset := (int(start.Weekday()) + 6) % daysPerWeek
	monday := time.Date(start.Year(), start.Month(), start.Day()-offset, 0, 0, 0, 0, time.UTC)
	out := make([]string, n)
	for i := range out {
		out[i] = monday.AddDate(0, 0, i*daysPerWeek).Format(weekLayout)
	}
	return out
}

// buildTeam creates members with unique addresses. Every missEvery-th member,
// counting from the first, is a misser.
func buildTeam(cfg *Config) []Member {
	run := uuid.NewString()[:emailIDChars]
	members := make([]Member, cfg.Members)
	for i := range members {
		members[i] = Member{
			Name:   fmt.Sprintf("Sim %s %02d", run, i+1),
			Email:  fmt.Sprintf("sim-%s-%02d@example.com", run, i+1),
			Misser: cfg.MissEvery > 0 && i%cfg.MissEvery == 0,
		}
	}
	return members
}

// onTarget returns a value that satisfies g.
func onTarget(g Goal) float64 {
	low := math.Ceil(g.Value)
	if g.Type == "range" && g.Max > 0 {
		high := math.Floor(g.Max)
		if high < low {
			return g.Value
		}
		return low + float64(randInt(int64(high-low)+1))
	}
	return low + float64(randInt(maxHeadroom+1))
}

// metricsFor builds one week of metrics. Missers report zero everywhere.
func metricsFor(m Member, goals []Goal) map[string]any {
	out := make(map[string]any, len(goals)+2)
	out["name"] = m.Name
	out["email"] = m.Email
	for _, g := range goals {
		if m.Misser {
			out[g.Metric] = 0
			continue
		}
		out[g.Metric] = onTarget(g)
	}
	return out
}

// generatePlan builds every member's submissions.
func generatePlan(ctx context.Context, cfg *Config, goals []Goal, stats *Stats) *Plan {
	members := buildTeam(cfg)
	weeks := weekStarts(cfg.Start, cfg.Weeks)

	plan := &Plan{Members: members, Weeks: weeks, Entries: make(map[string][]Submission, len(members))}
	for _, m := range members {
		subs := make([]Submission, len(weeks))
		for i, w := range weeks {
			subs[i] = Submission{Role: cfg.Role, WeekOf: w, Metrics: metricsFor(m, goals)}
		}
		plan.Entries[m.Email] = subs
		if m.Misser {
			stats.Missers++
		}
	}
	stats.Members = len(members)

	logger.Get().Info(ctx, "generated plan",
		logger.Int("members", len(members)),
		logger.Int("missers", stats.Missers),
		logger.Int("weeks", len(weeks)),
		logger.String("firstWeek", weeks[0]))
	return plan
}
