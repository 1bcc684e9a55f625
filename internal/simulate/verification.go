package simulate

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"

	"github.com/okian/scorecard/pkg/logger"
)

// ErrVerification is returned when the observed alerts differ from the plan.
var ErrVerification = errors.New("alert verification failed")

const (
	kindCoaching = "coaching"
	kindPIP      = "performance-improvement"
)

// expectedAlerts returns the open alert kinds a member should carry per
// metric after weeks consecutive submissions.
func expectedAlerts(cfg *Config, m Member, goals []Goal) map[string][]string {
	out := map[string][]string{}
	if !m.Misser || cfg.Weeks < cfg.CoachingWeeks {
		return out
	}
	for _, g := range goals {
		if g.Value <= 0 {
			continue // zero meets the goal
		}
		kinds := []string{kindCoaching}
		if cfg.Weeks >= cfg.PIPWeeks {
			kinds = append(kinds, kindPIP)
		}
		out[g.Metric] = kinds
	}
	return out
}

// fetchOpenAlerts lists the open alerts of one member and role.
func fetchOpenAlerts(ctx context.Context, c *HTTPClient, email, role string) ([]Alert, error) {
	var resp struct {
		Alerts []Alert `json:"alerts"`
	}
	q := url.Values{"email": {email}, "role": {role}, "state": {"open"}}
	if err := c.getJSON(ctx, "/api/alerts", q, &resp); err != nil {
		return nil, err
	}
	return resp.Alerts, nil
}

// compareAlerts reports every difference between want and the observed
// alerts. Duplicate alerts of one kind are a difference too.
func compareAlerts(m Member, want map[string][]string, got []Alert, streak int) []string {
	seen := map[string][]string{}
	var diffs []string
	for _, a := range got {
		seen[a.Metric] = append(seen[a.Metric], a.Kind)
		if a.ConsecutiveMisses != streak {
			diffs = append(diffs, fmt.Sprintf("%s %s/%s: consecutive_misses %d, want %d",
				m.Email, a.Metric, a.Kind, a.ConsecutiveMisses, streak))
		}
	}

	metrics := map[string]struct{}{}
	for k := range want {
		metrics[k] = struct{}{}
	}
	for k := range seen {
		metrics[k] = struct{}{}
	}
	names := make([]string, 0, len(metrics))
	for k := range metrics {
		names = append(names, k)
	}
	sort.Strings(names)

	for _, metric := range names {
		w, g := append([]string(nil), want[metric]...), append([]string(nil), seen[metric]...)
		sort.Strings(w)
		sort.Strings(g)
		if fmt.Sprint(w) != fmt.Sprint(g) {
			diffs = append(diffs, fmt.Sprintf("%s %s: alerts %v, want %v", m.Email, metric, g, w))
		}
	}
	return diffs
}

// verifyAlerts checks every member's open alerts against the plan.
func verifyAlerts(ctx context.Context, cfg *Config, c *HTTPClient, plan *Plan, goals []Goal, stats *Stats) error {
	log := logger.Get()
	log.Info(ctx, "verifying escalations", logger.Int("members", len(plan.Members)))

	var diffs []string
	for _, m := range plan.Members {
		got, err := fetchOpenAlerts(ctx, c, m.Email, cfg.Role)
		if err != nil {
			return fmt.Errorf("alerts of %s: %w", m.Email, err)
		}
		stats.AlertsFound += len(got)
		diffs = append(diffs, compareAlerts(m, expectedAlerts(cfg, m, goals), got, cfg.Weeks)...)
	}

	stats.Mismatches = len(diffs)
	if len(diffs) == 0 {
		log.Info(ctx, "escalations match the plan", logger.Int("alerts", stats.AlertsFound))
		return nil
	}
	for _, d := range diffs {
		log.Error(ctx, "escalation mismatch", logger.String("detail", d))
	}
	return fmt.Errorf("%w: %d mismatches", ErrVerification, len(diffs))
}
