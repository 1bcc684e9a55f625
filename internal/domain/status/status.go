// Package status classifies metric values against their goals.
package status

import (
	"fmt"
	"math"
	"sort"

	"github.com/okian/scorecard/internal/domain/model"
)

// DefaultAtRiskRatio is the share of a minimum goal that still counts as at-risk.
const DefaultAtRiskRatio = 0.8

// Option applies a configuration option to the Evaluator.
type Option func(*Evaluator)

// WithAtRiskRatio sets the at-risk tolerance. Values outside (0,1) are ignored.
func WithAtRiskRatio(r float64) Option {
	return func(e *Evaluator) {
		if r > 0 && r < 1 {
			e.ratio = r
		}
	}
}

// Evaluator is a pure function of (actual, goal); it holds only the tolerance.
type Evaluator struct {
	ratio float64
}

// New creates an Evaluator.
func New(opts ...Option) *Evaluator {
	e := &Evaluator{ratio: DefaultAtRiskRatio}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Ratio returns the configured at-risk tolerance.
func (e *Evaluator) Ratio() float64 { return e.ratio }

// Evaluate classifies actual against target using the default tolerance. For
// range goals target is used as both bounds.
func Evaluate(actual, target float64, t model.GoalType) (model.Status, error) {
	return New().Evaluate(actual, target, t)
}

// Evaluate classifies actual against target. For range goals target is used
// as both bounds.
func (e *Evaluator) Evaluate(actual, target float64, t model.GoalType) (model.Status, error) {
	return e.EvaluateGoal(actual, model.Goal{Type: t, Target: target, Max: target})
}

// EvaluateGoal classifies actual against g.
//
// Minimum: on-target at or above Target, at-risk at or above ratio*Target.
// Range: on-target within [Target, Max]; below the band it is at-risk down to
// ratio*Target, above the band at-risk up to Max/ratio; off-target otherwise.
func (e *Evaluator) EvaluateGoal(actual float64, g model.Goal) (model.Status, error) {
	const op = "status.evaluate"
	if math.IsNaN(actual) || math.IsInf(actual, 0) {
		return "", model.WrapKind(op, model.ErrInvalidMetric, fmt.Errorf("actual %v is not finite", actual))
	}
	if math.IsNaN(g.Target) || math.IsInf(g.Target, 0) || math.IsNaN(g.Max) || math.IsInf(g.Max, 0) {
		return "", model.WrapKind(op, model.ErrInvalidMetric, fmt.Errorf("goal for %q is not finite", g.Metric))
	}

	switch g.Type {
	case model.GoalMinimum, "":
		return e.minimum(actual, g.Target), nil
	case model.GoalRange:
		upper := g.Max
		if upper < g.Target {
			return "", model.WrapKind(op, model.ErrInvalidGoal, fmt.Errorf("range max %v below min %v", upper, g.Target))
		}
		if actual < g.Target {
			return e.minimum(actual, g.Target), nil
		}
		if actual <= upper {
			return model.StatusOnTarget, nil
		}
		if actual*e.ratio <= upper {
			return model.StatusAtRisk, nil
		}
		return model.StatusOffTarget, nil
	default:
		return "", model.WrapKind(op, model.ErrInvalidGoal, fmt.Errorf("unknown goal type %q", g.Type))
	}
}

func (e *Evaluator) minimum(actual, target float64) model.Status {
	switch {
	case actual >= target:
		return model.StatusOnTarget
	case actual >= e.ratio*target:
		return model.StatusAtRisk
	default:
		return model.StatusOffTarget
	}
}

// EvaluateSubmission evaluates every metric of sub that has a goal. Metrics
// without a goal are returned as gaps; results are ordered by metric name.
func (e *Evaluator) EvaluateSubmission(sub *model.Submission, goals map[string]model.Goal) ([]model.StatusResult, []string, error) {
	results := make([]model.StatusResult, 0, len(sub.Metrics))
	var gaps []string
	for _, name := range sub.MetricNames() {
		actual := sub.Metrics[name]
		g, ok := goals[name]
		if !ok {
			gaps = append(gaps, name)
			continue
		}
		st, err := e.EvaluateGoal(actual, g)
		if err != nil {
			return nil, nil, err
		}
		results = append(results, model.StatusResult{
			Metric: name,
			Actual: actual,
			Goal:   g.Target,
			Max:    g.Max,
			Type:   g.Type,
			Status: st,
		})
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Metric < results[j].Metric })
	return results, gaps, nil
}

// GoalIndex keys goals by metric name.
func GoalIndex(goals []model.Goal) map[string]model.Goal {
	idx := make(map[string]model.Goal, len(goals))
	for _, g := range goals {
		idx[g.Metric] = g
	}
	return idx
}
