package status_test

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/okian/scorecard/internal/domain/model"
	"github.com/okian/scorecard/internal/domain/status"
)

func rank(s model.Status) int {
	switch s {
	case model.StatusOffTarget:
		return 0
	case model.StatusAtRisk:
		return 1
	default:
		return 2
	}
}

func TestMinimumThresholdProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("actual at or above goal is on-target", prop.ForAll(
		func(goal, extra float64) bool {
			st, err := status.Evaluate(goal+extra, goal, model.GoalMinimum)
			return err == nil && st == model.StatusOnTarget
		},
		gen.Float64Range(1, 1e6),
		gen.Float64Range(0, 1e6),
	))

	properties.Property("actual within 80% of goal is at-risk", prop.ForAll(
		func(goal, frac float64) bool {
			st, err := status.Evaluate(goal*frac, goal, model.GoalMinimum)
			return err == nil && st == model.StatusAtRisk
		},
		gen.Float64Range(1, 1e6),
		gen.Float64Range(0.8, 0.999),
	))

	properties.Property("actual below 80% of goal is off-target", prop.ForAll(
		func(goal, frac float64) bool {
			st, err := status.Evaluate(goal*frac, goal, model.GoalMinimum)
			return err == nil && st == model.StatusOffTarget
		},
		gen.Float64Range(1, 1e6),
		gen.Float64Range(0, 0.79),
	))

	properties.Property("status is monotonic in actual for minimum goals", prop.ForAll(
		func(goal, a, b float64) bool {
			if a > b {
				a, b = b, a
			}
			sa, errA := status.Evaluate(a, goal, model.GoalMinimum)
			sb, errB := status.Evaluate(b, goal, model.GoalMinimum)
			return errA == nil && errB == nil && rank(sa) <= rank(sb)
		},
		gen.Float64Range(0, 1000),
		gen.Float64Range(0, 2000),
		gen.Float64Range(0, 2000),
	))

	properties.TestingRun(t)
}

func TestRangeBandProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)
	e := status.New()

	properties.Property("values inside the band are on-target", prop.ForAll(
		func(lo, width, pos float64) bool {
			g := model.Goal{Type: model.GoalRange, Target: lo, Max: lo + width}
			st, err := e.EvaluateGoal(lo+width*pos, g)
			return err == nil && st == model.StatusOnTarget
		},
		gen.Float64Range(0, 100),
		gen.Float64Range(0, 100),
		gen.Float64Range(0, 1),
	))

	properties.Property("values far above the band are off-target", prop.ForAll(
		func(lo, width float64) bool {
			g := model.Goal{Type: model.GoalRange, Target: lo, Max: lo + width}
			st, err := e.EvaluateGoal((lo+width)*2, g)
			return err == nil && st == model.StatusOffTarget
		},
		gen.Float64Range(1, 100),
		gen.Float64Range(0, 100),
	))

	properties.TestingRun(t)
}
