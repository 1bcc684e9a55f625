package status_test

import (
	"errors"
	"math"
	"testing"

	"github.com/okian/scorecard/internal/domain/model"
	"github.com/okian/scorecard/internal/domain/status"
	. "github.com/smartystreets/goconvey/convey"
)

func TestEvaluateMinimum(t *testing.T) {
	Convey("Given a minimum goal of 10", t, func() {
		cases := []struct {
			actual float64
			want   model.Status
		}{
			{10, model.StatusOnTarget},
			{25, model.StatusOnTarget},
			{8, model.StatusAtRisk},
			{9.99, model.StatusAtRisk},
			{7.99, model.StatusOffTarget},
			{0, model.StatusOffTarget},
		}
		for _, c := range cases {
			got, err := status.Evaluate(c.actual, 10, model.GoalMinimum)
			So(err, ShouldBeNil)
			So(got, ShouldEqual, c.want)
		}
	})

	Convey("Given non-finite input", t, func() {
		_, err := status.Evaluate(math.NaN(), 10, model.GoalMinimum)
		So(errors.Is(err, model.ErrInvalidMetric), ShouldBeTrue)
		_, err = status.Evaluate(5, math.Inf(1), model.GoalMinimum)
		So(errors.Is(err, model.ErrInvalidMetric), ShouldBeTrue)
	})

	Convey("Given a custom tolerance", t, func() {
		e := status.New(status.WithAtRiskRatio(0.5))
		got, err := e.Evaluate(5, 10, model.GoalMinimum)
		So(err, ShouldBeNil)
		So(got, ShouldEqual, model.StatusAtRisk)
		So(status.New(status.WithAtRiskRatio(2)).Ratio(), ShouldEqual, status.DefaultAtRiskRatio)
	})
}

func TestEvaluateRange(t *testing.T) {
	Convey("Given a range goal of 2..5", t, func() {
		e := status.New()
		g := model.Goal{Metric: "engagement_rate", Type: model.GoalRange, Target: 2, Max: 5}

		check := func(actual float64) model.Status {
			st, err := e.EvaluateGoal(actual, g)
			So(err, ShouldBeNil)
			return st
		}

		Convey("Then values inside the band are on-target", func() {
			So(check(2), ShouldEqual, model.StatusOnTarget)
			So(check(3.5), ShouldEqual, model.StatusOnTarget)
			So(check(5), ShouldEqual, model.StatusOnTarget)
		})
		Convey("Then values slightly outside are at-risk", func() {
			So(check(1.7), ShouldEqual, model.StatusAtRisk)
			So(check(6), ShouldEqual, model.StatusAtRisk)
			So(check(6.2), ShouldEqual, model.StatusAtRisk)
		})
		Convey("Then values far outside are off-target", func() {
			So(check(1), ShouldEqual, model.StatusOffTarget)
			So(check(7), ShouldEqual, model.StatusOffTarget)
		})
		Convey("Then an inverted band is rejected", func() {
			_, err := e.EvaluateGoal(3, model.Goal{Type: model.GoalRange, Target: 5, Max: 2})
			So(errors.Is(err, model.ErrInvalidGoal), ShouldBeTrue)
		})
	})

	Convey("Given an unknown goal type", t, func() {
		_, err := status.Evaluate(1, 1, model.GoalType("maximum"))
		So(errors.Is(err, model.ErrInvalidGoal), ShouldBeTrue)
	})
}

func TestEvaluateSubmission(t *testing.T) {
	Convey("Given a submission and partial goals", t, func() {
		sub := &model.Submission{
			Role:  model.RoleRecruiter,
			Email: "r@x.io",
			Metrics: map[string]float64{
				"placements_month": 1,
				"submittals":       12,
				"coffee_chats":     3,
			},
		}
		goals := status.GoalIndex([]model.Goal{
			{Role: model.RoleRecruiter, Metric: "placements_month", Type: model.GoalMinimum, Target: 2},
			{Role: model.RoleRecruiter, Metric: "submittals", Type: model.GoalMinimum, Target: 10},
		})

		results, gaps, err := status.New().EvaluateSubmission(sub, goals)

		Convey("Then goal-backed metrics are evaluated in name order", func() {
			So(err, ShouldBeNil)
			So(len(results), ShouldEqual, 2)
			So(results[0].Metric, ShouldEqual, "placements_month")
			So(results[0].Status, ShouldEqual, model.StatusOffTarget)
			So(results[1].Status, ShouldEqual, model.StatusOnTarget)
		})
		Convey("Then metrics without a goal are reported as gaps", func() {
			So(gaps, ShouldResemble, []string{"coffee_chats"})
		})
	})
}
