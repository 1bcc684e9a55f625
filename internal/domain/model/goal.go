package model

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// GoalType selects how a metric value is compared with its target.
type GoalType string

// Goal types.
const (
	GoalMinimum GoalType = "minimum"
	GoalRange   GoalType = "range"
)

// ParseGoalType resolves a goal type name.
func ParseGoalType(s string) (GoalType, error) {
	switch GoalType(strings.ToLower(strings.TrimSpace(s))) {
	case "", GoalMinimum:
		return GoalMinimum, nil
	case GoalRange:
		return GoalRange, nil
	default:
		return "", WrapKind("model.parse_goal_type", ErrInvalidGoal, fmt.Errorf("unknown goal type %q", s))
	}
}

// Goal is the configured target for one metric of one role. For range goals
// Target is the lower bound and Max the upper bound.
type Goal struct {
	ID        int64    `json:"id" yaml:"-"`
	Role      Role     `json:"role" yaml:"role"`
	Metric    string   `json:"metric_name" yaml:"metric"`
	Type      GoalType `json:"goal_type" yaml:"type"`
	Target    float64  `json:"goal_value" yaml:"target"`
	Max       float64  `json:"goal_max,omitempty" yaml:"max"`
	Frequency string   `json:"frequency" yaml:"frequency"`
}

// Validate rejects non-finite values and inverted ranges.
func (g *Goal) Validate() error {
	const op = "model.goal.validate"
	if strings.TrimSpace(g.Metric) == "" {
		return WrapKind(op, ErrInvalidGoal, errors.New("metric name is required"))
	}
	if g.Role == "" {
		return WrapKind(op, ErrInvalidGoal, errors.New("role is required"))
	}
	if !finite(g.Target) || !finite(g.Max) {
		return WrapKind(op, ErrInvalidGoal, fmt.Errorf("goal for %q is not a finite number", g.Metric))
	}
	switch g.Type {
	case GoalMinimum:
	case GoalRange:
		if g.Max < g.Target {
			return WrapKind(op, ErrInvalidGoal, fmt.Errorf("range goal for %q has max %v below min %v", g.Metric, g.Max, g.Target))
		}
	default:
		return WrapKind(op, ErrInvalidGoal, fmt.Errorf("unknown goal type %q", g.Type))
	}
	return nil
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// Status is the outcome of comparing a metric value with its goal.
type Status string

// Status values.
const (
	StatusOnTarget  Status = "on-target"
	StatusAtRisk    Status = "at-risk"
	StatusOffTarget Status = "off-target"
)

// Emoji renders a status as the traffic-light marker used in messages.
func (s Status) Emoji() string {
	switch s {
	case StatusOnTarget:
		return "🟢"
	case StatusAtRisk:
		return "🟡"
	case StatusOffTarget:
		return "🔴"
	default:
		return "⚪"
	}
}

// StatusResult is a derived, never persisted, evaluation of one metric.
type StatusResult struct {
	Metric string   `json:"metric"`
	Actual float64  `json:"actual"`
	Goal   float64  `json:"goal"`
	Max    float64  `json:"max,omitempty"`
	Type   GoalType `json:"goal_type"`
	Status Status   `json:"status"`
}
