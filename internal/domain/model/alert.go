package model

import "time"

// AlertKind distinguishes the two escalation levels.
type AlertKind string

// Alert kinds.
const (
	AlertCoaching               AlertKind = "coaching"
	AlertPerformanceImprovement AlertKind = "performance-improvement"
)

// Resolution reasons.
const (
	ResolvedOnTarget = "on-target"
	ResolvedManual   = "manual"
)

// MissStreak is the number of consecutive most-recent weeks a metric missed.
type MissStreak struct {
	Email             string `json:"email"`
	Role              Role   `json:"role"`
	Metric            string `json:"metric"`
	Count             int    `json:"count"`
	LastEvaluatedWeek Week   `json:"last_evaluated_week"`
	// FirstMissedWeek is the oldest week in the streak; zero when Count is 0.
	FirstMissedWeek   Week   `json:"first_missed_week"`
}

// Alert is an escalation raised for a person and metric. At most one
// unresolved alert exists per (email, role, metric, kind).
type Alert struct {
	ID                int64      `json:"id"`
	PersonName        string     `json:"person_name"`
	Email             string     `json:"email"`
	Role              Role       `json:"role"`
	Metric            string     `json:"metric_name"`
	Kind              AlertKind  `json:"alert_type"`
	ConsecutiveMisses int        `json:"consecutive_misses"`
	LastWeekOf        Week       `json:"last_week_of"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
	Resolved          bool       `json:"resolved"`
	ResolvedAt        *time.Time `json:"resolved_at,omitempty"`
	Resolution        string     `json:"resolution,omitempty"`
}

// AlertFilter narrows alert listings. Empty fields match everything.
type AlertFilter struct {
	Email string
	Role  Role
	State string // "open", "resolved" or "all"
}
