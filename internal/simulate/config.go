// Package simulate drives a running scorecard service with a synthetic team
// and checks that the escalations it raises match the scripted misses.
package simulate

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidConfig is returned by Config.Validate.
var ErrInvalidConfig = errors.New("invalid simulation config")

// Config holds configuration for one simulation run.
type Config struct {
	BaseURL       string        // Base URL of the service
	Role          string        // Role every simulated member reports as
	Members       int           // Team size
	Weeks         int           // Consecutive weeks submitted per member
	Start         time.Time     // Any date in the first simulated week
	MissEvery     int           // Every n-th member misses all goals; 0 disables
	CoachingWeeks int           // Expected coaching threshold
	PIPWeeks      int           // Expected performance-improvement threshold
	Workers       int           // Members submitted concurrently
	Timeout       time.Duration // HTTP request timeout
	OutputFile    string        // Optional JSON dump of the submitted plan
	Verbose       bool          // Log every submission
}

// Validate checks the run parameters.
func (c *Config) Validate() error {
	switch {
	case c.BaseURL == "":
		return fmt.Errorf("%w: url is required", ErrInvalidConfig)
	case c.Role == "" || c.Role == "ceo":
		return fmt.Errorf("%w: role must be a named team role, got %q", ErrInvalidConfig, c.Role)
	case c.Members < 1:
		return fmt.Errorf("%w: members must be positive", ErrInvalidConfig)
	case c.Weeks < 1:
		return fmt.Errorf("%w: weeks must be positive", ErrInvalidConfig)
	case c.MissEvery < 0:
		return fmt.Errorf("%w: miss-every must not be negative", ErrInvalidConfig)
	case c.CoachingWeeks < 1 || c.PIPWeeks < c.CoachingWeeks:
		return fmt.Errorf("%w: thresholds %d/%d", ErrInvalidConfig, c.CoachingWeeks, c.PIPWeeks)
	case c.Workers < 1:
		return fmt.Errorf("%w: workers must be positive", ErrInvalidConfig)
	case c.Start.IsZero():
		return fmt.Errorf("%w: start is required", ErrInvalidConfig)
	}
	return nil
}

// Member is one simulated team member.
type Member struct {
	Name   string `json:"name"`
	Email  string `json:"email"`
	Misser bool   `json:"misser"`
}

// Submission is the request body of POST /api/kpi/submit.
type Submission struct {
	Role    string         `json:"role"`
	WeekOf  string         `json:"week_of"`
	Metrics map[string]any `json:"metrics"`
}

// Goal mirrors the goal listing of GET /api/goals.
type Goal struct {
	Role   string  `json:"role"`
	Metric string  `json:"metric_name"`
	Type   string  `json:"goal_type"`
	Value  float64 `json:"goal_value"`
	Max    float64 `json:"goal_max,omitempty"`
}

// Alert mirrors the alert listing of GET /api/alerts.
type Alert struct {
	ID                int64  `json:"id"`
	Email             string `json:"email"`
	Role              string `json:"role"`
	Metric            string `json:"metric_name"`
	Kind              string `json:"alert_type"`
	ConsecutiveMisses int    `json:"consecutive_misses"`
}

// Stats holds run statistics.
type Stats struct {
	Members     int
	Missers     int
	Submitted   int
	Successful  int
	Failed      int
	AlertsFound int
	Mismatches  int
	StartTime   time.Time
	EndTime     time.Time
	Duration    time.Duration
}
