// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// Role is a team function with its own KPI set.
type Role string

// Supported roles.
const (
	RoleCEO       Role = "ceo"
	RoleRecruiter Role = "recruiter"
	RoleBDR       Role = "bdr"
	RoleMarketing Role = "marketing"
)

// Roles lists every supported role in display order.
var Roles = []Role{RoleCEO, RoleRecruiter, RoleBDR, RoleMarketing}

// ParseRole resolves a role name or one of its aliases.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ceo", "executive":
		return RoleCEO, nil
	case "recruiter":
		return RoleRecruiter, nil
	case "bdr", "business-development", "business_development":
		return RoleBDR, nil
	case "marketing":
		return RoleMarketing, nil
	case "":
		return "", Invalid("model.parse_role", "role is required")
	default:
		return "", Invalid("model.parse_role", fmt.Sprintf("unknown role %q", s))
	}
}

// NormalizeEmail is the canonical form of an email address used as a
// person's identity.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Submission is one person's metric values for one week.
type Submission struct {
	ID          int64              `json:"id"`
	Role        Role               `json:"role"`
	PersonName  string             `json:"person_name"`
	Email       string             `json:"email"`
	WeekOf      Week               `json:"week_of"`
	Metrics     map[string]float64 `json:"metrics"`
	SubmittedAt time.Time          `json:"submitted_at"`
}

// Validate checks identity fields and that every metric value is finite.
func (s *Submission) Validate() error {
	const op = "model.submission.validate"
	if strings.TrimSpace(s.Email) == "" {
		return Invalid(op, "email is required")
	}
	if s.Role == "" {
		return Invalid(op, "role is required")
	}
	if s.WeekOf.IsZero() {
		return Invalid(op, "week_of is required")
	}
	for name, v := range s.Metrics {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return WrapKind(op, ErrInvalidMetric, fmt.Errorf("metric %q is not a finite number", name))
		}
	}
	return nil
}

// MetricNames returns the submission's metric names sorted.
func (s *Submission) MetricNames() []string {
	names := make([]string, 0, len(s.Metrics))
	for k := range s.Metrics {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Member is a roster entry.
type Member struct {
	ID      int64  `json:"id" yaml:"-"`
	Name    string `json:"name" yaml:"name"`
	Email   string `json:"email" yaml:"email"`
	Role    Role   `json:"role" yaml:"role"`
	SlackID string `json:"slack_user_id,omitempty" yaml:"slack_user_id"`
	Active  bool   `json:"active" yaml:"active"`
}

// Notification is a rendered message bound for a destination. Destinations
// are channel names ("#leadership") or direct recipients ("@U123").
type Notification struct {
	Key         string `json:"key"`
	Destination string `json:"destination"`
	Text        string `json:"text"`
}
