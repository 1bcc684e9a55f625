// Package config defines service configuration and its loading.
//
// Conventions:
// - Keys are flat and match the koanf struct tags.
// - Durations are integer milliseconds (suffix _ms).
// - Validation failures wrap ErrInvalidConfig.
package config

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	// Embedded zone database so timezone works on minimal images.
	_ "time/tzdata"
)

var metricName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat selects text or json output.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8000".
	Addr string `koanf:"addr"`
	// ShutdownTimeoutMS bounds graceful shutdown.
	ShutdownTimeoutMS int `koanf:"shutdown_timeout_ms"`

	// DBPath is the SQLite database file. ":memory:" keeps data in process.
	DBPath string `koanf:"db_path"`
	// SeedFile is an optional YAML document with goals and roster.
	SeedFile string `koanf:"seed_file"`

	// SlackWebhookURL is the chat relay endpoint. Empty disables delivery.
	SlackWebhookURL        string `koanf:"slack_webhook_url"`
	SlackChannelGeneral    string `koanf:"slack_channel_general"`
	SlackChannelLeadership string `koanf:"slack_channel_leadership"`

	// Timezone is the operating timezone for schedules and the current week.
	Timezone          string `koanf:"timezone"`
	DashboardURL      string `koanf:"dashboard_url"`
	TeamName          string `koanf:"team_name"`
	EscalationContact string `koanf:"escalation_contact"`
	// CEOName is recorded as the person name of ceo submissions, which carry
	// no name field.
	CEOName string `koanf:"ceo_name"`

	RemindersEnabled            bool   `koanf:"reminders_enabled"`
	DirectRemindersEnabled      bool   `koanf:"direct_reminders_enabled"`
	ReminderKickoffCron         string `koanf:"reminder_kickoff_cron"`
	ReminderDeadlineCron        string `koanf:"reminder_deadline_cron"`
	ReminderMidweekCron         string `koanf:"reminder_midweek_cron"`
	ReminderMidweekDeadlineCron string `koanf:"reminder_midweek_deadline_cron"`

	// Escalation policy.
	CoachingWeeks      int     `koanf:"coaching_weeks"`
	PIPWeeks           int     `koanf:"pip_weeks"`
	AtRiskCountsAsMiss bool    `koanf:"at_risk_counts_as_miss"`
	GapPolicy          string  `koanf:"gap_policy"`
	AtRiskRatio        float64 `koanf:"at_risk_ratio"`
	HistoryWeeks       int     `koanf:"history_weeks"`

	// Query bounds.
	MaxHistoryWeeks int `koanf:"max_history_weeks"`
	TeamWindowDays  int `koanf:"team_window_days"`

	// Delivery.
	NotifyTimeoutMS   int     `koanf:"notify_timeout_ms"`
	NotifyMaxAttempts int     `koanf:"notify_max_attempts"`
	NotifyRatePerSec  float64 `koanf:"notify_rate_per_sec"`
	QueueSize         int     `koanf:"queue_size"`
	WorkerCount       int     `koanf:"worker_count"`
	DedupeSize        int     `koanf:"dedupe_size"`

	// Metrics naming. Buckets are comma-separated milliseconds.
	MetricsNamespace        string `koanf:"metrics_namespace"`
	MetricsSubsystem        string `koanf:"metrics_subsystem"`
	MetricsLatencyBucketsMS string `koanf:"metrics_latency_buckets_ms"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:          "info",
		LogFormat:         "text",
		Addr:              ":8000",
		ShutdownTimeoutMS: 30_000,

		DBPath: "scorecard.db",

		SlackChannelGeneral:    "#accountability",
		SlackChannelLeadership: "#leadership",

		Timezone:          "America/Chicago",
		DashboardURL:      "https://your-domain.com/dashboard",
		TeamName:          "Weekly",
		EscalationContact: "@leadership",
		CEOName:           "CEO",

		RemindersEnabled:            true,
		DirectRemindersEnabled:      true,
		ReminderKickoffCron:         "30 7 * * MON",
		ReminderDeadlineCron:        "0 8 * * MON",
		ReminderMidweekCron:         "30 15 * * WED",
		ReminderMidweekDeadlineCron: "0 16 * * WED",

		CoachingWeeks: 2,
		PIPWeeks:      4,
		GapPolicy:     "reset",
		AtRiskRatio:   0.8,
		HistoryWeeks:  12,

		MaxHistoryWeeks: 52,
		TeamWindowDays:  7,

		NotifyTimeoutMS:   5000,
		NotifyMaxAttempts: 3,
		NotifyRatePerSec:  1,
		QueueSize:         1024,
		WorkerCount:       2,
		DedupeSize:        10_000,

		MetricsNamespace:        "scorecard",
		MetricsSubsystem:        "kpi",
		MetricsLatencyBucketsMS: "1,5,10,25,50,100,250,500,1000,2500,5000",
	}
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
	}
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return invalid("addr must not be empty")
	case strings.TrimSpace(c.DBPath) == "":
		return invalid("db_path must not be empty")
	case c.CoachingWeeks < 1:
		return invalid("coaching_weeks must be at least 1, got %d", c.CoachingWeeks)
	case c.PIPWeeks < c.CoachingWeeks:
		return invalid("pip_weeks (%d) must not be below coaching_weeks (%d)", c.PIPWeeks, c.CoachingWeeks)
	case c.HistoryWeeks < c.PIPWeeks:
		return invalid("history_weeks (%d) must cover pip_weeks (%d)", c.HistoryWeeks, c.PIPWeeks)
	case c.GapPolicy != "reset" && c.GapPolicy != "pause":
		return invalid("gap_policy must be reset or pause, got %q", c.GapPolicy)
	case c.AtRiskRatio <= 0 || c.AtRiskRatio >= 1:
		return invalid("at_risk_ratio must be in (0, 1), got %v", c.AtRiskRatio)
	case c.MaxHistoryWeeks < 1:
		return invalid("max_history_weeks must be positive")
	case c.TeamWindowDays < 1:
		return invalid("team_window_days must be positive")
	case c.NotifyTimeoutMS < 1:
		return invalid("notify_timeout_ms must be positive")
	case c.NotifyMaxAttempts < 1:
		return invalid("notify_max_attempts must be positive")
	case c.QueueSize < 1:
		return invalid("queue_size must be positive")
	case c.WorkerCount < 1:
		return invalid("worker_count must be positive")
	case !metricName.MatchString(c.MetricsNamespace):
		return invalid("metrics_namespace %q is not a valid metric name", c.MetricsNamespace)
	case c.MetricsSubsystem != "" && !metricName.MatchString(c.MetricsSubsystem):
		return invalid("metrics_subsystem %q is not a valid metric name", c.MetricsSubsystem)
	}
	if _, err := c.LatencyBuckets(); err != nil {
		return invalid("metrics_latency_buckets_ms: %v", err)
	}
	if _, err := c.Location(); err != nil {
		return invalid("timezone %q: %v", c.Timezone, err)
	}
	return nil
}

// LatencyBuckets parses MetricsLatencyBucketsMS. Buckets must be positive
// and strictly increasing.
func (c *Config) LatencyBuckets() ([]float64, error) {
	parts := strings.Split(c.MetricsLatencyBucketsMS, ",")
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("bucket %q: %w", p, err)
		}
		if v <= 0 || (len(out) > 0 && v <= out[len(out)-1]) {
			return nil, fmt.Errorf("buckets must be positive and increasing at %v", v)
		}
		out = append(out, v)
	}
	return out, nil
}

// Location loads the configured timezone.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

// NotifyTimeout returns the per-attempt webhook timeout.
func (c *Config) NotifyTimeout() time.Duration {
	return time.Duration(c.NotifyTimeoutMS) * time.Millisecond
}

// ShutdownTimeout returns the graceful shutdown bound.
func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutMS) * time.Millisecond
}

// DeliveryEnabled reports whether a webhook is configured.
func (c *Config) DeliveryEnabled() bool {
	return strings.TrimSpace(c.SlackWebhookURL) != ""
}
