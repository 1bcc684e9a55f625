// Package message renders reminder and escalation texts.
package message

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/okian/scorecard/internal/domain/model"
)

// ReminderKind names one of the scheduled reminder messages.
type ReminderKind string

// Reminder kinds, in weekly order.
const (
	WeeklyKickoff   ReminderKind = "weekly_kickoff"
	MondayDeadline  ReminderKind = "monday_deadline"
	MidweekCheck    ReminderKind = "midweek_check"
	MidweekDeadline ReminderKind = "midweek_deadline"
)

// ReminderKinds lists every reminder kind.
var ReminderKinds = []ReminderKind{WeeklyKickoff, MondayDeadline, MidweekCheck, MidweekDeadline}

// ParseReminderKind resolves a reminder name.
func ParseReminderKind(s string) (ReminderKind, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return WeeklyKickoff, nil
	}
	for _, k := range ReminderKinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", model.Invalid("message.parse_reminder", fmt.Sprintf("unknown submission_type %q", s))
}

// Option applies a configuration option to the Renderer.
type Option func(*Renderer)

// WithDashboardURL sets the link included in reminders.
func WithDashboardURL(u string) Option {
	return func(r *Renderer) {
		if u != "" {
			r.dashboardURL = u
		}
	}
}

// WithTeamName sets the heading used in reminders.
func WithTeamName(name string) Option {
	return func(r *Renderer) {
		if name != "" {
			r.teamName = strings.ToUpper(name)
		}
	}
}

// WithContact sets who follows up on escalations, e.g. "@ops-lead".
func WithContact(contact string) Option {
	return func(r *Renderer) {
		if contact != "" {
			r.contact = contact
		}
	}
}

// WithLocation sets the timezone used to compute the current week.
func WithLocation(loc *time.Location) Option {
	return func(r *Renderer) {
		if loc != nil {
			r.loc = loc
		}
	}
}

// Renderer produces message bodies. It never reads submission data.
type Renderer struct {
	dashboardURL string
	teamName     string
	contact      string
	loc          *time.Location
}

// NewRenderer creates a Renderer.
func NewRenderer(opts ...Option) *Renderer {
	r := &Renderer{
		dashboardURL: "https://your-domain.com/dashboard",
		teamName:     "WEEKLY",
		contact:      "@leadership",
		loc:          time.UTC,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Reminder renders the text for kind as of now.
func (r *Renderer) Reminder(kind ReminderKind, now time.Time) (string, error) {
	var b strings.Builder
	switch kind {
	case WeeklyKickoff:
		fmt.Fprintf(&b, "🚀 *%s SCORECARD CHECK-IN*\n", r.teamName)
		fmt.Fprintf(&b, "Week of %s\n\n", model.WeekOf(now, r.loc).Label())
		b.WriteString("Hey team, time to report your numbers.\n\n")
		fmt.Fprintf(&b, "📋 Submit your metrics here: %s\n\n", r.dashboardURL)
		b.WriteString("⏱️ Deadline: 8:00 AM\n\n")
		b.WriteString("Select your role and enter this week's numbers.\n\n")
		b.WriteString("React with ✅ when submitted.")
	case MondayDeadline:
		fmt.Fprintf(&b, "🚨 *%s SCORECARD - SUBMISSION DEADLINE*\n\n", r.teamName)
		b.WriteString("Scorecards are due now.\n\n")
		fmt.Fprintf(&b, "📊 Submit immediately: %s\n\n", r.dashboardURL)
		b.WriteString("React with ✅ when done.")
	case MidweekCheck:
		b.WriteString("⚡ *MID-WEEK REALITY CHECK*\n\n")
		b.WriteString("We're halfway through the week. Are you on pace to hit your goals?\n\n")
		fmt.Fprintf(&b, "📊 Update your progress: %s\n\n", r.dashboardURL)
		fmt.Fprintf(&b, "%s On track or ahead\n%s Close but need a push\n%s Off track, need help\n\n",
			model.StatusOnTarget.Emoji(), model.StatusAtRisk.Emoji(), model.StatusOffTarget.Emoji())
		b.WriteString("React with 🟢 🟡 or 🔴")
	case MidweekDeadline:
		b.WriteString("📊 *MID-WEEK REALITY CHECK - Submission Deadline*\n\n")
		b.WriteString("Update your KPI progress now.\n\n")
		fmt.Fprintf(&b, "🔗 %s\n\n", r.dashboardURL)
		b.WriteString("🟢 = On pace | 🟡 = Close | 🔴 = Off track\n\n")
		b.WriteString("If red, reply with your recovery plan.")
	default:
		return "", model.Invalid("message.reminder", fmt.Sprintf("unknown reminder %q", kind))
	}
	return b.String(), nil
}

// DirectReminder renders the personal nudge sent to a roster member.
func (r *Renderer) DirectReminder(m model.Member, now time.Time) string {
	return fmt.Sprintf("Hi %s, your %s scorecard for the week of %s is due. Submit here: %s",
		m.Name, m.Role, model.WeekOf(now, r.loc).Label(), r.dashboardURL)
}

// Alert renders the leadership message for a set of same-kind alerts raised
// for one person.
func (r *Renderer) Alert(kind model.AlertKind, personName, email string, alerts []model.Alert) string {
	sorted := append([]model.Alert(nil), alerts...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Metric < sorted[j].Metric })

	var b strings.Builder
	switch kind {
	case model.AlertPerformanceImprovement:
		fmt.Fprintf(&b, "🚨 *PERFORMANCE ALERT* - %s\n\n", personName)
		b.WriteString("We need to talk. Here's what the numbers show:\n\n")
		for _, a := range sorted {
			fmt.Fprintf(&b, "  📉 %s: off goal for %d weeks\n", a.Metric, a.ConsecutiveMisses)
		}
		b.WriteString("\nThis is a Performance Improvement Plan trigger.\n")
	default:
		fmt.Fprintf(&b, "⚠️ *COACHING ALERT* - %s\n\n", personName)
		b.WriteString("Heads up: we're seeing a pattern on these metrics.\n\n")
		for _, a := range sorted {
			fmt.Fprintf(&b, "  • %s: below target %d weeks running\n", a.Metric, a.ConsecutiveMisses)
		}
		b.WriteString("\nThis triggers a 1-on-1 coaching conversation.\n")
	}
	fmt.Fprintf(&b, "%s will reach out to schedule.\n", r.contact)
	fmt.Fprintf(&b, "Contact: %s", email)
	return b.String()
}
