package scheduler

import (
	"time"

	"github.com/okian/scorecard/internal/domain/message"
	"github.com/okian/scorecard/pkg/logger"
)

// Option applies a configuration option to the Scheduler.
type Option func(*Scheduler)

// WithLocation sets the timezone schedules are evaluated in.
func WithLocation(loc *time.Location) Option {
	return func(s *Scheduler) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithChannel sets the channel reminders are posted to.
func WithChannel(ch string) Option {
	return func(s *Scheduler) {
		if ch != "" {
			s.channel = ch
		}
	}
}

// WithRenderer sets the message renderer.
func WithRenderer(r *message.Renderer) Option {
	return func(s *Scheduler) {
		if r != nil {
			s.renderer = r
		}
	}
}

// WithSchedule overrides the cron expression of kind. "-" disables the job.
func WithSchedule(kind message.ReminderKind, spec string) Option {
	return func(s *Scheduler) {
		if spec != "" {
			s.schedules[kind] = spec
		}
	}
}

// WithDirectReminders toggles the kickoff direct messages.
func WithDirectReminders(enabled bool) Option {
	return func(s *Scheduler) {
		s.direct = enabled
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Scheduler) {
		s.logger = l
	}
}
