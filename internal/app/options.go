package service

import (
	"time"

	"github.com/okian/scorecard/internal/adapters/notify"
	"github.com/okian/scorecard/internal/adapters/repository"
	"github.com/okian/scorecard/internal/domain/escalation"
	"github.com/okian/scorecard/internal/domain/message"
	"github.com/okian/scorecard/pkg/logger"
)

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

// WithStore uses st instead of opening the SQLite database. The caller keeps
// ownership of st.
func WithStore(st repository.Store) Option {
	return func(s *Service) {
		s.store = st
	}
}

// WithDBPath sets the SQLite database path.
func WithDBPath(path string) Option {
	return func(s *Service) {
		if path != "" {
			s.dbPath = path
		}
	}
}

// WithSeedFile sets a YAML document of goals and members applied at start.
func WithSeedFile(path string) Option {
	return func(s *Service) {
		s.seedFile = path
	}
}

// WithWebhook enables delivery to url.
func WithWebhook(url string, opts ...notify.Option) Option {
	return func(s *Service) {
		s.webhookURL = url
		s.notifyOpts = opts
	}
}

// WithDispatcher replaces the webhook dispatcher. Delivery counts as
// enabled.
func WithDispatcher(d notify.Dispatcher) Option {
	return func(s *Service) {
		s.dispatcher = d
	}
}

// WithQueueSize sets the notification queue capacity.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithWorkerCount sets the number of delivery workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithDedupeSize sets the notification key cache size.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithPolicy sets the escalation policy.
func WithPolicy(p escalation.Policy) Option {
	return func(s *Service) {
		s.policy = p
	}
}

// WithAtRiskRatio sets the evaluator tolerance.
func WithAtRiskRatio(r float64) Option {
	return func(s *Service) {
		if r > 0 && r < 1 {
			s.atRiskRatio = r
		}
	}
}

// WithHistoryWeeks sets how many weeks the tracker reads.
func WithHistoryWeeks(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.historyWeeks = n
		}
	}
}

// WithMaxHistoryWeeks caps the weeks parameter of History.
func WithMaxHistoryWeeks(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxHistoryWeeks = n
		}
	}
}

// WithTeamWindowDays sets the trailing window of the team view.
func WithTeamWindowDays(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.teamWindowDays = n
		}
	}
}

// WithLocation sets the operating timezone.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithChannels sets the general and leadership destinations.
func WithChannels(general, leadership string) Option {
	return func(s *Service) {
		if general != "" {
			s.generalChannel = general
		}
		if leadership != "" {
			s.leaderChannel = leadership
		}
	}
}

// WithMessageOptions configures the message renderer.
func WithMessageOptions(opts ...message.Option) Option {
	return func(s *Service) {
		s.rendererOpts = append(s.rendererOpts, opts...)
	}
}

// WithReminders enables the reminder schedule and direct member reminders.
func WithReminders(enabled, direct bool) Option {
	return func(s *Service) {
		s.remindersOn = enabled
		s.directOn = direct
	}
}

// WithSchedule overrides the cron expression of one reminder kind.
func WithSchedule(kind message.ReminderKind, spec string) Option {
	return func(s *Service) {
		s.schedules[kind] = spec
	}
}

// WithCEOName sets the name recorded for executive submissions without one.
func WithCEOName(name string) Option {
	return func(s *Service) {
		if name != "" {
			s.ceoName = name
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}
