package escalation

import (
	"time"

	"github.com/okian/scorecard/internal/domain/message"
	"github.com/okian/scorecard/internal/domain/status"
	"github.com/okian/scorecard/pkg/logger"
)

// Option applies a configuration option to the Tracker.
type Option func(*Tracker)

// WithPolicy sets the escalation thresholds.
func WithPolicy(p Policy) Option {
	return func(t *Tracker) {
		if p.CoachingWeeks > 0 && p.PIPWeeks >= p.CoachingWeeks {
			t.policy = p
		}
	}
}

// WithEvaluator sets the status evaluator.
func WithEvaluator(e *status.Evaluator) Option {
	return func(t *Tracker) {
		if e != nil {
			t.evaluator = e
		}
	}
}

// WithHistoryWeeks bounds how many weeks are loaded per check.
func WithHistoryWeeks(n int) Option {
	return func(t *Tracker) {
		if n > 0 {
			t.historyWeeks = n
		}
	}
}

// WithNotifier sets where alert messages go.
func WithNotifier(n Notifier) Option {
	return func(t *Tracker) {
		t.notifier = n
	}
}

// WithRenderer sets the message renderer.
func WithRenderer(r *message.Renderer) Option {
	return func(t *Tracker) {
		if r != nil {
			t.renderer = r
		}
	}
}

// WithDestination sets the channel alerts are announced to.
func WithDestination(d string) Option {
	return func(t *Tracker) {
		if d != "" {
			t.destination = d
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		if now != nil {
			t.now = now
		}
	}
}

// WithLogger sets a custom logger for the tracker.
func WithLogger(l logger.Logger) Option {
	return func(t *Tracker) {
		if l != nil {
			t.logger = l
		}
	}
}
