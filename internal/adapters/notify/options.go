package notify

import (
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/okian/scorecard/pkg/logger"
)

// Option applies a configuration option to the Webhook.
type Option func(*Webhook)

// WithTimeout bounds each delivery attempt.
func WithTimeout(d time.Duration) Option {
	return func(w *Webhook) {
		if d > 0 {
			w.timeout = d
		}
	}
}

// WithMaxAttempts sets the total number of attempts per notification.
func WithMaxAttempts(n int) Option {
	return func(w *Webhook) {
		if n > 0 {
			w.maxAttempts = n
		}
	}
}

// WithRetryInterval sets the first backoff interval between attempts.
func WithRetryInterval(d time.Duration) Option {
	return func(w *Webhook) {
		if d > 0 {
			w.retryInterval = d
		}
	}
}

// WithRatePerSecond limits outgoing posts. Zero or negative disables the
// limit.
func WithRatePerSecond(r float64) Option {
	return func(w *Webhook) {
		if r <= 0 {
			w.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		w.limiter = rate.NewLimiter(rate.Limit(r), 1)
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(w *Webhook) {
		if c != nil {
			w.client = c
		}
	}
}

// WithDefaultChannel sets the destination used when a notification has none.
func WithDefaultChannel(ch string) Option {
	return func(w *Webhook) {
		w.defaultChannel = ch
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(w *Webhook) {
		w.logger = l
	}
}
