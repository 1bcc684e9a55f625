package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v5"
	"golang.org/x/time/rate"

	"github.com/okian/scorecard/internal/domain/model"
	"github.com/okian/scorecard/pkg/logger"
	"github.com/okian/scorecard/pkg/metrics"
)

const (
	defaultTimeout       = 5 * time.Second
	defaultMaxAttempts   = 3
	defaultRatePerSecond = 1.0
	defaultRetryInterval = 500 * time.Millisecond
	maxRetryAfter        = 10
)

// message is the Slack-compatible incoming webhook body.
type message struct {
	Channel string `json:"channel,omitempty"`
	Text    string `json:"text"`
	Mrkdwn  bool   `json:"mrkdwn"`
}

// Webhook posts notifications to an incoming webhook URL.
type Webhook struct {
	url            string
	client         *http.Client
	timeout        time.Duration
	maxAttempts    int
	retryInterval  time.Duration
	limiter        *rate.Limiter
	defaultChannel string
	logger         logger.Logger
}

var _ Dispatcher = (*Webhook)(nil)

// NewWebhook creates a webhook dispatcher for rawURL.
func NewWebhook(rawURL string, opts ...Option) (*Webhook, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: webhook url must be an absolute http(s) url", ErrInvalidWebhook)
	}
	w := &Webhook{
		url:           rawURL,
		client:        &http.Client{},
		timeout:       defaultTimeout,
		maxAttempts:   defaultMaxAttempts,
		retryInterval: defaultRetryInterval,
		limiter:       rate.NewLimiter(rate.Limit(defaultRatePerSecond), 1),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.Get().Named("notify")
	}
	return w, nil
}

// Send posts n, retrying transient failures. Failures are logged and
// reported as false.
func (w *Webhook) Send(ctx context.Context, n model.Notification) bool {
	start := time.Now()
	defer func() {
		metrics.RecordNotificationLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	dest := n.Destination
	if dest == "" {
		dest = w.defaultChannel
	}
	body, err := json.Marshal(message{Channel: dest, Text: n.Text, Mrkdwn: true})
	if err != nil {
		w.logger.Error(ctx, "failed to encode notification", logger.String("key", n.Key), logger.Error(err))
		metrics.RecordNotification("failed")
		return false
	}

	attempts := 0
	operation := func() (struct{}, error) {
		attempts++
		if attempts > 1 {
			metrics.RecordNotificationRetry()
		}
		if err := w.limiter.Wait(ctx); err != nil {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, w.post(ctx, body)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = w.retryInterval
	b.MaxInterval = 8 * w.retryInterval

	_, err = backoff.Retry(ctx, operation,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(w.maxAttempts)),
	)
	if err != nil {
		w.logger.Warn(ctx, "notification delivery failed",
			logger.String("destination", dest),
			logger.String("key", n.Key),
			logger.Int("attempts", attempts),
			logger.Error(redact(err)))
		metrics.RecordNotification("failed")
		metrics.RecordErrorByComponent("notify", "delivery")
		return false
	}

	w.logger.Debug(ctx, "notification delivered",
		logger.String("destination", dest),
		logger.String("key", n.Key),
		logger.Int("attempts", attempts))
	metrics.RecordNotification("sent")
	return true
}

// post makes one delivery attempt. Errors it returns wrapped in
// backoff.Permanent are not retried.
func (w *Webhook) post(ctx context.Context, body []byte) error {
	attemptCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return backoff.Permanent(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		return fmt.Errorf("%w: %w", model.ErrDelivery, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests:
		if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && secs > 0 {
			return backoff.RetryAfter(min(secs, maxRetryAfter))
		}
		return fmt.Errorf("%w: webhook returned %d", model.ErrDelivery, resp.StatusCode)
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: webhook returned %d", model.ErrDelivery, resp.StatusCode)
	default:
		return backoff.Permanent(fmt.Errorf("%w: webhook returned %d", model.ErrDelivery, resp.StatusCode))
	}
}

// redact strips the request URL from transport errors. Webhook URLs carry
// credentials.
func redact(err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		return fmt.Errorf("%s request: %w", uerr.Op, uerr.Err)
	}
	return err
}
