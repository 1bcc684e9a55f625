package simulate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/scorecard/pkg/logger"
)

// HTTPClient wraps http.Client with the service base URL.
type HTTPClient struct {
	client  *http.Client
	baseURL string
}

// newHTTPClient creates a client with the given timeout.
func newHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{client: &http.Client{Timeout: timeout}, baseURL: baseURL}
}

// getJSON decodes the response of GET path?query into out.
func (c *HTTPClient) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	return c.do(req, out)
}

// postJSON sends body to path and decodes the response into out.
func (c *HTTPClient) postJSON(ctx context.Context, path string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *HTTPClient) do(req *http.Request, out any) error {
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s %s: status %d: %s", req.Method, req.URL.Path, resp.StatusCode, bytes.TrimSpace(body))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// fetchGoals returns the goals of role.
func fetchGoals(ctx context.Context, c *HTTPClient, role string) ([]Goal, error) {
	var resp struct {
		Goals []Goal `json:"goals"`
	}
	if err := c.getJSON(ctx, "/api/goals", url.Values{"role": {role}}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Goals) == 0 {
		return nil, fmt.Errorf("no goals configured for role %q", role)
	}
	return resp.Goals, nil
}

// submitPlan posts every member's weeks in order. Members run concurrently,
// bounded by cfg.Workers.
func submitPlan(ctx context.Context, cfg *Config, c *HTTPClient, plan *Plan, stats *Stats) error {
	log := logger.Get()
	log.Info(ctx, "submitting plan", logger.Int("members", len(plan.Members)), logger.Int("workers", cfg.Workers))

	var submitted, successful, failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for _, m := range plan.Members {
		subs := plan.Entries[m.Email]
		g.Go(func() error {
			for _, sub := range subs {
				if err := gctx.Err(); err != nil {
					return err
				}
				submitted.Add(1)
				if err := c.postJSON(gctx, "/api/kpi/submit", sub, nil); err != nil {
					failed.Add(1)
					log.Warn(gctx, "submission failed",
						logger.String("email", m.Email),
						logger.String("week_of", sub.WeekOf),
						logger.Error(err))
					// Later weeks would be evaluated against a broken streak.
					return nil
				}
				successful.Add(1)
				if cfg.Verbose {
					log.Info(gctx, "submitted", logger.String("email", m.Email), logger.String("week_of", sub.WeekOf))
				}
			}
			return nil
		})
	}
	err := g.Wait()

	stats.Submitted = int(submitted.Load())
	stats.Successful = int(successful.Load())
	stats.Failed = int(failed.Load())
	log.Info(ctx, "submission completed",
		logger.Int("successful", stats.Successful),
		logger.Int("failed", stats.Failed))
	return err
}
