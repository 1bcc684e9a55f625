package simulate

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/okian/scorecard/pkg/logger"
)

const (
	directoryPermission = 0750
	filePermission      = 0600
)

// Run executes one simulation: health check, plan, submit, verify.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	stats := &Stats{StartTime: time.Now()}
	log := logger.Get()

	log.Info(ctx, "starting scorecard simulation",
		logger.String("baseURL", cfg.BaseURL),
		logger.String("role", cfg.Role),
		logger.Int("members", cfg.Members),
		logger.Int("weeks", cfg.Weeks),
		logger.Int("workers", cfg.Workers),
		logger.Duration("timeout", cfg.Timeout))

	client := newHTTPClient(cfg.BaseURL, cfg.Timeout)

	if err := checkServiceHealth(ctx, client); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	goals, err := fetchGoals(ctx, client, cfg.Role)
	if err != nil {
		return stats, fmt.Errorf("goal lookup failed: %w", err)
	}

	plan := generatePlan(ctx, cfg, goals, stats)

	if err := submitPlan(ctx, cfg, client, plan, stats); err != nil {
		return stats, fmt.Errorf("submission failed: %w", err)
	}
	if stats.Failed > 0 {
		return stats, fmt.Errorf("submission failed: %d of %d requests rejected", stats.Failed, stats.Submitted)
	}

	// Alerts are raised synchronously on submit, so verification needs no wait.
	verr := verifyAlerts(ctx, cfg, client, plan, goals, stats)

	if cfg.OutputFile != "" {
		if err := savePlan(cfg.OutputFile, plan); err != nil {
			log.Warn(ctx, "failed to save plan", logger.Error(err))
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats)

	if verr != nil {
		return stats, verr
	}
	log.Info(ctx, "simulation completed successfully")
	return stats, nil
}

// checkServiceHealth verifies the service and its store are up.
func checkServiceHealth(ctx context.Context, c *HTTPClient) error {
	var resp struct {
		Status string `json:"status"`
	}
	if err := c.getJSON(ctx, "/healthz", nil, &resp); err != nil {
		return err
	}
	if resp.Status != "ok" {
		return fmt.Errorf("unexpected health status %q", resp.Status)
	}
	return nil
}

// savePlan writes the plan as indented JSON.
func savePlan(filename string, plan *Plan) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(plan, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal plan: %w", err)
	}
	return os.WriteFile(filename, data, filePermission)
}

// displayFinalStats logs the run summary.
func displayFinalStats(ctx context.Context, stats *Stats) {
	var perSecond float64
	if stats.Duration > 0 {
		perSecond = float64(stats.Submitted) / stats.Duration.Seconds()
	}
	logger.Get().Info(ctx, "final statistics",
		logger.Int("members", stats.Members),
		logger.Int("missers", stats.Missers),
		logger.Int("submitted", stats.Submitted),
		logger.Int("successful", stats.Successful),
		logger.Int("failed", stats.Failed),
		logger.Int("alerts", stats.AlertsFound),
		logger.Int("mismatches", stats.Mismatches),
		logger.Duration("duration", stats.Duration),
		logger.Float64("submissionsPerSecond", perSecond))
}
