package simulate

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/okian/scorecard/pkg/logger"
)

const logFilePermission = 0600

// SetupLogging sends log output to stdout and to logFile. An empty logFile
// gets a timestamped name.
func SetupLogging(logFile string) error {
	if logFile == "" {
		logFile = "simulate_" + time.Now().Format("20060102_150405") + ".log"
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}

	logger.SetOutput(io.MultiWriter(os.Stdout, file))
	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.Get().Info(context.Background(), "logging to file", logger.String("logFile", logFile))
	return nil
}

// ShowHelp prints usage information for the simulator.
func ShowHelp() {
	_, _ = os.Stdout.WriteString(`Scorecard Team Simulator
========================

Submits several weeks of KPIs for a synthetic team and verifies that every
scripted misser ends up with exactly the expected escalation alerts.

Usage:
  go run ./cmd/simulate [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:8000")
  -role string
        Role of the simulated members (default "recruiter")
  -members int
        Team size (default 12)
  -weeks int
        Consecutive weeks per member (default 5)
  -start string
        Any date of the first week, YYYY-MM-DD (default: weeks ago)
  -miss-every int
        Every n-th member misses all goals; 0 disables (default 3)
  -coaching-weeks int
        Expected coaching threshold (default 2)
  -pip-weeks int
        Expected performance-improvement threshold (default 4)
  -workers int
        Members submitted concurrently (default CPU cores * 2)
  -timeout duration
        HTTP request timeout (default 30s)
  -output string
        Write the submitted plan as JSON
  -log string
        Log file (default: simulate_TIMESTAMP.log)
  -verbose
        Log every submission
  -help
        Show this help message

Examples:
  go run ./cmd/simulate -members 40 -weeks 6
  go run ./cmd/simulate -role marketing -miss-every 2 -url http://localhost:8080
`)
}
