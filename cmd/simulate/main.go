package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/scorecard/internal/simulate"
)

// Default configuration constants.
const (
	defaultMembers   = 12
	defaultWeeks     = 5
	defaultMissEvery = 3
	defaultWorkers   = 2 // multiplier for runtime.NumCPU()
	defaultTimeout   = 30 * time.Second
	defaultRunLimit  = 10 * time.Minute
)

func main() {
	var (
		baseURL   = flag.String("url", "http://localhost:8000", "Base URL of the service")
		role      = flag.String("role", "recruiter", "Role of the simulated members")
		members   = flag.Int("members", defaultMembers, "Team size")
		weeks     = flag.Int("weeks", defaultWeeks, "Consecutive weeks per member")
		start     = flag.String("start", "", "Any date of the first week, YYYY-MM-DD")
		missEvery = flag.Int("miss-every", defaultMissEvery, "Every n-th member misses all goals; 0 disables")
		coaching  = flag.Int("coaching-weeks", 2, "Expected coaching threshold")
		pip       = flag.Int("pip-weeks", 4, "Expected performance-improvement threshold")
		workers   = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Members submitted concurrently")
		timeout   = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		output    = flag.String("output", "", "Write the submitted plan as JSON")
		logFile   = flag.String("log", "", "Log file (default: simulate_TIMESTAMP.log)")
		verbose   = flag.Bool("verbose", false, "Log every submission")
		help      = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		simulate.ShowHelp()
		return
	}

	if err := simulate.SetupLogging(*logFile); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	first := time.Now().UTC().AddDate(0, 0, -7*(*weeks))
	if *start != "" {
		t, err := time.Parse("2006-01-02", *start)
		if err != nil {
			os.Stderr.WriteString("Invalid -start: " + err.Error() + "\n")
			os.Exit(2)
		}
		first = t
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, defaultRunLimit)
	defer cancel()

	cfg := &simulate.Config{
		BaseURL:       *baseURL,
		Role:          *role,
		Members:       *members,
		Weeks:         *weeks,
		Start:         first,
		MissEvery:     *missEvery,
		CoachingWeeks: *coaching,
		PIPWeeks:      *pip,
		Workers:       *workers,
		Timeout:       *timeout,
		OutputFile:    *output,
		Verbose:       *verbose,
	}

	if _, err := simulate.Run(ctx, cfg); err != nil {
		os.Stderr.WriteString("Simulation failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}
