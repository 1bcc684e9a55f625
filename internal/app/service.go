// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"sync"
	"time"

	eventqueue "github.com/okian/scorecard/internal/adapters/mq/queue"
	workerpool "github.com/okian/scorecard/internal/adapters/mq/worker"
	"github.com/okian/scorecard/internal/adapters/notify"
	"github.com/okian/scorecard/internal/adapters/repository"
	"github.com/okian/scorecard/internal/adapters/scheduler"
	"github.com/okian/scorecard/internal/domain/dedupe"
	"github.com/okian/scorecard/internal/domain/escalation"
	"github.com/okian/scorecard/internal/domain/message"
	"github.com/okian/scorecard/internal/domain/model"
	"github.com/okian/scorecard/internal/domain/payload"
	"github.com/okian/scorecard/internal/domain/status"
	"github.com/okian/scorecard/internal/seed"
	"github.com/okian/scorecard/pkg/logger"
	"github.com/okian/scorecard/pkg/metrics"
)

// ErrNotStarted is returned by operations called before Start.
var ErrNotStarted = errors.New("service not started")

// Service implements the API dependencies for the scorecard system.
type Service struct {
	mu sync.RWMutex

	// Core components
	store      repository.Store
	validator  *payload.Validator
	evaluator  *status.Evaluator
	tracker    *escalation.Tracker
	renderer   *message.Renderer
	deduper    dedupe.Deduper
	queue      eventqueue.Queue
	dispatcher notify.Dispatcher
	pool       *workerpool.Pool
	scheduler  *scheduler.Scheduler

	// Configuration
	dbPath          string
	seedFile        string
	webhookURL      string
	notifyOpts      []notify.Option
	queueSize       int
	workerCount     int
	dedupeSize      int
	policy          escalation.Policy
	atRiskRatio     float64
	historyWeeks    int
	maxHistoryWeeks int
	teamWindowDays  int
	loc             *time.Location
	generalChannel  string
	leaderChannel   string
	rendererOpts    []message.Option
	remindersOn     bool
	directOn        bool
	schedules       map[message.ReminderKind]string
	ceoName         string
	now             func() time.Time

	// State
	started  bool
	ownStore bool

	// Logging
	logger logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		dbPath:          "scorecard.db",
		queueSize:       1024,
		workerCount:     2,
		dedupeSize:      10_000,
		policy:          escalation.DefaultPolicy(),
		atRiskRatio:     status.DefaultAtRiskRatio,
		historyWeeks:    12,
		maxHistoryWeeks: 52,
		teamWindowDays:  7,
		loc:             time.UTC,
		generalChannel:  "#accountability",
		leaderChannel:   "#leadership",
		remindersOn:     true,
		directOn:        true,
		schedules:       map[message.ReminderKind]string{},
		ceoName:         "CEO",
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start opens the store, applies seed data and starts delivery and
// scheduling.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	s.logger.Info(ctx, "starting scorecard service...")

	if s.store == nil {
		st, err := repository.Open(ctx, s.dbPath)
		if err != nil {
			return err
		}
		s.store = st
		s.ownStore = true
		s.logger.Info(ctx, "using sqlite store", logger.String("path", s.dbPath))
	}

	var seedDoc *seed.Document
	if s.seedFile != "" {
		doc, err := seed.LoadFile(s.seedFile)
		if err != nil {
			s.closeStore()
			return err
		}
		seedDoc = &doc
	}
	if err := seed.Apply(ctx, s.store, seedDoc, s.logger.Named("seed")); err != nil {
		s.closeStore()
		return err
	}

	validator, err := payload.NewValidator(payload.WithDefaultName(s.ceoName))
	if err != nil {
		s.closeStore()
		return err
	}
	s.validator = validator
	s.evaluator = status.New(status.WithAtRiskRatio(s.atRiskRatio))
	s.renderer = message.NewRenderer(append([]message.Option{message.WithLocation(s.loc)}, s.rendererOpts...)...)

	if s.dispatcher == nil {
		s.dispatcher = s.newDispatcher()
	}
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.queue = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.queueSize))
	s.pool = workerpool.NewPool(s.workerCount, s.queue, s.dispatcher, workerpool.WithLogger(s.logger))
	s.pool.Start(ctx)

	s.tracker = escalation.NewTracker(s.store,
		escalation.WithPolicy(s.policy),
		escalation.WithEvaluator(s.evaluator),
		escalation.WithHistoryWeeks(s.historyWeeks),
		escalation.WithNotifier(s),
		escalation.WithRenderer(s.renderer),
		escalation.WithDestination(s.leaderChannel),
		escalation.WithClock(s.now),
		escalation.WithLogger(s.logger.Named("tracker")),
	)

	schedOpts := []scheduler.Option{
		scheduler.WithLocation(s.loc),
		scheduler.WithChannel(s.generalChannel),
		scheduler.WithRenderer(s.renderer),
		scheduler.WithDirectReminders(s.directOn),
		scheduler.WithClock(s.now),
		scheduler.WithLogger(s.logger.Named("scheduler")),
	}
	for kind, spec := range s.schedules {
		schedOpts = append(schedOpts, scheduler.WithSchedule(kind, spec))
	}
	sched, err := scheduler.New(s.dispatcher, s.store, schedOpts...)
	if err != nil {
		_ = s.pool.Shutdown(ctx)
		s.closeStore()
		return err
	}
	s.scheduler = sched
	if s.remindersOn && s.deliveryEnabled() {
		s.scheduler.Start(ctx)
	} else {
		s.logger.Info(ctx, "scheduled reminders disabled")
	}

	s.started = true
	s.logger.Info(ctx, "scorecard service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.Bool("delivery", s.deliveryEnabled()),
	)
	return nil
}

// deliveryEnabled reports whether notifications can leave the process.
func (s *Service) deliveryEnabled() bool {
	if _, nop := s.dispatcher.(notify.Nop); nop {
		return false
	}
	return s.dispatcher != nil || s.webhookURL != ""
}

func (s *Service) newDispatcher() notify.Dispatcher {
	if s.webhookURL == "" {
		s.logger.Warn(context.Background(), "no webhook configured; notifications will be dropped")
		return notify.Nop{Logger: s.logger.Named("notify")}
	}
	opts := append([]notify.Option{
		notify.WithDefaultChannel(s.generalChannel),
		notify.WithLogger(s.logger.Named("notify")),
	}, s.notifyOpts...)
	w, err := notify.NewWebhook(s.webhookURL, opts...)
	if err != nil {
		s.logger.Error(context.Background(), "webhook disabled", logger.Error(err))
		return notify.Nop{Logger: s.logger.Named("notify")}
	}
	return w
}

// Stop gracefully shuts down the service. Queued notifications are delivered
// until ctx expires.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.logger.Info(ctx, "stopping scorecard service...")

	var errs []error
	if s.scheduler != nil {
		if err := s.scheduler.Stop(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if s.pool != nil {
		if err := s.pool.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	s.closeStore()

	s.started = false
	s.logger.Info(ctx, "scorecard service stopped")
	return errors.Join(errs...)
}

func (s *Service) closeStore() {
	if s.ownStore && s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Warn(context.Background(), "error closing store", logger.Error(err))
		}
		s.store = nil
		s.ownStore = false
	}
}

// Notify hands n to the delivery queue at most once per key. A key whose
// enqueue fails is forgotten so a later evaluation can retry it.
func (s *Service) Notify(ctx context.Context, n model.Notification) bool {
	if s.deduper.SeenAndRecord(ctx, n.Key) {
		metrics.RecordNotificationDuplicate()
		s.logger.Debug(ctx, "duplicate notification skipped", logger.String("key", n.Key))
		return true
	}
	if !s.queue.Enqueue(ctx, n) {
		s.deduper.Unrecord(ctx, n.Key)
		s.logger.Warn(ctx, "notification queue rejected item",
			logger.String("key", n.Key),
			logger.Int("queueLength", s.queue.Len(ctx)))
		return false
	}
	return true
}

// Ping checks the store.
func (s *Service) Ping(ctx context.Context) error {
	st, err := s.storeOrErr()
	if err != nil {
		return err
	}
	return st.Ping(ctx)
}

func (s *Service) storeOrErr() (repository.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	return s.store, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"dedupeSize":  s.dedupeSize,
		"delivery":    s.deliveryEnabled(),
		"policy": map[string]interface{}{
			"coachingWeeks":      s.policy.CoachingWeeks,
			"pipWeeks":           s.policy.PIPWeeks,
			"atRiskCountsAsMiss": s.policy.AtRiskCountsAsMiss,
			"gapPolicy":          string(s.policy.Gap),
			"atRiskRatio":        s.atRiskRatio,
		},
	}
	if s.started {
		queueLen := s.queue.Len(ctx)
		stats["queueLength"] = queueLen
		stats["dedupeEntries"] = s.deduper.Size()
		stats["delivery_workers"] = s.pool.GetStats()
		stats["reminders"] = s.scheduler.Entries()
		metrics.UpdateQueueSize(queueLen)
	}
	return stats
}
