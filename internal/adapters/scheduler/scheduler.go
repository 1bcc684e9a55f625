// Package scheduler posts the weekly reminder messages on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/okian/scorecard/internal/domain/message"
	"github.com/okian/scorecard/internal/domain/model"
	"github.com/okian/scorecard/pkg/logger"
	"github.com/okian/scorecard/pkg/metrics"
)

// Sender delivers one notification synchronously.
type Sender interface {
	Send(ctx context.Context, n model.Notification) bool
}

// Roster lists team members for direct reminders.
type Roster interface {
	Members(ctx context.Context, activeOnly bool) ([]model.Member, error)
}

// DefaultSchedules are the standard cron expressions per reminder kind.
var DefaultSchedules = map[message.ReminderKind]string{
	message.WeeklyKickoff:   "30 7 * * MON",
	message.MondayDeadline:  "0 8 * * MON",
	message.MidweekCheck:    "30 15 * * WED",
	message.MidweekDeadline: "0 16 * * WED",
}

// Result describes one reminder run.
type Result struct {
	Kind   message.ReminderKind `json:"submission_type"`
	Sent   bool                 `json:"sent"`
	Direct int                  `json:"direct_sent"`
}

// Entry is a scheduled job and its next run.
type Entry struct {
	Kind message.ReminderKind `json:"kind"`
	Spec string               `json:"schedule"`
	Next time.Time            `json:"next_run"`
}

// Scheduler runs reminder jobs.
type Scheduler struct {
	sender    Sender
	roster    Roster
	renderer  *message.Renderer
	channel   string
	loc       *time.Location
	now       func() time.Time
	direct    bool
	schedules map[message.ReminderKind]string
	logger    logger.Logger

	cron *cron.Cron
	ids  map[message.ReminderKind]cron.EntryID

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	started bool
}

// New builds a Scheduler and registers one job per reminder kind. An invalid
// cron expression is an error. roster may be nil.
func New(sender Sender, roster Roster, opts ...Option) (*Scheduler, error) {
	s := &Scheduler{
		sender:    sender,
		roster:    roster,
		renderer:  message.NewRenderer(),
		channel:   "#accountability",
		loc:       time.UTC,
		now:       time.Now,
		direct:    true,
		schedules: make(map[message.ReminderKind]string, len(DefaultSchedules)),
		ids:       make(map[message.ReminderKind]cron.EntryID),
	}
	for k, v := range DefaultSchedules {
		s.schedules[k] = v
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("scheduler")
	}

	cl := cronLogger{l: s.logger}
	s.cron = cron.New(
		cron.WithLocation(s.loc),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	for _, kind := range message.ReminderKinds {
		spec, ok := s.schedules[kind]
		if !ok || spec == "" || spec == "-" {
			continue
		}
		kind := kind
		id, err := s.cron.AddFunc(spec, func() { s.runScheduled(kind) })
		if err != nil {
			return nil, fmt.Errorf("%w: %s %q: %w", ErrInvalidSchedule, kind, spec, err)
		}
		s.ids[kind] = id
	}
	return s, nil
}

// Start begins running jobs. ctx bounds every job run.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.started = true
	s.cron.Start()
	s.logger.Info(ctx, "reminder scheduler started",
		logger.String("timezone", s.loc.String()),
		logger.Int("jobs", len(s.ids)))
}

// Stop halts the scheduler and waits for running jobs until ctx expires.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = false
	cancel := s.cancel
	s.mu.Unlock()

	done := s.cron.Stop()
	select {
	case <-done.Done():
		cancel()
		return nil
	case <-ctx.Done():
		cancel()
		return fmt.Errorf("scheduler stop: %w", ctx.Err())
	}
}

// Entries returns the registered jobs with their next run time.
func (s *Scheduler) Entries() []Entry {
	out := make([]Entry, 0, len(s.ids))
	for _, kind := range message.ReminderKinds {
		id, ok := s.ids[kind]
		if !ok {
			continue
		}
		out = append(out, Entry{Kind: kind, Spec: s.schedules[kind], Next: s.cron.Entry(id).Next})
	}
	return out
}

// RunNow sends the reminder of kind immediately.
func (s *Scheduler) RunNow(ctx context.Context, kind message.ReminderKind) (Result, error) {
	now := s.now().In(s.loc)
	text, err := s.renderer.Reminder(kind, now)
	if err != nil {
		return Result{Kind: kind}, err
	}

	res := Result{Kind: kind}
	week := model.WeekOf(now, s.loc)
	res.Sent = s.sender.Send(ctx, model.Notification{
		Key:         fmt.Sprintf("reminder:%s:%s", kind, week),
		Destination: s.channel,
		Text:        text,
	})
	metrics.RecordReminder(string(kind), outcome(res.Sent))

	if kind == message.WeeklyKickoff && s.direct && s.roster != nil {
		res.Direct = s.sendDirect(ctx, now, week)
	}
	return res, nil
}

func (s *Scheduler) sendDirect(ctx context.Context, now time.Time, week model.Week) int {
	members, err := s.roster.Members(ctx, true)
	if err != nil {
		s.logger.Warn(ctx, "failed to load roster for direct reminders", logger.Error(err))
		return 0
	}
	sent := 0
	for _, m := range members {
		if m.SlackID == "" {
			continue
		}
		ok := s.sender.Send(ctx, model.Notification{
			Key:         fmt.Sprintf("reminder:direct:%s:%s", m.Email, week),
			Destination: "@" + m.SlackID,
			Text:        s.renderer.DirectReminder(m, now),
		})
		if ok {
			sent++
		}
	}
	metrics.RecordReminder("direct", outcome(sent > 0 || len(members) == 0))
	return sent
}

func (s *Scheduler) runScheduled(kind message.ReminderKind) {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}
	res, err := s.RunNow(ctx, kind)
	if err != nil {
		s.logger.Error(ctx, "scheduled reminder failed", logger.String("kind", string(kind)), logger.Error(err))
		return
	}
	s.logger.Info(ctx, "scheduled reminder ran",
		logger.String("kind", string(kind)),
		logger.Bool("sent", res.Sent),
		logger.Int("direct_sent", res.Direct))
}

func outcome(ok bool) string {
	if ok {
		return "sent"
	}
	return "failed"
}

// cronLogger adapts logger.Logger to cron.Logger.
type cronLogger struct {
	l logger.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug(context.Background(), "cron: "+msg, kvFields(keysAndValues)...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error(context.Background(), "cron: "+msg, append(kvFields(keysAndValues), logger.Error(err))...)
}

func kvFields(kv []interface{}) []logger.Field {
	fields := make([]logger.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		fields = append(fields, logger.Any(fmt.Sprint(kv[i]), kv[i+1]))
	}
	return fields
}
