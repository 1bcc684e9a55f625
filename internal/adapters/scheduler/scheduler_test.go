package scheduler_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/scorecard/internal/adapters/scheduler"
	"github.com/okian/scorecard/internal/domain/message"
	"github.com/okian/scorecard/internal/domain/model"
	"github.com/okian/scorecard/pkg/logger"
)

type captureSender struct {
	mu    sync.Mutex
	notes []model.Notification
	ok    bool
}

func (c *captureSender) Send(_ context.Context, n model.Notification) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notes = append(c.notes, n)
	return c.ok
}

func (c *captureSender) sent() []model.Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]model.Notification(nil), c.notes...)
}

type staticRoster struct {
	members []model.Member
	err     error
}

func (r staticRoster) Members(context.Context, bool) ([]model.Member, error) {
	return r.members, r.err
}

func TestScheduler(t *testing.T) {
	ctx := context.Background()
	monday := time.Date(2025, 3, 3, 7, 30, 0, 0, time.UTC)
	clock := func() time.Time { return monday }
	roster := staticRoster{members: []model.Member{
		{Name: "Dana", Email: "dana@example.com", Role: model.RoleRecruiter, SlackID: "U1", Active: true},
		{Name: "Sam", Email: "sam@example.com", Role: model.RoleBDR, Active: true},
	}}

	Convey("Given a scheduler with a roster", t, func() {
		sender := &captureSender{ok: true}
		s, err := scheduler.New(sender, roster,
			scheduler.WithLogger(logger.Nop()),
			scheduler.WithClock(clock),
			scheduler.WithChannel("#accountability"),
			scheduler.WithRenderer(message.NewRenderer(message.WithDashboardURL("https://kpi.example.com"))))
		So(err, ShouldBeNil)

		Convey("When the kickoff runs", func() {
			res, err := s.RunNow(ctx, message.WeeklyKickoff)

			Convey("Then the channel and members with a chat id are notified", func() {
				So(err, ShouldBeNil)
				So(res.Sent, ShouldBeTrue)
				So(res.Direct, ShouldEqual, 1)

				notes := sender.sent()
				So(len(notes), ShouldEqual, 2)
				So(notes[0].Destination, ShouldEqual, "#accountability")
				So(notes[0].Text, ShouldContainSubstring, "Week of March 03, 2025")
				So(notes[0].Text, ShouldContainSubstring, "https://kpi.example.com")
				So(notes[0].Key, ShouldEqual, "reminder:weekly_kickoff:2025-03-03")
				So(notes[1].Destination, ShouldEqual, "@U1")
				So(notes[1].Text, ShouldContainSubstring, "Hi Dana")
			})
		})

		Convey("When a deadline runs", func() {
			res, err := s.RunNow(ctx, message.MondayDeadline)

			Convey("Then only the channel is notified", func() {
				So(err, ShouldBeNil)
				So(res.Direct, ShouldEqual, 0)
				So(len(sender.sent()), ShouldEqual, 1)
			})
		})

		Convey("When an unknown kind runs", func() {
			_, err := s.RunNow(ctx, message.ReminderKind("quarterly"))
			So(model.IsValidation(err), ShouldBeTrue)
			So(sender.sent(), ShouldBeEmpty)
		})

		Convey("Then every default job is registered", func() {
			entries := s.Entries()
			So(len(entries), ShouldEqual, 4)
			So(entries[0].Kind, ShouldEqual, message.WeeklyKickoff)
			So(entries[0].Spec, ShouldEqual, "30 7 * * MON")
		})
	})

	Convey("Given a failing sender", t, func() {
		sender := &captureSender{ok: false}
		s, _ := scheduler.New(sender, staticRoster{err: errors.New("db down")},
			scheduler.WithLogger(logger.Nop()), scheduler.WithClock(clock))

		Convey("Then the run reports the failure without an error", func() {
			res, err := s.RunNow(ctx, message.WeeklyKickoff)
			So(err, ShouldBeNil)
			So(res.Sent, ShouldBeFalse)
			So(res.Direct, ShouldEqual, 0)
		})
	})

	Convey("Given direct reminders are disabled", t, func() {
		sender := &captureSender{ok: true}
		s, _ := scheduler.New(sender, roster,
			scheduler.WithLogger(logger.Nop()), scheduler.WithClock(clock), scheduler.WithDirectReminders(false))
		res, _ := s.RunNow(ctx, message.WeeklyKickoff)
		So(res.Direct, ShouldEqual, 0)
		So(len(sender.sent()), ShouldEqual, 1)
	})

	Convey("Given schedule overrides", t, func() {
		Convey("When an expression is invalid", func() {
			_, err := scheduler.New(&captureSender{}, nil,
				scheduler.WithLogger(logger.Nop()),
				scheduler.WithSchedule(message.MidweekCheck, "every wednesday"))
			So(errors.Is(err, scheduler.ErrInvalidSchedule), ShouldBeTrue)
		})

		Convey("When a job is disabled", func() {
			s, err := scheduler.New(&captureSender{}, nil,
				scheduler.WithLogger(logger.Nop()),
				scheduler.WithSchedule(message.MidweekDeadline, "-"))
			So(err, ShouldBeNil)
			So(len(s.Entries()), ShouldEqual, 3)
		})
	})

	Convey("Given a frequently firing job", t, func() {
		sender := &captureSender{ok: true}
		s, err := scheduler.New(sender, nil,
			scheduler.WithLogger(logger.Nop()),
			scheduler.WithSchedule(message.MidweekCheck, "@every 1s"))
		So(err, ShouldBeNil)
		s.Start(ctx)

		Convey("Then it fires and stops cleanly", func() {
			deadline := time.Now().Add(3 * time.Second)
			for len(sender.sent()) == 0 && time.Now().Before(deadline) {
				time.Sleep(20 * time.Millisecond)
			}
			So(len(sender.sent()), ShouldBeGreaterThan, 0)

			stopCtx, cancel := context.WithTimeout(ctx, time.Second)
			defer cancel()
			So(s.Stop(stopCtx), ShouldBeNil)
			So(s.Stop(stopCtx), ShouldBeNil)
		})
	})
}
