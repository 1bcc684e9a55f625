package message

import (
	"errors"
	"testing"
	"time"

	"github.com/okian/scorecard/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestReminder(t *testing.T) {
	Convey("Given a renderer", t, func() {
		r := NewRenderer(WithDashboardURL("https://kpi.example.com"), WithTeamName("acme"))
		now := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)

		Convey("When rendering every reminder kind", func() {
			for _, k := range ReminderKinds {
				text, err := r.Reminder(k, now)
				So(err, ShouldBeNil)
				So(text, ShouldContainSubstring, "https://kpi.example.com")
			}
		})

		Convey("When rendering the kickoff", func() {
			text, err := r.Reminder(WeeklyKickoff, now)
			So(err, ShouldBeNil)
			So(text, ShouldContainSubstring, "ACME SCORECARD CHECK-IN")
			So(text, ShouldContainSubstring, "Week of January 08, 2024")
		})

		Convey("When the kind is unknown", func() {
			_, err := r.Reminder(ReminderKind("friday"), now)
			So(errors.Is(err, model.ErrValidation), ShouldBeTrue)
		})
	})

	Convey("Given reminder names", t, func() {
		k, err := ParseReminderKind("")
		So(err, ShouldBeNil)
		So(k, ShouldEqual, WeeklyKickoff)
		k, err = ParseReminderKind("midweek_deadline")
		So(err, ShouldBeNil)
		So(k, ShouldEqual, MidweekDeadline)
		_, err = ParseReminderKind("weekly")
		So(errors.Is(err, model.ErrValidation), ShouldBeTrue)
	})
}

func TestAlert(t *testing.T) {
	Convey("Given alerts for one person", t, func() {
		r := NewRenderer(WithContact("@ops"))
		alerts := []model.Alert{
			{Metric: "submittals", ConsecutiveMisses: 2},
			{Metric: "phone_screens", ConsecutiveMisses: 3},
		}

		Convey("When rendering a coaching alert", func() {
			text := r.Alert(model.AlertCoaching, "Dana", "dana@x.io", alerts)
			So(text, ShouldContainSubstring, "COACHING ALERT* - Dana")
			So(text, ShouldContainSubstring, "phone_screens: below target 3 weeks")
			So(text, ShouldContainSubstring, "@ops will reach out")
			So(text, ShouldContainSubstring, "dana@x.io")
		})

		Convey("When rendering a performance alert", func() {
			text := r.Alert(model.AlertPerformanceImprovement, "Dana", "dana@x.io", alerts[:1])
			So(text, ShouldContainSubstring, "PERFORMANCE ALERT")
			So(text, ShouldContainSubstring, "submittals: off goal for 2 weeks")
		})
	})

	Convey("Given a roster member", t, func() {
		r := NewRenderer()
		text := r.DirectReminder(model.Member{Name: "Lee", Role: model.RoleBDR}, time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC))
		So(text, ShouldContainSubstring, "Hi Lee, your bdr scorecard for the week of January 01, 2024")
	})
}
