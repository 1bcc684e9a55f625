package seed_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/scorecard/internal/domain/model"
	"github.com/okian/scorecard/internal/domain/payload"
	"github.com/okian/scorecard/internal/seed"
	"github.com/okian/scorecard/pkg/logger"
)

type fakeStore struct {
	goals   map[string]model.Goal
	members map[string]model.Member
}

func newFakeStore() *fakeStore {
	return &fakeStore{goals: map[string]model.Goal{}, members: map[string]model.Member{}}
}

func (f *fakeStore) AllGoals(context.Context) ([]model.Goal, error) {
	out := make([]model.Goal, 0, len(f.goals))
	for _, g := range f.goals {
		out = append(out, g)
	}
	return out, nil
}

func (f *fakeStore) UpsertGoal(_ context.Context, g *model.Goal) error {
	f.goals[string(g.Role)+"/"+g.Metric] = *g
	return nil
}

func (f *fakeStore) UpsertMember(_ context.Context, m *model.Member) error {
	f.members[m.Email] = *m
	return nil
}

const sample = `
goals:
  - role: recruiter
    metric: submittals
    type: range
    target: 4
    max: 10
members:
  - name: Dana
    email: dana@example.com
    role: recruiter
    slack_user_id: "@U123"
  - name: Sam
    email: sam@example.com
    role: business-development
    active: false
`

func TestParse(t *testing.T) {
	Convey("Given a seed document", t, func() {
		doc, err := seed.Parse([]byte(sample))

		Convey("Then goals and members are decoded", func() {
			So(err, ShouldBeNil)
			So(len(doc.Goals), ShouldEqual, 1)
			So(doc.Goals[0].Type, ShouldEqual, model.GoalRange)
			So(doc.Goals[0].Max, ShouldEqual, 10)
			So(doc.Goals[0].Frequency, ShouldEqual, "weekly")
			So(len(doc.Members), ShouldEqual, 2)
			So(doc.Members[0].SlackID, ShouldEqual, "U123")
			So(doc.Members[0].Active, ShouldBeTrue)
			So(doc.Members[1].Role, ShouldEqual, model.RoleBDR)
			So(doc.Members[1].Active, ShouldBeFalse)
		})
	})

	Convey("Given invalid documents", t, func() {
		for _, bad := range []string{
			"goals: [{role: intern, metric: x, target: 1}]",
			"goals: [{role: bdr, metric: x, type: range, target: 5, max: 1}]",
			"goals: [{role: bdr, metric: x, type: ceiling, target: 5}]",
			"members: [{name: x, role: bdr}]",
			"goals: {not: a list}",
		} {
			_, err := seed.Parse([]byte(bad))
			So(model.IsValidation(err), ShouldBeTrue)
		}
	})

	Convey("The built-in defaults cover every role's standard metrics", t, func() {
		doc := seed.Defaults()
		have := map[string]bool{}
		for _, g := range doc.Goals {
			have[string(g.Role)+"/"+g.Metric] = true
		}
		for _, r := range model.Roles {
			for _, f := range payload.Fields(r) {
				So(have[string(r)+"/"+f], ShouldBeTrue)
			}
		}
		So(have["recruiter/placements_month"], ShouldBeTrue)
	})
}

func TestApply(t *testing.T) {
	ctx := context.Background()

	Convey("Given an empty store", t, func() {
		store := newFakeStore()
		file, err := seed.Parse([]byte(sample))
		So(err, ShouldBeNil)

		Convey("When the defaults and a file are applied", func() {
			So(seed.Apply(ctx, store, &file, logger.Nop()), ShouldBeNil)

			Convey("Then file entries override defaults", func() {
				So(len(store.goals), ShouldEqual, len(seed.Defaults().Goals))
				So(store.goals["recruiter/submittals"].Type, ShouldEqual, model.GoalRange)
				So(len(store.members), ShouldEqual, 2)
			})
		})
	})

	Convey("Given a store that already has goals", t, func() {
		store := newFakeStore()
		store.goals["bdr/conversations"] = model.Goal{Role: model.RoleBDR, Metric: "conversations", Type: model.GoalMinimum, Target: 99}

		So(seed.Apply(ctx, store, nil, nil), ShouldBeNil)

		Convey("Then the defaults are not reapplied", func() {
			So(len(store.goals), ShouldEqual, 1)
			So(store.goals["bdr/conversations"].Target, ShouldEqual, 99)
		})
	})

	Convey("Given a seed file on disk", t, func() {
		path := filepath.Join(t.TempDir(), "seed.yaml")
		So(os.WriteFile(path, []byte(sample), 0o600), ShouldBeNil)
		doc, err := seed.LoadFile(path)
		So(err, ShouldBeNil)
		So(len(doc.Members), ShouldEqual, 2)

		_, err = seed.LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
		So(err, ShouldNotBeNil)
	})
}
