package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/scorecard/internal/adapters/http/api"
	"github.com/okian/scorecard/internal/adapters/repository"
	"github.com/okian/scorecard/internal/adapters/scheduler"
	service "github.com/okian/scorecard/internal/app"
	"github.com/okian/scorecard/internal/domain/escalation"
	"github.com/okian/scorecard/internal/domain/message"
	"github.com/okian/scorecard/internal/domain/model"
	"github.com/okian/scorecard/pkg/logger"
)

// stubDeps fails every call with err unless a field overrides it.
type stubDeps struct {
	err      error
	pingErr  error
	kinds    []string
	reminder scheduler.Result
}

func (s *stubDeps) Submit(context.Context, service.SubmitRequest) (service.SubmitResult, error) {
	return service.SubmitResult{}, s.err
}

func (s *stubDeps) Latest(context.Context, string, string) (model.Submission, error) {
	return model.Submission{}, s.err
}

func (s *stubDeps) History(context.Context, string, string, int) ([]model.Submission, error) {
	return nil, s.err
}

func (s *stubDeps) Statuses(context.Context, string, string) (service.StatusReport, error) {
	return service.StatusReport{}, s.err
}

func (s *stubDeps) Team(context.Context, string) ([]model.Submission, error) { return nil, s.err }

func (s *stubDeps) Members(context.Context, bool) ([]model.Member, error) { return nil, s.err }

func (s *stubDeps) Goals(context.Context, string) ([]model.Goal, error) { return nil, s.err }

func (s *stubDeps) UpsertGoal(context.Context, model.Goal) (model.Goal, error) {
	return model.Goal{}, s.err
}

func (s *stubDeps) Alerts(context.Context, string, string, string) ([]model.Alert, error) {
	return nil, s.err
}

func (s *stubDeps) ResolveAlert(context.Context, int64) (model.Alert, error) {
	return model.Alert{}, s.err
}

func (s *stubDeps) CheckEscalations(context.Context, string, string) (escalation.Result, error) {
	return escalation.Result{}, s.err
}

func (s *stubDeps) SendReminder(_ context.Context, kind string) (scheduler.Result, error) {
	s.kinds = append(s.kinds, kind)
	return s.reminder, s.err
}

func (s *stubDeps) Ping(context.Context) error { return s.pingErr }

type staticStats map[string]interface{}

func (s staticStats) GetStats() map[string]interface{} { return s }

func newMux(deps api.Dependencies) http.Handler {
	mux := http.NewServeMux()
	api.NewServer(deps, staticStats{"started": true}, api.WithLogger(logger.Nop())).Register(context.Background(), mux)
	return api.Handler(mux)
}

func do(h http.Handler, method, target, body string) (*httptest.ResponseRecorder, map[string]any) {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, http.NoBody)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	var out map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return w, out
}

func TestErrorMapping(t *testing.T) {
	Convey("Given handlers over failing dependencies", t, func() {
		deps := &stubDeps{}
		h := newMux(deps)

		Convey("When the store fails", func() {
			deps.err = fmt.Errorf("wrap: %w", model.WrapKind("repository.latest", model.ErrStore, errors.New("disk I/O error at /var/db")))
			w, body := do(h, http.MethodGet, "/api/kpi/history?email=a@b.c&role=bdr", "")

			Convey("Then a generic 500 is returned", func() {
				So(w.Code, ShouldEqual, http.StatusInternalServerError)
				So(body["message"], ShouldEqual, "internal storage error")
				So(w.Body.String(), ShouldNotContainSubstring, "/var/db")
			})
		})

		Convey("When input is invalid", func() {
			deps.err = model.Wrap("service.submit", model.Invalid("payload.validate", "metrics.email is required"))
			w, body := do(h, http.MethodPost, "/api/kpi/submit", `{"role":"bdr","metrics":{}}`)

			Convey("Then 400 carries the innermost message", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(body["status"], ShouldEqual, "error")
				So(body["message"], ShouldEqual, "metrics.email is required")
			})
		})

		Convey("When a record is missing", func() {
			deps.err = model.Wrap("service.resolve_alert", repository.ErrNotFound)
			w, _ := do(h, http.MethodPost, "/api/alerts/7/resolve", "")
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("When the service is not running", func() {
			deps.err = service.ErrNotStarted
			w, _ := do(h, http.MethodGet, "/api/goals", "")
			So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
		})

		Convey("When the body is not JSON", func() {
			w, body := do(h, http.MethodPost, "/api/kpi/submit", `{role:`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(body["message"], ShouldContainSubstring, "invalid JSON body")

			w, _ = do(h, http.MethodPost, "/api/goals", "")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When parameters are malformed", func() {
			w, _ := do(h, http.MethodGet, "/api/kpi/history?email=a@b.c&role=bdr&weeks=four", "")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			w, _ = do(h, http.MethodPost, "/api/alerts/abc/resolve", "")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			w, _ = do(h, http.MethodGet, "/api/team/members?active=maybe", "")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the method is wrong", func() {
			w, _ := do(h, http.MethodGet, "/api/kpi/submit", "")
			So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
			So(w.Header().Get("Allow"), ShouldEqual, http.MethodPost)
			w, _ = do(h, http.MethodDelete, "/api/goals", "")
			So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
		})
	})
}

func TestOperationalRoutes(t *testing.T) {
	Convey("Given the operational routes", t, func() {
		deps := &stubDeps{reminder: scheduler.Result{Kind: message.MidweekCheck, Sent: false}}
		h := newMux(deps)

		Convey("Then healthz pings the store", func() {
			w, body := do(h, http.MethodGet, "/healthz", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(body["status"], ShouldEqual, "ok")

			deps.pingErr = errors.New("closed")
			w, _ = do(h, http.MethodGet, "/healthz", "")
			So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
		})

		Convey("And stats and metrics are served", func() {
			w, body := do(h, http.MethodGet, "/stats", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(body["started"], ShouldBeTrue)

			w, _ = do(h, http.MethodGet, "/metrics", "")
			So(w.Code, ShouldEqual, http.StatusOK)
		})

		Convey("And a request id is assigned or propagated", func() {
			w, _ := do(h, http.MethodGet, "/stats", "")
			So(w.Header().Get(api.RequestIDHeader), ShouldNotBeEmpty)

			req := httptest.NewRequest(http.MethodGet, "/stats", http.NoBody)
			req.Header.Set(api.RequestIDHeader, "abc-123")
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			So(rec.Header().Get(api.RequestIDHeader), ShouldEqual, "abc-123")
		})

		Convey("And a failed reminder still succeeds", func() {
			w, body := do(h, http.MethodPost, "/api/slack/send-reminder?submission_type=midweek_check", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(body["status"], ShouldEqual, "success")
			So(body["delivered"], ShouldBeFalse)
			So(deps.kinds, ShouldResemble, []string{"midweek_check"})
		})
	})
}

type nopSender struct{}

func (nopSender) Send(context.Context, model.Notification) bool { return true }

func TestEndToEnd(t *testing.T) {
	Convey("Given the API over a running service", t, func() {
		now := time.Date(2024, 1, 17, 12, 0, 0, 0, time.UTC)
		st, err := repository.Open(context.Background(), filepath.Join(t.TempDir(), "scorecard.db"))
		So(err, ShouldBeNil)
		svc := service.New(
			service.WithLogger(logger.Nop()),
			service.WithStore(st),
			service.WithDispatcher(nopSender{}),
			service.WithReminders(false, false),
			service.WithClock(func() time.Time { return now }),
		)
		So(svc.Start(context.Background()), ShouldBeNil)
		Reset(func() {
			_ = svc.Stop(context.Background())
			_ = st.Close()
		})
		h := newMux(svc)

		Convey("When latest is requested for an unknown person", func() {
			w, body := do(h, http.MethodGet, "/api/kpi/latest?email=new@example.com&role=recruiter", "")

			Convey("Then not_found is returned without an error", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(body, ShouldResemble, map[string]any{"status": "not_found"})
			})
		})

		Convey("When a recruiter misses placements three weeks running", func() {
			var body map[string]any
			for _, week := range []string{"2024-01-01", "2024-01-08", "2024-01-15"} {
				var w *httptest.ResponseRecorder
				w, body = do(h, http.MethodPost, "/api/kpi/submit", fmt.Sprintf(
					`{"role":"recruiter","week_of":%q,"metrics":{"name":"Dana","email":"dana@example.com","placements_month":0}}`, week))
				So(w.Code, ShouldEqual, http.StatusOK)
			}

			Convey("Then the response reports the submission", func() {
				So(body["status"], ShouldEqual, "success")
				So(body["week_of"], ShouldEqual, "2024-01-15")
				So(body["submission_id"], ShouldNotBeNil)
				So(body["message"], ShouldContainSubstring, "January 15, 2024")
			})

			Convey("And one coaching alert with count three is listed", func() {
				w, out := do(h, http.MethodGet, "/api/alerts?email=dana@example.com&role=recruiter", "")
				So(w.Code, ShouldEqual, http.StatusOK)
				alerts := out["alerts"].([]any)
				So(len(alerts), ShouldEqual, 1)
				a := alerts[0].(map[string]any)
				So(a["alert_type"], ShouldEqual, "coaching")
				So(a["metric_name"], ShouldEqual, "placements_month")
				So(a["consecutive_misses"], ShouldEqual, float64(3))
			})

			Convey("And history and latest return the rows newest first", func() {
				_, out := do(h, http.MethodGet, "/api/kpi/history?email=dana@example.com&role=recruiter&weeks=2", "")
				subs := out["submissions"].([]any)
				So(len(subs), ShouldEqual, 2)
				So(subs[0].(map[string]any)["week_of"], ShouldEqual, "2024-01-15")

				_, out = do(h, http.MethodGet, "/api/kpi/latest?email=dana@example.com&role=recruiter", "")
				So(out["status"], ShouldEqual, "success")
			})

			Convey("And the team view returns the latest row", func() {
				_, out := do(h, http.MethodGet, "/api/team/kpis", "")
				So(out["count"], ShouldEqual, float64(1))
			})
		})

		Convey("When goals are posted", func() {
			w, out := do(h, http.MethodPost, "/api/goals", `{"role":"bdr","metric_name":"conversations","goal_type":"minimum","goal_value":25}`)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(out["goal"].(map[string]any)["goal_value"], ShouldEqual, float64(25))

			w, _ = do(h, http.MethodPost, "/api/goals", `{"role":"bdr","metric_name":"x","goal_type":"band","goal_value":1}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When an unknown reminder type is sent", func() {
			w, _ := do(h, http.MethodPost, "/api/slack/send-reminder?submission_type=quarterly", "")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}
