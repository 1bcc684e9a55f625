package main

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/scorecard/internal/adapters/http/api"
	app "github.com/okian/scorecard/internal/app"
	"github.com/okian/scorecard/internal/config"
	"github.com/okian/scorecard/pkg/logger"
	"github.com/okian/scorecard/pkg/metrics"
)

func TestMain(m *testing.M) {
	logger.SetOutput(io.Discard)
	if err := logger.Init(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

// setenv sets SCORECARD_ variables for the duration of one test.
func setenv(t *testing.T, kv map[string]string) {
	t.Helper()
	for k, v := range kv {
		t.Setenv(config.EnvPrefix+k, v)
	}
}

func TestMainConfiguration(t *testing.T) {
	convey.Convey("Given SCORECARD_ environment overrides", t, func() {
		setenv(t, map[string]string{
			"ADDR":         ":8080",
			"QUEUE_SIZE":   "1000",
			"WORKER_COUNT": "4",
			"GAP_POLICY":   "pause",
		})

		convey.Convey("Then configuration should load them", func() {
			cfg, err := config.Load(context.Background())
			convey.So(err, convey.ShouldBeNil)
			convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
			convey.So(cfg.QueueSize, convey.ShouldEqual, 1000)
			convey.So(cfg.WorkerCount, convey.ShouldEqual, 4)
			convey.So(cfg.GapPolicy, convey.ShouldEqual, "pause")
		})
	})

	convey.Convey("Given an empty listen address", t, func() {
		setenv(t, map[string]string{"ADDR": ""})

		convey.Convey("Then configuration loading should fail", func() {
			cfg, err := config.Load(context.Background())
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(cfg, convey.ShouldBeNil)
		})
	})
}

func TestNewService(t *testing.T) {
	convey.Convey("Given the default configuration", t, func() {
		cfg := config.New()
		cfg.DBPath = filepath.Join(t.TempDir(), "scorecard.db")

		convey.Convey("When the service is built from it", func() {
			svc, err := newService(cfg, logger.Nop())
			convey.So(err, convey.ShouldBeNil)

			convey.Convey("Then the policy and pool sizes should follow the config", func() {
				stats := svc.GetStats()
				convey.So(stats["workerCount"], convey.ShouldEqual, cfg.WorkerCount)
				convey.So(stats["queueSize"], convey.ShouldEqual, cfg.QueueSize)
				convey.So(stats["delivery"], convey.ShouldBeFalse)

				policy, ok := stats["policy"].(map[string]interface{})
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(policy["coachingWeeks"], convey.ShouldEqual, 2)
				convey.So(policy["pipWeeks"], convey.ShouldEqual, 4)
			})
		})

		convey.Convey("When a webhook is configured", func() {
			cfg.SlackWebhookURL = "http://127.0.0.1:1/hook"
			svc, err := newService(cfg, logger.Nop())
			convey.So(err, convey.ShouldBeNil)

			convey.Convey("Then delivery should be reported as enabled", func() {
				convey.So(svc.GetStats()["delivery"], convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the timezone is unknown", func() {
			cfg.Timezone = "Mars/Olympus"
			_, err := newService(cfg, logger.Nop())

			convey.Convey("Then building should fail", func() {
				convey.So(err, convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When the gap policy is unknown", func() {
			cfg.GapPolicy = "skip"
			_, err := newService(cfg, logger.Nop())

			convey.Convey("Then building should fail", func() {
				convey.So(err, convey.ShouldNotBeNil)
			})
		})
	})
}

func TestRun(t *testing.T) {
	convey.Convey("Given a config with an ephemeral port", t, func() {
		cfg := config.New()
		cfg.Addr = "127.0.0.1:0"
		cfg.DBPath = filepath.Join(t.TempDir(), "scorecard.db")
		cfg.ShutdownTimeoutMS = 2000

		convey.Convey("When the context is canceled", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
			defer cancel()

			done := make(chan error, 1)
			go func() { done <- run(ctx, cfg) }()

			convey.Convey("Then run should shut down cleanly", func() {
				select {
				case err := <-done:
					convey.So(err, convey.ShouldBeNil)
				case <-time.After(5 * time.Second):
					convey.So("run did not return", convey.ShouldBeEmpty)
				}
			})
		})

		convey.Convey("When metric naming is configured", func() {
			cfg.MetricsNamespace = "acme"
			cfg.MetricsLatencyBucketsMS = "5,50"
			ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
			defer cancel()
			convey.So(run(ctx, cfg), convey.ShouldBeNil)

			convey.Convey("Then the exposed series carry the namespace", func() {
				families, err := metrics.GetRegistry().Gather()
				convey.So(err, convey.ShouldBeNil)
				names := make([]string, 0, len(families))
				for _, f := range families {
					names = append(names, f.GetName())
				}
				convey.So(strings.Join(names, ","), convey.ShouldContainSubstring, "acme_kpi_queue_capacity")
			})
		})

		convey.Convey("When the latency buckets are malformed", func() {
			cfg.MetricsLatencyBucketsMS = "50,5"
			convey.So(run(context.Background(), cfg), convey.ShouldNotBeNil)
		})
	})
}

func TestMainApplicationComponents(t *testing.T) {
	convey.Convey("Given main application components", t, func() {
		convey.Convey("When testing system metrics updater", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()

			convey.So(func() {
				startSystemMetricsUpdater(ctx)
			}, convey.ShouldNotPanic)
		})

		convey.Convey("When testing service metrics updater", func() {
			svc := app.New(app.WithLogger(logger.Nop()))
			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()

			convey.So(func() {
				startServiceMetricsUpdater(ctx, svc)
			}, convey.ShouldNotPanic)
		})

		convey.Convey("When updating metrics directly", func() {
			svc := app.New(app.WithLogger(logger.Nop()))
			convey.So(func() { updateSystemMetrics() }, convey.ShouldNotPanic)
			convey.So(func() { updateServiceMetrics(svc) }, convey.ShouldNotPanic)
		})

		convey.Convey("When creating the HTTP server", func() {
			svc := app.New(app.WithLogger(logger.Nop()))
			server := api.NewServer(svc, svc, api.WithLogger(logger.Nop()))
			convey.So(server, convey.ShouldNotBeNil)
		})

		convey.Convey("When creating a metrics manager on a private registry", func() {
			manager := metrics.NewManager(metrics.WithPrometheusRegistry(prometheus.NewRegistry()))
			convey.So(manager, convey.ShouldNotBeNil)
		})
	})
}
