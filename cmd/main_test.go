package main

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	app "github.com/okian/scoreboard/internal/app"
	"github.com/okian/scoreboard/internal/config"
	"github.com/okian/scoreboard/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func TestMainFunction(t *testing.T) {
	convey.Convey("Given the main application", t, func() {
		convey.Convey("When testing configuration loading", func() {
			t.Setenv("SCOREBOARD_ADDR", ":8080")
			t.Setenv("SCOREBOARD_STORAGE_DRIVER", "memory")
			t.Setenv("SCOREBOARD_MAX_TOP_LIMIT", "25")

			convey.Convey("Then configuration should be loadable", func() {
				cfg, err := config.Load(context.Background())
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.StorageDriver, convey.ShouldEqual, config.DriverMemory)
				convey.So(cfg.MaxTopLimit, convey.ShouldEqual, 25)
			})
		})

		convey.Convey("When testing invalid configuration", func() {
			t.Setenv("SCOREBOARD_STORAGE_DRIVER", "postgres")

			convey.Convey("Then run should fail before serving", func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				convey.So(run(ctx), convey.ShouldNotBeNil)
			})
		})
	})
}

func TestMainApplicationIntegration(t *testing.T) {
	convey.Convey("Given a configured service on a temporary database", t, func() {
		cfg := config.New()
		cfg.SQLiteFilename = filepath.Join(t.TempDir(), "scores.db")

		svc := app.New(
			app.WithStorage(cfg.StorageDriver, cfg.SQLiteFilename),
			app.WithMaxTopLimit(cfg.MaxTopLimit),
		)
		convey.So(svc.Start(context.Background()), convey.ShouldBeNil)
		defer svc.Stop()

		srv := newHTTPServer(cfg, svc)

		convey.Convey("Then the HTTP server should carry the configured address and timeouts", func() {
			convey.So(srv.Addr, convey.ShouldEqual, ":5000")
			convey.So(srv.ReadHeaderTimeout, convey.ShouldEqual, readHeaderTimeout)
		})

		convey.Convey("Then a submission should show up in the ranked feed", func() {
			ts := httptest.NewServer(srv.Handler)
			defer ts.Close()

			body := `{"timestamp":"2024-08-17 16:02:23.144","name":"alifeee","max_height":124.22,` +
				`"time_total_s":120,"time_building_s":102.4,"time_scaling_s":17.6,` +
				`"blocks_placed":63,"jumps":78,"distance_fallen":29.4}`
			resp, err := http.Post(ts.URL+"/score/new", "application/json", strings.NewReader(body))
			convey.So(err, convey.ShouldBeNil)
			_ = resp.Body.Close()
			convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusOK)

			resp, err = http.Get(ts.URL + "/scoreboard/top?total=10&unique=true")
			convey.So(err, convey.ShouldBeNil)
			defer resp.Body.Close()
			convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusOK)

			var buf strings.Builder
			_, _ = io.Copy(&buf, resp.Body)
			convey.So(buf.String(), convey.ShouldContainSubstring, `"name":"alifeee"`)
		})
	})
}

func TestRunShutdown(t *testing.T) {
	convey.Convey("Given a run on a free port with the memory driver", t, func() {
		t.Setenv("SCOREBOARD_ADDR", "127.0.0.1:0")
		t.Setenv("SCOREBOARD_STORAGE_DRIVER", "memory")

		convey.Convey("When the context is cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			done := make(chan error, 1)
			go func() { done <- run(ctx) }()
			time.Sleep(100 * time.Millisecond)
			cancel()

			convey.Convey("Then run should return cleanly", func() {
				select {
				case err := <-done:
					convey.So(err, convey.ShouldBeNil)
				case <-time.After(10 * time.Second):
					t.Fatal("run did not stop")
				}
			})
		})
	})
}
