package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/okian/doppel/internal/config"
	"github.com/okian/doppel/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func TestMainConfiguration(t *testing.T) {
	convey.Convey("Given environment overrides", t, func() {
		_ = os.Setenv("DOPPEL_ADDR", ":8080")
		_ = os.Setenv("DOPPEL_QUEUE_SIZE", "1000")
		_ = os.Setenv("DOPPEL_WORKER_COUNT", "4")
		defer func() {
			_ = os.Unsetenv("DOPPEL_ADDR")
			_ = os.Unsetenv("DOPPEL_QUEUE_SIZE")
			_ = os.Unsetenv("DOPPEL_WORKER_COUNT")
		}()

		convey.Convey("Then configuration should be loadable", func() {
			cfg, err := config.Load(context.Background())
			convey.So(err, convey.ShouldBeNil)
			convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
			convey.So(cfg.QueueSize, convey.ShouldEqual, 1000)
			convey.So(cfg.WorkerCount, convey.ShouldEqual, 4)
		})
	})

	convey.Convey("Given an invalid address", t, func() {
		_ = os.Setenv("DOPPEL_ADDR", "")
		defer func() { _ = os.Unsetenv("DOPPEL_ADDR") }()

		convey.Convey("Then run should fail before serving", func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			err := run(ctx)
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(err.Error(), convey.ShouldContainSubstring, "failed to load config")
		})
	})
}

func TestHTTPServer(t *testing.T) {
	convey.Convey("Given the assembled HTTP server", t, func() {
		ctx := context.Background()
		cfg := config.New()
		cfg.WorkerCount = 2
		svc := newService(cfg, logger.Nop())
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer svc.Stop()

		srv := newHTTPServer(ctx, cfg, svc, logger.Nop())
		convey.So(srv.Addr, convey.ShouldEqual, cfg.Addr)

		get := func(path string) *httptest.ResponseRecorder {
			w := httptest.NewRecorder()
			srv.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, http.NoBody))
			return w
		}

		convey.Convey("Then API and docs routes should share one router", func() {
			convey.So(get("/healthz").Code, convey.ShouldEqual, http.StatusOK)
			convey.So(get("/stats").Code, convey.ShouldEqual, http.StatusOK)
			convey.So(get("/api-docs").Code, convey.ShouldEqual, http.StatusOK)
			convey.So(get("/openapi.yaml").Code, convey.ShouldEqual, http.StatusOK)
			convey.So(get("/comparisons/unknown").Code, convey.ShouldEqual, http.StatusNotFound)
		})

		convey.Convey("Then a comparison without faces should report no detection", func() {
			body := `{"first": null, "second": null}`
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/compare", strings.NewReader(body))
			srv.Handler.ServeHTTP(w, req)
			convey.So(w.Code, convey.ShouldEqual, http.StatusUnprocessableEntity)
		})
	})
}

func TestServiceMetricsUpdater(t *testing.T) {
	convey.Convey("Given a short-lived context", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()
		svc := newService(config.New(), logger.Nop())

		convey.Convey("Then the updater should return when the context ends", func() {
			convey.So(func() { startServiceMetricsUpdater(ctx, svc) }, convey.ShouldNotPanic)
		})
	})
}
