package service_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/doppel/internal/adapters/repository"
	service "github.com/okian/doppel/internal/app"
	"github.com/okian/doppel/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestService_Integration(t *testing.T) {
	Convey("Given a service with full integration", t, func() {
		ctx := context.Background()
		svc := service.New(
			service.WithWorkerCount(4),
			service.WithQueueSize(1_000),
			service.WithDedupeSize(10_000),
			service.WithLogger(logger.Nop()),
			service.WithRuntimeMetricsInterval(10*time.Millisecond),
		)
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("When many comparisons are submitted concurrently", func() {
			const total = 200
			var accepted, rejected atomic.Int64
			var wg sync.WaitGroup
			for i := range total {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					_, err := svc.Submit(ctx, pair(fmt.Sprintf("bulk-%03d", i)))
					switch {
					case err == nil:
						accepted.Add(1)
					case errors.Is(err, service.ErrBackpressure):
						rejected.Add(1)
					}
				}(i)
			}
			wg.Wait()

			Convey("Then every submission should be accepted or pushed back", func() {
				So(accepted.Load()+rejected.Load(), ShouldEqual, total)
			})

			Convey("And every accepted comparison should finish", func() {
				for i := range total {
					id := fmt.Sprintf("bulk-%03d", i)
					if _, err := svc.Result(ctx, id); errors.Is(err, service.ErrNotFound) {
						continue
					}
					So(waitForStatus(svc, id).Status, ShouldEqual, repository.StatusDone)
				}
				So(svc.GetStats()["storedResults"], ShouldEqual, int(accepted.Load()))
			})

			Convey("And resubmitting an accepted ID should be a duplicate", func() {
				for i := range total {
					id := fmt.Sprintf("bulk-%03d", i)
					if _, err := svc.Result(ctx, id); err != nil && errors.Is(err, service.ErrNotFound) {
						continue
					}
					sub, err := svc.Submit(ctx, pair(id))
					So(err, ShouldBeNil)
					So(sub.Duplicate, ShouldBeTrue)
					break
				}
			})
		})

		Convey("When the service is stopped with queued work", func() {
			for i := range 50 {
				_, err := svc.Submit(ctx, pair(fmt.Sprintf("drain-%02d", i)))
				So(err, ShouldBeNil)
			}
			svc.Stop()

			Convey("Then queued comparisons should have been drained", func() {
				So(svc.GetStats()["storedResults"], ShouldEqual, 50)
			})

			Convey("And further submissions should be rejected", func() {
				_, err := svc.Submit(ctx, pair("late"))
				So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			})
		})
	})
}
