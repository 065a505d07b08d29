package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/doppel/internal/adapters/repository"
	service "github.com/okian/doppel/internal/app"
	"github.com/okian/doppel/internal/domain/landmark"
	"github.com/okian/doppel/internal/domain/model"
	"github.com/okian/doppel/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

func detection(angle, scale float64, embedding ...float32) *model.Detection {
	return &model.Detection{
		Confidence: 0.9,
		Landmarks:  landmark.Transform(landmark.Template(), angle, scale, 12, -4),
		Embedding:  embedding,
	}
}

func pair(id string, second ...float32) model.Comparison {
	if len(second) == 0 {
		second = []float32{0.1, 0.2, 0.3}
	}
	return model.Comparison{
		ID:     id,
		First:  detection(0, 1, 0.1, 0.2, 0.3),
		Second: detection(0.3, 1.8, second...),
	}
}

// waitForStatus polls until the comparison leaves the pending state.
func waitForStatus(svc *service.Service, id string) repository.Record {
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		rec, err := svc.Result(context.Background(), id)
		if err == nil && rec.Status != repository.StatusPending {
			return rec
		}
		time.Sleep(5 * time.Millisecond)
	}
	return repository.Record{ID: id, Status: repository.StatusPending}
}

func TestService_New(t *testing.T) {
	Convey("Given a new service with default options", t, func() {
		svc := service.New()

		Convey("Then it should have sensible defaults", func() {
			So(svc, ShouldNotBeNil)
			stats := svc.GetStats()
			So(stats["started"], ShouldBeFalse)
			So(stats["defaultThreshold"], ShouldEqual, 0.5)
		})
	})

	Convey("Given a new service with custom options", t, func() {
		svc := service.New(
			service.WithWorkerCount(8),
			service.WithQueueSize(500),
			service.WithDedupeSize(250),
			service.WithResultCapacity(100),
			service.WithDefaultThreshold(0.8),
		)

		Convey("Then the options should be reflected in its stats", func() {
			stats := svc.GetStats()
			So(stats["workerCount"], ShouldEqual, 8)
			So(stats["queueSize"], ShouldEqual, 500)
			So(stats["dedupeSize"], ShouldEqual, 250)
			So(stats["resultCapacity"], ShouldEqual, 100)
			So(stats["defaultThreshold"], ShouldEqual, 0.8)
		})
	})
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a new service", t, func() {
		svc := service.New(service.WithWorkerCount(2))
		defer svc.Stop()

		Convey("When starting the service", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			err := svc.Start(ctx)

			Convey("Then it should be marked as started", func() {
				So(err, ShouldBeNil)
				stats := svc.GetStats()
				So(stats["started"], ShouldBeTrue)
				So(stats["queueLength"], ShouldEqual, 0)
			})

			Convey("And starting twice should be harmless", func() {
				So(svc.Start(ctx), ShouldBeNil)
			})

			Convey("And after stopping it should be marked as stopped", func() {
				svc.Stop()
				So(svc.GetStats()["started"], ShouldBeFalse)

				Convey("And it can be started again", func() {
					So(svc.Start(ctx), ShouldBeNil)
					sub, err := svc.Submit(ctx, pair("restart"))
					So(err, ShouldBeNil)
					So(waitForStatus(svc, sub.ID).Status, ShouldEqual, repository.StatusDone)
				})
			})
		})
	})
}

func TestService_Compare(t *testing.T) {
	Convey("Given a service that was never started", t, func() {
		svc := service.New()
		ctx := context.Background()

		Convey("When comparing a face with a rotated, scaled copy of itself", func() {
			res, err := svc.Compare(ctx, pair("sync"))

			Convey("Then the comparison should be a perfect match", func() {
				So(err, ShouldBeNil)
				So(res.OverallScore, ShouldEqual, 100.0)
				So(res.IsMatch, ShouldBeTrue)
				So(res.Threshold, ShouldEqual, 50.0)
				So(res.Landmarks1, ShouldEqual, model.LandmarkCount)
			})
		})

		Convey("When one side has no detection", func() {
			req := pair("missing")
			req.Second = nil
			_, err := svc.Compare(ctx, req)

			Convey("Then it should report no detection", func() {
				So(errors.Is(err, model.ErrNoDetection), ShouldBeTrue)
			})
		})

		Convey("When scorer options are supplied", func() {
			custom := service.New(service.WithScorerOptions(scoring.WithWeights(0, 1)))
			res, err := custom.Compare(ctx, pair("landmarks-only", 0.9, 0.9, 0.9))

			Convey("Then they should drive the verdict", func() {
				So(err, ShouldBeNil)
				So(res.OverallScore, ShouldEqual, 100.0)
			})
		})
	})
}

func TestService_Submit(t *testing.T) {
	Convey("Given a service", t, func() {
		ctx := context.Background()
		svc := service.New(service.WithWorkerCount(2))

		Convey("When submitting before start", func() {
			_, err := svc.Submit(ctx, pair("early"))

			Convey("Then it should be rejected", func() {
				So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			})
		})

		Convey("When the service is started", func() {
			So(svc.Start(ctx), ShouldBeNil)
			defer svc.Stop()

			Convey("And a comparison without an ID is submitted", func() {
				sub, err := svc.Submit(ctx, pair(""))

				Convey("Then an ID should be assigned and the result stored", func() {
					So(err, ShouldBeNil)
					So(sub.ID, ShouldNotBeEmpty)
					So(sub.Duplicate, ShouldBeFalse)

					rec := waitForStatus(svc, sub.ID)
					So(rec.Status, ShouldEqual, repository.StatusDone)
					So(rec.Result, ShouldNotBeNil)
					So(rec.Result.OverallScore, ShouldEqual, 100.0)
				})
			})

			Convey("And the same ID is submitted twice", func() {
				first, err1 := svc.Submit(ctx, pair("twice"))
				second, err2 := svc.Submit(ctx, pair("twice"))

				Convey("Then the second submission should be a duplicate", func() {
					So(err1, ShouldBeNil)
					So(err2, ShouldBeNil)
					So(first.Duplicate, ShouldBeFalse)
					So(second.Duplicate, ShouldBeTrue)
					So(second.ID, ShouldEqual, "twice")
				})
			})

			Convey("And an invalid comparison is submitted", func() {
				req := pair("broken")
				req.First.Landmarks = req.First.Landmarks[:10]
				_, err := svc.Submit(ctx, req)

				Convey("Then a failed record should be stored", func() {
					So(err, ShouldBeNil)
					rec := waitForStatus(svc, "broken")
					So(rec.Status, ShouldEqual, repository.StatusFailed)
					So(rec.ErrorKind, ShouldEqual, model.KindInvalidInput)
					So(rec.Result, ShouldBeNil)
				})
			})
		})
	})
}

func TestService_ResultAndTopN(t *testing.T) {
	Convey("Given a started service with finished comparisons", t, func() {
		ctx := context.Background()
		svc := service.New(service.WithWorkerCount(2))
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		_, err := svc.Submit(ctx, pair("identical"))
		So(err, ShouldBeNil)
		_, err = svc.Submit(ctx, pair("different", 0.5, 0.2, 0.3))
		So(err, ShouldBeNil)
		So(waitForStatus(svc, "identical").Status, ShouldEqual, repository.StatusDone)
		So(waitForStatus(svc, "different").Status, ShouldEqual, repository.StatusDone)

		Convey("When asking for an unknown ID", func() {
			_, err := svc.Result(ctx, "nope")

			Convey("Then it should not be found", func() {
				So(errors.Is(err, service.ErrNotFound), ShouldBeTrue)
			})
		})

		Convey("When asking for the top comparisons", func() {
			entries, err := svc.TopN(ctx, 10)

			Convey("Then they should be ordered by overall score", func() {
				So(err, ShouldBeNil)
				So(entries, ShouldHaveLength, 2)
				So(entries[0].ID, ShouldEqual, "identical")
				So(entries[0].Rank, ShouldEqual, 1)
				So(entries[1].ID, ShouldEqual, "different")
				So(entries[1].OverallScore, ShouldEqual, 72.0)
				So(entries[1].Rank, ShouldEqual, 2)
			})
		})

		Convey("When asking for a non-positive limit", func() {
			_, err := svc.TopN(ctx, 0)

			Convey("Then it should be rejected", func() {
				So(errors.Is(err, service.ErrInvalidLimit), ShouldBeTrue)
			})
		})

		Convey("When reading stats", func() {
			stats := svc.GetStats()

			Convey("Then they should count the stored comparisons", func() {
				So(stats["storedResults"], ShouldEqual, 2)
				So(stats["rankedResults"], ShouldEqual, 2)
				So(stats["queueLength"], ShouldEqual, 0)
			})
		})
	})
}

func TestService_EvictedResult(t *testing.T) {
	Convey("Given a started service that keeps a single result", t, func() {
		ctx := context.Background()
		svc := service.New(service.WithWorkerCount(1), service.WithResultCapacity(1), service.WithDedupeSize(10))
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		_, err := svc.Submit(ctx, pair("a"))
		So(err, ShouldBeNil)
		So(waitForStatus(svc, "a").Status, ShouldEqual, repository.StatusDone)
		_, err = svc.Submit(ctx, pair("b"))
		So(err, ShouldBeNil)
		So(waitForStatus(svc, "b").Status, ShouldEqual, repository.StatusDone)

		Convey("When asking for the evicted comparison", func() {
			_, err := svc.Result(ctx, "a")

			Convey("Then it should not be found instead of pending", func() {
				So(errors.Is(err, service.ErrNotFound), ShouldBeTrue)
			})
		})

		Convey("When resubmitting the evicted ID", func() {
			sub, err := svc.Submit(ctx, pair("a"))

			Convey("Then it should still count as a duplicate", func() {
				So(err, ShouldBeNil)
				So(sub.Duplicate, ShouldBeTrue)
			})
		})

		Convey("When reading stats", func() {
			stats := svc.GetStats()

			Convey("Then nothing should be pending", func() {
				So(stats["pendingResults"], ShouldEqual, 0)
				So(stats["storedResults"], ShouldEqual, 1)
			})
		})
	})

	Convey("Given a stopped service with a queued comparison", t, func() {
		ctx := context.Background()
		svc := service.New(service.WithWorkerCount(1))
		So(svc.Start(ctx), ShouldBeNil)
		_, err := svc.Submit(ctx, pair("drained"))
		So(err, ShouldBeNil)
		svc.Stop()

		Convey("Then no comparison should be left pending", func() {
			So(svc.GetStats()["pendingResults"], ShouldEqual, 0)
			rec, err := svc.Result(ctx, "drained")
			So(err, ShouldBeNil)
			So(rec.Status, ShouldEqual, repository.StatusDone)
		})
	})
}
