package dedupe_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	dedupe "github.com/okian/doppel/internal/domain/dedupe"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInMemoryDeduper(t *testing.T) {
	ctx := context.Background()

	Convey("Given a new InMemoryDeduper", t, func() {
		d := dedupe.NewInMemoryDeduper()
		So(d.Size(), ShouldEqual, 0)

		Convey("When an ID is new", func() {
			seen := d.SeenAndRecord(ctx, "cmp-1")

			Convey("Then it is recorded", func() {
				So(seen, ShouldBeFalse)
				So(d.Seen(ctx, "cmp-1"), ShouldBeTrue)
				So(d.Size(), ShouldEqual, 1)
			})

			Convey("Then a second submission is reported as seen", func() {
				So(d.SeenAndRecord(ctx, "cmp-1"), ShouldBeTrue)
				So(d.Size(), ShouldEqual, 1)
			})
		})

		Convey("When an ID is unrecorded", func() {
			d.SeenAndRecord(ctx, "cmp-1")
			d.SeenAndRecord(ctx, "cmp-2")
			d.Unrecord(ctx, "cmp-1")

			Convey("Then it can be recorded again", func() {
				So(d.Seen(ctx, "cmp-1"), ShouldBeFalse)
				So(d.Size(), ShouldEqual, 1)
				So(d.SeenAndRecord(ctx, "cmp-1"), ShouldBeFalse)
			})

			Convey("Then unrecording an unknown ID is a no-op", func() {
				d.Unrecord(ctx, "missing")
				So(d.Size(), ShouldEqual, 1)
			})
		})

		Convey("Seen does not record", func() {
			So(d.Seen(ctx, "cmp-9"), ShouldBeFalse)
			So(d.Size(), ShouldEqual, 0)
		})
	})

	Convey("Given a bounded deduper", t, func() {
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(3))
		for i := 1; i <= 3; i++ {
			d.SeenAndRecord(ctx, fmt.Sprintf("cmp-%d", i))
		}

		Convey("When a fourth ID arrives", func() {
			d.SeenAndRecord(ctx, "cmp-4")

			Convey("Then the oldest ID is forgotten", func() {
				So(d.Size(), ShouldEqual, 3)
				So(d.Seen(ctx, "cmp-1"), ShouldBeFalse)
				So(d.Seen(ctx, "cmp-2"), ShouldBeTrue)
				So(d.Seen(ctx, "cmp-4"), ShouldBeTrue)
			})
		})

		Convey("When a slot is freed by Unrecord", func() {
			d.Unrecord(ctx, "cmp-2")
			d.SeenAndRecord(ctx, "cmp-4")

			Convey("Then nothing is evicted", func() {
				So(d.Size(), ShouldEqual, 3)
				So(d.Seen(ctx, "cmp-1"), ShouldBeTrue)
			})
		})
	})

	Convey("Given an unbounded deduper", t, func() {
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(0))
		for i := 0; i < 1000; i++ {
			d.SeenAndRecord(ctx, fmt.Sprintf("cmp-%d", i))
		}
		So(d.Size(), ShouldEqual, 1000)
		So(d.Seen(ctx, "cmp-0"), ShouldBeTrue)
	})

	Convey("Given concurrent submissions of the same IDs", t, func() {
		d := dedupe.NewInMemoryDeduper()
		var wg sync.WaitGroup
		var mu sync.Mutex
		fresh := 0

		for g := 0; g < 8; g++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := 0; i < 100; i++ {
					if !d.SeenAndRecord(ctx, fmt.Sprintf("cmp-%d", i)) {
						mu.Lock()
						fresh++
						mu.Unlock()
					}
				}
			}()
		}
		wg.Wait()

		Convey("Then each ID is recorded exactly once", func() {
			So(fresh, ShouldEqual, 100)
			So(d.Size(), ShouldEqual, 100)
		})
	})
}
