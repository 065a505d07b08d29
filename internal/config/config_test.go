package config_test

import (
	"errors"
	"runtime"
	"testing"

	"github.com/okian/doppel/internal/config"
	"github.com/okian/doppel/internal/domain/scoring"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with defaults", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.LogFormat, convey.ShouldEqual, "text")
			convey.So(cfg.QueueSize, convey.ShouldEqual, 10_000)
			convey.So(cfg.WorkerCount, convey.ShouldEqual, runtime.NumCPU()*2)
			convey.So(cfg.DefaultThreshold, convey.ShouldEqual, 0.5)
			convey.So(cfg.DescriptorWeight, convey.ShouldEqual, 0.7)
			convey.So(cfg.LandmarkWeight, convey.ShouldEqual, 0.3)
			convey.So(cfg.LandmarkDecay, convey.ShouldEqual, 5.0)
			convey.So(cfg.DoppelgangerLandmarkMin, convey.ShouldEqual, 50.0)
			convey.So(cfg.DoppelgangerDescriptorMax, convey.ShouldEqual, 49.0)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given configs with one bad setting", t, func() {
		cases := map[string]func(*config.Config){
			"empty addr":         func(c *config.Config) { c.Addr = "" },
			"unknown log format": func(c *config.Config) { c.LogFormat = "xml" },
			"zero queue":         func(c *config.Config) { c.QueueSize = 0 },
			"zero workers":       func(c *config.Config) { c.WorkerCount = 0 },
			"zero dedupe":        func(c *config.Config) { c.DedupeSize = 0 },
			"zero capacity":      func(c *config.Config) { c.ResultCapacity = 0 },
			"zero top limit":     func(c *config.Config) { c.MaxTopLimit = 0 },
			"threshold too high": func(c *config.Config) { c.DefaultThreshold = 1.1 },
			"negative dim":       func(c *config.Config) { c.EmbeddingDim = -1 },
			"negative weight":    func(c *config.Config) { c.LandmarkWeight = -0.3 },
			"zero weights":       func(c *config.Config) { c.DescriptorWeight, c.LandmarkWeight = 0, 0 },
			"zero decay":         func(c *config.Config) { c.LandmarkDecay = 0 },
		}

		for name, mutate := range cases {
			convey.Convey("Then "+name+" is rejected", func() {
				cfg := config.New()
				mutate(cfg)
				convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		}
	})
}

func TestConfig_ScorerOptions(t *testing.T) {
	convey.Convey("Given a config that scores on landmarks only", t, func() {
		cfg := config.New()
		cfg.DescriptorWeight, cfg.LandmarkWeight = 0, 1

		convey.Convey("Then its scorer should ignore the embedding distance", func() {
			res, err := scoring.NewScorer(cfg.ScorerOptions()...).Score(scoring.Input{
				EmbeddingDistance: 2,
				Confidence1:       1,
				Confidence2:       1,
				Threshold:         0.5,
			})
			convey.So(err, convey.ShouldBeNil)
			convey.So(res.DescriptorScore, convey.ShouldEqual, 0.0)
			convey.So(res.OverallScore, convey.ShouldEqual, 100.0)
			convey.So(res.IsMatch, convey.ShouldBeTrue)
		})
	})
}
