package service

import (
	"context"
	"time"

	"github.com/okian/doppel/internal/domain/comparison"
	"github.com/okian/doppel/internal/domain/model"
	"github.com/okian/doppel/pkg/logger"
	"github.com/okian/doppel/pkg/metrics"
)

// instrumentedComparer records metrics and debug logs around every comparison,
// whether it runs synchronously or on a worker.
type instrumentedComparer struct {
	comparator *comparison.Comparator
	logger     logger.Logger
}

func (i *instrumentedComparer) Evaluate(ctx context.Context, req model.Comparison) (comparison.Outcome, error) { //nolint:gocritic // hugeParam: mirrors worker.Comparer
	start := time.Now()
	o, err := i.comparator.Evaluate(ctx, req)
	metrics.RecordComparisonLatency(float64(time.Since(start).Microseconds()) / 1000)

	if err != nil {
		kind := model.ErrorKind(err)
		metrics.RecordComparisonError(kind)
		i.logger.Debug(ctx, "comparison failed",
			logger.String("id", req.ID),
			logger.String("kind", kind),
			logger.Error(err),
		)
		return o, err
	}

	outcome := metrics.OutcomeNoMatch
	if o.Result.IsMatch {
		outcome = metrics.OutcomeMatch
	}
	if err := metrics.RecordComparison(outcome); err != nil {
		i.logger.Warn(ctx, "failed to record comparison", logger.Error(err))
	}
	metrics.RecordOverallScore(o.Result.OverallScore)
	metrics.RecordLandmarkDistance(o.LandmarkDistance)
	if o.Result.IsPossibleDoppelganger {
		metrics.RecordDoppelganger()
	}
	if o.Reflection {
		metrics.RecordReflection()
		i.logger.Debug(ctx, "landmark fit used a reflection", logger.String("id", req.ID))
	}

	i.logger.Debug(ctx, "comparison scored",
		logger.String("id", req.ID),
		logger.Float64("overall", o.Result.OverallScore),
		logger.Float64("embedding_distance", o.EmbeddingDistance),
		logger.Float64("landmark_distance", o.LandmarkDistance),
		logger.Bool("match", o.Result.IsMatch),
	)
	return o, nil
}
