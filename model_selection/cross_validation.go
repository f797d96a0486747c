package model_selection

import (
	"context"
	"sync"
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/cartree/core/model"
	"github.com/YuminosukeSato/cartree/metrics"
	"github.com/YuminosukeSato/cartree/pkg/errors"
	"github.com/YuminosukeSato/cartree/pkg/log"
)

// EstimatorFactory returns a fresh, unfitted estimator. CrossValScore calls
// it once per fold.
type EstimatorFactory func() (model.Estimator, error)

// contextFitter is implemented by estimators that support cancellation.
type contextFitter interface {
	FitContext(ctx context.Context, X, y mat.Matrix) error
}

// CVResult stores cross-validation results
type CVResult struct {
	TrainScores []float64
	TestScores  []float64
	FitTimes    []float64 // seconds
	Estimators  []model.Estimator
}

// GetMeanScore returns mean test score
func (cv *CVResult) GetMeanScore() float64 {
	if len(cv.TestScores) == 0 {
		return 0.0
	}
	return stat.Mean(cv.TestScores, nil)
}

// GetStdScore returns the sample standard deviation of the test scores
func (cv *CVResult) GetStdScore() float64 {
	if len(cv.TestScores) <= 1 {
		return 0.0
	}
	return stat.StdDev(cv.TestScores, nil)
}

// CrossValScore fits one estimator per fold and records train and test
// accuracy. Folds run concurrently; the first failing fold's error is
// returned.
func CrossValScore(ctx context.Context, newEstimator EstimatorFactory, X, y mat.Matrix, splitter Splitter) (*CVResult, error) {
	folds, err := splitter.Split(X, y)
	if err != nil {
		return nil, err
	}
	nFolds := len(folds)
	logger := log.GetLoggerWithName("model_selection")

	result := &CVResult{
		TrainScores: make([]float64, nFolds),
		TestScores:  make([]float64, nFolds),
		FitTimes:    make([]float64, nFolds),
		Estimators:  make([]model.Estimator, nFolds),
	}

	var wg sync.WaitGroup
	errs := make([]error, nFolds)
	for foldIdx := range folds {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			errs[idx] = runFold(ctx, newEstimator, X, y, folds[idx], idx, result)
		}(foldIdx)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	logger.Info("Cross-validation completed",
		log.PhaseKey, log.PhaseValidation,
		"cv.folds", nFolds,
		log.AccuracyKey, result.GetMeanScore(),
		"cv.std", result.GetStdScore(),
	)
	return result, nil
}

func runFold(ctx context.Context, newEstimator EstimatorFactory, X, y mat.Matrix, fold Fold, idx int, result *CVResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	est, err := newEstimator()
	if err != nil {
		return errors.Wrapf(err, "fold %d: creating estimator", idx)
	}

	trainX, trainY := extractSubset(X, y, fold.TrainIndices)
	testX, testY := extractSubset(X, y, fold.TestIndices)

	start := time.Now()
	if cf, ok := est.(contextFitter); ok {
		err = cf.FitContext(ctx, trainX, trainY)
	} else {
		err = est.Fit(trainX, trainY)
	}
	if err != nil {
		return errors.Wrapf(err, "fold %d training failed", idx)
	}
	result.FitTimes[idx] = time.Since(start).Seconds()
	result.Estimators[idx] = est

	if result.TrainScores[idx], err = accuracy(est, trainX, trainY); err != nil {
		return errors.Wrapf(err, "fold %d train prediction failed", idx)
	}
	if result.TestScores[idx], err = accuracy(est, testX, testY); err != nil {
		return errors.Wrapf(err, "fold %d test prediction failed", idx)
	}
	return nil
}

func accuracy(est model.Estimator, X, y mat.Matrix) (float64, error) {
	pred, err := est.Predict(X)
	if err != nil {
		return 0, err
	}
	return metrics.AccuracyMatrix(y, pred)
}
