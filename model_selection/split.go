package model_selection

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/cartree/pkg/errors"
)

// Split is the result of TrainTestSplit.
type Split struct {
	XTrain, XTest *mat.Dense
	YTrain, YTest *mat.Dense

	// TrainIndices and TestIndices are the original row numbers.
	TrainIndices []int
	TestIndices  []int
}

// TrainTestSplit shuffles the rows of X and y with seed and holds out
// ceil(n*testSize) of them for testing. testSize must lie in (0, 1) and
// both parts must end up non-empty.
func TrainTestSplit(X, y mat.Matrix, testSize float64, seed uint64) (*Split, error) {
	const op = "TrainTestSplit"
	nSamples, _ := X.Dims()
	if nSamples == 0 {
		return nil, errors.NewModelError(op, "empty data", errors.ErrEmptyData)
	}
	if yRows, _ := y.Dims(); yRows != nSamples {
		return nil, errors.NewDimensionError(op, nSamples, yRows, 0)
	}
	if !(testSize > 0 && testSize < 1) {
		return nil, errors.NewValidationError("test_size", "must be in (0, 1)", testSize)
	}

	nTest := int(math.Ceil(float64(nSamples) * testSize))
	if nTest >= nSamples {
		return nil, errors.NewValidationError("test_size", "leaves no training rows", testSize)
	}

	perm := identity(nSamples)
	newRand(seed).Shuffle(len(perm), func(i, j int) {
		perm[i], perm[j] = perm[j], perm[i]
	})

	s := &Split{
		TestIndices:  perm[:nTest],
		TrainIndices: perm[nTest:],
	}
	s.XTrain, s.YTrain = extractSubset(X, y, s.TrainIndices)
	s.XTest, s.YTest = extractSubset(X, y, s.TestIndices)
	return s, nil
}
