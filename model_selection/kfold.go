// Package model_selection provides data splitting and cross-validation for
// cartree estimators.
package model_selection

import (
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/cartree/pkg/errors"
)

// Splitter generates cross-validation folds.
type Splitter interface {
	Split(X, y mat.Matrix) ([]Fold, error)
	GetNSplits() int
}

// Fold holds the row indices of one cross-validation round.
type Fold struct {
	TrainIndices []int
	TestIndices  []int
}

// KFold implements k-fold cross-validation splitter
type KFold struct {
	NSplits    int
	Shuffle    bool
	RandomSeed uint64
}

// NewKFold creates a new k-fold splitter. nSplits below 2 falls back to 5.
func NewKFold(nSplits int, shuffle bool, randomSeed uint64) *KFold {
	if nSplits < 2 {
		nSplits = 5
	}
	return &KFold{
		NSplits:    nSplits,
		Shuffle:    shuffle,
		RandomSeed: randomSeed,
	}
}

// GetNSplits returns the number of splits
func (kf *KFold) GetNSplits() int {
	return kf.NSplits
}

// Split generates train/test indices for each fold. The first n%k folds
// get one extra test row.
func (kf *KFold) Split(X, _ mat.Matrix) ([]Fold, error) {
	nSamples, _ := X.Dims()
	if nSamples < kf.NSplits {
		return nil, errors.NewValidationError("n_splits", "cannot exceed the number of samples", kf.NSplits)
	}

	indices := identity(nSamples)
	if kf.Shuffle {
		newRand(kf.RandomSeed).Shuffle(len(indices), func(i, j int) {
			indices[i], indices[j] = indices[j], indices[i]
		})
	}

	folds := make([]Fold, kf.NSplits)
	foldSize := nSamples / kf.NSplits
	remainder := nSamples % kf.NSplits

	current := 0
	for i := range folds {
		testSize := foldSize
		if i < remainder {
			testSize++
		}
		test := append([]int(nil), indices[current:current+testSize]...)
		folds[i] = Fold{
			TrainIndices: complement(nSamples, test),
			TestIndices:  test,
		}
		current += testSize
	}
	return folds, nil
}

// StratifiedKFold implements k-fold splitting that keeps the class
// proportions of y in every fold.
type StratifiedKFold struct {
	NSplits    int
	Shuffle    bool
	RandomSeed uint64
}

// NewStratifiedKFold creates a new stratified k-fold splitter
func NewStratifiedKFold(nSplits int, shuffle bool, randomSeed uint64) *StratifiedKFold {
	if nSplits < 2 {
		nSplits = 5
	}
	return &StratifiedKFold{
		NSplits:    nSplits,
		Shuffle:    shuffle,
		RandomSeed: randomSeed,
	}
}

// GetNSplits returns the number of splits
func (skf *StratifiedKFold) GetNSplits() int {
	return skf.NSplits
}

// Split distributes the rows of each class round the folds. Classes are
// visited in ascending label order so that a seed always gives the same
// folds.
func (skf *StratifiedKFold) Split(X, y mat.Matrix) ([]Fold, error) {
	nSamples, _ := X.Dims()
	if nSamples < skf.NSplits {
		return nil, errors.NewValidationError("n_splits", "cannot exceed the number of samples", skf.NSplits)
	}
	if yRows, _ := y.Dims(); yRows != nSamples {
		return nil, errors.NewDimensionError("StratifiedKFold.Split", nSamples, yRows, 0)
	}

	classIndices := make(map[float64][]int)
	for i := 0; i < nSamples; i++ {
		label := y.At(i, 0)
		classIndices[label] = append(classIndices[label], i)
	}
	labels := make([]float64, 0, len(classIndices))
	for label := range classIndices {
		labels = append(labels, label)
	}
	sort.Float64s(labels)

	var r *rand.Rand
	if skf.Shuffle {
		r = newRand(skf.RandomSeed)
	}

	tests := make([][]int, skf.NSplits)
	for _, label := range labels {
		indices := classIndices[label]
		if r != nil {
			r.Shuffle(len(indices), func(i, j int) {
				indices[i], indices[j] = indices[j], indices[i]
			})
		}
		foldSize := len(indices) / skf.NSplits
		remainder := len(indices) % skf.NSplits
		current := 0
		for i := 0; i < skf.NSplits; i++ {
			testSize := foldSize
			if i < remainder {
				testSize++
			}
			tests[i] = append(tests[i], indices[current:current+testSize]...)
			current += testSize
		}
	}

	folds := make([]Fold, skf.NSplits)
	for i, test := range tests {
		sort.Ints(test)
		folds[i] = Fold{
			TrainIndices: complement(nSamples, test),
			TestIndices:  test,
		}
	}
	return folds, nil
}

func newRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed))
}

func identity(n int) []int {
	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	return indices
}

// complement returns the indices in [0, n) that are not in excluded, in
// ascending order.
func complement(n int, excluded []int) []int {
	skip := make(map[int]struct{}, len(excluded))
	for _, idx := range excluded {
		skip[idx] = struct{}{}
	}
	out := make([]int, 0, n-len(excluded))
	for i := 0; i < n; i++ {
		if _, ok := skip[i]; !ok {
			out = append(out, i)
		}
	}
	return out
}

// extractSubset copies the given rows of X and y, in the given order.
func extractSubset(X, y mat.Matrix, indices []int) (*mat.Dense, *mat.Dense) {
	_, xCols := X.Dims()
	_, yCols := y.Dims()

	xSubset := mat.NewDense(len(indices), xCols, nil)
	ySubset := mat.NewDense(len(indices), yCols, nil)
	for i, idx := range indices {
		for j := 0; j < xCols; j++ {
			xSubset.Set(i, j, X.At(idx, j))
		}
		for j := 0; j < yCols; j++ {
			ySubset.Set(i, j, y.At(idx, j))
		}
	}
	return xSubset, ySubset
}
