package tree

import (
	"context"
	"sort"
	"sync"
	"time"

	mapset "github.com/deckarep/golang-set"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/cartree/core/model"
	"github.com/YuminosukeSato/cartree/core/parallel"
	"github.com/YuminosukeSato/cartree/metrics"
	"github.com/YuminosukeSato/cartree/pkg/errors"
	"github.com/YuminosukeSato/cartree/pkg/log"
)

const modelName = "DecisionTreeClassifier"

// Rows predicted per call below which prediction stays on one goroutine.
const parallelThreshold = 1000

// Default hyperparameters.
const (
	DefaultMinSamplesSplit = 2
	DefaultMaxDepth        = 2
	DefaultCriterion       = CriterionGini
)

// DecisionTreeClassifier is a binary decision tree for classification.
//
// A node stops splitting when it holds fewer than min_samples_split rows or
// its depth exceeds max_depth; otherwise the split with the largest
// information gain is taken as long as that gain is positive. Leaves
// predict the majority label of their training rows.
//
// Predict and its variants may be called concurrently once Fit has
// returned. Fit must not run concurrently with any other method.
type DecisionTreeClassifier struct {
	state *model.StateManager

	// Hyperparameters
	minSamplesSplit int
	maxDepth        int
	criterion       string

	logger log.Logger

	mu                  sync.RWMutex
	tree                *Tree
	classes_            []float64
	nClasses_           int
	featureImportances_ []float64
}

// Option configures a DecisionTreeClassifier.
type Option func(*DecisionTreeClassifier)

// WithMinSamplesSplit sets the minimum number of rows a node needs to be
// considered for splitting. Must be >= 1.
func WithMinSamplesSplit(n int) Option {
	return func(dt *DecisionTreeClassifier) {
		dt.minSamplesSplit = n
	}
}

// WithMaxDepth sets the deepest node depth (root = 0) that may still be
// split. Must be >= 0.
func WithMaxDepth(depth int) Option {
	return func(dt *DecisionTreeClassifier) {
		dt.maxDepth = depth
	}
}

// WithCriterion selects the impurity function, "gini" or "entropy".
func WithCriterion(criterion string) Option {
	return func(dt *DecisionTreeClassifier) {
		dt.criterion = criterion
	}
}

// WithLogger overrides the logger obtained from the package-level provider.
func WithLogger(logger log.Logger) Option {
	return func(dt *DecisionTreeClassifier) {
		dt.logger = logger
	}
}

// NewDecisionTreeClassifier creates an unfitted classifier. Invalid
// hyperparameters are reported as a ValidationError.
func NewDecisionTreeClassifier(opts ...Option) (*DecisionTreeClassifier, error) {
	dt := &DecisionTreeClassifier{
		state:           model.NewStateManager(),
		minSamplesSplit: DefaultMinSamplesSplit,
		maxDepth:        DefaultMaxDepth,
		criterion:       DefaultCriterion,
	}
	for _, opt := range opts {
		opt(dt)
	}
	if err := validateParams(dt.minSamplesSplit, dt.maxDepth, dt.criterion); err != nil {
		return nil, err
	}
	return dt, nil
}

func validateParams(minSamplesSplit, maxDepth int, criterion string) error {
	if minSamplesSplit < 1 {
		return errors.NewValidationError("min_samples_split", "must be at least 1", minSamplesSplit)
	}
	if maxDepth < 0 {
		return errors.NewValidationError("max_depth", "must be non-negative", maxDepth)
	}
	if criterion != CriterionGini && criterion != CriterionEntropy {
		return errors.NewValidationError("criterion", "must be \"gini\" or \"entropy\"", criterion)
	}
	return nil
}

func (dt *DecisionTreeClassifier) getLogger() log.Logger {
	logger := dt.logger
	if logger == nil {
		logger = log.GetLoggerWithName("tree.classifier")
	}
	return logger.With(log.ModelNameKey, modelName)
}

// Fit builds a new tree from X (n×d) and y (n×1), discarding any previous
// tree.
func (dt *DecisionTreeClassifier) Fit(X, y mat.Matrix) error {
	return dt.FitContext(context.Background(), X, y)
}

// FitSlices is Fit for row-major slices.
func (dt *DecisionTreeClassifier) FitSlices(X [][]float64, y []float64) error {
	if len(X) == 0 || len(X[0]) == 0 {
		return errors.NewModelError("DecisionTreeClassifier.FitSlices", "empty data", errors.ErrEmptyData)
	}
	if len(y) != len(X) {
		return errors.NewDimensionError("DecisionTreeClassifier.FitSlices", len(X), len(y), 0)
	}
	nFeatures := len(X[0])
	data := make([]float64, 0, len(X)*nFeatures)
	for _, row := range X {
		if len(row) != nFeatures {
			return errors.NewDimensionError("DecisionTreeClassifier.FitSlices", nFeatures, len(row), 1)
		}
		data = append(data, row...)
	}
	labels := make([]float64, len(y))
	copy(labels, y)
	return dt.Fit(mat.NewDense(len(X), nFeatures, data), mat.NewVecDense(len(labels), labels))
}

// FitContext is Fit with cancellation. ctx is checked before every node
// expansion.
func (dt *DecisionTreeClassifier) FitContext(ctx context.Context, X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "DecisionTreeClassifier.Fit")

	start := time.Now()
	logger := dt.getLogger()

	labels, err := dt.validateFitInput(X, y)
	if err != nil {
		return err
	}
	nSamples, nFeatures := X.Dims()

	dt.state.Reset()
	dt.mu.Lock()
	dt.tree = nil
	dt.mu.Unlock()

	if dt.criterion == CriterionEntropy {
		errors.Warn(errors.NewDeprecationWarning(
			"criterion=\"entropy\"",
			"it weights classes by log2 of the label value instead of the class probability",
			"criterion=\"gini\"",
		))
		for _, label := range labels {
			if label <= 0 {
				return errors.NewValidationError("y", "criterion \"entropy\" requires strictly positive labels", label)
			}
		}
	}

	classes := uniqueClasses(labels)

	logger.Info("Fit started",
		log.OperationKey, log.OperationFit,
		log.PhaseKey, log.PhaseTraining,
		log.SamplesKey, nSamples,
		log.FeaturesKey, nFeatures,
		log.ClassesKey, len(classes),
		log.HyperParamsKey, dt.GetParams(),
	)

	b := newBuilder(ctx, X, labels, classes, dt.minSamplesSplit, dt.maxDepth, dt.criterion, logger)
	if _, err := b.build(ctx, allRows(nSamples), 0); err != nil {
		logger.Error("Fit failed", err, log.OperationKey, log.OperationFit, log.ErrorCodeKey, errors.Code(err))
		return errors.Wrap(err, "DecisionTreeClassifier.Fit")
	}

	tree := &Tree{
		Nodes:     b.nodes,
		Classes:   classes,
		NFeatures: nFeatures,
		Criterion: dt.criterion,
	}
	dt.install(tree, nSamples)

	logger.Info("Fit completed",
		log.OperationKey, log.OperationFit,
		log.TreeDepthKey, tree.Depth(),
		log.TreeLeavesKey, tree.NLeaves(),
		log.TreeNodesKey, len(tree.Nodes),
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return nil
}

// install publishes a fitted tree.
func (dt *DecisionTreeClassifier) install(tree *Tree, nSamples int) {
	dt.mu.Lock()
	dt.tree = tree
	dt.classes_ = tree.Classes
	dt.nClasses_ = len(tree.Classes)
	dt.featureImportances_ = tree.FeatureImportances()
	dt.mu.Unlock()
	dt.state.SetFitted(tree.NFeatures, nSamples)
}

// validateFitInput checks shapes and values and returns the label column.
func (dt *DecisionTreeClassifier) validateFitInput(X, y mat.Matrix) ([]float64, error) {
	const op = "DecisionTreeClassifier.Fit"
	nSamples, nFeatures := X.Dims()
	if nSamples == 0 || nFeatures == 0 {
		return nil, errors.NewModelError(op, "empty data", errors.ErrEmptyData)
	}
	yRows, yCols := y.Dims()
	if yRows != nSamples {
		return nil, errors.NewDimensionError(op, nSamples, yRows, 0)
	}
	if yCols != 1 {
		return nil, errors.NewValueError(op, "y must be a column vector (n×1 matrix)")
	}
	if err := errors.CheckMatrix(op, X, nSamples, nFeatures); err != nil {
		return nil, err
	}
	labels := mat.Col(nil, 0, y)
	if err := errors.CheckFinite(op, labels); err != nil {
		return nil, err
	}
	return labels, nil
}

// uniqueClasses returns the distinct labels in ascending order.
func uniqueClasses(labels []float64) []float64 {
	set := mapset.NewThreadUnsafeSet()
	for _, label := range labels {
		set.Add(label)
	}
	classes := make([]float64, 0, set.Cardinality())
	for _, v := range set.ToSlice() {
		classes = append(classes, v.(float64))
	}
	sort.Float64s(classes)
	return classes
}

// IsFitted reports whether Fit has completed successfully.
func (dt *DecisionTreeClassifier) IsFitted() bool {
	return dt.state.IsFitted()
}

// fittedTree returns the current tree or a NotFittedError.
func (dt *DecisionTreeClassifier) fittedTree(method string) (*Tree, error) {
	if err := dt.state.RequireFitted(modelName, method); err != nil {
		return nil, err
	}
	dt.mu.RLock()
	defer dt.mu.RUnlock()
	if dt.tree == nil {
		return nil, errors.NewNotFittedError(modelName, method)
	}
	return dt.tree, nil
}

// Predict returns an n×1 matrix with one predicted label per row of X.
func (dt *DecisionTreeClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	tree, err := dt.fittedTree("Predict")
	if err != nil {
		return nil, err
	}
	r, c := X.Dims()
	if r == 0 {
		return nil, errors.NewModelError("DecisionTreeClassifier.Predict", "empty data", errors.ErrEmptyData)
	}
	if err := dt.state.RequireFeatures("DecisionTreeClassifier.Predict", c); err != nil {
		return nil, err
	}

	out := make([]float64, r)
	parallel.ParallelizeWithThreshold(r, parallelThreshold, func(start, end int) {
		row := make([]float64, c)
		for i := start; i < end; i++ {
			mat.Row(row, i, X)
			out[i] = tree.leafFor(row).Value
		}
	})
	return mat.NewDense(r, 1, out), nil
}

// PredictSample predicts the label of one sample.
func (dt *DecisionTreeClassifier) PredictSample(sample []float64) (float64, error) {
	tree, err := dt.fittedTree("PredictSample")
	if err != nil {
		return 0, err
	}
	if err := dt.state.RequireFeatures("DecisionTreeClassifier.PredictSample", len(sample)); err != nil {
		return 0, err
	}
	return tree.PredictSample(sample)
}

// PredictBatch predicts one label per sample, preserving order.
func (dt *DecisionTreeClassifier) PredictBatch(samples [][]float64) ([]float64, error) {
	tree, err := dt.fittedTree("PredictBatch")
	if err != nil {
		return nil, err
	}
	for _, s := range samples {
		if err := dt.state.RequireFeatures("DecisionTreeClassifier.PredictBatch", len(s)); err != nil {
			return nil, err
		}
	}

	out := make([]float64, len(samples))
	parallel.ParallelizeWithThreshold(len(samples), parallelThreshold, func(start, end int) {
		for i := start; i < end; i++ {
			out[i] = tree.leafFor(samples[i]).Value
		}
	})
	return out, nil
}

// PredictProba returns the class frequencies of the leaf each row reaches.
// Columns follow Classes().
func (dt *DecisionTreeClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	tree, err := dt.fittedTree("PredictProba")
	if err != nil {
		return nil, err
	}
	r, c := X.Dims()
	if r == 0 {
		return nil, errors.NewModelError("DecisionTreeClassifier.PredictProba", "empty data", errors.ErrEmptyData)
	}
	if err := dt.state.RequireFeatures("DecisionTreeClassifier.PredictProba", c); err != nil {
		return nil, err
	}

	nClasses := len(tree.Classes)
	proba := mat.NewDense(r, nClasses, nil)
	parallel.ParallelizeWithThreshold(r, parallelThreshold, func(start, end int) {
		row := make([]float64, c)
		for i := start; i < end; i++ {
			mat.Row(row, i, X)
			leafProba(tree, tree.leafFor(row), proba.RawRowView(i))
		}
	})
	return proba, nil
}

// leafProba writes the class distribution of leaf into dst. Leaves loaded
// without class counts put all mass on their value.
func leafProba(tree *Tree, leaf *Node, dst []float64) {
	if len(leaf.ClassCounts) == len(dst) && leaf.Samples > 0 {
		total := float64(leaf.Samples)
		for j, count := range leaf.ClassCounts {
			dst[j] = float64(count) / total
		}
		return
	}
	for j, class := range tree.Classes {
		if class == leaf.Value {
			dst[j] = 1
		}
	}
}

// Score returns the mean accuracy on X and y, or 0 if prediction fails.
func (dt *DecisionTreeClassifier) Score(X, y mat.Matrix) float64 {
	predictions, err := dt.Predict(X)
	if err != nil {
		return 0.0
	}
	acc, err := metrics.AccuracyMatrix(y, predictions)
	if err != nil {
		return 0.0
	}
	return acc
}

// Classes returns the sorted distinct labels seen during Fit.
func (dt *DecisionTreeClassifier) Classes() []float64 {
	dt.mu.RLock()
	defer dt.mu.RUnlock()
	return append([]float64(nil), dt.classes_...)
}

// NClasses returns the number of distinct labels seen during Fit.
func (dt *DecisionTreeClassifier) NClasses() int {
	dt.mu.RLock()
	defer dt.mu.RUnlock()
	return dt.nClasses_
}

// GetDepth returns the depth of the fitted tree, 0 before Fit.
func (dt *DecisionTreeClassifier) GetDepth() int {
	dt.mu.RLock()
	defer dt.mu.RUnlock()
	if dt.tree == nil {
		return 0
	}
	return dt.tree.Depth()
}

// GetNLeaves returns the number of leaves of the fitted tree, 0 before Fit.
func (dt *DecisionTreeClassifier) GetNLeaves() int {
	dt.mu.RLock()
	defer dt.mu.RUnlock()
	if dt.tree == nil {
		return 0
	}
	return dt.tree.NLeaves()
}

// GetFeatureImportances returns the normalised gain-weighted importance of
// each feature.
func (dt *DecisionTreeClassifier) GetFeatureImportances() []float64 {
	dt.mu.RLock()
	defer dt.mu.RUnlock()
	return append([]float64(nil), dt.featureImportances_...)
}

// Tree returns the fitted tree, or nil before Fit. The tree must not be
// modified.
func (dt *DecisionTreeClassifier) Tree() *Tree {
	dt.mu.RLock()
	defer dt.mu.RUnlock()
	return dt.tree
}

// GetParams returns the hyperparameters keyed by their scikit-learn names.
func (dt *DecisionTreeClassifier) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"criterion":         dt.criterion,
		"max_depth":         dt.maxDepth,
		"min_samples_split": dt.minSamplesSplit,
	}
}

// SetParams validates and applies hyperparameters. Nothing is changed when
// any value is invalid. Changing a value discards a fitted tree, so a tree
// always matches the parameters reported by GetParams.
func (dt *DecisionTreeClassifier) SetParams(params map[string]interface{}) error {
	minSamplesSplit, maxDepth, criterion := dt.minSamplesSplit, dt.maxDepth, dt.criterion
	for key, value := range params {
		switch key {
		case "criterion":
			s, ok := value.(string)
			if !ok {
				return errors.NewValidationError(key, "must be a string", value)
			}
			criterion = s
		case "max_depth":
			n, err := intParam(key, value)
			if err != nil {
				return err
			}
			maxDepth = n
		case "min_samples_split":
			n, err := intParam(key, value)
			if err != nil {
				return err
			}
			minSamplesSplit = n
		default:
			return errors.NewValidationError(key, "unknown parameter", value)
		}
	}
	if err := validateParams(minSamplesSplit, maxDepth, criterion); err != nil {
		return err
	}
	if minSamplesSplit == dt.minSamplesSplit && maxDepth == dt.maxDepth && criterion == dt.criterion {
		return nil
	}
	dt.minSamplesSplit, dt.maxDepth, dt.criterion = minSamplesSplit, maxDepth, criterion
	dt.state.Reset()
	dt.mu.Lock()
	dt.tree = nil
	dt.mu.Unlock()
	return nil
}

// intParam accepts ints and integral floats, which is what decoded JSON and
// YAML configs hand over.
func intParam(key string, value interface{}) (int, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		if v == float64(int(v)) {
			return int(v), nil
		}
	}
	return 0, errors.NewValidationError(key, "must be an integer", value)
}

// Clone returns an unfitted classifier with the same hyperparameters and
// logger.
func (dt *DecisionTreeClassifier) Clone() *DecisionTreeClassifier {
	return &DecisionTreeClassifier{
		state:           model.NewStateManager(),
		minSamplesSplit: dt.minSamplesSplit,
		maxDepth:        dt.maxDepth,
		criterion:       dt.criterion,
		logger:          dt.logger,
	}
}

var (
	_ model.Classifier      = (*DecisionTreeClassifier)(nil)
	_ model.ParameterGetter = (*DecisionTreeClassifier)(nil)
	_ model.ParameterSetter = (*DecisionTreeClassifier)(nil)
	_ model.Persistable     = (*DecisionTreeClassifier)(nil)
)
