// Package log defines standard attribute keys for machine learning operations.
//
// Keys follow a hierarchical naming convention ("model.name", "data.samples")
// so that log output from every estimator can be filtered the same way.

package log

import scierrors "github.com/YuminosukeSato/cartree/pkg/errors"

// Model and Operation Context
const (
	// ModelNameKey identifies the type of model, e.g. "DecisionTreeClassifier".
	ModelNameKey = "model.name"

	// OperationKey specifies the operation being performed.
	// Standard values: "fit", "predict", "predict_proba", "score"
	OperationKey = "ml.operation"

	// ComponentKey identifies which package is logging, e.g. "tree.classifier".
	ComponentKey = "ml.component"

	// PhaseKey indicates the phase of model lifecycle.
	PhaseKey = "ml.phase"
)

// Data Shape
const (
	SamplesKey  = "data.samples"
	FeaturesKey = "data.features"
	ClassesKey  = "data.classes"
)

// Performance Metrics
const (
	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"

	// AccuracyKey records model accuracy for evaluation operations.
	AccuracyKey = "metrics.accuracy"
)

// Tree structure. Emitted by the tree builder once per fit and, at debug
// level, once per accepted split.
const (
	TreeDepthKey  = "tree.depth"
	TreeLeavesKey = "tree.leaves"
	TreeNodesKey  = "tree.nodes"

	NodeDepthKey      = "node.depth"
	SplitFeatureKey   = "split.feature"
	SplitThresholdKey = "split.threshold"
	SplitGainKey      = "split.gain"
)

// Error Context
const (
	// ErrorCodeKey provides a structured error code for programmatic handling.
	ErrorCodeKey = "error.code"

	// StacktraceKey contains the stack trace of a logged error.
	StacktraceKey = "error.stacktrace"
)

// Hyperparameters
const (
	// HyperParamsKey contains model hyperparameters as a structured object.
	HyperParamsKey = "model.hyperparams"

	// RandomSeedKey records the random seed for reproducibility.
	RandomSeedKey = "config.random_seed"
)

// Standard attribute values.
const (
	OperationFit          = "fit"
	OperationPredict      = "predict"
	OperationPredictProba = "predict_proba"
	OperationScore        = "score"

	PhaseTraining   = "training"
	PhaseValidation = "validation"
	PhaseInference  = "inference"

	// Values of ErrorCodeKey. scierrors.Code maps an error to one of these.
	ErrorNotFitted         = scierrors.CodeNotFitted
	ErrorDimensionMismatch = scierrors.CodeDimensionMismatch
	ErrorEmptyData         = scierrors.CodeEmptyData
	ErrorInvalidInput      = scierrors.CodeInvalidInput
)
