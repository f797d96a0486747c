// Package model provides the estimator contracts shared by cartree models
// together with fitted-state bookkeeping and persistence helpers.
package model

import (
	"gonum.org/v1/gonum/mat"
)

// Scorer is the interface for models that can compute a score.
// Classifiers return mean accuracy.
type Scorer interface {
	Score(X, y mat.Matrix) float64
}

// Classifier combines interfaces for classification models.
type Classifier interface {
	Estimator
	Scorer

	// PredictProba returns probability estimates for each class, columns
	// ordered as Classes().
	PredictProba(X mat.Matrix) (mat.Matrix, error)

	// Classes returns the sorted unique labels seen during fitting.
	Classes() []float64
}

// ParameterGetter is the interface for models that expose their parameters.
type ParameterGetter interface {
	// GetParams returns the model's hyperparameters keyed by their
	// scikit-learn names.
	GetParams() map[string]interface{}
}

// ParameterSetter is the interface for models that allow parameter modification.
type ParameterSetter interface {
	// SetParams validates and applies hyperparameters.
	SetParams(params map[string]interface{}) error
}

// Persistable is the interface for models that can be saved and loaded.
type Persistable interface {
	Save(path string) error
	Load(path string) error
}
