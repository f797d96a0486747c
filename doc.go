// Package cartree provides a binary decision tree classifier for Go with a
// scikit-learn-like API, aimed at backend services that need to train and
// serve small interpretable models.
//
// # Features
//
//   - Greedy CART-style tree growth with the gini criterion
//   - Depth and minimum-sample stopping rules
//   - Thread-safe prediction, parallelized for large batches
//   - JSON and gob persistence, text, Graphviz and plot exports
//   - Typed errors and zerolog-backed structured logging
//
// # Quick Start
//
//	package main
//
//	import (
//	    "fmt"
//	    "log"
//
//	    "github.com/YuminosukeSato/cartree/sklearn/tree"
//	    "gonum.org/v1/gonum/mat"
//	)
//
//	func main() {
//	    X := mat.NewDense(4, 1, []float64{1, 2, 3, 4})
//	    y := mat.NewVecDense(4, []float64{0, 0, 1, 1})
//
//	    clf, err := tree.NewDecisionTreeClassifier(tree.WithMaxDepth(3))
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    if err := clf.Fit(X, y); err != nil {
//	        log.Fatal(err)
//	    }
//
//	    pred, err := clf.PredictSample([]float64{2.5})
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Println(pred) // 1
//	}
//
// # Packages
//
//   - sklearn/tree: DecisionTreeClassifier, the tree structure and its exports
//   - metrics: classification accuracy
//   - model_selection: train/test split, (stratified) k-fold, cross-validation
//   - preprocessing: LabelEncoder for string class labels
//   - dataset: CSV loading
//   - core/model: estimator interfaces, fitted-state tracking, gob persistence
//   - core/parallel: row-parallel helpers
//   - pkg/errors: typed errors and warnings
//   - pkg/log: logger interface and its zerolog provider
//
// The cartree command in cmd/cartree wraps the library for use on CSV files.
//
// # Concurrency
//
// Prediction methods may be called from many goroutines once Fit has
// returned. Batches of 1000 rows or more are split across CPU cores.
//
// # License
//
// cartree is released under the MIT License.
package cartree
