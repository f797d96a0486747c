// Package metrics は分類モデルの評価指標を提供する
package metrics

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/cartree/pkg/errors"
)

// Accuracy は正解率（一致したラベルの割合）を計算する
//
// ラベルは完全一致で比較する。空のベクトルはエラーになる。
func Accuracy(yTrue, yPred *mat.VecDense) (float64, error) {
	if yTrue == nil || yPred == nil || yTrue.Len() == 0 {
		return 0, errors.NewValueError("Accuracy", "empty vector")
	}

	n := yTrue.Len()
	if yPred.Len() != n {
		return 0, errors.NewDimensionError("Accuracy", n, yPred.Len(), 0)
	}

	correct := 0
	for i := 0; i < n; i++ {
		if yTrue.AtVec(i) == yPred.AtVec(i) {
			correct++
		}
	}

	return float64(correct) / float64(n), nil
}

// AccuracyMatrix は列ベクトル（n×1 行列）形式の入力に対して正解率を計算する
func AccuracyMatrix(yTrue, yPred mat.Matrix) (float64, error) {
	yTrueVec, yPredVec, err := columnPair("AccuracyMatrix", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return Accuracy(yTrueVec, yPredVec)
}

// ClassificationError は誤分類率（1 - 正解率）を計算する
func ClassificationError(yTrue, yPred *mat.VecDense) (float64, error) {
	acc, err := Accuracy(yTrue, yPred)
	if err != nil {
		return 0, errors.Wrap(err, "ClassificationError")
	}
	return 1 - acc, nil
}

// AccuracySlices は []float64 のラベル列に対して正解率を計算する
func AccuracySlices(yTrue, yPred []float64) (float64, error) {
	if len(yTrue) == 0 {
		return 0, errors.NewValueError("AccuracySlices", "empty vector")
	}
	if len(yPred) != len(yTrue) {
		return 0, errors.NewDimensionError("AccuracySlices", len(yTrue), len(yPred), 0)
	}
	return Accuracy(mat.NewVecDense(len(yTrue), yTrue), mat.NewVecDense(len(yPred), yPred))
}

// columnPair は2つの n×1 行列を VecDense に変換する
func columnPair(op string, yTrue, yPred mat.Matrix) (*mat.VecDense, *mat.VecDense, error) {
	rTrue, cTrue := yTrue.Dims()
	rPred, cPred := yPred.Dims()

	if rTrue == 0 || cTrue == 0 {
		return nil, nil, errors.NewValueError(op, "empty matrix")
	}
	if rTrue != rPred {
		return nil, nil, errors.NewDimensionError(op, rTrue, rPred, 0)
	}
	if cTrue != 1 || cPred != 1 {
		return nil, nil, errors.NewValueError(op, "must be a column vector (n×1 matrix)")
	}

	yTrueVec := mat.NewVecDense(rTrue, nil)
	yPredVec := mat.NewVecDense(rPred, nil)
	for i := 0; i < rTrue; i++ {
		yTrueVec.SetVec(i, yTrue.At(i, 0))
		yPredVec.SetVec(i, yPred.At(i, 0))
	}
	return yTrueVec, yPredVec, nil
}
