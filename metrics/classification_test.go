package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/cartree/pkg/errors"
)

func vec(v ...float64) *mat.VecDense {
	if len(v) == 0 {
		return nil
	}
	return mat.NewVecDense(len(v), v)
}

// Accuracy と ClassificationError は常に足して 1 になる
func TestAccuracyAndClassificationError(t *testing.T) {
	cases := []struct {
		name         string
		yTrue, yPred *mat.VecDense
		acc          float64
	}{
		{"全問正解", vec(2, 0, 1, 1), vec(2, 0, 1, 1), 1},
		{"3クラスで1件誤り", vec(2, 0, 1, 1, 0), vec(2, 0, 0, 1, 0), 0.8},
		{"二値で半分正解", vec(1, 1, 0, 0), vec(1, 0, 0, 1), 0.5},
		{"全問不正解", vec(3, 3, 3), vec(4, 4, 4), 0},
		{"ラベルは完全一致で比較", vec(1, 2), vec(1.0000001, 2), 0.5},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			acc, err := Accuracy(tc.yTrue, tc.yPred)
			require.NoError(t, err)
			assert.InDelta(t, tc.acc, acc, 1e-12)

			ce, err := ClassificationError(tc.yTrue, tc.yPred)
			require.NoError(t, err)
			assert.InDelta(t, 1-tc.acc, ce, 1e-12)
		})
	}
}

func TestAccuracy_InvalidInput(t *testing.T) {
	_, err := Accuracy(nil, vec(1))
	assert.Equal(t, errors.CodeInvalidInput, errors.Code(err))

	_, err = Accuracy(vec(0, 1, 2), vec(0, 1))
	assert.True(t, errors.IsShapeError(err))

	// ClassificationError は元のエラー種別を保ったまま包む
	_, err = ClassificationError(vec(0, 1), vec(0))
	assert.True(t, errors.IsShapeError(err))
	assert.Contains(t, err.Error(), "ClassificationError")
}

func TestAccuracyMatrix(t *testing.T) {
	yTrue := mat.NewDense(4, 1, []float64{5, 6, 6, 5})
	got, err := AccuracyMatrix(yTrue, mat.NewDense(4, 1, []float64{5, 6, 5, 5}))
	require.NoError(t, err)
	assert.InDelta(t, 0.75, got, 1e-12)

	// 予測器が返す VecDense もそのまま渡せる
	got, err = AccuracyMatrix(yTrue, vec(5, 6, 6, 5))
	require.NoError(t, err)
	assert.Equal(t, 1.0, got)

	_, err = AccuracyMatrix(yTrue, mat.NewDense(3, 1, nil))
	assert.True(t, errors.IsShapeError(err))

	_, err = AccuracyMatrix(mat.NewDense(2, 2, nil), mat.NewDense(2, 2, nil))
	var ve *errors.ValueError
	require.True(t, errors.As(err, &ve))
	assert.Contains(t, ve.Message, "column vector")
}

func TestAccuracySlices(t *testing.T) {
	got, err := AccuracySlices([]float64{7, 8, 9}, []float64{7, 8, 1})
	require.NoError(t, err)
	assert.InDelta(t, 2.0/3.0, got, 1e-12)

	_, err = AccuracySlices(nil, nil)
	assert.Equal(t, errors.CodeInvalidInput, errors.Code(err))

	_, err = AccuracySlices([]float64{1}, []float64{1, 2})
	assert.True(t, errors.IsShapeError(err))
}

func BenchmarkAccuracy(b *testing.B) {
	const n = 4096
	yTrue := mat.NewVecDense(n, nil)
	yPred := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		yTrue.SetVec(i, float64(i%4))
		yPred.SetVec(i, float64((i/3)%4))
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = Accuracy(yTrue, yPred)
	}
}
