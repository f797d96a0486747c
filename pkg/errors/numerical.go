package errors

import (
	"fmt"
	"math"
)

// CheckFinite returns a ValueError when any value is NaN or Inf.
// Missing values are not supported by the tree builder, so NaN is rejected
// up front rather than silently routed right at every split.
func CheckFinite(op string, values []float64) error {
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return NewValueError(op, fmt.Sprintf("input contains non-finite value %v at index %d", v, i))
		}
	}
	return nil
}

// CheckMatrix checks all values in a matrix for NaN or Inf.
func CheckMatrix(op string, matrix interface{ At(int, int) float64 }, rows, cols int) error {
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			v := matrix.At(i, j)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return NewValueError(op, fmt.Sprintf("input contains non-finite value %v at (%d, %d)", v, i, j))
			}
		}
	}
	return nil
}

// SafeDivide performs division with protection against division by zero.
// Returns 0 if denominator is zero or close to zero.
func SafeDivide(numerator, denominator float64) float64 {
	if math.Abs(denominator) < 1e-10 {
		return 0
	}
	return numerator / denominator
}
