package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRecover_WithPanic tests the Recover function when a panic occurs
func TestRecover_WithPanic(t *testing.T) {
	testFunc := func() (err error) {
		defer Recover(&err, "DecisionTreeClassifier.Fit")
		var nodes []int
		_ = nodes[3]
		return nil
	}

	err := testFunc()
	require.Error(t, err)

	var panicErr *PanicError
	require.True(t, errors.As(err, &panicErr), "expected PanicError, got %T", err)
	assert.Equal(t, "DecisionTreeClassifier.Fit", panicErr.Operation)
	assert.NotEmpty(t, panicErr.StackTrace)
	assert.Contains(t, panicErr.Error(), "panic in DecisionTreeClassifier.Fit")
	assert.Contains(t, panicErr.String(), "Stack trace:")
}

// TestRecover_WithoutPanic tests the Recover function when no panic occurs
func TestRecover_WithoutPanic(t *testing.T) {
	testFunc := func() (err error) {
		defer Recover(&err, "TestOperation")
		return nil
	}

	assert.NoError(t, testFunc())
}

// TestRecover_WithExistingError tests Recover when function has existing error and panic occurs
func TestRecover_WithExistingError(t *testing.T) {
	originalErr := fmt.Errorf("original error")

	testFunc := func() (err error) {
		defer Recover(&err, "TestOperation")
		err = originalErr
		panic("panic after error")
	}

	err := testFunc()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panic in TestOperation")
	assert.Contains(t, err.Error(), "original error")
	assert.True(t, Is(err, originalErr))
}

func TestSafeExecute(t *testing.T) {
	assert.NoError(t, SafeExecute("ok", func() error { return nil }))

	fnErr := fmt.Errorf("function error")
	assert.Equal(t, fnErr, SafeExecute("err", func() error { return fnErr }))

	err := SafeExecute("boom", func() error { panic(42) })
	var panicErr *PanicError
	require.True(t, errors.As(err, &panicErr))
	assert.Equal(t, 42, panicErr.PanicValue)
}

func BenchmarkSafeExecute_NoPanic(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = SafeExecute("BenchmarkOp", func() error { return nil })
	}
}
