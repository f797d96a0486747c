package model

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/cartree/pkg/errors"
)

func TestStateManagerLifecycle(t *testing.T) {
	s := NewStateManager()

	err := s.RequireFitted("DecisionTreeClassifier", "Predict")
	require.Error(t, err)
	assert.True(t, errors.IsNotFittedError(err))

	s.SetFitted(3, 10)
	assert.True(t, s.IsFitted())
	assert.NoError(t, s.RequireFitted("DecisionTreeClassifier", "Predict"))

	nFeatures, nSamples := s.GetDimensions()
	assert.Equal(t, 3, nFeatures)
	assert.Equal(t, 10, nSamples)

	assert.NoError(t, s.RequireFeatures("Predict", 3))
	assert.True(t, errors.IsShapeError(s.RequireFeatures("Predict", 2)))

	state := s.GetState()
	s.Reset()
	assert.False(t, s.IsFitted())

	s.SetState(state)
	assert.True(t, s.IsFitted())
}

type snapshot struct {
	Name  string
	Nodes []int
}

func TestGobRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, SaveModelToWriter(snapshot{Name: "tree", Nodes: []int{0, 1, 2}}, &buf))

	var got snapshot
	require.NoError(t, LoadModelFromReader(&got, &buf))
	assert.Equal(t, "tree", got.Name)

	path := filepath.Join(t.TempDir(), "tree.gob")
	require.NoError(t, SaveModel(got, path))
	var fromFile snapshot
	require.NoError(t, LoadModel(&fromFile, path))
	assert.Equal(t, []int{0, 1, 2}, fromFile.Nodes)

	assert.Error(t, LoadModel(&fromFile, filepath.Join(t.TempDir(), "missing.gob")))
}
