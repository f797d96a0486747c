package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// x0 <= 2 separates the classes; x1 carries no information.
const trainingCSV = `x0,x1,label
1,5,no
2,3,no
3,5,yes
4,3,yes
1,3,no
2,5,no
3,3,yes
4,5,yes
`

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := cliParser()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--log-level", "error"}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func trainModel(t *testing.T, dir string, extra ...string) string {
	t.Helper()
	data := writeFile(t, dir, "train.csv", trainingCSV)
	model := filepath.Join(dir, "model.json")
	args := append([]string{"train", "-i", data, "-o", model}, extra...)
	_, stderr, err := execute(t, args...)
	require.NoError(t, err, stderr)
	return model
}

func TestTrainCommand(t *testing.T) {
	dir := t.TempDir()
	data := writeFile(t, dir, "train.csv", trainingCSV)
	model := filepath.Join(dir, "model.json")
	dot := filepath.Join(dir, "tree.dot")
	plotPath := filepath.Join(dir, "importances.svg")

	_, stderr, err := execute(t, "train", "-i", data, "-o", model, "--dot", dot, "--plot", plotPath, "--cv", "2")
	require.NoError(t, err)

	assert.Contains(t, stderr, "TRAINING REPORT")
	assert.Contains(t, stderr, "1.0000")
	assert.Contains(t, stderr, "importance: x0")

	lm, err := readModelFile(model)
	require.NoError(t, err)
	assert.Equal(t, []string{"x0", "x1"}, lm.file.FeatureNames)
	assert.Equal(t, "label", lm.file.LabelName)
	assert.Equal(t, []string{"no", "yes"}, lm.file.ClassNames)
	assert.Equal(t, 1, lm.clf.GetDepth())
	assert.Equal(t, []float64{1, 0}, lm.clf.GetFeatureImportances())

	dotBytes, err := os.ReadFile(dot)
	require.NoError(t, err)
	assert.Contains(t, string(dotBytes), "digraph")
	assert.Contains(t, string(dotBytes), "class = yes")

	svg, err := os.ReadFile(plotPath)
	require.NoError(t, err)
	assert.Contains(t, string(svg), "<svg")
}

func TestTrainCommand_ToStdout(t *testing.T) {
	dir := t.TempDir()
	data := writeFile(t, dir, "train.csv", trainingCSV)

	stdout, _, err := execute(t, "train", "-i", data, "--test-size", "0.25", "--random-state", "3")
	require.NoError(t, err)
	assert.Contains(t, stdout, `"feature_names"`)
	assert.Contains(t, stdout, `"DecisionTreeClassifier"`)
}

func TestTrainCommand_Errors(t *testing.T) {
	dir := t.TempDir()
	data := writeFile(t, dir, "train.csv", trainingCSV)

	_, _, err := execute(t, "train")
	assert.Error(t, err, "missing input")

	_, _, err = execute(t, "train", "-i", data, "--criterion", "bogus")
	assert.Error(t, err)

	_, _, err = execute(t, "train", "-i", data, "--test-size", "1.5")
	assert.Error(t, err)

	_, _, err = execute(t, "train", "-i", data, "--label-column", "missing")
	assert.Error(t, err)
}

func TestPredictCommand(t *testing.T) {
	dir := t.TempDir()
	model := trainModel(t, dir)

	t.Run("features only, reordered columns", func(t *testing.T) {
		input := writeFile(t, dir, "new.csv", "x1,x0\n5,1\n3,4\n")
		stdout, stderr, err := execute(t, "predict", "-m", model, "-i", input, "--format", "csv")
		require.NoError(t, err)
		assert.Contains(t, stdout, "1,no")
		assert.Contains(t, stdout, "2,yes")
		assert.NotContains(t, stderr, "accuracy")
	})

	t.Run("labelled input is scored", func(t *testing.T) {
		input := writeFile(t, dir, "scored.csv", trainingCSV)
		_, stderr, err := execute(t, "predict", "-m", model, "-i", input)
		require.NoError(t, err)
		assert.Contains(t, stderr, "accuracy: 1.0000 (8/8)")
	})

	t.Run("probabilities", func(t *testing.T) {
		input := writeFile(t, dir, "proba.csv", "x0,x1\n1,1\n")
		stdout, _, err := execute(t, "predict", "-m", model, "-i", input, "--proba", "-f", "csv")
		require.NoError(t, err)
		assert.Contains(t, stdout, "1,no,1.0000,0.0000")
	})

	t.Run("missing feature", func(t *testing.T) {
		input := writeFile(t, dir, "bad.csv", "x0,other\n1,1\n")
		_, _, err := execute(t, "predict", "-m", model, "-i", input)
		assert.Error(t, err)
	})

	t.Run("bad flags", func(t *testing.T) {
		_, _, err := execute(t, "predict", "-i", model)
		assert.Error(t, err)
		_, _, err = execute(t, "predict", "-m", model, "-i", model, "-f", "xml")
		assert.Error(t, err)
	})
}

func TestDescribeCommand(t *testing.T) {
	dir := t.TempDir()
	model := trainModel(t, dir)

	stdout, _, err := execute(t, "describe", "-m", model)
	require.NoError(t, err)
	assert.Contains(t, stdout, "x0 <= 2 ? 0.5")
	assert.Contains(t, stdout, "left: 0")

	stdout, _, err = execute(t, "describe", "-m", model, "--yaml")
	require.NoError(t, err)
	var summary map[string]interface{}
	require.NoError(t, yaml.Unmarshal([]byte(stdout), &summary))
	assert.Equal(t, "gini", summary["criterion"])
	assert.Equal(t, 1, summary["depth"])
	assert.Equal(t, 2, summary["leaves"])
	assert.Equal(t, 8, summary["n_samples"])
	assert.Equal(t, []interface{}{"no", "yes"}, summary["classes"])

	stdout, _, err = execute(t, "describe", "-m", model, "--dot")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stdout, "digraph"))

	_, _, err = execute(t, "describe", "-m", model, "--dot", "--yaml")
	assert.Error(t, err)

	_, _, err = execute(t, "describe", "-m", filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}

func TestVersionCommand(t *testing.T) {
	stdout, _, err := execute(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stdout, "cartree v0.1.0"))
}
