package tree

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/awalterschulze/gographviz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/cartree/pkg/errors"
)

func fittedFourRow(t *testing.T) *DecisionTreeClassifier {
	t.Helper()
	dt := newClassifier(t, WithMaxDepth(1))
	require.NoError(t, dt.FitSlices([][]float64{{1}, {2}, {3}, {4}}, []float64{0, 0, 1, 1}))
	return dt
}

func TestTree_ExportText(t *testing.T) {
	text := fittedFourRow(t).Tree().ExportText(nil)

	lines := strings.Split(text, "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "X_0 <= 2 ? 0.5")
	assert.Contains(t, lines[1], "left: 0")
	assert.Contains(t, lines[2], "right: 1")

	named := fittedFourRow(t).Tree().ExportText([]string{"petal_length"})
	assert.Contains(t, named, "petal_length <= 2 ? 0.5")
}

func TestTree_PrintTree(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, fittedFourRow(t).Tree().PrintTree(&buf, nil))
	assert.True(t, strings.HasSuffix(buf.String(), "\n"))
	assert.Contains(t, buf.String(), "right: 1")
}

func TestTree_ExportGraphviz(t *testing.T) {
	dot, err := fittedFourRow(t).Tree().ExportGraphviz([]string{"x"}, []string{"no", "yes"})
	require.NoError(t, err)
	assert.Contains(t, dot, "x &lt;= 2")
	assert.Contains(t, dot, "class = yes")

	ast, err := gographviz.ParseString(dot)
	require.NoError(t, err)
	g := gographviz.NewGraph()
	require.NoError(t, gographviz.Analyse(ast, g))

	assert.True(t, g.Directed)
	assert.Len(t, g.Nodes.Nodes, 3)
	assert.Len(t, g.Edges.Edges, 2)
	assert.Contains(t, g.Edges.SrcToDsts["0"], "1")
	assert.Contains(t, g.Edges.SrcToDsts["0"], "2")
}

func TestDecisionTreeClassifier_JSONRoundTrip(t *testing.T) {
	dt := newClassifier(t, WithMaxDepth(4))
	X := [][]float64{{0, 5}, {1, 4}, {2, 3}, {3, 2}, {4, 1}, {5, 0}}
	y := []float64{2, 2, 7, 7, 9, 9}
	require.NoError(t, dt.FitSlices(X, y))

	var buf bytes.Buffer
	require.NoError(t, dt.ExportJSON(&buf))

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, modelName, doc["model"])
	assert.Equal(t, "decision", doc["tree"].(map[string]interface{})["nodes"].([]interface{})[0].(map[string]interface{})["kind"])

	loaded, err := LoadJSON(&buf)
	require.NoError(t, err)
	assert.True(t, loaded.IsFitted())
	assert.Equal(t, dt.GetParams(), loaded.GetParams())
	assert.Equal(t, dt.Tree(), loaded.Tree())
	assert.Equal(t, dt.Classes(), loaded.Classes())

	want, err := dt.PredictBatch(X)
	require.NoError(t, err)
	got, err := loaded.PredictBatch(X)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestDecisionTreeClassifier_SaveLoad(t *testing.T) {
	dt := fittedFourRow(t)
	dir := t.TempDir()

	for _, name := range []string{"model.json", "model.gob"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			require.NoError(t, dt.Save(path))

			loaded := newClassifier(t)
			require.NoError(t, loaded.Load(path))
			assert.Equal(t, dt.Tree(), loaded.Tree())

			got, err := loaded.PredictSample([]float64{3.5})
			require.NoError(t, err)
			assert.Equal(t, 1.0, got)
		})
	}
}

func TestDecisionTreeClassifier_ExportUnfitted(t *testing.T) {
	dt := newClassifier(t)
	err := dt.ExportJSON(&bytes.Buffer{})
	assert.True(t, errors.IsNotFittedError(err))

	err = dt.Save(filepath.Join(t.TempDir(), "m.json"))
	assert.True(t, errors.IsNotFittedError(err))
}

func TestDecisionTreeClassifier_RestoreRejectsCorruptTrees(t *testing.T) {
	valid := func() *Snapshot {
		snap, err := fittedFourRow(t).Snapshot()
		require.NoError(t, err)
		tree := *snap.Tree
		tree.Nodes = append([]Node(nil), snap.Tree.Nodes...)
		snap.Tree = &tree
		return snap
	}

	tests := []struct {
		name    string
		corrupt func(s *Snapshot)
	}{
		{name: "wrong model", corrupt: func(s *Snapshot) { s.Model = "LGBMClassifier" }},
		{name: "future version", corrupt: func(s *Snapshot) { s.Version = 99 }},
		{name: "no tree", corrupt: func(s *Snapshot) { s.Tree = nil }},
		{name: "child out of range", corrupt: func(s *Snapshot) { s.Tree.Nodes[0].Right = 7 }},
		{name: "cycle", corrupt: func(s *Snapshot) { s.Tree.Nodes[0].Left = 0 }},
		{name: "shared child", corrupt: func(s *Snapshot) { s.Tree.Nodes[0].Right = s.Tree.Nodes[0].Left }},
		{name: "leaf with child", corrupt: func(s *Snapshot) { s.Tree.Nodes[1].Left = 2 }},
		{name: "feature out of range", corrupt: func(s *Snapshot) { s.Tree.Nodes[0].FeatureIndex = 3 }},
		{name: "bad params", corrupt: func(s *Snapshot) { s.MaxDepth = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := valid()
			tt.corrupt(snap)
			dt := newClassifier(t)
			require.Error(t, dt.Restore(snap))
			assert.False(t, dt.IsFitted())
		})
	}
}

func TestNodeKind_Text(t *testing.T) {
	var k NodeKind
	require.NoError(t, k.UnmarshalText([]byte("decision")))
	assert.Equal(t, DecisionNode, k)

	text, err := LeafNode.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "leaf", string(text))

	assert.Error(t, k.UnmarshalText([]byte("branch")))
	_, err = NodeKind(9).MarshalText()
	assert.Error(t, err)
}

func TestDecisionTreeClassifier_PlotFeatureImportances(t *testing.T) {
	dt := newClassifier(t)
	require.NoError(t, dt.FitSlices([][]float64{{0, 1}, {1, 1}, {2, 0}, {3, 0}}, []float64{0, 0, 1, 1}))

	var buf bytes.Buffer
	require.NoError(t, dt.PlotFeatureImportances(&buf, "svg", []string{"a", "b"}))
	assert.Contains(t, buf.String(), "<svg")

	path := filepath.Join(t.TempDir(), "importances.png")
	require.NoError(t, dt.SaveFeatureImportancesPlot(path, nil))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())

	assert.True(t, errors.IsNotFittedError(newClassifier(t).PlotFeatureImportances(&buf, "png", nil)))
}
