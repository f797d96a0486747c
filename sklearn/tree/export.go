package tree

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/awalterschulze/gographviz"
	"github.com/jedib0t/go-pretty/v6/list"

	"github.com/YuminosukeSato/cartree/core/model"
	"github.com/YuminosukeSato/cartree/pkg/errors"
)

// snapshotVersion is bumped whenever Snapshot changes incompatibly.
const snapshotVersion = 1

// Snapshot is the persisted form of a fitted classifier. It is written as
// JSON by ExportJSON and as gob by Save with a ".gob" path.
type Snapshot struct {
	Model           string `json:"model"`
	Version         int    `json:"version"`
	Criterion       string `json:"criterion"`
	MaxDepth        int    `json:"max_depth"`
	MinSamplesSplit int    `json:"min_samples_split"`
	NSamples        int    `json:"n_samples"`
	Tree            *Tree  `json:"tree"`
}

// Snapshot captures the hyperparameters and fitted tree.
func (dt *DecisionTreeClassifier) Snapshot() (*Snapshot, error) {
	tree, err := dt.fittedTree("Snapshot")
	if err != nil {
		return nil, err
	}
	_, nSamples := dt.state.GetDimensions()
	return &Snapshot{
		Model:           modelName,
		Version:         snapshotVersion,
		Criterion:       dt.criterion,
		MaxDepth:        dt.maxDepth,
		MinSamplesSplit: dt.minSamplesSplit,
		NSamples:        nSamples,
		Tree:            tree,
	}, nil
}

// Restore replaces the classifier's hyperparameters and tree with the
// snapshot's after validating both.
func (dt *DecisionTreeClassifier) Restore(s *Snapshot) error {
	if s == nil || s.Tree == nil {
		return errors.Wrap(errors.ErrInvalidModel, "snapshot has no tree")
	}
	if s.Model != modelName {
		return errors.Wrapf(errors.ErrInvalidModel, "snapshot is a %q, not a %s", s.Model, modelName)
	}
	if s.Version != snapshotVersion {
		return errors.Wrapf(errors.ErrInvalidModel, "unsupported snapshot version %d", s.Version)
	}
	if err := validateParams(s.MinSamplesSplit, s.MaxDepth, s.Criterion); err != nil {
		return err
	}
	if err := s.Tree.Validate(); err != nil {
		return err
	}
	if s.Tree.NFeatures < 1 || s.Tree.NFeatures <= s.Tree.MaxFeatureIndex() {
		return errors.Wrapf(errors.ErrInvalidModel, "tree tests feature %d but has %d features", s.Tree.MaxFeatureIndex(), s.Tree.NFeatures)
	}
	dt.minSamplesSplit, dt.maxDepth, dt.criterion = s.MinSamplesSplit, s.MaxDepth, s.Criterion
	dt.install(s.Tree, s.NSamples)
	return nil
}

// ExportJSON writes the fitted classifier as indented JSON.
func (dt *DecisionTreeClassifier) ExportJSON(w io.Writer) error {
	snap, err := dt.Snapshot()
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snap); err != nil {
		return errors.Wrap(err, "failed to encode model")
	}
	return nil
}

// ImportJSON loads a classifier written by ExportJSON.
func (dt *DecisionTreeClassifier) ImportJSON(r io.Reader) error {
	var snap Snapshot
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return errors.Wrap(err, "failed to decode model")
	}
	return dt.Restore(&snap)
}

// LoadJSON creates a classifier from a document written by ExportJSON.
func LoadJSON(r io.Reader) (*DecisionTreeClassifier, error) {
	dt, err := NewDecisionTreeClassifier()
	if err != nil {
		return nil, err
	}
	if err := dt.ImportJSON(r); err != nil {
		return nil, err
	}
	return dt, nil
}

// Save writes the fitted classifier to path, as gob when the extension is
// ".gob" and as JSON otherwise.
func (dt *DecisionTreeClassifier) Save(path string) error {
	if isGob(path) {
		snap, err := dt.Snapshot()
		if err != nil {
			return err
		}
		return model.SaveModel(snap, path)
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "failed to create %s", path)
	}
	if err := dt.ExportJSON(f); err != nil {
		f.Close()
		return err
	}
	return errors.Wrapf(f.Close(), "failed to close %s", path)
}

// Load reads a classifier written by Save.
func (dt *DecisionTreeClassifier) Load(path string) error {
	if isGob(path) {
		var snap Snapshot
		if err := model.LoadModel(&snap, path); err != nil {
			return err
		}
		return dt.Restore(&snap)
	}
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "failed to open %s", path)
	}
	defer f.Close()
	return dt.ImportJSON(f)
}

func isGob(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".gob")
}

// featureName returns names[i] or "X_i".
func featureName(names []string, i int) string {
	if i < len(names) && names[i] != "" {
		return names[i]
	}
	return "X_" + strconv.Itoa(i)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// ExportText renders the tree as an indented list, one line per node:
//
//	X_0 <= 2 ? 0.5
//	├─ left: 0
//	└─ right: 1
//
// Decision lines show the feature, the threshold and the information gain.
// featureNames may be nil.
func (t *Tree) ExportText(featureNames []string) string {
	if t.Root() == nil {
		return ""
	}
	l := list.NewWriter()
	l.SetStyle(list.StyleConnectedLight)

	var visit func(id int, prefix string)
	visit = func(id int, prefix string) {
		n := &t.Nodes[id]
		switch n.Kind {
		case DecisionNode:
			l.AppendItem(fmt.Sprintf("%s%s <= %s ? %s", prefix,
				featureName(featureNames, n.FeatureIndex), formatFloat(n.Threshold), formatFloat(n.InfoGain)))
			l.Indent()
			visit(n.Left, "left: ")
			visit(n.Right, "right: ")
			l.UnIndent()
		default:
			l.AppendItem(prefix + formatFloat(n.Value))
		}
	}
	visit(0, "")
	return l.Render()
}

// PrintTree writes ExportText output followed by a newline to w.
func (t *Tree) PrintTree(w io.Writer, featureNames []string) error {
	_, err := fmt.Fprintln(w, t.ExportText(featureNames))
	return errors.Wrap(err, "failed to print tree")
}

// ExportGraphviz renders the tree as a DOT digraph. Decision nodes show the
// test, the impurity and the sample count; leaves show the predicted value
// and the per-class counts. classNames, when given, replace the numeric
// label in leaves and must follow Tree.Classes.
func (t *Tree) ExportGraphviz(featureNames, classNames []string) (string, error) {
	if t.Root() == nil {
		return "", errors.Wrap(errors.ErrInvalidModel, "tree has no nodes")
	}
	graphAst, err := gographviz.Parse([]byte(`digraph G{}`))
	if err != nil {
		return "", errors.Wrap(err, "failed to create graph")
	}
	graph := gographviz.NewGraph()
	if err := gographviz.Analyse(graphAst, graph); err != nil {
		return "", errors.Wrap(err, "failed to create graph")
	}
	for id := range t.Nodes {
		n := &t.Nodes[id]
		var label string
		switch n.Kind {
		case DecisionNode:
			label = fmt.Sprintf("<%s &lt;= %s<br/>impurity = %s<br/>samples = %d>",
				featureName(featureNames, n.FeatureIndex), formatFloat(n.Threshold),
				strconv.FormatFloat(n.Impurity, 'f', 3, 64), n.Samples)
		default:
			label = fmt.Sprintf("<class = %s<br/>samples = %d<br/>value = %v>",
				t.className(classNames, n.Value), n.Samples, n.ClassCounts)
		}
		if err := graph.AddNode("G", strconv.Itoa(id), map[string]string{"label": label, "shape": "box"}); err != nil {
			return "", errors.Wrapf(err, "failed to add node %d", id)
		}
	}
	for id := range t.Nodes {
		n := &t.Nodes[id]
		if n.Kind != DecisionNode {
			continue
		}
		if err := graph.AddEdge(strconv.Itoa(id), strconv.Itoa(n.Left), true, map[string]string{"label": `"yes"`}); err != nil {
			return "", errors.Wrapf(err, "failed to add edge %d->%d", id, n.Left)
		}
		if err := graph.AddEdge(strconv.Itoa(id), strconv.Itoa(n.Right), true, map[string]string{"label": `"no"`}); err != nil {
			return "", errors.Wrapf(err, "failed to add edge %d->%d", id, n.Right)
		}
	}
	return graph.String(), nil
}

func (t *Tree) className(names []string, value float64) string {
	for i, c := range t.Classes {
		if c == value && i < len(names) {
			return names[i]
		}
	}
	return formatFloat(value)
}
