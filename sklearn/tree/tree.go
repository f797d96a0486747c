// Package tree implements a binary decision tree classifier grown greedily
// on impurity reduction.
//
// The fitted tree is stored as an arena of nodes. The root is node 0 and
// children are referenced by index, so a Tree can be serialised as plain
// data and shared by concurrent predictors without locking.
package tree

import (
	"github.com/cockroachdb/errors"

	scierrors "github.com/YuminosukeSato/cartree/pkg/errors"
)

// NodeKind distinguishes decision nodes from leaves.
type NodeKind uint8

const (
	// LeafNode holds a predicted label.
	LeafNode NodeKind = iota
	// DecisionNode routes samples on FeatureIndex <= Threshold.
	DecisionNode
)

// String implements fmt.Stringer.
func (k NodeKind) String() string {
	switch k {
	case LeafNode:
		return "leaf"
	case DecisionNode:
		return "decision"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k NodeKind) MarshalText() ([]byte, error) {
	if k != LeafNode && k != DecisionNode {
		return nil, errors.Newf("unknown node kind %d", k)
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *NodeKind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "leaf":
		*k = LeafNode
	case "decision":
		*k = DecisionNode
	default:
		return errors.Newf("unknown node kind %q", text)
	}
	return nil
}

// noChild marks the absent children of a leaf.
const noChild = -1

// Node is one entry of the tree arena.
type Node struct {
	Kind NodeKind `json:"kind"`

	// Decision fields. Left receives samples with x[FeatureIndex] <= Threshold.
	FeatureIndex int     `json:"feature_index"`
	Threshold    float64 `json:"threshold"`
	Left         int     `json:"left"`
	Right        int     `json:"right"`
	InfoGain     float64 `json:"info_gain"`

	// Leaf fields. ClassCounts is aligned with Tree.Classes.
	Value       float64 `json:"value"`
	ClassCounts []int   `json:"class_counts,omitempty"`

	// Samples is the number of training rows that reached the node.
	Samples  int     `json:"samples"`
	Impurity float64 `json:"impurity"`
}

// IsLeaf reports whether the node is a leaf.
func (n *Node) IsLeaf() bool {
	return n.Kind == LeafNode
}

// Tree is a fitted binary decision tree.
type Tree struct {
	Nodes     []Node    `json:"nodes"`
	Classes   []float64 `json:"classes"`
	NFeatures int       `json:"n_features"`
	Criterion string    `json:"criterion"`
}

// Root returns the root node, or nil for an empty tree.
func (t *Tree) Root() *Node {
	if t == nil || len(t.Nodes) == 0 {
		return nil
	}
	return &t.Nodes[0]
}

// PredictSample walks the tree from the root and returns the label of the
// leaf the sample reaches. The sample only needs to be long enough to hold
// every feature index the tree tests.
func (t *Tree) PredictSample(sample []float64) (float64, error) {
	if t.Root() == nil {
		return 0, errors.Wrap(scierrors.ErrInvalidModel, "tree has no nodes")
	}
	if need := t.MaxFeatureIndex() + 1; len(sample) < need {
		return 0, scierrors.NewDimensionError("Tree.PredictSample", need, len(sample), 1)
	}
	return t.leafFor(sample).Value, nil
}

// leafFor returns the leaf a sample reaches. The caller checks the sample
// length.
func (t *Tree) leafFor(sample []float64) *Node {
	node := &t.Nodes[0]
	for {
		switch node.Kind {
		case DecisionNode:
			if sample[node.FeatureIndex] <= node.Threshold {
				node = &t.Nodes[node.Left]
			} else {
				node = &t.Nodes[node.Right]
			}
		default:
			return node
		}
	}
}

// Walk visits nodes in pre-order, passing each node's id and depth.
func (t *Tree) Walk(fn func(id, depth int, n *Node)) {
	if t.Root() == nil {
		return
	}
	var visit func(id, depth int)
	visit = func(id, depth int) {
		n := &t.Nodes[id]
		fn(id, depth, n)
		if n.Kind == DecisionNode {
			visit(n.Left, depth+1)
			visit(n.Right, depth+1)
		}
	}
	visit(0, 0)
}

// Depth returns the number of edges on the longest root-to-leaf path.
func (t *Tree) Depth() int {
	depth := 0
	t.Walk(func(_, d int, _ *Node) {
		if d > depth {
			depth = d
		}
	})
	return depth
}

// NLeaves returns the number of leaves.
func (t *Tree) NLeaves() int {
	leaves := 0
	for i := range t.Nodes {
		if t.Nodes[i].Kind == LeafNode {
			leaves++
		}
	}
	return leaves
}

// MaxFeatureIndex returns the largest feature index tested by a decision
// node, or -1 when the tree is a single leaf.
func (t *Tree) MaxFeatureIndex() int {
	maxIdx := -1
	for i := range t.Nodes {
		n := &t.Nodes[i]
		if n.Kind == DecisionNode && n.FeatureIndex > maxIdx {
			maxIdx = n.FeatureIndex
		}
	}
	return maxIdx
}

// FeatureImportances returns the sample-weighted information gain of each
// feature, normalised to sum to one. A single-leaf tree yields all zeros.
func (t *Tree) FeatureImportances() []float64 {
	importances := make([]float64, t.NFeatures)
	root := t.Root()
	if root == nil || root.Samples == 0 {
		return importances
	}
	total := float64(root.Samples)
	var sum float64
	for i := range t.Nodes {
		n := &t.Nodes[i]
		if n.Kind != DecisionNode || n.FeatureIndex >= len(importances) {
			continue
		}
		w := float64(n.Samples) / total * n.InfoGain
		importances[n.FeatureIndex] += w
		sum += w
	}
	if sum > 0 {
		for i := range importances {
			importances[i] /= sum
		}
	}
	return importances
}

// Validate checks the arena invariants: children exist and come after
// their parent, leaves have no children, every node is reachable exactly
// once and class counts match the class list.
func (t *Tree) Validate() error {
	if t == nil || len(t.Nodes) == 0 {
		return errors.Wrap(scierrors.ErrInvalidModel, "tree has no nodes")
	}
	seen := make([]bool, len(t.Nodes))
	seen[0] = true
	for id := range t.Nodes {
		n := &t.Nodes[id]
		switch n.Kind {
		case DecisionNode:
			for _, child := range []int{n.Left, n.Right} {
				if child <= id || child >= len(t.Nodes) {
					return errors.Wrapf(scierrors.ErrInvalidModel, "node %d: child index %d out of range", id, child)
				}
				if seen[child] {
					return errors.Wrapf(scierrors.ErrInvalidModel, "node %d: child %d has two parents", id, child)
				}
				seen[child] = true
			}
			if n.FeatureIndex < 0 || (t.NFeatures > 0 && n.FeatureIndex >= t.NFeatures) {
				return errors.Wrapf(scierrors.ErrInvalidModel, "node %d: feature index %d out of range", id, n.FeatureIndex)
			}
		case LeafNode:
			if n.Left != noChild || n.Right != noChild {
				return errors.Wrapf(scierrors.ErrInvalidModel, "node %d: leaf has children", id)
			}
			if n.ClassCounts != nil && len(n.ClassCounts) != len(t.Classes) {
				return errors.Wrapf(scierrors.ErrInvalidModel, "node %d: %d class counts for %d classes", id, len(n.ClassCounts), len(t.Classes))
			}
		default:
			return errors.Wrapf(scierrors.ErrInvalidModel, "node %d: unknown kind %d", id, n.Kind)
		}
	}
	for id, ok := range seen {
		if !ok {
			return errors.Wrapf(scierrors.ErrInvalidModel, "node %d is unreachable", id)
		}
	}
	return nil
}
