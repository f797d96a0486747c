package tree

import (
	"context"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/cartree/pkg/log"
)

// split is the outcome of a best-split search.
type split struct {
	feature   int
	threshold float64
	left      []int
	right     []int
	gain      float64
}

// builder grows one tree. X and y are shared read-only by every node;
// a node's dataset is the ordered list of row indices that reached it.
type builder struct {
	x          mat.Matrix
	y          []float64
	nFeatures  int
	classes    []float64
	classIndex map[float64]int

	minSamplesSplit int
	maxDepth        int
	criterion       string

	logger log.Logger
	debug  bool

	nodes []Node
}

func newBuilder(ctx context.Context, x mat.Matrix, y []float64, classes []float64, minSamplesSplit, maxDepth int, criterion string, logger log.Logger) *builder {
	_, nFeatures := x.Dims()
	classIndex := make(map[float64]int, len(classes))
	for i, c := range classes {
		classIndex[c] = i
	}
	return &builder{
		x:               x,
		y:               y,
		nFeatures:       nFeatures,
		classes:         classes,
		classIndex:      classIndex,
		minSamplesSplit: minSamplesSplit,
		maxDepth:        maxDepth,
		criterion:       criterion,
		logger:          logger,
		debug:           logger.Enabled(ctx, log.LevelDebug),
	}
}

// build grows the subtree for rows and returns its node index.
func (b *builder) build(ctx context.Context, rows []int, depth int) (int, error) {
	if err := ctx.Err(); err != nil {
		return noChild, err
	}

	id := len(b.nodes)
	b.nodes = append(b.nodes, Node{})
	hist := b.histogram(rows)
	impurity := b.impurity(hist, len(rows))

	if len(rows) >= b.minSamplesSplit && depth <= b.maxDepth {
		if best, ok := b.findBestSplit(rows, impurity); ok && best.gain > 0 {
			if b.debug {
				b.logger.Debug("split accepted",
					log.NodeDepthKey, depth,
					log.SplitFeatureKey, best.feature,
					log.SplitThresholdKey, best.threshold,
					log.SplitGainKey, best.gain,
					log.SamplesKey, len(rows),
				)
			}
			left, err := b.build(ctx, best.left, depth+1)
			if err != nil {
				return noChild, err
			}
			right, err := b.build(ctx, best.right, depth+1)
			if err != nil {
				return noChild, err
			}
			b.nodes[id] = Node{
				Kind:         DecisionNode,
				FeatureIndex: best.feature,
				Threshold:    best.threshold,
				Left:         left,
				Right:        right,
				InfoGain:     best.gain,
				Samples:      len(rows),
				Impurity:     impurity,
			}
			return id, nil
		}
	}

	b.nodes[id] = b.leaf(rows, hist, impurity)
	return id, nil
}

// findBestSplit scans every feature in index order and every distinct
// value of that feature in ascending order. The first candidate with the
// strictly largest gain wins. ok is false when no candidate leaves both
// sides non-empty.
func (b *builder) findBestSplit(rows []int, parentImpurity float64) (split, bool) {
	best := split{gain: math.Inf(-1)}
	found := false
	values := make([]float64, len(rows))
	for f := 0; f < b.nFeatures; f++ {
		for i, r := range rows {
			values[i] = b.x.At(r, f)
		}
		for _, threshold := range distinctSorted(values) {
			left, right := b.partition(rows, f, threshold)
			if len(left) == 0 || len(right) == 0 {
				continue
			}
			gain := b.gain(parentImpurity, len(rows), left, right)
			if gain > best.gain {
				best = split{feature: f, threshold: threshold, left: left, right: right, gain: gain}
				found = true
			}
		}
	}
	return best, found
}

// partition splits rows on x[f] <= threshold, preserving row order.
func (b *builder) partition(rows []int, f int, threshold float64) (left, right []int) {
	for _, r := range rows {
		if b.x.At(r, f) <= threshold {
			left = append(left, r)
		} else {
			right = append(right, r)
		}
	}
	return left, right
}

func (b *builder) gain(parentImpurity float64, n int, left, right []int) float64 {
	total := float64(n)
	wl := float64(len(left)) / total
	wr := float64(len(right)) / total
	il := b.impurity(b.histogram(left), len(left))
	ir := b.impurity(b.histogram(right), len(right))
	// The conversions stop the compiler fusing into FMA, which would make
	// mirrored splits round differently.
	return parentImpurity - (float64(wl*il) + float64(wr*ir))
}

func (b *builder) histogram(rows []int) []int {
	return classHistogram(b.y, rows, b.classIndex, len(b.classes))
}

func (b *builder) impurity(hist []int, n int) float64 {
	if b.criterion == CriterionEntropy {
		return labelEntropy(b.classes, hist, n)
	}
	return giniImpurity(hist, n)
}

// leaf returns a leaf holding the majority label. Labels are visited in
// first-seen row order and the comparison is strict, so ties go to the
// label seen first.
func (b *builder) leaf(rows []int, hist []int, impurity float64) Node {
	var value float64
	most := 0
	for _, c := range countLabels(b.y, rows) {
		if c.count > most {
			most = c.count
			value = c.label
		}
	}
	return Node{
		Kind:        LeafNode,
		Left:        noChild,
		Right:       noChild,
		Value:       value,
		ClassCounts: hist,
		Samples:     len(rows),
		Impurity:    impurity,
	}
}

// distinctSorted returns the distinct values in ascending order. values is
// reordered in place.
func distinctSorted(values []float64) []float64 {
	sort.Float64s(values)
	out := make([]float64, 0, len(values))
	for i, v := range values {
		if i == 0 || v != values[i-1] {
			out = append(out, v)
		}
	}
	return out
}
