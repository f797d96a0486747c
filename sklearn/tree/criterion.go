package tree

import (
	"math"
)

// Criterion names accepted by WithCriterion.
const (
	CriterionGini    = "gini"
	CriterionEntropy = "entropy"
)

// labelCount is the number of occurrences of one label in a node.
type labelCount struct {
	label float64
	count int
}

// countLabels counts labels of the given rows in first-seen order. Only
// the majority vote uses this order; impurities are summed over a
// classHistogram instead.
func countLabels(y []float64, rows []int) []labelCount {
	pos := make(map[float64]int, 4)
	counts := make([]labelCount, 0, 4)
	for _, r := range rows {
		label := y[r]
		if i, ok := pos[label]; ok {
			counts[i].count++
			continue
		}
		pos[label] = len(counts)
		counts = append(counts, labelCount{label: label, count: 1})
	}
	return counts
}

// classHistogram counts the rows of each class. classIndex maps a label to
// its position in the ascending class list, so every partition sums its
// impurity terms in the same order and tied splits get bit-identical gains.
func classHistogram(y []float64, rows []int, classIndex map[float64]int, nClasses int) []int {
	hist := make([]int, nClasses)
	for _, r := range rows {
		hist[classIndex[y[r]]]++
	}
	return hist
}

// giniImpurity returns 1 - Σ p_c², summed in class order. Absent classes
// are skipped. Products are converted explicitly so no platform fuses them.
func giniImpurity(hist []int, n int) float64 {
	if n == 0 {
		return 0
	}
	total := float64(n)
	gini := 1.0
	for _, count := range hist {
		if count == 0 {
			continue
		}
		p := float64(count) / total
		gini -= float64(p * p)
	}
	return gini
}

// labelEntropy returns Σ -p_c·log2(c), where c is the label value itself
// and not its probability. This is the formula the "entropy" criterion has
// always used; it only makes sense for strictly positive labels, which Fit
// enforces, and it is kept for compatibility with existing models.
//
// The value is linear in the class proportions, so a split's gain is zero
// in exact arithmetic. In floating point the children do not always add up
// to the parent bit for bit, and a positive rounding residue (around 1e-16)
// is enough for the builder to accept a split.
func labelEntropy(classes []float64, hist []int, n int) float64 {
	if n == 0 {
		return 0
	}
	total := float64(n)
	var entropy float64
	for i, count := range hist {
		if count == 0 {
			continue
		}
		p := float64(count) / total
		entropy += float64(-p * math.Log2(classes[i]))
	}
	return entropy
}

// histogramOf returns the ascending classes of y and their counts.
func histogramOf(y []float64) ([]float64, []int) {
	classes := uniqueClasses(y)
	classIndex := make(map[float64]int, len(classes))
	for i, c := range classes {
		classIndex[c] = i
	}
	return classes, classHistogram(y, allRows(len(y)), classIndex, len(classes))
}

// Gini returns the gini impurity of a label column.
func Gini(y []float64) float64 {
	_, hist := histogramOf(y)
	return giniImpurity(hist, len(y))
}

// Entropy returns the value of the "entropy" criterion for a label column.
// See labelEntropy for how it differs from Shannon entropy.
func Entropy(y []float64) float64 {
	classes, hist := histogramOf(y)
	return labelEntropy(classes, hist, len(y))
}

// InformationGain returns impurity(parent) minus the size-weighted impurity
// of the two children under the named criterion.
func InformationGain(parent, left, right []float64, criterion string) float64 {
	impurity := impurityFunc(criterion)
	wl := float64(len(left)) / float64(len(parent))
	wr := float64(len(right)) / float64(len(parent))
	return impurity(parent) - (wl*impurity(left) + wr*impurity(right))
}

func impurityFunc(criterion string) func([]float64) float64 {
	if criterion == CriterionEntropy {
		return Entropy
	}
	return Gini
}

func allRows(n int) []int {
	rows := make([]int, n)
	for i := range rows {
		rows[i] = i
	}
	return rows
}
