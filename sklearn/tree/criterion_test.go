package tree

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGini(t *testing.T) {
	tests := []struct {
		name string
		y    []float64
		want float64
	}{
		{name: "single class", y: []float64{1, 1, 1, 1}, want: 0},
		{name: "two classes even", y: []float64{0, 1, 0, 1}, want: 0.5},
		{name: "three classes even", y: []float64{0, 1, 2}, want: 1 - 1.0/3.0},
		{name: "four classes even", y: []float64{3, 2, 1, 0, 3, 2, 1, 0}, want: 0.75},
		{name: "skewed", y: []float64{0, 0, 0, 1}, want: 0.375},
		{name: "empty", y: nil, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Gini(tt.y), 1e-12)
		})
	}
}

func TestEntropy_UsesLabelValues(t *testing.T) {
	// Only the label values enter the logarithm, so a column of ones
	// scores zero whatever its size and {1, 2} scores -0.5.
	assert.InDelta(t, 0, Entropy([]float64{1, 1, 1}), 1e-12)
	assert.InDelta(t, -0.5, Entropy([]float64{1, 2}), 1e-12)
	assert.InDelta(t, -0.25*math.Log2(4), Entropy([]float64{1, 1, 1, 4}), 1e-12)
}

func TestInformationGain(t *testing.T) {
	parent := []float64{0, 0, 1, 1}

	assert.InDelta(t, 0.5, InformationGain(parent, []float64{0, 0}, []float64{1, 1}, CriterionGini), 1e-12)
	assert.InDelta(t, 1.0/6.0, InformationGain(parent, []float64{0}, []float64{0, 1, 1}, CriterionGini), 1e-12)
	assert.InDelta(t, 0, InformationGain(parent, []float64{0, 1}, []float64{0, 1}, CriterionGini), 1e-12)
}

func TestInformationGain_EntropyIsZeroUpToRounding(t *testing.T) {
	// The entropy criterion is linear in the class proportions, so the
	// weighted children add back up to the parent except for rounding.
	parent := []float64{1, 1, 2, 2}
	gain := InformationGain(parent, []float64{1, 1}, []float64{2, 2}, CriterionEntropy)
	assert.InDelta(t, 0, gain, 1e-12)

	parent = []float64{3, 7, 2, 5, 3, 7}
	gain = InformationGain(parent, []float64{3}, []float64{7, 2, 5, 3, 7}, CriterionEntropy)
	assert.InDelta(t, 0, gain, 1e-12)
}

func TestClassHistogram_ClassOrder(t *testing.T) {
	y := []float64{5, 3, 5, 7, 3, 5}
	classIndex := map[float64]int{3: 0, 5: 1, 7: 2}

	assert.Equal(t, []int{2, 3, 1}, classHistogram(y, allRows(len(y)), classIndex, 3))
	assert.Equal(t, []int{1, 0, 1}, classHistogram(y, []int{3, 1}, classIndex, 3))

	// Two partitions holding the same multiset score bit-identically
	// whatever order their rows arrive in.
	a := giniImpurity(classHistogram(y, []int{0, 1, 2}, classIndex, 3), 3)
	b := giniImpurity(classHistogram(y, []int{4, 2, 0}, classIndex, 3), 3)
	assert.Equal(t, a, b)
}

func TestCountLabels_FirstSeenOrder(t *testing.T) {
	y := []float64{5, 3, 5, 7, 3, 5}
	got := countLabels(y, []int{0, 1, 2, 3, 4, 5})
	assert.Equal(t, []labelCount{{5, 3}, {3, 2}, {7, 1}}, got)

	got = countLabels(y, []int{3, 1})
	assert.Equal(t, []labelCount{{7, 1}, {3, 1}}, got)
}

func TestDistinctSorted(t *testing.T) {
	assert.Equal(t, []float64{1, 2, 3}, distinctSorted([]float64{3, 1, 2, 3, 1}))
	assert.Equal(t, []float64{4}, distinctSorted([]float64{4, 4, 4}))
	assert.Empty(t, distinctSorted(nil))
}
