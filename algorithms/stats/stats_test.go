package stats

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name       string
		a, b       []float64
		want       float64
		degenerate bool
	}{
		{"identical", []float64{1, 2, 3}, []float64{1, 2, 3}, 1.0, false},
		{"orthogonal", []float64{1, 0}, []float64{0, 1}, 0.0, false},
		{"opposite", []float64{1, 1}, []float64{-1, -1}, -1.0, false},
		{"zero vector", []float64{0, 0}, []float64{1, 1}, 0.0, true},
		{"length mismatch", []float64{1}, []float64{1, 2}, 0.0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, degenerate := CosineSimilarity(tt.a, tt.b)
			assert.InDelta(t, tt.want, got, 1e-9)
			assert.Equal(t, tt.degenerate, degenerate)
		})
	}
}

func TestCosineSimilarityProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	vec := func() []float64 {
		v := make([]float64, 100)
		for i := range v {
			v[i] = rng.NormFloat64()
		}
		return v
	}

	for range 50 {
		a, b := vec(), vec()
		ab, _ := CosineSimilarity(a, b)
		ba, _ := CosineSimilarity(b, a)
		aa, _ := CosineSimilarity(a, a)

		assert.Equal(t, ab, ba)
		assert.GreaterOrEqual(t, ab, -1.0)
		assert.LessOrEqual(t, ab, 1.0)
		assert.InDelta(t, 1.0, aa, 1e-6)
	}
}

func TestCosineSimilarityLargeElements(t *testing.T) {
	a := make([]float64, 100)
	b := make([]float64, 100)
	for i := range a {
		a[i] = 1e160
		b[i] = -1e160
	}
	b[0] = 3e159

	self, degenerate := CosineSimilarity(a, a)
	assert.False(t, degenerate)
	assert.InDelta(t, 1.0, self, 1e-12)

	opposite, _ := CosineSimilarity(a, b)
	require.False(t, math.IsNaN(opposite))
	assert.GreaterOrEqual(t, opposite, -1.0)
	assert.Less(t, opposite, -0.98)

	small := make([]float64, 100)
	for i := range small {
		small[i] = 1e-3
	}
	mixed, _ := CosineSimilarity(a, small)
	assert.InDelta(t, 1.0, mixed, 1e-12)
}

func TestSummarize(t *testing.T) {
	s := Summarize([]float64{2, 4, 4, 4, 5, 5, 7, 9})

	assert.Equal(t, 8, s.Count)
	assert.InDelta(t, 5.0, s.Mean, 1e-12)
	assert.InDelta(t, 2.0, s.StdDev, 1e-12)
	assert.Equal(t, 2.0, s.Min)
	assert.Equal(t, 9.0, s.Max)
	assert.Equal(t, 4.5, s.Median)

	assert.Equal(t, Summary{}, Summarize(nil))
}

func TestAccumulatorMergeMatchesSinglePass(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	values := make([]float64, 1000)
	for i := range values {
		values[i] = rng.Float64()*2 - 1
	}

	var whole Accumulator
	for _, v := range values {
		whole.Add(v)
	}

	var parts [4]Accumulator
	for i, v := range values {
		parts[i%4].Add(v)
	}
	var merged Accumulator
	for _, p := range parts {
		merged.Merge(p)
	}
	merged.Merge(Accumulator{})

	ref := Summarize(values)
	for _, acc := range []Accumulator{whole, merged} {
		s := acc.Summary()
		assert.Equal(t, ref.Count, s.Count)
		assert.InDelta(t, ref.Mean, s.Mean, 1e-12)
		assert.InDelta(t, ref.StdDev, s.StdDev, 1e-12)
		assert.Equal(t, ref.Min, s.Min)
		assert.Equal(t, ref.Max, s.Max)
	}
}

func blobs(seed int64) ([][]float64, []int) {
	rng := rand.New(rand.NewSource(seed))
	centers := [][]float64{{10, 0, 0}, {0, 10, 0}, {0, 0, 10}}
	var data [][]float64
	var truth []int
	for c, center := range centers {
		for range 20 {
			p := make([]float64, len(center))
			for i := range p {
				p[i] = center[i] + rng.NormFloat64()*0.3
			}
			data = append(data, p)
			truth = append(truth, c)
		}
	}
	return data, truth
}

func TestKMeansRecoversSeparatedBlobs(t *testing.T) {
	data, truth := blobs(3)

	result, err := NewClusteringWithParams(DefaultClusteringParams(3)).Fit(data)
	require.NoError(t, err)
	require.Len(t, result.Labels, len(data))

	// same partition up to label permutation
	mapping := map[int]int{}
	for i, l := range result.Labels {
		if m, ok := mapping[truth[i]]; ok {
			assert.Equal(t, m, l)
		} else {
			mapping[truth[i]] = l
		}
	}
	assert.Len(t, mapping, 3)
	assert.Less(t, result.Inertia, 60*3*0.3*0.3*2)
}

func TestKMeansIsDeterministicForSeed(t *testing.T) {
	data, _ := blobs(9)

	a, err := NewClusteringWithParams(DefaultClusteringParams(4)).Fit(data)
	require.NoError(t, err)
	b, err := NewClusteringWithParams(DefaultClusteringParams(4)).Fit(data)
	require.NoError(t, err)

	assert.Equal(t, a.Labels, b.Labels)
	assert.Equal(t, a.Inertia, b.Inertia)
}

func TestKMeansErrors(t *testing.T) {
	_, err := NewClusteringWithParams(DefaultClusteringParams(2)).Fit(nil)
	assert.Error(t, err)
	_, err = NewClusteringWithParams(DefaultClusteringParams(5)).Fit([][]float64{{1}, {2}})
	assert.Error(t, err)
}

func TestSilhouetteScore(t *testing.T) {
	data, truth := blobs(5)

	good := SilhouetteScore(data, truth, 4)
	assert.Greater(t, good, 0.9)
	assert.LessOrEqual(t, good, 1.0)

	assert.Equal(t, good, SilhouetteScore(data, truth, 1))

	one := make([]int, len(data))
	assert.Equal(t, 0.0, SilhouetteScore(data, one, 2))

	each := make([]int, len(data))
	for i := range each {
		each[i] = i
	}
	assert.Equal(t, 0.0, SilhouetteScore(data, each, 2))
}

func TestSilhouetteSingletonScoresZero(t *testing.T) {
	data := [][]float64{{1, 0}, {1, 0.01}, {0, 1}}
	labels := []int{0, 0, 1}

	score := SilhouetteScore(data, labels, 1)

	// the singleton contributes 0, the pair contributes ~1 each
	assert.InDelta(t, 2.0/3.0, score, 1e-3)
	assert.False(t, math.IsNaN(score))
}
