package stats

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/RyanBlaney/sonido-embed/algorithms/common"
)

// CosineEpsilon is added to the norm product so zero vectors never divide by zero
const CosineEpsilon = 1e-10

// CosineSimilarity returns dot(a,b)/(|a||b| + 1e-10) clamped to [-1, 1].
// degenerate is true when either norm is below CosineEpsilon; the value is
// still returned (it is ~0) so callers can count it instead of dropping it.
//
// Each vector is scaled by its own norm before the dot product, so large
// finite elements cannot overflow it.
func CosineSimilarity(a, b []float64) (similarity float64, degenerate bool) {
	if len(a) == 0 || len(a) != len(b) {
		return 0.0, true
	}

	normA := floats.Norm(a, 2)
	normB := floats.Norm(b, 2)
	degenerate = normA < CosineEpsilon || normB < CosineEpsilon
	if normA == 0 || normB == 0 {
		return 0.0, true
	}

	dot := 0.0
	for i := range a {
		dot += (a[i] / normA) * (b[i] / normB)
	}

	// dot(a,b)/(|a||b| + eps) rewritten over the unit vectors; an overflowing
	// norm product only drops the epsilon term
	similarity = dot / (1 + CosineEpsilon/(normA*normB))
	if math.IsNaN(similarity) {
		return 0.0, true
	}
	return common.Clamp(similarity, -1, 1), degenerate
}

// SquaredEuclideanDistance is the k-means objective term
func SquaredEuclideanDistance(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

// NormalizeRows returns unit-norm copies of vectors. Rows with norm below
// CosineEpsilon are copied unchanged. Dot products of the result equal
// cosine similarities up to the epsilon term.
func NormalizeRows(vectors [][]float64) [][]float64 {
	out := make([][]float64, len(vectors))
	for i, v := range vectors {
		row := make([]float64, len(v))
		copy(row, v)
		if n := floats.Norm(row, 2); n >= CosineEpsilon {
			floats.Scale(1/n, row)
		}
		out[i] = row
	}
	return out
}
