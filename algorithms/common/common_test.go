package common

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInterpolateArrayAlignsEndpoints(t *testing.T) {
	interp := NewInterpolator()

	assert.Equal(t, []float64{0, 0.5, 1, 1.5, 2}, interp.InterpolateArray([]float64{0, 1, 2}, 5))
	assert.Equal(t, []float64{0, 2}, interp.InterpolateArray([]float64{0, 1, 2}, 2))
	assert.Equal(t, []float64{7, 7, 7}, interp.InterpolateArray([]float64{7}, 3))
	assert.Equal(t, []float64{3}, interp.InterpolateArray([]float64{3, 9}, 1))
	assert.Empty(t, interp.InterpolateArray(nil, 4))
}

func TestZoomColumns(t *testing.T) {
	interp := NewInterpolator()

	t.Run("same width is an exact copy", func(t *testing.T) {
		in := [][]float64{{1, 2, 3, 4}, {-1, -2, -3, -4}}
		out := interp.ZoomColumns(in, 4)
		assert.Equal(t, in, out)

		out[0][0] = 99
		assert.Equal(t, 1.0, in[0][0])
	})

	t.Run("stretch", func(t *testing.T) {
		out := interp.ZoomColumns([][]float64{{0, 4}}, 5)
		assert.Equal(t, [][]float64{{0, 1, 2, 3, 4}}, out)
	})

	t.Run("shrink", func(t *testing.T) {
		out := interp.ZoomColumns([][]float64{{0, 1, 2, 3, 4, 5, 6}}, 4)
		assert.Equal(t, [][]float64{{0, 2, 4, 6}}, out)
	})

	t.Run("always target width", func(t *testing.T) {
		for _, cols := range []int{1, 2, 7, 215, 216, 217, 1000} {
			row := make([]float64, cols)
			out := interp.ZoomColumns([][]float64{row}, 216)
			assert.Len(t, out[0], 216, "cols=%d", cols)
		}
	})
}

func TestZoomLength(t *testing.T) {
	assert.Equal(t, 216, ZoomLength(259, 216))
	assert.Equal(t, 216, ZoomLength(3, 216))
	assert.Equal(t, 0, ZoomLength(0, 216))
}

func TestResampleSignal(t *testing.T) {
	interp := NewInterpolator()

	out := interp.ResampleSignal([]float64{0, 1, 2, 3}, 44100, 22050)
	assert.Equal(t, []float64{0, 2}, out)

	same := interp.ResampleSignal([]float64{1, 2}, 22050, 22050)
	assert.Equal(t, []float64{1, 2}, same)
}

func TestMathHelpers(t *testing.T) {
	assert.Equal(t, 2.5, Median([]float64{4, 1, 3, 2}))
	assert.Equal(t, 3.0, Median([]float64{5, 3, 1}))
	assert.InDelta(t, 2.0, PopulationStdDev([]float64{2, 4, 4, 4, 5, 5, 7, 9}), 1e-12)
	assert.Equal(t, 0.0, PopulationStdDev([]float64{1}))

	lo, hi := MinMax([]float64{3, -1, 8})
	assert.Equal(t, -1.0, lo)
	assert.Equal(t, 8.0, hi)

	assert.Equal(t, 1.0, Clamp(1.2, -1, 1))
	assert.True(t, IsFinite([]float64{0, 1}))
	assert.False(t, IsFinite([]float64{math.NaN()}))
}
