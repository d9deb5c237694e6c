package common

import (
	"math"
)

// Interpolator resamples 1-D and 2-D data with linear interpolation
type Interpolator struct{}

// NewInterpolator creates a new interpolator
func NewInterpolator() *Interpolator {
	return &Interpolator{}
}

// Interpolate returns data at a fractional index, clamping to the ends
func (interp *Interpolator) Interpolate(data []float64, index float64) float64 {
	if len(data) == 0 {
		return 0.0
	}

	if index <= 0 {
		return data[0]
	}
	if index >= float64(len(data)-1) {
		return data[len(data)-1]
	}

	i := int(index)
	frac := index - float64(i)

	return data[i] + frac*(data[i+1]-data[i])
}

// ResampleSignal resamples a signal to a new sample rate.
// Output sample i reads the source at i*originalRate/targetRate.
func (interp *Interpolator) ResampleSignal(signal []float64, originalRate, targetRate int) []float64 {
	if len(signal) == 0 || originalRate <= 0 || targetRate <= 0 {
		return signal
	}

	if originalRate == targetRate {
		out := make([]float64, len(signal))
		copy(out, signal)
		return out
	}

	ratio := float64(originalRate) / float64(targetRate)
	newLength := int(float64(len(signal)) / ratio)

	if newLength <= 0 {
		return []float64{}
	}

	resampled := make([]float64, newLength)

	for i := range resampled {
		sourceIndex := float64(i) * ratio
		resampled[i] = interp.Interpolate(signal, sourceIndex)
	}

	return resampled
}

// ZoomLength is the output length of a linear zoom of n samples by
// target/n, as scipy.ndimage.zoom rounds it.
func ZoomLength(n, target int) int {
	if n <= 0 {
		return 0
	}
	return int(math.Round(float64(n) * (float64(target) / float64(n))))
}

// InterpolateArray stretches data to newLength with endpoint-aligned
// linear interpolation: output j reads source j*(n-1)/(newLength-1).
func (interp *Interpolator) InterpolateArray(data []float64, newLength int) []float64 {
	if len(data) == 0 || newLength <= 0 {
		return []float64{}
	}

	result := make([]float64, newLength)

	if newLength == len(data) {
		copy(result, data)
		return result
	}

	if newLength == 1 || len(data) == 1 {
		for i := range result {
			result[i] = data[0]
		}
		return result
	}

	ratio := float64(len(data)-1) / float64(newLength-1)

	for i := range result {
		result[i] = interp.Interpolate(data, float64(i)*ratio)
	}

	return result
}

// ZoomColumns resamples every row of a Rows x Cols matrix along the column
// axis to exactly target columns.
//
// Rows are first zoomed to ZoomLength(cols, target) columns with
// order-1 spline semantics (scipy.ndimage.zoom(order=1, grid_mode=False)),
// then truncated or zero-padded on the right to target. When cols already
// equals target the rows are copied unchanged.
func (interp *Interpolator) ZoomColumns(data [][]float64, target int) [][]float64 {
	out := make([][]float64, len(data))
	for r, row := range data {
		dst := make([]float64, target)
		if len(row) == target {
			copy(dst, row)
			out[r] = dst
			continue
		}

		zoomed := interp.InterpolateArray(row, ZoomLength(len(row), target))
		copy(dst, zoomed)
		out[r] = dst
	}
	return out
}
