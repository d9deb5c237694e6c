package windowing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPeriodicHannMatchesScipy(t *testing.T) {
	// scipy.signal.get_window("hann", 4) == [0, 0.5, 1, 0.5]
	h := NewPeriodicHann(4)
	coeffs := h.GetCoefficients()

	require.Len(t, coeffs, 4)
	assert.InDelta(t, 0.0, coeffs[0], 1e-15)
	assert.InDelta(t, 0.5, coeffs[1], 1e-15)
	assert.InDelta(t, 1.0, coeffs[2], 1e-15)
	assert.InDelta(t, 0.5, coeffs[3], 1e-15)
	assert.False(t, h.IsSymmetric())
}

func TestSymmetricHannEndpoints(t *testing.T) {
	coeffs := NewHann(5, true).GetCoefficients()

	assert.InDelta(t, 0.0, coeffs[0], 1e-15)
	assert.InDelta(t, 1.0, coeffs[2], 1e-15)
	assert.InDelta(t, 0.0, coeffs[4], 1e-15)
}

func TestApplyInPlaceRejectsWrongLength(t *testing.T) {
	h := NewPeriodicHann(8)

	err := h.ApplyInPlace(make([]float64, 7))
	assert.Error(t, err)
	assert.Nil(t, h.Apply(make([]float64, 3)))
}

func TestApplyScalesSignal(t *testing.T) {
	h := NewPeriodicHann(4)
	signal := []float64{2, 2, 2, 2}

	require.NoError(t, h.ApplyInPlace(signal))
	assert.InDeltaSlice(t, []float64{0, 1, 2, 1}, signal, 1e-12)
}
