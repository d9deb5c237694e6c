package temporal

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRMS(t *testing.T) {
	assert.Equal(t, 0.0, RMS(nil))
	assert.InDelta(t, 0.5, RMS([]float64{0.5, -0.5, 0.5, -0.5}), 1e-12)

	sine := make([]float64, 22050)
	for i := range sine {
		sine[i] = math.Sin(2 * math.Pi * 441 * float64(i) / 22050)
	}
	assert.InDelta(t, 1/math.Sqrt2, RMS(sine), 1e-6)
}

func TestShortTimeRMS(t *testing.T) {
	signal := []float64{1, 1, 0, 0, 1, 1, 0}
	frames := ShortTimeRMS(signal, 2, 2)
	assert.Equal(t, []float64{1, 0, 1}, frames)

	assert.Empty(t, ShortTimeRMS(signal, 8, 2))
	assert.Empty(t, ShortTimeRMS(signal, 2, 0))
}

func TestAmplitudeToDB(t *testing.T) {
	assert.InDelta(t, 0.0, AmplitudeToDB(1, 1e-10), 1e-12)
	assert.InDelta(t, -20.0, AmplitudeToDB(0.1, 1e-10), 1e-9)
	assert.InDelta(t, -200.0, AmplitudeToDB(0, 1e-10), 1e-9)
}

func TestSilentFraction(t *testing.T) {
	assert.Equal(t, 1.0, SilentFraction(nil, SilenceRMS))
	assert.Equal(t, 0.5, SilentFraction([]float64{0, 0.1, 1e-7, 0.3}, SilenceRMS))
}
