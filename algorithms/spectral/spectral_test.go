package spectral

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RyanBlaney/sonido-embed/algorithms/windowing"
)

func TestSlaneyMelScaleReferencePoints(t *testing.T) {
	ms := NewMelScale()

	// librosa.hz_to_mel(1000) == 15, hz_to_mel(0) == 0
	assert.InDelta(t, 0.0, ms.HzToMel(0), 1e-12)
	assert.InDelta(t, 15.0, ms.HzToMel(1000), 1e-12)
	assert.InDelta(t, 3.0, ms.HzToMel(200), 1e-12)

	for _, hz := range []float64{0, 55, 440, 999, 1000, 4000, 11025} {
		assert.InDelta(t, hz, ms.MelToHz(ms.HzToMel(hz)), 1e-9, "round trip %v Hz", hz)
	}
}

func TestHTKMelScaleRoundTrip(t *testing.T) {
	ms := &MelScale{HTK: true}

	assert.InDelta(t, 1000.0, ms.HzToMel(1000), 0.5)
	assert.InDelta(t, 440.0, ms.MelToHz(ms.HzToMel(440)), 1e-9)
}

func TestMelFilterBankShapeAndArea(t *testing.T) {
	const (
		sr    = 22050
		nFFT  = 2048
		nMels = 96
	)
	ms := NewMelScale()
	bank := ms.CreateMelFilterBank(nMels, nFFT, sr, 0, sr/2)

	require.Len(t, bank, nMels)
	binWidth := float64(sr) / nFFT
	for m, filter := range bank {
		require.Len(t, filter, nFFT/2+1)
		sum := 0.0
		for _, w := range filter {
			assert.GreaterOrEqual(t, w, 0.0)
			sum += w
		}
		assert.Greater(t, sum, 0.0, "filter %d is empty", m)
		if m >= 10 {
			// Slaney normalization gives each triangle unit area in Hz
			assert.InEpsilon(t, 1.0, sum*binWidth, 0.15, "filter %d", m)
		}
	}
}

func TestMelFilterBankMatchesLibrosa(t *testing.T) {
	bank := NewMelScale().CreateMelFilterBank(96, 2048, 22050, 0, 11025)
	require.Len(t, bank, 96)

	// librosa.filters.mel(sr=22050, n_fft=2048, n_mels=96)
	tests := []struct {
		filter, first, last int
		weights             map[int]float64
	}{
		{0, 1, 6, map[int]float64{1: 0.00914995889, 2: 0.0182999178, 3: 0.0274498767, 4: 0.0217044189}},
		{40, 137, 146, map[int]float64{137: 0.00254752111, 138: 0.00633358949, 139: 0.0101196579, 140: 0.0139057263}},
		{95, 955, 1023, map[int]float64{955: 7.31194569e-05, 956: 0.000150424355, 957: 0.000227729253, 958: 0.000305034152}},
	}

	for _, tt := range tests {
		filter := bank[tt.filter]
		for k, w := range filter {
			if k < tt.first || k > tt.last {
				assert.Zero(t, w, "filter %d bin %d", tt.filter, k)
			} else {
				assert.Positive(t, w, "filter %d bin %d", tt.filter, k)
			}
		}
		for k, want := range tt.weights {
			assert.InEpsilon(t, want, filter[k], 1e-6, "filter %d bin %d", tt.filter, k)
		}
	}
}

func TestMelFilterBankRejectsBadInput(t *testing.T) {
	ms := NewMelScale()
	assert.Nil(t, ms.CreateMelFilterBank(0, 2048, 22050, 0, 11025))
	assert.Nil(t, ms.CreateMelFilterBank(96, 0, 22050, 0, 11025))
}

func TestFrameCount(t *testing.T) {
	assert.Equal(t, 259, FrameCount(132300, 2048, 512, true))
	assert.Equal(t, 1, FrameCount(10, 2048, 512, true))
	assert.Equal(t, 0, FrameCount(10, 2048, 512, false))
	assert.Equal(t, 3, FrameCount(2048+1024, 2048, 512, false))
}

func TestComputePowerPeaksAtToneBin(t *testing.T) {
	const (
		sr   = 22050
		nFFT = 2048
		hop  = 512
	)
	bin := 40
	freq := float64(bin) * sr / nFFT
	signal := make([]float64, sr)
	for i := range signal {
		signal[i] = math.Sin(2 * math.Pi * freq * float64(i) / sr)
	}

	stft := NewSTFT(2)
	result, err := stft.ComputePower(signal, nFFT, hop, sr, true, windowing.NewPeriodicHann(nFFT))
	require.NoError(t, err)

	assert.Equal(t, 1+len(signal)/hop, result.TimeFrames)
	assert.Equal(t, nFFT/2+1, result.FreqBins)

	mid := result.Power[result.TimeFrames/2]
	best := 0
	for k, v := range mid {
		if v > mid[best] {
			best = k
		}
	}
	assert.Equal(t, bin, best)
}

func TestComputePowerIsWorkerIndependent(t *testing.T) {
	signal := make([]float64, 5000)
	for i := range signal {
		signal[i] = math.Sin(float64(i)*0.01) + 0.3*math.Cos(float64(i)*0.37)
	}
	win := windowing.NewPeriodicHann(512)

	one, err := NewSTFT(1).ComputePower(signal, 512, 128, 22050, true, win)
	require.NoError(t, err)
	many, err := NewSTFT(8).ComputePower(signal, 512, 128, 22050, true, win)
	require.NoError(t, err)

	assert.Equal(t, one.Power, many.Power)
}

func TestComputePowerErrors(t *testing.T) {
	stft := NewSTFT(1)

	_, err := stft.ComputePower(nil, 2048, 512, 22050, true, nil)
	assert.Error(t, err)
	_, err = stft.ComputePower([]float64{1}, 0, 512, 22050, true, nil)
	assert.Error(t, err)
	_, err = stft.ComputePower([]float64{1}, 2048, 0, 22050, true, nil)
	assert.Error(t, err)
	_, err = stft.ComputePower([]float64{1, 2}, 2048, 512, 22050, false, nil)
	assert.Error(t, err)
}

func TestPowerToDB(t *testing.T) {
	spec := [][]float64{
		{1.0, 0.1, 1e-12},
		{0.01, 0.5, 0},
	}

	db := PowerToDB(spec, 80, DefaultAmin)

	assert.InDelta(t, 0.0, db[0][0], 1e-12)
	assert.InDelta(t, -10.0, db[0][1], 1e-9)
	assert.InDelta(t, -80.0, db[0][2], 1e-12)
	assert.InDelta(t, -20.0, db[1][0], 1e-9)
	assert.InDelta(t, -80.0, db[1][2], 1e-12)
	// input untouched
	assert.Equal(t, 0.1, spec[0][1])
}

func TestPowerToDBSilence(t *testing.T) {
	db := PowerToDB([][]float64{{0, 0}, {0, 0}}, 80, DefaultAmin)

	for _, row := range db {
		for _, v := range row {
			assert.Equal(t, -80.0, v)
		}
	}
}

func TestMelSpectrogramLayout(t *testing.T) {
	ms := NewMelScale()
	bank := [][]float64{{1, 0, 0}, {0, 1, 1}}
	power := [][]float64{{1, 2, 3}, {4, 5, 6}}

	mel := ms.MelSpectrogram(power, bank)

	assert.Equal(t, [][]float64{{1, 4}, {5, 11}}, mel)
}
