package spectral

import (
	"math"
)

// Slaney mel scale constants (Auditory Toolbox, librosa htk=False)
const (
	slaneyFSp       = 200.0 / 3.0
	slaneyMinLogHz  = 1000.0
	slaneyMinLogMel = slaneyMinLogHz / slaneyFSp
)

var slaneyLogStep = math.Log(6.4) / 27.0

// MelScale provides mel frequency conversion and filter bank construction.
// HTK selects the 2595*log10(1+f/700) formula; the default is the Slaney
// scale used by librosa.
type MelScale struct {
	HTK bool
}

// NewMelScale creates a Slaney mel scale converter
func NewMelScale() *MelScale {
	return &MelScale{}
}

// HzToMel converts frequency in Hz to mel scale
func (ms *MelScale) HzToMel(hz float64) float64 {
	if ms.HTK {
		return 2595.0 * math.Log10(1.0+hz/700.0)
	}
	if hz < slaneyMinLogHz {
		return hz / slaneyFSp
	}
	return slaneyMinLogMel + math.Log(hz/slaneyMinLogHz)/slaneyLogStep
}

// MelToHz converts mel scale to frequency in Hz
func (ms *MelScale) MelToHz(mel float64) float64 {
	if ms.HTK {
		return 700.0 * (math.Pow(10.0, mel/2595.0) - 1.0)
	}
	if mel < slaneyMinLogMel {
		return slaneyFSp * mel
	}
	return slaneyMinLogHz * math.Exp(slaneyLogStep*(mel-slaneyMinLogMel))
}

// MelFrequencies returns numPoints frequencies evenly spaced on the mel
// scale between lowFreq and highFreq inclusive.
func (ms *MelScale) MelFrequencies(numPoints int, lowFreq, highFreq float64) []float64 {
	if numPoints <= 0 {
		return nil
	}
	lowMel := ms.HzToMel(lowFreq)
	highMel := ms.HzToMel(highFreq)

	freqs := make([]float64, numPoints)
	if numPoints == 1 {
		freqs[0] = ms.MelToHz(lowMel)
		return freqs
	}
	step := (highMel - lowMel) / float64(numPoints-1)
	for i := range freqs {
		freqs[i] = ms.MelToHz(lowMel + float64(i)*step)
	}
	// pin the endpoints; a round trip can land an ulp above Nyquist and
	// leave a stray weight on the last bin
	freqs[0] = lowFreq
	freqs[numPoints-1] = highFreq
	return freqs
}

// CreateMelFilterBank creates a [numFilters][fftSize/2+1] triangular filter
// bank. Triangles are evaluated at the continuous bin frequencies
// k*sampleRate/fftSize and scaled by 2/(f[m+2]-f[m]) so every filter has
// unit area (Slaney normalization, librosa norm="slaney").
func (ms *MelScale) CreateMelFilterBank(numFilters int, fftSize int, sampleRate int, lowFreq, highFreq float64) [][]float64 {
	if numFilters <= 0 || fftSize <= 0 || sampleRate <= 0 {
		return nil
	}

	numBins := fftSize/2 + 1
	fftFreqs := make([]float64, numBins)
	for k := range fftFreqs {
		fftFreqs[k] = float64(k) * float64(sampleRate) / float64(fftSize)
	}

	melF := ms.MelFrequencies(numFilters+2, lowFreq, highFreq)

	fdiff := make([]float64, len(melF)-1)
	for i := range fdiff {
		fdiff[i] = melF[i+1] - melF[i]
	}

	filterBank := make([][]float64, numFilters)
	for m := range numFilters {
		filter := make([]float64, numBins)
		enorm := 2.0 / (melF[m+2] - melF[m])

		for k, f := range fftFreqs {
			lower := (f - melF[m]) / fdiff[m]
			upper := (melF[m+2] - f) / fdiff[m+1]
			w := math.Max(0, math.Min(lower, upper))
			filter[k] = w * enorm
		}
		filterBank[m] = filter
	}

	return filterBank
}

// ApplyFilterBank projects one power spectrum onto the filter bank
func (ms *MelScale) ApplyFilterBank(powerSpectrum []float64, filterBank [][]float64) []float64 {
	if len(filterBank) == 0 || len(powerSpectrum) == 0 {
		return []float64{}
	}

	melSpectrum := make([]float64, len(filterBank))

	for i, filter := range filterBank {
		sum := 0.0
		for j := 0; j < len(filter) && j < len(powerSpectrum); j++ {
			sum += powerSpectrum[j] * filter[j]
		}
		melSpectrum[i] = sum
	}

	return melSpectrum
}

// MelSpectrogram projects a Time x Frequency power spectrogram onto the
// filter bank and returns it laid out Mel x Time.
func (ms *MelScale) MelSpectrogram(power [][]float64, filterBank [][]float64) [][]float64 {
	melSpec := make([][]float64, len(filterBank))
	for m := range melSpec {
		melSpec[m] = make([]float64, len(power))
	}

	for t, frame := range power {
		for m, v := range ms.ApplyFilterBank(frame, filterBank) {
			melSpec[m][t] = v
		}
	}

	return melSpec
}
