package temporal

import "math"

// SilenceRMS is the RMS level (about -100 dBFS) below which a signal is
// treated as digital silence
const SilenceRMS = 1e-5

// RMS returns the root-mean-square amplitude of signal
func RMS(signal []float64) float64 {
	if len(signal) == 0 {
		return 0.0
	}
	sumSquares := 0.0
	for _, s := range signal {
		sumSquares += s * s
	}
	return math.Sqrt(sumSquares / float64(len(signal)))
}

// ShortTimeRMS calculates RMS energy for overlapping frames. Trailing
// samples that do not fill a frame are ignored.
func ShortTimeRMS(signal []float64, frameSize, hopSize int) []float64 {
	if len(signal) < frameSize || hopSize <= 0 || frameSize <= 0 {
		return []float64{}
	}

	numFrames := (len(signal)-frameSize)/hopSize + 1
	energies := make([]float64, numFrames)
	for i := range numFrames {
		start := i * hopSize
		energies[i] = RMS(signal[start : start+frameSize])
	}
	return energies
}

// AmplitudeToDB converts an amplitude to dBFS, flooring at floor
func AmplitudeToDB(amplitude, floor float64) float64 {
	return 20.0 * math.Log10(math.Max(amplitude, floor))
}

// SilentFraction returns the share of frames whose RMS is below threshold
func SilentFraction(energies []float64, threshold float64) float64 {
	if len(energies) == 0 {
		return 1.0
	}
	silent := 0
	for _, e := range energies {
		if e < threshold {
			silent++
		}
	}
	return float64(silent) / float64(len(energies))
}
