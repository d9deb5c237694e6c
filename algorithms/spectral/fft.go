package spectral

import (
	"github.com/mjibson/go-dsp/fft"
)

// FFT wraps mjibson/go-dsp so callers deal in []float64 frames.
type FFT struct{}

// NewFFT creates a new FFT calculator
func NewFFT() *FFT {
	return &FFT{}
}

// Compute computes the complex spectrum of a real frame.
// go-dsp handles non-power-of-2 sizes as well.
func (f *FFT) Compute(x []float64) []complex128 {
	if len(x) == 0 {
		return []complex128{}
	}

	return fft.FFTReal(x)
}

// PowerSpectrum returns |X[k]|^2 for the non-negative frequency bins
// k = 0..len(x)/2 of a real frame, writing into dst when it is large enough.
func (f *FFT) PowerSpectrum(x []float64, dst []float64) []float64 {
	bins := len(x)/2 + 1
	if len(x) == 0 {
		return dst[:0]
	}
	if cap(dst) < bins {
		dst = make([]float64, bins)
	}
	dst = dst[:bins]

	spectrum := f.Compute(x)
	for k := range bins {
		re := real(spectrum[k])
		im := imag(spectrum[k])
		dst[k] = re*re + im*im
	}
	return dst
}
