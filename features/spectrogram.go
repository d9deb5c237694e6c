package features

import (
	"errors"
	"fmt"

	"github.com/RyanBlaney/sonido-embed/algorithms/spectral"
	"github.com/RyanBlaney/sonido-embed/algorithms/windowing"
	"github.com/RyanBlaney/sonido-embed/config"
)

// AudioSignal is mono PCM at a known sample rate
type AudioSignal struct {
	Samples    []float64
	SampleRate int
}

// PowerSpectrogram is laid out [n_mels][n_frames], non-negative
type PowerSpectrogram [][]float64

// Shape returns [rows, columns]
func (p PowerSpectrogram) Shape() []int {
	if len(p) == 0 {
		return []int{0, 0}
	}
	return []int{len(p), len(p[0])}
}

// SpectrogramEngine computes mel power spectrograms with a cached window
// and filter bank
type SpectrogramEngine struct {
	config     config.FeatureConfig
	stft       *spectral.STFT
	window     *windowing.Hann
	melScale   *spectral.MelScale
	filterBank [][]float64
}

// NewSpectrogramEngine validates cfg and precomputes the periodic Hann
// window and Slaney mel filter bank spanning 0 Hz to Nyquist
func NewSpectrogramEngine(cfg config.FeatureConfig) (*SpectrogramEngine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	melScale := spectral.NewMelScale()
	bank := melScale.CreateMelFilterBank(cfg.NMels, cfg.NFFT, cfg.SampleRate, 0, float64(cfg.SampleRate)/2)
	if bank == nil {
		return nil, &ConfigError{Field: "features.n_mels", Reason: "cannot build mel filter bank"}
	}

	return &SpectrogramEngine{
		config:     cfg,
		stft:       spectral.NewSTFT(cfg.FrameWorkers),
		window:     windowing.NewPeriodicHann(cfg.NFFT),
		melScale:   melScale,
		filterBank: bank,
	}, nil
}

// Compute returns the [n_mels][1 + len/hop] mel power spectrogram of
// samples taken at the engine's sample rate
func (e *SpectrogramEngine) Compute(samples []float64) (PowerSpectrogram, error) {
	if len(samples) == 0 {
		return nil, &DecodeError{Err: errors.New("empty signal")}
	}

	result, err := e.stft.ComputePower(samples, e.config.NFFT, e.config.HopLength, e.config.SampleRate, true, e.window)
	if err != nil {
		return nil, fmt.Errorf("compute STFT: %w", err)
	}

	return PowerSpectrogram(e.melScale.MelSpectrogram(result.Power, e.filterBank)), nil
}

// ComputeMelPowerSpectrogram computes a mel power spectrogram of a signal
// sampled at 22050 Hz with periodic Hann windows, centered frames and a
// Slaney-normalized filter bank
func ComputeMelPowerSpectrogram(signal []float64, nFFT, hopLength, nMels int) (PowerSpectrogram, error) {
	cfg := config.DefaultFeatureConfig()
	cfg.NFFT = nFFT
	cfg.HopLength = hopLength
	cfg.NMels = nMels

	engine, err := NewSpectrogramEngine(cfg)
	if err != nil {
		return nil, err
	}
	return engine.Compute(signal)
}
