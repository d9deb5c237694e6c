package spectral

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/RyanBlaney/sonido-embed/logging"
)

// STFT provides Short-Time Fourier Transform functionality
type STFT struct {
	fft     *FFT
	workers int
	logger  logging.Logger
}

// STFTResult holds a power spectrogram laid out Time x Frequency
type STFTResult struct {
	Power          [][]float64 `json:"-"`               // Time x Frequency |X|^2
	TimeFrames     int         `json:"time_frames"`     // Number of time frames
	FreqBins       int         `json:"freq_bins"`       // Number of frequency bins
	SampleRate     int         `json:"sample_rate"`     // Sample rate
	WindowSize     int         `json:"window_size"`     // FFT window size
	HopSize        int         `json:"hop_size"`        // Hop size between frames
	Centered       bool        `json:"centered"`        // Frames centered on t*hop
	FreqResolution float64     `json:"freq_resolution"` // Frequency resolution (Hz/bin)
	TimeResolution float64     `json:"time_resolution"` // Time resolution (seconds/frame)
}

// Window interface for windowing functions
type Window interface {
	ApplyInPlace(signal []float64) error
}

// NewSTFT creates a new STFT calculator. workers <= 0 picks a count from
// the frame load and runtime.NumCPU.
func NewSTFT(workers int) *STFT {
	return &STFT{
		fft:     NewFFT(),
		workers: workers,
		logger: logging.WithFields(logging.Fields{
			"component": "stft",
		}),
	}
}

// FrameCount returns the number of frames ComputePower produces.
// Centered framing pads windowSize/2 zeros on both sides, giving
// 1 + len/hop frames. Uncentered framing only keeps full windows.
func FrameCount(signalLen, windowSize, hopSize int, center bool) int {
	if center {
		return 1 + signalLen/hopSize
	}
	if signalLen < windowSize {
		return 0
	}
	return (signalLen-windowSize)/hopSize + 1
}

// ComputePower computes |STFT|^2 with parallel frame workers.
//
// With center=true frame t covers samples [t*hop - windowSize/2,
// t*hop + windowSize/2) and samples outside the signal read as zero,
// matching librosa.stft(center=True, pad_mode="constant").
func (s *STFT) ComputePower(signal []float64, windowSize, hopSize, sampleRate int, center bool, window Window) (*STFTResult, error) {
	if len(signal) == 0 {
		return nil, fmt.Errorf("empty signal")
	}

	if windowSize <= 0 {
		return nil, fmt.Errorf("window size must be positive")
	}

	if hopSize <= 0 {
		return nil, fmt.Errorf("hop size must be positive")
	}

	numFrames := FrameCount(len(signal), windowSize, hopSize, center)
	if numFrames <= 0 {
		return nil, fmt.Errorf("signal too short for given window size and hop size")
	}

	freqBins := windowSize/2 + 1
	offset := 0
	if center {
		offset = windowSize / 2
	}

	power := make([][]float64, numFrames)
	for i := range numFrames {
		power[i] = make([]float64, freqBins)
	}

	numWorkers := s.getOptimalWorkerCount(numFrames)
	jobs := make(chan int, numFrames)

	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)

	for range numWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()

			// Reuse frame buffer for this worker
			frameBuffer := make([]float64, windowSize)

			for frameIdx := range jobs {
				start := frameIdx*hopSize - offset
				for i := range frameBuffer {
					idx := start + i
					if idx >= 0 && idx < len(signal) {
						frameBuffer[i] = signal[idx]
					} else {
						frameBuffer[i] = 0
					}
				}

				if window != nil {
					if err := window.ApplyInPlace(frameBuffer); err != nil {
						errOnce.Do(func() { firstErr = err })
						continue
					}
				}

				s.fft.PowerSpectrum(frameBuffer, power[frameIdx])
			}
		}()
	}

	for frameIdx := range numFrames {
		jobs <- frameIdx
	}
	close(jobs)

	wg.Wait()

	if firstErr != nil {
		return nil, fmt.Errorf("windowing frame: %w", firstErr)
	}

	s.logger.Debug("STFT computed", logging.Fields{
		"frames":  numFrames,
		"bins":    freqBins,
		"workers": numWorkers,
	})

	return &STFTResult{
		Power:          power,
		TimeFrames:     numFrames,
		FreqBins:       freqBins,
		SampleRate:     sampleRate,
		WindowSize:     windowSize,
		HopSize:        hopSize,
		Centered:       center,
		FreqResolution: float64(sampleRate) / float64(windowSize),
		TimeResolution: float64(hopSize) / float64(sampleRate),
	}, nil
}

// getOptimalWorkerCount determines the number of workers based on workload
func (s *STFT) getOptimalWorkerCount(numFrames int) int {
	if s.workers > 0 {
		return min(s.workers, numFrames)
	}

	numCPU := runtime.NumCPU()

	// For small workloads, don't over-parallelize
	if numFrames < 100 {
		return max(1, min(numCPU/2, numFrames))
	}

	// For medium workloads, use most CPUs
	if numFrames < 1000 {
		return min(numCPU, 8)
	}

	return numCPU
}
