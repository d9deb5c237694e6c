package features

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"runtime"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/RyanBlaney/sonido-embed/algorithms/common"
	"github.com/RyanBlaney/sonido-embed/algorithms/spectral"
	"github.com/RyanBlaney/sonido-embed/algorithms/temporal"
	"github.com/RyanBlaney/sonido-embed/config"
	"github.com/RyanBlaney/sonido-embed/logging"
	"github.com/RyanBlaney/sonido-embed/transcode"
)

// ItemFailure records a file that could not be turned into a tensor
type ItemFailure struct {
	Path string `json:"path"`
	Err  error  `json:"-"`
}

// BatchResult holds the tensors of a batch keyed by input path
type BatchResult struct {
	Tensors  map[string]FeatureTensor
	Failures []ItemFailure
}

// ProgressFunc is called once per finished item, from worker goroutines
type ProgressFunc func(path string, err error)

// Extractor turns audio files into feature tensors
type Extractor struct {
	config   config.FeatureConfig
	decoder  transcode.Decoder
	engine   *SpectrogramEngine
	progress ProgressFunc
	logger   logging.Logger
}

// NewExtractor creates an extractor. The decoder must deliver mono PCM at
// cfg.SampleRate.
func NewExtractor(cfg config.FeatureConfig, decoder transcode.Decoder) (*Extractor, error) {
	engine, err := NewSpectrogramEngine(cfg)
	if err != nil {
		return nil, err
	}
	return &Extractor{
		config:  cfg,
		decoder: decoder,
		engine:  engine,
		logger: logging.WithFields(logging.Fields{
			"component": "feature_extractor",
		}),
	}, nil
}

// OnProgress registers a per-item callback for batch extraction
func (e *Extractor) OnProgress(fn ProgressFunc) {
	e.progress = fn
}

// Extract builds the tensor for an already decoded signal
func (e *Extractor) Extract(signal AudioSignal) (FeatureTensor, error) {
	if signal.SampleRate != e.config.SampleRate {
		return nil, &ConfigError{
			Field:  "features.sample_rate",
			Reason: fmt.Sprintf("signal is %d Hz, extractor expects %d Hz", signal.SampleRate, e.config.SampleRate),
		}
	}

	if !common.IsFinite(signal.Samples) {
		return nil, &DecodeError{Err: errors.New("signal contains NaN or Inf samples")}
	}

	power, err := e.engine.Compute(signal.Samples)
	if err != nil {
		return nil, err
	}
	if e.nearSilent(signal.Samples) {
		return FloorTensor(e.config.NMels, e.config.TargetFrames), nil
	}

	tensor, err := NormalizeAndResize(power, e.config.TopDB, e.config.TargetFrames)
	if err != nil {
		return nil, err
	}

	if len(tensor) != e.config.NMels {
		return nil, &ShapeError{
			What: "feature tensor",
			Got:  tensor.Shape(),
			Want: []int{e.config.NMels, e.config.TargetFrames},
		}
	}
	return tensor, nil
}

// nearSilent reports signals below SilenceRMS, whose tensor is the floor
// regardless of their peak.
func (e *Extractor) nearSilent(samples []float64) bool {
	rms := temporal.RMS(samples)
	if rms < temporal.SilenceRMS {
		e.logger.Warn("Near-silent signal, using the floor tensor", logging.Fields{
			"rms_db": temporal.AmplitudeToDB(rms, spectral.DefaultAmin),
		})
		return true
	}

	frames := temporal.ShortTimeRMS(samples, e.config.NFFT, e.config.HopLength)
	if silent := temporal.SilentFraction(frames, temporal.SilenceRMS); len(frames) > 0 && silent > 0.5 {
		e.logger.Debug("Signal is mostly silent", logging.Fields{
			"silent_fraction": silent,
			"rms_db":          temporal.AmplitudeToDB(rms, spectral.DefaultAmin),
		})
	}
	return false
}

// ExtractFile decodes path and builds its tensor. Unreadable or empty
// audio is reported as a *DecodeError.
func (e *Extractor) ExtractFile(ctx context.Context, path string) (FeatureTensor, error) {
	audio, err := e.decoder.DecodeFile(ctx, path)
	if err != nil {
		return nil, &DecodeError{Path: path, Err: err}
	}

	tensor, err := e.Extract(AudioSignal{Samples: audio.PCM, SampleRate: audio.SampleRate})
	if err != nil {
		var decodeErr *DecodeError
		if errors.As(err, &decodeErr) && decodeErr.Path == "" {
			decodeErr.Path = path
		}
		return nil, err
	}
	return tensor, nil
}

// ExtractBatch extracts every path with a bounded worker pool. Decode
// failures are collected in BatchResult.Failures and do not stop the
// batch; any other error (ShapeError, ConfigError, cancellation) cancels
// the remaining work and is returned.
func (e *Extractor) ExtractBatch(ctx context.Context, paths []string) (*BatchResult, error) {
	workers := e.config.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	result := &BatchResult{Tensors: make(map[string]FeatureTensor, len(paths))}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			tensor, err := e.ExtractFile(gctx, path)
			if e.progress != nil {
				e.progress(path, err)
			}

			var decodeErr *DecodeError
			switch {
			case err == nil:
				mu.Lock()
				result.Tensors[path] = tensor
				mu.Unlock()
				return nil
			case errors.As(err, &decodeErr) && gctx.Err() == nil:
				e.logger.Warn("Skipping undecodable audio", logging.Fields{
					"path":  path,
					"error": err.Error(),
				})
				mu.Lock()
				result.Failures = append(result.Failures, ItemFailure{Path: path, Err: err})
				mu.Unlock()
				return nil
			default:
				return fmt.Errorf("extract %s: %w", path, err)
			}
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	slices.SortFunc(result.Failures, func(a, b ItemFailure) int {
		return cmp.Compare(a.Path, b.Path)
	})

	e.logger.Info("Batch extraction finished", logging.Fields{
		"tensors":  len(result.Tensors),
		"failures": len(result.Failures),
		"workers":  workers,
	})

	return result, nil
}
