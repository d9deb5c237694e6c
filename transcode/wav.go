package transcode

import (
	"context"
	"fmt"
	"os"

	"github.com/go-audio/wav"

	"github.com/RyanBlaney/sonido-embed/algorithms/common"
	"github.com/RyanBlaney/sonido-embed/config"
	"github.com/RyanBlaney/sonido-embed/logging"
)

// WAVDecoder reads PCM WAV files natively with go-audio. Multi-channel
// audio is averaged to mono and linearly resampled to the target rate.
type WAVDecoder struct {
	config config.DecoderConfig
	interp *common.Interpolator
}

// NewWAVDecoder creates a WAV decoder
func NewWAVDecoder(cfg config.DecoderConfig) *WAVDecoder {
	return &WAVDecoder{
		config: cfg,
		interp: common.NewInterpolator(),
	}
}

// DecodeFile decodes a WAV file and returns mono PCM
func (d *WAVDecoder) DecodeFile(ctx context.Context, path string) (*AudioData, error) {
	logger := logging.WithFields(logging.Fields{
		"component": "wav_decoder",
		"function":  "DecodeFile",
		"filename":  path,
	})

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open file: %w", err)
	}
	defer file.Close()

	decoder := wav.NewDecoder(file)
	if !decoder.IsValidFile() {
		return nil, fmt.Errorf("invalid WAV file")
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("could not read PCM buffer: %w", err)
	}
	if buf == nil || buf.Format == nil || len(buf.Data) == 0 {
		return nil, fmt.Errorf("no audio samples decoded")
	}

	channels := buf.Format.NumChannels
	sourceRate := buf.Format.SampleRate
	bitDepth := int(decoder.BitDepth)
	if bitDepth <= 0 {
		bitDepth = buf.SourceBitDepth
	}
	if bitDepth <= 0 || bitDepth > 32 {
		return nil, fmt.Errorf("unsupported bit depth %d", bitDepth)
	}

	// integer PCM to [-1, 1]
	scale := float64(int64(1) << (bitDepth - 1))
	interleaved := make([]float64, len(buf.Data))
	for i, v := range buf.Data {
		interleaved[i] = float64(v) / scale
	}

	mono := DownmixMono(interleaved, channels)

	if d.config.MaxDuration > 0 {
		limit := int(d.config.MaxDuration.Seconds() * float64(sourceRate))
		if limit < len(mono) {
			mono = mono[:limit]
		}
	}

	target := d.config.TargetSampleRate
	if target <= 0 {
		target = config.SampleRate
	}
	pcm := d.interp.ResampleSignal(mono, sourceRate, target)

	logger.Debug("WAV decode completed", logging.Fields{
		"input_sample_rate": sourceRate,
		"input_channels":    channels,
		"bit_depth":         bitDepth,
		"output_samples":    len(pcm),
	})

	return newAudioData(pcm, target, &AudioMetadata{
		SampleRate: sourceRate,
		Channels:   channels,
		Codec:      "pcm",
		Duration:   float64(len(mono)) / float64(sourceRate),
		Format:     "wav",
	})
}
