package transcode

import (
	"context"
	"fmt"
	"time"

	"github.com/RyanBlaney/sonido-embed/config"
)

// AudioData represents decoded mono audio
type AudioData struct {
	PCM        []float64      `json:"-"` // Mono samples in [-1, 1]
	SampleRate int            `json:"sample_rate"`
	Channels   int            `json:"channels"` // Always 1 after decoding
	Duration   time.Duration  `json:"duration"`
	Metadata   *AudioMetadata `json:"metadata,omitempty"`
}

// AudioMetadata holds properties of the source before conversion
type AudioMetadata struct {
	SampleRate int     `json:"sample_rate"`
	Channels   int     `json:"channels"`
	Codec      string  `json:"codec"`
	Duration   float64 `json:"duration"`
	Bitrate    int     `json:"bitrate"`
	Format     string  `json:"format"`
}

// Decoder turns an audio file into mono PCM at the configured sample rate
type Decoder interface {
	DecodeFile(ctx context.Context, path string) (*AudioData, error)
}

// NewDecoder picks the implementation named by cfg.Kind
func NewDecoder(cfg config.DecoderConfig) (Decoder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Kind {
	case "ffmpeg":
		return NewFFmpegDecoder(cfg), nil
	default:
		return NewWAVDecoder(cfg), nil
	}
}

// DownmixMono averages interleaved channels into one
func DownmixMono(interleaved []float64, channels int) []float64 {
	if channels <= 1 {
		out := make([]float64, len(interleaved))
		copy(out, interleaved)
		return out
	}

	frames := len(interleaved) / channels
	mono := make([]float64, frames)
	for i := range mono {
		sum := 0.0
		for c := range channels {
			sum += interleaved[i*channels+c]
		}
		mono[i] = sum / float64(channels)
	}
	return mono
}

func newAudioData(pcm []float64, sampleRate int, meta *AudioMetadata) (*AudioData, error) {
	if len(pcm) == 0 {
		return nil, fmt.Errorf("no audio samples decoded")
	}
	return &AudioData{
		PCM:        pcm,
		SampleRate: sampleRate,
		Channels:   1,
		Duration:   time.Duration(float64(len(pcm)) / float64(sampleRate) * float64(time.Second)),
		Metadata:   meta,
	}, nil
}
