package transcode

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/RyanBlaney/sonido-embed/config"
	"github.com/RyanBlaney/sonido-embed/logging"
)

// FFmpegDecoder decodes any format ffmpeg understands by piping mono
// float64 PCM out of an ffmpeg subprocess
type FFmpegDecoder struct {
	config config.DecoderConfig
}

// NewFFmpegDecoder creates a new ffmpeg-backed decoder
func NewFFmpegDecoder(cfg config.DecoderConfig) *FFmpegDecoder {
	return &FFmpegDecoder{config: cfg}
}

// DecodeFile decodes an audio file and returns PCM data
func (d *FFmpegDecoder) DecodeFile(ctx context.Context, path string) (*AudioData, error) {
	logger := logging.WithFields(logging.Fields{
		"component": "audio_decoder",
		"function":  "DecodeFile",
		"filename":  path,
	})

	logger.Debug("Starting audio file decode")

	metadata, err := d.probeAudioFile(ctx, path)
	if err != nil {
		logger.Error(err, "Failed to probe audio file")
		return nil, err
	}

	logger.Debug("Audio metadata detected", logging.Fields{
		"input_sample_rate": metadata.SampleRate,
		"input_channels":    metadata.Channels,
		"input_codec":       metadata.Codec,
		"input_duration":    metadata.Duration,
		"input_bitrate":     metadata.Bitrate,
	})

	args := append([]string{"-i", path}, d.buildFFmpegArgs(metadata)...)

	ctx, cancel := d.withTimeout(ctx)
	defer cancel()

	cmd := exec.CommandContext(ctx, d.config.FFmpegPath, args...)

	startTime := time.Now()
	output, err := cmd.Output()
	if err != nil {
		var exitError *exec.ExitError
		if errors.As(err, &exitError) {
			return nil, fmt.Errorf("ffmpeg decode failed: %w, stderr: %s", err, string(exitError.Stderr))
		}
		return nil, fmt.Errorf("ffmpeg decode failed: %w", err)
	}

	samples := bytesToFloat64(output)

	logger.Debug("FFmpeg decode completed", logging.Fields{
		"output_bytes": len(output),
		"samples":      len(samples),
		"decode_time":  time.Since(startTime).Seconds(),
	})

	return newAudioData(samples, d.targetRate(), metadata)
}

func (d *FFmpegDecoder) targetRate() int {
	if d.config.TargetSampleRate > 0 {
		return d.config.TargetSampleRate
	}
	return config.SampleRate
}

func (d *FFmpegDecoder) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if d.config.Timeout > 0 {
		return context.WithTimeout(ctx, d.config.Timeout)
	}
	return context.WithCancel(ctx)
}

// buildFFmpegArgs builds the output half of the ffmpeg command line
func (d *FFmpegDecoder) buildFFmpegArgs(metadata *AudioMetadata) []string {
	target := d.targetRate()
	args := []string{
		"-vn",
		"-map", "0:a:0",
		"-f", "f64le", // Output raw float64 little-endian
		"-ac", "1", // ffmpeg averages channels for a mono downmix
		"-ar", strconv.Itoa(target),
	}

	// soxr at 20 bits is the resampler librosa.load uses by default
	if metadata != nil && metadata.SampleRate != target {
		args = append(args, "-af", "aresample=resampler=soxr:precision=20")
	}

	if d.config.MaxDuration > 0 {
		args = append(args, "-t", fmt.Sprintf("%.2f", d.config.MaxDuration.Seconds()))
	}

	// Suppress ffmpeg output
	args = append(args, "-v", "error", "pipe:1")

	return args
}

// probeAudioFile uses ffprobe to get audio information from a file
func (d *FFmpegDecoder) probeAudioFile(ctx context.Context, path string) (*AudioMetadata, error) {
	args := []string{
		"-v", "quiet", // Suppress verbose output
		"-print_format", "json", // JSON output
		"-show_streams",          // Show stream info
		"-select_streams", "a:0", // First audio stream only
		path,
	}

	ctx, cancel := d.withTimeout(ctx)
	defer cancel()

	output, err := exec.CommandContext(ctx, d.config.FFprobePath, args...).Output()
	if err != nil {
		var exitError *exec.ExitError
		if errors.As(err, &exitError) {
			return nil, fmt.Errorf("ffprobe failed: %w, stderr: %s", err, string(exitError.Stderr))
		}
		return nil, fmt.Errorf("ffprobe failed: %w", err)
	}

	return parseFFprobeOutput(output)
}

// parseFFprobeOutput parses ffprobe JSON to extract audio metadata
func parseFFprobeOutput(jsonData []byte) (*AudioMetadata, error) {
	var probe struct {
		Streams []struct {
			CodecType     string `json:"codec_type"`
			CodecName     string `json:"codec_name"`
			SampleRate    string `json:"sample_rate"`
			Channels      int    `json:"channels"`
			Duration      string `json:"duration"`
			BitRate       string `json:"bit_rate"`
			CodecLongName string `json:"codec_long_name"`
		} `json:"streams"`
	}

	if err := json.Unmarshal(jsonData, &probe); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	if len(probe.Streams) == 0 {
		return nil, fmt.Errorf("no audio streams found")
	}

	stream := probe.Streams[0]
	if stream.CodecType != "audio" {
		return nil, fmt.Errorf("stream is not audio type: %s", stream.CodecType)
	}

	// unknown rate forces the resampler on
	sampleRate, _ := strconv.Atoi(stream.SampleRate)
	duration, _ := strconv.ParseFloat(stream.Duration, 64)
	bitrate, _ := strconv.Atoi(stream.BitRate)

	if stream.Channels <= 0 {
		return nil, fmt.Errorf("invalid channel count: %d", stream.Channels)
	}

	return &AudioMetadata{
		SampleRate: sampleRate,
		Channels:   stream.Channels,
		Codec:      stream.CodecName,
		Duration:   duration,
		Bitrate:    bitrate,
		Format:     strings.TrimSpace(stream.CodecLongName),
	}, nil
}

// bytesToFloat64 converts f64le bytes to samples, dropping a partial tail
func bytesToFloat64(data []byte) []float64 {
	data = data[:len(data)-(len(data)%8)]
	if len(data) == 0 {
		return nil
	}

	samples := make([]float64, len(data)/8)
	for i := range samples {
		bits := binary.LittleEndian.Uint64(data[i*8 : i*8+8])
		samples[i] = math.Float64frombits(bits)
	}

	return samples
}
