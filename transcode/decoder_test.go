package transcode

import (
	"context"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RyanBlaney/sonido-embed/config"
)

func writeWAV(t *testing.T, sampleRate, channels int, data []int) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.wav")
	out, err := os.Create(path)
	require.NoError(t, err)
	defer out.Close()

	encoder := wav.NewEncoder(out, sampleRate, 16, channels, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	require.NoError(t, encoder.Write(buf))
	require.NoError(t, encoder.Close())

	return path
}

func TestWAVDecoderDownmixesStereo(t *testing.T) {
	// left/right pairs average to 0.5, 0 and -0.125 of full scale
	data := []int{16384, 16384, 16384, -16384, -16384, 8192}
	path := writeWAV(t, 22050, 2, data)

	dec := NewWAVDecoder(config.DefaultDecoderConfig())
	got, err := dec.DecodeFile(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, 22050, got.SampleRate)
	assert.Equal(t, 1, got.Channels)
	require.Len(t, got.PCM, 3)
	assert.InDelta(t, 0.5, got.PCM[0], 1e-9)
	assert.InDelta(t, 0.0, got.PCM[1], 1e-9)
	assert.InDelta(t, -0.125, got.PCM[2], 1e-9)
	assert.Equal(t, 2, got.Metadata.Channels)
}

func TestWAVDecoderResamples(t *testing.T) {
	data := make([]int, 44100)
	for i := range data {
		data[i] = int(10000 * math.Sin(2*math.Pi*440*float64(i)/44100))
	}
	path := writeWAV(t, 44100, 1, data)

	dec := NewWAVDecoder(config.DefaultDecoderConfig())
	got, err := dec.DecodeFile(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, 22050, got.SampleRate)
	assert.Len(t, got.PCM, 22050)
	assert.InDelta(t, 1.0, got.Duration.Seconds(), 1e-6)
	assert.Equal(t, 44100, got.Metadata.SampleRate)
}

func TestWAVDecoderMaxDuration(t *testing.T) {
	path := writeWAV(t, 22050, 1, make([]int, 22050*3))

	cfg := config.DefaultDecoderConfig()
	cfg.MaxDuration = time.Second
	got, err := NewWAVDecoder(cfg).DecodeFile(context.Background(), path)
	require.NoError(t, err)
	assert.Len(t, got.PCM, 22050)
}

func TestWAVDecoderErrors(t *testing.T) {
	dec := NewWAVDecoder(config.DefaultDecoderConfig())

	_, err := dec.DecodeFile(context.Background(), filepath.Join(t.TempDir(), "missing.wav"))
	assert.Error(t, err)

	garbage := filepath.Join(t.TempDir(), "garbage.wav")
	require.NoError(t, os.WriteFile(garbage, []byte("not a wav file at all"), 0o644))
	_, err = dec.DecodeFile(context.Background(), garbage)
	assert.Error(t, err)

	empty := writeWAV(t, 22050, 1, nil)
	_, err = dec.DecodeFile(context.Background(), empty)
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = dec.DecodeFile(ctx, empty)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewDecoderSelectsImplementation(t *testing.T) {
	cfg := config.DefaultDecoderConfig()

	d, err := NewDecoder(cfg)
	require.NoError(t, err)
	assert.IsType(t, &WAVDecoder{}, d)

	cfg.Kind = "ffmpeg"
	d, err = NewDecoder(cfg)
	require.NoError(t, err)
	assert.IsType(t, &FFmpegDecoder{}, d)

	cfg.Kind = "flac"
	_, err = NewDecoder(cfg)
	var cfgErr *config.ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestDownmixMono(t *testing.T) {
	assert.Equal(t, []float64{1.5, 3.5}, DownmixMono([]float64{1, 2, 3, 4}, 2))
	assert.Equal(t, []float64{1, 2}, DownmixMono([]float64{1, 2}, 1))
}

func TestParseFFprobeOutput(t *testing.T) {
	meta, err := parseFFprobeOutput([]byte(`{"streams":[{"codec_type":"audio","codec_name":"mp3",
		"sample_rate":"44100","channels":2,"duration":"12.5","bit_rate":"128000",
		"codec_long_name":"MP3 (MPEG audio layer 3)"}]}`))
	require.NoError(t, err)
	assert.Equal(t, 44100, meta.SampleRate)
	assert.Equal(t, 2, meta.Channels)
	assert.Equal(t, "mp3", meta.Codec)
	assert.Equal(t, 12.5, meta.Duration)
	assert.Equal(t, 128000, meta.Bitrate)

	_, err = parseFFprobeOutput([]byte(`{"streams":[]}`))
	assert.Error(t, err)
	_, err = parseFFprobeOutput([]byte(`{"streams":[{"codec_type":"video","channels":0}]}`))
	assert.Error(t, err)
	_, err = parseFFprobeOutput([]byte(`not json`))
	assert.Error(t, err)
}

func TestBuildFFmpegArgs(t *testing.T) {
	d := NewFFmpegDecoder(config.DefaultDecoderConfig())

	args := d.buildFFmpegArgs(&AudioMetadata{SampleRate: 44100, Channels: 2})
	assert.Contains(t, args, "aresample=resampler=soxr:precision=20")
	assert.Contains(t, args, "22050")
	assert.Equal(t, "pipe:1", args[len(args)-1])

	args = d.buildFFmpegArgs(&AudioMetadata{SampleRate: 22050, Channels: 1})
	assert.NotContains(t, args, "-af")
}

func TestBytesToFloat64(t *testing.T) {
	raw := make([]byte, 8*2+3)
	binary.LittleEndian.PutUint64(raw[0:], math.Float64bits(0.25))
	binary.LittleEndian.PutUint64(raw[8:], math.Float64bits(-1))

	assert.Equal(t, []float64{0.25, -1}, bytesToFloat64(raw))
	assert.Nil(t, bytesToFloat64([]byte{1, 2}))
}
