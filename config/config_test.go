package config

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, 22050, cfg.Features.SampleRate)
	assert.Equal(t, 96, cfg.Features.NMels)
	assert.Equal(t, 216, cfg.Features.TargetFrames)
	assert.Equal(t, int64(42), cfg.Analysis.Seed)
	assert.Equal(t, []int{5, 8, 10, 15}, cfg.Analysis.ClusterCounts)
}

func TestValidateReportsField(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"hop", func(c *Config) { c.Features.HopLength = 0 }, "features.hop_length"},
		{"top db", func(c *Config) { c.Features.TopDB = -1 }, "features.top_db"},
		{"decoder", func(c *Config) { c.Decoder.Kind = "mp3" }, "decoder.kind"},
		{"ffmpeg path", func(c *Config) { c.Decoder.Kind = "ffmpeg"; c.Decoder.FFmpegPath = "" }, "decoder.ffmpeg_path"},
		{"backend", func(c *Config) { c.Catalog.Backend = "mongo" }, "catalog.backend"},
		{"catalog path", func(c *Config) { c.Catalog.Path = "" }, "catalog.path"},
		{"cluster k", func(c *Config) { c.Analysis.ClusterCounts = []int{1} }, "analysis.cluster_counts"},
		{"threshold", func(c *Config) { c.Analysis.Thresholds = []float64{1.5} }, "analysis.thresholds"},
		{"output", func(c *Config) { c.OutputFormat = "csv" }, "output_format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			var cfgErr *ConfigError
			require.True(t, errors.As(err, &cfgErr), "got %v", err)
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	v := viper.New()
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(strings.NewReader(`
output_format: json
decoder:
  kind: ffmpeg
  timeout: 5s
analysis:
  seed: 7
  cluster_counts: [3, 4]
`)))

	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, "json", cfg.OutputFormat)
	assert.Equal(t, "ffmpeg", cfg.Decoder.Kind)
	assert.Equal(t, 5*time.Second, cfg.Decoder.Timeout)
	assert.Equal(t, int64(7), cfg.Analysis.Seed)
	assert.Equal(t, []int{3, 4}, cfg.Analysis.ClusterCounts)
	// untouched keys keep defaults
	assert.Equal(t, 512, cfg.Features.HopLength)
	assert.Equal(t, 500, cfg.Analysis.IntraPairBudget)
}

func TestLoadHonorsEnvironment(t *testing.T) {
	t.Setenv("SONIDO_EMBED_ANALYSIS_SEED", "99")
	t.Setenv("SONIDO_EMBED_CATALOG_BACKEND", "badger")

	v := viper.New()
	BindEnv(v)

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, int64(99), cfg.Analysis.Seed)
	assert.Equal(t, "badger", cfg.Catalog.Backend)
}

func TestLoadRejectsInvalid(t *testing.T) {
	v := viper.New()
	v.Set("features.n_mels", 0)

	_, err := Load(v)
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "features.n_mels", cfgErr.Field)
}
