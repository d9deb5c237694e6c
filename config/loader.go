package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. SONIDO_EMBED_ANALYSIS_SEED
const EnvPrefix = "SONIDO_EMBED"

// SetDefaults registers every default value on v so environment variables
// can override any key
func SetDefaults(v *viper.Viper) {
	d := DefaultConfig()

	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("log_format", d.LogFormat)
	v.SetDefault("output_format", d.OutputFormat)

	// Feature extraction defaults
	v.SetDefault("features.sample_rate", d.Features.SampleRate)
	v.SetDefault("features.n_fft", d.Features.NFFT)
	v.SetDefault("features.hop_length", d.Features.HopLength)
	v.SetDefault("features.n_mels", d.Features.NMels)
	v.SetDefault("features.target_frames", d.Features.TargetFrames)
	v.SetDefault("features.top_db", d.Features.TopDB)
	v.SetDefault("features.workers", d.Features.Workers)
	v.SetDefault("features.frame_workers", d.Features.FrameWorkers)

	// Decoder defaults
	v.SetDefault("decoder.kind", d.Decoder.Kind)
	v.SetDefault("decoder.target_sample_rate", d.Decoder.TargetSampleRate)
	v.SetDefault("decoder.max_duration", d.Decoder.MaxDuration)
	v.SetDefault("decoder.ffmpeg_path", d.Decoder.FFmpegPath)
	v.SetDefault("decoder.ffprobe_path", d.Decoder.FFprobePath)
	v.SetDefault("decoder.timeout", d.Decoder.Timeout)

	// Catalog defaults
	v.SetDefault("catalog.backend", d.Catalog.Backend)
	v.SetDefault("catalog.path", d.Catalog.Path)

	// Analysis defaults
	v.SetDefault("analysis.seed", d.Analysis.Seed)
	v.SetDefault("analysis.workers", d.Analysis.Workers)
	v.SetDefault("analysis.embedding_dim", d.Analysis.EmbeddingDim)
	v.SetDefault("analysis.distribution_samples", d.Analysis.DistributionSamples)
	v.SetDefault("analysis.intra_pair_budget", d.Analysis.IntraPairBudget)
	v.SetDefault("analysis.complement_budget", d.Analysis.ComplementBudget)
	v.SetDefault("analysis.group_pair_budget", d.Analysis.GroupPairBudget)
	v.SetDefault("analysis.min_artist_size", d.Analysis.MinArtistSize)
	v.SetDefault("analysis.min_album_size", d.Analysis.MinAlbumSize)
	v.SetDefault("analysis.min_category_size", d.Analysis.MinCategorySize)
	v.SetDefault("analysis.separation_min_size", d.Analysis.SeparationMinSize)
	v.SetDefault("analysis.cluster_counts", d.Analysis.ClusterCounts)
	v.SetDefault("analysis.cluster_inits", d.Analysis.ClusterInits)
	v.SetDefault("analysis.neighbor_counts", d.Analysis.NeighborCounts)
	v.SetDefault("analysis.extreme_pairs", d.Analysis.ExtremePairs)
	v.SetDefault("analysis.thresholds", d.Analysis.Thresholds)
}

// BindEnv enables SONIDO_EMBED_* overrides for every registered key
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
}

// Load decodes and validates the configuration held by v. Defaults are
// registered first so partial config files are filled in.
func Load(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unable to decode configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}
