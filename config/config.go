package config

import (
	"fmt"
	"slices"
	"time"
)

// Reference pipeline constants. The encoder was trained on tensors built
// with exactly these values.
const (
	SampleRate   = 22050
	NFFT         = 2048
	HopLength    = 512
	NMels        = 96
	TargetFrames = 216
	TopDB        = 80.0
	EmbeddingDim = 100
)

// ConfigError reports a malformed configuration value
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid config %s: %s", e.Field, e.Reason)
}

// Config represents the application configuration
type Config struct {
	LogLevel     string `mapstructure:"log_level" json:"log_level" yaml:"log_level"`
	LogFormat    string `mapstructure:"log_format" json:"log_format" yaml:"log_format"`          // "text", "json"
	OutputFormat string `mapstructure:"output_format" json:"output_format" yaml:"output_format"` // "table", "json", "yaml"

	Features FeatureConfig  `mapstructure:"features" json:"features" yaml:"features"`
	Decoder  DecoderConfig  `mapstructure:"decoder" json:"decoder" yaml:"decoder"`
	Catalog  CatalogConfig  `mapstructure:"catalog" json:"catalog" yaml:"catalog"`
	Analysis AnalysisConfig `mapstructure:"analysis" json:"analysis" yaml:"analysis"`
}

// FeatureConfig controls mel-spectrogram tensor extraction
type FeatureConfig struct {
	SampleRate   int     `mapstructure:"sample_rate" json:"sample_rate" yaml:"sample_rate"`
	NFFT         int     `mapstructure:"n_fft" json:"n_fft" yaml:"n_fft"`
	HopLength    int     `mapstructure:"hop_length" json:"hop_length" yaml:"hop_length"`
	NMels        int     `mapstructure:"n_mels" json:"n_mels" yaml:"n_mels"`
	TargetFrames int     `mapstructure:"target_frames" json:"target_frames" yaml:"target_frames"`
	TopDB        float64 `mapstructure:"top_db" json:"top_db" yaml:"top_db"`

	// Workers bounds concurrent files in a batch; 0 means runtime.NumCPU
	Workers int `mapstructure:"workers" json:"workers" yaml:"workers"`
	// FrameWorkers bounds STFT frame workers per file; 0 picks from load
	FrameWorkers int `mapstructure:"frame_workers" json:"frame_workers" yaml:"frame_workers"`
}

// DecoderConfig selects and tunes the audio decoder
type DecoderConfig struct {
	Kind             string        `mapstructure:"kind" json:"kind" yaml:"kind"` // "wav", "ffmpeg"
	TargetSampleRate int           `mapstructure:"target_sample_rate" json:"target_sample_rate" yaml:"target_sample_rate"`
	MaxDuration      time.Duration `mapstructure:"max_duration" json:"max_duration" yaml:"max_duration"`
	FFmpegPath       string        `mapstructure:"ffmpeg_path" json:"ffmpeg_path" yaml:"ffmpeg_path"`
	FFprobePath      string        `mapstructure:"ffprobe_path" json:"ffprobe_path" yaml:"ffprobe_path"`
	Timeout          time.Duration `mapstructure:"timeout" json:"timeout" yaml:"timeout"`
}

// CatalogConfig locates the read-only track catalog
type CatalogConfig struct {
	Backend string `mapstructure:"backend" json:"backend" yaml:"backend"` // "sqlite", "badger"
	Path    string `mapstructure:"path" json:"path" yaml:"path"`
}

// AnalysisConfig tunes the embedding analysis engine
type AnalysisConfig struct {
	Seed         int64 `mapstructure:"seed" json:"seed" yaml:"seed"`
	Workers      int   `mapstructure:"workers" json:"workers" yaml:"workers"`
	EmbeddingDim int   `mapstructure:"embedding_dim" json:"embedding_dim" yaml:"embedding_dim"`

	DistributionSamples int `mapstructure:"distribution_samples" json:"distribution_samples" yaml:"distribution_samples"`
	IntraPairBudget     int `mapstructure:"intra_pair_budget" json:"intra_pair_budget" yaml:"intra_pair_budget"`
	ComplementBudget    int `mapstructure:"complement_budget" json:"complement_budget" yaml:"complement_budget"`
	GroupPairBudget     int `mapstructure:"group_pair_budget" json:"group_pair_budget" yaml:"group_pair_budget"`

	MinArtistSize     int `mapstructure:"min_artist_size" json:"min_artist_size" yaml:"min_artist_size"`
	MinAlbumSize      int `mapstructure:"min_album_size" json:"min_album_size" yaml:"min_album_size"`
	MinCategorySize   int `mapstructure:"min_category_size" json:"min_category_size" yaml:"min_category_size"`
	SeparationMinSize int `mapstructure:"separation_min_size" json:"separation_min_size" yaml:"separation_min_size"`

	ClusterCounts  []int `mapstructure:"cluster_counts" json:"cluster_counts" yaml:"cluster_counts"`
	ClusterInits   int   `mapstructure:"cluster_inits" json:"cluster_inits" yaml:"cluster_inits"`
	NeighborCounts []int `mapstructure:"neighbor_counts" json:"neighbor_counts" yaml:"neighbor_counts"`

	ExtremePairs int       `mapstructure:"extreme_pairs" json:"extreme_pairs" yaml:"extreme_pairs"`
	Thresholds   []float64 `mapstructure:"thresholds" json:"thresholds" yaml:"thresholds"`
}

// DefaultConfig returns the full default configuration
func DefaultConfig() *Config {
	return &Config{
		LogLevel:     "info",
		LogFormat:    "text",
		OutputFormat: "table",
		Features:     DefaultFeatureConfig(),
		Decoder:      DefaultDecoderConfig(),
		Catalog:      DefaultCatalogConfig(),
		Analysis:     DefaultAnalysisConfig(),
	}
}

// DefaultFeatureConfig returns the reference pipeline parameters
func DefaultFeatureConfig() FeatureConfig {
	return FeatureConfig{
		SampleRate:   SampleRate,
		NFFT:         NFFT,
		HopLength:    HopLength,
		NMels:        NMels,
		TargetFrames: TargetFrames,
		TopDB:        TopDB,
	}
}

// DefaultDecoderConfig returns default decoder configuration
func DefaultDecoderConfig() DecoderConfig {
	return DecoderConfig{
		Kind:             "wav",
		TargetSampleRate: SampleRate,
		MaxDuration:      0,
		FFmpegPath:       "ffmpeg",  // Assume in PATH
		FFprobePath:      "ffprobe", // Assume in PATH
		Timeout:          30 * time.Second,
	}
}

// DefaultCatalogConfig returns default catalog configuration
func DefaultCatalogConfig() CatalogConfig {
	return CatalogConfig{
		Backend: "sqlite",
		Path:    "library.db",
	}
}

// DefaultAnalysisConfig matches the sampling budgets of the original
// evaluation runs
func DefaultAnalysisConfig() AnalysisConfig {
	return AnalysisConfig{
		Seed:                42,
		EmbeddingDim:        EmbeddingDim,
		DistributionSamples: 50000,
		IntraPairBudget:     500,
		ComplementBudget:    5000,
		GroupPairBudget:     200,
		MinArtistSize:       2,
		MinAlbumSize:        2,
		MinCategorySize:     5,
		SeparationMinSize:   3,
		ClusterCounts:       []int{5, 8, 10, 15},
		ClusterInits:        10,
		NeighborCounts:      []int{1, 3, 5, 10},
		ExtremePairs:        15,
		Thresholds:          []float64{0.85, 0.90, 0.95, 0.98},
	}
}

// Validate checks every section and returns the first *ConfigError
func (c *Config) Validate() error {
	if !slices.Contains([]string{"text", "json"}, c.LogFormat) {
		return &ConfigError{Field: "log_format", Reason: fmt.Sprintf("unknown format %q", c.LogFormat)}
	}
	if !slices.Contains([]string{"table", "json", "yaml"}, c.OutputFormat) {
		return &ConfigError{Field: "output_format", Reason: fmt.Sprintf("unknown format %q", c.OutputFormat)}
	}
	if err := c.Features.Validate(); err != nil {
		return err
	}
	if err := c.Decoder.Validate(); err != nil {
		return err
	}
	if err := c.Catalog.Validate(); err != nil {
		return err
	}
	return c.Analysis.Validate()
}

// Validate checks the spectrogram parameters
func (c FeatureConfig) Validate() error {
	positive := []struct {
		field string
		value int
	}{
		{"features.sample_rate", c.SampleRate},
		{"features.n_fft", c.NFFT},
		{"features.hop_length", c.HopLength},
		{"features.n_mels", c.NMels},
		{"features.target_frames", c.TargetFrames},
	}
	for _, p := range positive {
		if p.value <= 0 {
			return &ConfigError{Field: p.field, Reason: fmt.Sprintf("must be positive, got %d", p.value)}
		}
	}
	if c.TopDB <= 0 {
		return &ConfigError{Field: "features.top_db", Reason: fmt.Sprintf("must be positive, got %g", c.TopDB)}
	}
	if c.Workers < 0 || c.FrameWorkers < 0 {
		return &ConfigError{Field: "features.workers", Reason: "cannot be negative"}
	}
	return nil
}

// Validate checks the decoder selection
func (c DecoderConfig) Validate() error {
	switch c.Kind {
	case "wav":
	case "ffmpeg":
		if c.FFmpegPath == "" {
			return &ConfigError{Field: "decoder.ffmpeg_path", Reason: "required for the ffmpeg decoder"}
		}
	default:
		return &ConfigError{Field: "decoder.kind", Reason: fmt.Sprintf("unknown decoder %q", c.Kind)}
	}
	if c.TargetSampleRate <= 0 {
		return &ConfigError{Field: "decoder.target_sample_rate", Reason: "must be positive"}
	}
	if c.MaxDuration < 0 || c.Timeout < 0 {
		return &ConfigError{Field: "decoder.timeout", Reason: "durations cannot be negative"}
	}
	return nil
}

// Validate checks the catalog location
func (c CatalogConfig) Validate() error {
	if !slices.Contains([]string{"sqlite", "badger"}, c.Backend) {
		return &ConfigError{Field: "catalog.backend", Reason: fmt.Sprintf("unknown backend %q", c.Backend)}
	}
	if c.Path == "" {
		return &ConfigError{Field: "catalog.path", Reason: "required"}
	}
	return nil
}

// Validate checks budgets and sweep parameters
func (c AnalysisConfig) Validate() error {
	if c.EmbeddingDim <= 0 {
		return &ConfigError{Field: "analysis.embedding_dim", Reason: "must be positive"}
	}
	if c.Workers < 0 {
		return &ConfigError{Field: "analysis.workers", Reason: "cannot be negative"}
	}

	budgets := []struct {
		field string
		value int
	}{
		{"analysis.distribution_samples", c.DistributionSamples},
		{"analysis.intra_pair_budget", c.IntraPairBudget},
		{"analysis.complement_budget", c.ComplementBudget},
		{"analysis.group_pair_budget", c.GroupPairBudget},
		{"analysis.min_artist_size", c.MinArtistSize},
		{"analysis.min_album_size", c.MinAlbumSize},
		{"analysis.min_category_size", c.MinCategorySize},
		{"analysis.separation_min_size", c.SeparationMinSize},
		{"analysis.cluster_inits", c.ClusterInits},
	}
	for _, b := range budgets {
		if b.value <= 0 {
			return &ConfigError{Field: b.field, Reason: fmt.Sprintf("must be positive, got %d", b.value)}
		}
	}

	for _, k := range c.ClusterCounts {
		if k < 2 {
			return &ConfigError{Field: "analysis.cluster_counts", Reason: fmt.Sprintf("k must be at least 2, got %d", k)}
		}
	}
	for _, k := range c.NeighborCounts {
		if k < 1 {
			return &ConfigError{Field: "analysis.neighbor_counts", Reason: fmt.Sprintf("k must be positive, got %d", k)}
		}
	}
	if c.ExtremePairs < 0 {
		return &ConfigError{Field: "analysis.extreme_pairs", Reason: "cannot be negative"}
	}
	for _, th := range c.Thresholds {
		if th < -1 || th > 1 {
			return &ConfigError{Field: "analysis.thresholds", Reason: fmt.Sprintf("%g is outside [-1, 1]", th)}
		}
	}
	return nil
}
