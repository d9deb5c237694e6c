package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/RyanBlaney/sonido-embed/catalog"
	"github.com/RyanBlaney/sonido-embed/config"
	"github.com/RyanBlaney/sonido-embed/logging"
)

// Report is the structured result of one analysis run
type Report struct {
	RunID             string    `json:"run_id" yaml:"run_id"`
	GeneratedAt       time.Time `json:"generated_at" yaml:"generated_at"`
	Tracks            int       `json:"tracks" yaml:"tracks"`
	MissingEmbeddings int       `json:"missing_embeddings" yaml:"missing_embeddings"`

	// Categories counts tracks per genre category in priority order
	Categories []CategoryCount `json:"categories" yaml:"categories"`

	Distribution Distribution      `json:"distribution" yaml:"distribution"`
	Extremes     *ExhaustiveResult `json:"extremes,omitempty" yaml:"extremes,omitempty"`

	Facets     []FacetComparison  `json:"facets" yaml:"facets"`
	Separation []SeparationResult `json:"separation" yaml:"separation"`

	Clusters  []ClusterRun       `json:"clusters" yaml:"clusters"`
	Neighbors []NeighborAccuracy `json:"neighbors" yaml:"neighbors"`
	Outliers  [][]FitScore       `json:"outliers" yaml:"outliers"`
}

// Analyzer runs the full embedding diagnostics over a catalog
type Analyzer struct {
	config  config.AnalysisConfig
	catalog catalog.Catalog
	engine  *Engine
	logger  logging.Logger

	// ExhaustiveLimit caps the collection size for which all pairs are
	// visited to find extreme pairs; 0 disables the pass
	ExhaustiveLimit int
}

// NewAnalyzer validates cfg and binds it to a catalog
func NewAnalyzer(cfg config.AnalysisConfig, cat catalog.Catalog) (*Analyzer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cat == nil {
		return nil, fmt.Errorf("analyzer: nil catalog")
	}
	return &Analyzer{
		config:          cfg,
		catalog:         cat,
		engine:          NewEngine(cfg.Workers),
		ExhaustiveLimit: 5000,
		logger: logging.WithFields(logging.Fields{
			"component": "analyzer",
		}),
	}, nil
}

// Engine exposes the similarity engine used by the analyzer
func (a *Analyzer) Engine() *Engine { return a.engine }

// Load reads the catalog and keeps tracks with a usable embedding
func (a *Analyzer) Load(ctx context.Context) ([]catalog.TrackRecord, int, error) {
	records, err := a.catalog.Tracks(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("load catalog: %w", err)
	}
	tracks, missing := catalog.WithEmbeddings(records, a.config.EmbeddingDim)
	if missing > 0 {
		a.logger.Warn("Tracks without usable embeddings excluded", logging.Fields{
			"missing": missing,
			"total":   len(records),
		})
	}
	return tracks, missing, nil
}

// Run loads the catalog and computes every diagnostic
func (a *Analyzer) Run(ctx context.Context) (*Report, error) {
	tracks, missing, err := a.Load(ctx)
	if err != nil {
		return nil, err
	}
	report, err := a.Analyze(ctx, tracks)
	if err != nil {
		return nil, err
	}
	report.MissingEmbeddings = missing
	return report, nil
}

// Analyze computes every diagnostic for tracks that already carry embeddings
func (a *Analyzer) Analyze(ctx context.Context, tracks []catalog.TrackRecord) (*Report, error) {
	cfg := a.config
	params := SamplingParamsFrom(cfg)
	start := time.Now()

	report := &Report{
		RunID:       uuid.New().String(),
		GeneratedAt: start.UTC(),
		Tracks:      len(tracks),
		Categories:  categoryCounts(tracks),
	}
	logger := a.logger.WithFields(logging.Fields{"run_id": report.RunID})
	logger.Info("Starting analysis", logging.Fields{"tracks": len(tracks)})

	sampled, err := a.engine.Sampled(ctx, tracks, cfg.DistributionSamples, cfg.Seed)
	if err != nil {
		return nil, fmt.Errorf("similarity distribution: %w", err)
	}
	report.Distribution = Distribute(sampled)

	if a.ExhaustiveLimit > 0 && len(tracks) <= a.ExhaustiveLimit {
		report.Extremes, err = a.engine.Exhaustive(ctx, tracks, cfg.ExtremePairs)
		if err != nil {
			return nil, fmt.Errorf("exhaustive similarity: %w", err)
		}
	}

	for _, facet := range a.Facets() {
		cmp, err := a.engine.CompareFacet(ctx, tracks, facet, params)
		if err != nil {
			return nil, fmt.Errorf("facet %s: %w", facet.Name, err)
		}
		report.Facets = append(report.Facets, *cmp)
	}

	for _, pair := range DefaultSeparationPairs {
		r, ok := a.engine.PairSeparation(tracks, ByGenreCategory, string(pair[0]), string(pair[1]), cfg.SeparationMinSize, params)
		if ok {
			report.Separation = append(report.Separation, r)
		}
	}

	report.Clusters, err = a.engine.ClusterSweep(ctx, tracks, ClusterParams{
		Counts: cfg.ClusterCounts,
		Inits:  cfg.ClusterInits,
		Seed:   cfg.Seed,
		TopN:   3,
	})
	if err != nil {
		return nil, err
	}

	report.Neighbors, err = a.engine.NearestNeighbors(ctx, tracks, ByGenreCategory, cfg.NeighborCounts)
	if err != nil {
		return nil, fmt.Errorf("nearest neighbors: %w", err)
	}

	report.Outliers, err = a.engine.FitScores(ctx, tracks, ByGenreCategory, cfg.MinCategorySize)
	if err != nil {
		return nil, fmt.Errorf("fit scores: %w", err)
	}

	logger.Info("Analysis complete", logging.Fields{
		"elapsed_ms": time.Since(start).Milliseconds(),
	})
	return report, nil
}

// Facets lists the grouping comparisons in report order
func (a *Analyzer) Facets() []Facet {
	return []Facet{
		{Name: "artist", Key: ByArtist, MinSize: a.config.MinArtistSize, Inter: ComplementSampling},
		{Name: "album", Key: ByAlbum, MinSize: a.config.MinAlbumSize, Inter: ComplementSampling},
		{Name: "primary_genre", Key: ByPrimaryGenre, MinSize: 2, Inter: ComplementSampling},
		{Name: "genre_category", Key: ByGenreCategory, MinSize: a.config.MinCategorySize, Inter: GroupPairMatrix},
	}
}

// CrossSet compares candidate ids against reference ids. Unknown ids are
// returned so callers can report them.
func (a *Analyzer) CrossSet(ctx context.Context, tracks []catalog.TrackRecord, referenceIDs, candidateIDs []string) (*CrossSetResult, []string, error) {
	byID := make(map[string]catalog.TrackRecord, len(tracks))
	for _, t := range tracks {
		byID[t.ID] = t
	}

	var unknown []string
	pick := func(ids []string) []catalog.TrackRecord {
		var out []catalog.TrackRecord
		for _, id := range ids {
			t, ok := byID[id]
			if !ok {
				unknown = append(unknown, id)
				continue
			}
			out = append(out, t)
		}
		return out
	}

	reference := pick(referenceIDs)
	candidates := pick(candidateIDs)
	result, err := a.engine.CrossSet(ctx, reference, candidates, a.config.Thresholds)
	if err != nil {
		return nil, unknown, err
	}
	return result, unknown, nil
}

func categoryCounts(tracks []catalog.TrackRecord) []CategoryCount {
	counts := make(map[Category]int)
	for _, t := range tracks {
		counts[CategorizeGenre(t.PrimaryGenre())]++
	}
	var out []CategoryCount
	for _, c := range Categories() {
		if counts[c] > 0 {
			out = append(out, CategoryCount{Category: c, Count: counts[c]})
		}
	}
	return out
}
