package analysis

import (
	"context"
	"fmt"
	"slices"

	"github.com/RyanBlaney/sonido-embed/algorithms/stats"
	"github.com/RyanBlaney/sonido-embed/catalog"
	"github.com/RyanBlaney/sonido-embed/logging"
)

// CategoryCount is one entry of a cluster composition
type CategoryCount struct {
	Category Category `json:"category" yaml:"category"`
	Count    int      `json:"count" yaml:"count"`
}

// ClusterComposition lists the most common genre categories in a cluster
type ClusterComposition struct {
	Cluster int             `json:"cluster" yaml:"cluster"`
	Size    int             `json:"size" yaml:"size"`
	Top     []CategoryCount `json:"top" yaml:"top"`
}

// ClusterRun is one k-means fit with its diagnostics
type ClusterRun struct {
	K           int                  `json:"k" yaml:"k"`
	Inertia     float64              `json:"inertia" yaml:"inertia"`
	Silhouette  float64              `json:"silhouette" yaml:"silhouette"`
	Iterations  int                  `json:"iterations" yaml:"iterations"`
	Converged   bool                 `json:"converged" yaml:"converged"`
	Labels      []int                `json:"-" yaml:"-"`
	Composition []ClusterComposition `json:"composition" yaml:"composition"`
}

// ClusterParams configures a k sweep
type ClusterParams struct {
	Counts []int
	Inits  int
	Seed   int64
	TopN   int
}

// ClusterSweep fits k-means for every k in params.Counts. Values of k
// larger than the collection are skipped with a warning.
func (e *Engine) ClusterSweep(ctx context.Context, tracks []catalog.TrackRecord, params ClusterParams) ([]ClusterRun, error) {
	data := make([][]float64, len(tracks))
	categories := make([]Category, len(tracks))
	for i, t := range tracks {
		data[i] = t.Embedding
		categories[i] = CategorizeGenre(t.PrimaryGenre())
	}

	var runs []ClusterRun
	for _, k := range params.Counts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if k <= 0 || k > len(data) {
			e.logger.Warn("Skipping cluster count", logging.Fields{
				"k":      k,
				"tracks": len(data),
			})
			continue
		}

		cp := stats.DefaultClusteringParams(k)
		cp.RandomSeed = params.Seed
		if params.Inits > 0 {
			cp.NumInit = params.Inits
		}
		fit, err := stats.NewClusteringWithParams(cp).Fit(data)
		if err != nil {
			return nil, fmt.Errorf("k-means k=%d: %w", k, err)
		}

		run := ClusterRun{
			K:           k,
			Inertia:     fit.Inertia,
			Silhouette:  stats.SilhouetteScore(data, fit.Labels, e.workers),
			Iterations:  fit.Iterations,
			Converged:   fit.Converged,
			Labels:      fit.Labels,
			Composition: Composition(fit.Labels, categories, k, params.TopN),
		}
		e.logger.Debug("Clustering complete", logging.Fields{
			"k":          k,
			"inertia":    run.Inertia,
			"silhouette": run.Silhouette,
		})
		runs = append(runs, run)
	}
	return runs, nil
}

// Composition counts categories per cluster and keeps the topN most
// common. Ties keep first-occurrence order.
func Composition(labels []int, categories []Category, k, topN int) []ClusterComposition {
	out := make([]ClusterComposition, k)
	for c := range out {
		out[c].Cluster = c
	}

	for i, l := range labels {
		out[l].Size++
		top := out[l].Top
		found := false
		for j := range top {
			if top[j].Category == categories[i] {
				top[j].Count++
				found = true
				break
			}
		}
		if !found {
			out[l].Top = append(top, CategoryCount{Category: categories[i], Count: 1})
		}
	}

	for c := range out {
		slices.SortStableFunc(out[c].Top, func(a, b CategoryCount) int {
			return b.Count - a.Count
		})
		if topN > 0 && len(out[c].Top) > topN {
			out[c].Top = out[c].Top[:topN]
		}
	}
	return out
}
