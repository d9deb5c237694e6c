package analysis

import (
	"cmp"
	"context"
	"slices"

	"github.com/RyanBlaney/sonido-embed/algorithms/stats"
	"github.com/RyanBlaney/sonido-embed/catalog"
)

// NeighborAccuracy is the share of nearest neighbors with the query's label
type NeighborAccuracy struct {
	K        int     `json:"k" yaml:"k"`
	Accuracy float64 `json:"accuracy" yaml:"accuracy"`
	Queries  int     `json:"queries" yaml:"queries"`
}

type neighbor struct {
	index int
	sim   float64
}

// NearestNeighbors ranks every track against all others by descending
// similarity and reports, for each k, the fraction of the top
// min(k, n-1) neighbors whose label matches, averaged over all tracks.
// Equal similarities keep index order.
func (e *Engine) NearestNeighbors(ctx context.Context, tracks []catalog.TrackRecord, label KeyFunc, ks []int) ([]NeighborAccuracy, error) {
	n := len(tracks)
	labels := make([]string, n)
	for i, t := range tracks {
		labels[i] = label(t)
	}

	// per-query accuracy for each k
	scores := make([][]float64, n)
	err := e.parallelRange(ctx, n, func(start, end int) {
		ranked := make([]neighbor, 0, n)
		for i := start; i < end; i++ {
			ranked = ranked[:0]
			for j := range n {
				if j == i {
					continue
				}
				sim, _ := stats.CosineSimilarity(tracks[i].Embedding, tracks[j].Embedding)
				ranked = append(ranked, neighbor{index: j, sim: sim})
			}
			slices.SortStableFunc(ranked, func(a, b neighbor) int {
				return cmp.Compare(b.sim, a.sim)
			})

			row := make([]float64, len(ks))
			for ki, k := range ks {
				considered := min(k, len(ranked))
				if considered <= 0 {
					continue
				}
				matches := 0
				for _, nb := range ranked[:considered] {
					if labels[nb.index] == labels[i] {
						matches++
					}
				}
				row[ki] = float64(matches) / float64(considered)
			}
			scores[i] = row
		}
	})
	if err != nil {
		return nil, err
	}

	out := make([]NeighborAccuracy, len(ks))
	for ki, k := range ks {
		out[ki].K = k
		if n < 2 || k <= 0 {
			continue
		}
		sum := 0.0
		for i := range n {
			sum += scores[i][ki]
		}
		out[ki].Accuracy = sum / float64(n)
		out[ki].Queries = n
	}
	return out, nil
}
