package analysis

import (
	"cmp"
	"context"
	"slices"

	"github.com/RyanBlaney/sonido-embed/catalog"
)

// FitScore is a track's mean similarity to the rest of its group
type FitScore struct {
	ID     string  `json:"id" yaml:"id"`
	Title  string  `json:"title" yaml:"title"`
	Artist string  `json:"artist" yaml:"artist"`
	Group  string  `json:"group" yaml:"group"`
	Score  float64 `json:"score" yaml:"score"`
}

// FitScores scores every member of each group with at least minSize
// members. Results are grouped in first-occurrence order and sorted
// ascending within a group, so the least typical tracks come first.
func (e *Engine) FitScores(ctx context.Context, tracks []catalog.TrackRecord, key KeyFunc, minSize int) ([][]FitScore, error) {
	groups, _ := GroupBy(tracks, key, minSize)

	out := make([][]FitScore, len(groups))
	err := e.parallelRange(ctx, len(groups), func(start, end int) {
		for g := start; g < end; g++ {
			out[g] = e.groupFit(tracks, groups[g])
		}
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (e *Engine) groupFit(tracks []catalog.TrackRecord, g Group) []FitScore {
	scores := make([]FitScore, len(g.Members))
	for a, i := range g.Members {
		sum := 0.0
		for _, j := range g.Members {
			if i == j {
				continue
			}
			sum += e.Pair(tracks, i, j).Similarity
		}
		t := tracks[i]
		scores[a] = FitScore{
			ID:     t.ID,
			Title:  t.Title,
			Artist: t.Artist,
			Group:  g.Key,
		}
		if len(g.Members) > 1 {
			scores[a].Score = sum / float64(len(g.Members)-1)
		}
	}
	slices.SortStableFunc(scores, func(a, b FitScore) int {
		return cmp.Compare(a.Score, b.Score)
	})
	return scores
}
