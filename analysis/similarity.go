package analysis

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"runtime"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/RyanBlaney/sonido-embed/algorithms/stats"
	"github.com/RyanBlaney/sonido-embed/catalog"
	"github.com/RyanBlaney/sonido-embed/logging"
)

// PairSimilarity is the cosine similarity of two tracks. LowConfidence is set
// when either embedding has near-zero norm.
type PairSimilarity struct {
	I             int     `json:"-" yaml:"-"`
	J             int     `json:"-" yaml:"-"`
	A             string  `json:"a" yaml:"a"`
	B             string  `json:"b" yaml:"b"`
	Similarity    float64 `json:"similarity" yaml:"similarity"`
	LowConfidence bool    `json:"low_confidence,omitempty" yaml:"low_confidence,omitempty"`
}

// Bucket counts similarities in [Low, High)
type Bucket struct {
	Low   float64 `json:"low" yaml:"low"`
	High  float64 `json:"high" yaml:"high"`
	Count int     `json:"count" yaml:"count"`
}

// DefaultBucketEdges delimit the similarity histogram
var DefaultBucketEdges = []float64{0, 0.5, 0.6, 0.7, 0.8, 0.9, 0.95, 1.0}

// Histogram counts values per bucket. Values outside every bucket
// (negative, or exactly 1.0) are counted in Outside.
type Histogram struct {
	Buckets []Bucket `json:"buckets" yaml:"buckets"`
	Outside int      `json:"outside" yaml:"outside"`
}

// NewHistogram builds empty buckets between consecutive edges
func NewHistogram(edges []float64) Histogram {
	h := Histogram{}
	for i := 0; i+1 < len(edges); i++ {
		h.Buckets = append(h.Buckets, Bucket{Low: edges[i], High: edges[i+1]})
	}
	return h
}

// Add counts one value
func (h *Histogram) Add(v float64) {
	for i := range h.Buckets {
		if v >= h.Buckets[i].Low && v < h.Buckets[i].High {
			h.Buckets[i].Count++
			return
		}
	}
	h.Outside++
}

// Merge adds the counts of o. Both histograms must share edges.
func (h *Histogram) Merge(o Histogram) {
	for i := range h.Buckets {
		h.Buckets[i].Count += o.Buckets[i].Count
	}
	h.Outside += o.Outside
}

// Distribution describes a set of similarity values
type Distribution struct {
	Summary         stats.Summary `json:"summary" yaml:"summary"`
	Histogram       Histogram     `json:"histogram" yaml:"histogram"`
	DegenerateCount int           `json:"degenerate_count" yaml:"degenerate_count"`
}

// ExhaustiveResult summarizes all unordered pairs of a collection
type ExhaustiveResult struct {
	Distribution
	// LeastSimilar holds the lowest-similarity pairs, ascending
	LeastSimilar []PairSimilarity `json:"least_similar" yaml:"least_similar"`
	// MostSimilar holds the highest-similarity pairs by different artists, descending
	MostSimilar []PairSimilarity `json:"most_similar" yaml:"most_similar"`
}

// Engine computes pairwise similarity over a read-only track collection.
// Work is split across workers and merged by reduction.
type Engine struct {
	workers int
	logger  logging.Logger
}

// NewEngine creates an engine; workers <= 0 uses runtime.NumCPU
func NewEngine(workers int) *Engine {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Engine{
		workers: workers,
		logger: logging.WithFields(logging.Fields{
			"component": "similarity_engine",
		}),
	}
}

// Workers returns the configured worker count
func (e *Engine) Workers() int { return e.workers }

// Pair computes the similarity of tracks i and j
func (e *Engine) Pair(tracks []catalog.TrackRecord, i, j int) PairSimilarity {
	sim, degenerate := stats.CosineSimilarity(tracks[i].Embedding, tracks[j].Embedding)
	return PairSimilarity{
		I:             i,
		J:             j,
		A:             tracks[i].ID,
		B:             tracks[j].ID,
		Similarity:    sim,
		LowConfidence: degenerate,
	}
}

// warnDegenerate logs once per call when low-confidence pairs were seen
func (e *Engine) warnDegenerate(op string, count int) {
	if count == 0 {
		return
	}
	e.logger.Warn("Degenerate embeddings in similarity computation", logging.Fields{
		"operation":      op,
		"low_confidence": count,
	})
}

// Exhaustive visits every unordered pair i<j. Rows are striped across
// workers; each worker keeps its own accumulator, histogram and extreme
// pair lists which are merged in worker order. extremes bounds the length
// of LeastSimilar and MostSimilar.
func (e *Engine) Exhaustive(ctx context.Context, tracks []catalog.TrackRecord, extremes int) (*ExhaustiveResult, error) {
	n := len(tracks)
	workers := max(1, min(e.workers, n))

	type partial struct {
		acc        stats.Accumulator
		hist       Histogram
		degenerate int
		least      *topPairs
		most       *topPairs
	}
	parts := make([]partial, workers)

	g, gctx := errgroup.WithContext(ctx)
	for w := range workers {
		parts[w] = partial{
			hist:  NewHistogram(DefaultBucketEdges),
			least: newTopPairs(extremes, false),
			most:  newTopPairs(extremes, true),
		}
		g.Go(func() error {
			p := &parts[w]
			for i := w; i < n; i += workers {
				if err := gctx.Err(); err != nil {
					return err
				}
				for j := i + 1; j < n; j++ {
					pair := e.Pair(tracks, i, j)
					p.acc.Add(pair.Similarity)
					p.hist.Add(pair.Similarity)
					if pair.LowConfidence {
						p.degenerate++
					}
					p.least.offer(pair)
					if tracks[i].Artist != tracks[j].Artist {
						p.most.offer(pair)
					}
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var acc stats.Accumulator
	result := &ExhaustiveResult{}
	result.Histogram = NewHistogram(DefaultBucketEdges)
	least := newTopPairs(extremes, false)
	most := newTopPairs(extremes, true)
	for _, p := range parts {
		acc.Merge(p.acc)
		result.Histogram.Merge(p.hist)
		result.DegenerateCount += p.degenerate
		least.merge(p.least)
		most.merge(p.most)
	}
	result.Summary = acc.Summary()
	result.LeastSimilar = least.items
	result.MostSimilar = most.items

	e.warnDegenerate("exhaustive", result.DegenerateCount)
	e.logger.Debug("Exhaustive similarity complete", logging.Fields{
		"tracks": n,
		"pairs":  result.Summary.Count,
	})
	return result, nil
}

// SamplePairs draws min(budget, n(n-1)/2) index pairs with i != j from a
// source seeded with seed. Pairs may repeat across draws.
func SamplePairs(n, budget int, seed int64) [][2]int {
	if n < 2 || budget <= 0 {
		return nil
	}
	rng := rand.New(rand.NewSource(seed))
	return drawPairs(rng, n, min(budget, n*(n-1)/2))
}

// drawPairs draws count uniform pairs of distinct indices below n
func drawPairs(rng *rand.Rand, n, count int) [][2]int {
	pairs := make([][2]int, count)
	for p := range pairs {
		i := rng.Intn(n)
		j := rng.Intn(n - 1)
		if j >= i {
			j++
		}
		pairs[p] = [2]int{i, j}
	}
	return pairs
}

// Sampled computes similarities for the pairs drawn by SamplePairs. Each
// pair writes its own slot, so output does not depend on the worker count.
func (e *Engine) Sampled(ctx context.Context, tracks []catalog.TrackRecord, budget int, seed int64) ([]PairSimilarity, error) {
	pairs := SamplePairs(len(tracks), budget, seed)
	out := make([]PairSimilarity, len(pairs))

	err := e.parallelRange(ctx, len(pairs), func(start, end int) {
		for p := start; p < end; p++ {
			out[p] = e.Pair(tracks, pairs[p][0], pairs[p][1])
		}
	})
	if err != nil {
		return nil, err
	}

	degenerate := 0
	for _, p := range out {
		if p.LowConfidence {
			degenerate++
		}
	}
	e.warnDegenerate("sampled", degenerate)
	return out, nil
}

// Distribute summarizes sampled pairs with median and histogram
func Distribute(pairs []PairSimilarity) Distribution {
	values := make([]float64, len(pairs))
	d := Distribution{Histogram: NewHistogram(DefaultBucketEdges)}
	for i, p := range pairs {
		values[i] = p.Similarity
		d.Histogram.Add(p.Similarity)
		if p.LowConfidence {
			d.DegenerateCount++
		}
	}
	d.Summary = stats.Summarize(values)
	return d
}

// CrossMatch is one candidate's relation to a reference set
type CrossMatch struct {
	ID            string  `json:"id" yaml:"id"`
	Max           float64 `json:"max" yaml:"max"`
	Mean          float64 `json:"mean" yaml:"mean"`
	Closest       string  `json:"closest" yaml:"closest"`
	LowConfidence bool    `json:"low_confidence,omitempty" yaml:"low_confidence,omitempty"`
}

// ThresholdCount counts candidates whose max similarity is below Threshold
type ThresholdCount struct {
	Threshold float64 `json:"threshold" yaml:"threshold"`
	Count     int     `json:"count" yaml:"count"`
	Fraction  float64 `json:"fraction" yaml:"fraction"`
}

// CrossSetResult holds per-candidate matches in candidate order
type CrossSetResult struct {
	Matches []CrossMatch     `json:"matches" yaml:"matches"`
	Maxima  stats.Summary    `json:"maxima" yaml:"maxima"`
	Means   stats.Summary    `json:"means" yaml:"means"`
	Below   []ThresholdCount `json:"below" yaml:"below"`
}

// CrossSet compares every candidate with every reference track. Closest is
// the first reference with the maximum similarity.
func (e *Engine) CrossSet(ctx context.Context, reference, candidates []catalog.TrackRecord, thresholds []float64) (*CrossSetResult, error) {
	if len(reference) == 0 {
		return nil, fmt.Errorf("cross-set: empty reference set")
	}

	matches := make([]CrossMatch, len(candidates))
	err := e.parallelRange(ctx, len(candidates), func(start, end int) {
		for c := start; c < end; c++ {
			cand := candidates[c]
			m := CrossMatch{ID: cand.ID}
			sum := 0.0
			for r, ref := range reference {
				sim, degenerate := stats.CosineSimilarity(cand.Embedding, ref.Embedding)
				m.LowConfidence = m.LowConfidence || degenerate
				sum += sim
				if r == 0 || sim > m.Max {
					m.Max = sim
					m.Closest = ref.ID
				}
			}
			m.Mean = sum / float64(len(reference))
			matches[c] = m
		}
	})
	if err != nil {
		return nil, err
	}

	maxima := make([]float64, len(matches))
	means := make([]float64, len(matches))
	degenerate := 0
	for i, m := range matches {
		maxima[i] = m.Max
		means[i] = m.Mean
		if m.LowConfidence {
			degenerate++
		}
	}
	e.warnDegenerate("cross_set", degenerate)

	result := &CrossSetResult{
		Matches: matches,
		Maxima:  stats.Summarize(maxima),
		Means:   stats.Summarize(means),
	}
	for _, t := range thresholds {
		tc := ThresholdCount{Threshold: t}
		for _, v := range maxima {
			if v < t {
				tc.Count++
			}
		}
		if len(maxima) > 0 {
			tc.Fraction = float64(tc.Count) / float64(len(maxima))
		}
		result.Below = append(result.Below, tc)
	}
	return result, nil
}

// parallelRange splits [0,n) into contiguous chunks, one per worker
func (e *Engine) parallelRange(ctx context.Context, n int, fn func(start, end int)) error {
	if n == 0 {
		return ctx.Err()
	}
	workers := max(1, min(e.workers, n))
	chunk := (n + workers - 1) / workers

	g, gctx := errgroup.WithContext(ctx)
	for start := 0; start < n; start += chunk {
		end := min(start+chunk, n)
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			fn(start, end)
			return nil
		})
	}
	return g.Wait()
}

// topPairs keeps the limit best pairs, ordered by similarity (descending when
// highest is set) with ties broken by pair index
type topPairs struct {
	limit   int
	highest bool
	items   []PairSimilarity
}

func newTopPairs(limit int, highest bool) *topPairs {
	return &topPairs{limit: max(limit, 0), highest: highest}
}

func (t *topPairs) less(a, b PairSimilarity) int {
	if a.Similarity != b.Similarity {
		if (a.Similarity < b.Similarity) != t.highest {
			return -1
		}
		return 1
	}
	if a.I != b.I {
		return a.I - b.I
	}
	return a.J - b.J
}

func (t *topPairs) offer(p PairSimilarity) {
	if t.limit == 0 || math.IsNaN(p.Similarity) {
		return
	}
	if len(t.items) == t.limit && t.less(p, t.items[len(t.items)-1]) >= 0 {
		return
	}
	pos, _ := slices.BinarySearchFunc(t.items, p, t.less)
	t.items = slices.Insert(t.items, pos, p)
	if len(t.items) > t.limit {
		t.items = t.items[:t.limit]
	}
}

func (t *topPairs) merge(o *topPairs) {
	for _, p := range o.items {
		t.offer(p)
	}
}
