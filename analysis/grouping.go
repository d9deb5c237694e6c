package analysis

import (
	"context"
	"encoding/binary"
	"math/rand"

	"github.com/OneOfOne/xxhash"

	"github.com/RyanBlaney/sonido-embed/algorithms/stats"
	"github.com/RyanBlaney/sonido-embed/catalog"
	"github.com/RyanBlaney/sonido-embed/config"
	"github.com/RyanBlaney/sonido-embed/logging"
)

// KeyFunc assigns a track to a group
type KeyFunc func(catalog.TrackRecord) string

// ByArtist groups by artist name
func ByArtist(t catalog.TrackRecord) string { return t.Artist }

// ByAlbum groups by artist and album together
func ByAlbum(t catalog.TrackRecord) string { return t.Artist + " / " + t.Album }

// ByGenreCategory groups by the category of the primary genre
func ByGenreCategory(t catalog.TrackRecord) string {
	return string(CategorizeGenre(t.PrimaryGenre()))
}

// ByPrimaryGenre groups by the raw primary genre
func ByPrimaryGenre(t catalog.TrackRecord) string { return t.PrimaryGenre() }

// Group is a set of track indices sharing a key
type Group struct {
	Key     string
	Members []int
}

// GroupBy partitions tracks by key in first-occurrence order and drops
// groups with fewer than minSize members. The number of dropped groups is
// returned alongside.
func GroupBy(tracks []catalog.TrackRecord, key KeyFunc, minSize int) ([]Group, int) {
	index := make(map[string]int)
	var all []Group
	for i, t := range tracks {
		k := key(t)
		g, ok := index[k]
		if !ok {
			g = len(all)
			index[k] = g
			all = append(all, Group{Key: k})
		}
		all[g].Members = append(all[g].Members, i)
	}

	kept := all[:0]
	skipped := 0
	for _, g := range all {
		if len(g.Members) < minSize {
			skipped++
			continue
		}
		kept = append(kept, g)
	}
	return kept, skipped
}

// InterPolicy selects how between-group similarity is sampled
type InterPolicy string

const (
	// ComplementSampling draws random global pairs and keeps those whose keys differ
	ComplementSampling InterPolicy = "complement"
	// GroupPairMatrix draws a fixed number of pairs for every pair of groups
	GroupPairMatrix InterPolicy = "group_pairs"
)

// Facet describes one grouping comparison
type Facet struct {
	Name    string
	Key     KeyFunc
	MinSize int
	Inter   InterPolicy
}

// SamplingParams bounds pair sampling for grouped statistics
type SamplingParams struct {
	Seed             int64
	IntraPairBudget  int
	ComplementBudget int
	GroupPairBudget  int
}

// SamplingParamsFrom extracts sampling budgets from the analysis config
func SamplingParamsFrom(cfg config.AnalysisConfig) SamplingParams {
	return SamplingParams{
		Seed:             cfg.Seed,
		IntraPairBudget:  cfg.IntraPairBudget,
		ComplementBudget: cfg.ComplementBudget,
		GroupPairBudget:  cfg.GroupPairBudget,
	}
}

// GroupSummary is the intra-group similarity of one group
type GroupSummary struct {
	Key        string        `json:"key" yaml:"key"`
	Members    int           `json:"members" yaml:"members"`
	Similarity stats.Summary `json:"similarity" yaml:"similarity"`
}

// GroupPairSummary is the sampled similarity between two groups
type GroupPairSummary struct {
	A          string        `json:"a" yaml:"a"`
	B          string        `json:"b" yaml:"b"`
	Similarity stats.Summary `json:"similarity" yaml:"similarity"`
}

// FacetComparison contrasts within-group and between-group similarity for
// one facet. A positive Separation means the facet is visible in the
// embedding space.
type FacetComparison struct {
	Facet           string             `json:"facet" yaml:"facet"`
	Policy          InterPolicy        `json:"policy" yaml:"policy"`
	Groups          int                `json:"groups" yaml:"groups"`
	SkippedGroups   int                `json:"skipped_groups" yaml:"skipped_groups"`
	Intra           stats.Summary      `json:"intra" yaml:"intra"`
	Inter           stats.Summary      `json:"inter" yaml:"inter"`
	Separation      float64            `json:"separation" yaml:"separation"`
	DegenerateCount int                `json:"degenerate_count" yaml:"degenerate_count"`
	PerGroup        []GroupSummary     `json:"per_group" yaml:"per_group"`
	GroupPairs      []GroupPairSummary `json:"group_pairs,omitempty" yaml:"group_pairs,omitempty"`
}

// pairValues is a flat similarity sample with its low-confidence count
type pairValues struct {
	values     []float64
	degenerate int
}

func (p *pairValues) add(s PairSimilarity) {
	p.values = append(p.values, s.Similarity)
	if s.LowConfidence {
		p.degenerate++
	}
}

// CompareFacet groups tracks by facet.Key and compares intra-group pairs
// against between-group pairs drawn with facet.Inter.
func (e *Engine) CompareFacet(ctx context.Context, tracks []catalog.TrackRecord, facet Facet, params SamplingParams) (*FacetComparison, error) {
	groups, skipped := GroupBy(tracks, facet.Key, facet.MinSize)
	logger := e.logger.WithFields(logging.Fields{"facet": facet.Name})

	perGroup, intra, err := e.intraGroups(ctx, tracks, groups, params.IntraPairBudget)
	if err != nil {
		return nil, err
	}

	result := &FacetComparison{
		Facet:         facet.Name,
		Policy:        facet.Inter,
		Groups:        len(groups),
		SkippedGroups: skipped,
		PerGroup:      perGroup,
		Intra:         stats.Summarize(intra.values),
	}

	var inter pairValues
	switch facet.Inter {
	case GroupPairMatrix:
		result.GroupPairs, inter, err = e.groupPairs(ctx, tracks, groups, params.GroupPairBudget, params.Seed)
	default:
		result.Policy = ComplementSampling
		attempts := min(params.ComplementBudget, 10*len(intra.values))
		inter, err = e.complement(ctx, tracks, facet.Key, attempts, params.Seed)
	}
	if err != nil {
		return nil, err
	}

	result.Inter = stats.Summarize(inter.values)
	result.Separation = result.Intra.Mean - result.Inter.Mean
	result.DegenerateCount = intra.degenerate + inter.degenerate
	e.warnDegenerate("facet_"+facet.Name, result.DegenerateCount)

	logger.Debug("Facet comparison complete", logging.Fields{
		"groups":      result.Groups,
		"skipped":     skipped,
		"intra_pairs": result.Intra.Count,
		"inter_pairs": result.Inter.Count,
		"separation":  result.Separation,
	})
	return result, nil
}

// intraGroups visits in-group pairs in index order, at most budget per
// group. Groups run in parallel; values are concatenated in group order.
func (e *Engine) intraGroups(ctx context.Context, tracks []catalog.TrackRecord, groups []Group, budget int) ([]GroupSummary, pairValues, error) {
	perGroup := make([]pairValues, len(groups))
	err := e.parallelRange(ctx, len(groups), func(start, end int) {
		for g := start; g < end; g++ {
			perGroup[g] = e.intraPairs(tracks, groups[g].Members, budget)
		}
	})
	if err != nil {
		return nil, pairValues{}, err
	}

	summaries := make([]GroupSummary, len(groups))
	var all pairValues
	for g, pv := range perGroup {
		summaries[g] = GroupSummary{
			Key:        groups[g].Key,
			Members:    len(groups[g].Members),
			Similarity: stats.Summarize(pv.values),
		}
		all.values = append(all.values, pv.values...)
		all.degenerate += pv.degenerate
	}
	return summaries, all, nil
}

func (e *Engine) intraPairs(tracks []catalog.TrackRecord, members []int, budget int) pairValues {
	var pv pairValues
	for a := 0; a < len(members); a++ {
		for b := a + 1; b < len(members); b++ {
			if budget > 0 && len(pv.values) >= budget {
				return pv
			}
			pv.add(e.Pair(tracks, members[a], members[b]))
		}
	}
	return pv
}

// complement draws attempts random global pairs and keeps those whose keys
// differ
func (e *Engine) complement(ctx context.Context, tracks []catalog.TrackRecord, key KeyFunc, attempts int, seed int64) (pairValues, error) {
	if len(tracks) < 2 || attempts <= 0 {
		return pairValues{}, nil
	}
	keys := make([]string, len(tracks))
	for i, t := range tracks {
		keys[i] = key(t)
	}

	rng := rand.New(rand.NewSource(seed))
	var kept [][2]int
	for _, p := range drawPairs(rng, len(tracks), attempts) {
		if keys[p[0]] != keys[p[1]] {
			kept = append(kept, p)
		}
	}

	sims := make([]PairSimilarity, len(kept))
	err := e.parallelRange(ctx, len(kept), func(start, end int) {
		for p := start; p < end; p++ {
			sims[p] = e.Pair(tracks, kept[p][0], kept[p][1])
		}
	})
	if err != nil {
		return pairValues{}, err
	}

	var pv pairValues
	for _, s := range sims {
		pv.add(s)
	}
	return pv, nil
}

// groupPairs samples every unordered pair of groups. Each pair of groups
// gets its own source so pairs can be computed in any order.
func (e *Engine) groupPairs(ctx context.Context, tracks []catalog.TrackRecord, groups []Group, budget int, seed int64) ([]GroupPairSummary, pairValues, error) {
	var index [][2]int
	for a := range groups {
		for b := a + 1; b < len(groups); b++ {
			index = append(index, [2]int{a, b})
		}
	}

	samples := make([]pairValues, len(index))
	err := e.parallelRange(ctx, len(index), func(start, end int) {
		for p := start; p < end; p++ {
			ga, gb := groups[index[p][0]], groups[index[p][1]]
			samples[p] = e.crossGroup(tracks, ga, gb, budget, seed)
		}
	})
	if err != nil {
		return nil, pairValues{}, err
	}

	summaries := make([]GroupPairSummary, len(index))
	var all pairValues
	for p, pv := range samples {
		summaries[p] = GroupPairSummary{
			A:          groups[index[p][0]].Key,
			B:          groups[index[p][1]].Key,
			Similarity: stats.Summarize(pv.values),
		}
		all.values = append(all.values, pv.values...)
		all.degenerate += pv.degenerate
	}
	return summaries, all, nil
}

// crossGroup draws min(budget, |a||b|) pairs, each side uniform with
// replacement
func (e *Engine) crossGroup(tracks []catalog.TrackRecord, a, b Group, budget int, seed int64) pairValues {
	draws := len(a.Members) * len(b.Members)
	if budget > 0 {
		draws = min(budget, draws)
	}
	rng := rand.New(rand.NewSource(pairSeed(seed, a.Key, b.Key)))

	var pv pairValues
	for range draws {
		i := a.Members[rng.Intn(len(a.Members))]
		j := b.Members[rng.Intn(len(b.Members))]
		pv.add(e.Pair(tracks, i, j))
	}
	return pv
}

// pairSeed derives a stable per-pair seed from the base seed and both keys
func pairSeed(seed int64, a, b string) int64 {
	buf := make([]byte, 8, 8+len(a)+1+len(b))
	binary.BigEndian.PutUint64(buf, uint64(seed))
	buf = append(buf, a...)
	buf = append(buf, 0)
	buf = append(buf, b...)
	return int64(xxhash.Checksum64(buf))
}

// SeparationResult compares category A with itself and with category B
type SeparationResult struct {
	A          string  `json:"a" yaml:"a"`
	B          string  `json:"b" yaml:"b"`
	Within     float64 `json:"within" yaml:"within"`
	Between    float64 `json:"between" yaml:"between"`
	Separation float64 `json:"separation" yaml:"separation"`
}

// DefaultSeparationPairs are category pairs expected to sound unlike
var DefaultSeparationPairs = [][2]Category{
	{HipHop, Jazz},
	{HipHop, Rock},
	{HipHop, Country},
	{Electronic, Jazz},
	{Electronic, Country},
	{Heavy, Jazz},
	{RnBSoul, Heavy},
}

// PairSeparation contrasts all in-group pairs of a with pairs drawn across
// a and b. ok is false when either group has fewer than minSize members.
func (e *Engine) PairSeparation(tracks []catalog.TrackRecord, key KeyFunc, a, b string, minSize int, params SamplingParams) (SeparationResult, bool) {
	groups, _ := GroupBy(tracks, key, minSize)
	var ga, gb *Group
	for i := range groups {
		switch groups[i].Key {
		case a:
			ga = &groups[i]
		case b:
			gb = &groups[i]
		}
	}
	if ga == nil || gb == nil {
		return SeparationResult{A: a, B: b}, false
	}

	within := e.intraPairs(tracks, ga.Members, 0)
	between := e.crossGroup(tracks, *ga, *gb, params.GroupPairBudget, params.Seed)

	r := SeparationResult{
		A:       a,
		B:       b,
		Within:  stats.Summarize(within.values).Mean,
		Between: stats.Summarize(between.values).Mean,
	}
	r.Separation = r.Within - r.Between
	return r, true
}
