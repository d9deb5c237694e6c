package stats

import (
	"fmt"
	"math"
	"math/rand"
	"runtime"
	"sync"
)

// ClusteringResult contains the results of one k-means fit
type ClusteringResult struct {
	Labels      []int       `json:"labels"`  // Cluster assignment for each point
	Centers     [][]float64 `json:"-"`       // Cluster centers
	Inertia     float64     `json:"inertia"` // Total within-cluster sum of squares
	NumClusters int         `json:"num_clusters"`
	Converged   bool        `json:"converged"`
	Iterations  int         `json:"iterations"`
}

// ClusteringParams contains parameters for k-means
type ClusteringParams struct {
	NumClusters   int     `json:"num_clusters"`
	MaxIterations int     `json:"max_iterations"`
	Tolerance     float64 `json:"tolerance"` // Total centroid shift that counts as converged
	NumInit       int     `json:"num_init"`  // Independent restarts, lowest inertia wins
	RandomSeed    int64   `json:"random_seed"`
}

// DefaultClusteringParams mirrors sklearn.cluster.KMeans(n_init=10, random_state=42)
func DefaultClusteringParams(k int) ClusteringParams {
	return ClusteringParams{
		NumClusters:   k,
		MaxIterations: 300,
		Tolerance:     1e-4,
		NumInit:       10,
		RandomSeed:    42,
	}
}

// Clustering implements k-means over embedding vectors
//
// References:
//   - MacQueen, J. (1967). "Some methods for classification and analysis of
//     multivariate observations"
//   - Arthur, D., & Vassilvitskii, S. (2007). "k-means++: The advantages of
//     careful seeding"
//   - Rousseeuw, P. J. (1987). "Silhouettes: a graphical aid to the
//     interpretation and validation of cluster analysis"
type Clustering struct {
	params ClusteringParams
	rng    *rand.Rand
}

// NewClusteringWithParams creates a clustering analyzer with custom parameters
func NewClusteringWithParams(params ClusteringParams) *Clustering {
	if params.NumInit <= 0 {
		params.NumInit = 1
	}
	if params.MaxIterations <= 0 {
		params.MaxIterations = 300
	}
	return &Clustering{
		params: params,
		rng:    rand.New(rand.NewSource(params.RandomSeed)),
	}
}

// Fit runs NumInit k-means restarts and keeps the lowest-inertia result.
// Restarts draw from one seeded source in order, so a fixed seed always
// yields the same labels.
func (c *Clustering) Fit(data [][]float64) (*ClusteringResult, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty data")
	}
	k := c.params.NumClusters
	if k <= 0 {
		return nil, fmt.Errorf("number of clusters must be positive, got %d", k)
	}
	if k > len(data) {
		return nil, fmt.Errorf("number of clusters (%d) cannot exceed number of data points (%d)", k, len(data))
	}

	var best *ClusteringResult
	for range c.params.NumInit {
		result := c.kmeans(data)
		if best == nil || result.Inertia < best.Inertia {
			best = result
		}
	}
	return best, nil
}

// kmeans implements Lloyd's algorithm with k-means++ initialization
func (c *Clustering) kmeans(data [][]float64) *ClusteringResult {
	n := len(data)
	k := c.params.NumClusters
	dim := len(data[0])

	centers := c.initializeCenters(data, k)
	labels := make([]int, n)

	converged := false
	iterations := 0

	for iterations < c.params.MaxIterations && !converged {
		// Assignment step
		for i, point := range data {
			minDist := math.Inf(1)
			bestCluster := 0
			for j, center := range centers {
				if dist := SquaredEuclideanDistance(point, center); dist < minDist {
					minDist = dist
					bestCluster = j
				}
			}
			labels[i] = bestCluster
		}

		// Update step
		newCenters := make([][]float64, k)
		clusterSizes := make([]int, k)
		for i := range newCenters {
			newCenters[i] = make([]float64, dim)
		}
		for i, point := range data {
			cluster := labels[i]
			clusterSizes[cluster]++
			for j := range point {
				newCenters[cluster][j] += point[j]
			}
		}

		centerMovement := 0.0
		for i := range newCenters {
			if clusterSizes[i] == 0 {
				// empty cluster keeps its previous centroid
				copy(newCenters[i], centers[i])
				continue
			}
			for j := range newCenters[i] {
				newCenters[i][j] /= float64(clusterSizes[i])
			}
			centerMovement += SquaredEuclideanDistance(centers[i], newCenters[i])
		}

		centers = newCenters
		converged = centerMovement <= c.params.Tolerance
		iterations++
	}

	// final assignment against the converged centers
	for i, point := range data {
		minDist := math.Inf(1)
		for j, center := range centers {
			if dist := SquaredEuclideanDistance(point, center); dist < minDist {
				minDist = dist
				labels[i] = j
			}
		}
	}

	return &ClusteringResult{
		Labels:      labels,
		Centers:     centers,
		Inertia:     calculateInertia(data, labels, centers),
		NumClusters: k,
		Converged:   converged,
		Iterations:  iterations,
	}
}

// initializeCenters picks k-means++ seeds
// Reference: Arthur, D., & Vassilvitskii, S. (2007)
func (c *Clustering) initializeCenters(data [][]float64, k int) [][]float64 {
	n := len(data)
	dim := len(data[0])
	centers := make([][]float64, k)

	centers[0] = make([]float64, dim)
	copy(centers[0], data[c.rng.Intn(n)])

	distances := make([]float64, n)
	for i := 1; i < k; i++ {
		totalDist := 0.0
		for j, point := range data {
			minDist := math.Inf(1)
			for l := range i {
				if dist := SquaredEuclideanDistance(point, centers[l]); dist < minDist {
					minDist = dist
				}
			}
			distances[j] = minDist
			totalDist += minDist
		}

		centers[i] = make([]float64, dim)
		if totalDist <= 0 {
			copy(centers[i], data[c.rng.Intn(n)])
			continue
		}

		// probability proportional to squared distance
		r := c.rng.Float64() * totalDist
		cumSum := 0.0
		chosen := n - 1
		for j, dist := range distances {
			cumSum += dist
			if cumSum >= r && dist > 0 {
				chosen = j
				break
			}
		}
		copy(centers[i], data[chosen])
	}

	return centers
}

// calculateInertia computes total within-cluster sum of squares
func calculateInertia(data [][]float64, labels []int, centers [][]float64) float64 {
	inertia := 0.0
	for i, point := range data {
		inertia += SquaredEuclideanDistance(point, centers[labels[i]])
	}
	return inertia
}

// SilhouetteScore computes the mean silhouette coefficient with cosine
// distance (1 - cosine similarity), following sklearn conventions: a point
// in a singleton cluster scores 0, and fewer than two distinct labels (or
// one cluster per point) scores 0 overall. Points are split across workers;
// workers <= 0 uses runtime.NumCPU.
//
// Reference: Rousseeuw, P. J. (1987)
func SilhouetteScore(data [][]float64, labels []int, workers int) float64 {
	n := len(data)
	if n < 2 || len(labels) != n {
		return 0.0
	}

	numLabels := 0
	for _, l := range labels {
		numLabels = max(numLabels, l+1)
	}
	sizes := make([]int, numLabels)
	for _, l := range labels {
		sizes[l]++
	}
	distinct := 0
	for _, s := range sizes {
		if s > 0 {
			distinct++
		}
	}
	if distinct < 2 || distinct >= n {
		return 0.0
	}

	unit := NormalizeRows(data)

	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	workers = min(workers, n)

	silhouettes := make([]float64, n)
	var wg sync.WaitGroup
	chunk := (n + workers - 1) / workers
	for w := range workers {
		start := w * chunk
		end := min(start+chunk, n)
		if start >= end {
			break
		}
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			sums := make([]float64, numLabels)
			for i := start; i < end; i++ {
				for l := range sums {
					sums[l] = 0
				}
				for j := range n {
					if j == i {
						continue
					}
					sums[labels[j]] += cosineDistanceUnit(unit[i], unit[j])
				}
				silhouettes[i] = pointSilhouette(labels[i], sums, sizes)
			}
		}(start, end)
	}
	wg.Wait()

	sum := 0.0
	for _, s := range silhouettes {
		sum += s
	}
	return sum / float64(n)
}

func pointSilhouette(own int, sums []float64, sizes []int) float64 {
	if sizes[own] <= 1 {
		return 0.0
	}
	a := sums[own] / float64(sizes[own]-1)

	b := math.Inf(1)
	for l, size := range sizes {
		if l == own || size == 0 {
			continue
		}
		b = math.Min(b, sums[l]/float64(size))
	}

	denom := math.Max(a, b)
	if denom == 0 || math.IsInf(b, 1) {
		return 0.0
	}
	return (b - a) / denom
}

func cosineDistanceUnit(a, b []float64) float64 {
	dot := 0.0
	for i := range a {
		dot += a[i] * b[i]
	}
	return 1.0 - math.Max(-1, math.Min(1, dot))
}
