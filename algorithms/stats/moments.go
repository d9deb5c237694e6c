package stats

import (
	"math"

	"github.com/RyanBlaney/sonido-embed/algorithms/common"
)

// Summary contains descriptive statistics of a set of similarity values
type Summary struct {
	Count  int     `json:"count" yaml:"count"`
	Mean   float64 `json:"mean" yaml:"mean"`
	StdDev float64 `json:"std_dev" yaml:"std_dev"` // population (ddof=0)
	Min    float64 `json:"min" yaml:"min"`
	Max    float64 `json:"max" yaml:"max"`
	Median float64 `json:"median" yaml:"median"`
}

// Summarize computes count, mean, population std, min, max and median.
// An empty input yields the zero Summary.
func Summarize(values []float64) Summary {
	if len(values) == 0 {
		return Summary{}
	}
	lo, hi := common.MinMax(values)
	return Summary{
		Count:  len(values),
		Mean:   common.Mean(values),
		StdDev: common.PopulationStdDev(values),
		Min:    lo,
		Max:    hi,
		Median: common.Median(values),
	}
}

// Accumulator tracks running moments with Welford's update so partial
// results from independent workers can be merged.
//
// Reference: Chan, T. F., Golub, G. H., & LeVeque, R. J. (1979).
// "Updating formulae and a pairwise algorithm for computing sample variances"
type Accumulator struct {
	count int
	mean  float64
	m2    float64
	min   float64
	max   float64
}

// Add folds one observation into the accumulator
func (a *Accumulator) Add(x float64) {
	if a.count == 0 {
		a.min, a.max = x, x
	} else {
		a.min = math.Min(a.min, x)
		a.max = math.Max(a.max, x)
	}
	a.count++
	delta := x - a.mean
	a.mean += delta / float64(a.count)
	a.m2 += delta * (x - a.mean)
}

// Merge folds another accumulator into a
func (a *Accumulator) Merge(b Accumulator) {
	if b.count == 0 {
		return
	}
	if a.count == 0 {
		*a = b
		return
	}

	n := float64(a.count + b.count)
	delta := b.mean - a.mean
	a.mean += delta * float64(b.count) / n
	a.m2 += b.m2 + delta*delta*float64(a.count)*float64(b.count)/n
	a.count += b.count
	a.min = math.Min(a.min, b.min)
	a.max = math.Max(a.max, b.max)
}

// Count returns the number of observations
func (a *Accumulator) Count() int { return a.count }

// Mean returns the running mean
func (a *Accumulator) Mean() float64 { return a.mean }

// StdDev returns the population standard deviation
func (a *Accumulator) StdDev() float64 {
	if a.count < 2 {
		return 0.0
	}
	return math.Sqrt(a.m2 / float64(a.count))
}

// Summary converts the accumulator to a Summary without a median
func (a *Accumulator) Summary() Summary {
	if a.count == 0 {
		return Summary{}
	}
	return Summary{
		Count:  a.count,
		Mean:   a.mean,
		StdDev: a.StdDev(),
		Min:    a.min,
		Max:    a.max,
	}
}
