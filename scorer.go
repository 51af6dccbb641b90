package cbpt

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

var (
	// ErrEmptyGroup is returned when one of the two groups has no samples,
	// leaving the pointwise statistic undefined.
	ErrEmptyGroup = errors.New("group has no samples")

	// ErrTooFewSamples is returned when the groups are too small for the
	// test's degrees of freedom.
	ErrTooFewSamples = errors.New("too few samples for the test")
)

// Scorer computes one statistic and one p-value per grid node from a
// labeled dataset. Outputs have length ds.Nodes() and follow NodeIndex
// order. Implementations must be safe for concurrent use: permutation
// workers share a single Scorer.
type Scorer interface {
	Score(ds *Dataset, labels []int) (stat, p []float64, err error)
}

// ScorerFunc adapts a plain function into a Scorer.
type ScorerFunc func(ds *Dataset, labels []int) (stat, p []float64, err error)

func (f ScorerFunc) Score(ds *Dataset, labels []int) ([]float64, []float64, error) {
	return f(ds, labels)
}

// TTest is a two-sided independent-samples t-test between group 0 and
// group 1. The statistic is positive when group 0 has the larger mean.
type TTest struct {
	// EqualVariance selects Student's pooled-variance test when true and
	// Welch's unequal-variance test when false.
	EqualVariance bool
}

// DefaultScorer is Student's two-sided t-test.
var DefaultScorer Scorer = TTest{EqualVariance: true}

// countGroups returns the size of group 0 and group 1.
func countGroups(labels []int) (nA, nB int) {
	for _, l := range labels {
		if l == 0 {
			nA++
		} else {
			nB++
		}
	}
	return nA, nB
}

func (tt TTest) Score(ds *Dataset, labels []int) ([]float64, []float64, error) {
	if len(labels) != ds.Samples {
		return nil, nil, fmt.Errorf("got %d labels for %d samples", len(labels), ds.Samples)
	}
	nA, nB := countGroups(labels)
	if nA == 0 || nB == 0 {
		return nil, nil, fmt.Errorf("%w: group sizes %d and %d", ErrEmptyGroup, nA, nB)
	}
	if tt.EqualVariance && nA+nB < 3 {
		return nil, nil, fmt.Errorf("%w: Student t-test needs at least 3 samples, got %d", ErrTooFewSamples, nA+nB)
	}
	if !tt.EqualVariance && (nA < 2 || nB < 2) {
		return nil, nil, fmt.Errorf("%w: Welch t-test needs 2 samples per group, got %d and %d", ErrTooFewSamples, nA, nB)
	}

	nodes := ds.Nodes()
	tStat := make([]float64, nodes)
	pVal := make([]float64, nodes)
	a := make([]float64, nA)
	b := make([]float64, nB)

	for u := 0; u < ds.Units; u++ {
		for t := 0; t < ds.Timesteps; t++ {
			ia, ib := 0, 0
			for s, l := range labels {
				v := ds.At(s, u, t)
				if l == 0 {
					a[ia] = v
					ia++
				} else {
					b[ib] = v
					ib++
				}
			}
			idx := NodeIndex(u, t, ds.Units)
			tStat[idx], pVal[idx] = tt.compare(a, b)
		}
	}
	return tStat, pVal, nil
}

// compare returns the t statistic and two-sided p-value for one node.
func (tt TTest) compare(a, b []float64) (float64, float64) {
	meanA, varA := meanVariance(a)
	meanB, varB := meanVariance(b)
	nA, nB := float64(len(a)), float64(len(b))
	diff := meanA - meanB

	var se, df float64
	if tt.EqualVariance {
		df = nA + nB - 2
		pooled := ((nA-1)*varA + (nB-1)*varB) / df
		se = math.Sqrt(pooled * (1/nA + 1/nB))
	} else {
		qa, qb := varA/nA, varB/nB
		se = math.Sqrt(qa + qb)
		df = (qa + qb) * (qa + qb) / (qa*qa/(nA-1) + qb*qb/(nB-1))
	}

	if se == 0 {
		if diff == 0 {
			return 0, 1
		}
		return math.Copysign(math.Inf(1), diff), 0
	}

	t := diff / se
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	p := math.Min(1, 2*dist.Survival(math.Abs(t)))
	return t, p
}

// meanVariance returns the mean and unbiased variance of x. A single value
// has zero variance rather than NaN so it can contribute to a pooled test.
func meanVariance(x []float64) (float64, float64) {
	if len(x) == 1 {
		return x[0], 0
	}
	return stat.MeanVariance(x, nil)
}
