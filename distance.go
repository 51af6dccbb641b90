package cbpt

import "math"

// DistanceMetric measures spatial distance between two unit coordinates.
// DistToRdist converts a true distance into the metric's reduced-distance
// space, which lets the KD-tree compare radii without taking roots.
type DistanceMetric interface {
	Distance(a, b []float64) float64
	DistToRdist(d float64) float64
}

// DistanceFunc adapts a plain function into a DistanceMetric.
// Custom functions are only usable with the dense proximity strategy.
type DistanceFunc func(a, b []float64) float64

func (f DistanceFunc) Distance(a, b []float64) float64 { return f(a, b) }
func (f DistanceFunc) DistToRdist(d float64) float64   { return d }

// EuclideanMetric computes the Euclidean (L2) distance. It is the default.
type EuclideanMetric struct{}

func (EuclideanMetric) Distance(a, b []float64) float64 {
	return math.Sqrt(euclideanSumOfSquares(a, b))
}

func (EuclideanMetric) DistToRdist(d float64) float64 { return d * d }

func euclideanSumOfSquares(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

// ManhattanMetric computes the city-block (L1) distance.
type ManhattanMetric struct{}

func (ManhattanMetric) Distance(a, b []float64) float64 {
	var sum float64
	for i := range a {
		sum += math.Abs(a[i] - b[i])
	}
	return sum
}

func (ManhattanMetric) DistToRdist(d float64) float64 { return d }

// ChebyshevMetric computes the L-infinity distance, i.e. a square
// neighborhood on a sensor grid.
type ChebyshevMetric struct{}

func (ChebyshevMetric) Distance(a, b []float64) float64 {
	var maxVal float64
	for i := range a {
		if v := math.Abs(a[i] - b[i]); v > maxVal {
			maxVal = v
		}
	}
	return maxVal
}

func (ChebyshevMetric) DistToRdist(d float64) float64 { return d }

// MinkowskiMetric computes the Minkowski distance parameterized by P.
// P must be >= 1; Distance panics otherwise. Run and the proximity builders
// reject such a metric with a ConfigError before any distance is computed.
type MinkowskiMetric struct {
	P float64
}

func (m MinkowskiMetric) Distance(a, b []float64) float64 {
	return math.Pow(m.rawSum(a, b), 1.0/m.P)
}

func (m MinkowskiMetric) DistToRdist(d float64) float64 { return math.Pow(d, m.P) }

func (m MinkowskiMetric) rawSum(a, b []float64) float64 {
	if !(m.P >= 1) {
		panic("MinkowskiMetric: P must be >= 1")
	}
	var sum float64
	for i := range a {
		sum += math.Pow(math.Abs(a[i]-b[i]), m.P)
	}
	return sum
}

// validateMetric rejects metrics whose parameters would make Distance fail.
func validateMetric(m DistanceMetric) error {
	if mk, ok := m.(MinkowskiMetric); ok && !(mk.P >= 1) {
		return configErrorf("metric", mk.P, "Minkowski P must be >= 1")
	}
	return nil
}
