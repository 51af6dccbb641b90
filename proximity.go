package cbpt

import (
	"math"
	"runtime"
)

// SpatialStrategy selects how the spatial proximity matrix is computed.
type SpatialStrategy string

const (
	StrategyAuto   SpatialStrategy = "auto"
	StrategyDense  SpatialStrategy = "dense"
	StrategyKDTree SpatialStrategy = "kdtree"
)

// DefaultMaxAdjacencyEntries caps the space-time proximity matrix at 2^28
// true entries (about 2 GiB of column indices).
const DefaultMaxAdjacencyEntries int64 = 1 << 28

// ProximityOptions controls spatial proximity construction. The zero value
// uses the auto strategy, Euclidean distance, all CPUs and the default size
// limit.
type ProximityOptions struct {
	// Strategy picks dense pairwise distances or KD-tree radius queries.
	// Both produce identical matrices. Default: "auto".
	Strategy SpatialStrategy

	// Metric measures spatial distance. Default: EuclideanMetric.
	Metric DistanceMetric

	// LeafSize is the KD-tree leaf size. Default: 40.
	LeafSize int

	// Workers bounds the goroutines used for distance computation.
	// 0 means runtime.NumCPU().
	Workers int

	// MaxEntries caps the number of true entries of the space-time matrix.
	// Negative means unlimited; 0 means DefaultMaxAdjacencyEntries.
	MaxEntries int64
}

func (o *ProximityOptions) applyDefaults() {
	if o.Strategy == "" {
		o.Strategy = StrategyAuto
	}
	if o.Metric == nil {
		o.Metric = EuclideanMetric{}
	}
	if o.LeafSize <= 0 {
		o.LeafSize = 40
	}
	if o.Workers <= 0 {
		o.Workers = runtime.NumCPU()
	}
	if o.MaxEntries == 0 {
		o.MaxEntries = DefaultMaxAdjacencyEntries
	}
}

// flattenCoordinates validates that every coordinate has the same
// dimensionality and returns them flat and row-major.
func flattenCoordinates(coords [][]float64) ([]float64, int, error) {
	if len(coords) == 0 {
		return nil, 0, configErrorf("coordinates", 0, "at least one unit is required")
	}
	dims := len(coords[0])
	if dims == 0 {
		return nil, 0, configErrorf("coordinates", coords[0], "coordinates must have at least one dimension")
	}
	flat := make([]float64, len(coords)*dims)
	for i, c := range coords {
		if len(c) != dims {
			return nil, 0, configErrorf("coordinates", i, "unit %d has %d dimensions, unit 0 has %d", i, len(c), dims)
		}
		copy(flat[i*dims:], c)
	}
	return flat, dims, nil
}

// SpatialProximity returns the symmetric units×units matrix whose entry
// (i, j) is true iff the distance between units i and j is <= threshold.
// Every unit is adjacent to itself. A matrix with more than opts.MaxEntries
// true entries fails with a ResourceError as soon as the scan finds them.
func SpatialProximity(coords [][]float64, threshold float64, opts ProximityOptions) (*CSR, error) {
	opts.applyDefaults()
	if err := validateMetric(opts.Metric); err != nil {
		return nil, err
	}
	flat, dims, err := flattenCoordinates(coords)
	if err != nil {
		return nil, err
	}
	n := len(coords)

	var budget *entryBudget
	if opts.MaxEntries > 0 {
		budget = &entryBudget{limit: opts.MaxEntries}
	}
	m, err := spatialProximity(flat, n, dims, threshold, opts, budget)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, &ResourceError{Op: "spatial proximity", Nodes: n, Entries: budget.count(), Limit: opts.MaxEntries}
	}
	return m, nil
}

// spatialProximity builds the spatial matrix from flat coordinates. It
// returns a nil matrix when budget is exceeded.
func spatialProximity(flat []float64, n, dims int, threshold float64, opts ProximityOptions, budget *entryBudget) (*CSR, error) {
	if threshold < 0 || math.IsNaN(threshold) {
		return nil, configErrorf("threshold_space", threshold, "must be >= 0")
	}
	strategy, err := selectStrategy(opts.Strategy, opts.Metric, n, dims)
	if err != nil {
		return nil, err
	}

	// Self-loops.
	if !budget.add(n) {
		return nil, nil
	}
	var neighbors [][]int
	switch strategy {
	case StrategyKDTree:
		tree := NewKDTree(flat, n, dims, opts.Metric, opts.LeafSize)
		neighbors = kdTreeNeighborsParallel(tree, flat, threshold, opts.Workers, budget)
	default:
		neighbors = denseNeighborsParallel(flat, n, dims, opts.Metric, threshold, opts.Workers, budget)
	}
	if budget.exceeded() {
		return nil, nil
	}

	b := NewAdjacencyBuilder(n)
	for i := 0; i < n; i++ {
		b.Set(i, i)
	}
	for i, row := range neighbors {
		for _, j := range row {
			b.Set(i, j)
			b.Set(j, i)
		}
	}
	return b.Build(), nil
}

// estimateSpaceTimeEntries returns the number of true entries of the
// space-time matrix before it is built, or -1 on overflow. With spatialNNZ 0
// it counts the temporal bands alone.
func estimateSpaceTimeEntries(spatialNNZ, nUnits, nTimesteps, thresholdTimesteps int) int64 {
	nodes := int64(nUnits) * int64(nTimesteps)
	if nTimesteps != 0 && nodes/int64(nTimesteps) != int64(nUnits) {
		return -1
	}
	entries := int64(spatialNNZ) * int64(nTimesteps)
	for k := 1; k <= thresholdTimesteps && k < nTimesteps; k++ {
		entries += 2 * int64(nUnits) * int64(nTimesteps-k)
	}
	if entries < 0 {
		return -1
	}
	return entries
}

// spaceTimeBudget converts a limit on space-time entries into a limit on
// spatial entries: the spatial matrix is tiled nTimesteps times on top of
// the temporal bands. A negative maxEntries is unlimited.
func spaceTimeBudget(maxEntries, temporal int64, nTimesteps int) *entryBudget {
	if maxEntries < 0 {
		return nil
	}
	room := maxEntries - temporal
	if room < 0 {
		return &entryBudget{limit: -1}
	}
	return &entryBudget{limit: room / int64(nTimesteps)}
}

// SpaceTimeProximity returns the proximity matrix over grid nodes
// (unit, timestep), indexed by NodeIndex. Two nodes are adjacent iff they
// share a timestep and their units are within thresholdSpace, or they share
// a unit and are at most thresholdTimesteps apart in time.
//
// The spatial matrix is tiled on the diagonal once per timestep, then the
// bands at ±k*nUnits (k = 1..thresholdTimesteps) encode temporal proximity.
// The size limit is enforced while the spatial neighbors are collected, so
// an oversized matrix is rejected before it is allocated.
func SpaceTimeProximity(coords [][]float64, nTimesteps int, thresholdSpace float64, thresholdTimesteps int, opts ProximityOptions) (*CSR, error) {
	opts.applyDefaults()
	if nTimesteps <= 0 {
		return nil, configErrorf("n_timesteps", nTimesteps, "must be > 0")
	}
	if thresholdTimesteps < 0 {
		return nil, configErrorf("threshold_timesteps", thresholdTimesteps, "must be >= 0")
	}
	if err := validateMetric(opts.Metric); err != nil {
		return nil, err
	}
	flat, dims, err := flattenCoordinates(coords)
	if err != nil {
		return nil, err
	}

	nUnits := len(coords)
	temporal := estimateSpaceTimeEntries(0, nUnits, nTimesteps, thresholdTimesteps)
	if temporal < 0 || int64(nUnits)*int64(nTimesteps) > math.MaxInt32 {
		return nil, &ResourceError{Op: "space-time proximity", Nodes: nUnits * nTimesteps, Entries: -1}
	}

	budget := spaceTimeBudget(opts.MaxEntries, temporal, nTimesteps)
	spatial, err := spatialProximity(flat, nUnits, dims, thresholdSpace, opts, budget)
	if err != nil {
		return nil, err
	}
	if spatial == nil {
		// The spatial entries found so far already push the total past the limit.
		return nil, &ResourceError{
			Op:      "space-time proximity",
			Nodes:   nUnits * nTimesteps,
			Entries: budget.count()*int64(nTimesteps) + temporal,
			Limit:   opts.MaxEntries,
		}
	}

	b := NewAdjacencyBuilder(nUnits * nTimesteps)
	b.TileDiagonal(spatial, nTimesteps)
	for k := 1; k <= thresholdTimesteps && k < nTimesteps; k++ {
		b.SetDiagonalBand(k * nUnits)
		b.SetDiagonalBand(-k * nUnits)
	}
	return b.Build(), nil
}
