package cbpt

import (
	"errors"
	"math/rand"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var threeUnits = [][]float64{{0, 0}, {0, 1}, {5, 5}}

func randomCoords(rng *rand.Rand, n, dims int, scale float64) [][]float64 {
	coords := make([][]float64, n)
	for i := range coords {
		coords[i] = make([]float64, dims)
		for d := range coords[i] {
			coords[i][d] = rng.Float64() * scale
		}
	}
	return coords
}

func requireSymmetricWithSelfLoops(t *testing.T, m SparseAdjacency) {
	t.Helper()
	for i := 0; i < m.Rows(); i++ {
		require.True(t, m.Has(i, i), "node %d not adjacent to itself", i)
		for _, j := range m.Row(i) {
			require.True(t, m.Has(j, i), "(%d,%d) set but (%d,%d) not", i, j, j, i)
		}
	}
}

func TestSpatialProximity_ThreeUnits(t *testing.T) {
	m, err := SpatialProximity(threeUnits, 1.5, ProximityOptions{})
	require.NoError(t, err)

	want := [][]bool{
		{true, true, false},
		{true, true, false},
		{false, false, true},
	}
	assert.Equal(t, want, denseOf(m))
}

func TestSpatialProximity_DenseEqualsKDTree(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	coords := randomCoords(rng, 400, 2, 30)

	for _, metric := range []DistanceMetric{EuclideanMetric{}, ManhattanMetric{}, ChebyshevMetric{}} {
		dense, err := SpatialProximity(coords, 2.5, ProximityOptions{Strategy: StrategyDense, Metric: metric, Workers: 3})
		require.NoError(t, err)
		kd, err := SpatialProximity(coords, 2.5, ProximityOptions{Strategy: StrategyKDTree, Metric: metric, LeafSize: 7, Workers: 2})
		require.NoError(t, err)

		assert.Equal(t, dense.indptr, kd.indptr, "%T", metric)
		assert.Equal(t, dense.indices, kd.indices, "%T", metric)
		requireSymmetricWithSelfLoops(t, dense)
	}
}

func TestSpatialProximity_ZeroThresholdOnlySelf(t *testing.T) {
	m, err := SpatialProximity(threeUnits, 0, ProximityOptions{})
	require.NoError(t, err)
	assert.Equal(t, 3, m.NNZ())
}

func TestSpatialProximity_CustomMetricKeepsSymmetryAndSelf(t *testing.T) {
	// An asymmetric "distance" that is never zero.
	f := DistanceFunc(func(a, b []float64) float64 { return 1 + a[0] - b[0] })
	m, err := SpatialProximity([][]float64{{0}, {1}, {2}}, 1, ProximityOptions{Metric: f, Strategy: StrategyDense})
	require.NoError(t, err)
	requireSymmetricWithSelfLoops(t, m)
}

func TestSpatialProximity_InvalidInputs(t *testing.T) {
	var cfgErr *ConfigError

	_, err := SpatialProximity(threeUnits, -1, ProximityOptions{})
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "threshold_space", cfgErr.Param)

	_, err = SpatialProximity(nil, 1, ProximityOptions{})
	require.True(t, errors.As(err, &cfgErr))

	_, err = SpatialProximity([][]float64{{0, 0}, {1}}, 1, ProximityOptions{})
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "coordinates", cfgErr.Param)
}

func TestSpaceTimeProximity_ThreeUnitsTwoTimesteps(t *testing.T) {
	m, err := SpaceTimeProximity(threeUnits, 2, 1.5, 1, ProximityOptions{})
	require.NoError(t, err)
	require.Equal(t, 6, m.Rows())
	requireSymmetricWithSelfLoops(t, m)

	// Nodes: 0=u0t0 1=u1t0 2=u2t0 3=u0t1 4=u1t1 5=u2t1
	want := [][]bool{
		{true, true, false, true, false, false},
		{true, true, false, false, true, false},
		{false, false, true, false, false, true},
		{true, false, false, true, true, false},
		{false, true, false, true, true, false},
		{false, false, true, false, false, true},
	}
	assert.Equal(t, want, denseOf(m))
}

func TestSpaceTimeProximity_TemporalWindow(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	coords := randomCoords(rng, 7, 2, 10)
	nT := 6

	for _, window := range []int{0, 1, 2, 5, 9} {
		m, err := SpaceTimeProximity(coords, nT, 3, window, ProximityOptions{})
		require.NoError(t, err)
		requireSymmetricWithSelfLoops(t, m)

		for u := 0; u < len(coords); u++ {
			for t1 := 0; t1 < nT; t1++ {
				for t2 := 0; t2 < nT; t2++ {
					d := t1 - t2
					if d < 0 {
						d = -d
					}
					got := m.Has(NodeIndex(u, t1, len(coords)), NodeIndex(u, t2, len(coords)))
					assert.Equal(t, d <= window, got, "window=%d unit=%d t1=%d t2=%d", window, u, t1, t2)
				}
			}
		}
	}
}

func TestSpaceTimeProximity_NoCrossUnitCrossTimeEdges(t *testing.T) {
	m, err := SpaceTimeProximity(threeUnits, 3, 1.5, 2, ProximityOptions{})
	require.NoError(t, err)

	for i := 0; i < m.Rows(); i++ {
		ui, ti := NodeUnitTimestep(i, 3)
		for _, j := range m.Row(i) {
			uj, tj := NodeUnitTimestep(j, 3)
			assert.True(t, ui == uj || ti == tj, "edge (%d,%d) joins different unit and timestep", i, j)
		}
	}
}

func TestSpaceTimeProximity_ResourceLimit(t *testing.T) {
	_, err := SpaceTimeProximity(threeUnits, 100, 1.5, 1, ProximityOptions{MaxEntries: 10})

	var resErr *ResourceError
	require.True(t, errors.As(err, &resErr))
	assert.Equal(t, 300, resErr.Nodes)
	assert.Equal(t, int64(10), resErr.Limit)
	assert.Greater(t, resErr.Entries, int64(10))
}

func TestSpaceTimeProximity_UnlimitedWhenNegative(t *testing.T) {
	m, err := SpaceTimeProximity(threeUnits, 100, 1.5, 1, ProximityOptions{MaxEntries: -1})
	require.NoError(t, err)
	assert.Equal(t, 300, m.Rows())
}

func TestEstimateSpaceTimeEntries_MatchesBuild(t *testing.T) {
	spatial, err := SpatialProximity(threeUnits, 1.5, ProximityOptions{})
	require.NoError(t, err)
	m, err := SpaceTimeProximity(threeUnits, 4, 1.5, 2, ProximityOptions{})
	require.NoError(t, err)

	assert.Equal(t, int64(m.NNZ()), estimateSpaceTimeEntries(spatial.NNZ(), 3, 4, 2))
}

func TestSpaceTimeProximity_InvalidArguments(t *testing.T) {
	var cfgErr *ConfigError

	_, err := SpaceTimeProximity(threeUnits, 0, 1, 1, ProximityOptions{})
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "n_timesteps", cfgErr.Param)

	_, err = SpaceTimeProximity(threeUnits, 2, 1, -1, ProximityOptions{})
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "threshold_timesteps", cfgErr.Param)
}

func TestSpaceTimeProximity_RejectsBeforeQuadraticAllocation(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	coords := randomCoords(rng, 4000, 2, 100)

	for _, strategy := range []SpatialStrategy{StrategyDense, StrategyKDTree} {
		t.Run(string(strategy), func(t *testing.T) {
			opts := ProximityOptions{Strategy: strategy, Workers: 4, MaxEntries: 100_000}

			var before, after runtime.MemStats
			runtime.GC()
			runtime.ReadMemStats(&before)
			_, err := SpaceTimeProximity(coords, 2, 1e9, 0, opts)
			runtime.ReadMemStats(&after)

			var resErr *ResourceError
			require.True(t, errors.As(err, &resErr), "got %v", err)
			assert.Equal(t, int64(100_000), resErr.Limit)
			assert.Greater(t, resErr.Entries, int64(100_000))
			// The full matrix would hold 32 million entries.
			assert.Less(t, after.TotalAlloc-before.TotalAlloc, uint64(64<<20))
		})
	}
}

func TestSpaceTimeProximity_LimitIsExact(t *testing.T) {
	full, err := SpaceTimeProximity(threeUnits, 4, 1.5, 2, ProximityOptions{MaxEntries: -1})
	require.NoError(t, err)
	nnz := int64(full.NNZ())

	_, err = SpaceTimeProximity(threeUnits, 4, 1.5, 2, ProximityOptions{MaxEntries: nnz})
	require.NoError(t, err)

	_, err = SpaceTimeProximity(threeUnits, 4, 1.5, 2, ProximityOptions{MaxEntries: nnz - 1})
	var resErr *ResourceError
	require.True(t, errors.As(err, &resErr), "got %v", err)
	assert.GreaterOrEqual(t, resErr.Entries, nnz)
}

func TestSpatialProximity_ResourceLimit(t *testing.T) {
	_, err := SpatialProximity(threeUnits, 1.5, ProximityOptions{MaxEntries: 4})
	var resErr *ResourceError
	require.True(t, errors.As(err, &resErr), "got %v", err)
	assert.Equal(t, 3, resErr.Nodes)
	assert.Greater(t, resErr.Entries, int64(4))

	m, err := SpatialProximity(threeUnits, 1.5, ProximityOptions{MaxEntries: 5})
	require.NoError(t, err)
	assert.Equal(t, 5, m.NNZ())
}

func TestProximity_RejectsInvalidMinkowski(t *testing.T) {
	opts := ProximityOptions{Metric: MinkowskiMetric{P: 0.5}, Workers: 4}
	var cfgErr *ConfigError

	_, err := SpatialProximity(threeUnits, 1.5, opts)
	require.True(t, errors.As(err, &cfgErr), "got %v", err)
	assert.Equal(t, "metric", cfgErr.Param)

	_, err = SpaceTimeProximity(threeUnits, 2, 1.5, 1, opts)
	require.True(t, errors.As(err, &cfgErr), "got %v", err)
	assert.Equal(t, "metric", cfgErr.Param)
}
