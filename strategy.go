package cbpt

// kdTreeMinUnits is the unit count above which the auto strategy prefers
// the KD-tree; below it the dense scan is faster.
const kdTreeMinUnits = 256

// kdTreeMaxDims is the dimensionality above which KD-tree pruning degrades
// and the dense scan is used instead.
const kdTreeMaxDims = 60

// KDTreeValidMetric reports whether the metric supports KD-tree acceleration.
// KD-trees require metrics that decompose along coordinate axes:
// Euclidean, Manhattan, Chebyshev, Minkowski.
func KDTreeValidMetric(m DistanceMetric) bool {
	switch m.(type) {
	case EuclideanMetric, ManhattanMetric, ChebyshevMetric, MinkowskiMetric:
		return true
	default:
		return false
	}
}

// selectStrategy resolves StrategyAuto into a concrete spatial strategy
// based on the metric, the unit count and the dimensionality, and rejects a
// forced KD-tree with a metric it cannot index.
func selectStrategy(strategy SpatialStrategy, metric DistanceMetric, nUnits, dims int) (SpatialStrategy, error) {
	switch strategy {
	case StrategyAuto:
		if KDTreeValidMetric(metric) && nUnits > kdTreeMinUnits && dims <= kdTreeMaxDims {
			return StrategyKDTree, nil
		}
		return StrategyDense, nil
	case StrategyKDTree:
		if !KDTreeValidMetric(metric) {
			return "", configErrorf("spatial_strategy", strategy, "metric %T is not supported by the KD-tree", metric)
		}
		return StrategyKDTree, nil
	case StrategyDense:
		return StrategyDense, nil
	default:
		return "", configErrorf("spatial_strategy", strategy, "must be %q, %q or %q", StrategyAuto, StrategyDense, StrategyKDTree)
	}
}
