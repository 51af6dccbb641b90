package cbpt

import (
	"errors"
	"testing"
)

func TestSelectStrategyAuto(t *testing.T) {
	tests := []struct {
		name     string
		metric   DistanceMetric
		units    int
		dims     int
		expected SpatialStrategy
	}{
		{
			name:     "few units → dense",
			metric:   EuclideanMetric{},
			units:    100,
			dims:     2,
			expected: StrategyDense,
		},
		{
			name:     "many euclidean units → kdtree",
			metric:   EuclideanMetric{},
			units:    1000,
			dims:     3,
			expected: StrategyKDTree,
		},
		{
			name:     "many units, dim=61 → dense",
			metric:   EuclideanMetric{},
			units:    1000,
			dims:     61,
			expected: StrategyDense,
		},
		{
			name:     "chebyshev many units → kdtree",
			metric:   ChebyshevMetric{},
			units:    5000,
			dims:     2,
			expected: StrategyKDTree,
		},
		{
			name:     "custom DistanceFunc → dense",
			metric:   DistanceFunc(func(a, b []float64) float64 { return 0 }),
			units:    5000,
			dims:     2,
			expected: StrategyDense,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := selectStrategy(StrategyAuto, tc.metric, tc.units, tc.dims)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.expected {
				t.Errorf("expected %q, got %q", tc.expected, got)
			}
		})
	}
}

func TestSelectStrategy_ForcedKDTreeRejectsCustomMetric(t *testing.T) {
	_, err := selectStrategy(StrategyKDTree, DistanceFunc(func(a, b []float64) float64 { return 0 }), 10, 2)
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected *ConfigError, got %v", err)
	}
	if cfgErr.Param != "spatial_strategy" {
		t.Errorf("Param = %q, want spatial_strategy", cfgErr.Param)
	}
}

func TestSelectStrategy_Unknown(t *testing.T) {
	if _, err := selectStrategy("octree", EuclideanMetric{}, 10, 2); err == nil {
		t.Error("expected error for unknown strategy")
	}
}

func TestKDTreeValidMetric(t *testing.T) {
	for _, m := range []DistanceMetric{EuclideanMetric{}, ManhattanMetric{}, ChebyshevMetric{}, MinkowskiMetric{P: 3}} {
		if !KDTreeValidMetric(m) {
			t.Errorf("%T should be KD-tree valid", m)
		}
	}
	if KDTreeValidMetric(DistanceFunc(func(a, b []float64) float64 { return 0 })) {
		t.Error("DistanceFunc should not be KD-tree valid")
	}
}
