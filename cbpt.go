package cbpt

import (
	"context"
	"math"
	"runtime"

	log "github.com/sirupsen/logrus"
)

// Config controls a cluster-based permutation test.
// Start with [DefaultConfig] and override the fields you need.
type Config struct {
	// PValueThreshold is the pointwise p-value at or below which a grid node
	// survives into clustering. Must be in (0, 1). Default: 0.05.
	PValueThreshold float64 `json:"p_value_threshold"`

	// SignificanceLevel is the family-wise alpha used to pick the critical
	// value from the null distribution. Must be in (0, 1).
	// 0 means use PValueThreshold.
	SignificanceLevel float64 `json:"significance_level,omitempty"`

	// ThresholdSpace is the spatial radius within which units are adjacent.
	// Must be >= 0. Default: 1.0.
	ThresholdSpace float64 `json:"threshold_space"`

	// ThresholdTimesteps is how many timesteps apart a unit is still adjacent
	// to itself. Must be >= 0. Default: 1.
	ThresholdTimesteps int `json:"threshold_timesteps"`

	// Iterations is the number of label permutations. Must be > 0.
	// Default: 1000.
	Iterations int `json:"iterations"`

	// BatchSize is the number of permutations per worker task. Results do
	// not depend on it. 0 means 20.
	BatchSize int `json:"batch_size,omitempty"`

	// Workers bounds the goroutines used for proximity construction and
	// permutations. 0 means runtime.NumCPU().
	Workers int `json:"workers,omitempty"`

	// MasterSeed determines every permutation. Equal seeds give equal null
	// distributions.
	MasterSeed uint64 `json:"master_seed"`

	// AggregationPolicy is "sum" (signed) or "abs-sum". Default: "sum".
	AggregationPolicy AggregationPolicy `json:"aggregation_policy,omitempty"`

	// MinClusterSize, when > 1, drops surviving nodes whose run of
	// consecutive surviving timesteps is shorter than this before
	// clustering. 0 disables the filter. Must be >= 0.
	MinClusterSize int `json:"min_cluster_size,omitempty"`

	// MinMagnitude, when > 0, additionally requires |statistic| >= MinMagnitude
	// for a node to survive. 0 disables the filter. Must be >= 0.
	MinMagnitude float64 `json:"min_magnitude,omitempty"`

	// SpatialStrategy is "auto", "dense" or "kdtree". Default: "auto".
	SpatialStrategy SpatialStrategy `json:"spatial_strategy,omitempty"`

	// LeafSize is the KD-tree leaf size. Default: 40.
	LeafSize int `json:"leaf_size,omitempty"`

	// MaxAdjacencyEntries caps the proximity matrix size; construction fails
	// with a ResourceError beyond it. 0 means DefaultMaxAdjacencyEntries,
	// negative means unlimited.
	MaxAdjacencyEntries int64 `json:"max_adjacency_entries,omitempty"`

	// Metric measures spatial distance. Default: EuclideanMetric.
	Metric DistanceMetric `json:"-"`

	// Scorer computes pointwise statistics. Default: DefaultScorer.
	Scorer Scorer `json:"-"`

	// Logger receives debug diagnostics. Default: warnings only.
	Logger log.FieldLogger `json:"-"`

	// Progress, if set, is called after each permutation batch with the
	// number of finished and total iterations. Calls are serialized.
	Progress func(done, total int) `json:"-"`
}

// Result contains the output of a cluster-based permutation test.
type Result struct {
	// Clusters are the observed clusters in canonical order.
	Clusters []Cluster

	// Statistic and PValues are the observed pointwise scores, indexed by
	// NodeIndex.
	Statistic []float64
	PValues   []float64

	// NullDistribution holds the maximum |cluster statistic| of each
	// permutation, indexed by iteration.
	NullDistribution []float64

	// CriticalValue is the (1 - SignificanceLevel) quantile of the null.
	CriticalValue float64

	// Significant lists the IDs of clusters with |Statistic| > CriticalValue.
	Significant []int

	// ClusterPValues holds the Monte-Carlo p-value of each cluster, by ID.
	ClusterPValues []float64

	NUnits     int
	NTimesteps int
}

// DefaultConfig returns a Config with reasonable defaults.
func DefaultConfig() Config {
	return Config{
		PValueThreshold:    0.05,
		ThresholdSpace:     1.0,
		ThresholdTimesteps: 1,
		Iterations:         1000,
		BatchSize:          20,
		AggregationPolicy:  AggregateSum,
		SpatialStrategy:    StrategyAuto,
		LeafSize:           40,
		Metric:             EuclideanMetric{},
		Scorer:             DefaultScorer,
	}
}

// applyDefaults fills in zero-valued config fields with their defaults.
func applyDefaults(cfg *Config) {
	if cfg.SignificanceLevel == 0 {
		cfg.SignificanceLevel = cfg.PValueThreshold
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 20
	}
	if cfg.Workers == 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.AggregationPolicy == "" {
		cfg.AggregationPolicy = AggregateSum
	}
	if cfg.SpatialStrategy == "" {
		cfg.SpatialStrategy = StrategyAuto
	}
	if cfg.LeafSize == 0 {
		cfg.LeafSize = 40
	}
	if cfg.MaxAdjacencyEntries == 0 {
		cfg.MaxAdjacencyEntries = DefaultMaxAdjacencyEntries
	}
	if cfg.Metric == nil {
		cfg.Metric = EuclideanMetric{}
	}
	if cfg.Scorer == nil {
		cfg.Scorer = DefaultScorer
	}
	if cfg.Logger == nil {
		cfg.Logger = defaultLogger
	}
}

func inUnitInterval(v float64) bool { return v > 0 && v < 1 }

// validateConfig checks that cfg fields are valid and returns a *ConfigError
// naming the offending parameter if not.
func validateConfig(cfg *Config) error {
	if !inUnitInterval(cfg.PValueThreshold) {
		return configErrorf("p_value_threshold", cfg.PValueThreshold, "must be in (0, 1)")
	}
	if !inUnitInterval(cfg.SignificanceLevel) {
		return configErrorf("significance_level", cfg.SignificanceLevel, "must be in (0, 1)")
	}
	if cfg.ThresholdSpace < 0 || math.IsNaN(cfg.ThresholdSpace) {
		return configErrorf("threshold_space", cfg.ThresholdSpace, "must be >= 0")
	}
	if cfg.ThresholdTimesteps < 0 {
		return configErrorf("threshold_timesteps", cfg.ThresholdTimesteps, "must be >= 0")
	}
	if cfg.Iterations <= 0 {
		return configErrorf("iterations", cfg.Iterations, "must be > 0")
	}
	if cfg.BatchSize < 1 {
		return configErrorf("batch_size", cfg.BatchSize, "must be >= 1 (0 means default)")
	}
	if cfg.Workers < 1 {
		return configErrorf("workers", cfg.Workers, "must be >= 1 (0 means runtime.NumCPU())")
	}
	switch cfg.AggregationPolicy {
	case AggregateSum, AggregateAbsSum:
	default:
		return configErrorf("aggregation_policy", cfg.AggregationPolicy, "must be %q or %q", AggregateSum, AggregateAbsSum)
	}
	if cfg.MinClusterSize < 0 {
		return configErrorf("min_cluster_size", cfg.MinClusterSize, "must be >= 0")
	}
	if cfg.MinMagnitude < 0 || math.IsNaN(cfg.MinMagnitude) {
		return configErrorf("min_magnitude", cfg.MinMagnitude, "must be >= 0")
	}
	switch cfg.SpatialStrategy {
	case StrategyAuto, StrategyDense, StrategyKDTree:
	default:
		return configErrorf("spatial_strategy", cfg.SpatialStrategy, "must be %q, %q or %q", StrategyAuto, StrategyDense, StrategyKDTree)
	}
	if cfg.LeafSize < 1 {
		return configErrorf("leaf_size", cfg.LeafSize, "must be >= 1")
	}
	return validateMetric(cfg.Metric)
}

func (cfg *Config) proximityOptions() ProximityOptions {
	return ProximityOptions{
		Strategy:   cfg.SpatialStrategy,
		Metric:     cfg.Metric,
		LeafSize:   cfg.LeafSize,
		Workers:    cfg.Workers,
		MaxEntries: cfg.MaxAdjacencyEntries,
	}
}

// Run performs a cluster-based permutation test. ds holds both groups and
// labels assigns each sample to group 0 or 1. coords holds one spatial
// point per unit. The proximity matrix is built once, then the observed
// labels and cfg.Iterations permutations are clustered against it.
func Run(ctx context.Context, ds *Dataset, labels []int, coords [][]float64, cfg Config) (*Result, error) {
	applyDefaults(&cfg)
	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	if err := validateInputs(ds, labels); err != nil {
		return nil, err
	}
	if len(coords) != ds.Units {
		return nil, configErrorf("coordinates", len(coords), "need one coordinate per unit (%d)", ds.Units)
	}

	adj, err := SpaceTimeProximity(coords, ds.Timesteps, cfg.ThresholdSpace, cfg.ThresholdTimesteps, cfg.proximityOptions())
	if err != nil {
		return nil, err
	}
	cfg.Logger.WithFields(log.Fields{
		"nodes":    adj.Rows(),
		"entries":  adj.NNZ(),
		"strategy": cfg.SpatialStrategy,
	}).Debug("built space-time proximity")

	e, err := NewEngine(ds, labels, adj, cfg)
	if err != nil {
		return nil, err
	}
	return e.Run(ctx)
}

// Run clusters the observed labels, builds the null distribution and
// evaluates significance.
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	obs, err := e.pipeline(e.labels, ObservedIteration)
	if err != nil {
		return nil, err
	}
	e.log.WithField("clusters", len(obs.clusters)).Debug("clustered observed labels")

	null, err := e.NullDistribution(ctx)
	if err != nil {
		return nil, err
	}

	critical, err := CriticalValue(null, e.cfg.SignificanceLevel)
	if err != nil {
		return nil, err
	}
	significant := SignificantClusters(obs.clusters, critical)
	e.log.WithFields(log.Fields{
		"critical_value": critical,
		"significant":    len(significant),
	}).Debug("evaluated significance")

	pvals := make([]float64, len(obs.clusters))
	for i, c := range obs.clusters {
		pvals[i] = ClusterPValue(c.Statistic, null)
	}

	return &Result{
		Clusters:         obs.clusters,
		Statistic:        obs.stat,
		PValues:          obs.p,
		NullDistribution: null,
		CriticalValue:    critical,
		Significant:      significant,
		ClusterPValues:   pvals,
		NUnits:           e.ds.Units,
		NTimesteps:       e.ds.Timesteps,
	}, nil
}
