// Package cbpt implements the cluster-based permutation test (CBPT) for
// comparing two groups of spatio-temporal recordings (sensor × time).
//
// Each grid node (unit, timestep) is scored by a pointwise test. Nodes whose
// p-value survives a threshold are grouped into clusters of nodes adjacent
// in space or time, and each cluster is summarized by the sum of its
// members' statistics. Shuffling the group labels many times yields a null
// distribution of the largest cluster statistic; observed clusters beyond
// its (1-alpha) quantile are significant with the family-wise error rate
// controlled.
//
// Basic usage:
//
//	ds, labels, err := cbpt.StackGroups(groupA, groupB) // [sample][unit][timestep]
//	cfg := cbpt.DefaultConfig()
//	cfg.ThresholdSpace = 1.5
//	cfg.MasterSeed = 42
//	result, err := cbpt.Run(ctx, ds, labels, coordinates, cfg)
//	// result.Clusters[id].Nodes are node indices; see NodeUnitTimestep.
//	// result.Significant lists the ids beyond result.CriticalValue.
//
// # Reproducibility
//
// Permutation i is drawn from a generator seeded by IterationSeed(MasterSeed, i),
// so the null distribution is identical for any BatchSize or Workers.
//
// # Proximity
//
// The space-time proximity matrix is built once and shared read-only by
// every permutation. Spatial neighbors come from a dense pairwise scan or a
// KD-tree radius query; Config.SpatialStrategy forces one:
//
//	cfg.SpatialStrategy = cbpt.StrategyDense
//	cfg.SpatialStrategy = cbpt.StrategyKDTree
package cbpt
