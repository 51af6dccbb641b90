package cbpt

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// AggregationPolicy chooses how member statistics combine into a cluster
// statistic.
type AggregationPolicy string

const (
	// AggregateSum sums the signed member statistics.
	AggregateSum AggregationPolicy = "sum"
	// AggregateAbsSum sums the absolute member statistics, so members of
	// opposite sign do not cancel.
	AggregateAbsSum AggregationPolicy = "abs-sum"
)

// Cluster is a maximal connected set of surviving grid nodes.
type Cluster struct {
	// ID is the cluster's position in canonical order (by smallest node).
	ID int
	// Nodes are the member node indices, ascending.
	Nodes []int
	// Statistic is the aggregate of the members' pointwise statistics.
	Statistic float64
}

// FormClusters finds the connected components of sub, a square adjacency
// over len(values) local nodes, and aggregates values per component.
// Clusters are returned in canonical order: sorted by smallest member, with
// members ascending and IDs 0..n-1. Node indices are local to sub.
func FormClusters(values []float64, sub SparseAdjacency, policy AggregationPolicy) []Cluster {
	n := len(values)
	if n == 0 {
		return nil
	}

	uf := NewUnionFind(n)
	for i := 0; i < n; i++ {
		for _, j := range sub.Row(i) {
			if j > i {
				uf.Union(i, j)
			}
		}
	}

	// Visiting nodes in ascending order assigns IDs by smallest member and
	// appends members in ascending order.
	clusterOf := make(map[int]int, uf.Sets())
	clusters := make([]Cluster, 0, uf.Sets())
	for i := 0; i < n; i++ {
		root := uf.Find(i)
		id, ok := clusterOf[root]
		if !ok {
			id = len(clusters)
			clusterOf[root] = id
			clusters = append(clusters, Cluster{ID: id, Nodes: make([]int, 0, uf.SetSize(root))})
		}
		clusters[id].Nodes = append(clusters[id].Nodes, i)
	}

	member := make([]float64, 0, n)
	for c := range clusters {
		member = member[:0]
		for _, i := range clusters[c].Nodes {
			v := values[i]
			if policy == AggregateAbsSum {
				v = math.Abs(v)
			}
			member = append(member, v)
		}
		clusters[c].Statistic = floats.Sum(member)
	}
	return clusters
}

// ClusterNodes clusters the surviving nodes of a full proximity matrix.
// surviving must be ascending; the returned clusters hold global node
// indices and keep the canonical order of FormClusters.
func ClusterNodes(stat []float64, surviving []int, adj SparseAdjacency, policy AggregationPolicy) []Cluster {
	if len(surviving) == 0 {
		return nil
	}
	values := make([]float64, len(surviving))
	for k, idx := range surviving {
		values[k] = stat[idx]
	}
	clusters := FormClusters(values, adj.SubSelect(surviving, surviving), policy)
	for c := range clusters {
		for k, local := range clusters[c].Nodes {
			clusters[c].Nodes[k] = surviving[local]
		}
	}
	return clusters
}

// maxAbsStatistic returns the largest |Statistic| among clusters, or 0 when
// there are none.
func maxAbsStatistic(clusters []Cluster) float64 {
	var m float64
	for _, c := range clusters {
		m = math.Max(m, math.Abs(c.Statistic))
	}
	return m
}
