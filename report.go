package cbpt

import "math"

// GridNode is one member of a significant cluster, located on the grid.
type GridNode struct {
	Cluster   int
	Unit      int
	Timestep  int
	Statistic float64
}

// SignificantNodes lists every node of every significant cluster, in
// cluster order and ascending node order within a cluster.
func (r *Result) SignificantNodes() []GridNode {
	var out []GridNode
	for _, id := range r.Significant {
		for _, idx := range r.Clusters[id].Nodes {
			u, t := NodeUnitTimestep(idx, r.NUnits)
			out = append(out, GridNode{Cluster: id, Unit: u, Timestep: t, Statistic: r.Statistic[idx]})
		}
	}
	return out
}

// SignificantUnitMap collapses significant nodes onto units: entry u is the
// statistic of unit u's significant node with the largest magnitude, or 0
// when unit u is in no significant cluster.
func (r *Result) SignificantUnitMap() []float64 {
	m := make([]float64, r.NUnits)
	for _, n := range r.SignificantNodes() {
		if math.Abs(n.Statistic) > math.Abs(m[n.Unit]) {
			m[n.Unit] = n.Statistic
		}
	}
	return m
}
