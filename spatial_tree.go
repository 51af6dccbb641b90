package cbpt

// NodeData describes a single node in a spatial tree.
type NodeData struct {
	IdxStart, IdxEnd int
	IsLeaf           bool
}

// RadiusIndex is the read interface of a spatial index used to build
// spatial proximity without computing every pairwise distance.
type RadiusIndex interface {
	// QueryRadius returns the ascending indices of all points whose distance
	// to query is <= r under the index's metric.
	QueryRadius(query []float64, r float64) []int

	// NumPoints returns the number of indexed points.
	NumPoints() int

	// NumFeatures returns the dimensionality of each point.
	NumFeatures() int
}
