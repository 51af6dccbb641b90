package cbpt

import (
	"math"
	"slices"
	"sort"
)

// rdistSlack widens the pruning radius by a relative epsilon so rounding in
// the bounding-box lower bound never prunes a point the exact distance test
// would accept.
const rdistSlack = 1e-9

// KDTree is a KD-tree over unit coordinates, answering the radius queries
// used by the kd-tree proximity strategy. Points are stored in a flat
// row-major array and reordered internally via an index permutation array.
//
// The tree is stored as a complete binary tree in array form:
//   - node i has children at 2*i+1 and 2*i+2
//   - node bounds are stored as min/max per dimension per node
type KDTree struct {
	data     []float64 // flat row-major point data (n * dims)
	n        int
	dims     int
	leafSize int
	metric   DistanceMetric
	idxArray []int // permutation: tree-order position → original index
	nodes    []NodeData
	// nodeBoundsMin[node*dims + j] = min value of feature j in node
	nodeBoundsMin []float64
	// nodeBoundsMax[node*dims + j] = max value of feature j in node
	nodeBoundsMax []float64
}

var _ RadiusIndex = (*KDTree)(nil)

// NewKDTree builds a KD-tree from flat row-major data with n points of
// dimensionality dims. leafSize controls the max points per leaf node.
// metric must satisfy KDTreeValidMetric.
func NewKDTree(data []float64, n, dims int, metric DistanceMetric, leafSize int) *KDTree {
	if leafSize < 1 {
		leafSize = 1
	}

	dataCopy := make([]float64, len(data))
	copy(dataCopy, data)
	idxArray := make([]int, n)
	for i := range idxArray {
		idxArray[i] = i
	}

	maxNodes := kdMaxNodes(n, leafSize)
	t := &KDTree{
		data:          dataCopy,
		n:             n,
		dims:          dims,
		leafSize:      leafSize,
		metric:        metric,
		idxArray:      idxArray,
		nodes:         make([]NodeData, maxNodes),
		nodeBoundsMin: make([]float64, maxNodes*dims),
		nodeBoundsMax: make([]float64, maxNodes*dims),
	}
	if n > 0 {
		t.buildNode(0, 0, n)
	}
	return t
}

// kdMaxNodes returns an upper bound on the number of nodes needed for a
// binary tree with n points and the given leaf size.
func kdMaxNodes(n, leafSize int) int {
	if n == 0 {
		return 1
	}
	leaves := (n + leafSize - 1) / leafSize
	depth := 0
	for v := 1; v < leaves; v *= 2 {
		depth++
	}
	return (1 << (depth + 1)) - 1 + 2
}

// buildNode recursively builds the tree for points in idxArray[start:end].
func (t *KDTree) buildNode(nodeID, start, end int) {
	for nodeID >= len(t.nodes) {
		t.nodes = append(t.nodes, NodeData{})
		t.nodeBoundsMin = append(t.nodeBoundsMin, make([]float64, t.dims)...)
		t.nodeBoundsMax = append(t.nodeBoundsMax, make([]float64, t.dims)...)
	}

	t.computeNodeBounds(nodeID, start, end)

	count := end - start
	if count <= t.leafSize {
		t.nodes[nodeID] = NodeData{IdxStart: start, IdxEnd: end, IsLeaf: true}
		return
	}

	// Split on the dimension with greatest spread, at the median.
	splitDim := 0
	maxSpread := -1.0
	for d := 0; d < t.dims; d++ {
		spread := t.nodeBoundsMax[nodeID*t.dims+d] - t.nodeBoundsMin[nodeID*t.dims+d]
		if spread > maxSpread {
			maxSpread = spread
			splitDim = d
		}
	}
	t.sortByDimension(start, end, splitDim)
	mid := start + count/2

	t.nodes[nodeID] = NodeData{IdxStart: start, IdxEnd: end}
	t.buildNode(2*nodeID+1, start, mid)
	t.buildNode(2*nodeID+2, mid, end)
}

func (t *KDTree) computeNodeBounds(nodeID, start, end int) {
	base := nodeID * t.dims
	for d := 0; d < t.dims; d++ {
		t.nodeBoundsMin[base+d] = math.Inf(1)
		t.nodeBoundsMax[base+d] = math.Inf(-1)
	}
	for i := start; i < end; i++ {
		pt := t.point(t.idxArray[i])
		for d, v := range pt {
			t.nodeBoundsMin[base+d] = math.Min(t.nodeBoundsMin[base+d], v)
			t.nodeBoundsMax[base+d] = math.Max(t.nodeBoundsMax[base+d], v)
		}
	}
}

// sortByDimension sorts idxArray[start:end] by the given dimension. The sort
// is stable so equal coordinates keep a deterministic layout.
func (t *KDTree) sortByDimension(start, end, dim int) {
	sub := t.idxArray[start:end]
	dims := t.dims
	data := t.data
	sort.SliceStable(sub, func(i, j int) bool {
		return data[sub[i]*dims+dim] < data[sub[j]*dims+dim]
	})
}

func (t *KDTree) point(idx int) []float64 {
	return t.data[idx*t.dims : (idx+1)*t.dims]
}

func (t *KDTree) NumPoints() int   { return t.n }
func (t *KDTree) NumFeatures() int { return t.dims }

// QueryRadius returns the ascending original indices of every point within
// distance r of query. The acceptance test is metric.Distance(query, p) <= r,
// exactly the test the dense strategy applies.
func (t *KDTree) QueryRadius(query []float64, r float64) []int {
	if t.n == 0 {
		return nil
	}
	rr := t.metric.DistToRdist(r)
	bound := rr + rdistSlack*math.Max(rr, 1)
	var out []int
	t.radiusSearch(0, query, r, bound, &out)
	slices.Sort(out)
	return out
}

func (t *KDTree) radiusSearch(nodeID int, query []float64, r, bound float64, out *[]int) {
	if nodeID >= len(t.nodes) {
		return
	}
	if t.minRdistPoint(nodeID, query) > bound {
		return
	}
	node := t.nodes[nodeID]
	if node.IsLeaf {
		for i := node.IdxStart; i < node.IdxEnd; i++ {
			ptIdx := t.idxArray[i]
			if t.metric.Distance(query, t.point(ptIdx)) <= r {
				*out = append(*out, ptIdx)
			}
		}
		return
	}
	t.radiusSearch(2*nodeID+1, query, r, bound, out)
	t.radiusSearch(2*nodeID+2, query, r, bound, out)
}

// minRdistPoint returns a lower bound in reduced-distance space on the
// distance between point and any point inside the node's bounding box.
func (t *KDTree) minRdistPoint(node int, point []float64) float64 {
	base := node * t.dims
	gap := func(j int) float64 {
		lo := t.nodeBoundsMin[base+j]
		hi := t.nodeBoundsMax[base+j]
		switch {
		case point[j] < lo:
			return lo - point[j]
		case point[j] > hi:
			return point[j] - hi
		}
		return 0
	}

	var rdist float64
	switch m := t.metric.(type) {
	case ChebyshevMetric:
		for j := 0; j < t.dims; j++ {
			rdist = math.Max(rdist, gap(j))
		}
	case EuclideanMetric:
		for j := 0; j < t.dims; j++ {
			d := gap(j)
			rdist += d * d
		}
	case MinkowskiMetric:
		for j := 0; j < t.dims; j++ {
			rdist += math.Pow(gap(j), m.P)
		}
	default:
		// Manhattan: reduced distance is the distance itself.
		for j := 0; j < t.dims; j++ {
			rdist += gap(j)
		}
	}
	return rdist
}
