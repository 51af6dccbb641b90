package cbpt

import (
	"math"
	"slices"
)

// CriticalValue returns the (1-alpha) quantile of the null distribution: the
// element at 1-based rank ceil((1-alpha)*n) of the sorted values, clamped to
// [1, n]. null is not modified.
func CriticalValue(null []float64, alpha float64) (float64, error) {
	if len(null) == 0 {
		return 0, configErrorf("iterations", 0, "null distribution is empty")
	}
	if !(alpha > 0 && alpha < 1) {
		return 0, configErrorf("significance_level", alpha, "must be in (0, 1)")
	}

	sorted := slices.Clone(null)
	slices.Sort(sorted)

	return sorted[criticalRank(len(sorted), alpha)-1], nil
}

// criticalRank returns ceil((1-alpha)*n), clamped to [1, n], computed as
// n - floor(alpha*n). alpha*n is snapped to the nearest integer only when it
// lies within a few ulps below it, so a decimal alpha such as 0.05 keeps its
// exact rank at any n.
func criticalRank(n int, alpha float64) int {
	an := alpha * float64(n)
	k := math.Floor(an)
	if r := math.Round(an); r > an && r-an <= 4*ulpScale*an {
		k = r
	}
	return max(1, min(n-int(k), n))
}

// ulpScale is the relative spacing of float64 values.
const ulpScale = 0x1p-52

// SignificantClusters returns the IDs of clusters whose |Statistic| is
// strictly greater than critical.
func SignificantClusters(clusters []Cluster, critical float64) []int {
	var ids []int
	for _, c := range clusters {
		if math.Abs(c.Statistic) > critical {
			ids = append(ids, c.ID)
		}
	}
	return ids
}

// ClusterPValue returns the Monte-Carlo p-value of a cluster statistic
// against the null distribution of maximum cluster statistics:
// (1 + #{null >= |stat|}) / (1 + len(null)).
func ClusterPValue(stat float64, null []float64) float64 {
	abs := math.Abs(stat)
	exceed := 0
	for _, v := range null {
		if v >= abs {
			exceed++
		}
	}
	return float64(1+exceed) / float64(1+len(null))
}
