package cbpt

import (
	"slices"
	"sync"
	"sync/atomic"
)

// forEachRowRange splits rows 0..n-1 into contiguous ranges, one per worker,
// and calls fn on each range concurrently. Since ranges don't overlap, fn
// may write per-row results without synchronization. Falls back to a single
// call when numWorkers <= 1.
func forEachRowRange(n, numWorkers int, fn func(start, end int)) {
	if numWorkers <= 1 || n <= 1 {
		fn(0, n)
		return
	}

	var wg sync.WaitGroup
	rowsPerWorker := (n + numWorkers - 1) / numWorkers

	for w := 0; w < numWorkers; w++ {
		startRow := w * rowsPerWorker
		endRow := min(startRow+rowsPerWorker, n)
		if startRow >= n {
			break
		}

		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			fn(start, end)
		}(startRow, endRow)
	}

	wg.Wait()
}

// entryBudget caps the number of adjacency entries found across all
// workers. A nil budget is unlimited.
type entryBudget struct {
	limit int64
	found atomic.Int64
}

// add records n more entries and reports whether the total is still within
// the limit.
func (b *entryBudget) add(n int) bool {
	if b == nil {
		return true
	}
	return b.found.Add(int64(n)) <= b.limit
}

func (b *entryBudget) exceeded() bool {
	return b != nil && b.found.Load() > b.limit
}

func (b *entryBudget) count() int64 {
	if b == nil {
		return 0
	}
	return b.found.Load()
}

// denseNeighborsParallel returns, for each unit i, the ascending units j > i
// with metric.Distance(i, j) <= threshold. data is flat row-major with n rows
// and dims columns. Only the upper triangle is computed; the caller mirrors it.
// Each pair found is charged twice against budget, and workers stop early
// once it is exceeded; the result is then incomplete.
func denseNeighborsParallel(data []float64, n, dims int, metric DistanceMetric, threshold float64, numWorkers int, budget *entryBudget) [][]int {
	upper := make([][]int, n)
	forEachRowRange(n, numWorkers, func(start, end int) {
		for i := start; i < end; i++ {
			if budget.exceeded() {
				return
			}
			a := data[i*dims : (i+1)*dims]
			for j := i + 1; j < n; j++ {
				if metric.Distance(a, data[j*dims:(j+1)*dims]) <= threshold {
					upper[i] = append(upper[i], j)
				}
			}
			if !budget.add(2 * len(upper[i])) {
				return
			}
		}
	})
	return upper
}

// kdTreeNeighborsParallel answers one radius query per indexed point,
// spreading the queries over numWorkers goroutines. data holds the indexed
// points, flat row-major. The index is read-only during queries. Every
// neighbor other than the point itself is charged against budget.
func kdTreeNeighborsParallel(idx RadiusIndex, data []float64, threshold float64, numWorkers int, budget *entryBudget) [][]int {
	n, dims := idx.NumPoints(), idx.NumFeatures()
	neighbors := make([][]int, n)
	forEachRowRange(n, numWorkers, func(start, end int) {
		for i := start; i < end; i++ {
			if budget.exceeded() {
				return
			}
			row := idx.QueryRadius(data[i*dims:(i+1)*dims], threshold)
			neighbors[i] = row
			self := 0
			if _, ok := slices.BinarySearch(row, i); ok {
				self = 1
			}
			if !budget.add(len(row) - self) {
				return
			}
		}
	})
	return neighbors
}
