package cbpt

import "math"

// Threshold returns the ascending node indices whose p-value is <= alpha.
// NaN p-values never survive.
func Threshold(p []float64, alpha float64) []int {
	var surviving []int
	for i, v := range p {
		if v <= alpha {
			surviving = append(surviving, i)
		}
	}
	return surviving
}

// FilterMinRunLength drops surviving nodes whose run of consecutive
// surviving timesteps, for the same unit, is shorter than minRun. surviving
// must be ascending; the result is ascending. minRun <= 1 keeps everything.
func FilterMinRunLength(surviving []int, nUnits, nTimesteps, minRun int) []int {
	if minRun <= 1 || len(surviving) == 0 {
		return surviving
	}

	alive := make([]bool, nUnits*nTimesteps)
	for _, idx := range surviving {
		alive[idx] = true
	}

	// runLen[idx] is the length of the temporal run that contains idx.
	runLen := make([]int, nUnits*nTimesteps)
	for u := 0; u < nUnits; u++ {
		t := 0
		for t < nTimesteps {
			if !alive[NodeIndex(u, t, nUnits)] {
				t++
				continue
			}
			start := t
			for t < nTimesteps && alive[NodeIndex(u, t, nUnits)] {
				t++
			}
			for k := start; k < t; k++ {
				runLen[NodeIndex(u, k, nUnits)] = t - start
			}
		}
	}

	kept := make([]int, 0, len(surviving))
	for _, idx := range surviving {
		if runLen[idx] >= minRun {
			kept = append(kept, idx)
		}
	}
	return kept
}

// FilterMinMagnitude drops surviving nodes whose |stat| is below minAbs.
// minAbs <= 0 keeps everything.
func FilterMinMagnitude(surviving []int, stat []float64, minAbs float64) []int {
	if minAbs <= 0 {
		return surviving
	}
	kept := make([]int, 0, len(surviving))
	for _, idx := range surviving {
		if math.Abs(stat[idx]) >= minAbs {
			kept = append(kept, idx)
		}
	}
	return kept
}
