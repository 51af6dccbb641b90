package cbpt

// Dataset holds Samples recordings, each shaped Units × Timesteps, in a
// flat sample-major array: Values[(s*Units+u)*Timesteps+t].
type Dataset struct {
	Samples   int
	Units     int
	Timesteps int
	Values    []float64
}

// NewDataset copies samples[s][u][t] into a Dataset. Every sample must have
// the same shape.
func NewDataset(samples [][][]float64) (*Dataset, error) {
	if len(samples) == 0 {
		return nil, configErrorf("samples", 0, "at least one sample is required")
	}
	units := len(samples[0])
	if units == 0 {
		return nil, configErrorf("samples", 0, "sample 0 has no units")
	}
	timesteps := len(samples[0][0])
	if timesteps == 0 {
		return nil, configErrorf("samples", 0, "sample 0 has no timesteps")
	}

	ds := &Dataset{
		Samples:   len(samples),
		Units:     units,
		Timesteps: timesteps,
		Values:    make([]float64, len(samples)*units*timesteps),
	}
	for s, sample := range samples {
		if len(sample) != units {
			return nil, configErrorf("samples", s, "sample %d has %d units, want %d", s, len(sample), units)
		}
		for u, series := range sample {
			if len(series) != timesteps {
				return nil, configErrorf("samples", s, "sample %d unit %d has %d timesteps, want %d", s, u, len(series), timesteps)
			}
			copy(ds.Values[(s*units+u)*timesteps:], series)
		}
	}
	return ds, nil
}

// StackGroups concatenates two groups of samples into one Dataset and
// returns the matching label vector: 0 for groupA, 1 for groupB.
func StackGroups(groupA, groupB [][][]float64) (*Dataset, []int, error) {
	all := make([][][]float64, 0, len(groupA)+len(groupB))
	all = append(all, groupA...)
	all = append(all, groupB...)
	ds, err := NewDataset(all)
	if err != nil {
		return nil, nil, err
	}
	labels := make([]int, len(all))
	for i := len(groupA); i < len(labels); i++ {
		labels[i] = 1
	}
	return ds, labels, nil
}

// At returns the value of sample s at unit u, timestep t.
func (d *Dataset) At(s, u, t int) float64 {
	return d.Values[(s*d.Units+u)*d.Timesteps+t]
}

// Nodes returns the number of grid nodes, Units*Timesteps.
func (d *Dataset) Nodes() int { return d.Units * d.Timesteps }

func (d *Dataset) validate() error {
	if d == nil {
		return configErrorf("dataset", nil, "dataset is required")
	}
	if d.Samples <= 0 || d.Units <= 0 || d.Timesteps <= 0 {
		return configErrorf("dataset", [3]int{d.Samples, d.Units, d.Timesteps}, "shape must be positive")
	}
	if len(d.Values) != d.Samples*d.Units*d.Timesteps {
		return configErrorf("dataset", len(d.Values), "has %d values, shape %d×%d×%d needs %d",
			len(d.Values), d.Samples, d.Units, d.Timesteps, d.Samples*d.Units*d.Timesteps)
	}
	return nil
}

// NodeIndex returns the linear index of grid node (unit, timestep). All
// grids in this package (proximity rows, scores, clusters) use this order:
// unit varies fastest.
func NodeIndex(unit, timestep, nUnits int) int {
	return unit + timestep*nUnits
}

// NodeUnitTimestep inverts NodeIndex.
func NodeUnitTimestep(idx, nUnits int) (unit, timestep int) {
	return idx % nUnits, idx / nUnits
}
