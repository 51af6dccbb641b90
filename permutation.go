package cbpt

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// IterationSeed derives the RNG seed of one permutation from the master
// seed and the iteration index alone, so any split of iterations across
// workers draws the same permutations.
func IterationSeed(master uint64, iteration int) uint64 {
	return splitmix64(master + (uint64(iteration)+1)*0x9e3779b97f4a7c15)
}

// splitmix64 is the SplitMix64 output function.
func splitmix64(z uint64) uint64 {
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

// PermuteLabels writes a uniformly random permutation of labels into dst,
// determined by (master, iteration). Group sizes are preserved.
func PermuteLabels(dst, labels []int, master uint64, iteration int) {
	copy(dst, labels)
	rng := rand.New(rand.NewPCG(IterationSeed(master, iteration), master))
	rng.Shuffle(len(dst), func(i, j int) { dst[i], dst[j] = dst[j], dst[i] })
}

// Engine runs the score → threshold → cluster pipeline on one dataset and
// one proximity matrix, for the observed labels and for permutations of
// them. An Engine is read-only after construction and safe for concurrent
// use.
type Engine struct {
	cfg    Config
	ds     *Dataset
	labels []int
	adj    SparseAdjacency
	log    log.FieldLogger
}

// NewEngine validates cfg and the inputs and returns an Engine reusing a
// precomputed proximity matrix. adj must be square with ds.Nodes() rows in
// NodeIndex order.
func NewEngine(ds *Dataset, labels []int, adj SparseAdjacency, cfg Config) (*Engine, error) {
	applyDefaults(&cfg)
	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	if err := validateInputs(ds, labels); err != nil {
		return nil, err
	}
	if adj == nil || adj.Rows() != ds.Nodes() || adj.Cols() != ds.Nodes() {
		var shape [2]int
		if adj != nil {
			shape = [2]int{adj.Rows(), adj.Cols()}
		}
		return nil, configErrorf("proximity", shape, "must be %d×%d to match the dataset grid", ds.Nodes(), ds.Nodes())
	}
	return &Engine{
		cfg:    cfg,
		ds:     ds,
		labels: labels,
		adj:    adj,
		log:    cfg.Logger,
	}, nil
}

func validateInputs(ds *Dataset, labels []int) error {
	if err := ds.validate(); err != nil {
		return err
	}
	if len(labels) != ds.Samples {
		return configErrorf("labels", len(labels), "need one label per sample (%d)", ds.Samples)
	}
	for i, l := range labels {
		if l != 0 && l != 1 {
			return configErrorf("labels", l, "label %d must be 0 or 1", i)
		}
	}
	return nil
}

// observation is the output of one pipeline pass.
type observation struct {
	stat     []float64
	p        []float64
	clusters []Cluster
}

// pipeline scores the dataset under labels, thresholds and clusters it.
func (e *Engine) pipeline(labels []int, iteration int) (*observation, error) {
	stat, p, err := e.cfg.Scorer.Score(e.ds, labels)
	if err != nil {
		return nil, &ComputationError{Op: "score", Iteration: iteration, Err: err}
	}
	nodes := e.ds.Nodes()
	if len(stat) != nodes || len(p) != nodes {
		return nil, &ComputationError{
			Op:        "score",
			Iteration: iteration,
			Err:       fmt.Errorf("scorer returned %d statistics and %d p-values for %d nodes", len(stat), len(p), nodes),
		}
	}

	surviving := Threshold(p, e.cfg.PValueThreshold)
	surviving = FilterMinMagnitude(surviving, stat, e.cfg.MinMagnitude)
	surviving = FilterMinRunLength(surviving, e.ds.Units, e.ds.Timesteps, e.cfg.MinClusterSize)

	return &observation{
		stat:     stat,
		p:        p,
		clusters: ClusterNodes(stat, surviving, e.adj, e.cfg.AggregationPolicy),
	}, nil
}

// Observe runs the pipeline once with the true labels.
func (e *Engine) Observe() ([]Cluster, error) {
	obs, err := e.pipeline(e.labels, ObservedIteration)
	if err != nil {
		return nil, err
	}
	return obs.clusters, nil
}

// NullDistribution returns, for each of cfg.Iterations label permutations,
// the maximum |cluster statistic| (0 when no cluster survives). Iterations
// run in batches of cfg.BatchSize on up to cfg.Workers goroutines. Entry i
// depends only on (MasterSeed, i), so the result is identical for any batch
// size, worker count or scheduling. The first error aborts the run and no
// partial distribution is returned.
func (e *Engine) NullDistribution(ctx context.Context) ([]float64, error) {
	iterations := e.cfg.Iterations
	batchSize := e.cfg.BatchSize
	batches := (iterations + batchSize - 1) / batchSize
	null := make([]float64, iterations)

	e.log.WithFields(log.Fields{
		"iterations": iterations,
		"batches":    batches,
		"workers":    e.cfg.Workers,
	}).Debug("starting permutations")

	var (
		mu   sync.Mutex
		done int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Workers)

	for start := 0; start < iterations; start += batchSize {
		if gctx.Err() != nil {
			break
		}
		end := min(start+batchSize, iterations)
		g.Go(func() error {
			perm := make([]int, len(e.labels))
			for i := start; i < end; i++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				PermuteLabels(perm, e.labels, e.cfg.MasterSeed, i)
				obs, err := e.pipeline(perm, i)
				if err != nil {
					return err
				}
				null[i] = maxAbsStatistic(obs.clusters)
			}

			mu.Lock()
			defer mu.Unlock()
			done += end - start
			e.log.WithFields(log.Fields{"done": done, "total": iterations}).Debug("permutation batch finished")
			if e.cfg.Progress != nil {
				e.cfg.Progress(done, iterations)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	// Wait can succeed if the parent context was cancelled before any batch
	// started; that is still an incomplete distribution.
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("cbpt: permutations cancelled: %w", err)
	}
	return null, nil
}
