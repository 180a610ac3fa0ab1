package dataloader

import (
	"errors"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"
)

// rangeDataset returns input {i} and label {2i} for example i.
type rangeDataset struct{ n int }

func (d rangeDataset) Len() int { return d.n }

func (d rangeDataset) Example(i int) ([]float32, []float32, error) {
	return []float32{float32(i)}, []float32{float32(2 * i)}, nil
}

// noisyDataset adds a draw from the worker generator to every input.
type noisyDataset struct{ rangeDataset }

func (d noisyDataset) Augment(in, _ []float32, rng *rand.Rand) {
	in[0] += rng.Float32()
}

// bulkDataset reads through Batch and augments; it counts which read path
// the loader used.
type bulkDataset struct {
	rangeDataset
	batches  atomic.Int64
	examples atomic.Int64
}

func (d *bulkDataset) Example(i int) ([]float32, []float32, error) {
	d.examples.Add(1)
	return d.rangeDataset.Example(i)
}

func (d *bulkDataset) Batch(indices []int) ([][]float32, [][]float32, error) {
	d.batches.Add(1)
	in := make([][]float32, len(indices))
	la := make([][]float32, len(indices))
	for i, idx := range indices {
		in[i], la[i], _ = d.rangeDataset.Example(idx)
	}
	return in, la, nil
}

func (d *bulkDataset) Augment(in, _ []float32, _ *rand.Rand) {
	in[0] += 0.5
}

var errBroken = errors.New("broken example")

// brokenDataset fails on example bad.
type brokenDataset struct {
	rangeDataset
	bad int
}

func (d brokenDataset) Example(i int) ([]float32, []float32, error) {
	if i == d.bad {
		return nil, nil, errBroken
	}
	return d.rangeDataset.Example(i)
}

type batchCounter struct {
	mu     sync.Mutex
	phases map[string]int
}

func (c *batchCounter) DatasetCreated(string) {}

func (c *batchCounter) BatchLoaded(phase string, _ time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phases == nil {
		c.phases = map[string]int{}
	}
	c.phases[phase]++
}

// fixedSampler visits the same indices every epoch.
type fixedSampler []int

func (s fixedSampler) Indices(int) []int { return append([]int(nil), s...) }
func (s fixedSampler) Len() int          { return len(s) }
