package dataloader

import (
	"math/rand"
	"time"
)

// Worker is the per-goroutine state of a loader worker. Rand is the only
// source of randomness datasets see while the worker reads batches.
type Worker struct {
	ID   int
	Seed int64
	Rand *rand.Rand
}

// WorkerInitFunc runs once when a worker starts, before it reads anything.
type WorkerInitFunc func(w *Worker)

// WorkerSeed returns the seed of worker workerID on the given rank. Every
// (rank, workerID) pair of a run maps to its own seed.
func WorkerSeed(numWorkers, rank, workerID int, seed int64) int64 {
	return int64(numWorkers*rank+workerID) + seed
}

// SeedWorkers returns a WorkerInitFunc that seeds each worker with
// WorkerSeed(numWorkers, rank, w.ID, seed).
func SeedWorkers(numWorkers, rank int, seed int64) WorkerInitFunc {
	return func(w *Worker) {
		w.Seed = WorkerSeed(numWorkers, rank, w.ID, seed)
		w.Rand = rand.New(rand.NewSource(w.Seed))
	}
}

// newWorker builds worker id, time seeded unless init overrides it.
func newWorker(id int, init WorkerInitFunc) *Worker {
	seed := time.Now().UnixNano() + int64(id)
	w := &Worker{ID: id, Seed: seed, Rand: rand.New(rand.NewSource(seed))}
	if init != nil {
		init(w)
	}
	return w
}

// SeedValue returns a pointer to v, for Runtime.Seed.
func SeedValue(v int64) *int64 { return &v }
