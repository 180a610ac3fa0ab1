// Package dataloader builds batched, optionally parallel and prefetched
// iterators over datasets.
//
// Create picks the batching policy from the dataset's phase: training
// batches are shuffled (unless a Sampler is supplied), sized per device and
// read by worker goroutines; val and test read one example at a time, in
// order, on the caller's goroutine.
package dataloader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Noofbiz/datapipe/datasets"
	"github.com/Noofbiz/datapipe/metrics"
)

// ErrClosed is returned by Next after Close.
var ErrClosed = errors.New("loader closed")

// workerBuffer is the number of finished batches a worker may hold before
// the consumer takes them.
const workerBuffer = 2

// Iterator yields the batches of one epoch at a time. Next returns io.EOF
// at the end of an epoch and keeps doing so until Reset.
type Iterator interface {
	Next(ctx context.Context) (datasets.Batch, error)
	Reset()
	// Len is the number of batches per epoch.
	Len() int
	Close() error
}

// Config holds the arguments a Loader is built from.
type Config struct {
	BatchSize  int
	Shuffle    bool
	NumWorkers int
	DropLast   bool
	PinMemory  bool
	Sampler    Sampler
	WorkerInit WorkerInitFunc
	// Seed seeds the shuffling generator. Nil seeds it from the clock.
	Seed *int64
	// Phase labels metrics.
	Phase   string
	Metrics metrics.Recorder
}

// Loader batches a dataset. Batch k of an epoch is read by worker
// k % NumWorkers and batches are always returned in order. With zero
// workers batches are read synchronously inside Next.
//
// A Loader is not safe for concurrent use.
type Loader struct {
	ds      datasets.Dataset
	cfg     Config
	rng     *rand.Rand
	metrics metrics.Recorder

	epoch  int
	cur    *epochRun
	closed bool
}

type result struct {
	batch datasets.Batch
	err   error
	dur   time.Duration
}

type epochRun struct {
	batches [][]int
	next    int
	err     error

	// worker mode
	cancel context.CancelFunc
	g      *errgroup.Group
	outs   []chan result

	// synchronous mode
	main *Worker
}

// NewLoader validates cfg and returns a loader positioned before its
// first epoch.
func NewLoader(ds datasets.Dataset, cfg Config) (*Loader, error) {
	if ds == nil {
		return nil, fmt.Errorf("%w: dataset is nil", ErrInvalidOptions)
	}
	if cfg.BatchSize < 1 {
		return nil, fmt.Errorf("%w: batch size must be >= 1, got %d", ErrInvalidOptions, cfg.BatchSize)
	}
	if cfg.NumWorkers < 0 {
		return nil, fmt.Errorf("%w: num workers must be >= 0, got %d", ErrInvalidOptions, cfg.NumWorkers)
	}
	if cfg.Sampler != nil && cfg.Shuffle {
		return nil, fmt.Errorf("%w: sampler is mutually exclusive with shuffle", ErrInvalidOptions)
	}
	seed := time.Now().UnixNano()
	if cfg.Seed != nil {
		seed = *cfg.Seed
	}
	return &Loader{
		ds:      ds,
		cfg:     cfg,
		rng:     rand.New(rand.NewSource(seed)),
		metrics: metrics.OrNop(cfg.Metrics),
	}, nil
}

// Config returns the loader's configuration.
func (l *Loader) Config() Config { return l.cfg }

// BatchSize returns the number of examples per batch.
func (l *Loader) BatchSize() int { return l.cfg.BatchSize }

// NumWorkers returns the number of worker goroutines, 0 for synchronous reads.
func (l *Loader) NumWorkers() int { return l.cfg.NumWorkers }

// Shuffle reports whether each epoch visits the dataset in a new random order.
func (l *Loader) Shuffle() bool { return l.cfg.Shuffle }

// DropLast reports whether a trailing partial batch is discarded.
func (l *Loader) DropLast() bool { return l.cfg.DropLast }

// PinMemory reports whether batches are marked Pinned.
func (l *Loader) PinMemory() bool { return l.cfg.PinMemory }

// Sampler returns the configured sampler, or nil.
func (l *Loader) Sampler() Sampler { return l.cfg.Sampler }

// Dataset returns the wrapped dataset.
func (l *Loader) Dataset() datasets.Dataset { return l.ds }

// Epoch returns the number of epochs started so far.
func (l *Loader) Epoch() int { return l.epoch }

// Len returns the number of batches per epoch.
func (l *Loader) Len() int {
	n := l.ds.Len()
	if l.cfg.Sampler != nil {
		n = l.cfg.Sampler.Len()
	}
	if l.cfg.DropLast {
		return n / l.cfg.BatchSize
	}
	return (n + l.cfg.BatchSize - 1) / l.cfg.BatchSize
}

// Next returns the next batch of the current epoch, starting an epoch when
// none is running.
func (l *Loader) Next(ctx context.Context) (datasets.Batch, error) {
	if l.closed {
		return datasets.Batch{}, ErrClosed
	}
	if l.cur == nil {
		l.cur = l.start()
	}
	e := l.cur
	if e.err != nil {
		return datasets.Batch{}, e.err
	}
	if e.next >= len(e.batches) {
		return datasets.Batch{}, io.EOF
	}

	var res result
	if e.main != nil {
		if err := ctx.Err(); err != nil {
			return datasets.Batch{}, err
		}
		start := time.Now()
		res.batch, res.err = datasets.LoadBatch(l.ds, e.batches[e.next], e.main.Rand)
		res.dur = time.Since(start)
	} else {
		select {
		case r, ok := <-e.outs[e.next%len(e.outs)]:
			if !ok {
				r.err = fmt.Errorf("worker %d exited early", e.next%len(e.outs))
			}
			res = r
		case <-ctx.Done():
			return datasets.Batch{}, ctx.Err()
		}
	}
	if res.err != nil {
		e.err = fmt.Errorf("load batch %d: %w", e.next, res.err)
		e.stop()
		return datasets.Batch{}, e.err
	}
	e.next++
	res.batch.Pinned = l.cfg.PinMemory
	l.metrics.BatchLoaded(l.cfg.Phase, res.dur)
	return res.batch, nil
}

// Reset abandons the current epoch. The next call to Next starts a new one.
func (l *Loader) Reset() {
	if l.cur != nil {
		l.cur.stop()
		l.cur = nil
	}
}

// Close stops any running workers. Next returns ErrClosed afterwards.
func (l *Loader) Close() error {
	l.Reset()
	l.closed = true
	return nil
}

func (l *Loader) start() *epochRun {
	e := &epochRun{batches: l.split(l.indices(l.epoch))}
	l.epoch++

	if l.cfg.NumWorkers == 0 {
		e.main = newWorker(0, l.cfg.WorkerInit)
		return e
	}

	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	e.g = &errgroup.Group{}
	e.outs = make([]chan result, l.cfg.NumWorkers)
	for id := range e.outs {
		out := make(chan result, workerBuffer)
		e.outs[id] = out
		e.g.Go(func() error {
			return l.work(ctx, id, e.batches, out)
		})
	}
	return e
}

// work reads batches id, id+n, id+2n, ... of the epoch.
func (l *Loader) work(ctx context.Context, id int, batches [][]int, out chan<- result) error {
	defer close(out)
	w := newWorker(id, l.cfg.WorkerInit)
	for k := id; k < len(batches); k += l.cfg.NumWorkers {
		start := time.Now()
		b, err := datasets.LoadBatch(l.ds, batches[k], w.Rand)
		select {
		case out <- result{batch: b, err: err, dur: time.Since(start)}:
		case <-ctx.Done():
			return ctx.Err()
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (l *Loader) indices(epoch int) []int {
	if l.cfg.Sampler != nil {
		return l.cfg.Sampler.Indices(epoch)
	}
	n := l.ds.Len()
	if l.cfg.Shuffle {
		return l.rng.Perm(n)
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return idx
}

func (l *Loader) split(indices []int) [][]int {
	bs := l.cfg.BatchSize
	batches := make([][]int, 0, len(indices)/bs+1)
	for start := 0; start < len(indices); start += bs {
		end := start + bs
		if end > len(indices) {
			if l.cfg.DropLast {
				break
			}
			end = len(indices)
		}
		batches = append(batches, indices[start:end])
	}
	return batches
}

// stop cancels the workers and waits for them. Errors were already
// delivered in order through Next.
func (e *epochRun) stop() {
	if e.cancel == nil {
		return
	}
	e.cancel()
	_ = e.g.Wait()
	e.cancel = nil
}
