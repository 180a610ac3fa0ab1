package dataloader

import (
	"context"
	"io"

	"github.com/Noofbiz/datapipe/datasets"
)

// PrefetchLoader reads batches from a Loader on a background goroutine and
// keeps up to QueueDepth of them ready. It yields the same batches in the
// same order as the Loader it wraps.
type PrefetchLoader struct {
	inner *Loader
	depth int

	cancel context.CancelFunc
	done   chan struct{}
	queue  chan result
	err    error
	closed bool
}

// NewPrefetchLoader builds a Loader from cfg and wraps it with a queue of
// the given depth. A depth below 1 is treated as 1.
func NewPrefetchLoader(ds datasets.Dataset, cfg Config, depth int) (*PrefetchLoader, error) {
	inner, err := NewLoader(ds, cfg)
	if err != nil {
		return nil, err
	}
	if depth < 1 {
		depth = 1
	}
	return &PrefetchLoader{inner: inner, depth: depth}, nil
}

// Loader returns the wrapped loader.
func (p *PrefetchLoader) Loader() *Loader { return p.inner }

// QueueDepth returns the number of batches read ahead.
func (p *PrefetchLoader) QueueDepth() int { return p.depth }

// Len returns the number of batches per epoch.
func (p *PrefetchLoader) Len() int { return p.inner.Len() }

// Next returns the next prefetched batch.
func (p *PrefetchLoader) Next(ctx context.Context) (datasets.Batch, error) {
	if p.closed {
		return datasets.Batch{}, ErrClosed
	}
	if p.err != nil {
		return datasets.Batch{}, p.err
	}
	if p.queue == nil {
		p.start()
	}
	select {
	case r, ok := <-p.queue:
		if !ok {
			p.err = io.EOF
			return datasets.Batch{}, io.EOF
		}
		if r.err != nil {
			p.err = r.err
			return datasets.Batch{}, r.err
		}
		return r.batch, nil
	case <-ctx.Done():
		return datasets.Batch{}, ctx.Err()
	}
}

// Reset stops the reader and rewinds the wrapped loader.
func (p *PrefetchLoader) Reset() {
	p.stop()
	p.inner.Reset()
	p.err = nil
}

// Close stops the reader and closes the wrapped loader.
func (p *PrefetchLoader) Close() error {
	p.stop()
	p.closed = true
	return p.inner.Close()
}

func (p *PrefetchLoader) start() {
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan struct{})
	p.queue = make(chan result, p.depth)
	go p.fill(ctx, p.queue, p.done)
}

// fill stops after the first error, io.EOF included.
func (p *PrefetchLoader) fill(ctx context.Context, queue chan<- result, done chan<- struct{}) {
	defer close(done)
	defer close(queue)
	for {
		b, err := p.inner.Next(ctx)
		if err == io.EOF {
			return
		}
		select {
		case queue <- result{batch: b, err: err}:
		case <-ctx.Done():
			return
		}
		if err != nil {
			return
		}
	}
}

func (p *PrefetchLoader) stop() {
	if p.cancel == nil {
		return
	}
	p.cancel()
	<-p.done
	p.cancel = nil
	p.done = nil
	p.queue = nil
}
