package dataloader

import (
	"context"
	"errors"
	"io"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Noofbiz/datapipe/datasets"
)

// drain reads one epoch and returns the dataset indices of every batch.
func drain(t *testing.T, it Iterator) [][]int {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	var out [][]int
	for {
		b, err := it.Next(ctx)
		if err == io.EOF {
			return out
		}
		require.NoError(t, err)
		out = append(out, b.Indices)
	}
}

func TestLoaderOrderAnyWorkerCount(t *testing.T) {
	want := [][]int{{0, 1, 2}, {3, 4, 5}, {6, 7, 8}, {9, 10, 11}, {12}}
	for workers := range 7 {
		l, err := NewLoader(rangeDataset{n: 13}, Config{BatchSize: 3, NumWorkers: workers})
		require.NoError(t, err)
		assert.Equal(t, want, drain(t, l), "workers=%d", workers)
		assert.Equal(t, 5, l.Len())
		require.NoError(t, l.Close())
	}
}

func TestLoaderBatchContents(t *testing.T) {
	l, err := NewLoader(rangeDataset{n: 4}, Config{BatchSize: 2, NumWorkers: 2, PinMemory: true})
	require.NoError(t, err)
	defer l.Close()

	b, err := l.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{0}, {1}}, b.Inputs)
	assert.Equal(t, [][]float32{{0}, {2}}, b.Labels)
	assert.True(t, b.Pinned)
	assert.Equal(t, 2, b.Size())
}

func TestLoaderDropLast(t *testing.T) {
	l, err := NewLoader(rangeDataset{n: 13}, Config{BatchSize: 3, NumWorkers: 2, DropLast: true})
	require.NoError(t, err)
	defer l.Close()
	got := drain(t, l)
	assert.Len(t, got, 4)
	assert.Equal(t, 4, l.Len())
	for _, b := range got {
		assert.Len(t, b, 3)
	}
}

func TestLoaderEOFIsStickyUntilReset(t *testing.T) {
	l, err := NewLoader(rangeDataset{n: 2}, Config{BatchSize: 2})
	require.NoError(t, err)
	defer l.Close()
	ctx := context.Background()

	_, err = l.Next(ctx)
	require.NoError(t, err)
	_, err = l.Next(ctx)
	assert.Equal(t, io.EOF, err)
	_, err = l.Next(ctx)
	assert.Equal(t, io.EOF, err)
	assert.Equal(t, 1, l.Epoch())

	l.Reset()
	assert.Equal(t, [][]int{{0, 1}}, drain(t, l))
	assert.Equal(t, 2, l.Epoch())
}

func TestLoaderResetMidEpoch(t *testing.T) {
	l, err := NewLoader(rangeDataset{n: 40}, Config{BatchSize: 2, NumWorkers: 3})
	require.NoError(t, err)
	defer l.Close()

	_, err = l.Next(context.Background())
	require.NoError(t, err)
	l.Reset()
	assert.Len(t, drain(t, l), 20)
}

func TestLoaderShuffleIsPermutation(t *testing.T) {
	l, err := NewLoader(rangeDataset{n: 30}, Config{BatchSize: 4, NumWorkers: 2, Shuffle: true, Seed: SeedValue(7)})
	require.NoError(t, err)
	defer l.Close()

	var seen []int
	for _, b := range drain(t, l) {
		seen = append(seen, b...)
	}
	sort.Ints(seen)
	for i, v := range seen {
		assert.Equal(t, i, v)
	}
}

func TestLoaderSeededShuffleReproducible(t *testing.T) {
	epochs := func() [][][]int {
		l, err := NewLoader(rangeDataset{n: 25}, Config{BatchSize: 5, Shuffle: true, Seed: SeedValue(3)})
		require.NoError(t, err)
		defer l.Close()
		first := drain(t, l)
		l.Reset()
		return [][][]int{first, drain(t, l)}
	}
	a, b := epochs(), epochs()
	assert.Equal(t, a, b)
	assert.NotEqual(t, a[0], a[1], "epochs reshuffle")
}

func TestLoaderSeededWorkersReproducible(t *testing.T) {
	values := func() []float32 {
		l, err := NewLoader(noisyDataset{rangeDataset{n: 12}}, Config{
			BatchSize:  2,
			NumWorkers: 3,
			WorkerInit: SeedWorkers(3, 0, 11),
		})
		require.NoError(t, err)
		defer l.Close()
		var out []float32
		for {
			b, err := l.Next(context.Background())
			if err == io.EOF {
				return out
			}
			require.NoError(t, err)
			for _, in := range b.Inputs {
				out = append(out, in[0])
			}
		}
	}
	a, b := values(), values()
	assert.Equal(t, a, b)
	for i, v := range a {
		assert.GreaterOrEqual(t, v, float32(i))
		assert.LessOrEqual(t, v, float32(i+1))
	}
}

func TestLoaderReadsThroughBatcherWhenAugmenting(t *testing.T) {
	for _, workers := range []int{0, 2} {
		ds := &bulkDataset{rangeDataset: rangeDataset{n: 12}}
		l, err := NewLoader(ds, Config{BatchSize: 4, NumWorkers: workers, WorkerInit: SeedWorkers(workers, 0, 1)})
		require.NoError(t, err)

		b, err := l.Next(context.Background())
		require.NoError(t, err)
		assert.Equal(t, [][]float32{{0.5}, {1.5}, {2.5}, {3.5}}, b.Inputs)
		drain(t, l)
		require.NoError(t, l.Close())

		assert.Equal(t, int64(3), ds.batches.Load(), "workers=%d", workers)
		assert.Equal(t, int64(0), ds.examples.Load(), "workers=%d", workers)
	}
}

func TestLoaderSampler(t *testing.T) {
	s := fixedSampler{5, 3, 1, 0}
	l, err := NewLoader(rangeDataset{n: 10}, Config{BatchSize: 2, NumWorkers: 1, Sampler: s})
	require.NoError(t, err)
	defer l.Close()
	assert.Equal(t, 2, l.Len())
	assert.Equal(t, [][]int{{5, 3}, {1, 0}}, drain(t, l))
}

func TestLoaderErrorDeliveredInOrder(t *testing.T) {
	for _, workers := range []int{0, 1, 3} {
		l, err := NewLoader(brokenDataset{rangeDataset{n: 10}, 5}, Config{BatchSize: 2, NumWorkers: workers})
		require.NoError(t, err)
		ctx := context.Background()

		for range 2 {
			_, err := l.Next(ctx)
			require.NoError(t, err, "workers=%d", workers)
		}
		_, err = l.Next(ctx)
		require.Error(t, err)
		assert.True(t, errors.Is(err, errBroken))
		_, again := l.Next(ctx)
		assert.Equal(t, err, again, "error is sticky")

		l.Reset()
		_, err = l.Next(ctx)
		assert.NoError(t, err, "reset starts a fresh epoch")
		require.NoError(t, l.Close())
	}
}

func TestLoaderContextCanceled(t *testing.T) {
	l, err := NewLoader(blockingDataset{}, Config{BatchSize: 1, NumWorkers: 1})
	require.NoError(t, err)
	defer l.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = l.Next(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLoaderSyncContextCanceled(t *testing.T) {
	ds := &bulkDataset{rangeDataset: rangeDataset{n: 4}}
	l, err := NewLoader(ds, Config{BatchSize: 2})
	require.NoError(t, err)
	defer l.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = l.Next(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int64(0), ds.batches.Load(), "nothing is read after cancellation")

	b, err := l.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, b.Indices, "a canceled call does not consume a batch")
}

func TestLoaderClosed(t *testing.T) {
	l, err := NewLoader(rangeDataset{n: 3}, Config{BatchSize: 1, NumWorkers: 2})
	require.NoError(t, err)
	_, err = l.Next(context.Background())
	require.NoError(t, err)
	require.NoError(t, l.Close())
	_, err = l.Next(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}

func TestLoaderMetrics(t *testing.T) {
	rec := &batchCounter{}
	l, err := NewLoader(rangeDataset{n: 6}, Config{BatchSize: 2, NumWorkers: 2, Phase: "train", Metrics: rec})
	require.NoError(t, err)
	defer l.Close()
	drain(t, l)
	assert.Equal(t, 3, rec.phases["train"])
}

func TestNewLoaderInvalid(t *testing.T) {
	cases := []struct {
		name string
		ds   datasets.Dataset
		cfg  Config
	}{
		{"nil dataset", nil, Config{BatchSize: 1}},
		{"zero batch", rangeDataset{n: 1}, Config{}},
		{"negative workers", rangeDataset{n: 1}, Config{BatchSize: 1, NumWorkers: -1}},
		{"sampler and shuffle", rangeDataset{n: 1}, Config{BatchSize: 1, Shuffle: true, Sampler: fixedSampler{0}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewLoader(tc.ds, tc.cfg)
			assert.ErrorIs(t, err, ErrInvalidOptions)
		})
	}
}

// blockingDataset never finishes an example until the test ends.
type blockingDataset struct{}

var blockForever = make(chan struct{})

func (blockingDataset) Len() int { return 1 }

func (blockingDataset) Example(int) ([]float32, []float32, error) {
	select {
	case <-blockForever:
	case <-time.After(time.Second):
	}
	return []float32{0}, nil, nil
}
