package preview

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/plot/plotter"

	"github.com/Noofbiz/datapipe/dataloader"
	"github.com/Noofbiz/datapipe/datasets"
)

func loader(t *testing.T, inputs, labels [][]float32) dataloader.Iterator {
	t.Helper()
	ds, err := datasets.NewMemoryDataset(inputs, labels)
	require.NoError(t, err)
	l, err := dataloader.NewLoader(ds, dataloader.Config{BatchSize: 2})
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func TestCollectPrefersLabels(t *testing.T) {
	it := loader(t,
		[][]float32{{1, 2, 3}, {4, 5, 6}, {7, 8, 9}},
		[][]float32{{10, 20}, {30, 40}, {50, 60}},
	)
	pts, err := Collect(context.Background(), it, 0)
	require.NoError(t, err)
	assert.Equal(t, plotter.XYs{{X: 10, Y: 20}, {X: 30, Y: 40}, {X: 50, Y: 60}}, pts)
}

func TestCollectFallsBackToInputs(t *testing.T) {
	it := loader(t, [][]float32{{1, 2}, {3}, {5, 6}}, nil)
	pts, err := Collect(context.Background(), it, 0)
	require.NoError(t, err)
	assert.Equal(t, plotter.XYs{{X: 1, Y: 2}, {X: 5, Y: 6}}, pts)
}

func TestCollectLimit(t *testing.T) {
	it := loader(t, [][]float32{{1, 1}, {2, 2}, {3, 3}, {4, 4}, {5, 5}}, nil)
	pts, err := Collect(context.Background(), it, 3)
	require.NoError(t, err)
	assert.Len(t, pts, 3)
}

func TestSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "preview.png")
	err := Save(path, "labels",
		Series{Name: "train", Points: plotter.XYs{{X: 0, Y: 0}, {X: 1, Y: 2}}},
		Series{Name: "empty"},
	)
	require.NoError(t, err)
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestAutoRange(t *testing.T) {
	xmin, xmax, ymin, ymax := autoRange(nil)
	assert.Equal(t, []float64{-1, 1, -1, 1}, []float64{xmin, xmax, ymin, ymax})

	xmin, xmax, ymin, ymax = autoRange(plotter.XYs{{X: 0, Y: 5}, {X: 100, Y: 5}})
	assert.InDelta(t, -6, xmin, 1e-9)
	assert.InDelta(t, 106, xmax, 1e-9)
	assert.Equal(t, 4.0, ymin)
	assert.Equal(t, 6.0, ymax)
}
