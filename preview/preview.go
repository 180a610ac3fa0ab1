// Package preview renders loaded batches as scatter plots.
package preview

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"io"
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/Noofbiz/datapipe/dataloader"
)

// Series is one group of points drawn in a single color.
type Series struct {
	Name   string
	Points plotter.XYs
}

var palette = []color.RGBA{
	{R: 120, G: 120, B: 120, A: 180},
	{R: 20, G: 80, B: 200, A: 220},
	{R: 200, G: 30, B: 30, A: 180},
	{R: 40, G: 120, B: 40, A: 180},
}

// Collect reads the rest of the current epoch from it and returns one point
// per example: the first two label values, or the first two input values
// when the example has fewer than two labels. Examples with fewer than two
// values are skipped. limit <= 0 reads the whole epoch.
func Collect(ctx context.Context, it dataloader.Iterator, limit int) (plotter.XYs, error) {
	var pts plotter.XYs
	for limit <= 0 || len(pts) < limit {
		b, err := it.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		for i := range b.Inputs {
			v := b.Inputs[i]
			if i < len(b.Labels) && len(b.Labels[i]) >= 2 {
				v = b.Labels[i]
			}
			if len(v) < 2 {
				continue
			}
			pts = append(pts, plotter.XY{X: float64(v[0]), Y: float64(v[1])})
			if limit > 0 && len(pts) == limit {
				break
			}
		}
	}
	return pts, nil
}

// Save writes a PNG scatter of every series to path, creating its directory.
func Save(path, title string, series ...Series) error {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "x"
	p.Y.Label.Text = "y"

	var all plotter.XYs
	for i, s := range series {
		if len(s.Points) == 0 {
			continue
		}
		sc, err := plotter.NewScatter(s.Points)
		if err != nil {
			return fmt.Errorf("scatter %s: %w", s.Name, err)
		}
		sc.GlyphStyle.Color = palette[i%len(palette)]
		sc.GlyphStyle.Radius = vg.Points(1.8)
		p.Add(sc)
		p.Legend.Add(s.Name, sc)
		all = append(all, s.Points...)
	}

	p.Add(plotter.NewGrid())
	p.X.Min, p.X.Max, p.Y.Min, p.Y.Max = autoRange(all)

	if err := ensureDir(filepath.Dir(path)); err != nil {
		return err
	}
	return p.Save(8*vg.Inch, 6*vg.Inch, path)
}

// autoRange computes padded min/max for X and Y for a set of points.
func autoRange(xs plotter.XYs) (xmin, xmax, ymin, ymax float64) {
	if len(xs) == 0 {
		return -1, 1, -1, 1
	}
	xmin, xmax = math.Inf(1), math.Inf(-1)
	ymin, ymax = math.Inf(1), math.Inf(-1)
	for _, p := range xs {
		xmin = math.Min(xmin, p.X)
		xmax = math.Max(xmax, p.X)
		ymin = math.Min(ymin, p.Y)
		ymax = math.Max(ymax, p.Y)
	}
	padx := (xmax - xmin) * 0.06
	pady := (ymax - ymin) * 0.06
	if padx == 0 {
		padx = 1.0
	}
	if pady == 0 {
		pady = 1.0
	}
	return xmin - padx, xmax + padx, ymin - pady, ymax + pady
}

func ensureDir(path string) error {
	if path == "" || path == "." {
		return nil
	}
	return os.MkdirAll(path, 0o755)
}
