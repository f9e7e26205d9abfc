package trainer

import (
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/YuminosukeSato/studentperf/pkg/errors"
)

// SavePredictionPlot draws predicted against actual values with the
// identity line and writes the image to path. The format follows the
// file extension (png, svg, pdf...).
func SavePredictionPlot(path, title string, yTrue, yPred mat.Matrix) error {
	n, _ := yTrue.Dims()
	if m, _ := yPred.Dims(); m != n {
		return errors.NewDimensionError("SavePredictionPlot", n, m, 0)
	}
	if n == 0 {
		return errors.NewModelError("SavePredictionPlot", "empty data", errors.ErrEmptyData)
	}

	pts := make(plotter.XYs, n)
	all := make([]float64, 0, 2*n)
	for i := 0; i < n; i++ {
		pts[i].X = yTrue.At(i, 0)
		pts[i].Y = yPred.At(i, 0)
		all = append(all, pts[i].X, pts[i].Y)
	}
	lo, hi := floats.Min(all), floats.Max(all)

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "actual"
	p.Y.Label.Text = "predicted"

	scatter, err := plotter.NewScatter(pts)
	if err != nil {
		return errors.Wrap(err, "scatter")
	}
	identity, err := plotter.NewLine(plotter.XYs{{X: lo, Y: lo}, {X: hi, Y: hi}})
	if err != nil {
		return errors.Wrap(err, "identity line")
	}
	identity.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}
	p.Add(plotter.NewGrid(), scatter, identity)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "create directory for %s", path)
	}
	if err := p.Save(6*vg.Inch, 6*vg.Inch, path); err != nil {
		return errors.Wrapf(err, "save plot %s", path)
	}
	return nil
}
