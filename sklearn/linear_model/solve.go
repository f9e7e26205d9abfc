package linear_model

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// center copies X and y, subtracting column means when fitIntercept is set.
// Inputs are never modified.
func center(X, y mat.Matrix, fitIntercept bool) (*mat.Dense, *mat.Dense, []float64, float64) {
	rows, cols := X.Dims()
	XWork := mat.DenseCopyOf(X)
	yWork := mat.DenseCopyOf(y)

	xMean := make([]float64, cols)
	var yMean float64
	if !fitIntercept {
		return XWork, yWork, xMean, 0
	}

	col := make([]float64, rows)
	for j := 0; j < cols; j++ {
		mat.Col(col, j, XWork)
		xMean[j] = floats.Sum(col) / float64(rows)
		floats.AddConst(-xMean[j], col)
		XWork.SetCol(j, col)
	}
	mat.Col(col, 0, yWork)
	yMean = floats.Sum(col) / float64(rows)
	floats.AddConst(-yMean, col)
	yWork.SetCol(0, col)

	return XWork, yWork, xMean, yMean
}

func intercept(coef, xMean []float64, yMean float64, fitIntercept bool) float64 {
	if !fitIntercept {
		return 0
	}
	return yMean - floats.Dot(xMean, coef)
}

// rcond mirrors numpy.linalg.lstsq's default cutoff eps·max(n,m).
// SVD.Rank scales it by the largest singular value.
func rcond(rows, cols int) float64 {
	eps := math.Nextafter(1, 2) - 1
	return eps * float64(max(rows, cols))
}

func linearPredict(X mat.Matrix, coef []float64, b float64) *mat.Dense {
	rows, cols := X.Dims()
	predictions := mat.NewDense(rows, 1, nil)
	row := make([]float64, cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			row[j] = X.At(i, j)
		}
		predictions.Set(i, 0, floats.Dot(row, coef)+b)
	}
	return predictions
}
