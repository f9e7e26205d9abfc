package model

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/studentperf/pkg/errors"
)

// CheckFitInput validates the shapes handed to Fit: a non-empty X and an
// n×1 y with the same number of rows.
func CheckFitInput(op string, X, y mat.Matrix) (rows, cols int, err error) {
	rows, cols = X.Dims()
	if rows == 0 || cols == 0 {
		return 0, 0, errors.NewModelError(op, "empty data", errors.ErrEmptyData)
	}
	yRows, yCols := y.Dims()
	if yRows != rows {
		return 0, 0, errors.NewDimensionError(op, rows, yRows, 0)
	}
	if yCols != 1 {
		return 0, 0, errors.NewDimensionError(op, 1, yCols, 1)
	}
	if err := errors.CheckMatrix(op, X, rows, cols, 0); err != nil {
		return 0, 0, err
	}
	if err := errors.CheckMatrix(op, y, yRows, 1, 0); err != nil {
		return 0, 0, err
	}
	return rows, cols, nil
}

// CheckPredictInput validates X against a fitted state.
func CheckPredictInput(name string, state *StateManager, X mat.Matrix) (rows int, err error) {
	if state == nil || !state.IsFitted() {
		return 0, errors.NewNotFittedError(name, "Predict")
	}
	rows, cols := X.Dims()
	nFeatures, _ := state.GetDimensions()
	if cols != nFeatures {
		return 0, errors.NewDimensionError(name+".Predict", nFeatures, cols, 1)
	}
	return rows, nil
}
