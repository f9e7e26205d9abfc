package model_selection

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/studentperf/pkg/errors"
)

func TestParameterGrid_Order(t *testing.T) {
	grid := Grid{
		"weights":     {"uniform", "distance"},
		"n_neighbors": {3, 5},
	}
	points, err := ParameterGrid(grid)
	require.NoError(t, err)

	want := []map[string]interface{}{
		{"n_neighbors": 3, "weights": "uniform"},
		{"n_neighbors": 3, "weights": "distance"},
		{"n_neighbors": 5, "weights": "uniform"},
		{"n_neighbors": 5, "weights": "distance"},
	}
	if diff := cmp.Diff(want, points); diff != "" {
		t.Errorf("ParameterGrid() mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 4, grid.Size())
	assert.Equal(t, []string{"n_neighbors", "weights"}, grid.Keys())
}

func TestParameterGrid_Empty(t *testing.T) {
	_, err := ParameterGrid(Grid{})
	assert.True(t, errors.Is(err, errors.ErrEmptySearchSpace))

	_, err = ParameterGrid(nil)
	assert.True(t, errors.Is(err, errors.ErrEmptySearchSpace))

	_, err = ParameterGrid(Grid{"alpha": {}})
	assert.True(t, errors.Is(err, errors.ErrEmptySearchSpace))
}
