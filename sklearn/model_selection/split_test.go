package model_selection

import (
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestKFold_SklearnFoldSizes(t *testing.T) {
	folds, err := NewKFold(3, false, 0).Split(10)
	require.NoError(t, err)
	require.Len(t, folds, 3)

	want := [][]int{{0, 1, 2, 3}, {4, 5, 6}, {7, 8, 9}}
	for i, f := range folds {
		if diff := cmp.Diff(want[i], f.TestIndices); diff != "" {
			t.Errorf("fold %d test indices mismatch (-want +got):\n%s", i, diff)
		}
		assert.Len(t, f.TrainIndices, 10-len(want[i]))
	}
	assert.Equal(t, []int{4, 5, 6, 7, 8, 9}, folds[0].TrainIndices)
	assert.Equal(t, []int{0, 1, 2, 3, 7, 8, 9}, folds[1].TrainIndices)
}

func TestKFold_ShufflePartitions(t *testing.T) {
	folds, err := NewKFold(4, true, 42).Split(13)
	require.NoError(t, err)

	var all []int
	for _, f := range folds {
		all = append(all, f.TestIndices...)
		assert.Len(t, f.TrainIndices, 13-len(f.TestIndices))
	}
	sort.Ints(all)
	for i := range all {
		assert.Equal(t, i, all[i], "every sample appears in exactly one test fold")
	}

	again, err := NewKFold(4, true, 42).Split(13)
	require.NoError(t, err)
	assert.Equal(t, folds, again)
}

func TestKFold_Errors(t *testing.T) {
	_, err := NewKFold(1, false, 0).Split(10)
	assert.Error(t, err)
	_, err = NewKFold(3, false, 0).Split(2)
	assert.Error(t, err)
}

func TestExtractSubset(t *testing.T) {
	X := mat.NewDense(3, 2, []float64{1, 2, 3, 4, 5, 6})
	y := mat.NewDense(3, 1, []float64{10, 20, 30})

	Xs, ys := ExtractSubset(X, y, []int{2, 0})
	assert.True(t, mat.Equal(mat.NewDense(2, 2, []float64{5, 6, 1, 2}), Xs))
	assert.True(t, mat.Equal(mat.NewDense(2, 1, []float64{30, 10}), ys))
}

func TestTrainTestSplit(t *testing.T) {
	train, test, err := TrainTestSplit(1000, 0.2, 42)
	require.NoError(t, err)
	assert.Len(t, test, 200)
	assert.Len(t, train, 800)

	seen := make(map[int]bool)
	for _, i := range append(append([]int(nil), train...), test...) {
		assert.False(t, seen[i])
		seen[i] = true
	}
	assert.Len(t, seen, 1000)

	train2, test2, err := TrainTestSplit(1000, 0.2, 42)
	require.NoError(t, err)
	assert.Equal(t, train, train2)
	assert.Equal(t, test, test2)

	// ceil(0.25 * 10) = 3
	_, test, err = TrainTestSplit(10, 0.25, 1)
	require.NoError(t, err)
	assert.Len(t, test, 3)

	for _, bad := range []float64{0, 1, -0.5, 1.5} {
		_, _, err := TrainTestSplit(10, bad, 1)
		assert.Error(t, err, "test_size=%v", bad)
	}
	_, _, err = TrainTestSplit(1, 0.5, 1)
	assert.Error(t, err)
}
