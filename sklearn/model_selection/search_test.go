package model_selection

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/studentperf/core/model"
	"github.com/YuminosukeSato/studentperf/metrics"
	"github.com/YuminosukeSato/studentperf/pkg/errors"
	"github.com/YuminosukeSato/studentperf/sklearn/linear_model"
	"github.com/YuminosukeSato/studentperf/sklearn/neighbors"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// noisyLine は y = 3x + 1 + 周期的なノイズ
func noisyLine(n int) (*mat.Dense, *mat.Dense) {
	X := mat.NewDense(n, 1, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		x := float64(i) / float64(n)
		X.Set(i, 0, x)
		y.Set(i, 0, 3*x+1+0.05*math.Sin(float64(i)*1.7))
	}
	return X, y
}

func TestGridSearchCV_SelectsBestAlpha(t *testing.T) {
	X, y := noisyLine(60)
	ridge := linear_model.NewRidge()

	gs := NewGridSearchCV(ridge, Grid{"alpha": {1000.0, 0.001, 10.0}}, WithRefit(true))
	res, err := gs.Fit(context.Background(), X, y)
	require.NoError(t, err)

	assert.Equal(t, map[string]interface{}{"alpha": 0.001}, res.BestParams)
	assert.Equal(t, 1, res.BestIndex)
	require.Len(t, res.Results, 3)
	for _, r := range res.Results {
		assert.Len(t, r.FoldScores, 3)
	}
	assert.Greater(t, res.BestScore, res.Results[0].MeanScore)

	require.NotNil(t, res.BestEstimator)
	assert.Equal(t, 0.001, res.BestEstimator.GetParams()["alpha"])
	assert.Equal(t, 1.0, ridge.Alpha, "the searched estimator must not be modified")
	assert.False(t, ridge.IsFitted())
}

func TestGridSearchCV_TiesGoToFirstPoint(t *testing.T) {
	X, y := noisyLine(30)
	gs := NewGridSearchCV(linear_model.NewLinearRegression(), Grid{"fit_intercept": {true, true}})
	res, err := gs.Fit(context.Background(), X, y)
	require.NoError(t, err)
	assert.Equal(t, 0, res.BestIndex)
	assert.Nil(t, res.BestEstimator)
}

func TestGridSearchCV_SearchErrors(t *testing.T) {
	X, y := noisyLine(30)

	tests := []struct {
		name   string
		gs     *GridSearchCV
		X, y   mat.Matrix
		reason string
	}{
		{
			name:   "empty grid",
			gs:     NewGridSearchCV(linear_model.NewRidge(), Grid{}),
			X:      X,
			y:      y,
			reason: ReasonEmptySpace,
		},
		{
			name:   "unknown key",
			gs:     NewGridSearchCV(linear_model.NewRidge(), Grid{"alpha_typo": {1.0}}),
			X:      X,
			y:      y,
			reason: ReasonInvalidParams,
		},
		{
			name:   "wrong value type",
			gs:     NewGridSearchCV(linear_model.NewRidge(), Grid{"alpha": {"strong"}}),
			X:      X,
			y:      y,
			reason: ReasonInvalidParams,
		},
		{
			name:   "too few samples",
			gs:     NewGridSearchCV(linear_model.NewRidge(), Grid{"alpha": {1.0}}),
			X:      mat.NewDense(2, 1, []float64{1, 2}),
			y:      mat.NewDense(2, 1, []float64{1, 2}),
			reason: ReasonTooFewSamples,
		},
		{
			// 20 行の 3 分割では学習 fold が 13 行しかない
			name:   "fold failure",
			gs:     NewGridSearchCV(neighbors.NewKNeighborsRegressor(), Grid{"n_neighbors": {15}}),
			X:      X.Slice(0, 20, 0, 1),
			y:      y.Slice(0, 20, 0, 1),
			reason: ReasonFoldFailed,
		},
		{
			name:   "unknown scoring",
			gs:     NewGridSearchCV(linear_model.NewRidge(), Grid{"alpha": {1.0}}, WithScoring("accuracy")),
			X:      X,
			y:      y,
			reason: ReasonUnknownScoring,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := tt.gs.Fit(context.Background(), tt.X, tt.y)
			require.Error(t, err)
			assert.Nil(t, res)

			var se *errors.SearchError
			require.True(t, errors.As(err, &se))
			assert.Equal(t, tt.reason, se.Reason)
			assert.True(t, errors.Is(err, errors.ErrSearch))
		})
	}
}

func TestGridSearchCV_IgnoresCancellation(t *testing.T) {
	X, y := noisyLine(30)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewGridSearchCV(linear_model.NewRidge(), Grid{"alpha": {1.0}}).Fit(ctx, X, y)
	assert.NoError(t, err)
}

func TestCrossValScore_LimitedJobs(t *testing.T) {
	X, y := noisyLine(40)
	folds, err := NewKFold(4, false, 0).Split(40)
	require.NoError(t, err)

	var est model.Estimator = linear_model.NewLinearRegression()
	r2, ok := metrics.ByName("r2")
	require.True(t, ok)
	scores, err := CrossValScore(context.Background(), est, map[string]interface{}{}, X, y, folds, r2, 1)
	require.NoError(t, err)
	assert.Len(t, scores, 4)
	for _, s := range scores {
		assert.False(t, math.IsNaN(s))
	}
}
