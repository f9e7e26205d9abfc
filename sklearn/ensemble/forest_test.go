package ensemble

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/studentperf/core/model"
	"github.com/YuminosukeSato/studentperf/metrics"
	"github.com/YuminosukeSato/studentperf/pkg/errors"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func makeWave(n int) (*mat.Dense, *mat.Dense) {
	X := mat.NewDense(n, 2, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		x0 := float64(i) / float64(n) * 6
		x1 := float64(i%7) / 7
		X.Set(i, 0, x0)
		X.Set(i, 1, x1)
		y.Set(i, 0, math.Sin(x0)*10+x1)
	}
	return X, y
}

func TestRandomForestRegressor_Fit(t *testing.T) {
	X, y := makeWave(120)

	rf := NewRandomForestRegressor(WithNEstimators(20), WithRandomState(42))
	require.NoError(t, rf.Fit(X, y))
	assert.Len(t, rf.Estimators, 20)

	pred, err := rf.Predict(X)
	require.NoError(t, err)
	score, err := metrics.R2Score(y, pred)
	require.NoError(t, err)
	assert.Greater(t, score, 0.9)

	var sum float64
	for _, v := range rf.FeatureImportances {
		sum += v
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
	assert.Greater(t, rf.FeatureImportances[0], rf.FeatureImportances[1])
}

func TestRandomForestRegressor_Deterministic(t *testing.T) {
	X, y := makeWave(60)

	a := NewRandomForestRegressor(WithNEstimators(8), WithRandomState(7), WithMaxFeatures(1))
	b := NewRandomForestRegressor(WithNEstimators(8), WithRandomState(7), WithMaxFeatures(1), WithNJobs(1))
	require.NoError(t, a.Fit(X, y))
	require.NoError(t, b.Fit(X, y))

	pa, _ := a.Predict(X)
	pb, _ := b.Predict(X)
	assert.True(t, mat.Equal(pa, pb), "same seed must give the same forest regardless of n_jobs")
}

func TestRandomForestRegressor_NoBootstrapSingleTreeEqualsTree(t *testing.T) {
	X, y := makeWave(30)
	rf := NewRandomForestRegressor(WithNEstimators(1), WithBootstrap(false))
	require.NoError(t, rf.Fit(X, y))

	pred, err := rf.Predict(X)
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(y, pred, 1e-12))
}

func TestRandomForestRegressor_Params(t *testing.T) {
	rf := NewRandomForestRegressor()
	assert.Equal(t, 100, rf.DefaultParams()["n_estimators"])

	require.NoError(t, rf.SetParams(map[string]interface{}{"n_estimators": 10, "max_depth": 4}))
	assert.Equal(t, 10, rf.NEstimators)
	assert.Equal(t, 4, rf.MaxDepth)

	err := rf.SetParams(map[string]interface{}{"n_estimators": 0})
	require.Error(t, err)
	assert.Equal(t, 10, rf.NEstimators)

	err = rf.SetParams(map[string]interface{}{"learning_rate": 0.1})
	var valErr *errors.ValidationError
	assert.True(t, errors.As(err, &valErr))

	clone := rf.Clone()
	assert.Equal(t, rf.GetParams(), clone.GetParams())
}

func TestRandomForestRegressor_ArtifactRoundTrip(t *testing.T) {
	X, y := makeWave(40)
	rf := NewRandomForestRegressor(WithNEstimators(5), WithRandomState(1))
	require.NoError(t, rf.Fit(X, y))

	path := filepath.Join(t.TempDir(), "forest.gob")
	require.NoError(t, model.SaveModel(path, rf))
	loaded, err := model.LoadModelAs[*RandomForestRegressor](path)
	require.NoError(t, err)

	want, _ := rf.Predict(X)
	got, err := loaded.Predict(X)
	require.NoError(t, err)
	assert.True(t, mat.Equal(want, got))
}
