// Package ensemble provides bagged tree ensembles.
package ensemble

import (
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/studentperf/core/model"
	"github.com/YuminosukeSato/studentperf/core/parallel"
	"github.com/YuminosukeSato/studentperf/pkg/errors"
	"github.com/YuminosukeSato/studentperf/sklearn/tree"
)

func init() {
	model.Register(&RandomForestRegressor{})
}

// RandomForestRegressor averages DecisionTreeRegressors fitted on bootstrap
// samples. Trees are fitted in parallel; the result depends only on
// RandomState.
type RandomForestRegressor struct {
	State *model.StateManager

	// Hyperparameters
	NEstimators     int
	MaxDepth        int // 0 は無制限
	MinSamplesSplit int
	MinSamplesLeaf  int
	MaxFeatures     int // 0 はすべての特徴量
	Bootstrap       bool
	RandomState     int64
	NJobs           int // 0 は CPU 数

	// Learned trees
	Estimators         []*tree.DecisionTreeRegressor
	FeatureImportances []float64
}

// Option は RandomForestRegressor の設定オプション
type Option func(*RandomForestRegressor)

// WithNEstimators sets the number of trees.
func WithNEstimators(n int) Option {
	return func(rf *RandomForestRegressor) { rf.NEstimators = n }
}

// WithMaxDepth limits the depth of every tree. 0 means unlimited.
func WithMaxDepth(depth int) Option {
	return func(rf *RandomForestRegressor) { rf.MaxDepth = depth }
}

// WithMinSamplesSplit sets min_samples_split of every tree.
func WithMinSamplesSplit(n int) Option {
	return func(rf *RandomForestRegressor) { rf.MinSamplesSplit = n }
}

// WithMinSamplesLeaf sets min_samples_leaf of every tree.
func WithMinSamplesLeaf(n int) Option {
	return func(rf *RandomForestRegressor) { rf.MinSamplesLeaf = n }
}

// WithMaxFeatures sets the number of features tried per split.
func WithMaxFeatures(n int) Option {
	return func(rf *RandomForestRegressor) { rf.MaxFeatures = n }
}

// WithBootstrap toggles bootstrap sampling.
func WithBootstrap(b bool) Option {
	return func(rf *RandomForestRegressor) { rf.Bootstrap = b }
}

// WithRandomState seeds bootstrap and feature sampling.
func WithRandomState(seed int64) Option {
	return func(rf *RandomForestRegressor) { rf.RandomState = seed }
}

// WithNJobs limits the number of trees fitted concurrently.
func WithNJobs(n int) Option {
	return func(rf *RandomForestRegressor) { rf.NJobs = n }
}

// NewRandomForestRegressor creates a forest with 100 trees.
func NewRandomForestRegressor(opts ...Option) *RandomForestRegressor {
	rf := &RandomForestRegressor{
		State:           model.NewStateManager(),
		NEstimators:     100,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		Bootstrap:       true,
	}
	for _, opt := range opts {
		opt(rf)
	}
	return rf
}

// Name implements model.Estimator.
func (rf *RandomForestRegressor) Name() string { return "RandomForestRegressor" }

func (rf *RandomForestRegressor) validate() error {
	if rf.NEstimators < 1 {
		return errors.NewValidationError("n_estimators", "must be >= 1", rf.NEstimators)
	}
	if rf.NJobs < 0 {
		return errors.NewValidationError("n_jobs", "must be >= 0", rf.NJobs)
	}
	return rf.newTree(0).Validate()
}

func (rf *RandomForestRegressor) newTree(i int) *tree.DecisionTreeRegressor {
	return tree.NewDecisionTreeRegressor(
		tree.WithMaxDepth(rf.MaxDepth),
		tree.WithMinSamplesSplit(rf.MinSamplesSplit),
		tree.WithMinSamplesLeaf(rf.MinSamplesLeaf),
		tree.WithMaxFeatures(rf.MaxFeatures),
		tree.WithRandomState(rf.RandomState+int64(i)+1),
	)
}

// Fit grows NEstimators trees.
func (rf *RandomForestRegressor) Fit(X, y mat.Matrix) error {
	if err := rf.validate(); err != nil {
		return err
	}
	rows, cols, err := model.CheckFitInput("RandomForestRegressor.Fit", X, y)
	if err != nil {
		return err
	}

	// 各木のブートストラップ標本はシードから順に決める
	samples := make([][]int, rf.NEstimators)
	rng := rand.New(rand.NewPCG(uint64(rf.RandomState), uint64(rf.RandomState)^0x9e3779b97f4a7c15))
	for t := range samples {
		idx := make([]int, rows)
		for i := range idx {
			if rf.Bootstrap {
				idx[i] = rng.IntN(rows)
			} else {
				idx[i] = i
			}
		}
		samples[t] = idx
	}

	trees := make([]*tree.DecisionTreeRegressor, rf.NEstimators)
	err = parallel.ParallelizeErr(rf.NEstimators, rf.NJobs, func(start, end int) error {
		for t := start; t < end; t++ {
			Xs, ys := subset(X, y, samples[t])
			dt := rf.newTree(t)
			if err := dt.Fit(Xs, ys); err != nil {
				return errors.Wrapf(err, "tree %d", t)
			}
			trees[t] = dt
		}
		return nil
	})
	if err != nil {
		return err
	}

	importances := make([]float64, cols)
	for _, dt := range trees {
		for j, v := range dt.GetFeatureImportances() {
			importances[j] += v / float64(len(trees))
		}
	}

	rf.Estimators = trees
	rf.FeatureImportances = importances
	if rf.State == nil {
		rf.State = model.NewStateManager()
	}
	rf.State.SetFitted(cols, rows)
	return nil
}

func subset(X, y mat.Matrix, indices []int) (*mat.Dense, *mat.Dense) {
	_, cols := X.Dims()
	Xs := mat.NewDense(len(indices), cols, nil)
	ys := mat.NewDense(len(indices), 1, nil)
	for i, idx := range indices {
		for j := 0; j < cols; j++ {
			Xs.Set(i, j, X.At(idx, j))
		}
		ys.Set(i, 0, y.At(idx, 0))
	}
	return Xs, ys
}

// Predict averages the predictions of all trees.
func (rf *RandomForestRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	rows, err := model.CheckPredictInput("RandomForestRegressor", rf.State, X)
	if err != nil {
		return nil, err
	}
	out := mat.NewDense(rows, 1, nil)
	for _, dt := range rf.Estimators {
		pred, err := dt.Predict(X)
		if err != nil {
			return nil, err
		}
		out.Add(out, pred)
	}
	out.Scale(1/float64(len(rf.Estimators)), out)
	return out, nil
}

// IsFitted returns whether the model has been fitted.
func (rf *RandomForestRegressor) IsFitted() bool {
	return rf.State != nil && rf.State.IsFitted()
}

// GetParams returns the hyperparameters.
func (rf *RandomForestRegressor) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"n_estimators":      rf.NEstimators,
		"max_depth":         rf.MaxDepth,
		"min_samples_split": rf.MinSamplesSplit,
		"min_samples_leaf":  rf.MinSamplesLeaf,
		"max_features":      rf.MaxFeatures,
		"bootstrap":         rf.Bootstrap,
		"random_state":      rf.RandomState,
		"n_jobs":            rf.NJobs,
	}
}

// DefaultParams returns the constructor defaults.
func (rf *RandomForestRegressor) DefaultParams() map[string]interface{} {
	return NewRandomForestRegressor().GetParams()
}

// SetParams sets hyperparameters. Nothing changes on error.
func (rf *RandomForestRegressor) SetParams(params map[string]interface{}) error {
	if err := model.CheckParamKeys(rf.Name(), params,
		"n_estimators", "max_depth", "min_samples_split", "min_samples_leaf",
		"max_features", "bootstrap", "random_state", "n_jobs"); err != nil {
		return err
	}
	next := *rf
	for key, v := range params {
		var err error
		switch key {
		case "n_estimators":
			next.NEstimators, err = model.ParamInt(key, v)
		case "max_depth":
			next.MaxDepth, err = model.ParamOptionalInt(key, v)
		case "min_samples_split":
			next.MinSamplesSplit, err = model.ParamInt(key, v)
		case "min_samples_leaf":
			next.MinSamplesLeaf, err = model.ParamInt(key, v)
		case "max_features":
			next.MaxFeatures, err = model.ParamOptionalInt(key, v)
		case "bootstrap":
			next.Bootstrap, err = model.ParamBool(key, v)
		case "random_state":
			var seed int
			seed, err = model.ParamInt(key, v)
			next.RandomState = int64(seed)
		case "n_jobs":
			next.NJobs, err = model.ParamOptionalInt(key, v)
		}
		if err != nil {
			return err
		}
	}
	if err := next.validate(); err != nil {
		return err
	}
	next.State, next.Estimators, next.FeatureImportances = rf.State, rf.Estimators, rf.FeatureImportances
	*rf = next
	return nil
}

// Clone returns an unfitted forest with the same hyperparameters.
func (rf *RandomForestRegressor) Clone() model.Estimator {
	return NewRandomForestRegressor(
		WithNEstimators(rf.NEstimators),
		WithMaxDepth(rf.MaxDepth),
		WithMinSamplesSplit(rf.MinSamplesSplit),
		WithMinSamplesLeaf(rf.MinSamplesLeaf),
		WithMaxFeatures(rf.MaxFeatures),
		WithBootstrap(rf.Bootstrap),
		WithRandomState(rf.RandomState),
		WithNJobs(rf.NJobs),
	)
}

// String returns the string representation of the model.
func (rf *RandomForestRegressor) String() string {
	return fmt.Sprintf("RandomForestRegressor(n_estimators=%d, max_depth=%d)", rf.NEstimators, rf.MaxDepth)
}
