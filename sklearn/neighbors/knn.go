// Package neighbors provides nearest-neighbour regression.
package neighbors

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/studentperf/core/model"
	"github.com/YuminosukeSato/studentperf/core/parallel"
	"github.com/YuminosukeSato/studentperf/pkg/errors"
)

func init() {
	model.Register(&KNeighborsRegressor{})
}

// Weight functions.
const (
	WeightsUniform  = "uniform"
	WeightsDistance = "distance"
)

// KNeighborsRegressor predicts the (weighted) mean target of the k nearest
// training rows under the Minkowski distance of order P.
type KNeighborsRegressor struct {
	State *model.StateManager

	// Hyperparameters
	NNeighbors int
	Weights    string
	P          float64

	// Training data, row-major
	FitX    []float64
	FitY    []float64
	NRows   int
	NColumn int
}

// Option は KNeighborsRegressor の設定オプション
type Option func(*KNeighborsRegressor)

// WithNNeighbors sets k.
func WithNNeighbors(k int) Option {
	return func(kn *KNeighborsRegressor) { kn.NNeighbors = k }
}

// WithWeights sets the weight function, "uniform" or "distance".
func WithWeights(w string) Option {
	return func(kn *KNeighborsRegressor) { kn.Weights = w }
}

// WithP sets the Minkowski order (1 manhattan, 2 euclidean).
func WithP(p float64) Option {
	return func(kn *KNeighborsRegressor) { kn.P = p }
}

// NewKNeighborsRegressor creates a regressor with k=5, uniform weights and
// euclidean distance.
func NewKNeighborsRegressor(opts ...Option) *KNeighborsRegressor {
	kn := &KNeighborsRegressor{
		State:      model.NewStateManager(),
		NNeighbors: 5,
		Weights:    WeightsUniform,
		P:          2,
	}
	for _, opt := range opts {
		opt(kn)
	}
	return kn
}

// Name implements model.Estimator.
func (kn *KNeighborsRegressor) Name() string { return "KNeighborsRegressor" }

func (kn *KNeighborsRegressor) validate() error {
	if kn.NNeighbors < 1 {
		return errors.NewValidationError("n_neighbors", "must be >= 1", kn.NNeighbors)
	}
	if kn.Weights != WeightsUniform && kn.Weights != WeightsDistance {
		return errors.NewValidationError("weights", "must be uniform or distance", kn.Weights)
	}
	if kn.P < 1 {
		return errors.NewValidationError("p", "must be >= 1", kn.P)
	}
	return nil
}

// Fit stores a copy of the training data.
func (kn *KNeighborsRegressor) Fit(X, y mat.Matrix) error {
	if err := kn.validate(); err != nil {
		return err
	}
	rows, cols, err := model.CheckFitInput("KNeighborsRegressor.Fit", X, y)
	if err != nil {
		return err
	}

	kn.FitX = make([]float64, rows*cols)
	kn.FitY = make([]float64, rows)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			kn.FitX[i*cols+j] = X.At(i, j)
		}
		kn.FitY[i] = y.At(i, 0)
	}
	kn.NRows, kn.NColumn = rows, cols

	if kn.State == nil {
		kn.State = model.NewStateManager()
	}
	kn.State.SetFitted(cols, rows)
	return nil
}

type neighbor struct {
	index int
	dist  float64
}

// Predict returns the neighbour average for every row of X.
func (kn *KNeighborsRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	rows, err := model.CheckPredictInput("KNeighborsRegressor", kn.State, X)
	if err != nil {
		return nil, err
	}
	if kn.NNeighbors > kn.NRows {
		return nil, errors.NewValueError("KNeighborsRegressor.Predict",
			fmt.Sprintf("expected n_neighbors <= n_samples_fit, got n_neighbors=%d, n_samples_fit=%d", kn.NNeighbors, kn.NRows))
	}

	// 各行は独立なので行範囲ごとに並列化する。出力は行ごとに別の要素へ書く
	pred := make([]float64, rows)
	parallel.ParallelizeWithThreshold(rows, predictParallelThreshold, func(start, end int) {
		query := make([]float64, kn.NColumn)
		all := make([]neighbor, kn.NRows)
		for i := start; i < end; i++ {
			mat.Row(query, i, X)
			for r := 0; r < kn.NRows; r++ {
				train := kn.FitX[r*kn.NColumn : (r+1)*kn.NColumn]
				all[r] = neighbor{index: r, dist: floats.Distance(query, train, kn.P)}
			}
			sort.SliceStable(all, func(a, b int) bool { return all[a].dist < all[b].dist })
			pred[i] = kn.aggregate(all[:kn.NNeighbors])
		}
	})
	return mat.NewDense(rows, 1, pred), nil
}

// predictParallelThreshold is the number of query rows above which
// Predict fans out across cores.
const predictParallelThreshold = 256

func (kn *KNeighborsRegressor) aggregate(nn []neighbor) float64 {
	if kn.Weights == WeightsUniform {
		var sum float64
		for _, n := range nn {
			sum += kn.FitY[n.index]
		}
		return sum / float64(len(nn))
	}

	// 距離0の近傍があればそれらだけを等しい重みで平均する
	var exact []neighbor
	for _, n := range nn {
		if n.dist == 0 {
			exact = append(exact, n)
		}
	}
	if len(exact) > 0 {
		var sum float64
		for _, n := range exact {
			sum += kn.FitY[n.index]
		}
		return sum / float64(len(exact))
	}

	var num, den float64
	for _, n := range nn {
		w := 1 / n.dist
		num += w * kn.FitY[n.index]
		den += w
	}
	if den == 0 || math.IsInf(den, 0) {
		return math.NaN()
	}
	return num / den
}

// IsFitted returns whether the model has been fitted.
func (kn *KNeighborsRegressor) IsFitted() bool {
	return kn.State != nil && kn.State.IsFitted()
}

// GetParams returns the hyperparameters.
func (kn *KNeighborsRegressor) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"n_neighbors": kn.NNeighbors,
		"weights":     kn.Weights,
		"p":           kn.P,
	}
}

// DefaultParams returns the constructor defaults.
func (kn *KNeighborsRegressor) DefaultParams() map[string]interface{} {
	return NewKNeighborsRegressor().GetParams()
}

// SetParams sets hyperparameters. Nothing changes on error.
func (kn *KNeighborsRegressor) SetParams(params map[string]interface{}) error {
	if err := model.CheckParamKeys(kn.Name(), params, "n_neighbors", "weights", "p"); err != nil {
		return err
	}
	next := KNeighborsRegressor{NNeighbors: kn.NNeighbors, Weights: kn.Weights, P: kn.P}
	for key, v := range params {
		var err error
		switch key {
		case "n_neighbors":
			next.NNeighbors, err = model.ParamInt(key, v)
		case "weights":
			next.Weights, err = model.ParamString(key, v)
		case "p":
			next.P, err = model.ParamFloat(key, v)
		}
		if err != nil {
			return err
		}
	}
	if err := next.validate(); err != nil {
		return err
	}
	kn.NNeighbors, kn.Weights, kn.P = next.NNeighbors, next.Weights, next.P
	return nil
}

// Clone returns an unfitted regressor with the same hyperparameters.
func (kn *KNeighborsRegressor) Clone() model.Estimator {
	return NewKNeighborsRegressor(WithNNeighbors(kn.NNeighbors), WithWeights(kn.Weights), WithP(kn.P))
}

// String returns the string representation of the model.
func (kn *KNeighborsRegressor) String() string {
	return fmt.Sprintf("KNeighborsRegressor(n_neighbors=%d, weights=%s, p=%g)", kn.NNeighbors, kn.Weights, kn.P)
}
