// Package linear_model provides least-squares regressors.
package linear_model

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/studentperf/core/model"
	"github.com/YuminosukeSato/studentperf/pkg/errors"
)

func init() {
	model.Register(&LinearRegression{})
	model.Register(&Ridge{})
}

// LinearRegression is a linear regression model using ordinary least squares.
// Rank-deficient designs (one-hot columns plus an intercept) are solved with
// the minimum-norm solution, matching scikit-learn's lstsq.
type LinearRegression struct {
	State *model.StateManager

	// Hyperparameters
	FitIntercept bool

	// Learned parameters
	Coef           []float64
	Intercept      float64
	Rank           int
	SingularValues []float64
}

// LinearRegressionOption は設定オプション
type LinearRegressionOption func(*LinearRegression)

// WithLRFitIntercept は切片の学習有無を設定（LinearRegression用）
func WithLRFitIntercept(fit bool) LinearRegressionOption {
	return func(lr *LinearRegression) {
		lr.FitIntercept = fit
	}
}

// NewLinearRegression は新しいLinearRegressionモデルを作成
func NewLinearRegression(options ...LinearRegressionOption) *LinearRegression {
	lr := &LinearRegression{
		State:        model.NewStateManager(),
		FitIntercept: true,
	}
	for _, opt := range options {
		opt(lr)
	}
	return lr
}

// Name implements model.Estimator.
func (lr *LinearRegression) Name() string { return "LinearRegression" }

// Fit はモデルを訓練データで学習
func (lr *LinearRegression) Fit(X, y mat.Matrix) error {
	rows, cols, err := model.CheckFitInput("LinearRegression.Fit", X, y)
	if err != nil {
		return err
	}

	XFit, yFit, xMean, yMean := center(X, y, lr.FitIntercept)

	var svd mat.SVD
	if !svd.Factorize(XFit, mat.SVDThin) {
		return errors.NewModelError("LinearRegression.Fit", "svd factorization failed", errors.ErrSingularMatrix)
	}
	values := svd.Values(nil)
	rank := svd.Rank(rcond(rows, cols))
	if rank == 0 {
		return errors.NewModelError("LinearRegression.Fit", "design matrix has rank zero", errors.ErrSingularMatrix)
	}

	var coef mat.Dense
	svd.SolveTo(&coef, yFit, rank)

	lr.Coef = make([]float64, cols)
	for j := 0; j < cols; j++ {
		lr.Coef[j] = coef.At(j, 0)
	}
	lr.Intercept = intercept(lr.Coef, xMean, yMean, lr.FitIntercept)
	lr.Rank = rank
	lr.SingularValues = values

	if err := errors.CheckNumericalStability("LinearRegression.Fit", lr.Coef, 0); err != nil {
		return err
	}
	if lr.State == nil {
		lr.State = model.NewStateManager()
	}
	lr.State.SetFitted(cols, rows)
	return nil
}

// Predict は入力データに対する予測を行う
func (lr *LinearRegression) Predict(X mat.Matrix) (mat.Matrix, error) {
	if _, err := model.CheckPredictInput("LinearRegression", lr.State, X); err != nil {
		return nil, err
	}
	return linearPredict(X, lr.Coef, lr.Intercept), nil
}

// IsFitted returns whether the model has been fitted
func (lr *LinearRegression) IsFitted() bool {
	return lr.State != nil && lr.State.IsFitted()
}

// GetParams returns the model's hyperparameters
func (lr *LinearRegression) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"fit_intercept": lr.FitIntercept,
	}
}

// DefaultParams returns the constructor defaults.
func (lr *LinearRegression) DefaultParams() map[string]interface{} {
	return NewLinearRegression().GetParams()
}

// SetParams sets the model's hyperparameters
func (lr *LinearRegression) SetParams(params map[string]interface{}) error {
	if err := model.CheckParamKeys(lr.Name(), params, "fit_intercept"); err != nil {
		return err
	}
	if v, ok := params["fit_intercept"]; ok {
		b, err := model.ParamBool("fit_intercept", v)
		if err != nil {
			return err
		}
		lr.FitIntercept = b
	}
	return nil
}

// Clone はモデルの新しいインスタンスを作成（同じハイパーパラメータ、未学習）
func (lr *LinearRegression) Clone() model.Estimator {
	return NewLinearRegression(WithLRFitIntercept(lr.FitIntercept))
}

// String returns the string representation of the model
func (lr *LinearRegression) String() string {
	if !lr.IsFitted() {
		return fmt.Sprintf("LinearRegression(fit_intercept=%t)", lr.FitIntercept)
	}
	nFeatures, _ := lr.State.GetDimensions()
	return fmt.Sprintf("LinearRegression(fit_intercept=%t, n_features=%d, rank=%d)",
		lr.FitIntercept, nFeatures, lr.Rank)
}
