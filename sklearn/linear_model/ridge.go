package linear_model

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/studentperf/core/model"
	"github.com/YuminosukeSato/studentperf/pkg/errors"
)

// Ridge is least squares with an L2 penalty alpha·‖w‖².
// The intercept is not penalized.
type Ridge struct {
	State *model.StateManager

	// Hyperparameters
	Alpha        float64
	FitIntercept bool

	// Learned parameters
	Coef      []float64
	Intercept float64
}

// RidgeOption は Ridge の設定オプション
type RidgeOption func(*Ridge)

// WithAlpha sets the regularization strength.
func WithAlpha(alpha float64) RidgeOption {
	return func(r *Ridge) {
		r.Alpha = alpha
	}
}

// WithFitIntercept は切片の学習有無を設定（Ridge用）
func WithFitIntercept(fit bool) RidgeOption {
	return func(r *Ridge) {
		r.FitIntercept = fit
	}
}

// NewRidge creates a Ridge regressor with alpha=1.0.
func NewRidge(options ...RidgeOption) *Ridge {
	r := &Ridge{
		State:        model.NewStateManager(),
		Alpha:        1.0,
		FitIntercept: true,
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

// Name implements model.Estimator.
func (r *Ridge) Name() string { return "Ridge" }

// Fit solves (XᵀX + αI)w = Xᵀy on centered data.
func (r *Ridge) Fit(X, y mat.Matrix) error {
	if r.Alpha < 0 {
		return errors.NewValidationError("alpha", "must be non-negative", r.Alpha)
	}
	rows, cols, err := model.CheckFitInput("Ridge.Fit", X, y)
	if err != nil {
		return err
	}

	XFit, yFit, xMean, yMean := center(X, y, r.FitIntercept)

	var gram mat.SymDense
	gram.SymOuterK(1, XFit.T())
	for j := 0; j < cols; j++ {
		gram.SetSym(j, j, gram.At(j, j)+r.Alpha)
	}
	var xty mat.Dense
	xty.Mul(XFit.T(), yFit)

	var coef mat.Dense
	var chol mat.Cholesky
	if chol.Factorize(&gram) {
		if err := chol.SolveTo(&coef, &xty); err != nil {
			return errors.NewModelError("Ridge.Fit", "cholesky solve failed", err)
		}
	} else {
		// alpha=0 で特異な場合は最小ノルム解にする
		var svd mat.SVD
		if !svd.Factorize(XFit, mat.SVDThin) {
			return errors.NewModelError("Ridge.Fit", "svd factorization failed", errors.ErrSingularMatrix)
		}
		rank := svd.Rank(rcond(rows, cols))
		if rank == 0 {
			return errors.NewModelError("Ridge.Fit", "design matrix has rank zero", errors.ErrSingularMatrix)
		}
		svd.SolveTo(&coef, yFit, rank)
	}

	r.Coef = make([]float64, cols)
	for j := 0; j < cols; j++ {
		r.Coef[j] = coef.At(j, 0)
	}
	r.Intercept = intercept(r.Coef, xMean, yMean, r.FitIntercept)

	if err := errors.CheckNumericalStability("Ridge.Fit", r.Coef, 0); err != nil {
		return err
	}
	if r.State == nil {
		r.State = model.NewStateManager()
	}
	r.State.SetFitted(cols, rows)
	return nil
}

// Predict returns X·w + b.
func (r *Ridge) Predict(X mat.Matrix) (mat.Matrix, error) {
	if _, err := model.CheckPredictInput("Ridge", r.State, X); err != nil {
		return nil, err
	}
	return linearPredict(X, r.Coef, r.Intercept), nil
}

// IsFitted returns whether the model has been fitted
func (r *Ridge) IsFitted() bool {
	return r.State != nil && r.State.IsFitted()
}

// GetParams returns the model's hyperparameters
func (r *Ridge) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"alpha":         r.Alpha,
		"fit_intercept": r.FitIntercept,
	}
}

// DefaultParams returns the constructor defaults.
func (r *Ridge) DefaultParams() map[string]interface{} {
	return NewRidge().GetParams()
}

// SetParams sets the model's hyperparameters. Nothing changes on error.
func (r *Ridge) SetParams(params map[string]interface{}) error {
	if err := model.CheckParamKeys(r.Name(), params, "alpha", "fit_intercept"); err != nil {
		return err
	}
	alpha, fit := r.Alpha, r.FitIntercept
	if v, ok := params["alpha"]; ok {
		a, err := model.ParamFloat("alpha", v)
		if err != nil {
			return err
		}
		if a < 0 {
			return errors.NewValidationError("alpha", "must be non-negative", v)
		}
		alpha = a
	}
	if v, ok := params["fit_intercept"]; ok {
		b, err := model.ParamBool("fit_intercept", v)
		if err != nil {
			return err
		}
		fit = b
	}
	r.Alpha, r.FitIntercept = alpha, fit
	return nil
}

// Clone returns an unfitted Ridge with the same hyperparameters.
func (r *Ridge) Clone() model.Estimator {
	return NewRidge(WithAlpha(r.Alpha), WithFitIntercept(r.FitIntercept))
}

// String returns the string representation of the model
func (r *Ridge) String() string {
	return fmt.Sprintf("Ridge(alpha=%g, fit_intercept=%t)", r.Alpha, r.FitIntercept)
}
