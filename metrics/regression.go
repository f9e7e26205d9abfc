// Package metrics provides regression scores used to rank candidate models.
package metrics

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/studentperf/pkg/errors"
)

// columns は n×1 行列（またはベクトル）の組を検証してスライスに変換する
func columns(op string, yTrue, yPred mat.Matrix) ([]float64, []float64, error) {
	rTrue, cTrue := yTrue.Dims()
	rPred, cPred := yPred.Dims()

	if rTrue == 0 || cTrue == 0 {
		return nil, nil, errors.NewValueError(op, "empty target")
	}
	if cTrue != 1 || cPred != 1 {
		return nil, nil, errors.NewValueError(op, "must be a column vector (n×1 matrix)")
	}
	if rTrue != rPred {
		return nil, nil, errors.NewDimensionError(op, rTrue, rPred, 0)
	}

	t := make([]float64, rTrue)
	p := make([]float64, rTrue)
	for i := 0; i < rTrue; i++ {
		t[i] = yTrue.At(i, 0)
		p[i] = yPred.At(i, 0)
	}
	if err := errors.CheckNumericalStability(op, p, 0); err != nil {
		return nil, nil, err
	}
	return t, p, nil
}

// MSE は平均二乗誤差（Mean Squared Error）を計算する
func MSE(yTrue, yPred mat.Matrix) (float64, error) {
	t, p, err := columns("MSE", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	// MSE = (1/n) * Σ(yTrue - yPred)²
	diff := make([]float64, len(t))
	floats.SubTo(diff, t, p)
	return floats.Dot(diff, diff) / float64(len(t)), nil
}

// RMSE は平方根平均二乗誤差（Root Mean Squared Error）を計算する
func RMSE(yTrue, yPred mat.Matrix) (float64, error) {
	mse, err := MSE(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return math.Sqrt(mse), nil
}

// MAE は平均絶対誤差（Mean Absolute Error）を計算する
func MAE(yTrue, yPred mat.Matrix) (float64, error) {
	t, p, err := columns("MAE", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	diff := make([]float64, len(t))
	floats.SubTo(diff, t, p)
	return floats.Norm(diff, 1) / float64(len(t)), nil
}

// R2Score は決定係数（R²）を計算する
//
// 目的変数の分散が0の場合は NaN を返さず、予測が完全に一致すれば 1.0、
// そうでなければ 0.0 を返す。スコアは常に有限値になる。
func R2Score(yTrue, yPred mat.Matrix) (float64, error) {
	t, p, err := columns("R2Score", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	yMean := stat.Mean(t, nil)
	var tss, rss float64
	for i := range t {
		tss += (t[i] - yMean) * (t[i] - yMean)
		rss += (t[i] - p[i]) * (t[i] - p[i])
	}

	if tss == 0 {
		if rss == 0 {
			return 1, nil
		}
		return 0, nil
	}

	// R² = 1 - RSS/TSS
	return 1 - rss/tss, nil
}

// ExplainedVarianceScore は説明分散スコアを計算する。
// R2Score と同じく分散0の場合は 1.0 か 0.0 を返す。
func ExplainedVarianceScore(yTrue, yPred mat.Matrix) (float64, error) {
	t, p, err := columns("ExplainedVarianceScore", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	diff := make([]float64, len(t))
	floats.SubTo(diff, t, p)
	_, varDiff := stat.PopMeanVariance(diff, nil)
	_, varTrue := stat.PopMeanVariance(t, nil)

	if varTrue == 0 {
		if varDiff == 0 {
			return 1, nil
		}
		return 0, nil
	}

	// 説明分散スコア = 1 - Var(yTrue - yPred) / Var(yTrue)
	return 1 - varDiff/varTrue, nil
}

// Scorer はモデルの評価指標
type Scorer func(yTrue, yPred mat.Matrix) (float64, error)

// ByName returns the scorer registered under name.
func ByName(name string) (Scorer, bool) {
	switch name {
	case "r2", "":
		return R2Score, true
	case "neg_mean_squared_error":
		return negate(MSE), true
	case "neg_mean_absolute_error":
		return negate(MAE), true
	case "explained_variance":
		return ExplainedVarianceScore, true
	default:
		return nil, false
	}
}

func negate(s Scorer) Scorer {
	return func(yTrue, yPred mat.Matrix) (float64, error) {
		v, err := s(yTrue, yPred)
		return -v, err
	}
}
