package preprocessing

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/studentperf/core/model"
	"github.com/YuminosukeSato/studentperf/pkg/errors"
)

// Imputation strategies.
const (
	StrategyMean         = "mean"
	StrategyMedian       = "median"
	StrategyMostFrequent = "most_frequent"
	StrategyConstant     = "constant"
)

// SimpleImputer は欠損値（数値列では NaN、カテゴリ列では欠損を表す文字列）を
// 列ごとの統計量で埋める
type SimpleImputer struct {
	State *model.StateManager

	// Strategy は mean, median, most_frequent, constant のいずれか
	Strategy string

	// FillValue は constant 戦略で数値列に使う値
	FillValue float64

	// FillString は constant 戦略でカテゴリ列に使う値
	FillString string

	// Statistics は数値列ごとの補完値
	Statistics []float64

	// Categories はカテゴリ列ごとの補完値
	Categories []string
}

// NewSimpleImputer creates an imputer with the given strategy.
func NewSimpleImputer(strategy string) *SimpleImputer {
	return &SimpleImputer{State: model.NewStateManager(), Strategy: strategy, FillString: "missing"}
}

// IsFitted reports whether Fit or FitStrings has completed.
func (s *SimpleImputer) IsFitted() bool {
	return s.State != nil && s.State.IsFitted()
}

func (s *SimpleImputer) reset() {
	if s.State == nil {
		s.State = model.NewStateManager()
	}
	s.State.Reset()
	s.Statistics = nil
	s.Categories = nil
}

// Fit は数値列ごとの補完値を学習する。すべて欠損の列は補完できないためエラーになる。
func (s *SimpleImputer) Fit(X mat.Matrix) error {
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return errors.NewModelError("SimpleImputer.Fit", "empty data", errors.ErrEmptyData)
	}
	s.reset()

	stats := make([]float64, c)
	col := make([]float64, r)
	for j := 0; j < c; j++ {
		mat.Col(col, j, X)
		present := nonMissing(col)
		if s.Strategy == StrategyConstant {
			stats[j] = s.FillValue
			continue
		}
		if len(present) == 0 {
			return errors.NewValueError("SimpleImputer.Fit", "column has no observed values")
		}
		switch s.Strategy {
		case StrategyMean:
			stats[j] = stat.Mean(present, nil)
		case StrategyMedian:
			stats[j] = median(present)
		case StrategyMostFrequent:
			stats[j] = mostFrequent(present)
		default:
			return errors.NewValidationError("strategy", "unknown imputation strategy", s.Strategy)
		}
	}

	s.Statistics = stats
	s.State.SetFitted(c, r)
	return nil
}

// Transform は NaN を学習済みの補完値で置き換える
func (s *SimpleImputer) Transform(X mat.Matrix) (mat.Matrix, error) {
	if !s.IsFitted() || s.Statistics == nil {
		return nil, errors.NewNotFittedError("SimpleImputer", "Transform")
	}
	r, c := X.Dims()
	if c != len(s.Statistics) {
		return nil, errors.NewDimensionError("SimpleImputer.Transform", len(s.Statistics), c, 1)
	}

	result := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			v := X.At(i, j)
			if math.IsNaN(v) {
				v = s.Statistics[j]
			}
			result.Set(i, j, v)
		}
	}
	return result, nil
}

// FitTransform は Fit と Transform を同時に実行する
func (s *SimpleImputer) FitTransform(X mat.Matrix) (mat.Matrix, error) {
	if err := s.Fit(X); err != nil {
		return nil, err
	}
	return s.Transform(X)
}

// FitStrings はカテゴリ列の補完値を学習する。most_frequent と constant のみ使える。
func (s *SimpleImputer) FitStrings(rows [][]string) error {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return errors.NewModelError("SimpleImputer.FitStrings", "empty data", errors.ErrEmptyData)
	}
	if s.Strategy != StrategyMostFrequent && s.Strategy != StrategyConstant {
		return errors.NewValidationError("strategy", "categorical columns support most_frequent or constant", s.Strategy)
	}
	s.reset()

	c := len(rows[0])
	cats := make([]string, c)
	for j := 0; j < c; j++ {
		if s.Strategy == StrategyConstant {
			cats[j] = s.FillString
			continue
		}
		present := make([]string, 0, len(rows))
		for _, row := range rows {
			if !IsMissing(row[j]) {
				present = append(present, row[j])
			}
		}
		if len(present) == 0 {
			return errors.NewValueError("SimpleImputer.FitStrings", "column has no observed values")
		}
		cats[j] = mostFrequentString(present)
	}

	s.Categories = cats
	s.State.SetFitted(c, len(rows))
	return nil
}

// TransformStrings は欠損セルを学習済みの値で置き換えたコピーを返す
func (s *SimpleImputer) TransformStrings(rows [][]string) ([][]string, error) {
	if !s.IsFitted() || s.Categories == nil {
		return nil, errors.NewNotFittedError("SimpleImputer", "TransformStrings")
	}
	out := make([][]string, len(rows))
	for i, row := range rows {
		if len(row) != len(s.Categories) {
			return nil, errors.NewDimensionError("SimpleImputer.TransformStrings", len(s.Categories), len(row), 1)
		}
		cells := make([]string, len(row))
		for j, v := range row {
			if IsMissing(v) {
				v = s.Categories[j]
			}
			cells[j] = v
		}
		out[i] = cells
	}
	return out, nil
}
