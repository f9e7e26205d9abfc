package preprocessing

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/studentperf/core/model"
	"github.com/YuminosukeSato/studentperf/pkg/errors"
)

func init() {
	model.Register(&ColumnTransformer{})
}

// Scaling kinds for numeric columns.
const (
	ScalingStandard = "standard"
	ScalingMinMax   = "minmax"
)

// ColumnTransformer は生の Frame を特徴量行列に変換する前処理器。
//
//   - 数値列: 中央値で補完 → 標準化
//   - カテゴリ列: 最頻値で補完 → one-hot → 平均を引かない標準化
//
// 出力は数値列、カテゴリ列の順に並ぶ。学習後は ArtifactStore で保存できる。
type ColumnTransformer struct {
	State *model.StateManager

	Numeric     []string
	Categorical []string

	// Scaling は数値列のスケーリング方法（"standard" または "minmax"）
	Scaling string

	NumericImputer     *SimpleImputer
	NumericScaler      *StandardScaler
	NumericMinMax      *MinMaxScaler
	CategoricalImputer *SimpleImputer
	Encoder            *OneHotEncoder
	CategoricalScaler  *StandardScaler
}

// ColumnTransformerOption configures a ColumnTransformer.
type ColumnTransformerOption func(*ColumnTransformer)

// WithScaling selects the scaler applied to numeric columns.
func WithScaling(kind string) ColumnTransformerOption {
	return func(ct *ColumnTransformer) {
		ct.Scaling = kind
	}
}

// WithHandleUnknown sets how the encoder treats categories not seen in Fit.
func WithHandleUnknown(mode string) ColumnTransformerOption {
	return func(ct *ColumnTransformer) {
		ct.Encoder.HandleUnknown = mode
	}
}

// NewColumnTransformer creates the preprocessor for the given columns.
//
// 使用例:
//
//	ct := preprocessing.NewColumnTransformer(
//	    []string{"reading_score", "writing_score"},
//	    []string{"gender", "lunch"},
//	)
//	X, err := ct.FitTransform(frame)
func NewColumnTransformer(numeric, categorical []string, opts ...ColumnTransformerOption) *ColumnTransformer {
	ct := &ColumnTransformer{
		State:              model.NewStateManager(),
		Numeric:            append([]string(nil), numeric...),
		Categorical:        append([]string(nil), categorical...),
		Scaling:            ScalingStandard,
		NumericImputer:     NewSimpleImputer(StrategyMedian),
		CategoricalImputer: NewSimpleImputer(StrategyMostFrequent),
		Encoder:            NewOneHotEncoder(),
		CategoricalScaler:  NewStandardScaler(false, true),
	}
	for _, opt := range opts {
		opt(ct)
	}
	return ct
}

// Name identifies the preprocessor in artifact envelopes.
func (ct *ColumnTransformer) Name() string { return "ColumnTransformer" }

// IsFitted reports whether Fit has completed.
func (ct *ColumnTransformer) IsFitted() bool {
	return ct.State != nil && ct.State.IsFitted()
}

// Fit learns all column statistics from frame.
func (ct *ColumnTransformer) Fit(frame *Frame) error {
	if len(ct.Numeric)+len(ct.Categorical) == 0 {
		return errors.NewValidationError("columns", "at least one feature column is required", nil)
	}
	if frame == nil || frame.Len() == 0 {
		return errors.NewModelError("ColumnTransformer.Fit", "empty data", errors.ErrEmptyData)
	}
	if ct.State == nil {
		ct.State = model.NewStateManager()
	}
	ct.State.Reset()

	if len(ct.Numeric) > 0 {
		X, err := numericMatrix(frame, ct.Numeric)
		if err != nil {
			return err
		}
		imputed, err := ct.NumericImputer.FitTransform(X)
		if err != nil {
			return errors.Wrap(err, "numeric imputation")
		}
		if n := countMissing(X.RawMatrix().Data); n > 0 {
			errors.Warn(errors.NewDataConversionWarning("string", "float64",
				fmt.Sprintf("%d missing numeric cells imputed with the %s", n, ct.NumericImputer.Strategy)))
		}
		switch ct.Scaling {
		case ScalingStandard:
			ct.NumericScaler = NewStandardScalerDefault()
			err = ct.NumericScaler.Fit(imputed)
		case ScalingMinMax:
			ct.NumericMinMax = NewMinMaxScalerDefault()
			err = ct.NumericMinMax.Fit(imputed)
		default:
			return errors.NewValidationError("scaling", "must be standard or minmax", ct.Scaling)
		}
		if err != nil {
			return errors.Wrap(err, "numeric scaling")
		}
	}

	if len(ct.Categorical) > 0 {
		cells, err := frame.Select(ct.Categorical...)
		if err != nil {
			return err
		}
		if err := ct.CategoricalImputer.FitStrings(cells); err != nil {
			return errors.Wrap(err, "categorical imputation")
		}
		filled, err := ct.CategoricalImputer.TransformStrings(cells)
		if err != nil {
			return err
		}
		if err := ct.Encoder.Fit(filled); err != nil {
			return errors.Wrap(err, "one-hot encoding")
		}
		encoded, err := ct.Encoder.Transform(filled)
		if err != nil {
			return err
		}
		if err := ct.CategoricalScaler.Fit(encoded); err != nil {
			return errors.Wrap(err, "categorical scaling")
		}
	}

	ct.State.SetFitted(len(ct.FeatureNames()), frame.Len())
	return nil
}

// Transform converts frame with the statistics learned in Fit.
func (ct *ColumnTransformer) Transform(frame *Frame) (mat.Matrix, error) {
	if !ct.IsFitted() {
		return nil, errors.NewNotFittedError("ColumnTransformer", "Transform")
	}
	if frame == nil || frame.Len() == 0 {
		return nil, errors.NewModelError("ColumnTransformer.Transform", "empty data", errors.ErrEmptyData)
	}

	var blocks []mat.Matrix
	if len(ct.Numeric) > 0 {
		X, err := numericMatrix(frame, ct.Numeric)
		if err != nil {
			return nil, err
		}
		imputed, err := ct.NumericImputer.Transform(X)
		if err != nil {
			return nil, err
		}
		var scaled mat.Matrix
		if ct.Scaling == ScalingMinMax {
			scaled, err = ct.NumericMinMax.Transform(imputed)
		} else {
			scaled, err = ct.NumericScaler.Transform(imputed)
		}
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, scaled)
	}

	if len(ct.Categorical) > 0 {
		cells, err := frame.Select(ct.Categorical...)
		if err != nil {
			return nil, err
		}
		filled, err := ct.CategoricalImputer.TransformStrings(cells)
		if err != nil {
			return nil, err
		}
		encoded, err := ct.Encoder.Transform(filled)
		if err != nil {
			return nil, err
		}
		scaled, err := ct.CategoricalScaler.Transform(encoded)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, scaled)
	}

	return hstack(blocks), nil
}

// FitTransform fits on frame and transforms it.
func (ct *ColumnTransformer) FitTransform(frame *Frame) (mat.Matrix, error) {
	if err := ct.Fit(frame); err != nil {
		return nil, err
	}
	return ct.Transform(frame)
}

// FeatureNames returns the names of the output columns.
func (ct *ColumnTransformer) FeatureNames() []string {
	names := append([]string(nil), ct.Numeric...)
	if ct.Encoder != nil {
		names = append(names, ct.Encoder.FeatureNames(ct.Categorical)...)
	}
	return names
}

func numericMatrix(frame *Frame, columns []string) (*mat.Dense, error) {
	X := mat.NewDense(frame.Len(), len(columns), nil)
	for j, name := range columns {
		values, err := frame.Float(name)
		if err != nil {
			return nil, err
		}
		X.SetCol(j, values)
	}
	return X, nil
}

func hstack(blocks []mat.Matrix) *mat.Dense {
	if len(blocks) == 1 {
		return mat.DenseCopyOf(blocks[0])
	}
	rows, _ := blocks[0].Dims()
	total := 0
	for _, b := range blocks {
		_, c := b.Dims()
		total += c
	}
	out := mat.NewDense(rows, total, nil)
	offset := 0
	for _, b := range blocks {
		_, c := b.Dims()
		out.Slice(0, rows, offset, offset+c).(*mat.Dense).Copy(b)
		offset += c
	}
	return out
}
