package model

import "gonum.org/v1/gonum/mat"

// Fitter は学習可能なモデルのインターフェース
type Fitter interface {
	// Fit はモデルを訓練データで学習させる。X と y は変更しない。
	Fit(X, y mat.Matrix) error
}

// Predictor は予測可能なモデルのインターフェース
type Predictor interface {
	// Predict は入力データに対する予測を n×1 行列で返す
	Predict(X mat.Matrix) (mat.Matrix, error)
}

// ParameterGetter はハイパーパラメータを公開するモデルのインターフェース
type ParameterGetter interface {
	// GetParams は現在のハイパーパラメータを返す
	GetParams() map[string]interface{}
}

// ParameterSetter はハイパーパラメータを変更できるモデルのインターフェース
type ParameterSetter interface {
	// SetParams はハイパーパラメータを設定する。
	// 未知のキーや型の合わないの値は ValidationError を返し、モデルは変更しない。
	SetParams(params map[string]interface{}) error
}

// Estimator は探索・学習・予測の対象となる回帰モデルの共通インターフェース。
// 候補モデルはすべてこのインターフェースを満たす。
type Estimator interface {
	Fitter
	Predictor
	ParameterGetter
	ParameterSetter

	// Name はモデルの種類名を返す（例: "Ridge"）
	Name() string

	// DefaultParams はコンストラクタのデフォルトハイパーパラメータを返す
	DefaultParams() map[string]interface{}

	// Clone は同じハイパーパラメータを持つ未学習のコピーを返す
	Clone() Estimator
}

// Transformer はデータ変換のインターフェース
type Transformer interface {
	// Fit は変換に必要なパラメータを学習する
	Fit(X mat.Matrix) error

	// Transform はデータを変換する
	Transform(X mat.Matrix) (mat.Matrix, error)

	// FitTransform はFitとTransformを同時に実行する
	FitTransform(X mat.Matrix) (mat.Matrix, error)
}
