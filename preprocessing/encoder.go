package preprocessing

import (
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/studentperf/core/model"
	"github.com/YuminosukeSato/studentperf/pkg/errors"
)

// HandleUnknown values for OneHotEncoder.
const (
	HandleUnknownError  = "error"
	HandleUnknownIgnore = "ignore"
)

// OneHotEncoder はカテゴリ列を 0/1 の列に展開する。
// カテゴリは列ごとに辞書順で並ぶ（scikit-learn と同じ）。
type OneHotEncoder struct {
	State *model.StateManager

	// HandleUnknown は未知のカテゴリの扱い。"error"（デフォルト）か "ignore"
	HandleUnknown string

	// Categories は列ごとの学習済みカテゴリ
	Categories [][]string
}

// NewOneHotEncoder creates an encoder that fails on unseen categories.
func NewOneHotEncoder() *OneHotEncoder {
	return &OneHotEncoder{State: model.NewStateManager(), HandleUnknown: HandleUnknownError}
}

// IsFitted reports whether Fit has completed.
func (e *OneHotEncoder) IsFitted() bool {
	return e.State != nil && e.State.IsFitted()
}

// Fit learns the sorted distinct categories of every column.
func (e *OneHotEncoder) Fit(rows [][]string) error {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return errors.NewModelError("OneHotEncoder.Fit", "empty data", errors.ErrEmptyData)
	}
	if e.HandleUnknown != HandleUnknownError && e.HandleUnknown != HandleUnknownIgnore {
		return errors.NewValidationError("handle_unknown", "must be error or ignore", e.HandleUnknown)
	}
	if e.State == nil {
		e.State = model.NewStateManager()
	}

	c := len(rows[0])
	cats := make([][]string, c)
	for j := 0; j < c; j++ {
		seen := make(map[string]bool)
		for _, row := range rows {
			if len(row) != c {
				return errors.NewDimensionError("OneHotEncoder.Fit", c, len(row), 1)
			}
			if !seen[row[j]] {
				seen[row[j]] = true
				cats[j] = append(cats[j], row[j])
			}
		}
		sort.Strings(cats[j])
	}

	e.Categories = cats
	e.State.SetFitted(c, len(rows))
	return nil
}

// NOutputs returns the number of encoded columns.
func (e *OneHotEncoder) NOutputs() int {
	n := 0
	for _, c := range e.Categories {
		n += len(c)
	}
	return n
}

// Transform returns the one-hot matrix of rows.
func (e *OneHotEncoder) Transform(rows [][]string) (mat.Matrix, error) {
	if !e.IsFitted() {
		return nil, errors.NewNotFittedError("OneHotEncoder", "Transform")
	}
	if len(rows) == 0 {
		return nil, errors.NewModelError("OneHotEncoder.Transform", "empty data", errors.ErrEmptyData)
	}

	offsets := make([]int, len(e.Categories))
	total := 0
	for j, c := range e.Categories {
		offsets[j] = total
		total += len(c)
	}

	out := mat.NewDense(len(rows), total, nil)
	for i, row := range rows {
		if len(row) != len(e.Categories) {
			return nil, errors.NewDimensionError("OneHotEncoder.Transform", len(e.Categories), len(row), 1)
		}
		for j, v := range row {
			k := sort.SearchStrings(e.Categories[j], v)
			if k < len(e.Categories[j]) && e.Categories[j][k] == v {
				out.Set(i, offsets[j]+k, 1)
				continue
			}
			if e.HandleUnknown == HandleUnknownError {
				return nil, errors.NewValidationError("category", "unknown category in column "+itoa(j), v)
			}
		}
	}
	return out, nil
}

// FeatureNames returns "<input>_<category>" for each encoded column.
func (e *OneHotEncoder) FeatureNames(inputs []string) []string {
	names := make([]string, 0, e.NOutputs())
	for j, cats := range e.Categories {
		prefix := itoa(j)
		if j < len(inputs) {
			prefix = inputs[j]
		}
		for _, c := range cats {
			names = append(names, prefix+"_"+c)
		}
	}
	return names
}
