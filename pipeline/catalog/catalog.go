// Package catalog は探索対象となる推定器とその探索空間を宣言します。
//
// Candidate は不変な設定として扱われ、評価側は必ず Clone したコピーで
// 学習します。宣言順は評価順でもあり、同点時の勝者を決めます。
package catalog

import (
	"github.com/YuminosukeSato/studentperf/core/model"
	"github.com/YuminosukeSato/studentperf/pkg/errors"
	"github.com/YuminosukeSato/studentperf/sklearn/ensemble"
	"github.com/YuminosukeSato/studentperf/sklearn/linear_model"
	"github.com/YuminosukeSato/studentperf/sklearn/model_selection"
	"github.com/YuminosukeSato/studentperf/sklearn/neighbors"
	"github.com/YuminosukeSato/studentperf/sklearn/tree"
)

// Names of the default candidates, in declaration order.
const (
	LinearRegression = "Linear Regression"
	Ridge            = "Ridge"
	DecisionTree     = "Decision Tree"
	RandomForest     = "Random Forest"
	KNeighbors       = "K-Neighbors Regressor"
)

// Candidate is a named estimator with its hyperparameter search space.
type Candidate struct {
	Name        string
	Estimator   model.Estimator
	SearchSpace model_selection.Grid
}

// Default returns the student-performance catalog. seed fixes the
// randomness of the tree ensembles.
func Default(seed int64) []Candidate {
	return []Candidate{
		{
			Name:        LinearRegression,
			Estimator:   linear_model.NewLinearRegression(),
			SearchSpace: model_selection.Grid{"fit_intercept": {true, false}},
		},
		{
			Name:        Ridge,
			Estimator:   linear_model.NewRidge(),
			SearchSpace: model_selection.Grid{"alpha": {0.1, 1.0, 10.0}},
		},
		{
			Name:      DecisionTree,
			Estimator: tree.NewDecisionTreeRegressor(tree.WithRandomState(seed)),
			SearchSpace: model_selection.Grid{
				"max_depth":        {3, 5, 8, 12},
				"min_samples_leaf": {1, 5},
			},
		},
		{
			Name: RandomForest,
			Estimator: ensemble.NewRandomForestRegressor(
				ensemble.WithNEstimators(32),
				ensemble.WithRandomState(seed),
			),
			SearchSpace: model_selection.Grid{
				"n_estimators": {16, 32},
				"max_depth":    {8, 12},
			},
		},
		{
			Name:      KNeighbors,
			Estimator: neighbors.NewKNeighborsRegressor(),
			SearchSpace: model_selection.Grid{
				"n_neighbors": {3, 5, 7, 9},
				"weights":     {"uniform", "distance"},
			},
		},
	}
}

// Select returns the default candidates named in names, in the order of
// names. An empty names selects the whole catalog.
func Select(names []string, seed int64) ([]Candidate, error) {
	all := Default(seed)
	if len(names) == 0 {
		return all, nil
	}
	byName := make(map[string]Candidate, len(all))
	for _, c := range all {
		byName[c.Name] = c
	}
	seen := make(map[string]bool, len(names))
	out := make([]Candidate, 0, len(names))
	for _, n := range names {
		c, ok := byName[n]
		if !ok {
			return nil, errors.NewValidationError("catalog.models", "unknown model", n)
		}
		if seen[n] {
			return nil, errors.NewValidationError("catalog.models", "duplicate model", n)
		}
		seen[n] = true
		out = append(out, c)
	}
	return out, nil
}

// Known reports whether name is a default candidate.
func Known(name string) bool {
	for _, c := range Default(0) {
		if c.Name == name {
			return true
		}
	}
	return false
}
