package model_selection

import (
	"sort"

	"github.com/YuminosukeSato/studentperf/pkg/errors"
)

// Grid maps a hyperparameter name to the ordered values to try.
type Grid map[string][]interface{}

// Keys returns the parameter names in sorted order.
func (g Grid) Keys() []string {
	keys := make([]string, 0, len(g))
	for k := range g {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Size returns the number of points in the grid.
func (g Grid) Size() int {
	if len(g) == 0 {
		return 0
	}
	n := 1
	for _, values := range g {
		n *= len(values)
	}
	return n
}

// ParameterGrid expands g into every combination. Keys are iterated in
// sorted order and the last key varies fastest, matching scikit-learn.
// An empty grid, or a key without values, is an error.
func ParameterGrid(g Grid) ([]map[string]interface{}, error) {
	if g.Size() == 0 {
		return nil, errors.ErrEmptySearchSpace
	}

	keys := g.Keys()
	points := []map[string]interface{}{{}}
	for _, k := range keys {
		next := make([]map[string]interface{}, 0, len(points)*len(g[k]))
		for _, p := range points {
			for _, v := range g[k] {
				q := make(map[string]interface{}, len(p)+1)
				for pk, pv := range p {
					q[pk] = pv
				}
				q[k] = v
				next = append(next, q)
			}
		}
		points = next
	}
	return points, nil
}
