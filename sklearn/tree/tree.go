// Package tree provides a CART regression tree.
package tree

import (
	"fmt"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/studentperf/core/model"
	"github.com/YuminosukeSato/studentperf/pkg/errors"
)

func init() {
	model.Register(&DecisionTreeRegressor{})
}

// CriterionSquaredError is the only supported split criterion.
const CriterionSquaredError = "squared_error"

// leaf marks a node without children.
const leaf = -1

// Node is one node of the flattened tree. Children are indices into
// DecisionTreeRegressor.Nodes.
type Node struct {
	Feature   int
	Threshold float64
	Left      int
	Right     int
	Value     float64
	NSamples  int
	Impurity  float64
}

// DecisionTreeRegressor は二乗誤差を最小化する CART 回帰木
type DecisionTreeRegressor struct {
	State *model.StateManager

	// Hyperparameters
	Criterion       string
	MaxDepth        int // 0 は無制限
	MinSamplesSplit int
	MinSamplesLeaf  int
	MaxFeatures     int // 0 はすべての特徴量
	RandomState     int64

	// Learned structure
	Nodes              []Node
	FeatureImportances []float64
}

// Option は DecisionTreeRegressor の設定オプション
type Option func(*DecisionTreeRegressor)

// WithCriterion sets the split criterion.
func WithCriterion(criterion string) Option {
	return func(dt *DecisionTreeRegressor) { dt.Criterion = criterion }
}

// WithMaxDepth limits the depth of the tree. 0 means unlimited.
func WithMaxDepth(depth int) Option {
	return func(dt *DecisionTreeRegressor) { dt.MaxDepth = depth }
}

// WithMinSamplesSplit sets the minimum number of samples needed to split a node.
func WithMinSamplesSplit(n int) Option {
	return func(dt *DecisionTreeRegressor) { dt.MinSamplesSplit = n }
}

// WithMinSamplesLeaf sets the minimum number of samples in each leaf.
func WithMinSamplesLeaf(n int) Option {
	return func(dt *DecisionTreeRegressor) { dt.MinSamplesLeaf = n }
}

// WithMaxFeatures sets how many features are considered per split. 0 means all.
func WithMaxFeatures(n int) Option {
	return func(dt *DecisionTreeRegressor) { dt.MaxFeatures = n }
}

// WithRandomState seeds the feature sampling.
func WithRandomState(seed int64) Option {
	return func(dt *DecisionTreeRegressor) { dt.RandomState = seed }
}

// NewDecisionTreeRegressor creates a tree with scikit-learn's defaults.
func NewDecisionTreeRegressor(opts ...Option) *DecisionTreeRegressor {
	dt := &DecisionTreeRegressor{
		State:           model.NewStateManager(),
		Criterion:       CriterionSquaredError,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
	}
	for _, opt := range opts {
		opt(dt)
	}
	return dt
}

// Name implements model.Estimator.
func (dt *DecisionTreeRegressor) Name() string { return "DecisionTreeRegressor" }

// Validate checks the hyperparameters.
func (dt *DecisionTreeRegressor) Validate() error {
	return dt.validate()
}

func (dt *DecisionTreeRegressor) validate() error {
	if dt.Criterion != CriterionSquaredError {
		return errors.NewValidationError("criterion", "only squared_error is supported", dt.Criterion)
	}
	if dt.MaxDepth < 0 {
		return errors.NewValidationError("max_depth", "must be >= 0", dt.MaxDepth)
	}
	if dt.MinSamplesSplit < 2 {
		return errors.NewValidationError("min_samples_split", "must be >= 2", dt.MinSamplesSplit)
	}
	if dt.MinSamplesLeaf < 1 {
		return errors.NewValidationError("min_samples_leaf", "must be >= 1", dt.MinSamplesLeaf)
	}
	if dt.MaxFeatures < 0 {
		return errors.NewValidationError("max_features", "must be >= 0", dt.MaxFeatures)
	}
	return nil
}

// Fit grows the tree on X and y.
func (dt *DecisionTreeRegressor) Fit(X, y mat.Matrix) error {
	if err := dt.validate(); err != nil {
		return err
	}
	rows, cols, err := model.CheckFitInput("DecisionTreeRegressor.Fit", X, y)
	if err != nil {
		return err
	}

	b := &builder{
		dt:          dt,
		X:           mat.DenseCopyOf(X),
		y:           mat.Col(nil, 0, y),
		nFeatures:   cols,
		importances: make([]float64, cols),
		rng:         rand.New(rand.NewPCG(uint64(dt.RandomState), uint64(dt.RandomState))),
	}
	indices := make([]int, rows)
	for i := range indices {
		indices[i] = i
	}
	b.grow(indices, 0)

	var total float64
	for _, v := range b.importances {
		total += v
	}
	if total > 0 {
		for i := range b.importances {
			b.importances[i] /= total
		}
	}

	dt.Nodes = b.nodes
	dt.FeatureImportances = b.importances
	if dt.State == nil {
		dt.State = model.NewStateManager()
	}
	dt.State.SetFitted(cols, rows)
	return nil
}

// Predict returns the mean target of the leaf each row falls into.
func (dt *DecisionTreeRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	rows, err := model.CheckPredictInput("DecisionTreeRegressor", dt.State, X)
	if err != nil {
		return nil, err
	}
	out := mat.NewDense(rows, 1, nil)
	for i := 0; i < rows; i++ {
		out.Set(i, 0, dt.predictRow(X, i))
	}
	return out, nil
}

func (dt *DecisionTreeRegressor) predictRow(X mat.Matrix, i int) float64 {
	n := 0
	for dt.Nodes[n].Feature != leaf {
		node := dt.Nodes[n]
		if X.At(i, node.Feature) <= node.Threshold {
			n = node.Left
		} else {
			n = node.Right
		}
	}
	return dt.Nodes[n].Value
}

// IsFitted returns whether the model has been fitted.
func (dt *DecisionTreeRegressor) IsFitted() bool {
	return dt.State != nil && dt.State.IsFitted()
}

// GetDepth returns the depth of the fitted tree. A single leaf has depth 0.
func (dt *DecisionTreeRegressor) GetDepth() int {
	if len(dt.Nodes) == 0 {
		return 0
	}
	var depth func(n int) int
	depth = func(n int) int {
		node := dt.Nodes[n]
		if node.Feature == leaf {
			return 0
		}
		return 1 + max(depth(node.Left), depth(node.Right))
	}
	return depth(0)
}

// GetNLeaves returns the number of leaves.
func (dt *DecisionTreeRegressor) GetNLeaves() int {
	n := 0
	for _, node := range dt.Nodes {
		if node.Feature == leaf {
			n++
		}
	}
	return n
}

// GetFeatureImportances returns the normalized impurity decrease per feature.
func (dt *DecisionTreeRegressor) GetFeatureImportances() []float64 {
	return append([]float64(nil), dt.FeatureImportances...)
}

// GetParams returns the hyperparameters.
func (dt *DecisionTreeRegressor) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"criterion":         dt.Criterion,
		"max_depth":         dt.MaxDepth,
		"min_samples_split": dt.MinSamplesSplit,
		"min_samples_leaf":  dt.MinSamplesLeaf,
		"max_features":      dt.MaxFeatures,
		"random_state":      dt.RandomState,
	}
}

// DefaultParams returns the constructor defaults.
func (dt *DecisionTreeRegressor) DefaultParams() map[string]interface{} {
	return NewDecisionTreeRegressor().GetParams()
}

// SetParams sets hyperparameters. A nil max_depth means unlimited.
// Nothing changes on error.
func (dt *DecisionTreeRegressor) SetParams(params map[string]interface{}) error {
	if err := model.CheckParamKeys(dt.Name(), params,
		"criterion", "max_depth", "min_samples_split", "min_samples_leaf", "max_features", "random_state"); err != nil {
		return err
	}
	next := *dt
	for key, v := range params {
		var err error
		switch key {
		case "criterion":
			next.Criterion, err = model.ParamString(key, v)
		case "max_depth":
			next.MaxDepth, err = model.ParamOptionalInt(key, v)
		case "min_samples_split":
			next.MinSamplesSplit, err = model.ParamInt(key, v)
		case "min_samples_leaf":
			next.MinSamplesLeaf, err = model.ParamInt(key, v)
		case "max_features":
			next.MaxFeatures, err = model.ParamOptionalInt(key, v)
		case "random_state":
			var seed int
			seed, err = model.ParamInt(key, v)
			next.RandomState = int64(seed)
		}
		if err != nil {
			return err
		}
	}
	if err := next.validate(); err != nil {
		return err
	}
	dt.Criterion = next.Criterion
	dt.MaxDepth = next.MaxDepth
	dt.MinSamplesSplit = next.MinSamplesSplit
	dt.MinSamplesLeaf = next.MinSamplesLeaf
	dt.MaxFeatures = next.MaxFeatures
	dt.RandomState = next.RandomState
	return nil
}

// Clone returns an unfitted tree with the same hyperparameters.
func (dt *DecisionTreeRegressor) Clone() model.Estimator {
	return dt.cloneTree()
}

func (dt *DecisionTreeRegressor) cloneTree() *DecisionTreeRegressor {
	return NewDecisionTreeRegressor(
		WithCriterion(dt.Criterion),
		WithMaxDepth(dt.MaxDepth),
		WithMinSamplesSplit(dt.MinSamplesSplit),
		WithMinSamplesLeaf(dt.MinSamplesLeaf),
		WithMaxFeatures(dt.MaxFeatures),
		WithRandomState(dt.RandomState),
	)
}

// String returns the string representation of the model.
func (dt *DecisionTreeRegressor) String() string {
	return fmt.Sprintf("DecisionTreeRegressor(max_depth=%d, min_samples_split=%d, min_samples_leaf=%d)",
		dt.MaxDepth, dt.MinSamplesSplit, dt.MinSamplesLeaf)
}

// builder grows the tree depth first.
type builder struct {
	dt          *DecisionTreeRegressor
	X           *mat.Dense
	y           []float64
	nFeatures   int
	nodes       []Node
	importances []float64
	rng         *rand.Rand
}

type split struct {
	feature   int
	threshold float64
	gain      float64
	left      []int
	right     []int
}

func (b *builder) grow(indices []int, depth int) int {
	value, impurity := b.stats(indices)
	id := len(b.nodes)
	b.nodes = append(b.nodes, Node{
		Feature:  leaf,
		Left:     leaf,
		Right:    leaf,
		Value:    value,
		NSamples: len(indices),
		Impurity: impurity,
	})

	if b.dt.MaxDepth > 0 && depth >= b.dt.MaxDepth {
		return id
	}
	if len(indices) < b.dt.MinSamplesSplit || len(indices) < 2*b.dt.MinSamplesLeaf || impurity <= 1e-12 {
		return id
	}

	best, ok := b.bestSplit(indices, impurity)
	if !ok {
		return id
	}

	b.importances[best.feature] += best.gain
	left := b.grow(best.left, depth+1)
	right := b.grow(best.right, depth+1)
	b.nodes[id].Feature = best.feature
	b.nodes[id].Threshold = best.threshold
	b.nodes[id].Left = left
	b.nodes[id].Right = right
	return id
}

// stats returns the mean and the mean squared deviation of the targets.
func (b *builder) stats(indices []int) (float64, float64) {
	var sum, sumSq float64
	for _, i := range indices {
		sum += b.y[i]
		sumSq += b.y[i] * b.y[i]
	}
	n := float64(len(indices))
	mean := sum / n
	return mean, max(sumSq/n-mean*mean, 0)
}

func (b *builder) candidateFeatures() []int {
	features := make([]int, b.nFeatures)
	for i := range features {
		features[i] = i
	}
	k := b.dt.MaxFeatures
	if k <= 0 || k >= b.nFeatures {
		return features
	}
	b.rng.Shuffle(len(features), func(i, j int) { features[i], features[j] = features[j], features[i] })
	features = features[:k]
	sort.Ints(features)
	return features
}

// bestSplit scans every threshold between distinct consecutive values.
// gain is the weighted impurity decrease n·imp - nL·impL - nR·impR.
func (b *builder) bestSplit(indices []int, impurity float64) (split, bool) {
	n := len(indices)
	minLeaf := b.dt.MinSamplesLeaf
	var best split
	found := false

	order := make([]int, n)
	for _, f := range b.candidateFeatures() {
		copy(order, indices)
		sort.SliceStable(order, func(a, c int) bool { return b.X.At(order[a], f) < b.X.At(order[c], f) })

		var totalSum, totalSq float64
		for _, i := range order {
			totalSum += b.y[i]
			totalSq += b.y[i] * b.y[i]
		}

		var leftSum, leftSq float64
		for pos := 0; pos < n-1; pos++ {
			yi := b.y[order[pos]]
			leftSum += yi
			leftSq += yi * yi

			nl := pos + 1
			nr := n - nl
			if nl < minLeaf || nr < minLeaf {
				continue
			}
			cur := b.X.At(order[pos], f)
			next := b.X.At(order[pos+1], f)
			if next <= cur {
				continue
			}

			rightSum := totalSum - leftSum
			rightSq := totalSq - leftSq
			sseLeft := leftSq - leftSum*leftSum/float64(nl)
			sseRight := rightSq - rightSum*rightSum/float64(nr)
			gain := float64(n)*impurity - sseLeft - sseRight

			if gain > 1e-12 && (!found || gain > best.gain) {
				found = true
				best.feature = f
				best.threshold = cur + (next-cur)/2
				if best.threshold == next {
					best.threshold = cur
				}
				best.gain = gain
			}
		}
	}
	if !found {
		return split{}, false
	}

	for _, i := range indices {
		if b.X.At(i, best.feature) <= best.threshold {
			best.left = append(best.left, i)
		} else {
			best.right = append(best.right, i)
		}
	}
	return best, true
}
