package model_selection

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/studentperf/core/model"
	"github.com/YuminosukeSato/studentperf/metrics"
	"github.com/YuminosukeSato/studentperf/pkg/errors"
	"github.com/YuminosukeSato/studentperf/pkg/log"
)

// Reasons recorded on a SearchError.
const (
	ReasonEmptySpace     = "empty search space"
	ReasonInvalidParams  = "invalid parameters"
	ReasonTooFewSamples  = "too few samples for cross-validation"
	ReasonFoldFailed     = "fold evaluation failed"
	ReasonNonFiniteScore = "non-finite cross-validation score"
	ReasonUnknownScoring = "unknown scoring"
	ReasonRefitFailed    = "refit with best parameters failed"
)

// CVResult is the cross-validation outcome of one grid point.
type CVResult struct {
	Params     map[string]interface{}
	FoldScores []float64
	MeanScore  float64
	StdScore   float64
}

// SearchResult is the typed outcome of GridSearchCV.Fit.
type SearchResult struct {
	BestParams    map[string]interface{}
	BestScore     float64
	BestIndex     int
	Results       []CVResult
	BestEstimator model.Estimator // nil unless Refit
}

// GridSearchCV evaluates every point of Grid by k-fold cross-validation
// and selects the point with the highest mean score. Ties go to the
// earliest point.
type GridSearchCV struct {
	Estimator model.Estimator
	Grid      Grid
	CV        int    // fold 数。0 は 3
	Scoring   string // metrics.ByName のキー。"" は r2
	NJobs     int    // 同時に評価する fold 数。0 は制限なし
	Refit     bool
}

// GridSearchOption configures a GridSearchCV.
type GridSearchOption func(*GridSearchCV)

// WithCV sets the number of folds.
func WithCV(k int) GridSearchOption {
	return func(gs *GridSearchCV) { gs.CV = k }
}

// WithScoring selects the metric maximized by the search.
func WithScoring(name string) GridSearchOption {
	return func(gs *GridSearchCV) { gs.Scoring = name }
}

// WithNJobs limits concurrent fold evaluations.
func WithNJobs(n int) GridSearchOption {
	return func(gs *GridSearchCV) { gs.NJobs = n }
}

// WithRefit refits a clone with the best parameters on the full data.
func WithRefit(refit bool) GridSearchOption {
	return func(gs *GridSearchCV) { gs.Refit = refit }
}

// NewGridSearchCV creates a 3-fold, R²-scored search.
func NewGridSearchCV(estimator model.Estimator, grid Grid, opts ...GridSearchOption) *GridSearchCV {
	gs := &GridSearchCV{Estimator: estimator, Grid: grid, CV: 3}
	for _, opt := range opts {
		opt(gs)
	}
	return gs
}

// Fit runs the search. The estimator itself is never modified: every fold
// works on its own clone. Any failure is returned as *errors.SearchError.
func (gs *GridSearchCV) Fit(ctx context.Context, X, y mat.Matrix) (*SearchResult, error) {
	name := gs.Estimator.Name()
	logger := log.GetLoggerWithName("model_selection").With(log.ModelNameKey, name)
	start := time.Now()

	scorer, ok := metrics.ByName(gs.Scoring)
	if !ok {
		return nil, errors.NewSearchError(name, ReasonUnknownScoring, nil, errors.NewValidationError("scoring", "unknown scorer", gs.Scoring))
	}

	points, err := ParameterGrid(gs.Grid)
	if err != nil {
		return nil, errors.NewSearchError(name, ReasonEmptySpace, nil, err)
	}
	for _, p := range points {
		if err := gs.Estimator.Clone().SetParams(p); err != nil {
			return nil, errors.NewSearchError(name, ReasonInvalidParams, p, err)
		}
	}

	rows, _ := X.Dims()
	k := gs.CV
	if k == 0 {
		k = 3
	}
	folds, err := NewKFold(k, false, 0).Split(rows)
	if err != nil {
		return nil, errors.NewSearchError(name, ReasonTooFewSamples, nil, err)
	}

	logger.Debug("Grid search started", log.GridSizeKey, len(points), log.SamplesKey, rows)

	result := &SearchResult{BestIndex: -1, Results: make([]CVResult, 0, len(points))}
	for idx, p := range points {
		scores, err := CrossValScore(ctx, gs.Estimator, p, X, y, folds, scorer, gs.NJobs)
		if err != nil {
			return nil, errors.NewSearchError(name, ReasonFoldFailed, p, err)
		}
		mean, std := stat.PopMeanStdDev(scores, nil)
		if err := errors.CheckScalar("cv_score", mean, idx); err != nil {
			return nil, errors.NewSearchError(name, ReasonNonFiniteScore, p, err)
		}
		result.Results = append(result.Results, CVResult{Params: p, FoldScores: scores, MeanScore: mean, StdScore: std})
		if result.BestIndex < 0 || mean > result.BestScore {
			result.BestIndex = idx
			result.BestScore = mean
		}
	}
	result.BestParams = points[result.BestIndex]

	if gs.Refit {
		best := gs.Estimator.Clone()
		if err := best.SetParams(result.BestParams); err != nil {
			return nil, errors.NewSearchError(name, ReasonRefitFailed, result.BestParams, err)
		}
		if err := best.Fit(X, y); err != nil {
			return nil, errors.NewSearchError(name, ReasonRefitFailed, result.BestParams, err)
		}
		result.BestEstimator = best
	}

	logger.Debug("Grid search finished",
		log.HyperParamsKey, result.BestParams,
		log.CVScoreKey, result.BestScore,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return result, nil
}

// CrossValScore fits a clone of estimator with params on every training
// fold and scores it on the matching test fold. Folds run concurrently,
// at most nJobs at a time when nJobs > 0. Scores are returned in fold order.
// Cancelling ctx does not interrupt a running evaluation; only the failure
// of a sibling fold stops the folds that have not started yet.
func CrossValScore(ctx context.Context, estimator model.Estimator, params map[string]interface{},
	X, y mat.Matrix, folds []CVFold, scorer metrics.Scorer, nJobs int) ([]float64, error) {
	scores := make([]float64, len(folds))

	g, gctx := errgroup.WithContext(context.WithoutCancel(ctx))
	if nJobs > 0 {
		g.SetLimit(nJobs)
	}
	for i, fold := range folds {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			est := estimator.Clone()
			if err := est.SetParams(params); err != nil {
				return err
			}
			XTrain, yTrain := ExtractSubset(X, y, fold.TrainIndices)
			XTest, yTest := ExtractSubset(X, y, fold.TestIndices)
			if err := est.Fit(XTrain, yTrain); err != nil {
				return errors.Wrapf(err, "fold %d", i)
			}
			pred, err := est.Predict(XTest)
			if err != nil {
				return errors.Wrapf(err, "fold %d", i)
			}
			s, err := scorer(yTest, pred)
			if err != nil {
				return errors.Wrapf(err, "fold %d", i)
			}
			scores[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return scores, nil
}
