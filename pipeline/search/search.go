// Package search は候補モデルごとにグリッドサーチ・学習・評価を行う
// オーケストレータを提供します。
//
// 探索の失敗は想定内の結果として扱われ、その候補はデフォルトパラメータで
// 学習し直されます。失敗理由は SearchFailureWarning として記録され、
// レポートの該当エントリにも残ります。
package search

import (
	"context"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/studentperf/core/model"
	"github.com/YuminosukeSato/studentperf/metrics"
	"github.com/YuminosukeSato/studentperf/pipeline/catalog"
	"github.com/YuminosukeSato/studentperf/pkg/errors"
	"github.com/YuminosukeSato/studentperf/pkg/log"
	"github.com/YuminosukeSato/studentperf/sklearn/model_selection"
)

// Folds is the number of cross-validation folds used by every search.
const Folds = 3

const op = "model evaluation"

// Orchestrator evaluates a catalog of candidates on one train/test split.
type Orchestrator struct {
	// NJobs limits concurrent fold fits inside one grid point. 0 is unlimited.
	NJobs  int
	Logger log.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithNJobs limits concurrent fold fits.
func WithNJobs(n int) Option {
	return func(o *Orchestrator) { o.NJobs = n }
}

// WithLogger replaces the process logger.
func WithLogger(l log.Logger) Option {
	return func(o *Orchestrator) { o.Logger = l }
}

// New creates an Orchestrator logging to the "search" process logger.
func New(opts ...Option) *Orchestrator {
	o := &Orchestrator{Logger: log.GetLoggerWithName("search")}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Evaluate runs New().Evaluate.
func Evaluate(ctx context.Context, candidates []catalog.Candidate, XTrain, yTrain, XTest, yTest mat.Matrix) (*Report, error) {
	return New().Evaluate(ctx, candidates, XTrain, yTrain, XTest, yTest)
}

// Evaluate tunes, fits and scores every candidate in declaration order and
// returns one entry per candidate. Candidates and input matrices are never
// modified. ctx is consulted only between candidates; a running search or
// fit is never interrupted.
//
// Errors are *errors.StageError: KindValidation for duplicate candidate
// names, KindFit when the matrices disagree in shape or a default-parameter
// fit fails, and the cause of ctx otherwise.
func (o *Orchestrator) Evaluate(ctx context.Context, candidates []catalog.Candidate,
	XTrain, yTrain, XTest, yTest mat.Matrix) (*Report, error) {
	if err := checkNames(candidates); err != nil {
		return nil, errors.Enrich(op, errors.KindValidation, err)
	}
	if err := checkShapes(XTrain, yTrain, XTest, yTest); err != nil {
		return nil, errors.Enrich(op, errors.KindFit, err)
	}

	report := &Report{entries: make([]Evaluation, 0, len(candidates))}
	for i, c := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, errors.Enrich(op, errors.KindInternal, err)
		}
		o.Logger.Info("Evaluating candidate",
			log.ModelNameKey, c.Name,
			"candidate.index", i+1,
			"candidate.total", len(candidates),
		)
		ev, err := o.evaluateOne(ctx, c, XTrain, yTrain, XTest, yTest)
		if err != nil {
			return nil, errors.Enrich(op, errors.KindFit, err)
		}
		report.entries = append(report.entries, ev)
	}
	return report, nil
}

func (o *Orchestrator) evaluateOne(ctx context.Context, c catalog.Candidate,
	XTrain, yTrain, XTest, yTest mat.Matrix) (Evaluation, error) {
	start := time.Now()
	ev := Evaluation{Name: c.Name}

	gs := model_selection.NewGridSearchCV(c.Estimator, c.SearchSpace,
		model_selection.WithCV(Folds),
		model_selection.WithNJobs(o.NJobs),
	)
	var est model.Estimator
	res, searchErr := gs.Fit(ctx, XTrain, yTrain)
	if searchErr == nil {
		est = c.Estimator.Clone()
		if err := est.SetParams(res.BestParams); err != nil {
			searchErr = errors.NewSearchError(c.Estimator.Name(), model_selection.ReasonRefitFailed, res.BestParams, err)
		} else if err := est.Fit(XTrain, yTrain); err != nil {
			searchErr = errors.NewSearchError(c.Estimator.Name(), model_selection.ReasonRefitFailed, res.BestParams, err)
		} else {
			ev.BestParams = res.BestParams
			ev.CVScore = res.BestScore
		}
	}

	if searchErr != nil {
		errors.Warn(errors.NewSearchFailureWarning(c.Name, searchErr))
		ev.Fallback = true
		ev.SearchErr = searchErr

		var err error
		est, err = FitDefault(c.Estimator, XTrain, yTrain)
		if err != nil {
			return ev, errors.Wrapf(err, "default-parameter fit of %s", c.Name)
		}
		ev.BestParams = est.DefaultParams()
	}

	pred, err := est.Predict(XTest)
	if err != nil {
		return ev, errors.Wrapf(err, "predict with %s", c.Name)
	}
	score, err := metrics.R2Score(yTest, pred)
	if err != nil {
		return ev, errors.Wrapf(err, "score %s", c.Name)
	}
	ev.Score = score
	ev.Estimator = est

	operation := log.OperationSearch
	if ev.Fallback {
		operation = log.OperationFit
	}
	o.Logger.Info("Candidate evaluated",
		log.ModelNameKey, c.Name,
		log.OperationKey, operation,
		log.R2ScoreKey, score,
		log.FallbackKey, ev.Fallback,
		log.HyperParamsKey, ev.BestParams,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return ev, nil
}

// checkNames rejects candidates sharing a name, since the report is keyed by it.
func checkNames(candidates []catalog.Candidate) error {
	seen := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		if seen[c.Name] {
			return errors.NewValidationError("candidates", "duplicate candidate name", c.Name)
		}
		seen[c.Name] = true
	}
	return nil
}

// FitDefault fits a fresh clone of estimator with its default parameters.
func FitDefault(estimator model.Estimator, X, y mat.Matrix) (model.Estimator, error) {
	est := estimator.Clone()
	if err := est.SetParams(est.DefaultParams()); err != nil {
		return nil, err
	}
	if err := est.Fit(X, y); err != nil {
		return nil, err
	}
	return est, nil
}

func checkShapes(XTrain, yTrain, XTest, yTest mat.Matrix) error {
	trainRows, trainCols := XTrain.Dims()
	testRows, testCols := XTest.Dims()
	if trainCols != testCols {
		return errors.NewDimensionError("Evaluate", trainCols, testCols, 1)
	}
	if r, _ := yTrain.Dims(); r != trainRows {
		return errors.NewDimensionError("Evaluate", trainRows, r, 0)
	}
	if r, _ := yTest.Dims(); r != testRows {
		return errors.NewDimensionError("Evaluate", testRows, r, 0)
	}
	return nil
}
