// Package trainer は評価レポートから最良の候補を選び、学習済みモデルを
// ArtifactStore に保存します。
package trainer

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/YuminosukeSato/studentperf/core/model"
	"github.com/YuminosukeSato/studentperf/pipeline/catalog"
	"github.com/YuminosukeSato/studentperf/pipeline/search"
	"github.com/YuminosukeSato/studentperf/pipeline/transformation"
	"github.com/YuminosukeSato/studentperf/pkg/errors"
	"github.com/YuminosukeSato/studentperf/pkg/log"
)

const op = "model training"

// Config controls candidate selection and the model artifact.
type Config struct {
	ModelPath string `yaml:"model_path"`
	// PlotPath receives the predicted-vs-actual plot. Empty disables it.
	PlotPath string `yaml:"plot_path"`
	// MinScore is the lowest acceptable test R² of the best candidate.
	MinScore float64 `yaml:"min_score"`
	// Models selects catalog entries by name. Empty means all.
	Models     []string `yaml:"models"`
	RandomSeed int64    `yaml:"random_seed"`
	NJobs      int      `yaml:"n_jobs"`
}

// DefaultConfig mirrors the project layout under artifacts/.
func DefaultConfig() Config {
	return Config{
		ModelPath:  filepath.Join("artifacts", "model.gob"),
		PlotPath:   filepath.Join("artifacts", "model_fit.png"),
		MinScore:   0.6,
		RandomSeed: 42,
	}
}

// Validate checks the configuration without touching the filesystem.
func (c Config) Validate() error {
	if c.ModelPath == "" {
		return errors.NewValidationError("trainer.model_path", "must not be empty", c.ModelPath)
	}
	if c.MinScore > 1 {
		return errors.NewValidationError("trainer.min_score", "R² cannot exceed 1", c.MinScore)
	}
	if c.NJobs < 0 {
		return errors.NewValidationError("trainer.n_jobs", "must be non-negative", c.NJobs)
	}
	for _, name := range c.Models {
		if !catalog.Known(name) {
			return errors.NewValidationError("trainer.models", "unknown model", name)
		}
	}
	return nil
}

// ErrNoBestModel is returned when no candidate reaches MinScore.
var ErrNoBestModel = errors.New("no best model found")

// Result summarizes a training run.
type Result struct {
	BestName   string
	Score      float64
	BestParams map[string]interface{}
	ModelPath  string
	Report     *search.Report
}

// Run evaluates the configured candidates on data, keeps the best one and
// saves it. The saved estimator is the one the orchestrator already fitted
// and scored. A best score below MinScore fails with KindFit.
func Run(ctx context.Context, cfg Config, data *transformation.Data) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Enrich(op, errors.KindValidation, err)
	}
	candidates, err := catalog.Select(cfg.Models, cfg.RandomSeed)
	if err != nil {
		return nil, errors.Enrich(op, errors.KindValidation, err)
	}
	return RunCandidates(ctx, cfg, candidates, data)
}

// RunCandidates is Run with an explicit candidate list.
func RunCandidates(ctx context.Context, cfg Config, candidates []catalog.Candidate, data *transformation.Data) (*Result, error) {
	logger := log.GetLoggerWithName("trainer")
	start := time.Now()

	report, err := search.New(search.WithNJobs(cfg.NJobs)).
		Evaluate(ctx, candidates, data.XTrain, data.YTrain, data.XTest, data.YTest)
	if err != nil {
		logger.Error("Model evaluation failed", err)
		return nil, err
	}

	best, ok := report.Best()
	if !ok || best.Score < cfg.MinScore {
		err := errors.Enrich(op, errors.KindFit, errors.Wrapf(ErrNoBestModel,
			"best score %.4f below minimum %.4f", best.Score, cfg.MinScore))
		logger.Error("No acceptable model", err, "scores", fmt.Sprint(report.Scores()))
		return nil, err
	}
	logger.Info("Best model selected",
		log.ModelNameKey, best.Name,
		log.R2ScoreKey, best.Score,
		log.HyperParamsKey, best.BestParams,
	)

	if err := model.SaveModel(cfg.ModelPath, best.Estimator); err != nil {
		logger.Error("Saving model failed", err)
		return nil, err
	}

	if cfg.PlotPath != "" {
		err := errors.Guard(op, errors.KindIO, func() error {
			pred, err := best.Estimator.Predict(data.XTest)
			if err != nil {
				return err
			}
			return SavePredictionPlot(cfg.PlotPath, fmt.Sprintf("%s (R² = %.3f)", best.Name, best.Score), data.YTest, pred)
		})
		if err != nil {
			logger.Error("Saving prediction plot failed", err)
			return nil, err
		}
	}

	logger.Info("Model training completed",
		log.PathKey, cfg.ModelPath,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return &Result{
		BestName:   best.Name,
		Score:      best.Score,
		BestParams: best.BestParams,
		ModelPath:  cfg.ModelPath,
		Report:     report,
	}, nil
}
