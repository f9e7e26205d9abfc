// Package pipeline runs the training stages one after another:
// ingestion, transformation, then model selection and training.
package pipeline

import (
	"context"
	"time"

	"github.com/YuminosukeSato/studentperf/config"
	"github.com/YuminosukeSato/studentperf/pipeline/ingestion"
	"github.com/YuminosukeSato/studentperf/pipeline/trainer"
	"github.com/YuminosukeSato/studentperf/pipeline/transformation"
	"github.com/YuminosukeSato/studentperf/pkg/log"
)

// Run executes the full training pipeline. The transformation stage reads
// the files the ingestion stage wrote, whatever cfg.Transformation says.
// Every error is an *errors.StageError.
func Run(ctx context.Context, cfg *config.Config) (*trainer.Result, error) {
	logger := log.GetLoggerWithName("pipeline")
	start := time.Now()

	out, err := ingestion.Run(cfg.Ingestion)
	if err != nil {
		return nil, err
	}

	tcfg := cfg.Transformation
	tcfg.TrainDataPath = out.TrainDataPath
	tcfg.TestDataPath = out.TestDataPath
	data, err := transformation.Run(tcfg)
	if err != nil {
		return nil, err
	}

	res, err := trainer.Run(ctx, cfg.Trainer, data)
	if err != nil {
		return nil, err
	}
	logger.Info("Pipeline completed",
		log.ModelNameKey, res.BestName,
		log.R2ScoreKey, res.Score,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return res, nil
}
