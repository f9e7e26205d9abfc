// Package ingestion reads the source CSV, keeps a raw copy, and writes a
// seeded train/test split next to it.
package ingestion

import (
	"path/filepath"
	"time"

	"github.com/YuminosukeSato/studentperf/pkg/errors"
	"github.com/YuminosukeSato/studentperf/pkg/log"
	"github.com/YuminosukeSato/studentperf/preprocessing"
	"github.com/YuminosukeSato/studentperf/sklearn/model_selection"
)

const op = "data ingestion"

// Config holds the paths and split parameters of the ingestion stage.
type Config struct {
	SourcePath    string  `yaml:"source_path"`
	RawDataPath   string  `yaml:"raw_data_path"`
	TrainDataPath string  `yaml:"train_data_path"`
	TestDataPath  string  `yaml:"test_data_path"`
	TestSize      float64 `yaml:"test_size"`
	RandomSeed    uint64  `yaml:"random_seed"`
}

// DefaultConfig returns the project layout under artifacts/.
func DefaultConfig() Config {
	return Config{
		SourcePath:    filepath.Join("notebooks", "data", "stud.csv"),
		RawDataPath:   filepath.Join("artifacts", "data.csv"),
		TrainDataPath: filepath.Join("artifacts", "train.csv"),
		TestDataPath:  filepath.Join("artifacts", "test.csv"),
		TestSize:      0.2,
		RandomSeed:    42,
	}
}

// Validate checks the configuration without touching the filesystem.
func (c Config) Validate() error {
	paths := []struct{ name, value string }{
		{"ingestion.source_path", c.SourcePath},
		{"ingestion.raw_data_path", c.RawDataPath},
		{"ingestion.train_data_path", c.TrainDataPath},
		{"ingestion.test_data_path", c.TestDataPath},
	}
	for _, p := range paths {
		if p.value == "" {
			return errors.NewValidationError(p.name, "must not be empty", p.value)
		}
	}
	if !(c.TestSize > 0 && c.TestSize < 1) {
		return errors.NewValidationError("ingestion.test_size", "must be in (0, 1)", c.TestSize)
	}
	return nil
}

// Output names the files consumed by the transformation stage.
type Output struct {
	TrainDataPath string
	TestDataPath  string
	TrainRows     int
	TestRows      int
}

// Run executes the stage. Invalid configuration fails with KindValidation
// before any file is read; every other failure is KindIO.
func Run(cfg Config) (Output, error) {
	if err := cfg.Validate(); err != nil {
		return Output{}, errors.Enrich(op, errors.KindValidation, err)
	}

	logger := log.GetLoggerWithName("ingestion")
	var out Output
	err := errors.Guard(op, errors.KindIO, func() error {
		start := time.Now()
		logger.Info("Starting data ingestion", log.PathKey, cfg.SourcePath, log.RandomSeedKey, cfg.RandomSeed)

		frame, err := preprocessing.ReadCSVFile(cfg.SourcePath)
		if err != nil {
			return err
		}
		logger.Info("Read the raw data", log.SamplesKey, frame.Len(), log.FeaturesKey, len(frame.Columns))

		if err := frame.WriteCSVFile(cfg.RawDataPath); err != nil {
			return err
		}
		logger.Info("Raw data saved", log.PathKey, cfg.RawDataPath)

		trainIdx, testIdx, err := model_selection.TrainTestSplit(frame.Len(), cfg.TestSize, cfg.RandomSeed)
		if err != nil {
			return err
		}
		train, test := frame.Subset(trainIdx), frame.Subset(testIdx)
		if err := train.WriteCSVFile(cfg.TrainDataPath); err != nil {
			return err
		}
		if err := test.WriteCSVFile(cfg.TestDataPath); err != nil {
			return err
		}

		out = Output{
			TrainDataPath: cfg.TrainDataPath,
			TestDataPath:  cfg.TestDataPath,
			TrainRows:     train.Len(),
			TestRows:      test.Len(),
		}
		logger.Info("Data ingestion completed",
			"split.train_rows", out.TrainRows,
			"split.test_rows", out.TestRows,
			log.DurationMsKey, time.Since(start).Milliseconds(),
		)
		return nil
	})
	if err != nil {
		logger.Error("Error occurred during data ingestion", err)
		return Output{}, err
	}
	return out, nil
}
