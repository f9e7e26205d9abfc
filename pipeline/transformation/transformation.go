// Package transformation turns the train/test CSV files into feature
// matrices and persists the fitted preprocessor.
package transformation

import (
	"fmt"
	"math"
	"path/filepath"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/studentperf/core/model"
	"github.com/YuminosukeSato/studentperf/pkg/errors"
	"github.com/YuminosukeSato/studentperf/pkg/log"
	"github.com/YuminosukeSato/studentperf/preprocessing"
)

const op = "data transformation"

// Config holds the inputs and the preprocessor layout.
type Config struct {
	TrainDataPath      string   `yaml:"train_data_path"`
	TestDataPath       string   `yaml:"test_data_path"`
	PreprocessorPath   string   `yaml:"preprocessor_path"`
	TargetColumn       string   `yaml:"target_column"`
	NumericColumns     []string `yaml:"numeric_columns"`
	CategoricalColumns []string `yaml:"categorical_columns"`
	// Scaling is "standard" or "minmax" for the numeric columns.
	Scaling string `yaml:"scaling"`
	// HandleUnknown is "error" or "ignore" for unseen test categories.
	HandleUnknown string `yaml:"handle_unknown"`
}

// DefaultConfig returns the student-performance feature layout.
func DefaultConfig() Config {
	return Config{
		TrainDataPath:    filepath.Join("artifacts", "train.csv"),
		TestDataPath:     filepath.Join("artifacts", "test.csv"),
		PreprocessorPath: filepath.Join("artifacts", "preprocessor.gob"),
		TargetColumn:     "math_score",
		NumericColumns:   []string{"writing_score", "reading_score"},
		CategoricalColumns: []string{
			"gender",
			"race_ethnicity",
			"parental_level_of_education",
			"lunch",
			"test_preparation_course",
		},
		Scaling:       preprocessing.ScalingStandard,
		HandleUnknown: preprocessing.HandleUnknownIgnore,
	}
}

// Validate checks the configuration without touching the filesystem.
func (c Config) Validate() error {
	switch {
	case c.TrainDataPath == "":
		return errors.NewValidationError("transformation.train_data_path", "must not be empty", c.TrainDataPath)
	case c.TestDataPath == "":
		return errors.NewValidationError("transformation.test_data_path", "must not be empty", c.TestDataPath)
	case c.PreprocessorPath == "":
		return errors.NewValidationError("transformation.preprocessor_path", "must not be empty", c.PreprocessorPath)
	case c.TargetColumn == "":
		return errors.NewValidationError("transformation.target_column", "must not be empty", c.TargetColumn)
	case len(c.NumericColumns)+len(c.CategoricalColumns) == 0:
		return errors.NewValidationError("transformation.columns", "at least one feature column is required", nil)
	case c.Scaling != preprocessing.ScalingStandard && c.Scaling != preprocessing.ScalingMinMax:
		return errors.NewValidationError("transformation.scaling", "must be standard or minmax", c.Scaling)
	case c.HandleUnknown != preprocessing.HandleUnknownError && c.HandleUnknown != preprocessing.HandleUnknownIgnore:
		return errors.NewValidationError("transformation.handle_unknown", "must be error or ignore", c.HandleUnknown)
	}
	for _, col := range append(append([]string(nil), c.NumericColumns...), c.CategoricalColumns...) {
		if col == c.TargetColumn {
			return errors.NewValidationError("transformation.columns", "target column used as a feature", col)
		}
	}
	return nil
}

// Data is the typed output handed to model selection. Train and test
// matrices always have the same columns in the same order.
type Data struct {
	XTrain, YTrain mat.Matrix
	XTest, YTest   mat.Matrix

	FeatureNames     []string
	PreprocessorPath string
}

// NewPreprocessor builds the unfitted ColumnTransformer described by cfg.
func NewPreprocessor(cfg Config) *preprocessing.ColumnTransformer {
	return preprocessing.NewColumnTransformer(cfg.NumericColumns, cfg.CategoricalColumns,
		preprocessing.WithScaling(cfg.Scaling),
		preprocessing.WithHandleUnknown(cfg.HandleUnknown),
	)
}

// Run fits the preprocessor on the training file, transforms both files and
// saves the preprocessor. Failures are KindValidation for bad configuration
// or unusable data and KindIO for file access.
func Run(cfg Config) (*Data, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Enrich(op, errors.KindValidation, err)
	}

	logger := log.GetLoggerWithName("transformation")
	var data *Data
	err := errors.Guard(op, errors.KindIO, func() error {
		start := time.Now()
		train, err := preprocessing.ReadCSVFile(cfg.TrainDataPath)
		if err != nil {
			return err
		}
		test, err := preprocessing.ReadCSVFile(cfg.TestDataPath)
		if err != nil {
			return err
		}
		logger.Info("Read train and test data",
			"split.train_rows", train.Len(),
			"split.test_rows", test.Len(),
		)

		yTrain, err := Target(train, cfg.TargetColumn)
		if err != nil {
			return errors.Enrich(op, errors.KindValidation, err)
		}
		yTest, err := Target(test, cfg.TargetColumn)
		if err != nil {
			return errors.Enrich(op, errors.KindValidation, err)
		}

		pre := NewPreprocessor(cfg)
		XTrain, err := pre.FitTransform(train)
		if err != nil {
			return errors.Enrich(op, errors.KindValidation, err)
		}
		XTest, err := pre.Transform(test)
		if err != nil {
			return errors.Enrich(op, errors.KindValidation, err)
		}
		logger.Info("Applied preprocessing",
			log.OperationKey, log.OperationTransform,
			log.FeaturesKey, len(pre.FeatureNames()),
			log.DurationMsKey, time.Since(start).Milliseconds(),
		)

		if err := model.SaveModel(cfg.PreprocessorPath, pre); err != nil {
			return err
		}

		data = &Data{
			XTrain:           XTrain,
			YTrain:           yTrain,
			XTest:            XTest,
			YTest:            yTest,
			FeatureNames:     pre.FeatureNames(),
			PreprocessorPath: cfg.PreprocessorPath,
		}
		return nil
	})
	if err != nil {
		logger.Error("Error occurred during data transformation", err)
		return nil, err
	}
	return data, nil
}

// Target extracts the label column as an n×1 matrix. Missing or
// non-numeric labels are rejected.
func Target(frame *preprocessing.Frame, column string) (*mat.Dense, error) {
	values, err := frame.Float(column)
	if err != nil {
		return nil, err
	}
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, errors.NewValueError("Target", fmt.Sprintf("missing value in %s at row %d", column, i))
		}
	}
	return mat.NewDense(len(values), 1, values), nil
}
