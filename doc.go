// Package studentperf predicts a student's math score from tabular
// demographic and test-score data. It ingests a CSV, encodes features,
// tunes a catalog of regressors by grid search, and keeps the best one.
//
// # Quick Start
//
// Train with the default configuration:
//
//	studentperf run
//
// or with a YAML file:
//
//	studentperf run --config pipeline.yaml
//
// Predict with the saved artifacts:
//
//	studentperf predict --input new_students.csv
//
// The same pipeline is available as a library:
//
//	cfg, err := config.Load("pipeline.yaml")
//	if err != nil {
//	    return err
//	}
//	res, err := pipeline.Run(ctx, cfg)
//
// # Packages
//
//   - pipeline: ingestion, transformation, search, trainer and inference stages
//   - pipeline/catalog: candidate estimators and their search spaces
//   - pipeline/search: grid search per candidate with default-parameter fallback
//   - sklearn/...: LinearRegression, Ridge, DecisionTreeRegressor,
//     RandomForestRegressor, KNeighborsRegressor, GridSearchCV and KFold
//   - preprocessing: imputers, scalers, one-hot encoding, ColumnTransformer
//   - metrics: R², MSE, RMSE, MAE
//   - core/model: estimator interfaces and the artifact store (SaveModel, LoadModel)
//   - core/parallel: parallel processing utilities
//   - pkg/errors: typed errors and StageError, the only error crossing a stage boundary
//   - pkg/log: structured logging backed by zerolog
//
// # Errors
//
// Every stage returns *errors.StageError. Its message names the source file
// and line where the failure was detected, or says "no location information
// available". Dispatch on errors.KindOf:
//
//	if errors.KindOf(err) == errors.KindNotFound {
//	    // run the training pipeline first
//	}
//
// # Artifacts
//
// Fitted objects are written as gob envelopes with a SHA-256 checksum.
// A write replaces the file atomically; a load reports a missing file as
// KindNotFound and anything unreadable as KindDecode.
package studentperf
