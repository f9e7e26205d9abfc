// Package log defines standard attribute keys for pipeline operations.
//
// The keys follow a hierarchical naming convention (e.g. "model.name",
// "data.samples") so that log lines of different stages can be filtered
// the same way.

package log

// Model and Operation Context
const (
	// ModelNameKey identifies the candidate or estimator type.
	// Examples: "Linear Regression", "DecisionTreeRegressor"
	ModelNameKey = "model.name"

	// OperationKey specifies the operation being performed.
	// Standard values: "fit", "predict", "transform", "search", "save", "load"
	OperationKey = "ml.operation"

	// RunIDKey identifies a single pipeline run. Set once by Initialize.
	RunIDKey = "run.id"

	// LoggerNameKey carries the name given to GetLoggerWithName.
	LoggerNameKey = "logger"
)

// Data Shape and Characteristics
const (
	// SamplesKey indicates the number of samples (rows) in the dataset.
	SamplesKey = "data.samples"

	// FeaturesKey indicates the number of features (columns) in the dataset.
	FeaturesKey = "data.features"

	// PathKey is a filesystem path read or written by the operation.
	PathKey = "data.path"
)

// Performance Metrics
const (
	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"

	// R2ScoreKey records R² coefficient of determination for regression.
	// Range typically [-∞, 1.0], with 1.0 being perfect prediction.
	R2ScoreKey = "metrics.r2_score"

	// CVScoreKey records the mean cross-validated score of a grid point.
	CVScoreKey = "metrics.cv_score"
)

// Error Context
const (
	// StacktraceKey contains stack trace information for debugging.
	// Automatically populated by Logger.Error when an error is passed.
	StacktraceKey = "error.stacktrace"
)

// Hyperparameters and Configuration
const (
	// HyperParamsKey contains model hyperparameters as a structured object.
	HyperParamsKey = "model.hyperparams"

	// GridSizeKey is the number of points in a parameter grid.
	GridSizeKey = "search.grid_size"

	// FallbackKey is true when a candidate was fitted with default params.
	FallbackKey = "search.fallback"

	// RandomSeedKey records the random seed for reproducibility.
	RandomSeedKey = "config.random_seed"
)

// Standard attribute value constants for common operations.
const (
	OperationFit       = "fit"
	OperationPredict   = "predict"
	OperationTransform = "transform"
	OperationSearch    = "search"
	OperationSave      = "save"
	OperationLoad      = "load"
)
