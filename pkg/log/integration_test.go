package log

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/studentperf/pkg/errors"
)

func TestTestLogger(t *testing.T) {
	testLogger, buffer := NewTestLogger(LevelDebug)

	testLogger.Debug("debug message", "key1", "value1", "number", 42)
	testLogger.Info("info message", OperationKey, OperationFit)
	testLogger.Warn("warning message", FallbackKey, true)
	testLogger.Error("error message", fmt.Errorf("boom"), OperationKey, OperationSave)

	require.NotEmpty(t, buffer.String())
	for _, msg := range []string{"debug message", "info message", "warning message", "error message"} {
		assert.True(t, testLogger.ContainsMessage(msg), msg)
	}
	assert.True(t, testLogger.ContainsField("key1", "value1"))
	assert.True(t, testLogger.ContainsField("number", 42.0)) // JSON numbers are float64
	assert.True(t, testLogger.ContainsField("error", "boom"))
}

func TestTestLogger_With(t *testing.T) {
	testLogger, _ := NewTestLogger(LevelInfo)

	contextLogger := testLogger.With(ModelNameKey, "Ridge", OperationKey, OperationSearch)
	contextLogger.Info("candidate evaluated", R2ScoreKey, 0.81)

	entries := testLogger.EntriesWithMessage("candidate evaluated")
	require.Len(t, entries, 1)
	assert.Equal(t, "Ridge", entries[0][ModelNameKey])
	assert.Equal(t, "search", entries[0][OperationKey])
	assert.Equal(t, 0.81, entries[0][R2ScoreKey])
}

func TestTestLogger_Enabled(t *testing.T) {
	testLogger, _ := NewTestLogger(LevelInfo)
	ctx := context.Background()

	assert.True(t, testLogger.Enabled(ctx, LevelInfo))
	assert.True(t, testLogger.Enabled(ctx, LevelError))
	assert.False(t, testLogger.Enabled(ctx, LevelDebug))

	testLogger.Debug("this should not appear")
	assert.False(t, testLogger.ContainsMessage("this should not appear"))
}

func TestParseLevel(t *testing.T) {
	lvl, ok := ParseLevel("warn")
	assert.True(t, ok)
	assert.Equal(t, LevelWarn, lvl)

	_, ok = ParseLevel("verbose")
	assert.False(t, ok)
}

func TestInitialize_Idempotent(t *testing.T) {
	dir := t.TempDir()
	t.Cleanup(func() { _ = Shutdown() })

	path, err := Initialize(Config{Dir: dir, Level: "info", RunID: "run-1"})
	require.NoError(t, err)
	assert.True(t, Initialized())
	assert.Equal(t, "run-1", RunID())
	assert.True(t, strings.HasPrefix(path, dir))

	again, err := Initialize(Config{Dir: t.TempDir(), Level: "debug"})
	require.NoError(t, err)
	assert.Equal(t, path, again, "second Initialize must be a no-op")
	assert.Equal(t, "run-1", RunID())
}

func TestInitialize_InvalidLevel(t *testing.T) {
	_, err := Initialize(Config{Dir: t.TempDir(), Level: "loud"})
	require.Error(t, err)
	var valErr *errors.ValidationError
	assert.True(t, errors.As(err, &valErr))
	assert.False(t, Initialized())
}

func TestProcessLogger_LineShape(t *testing.T) {
	dir := t.TempDir()
	t.Cleanup(func() { _ = Shutdown() })

	path, err := Initialize(Config{Dir: dir, Level: "info"})
	require.NoError(t, err)

	logger := GetLoggerWithName("search")
	logger.Info("Candidate evaluated", ModelNameKey, "Ridge")
	logger.Debug("filtered out")
	logger.Error("Training failed", errors.NewValueError("Fit", "no best model found"))
	errors.Warn(errors.NewSearchFailureWarning("Ridge", errors.ErrEmptySearchSpace))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)

	shape := regexp.MustCompile(`^\[\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}\] - (\d+|-) - \S+ - [A-Z]+ - .+$`)
	for _, line := range lines {
		assert.Regexp(t, shape, line)
	}
	assert.Contains(t, lines[0], " - search - INFO - Candidate evaluated")
	assert.Contains(t, lines[0], "model.name=Ridge")
	assert.Contains(t, lines[1], " - search - ERROR - Training failed")
	assert.Contains(t, lines[2], " - warnings - WARN - grid search failed for Ridge")
	assert.Contains(t, lines[2], "type=SearchFailureWarning")
}

func TestGetLoggerBeforeInitialize(t *testing.T) {
	logger := GetLogger()
	assert.False(t, logger.Enabled(context.Background(), LevelInfo))
	assert.True(t, logger.Enabled(context.Background(), LevelError))
}

func TestProcessLogger_StageErrorCarriesStacktrace(t *testing.T) {
	dir := t.TempDir()
	t.Cleanup(func() { _ = Shutdown() })

	path, err := Initialize(Config{Dir: dir, Level: "info"})
	require.NoError(t, err)

	GetLoggerWithName("trainer").Error("Training failed",
		errors.Enrich("model training", errors.KindFit, fmt.Errorf("singular matrix")),
		ModelNameKey, "Linear Regression")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], " - trainer - ERROR - Training failed")
	assert.Contains(t, lines[0], StacktraceKey+"=")
	assert.Contains(t, lines[0], `model.name="Linear Regression"`)
	assert.Equal(t, 1, strings.Count(lines[0], "singular matrix"),
		"the stack detail must not repeat the cause")
}
