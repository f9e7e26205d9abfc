package log

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	cerrors "github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/YuminosukeSato/studentperf/pkg/errors"
)

// Config controls process-wide logging.
type Config struct {
	// Dir is the directory that receives the per-run log file. Default "logs".
	Dir string `yaml:"dir"`
	// Prefix of the log file name. Default "student_performance".
	Prefix string `yaml:"prefix"`
	// Level is one of debug, info, warn, error. Default info.
	Level string `yaml:"level"`
	// Console mirrors log lines to stderr.
	Console bool `yaml:"console"`
	// RunID tags every line. Generated when empty.
	RunID string `yaml:"-"`
}

// process holds the one logging state of the process.
type process struct {
	mu          sync.RWMutex
	initialized bool
	root        zerolog.Logger
	file        *os.File
	path        string
	runID       string
}

var state = &process{
	root: zerolog.New(newLineWriter(os.Stderr)).Level(zerolog.WarnLevel).With().Timestamp().Logger(),
}

// Initialize sets up the process logger. It is idempotent: only the first
// call configures anything, later calls return the path chosen by the first.
// Call it once at process start before any concurrent work is spawned.
func Initialize(cfg Config) (string, error) {
	state.mu.Lock()
	defer state.mu.Unlock()

	if state.initialized {
		return state.path, nil
	}

	level, ok := ParseLevel(cfg.Level)
	if !ok {
		return "", errors.NewValidationError("log.level", "must be one of debug, info, warn, error", cfg.Level)
	}
	dir := cfg.Dir
	if dir == "" {
		dir = "logs"
	}
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "student_performance"
	}
	runID := cfg.RunID
	if runID == "" {
		runID = uuid.NewString()
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrapf(err, "create log directory %s", dir)
	}
	path := filepath.Join(dir, fmt.Sprintf("%s_%s.log", prefix, time.Now().Format("20060102_150405")))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return "", errors.Wrapf(err, "open log file %s", path)
	}

	var out io.Writer = newLineWriter(f)
	if cfg.Console {
		out = zerolog.MultiLevelWriter(out, newLineWriter(os.Stderr))
	}

	state.root = zerolog.New(out).
		Level(toZerologLevel(level)).
		With().
		Timestamp().
		CallerWithSkipFrameCount(zerolog.CallerSkipFrameCount+2).
		Str(RunIDKey, runID).
		Logger()
	state.file = f
	state.path = path
	state.runID = runID
	state.initialized = true

	warnLogger := state.root.With().Str(LoggerNameKey, "warnings").Logger()
	errors.SetZerologWarnFunc(func(w error) {
		ev := warnLogger.Warn()
		if m, ok := w.(zerolog.LogObjectMarshaler); ok {
			ev = ev.EmbedObject(m)
		}
		ev.Msg(w.Error())
	})

	return path, nil
}

// Initialized reports whether Initialize has completed.
func Initialized() bool {
	state.mu.RLock()
	defer state.mu.RUnlock()
	return state.initialized
}

// RunID returns the identifier of this run, or "" before Initialize.
func RunID() string {
	state.mu.RLock()
	defer state.mu.RUnlock()
	return state.runID
}

// Shutdown closes the log file and returns the process to its
// uninitialized state.
func Shutdown() error {
	state.mu.Lock()
	defer state.mu.Unlock()

	if !state.initialized {
		return nil
	}
	errors.SetZerologWarnFunc(nil)
	err := state.file.Close()
	state.root = zerolog.New(newLineWriter(os.Stderr)).Level(zerolog.WarnLevel).With().Timestamp().Logger()
	state.file = nil
	state.path = ""
	state.runID = ""
	state.initialized = false
	return err
}

func current() *zerolog.Logger {
	state.mu.RLock()
	defer state.mu.RUnlock()
	l := state.root
	return &l
}

// GetLogger returns the unnamed process logger.
func GetLogger() Logger {
	return &zerologLogger{}
}

// GetLoggerWithName returns a process logger tagged with name. The logger
// resolves the backend on every call, so it may be obtained before
// Initialize and still write to the run's log file afterwards.
func GetLoggerWithName(name string) Logger {
	return &zerologLogger{name: name}
}

type zerologLogger struct {
	name   string
	fields []any
}

func (l *zerologLogger) Debug(msg string, fields ...any) { l.log(zerolog.DebugLevel, msg, nil, fields) }
func (l *zerologLogger) Info(msg string, fields ...any)  { l.log(zerolog.InfoLevel, msg, nil, fields) }
func (l *zerologLogger) Warn(msg string, fields ...any)  { l.log(zerolog.WarnLevel, msg, nil, fields) }

func (l *zerologLogger) Error(msg string, fields ...any) {
	var err error
	if len(fields) > 0 {
		if e, ok := fields[0].(error); ok {
			err = e
			fields = fields[1:]
		}
	}
	l.log(zerolog.ErrorLevel, msg, err, fields)
}

func (l *zerologLogger) With(fields ...any) Logger {
	merged := make([]any, 0, len(l.fields)+len(fields))
	merged = append(merged, l.fields...)
	merged = append(merged, fields...)
	return &zerologLogger{name: l.name, fields: merged}
}

func (l *zerologLogger) Enabled(_ context.Context, level Level) bool {
	return toZerologLevel(level) >= current().GetLevel()
}

func (l *zerologLogger) log(level zerolog.Level, msg string, err error, fields []any) {
	zl := current()
	if level < zl.GetLevel() {
		return
	}
	ev := zl.WithLevel(level)
	if l.name != "" {
		ev = ev.Str(LoggerNameKey, l.name)
	}
	if len(l.fields) > 0 {
		ev = ev.Fields(l.fields)
	}
	if len(fields) > 0 {
		ev = ev.Fields(fields)
	}
	if err != nil {
		ev = ev.Err(err)
		if st := extractStacktrace(err); st != "" {
			ev = ev.Str(StacktraceKey, st)
		}
	}
	ev.Msg(msg)
}

// extractStacktrace returns the outermost safe detail recorded by
// cockroachdb/errors along err's chain, which is the formatted stack of
// WithStack.
func extractStacktrace(err error) string {
	for _, d := range cerrors.GetAllSafeDetails(err) {
		if len(d.SafeDetails) > 0 && d.SafeDetails[0] != "" {
			return d.SafeDetails[0]
		}
	}
	return ""
}

func toZerologLevel(l Level) zerolog.Level {
	switch {
	case l <= LevelDebug:
		return zerolog.DebugLevel
	case l <= LevelInfo:
		return zerolog.InfoLevel
	case l <= LevelWarn:
		return zerolog.WarnLevel
	default:
		return zerolog.ErrorLevel
	}
}

// newLineWriter renders zerolog events as
// "[timestamp] - line - logger - LEVEL - message key=value".
func newLineWriter(out io.Writer) io.Writer {
	return zerolog.ConsoleWriter{
		Out:           zerolog.SyncWriter(out),
		NoColor:       true,
		PartsOrder:    []string{zerolog.TimestampFieldName, zerolog.CallerFieldName, LoggerNameKey, zerolog.LevelFieldName, zerolog.MessageFieldName},
		FieldsExclude: []string{LoggerNameKey},
		FormatTimestamp: func(v interface{}) string {
			return "[" + formatTimestamp(v) + "] -"
		},
		FormatCaller: func(v interface{}) string {
			return formatLine(v) + " -"
		},
		FormatPartValueByName: func(v interface{}, name string) string {
			if name != LoggerNameKey {
				return fmt.Sprint(v)
			}
			if s, ok := v.(string); ok && s != "" {
				return s + " -"
			}
			return "root -"
		},
		FormatLevel: func(v interface{}) string {
			return strings.ToUpper(fmt.Sprint(v)) + " -"
		},
		FormatMessage: func(v interface{}) string {
			if v == nil {
				return ""
			}
			return fmt.Sprint(v)
		},
	}
}

func formatTimestamp(v interface{}) string {
	s, ok := v.(string)
	if !ok {
		return time.Now().Format("2006-01-02 15:04:05")
	}
	t, err := time.Parse(zerolog.TimeFieldFormat, s)
	if err != nil {
		return s
	}
	return t.Format("2006-01-02 15:04:05")
}

// formatLine keeps only the line number of a "file:line" caller.
func formatLine(v interface{}) string {
	s, ok := v.(string)
	if !ok || s == "" {
		return "-"
	}
	if i := strings.LastIndexByte(s, ':'); i >= 0 {
		return s[i+1:]
	}
	return s
}
