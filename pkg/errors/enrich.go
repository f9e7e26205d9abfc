package errors

import (
	"fmt"
	"runtime"

	"github.com/cockroachdb/errors"
)

// Kind classifies a failure that crosses a pipeline stage boundary.
type Kind int

const (
	// KindInternal is used for panics and failures nobody classified.
	KindInternal Kind = iota
	// KindValidation is malformed configuration, e.g. test_size outside (0,1).
	KindValidation
	// KindIO is a read or write failure on a CSV file or an artifact.
	KindIO
	// KindNotFound is a missing artifact or input file.
	KindNotFound
	// KindDecode is a corrupt or structurally incompatible artifact.
	KindDecode
	// KindSearch is a grid search that could not evaluate its space.
	KindSearch
	// KindFit is an estimator that cannot fit the data it is given.
	KindFit
)

// String returns the name of the kind.
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindIO:
		return "io"
	case KindNotFound:
		return "not_found"
	case KindDecode:
		return "decode"
	case KindSearch:
		return "search"
	case KindFit:
		return "fit"
	default:
		return "internal"
	}
}

// Sentinels matched by errors.Is against a StageError of the same kind.
var (
	ErrInternal   = New("internal failure")
	ErrValidation = New("validation failure")
	ErrIO         = New("io failure")
	ErrNotFound   = New("not found")
	ErrDecode     = New("decode failure")
	ErrSearch     = New("search failure")
	ErrFit        = New("fit failure")
)

func (k Kind) sentinel() error {
	switch k {
	case KindValidation:
		return ErrValidation
	case KindIO:
		return ErrIO
	case KindNotFound:
		return ErrNotFound
	case KindDecode:
		return ErrDecode
	case KindSearch:
		return ErrSearch
	case KindFit:
		return ErrFit
	default:
		return ErrInternal
	}
}

// NoLocation is the origin recorded when the detection locus is unknown.
const NoLocation = "no location information available"

// StageError is the only error shape that leaves a pipeline stage.
// It is built once where the failure is caught and never modified afterwards.
type StageError struct {
	Op   string
	Kind Kind
	File string
	Line int
	Err  error

	prefix string
	msg    string
	stack  string
}

// Error returns the composed message. It is never empty.
func (e *StageError) Error() string {
	return e.msg
}

// Unwrap returns the original failure.
func (e *StageError) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel of this error's kind.
func (e *StageError) Is(target error) bool {
	return target == e.Kind.sentinel()
}

// HasLocation reports whether the detection locus was captured.
func (e *StageError) HasLocation() bool {
	return e.File != ""
}

// Origin returns "file:line" or NoLocation.
func (e *StageError) Origin() string {
	if !e.HasLocation() {
		return NoLocation
	}
	return fmt.Sprintf("%s:%d", e.File, e.Line)
}

// SafeDetails returns the stack captured by Enrich, so loggers reading
// cockroachdb safe details find it on the StageError itself.
func (e *StageError) SafeDetails() []string {
	if e.stack == "" {
		return nil
	}
	return []string{e.stack}
}

// Format prints the cause chain with stack traces on %+v.
func (e *StageError) Format(s fmt.State, verb rune) { errors.FormatError(e, s, verb) }

// FormatError implements errors.Formatter. Only the location prefix is
// printed here; the cause prints itself from the returned error.
func (e *StageError) FormatError(p errors.Printer) error {
	if e.Err == nil || e.Err.Error() == "" {
		p.Print(e.msg)
		return nil
	}
	p.Print(e.prefix)
	if p.Detail() && e.stack != "" {
		p.Print(e.stack)
	}
	return e.Err
}

// NewStageError composes a StageError from an explicit origin.
// An empty file means the origin is unavailable.
func NewStageError(op string, kind Kind, file string, line int, err error) *StageError {
	e := &StageError{Op: op, Kind: kind, File: file, Line: line, Err: err}
	e.prefix = composePrefix(e)
	e.msg = e.prefix + ": " + kindDetail(e)
	return e
}

func composePrefix(e *StageError) string {
	if e.HasLocation() {
		return fmt.Sprintf("error occurred in [%s] line number [%d] during %s", e.File, e.Line, opName(e.Op))
	}
	return fmt.Sprintf("error occurred with %s during %s", NoLocation, opName(e.Op))
}

func kindDetail(e *StageError) string {
	if e.Err != nil {
		if s := e.Err.Error(); s != "" {
			return s
		}
	}
	return e.Kind.sentinel().Error()
}

func opName(op string) string {
	if op == "" {
		return "unknown operation"
	}
	return op
}

// Enrich wraps err into a StageError that records the caller as the
// detection locus. A nil err stays nil and an error that already is a
// StageError is returned unchanged, so a failure is enriched exactly once.
// When err wraps a StageError deeper in its chain the inner kind wins.
func Enrich(op string, kind Kind, err error) error {
	return enrich(op, kind, err, 2)
}

func enrich(op string, kind Kind, err error, skip int) error {
	if err == nil {
		return nil
	}
	if se, ok := err.(*StageError); ok {
		return se
	}
	var inner *StageError
	if errors.As(err, &inner) {
		kind = inner.Kind
	}
	_, file, line, ok := runtime.Caller(skip)
	if !ok {
		file, line = "", 0
	}
	se := NewStageError(op, kind, file, line, err)
	if details := errors.GetSafeDetails(errors.WithStackDepth(err, skip)).SafeDetails; len(details) > 0 {
		se.stack = details[0]
	}
	return se
}

// Guard runs a stage body and converts whatever it returns into a
// StageError. Panics are recovered into a PanicError of KindInternal.
//
//	err := errors.Guard("ingestion", errors.KindIO, func() error {
//	    return ingest()
//	})
func Guard(op string, kind Kind, fn func() error) error {
	err := SafeExecute(op, fn)
	if err == nil {
		return nil
	}
	var pe *PanicError
	if errors.As(err, &pe) {
		kind = KindInternal
	}
	return enrich(op, kind, err, 2)
}

// KindOf returns the kind of the first StageError in err's chain.
func KindOf(err error) Kind {
	var se *StageError
	if errors.As(err, &se) {
		return se.Kind
	}
	var search *SearchError
	if errors.As(err, &search) {
		return KindSearch
	}
	return KindInternal
}

// SearchError is the typed result of a hyperparameter search that could
// not evaluate its space. Callers recover from it locally.
type SearchError struct {
	Estimator string
	Reason    string
	Params    map[string]interface{}
	Err       error
}

func (e *SearchError) Error() string {
	msg := fmt.Sprintf("studentperf: grid search on %s: %s", e.Estimator, e.Reason)
	if len(e.Params) > 0 {
		msg += fmt.Sprintf(" (params: %v)", e.Params)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SearchError) Unwrap() error {
	return e.Err
}

// Is matches ErrSearch.
func (e *SearchError) Is(target error) bool {
	return target == ErrSearch
}

// NewSearchError creates a SearchError with a stack trace attached.
func NewSearchError(estimator, reason string, params map[string]interface{}, err error) error {
	return errors.WithStack(&SearchError{Estimator: estimator, Reason: reason, Params: params, Err: err})
}
