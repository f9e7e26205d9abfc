package errors

import (
	"fmt"
	"math"
	"strings"
	"testing"
)

func TestNewModelError(t *testing.T) {
	tests := []struct {
		name     string
		op       string
		kind     string
		err      error
		wantMsg  string
		hasStack bool
	}{
		{
			name:     "with original error",
			op:       "Fit",
			kind:     "invalid input",
			err:      fmt.Errorf("test error"),
			wantMsg:  "studentperf: Fit: invalid input: test error",
			hasStack: true,
		},
		{
			name:     "without original error",
			op:       "Predict",
			kind:     "not fitted",
			err:      nil,
			wantMsg:  "studentperf: Predict: not fitted",
			hasStack: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewModelError(tt.op, tt.kind, tt.err)

			// 基本的なエラーメッセージの確認
			if err.Error() != tt.wantMsg {
				t.Errorf("Error() = %v, want %v", err.Error(), tt.wantMsg)
			}

			// スタックトレースの存在確認
			if tt.hasStack {
				formatted := fmt.Sprintf("%+v", err)
				if !strings.Contains(formatted, "errors_test.go") {
					t.Error("Expected stack trace to contain test file name")
				}
			}

			var modelErr *ModelError
			if !As(err, &modelErr) {
				t.Error("Error should be castable to *ModelError")
			}
		})
	}
}

func TestNewDimensionError(t *testing.T) {
	err := NewDimensionError("Predict", 5, 3, 1)

	want := "studentperf: Predict: dimension mismatch on axis 1 (features). Expected 5, got 3"
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}

	var dimErr *DimensionError
	if !As(err, &dimErr) {
		t.Error("Error should be castable to *DimensionError")
	}
}

func TestNewNotFittedError(t *testing.T) {
	err := NewNotFittedError("Ridge", "Predict")

	want := "studentperf: Ridge: this model is not fitted yet. Call Fit() before using Predict()"
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}

	var notFittedErr *NotFittedError
	if !As(err, &notFittedErr) {
		t.Error("Error should be castable to *NotFittedError")
	}
}

func TestNewValidationError(t *testing.T) {
	err := NewValidationError("test_size", "must be in (0, 1)", 1.5)

	want := "studentperf: validation failed for parameter 'test_size': must be in (0, 1) (got: 1.5)"
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}
}

func TestSearchFailureWarning(t *testing.T) {
	cause := NewValidationError("alpha_typo", "unknown parameter", 1.0)
	warn := NewSearchFailureWarning("Ridge", cause)

	if !strings.Contains(warn.Error(), "training with default params") {
		t.Errorf("unexpected message: %s", warn.Error())
	}

	var valErr *ValidationError
	if !As(warn, &valErr) {
		t.Error("Warning should expose its cause")
	}
}

func TestWarn_UsesZerologFuncWhenSet(t *testing.T) {
	var got []error
	SetZerologWarnFunc(func(w error) { got = append(got, w) })
	defer SetZerologWarnFunc(nil)

	Warn(NewDataConversionWarning("string", "float64", "median imputation"))

	if len(got) != 1 {
		t.Fatalf("expected 1 warning, got %d", len(got))
	}
}

func TestWrapf(t *testing.T) {
	wrapped := Wrapf(ErrEmptyData, "in %s: expected %d, got %d", "Predict", 10, 5)

	if !Is(wrapped, ErrEmptyData) {
		t.Error("Expected Is(wrapped, ErrEmptyData) to be true")
	}

	expectedMsg := "in Predict: expected 10, got 5"
	if !strings.Contains(wrapped.Error(), expectedMsg) {
		t.Errorf("Expected wrapped error to contain %q", expectedMsg)
	}
}

func TestCheckScalar(t *testing.T) {
	if err := CheckScalar("cv_score", 0.5, 0); err != nil {
		t.Errorf("finite value should pass: %v", err)
	}

	err := CheckScalar("cv_score", math.NaN(), 2)
	var instab *NumericalInstabilityError
	if !As(err, &instab) {
		t.Fatalf("expected NumericalInstabilityError, got %v", err)
	}
	if instab.Iteration != 2 {
		t.Errorf("iteration = %d, want 2", instab.Iteration)
	}
}
