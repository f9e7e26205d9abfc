package model

import (
	"fmt"
	"math"
	"sort"

	"github.com/YuminosukeSato/studentperf/pkg/errors"
)

// CheckParamKeys returns a ValidationError for the first key of params
// that is not in allowed. Keys are checked in sorted order so the error is
// deterministic.
func CheckParamKeys(estimator string, params map[string]interface{}, allowed ...string) error {
	ok := make(map[string]bool, len(allowed))
	for _, k := range allowed {
		ok[k] = true
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if !ok[k] {
			return errors.NewValidationError(k, "invalid parameter for estimator "+estimator, params[k])
		}
	}
	return nil
}

// ParamFloat converts a parameter value to float64.
// Integers are accepted because YAML decodes "1" as int.
func ParamFloat(key string, v interface{}) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	default:
		return 0, errors.NewValidationError(key, "expected a number", v)
	}
}

// ParamInt converts a parameter value to int. Floats must be integral.
func ParamInt(key string, v interface{}) (int, error) {
	switch x := v.(type) {
	case int:
		return x, nil
	case int64:
		return int(x), nil
	case float64:
		if x != math.Trunc(x) {
			return 0, errors.NewValidationError(key, "expected an integer", v)
		}
		return int(x), nil
	default:
		return 0, errors.NewValidationError(key, "expected an integer", v)
	}
}

// ParamString converts a parameter value to string.
func ParamString(key string, v interface{}) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", errors.NewValidationError(key, "expected a string", v)
	}
	return s, nil
}

// ParamBool converts a parameter value to bool.
func ParamBool(key string, v interface{}) (bool, error) {
	b, ok := v.(bool)
	if !ok {
		return false, errors.NewValidationError(key, "expected a boolean", v)
	}
	return b, nil
}

// ParamOptionalInt converts nil to 0 (meaning "unlimited") and anything
// else with ParamInt. Used for max_depth style parameters.
func ParamOptionalInt(key string, v interface{}) (int, error) {
	if v == nil {
		return 0, nil
	}
	return ParamInt(key, v)
}

func fmtType(v interface{}) string {
	return fmt.Sprintf("%T", v)
}
