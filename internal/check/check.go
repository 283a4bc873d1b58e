// Package check provides assertion primitives that report failures as values.
//
// Every function returns nil when the assertion holds and a *Failure
// otherwise. A Failure carries the expected and actual values and the kind of
// comparison, so callers can decide whether it is fatal and how to render it.
package check

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/google/go-cmp/cmp"
)

// Kind identifies the comparison an assertion performed.
type Kind string

const (
	KindExact       Kind = "exact"
	KindNotEqual    Kind = "not-equal"
	KindStringEqual Kind = "string-equal"
	KindNonEmpty    Kind = "non-empty"
	KindNear        Kind = "near"
)

// ErrInvalidTolerance marks a Near assertion given a negative or NaN tolerance.
var ErrInvalidTolerance = errors.New("tolerance must be a non-negative number")

// Failure describes one failed assertion.
type Failure struct {
	Kind      Kind    `json:"kind" yaml:"kind"`
	Expected  any     `json:"expected,omitempty" yaml:"expected,omitempty"`
	Actual    any     `json:"actual,omitempty" yaml:"actual,omitempty"`
	Tolerance float64 `json:"tolerance,omitempty" yaml:"tolerance,omitempty"`
	Message   string  `json:"message,omitempty" yaml:"message,omitempty"`

	cause error
}

// Error renders the failure with an expected-vs-actual diff.
func (f *Failure) Error() string {
	var b strings.Builder
	if f.Message != "" {
		b.WriteString(f.Message)
		b.WriteString(": ")
	}

	switch f.Kind {
	case KindExact, KindStringEqual:
		fmt.Fprintf(&b, "%s: values differ (-expected +actual):\n%s", f.Kind, renderDiff(f.Expected, f.Actual))
	case KindNotEqual:
		fmt.Fprintf(&b, "%s: expected any value other than %#v", f.Kind, f.Expected)
	case KindNonEmpty:
		fmt.Fprintf(&b, "%s: expected a non-empty value, got %#v", f.Kind, f.Actual)
	case KindNear:
		if f.cause != nil {
			fmt.Fprintf(&b, "%s: %v (got %g)", f.Kind, f.cause, f.Tolerance)
			break
		}
		fmt.Fprintf(&b, "%s: expected %v ± %g, got %v (difference %g)",
			f.Kind, f.Expected, f.Tolerance, f.Actual, diff(f.Actual, f.Expected))
	default:
		fmt.Fprintf(&b, "%s: expected %#v, got %#v", f.Kind, f.Expected, f.Actual)
	}

	return b.String()
}

// Unwrap returns the underlying cause, if any.
func (f *Failure) Unwrap() error {
	return f.cause
}

// exportAll lets cmp descend into unexported fields, which any comparable
// struct may carry.
var exportAll = cmp.Exporter(func(reflect.Type) bool { return true })

// renderDiff never panics. Values cmp still cannot walk fall back to %#v.
func renderDiff(expected, actual any) (out string) {
	defer func() {
		if recover() != nil {
			out = fmt.Sprintf("  - %#v\n  + %#v\n", expected, actual)
		}
	}()
	return cmp.Diff(expected, actual, exportAll)
}

func diff(actual, expected any) float64 {
	a, aok := actual.(float64)
	e, eok := expected.(float64)
	if !aok || !eok {
		return math.NaN()
	}
	return math.Abs(a - e)
}

// Exact passes iff actual == expected.
func Exact[T comparable](actual, expected T) error {
	if actual == expected {
		return nil
	}
	return &Failure{Kind: KindExact, Expected: expected, Actual: actual}
}

// NotEqual passes iff actual != unexpected.
func NotEqual[T comparable](actual, unexpected T) error {
	if actual != unexpected {
		return nil
	}
	return &Failure{Kind: KindNotEqual, Expected: unexpected, Actual: actual}
}

// StringEqual passes iff actual and expected are byte-for-byte identical.
func StringEqual(actual, expected string) error {
	if actual == expected {
		return nil
	}
	return &Failure{Kind: KindStringEqual, Expected: expected, Actual: actual}
}

// NonEmpty passes iff s has at least one byte.
func NonEmpty(s string) error {
	if len(s) > 0 {
		return nil
	}
	return &Failure{Kind: KindNonEmpty, Actual: s}
}

// Near passes iff |actual - expected| <= tol. The boundary passes.
// NaN operands never pass.
func Near(actual, expected, tol float64) error {
	if math.IsNaN(tol) || tol < 0 {
		return &Failure{Kind: KindNear, Expected: expected, Actual: actual, Tolerance: tol, cause: ErrInvalidTolerance}
	}
	if math.Abs(actual-expected) <= tol {
		return nil
	}
	return &Failure{Kind: KindNear, Expected: expected, Actual: actual, Tolerance: tol}
}

// Describe prefixes a failure with a message. Non-failure errors are wrapped
// and nil stays nil.
func Describe(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	msg := fmt.Sprintf(format, args...)
	var f *Failure
	if errors.As(err, &f) {
		out := *f
		out.Message = msg
		return &out
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// AsFailure extracts a *Failure from err.
func AsFailure(err error) (*Failure, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}
