package check

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExact(t *testing.T) {
	assert.NoError(t, Exact(1+2, 3))

	err := Exact(1+2, 4)
	require.Error(t, err)
	f, ok := AsFailure(err)
	require.True(t, ok)
	assert.Equal(t, KindExact, f.Kind)
	assert.Equal(t, 4, f.Expected)
	assert.Equal(t, 3, f.Actual)
	assert.Contains(t, err.Error(), "-expected +actual")
}

type pose struct{ x, y int }

func TestExact_UnexportedFields(t *testing.T) {
	assert.NoError(t, Exact(pose{1, 2}, pose{1, 2}))

	err := Exact(pose{1, 2}, pose{1, 3})
	require.Error(t, err)

	var msg string
	require.NotPanics(t, func() { msg = err.Error() })
	assert.Contains(t, msg, "exact: values differ")
	assert.Contains(t, msg, "y:")
}

func TestExact_BitExactFloats(t *testing.T) {
	a, b := 0.1, 0.2
	assert.Error(t, Exact(a+b, 0.3))

	c, d := 0.5, 0.25
	assert.NoError(t, Exact(c+d, 0.75))
}

func TestNotEqual(t *testing.T) {
	assert.NoError(t, NotEqual(1+2, 4))

	err := NotEqual(3, 3)
	require.Error(t, err)
	f, ok := AsFailure(err)
	require.True(t, ok)
	assert.Equal(t, KindNotEqual, f.Kind)
}

func TestStringEqual(t *testing.T) {
	tests := []struct {
		name     string
		actual   string
		expected string
		pass     bool
	}{
		{name: "identical", actual: "Idle", expected: "Idle", pass: true},
		{name: "case differs", actual: "idle", expected: "Idle"},
		{name: "trailing space", actual: "Idle ", expected: "Idle"},
		{name: "prefix only", actual: "Id", expected: "Idle"},
		{name: "both empty", actual: "", expected: "", pass: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := StringEqual(tt.actual, tt.expected)
			if tt.pass {
				assert.NoError(t, err)
				return
			}
			f, ok := AsFailure(err)
			require.True(t, ok)
			assert.Equal(t, KindStringEqual, f.Kind)
		})
	}
}

func TestNonEmpty(t *testing.T) {
	assert.NoError(t, NonEmpty("Idle"))

	err := NonEmpty("")
	f, ok := AsFailure(err)
	require.True(t, ok)
	assert.Equal(t, KindNonEmpty, f.Kind)
}

func TestNear(t *testing.T) {
	tests := []struct {
		name     string
		actual   float64
		expected float64
		tol      float64
		pass     bool
	}{
		{name: "joint angle within tolerance", actual: 3.14150, expected: 3.14159, tol: 1e-4, pass: true},
		{name: "joint angle far off", actual: 3.1000, expected: 3.14159, tol: 1e-4},
		{name: "boundary passes", actual: 0.5, expected: 0.25, tol: 0.25, pass: true},
		{name: "just past boundary", actual: 0.5, expected: 0.25, tol: math.Nextafter(0.25, 0)},
		{name: "zero tolerance equal", actual: 1, expected: 1, tol: 0, pass: true},
		{name: "nan actual", actual: math.NaN(), expected: 1, tol: 1},
		{name: "inf minus inf", actual: math.Inf(1), expected: math.Inf(1), tol: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Near(tt.actual, tt.expected, tt.tol)
			if tt.pass {
				assert.NoError(t, err)
				return
			}
			f, ok := AsFailure(err)
			require.True(t, ok)
			assert.Equal(t, KindNear, f.Kind)
			assert.Equal(t, tt.tol, f.Tolerance)
		})
	}
}

func TestNear_InvalidTolerance(t *testing.T) {
	for _, tol := range []float64{-1e-4, math.NaN()} {
		err := Near(1, 1, tol)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidTolerance)
	}
}

func TestNear_Message(t *testing.T) {
	err := Near(3.1, 3.14159, 1e-4)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "near: expected 3.14159 ± 0.0001, got 3.1")
}

func TestDescribe(t *testing.T) {
	assert.NoError(t, Describe(nil, "ignored"))

	err := Describe(Exact(1, 2), "sum of %d and %d", 0, 1)
	f, ok := AsFailure(err)
	require.True(t, ok)
	assert.Equal(t, "sum of 0 and 1", f.Message)
	assert.Contains(t, err.Error(), "sum of 0 and 1: exact")

	plain := errors.New("boom")
	wrapped := Describe(plain, "context")
	assert.ErrorIs(t, wrapped, plain)
	_, ok = AsFailure(wrapped)
	assert.False(t, ok)
}
