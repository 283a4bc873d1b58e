// Package arith provides the integer operations exercised by the example suite.
package arith

import (
	"errors"
	"math"
)

// ErrOverflow is returned when a checked operation does not fit in an int.
var ErrOverflow = errors.New("integer overflow")

// Adder is anything that can combine two integers by addition.
// Suites depend on this instead of the package function so a different
// implementation can be wired in without changing the cases.
type Adder interface {
	Add(a, b int) int
}

// Add returns a + b with two's-complement wraparound.
func Add(a, b int) int {
	return a + b
}

// Sub returns a - b with two's-complement wraparound.
func Sub(a, b int) int {
	return a - b
}

// Mul returns a * b with two's-complement wraparound.
func Mul(a, b int) int {
	return a * b
}

// AddChecked returns a + b, or ErrOverflow if the sum overflows.
func AddChecked(a, b int) (int, error) {
	if (b > 0 && a > math.MaxInt-b) || (b < 0 && a < math.MinInt-b) {
		return 0, ErrOverflow
	}
	return a + b, nil
}

// Calculator is the default Adder.
type Calculator struct{}

// Add implements Adder.
func (Calculator) Add(a, b int) int {
	return Add(a, b)
}

// AdderFunc adapts a plain function to the Adder interface.
type AdderFunc func(a, b int) int

// Add calls f(a, b).
func (f AdderFunc) Add(a, b int) int {
	return f(a, b)
}
