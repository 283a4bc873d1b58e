package suite

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/robotarm/armsuite/internal/check"
)

// Kinds recorded for failures that did not come from a check assertion.
const (
	KindError check.Kind = "error"
	KindPanic check.Kind = "panic"
)

// Assertion is one recorded failure within a case.
type Assertion struct {
	Kind    check.Kind `json:"kind" yaml:"kind"`
	Message string     `json:"message" yaml:"message"`
	Fatal   bool       `json:"fatal" yaml:"fatal"`
}

// T records the outcome of a single case. It is passed to the case body and
// must not be retained after the body returns.
type T struct {
	ctx context.Context
	id  string

	mu       sync.Mutex
	failures []Assertion
	logs     []string
}

func newT(ctx context.Context, id string) *T {
	return &T{ctx: ctx, id: id}
}

// Context returns the run context.
func (t *T) Context() context.Context {
	return t.ctx
}

// ID returns the identifier of the running case.
func (t *T) ID() string {
	return t.id
}

// Expect records err as a non-fatal failure and lets the case continue.
// It reports whether the assertion passed.
func (t *T) Expect(err error) bool {
	if err == nil {
		return true
	}
	t.record(err, false)
	return false
}

// Require records err as a fatal failure and stops the case. Other cases are
// not affected.
func (t *T) Require(err error) {
	if err == nil {
		return
	}
	t.record(err, true)
	runtime.Goexit()
}

// Errorf records a formatted non-fatal failure.
func (t *T) Errorf(format string, args ...any) {
	t.record(fmt.Errorf(format, args...), false)
}

// Fatalf records a formatted fatal failure and stops the case.
func (t *T) Fatalf(format string, args ...any) {
	t.record(fmt.Errorf(format, args...), true)
	runtime.Goexit()
}

// Logf adds a line to the case log.
func (t *T) Logf(format string, args ...any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.logs = append(t.logs, fmt.Sprintf(format, args...))
}

// Failed reports whether any failure has been recorded.
func (t *T) Failed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.failures) > 0
}

func (t *T) record(err error, fatal bool) {
	kind := KindError
	if f, ok := check.AsFailure(err); ok {
		kind = f.Kind
	}
	t.recordKind(kind, err.Error(), fatal)
}

func (t *T) recordKind(kind check.Kind, msg string, fatal bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.failures = append(t.failures, Assertion{Kind: kind, Message: msg, Fatal: fatal})
}

func (t *T) snapshot() ([]Assertion, []string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	failures := make([]Assertion, len(t.failures))
	copy(failures, t.failures)
	logs := make([]string, len(t.logs))
	copy(logs, t.logs)
	return failures, logs
}
