// Package suite discovers, runs and reports on named test cases.
//
// It is a small execution collaborator for assertion-based cases: each case
// runs in its own goroutine with its own recorder, so a failing or panicking
// case never affects another. Results are collected into a Report that
// carries a process exit code.
package suite

import (
	"errors"
	"fmt"
	"regexp"
	"sync"
)

// Common errors for case registration.
var (
	ErrInvalidCase   = errors.New("invalid case")
	ErrDuplicateCase = errors.New("duplicate case")
	ErrInvalidFilter = errors.New("invalid case filter")
)

// Func is the body of a test case.
type Func func(t *T)

// Case is a named, independently runnable test case.
type Case struct {
	Group string
	Name  string
	Func  Func
}

// ID returns the case identifier, Group/Name.
func (c Case) ID() string {
	return c.Group + "/" + c.Name
}

func (c Case) validate() error {
	if c.Group == "" || c.Name == "" {
		return fmt.Errorf("%w: group and name are required", ErrInvalidCase)
	}
	if c.Func == nil {
		return fmt.Errorf("%w: %s has no body", ErrInvalidCase, c.ID())
	}
	return nil
}

// Registry holds cases in registration order.
type Registry struct {
	mu    sync.RWMutex
	cases []Case
	ids   map[string]struct{}
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{ids: make(map[string]struct{})}
}

// Register adds a case. IDs must be unique.
func (r *Registry) Register(c Case) error {
	if err := c.validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.ids[c.ID()]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateCase, c.ID())
	}
	r.ids[c.ID()] = struct{}{}
	r.cases = append(r.cases, c)
	return nil
}

// Len returns the number of registered cases.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.cases)
}

// Cases returns all cases in registration order.
func (r *Registry) Cases() []Case {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Case, len(r.cases))
	copy(out, r.cases)
	return out
}

// Lookup returns the case with the given ID.
func (r *Registry) Lookup(id string) (Case, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, c := range r.cases {
		if c.ID() == id {
			return c, true
		}
	}
	return Case{}, false
}

// Filter returns the cases whose ID matches pattern, in registration order.
// An empty pattern matches everything.
func (r *Registry) Filter(pattern string) ([]Case, error) {
	if pattern == "" {
		return r.Cases(), nil
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFilter, err)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Case
	for _, c := range r.cases {
		if re.MatchString(c.ID()) {
			out = append(out, c)
		}
	}
	return out, nil
}
