// Package robot models a multi-joint robot arm: its operating status and the
// target and measured angle of each joint.
package robot

import (
	"errors"
	"fmt"
	"math"
	"sync"
)

// Common errors for arm configuration and control.
var (
	ErrInvalidJoint   = errors.New("invalid joint configuration")
	ErrDuplicateJoint = errors.New("duplicate joint name")
	ErrUnknownJoint   = errors.New("unknown joint")
	ErrOutOfRange     = errors.New("angle outside joint limits")
	ErrFaulted        = errors.New("arm is faulted")
)

// Joint describes one revolute joint. Angles are in radians.
type Joint struct {
	Name    string
	Min     float64
	Max     float64
	Target  float64
	Current float64
}

// InRange reports whether rad lies within the joint limits.
func (j Joint) InRange(rad float64) bool {
	return rad >= j.Min && rad <= j.Max
}

// Deviation returns the absolute difference between target and measured angle.
func (j Joint) Deviation() float64 {
	return math.Abs(j.Target - j.Current)
}

func (j Joint) validate() error {
	if j.Name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidJoint)
	}
	if math.IsNaN(j.Min) || math.IsNaN(j.Max) || j.Min >= j.Max {
		return fmt.Errorf("%w: %s limits [%g, %g]", ErrInvalidJoint, j.Name, j.Min, j.Max)
	}
	if !j.InRange(j.Target) || !j.InRange(j.Current) {
		return fmt.Errorf("%w: %s", ErrOutOfRange, j.Name)
	}
	return nil
}

// Arm is a named set of joints with an operating status.
// It is safe for concurrent use.
type Arm struct {
	name string

	mu      sync.RWMutex
	status  Status
	joints  map[string]*Joint
	order   []string
	lastErr error
}

// NewArm creates an idle arm with the given joints.
func NewArm(name string, joints ...Joint) (*Arm, error) {
	arm := &Arm{
		name:   name,
		status: StatusIdle,
		joints: make(map[string]*Joint, len(joints)),
		order:  make([]string, 0, len(joints)),
	}

	for _, j := range joints {
		if err := j.validate(); err != nil {
			return nil, err
		}
		if _, exists := arm.joints[j.Name]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateJoint, j.Name)
		}
		joint := j
		arm.joints[j.Name] = &joint
		arm.order = append(arm.order, j.Name)
	}

	return arm, nil
}

// Name returns the arm name.
func (a *Arm) Name() string {
	return a.name
}

// Status returns the current operating status.
func (a *Arm) Status() Status {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.status
}

// Err returns the error recorded by the last Fault, if any.
func (a *Arm) Err() error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.lastErr
}

// Joint returns a copy of the named joint.
func (a *Arm) Joint(name string) (Joint, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	j, ok := a.joints[name]
	if !ok {
		return Joint{}, fmt.Errorf("%w: %s", ErrUnknownJoint, name)
	}
	return *j, nil
}

// Joints returns copies of all joints in configuration order.
func (a *Arm) Joints() []Joint {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make([]Joint, 0, len(a.order))
	for _, name := range a.order {
		out = append(out, *a.joints[name])
	}
	return out
}

// SetTarget commands a joint to a new angle and puts the arm in motion.
func (a *Arm) SetTarget(name string, rad float64) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.status == StatusFault {
		return ErrFaulted
	}
	j, ok := a.joints[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownJoint, name)
	}
	if math.IsNaN(rad) || !j.InRange(rad) {
		return fmt.Errorf("%w: %s target %g not in [%g, %g]", ErrOutOfRange, name, rad, j.Min, j.Max)
	}

	j.Target = rad
	a.status = StatusMoving
	return nil
}

// Report records a measured angle for a joint.
func (a *Arm) Report(name string, rad float64) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	j, ok := a.joints[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownJoint, name)
	}
	j.Current = rad
	return nil
}

// AtTarget reports whether every joint is within tol of its target.
func (a *Arm) AtTarget(tol float64) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.atTarget(tol)
}

func (a *Arm) atTarget(tol float64) bool {
	for _, j := range a.joints {
		if !(j.Deviation() <= tol) {
			return false
		}
	}
	return true
}

// Settle moves a Moving arm to Holding once every joint is within tol.
// It returns true if the arm is holding after the call.
func (a *Arm) Settle(tol float64) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.status == StatusMoving && a.atTarget(tol) {
		a.status = StatusHolding
	}
	return a.status == StatusHolding
}

// Fault stops the arm and records the cause.
func (a *Arm) Fault(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.status = StatusFault
	a.lastErr = err
}

// Reset clears a fault and returns the arm to Idle.
func (a *Arm) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.status = StatusIdle
	a.lastErr = nil
}
