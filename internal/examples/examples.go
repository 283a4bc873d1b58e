// Package examples holds the example suite for the arm library: one case per
// assertion category a real suite needs (exact integers, exact strings,
// approximate floats).
package examples

import (
	"fmt"
	"math"

	"github.com/robotarm/armsuite/internal/arith"
	"github.com/robotarm/armsuite/internal/check"
	"github.com/robotarm/armsuite/internal/robot"
	"github.com/robotarm/armsuite/internal/suite"
)

// Reference values for the joint-angle case, in radians.
const (
	TargetAngle  = 3.14159
	CurrentAngle = 3.14150
)

// Deps are the library capabilities the cases exercise.
type Deps struct {
	Adder arith.Adder
}

// DefaultDeps wires the cases to this repository's library.
func DefaultDeps() Deps {
	return Deps{Adder: arith.Calculator{}}
}

// Cases returns the example cases bound to deps.
func Cases(deps Deps) []suite.Case {
	if deps.Adder == nil {
		deps.Adder = arith.Calculator{}
	}

	return []suite.Case{
		{Group: "MathTest", Name: "AdditionWorks", Func: additionWorks(deps.Adder)},
		{Group: "LogicTest", Name: "StringCheck", Func: stringCheck},
		{Group: "RobotArmTest", Name: "JointAngleConfig", Func: jointAngleConfig},
	}
}

// Register adds the example cases to reg.
func Register(reg *suite.Registry, deps Deps) error {
	for _, c := range Cases(deps) {
		if err := reg.Register(c); err != nil {
			return fmt.Errorf("failed to register %s: %w", c.ID(), err)
		}
	}
	return nil
}

func additionWorks(adder arith.Adder) suite.Func {
	return func(t *suite.T) {
		result := adder.Add(1, 2)

		t.Expect(check.Describe(check.Exact(result, 3), "Add(1, 2)"))
		t.Expect(check.Describe(check.NotEqual(result, 4), "Add(1, 2)"))
	}
}

func stringCheck(t *suite.T) {
	arm, err := robot.NewArm("example")
	t.Require(err)

	status := arm.Status().String()

	t.Expect(check.StringEqual(status, "Idle"))
	t.Expect(check.NonEmpty(status))
}

// jointAngleConfig drives one elbow joint to its target and checks the
// measured angle with the controller tolerance.
func jointAngleConfig(t *suite.T) {
	arm, err := robot.NewArm("example", robot.Joint{Name: "elbow", Min: 0, Max: math.Pi})
	t.Require(err)

	t.Require(arm.SetTarget("elbow", TargetAngle))
	t.Require(arm.Report("elbow", CurrentAngle))

	joint, err := arm.Joint("elbow")
	t.Require(err)

	t.Expect(check.Near(joint.Current, joint.Target, robot.DefaultTolerance))
	if !arm.Settle(robot.DefaultTolerance) {
		t.Errorf("arm did not settle: status %s", arm.Status())
	}
}
