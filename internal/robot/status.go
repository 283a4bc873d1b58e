package robot

import "errors"

// Status is the operating state of an arm.
type Status string

const (
	StatusIdle    Status = "Idle"
	StatusMoving  Status = "Moving"
	StatusHolding Status = "Holding"
	StatusFault   Status = "Fault"
)

// ErrUnknownStatus is returned when parsing text that names no status.
var ErrUnknownStatus = errors.New("unknown arm status")

// String returns the status literal.
func (s Status) String() string {
	return string(s)
}

// Valid reports whether s is one of the defined statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusIdle, StatusMoving, StatusHolding, StatusFault:
		return true
	default:
		return false
	}
}

// ParseStatus parses an exact, case-sensitive status literal.
func ParseStatus(s string) (Status, error) {
	status := Status(s)
	if !status.Valid() {
		return "", ErrUnknownStatus
	}
	return status, nil
}
