package sim

import (
	"errors"
	"fmt"
)

// Sentinels carried by InvariantViolation.Err, matchable with errors.Is.
var (
	ErrDoubleRelease     = errors.New("grant already released")
	ErrForeignGrant      = errors.New("grant belongs to another pool")
	ErrUnexpectedState   = errors.New("patient not in expected state")
	ErrIllegalTransition = errors.New("illegal state transition")
	ErrPastEvent         = errors.New("event scheduled in the past")
	ErrUnknownPatient    = errors.New("event references unknown patient")
	ErrNoHandler         = errors.New("no handler registered for event kind")
)

// ConfigurationError reports an invalid scenario parameter. It is raised by
// Scenario.Validate before any run starts.
type ConfigurationError struct {
	Scenario string // "<hospital>/<configuration>"
	Field    string // YAML path, e.g. "capacities.ed_beds"
	Reason   string
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("scenario %s: %s", e.Scenario, e.Reason)
	}
	return fmt.Sprintf("scenario %s: %s %s", e.Scenario, e.Field, e.Reason)
}

// InvariantViolation is an internal contract breach detected during a run.
// It aborts the run; continuing would corrupt the statistics.
type InvariantViolation struct {
	Time      float64
	Kind      EventKind
	PatientID int64
	Detail    string
	Err       error
}

func (e *InvariantViolation) Error() string {
	msg := fmt.Sprintf("invariant violation at t=%.3f (%s, patient %d)", e.Time, e.Kind, e.PatientID)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *InvariantViolation) Unwrap() error {
	return e.Err
}
