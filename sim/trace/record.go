// Package trace provides event-trace recording for patient-flow runs.
// It stores pure data types and does not import sim.
package trace

// DispatchRecord captures one dispatched event.
type DispatchRecord struct {
	Seq       uint64
	Time      float64 // simulated minutes
	Kind      string
	PatientID int64 // 0 when the event carries no patient
}

// TransitionRecord captures one patient lifecycle transition.
type TransitionRecord struct {
	PatientID int64
	Time      float64
	From      string
	To        string
}

// TransportRecord captures one transport assignment.
type TransportRecord struct {
	PatientID int64
	Time      float64
	Mode      string // porter, pulley or volunteer
	Move      string // imaging, inpatient or transfer
	Waited    float64
}

// DecisionRecord captures a routing or disposition draw.
type DecisionRecord struct {
	PatientID int64
	Time      float64
	Decision  string // e.g. "route", "imaging", "disposition", "discharge_requeue"
	Outcome   string
}
