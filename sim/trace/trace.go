package trace

// TraceLevel controls the verbosity of event tracing.
type TraceLevel string

const (
	// TraceLevelNone disables tracing (zero overhead).
	TraceLevelNone TraceLevel = "none"
	// TraceLevelEvents captures every dispatched event, state transition and decision.
	TraceLevelEvents TraceLevel = "events"
)

// validTraceLevels maps accepted trace level strings.
var validTraceLevels = map[TraceLevel]bool{
	TraceLevelNone:   true,
	TraceLevelEvents: true,
	"":               true, // empty defaults to none
}

// IsValidTraceLevel returns true if the given level string is a recognized trace level.
func IsValidTraceLevel(level string) bool {
	return validTraceLevels[TraceLevel(level)]
}

// TraceConfig controls trace collection behavior.
type TraceConfig struct {
	Level TraceLevel
	// PatientID restricts patient-scoped records to one patient; 0 keeps all.
	PatientID int64
}

// SimulationTrace collects event records during one simulation run.
type SimulationTrace struct {
	Config      TraceConfig
	Dispatches  []DispatchRecord
	Transitions []TransitionRecord
	Transports  []TransportRecord
	Decisions   []DecisionRecord
}

// NewSimulationTrace creates a SimulationTrace ready for recording.
func NewSimulationTrace(config TraceConfig) *SimulationTrace {
	return &SimulationTrace{
		Config:      config,
		Dispatches:  make([]DispatchRecord, 0),
		Transitions: make([]TransitionRecord, 0),
		Transports:  make([]TransportRecord, 0),
		Decisions:   make([]DecisionRecord, 0),
	}
}

// Enabled reports whether records are being collected.
func (st *SimulationTrace) Enabled() bool {
	return st != nil && st.Config.Level == TraceLevelEvents
}

// Wants reports whether records about the given patient are kept.
// Patient 0 (events with no patient) is kept only when no filter is set.
func (st *SimulationTrace) Wants(patientID int64) bool {
	if !st.Enabled() {
		return false
	}
	return st.Config.PatientID == 0 || st.Config.PatientID == patientID
}

// RecordDispatch appends a dispatch record.
func (st *SimulationTrace) RecordDispatch(record DispatchRecord) {
	if st.Wants(record.PatientID) {
		st.Dispatches = append(st.Dispatches, record)
	}
}

// RecordTransition appends a state-transition record.
func (st *SimulationTrace) RecordTransition(record TransitionRecord) {
	if st.Wants(record.PatientID) {
		st.Transitions = append(st.Transitions, record)
	}
}

// RecordTransport appends a transport record.
func (st *SimulationTrace) RecordTransport(record TransportRecord) {
	if st.Wants(record.PatientID) {
		st.Transports = append(st.Transports, record)
	}
}

// RecordDecision appends a routing or disposition decision record.
func (st *SimulationTrace) RecordDecision(record DecisionRecord) {
	if st.Wants(record.PatientID) {
		st.Decisions = append(st.Decisions, record)
	}
}
