package trace

import (
	"testing"
)

func TestSimulationTrace_RecordDispatch_AppendsRecord(t *testing.T) {
	// GIVEN a trace configured for events
	st := NewSimulationTrace(TraceConfig{Level: TraceLevelEvents})

	// WHEN a dispatch record is recorded
	st.RecordDispatch(DispatchRecord{Seq: 1, Time: 12.5, Kind: "Arrival", PatientID: 0})

	// THEN the trace contains one dispatch record with correct data
	if len(st.Dispatches) != 1 {
		t.Fatalf("expected 1 dispatch, got %d", len(st.Dispatches))
	}
	if st.Dispatches[0].Kind != "Arrival" {
		t.Errorf("expected kind Arrival, got %s", st.Dispatches[0].Kind)
	}
}

func TestSimulationTrace_LevelNone_RecordsNothing(t *testing.T) {
	// GIVEN a trace with tracing disabled
	st := NewSimulationTrace(TraceConfig{Level: TraceLevelNone})

	// WHEN records are offered
	st.RecordDispatch(DispatchRecord{Seq: 1, Kind: "Arrival"})
	st.RecordTransition(TransitionRecord{PatientID: 1, From: "Arrived", To: "Triaged"})

	// THEN nothing is kept
	if len(st.Dispatches) != 0 || len(st.Transitions) != 0 {
		t.Errorf("expected empty trace, got %d dispatches and %d transitions", len(st.Dispatches), len(st.Transitions))
	}
}

func TestSimulationTrace_PatientFilter_KeepsOnlyThatPatient(t *testing.T) {
	// GIVEN a trace filtered to patient 7
	st := NewSimulationTrace(TraceConfig{Level: TraceLevelEvents, PatientID: 7})

	// WHEN records for several patients are offered
	st.RecordDispatch(DispatchRecord{Seq: 1, Kind: "Arrival", PatientID: 0})
	st.RecordDispatch(DispatchRecord{Seq: 2, Kind: "TriageStart", PatientID: 3})
	st.RecordDispatch(DispatchRecord{Seq: 3, Kind: "TriageStart", PatientID: 7})
	st.RecordTransport(TransportRecord{PatientID: 7, Mode: "porter", Move: "imaging"})
	st.RecordDecision(DecisionRecord{PatientID: 3, Decision: "route", Outcome: "cdu"})

	// THEN only patient 7 records remain
	if len(st.Dispatches) != 1 || st.Dispatches[0].Seq != 3 {
		t.Fatalf("expected only dispatch seq 3, got %+v", st.Dispatches)
	}
	if len(st.Transports) != 1 {
		t.Errorf("expected 1 transport, got %d", len(st.Transports))
	}
	if len(st.Decisions) != 0 {
		t.Errorf("expected 0 decisions, got %d", len(st.Decisions))
	}
}

func TestSimulationTrace_MultipleRecords_PreservesOrder(t *testing.T) {
	// GIVEN a trace
	st := NewSimulationTrace(TraceConfig{Level: TraceLevelEvents})

	// WHEN multiple transitions are added
	st.RecordTransition(TransitionRecord{PatientID: 1, Time: 1, From: "Arrived", To: "Triaged"})
	st.RecordTransition(TransitionRecord{PatientID: 1, Time: 2, From: "Triaged", To: "EDTreatment"})

	// THEN order is preserved
	if st.Transitions[0].To != "Triaged" || st.Transitions[1].To != "EDTreatment" {
		t.Errorf("transitions out of order: %+v", st.Transitions)
	}
}

func TestSimulationTrace_NilTrace_IsDisabled(t *testing.T) {
	var st *SimulationTrace
	if st.Enabled() {
		t.Error("nil trace must report disabled")
	}
}

func TestIsValidTraceLevel(t *testing.T) {
	tests := []struct {
		level string
		valid bool
	}{
		{"none", true},
		{"events", true},
		{"", true},
		{"decisions", false},
		{"verbose", false},
	}
	for _, tt := range tests {
		if got := IsValidTraceLevel(tt.level); got != tt.valid {
			t.Errorf("IsValidTraceLevel(%q) = %v, want %v", tt.level, got, tt.valid)
		}
	}
}
