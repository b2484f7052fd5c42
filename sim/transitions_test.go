package sim

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransitions_DepartedIsTerminal(t *testing.T) {
	table := Transitions()
	assert.Empty(t, table[StateDeparted])
	for from := StateArrived; from <= StateDeparted; from++ {
		_, ok := table[from]
		assert.True(t, ok, "state %s missing from table", from)
	}
}

func TestTransitions_ReturnsCopy(t *testing.T) {
	table := Transitions()
	table[StateArrived] = nil
	assert.True(t, CanTransition(StateArrived, StateTriaged))
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to State
		want     bool
	}{
		{StateArrived, StateTriaged, true},
		{StateArrived, StateDeparted, true},
		{StateArrived, StateEDTreatment, false},
		{StateTriaged, StateCDURouted, true},
		{StateCDURouted, StateTransportRequested, false},
		{StateEDTreatment, StateTransportRequested, true},
		{StateImagingRequested, StateDischarging, false},
		{StateImagingCompleted, StateAdmittedToBed, true},
		{StateAdmittedToBed, StateTransportRequested, true},
		{StateTransported, StateDeparted, true},
		{StateDischarging, StateDischarging, true},
		{StateDeparted, StateArrived, false},
	}
	for _, tt := range tests {
		t.Run(tt.from.String()+"->"+tt.to.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestPatient_Transition_KeepsStageLog(t *testing.T) {
	// GIVEN a patient that arrived at t=0
	p := newPatient(1, 0, AcuityUrgent, 80)

	// WHEN walking the ED discharge path
	require.NoError(t, p.Transition(StateTriaged, 15))
	require.NoError(t, p.Transition(StateEDTreatment, 15))
	require.NoError(t, p.Transition(StateDischarging, 60))
	require.NoError(t, p.Transition(StateDeparted, 180))

	// THEN every entry is closed and ordered, and departure is stamped
	require.Len(t, p.Log, 5)
	assert.Equal(t, StageEntry{State: StateArrived, Enter: 0, Exit: 15}, p.Log[0])
	assert.Equal(t, StageEntry{State: StateDischarging, Enter: 60, Exit: 180}, p.Log[3])
	assert.Equal(t, 180.0, p.Departure)
	assert.True(t, p.Terminal())
}

func TestPatient_Transition_IllegalEdge(t *testing.T) {
	p := newPatient(1, 0, AcuityStandard, 80)
	err := p.Transition(StateImagingCompleted, 5)
	assert.True(t, errors.Is(err, ErrIllegalTransition))
	assert.Equal(t, StateArrived, p.State)
	assert.Len(t, p.Log, 1)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "TransportRequested", StateTransportRequested.String())
	assert.Equal(t, "State(99)", State(99).String())
}
