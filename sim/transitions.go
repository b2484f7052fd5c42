package sim

import "fmt"

// State is a patient lifecycle state.
type State int

const (
	StateArrived State = iota
	StateTriaged
	StateEDTreatment
	StateCDURouted
	StateImagingRequested
	StateImagingCompleted
	StateAdmittedToBed
	StateTransportRequested
	StateTransported
	StateDischarging
	StateDeparted
)

var stateNames = map[State]string{
	StateArrived:            "Arrived",
	StateTriaged:            "Triaged",
	StateEDTreatment:        "EDTreatment",
	StateCDURouted:          "CDURouted",
	StateImagingRequested:   "ImagingRequested",
	StateImagingCompleted:   "ImagingCompleted",
	StateAdmittedToBed:      "AdmittedToBed",
	StateTransportRequested: "TransportRequested",
	StateTransported:        "Transported",
	StateDischarging:        "Discharging",
	StateDeparted:           "Departed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// transitions is the lifecycle table. Departed has no outgoing edges.
// Arrived→Departed and EDTreatment→Departed exist only for balking.
var transitions = map[State][]State{
	StateArrived:            {StateTriaged, StateDeparted},
	StateTriaged:            {StateEDTreatment, StateCDURouted},
	StateEDTreatment:        {StateImagingRequested, StateAdmittedToBed, StateTransportRequested, StateDischarging, StateDeparted},
	StateCDURouted:          {StateImagingRequested, StateAdmittedToBed, StateDischarging},
	StateImagingRequested:   {StateImagingCompleted},
	StateImagingCompleted:   {StateAdmittedToBed, StateTransportRequested, StateDischarging},
	StateAdmittedToBed:      {StateTransportRequested},
	StateTransportRequested: {StateTransported},
	StateTransported:        {StateDeparted},
	StateDischarging:        {StateDischarging, StateDeparted},
	StateDeparted:           nil,
}

// Transitions returns a copy of the lifecycle table.
func Transitions() map[State][]State {
	out := make(map[State][]State, len(transitions))
	for from, tos := range transitions {
		out[from] = append([]State(nil), tos...)
	}
	return out
}

// CanTransition reports whether from→to is a legal lifecycle edge.
func CanTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Transition moves the patient to a new state at time now, closing the open
// stage-log entry and opening a new one. Illegal edges return ErrIllegalTransition.
func (p *Patient) Transition(to State, now float64) error {
	if !CanTransition(p.State, to) {
		return fmt.Errorf("patient %d %s -> %s: %w", p.ID, p.State, to, ErrIllegalTransition)
	}
	if n := len(p.Log); n > 0 && p.Log[n-1].Exit < 0 {
		p.Log[n-1].Exit = now
	}
	p.State = to
	if to == StateDeparted {
		p.Departure = now
		p.Log = append(p.Log, StageEntry{State: to, Enter: now, Exit: now})
		return nil
	}
	p.Log = append(p.Log, StageEntry{State: to, Enter: now, Exit: -1})
	return nil
}
