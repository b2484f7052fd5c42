package trace

// TraceSummary aggregates statistics from a SimulationTrace.
type TraceSummary struct {
	TotalDispatches  int
	PatientsSeen     int
	KindCounts       map[string]int // event kind → dispatches
	TransitionCounts map[string]int // "From->To" → count
	TransportModes   map[string]int // mode → count
	DecisionOutcomes map[string]int // "decision=outcome" → count
	LastEventTime    float64
}

// Summarize computes aggregate statistics from a SimulationTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(st *SimulationTrace) *TraceSummary {
	summary := &TraceSummary{
		KindCounts:       make(map[string]int),
		TransitionCounts: make(map[string]int),
		TransportModes:   make(map[string]int),
		DecisionOutcomes: make(map[string]int),
	}
	if st == nil {
		return summary
	}

	patients := make(map[int64]bool)
	summary.TotalDispatches = len(st.Dispatches)
	for _, d := range st.Dispatches {
		summary.KindCounts[d.Kind]++
		if d.PatientID != 0 {
			patients[d.PatientID] = true
		}
		if d.Time > summary.LastEventTime {
			summary.LastEventTime = d.Time
		}
	}
	for _, tr := range st.Transitions {
		summary.TransitionCounts[tr.From+"->"+tr.To]++
	}
	for _, tr := range st.Transports {
		summary.TransportModes[tr.Mode]++
	}
	for _, d := range st.Decisions {
		summary.DecisionOutcomes[d.Decision+"="+d.Outcome]++
	}
	summary.PatientsSeen = len(patients)

	return summary
}
