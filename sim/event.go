package sim

// EventKind tags what an Event means. Every kind has exactly one handler in
// the dispatch table (see handlers.go).
type EventKind int

const (
	// KindArrival creates a patient and schedules the next arrival.
	KindArrival EventKind = iota
	// KindTriageStart fires when a triage nurse is granted.
	KindTriageStart
	KindTriageDone
	// KindBedAssigned fires when an ED or CDU bed is granted.
	KindBedAssigned
	// KindTreatmentStart fires when a physician is granted (ED path only).
	KindTreatmentStart
	KindTreatmentDone
	// KindTransportStart fires when a porter, pulley or volunteer is granted.
	KindTransportStart
	KindTransportDone
	KindScanStart
	KindScanDone
	KindReportStart
	KindReportDone
	// KindInpatientBedAssigned fires when a boarding patient gets an inpatient bed.
	KindInpatientBedAssigned
	KindDischargeStart
	KindDischargeDone
	// KindBalk is the abandonment timeout racing a queued request.
	KindBalk
	// KindBedTurnover frees an inpatient bed after the stay. It carries no patient.
	KindBedTurnover
)

var eventKindNames = map[EventKind]string{
	KindArrival:              "Arrival",
	KindTriageStart:          "TriageStart",
	KindTriageDone:           "TriageDone",
	KindBedAssigned:          "BedAssigned",
	KindTreatmentStart:       "TreatmentStart",
	KindTreatmentDone:        "TreatmentDone",
	KindTransportStart:       "TransportStart",
	KindTransportDone:        "TransportDone",
	KindScanStart:            "ScanStart",
	KindScanDone:             "ScanDone",
	KindReportStart:          "ReportStart",
	KindReportDone:           "ReportDone",
	KindInpatientBedAssigned: "InpatientBedAssigned",
	KindDischargeStart:       "DischargeStart",
	KindDischargeDone:        "DischargeDone",
	KindBalk:                 "Balk",
	KindBedTurnover:          "BedTurnover",
}

func (k EventKind) String() string {
	if name, ok := eventKindNames[k]; ok {
		return name
	}
	return "Unknown"
}

// Event is a scheduled occurrence in simulated time.
// Events are values: once handed to the Clock they are never mutated.
// Ordering key is (Time, Seq); Seq is stamped by Clock.Schedule.
type Event struct {
	Time    float64 // simulated minutes since run start
	Seq     uint64  // insertion order, tie-breaker for equal Time
	Kind    EventKind
	Patient *Patient // nil for KindBedTurnover

	// Payload
	Grant  *Grant // resource handed to a continuation, or the bed freed by KindBedTurnover
	Pool   string // pool of Ticket
	Ticket uint64 // queued request a KindBalk timeout races against
}

// PatientID returns the referenced patient's ID, or 0 when the event has none.
func (e Event) PatientID() int64 {
	if e.Patient == nil {
		return 0
	}
	return e.Patient.ID
}
