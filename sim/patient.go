package sim

// Acuity is the severity classification drawn for each arriving patient.
type Acuity string

const (
	AcuityCritical Acuity = "critical"
	AcuityUrgent   Acuity = "urgent"
	AcuityStandard Acuity = "standard"
)

// Acuities lists acuities from most to least severe.
var Acuities = []Acuity{AcuityCritical, AcuityUrgent, AcuityStandard}

// Rank orders acuities for acuity-first queues: lower is served first.
func (a Acuity) Rank() int {
	switch a {
	case AcuityCritical:
		return 0
	case AcuityUrgent:
		return 1
	default:
		return 2
	}
}

// Disposition is how a patient left.
type Disposition string

const (
	DispositionNone        Disposition = ""
	DispositionAdmitted    Disposition = "admitted"
	DispositionDischarged  Disposition = "discharged"
	DispositionTransferred Disposition = "transferred"
	// DispositionLeftWithoutBeingSeen is recorded when a balk timeout wins its race.
	DispositionLeftWithoutBeingSeen Disposition = "left_without_being_seen"
)

// Route is the care path chosen at triage.
type Route string

const (
	RouteNone Route = ""
	RouteED   Route = "ed"
	RouteCDU  Route = "cdu"
)

// StageEntry is one interval the patient spent in a state.
// Exit is negative while the stage is open.
type StageEntry struct {
	State State
	Enter float64
	Exit  float64
}

// waitState tracks a queued request the patient is blocked on.
type waitState struct {
	pool   string
	ticket uint64
	since  float64
}

// Patient is one simulated visit. Only the engine mutates it, and only while
// dispatching that patient's events.
type Patient struct {
	ID          int64
	Arrival     float64
	Acuity      Acuity
	State       State
	Route       Route
	Disposition Disposition
	Log         []StageEntry

	Satisfaction float64
	Departure    float64 // time the patient reached Departed
	EDDeparture  float64 // time the patient physically left the ED
	leftED       bool

	ImagingRequested float64
	ImagingCompleted float64
	hadImaging       bool

	BoardingMinutes float64
	boardingSince   float64
	boarding        bool

	CDUDischarged     bool // discharged home from the CDU instead of being admitted
	DischargeRequeues int
	ShortenedStages   int // stages shortened by an enabled enhancement

	// Held resources.
	bed       *Grant // ED bed or CDU bed
	staff     *Grant // triage nurse, physician, radiologist or discharge staff
	device    *Grant // scanner
	transport *Grant
	inpatient *Grant

	waiting *waitState
	move    TransportMove // destination of the pending or active transport
}

func newPatient(id int64, arrival float64, acuity Acuity, satisfaction float64) *Patient {
	return &Patient{
		ID:           id,
		Arrival:      arrival,
		Acuity:       acuity,
		State:        StateArrived,
		Satisfaction: satisfaction,
		Log:          []StageEntry{{State: StateArrived, Enter: arrival, Exit: -1}},
	}
}

// HadImaging reports whether imaging was requested and completed.
func (p *Patient) HadImaging() bool {
	return p.hadImaging
}

// ImagingTAT returns the request-to-result turnaround. Only meaningful when HadImaging.
func (p *Patient) ImagingTAT() float64 {
	return p.ImagingCompleted - p.ImagingRequested
}

// EDLengthOfStay returns ED departure minus arrival.
func (p *Patient) EDLengthOfStay() float64 {
	return p.EDDeparture - p.Arrival
}

// Terminal reports whether the patient has departed.
func (p *Patient) Terminal() bool {
	return p.State == StateDeparted
}

// markLeftED records the first moment the patient leaves the ED.
func (p *Patient) markLeftED(now float64) {
	if !p.leftED {
		p.leftED = true
		p.EDDeparture = now
	}
}
