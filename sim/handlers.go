// sim/handlers.go
package sim

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/patientflow-sim/patientflow/sim/trace"
)

type handlerFunc func(s *Simulator, e Event) error

// handlerEntry binds an event kind to its handler and the states its
// patient must be in. A stale-tolerant entry turns a precondition mismatch
// into a no-op instead of an InvariantViolation.
type handlerEntry struct {
	requires []State
	handle   handlerFunc
	staleOK  bool
}

var handlers = map[EventKind]handlerEntry{
	KindArrival:              {handle: onArrival},
	KindTriageStart:          {requires: []State{StateArrived}, handle: onTriageStart},
	KindTriageDone:           {requires: []State{StateArrived}, handle: onTriageDone},
	KindBedAssigned:          {requires: []State{StateEDTreatment, StateCDURouted}, handle: onBedAssigned},
	KindTreatmentStart:       {requires: []State{StateEDTreatment}, handle: onTreatmentStart},
	KindTreatmentDone:        {requires: []State{StateEDTreatment, StateCDURouted}, handle: onTreatmentDone},
	KindTransportStart:       {requires: []State{StateImagingRequested, StateTransportRequested}, handle: onTransportStart},
	KindTransportDone:        {requires: []State{StateImagingRequested, StateTransportRequested}, handle: onTransportDone},
	KindScanStart:            {requires: []State{StateImagingRequested}, handle: onScanStart},
	KindScanDone:             {requires: []State{StateImagingRequested}, handle: onScanDone},
	KindReportStart:          {requires: []State{StateImagingRequested}, handle: onReportStart},
	KindReportDone:           {requires: []State{StateImagingRequested}, handle: onReportDone},
	KindInpatientBedAssigned: {requires: []State{StateEDTreatment, StateCDURouted, StateImagingCompleted}, handle: onInpatientBedAssigned},
	KindDischargeStart:       {requires: []State{StateDischarging}, handle: onDischargeStart},
	KindDischargeDone:        {requires: []State{StateDischarging}, handle: onDischargeDone},
	KindBalk:                 {requires: []State{StateArrived, StateEDTreatment}, handle: onBalk, staleOK: true},
	KindBedTurnover:          {handle: onBedTurnover},
}

// dispatch checks the event's preconditions and runs its handler. Every
// failure comes back as an *InvariantViolation.
func (s *Simulator) dispatch(e Event) error {
	entry, ok := handlers[e.Kind]
	if !ok {
		return s.violation(e, "", ErrNoHandler)
	}
	if p := e.Patient; p != nil {
		if _, live := s.active[p.ID]; !live {
			if entry.staleOK {
				return nil
			}
			return s.violation(e, "patient already departed", ErrUnknownPatient)
		}
		if !stateIn(p.State, entry.requires) {
			if entry.staleOK {
				return nil
			}
			return s.violation(e, fmt.Sprintf("state %s, want one of %v", p.State, entry.requires), ErrUnexpectedState)
		}
	}

	logrus.Debugf("[t=%10.2f] %-22s patient=%d", e.Time, e.Kind, e.PatientID())
	s.Trace.RecordDispatch(trace.DispatchRecord{Seq: e.Seq, Time: e.Time, Kind: e.Kind.String(), PatientID: e.PatientID()})

	if err := entry.handle(s, e); err != nil {
		var iv *InvariantViolation
		if errors.As(err, &iv) {
			return err
		}
		return s.violation(e, "", err)
	}
	return nil
}

func (s *Simulator) violation(e Event, detail string, err error) error {
	return &InvariantViolation{Time: e.Time, Kind: e.Kind, PatientID: e.PatientID(), Detail: detail, Err: err}
}

func stateIn(st State, allowed []State) bool {
	for _, a := range allowed {
		if st == a {
			return true
		}
	}
	return false
}

func onArrival(s *Simulator, e Event) error {
	now := s.Clock.Now()
	s.nextID++
	p := newPatient(s.nextID, now, s.sampleAcuity(), s.Scenario.Satisfaction.Initial)
	s.active[p.ID] = p
	s.Collector.RecordArrival()
	if s.Scenario.Capabilities.Amenities {
		s.satisfy.amenities(p)
	}
	if err := s.scheduleArrival(now); err != nil {
		return err
	}
	return s.request(p, PoolTriageNurses, KindTriageStart)
}

func onTriageStart(s *Simulator, e Event) error {
	p := e.Patient
	s.granted(p, e.Grant)
	p.staff = e.Grant
	return s.schedule(s.Clock.Now()+s.duration(StageTriage, p), KindTriageDone, p, nil)
}

func onTriageDone(s *Simulator, e Event) error {
	p := e.Patient
	if err := s.release(p.staff); err != nil {
		return err
	}
	p.staff = nil
	if err := s.moveTo(p, StateTriaged); err != nil {
		return err
	}

	caps := s.Scenario.Capabilities
	if caps.CDURouting && s.decide(p, "route", s.Scenario.Routing.CDUEligibility[p.Acuity], string(RouteCDU), string(RouteED)) {
		p.Route = RouteCDU
		if err := s.moveTo(p, StateCDURouted); err != nil {
			return err
		}
		return s.request(p, PoolCDUBeds, KindBedAssigned)
	}
	p.Route = RouteED
	if err := s.moveTo(p, StateEDTreatment); err != nil {
		return err
	}
	return s.request(p, PoolEDBeds, KindBedAssigned)
}

// onBedAssigned starts CDU observation directly (the CDU is outside the ED);
// ED patients go on to wait for a physician.
func onBedAssigned(s *Simulator, e Event) error {
	p := e.Patient
	s.granted(p, e.Grant)
	p.bed = e.Grant
	now := s.Clock.Now()
	if p.State == StateCDURouted {
		p.markLeftED(now)
		return s.schedule(now+s.duration(StageCDUObservation, p), KindTreatmentDone, p, nil)
	}
	return s.request(p, PoolPhysicians, KindTreatmentStart)
}

func onTreatmentStart(s *Simulator, e Event) error {
	p := e.Patient
	s.granted(p, e.Grant)
	p.staff = e.Grant
	return s.schedule(s.Clock.Now()+s.duration(StageTreatment, p), KindTreatmentDone, p, nil)
}

func onTreatmentDone(s *Simulator, e Event) error {
	p := e.Patient
	if p.staff != nil {
		if err := s.release(p.staff); err != nil {
			return err
		}
		p.staff = nil
	}
	if s.decide(p, "imaging", s.Scenario.Routing.ImagingProbability[p.Acuity], "ordered", "none") {
		if err := s.moveTo(p, StateImagingRequested); err != nil {
			return err
		}
		p.ImagingRequested = s.Clock.Now()
		return s.requestTransport(p, MoveImaging)
	}
	return s.dispose(p)
}

func onTransportStart(s *Simulator, e Event) error {
	p := e.Patient
	s.granted(p, e.Grant)
	p.transport = e.Grant
	mode := modeForPool(e.Grant.Pool)
	s.Collector.RecordTransport(mode)
	now := s.Clock.Now()
	s.Trace.RecordTransport(trace.TransportRecord{PatientID: p.ID, Time: now, Mode: string(mode), Move: string(p.move), Waited: e.Grant.Waited})
	return s.schedule(now+s.duration(transportStages[mode], p), KindTransportDone, p, nil)
}

func onTransportDone(s *Simulator, e Event) error {
	p := e.Patient
	if err := s.release(p.transport); err != nil {
		return err
	}
	p.transport = nil
	if p.State == StateImagingRequested {
		return s.request(p, PoolScanners, KindScanStart)
	}

	now := s.Clock.Now()
	if err := s.moveTo(p, StateTransported); err != nil {
		return err
	}
	if err := s.release(p.bed); err != nil {
		return err
	}
	p.bed = nil
	if p.inpatient != nil {
		// The inpatient bed outlives the visit: stay plus discharge planning.
		stay, _ := s.sampleStage(StageInpatientStay, p.Acuity)
		discharge, _ := s.sampleStage(StageDischarge, p.Acuity)
		if err := s.schedule(now+stay+discharge, KindBedTurnover, nil, p.inpatient); err != nil {
			return err
		}
		p.inpatient = nil
	}
	return s.depart(p)
}

func onScanStart(s *Simulator, e Event) error {
	p := e.Patient
	s.granted(p, e.Grant)
	p.device = e.Grant
	return s.schedule(s.Clock.Now()+s.duration(StageImagingScan, p), KindScanDone, p, nil)
}

func onScanDone(s *Simulator, e Event) error {
	p := e.Patient
	if err := s.release(p.device); err != nil {
		return err
	}
	p.device = nil
	return s.request(p, PoolRadiologists, KindReportStart)
}

func onReportStart(s *Simulator, e Event) error {
	p := e.Patient
	s.granted(p, e.Grant)
	p.staff = e.Grant
	return s.schedule(s.Clock.Now()+s.duration(StageImagingReport, p), KindReportDone, p, nil)
}

func onReportDone(s *Simulator, e Event) error {
	p := e.Patient
	if err := s.release(p.staff); err != nil {
		return err
	}
	p.staff = nil
	if err := s.moveTo(p, StateImagingCompleted); err != nil {
		return err
	}
	p.ImagingCompleted = s.Clock.Now()
	p.hadImaging = true
	return s.dispose(p)
}

// dispose decides how a patient leaves after treatment or observation.
// CDU patients are either discharged home or admitted; ED patients may also
// be transferred out.
func (s *Simulator) dispose(p *Patient) error {
	r := s.Scenario.Routing
	if p.Route == RouteCDU {
		if s.decide(p, "disposition", r.CDUDischargeProbability, string(DispositionDischarged), string(DispositionAdmitted)) {
			p.CDUDischarged = true
			return s.startDischarge(p)
		}
		return s.startAdmission(p)
	}
	if s.decide(p, "transfer", r.TransferProbability[p.Acuity], string(DispositionTransferred), "stay") {
		p.Disposition = DispositionTransferred
		if err := s.moveTo(p, StateTransportRequested); err != nil {
			return err
		}
		return s.requestTransport(p, MoveTransfer)
	}
	if s.decide(p, "disposition", r.AdmitProbability[p.Acuity], string(DispositionAdmitted), string(DispositionDischarged)) {
		return s.startAdmission(p)
	}
	return s.startDischarge(p)
}

// startAdmission begins boarding: the patient keeps the ED or CDU bed until
// an inpatient bed is granted.
func (s *Simulator) startAdmission(p *Patient) error {
	p.Disposition = DispositionAdmitted
	p.boarding = true
	p.boardingSince = s.Clock.Now()
	return s.request(p, PoolInpatientBeds, KindInpatientBedAssigned)
}

func onInpatientBedAssigned(s *Simulator, e Event) error {
	p := e.Patient
	s.granted(p, e.Grant)
	p.inpatient = e.Grant
	if p.boarding {
		p.BoardingMinutes = s.Clock.Now() - p.boardingSince
		p.boarding = false
	}
	if err := s.moveTo(p, StateAdmittedToBed); err != nil {
		return err
	}
	if err := s.moveTo(p, StateTransportRequested); err != nil {
		return err
	}
	return s.requestTransport(p, MoveInpatient)
}

func (s *Simulator) startDischarge(p *Patient) error {
	p.Disposition = DispositionDischarged
	if err := s.moveTo(p, StateDischarging); err != nil {
		return err
	}
	return s.request(p, PoolDischargeStaff, KindDischargeStart)
}

func onDischargeStart(s *Simulator, e Event) error {
	p := e.Patient
	s.granted(p, e.Grant)
	p.staff = e.Grant
	return s.schedule(s.Clock.Now()+s.duration(StageDischarge, p), KindDischargeDone, p, nil)
}

// onDischargeDone either completes the discharge or, when the paperwork
// bounces, sends the patient back to the discharge queue.
func onDischargeDone(s *Simulator, e Event) error {
	p := e.Patient
	if err := s.release(p.staff); err != nil {
		return err
	}
	p.staff = nil

	sc := s.Scenario
	requeue := sc.Capabilities.RequeueProbability(sc.Routing.DischargeRequeueProbability, sc.Reductions)
	if s.decide(p, "discharge_requeue", requeue, "requeued", "complete") {
		p.DischargeRequeues++
		if err := s.moveTo(p, StateDischarging); err != nil {
			return err
		}
		return s.request(p, PoolDischargeStaff, KindDischargeStart)
	}
	if err := s.release(p.bed); err != nil {
		return err
	}
	p.bed = nil
	return s.depart(p)
}

// onBalk abandons a queued triage or ED-bed request. If the request was
// already granted the timeout lost the race and does nothing.
func onBalk(s *Simulator, e Event) error {
	p := e.Patient
	w := p.waiting
	if w == nil || w.pool != e.Pool || w.ticket != e.Ticket {
		return nil
	}
	now := s.Clock.Now()
	if !s.Pools[w.pool].Abandon(w.ticket, now) {
		return nil
	}
	p.waiting = nil
	s.satisfy.afterWait(p, now-w.since)
	p.Disposition = DispositionLeftWithoutBeingSeen
	logrus.Debugf("[t=%10.2f] patient %d left without being seen after %.1fmin in %s queue", now, p.ID, now-w.since, w.pool)
	return s.depart(p)
}

func onBedTurnover(s *Simulator, e Event) error {
	return s.release(e.Grant)
}
