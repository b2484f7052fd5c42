// sim/simulator.go
//
// Discrete-event engine for one (hospital, configuration, seed) run. Events
// are dispatched in (time, sequence) order through the handler table in
// handlers.go until the next event lies beyond the run horizon.

package sim

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/patientflow-sim/patientflow/sim/trace"
)

// ctxCheckInterval is how many dispatches pass between cancellation checks.
const ctxCheckInterval = 1024

// Simulator runs one scenario to its horizon. It is single-threaded and owns
// every patient, pool and stream it touches; parallel runs use separate
// Simulators.
type Simulator struct {
	Scenario  Scenario
	Clock     *Clock
	RNG       *PartitionedRNG
	Pools     map[string]*Pool
	Collector *Collector

	// Trace, when non-nil, receives event records.
	Trace *trace.SimulationTrace
	// AfterDispatch, when set, is called after every successfully handled event.
	AfterDispatch func(s *Simulator, e Event)

	seed        int64
	arrivals    *ArrivalProcess
	samplers    map[string]map[Acuity]DurationSampler
	ledger      *costLedger
	satisfy     satisfactionModel
	active      map[int64]*Patient
	outstanding map[*Grant]struct{}
	nextID      int64
	dispatched  int
}

// NewSimulator validates the scenario and builds a ready-to-run simulator.
// The scenario is copied; later edits by the caller are not observed.
func NewSimulator(sc Scenario, seed int64) (*Simulator, error) {
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	sc = sc.Clone()

	arrivals, err := NewArrivalProcess(sc.Arrivals, sc.RunLengthMinutes)
	if err != nil {
		return nil, &ConfigurationError{Scenario: sc.Name(), Field: "arrivals", Reason: err.Error()}
	}
	ledger, err := newCostLedger(sc.Cost)
	if err != nil {
		return nil, &ConfigurationError{Scenario: sc.Name(), Field: "cost.shift_changes", Reason: err.Error()}
	}

	samplers := make(map[string]map[Acuity]DurationSampler, len(ValidStages))
	for _, stage := range ValidStages {
		samplers[stage] = make(map[Acuity]DurationSampler, len(Acuities))
		for _, a := range Acuities {
			smp, err := NewDurationSampler(sc.Durations[stage].For(a))
			if err != nil {
				return nil, &ConfigurationError{Scenario: sc.Name(), Field: "durations." + stage, Reason: err.Error()}
			}
			samplers[stage][a] = smp
		}
	}

	pools := make(map[string]*Pool, len(ValidPools))
	for _, name := range ValidPools {
		pools[name] = NewPool(name, sc.Capacity(name), sc.QueuePolicy)
	}

	return &Simulator{
		Scenario:    sc,
		Clock:       NewClock(0),
		RNG:         NewPartitionedRNG(seed),
		Pools:       pools,
		Collector:   NewCollector(),
		seed:        seed,
		arrivals:    arrivals,
		samplers:    samplers,
		ledger:      ledger,
		satisfy:     satisfactionModel{spec: sc.Satisfaction},
		active:      make(map[int64]*Patient),
		outstanding: make(map[*Grant]struct{}),
	}, nil
}

// Run dispatches events until the next one lies beyond the horizon, then
// freezes the collected metrics. Patients still in flight are counted as
// incomplete. An InvariantViolation aborts the run.
func (s *Simulator) Run(ctx context.Context) (*RunResult, error) {
	start := time.Now()
	horizon := s.Scenario.RunLengthMinutes
	logrus.Infof("Starting %s seed=%d horizon=%.0fmin", s.Scenario.Name(), s.seed, horizon)

	if err := s.scheduleArrival(0); err != nil {
		return nil, err
	}
	for {
		next, ok := s.Clock.Peek()
		if !ok || next.Time > horizon {
			break
		}
		e, _ := s.Clock.Next()
		if err := s.dispatch(e); err != nil {
			return nil, err
		}
		s.dispatched++
		if s.AfterDispatch != nil {
			s.AfterDispatch(s, e)
		}
		if s.dispatched%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("%s: %w", s.Scenario.Name(), err)
			}
		}
	}

	res := s.finish(horizon)
	res.WallTime = time.Since(start)
	logrus.Infof("Finished %s: %d arrivals, %d completed, %d incomplete, %d events in %v",
		s.Scenario.Name(), res.Arrivals, res.Completed, res.Incomplete, res.EventsDispatched, res.WallTime)
	return res, nil
}

// finish closes the books at the horizon.
func (s *Simulator) finish(horizon float64) *RunResult {
	// Busy staff at the horizon are charged up to it, in a fixed order so
	// the floating-point sums are reproducible.
	held := make([]*Grant, 0, len(s.outstanding))
	for g := range s.outstanding {
		held = append(held, g)
	}
	sort.Slice(held, func(i, j int) bool {
		if held[i].Pool != held[j].Pool {
			return held[i].Pool < held[j].Pool
		}
		return held[i].ID < held[j].ID
	})
	for _, g := range held {
		s.ledger.accrue(g.Pool, g.Since, horizon)
	}

	res := s.Collector.result()
	res.Hospital = s.Scenario.Hospital
	res.Configuration = s.Scenario.Configuration
	res.Seed = s.seed
	res.Incomplete = len(s.active)
	res.EventsDispatched = s.dispatched
	res.Pools = make(map[string]PoolStats, len(s.Pools))
	for name, p := range s.Pools {
		res.Pools[name] = p.Stats(horizon)
	}
	res.Cost = s.ledger.breakdown(res.Arrivals, s.Scenario.Capabilities, s.Scenario.RunDays())

	if res.Incomplete > 0 {
		logrus.Warnf("%s: %d patients still in flight at horizon t=%.0f", s.Scenario.Name(), res.Incomplete, horizon)
	}
	return res
}

// Active returns the patients that have arrived and not yet departed, by ID.
func (s *Simulator) Active() []*Patient {
	out := make([]*Patient, 0, len(s.active))
	for _, p := range s.active {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// schedule adds an event at time t.
func (s *Simulator) schedule(t float64, kind EventKind, p *Patient, g *Grant) error {
	_, err := s.Clock.Schedule(Event{Time: t, Kind: kind, Patient: p, Grant: g})
	return err
}

// scheduleArrival draws the next arrival after now. No arrival is scheduled
// past the arrival window (or the horizon when no window is set).
func (s *Simulator) scheduleArrival(now float64) error {
	cutoff := s.Scenario.RunLengthMinutes
	if w := s.Scenario.ArrivalWindowMinutes; w > 0 && w < cutoff {
		cutoff = w
	}
	next := s.arrivals.Next(s.RNG.ForSubsystem(SubsystemArrivals), now)
	if next > cutoff {
		return nil
	}
	return s.schedule(next, KindArrival, nil, nil)
}

// request asks a pool for one unit. An immediate grant schedules cont at
// the current time; otherwise the patient waits and, for triage and ED beds
// with balking enabled, a KindBalk timeout races the request.
func (s *Simulator) request(p *Patient, pool string, cont EventKind) error {
	now := s.Clock.Now()
	g, ticket := s.Pools[pool].Acquire(Request{Patient: p, Continuation: cont}, now)
	if g != nil {
		s.outstanding[g] = struct{}{}
		return s.schedule(now, cont, p, g)
	}
	p.waiting = &waitState{pool: pool, ticket: ticket, since: now}
	if balk := s.Scenario.BalkAfterMinutes; balk > 0 && (pool == PoolTriageNurses || pool == PoolEDBeds) {
		_, err := s.Clock.Schedule(Event{Time: now + balk, Kind: KindBalk, Patient: p, Pool: pool, Ticket: ticket})
		return err
	}
	return nil
}

// release returns a grant to its pool, charges its busy time and schedules
// the continuation of any request that takes over the unit.
func (s *Simulator) release(g *Grant) error {
	if g == nil {
		return fmt.Errorf("release of nil grant: %w", ErrDoubleRelease)
	}
	now := s.Clock.Now()
	pool, ok := s.Pools[g.Pool]
	if !ok {
		return fmt.Errorf("release to unknown pool %q: %w", g.Pool, ErrForeignGrant)
	}
	handoff, err := pool.Release(g, now)
	if err != nil {
		return err
	}
	delete(s.outstanding, g)
	s.ledger.accrue(g.Pool, g.Since, now)
	if handoff == nil {
		return nil
	}
	s.outstanding[handoff.Grant] = struct{}{}
	return s.schedule(now, handoff.Continuation, handoff.Grant.Patient, handoff.Grant)
}

// granted clears the patient's wait and charges it against satisfaction.
func (s *Simulator) granted(p *Patient, g *Grant) {
	p.waiting = nil
	s.satisfy.afterWait(p, g.Waited)
}

// moveTo transitions the patient and traces the edge.
func (s *Simulator) moveTo(p *Patient, to State) error {
	from := p.State
	now := s.Clock.Now()
	if err := p.Transition(to, now); err != nil {
		return err
	}
	s.Trace.RecordTransition(trace.TransitionRecord{PatientID: p.ID, Time: now, From: from.String(), To: to.String()})
	return nil
}

// depart finalizes a patient: Departed, clamped score, recorded, forgotten.
func (s *Simulator) depart(p *Patient) error {
	p.markLeftED(s.Clock.Now())
	if err := s.moveTo(p, StateDeparted); err != nil {
		return err
	}
	p.Satisfaction = s.satisfy.clamp(p.Satisfaction)
	s.Collector.RecordDeparture(p)
	delete(s.active, p.ID)
	return nil
}

// draw returns the next routing-stream uniform in [0, 1).
func (s *Simulator) draw() float64 {
	return s.RNG.ForSubsystem(SubsystemRouting).Float64()
}

// decide draws against probability and traces the outcome.
func (s *Simulator) decide(p *Patient, decision string, probability float64, yes, no string) bool {
	hit := s.draw() < probability
	outcome := no
	if hit {
		outcome = yes
	}
	s.Trace.RecordDecision(trace.DecisionRecord{PatientID: p.ID, Time: s.Clock.Now(), Decision: decision, Outcome: outcome})
	return hit
}

// sampleAcuity draws an acuity from the configured mix.
func (s *Simulator) sampleAcuity() Acuity {
	u := s.RNG.ForSubsystem(SubsystemAcuity).Float64()
	acc := 0.0
	for _, a := range Acuities {
		acc += s.Scenario.AcuityMix[a]
		if u < acc {
			return a
		}
	}
	return Acuities[len(Acuities)-1]
}

// sampleStage draws a stage duration from the stage's own stream, scaled by
// any enabled reduction. Scaling the draw keeps the coefficient of variation.
func (s *Simulator) sampleStage(stage string, a Acuity) (float64, bool) {
	base := s.samplers[stage][a].Sample(s.stageRNG(stage))
	r := s.Scenario.Capabilities.StageReduction(stage, a, s.Scenario.Reductions)
	if r <= 0 {
		return base, false
	}
	return base * (1 - r), true
}

func (s *Simulator) stageRNG(stage string) *rand.Rand {
	return s.RNG.ForSubsystem(SubsystemStage(stage))
}

// duration samples a stage the patient is about to go through, crediting
// the enhancement bonus when the stage was shortened.
func (s *Simulator) duration(stage string, p *Patient) float64 {
	d, shortened := s.sampleStage(stage, p.Acuity)
	if shortened {
		p.ShortenedStages++
		s.satisfy.shortened(p)
	}
	return d
}
