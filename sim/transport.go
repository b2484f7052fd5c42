package sim

// TransportMove is the destination of a transport request.
type TransportMove string

const (
	MoveImaging   TransportMove = "imaging"
	MoveInpatient TransportMove = "inpatient"
	MoveTransfer  TransportMove = "transfer"
)

var transportPools = map[TransportMode]string{
	TransportPorter:    PoolPorters,
	TransportPulley:    PoolPulleys,
	TransportVolunteer: PoolVolunteers,
}

var transportStages = map[TransportMode]string{
	TransportPorter:    StageTransportPorter,
	TransportPulley:    StageTransportPulley,
	TransportVolunteer: StageTransportVolunteer,
}

func modeForPool(pool string) TransportMode {
	for mode, name := range transportPools {
		if name == pool {
			return mode
		}
	}
	return TransportPorter
}

// selectTransport picks who moves the patient.
//
// Pulleys only carry patients to imaging. Volunteers move non-critical
// patients during volunteer hours. When both are eligible the one with the
// shorter queue wins, then the one with more idle units, then the pulley.
// Porters take everything else.
func (s *Simulator) selectTransport(p *Patient, move TransportMove) TransportMode {
	caps := s.Scenario.Capabilities
	var candidates []TransportMode
	if caps.PulleyTransport && move == MoveImaging {
		candidates = append(candidates, TransportPulley)
	}
	if caps.VolunteerTransport && p.Acuity != AcuityCritical && s.Scenario.VolunteerHours.Contains(s.Clock.Now()) {
		candidates = append(candidates, TransportVolunteer)
	}
	if len(candidates) == 0 {
		return TransportPorter
	}
	best := candidates[0]
	for _, m := range candidates[1:] {
		if s.lessLoaded(m, best) {
			best = m
		}
	}
	return best
}

// lessLoaded reports whether mode a's pool is strictly less loaded than b's.
func (s *Simulator) lessLoaded(a, b TransportMode) bool {
	pa, pb := s.Pools[transportPools[a]], s.Pools[transportPools[b]]
	if pa.QueueLen() != pb.QueueLen() {
		return pa.QueueLen() < pb.QueueLen()
	}
	return pa.Free() > pb.Free()
}

// requestTransport asks the selected transport pool for a unit.
func (s *Simulator) requestTransport(p *Patient, move TransportMove) error {
	mode := s.selectTransport(p, move)
	p.move = move
	return s.request(p, transportPools[mode], KindTransportStart)
}
