package sim

import (
	"bytes"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// Configuration labels a run as baseline or enhanced.
type Configuration string

const (
	ConfigBaseline Configuration = "baseline"
	ConfigEnhanced Configuration = "enhanced"
)

// Pool names.
const (
	PoolTriageNurses   = "triage_nurses"
	PoolEDBeds         = "ed_beds"
	PoolCDUBeds        = "cdu_beds"
	PoolPhysicians     = "physicians"
	PoolScanners       = "scanners"
	PoolRadiologists   = "radiologists"
	PoolPorters        = "porters"
	PoolPulleys        = "pulleys"
	PoolVolunteers     = "volunteers"
	PoolInpatientBeds  = "inpatient_beds"
	PoolDischargeStaff = "discharge_staff"
)

// ValidPools is the set of recognized pool names, in reporting order.
var ValidPools = []string{
	PoolTriageNurses, PoolEDBeds, PoolCDUBeds, PoolPhysicians, PoolScanners, PoolRadiologists,
	PoolPorters, PoolPulleys, PoolVolunteers, PoolInpatientBeds, PoolDischargeStaff,
}

// Stage names for duration distributions.
const (
	StageTriage             = "triage"
	StageTreatment          = "ed_treatment"
	StageCDUObservation     = "cdu_observation"
	StageImagingScan        = "imaging_scan"
	StageImagingReport      = "imaging_report"
	StageTransportPorter    = "transport_porter"
	StageTransportPulley    = "transport_pulley"
	StageTransportVolunteer = "transport_volunteer"
	StageDischarge          = "discharge"
	StageInpatientStay      = "inpatient_stay"
)

// ValidStages lists every stage that must have a distribution.
var ValidStages = []string{
	StageTriage, StageTreatment, StageCDUObservation, StageImagingScan, StageImagingReport,
	StageTransportPorter, StageTransportPulley, StageTransportVolunteer, StageDischarge, StageInpatientStay,
}

// StageSpec is a stage's default distribution plus optional per-acuity overrides.
type StageSpec struct {
	DistSpec `yaml:",inline"`
	ByAcuity map[Acuity]DistSpec `yaml:"by_acuity"`
}

// For returns the distribution used for the given acuity.
func (s StageSpec) For(a Acuity) DistSpec {
	if d, ok := s.ByAcuity[a]; ok {
		return d
	}
	return s.DistSpec
}

// RoutingSpec holds the probabilities behind routing and disposition decisions.
type RoutingSpec struct {
	ImagingProbability          map[Acuity]float64 `yaml:"imaging_probability"`
	CDUEligibility              map[Acuity]float64 `yaml:"cdu_eligibility"`
	CDUDischargeProbability     float64            `yaml:"cdu_discharge_probability"`
	AdmitProbability            map[Acuity]float64 `yaml:"admit_probability"`
	TransferProbability         map[Acuity]float64 `yaml:"transfer_probability"`
	DischargeRequeueProbability float64            `yaml:"discharge_requeue_probability"`
}

// SatisfactionSpec parameterizes the per-patient satisfaction score.
type SatisfactionSpec struct {
	Initial              float64 `yaml:"initial"`
	WaitThresholdMinutes float64 `yaml:"wait_threshold_minutes"`
	PenaltyPerMinute     float64 `yaml:"penalty_per_minute"`
	EnhancementBonus     float64 `yaml:"enhancement_bonus"`
	AmenityBonus         float64 `yaml:"amenity_bonus"`
	Min                  float64 `yaml:"min"`
	Max                  float64 `yaml:"max"`
}

// CostSpec parameterizes the operating-cost formula (see cost.go).
type CostSpec struct {
	HourlyRates            map[string]float64 `yaml:"hourly_rates"`
	ShiftChanges           string             `yaml:"shift_changes"`
	OvertimeMultiplier     float64            `yaml:"overtime_multiplier"`
	AmenityPerVisit        float64            `yaml:"amenity_per_visit"`
	EnhancementFixedPerDay float64            `yaml:"enhancement_fixed_per_day"`
}

// HourWindow is a daily [StartHour, EndHour) window.
type HourWindow struct {
	StartHour float64 `yaml:"start_hour"`
	EndHour   float64 `yaml:"end_hour"`
}

// Contains reports whether simulated minute m falls inside the daily window.
func (w HourWindow) Contains(m float64) bool {
	h := minuteOfDay(m) / 60
	return h >= w.StartHour && h < w.EndHour
}

// Scenario is everything one run needs. The simulator copies it on
// construction, so it is immutable for the duration of a run.
type Scenario struct {
	Hospital      string        `yaml:"hospital"`
	Configuration Configuration `yaml:"configuration"`

	RunLengthMinutes float64 `yaml:"run_length_minutes"`
	// ArrivalWindowMinutes stops new arrivals after this time; 0 means the whole run.
	ArrivalWindowMinutes float64 `yaml:"arrival_window_minutes"`

	Capacities     map[string]int       `yaml:"capacities"`
	QueuePolicy    QueuePolicy          `yaml:"queue_policy"`
	Arrivals       ArrivalSpec          `yaml:"arrivals"`
	AcuityMix      map[Acuity]float64   `yaml:"acuity_mix"`
	Routing        RoutingSpec          `yaml:"routing"`
	Durations      map[string]StageSpec `yaml:"durations"`
	Reductions     Reductions           `yaml:"reductions"`
	Satisfaction   SatisfactionSpec     `yaml:"satisfaction"`
	Cost           CostSpec             `yaml:"cost"`
	VolunteerHours HourWindow           `yaml:"volunteer_hours"`
	// BalkAfterMinutes lets queued triage and ED-bed requests leave without
	// being seen after this wait; 0 disables balking.
	BalkAfterMinutes float64 `yaml:"balk_after_minutes"`

	Capabilities Capabilities `yaml:"capabilities"`
}

// Name returns "<hospital>/<configuration>".
func (s *Scenario) Name() string {
	cfg := s.Configuration
	if cfg == "" {
		cfg = "custom"
	}
	return fmt.Sprintf("%s/%s", s.Hospital, cfg)
}

// Capacity returns the effective capacity of a pool once the capability
// record is applied. Pulley and volunteer pools exist only when enabled.
func (s *Scenario) Capacity(pool string) int {
	switch pool {
	case PoolPulleys:
		if !s.Capabilities.PulleyTransport {
			return 0
		}
		return s.Capabilities.PulleyUnits
	case PoolVolunteers:
		if !s.Capabilities.VolunteerTransport {
			return 0
		}
		return s.Capabilities.Volunteers
	}
	if v, ok := s.Capabilities.CapacityOverrides[pool]; ok {
		return v
	}
	return s.Capacities[pool]
}

// RunDays returns the run length in simulated days.
func (s *Scenario) RunDays() float64 {
	return s.RunLengthMinutes / (24 * 60)
}

// Clone returns a deep copy so a run can never observe later edits.
func (s Scenario) Clone() Scenario {
	out := s
	out.Capacities = cloneMap(s.Capacities)
	out.AcuityMix = cloneMap(s.AcuityMix)
	out.Arrivals.HourlyMultipliers = append([]float64(nil), s.Arrivals.HourlyMultipliers...)
	out.Arrivals.Surges = append([]SurgeSpec(nil), s.Arrivals.Surges...)
	out.Routing.ImagingProbability = cloneMap(s.Routing.ImagingProbability)
	out.Routing.CDUEligibility = cloneMap(s.Routing.CDUEligibility)
	out.Routing.AdmitProbability = cloneMap(s.Routing.AdmitProbability)
	out.Routing.TransferProbability = cloneMap(s.Routing.TransferProbability)
	out.Cost.HourlyRates = cloneMap(s.Cost.HourlyRates)
	out.Durations = make(map[string]StageSpec, len(s.Durations))
	for k, v := range s.Durations {
		spec := StageSpec{DistSpec: cloneDist(v.DistSpec)}
		if v.ByAcuity != nil {
			spec.ByAcuity = make(map[Acuity]DistSpec, len(v.ByAcuity))
			for a, d := range v.ByAcuity {
				spec.ByAcuity[a] = cloneDist(d)
			}
		}
		out.Durations[k] = spec
	}
	out.Capabilities = s.Capabilities.Clone()
	return out
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	if m == nil {
		return nil
	}
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneDist(d DistSpec) DistSpec {
	return DistSpec{Type: d.Type, Params: cloneMap(d.Params)}
}

// LoadScenario reads a single scenario YAML file and overlays it on
// DefaultScenario. Unknown fields are rejected.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario: %w", err)
	}
	sc := DefaultScenario("")
	if err := decodeStrict(data, &sc); err != nil {
		return nil, fmt.Errorf("parsing scenario: %w", err)
	}
	return &sc, nil
}

func decodeStrict(data []byte, out any) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	return dec.Decode(out)
}

// Validate checks every parameter range. The first problem is returned as a
// *ConfigurationError; nothing is run for an invalid scenario.
func (s *Scenario) Validate() error {
	fail := func(field, format string, args ...any) error {
		return &ConfigurationError{Scenario: s.Name(), Field: field, Reason: fmt.Sprintf(format, args...)}
	}

	if s.Hospital == "" {
		return fail("hospital", "must not be empty")
	}
	if !isFinite(s.RunLengthMinutes) || s.RunLengthMinutes <= 0 {
		return fail("run_length_minutes", "must be a finite positive number, got %v", s.RunLengthMinutes)
	}
	if !isFinite(s.ArrivalWindowMinutes) || s.ArrivalWindowMinutes < 0 {
		return fail("arrival_window_minutes", "must be non-negative, got %v", s.ArrivalWindowMinutes)
	}

	for name, c := range s.Capacities {
		if !isValidPool(name) {
			return fail("capacities", "unknown pool %q", name)
		}
		if c < 0 {
			return fail("capacities."+name, "must be non-negative, got %d", c)
		}
	}
	for _, name := range ValidPools {
		if name == PoolPulleys || name == PoolVolunteers {
			continue
		}
		if _, ok := s.Capacities[name]; !ok {
			return fail("capacities."+name, "is required")
		}
	}
	for name, c := range s.Capabilities.CapacityOverrides {
		if !isValidPool(name) {
			return fail("capabilities.capacity_overrides", "unknown pool %q", name)
		}
		if c < 0 {
			return fail("capabilities.capacity_overrides."+name, "must be non-negative, got %d", c)
		}
	}
	if s.Capabilities.PulleyUnits < 0 {
		return fail("capabilities.pulley_units", "must be non-negative, got %d", s.Capabilities.PulleyUnits)
	}
	if s.Capabilities.Volunteers < 0 {
		return fail("capabilities.volunteers", "must be non-negative, got %d", s.Capabilities.Volunteers)
	}
	if !ValidQueuePolicies[s.QueuePolicy] {
		return fail("queue_policy", "unknown policy %q", s.QueuePolicy)
	}

	if _, err := NewArrivalProcess(s.Arrivals, s.RunLengthMinutes); err != nil {
		return fail("arrivals", "%v", err)
	}

	total := 0.0
	for a, p := range s.AcuityMix {
		if !isValidAcuity(a) {
			return fail("acuity_mix", "unknown acuity %q", a)
		}
		if !isProbability(p) {
			return fail("acuity_mix."+string(a), "must be in [0,1], got %v", p)
		}
		total += p
	}
	if math.Abs(total-1) > 1e-6 {
		return fail("acuity_mix", "must sum to 1, got %v", total)
	}

	probMaps := []struct {
		field string
		m     map[Acuity]float64
	}{
		{"routing.imaging_probability", s.Routing.ImagingProbability},
		{"routing.cdu_eligibility", s.Routing.CDUEligibility},
		{"routing.admit_probability", s.Routing.AdmitProbability},
		{"routing.transfer_probability", s.Routing.TransferProbability},
	}
	for _, pm := range probMaps {
		for a, p := range pm.m {
			if !isValidAcuity(a) {
				return fail(pm.field, "unknown acuity %q", a)
			}
			if !isProbability(p) {
				return fail(pm.field+"."+string(a), "must be in [0,1], got %v", p)
			}
		}
	}
	if !isProbability(s.Routing.CDUDischargeProbability) {
		return fail("routing.cdu_discharge_probability", "must be in [0,1], got %v", s.Routing.CDUDischargeProbability)
	}
	if !isProbability(s.Routing.DischargeRequeueProbability) || s.Routing.DischargeRequeueProbability >= 1 {
		return fail("routing.discharge_requeue_probability", "must be in [0,1), got %v", s.Routing.DischargeRequeueProbability)
	}

	for name := range s.Durations {
		if !isValidStage(name) {
			return fail("durations", "unknown stage %q", name)
		}
	}
	for _, stage := range ValidStages {
		spec, ok := s.Durations[stage]
		if !ok {
			return fail("durations."+stage, "is required")
		}
		if _, err := NewDurationSampler(spec.DistSpec); err != nil {
			return fail("durations."+stage, "%v", err)
		}
		for a, d := range spec.ByAcuity {
			if !isValidAcuity(a) {
				return fail("durations."+stage+".by_acuity", "unknown acuity %q", a)
			}
			if _, err := NewDurationSampler(d); err != nil {
				return fail("durations."+stage+".by_acuity."+string(a), "%v", err)
			}
		}
	}

	reductions := []struct {
		field string
		v     float64
	}{
		{"reductions.imaging_routine", s.Reductions.ImagingRoutine},
		{"reductions.imaging_critical", s.Reductions.ImagingCritical},
		{"reductions.discharge", s.Reductions.Discharge},
		{"reductions.discharge_requeue", s.Reductions.DischargeRequeue},
	}
	for _, r := range reductions {
		if !isFinite(r.v) || r.v < 0 || r.v >= 1 {
			return fail(r.field, "must be in [0,1), got %v", r.v)
		}
	}

	sat := s.Satisfaction
	if !isFinite(sat.Min) || !isFinite(sat.Max) || sat.Min > sat.Max {
		return fail("satisfaction", "min must not exceed max, got min=%v max=%v", sat.Min, sat.Max)
	}
	if sat.WaitThresholdMinutes < 0 || sat.PenaltyPerMinute < 0 || sat.EnhancementBonus < 0 || sat.AmenityBonus < 0 {
		return fail("satisfaction", "threshold, penalty and bonuses must be non-negative")
	}

	for name, rate := range s.Cost.HourlyRates {
		if !isValidPool(name) {
			return fail("cost.hourly_rates", "unknown pool %q", name)
		}
		if !isFinite(rate) || rate < 0 {
			return fail("cost.hourly_rates."+name, "must be non-negative, got %v", rate)
		}
	}
	if s.Cost.ShiftChanges != "" {
		if _, err := parseSchedule(s.Cost.ShiftChanges); err != nil {
			return fail("cost.shift_changes", "%v", err)
		}
	}
	if !isFinite(s.Cost.OvertimeMultiplier) || s.Cost.OvertimeMultiplier < 0 {
		return fail("cost.overtime_multiplier", "must be non-negative, got %v", s.Cost.OvertimeMultiplier)
	}
	if s.Cost.AmenityPerVisit < 0 || s.Cost.EnhancementFixedPerDay < 0 {
		return fail("cost", "amenity_per_visit and enhancement_fixed_per_day must be non-negative")
	}

	vh := s.VolunteerHours
	if vh.StartHour < 0 || vh.EndHour > 24 || vh.StartHour > vh.EndHour {
		return fail("volunteer_hours", "must satisfy 0 <= start_hour <= end_hour <= 24, got %v-%v", vh.StartHour, vh.EndHour)
	}
	if !isFinite(s.BalkAfterMinutes) || s.BalkAfterMinutes < 0 {
		return fail("balk_after_minutes", "must be non-negative, got %v", s.BalkAfterMinutes)
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func isProbability(p float64) bool {
	return isFinite(p) && p >= 0 && p <= 1
}

func isValidPool(name string) bool {
	for _, p := range ValidPools {
		if p == name {
			return true
		}
	}
	return false
}

func isValidStage(name string) bool {
	for _, s := range ValidStages {
		if s == name {
			return true
		}
	}
	return false
}

func isValidAcuity(a Acuity) bool {
	for _, v := range Acuities {
		if v == a {
			return true
		}
	}
	return false
}
