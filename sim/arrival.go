package sim

import (
	"fmt"
	"math"
	"math/rand"
)

// ArrivalSpec configures the patient arrival process.
type ArrivalSpec struct {
	// MeanInterarrivalMinutes is the base mean gap between arrivals.
	MeanInterarrivalMinutes float64 `yaml:"mean_interarrival_minutes"`
	// HourlyMultipliers scales the base rate per hour of day (24 entries). Empty means flat.
	HourlyMultipliers []float64 `yaml:"hourly_multipliers"`
	// Surges are recurring windows with an extra rate multiplier.
	Surges []SurgeSpec `yaml:"surges"`
}

// SurgeSpec is a recurring surge window starting on each cron firing.
type SurgeSpec struct {
	Schedule        string  `yaml:"schedule"`
	DurationMinutes float64 `yaml:"duration_minutes"`
	Multiplier      float64 `yaml:"multiplier"`
}

type surgeWindows struct {
	windows    []Window
	multiplier float64
}

// ArrivalProcess generates a non-homogeneous Poisson arrival stream by
// thinning: candidates are drawn at the peak rate and accepted with
// probability rate(t)/peak.
type ArrivalProcess struct {
	baseRate float64 // arrivals per minute
	hourly   []float64
	surges   []surgeWindows
	peak     float64
	flat     bool
}

// NewArrivalProcess builds the process for a run of the given horizon.
func NewArrivalProcess(spec ArrivalSpec, horizon float64) (*ArrivalProcess, error) {
	if spec.MeanInterarrivalMinutes <= 0 || math.IsInf(spec.MeanInterarrivalMinutes, 0) || math.IsNaN(spec.MeanInterarrivalMinutes) {
		return nil, fmt.Errorf("mean_interarrival_minutes must be a finite positive number, got %v", spec.MeanInterarrivalMinutes)
	}
	ap := &ArrivalProcess{baseRate: 1.0 / spec.MeanInterarrivalMinutes}

	maxHourly := 1.0
	if len(spec.HourlyMultipliers) > 0 {
		if len(spec.HourlyMultipliers) != 24 {
			return nil, fmt.Errorf("hourly_multipliers must have 24 entries, got %d", len(spec.HourlyMultipliers))
		}
		maxHourly = 0
		for i, m := range spec.HourlyMultipliers {
			if m < 0 || math.IsNaN(m) || math.IsInf(m, 0) {
				return nil, fmt.Errorf("hourly_multipliers[%d] must be finite and non-negative, got %v", i, m)
			}
			maxHourly = math.Max(maxHourly, m)
		}
		if maxHourly == 0 {
			return nil, fmt.Errorf("hourly_multipliers must contain at least one positive entry")
		}
		ap.hourly = append([]float64(nil), spec.HourlyMultipliers...)
	}

	surgeFactor := 1.0
	for i, s := range spec.Surges {
		sched, err := parseSchedule(s.Schedule)
		if err != nil {
			return nil, fmt.Errorf("surges[%d]: %w", i, err)
		}
		if s.DurationMinutes <= 0 {
			return nil, fmt.Errorf("surges[%d]: duration_minutes must be positive, got %v", i, s.DurationMinutes)
		}
		if s.Multiplier < 0 || math.IsNaN(s.Multiplier) || math.IsInf(s.Multiplier, 0) {
			return nil, fmt.Errorf("surges[%d]: multiplier must be finite and non-negative, got %v", i, s.Multiplier)
		}
		ap.surges = append(ap.surges, surgeWindows{
			windows:    expandWindows(sched, s.DurationMinutes, horizon),
			multiplier: s.Multiplier,
		})
		if s.Multiplier > 1 {
			surgeFactor *= s.Multiplier
		}
	}

	ap.peak = ap.baseRate * maxHourly * surgeFactor
	ap.flat = len(ap.hourly) == 0 && len(ap.surges) == 0
	return ap, nil
}

// Rate returns the instantaneous arrival rate (per minute) at simulated minute m.
func (ap *ArrivalProcess) Rate(m float64) float64 {
	rate := ap.baseRate
	if len(ap.hourly) > 0 {
		rate *= ap.hourly[int(minuteOfDay(m)/60)%24]
	}
	for _, s := range ap.surges {
		for _, w := range s.windows {
			if w.Contains(m) {
				rate *= s.multiplier
				break
			}
		}
	}
	return rate
}

// Next returns the first arrival time strictly after now.
func (ap *ArrivalProcess) Next(rng *rand.Rand, now float64) float64 {
	if ap.flat {
		return now + rng.ExpFloat64()/ap.baseRate
	}
	t := now
	for {
		t += rng.ExpFloat64() / ap.peak
		if rng.Float64()*ap.peak < ap.Rate(t) {
			return t
		}
	}
}
