package sim

// Capabilities is the per-run enhancement record. It is the only input that
// differs between a hospital's baseline and enhanced runs, and the engine
// consults it at fixed decision points: routing after triage, duration
// sampling, transport selection and discharge. The zero value is baseline.
type Capabilities struct {
	AIImaging          bool `yaml:"ai_imaging" json:"ai_imaging"`
	CDURouting         bool `yaml:"cdu_routing" json:"cdu_routing"`
	PulleyTransport    bool `yaml:"pulley_transport" json:"pulley_transport"`
	PulleyUnits        int  `yaml:"pulley_units" json:"pulley_units"`
	VolunteerTransport bool `yaml:"volunteer_transport" json:"volunteer_transport"`
	Volunteers         int  `yaml:"volunteers" json:"volunteers"`
	AIDischarge        bool `yaml:"ai_discharge" json:"ai_discharge"`
	Amenities          bool `yaml:"amenities" json:"amenities"`

	// CapacityOverrides replaces base capacities for the named pools
	// (for example extra radiologists bundled with AI imaging).
	CapacityOverrides map[string]int `yaml:"capacity_overrides" json:"capacity_overrides,omitempty"`
}

// Reductions are the fractional duration cuts applied when a capability is on.
// Each must lie in [0, 1).
type Reductions struct {
	ImagingRoutine   float64 `yaml:"imaging_routine"`
	ImagingCritical  float64 `yaml:"imaging_critical"`
	Discharge        float64 `yaml:"discharge"`
	DischargeRequeue float64 `yaml:"discharge_requeue"`
}

// Any reports whether any enhancement is enabled.
func (c Capabilities) Any() bool {
	return c.AIImaging || c.CDURouting || c.PulleyTransport || c.VolunteerTransport ||
		c.AIDischarge || c.Amenities || len(c.CapacityOverrides) > 0
}

// StageReduction returns the fraction by which an enabled capability
// shortens the given stage for a patient of the given acuity.
func (c Capabilities) StageReduction(stage string, acuity Acuity, r Reductions) float64 {
	switch stage {
	case StageImagingScan, StageImagingReport:
		if !c.AIImaging {
			return 0
		}
		if acuity == AcuityCritical {
			return r.ImagingCritical
		}
		return r.ImagingRoutine
	case StageDischarge:
		if c.AIDischarge {
			return r.Discharge
		}
	}
	return 0
}

// RequeueProbability returns the chance that a discharge attempt must be
// repeated, lowered under AI-assisted discharge.
func (c Capabilities) RequeueProbability(base float64, r Reductions) float64 {
	if c.AIDischarge {
		return base * (1 - r.DischargeRequeue)
	}
	return base
}

// Clone returns a deep copy.
func (c Capabilities) Clone() Capabilities {
	out := c
	if c.CapacityOverrides != nil {
		out.CapacityOverrides = make(map[string]int, len(c.CapacityOverrides))
		for k, v := range c.CapacityOverrides {
			out.CapacityOverrides[k] = v
		}
	}
	return out
}
