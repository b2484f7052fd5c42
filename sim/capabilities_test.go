package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCapabilities_ZeroValueIsBaseline(t *testing.T) {
	var c Capabilities
	r := Reductions{ImagingRoutine: 0.15, ImagingCritical: 0.3, Discharge: 0.1, DischargeRequeue: 0.5}
	assert.False(t, c.Any())
	for _, stage := range ValidStages {
		for _, a := range Acuities {
			assert.Zero(t, c.StageReduction(stage, a, r), "%s/%s", stage, a)
		}
	}
	assert.Equal(t, 0.15, c.RequeueProbability(0.15, r))
}

func TestCapabilities_StageReduction(t *testing.T) {
	r := Reductions{ImagingRoutine: 0.15, ImagingCritical: 0.3, Discharge: 0.1}
	c := Capabilities{AIImaging: true, AIDischarge: true}
	tests := []struct {
		stage  string
		acuity Acuity
		want   float64
	}{
		{StageImagingScan, AcuityCritical, 0.3},
		{StageImagingReport, AcuityCritical, 0.3},
		{StageImagingReport, AcuityUrgent, 0.15},
		{StageImagingScan, AcuityStandard, 0.15},
		{StageDischarge, AcuityUrgent, 0.1},
		{StageTreatment, AcuityCritical, 0},
		{StageTransportPorter, AcuityStandard, 0},
	}
	for _, tt := range tests {
		t.Run(tt.stage+"/"+string(tt.acuity), func(t *testing.T) {
			assert.Equal(t, tt.want, c.StageReduction(tt.stage, tt.acuity, r))
		})
	}
}

func TestCapabilities_RequeueProbability_HalvedUnderAIDischarge(t *testing.T) {
	c := Capabilities{AIDischarge: true}
	assert.InDelta(t, 0.075, c.RequeueProbability(0.15, Reductions{DischargeRequeue: 0.5}), 1e-12)
}

func TestCapabilities_Clone_IsDeep(t *testing.T) {
	c := Capabilities{CapacityOverrides: map[string]int{PoolRadiologists: 14}}
	cp := c.Clone()
	cp.CapacityOverrides[PoolRadiologists] = 1
	assert.Equal(t, 14, c.CapacityOverrides[PoolRadiologists])
}

func TestCapabilities_OverridesAloneCountAsEnhancement(t *testing.T) {
	c := Capabilities{CapacityOverrides: map[string]int{PoolPhysicians: 6}}
	assert.True(t, c.Any())
}
