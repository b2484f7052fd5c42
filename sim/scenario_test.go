package sim

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patientflow-sim/patientflow/sim/internal/testutil"
)

func TestDefaultScenario_IsValid(t *testing.T) {
	sc := DefaultScenario("Test")
	require.NoError(t, sc.Validate())
	assert.Equal(t, 7.0, sc.RunDays())
}

func TestScenario_Validate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Scenario)
		field  string
	}{
		{"empty hospital", func(s *Scenario) { s.Hospital = "" }, "hospital"},
		{"zero run length", func(s *Scenario) { s.RunLengthMinutes = 0 }, "run_length_minutes"},
		{"negative capacity", func(s *Scenario) { s.Capacities[PoolEDBeds] = -1 }, "capacities.ed_beds"},
		{"unknown pool", func(s *Scenario) { s.Capacities["helipads"] = 1 }, "capacities"},
		{"missing pool", func(s *Scenario) { delete(s.Capacities, PoolScanners) }, "capacities.scanners"},
		{"negative override", func(s *Scenario) {
			s.Capabilities.CapacityOverrides = map[string]int{PoolRadiologists: -2}
		}, "capabilities.capacity_overrides.radiologists"},
		{"bad queue policy", func(s *Scenario) { s.QueuePolicy = "lifo" }, "queue_policy"},
		{"bad arrivals", func(s *Scenario) { s.Arrivals.MeanInterarrivalMinutes = -1 }, "arrivals"},
		{"acuity mix sum", func(s *Scenario) { s.AcuityMix[AcuityCritical] = 0.5 }, "acuity_mix"},
		{"probability above one", func(s *Scenario) { s.Routing.AdmitProbability[AcuityUrgent] = 1.2 }, "routing.admit_probability.urgent"},
		{"requeue of one", func(s *Scenario) { s.Routing.DischargeRequeueProbability = 1 }, "routing.discharge_requeue_probability"},
		{"missing stage", func(s *Scenario) { delete(s.Durations, StageDischarge) }, "durations.discharge"},
		{"bad by-acuity dist", func(s *Scenario) {
			s.Durations[StageTriage] = StageSpec{DistSpec: Uniform(1, 2), ByAcuity: map[Acuity]DistSpec{AcuityCritical: Uniform(5, 1)}}
		}, "durations.triage.by_acuity.critical"},
		{"reduction of one", func(s *Scenario) { s.Reductions.ImagingCritical = 1 }, "reductions.imaging_critical"},
		{"satisfaction range", func(s *Scenario) { s.Satisfaction.Min = 200 }, "satisfaction"},
		{"bad shift cron", func(s *Scenario) { s.Cost.ShiftChanges = "7am" }, "cost.shift_changes"},
		{"shift cron never fires", func(s *Scenario) { s.Cost.ShiftChanges = "0 0 30 2 *" }, "cost.shift_changes"},
		{"surge cron never fires", func(s *Scenario) {
			s.Arrivals.Surges = []SurgeSpec{{Schedule: "0 0 30 2 *", DurationMinutes: 60, Multiplier: 2}}
		}, "arrivals"},
		{"volunteer hours", func(s *Scenario) { s.VolunteerHours = HourWindow{StartHour: 18, EndHour: 9} }, "volunteer_hours"},
		{"negative balk", func(s *Scenario) { s.BalkAfterMinutes = -5 }, "balk_after_minutes"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc := DefaultScenario("Test")
			tt.mutate(&sc)
			err := sc.Validate()
			var cfgErr *ConfigurationError
			require.True(t, errors.As(err, &cfgErr), "want ConfigurationError, got %v", err)
			assert.Equal(t, tt.field, cfgErr.Field)
			assert.Equal(t, "Test/baseline", cfgErr.Scenario)
		})
	}
}

func TestScenario_Capacity_AppliesCapabilities(t *testing.T) {
	sc := DefaultScenario("Test")
	assert.Equal(t, 0, sc.Capacity(PoolPulleys))
	assert.Equal(t, 0, sc.Capacity(PoolVolunteers))
	assert.Equal(t, 12, sc.Capacity(PoolRadiologists))

	sc.Capabilities = Capabilities{
		PulleyTransport: true, PulleyUnits: 2,
		Volunteers:        9, // not enabled
		CapacityOverrides: map[string]int{PoolRadiologists: 14},
	}
	assert.Equal(t, 2, sc.Capacity(PoolPulleys))
	assert.Equal(t, 0, sc.Capacity(PoolVolunteers))
	assert.Equal(t, 14, sc.Capacity(PoolRadiologists))
}

func TestScenario_Clone_IsDeep(t *testing.T) {
	sc := DefaultScenario("Test")
	cp := sc.Clone()
	cp.Capacities[PoolEDBeds] = 1
	cp.Routing.ImagingProbability[AcuityCritical] = 0
	cp.Durations[StageTreatment].ByAcuity[AcuityCritical].Params["min"] = 0
	cp.Cost.HourlyRates[PoolPorters] = 0

	assert.Equal(t, 40, sc.Capacities[PoolEDBeds])
	assert.Equal(t, 0.6, sc.Routing.ImagingProbability[AcuityCritical])
	assert.Equal(t, 30.0, sc.Durations[StageTreatment].ByAcuity[AcuityCritical].Params["min"])
	assert.Equal(t, 36.0, sc.Cost.HourlyRates[PoolPorters])
}

func TestLoadScenario_OverlaysDefaults(t *testing.T) {
	// GIVEN a file that overrides a few fields
	path := testutil.WriteFile(t, "scenario.yaml", `
hospital: Overlay
run_length_minutes: 2880
capacities:
  ed_beds: 12
durations:
  triage:
    type: constant
    params: {value: 5}
`)

	// WHEN loaded
	sc, err := LoadScenario(path)
	require.NoError(t, err)

	// THEN overridden keys change and the rest keep their defaults
	assert.Equal(t, "Overlay", sc.Hospital)
	assert.Equal(t, 2880.0, sc.RunLengthMinutes)
	assert.Equal(t, 12, sc.Capacities[PoolEDBeds])
	assert.Equal(t, 3, sc.Capacities[PoolTriageNurses])
	assert.Equal(t, "constant", sc.Durations[StageTriage].Type)
	assert.Equal(t, "uniform", sc.Durations[StageDischarge].Type)
	assert.NoError(t, sc.Validate())
}

func TestLoadScenario_UnknownFieldRejected(t *testing.T) {
	path := testutil.WriteFile(t, "scenario.yaml", "hospital: X\nrun_lenght_minutes: 10\n")
	_, err := LoadScenario(path)
	assert.Error(t, err)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario("/nonexistent/scenario.yaml")
	assert.Error(t, err)
}
