package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patientflow-sim/patientflow/sim"
	"github.com/patientflow-sim/patientflow/store"
)

func TestMain(m *testing.M) {
	if os.Getenv("DEBUG_TESTS") == "" {
		logrus.SetLevel(logrus.ErrorLevel)
	}
	os.Exit(m.Run())
}

const tinyProfiles = `
hospitals:
  - name: Tiny
    scenario:
      run_length_minutes: 720
      arrivals:
        mean_interarrival_minutes: 30
      capacities:
        triage_nurses: 1
        ed_beds: 6
        cdu_beds: 4
        physicians: 1
        scanners: 1
        radiologists: 2
        porters: 1
        inpatient_beds: 20
        discharge_staff: 2
    enhanced:
      cdu_routing: true
      pulley_transport: true
      pulley_units: 1
`

// withProfiles points --profiles at a temp copy of tinyProfiles for one test.
func withProfiles(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hospitals.yaml")
	require.NoError(t, os.WriteFile(path, []byte(tinyProfiles), 0o644))
	old := profilesPath
	profilesPath = path
	t.Cleanup(func() { profilesPath = old })
	return path
}

func TestRunScenarioFromFlags(t *testing.T) {
	withProfiles(t)
	defer func(h, c string, d float64, s string) {
		runHospital, runConfig, runDays, runScenario = h, c, d, s
	}(runHospital, runConfig, runDays, runScenario)

	// GIVEN the enhanced Tiny profile over a quarter day
	runHospital, runConfig, runDays, runScenario = "Tiny", "enhanced", 0.25, ""

	// WHEN the scenario is resolved
	sc, err := runScenarioFromFlags()

	// THEN the profile's capabilities and the day override apply
	require.NoError(t, err)
	assert.Equal(t, "Tiny/enhanced", sc.Name())
	assert.Equal(t, 360.0, sc.RunLengthMinutes)
	assert.True(t, sc.Capabilities.CDURouting)

	runHospital = "Nowhere"
	_, err = runScenarioFromFlags()
	assert.ErrorContains(t, err, "unknown hospital")
}

func TestRunScenarioFromFlags_ScenarioFile(t *testing.T) {
	defer func(s, c string, d float64) { runScenario, runConfig, runDays = s, c, d }(runScenario, runConfig, runDays)

	path := filepath.Join(t.TempDir(), "solo.yaml")
	require.NoError(t, os.WriteFile(path, []byte("hospital: Solo\nrun_length_minutes: 600\n"), 0o644))
	runScenario, runConfig, runDays = path, "baseline", 0

	sc, err := runScenarioFromFlags()
	require.NoError(t, err)
	assert.Equal(t, "Solo/baseline", sc.Name())
	assert.Equal(t, 600.0, sc.RunLengthMinutes)
}

func TestRunOnce_ReportAndTrace(t *testing.T) {
	profiles, err := sim.ParseProfiles([]byte(tinyProfiles))
	require.NoError(t, err)
	sc, err := profiles[0].ScenarioFor(sim.ConfigBaseline)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, runOnce(context.Background(), &buf, sc, 7, 1))

	out := buf.String()
	assert.Contains(t, out, "Tiny")
	assert.Contains(t, out, "Trace for patient 1")
	assert.Contains(t, out, "->")
}

func TestRunCompare_WritesEveryOutput(t *testing.T) {
	withProfiles(t)
	repo := store.NewMemoryRepository()
	xlsx := filepath.Join(t.TempDir(), "cmp.xlsx")

	// GIVEN a comparison that saves and writes a workbook
	var out, errOut bytes.Buffer
	err := runCompare(context.Background(), &out, &errOut, compareOptions{
		Request: store.Request{Replications: 2, Seed: 3},
		XLSX:    xlsx,
		Repo:    repo,
	})

	// THEN the report, the workbook and the record all exist
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Tiny")
	assert.Contains(t, out.String(), "saved comparison")
	assert.FileExists(t, xlsx)

	recs, err := repo.List(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, 2, recs[0].Request.Replications)
	assert.Equal(t, 2, recs[0].Comparison.Replications)
}

func TestRunCompare_UnknownHospital(t *testing.T) {
	withProfiles(t)
	var out, errOut bytes.Buffer
	err := runCompare(context.Background(), &out, &errOut, compareOptions{
		Request: store.Request{Hospitals: []string{"Elsewhere"}},
	})
	assert.ErrorContains(t, err, "unknown hospital")
}

func TestProfilesCommand(t *testing.T) {
	path := withProfiles(t)

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetArgs([]string{"profiles", "--profiles", path, "--log", "error"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, buf.String(), "Tiny")
	assert.Contains(t, buf.String(), "cdu_routing, pulleys=1")
}

func TestDescribeCapabilities(t *testing.T) {
	tests := []struct {
		name string
		caps sim.Capabilities
		want string
	}{
		{"none", sim.Capabilities{}, "none"},
		{"imaging", sim.Capabilities{AIImaging: true}, "ai_imaging"},
		{"transport", sim.Capabilities{VolunteerTransport: true, Volunteers: 4}, "volunteers=4"},
		{
			"overrides in pool order",
			sim.Capabilities{Amenities: true, CapacityOverrides: map[string]int{sim.PoolRadiologists: 14, sim.PoolEDBeds: 50}},
			"amenities, ed_beds=50, radiologists=14",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, describeCapabilities(tt.caps))
		})
	}
}

func TestWatchFile_DebouncedReRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hospitals.yaml")
	require.NoError(t, os.WriteFile(path, []byte("a"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	var calls atomic.Int32
	done := make(chan error, 1)
	go func() {
		done <- watchFile(ctx, path, 20*time.Millisecond, func() error {
			calls.Add(1)
			return nil
		})
	}()

	// WHEN the file keeps being written
	// THEN onChange eventually fires
	require.Eventually(t, func() bool {
		_ = os.WriteFile(path, []byte("b"), 0o644)
		return calls.Load() > 0
	}, 5*time.Second, 100*time.Millisecond)

	// AND watching stops cleanly on cancel
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watchFile did not return after cancel")
	}
}
