// Package testutil provides shared test infrastructure for the patient-flow
// simulator: small deterministic profile documents, a temp-file writer and
// float assertions used across sim/ and its sub-packages.
package testutil

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

// SmallProfilesYAML is a two-hospital profiles document sized so a full
// baseline plus enhanced comparison finishes in milliseconds.
const SmallProfilesYAML = `
hospitals:
  - name: Small General
    scenario:
      run_length_minutes: 1440
      arrivals:
        mean_interarrival_minutes: 20
      capacities:
        triage_nurses: 2
        ed_beds: 10
        cdu_beds: 6
        physicians: 2
        scanners: 1
        radiologists: 3
        porters: 2
        inpatient_beds: 40
        discharge_staff: 4
    enhanced:
      ai_imaging: true
      cdu_routing: true
      pulley_transport: true
      pulley_units: 1
      volunteer_transport: true
      volunteers: 3
      ai_discharge: true
      amenities: true
  - name: Small Community
    scenario:
      run_length_minutes: 1440
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
        inpatient_beds: 30
        discharge_staff: 3
    enhanced:
      cdu_routing: true
      volunteer_transport: true
      volunteers: 2
`

// WriteFile writes content to name inside a per-test temp directory and
// returns the full path.
func WriteFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
	return path
}

// AssertFloat64Equal compares two float64 values with relative tolerance.
func AssertFloat64Equal(t *testing.T, name string, want, got, relTol float64) {
	t.Helper()
	if want == 0 && got == 0 {
		return
	}
	diff := math.Abs(want - got)
	maxVal := math.Max(math.Abs(want), math.Abs(got))
	if diff/maxVal > relTol {
		t.Errorf("%s: got %v, want %v (diff=%v, relDiff=%v)", name, got, want, diff, diff/maxVal)
	}
}

// AssertInRange fails unless lo <= got <= hi.
func AssertInRange(t *testing.T, name string, got, lo, hi float64) {
	t.Helper()
	if math.IsNaN(got) || got < lo || got > hi {
		t.Errorf("%s: got %v, want within [%v, %v]", name, got, lo, hi)
	}
}
