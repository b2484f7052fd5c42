package report

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/patientflow-sim/patientflow/sim"
	"github.com/patientflow-sim/patientflow/sim/compare"
)

func sampleComparison() *compare.Comparison {
	base := sim.Summary{Runs: 2, Mean: sim.MetricSet{MeanEDLOS: 380, TotalCost: 1000}}
	enh := sim.Summary{Runs: 2, Mean: sim.MetricSet{MeanEDLOS: 170, TotalCost: 1200, CDUConversionRate: 0.3}}
	return &compare.Comparison{
		Replications: 2,
		Seed:         42,
		Hospitals: []compare.HospitalComparison{{
			Hospital:   "Bellevue",
			Baseline:   base,
			Enhanced:   enh,
			Deltas:     compare.ComputeDeltas(base, enh),
			Incomplete: 12,
		}},
		Failures: []compare.RunFailure{{
			Hospital: "Cedars-Sinai", Configuration: sim.ConfigEnhanced, Replication: 1, Seed: 43,
			Error: "scenario Cedars-Sinai/enhanced: capacities.ed_beds must be non-negative, got -1",
		}},
		WallTime: 1500 * time.Millisecond,
	}
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		v    float64
		unit string
		want string
	}{
		{1234.5, "$", "$1234.50"},
		{0.256, "ratio", "25.6%"},
		{381.94, "min", "381.9"},
		{17, "patients", "17.0"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatValue(tt.v, tt.unit))
	}
}

func TestFormatDelta(t *testing.T) {
	assert.Equal(t, "-55.3%", FormatDelta(compare.Delta{Percent: -55.263, Defined: true}))
	assert.Equal(t, "+20.0%", FormatDelta(compare.Delta{Percent: 20, Defined: true}))
	assert.Equal(t, "n/a", FormatDelta(compare.Delta{}))
}

func TestRenderComparison(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderComparison(&buf, sampleComparison()))
	out := buf.String()

	assert.Contains(t, out, "Bellevue")
	assert.Contains(t, out, "Mean ED length of stay")
	assert.Contains(t, out, "380.0")
	assert.Contains(t, out, "170.0")
	assert.Contains(t, out, "-55.3%")
	assert.Contains(t, out, "n/a") // CDU conversion has a zero baseline
	assert.Contains(t, out, "12 patient(s) still in flight")
	assert.Contains(t, out, "1 run(s) failed")
	assert.Contains(t, out, "Cedars-Sinai/enhanced replication 1")
}

func TestRenderRun(t *testing.T) {
	res := &sim.RunResult{
		Hospital: "Bellevue", Configuration: sim.ConfigBaseline, Seed: 7,
		Arrivals: 10, Completed: 8, Incomplete: 2,
		EDLOS: sim.Distribution{Mean: 250, Count: 8},
		Pools: map[string]sim.PoolStats{
			sim.PoolEDBeds:  {Capacity: 40, Utilization: 0.5, MeanWait: 3},
			sim.PoolPulleys: {},
		},
	}
	var buf bytes.Buffer
	require.NoError(t, RenderRun(&buf, res))
	out := buf.String()

	assert.Contains(t, out, "Bellevue/baseline seed 7")
	assert.Contains(t, out, "250.0")
	assert.Contains(t, out, "ed_beds")
	assert.Contains(t, out, "50.0%")
	assert.NotContains(t, out, "pulleys")
	assert.Contains(t, out, "2 patient(s) still in flight")
}

func TestWriteWorkbook(t *testing.T) {
	// GIVEN a comparison with one hospital and one failure
	cmp := sampleComparison()
	path := filepath.Join(t.TempDir(), "comparison.xlsx")

	// WHEN written
	require.NoError(t, WriteWorkbook(path, cmp))

	// THEN both sheets hold the expected rows
	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(comparisonSheet)
	require.NoError(t, err)
	require.Len(t, rows, 1+len(sim.MetricDefs))
	assert.Equal(t, "Hospital", rows[0][0])
	assert.Equal(t, "Bellevue", rows[1][0])
	assert.Equal(t, "Mean ED length of stay", rows[1][1])
	assert.Equal(t, "380", rows[1][3])

	failures, err := f.GetRows(failuresSheet)
	require.NoError(t, err)
	require.Len(t, failures, 2)
	assert.Equal(t, "Cedars-Sinai", failures[1][0])
	assert.Equal(t, "enhanced", failures[1][1])
}

func TestNewProgress(t *testing.T) {
	var buf bytes.Buffer
	bar := NewProgress(&buf, 4, "runs")
	for i := 0; i < 4; i++ {
		require.NoError(t, bar.Add(1))
	}
	assert.True(t, bar.IsFinished())
}
