package sim

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countArrivals(t *testing.T, spec ArrivalSpec, horizon float64, seed int64) []float64 {
	t.Helper()
	ap, err := NewArrivalProcess(spec, horizon)
	require.NoError(t, err)
	rng := rand.New(rand.NewSource(seed))
	var times []float64
	for now := ap.Next(rng, 0); now <= horizon; now = ap.Next(rng, now) {
		times = append(times, now)
	}
	return times
}

func TestArrivalProcess_FlatRate_MatchesMean(t *testing.T) {
	// GIVEN a flat process with one arrival every 8 minutes over 30 days
	horizon := 30 * 24 * 60.0
	times := countArrivals(t, ArrivalSpec{MeanInterarrivalMinutes: 8}, horizon, 11)

	// THEN the count is close to horizon / 8
	assert.InEpsilon(t, horizon/8, float64(len(times)), 0.05)
}

func TestArrivalProcess_Next_StrictlyIncreasing(t *testing.T) {
	times := countArrivals(t, ArrivalSpec{MeanInterarrivalMinutes: 5}, 2000, 1)
	for i := 1; i < len(times); i++ {
		assert.Greater(t, times[i], times[i-1])
	}
}

func TestArrivalProcess_HourlyMultipliers_ShapeTheDay(t *testing.T) {
	// GIVEN nights (00-12) at zero rate and days (12-24) at double rate
	mult := make([]float64, 24)
	for h := 12; h < 24; h++ {
		mult[h] = 2
	}
	times := countArrivals(t, ArrivalSpec{MeanInterarrivalMinutes: 10, HourlyMultipliers: mult}, 20*24*60, 5)

	// THEN no arrival falls in the zero-rate half and the count matches the average rate
	for _, m := range times {
		assert.GreaterOrEqual(t, minuteOfDay(m), 12*60.0)
	}
	assert.InEpsilon(t, 20*24*60.0/10, float64(len(times)), 0.08)
}

func TestArrivalProcess_Surge_RaisesRateInsideWindow(t *testing.T) {
	// GIVEN a daily 09:00 surge lasting 2 hours at 3x
	spec := ArrivalSpec{
		MeanInterarrivalMinutes: 10,
		Surges:                  []SurgeSpec{{Schedule: "0 9 * * *", DurationMinutes: 120, Multiplier: 3}},
	}
	ap, err := NewArrivalProcess(spec, 3*24*60)
	require.NoError(t, err)

	// THEN the rate is tripled inside the window only
	assert.InDelta(t, 0.3, ap.Rate(9*60+30), 1e-12)
	assert.InDelta(t, 0.1, ap.Rate(8*60), 1e-12)
	assert.InDelta(t, 0.1, ap.Rate(11*60), 1e-12)
	assert.InDelta(t, 0.3, ap.Rate(24*60+10*60), 1e-12)
}

func TestNewArrivalProcess_Invalid(t *testing.T) {
	tests := []struct {
		name string
		spec ArrivalSpec
	}{
		{"zero mean", ArrivalSpec{}},
		{"short multipliers", ArrivalSpec{MeanInterarrivalMinutes: 5, HourlyMultipliers: []float64{1, 2}}},
		{"all-zero multipliers", ArrivalSpec{MeanInterarrivalMinutes: 5, HourlyMultipliers: make([]float64, 24)}},
		{"bad cron", ArrivalSpec{MeanInterarrivalMinutes: 5, Surges: []SurgeSpec{{Schedule: "every day", DurationMinutes: 10, Multiplier: 2}}}},
		{"zero surge length", ArrivalSpec{MeanInterarrivalMinutes: 5, Surges: []SurgeSpec{{Schedule: "0 9 * * *", Multiplier: 2}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewArrivalProcess(tt.spec, 1440)
			assert.Error(t, err)
		})
	}
}

func TestSchedule_NextFire_FromEpoch(t *testing.T) {
	// GIVEN shift changes at 07:00 and 19:00
	sched, err := parseSchedule("0 7,19 * * *")
	require.NoError(t, err)

	// THEN firings are strictly after the given minute
	for _, tc := range []struct{ from, want float64 }{
		{0, 7 * 60},
		{7 * 60, 19 * 60},
		{20 * 60, 31 * 60},
	} {
		got, ok := nextFire(sched, tc.from)
		require.True(t, ok)
		assert.Equal(t, tc.want, got)
	}
}

// silentSchedule never fires, like a cron matching February 30th.
type silentSchedule struct{}

func (silentSchedule) Next(time.Time) time.Time { return time.Time{} }

func TestSchedule_NeverFires(t *testing.T) {
	t.Run("parse rejects an impossible date", func(t *testing.T) {
		_, err := parseSchedule("0 0 30 2 *")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "never fires")
	})
	t.Run("leap day is accepted", func(t *testing.T) {
		_, err := parseSchedule("0 0 29 2 *")
		assert.NoError(t, err)
	})
	t.Run("next fire reports no firing", func(t *testing.T) {
		_, ok := nextFire(silentSchedule{}, 0)
		assert.False(t, ok)
	})
	t.Run("expansion yields no windows", func(t *testing.T) {
		assert.Empty(t, expandWindows(silentSchedule{}, 300, 7*24*60))
	})
}

func TestSchedule_ExpandWindows_CoversHorizon(t *testing.T) {
	sched, err := parseSchedule("0 18 * * *")
	require.NoError(t, err)
	windows := expandWindows(sched, 300, 3*24*60)
	require.Len(t, windows, 3)
	assert.Equal(t, Window{Start: 18 * 60, End: 23 * 60}, windows[0])
	assert.True(t, windows[1].Contains(42*60+10))
	assert.False(t, windows[1].Contains(47*60))
}

func TestHourWindow_Contains(t *testing.T) {
	w := HourWindow{StartHour: 8, EndHour: 17}
	assert.True(t, w.Contains(8*60))
	assert.True(t, w.Contains(24*60+16*60+59))
	assert.False(t, w.Contains(17*60))
	assert.False(t, w.Contains(3*60))
}
