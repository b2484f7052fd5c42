package sim

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// SimEpoch anchors simulated minute 0 to wall-clock time so that cron
// expressions (shift changes, surge windows) can be evaluated. It is a
// Monday at midnight UTC, so "* * * * 1-5" style specs mean weekdays.
var SimEpoch = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// parseSchedule parses a standard 5-field cron expression. Expressions that
// parse but match no date (e.g. "0 0 30 2 *") are rejected.
func parseSchedule(spec string) (cron.Schedule, error) {
	sched, err := cronParser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression %q: %w", spec, err)
	}
	if _, ok := nextFire(sched, 0); !ok {
		return nil, fmt.Errorf("cron expression %q never fires", spec)
	}
	return sched, nil
}

// minutesToTime converts simulated minutes to a wall-clock instant.
func minutesToTime(m float64) time.Time {
	return SimEpoch.Add(time.Duration(m * float64(time.Minute)))
}

// timeToMinutes converts a wall-clock instant back to simulated minutes.
func timeToMinutes(t time.Time) float64 {
	return t.Sub(SimEpoch).Minutes()
}

// nextFire returns the first firing strictly after simulated minute m. ok is
// false when the schedule has no further firing.
func nextFire(sched cron.Schedule, m float64) (next float64, ok bool) {
	t := sched.Next(minutesToTime(m))
	if t.IsZero() {
		return 0, false
	}
	return timeToMinutes(t), true
}

// Window is a half-open interval [Start, End) of simulated minutes.
type Window struct {
	Start, End float64
}

// Contains reports whether m falls inside the window.
func (w Window) Contains(m float64) bool {
	return m >= w.Start && m < w.End
}

// expandWindows lists every window of the given length that starts on a
// firing of sched and overlaps [0, horizon).
func expandWindows(sched cron.Schedule, length, horizon float64) []Window {
	var windows []Window
	m, ok := nextFire(sched, -length-1)
	for ok && m < horizon {
		windows = append(windows, Window{Start: m, End: m + length})
		m, ok = nextFire(sched, m)
	}
	return windows
}

// minuteOfDay returns m modulo one simulated day.
func minuteOfDay(m float64) float64 {
	day := float64(24 * 60)
	r := m - day*float64(int64(m/day))
	if r < 0 {
		r += day
	}
	return r
}
