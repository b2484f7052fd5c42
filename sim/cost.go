package sim

import (
	"github.com/robfig/cron/v3"
)

// CostBreakdown is a run's operating cost.
//
// Formula: for every busy interval of a pool listed in cost.hourly_rates, the
// minutes after the first shift change following the grant are overtime.
//
//	staff     = rate/60 * (regular + overtime * overtime_multiplier)
//	amenities = amenity_per_visit * arrivals          (amenities enabled)
//	fixed     = enhancement_fixed_per_day * run days  (any enhancement enabled)
//	total     = staff + amenities + fixed
type CostBreakdown struct {
	RegularStaff    float64 `json:"regular_staff"`
	OvertimeStaff   float64 `json:"overtime_staff"`
	OvertimeMinutes float64 `json:"overtime_minutes"`
	Amenities       float64 `json:"amenities"`
	Fixed           float64 `json:"fixed"`
	Total           float64 `json:"total"`
}

// costLedger accrues staff cost as grants are released.
type costLedger struct {
	spec   CostSpec
	shifts cron.Schedule // nil: no overtime

	regular, overtime, overtimeMinutes float64
}

func newCostLedger(spec CostSpec) (*costLedger, error) {
	l := &costLedger{spec: spec}
	if spec.ShiftChanges != "" {
		sched, err := parseSchedule(spec.ShiftChanges)
		if err != nil {
			return nil, err
		}
		l.shifts = sched
	}
	return l, nil
}

// accrue charges the busy interval [start, end] of one unit of pool.
func (l *costLedger) accrue(pool string, start, end float64) {
	rate, ok := l.spec.HourlyRates[pool]
	if !ok || end <= start {
		return
	}
	busy := end - start
	ot := 0.0
	if l.shifts != nil {
		if boundary, ok := nextFire(l.shifts, start); ok && end > boundary {
			ot = end - boundary
		}
	}
	perMinute := rate / 60
	l.regular += perMinute * (busy - ot)
	l.overtime += perMinute * ot * l.spec.OvertimeMultiplier
	l.overtimeMinutes += ot
}

// breakdown totals the ledger with the per-visit and fixed components.
func (l *costLedger) breakdown(arrivals int, caps Capabilities, runDays float64) CostBreakdown {
	b := CostBreakdown{
		RegularStaff:    l.regular,
		OvertimeStaff:   l.overtime,
		OvertimeMinutes: l.overtimeMinutes,
	}
	if caps.Amenities {
		b.Amenities = l.spec.AmenityPerVisit * float64(arrivals)
	}
	if caps.Any() {
		b.Fixed = l.spec.EnhancementFixedPerDay * runDays
	}
	b.Total = b.RegularStaff + b.OvertimeStaff + b.Amenities + b.Fixed
	return b
}
