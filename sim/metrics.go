// Tracks per-run patient-flow metrics: ED length of stay, imaging
// turnaround, CDU conversions, transport mix, satisfaction and cost.

package sim

import (
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"
)

// Distribution captures statistical summary of a metric.
type Distribution struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	P50    float64 `json:"p50"`
	P95    float64 `json:"p95"`
	P99    float64 `json:"p99"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Count  int     `json:"count"`
}

// NewDistribution computes a Distribution from raw values.
// Returns zero-value Distribution for empty input.
func NewDistribution(values []float64) Distribution {
	if len(values) == 0 {
		return Distribution{}
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	d := Distribution{
		P50:   percentile(sorted, 50),
		P95:   percentile(sorted, 95),
		P99:   percentile(sorted, 99),
		Min:   sorted[0],
		Max:   sorted[len(sorted)-1],
		Count: len(sorted),
	}
	if len(sorted) == 1 {
		d.Mean = sorted[0]
		return d
	}
	d.Mean, d.StdDev = stat.MeanStdDev(sorted, nil)
	return d
}

// percentile computes the p-th percentile using linear interpolation.
// Input must be sorted.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if len(sorted) == 1 {
		return sorted[0]
	}
	rank := p / 100.0 * float64(len(sorted)-1)
	lower := int(math.Floor(rank))
	upper := int(math.Ceil(rank))
	if lower == upper {
		return sorted[lower]
	}
	frac := rank - float64(lower)
	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
}

// TransportMode is who moved a patient.
type TransportMode string

const (
	TransportPorter    TransportMode = "porter"
	TransportPulley    TransportMode = "pulley"
	TransportVolunteer TransportMode = "volunteer"
)

// Collector accumulates observations during one run. Only the engine writes to it.
type Collector struct {
	arrivals   int
	completed  int
	cduRouted  int
	cduHome    int
	edLOS      []float64
	totalLOS   []float64
	tatAll     []float64
	tatCrit    []float64
	tatRoutine []float64
	satisfied  []float64
	boarding   []float64

	transports   map[TransportMode]int
	dispositions map[Disposition]int
}

// NewCollector returns an empty Collector.
func NewCollector() *Collector {
	return &Collector{
		transports:   make(map[TransportMode]int),
		dispositions: make(map[Disposition]int),
	}
}

// RecordArrival counts one arrival.
func (c *Collector) RecordArrival() {
	c.arrivals++
}

// RecordTransport counts one transport by mode.
func (c *Collector) RecordTransport(mode TransportMode) {
	c.transports[mode]++
}

// RecordDeparture records a patient that reached Departed.
func (c *Collector) RecordDeparture(p *Patient) {
	c.completed++
	c.dispositions[p.Disposition]++
	c.satisfied = append(c.satisfied, p.Satisfaction)
	if p.Disposition == DispositionLeftWithoutBeingSeen {
		// Never treated: their stay is a balk wait, not a length of stay.
		return
	}
	c.edLOS = append(c.edLOS, p.EDLengthOfStay())
	c.totalLOS = append(c.totalLOS, p.Departure-p.Arrival)
	if p.HadImaging() {
		tat := p.ImagingTAT()
		c.tatAll = append(c.tatAll, tat)
		if p.Acuity == AcuityCritical {
			c.tatCrit = append(c.tatCrit, tat)
		} else {
			c.tatRoutine = append(c.tatRoutine, tat)
		}
	}
	if p.Disposition == DispositionAdmitted {
		c.boarding = append(c.boarding, p.BoardingMinutes)
	}
	if p.Route == RouteCDU {
		c.cduRouted++
		if p.CDUDischarged {
			c.cduHome++
		}
	}
}

// RunResult is the outcome of one simulation run.
type RunResult struct {
	Hospital      string        `json:"hospital"`
	Configuration Configuration `json:"configuration"`
	Seed          int64         `json:"seed"`
	Replication   int           `json:"replication"`

	Arrivals             int `json:"arrivals"`
	Completed            int `json:"completed"`
	Incomplete           int `json:"incomplete"`
	LeftWithoutBeingSeen int `json:"left_without_being_seen"`

	EDLOS              Distribution `json:"ed_los_minutes"`
	TotalLOS           Distribution `json:"total_los_minutes"`
	ImagingTAT         Distribution `json:"imaging_tat_minutes"`
	CriticalImagingTAT Distribution `json:"critical_imaging_tat_minutes"`
	RoutineImagingTAT  Distribution `json:"routine_imaging_tat_minutes"`
	Satisfaction       Distribution `json:"satisfaction"`
	Boarding           Distribution `json:"boarding_minutes"`

	// CDURouted counts completed patients routed to the CDU; CDUDischargedHome
	// those discharged from it without admission. CDUConversionRate is
	// CDURouted / Completed; CDUDischargeRate is CDUDischargedHome / CDURouted.
	CDURouted         int     `json:"cdu_routed"`
	CDUDischargedHome int     `json:"cdu_discharged_home"`
	CDUConversionRate float64 `json:"cdu_conversion_rate"`
	CDUDischargeRate  float64 `json:"cdu_discharge_rate"`

	Transports   map[TransportMode]int `json:"transports"`
	Dispositions map[Disposition]int   `json:"dispositions"`
	Pools        map[string]PoolStats  `json:"pools"`
	Cost         CostBreakdown         `json:"cost"`

	EventsDispatched int           `json:"events_dispatched"`
	WallTime         time.Duration `json:"wall_time_ns"`
}

// result freezes the collector into a RunResult.
func (c *Collector) result() *RunResult {
	r := &RunResult{
		Arrivals:             c.arrivals,
		Completed:            c.completed,
		LeftWithoutBeingSeen: c.dispositions[DispositionLeftWithoutBeingSeen],
		EDLOS:                NewDistribution(c.edLOS),
		TotalLOS:             NewDistribution(c.totalLOS),
		ImagingTAT:           NewDistribution(c.tatAll),
		CriticalImagingTAT:   NewDistribution(c.tatCrit),
		RoutineImagingTAT:    NewDistribution(c.tatRoutine),
		Satisfaction:         NewDistribution(c.satisfied),
		Boarding:             NewDistribution(c.boarding),
		CDURouted:            c.cduRouted,
		CDUDischargedHome:    c.cduHome,
		Transports:           make(map[TransportMode]int, len(c.transports)),
		Dispositions:         make(map[Disposition]int, len(c.dispositions)),
	}
	if c.completed > 0 {
		r.CDUConversionRate = float64(c.cduRouted) / float64(c.completed)
	}
	if c.cduRouted > 0 {
		r.CDUDischargeRate = float64(c.cduHome) / float64(c.cduRouted)
	}
	for k, v := range c.transports {
		r.Transports[k] = v
	}
	for k, v := range c.dispositions {
		r.Dispositions[k] = v
	}
	return r
}

// MetricSet holds the comparison metrics of one run, or their mean over runs.
type MetricSet struct {
	MeanEDLOS              float64 `json:"mean_ed_los_minutes"`
	MeanImagingTAT         float64 `json:"mean_imaging_tat_minutes"`
	MeanCriticalImagingTAT float64 `json:"mean_critical_imaging_tat_minutes"`
	MeanRoutineImagingTAT  float64 `json:"mean_routine_imaging_tat_minutes"`
	MeanBoarding           float64 `json:"mean_boarding_minutes"`
	MeanSatisfaction       float64 `json:"mean_satisfaction"`
	CDUConversionRate      float64 `json:"cdu_conversion_rate"`
	CDUDischargedHome      float64 `json:"cdu_discharged_home"`
	CDUDischargeRate       float64 `json:"cdu_discharge_rate"`
	PorterTransports       float64 `json:"porter_transports"`
	PulleyTransports       float64 `json:"pulley_transports"`
	VolunteerTransports    float64 `json:"volunteer_transports"`
	LeftWithoutBeingSeen   float64 `json:"left_without_being_seen"`
	Completed              float64 `json:"completed"`
	Incomplete             float64 `json:"incomplete"`
	TotalCost              float64 `json:"total_cost"`
	OvertimeCost           float64 `json:"overtime_cost"`
}

// MetricDef describes one comparison metric. Observe reports false when a
// run has no observations for it (e.g. no imaging orders), in which case the
// run is left out of that metric's mean.
type MetricDef struct {
	Key           string
	Label         string
	Unit          string
	LowerIsBetter bool

	field   func(*MetricSet) *float64
	observe func(*RunResult) (float64, bool)
}

// Value returns this metric's value in m.
func (d MetricDef) Value(m MetricSet) float64 {
	return *d.field(&m)
}

// Observe returns this metric for a run and whether it was observed.
func (d MetricDef) Observe(r *RunResult) (float64, bool) {
	return d.observe(r)
}

func meanOf(get func(*RunResult) Distribution) func(*RunResult) (float64, bool) {
	return func(r *RunResult) (float64, bool) {
		d := get(r)
		return d.Mean, d.Count > 0
	}
}

func always(get func(*RunResult) float64) func(*RunResult) (float64, bool) {
	return func(r *RunResult) (float64, bool) {
		return get(r), true
	}
}

// MetricDefs lists the comparison metrics in reporting order.
var MetricDefs = []MetricDef{
	{
		Key: "mean_ed_los", Label: "Mean ED length of stay", Unit: "min", LowerIsBetter: true,
		field:   func(m *MetricSet) *float64 { return &m.MeanEDLOS },
		observe: meanOf(func(r *RunResult) Distribution { return r.EDLOS }),
	},
	{
		Key: "mean_imaging_tat", Label: "Mean imaging turnaround", Unit: "min", LowerIsBetter: true,
		field:   func(m *MetricSet) *float64 { return &m.MeanImagingTAT },
		observe: meanOf(func(r *RunResult) Distribution { return r.ImagingTAT }),
	},
	{
		Key: "mean_critical_imaging_tat", Label: "Mean critical imaging turnaround", Unit: "min", LowerIsBetter: true,
		field:   func(m *MetricSet) *float64 { return &m.MeanCriticalImagingTAT },
		observe: meanOf(func(r *RunResult) Distribution { return r.CriticalImagingTAT }),
	},
	{
		Key: "mean_routine_imaging_tat", Label: "Mean routine imaging turnaround", Unit: "min", LowerIsBetter: true,
		field:   func(m *MetricSet) *float64 { return &m.MeanRoutineImagingTAT },
		observe: meanOf(func(r *RunResult) Distribution { return r.RoutineImagingTAT }),
	},
	{
		Key: "mean_boarding", Label: "Mean boarding time", Unit: "min", LowerIsBetter: true,
		field:   func(m *MetricSet) *float64 { return &m.MeanBoarding },
		observe: meanOf(func(r *RunResult) Distribution { return r.Boarding }),
	},
	{
		Key: "mean_satisfaction", Label: "Mean satisfaction", Unit: "score",
		field:   func(m *MetricSet) *float64 { return &m.MeanSatisfaction },
		observe: meanOf(func(r *RunResult) Distribution { return r.Satisfaction }),
	},
	{
		Key: "cdu_conversion_rate", Label: "CDU conversion rate", Unit: "ratio",
		field: func(m *MetricSet) *float64 { return &m.CDUConversionRate },
		observe: func(r *RunResult) (float64, bool) {
			return r.CDUConversionRate, r.Completed > 0
		},
	},
	{
		Key: "cdu_discharged_home", Label: "Discharged home from CDU", Unit: "patients",
		field:   func(m *MetricSet) *float64 { return &m.CDUDischargedHome },
		observe: always(func(r *RunResult) float64 { return float64(r.CDUDischargedHome) }),
	},
	{
		Key: "cdu_discharge_rate", Label: "CDU discharge-home rate", Unit: "ratio",
		field: func(m *MetricSet) *float64 { return &m.CDUDischargeRate },
		observe: func(r *RunResult) (float64, bool) {
			return r.CDUDischargeRate, r.CDURouted > 0
		},
	},
	{
		Key: "porter_transports", Label: "Porter transports", Unit: "moves", LowerIsBetter: true,
		field:   func(m *MetricSet) *float64 { return &m.PorterTransports },
		observe: always(func(r *RunResult) float64 { return float64(r.Transports[TransportPorter]) }),
	},
	{
		Key: "pulley_transports", Label: "Pulley transports", Unit: "moves",
		field:   func(m *MetricSet) *float64 { return &m.PulleyTransports },
		observe: always(func(r *RunResult) float64 { return float64(r.Transports[TransportPulley]) }),
	},
	{
		Key: "volunteer_transports", Label: "Volunteer transports", Unit: "moves",
		field:   func(m *MetricSet) *float64 { return &m.VolunteerTransports },
		observe: always(func(r *RunResult) float64 { return float64(r.Transports[TransportVolunteer]) }),
	},
	{
		Key: "left_without_being_seen", Label: "Left without being seen", Unit: "patients", LowerIsBetter: true,
		field:   func(m *MetricSet) *float64 { return &m.LeftWithoutBeingSeen },
		observe: always(func(r *RunResult) float64 { return float64(r.LeftWithoutBeingSeen) }),
	},
	{
		Key: "completed", Label: "Completed patients", Unit: "patients",
		field:   func(m *MetricSet) *float64 { return &m.Completed },
		observe: always(func(r *RunResult) float64 { return float64(r.Completed) }),
	},
	{
		Key: "incomplete", Label: "Incomplete at horizon", Unit: "patients", LowerIsBetter: true,
		field:   func(m *MetricSet) *float64 { return &m.Incomplete },
		observe: always(func(r *RunResult) float64 { return float64(r.Incomplete) }),
	},
	{
		Key: "total_cost", Label: "Total operating cost", Unit: "$", LowerIsBetter: true,
		field:   func(m *MetricSet) *float64 { return &m.TotalCost },
		observe: always(func(r *RunResult) float64 { return r.Cost.Total }),
	},
	{
		Key: "overtime_cost", Label: "Overtime staff cost", Unit: "$", LowerIsBetter: true,
		field:   func(m *MetricSet) *float64 { return &m.OvertimeCost },
		observe: always(func(r *RunResult) float64 { return r.Cost.OvertimeStaff }),
	},
}

// FindMetric returns the metric with the given key.
func FindMetric(key string) (MetricDef, bool) {
	for _, d := range MetricDefs {
		if d.Key == key {
			return d, true
		}
	}
	return MetricDef{}, false
}

// Metrics returns the run's comparison metrics. Unobserved metrics are zero.
func (r *RunResult) Metrics() MetricSet {
	var m MetricSet
	for _, d := range MetricDefs {
		if v, ok := d.observe(r); ok {
			*d.field(&m) = v
		}
	}
	return m
}
