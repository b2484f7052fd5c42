package sim

// Summary is the mean of a configuration's metrics over its runs. A run
// without observations for a metric is left out of that metric's mean.
type Summary struct {
	Hospital      string         `json:"hospital"`
	Configuration Configuration  `json:"configuration"`
	Runs          int            `json:"runs"`
	Mean          MetricSet      `json:"mean"`
	Observed      map[string]int `json:"observed"` // metric key → runs contributing
}

// Aggregator accumulates RunResults of one (hospital, configuration).
type Aggregator struct {
	hospital string
	cfg      Configuration
	runs     []*RunResult
}

// NewAggregator creates an empty Aggregator.
func NewAggregator(hospital string, cfg Configuration) *Aggregator {
	return &Aggregator{hospital: hospital, cfg: cfg}
}

// Add appends a run.
func (a *Aggregator) Add(r *RunResult) {
	a.runs = append(a.runs, r)
}

// Runs returns the number of runs added.
func (a *Aggregator) Runs() int {
	return len(a.runs)
}

// Summary computes the per-metric means.
func (a *Aggregator) Summary() Summary {
	s := Summary{
		Hospital:      a.hospital,
		Configuration: a.cfg,
		Runs:          len(a.runs),
		Observed:      make(map[string]int, len(MetricDefs)),
	}
	for _, d := range MetricDefs {
		sum, n := 0.0, 0
		for _, r := range a.runs {
			if v, ok := d.observe(r); ok {
				sum += v
				n++
			}
		}
		s.Observed[d.Key] = n
		if n > 0 {
			*d.field(&s.Mean) = sum / float64(n)
		}
	}
	return s
}
