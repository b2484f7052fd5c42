// Package compare runs every hospital profile in its baseline and enhanced
// configuration, averages the replications and pairs the results.
package compare

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/patientflow-sim/patientflow/sim"
)

const tracerName = "github.com/patientflow-sim/patientflow/sim/compare"

// Configurations lists the configurations run for every hospital, in order.
var Configurations = []sim.Configuration{sim.ConfigBaseline, sim.ConfigEnhanced}

// Driver runs a comparison. Replication r of every configuration uses seed
// Seed+r, so baseline and enhanced runs of a hospital see the same workload.
type Driver struct {
	Profiles []sim.Profile
	// Days overrides each scenario's run length when positive.
	Days float64
	// Replications is the number of independent runs per configuration (default 1).
	Replications int
	Seed         int64
	// Parallelism bounds concurrent runs (default GOMAXPROCS).
	Parallelism int

	// Configure, when set, is called on every simulator before it runs.
	Configure func(run RunSpec, s *sim.Simulator)
	// OnRunDone, when set, is called from worker goroutines as runs finish.
	OnRunDone func(run RunSpec, err error)
}

// RunSpec identifies one run of a comparison.
type RunSpec struct {
	Hospital      string
	Configuration sim.Configuration
	Replication   int
	Seed          int64
}

// RunFailure records a run that did not produce a result.
type RunFailure struct {
	Hospital      string            `json:"hospital"`
	Configuration sim.Configuration `json:"configuration"`
	Replication   int               `json:"replication"`
	Seed          int64             `json:"seed"`
	Error         string            `json:"error"`
}

// Delta pairs one metric across configurations. Percent is
// (enhanced - baseline) / baseline * 100 and is only Defined when the
// baseline is non-zero.
type Delta struct {
	Metric        string  `json:"metric"`
	Label         string  `json:"label"`
	Unit          string  `json:"unit"`
	LowerIsBetter bool    `json:"lower_is_better"`
	Baseline      float64 `json:"baseline"`
	Enhanced      float64 `json:"enhanced"`
	Percent       float64 `json:"percent"`
	Defined       bool    `json:"defined"`
}

// Improved reports whether the enhanced value moved in the metric's good direction.
func (d Delta) Improved() bool {
	if d.LowerIsBetter {
		return d.Enhanced < d.Baseline
	}
	return d.Enhanced > d.Baseline
}

// HospitalComparison is the paired result for one hospital.
type HospitalComparison struct {
	Hospital string      `json:"hospital"`
	Baseline sim.Summary `json:"baseline"`
	Enhanced sim.Summary `json:"enhanced"`
	Deltas   []Delta     `json:"deltas"`
	// Incomplete counts in-flight patients at the horizon over all runs.
	Incomplete int `json:"incomplete"`
}

// Delta returns the delta for a metric key.
func (h *HospitalComparison) Delta(metric string) (Delta, bool) {
	for _, d := range h.Deltas {
		if d.Metric == metric {
			return d, true
		}
	}
	return Delta{}, false
}

// Comparison is the outcome of Driver.Run.
type Comparison struct {
	Days         float64              `json:"days,omitempty"`
	Replications int                  `json:"replications"`
	Seed         int64                `json:"seed"`
	Hospitals    []HospitalComparison `json:"hospitals"`
	Failures     []RunFailure         `json:"failures,omitempty"`
	WallTime     time.Duration        `json:"wall_time_ns"`

	Results []*sim.RunResult `json:"-"`
}

// Hospital returns the comparison for the named hospital.
func (c *Comparison) Hospital(name string) (*HospitalComparison, bool) {
	for i := range c.Hospitals {
		if c.Hospitals[i].Hospital == name {
			return &c.Hospitals[i], true
		}
	}
	return nil, false
}

// TotalRuns returns the number of runs the driver will attempt.
func (d *Driver) TotalRuns() int {
	return len(d.Profiles) * len(Configurations) * d.replications()
}

func (d *Driver) replications() int {
	if d.Replications <= 0 {
		return 1
	}
	return d.Replications
}

type job struct {
	spec     RunSpec
	scenario sim.Scenario
	err      error // configuration error found before any run starts
}

// plan builds and validates every run up front. An invalid scenario fails
// each of its runs without blocking the others.
func (d *Driver) plan() []job {
	var jobs []job
	for _, p := range d.Profiles {
		for _, cfg := range Configurations {
			sc, err := p.ScenarioFor(cfg)
			if err == nil {
				if d.Days > 0 {
					sc.RunLengthMinutes = d.Days * 24 * 60
				}
				err = sc.Validate()
			}
			if err != nil {
				logrus.Warnf("%s/%s: %v", p.Name, cfg, err)
			}
			for r := 0; r < d.replications(); r++ {
				jobs = append(jobs, job{
					spec:     RunSpec{Hospital: p.Name, Configuration: cfg, Replication: r, Seed: d.Seed + int64(r)},
					scenario: sc,
					err:      err,
				})
			}
		}
	}
	return jobs
}

// Run executes every run, bounded by Parallelism, and aggregates the results.
// Failed runs are collected in Comparison.Failures; only cancellation of ctx
// makes Run itself fail.
func (d *Driver) Run(ctx context.Context) (*Comparison, error) {
	if len(d.Profiles) == 0 {
		return nil, fmt.Errorf("no hospital profiles to compare")
	}
	start := time.Now()
	jobs := d.plan()
	results := make([]*sim.RunResult, len(jobs))
	errs := make([]error, len(jobs))

	limit := d.Parallelism
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i := range jobs {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := d.runOne(gctx, jobs[i])
			results[i], errs[i] = res, err
			if d.OnRunDone != nil {
				d.OnRunDone(jobs[i].spec, err)
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	cmp := &Comparison{
		Days:         d.Days,
		Replications: d.replications(),
		Seed:         d.Seed,
	}
	aggs := make(map[string]map[sim.Configuration]*sim.Aggregator, len(d.Profiles))
	incomplete := make(map[string]int, len(d.Profiles))
	for _, p := range d.Profiles {
		aggs[p.Name] = map[sim.Configuration]*sim.Aggregator{
			sim.ConfigBaseline: sim.NewAggregator(p.Name, sim.ConfigBaseline),
			sim.ConfigEnhanced: sim.NewAggregator(p.Name, sim.ConfigEnhanced),
		}
	}
	for i, j := range jobs {
		if errs[i] != nil {
			cmp.Failures = append(cmp.Failures, RunFailure{
				Hospital:      j.spec.Hospital,
				Configuration: j.spec.Configuration,
				Replication:   j.spec.Replication,
				Seed:          j.spec.Seed,
				Error:         errs[i].Error(),
			})
			continue
		}
		aggs[j.spec.Hospital][j.spec.Configuration].Add(results[i])
		incomplete[j.spec.Hospital] += results[i].Incomplete
		cmp.Results = append(cmp.Results, results[i])
	}

	for _, p := range d.Profiles {
		base := aggs[p.Name][sim.ConfigBaseline].Summary()
		enh := aggs[p.Name][sim.ConfigEnhanced].Summary()
		cmp.Hospitals = append(cmp.Hospitals, HospitalComparison{
			Hospital:   p.Name,
			Baseline:   base,
			Enhanced:   enh,
			Deltas:     ComputeDeltas(base, enh),
			Incomplete: incomplete[p.Name],
		})
	}
	cmp.WallTime = time.Since(start)
	if len(cmp.Failures) > 0 {
		logrus.Warnf("%d of %d runs failed", len(cmp.Failures), len(jobs))
	}
	return cmp, nil
}

// runOne executes a single run inside its own span.
func (d *Driver) runOne(ctx context.Context, j job) (*sim.RunResult, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "simulate", trace.WithAttributes(
		attribute.String("hospital", j.spec.Hospital),
		attribute.String("configuration", string(j.spec.Configuration)),
		attribute.Int("replication", j.spec.Replication),
		attribute.Int64("seed", j.spec.Seed),
	))
	defer span.End()

	res, err := d.simulate(ctx, j)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(
		attribute.Int("arrivals", res.Arrivals),
		attribute.Int("completed", res.Completed),
		attribute.Int("incomplete", res.Incomplete),
		attribute.Int("events", res.EventsDispatched),
	)
	return res, nil
}

func (d *Driver) simulate(ctx context.Context, j job) (*sim.RunResult, error) {
	if j.err != nil {
		return nil, j.err
	}
	s, err := sim.NewSimulator(j.scenario, j.spec.Seed)
	if err != nil {
		return nil, err
	}
	if d.Configure != nil {
		d.Configure(j.spec, s)
	}
	res, err := s.Run(ctx)
	if err != nil {
		return nil, err
	}
	res.Replication = j.spec.Replication
	return res, nil
}

// ComputeDeltas pairs every metric of two summaries.
func ComputeDeltas(base, enh sim.Summary) []Delta {
	deltas := make([]Delta, 0, len(sim.MetricDefs))
	for _, def := range sim.MetricDefs {
		b, e := def.Value(base.Mean), def.Value(enh.Mean)
		pct, ok := PercentDelta(b, e)
		deltas = append(deltas, Delta{
			Metric:        def.Key,
			Label:         def.Label,
			Unit:          def.Unit,
			LowerIsBetter: def.LowerIsBetter,
			Baseline:      b,
			Enhanced:      e,
			Percent:       pct,
			Defined:       ok,
		})
	}
	return deltas
}

// PercentDelta returns (enhanced - baseline) / baseline * 100, or false when
// the baseline is zero.
func PercentDelta(baseline, enhanced float64) (float64, bool) {
	if baseline == 0 || math.IsNaN(baseline) {
		return 0, false
	}
	return (enhanced - baseline) / baseline * 100, true
}
