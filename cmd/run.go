package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/patientflow-sim/patientflow/report"
	"github.com/patientflow-sim/patientflow/sim"
	"github.com/patientflow-sim/patientflow/sim/trace"
)

var (
	runHospital     string  // Profile to simulate
	runConfig       string  // baseline or enhanced
	runSeed         int64   // Seed for every random stream
	runDays         float64 // Overrides the scenario run length when > 0
	runScenario     string  // Standalone scenario YAML; replaces the profile
	runTracePatient int64   // Patient ID to trace; 0 disables tracing
)

// runCmd simulates one hospital in one configuration
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Simulate one hospital in one configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		sc, err := runScenarioFromFlags()
		if err != nil {
			return err
		}
		return runOnce(cmd.Context(), cmd.OutOrStdout(), sc, runSeed, runTracePatient)
	},
}

// runScenarioFromFlags resolves the scenario from --scenario or --hospital/--config.
func runScenarioFromFlags() (sim.Scenario, error) {
	cfg := sim.Configuration(runConfig)
	var sc sim.Scenario
	if runScenario != "" {
		loaded, err := sim.LoadScenario(runScenario)
		if err != nil {
			return sim.Scenario{}, err
		}
		sc = *loaded
		if sc.Configuration == "" {
			sc.Configuration = cfg
		}
	} else {
		profiles, err := loadProfiles()
		if err != nil {
			return sim.Scenario{}, err
		}
		p, ok := sim.FindProfile(profiles, runHospital)
		if !ok {
			return sim.Scenario{}, fmt.Errorf("unknown hospital %q", runHospital)
		}
		if sc, err = p.ScenarioFor(cfg); err != nil {
			return sim.Scenario{}, err
		}
	}
	if runDays > 0 {
		sc.RunLengthMinutes = runDays * 24 * 60
	}
	return sc, nil
}

// runOnce simulates sc and writes the run report, plus the patient trace
// when tracePatient is set.
func runOnce(ctx context.Context, w io.Writer, sc sim.Scenario, seed, tracePatient int64) error {
	s, err := sim.NewSimulator(sc, seed)
	if err != nil {
		return err
	}
	if tracePatient > 0 {
		s.Trace = trace.NewSimulationTrace(trace.TraceConfig{Level: trace.TraceLevelEvents, PatientID: tracePatient})
	}
	res, err := s.Run(ctx)
	if err != nil {
		return err
	}
	logrus.Debugf("%s: %d events", sc.Name(), res.EventsDispatched)
	if err := report.RenderRun(w, res); err != nil {
		return err
	}
	if s.Trace != nil {
		writePatientTrace(w, tracePatient, s.Trace)
	}
	return nil
}

func writePatientTrace(w io.Writer, id int64, st *trace.SimulationTrace) {
	if len(st.Dispatches) == 0 {
		fmt.Fprintf(w, "\nPatient %d did not arrive before the horizon\n", id)
		return
	}
	fmt.Fprintf(w, "\nTrace for patient %d\n", id)
	for _, tr := range st.Transitions {
		fmt.Fprintf(w, "  t=%9.2f  %s -> %s\n", tr.Time, tr.From, tr.To)
	}
	for _, d := range st.Decisions {
		fmt.Fprintf(w, "  t=%9.2f  %s: %s\n", d.Time, d.Decision, d.Outcome)
	}
	for _, tr := range st.Transports {
		fmt.Fprintf(w, "  t=%9.2f  %s by %s (waited %.1f min)\n", tr.Time, tr.Move, tr.Mode, tr.Waited)
	}
	sum := trace.Summarize(st)
	fmt.Fprintf(w, "  %d events, last at t=%.2f\n", sum.TotalDispatches, sum.LastEventTime)
}

func init() {
	runCmd.Flags().StringVar(&runHospital, "hospital", "Bellevue", "Hospital profile to simulate")
	runCmd.Flags().StringVar(&runConfig, "config", string(sim.ConfigBaseline), "Configuration (baseline, enhanced)")
	runCmd.Flags().Int64Var(&runSeed, "seed", 42, "Seed for the run's random streams")
	runCmd.Flags().Float64Var(&runDays, "days", 0, "Simulated days (default: the scenario's run length)")
	runCmd.Flags().StringVar(&runScenario, "scenario", "", "Standalone scenario YAML (overrides --hospital)")
	runCmd.Flags().Int64Var(&runTracePatient, "trace-patient", 0, "Print the event trace of one patient ID")

	rootCmd.AddCommand(runCmd)
}
