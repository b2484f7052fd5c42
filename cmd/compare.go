package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/patientflow-sim/patientflow/report"
	"github.com/patientflow-sim/patientflow/sim"
	"github.com/patientflow-sim/patientflow/sim/compare"
	"github.com/patientflow-sim/patientflow/store"
	"github.com/patientflow-sim/patientflow/telemetry"
)

var (
	cmpDays         float64  // Overrides every scenario's run length when > 0
	cmpReplications int      // Runs per configuration
	cmpSeed         int64    // Seed of replication 0
	cmpParallel     int      // Concurrent runs; 0 uses GOMAXPROCS
	cmpHospitals    []string // Subset of hospitals; empty runs all
	cmpXLSX         string   // Workbook output path
	cmpStore        string   // Repository URL for saving the comparison
	cmpOTLP         string   // OTLP gRPC endpoint for run spans
	cmpWatch        bool     // Re-run whenever --profiles changes
	cmpNoProgress   bool     // Hide the progress bar
)

// compareCmd runs every hospital in both configurations and reports the deltas
var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Compare baseline and enhanced configurations across hospitals",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		shutdown, err := telemetry.Init(ctx, telemetry.Config{
			Endpoint:    cmpOTLP,
			ServiceName: "patientflow",
			Insecure:    true,
			SampleRatio: 1,
		})
		if err != nil {
			return err
		}
		defer func() {
			if err := shutdown(context.Background()); err != nil {
				logrus.Warnf("telemetry shutdown: %v", err)
			}
		}()

		var repo store.Repository
		if cmpStore != "" {
			if repo, err = store.Open(ctx, cmpStore); err != nil {
				return err
			}
			defer repo.Close()
		}

		opts := compareOptions{
			Request: store.Request{
				Days:         cmpDays,
				Replications: cmpReplications,
				Seed:         cmpSeed,
				Parallelism:  cmpParallel,
				Hospitals:    cmpHospitals,
			},
			XLSX:     cmpXLSX,
			Repo:     repo,
			Progress: !cmpNoProgress,
		}
		out, errOut := cmd.OutOrStdout(), cmd.ErrOrStderr()
		if err := runCompare(ctx, out, errOut, opts); err != nil {
			if !cmpWatch {
				return err
			}
			logrus.Errorf("comparison failed: %v", err)
		}
		if !cmpWatch {
			return nil
		}
		if profilesPath == "" {
			return fmt.Errorf("--watch requires --profiles")
		}
		fmt.Fprintf(errOut, "watching %s for changes\n", profilesPath)
		return watchFile(ctx, profilesPath, watchDebounce, func() error {
			return runCompare(ctx, out, errOut, opts)
		})
	},
}

// compareOptions carries everything runCompare needs besides the profiles.
type compareOptions struct {
	store.Request
	XLSX     string
	Repo     store.Repository
	Progress bool
}

// runCompare loads the profiles, runs the comparison and emits every output
// requested: the rendered tables, the workbook and the stored record.
func runCompare(ctx context.Context, out, errOut io.Writer, opts compareOptions) error {
	all, err := loadProfiles()
	if err != nil {
		return err
	}
	profiles, err := sim.SelectProfiles(all, opts.Hospitals)
	if err != nil {
		return err
	}

	d := &compare.Driver{
		Profiles:     profiles,
		Days:         opts.Days,
		Replications: opts.Replications,
		Seed:         opts.Seed,
		Parallelism:  opts.Parallelism,
	}
	var bar *progressbar.ProgressBar
	if opts.Progress {
		bar = report.NewProgress(errOut, d.TotalRuns(), "simulating")
		d.OnRunDone = func(run compare.RunSpec, err error) {
			if err != nil {
				logrus.Debugf("%s/%s replication %d failed: %v", run.Hospital, run.Configuration, run.Replication, err)
			}
			_ = bar.Add(1)
		}
	}

	start := time.Now()
	cmp, err := d.Run(ctx)
	if bar != nil {
		_ = bar.Finish()
	}
	if err != nil {
		return err
	}
	logrus.Infof("comparison of %d hospitals finished in %v", len(profiles), time.Since(start).Round(time.Millisecond))

	if err := report.RenderComparison(out, cmp); err != nil {
		return err
	}
	if opts.XLSX != "" {
		if err := report.WriteWorkbook(opts.XLSX, cmp); err != nil {
			return err
		}
		fmt.Fprintf(out, "workbook written to %s\n", opts.XLSX)
	}
	if opts.Repo != nil {
		rec := store.NewRecord(opts.Request, cmp)
		if err := opts.Repo.Save(ctx, rec); err != nil {
			return fmt.Errorf("saving comparison: %w", err)
		}
		fmt.Fprintf(out, "saved comparison %s\n", rec.ID)
	}
	return nil
}

func init() {
	compareCmd.Flags().Float64Var(&cmpDays, "days", 0, "Simulated days per run (default: each scenario's run length)")
	compareCmd.Flags().IntVar(&cmpReplications, "replications", 1, "Independent runs per configuration; replication r uses seed+r")
	compareCmd.Flags().Int64Var(&cmpSeed, "seed", 42, "Seed of the first replication")
	compareCmd.Flags().IntVar(&cmpParallel, "parallel", 0, "Concurrent runs (default: GOMAXPROCS)")
	compareCmd.Flags().StringSliceVar(&cmpHospitals, "hospital", nil, "Hospitals to compare (default: all)")
	compareCmd.Flags().StringVar(&cmpXLSX, "xlsx", "", "Also write the comparison to this Excel workbook")
	compareCmd.Flags().StringVar(&cmpStore, "store", "", "Save the comparison (memory://, postgres://..., redis://...)")
	compareCmd.Flags().StringVar(&cmpOTLP, "otlp-endpoint", "", "Export run spans to this OTLP gRPC collector")
	compareCmd.Flags().BoolVar(&cmpWatch, "watch", false, "Re-run whenever the --profiles file changes")
	compareCmd.Flags().BoolVar(&cmpNoProgress, "no-progress", false, "Hide the progress bar")

	rootCmd.AddCommand(compareCmd)
}
