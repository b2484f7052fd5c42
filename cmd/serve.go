package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/patientflow-sim/patientflow/server"
	"github.com/patientflow-sim/patientflow/store"
	"github.com/patientflow-sim/patientflow/telemetry"
)

var (
	serveAddr     string // Listen address
	serveStore    string // Repository URL
	serveOTLP     string // OTLP gRPC endpoint
	serveParallel int    // Per-request cap on concurrent runs
)

// serveCmd exposes comparisons over HTTP
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the comparison API over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		shutdownTelemetry, err := telemetry.Init(ctx, telemetry.Config{
			Endpoint:    serveOTLP,
			ServiceName: "patientflow",
			Insecure:    true,
			SampleRatio: 1,
		})
		if err != nil {
			return err
		}
		defer func() { _ = shutdownTelemetry(context.Background()) }()

		profiles, err := loadProfiles()
		if err != nil {
			return err
		}
		repo, err := store.Open(ctx, serveStore)
		if err != nil {
			return err
		}
		defer repo.Close()

		srv := &http.Server{
			Addr:              serveAddr,
			Handler:           server.NewRouter(server.Options{Repo: repo, Profiles: profiles, Parallelism: serveParallel}),
			ReadHeaderTimeout: 10 * time.Second,
		}
		errCh := make(chan error, 1)
		go func() {
			logrus.Warnf("listening on %s", serveAddr)
			errCh <- srv.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			if !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		case <-ctx.Done():
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logrus.Warnf("shutting down")
		return srv.Shutdown(shutdownCtx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "Listen address")
	serveCmd.Flags().StringVar(&serveStore, "store", "", "Repository URL (default: in memory)")
	serveCmd.Flags().StringVar(&serveOTLP, "otlp-endpoint", "", "Export run spans to this OTLP gRPC collector")
	serveCmd.Flags().IntVar(&serveParallel, "parallel", 0, "Cap on concurrent runs per request (default: GOMAXPROCS)")

	rootCmd.AddCommand(serveCmd)
}
