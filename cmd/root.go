package cmd

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/patientflow-sim/patientflow/sim"
)

var (
	logLevel     string // Log verbosity level
	profilesPath string // Hospital profiles YAML; empty uses the built-in profiles
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:           "patientflow",
	Short:         "Discrete-event simulator for hospital patient flow",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			return fmt.Errorf("invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)
		return nil
	},
}

// loadProfiles returns the profiles named by --profiles, or the built-in set.
func loadProfiles() ([]sim.Profile, error) {
	if profilesPath == "" {
		return sim.DefaultProfiles()
	}
	return sim.LoadProfiles(profilesPath)
}

// Execute runs the CLI
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logrus.Fatalf("%v", err)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "warn", "Log level (trace, debug, info, warn, error, fatal, panic)")
	rootCmd.PersistentFlags().StringVar(&profilesPath, "profiles", "", "Hospital profiles YAML (default: built-in profiles)")
}
