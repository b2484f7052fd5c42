package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/patientflow-sim/patientflow/sim"
)

var profilesDump bool // Print the built-in profiles document

// profilesCmd lists the hospital profiles
var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "List hospital profiles and their enhancements",
	RunE: func(cmd *cobra.Command, args []string) error {
		w := cmd.OutOrStdout()
		if profilesDump {
			_, err := w.Write(sim.BuiltinProfilesYAML())
			return err
		}
		profiles, err := loadProfiles()
		if err != nil {
			return err
		}
		for _, p := range profiles {
			fmt.Fprintf(w, "%-20s %5.1f days  mean interarrival %.1f min  enhanced: %s\n",
				p.Name, p.Scenario.RunDays(), p.Scenario.Arrivals.MeanInterarrivalMinutes, describeCapabilities(p.Enhanced))
		}
		return nil
	},
}

// describeCapabilities lists the enabled enhancements, e.g. "ai_imaging, pulleys=2".
func describeCapabilities(c sim.Capabilities) string {
	var parts []string
	if c.AIImaging {
		parts = append(parts, "ai_imaging")
	}
	if c.CDURouting {
		parts = append(parts, "cdu_routing")
	}
	if c.PulleyTransport {
		parts = append(parts, fmt.Sprintf("pulleys=%d", c.PulleyUnits))
	}
	if c.VolunteerTransport {
		parts = append(parts, fmt.Sprintf("volunteers=%d", c.Volunteers))
	}
	if c.AIDischarge {
		parts = append(parts, "ai_discharge")
	}
	if c.Amenities {
		parts = append(parts, "amenities")
	}
	for _, pool := range sim.ValidPools {
		if n, ok := c.CapacityOverrides[pool]; ok {
			parts = append(parts, fmt.Sprintf("%s=%d", pool, n))
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, ", ")
}

func init() {
	profilesCmd.Flags().BoolVar(&profilesDump, "dump", false, "Print the built-in profiles YAML (a starting point for --profiles)")

	rootCmd.AddCommand(profilesCmd)
}
