package sim

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patientflow-sim/patientflow/sim/internal/testutil"
)

func TestDefaultProfiles_AllValidInBothConfigurations(t *testing.T) {
	profiles, err := DefaultProfiles()
	require.NoError(t, err)

	var names []string
	for _, p := range profiles {
		names = append(names, p.Name)
		for _, cfg := range []Configuration{ConfigBaseline, ConfigEnhanced} {
			sc, err := p.ScenarioFor(cfg)
			require.NoError(t, err)
			assert.NoError(t, sc.Validate(), "%s/%s", p.Name, cfg)
		}
	}
	assert.Equal(t, []string{"Bellevue", "Jackson Memorial", "Cedars-Sinai"}, names)
}

func TestProfile_ScenarioFor_DiffersOnlyInCapabilities(t *testing.T) {
	// GIVEN the Bellevue profile
	profiles, err := DefaultProfiles()
	require.NoError(t, err)
	p, ok := FindProfile(profiles, "Bellevue")
	require.True(t, ok)

	// WHEN building both configurations
	base, err := p.ScenarioFor(ConfigBaseline)
	require.NoError(t, err)
	enh, err := p.ScenarioFor(ConfigEnhanced)
	require.NoError(t, err)

	// THEN baseline has no enhancement and everything but the record and label matches
	assert.False(t, base.Capabilities.Any())
	assert.True(t, enh.Capabilities.CDURouting)
	assert.Equal(t, 14, enh.Capacity(PoolRadiologists))
	assert.Equal(t, 12, base.Capacity(PoolRadiologists))

	enh.Capabilities = Capabilities{}
	enh.Configuration = ConfigBaseline
	assert.Equal(t, base, enh)
}

func TestProfile_ScenarioFor_UnknownConfiguration(t *testing.T) {
	profiles, err := DefaultProfiles()
	require.NoError(t, err)
	_, err = profiles[0].ScenarioFor("experimental")
	var cfgErr *ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestParseProfiles_SmallDocument(t *testing.T) {
	profiles, err := ParseProfiles([]byte(testutil.SmallProfilesYAML))
	require.NoError(t, err)
	require.Len(t, profiles, 2)
	assert.Equal(t, 1440.0, profiles[0].Scenario.RunLengthMinutes)
	assert.Equal(t, 10, profiles[0].Scenario.Capacities[PoolEDBeds])
	// keys absent from the overlay keep their defaults
	assert.Equal(t, 0.8, profiles[0].Scenario.Routing.CDUDischargeProbability)
}

func TestParseProfiles_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"empty", "hospitals: []\n", "no hospitals"},
		{"missing name", "hospitals:\n  - scenario: {}\n", "name is required"},
		{"duplicate", "hospitals:\n  - name: A\n  - name: A\n", "duplicate"},
		{"unknown field", "hospitals:\n  - name: A\n    scenario:\n      bedz: 3\n", "bedz"},
		{"capabilities in scenario", "hospitals:\n  - name: A\n    scenario:\n      capabilities:\n        ai_imaging: true\n", "enhanced"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseProfiles([]byte(tt.doc))
			require.Error(t, err)
			assert.True(t, strings.Contains(err.Error(), tt.want), "error %q should mention %q", err, tt.want)
		})
	}
}

func TestLoadProfiles_FromFile(t *testing.T) {
	path := testutil.WriteFile(t, "profiles.yaml", testutil.SmallProfilesYAML)
	profiles, err := LoadProfiles(path)
	require.NoError(t, err)
	assert.Len(t, profiles, 2)
}

func TestSelectProfiles(t *testing.T) {
	profiles, err := DefaultProfiles()
	require.NoError(t, err)

	all, err := SelectProfiles(profiles, nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	some, err := SelectProfiles(profiles, []string{"Cedars-Sinai", "Bellevue"})
	require.NoError(t, err)
	require.Len(t, some, 2)
	assert.Equal(t, "Cedars-Sinai", some[0].Name)

	_, err = SelectProfiles(profiles, []string{"Mayo"})
	assert.Error(t, err)
}

func TestBuiltinProfilesYAML_RoundTrips(t *testing.T) {
	profiles, err := ParseProfiles(BuiltinProfilesYAML())
	require.NoError(t, err)
	assert.Len(t, profiles, 3)
}
