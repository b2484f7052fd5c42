package sim

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed profiles/hospitals.yaml
var builtinProfiles []byte

// Profile is one hospital: its baseline scenario plus the capability record
// used for its enhanced run.
type Profile struct {
	Name     string
	Scenario Scenario
	Enhanced Capabilities
}

// ScenarioFor returns the scenario for the requested configuration. The two
// results differ only in Configuration and Capabilities.
func (p Profile) ScenarioFor(cfg Configuration) (Scenario, error) {
	sc := p.Scenario.Clone()
	sc.Hospital = p.Name
	sc.Configuration = cfg
	switch cfg {
	case ConfigBaseline:
		sc.Capabilities = Capabilities{}
	case ConfigEnhanced:
		sc.Capabilities = p.Enhanced.Clone()
	default:
		return Scenario{}, &ConfigurationError{Scenario: sc.Name(), Field: "configuration", Reason: fmt.Sprintf("unknown configuration %q", cfg)}
	}
	return sc, nil
}

type profileFile struct {
	Hospitals []rawProfile `yaml:"hospitals"`
}

type rawProfile struct {
	Name     string       `yaml:"name"`
	Scenario yaml.Node    `yaml:"scenario"`
	Enhanced Capabilities `yaml:"enhanced"`
}

// DefaultProfiles returns the built-in hospital profiles.
func DefaultProfiles() ([]Profile, error) {
	return ParseProfiles(builtinProfiles)
}

// BuiltinProfilesYAML returns the embedded profiles document.
func BuiltinProfilesYAML() []byte {
	return append([]byte(nil), builtinProfiles...)
}

// LoadProfiles reads a profiles YAML file.
func LoadProfiles(path string) ([]Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading profiles: %w", err)
	}
	profiles, err := ParseProfiles(data)
	if err != nil {
		return nil, fmt.Errorf("parsing profiles %s: %w", path, err)
	}
	return profiles, nil
}

// ParseProfiles decodes a profiles document. Each scenario block is overlaid
// on DefaultScenario and decoded strictly, so typos are errors.
func ParseProfiles(data []byte) ([]Profile, error) {
	var file profileFile
	if err := decodeStrict(data, &file); err != nil {
		return nil, err
	}
	if len(file.Hospitals) == 0 {
		return nil, fmt.Errorf("no hospitals defined")
	}

	seen := make(map[string]bool, len(file.Hospitals))
	profiles := make([]Profile, 0, len(file.Hospitals))
	for i, raw := range file.Hospitals {
		if raw.Name == "" {
			return nil, fmt.Errorf("hospitals[%d]: name is required", i)
		}
		if seen[raw.Name] {
			return nil, fmt.Errorf("hospitals[%d]: duplicate hospital %q", i, raw.Name)
		}
		seen[raw.Name] = true

		sc := DefaultScenario(raw.Name)
		if raw.Scenario.Kind != 0 {
			overlay, err := yaml.Marshal(&raw.Scenario)
			if err != nil {
				return nil, fmt.Errorf("hospitals[%d] (%s): %w", i, raw.Name, err)
			}
			if err := decodeStrict(overlay, &sc); err != nil {
				return nil, fmt.Errorf("hospitals[%d] (%s): %w", i, raw.Name, err)
			}
		}
		if sc.Capabilities.Any() {
			return nil, fmt.Errorf("hospitals[%d] (%s): capabilities belong under enhanced, not scenario", i, raw.Name)
		}
		sc.Hospital = raw.Name
		profiles = append(profiles, Profile{Name: raw.Name, Scenario: sc, Enhanced: raw.Enhanced})
	}
	return profiles, nil
}

// FindProfile returns the profile with the given name.
func FindProfile(profiles []Profile, name string) (Profile, bool) {
	for _, p := range profiles {
		if p.Name == name {
			return p, true
		}
	}
	return Profile{}, false
}

// SelectProfiles filters profiles by name, keeping the requested order.
// An empty selection returns all profiles.
func SelectProfiles(profiles []Profile, names []string) ([]Profile, error) {
	if len(names) == 0 {
		return profiles, nil
	}
	out := make([]Profile, 0, len(names))
	for _, n := range names {
		p, ok := FindProfile(profiles, n)
		if !ok {
			return nil, fmt.Errorf("unknown hospital %q", n)
		}
		out = append(out, p)
	}
	return out, nil
}
