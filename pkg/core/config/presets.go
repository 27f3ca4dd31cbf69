package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"deal_underwriting/pkg/core/deal"
)

// Preset is a named starting deal. Fields the file leaves out keep the
// default deal's values.
type Preset struct {
	Name        string           `yaml:"name" json:"name"`
	Description string           `yaml:"description" json:"description,omitempty"`
	Mode        deal.Mode        `yaml:"mode" json:"mode"`
	Deal        deal.Assumptions `yaml:"deal" json:"deal"`
}

func (p *Preset) UnmarshalYAML(unmarshal func(interface{}) error) error {
	type plain Preset
	raw := plain{Mode: deal.ModeSimple, Deal: deal.Defaults()}
	if err := unmarshal(&raw); err != nil {
		return err
	}
	raw.Mode = deal.ParseMode(string(raw.Mode))
	*p = Preset(raw)
	return nil
}

type presetFile struct {
	Presets []Preset `yaml:"presets"`
}

// ParsePresets decodes a presets document. Names must be present and unique.
func ParsePresets(data []byte) ([]Preset, error) {
	var f presetFile
	if err := yaml.UnmarshalStrict(data, &f); err != nil {
		return nil, fmt.Errorf("parse presets: %w", err)
	}
	seen := make(map[string]bool, len(f.Presets))
	for i, p := range f.Presets {
		if p.Name == "" {
			return nil, fmt.Errorf("preset %d has no name", i)
		}
		if seen[p.Name] {
			return nil, fmt.Errorf("duplicate preset %q", p.Name)
		}
		seen[p.Name] = true
		if p.Deal.Name == "" {
			f.Presets[i].Deal.Name = p.Name
		}
	}
	return f.Presets, nil
}

// LoadPresets reads and parses the presets file at path.
func LoadPresets(path string) ([]Preset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read presets: %w", err)
	}
	return ParsePresets(data)
}

// Find returns the preset called name.
func Find(presets []Preset, name string) (Preset, bool) {
	for _, p := range presets {
		if p.Name == name {
			return p, true
		}
	}
	return Preset{}, false
}
