package config

import (
	"fmt"
	"os"

	"github.com/dgallion1/docfill/internal/alias"
	"github.com/dgallion1/docfill/internal/field"
	"gopkg.in/yaml.v3"
)

// Profile is the domain vocabulary: the alias table and the anchored labels
// the detector looks for.
type Profile struct {
	Aliases alias.Table       `yaml:"aliases"`
	Labels  []field.LabelSpec `yaml:"labels"`
}

// DefaultProfile returns the built-in aliases and labels.
func DefaultProfile() Profile {
	return Profile{
		Aliases: alias.DefaultTable(),
		Labels:  append([]field.LabelSpec(nil), field.DefaultLabels...),
	}
}

// LoadProfile reads a YAML profile. An empty path yields DefaultProfile.
// Sections missing from the file keep their built-in defaults.
func LoadProfile(path string) (Profile, error) {
	p := DefaultProfile()
	if path == "" {
		return p, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, fmt.Errorf("read profile: %w", err)
	}

	var raw Profile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Profile{}, fmt.Errorf("parse profile %s: %w", path, err)
	}
	if raw.Aliases != nil {
		p.Aliases = raw.Aliases
	}
	if raw.Labels != nil {
		p.Labels = raw.Labels
	}

	if err := p.Validate(); err != nil {
		return Profile{}, fmt.Errorf("profile %s: %w", path, err)
	}
	return p, nil
}

func (p Profile) Validate() error {
	if err := p.Aliases.Validate(); err != nil {
		return err
	}
	for i, l := range p.Labels {
		if l.Name == "" {
			return fmt.Errorf("labels[%d]: name is required", i)
		}
	}
	if _, err := field.BuildRules(p.Labels); err != nil {
		return err
	}
	return nil
}

// Detector builds a field detector from the profile's labels.
func (p Profile) Detector() (*field.Detector, error) {
	rules, err := field.BuildRules(p.Labels)
	if err != nil {
		return nil, err
	}
	return field.NewDetector(rules...), nil
}
