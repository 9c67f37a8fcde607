package manifest

import (
	"github.com/ghodss/yaml"
)

type Mapping struct {
	Service string `json:"service,omitempty"`
	Target  string `json:"target"`
}

type TargetSummary struct {
	Hostname string `json:"hostname"`
	System   string `json:"system"`
}

type Summary struct {
	Path         string          `json:"path"`
	Targets      []TargetSummary `json:"targets"`
	Distribution []Mapping       `json:"distribution"`
	Activation   []Mapping       `json:"activation"`
}

func (d *Document) Summary(path string) Summary {
	summary := Summary{
		Path:         path,
		Targets:      make([]TargetSummary, 0),
		Distribution: make([]Mapping, 0),
		Activation:   make([]Mapping, 0),
	}
	for _, t := range d.Root.Child("targets").Children("target") {
		summary.Targets = append(summary.Targets, TargetSummary{
			Hostname: t.Child("properties").Child("hostname").Value(),
			System:   t.Child("system").Value(),
		})
	}
	for _, m := range d.Root.Child("distribution").Children("mapping") {
		summary.Distribution = append(summary.Distribution, Mapping{
			Service: m.Child("profile").Value(),
			Target:  m.Child("target").Value(),
		})
	}
	for _, m := range d.Root.Child("activation").Children("mapping") {
		summary.Activation = append(summary.Activation, Mapping{
			Service: m.Child("name").Value(),
			Target:  m.Child("target").Value(),
		})
	}
	return summary
}

// YAML renders a human-readable summary of the manifest.
func (d *Document) YAML(path string) ([]byte, error) {
	return yaml.Marshal(d.Summary(path))
}
