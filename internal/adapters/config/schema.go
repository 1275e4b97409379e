package config

import "gopkg.in/yaml.v3"

// Floefile represents the structure of the floe.yaml workflow file.
// Targets is kept as a raw node so declaration order survives parsing;
// a Go map would shuffle it, and scheduling ties are broken by
// declaration order.
type Floefile struct {
	Version string    `yaml:"version"`
	Workdir string    `yaml:"workdir"`
	Targets yaml.Node `yaml:"targets"`
}

// TargetDTO represents one target declaration.
type TargetDTO struct {
	Inputs  []string          `yaml:"inputs"`
	Outputs []string          `yaml:"outputs"`
	Script  string            `yaml:"script"`
	Workdir string            `yaml:"workdir"`
	Options map[string]string `yaml:"options"`
}
