// Package config provides the YAML workflow declaration loader.
package config

import (
	"os"
	"slices"

	"go.strandlab.net/floe/internal/core/domain"
	"go.strandlab.net/floe/internal/core/ports"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

var _ ports.ConfigLoader = (*FileLoader)(nil)

// FileLoader implements ports.ConfigLoader for floe.yaml files.
type FileLoader struct{}

// NewFileLoader creates a FileLoader.
func NewFileLoader() *FileLoader {
	return &FileLoader{}
}

// Load reads the workflow declaration file at path and returns the
// targets in declaration order. The loader validates shape only;
// graph-level invariants (duplicate outputs, cycles) are checked by
// domain.FromTargets.
func (l *FileLoader) Load(path string) ([]*domain.Target, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is provided by user
	if err != nil {
		return nil, zerr.Wrap(err, "failed to read workflow file")
	}

	var file Floefile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, zerr.Wrap(err, "failed to parse workflow file")
	}

	if file.Targets.Kind == 0 {
		return nil, domain.ErrNoTargets
	}
	if file.Targets.Kind != yaml.MappingNode {
		return nil, zerr.New("targets must be a mapping of name to declaration")
	}

	// A YAML mapping node stores its pairs as flat [key, value, ...]
	// content, in document order.
	targets := make([]*domain.Target, 0, len(file.Targets.Content)/2)
	for i := 0; i+1 < len(file.Targets.Content); i += 2 {
		keyNode := file.Targets.Content[i]
		valNode := file.Targets.Content[i+1]

		var dto TargetDTO
		if err := valNode.Decode(&dto); err != nil {
			return nil, zerr.With(zerr.Wrap(err, "failed to parse target"), "target", keyNode.Value)
		}

		t, err := buildTarget(keyNode.Value, &dto, file.Workdir)
		if err != nil {
			return nil, err
		}
		targets = append(targets, t)
	}

	return targets, nil
}

func buildTarget(name string, dto *TargetDTO, defaultWorkdir string) (*domain.Target, error) {
	if name == "" {
		return nil, zerr.New("target name must not be empty")
	}
	if len(dto.Outputs) == 0 {
		return nil, zerr.With(zerr.New("target must declare at least one output"), "target", name)
	}

	workdir := dto.Workdir
	if workdir == "" {
		workdir = defaultWorkdir
	}

	return &domain.Target{
		Name:    domain.NewInternedString(name),
		Inputs:  internPaths(dto.Inputs),
		Outputs: internPaths(dto.Outputs),
		Spec: domain.ExecSpec{
			Script:     dto.Script,
			WorkingDir: workdir,
		},
		Options: dto.Options,
	}, nil
}

// internPaths deduplicates a declared path list while preserving the
// declared order.
func internPaths(paths []string) []domain.InternedString {
	if len(paths) == 0 {
		return nil
	}
	res := make([]domain.InternedString, 0, len(paths))
	for _, p := range paths {
		is := domain.NewInternedString(p)
		if !slices.Contains(res, is) {
			res = append(res, is)
		}
	}
	return res
}
