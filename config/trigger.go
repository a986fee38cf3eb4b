package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/ohmree/bindsync/errors"
)

// TriggerDefinition is the pipeline's own trigger surface, read from the
// workflow file. A run starts when the pin file, the generation config, or
// this definition itself changes.
type TriggerDefinition struct {
	// Name labels the workflow in logs and the ledger
	Name string `yaml:"name"`

	// Paths are additional watched globs relative to the repo root
	Paths []string `yaml:"paths"`

	// Platforms optionally narrows the platform matrix for triggered runs.
	// Empty means the full configured matrix.
	Platforms []string `yaml:"platforms"`
}

// LoadTriggerDefinition parses the workflow trigger file. A missing file is
// not an error: the watcher then falls back to pin + config only.
func LoadTriggerDefinition(path string) (*TriggerDefinition, error) {
	content, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &TriggerDefinition{Name: "bindsync"}, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read trigger definition %s", path)
	}

	var def TriggerDefinition
	if err := yaml.Unmarshal(content, &def); err != nil {
		return nil, errors.Wrapf(err, "failed to parse trigger definition %s", path)
	}

	if def.Name == "" {
		def.Name = "bindsync"
	}

	return &def, nil
}

// Matches reports whether a changed file path matches one of the trigger's
// watched globs.
func (d *TriggerDefinition) Matches(path string) bool {
	for _, pattern := range d.Paths {
		if ok, err := filepath.Match(pattern, path); err == nil && ok {
			return true
		}
		// Also try matching against the basename so "*.toml" catches
		// nested files the way CI path filters do
		if ok, err := filepath.Match(pattern, filepath.Base(path)); err == nil && ok {
			return true
		}
	}
	return false
}
