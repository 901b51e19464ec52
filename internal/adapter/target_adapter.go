package adapter

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"

	"gopkg.in/yaml.v3"

	m "evogen.dev/pkg/evogen/internal/model"
)

// ErrInvalidTarget is returned for target descriptions that cannot be
// interpreted.
var ErrInvalidTarget = errors.New("invalid target")

// TargetExtensions are the file extensions of target descriptions.
var TargetExtensions = []string{".yaml", ".yml"}

// TargetAdapter loads descriptions of units under test.
type TargetAdapter interface {
	// FindTargets lists the target descriptions under root.
	FindTargets(root m.Path, recursive bool) ([]m.Path, error)
	// LoadTarget parses and validates one description.
	LoadTarget(path m.Path) (m.Target, error)
	// Fingerprint returns a content hash of the description.
	Fingerprint(path m.Path) (string, error)
	// SaveTarget writes target as YAML.
	SaveTarget(path m.Path, target m.Target) error
}

// LocalTargetAdapter reads YAML target descriptions through a SourceFSAdapter.
type LocalTargetAdapter struct {
	fs SourceFSAdapter
}

// NewLocalTargetAdapter constructs a target adapter on top of fs.
func NewLocalTargetAdapter(fs SourceFSAdapter) *LocalTargetAdapter {
	return &LocalTargetAdapter{fs: fs}
}

// FindTargets lists YAML files under root.
func (a *LocalTargetAdapter) FindTargets(root m.Path, recursive bool) ([]m.Path, error) {
	paths, err := a.fs.FindFiles(root, recursive, TargetExtensions...)
	if err != nil {
		slog.Error("Failed to find targets", "root", root, "error", err)
		return nil, fmt.Errorf("failed to find targets in %s: %w", root, err)
	}

	return paths, nil
}

// LoadTarget decodes a YAML description, rejecting unknown fields.
func (a *LocalTargetAdapter) LoadTarget(path m.Path) (m.Target, error) {
	data, err := a.fs.ReadFile(path)
	if err != nil {
		return m.Target{}, fmt.Errorf("failed to read target %s: %w", path, err)
	}

	return ParseTarget(data)
}

// ParseTarget decodes and validates a YAML description.
func ParseTarget(data []byte) (m.Target, error) {
	var target m.Target

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(&target); err != nil {
		return m.Target{}, fmt.Errorf("%w: %w", ErrInvalidTarget, err)
	}

	if err := target.Validate(); err != nil {
		return m.Target{}, fmt.Errorf("%w: %w", ErrInvalidTarget, err)
	}

	return target, nil
}

// Fingerprint hashes the description file.
func (a *LocalTargetAdapter) Fingerprint(path m.Path) (string, error) {
	return a.fs.HashFile(path)
}

// SaveTarget encodes target as YAML.
func (a *LocalTargetAdapter) SaveTarget(path m.Path, target m.Target) error {
	data, err := yaml.Marshal(target)
	if err != nil {
		return fmt.Errorf("failed to encode target: %w", err)
	}

	if err := a.fs.WriteFile(path, data, 0o644); err != nil {
		slog.Error("Failed to write target", "path", path, "error", err)
		return fmt.Errorf("failed to write target %s: %w", path, err)
	}

	return nil
}
