package adapter

import (
	"encoding/json"
	"errors"
	"fmt"

	m "evogen.dev/pkg/evogen/internal/model"
)

// Versions written into every snapshot.
const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

// ErrVersionMismatch is returned when a stored snapshot was written by an
// incompatible schema or codec.
var ErrVersionMismatch = errors.New("snapshot version mismatch")

// EncodeSnapshot serializes a snapshot after checking its versions.
func EncodeSnapshot(snapshot m.Snapshot) ([]byte, error) {
	if err := checkVersion(snapshot); err != nil {
		return nil, err
	}

	return json.Marshal(snapshot)
}

// DecodeSnapshot deserializes a snapshot and checks its versions.
func DecodeSnapshot(data []byte) (m.Snapshot, error) {
	var snapshot m.Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return m.Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}

	if err := checkVersion(snapshot); err != nil {
		return m.Snapshot{}, err
	}

	return snapshot, nil
}

// NewSnapshot stamps tests with the current versions.
func NewSnapshot(id, class string, fitness, coverage float64, tests []m.TestCase) m.Snapshot {
	return m.Snapshot{
		ID:            id,
		Class:         class,
		SchemaVersion: CurrentSchemaVersion,
		CodecVersion:  CurrentCodecVersion,
		Fitness:       fitness,
		Coverage:      coverage,
		Tests:         tests,
	}
}

func checkVersion(s m.Snapshot) error {
	if s.SchemaVersion != CurrentSchemaVersion || s.CodecVersion != CurrentCodecVersion {
		return fmt.Errorf("schema %d codec %d: %w", s.SchemaVersion, s.CodecVersion, ErrVersionMismatch)
	}

	return nil
}
