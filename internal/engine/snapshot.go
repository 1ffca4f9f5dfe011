package engine

import (
	"fmt"
	"io"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// WeightSnapshot is an exported weight vector.
type WeightSnapshot struct {
	ID      string             `yaml:"id"`
	Role    string             `yaml:"role"`
	Agent   string             `yaml:"agent,omitempty"`
	Updates int                `yaml:"updates"`
	Weights map[string]float64 `yaml:"weights"`
}

type snapshotFile struct {
	Snapshots []WeightSnapshot `yaml:"snapshots"`
}

func newWeightSnapshot(role, agent string, updates int, weights map[string]float64) WeightSnapshot {
	return WeightSnapshot{
		ID:      uuid.NewString(),
		Role:    role,
		Agent:   agent,
		Updates: updates,
		Weights: weights,
	}
}

// WriteSnapshots encodes snapshots as YAML.
func WriteSnapshots(w io.Writer, snapshots []WeightSnapshot) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(snapshotFile{Snapshots: snapshots}); err != nil {
		return fmt.Errorf("encode weight snapshots: %w", err)
	}
	return enc.Close()
}

// ReadSnapshots decodes snapshots written by WriteSnapshots.
func ReadSnapshots(r io.Reader) ([]WeightSnapshot, error) {
	var file snapshotFile
	if err := yaml.NewDecoder(r).Decode(&file); err != nil {
		return nil, fmt.Errorf("decode weight snapshots: %w", err)
	}
	for i, s := range file.Snapshots {
		if _, err := uuid.Parse(s.ID); err != nil {
			return nil, fmt.Errorf("snapshot %d (%s): invalid id %q: %w", i, s.Role, s.ID, err)
		}
		if s.Weights == nil {
			file.Snapshots[i].Weights = map[string]float64{}
		}
	}
	return file.Snapshots, nil
}

// SnapshotWeights returns the weights of the most recently listed snapshot for
// role, or nil when there is none.
func SnapshotWeights(snapshots []WeightSnapshot, role string) map[string]float64 {
	for i := len(snapshots) - 1; i >= 0; i-- {
		if snapshots[i].Role == role {
			return snapshots[i].Weights
		}
	}
	return nil
}
