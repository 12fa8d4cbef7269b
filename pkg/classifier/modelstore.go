package classifier

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Gobusters/ectologger"
)

// modelArtifact is the persisted classifier half of the model; the transform
// is stored as its own file so an incremental retrain only rewrites this one.
type modelArtifact struct {
	Members []*NaiveBayes `json:"members"`
	Classes []string      `json:"classes"`
}

// ModelStore persists the model artifacts. Each file is written to a temp
// path and renamed so readers see either the old or the new artifact.
type ModelStore struct {
	dir    string
	logger ectologger.Logger
}

// NewModelStore creates a model store rooted at dir
func NewModelStore(dir string, logger ectologger.Logger) *ModelStore {
	return &ModelStore{dir: dir, logger: logger}
}

func (s *ModelStore) transformPath() string {
	return filepath.Join(s.dir, "transform.json")
}

func (s *ModelStore) modelPath() string {
	return filepath.Join(s.dir, "model.json")
}

// Load reads the model artifacts. Absent or unreadable artifacts return
// (nil, nil): the model path is simply disabled, never fatal.
func (s *ModelStore) Load() (*Model, error) {
	transformData, err := os.ReadFile(s.transformPath())
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.WithError(err).Warn("Feature transform unreadable, model disabled")
		}
		return nil, nil
	}

	modelData, err := os.ReadFile(s.modelPath())
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.WithError(err).Warn("Model artifact unreadable, model disabled")
		}
		return nil, nil
	}

	var transform Transform
	if err := json.Unmarshal(transformData, &transform); err != nil {
		s.logger.WithError(err).Warn("Feature transform corrupt, model disabled")
		return nil, nil
	}

	var artifact modelArtifact
	if err := json.Unmarshal(modelData, &artifact); err != nil {
		s.logger.WithError(err).Warn("Model artifact corrupt, model disabled")
		return nil, nil
	}

	if len(artifact.Members) == 0 {
		return nil, nil
	}

	return &Model{
		Transform: &transform,
		Members:   artifact.Members,
		Classes:   artifact.Classes,
	}, nil
}

// Save persists the model. The classifier file is replaced first, the
// transform second; both replacements are atomic.
func (s *ModelStore) Save(m *Model) error {
	artifact := modelArtifact{Members: m.Members, Classes: m.Classes}

	modelData, err := json.Marshal(artifact)
	if err != nil {
		return fmt.Errorf("failed to encode model: %w", err)
	}
	transformData, err := json.Marshal(m.Transform)
	if err != nil {
		return fmt.Errorf("failed to encode transform: %w", err)
	}

	if err := atomicWrite(s.modelPath(), modelData); err != nil {
		return err
	}
	if err := atomicWrite(s.transformPath(), transformData); err != nil {
		return err
	}
	return nil
}
