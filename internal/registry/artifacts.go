package registry

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ModelFile is the opaque classifier state artifact name inside the model
// directory. It is always written together with LabelsFile; the pair is the
// complete trained model.
const ModelFile = "model.bin"

// ErrNoModel indicates the model state artifact does not exist.
var ErrNoModel = errors.New("no trained model found, run training first")

// SaveModelState writes the opaque classifier state to dir atomically.
func SaveModelState(dir string, state []byte) error {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("creating model directory: %w", err)
	}
	return WriteFileAtomic(filepath.Join(dir, ModelFile), state)
}

// LoadModelState reads the opaque classifier state from dir. A missing file
// returns ErrNoModel; an empty file is a hard error.
func LoadModelState(dir string) ([]byte, error) {
	state, err := os.ReadFile(filepath.Join(dir, ModelFile)) //nolint:gosec // dir comes from config
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoModel
		}
		return nil, fmt.Errorf("reading model state: %w", err)
	}
	if len(state) == 0 {
		return nil, errors.New("model state file is empty")
	}
	return state, nil
}
