// Package artifact persists a trained model together with everything
// inference needs to reproduce the training-time feature treatment:
// the ordered feature schema with per-column defaults, the frozen
// category maps, the target clip ceiling and the winning
// hyperparameters. The bundle is saved and loaded as one unit so the
// model can never run against a mismatched encoding.
package artifact

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"demandcast/internal/errors"
	"demandcast/internal/evaluation"
	"demandcast/internal/features"
	"demandcast/internal/learner"
)

// Artifact is the serialized training output.
type Artifact struct {
	ID        string
	CreatedAt time.Time
	Seed      int64

	Model *learner.BoostedModel

	Features     []features.FeatureSpec
	Categoricals []string
	CategoryMaps map[string]features.CategoryMap

	ClipCeiling float64
	// Origin is the earliest date the training frame saw. Serving pins
	// the elapsed-days column to it so a window-built frame counts days
	// on the same axis as training did.
	Origin time.Time

	Params      learner.Params
	HoldoutMAE  float64
	CVMAE       float64
	TestMetrics evaluation.Metrics
}

// New stamps a fresh artifact with identity and creation time.
func New(seed int64) *Artifact {
	return &Artifact{
		ID:        uuid.New().String(),
		CreatedAt: time.Now().UTC(),
		Seed:      seed,
	}
}

// FeatureWidth is the number of model input columns, numeric plus
// encoded categoricals.
func (a *Artifact) FeatureWidth() int {
	return len(a.Features) + len(a.Categoricals)
}

// Save writes the artifact atomically: encode to a temp file in the
// target directory, then rename over the destination.
func (a *Artifact) Save(path string) error {
	if a.Model == nil {
		return errors.NewValidationError("artifact has no model")
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.NewStorageError("create artifact directory", err)
	}

	tmp, err := os.CreateTemp(dir, ".artifact-*")
	if err != nil {
		return errors.NewStorageError("create temp artifact", err)
	}
	defer os.Remove(tmp.Name())

	if err := gob.NewEncoder(tmp).Encode(a); err != nil {
		tmp.Close()
		return errors.NewStorageError("encode artifact", err)
	}
	if err := tmp.Close(); err != nil {
		return errors.NewStorageError("flush artifact", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return errors.NewStorageError("publish artifact", err)
	}
	return nil
}

// Load reads an artifact and rebuilds the category lookup indexes.
func Load(path string) (*Artifact, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFoundError(fmt.Sprintf("artifact %s does not exist", path))
		}
		return nil, errors.NewStorageError("open artifact", err)
	}
	defer f.Close()

	var a Artifact
	if err := gob.NewDecoder(f).Decode(&a); err != nil {
		return nil, errors.NewStorageError("decode artifact", err)
	}
	if a.Model == nil {
		return nil, errors.NewStorageError("artifact has no model", nil)
	}

	for name, m := range a.CategoryMaps {
		m.Rehydrate()
		a.CategoryMaps[name] = m
	}
	return &a, nil
}
