// Package recognizer classifies detected faces against a trained model.
// Classification is pure: marking attendance and capturing unknown faces
// belong to internal/pipeline, so the matcher stays testable on its own.
package recognizer

import (
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/kozaktomas/face-attendance/internal/registry"
	"github.com/kozaktomas/face-attendance/internal/vision"
)

// DefaultThreshold is the default maximum accepted match distance. Distance
// scales depend on the vision engine, so every entry point exposes this as a
// tunable.
const DefaultThreshold = 70

// SentinelDistance marks detections whose Predict call failed. It exceeds any
// real threshold, so such detections always classify as Unknown.
const SentinelDistance = math.MaxFloat64

// ErrNoFaces reports that detection found no faces in the image. Callers get
// this instead of an empty detection list so "nothing detected" stays
// distinguishable from "nothing to report".
var ErrNoFaces = errors.New("no faces detected in image")

// Detection is the classification outcome for one detected face region.
type Detection struct {
	Label    int           `json:"label"`
	Name     string        `json:"name"`
	Known    bool          `json:"known"`
	Distance float64       `json:"distance"`
	Region   vision.Region `json:"region"`
	Crop     *image.Gray   `json:"-"`
}

// Recognizer matches detected faces against a loaded model.
type Recognizer struct {
	engine    vision.Engine
	registry  *registry.Registry
	threshold float64
}

// Load reads the artifact pair from modelDir, loads it into the engine, and
// returns a ready recognizer. Missing or corrupt artifacts fail here; callers
// must refuse to recognize rather than run against a broken model.
func Load(engine vision.Engine, modelDir string, threshold float64) (*Recognizer, error) {
	state, err := registry.LoadModelState(modelDir)
	if err != nil {
		return nil, err
	}
	reg, err := registry.Load(modelDir)
	if err != nil {
		return nil, err
	}
	if err := engine.Load(state); err != nil {
		return nil, fmt.Errorf("loading model state into engine: %w", err)
	}
	return New(engine, reg, threshold), nil
}

// New creates a recognizer from an already loaded engine and registry.
func New(engine vision.Engine, reg *registry.Registry, threshold float64) *Recognizer {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Recognizer{engine: engine, registry: reg, threshold: threshold}
}

// Threshold returns the configured accept threshold.
func (r *Recognizer) Threshold() float64 {
	return r.threshold
}

// Registry returns the label map the recognizer was loaded with.
func (r *Recognizer) Registry() *registry.Registry {
	return r.registry
}

// Classify detects faces in a grayscale image and matches each region against
// the model. A region is Known iff its distance is strictly below the
// threshold (lower distance means a better match). A Predict failure on one
// region downgrades that region to Unknown with SentinelDistance instead of
// failing the frame. Zero detected faces returns ErrNoFaces.
func (r *Recognizer) Classify(img *image.Gray, opts vision.DetectOptions) ([]Detection, error) {
	regions, err := r.engine.Detect(img, opts)
	if err != nil {
		return nil, fmt.Errorf("face detection: %w", err)
	}
	if len(regions) == 0 {
		return nil, ErrNoFaces
	}

	detections := make([]Detection, 0, len(regions))
	for _, region := range regions {
		crop := vision.Crop(img, region)
		detection := Detection{Region: region, Crop: crop}

		label, distance, err := r.engine.Predict(crop)
		if err != nil {
			// One bad region must never fail the batch.
			detection.Name = "unknown"
			detection.Distance = SentinelDistance
			detections = append(detections, detection)
			continue
		}

		detection.Distance = distance
		if distance < r.threshold {
			detection.Known = true
			detection.Label = label
			detection.Name = r.registry.Name(label)
		} else {
			detection.Name = "unknown"
		}
		detections = append(detections, detection)
	}
	return detections, nil
}
