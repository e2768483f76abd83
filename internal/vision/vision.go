// Package vision defines the face detection and recognition capability used
// by the trainer and recognizer. Implementations are interchangeable: the
// bundled pixel engine, a remote face service, or a mock for tests.
package vision

import (
	"errors"
	"image"
)

// Region is a face bounding box in pixel coordinates.
type Region struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// Rect converts the region to an image.Rectangle.
func (r Region) Rect() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.W, r.Y+r.H)
}

// Sample is a single labeled grayscale face crop used during training.
type Sample struct {
	Pixels *image.Gray
	Label  int
}

// DetectOptions are detector tunables, passed through end-to-end from the
// caller. Zero values are replaced with defaults by implementations.
type DetectOptions struct {
	ScaleFactor  float64 // detector pyramid scale step (default 1.1)
	MinNeighbors int     // minimum neighbor detections to accept (default 5)
	MinSize      int     // minimum face side length in pixels (default 30)
}

// Defaults fills zero-valued tunables with their defaults.
func (o DetectOptions) Defaults() DetectOptions {
	if o.ScaleFactor == 0 {
		o.ScaleFactor = 1.1
	}
	if o.MinNeighbors == 0 {
		o.MinNeighbors = 5
	}
	if o.MinSize == 0 {
		o.MinSize = 30
	}
	return o
}

// ErrNotLoaded is returned by Predict when no model state has been loaded.
var ErrNotLoaded = errors.New("vision: no model state loaded")

// Engine is the face capability contract. Detect finds face regions in a
// grayscale image. Train builds opaque model state from labeled samples.
// Load restores previously trained state, and Predict matches a single
// grayscale crop against it, returning the best candidate label and a
// lower-is-better distance.
type Engine interface {
	Detect(img *image.Gray, opts DetectOptions) ([]Region, error)
	Train(samples []Sample) ([]byte, error)
	Load(state []byte) error
	Predict(crop *image.Gray) (label int, distance float64, err error)
}
