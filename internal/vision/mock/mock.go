// Package mock provides a scriptable vision engine for testing.
package mock

import (
	"image"
	"sync"

	"github.com/kozaktomas/face-attendance/internal/vision"
)

// Prediction is a scripted Predict outcome.
type Prediction struct {
	Label    int
	Distance float64
	Err      error
}

// Engine is a scriptable implementation of vision.Engine. Detect returns the
// configured regions, Predict pops scripted predictions in order (repeating
// the last one when exhausted), and Train records its input.
type Engine struct {
	mu sync.Mutex

	Regions     []vision.Region
	Predictions []Prediction
	State       []byte
	Loaded      bool

	// Error injection
	DetectError error
	TrainError  error
	LoadError   error

	// Recorded calls
	TrainedSamples []vision.Sample
	DetectCalls    int
	PredictCalls   int

	nextPrediction int
}

// New creates a mock engine with no scripted behavior.
func New() *Engine {
	return &Engine{}
}

// Detect returns the configured regions.
func (e *Engine) Detect(img *image.Gray, opts vision.DetectOptions) ([]vision.Region, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.DetectCalls++
	if e.DetectError != nil {
		return nil, e.DetectError
	}
	return e.Regions, nil
}

// Train records the samples and returns the configured state.
func (e *Engine) Train(samples []vision.Sample) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.TrainError != nil {
		return nil, e.TrainError
	}
	e.TrainedSamples = append(e.TrainedSamples, samples...)
	state := e.State
	if state == nil {
		state = []byte("mock-model")
	}
	e.Loaded = true
	return state, nil
}

// Load marks the engine as loaded.
func (e *Engine) Load(state []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.LoadError != nil {
		return e.LoadError
	}
	e.State = state
	e.Loaded = true
	return nil
}

// Predict pops the next scripted prediction.
func (e *Engine) Predict(crop *image.Gray) (int, float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.PredictCalls++
	if !e.Loaded {
		return 0, 0, vision.ErrNotLoaded
	}
	if len(e.Predictions) == 0 {
		return 0, 0, vision.ErrNotLoaded
	}
	idx := e.nextPrediction
	if idx >= len(e.Predictions) {
		idx = len(e.Predictions) - 1
	} else {
		e.nextPrediction++
	}
	p := e.Predictions[idx]
	return p.Label, p.Distance, p.Err
}
