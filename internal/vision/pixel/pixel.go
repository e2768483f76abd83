// Package pixel implements a self-contained vision engine with no external
// dependencies. Recognition is nearest-centroid matching over a reduced
// intensity grid, and detection is a contrast gate that treats the whole
// frame as a single face region. It is deliberately simple: the engine keeps
// small enrollments and tests working without a face service, and a remote
// engine can be swapped in for real deployments.
package pixel

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"image"
	"math"
	"sort"
	"sync"

	"github.com/kozaktomas/face-attendance/internal/vision"
)

// gridSize is the side length of the reduced intensity grid.
const gridSize = 16

// contrastFloor is the minimum intensity standard deviation for a frame to
// count as containing anything detectable. Flat frames (lens cap, blank wall)
// produce zero regions.
const contrastFloor = 8.0

// Engine is the bundled pixel-grid engine.
type Engine struct {
	mu        sync.RWMutex
	centroids map[int][]float64 // label -> mean grid
}

// New creates an empty pixel engine. Load or Train must be called before Predict.
func New() *Engine {
	return &Engine{}
}

// modelState is the serialized form of the trained centroids.
type modelState struct {
	Version   int
	GridSize  int
	Centroids map[int][]float64
}

// grid reduces a grayscale image to a gridSize x gridSize intensity vector.
func grid(img *image.Gray) []float64 {
	resized := vision.ResizeGray(img, gridSize, gridSize)
	out := make([]float64, gridSize*gridSize)
	for y := range gridSize {
		for x := range gridSize {
			out[y*gridSize+x] = float64(resized.GrayAt(x, y).Y)
		}
	}
	return out
}

// stddev computes the intensity standard deviation of a grid.
func stddev(g []float64) float64 {
	var mean float64
	for _, v := range g {
		mean += v
	}
	mean /= float64(len(g))
	var sum float64
	for _, v := range g {
		d := v - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(g)))
}

// Detect returns one region covering the whole frame when it has enough
// contrast and satisfies the minimum size, and zero regions otherwise.
func (e *Engine) Detect(img *image.Gray, opts vision.DetectOptions) ([]vision.Region, error) {
	if img == nil {
		return nil, errors.New("nil image")
	}
	opts = opts.Defaults()

	bounds := img.Bounds()
	if bounds.Dx() < opts.MinSize || bounds.Dy() < opts.MinSize {
		return nil, nil
	}
	if stddev(grid(img)) < contrastFloor {
		return nil, nil
	}
	return []vision.Region{{
		X: bounds.Min.X,
		Y: bounds.Min.Y,
		W: bounds.Dx(),
		H: bounds.Dy(),
	}}, nil
}

// Train computes per-label centroids and returns them as opaque model state.
func (e *Engine) Train(samples []vision.Sample) ([]byte, error) {
	if len(samples) == 0 {
		return nil, errors.New("no samples to train on")
	}

	sums := make(map[int][]float64)
	counts := make(map[int]int)
	for _, s := range samples {
		if s.Pixels == nil {
			return nil, errors.New("sample with nil pixels")
		}
		g := grid(s.Pixels)
		if sums[s.Label] == nil {
			sums[s.Label] = make([]float64, len(g))
		}
		for i, v := range g {
			sums[s.Label][i] += v
		}
		counts[s.Label]++
	}

	centroids := make(map[int][]float64, len(sums))
	for label, sum := range sums {
		c := make([]float64, len(sum))
		for i, v := range sum {
			c[i] = v / float64(counts[label])
		}
		centroids[label] = c
	}

	state := modelState{Version: 1, GridSize: gridSize, Centroids: centroids}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(state); err != nil {
		return nil, fmt.Errorf("encoding model state: %w", err)
	}

	e.mu.Lock()
	e.centroids = centroids
	e.mu.Unlock()
	return buf.Bytes(), nil
}

// Load restores previously trained model state.
func (e *Engine) Load(state []byte) error {
	var m modelState
	if err := gob.NewDecoder(bytes.NewReader(state)).Decode(&m); err != nil {
		return fmt.Errorf("decoding model state: %w", err)
	}
	if m.GridSize != gridSize || len(m.Centroids) == 0 {
		return errors.New("model state is empty or incompatible")
	}
	e.mu.Lock()
	e.centroids = m.Centroids
	e.mu.Unlock()
	return nil
}

// Predict matches a grayscale crop against the trained centroids. Distance is
// the root-mean-square intensity difference against the closest centroid, so
// identical images score 0 and unrelated images score well above typical
// accept thresholds.
func (e *Engine) Predict(crop *image.Gray) (int, float64, error) {
	e.mu.RLock()
	centroids := e.centroids
	e.mu.RUnlock()

	if centroids == nil {
		return 0, 0, vision.ErrNotLoaded
	}
	if crop == nil || crop.Bounds().Empty() {
		return 0, 0, errors.New("empty crop")
	}

	g := grid(crop)

	// Iterate labels in order for deterministic tie-breaking.
	labels := make([]int, 0, len(centroids))
	for label := range centroids {
		labels = append(labels, label)
	}
	sort.Ints(labels)

	best := -1
	bestDist := math.MaxFloat64
	for _, label := range labels {
		c := centroids[label]
		var sum float64
		for i, v := range g {
			d := v - c[i]
			sum += d * d
		}
		dist := math.Sqrt(sum / float64(len(g)))
		if dist < bestDist {
			best = label
			bestDist = dist
		}
	}
	return best, bestDist, nil
}
