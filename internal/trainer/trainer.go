// Package trainer builds a trained model from an enrollment directory tree.
// The tree holds one subdirectory per person; subdirectories are assigned
// labels 1..N in lexicographic order, so repeated runs on unchanged input
// produce identical labels.
package trainer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/schollz/progressbar/v3"

	"github.com/kozaktomas/face-attendance/internal/registry"
	"github.com/kozaktomas/face-attendance/internal/vision"
)

// ErrNoEnrollmentData indicates the enrollment root contains no person
// subdirectories at all.
var ErrNoEnrollmentData = errors.New("no person subfolders found in enrollment directory")

// ErrNoSamples indicates gathering produced zero usable samples across all
// subdirectories.
var ErrNoSamples = errors.New("no face samples gathered from enrollment images")

// imageExtensions lists the file extensions considered enrollment images.
var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

// Options configures a training run.
type Options struct {
	ModelDir string
	Detect   vision.DetectOptions

	// WholeImageFallback uses the full image as a sample when the detector
	// finds no faces in it. Useful for pre-cropped datasets, but it can feed
	// non-face samples into the classifier, so it is a visible option rather
	// than silent behavior. Enabled by default in the CLI.
	WholeImageFallback bool

	// ShowProgress renders a progress bar over enrollment images.
	ShowProgress bool
}

// Result summarizes a completed training run.
type Result struct {
	Registry      *registry.Registry
	People        int // discovered person subdirectories (labels assigned)
	Samples       int // labeled samples fed to the engine
	SkippedImages int // unreadable or undetectable images
	FallbackUsed  int // samples taken from whole images
}

// Trainer runs the enrollment pipeline against a vision engine.
type Trainer struct {
	engine vision.Engine
	opts   Options
}

// New creates a trainer.
func New(engine vision.Engine, opts Options) *Trainer {
	return &Trainer{engine: engine, opts: opts}
}

// personDir is one discovered enrollment subdirectory with its assigned label.
type personDir struct {
	label  int
	name   string
	images []string
}

// discover lists person subdirectories in sorted order and assigns labels.
// The label counter advances for every discovered subdirectory, including
// ones that turn out to hold no usable images. Attendance databases in the
// field depend on this numbering, so it must not be compacted.
func discover(root string) ([]personDir, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("reading enrollment directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return nil, ErrNoEnrollmentData
	}
	sort.Strings(names)

	persons := make([]personDir, 0, len(names))
	for i, name := range names {
		dir := filepath.Join(root, name)
		images, err := listImages(dir)
		if err != nil {
			return nil, err
		}
		persons = append(persons, personDir{label: i + 1, name: name, images: images})
	}
	return persons, nil
}

// listImages returns sorted image file paths in a directory.
func listImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", dir, err)
	}
	var images []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if imageExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			images = append(images, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(images)
	return images, nil
}

// gather walks the discovered persons and collects labeled samples.
func (t *Trainer) gather(ctx context.Context, persons []personDir, result *Result) ([]vision.Sample, error) {
	total := 0
	for _, p := range persons {
		total += len(p.images)
	}

	var bar *progressbar.ProgressBar
	if t.opts.ShowProgress && total > 0 {
		bar = progressbar.Default(int64(total), "gathering faces")
	}

	var samples []vision.Sample
	for _, p := range persons {
		if len(p.images) == 0 {
			fmt.Fprintf(os.Stderr, "warning: no images for %s, label %d gets no samples\n", p.name, p.label)
			continue
		}
		for _, path := range p.images {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if bar != nil {
				_ = bar.Add(1)
			}

			img, err := vision.ReadGray(path)
			if err != nil {
				fmt.Fprintf(os.Stderr, "warning: could not read %s, skipping: %v\n", path, err)
				result.SkippedImages++
				continue
			}

			regions, err := t.engine.Detect(img, t.opts.Detect)
			if err != nil {
				fmt.Fprintf(os.Stderr, "warning: detection failed for %s, skipping: %v\n", path, err)
				result.SkippedImages++
				continue
			}

			if len(regions) == 0 {
				if !t.opts.WholeImageFallback {
					result.SkippedImages++
					continue
				}
				samples = append(samples, vision.Sample{Pixels: img, Label: p.label})
				result.FallbackUsed++
				continue
			}
			for _, region := range regions {
				samples = append(samples, vision.Sample{Pixels: vision.Crop(img, region), Label: p.label})
			}
		}
	}
	return samples, nil
}

// Train runs the full enrollment pipeline: discover people, gather labeled
// samples, train the engine, and persist the artifact pair. Each run fully
// replaces any previous artifacts; both are written atomically, model state
// first and label map second.
func (t *Trainer) Train(ctx context.Context, enrollmentRoot string) (*Result, error) {
	persons, err := discover(enrollmentRoot)
	if err != nil {
		return nil, err
	}

	labels := make(map[int]string, len(persons))
	for _, p := range persons {
		labels[p.label] = p.name
	}

	result := &Result{
		Registry: registry.New(labels),
		People:   len(persons),
	}

	samples, err := t.gather(ctx, persons, result)
	if err != nil {
		return nil, err
	}
	if len(samples) == 0 {
		return nil, ErrNoSamples
	}
	result.Samples = len(samples)

	state, err := t.engine.Train(samples)
	if err != nil {
		return nil, fmt.Errorf("training classifier: %w", err)
	}

	if err := registry.SaveModelState(t.opts.ModelDir, state); err != nil {
		return nil, err
	}
	if err := result.Registry.Save(t.opts.ModelDir); err != nil {
		return nil, err
	}
	return result, nil
}
