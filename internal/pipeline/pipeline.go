// Package pipeline wires recognition to its side effects: known faces mark
// attendance, unknown faces get captured. The recognizer itself stays pure;
// this is where the live loop and the upload path share their policy.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"

	"github.com/kozaktomas/face-attendance/internal/ledger"
	"github.com/kozaktomas/face-attendance/internal/recognizer"
	"github.com/kozaktomas/face-attendance/internal/vision"
)

// Capturer persists unknown face crops.
type Capturer interface {
	Save(crop image.Image) (string, error)
}

// MarkOutcome is the attendance side effect of one known detection.
type MarkOutcome struct {
	Detection recognizer.Detection `json:"detection"`
	Result    ledger.MarkResult    `json:"result"`
}

// FrameReport summarizes processing one frame.
type FrameReport struct {
	Detections []recognizer.Detection `json:"detections"`
	Marks      []MarkOutcome          `json:"marks"`
	Captured   []string               `json:"captured"` // paths of saved unknown crops
	NoFaces    bool                   `json:"noFaces"`
}

// Pipeline composes a recognizer with the attendance ledger and the unknown
// capture sink. Store and capturer are both optional: with neither set the
// pipeline degrades to pure classification.
type Pipeline struct {
	rec     *recognizer.Recognizer
	store   ledger.Store
	capture Capturer
	detect  vision.DetectOptions
}

// New creates a pipeline. Pass nil for store or capture to disable that side
// effect.
func New(rec *recognizer.Recognizer, store ledger.Store, capture Capturer, detect vision.DetectOptions) *Pipeline {
	return &Pipeline{rec: rec, store: store, capture: capture, detect: detect}
}

// Process classifies one frame and applies side effects. A frame without
// faces yields a report with NoFaces set, not an error. Ledger write failures
// propagate: losing an attendance event silently is worse than failing the
// frame. Capture failures only warn, an audit crop is best effort.
func (p *Pipeline) Process(ctx context.Context, img *image.Gray) (*FrameReport, error) {
	detections, err := p.rec.Classify(img, p.detect)
	if errors.Is(err, recognizer.ErrNoFaces) {
		return &FrameReport{NoFaces: true}, nil
	}
	if err != nil {
		return nil, err
	}

	report := &FrameReport{Detections: detections}
	day := ledger.Today()

	for _, d := range detections {
		if d.Known {
			if p.store == nil {
				continue
			}
			result, err := p.store.Mark(ctx, d.Label, d.Name, day)
			if err != nil {
				return report, fmt.Errorf("marking attendance for %s: %w", d.Name, err)
			}
			report.Marks = append(report.Marks, MarkOutcome{Detection: d, Result: result})
			if result == ledger.Inserted {
				fmt.Printf("Attendance marked for %s at %s\n", d.Name, ledger.NowTime())
			}
			continue
		}

		if p.capture == nil || d.Crop == nil {
			continue
		}
		path, err := p.capture.Save(d.Crop)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to capture unknown face: %v\n", err)
			continue
		}
		report.Captured = append(report.Captured, path)
	}
	return report, nil
}
