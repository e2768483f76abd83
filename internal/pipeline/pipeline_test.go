package pipeline

import (
	"context"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kozaktomas/face-attendance/internal/ledger"
	ledgermock "github.com/kozaktomas/face-attendance/internal/ledger/mock"
	"github.com/kozaktomas/face-attendance/internal/recognizer"
	"github.com/kozaktomas/face-attendance/internal/registry"
	"github.com/kozaktomas/face-attendance/internal/vision"
	"github.com/kozaktomas/face-attendance/internal/vision/mock"
)

// fakeCapturer records saved crops and can fail.
type fakeCapturer struct {
	saved int
	err   error
}

func (c *fakeCapturer) Save(crop image.Image) (string, error) {
	if c.err != nil {
		return "", c.err
	}
	c.saved++
	return "unknown_test.jpg", nil
}

func testImage() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, 100, 100))
	for i := range img.Pix {
		img.Pix[i] = uint8(i % 250)
	}
	return img
}

func testRecognizer(engine *mock.Engine) *recognizer.Recognizer {
	engine.Loaded = true
	reg := registry.New(map[int]string{1: "alice", 2: "bob"})
	return recognizer.New(engine, reg, 70)
}

func TestProcessMarksKnownAndCapturesUnknown(t *testing.T) {
	engine := mock.New()
	engine.Regions = []vision.Region{
		{X: 0, Y: 0, W: 40, H: 40},
		{X: 50, Y: 0, W: 40, H: 40},
	}
	engine.Predictions = []mock.Prediction{
		{Label: 1, Distance: 20},
		{Label: 2, Distance: 200},
	}

	store := ledgermock.New()
	capturer := &fakeCapturer{}
	p := New(testRecognizer(engine), store, capturer, vision.DetectOptions{})

	report, err := p.Process(context.Background(), testImage())
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	if len(report.Marks) != 1 || report.Marks[0].Result != ledger.Inserted {
		t.Errorf("marks = %+v, want one Inserted for alice", report.Marks)
	}
	if capturer.saved != 1 {
		t.Errorf("captured %d crops, want 1", capturer.saved)
	}
	if len(report.Captured) != 1 {
		t.Errorf("report.Captured = %v, want one path", report.Captured)
	}

	records, err := store.Query(context.Background(), ledger.Today())
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 || records[0].Name != "alice" {
		t.Errorf("ledger records = %+v", records)
	}
}

func TestProcessNeverDoubleMarks(t *testing.T) {
	engine := mock.New()
	engine.Regions = []vision.Region{{X: 0, Y: 0, W: 40, H: 40}}
	engine.Predictions = []mock.Prediction{{Label: 1, Distance: 10}}

	store := ledgermock.New()
	p := New(testRecognizer(engine), store, nil, vision.DetectOptions{})

	first, err := p.Process(context.Background(), testImage())
	if err != nil {
		t.Fatalf("first Process failed: %v", err)
	}
	if first.Marks[0].Result != ledger.Inserted {
		t.Errorf("first mark = %v, want Inserted", first.Marks[0].Result)
	}

	second, err := p.Process(context.Background(), testImage())
	if err != nil {
		t.Fatalf("second Process failed: %v", err)
	}
	if second.Marks[0].Result != ledger.AlreadyPresent {
		t.Errorf("second mark = %v, want AlreadyPresent", second.Marks[0].Result)
	}

	records, _ := store.Query(context.Background(), ledger.Today())
	if len(records) != 1 {
		t.Errorf("got %d records, want 1", len(records))
	}
}

func TestProcessNoFaces(t *testing.T) {
	engine := mock.New() // no regions
	p := New(testRecognizer(engine), ledgermock.New(), &fakeCapturer{}, vision.DetectOptions{})

	report, err := p.Process(context.Background(), testImage())
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if !report.NoFaces {
		t.Error("report.NoFaces should be set for a frame without faces")
	}
	if len(report.Detections) != 0 {
		t.Errorf("detections = %+v, want none", report.Detections)
	}
}

func TestProcessLedgerErrorPropagates(t *testing.T) {
	engine := mock.New()
	engine.Regions = []vision.Region{{X: 0, Y: 0, W: 40, H: 40}}
	engine.Predictions = []mock.Prediction{{Label: 1, Distance: 10}}

	store := ledgermock.New()
	store.MarkError = errors.New("disk full")
	p := New(testRecognizer(engine), store, nil, vision.DetectOptions{})

	if _, err := p.Process(context.Background(), testImage()); err == nil {
		t.Error("ledger write failure must propagate")
	}
}

func TestProcessCaptureFailureIsNotFatal(t *testing.T) {
	engine := mock.New()
	engine.Regions = []vision.Region{{X: 0, Y: 0, W: 40, H: 40}}
	engine.Predictions = []mock.Prediction{{Label: 1, Distance: 500}} // unknown

	capturer := &fakeCapturer{err: errors.New("disk full")}
	p := New(testRecognizer(engine), ledgermock.New(), capturer, vision.DetectOptions{})

	report, err := p.Process(context.Background(), testImage())
	if err != nil {
		t.Fatalf("capture failure must not fail the frame: %v", err)
	}
	if len(report.Captured) != 0 {
		t.Errorf("report.Captured = %v, want none", report.Captured)
	}
}

func TestPureModeHasNoSideEffects(t *testing.T) {
	engine := mock.New()
	engine.Regions = []vision.Region{{X: 0, Y: 0, W: 40, H: 40}}
	engine.Predictions = []mock.Prediction{{Label: 1, Distance: 10}}

	p := New(testRecognizer(engine), nil, nil, vision.DetectOptions{})
	report, err := p.Process(context.Background(), testImage())
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if len(report.Detections) != 1 {
		t.Errorf("detections = %+v, want 1", report.Detections)
	}
	if len(report.Marks) != 0 || len(report.Captured) != 0 {
		t.Errorf("pure mode produced side effects: %+v", report)
	}
}

func writeSpoolFrame(t *testing.T, dir, name string) {
	t.Helper()
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, testImage()); err != nil {
		t.Fatal(err)
	}
}

func TestWatchProcessesSpool(t *testing.T) {
	dir := t.TempDir()
	writeSpoolFrame(t, dir, "frame1.png")
	writeSpoolFrame(t, dir, "frame2.png")

	engine := mock.New()
	engine.Regions = []vision.Region{{X: 0, Y: 0, W: 40, H: 40}}
	engine.Predictions = []mock.Prediction{{Label: 1, Distance: 10}}

	store := ledgermock.New()
	p := New(testRecognizer(engine), store, nil, vision.DetectOptions{})

	src := &DirSource{Dir: dir, Once: true}
	if err := p.Watch(context.Background(), src); err != nil {
		t.Fatalf("Watch failed: %v", err)
	}

	if engine.DetectCalls != 2 {
		t.Errorf("processed %d frames, want 2", engine.DetectCalls)
	}
	records, _ := store.Query(context.Background(), ledger.Today())
	if len(records) != 1 {
		t.Errorf("got %d records, want 1 (same person in both frames)", len(records))
	}
}

func TestWatchStopsOnCancel(t *testing.T) {
	dir := t.TempDir()

	engine := mock.New()
	p := New(testRecognizer(engine), nil, nil, vision.DetectOptions{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- p.Watch(ctx, &DirSource{Dir: dir, Poll: 10 * time.Millisecond})
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Watch returned %v on cancel, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Watch did not stop after cancel")
	}
}

func TestWatchSkipsUnreadableFrame(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "bad.png"), []byte("junk"), 0600); err != nil {
		t.Fatal(err)
	}
	writeSpoolFrame(t, dir, "good.png")

	engine := mock.New()
	engine.Regions = []vision.Region{{X: 0, Y: 0, W: 40, H: 40}}
	engine.Predictions = []mock.Prediction{{Label: 1, Distance: 10}}

	p := New(testRecognizer(engine), ledgermock.New(), nil, vision.DetectOptions{})
	if err := p.Watch(context.Background(), &DirSource{Dir: dir, Once: true}); err != nil {
		t.Fatalf("Watch failed: %v", err)
	}
	if engine.DetectCalls != 1 {
		t.Errorf("processed %d frames, want 1 good frame", engine.DetectCalls)
	}
}
