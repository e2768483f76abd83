package trainer

import (
	"context"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/kozaktomas/face-attendance/internal/registry"
	"github.com/kozaktomas/face-attendance/internal/vision"
	"github.com/kozaktomas/face-attendance/internal/vision/mock"
)

// writeTestImage writes a small grayscale PNG to path.
func writeTestImage(t *testing.T, path string) {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 40, 40))
	for i := range img.Pix {
		img.Pix[i] = uint8(i % 253)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("creating %s: %v", path, err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encoding %s: %v", path, err)
	}
}

// setupEnrollment creates an enrollment tree: map of person name to image count.
func setupEnrollment(t *testing.T, people map[string]int) string {
	t.Helper()
	root := t.TempDir()
	for name, count := range people {
		dir := filepath.Join(root, name)
		if err := os.MkdirAll(dir, 0750); err != nil {
			t.Fatal(err)
		}
		for i := range count {
			writeTestImage(t, filepath.Join(dir, "img"+string(rune('a'+i))+".png"))
		}
	}
	return root
}

func TestTrainAssignsDeterministicLabels(t *testing.T) {
	root := setupEnrollment(t, map[string]int{"carol": 1, "alice": 2, "bob": 1})
	modelDir := t.TempDir()

	engine := mock.New()
	engine.Regions = []vision.Region{{X: 0, Y: 0, W: 40, H: 40}}

	tr := New(engine, Options{ModelDir: modelDir, WholeImageFallback: true})

	for run := range 2 {
		result, err := tr.Train(context.Background(), root)
		if err != nil {
			t.Fatalf("run %d: Train failed: %v", run, err)
		}

		want := map[int]string{1: "alice", 2: "bob", 3: "carol"}
		for label, name := range want {
			if got := result.Registry.Name(label); got != name {
				t.Errorf("run %d: label %d = %q, want %q", run, label, got, name)
			}
		}
		if result.Samples != 4 {
			t.Errorf("run %d: got %d samples, want 4", run, result.Samples)
		}
	}
}

func TestTrainEmptySubdirStillConsumesLabel(t *testing.T) {
	root := setupEnrollment(t, map[string]int{"alice": 1, "bob": 0, "carol": 1})

	engine := mock.New()
	engine.Regions = []vision.Region{{X: 0, Y: 0, W: 40, H: 40}}

	tr := New(engine, Options{ModelDir: t.TempDir(), WholeImageFallback: true})
	result, err := tr.Train(context.Background(), root)
	if err != nil {
		t.Fatalf("Train failed: %v", err)
	}

	// bob has no images but still holds label 2; carol keeps label 3.
	if got := result.Registry.Name(3); got != "carol" {
		t.Errorf("label 3 = %q, want carol", got)
	}
	if got := result.Registry.Name(2); got != "bob" {
		t.Errorf("label 2 = %q, want bob", got)
	}
	if result.People != 3 {
		t.Errorf("People = %d, want 3", result.People)
	}
}

func TestTrainNoEnrollmentData(t *testing.T) {
	tr := New(mock.New(), Options{ModelDir: t.TempDir()})
	_, err := tr.Train(context.Background(), t.TempDir())
	if !errors.Is(err, ErrNoEnrollmentData) {
		t.Errorf("got %v, want ErrNoEnrollmentData", err)
	}
}

func TestTrainNoSamples(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "alice")
	if err := os.MkdirAll(dir, 0750); err != nil {
		t.Fatal(err)
	}
	// Unreadable garbage, not an image.
	if err := os.WriteFile(filepath.Join(dir, "broken.png"), []byte("not a png"), 0600); err != nil {
		t.Fatal(err)
	}

	tr := New(mock.New(), Options{ModelDir: t.TempDir(), WholeImageFallback: true})
	_, err := tr.Train(context.Background(), root)
	if !errors.Is(err, ErrNoSamples) {
		t.Errorf("got %v, want ErrNoSamples", err)
	}
}

func TestTrainUnreadableImageIsNotFatal(t *testing.T) {
	root := setupEnrollment(t, map[string]int{"alice": 1})
	if err := os.WriteFile(filepath.Join(root, "alice", "corrupt.jpg"), []byte("junk"), 0600); err != nil {
		t.Fatal(err)
	}

	engine := mock.New()
	engine.Regions = []vision.Region{{X: 0, Y: 0, W: 40, H: 40}}

	tr := New(engine, Options{ModelDir: t.TempDir(), WholeImageFallback: true})
	result, err := tr.Train(context.Background(), root)
	if err != nil {
		t.Fatalf("Train failed: %v", err)
	}
	if result.Samples != 1 {
		t.Errorf("Samples = %d, want 1", result.Samples)
	}
	if result.SkippedImages != 1 {
		t.Errorf("SkippedImages = %d, want 1", result.SkippedImages)
	}
}

func TestTrainWholeImageFallback(t *testing.T) {
	root := setupEnrollment(t, map[string]int{"alice": 2})

	t.Run("enabled", func(t *testing.T) {
		engine := mock.New() // no regions configured, detector finds nothing
		tr := New(engine, Options{ModelDir: t.TempDir(), WholeImageFallback: true})
		result, err := tr.Train(context.Background(), root)
		if err != nil {
			t.Fatalf("Train failed: %v", err)
		}
		if result.FallbackUsed != 2 {
			t.Errorf("FallbackUsed = %d, want 2", result.FallbackUsed)
		}
		if result.Samples != 2 {
			t.Errorf("Samples = %d, want 2", result.Samples)
		}
	})

	t.Run("disabled", func(t *testing.T) {
		engine := mock.New()
		tr := New(engine, Options{ModelDir: t.TempDir(), WholeImageFallback: false})
		_, err := tr.Train(context.Background(), root)
		if !errors.Is(err, ErrNoSamples) {
			t.Errorf("got %v, want ErrNoSamples", err)
		}
	})
}

func TestTrainPersistsArtifactPair(t *testing.T) {
	root := setupEnrollment(t, map[string]int{"alice": 1, "bob": 1})
	modelDir := t.TempDir()

	engine := mock.New()
	engine.Regions = []vision.Region{{X: 5, Y: 5, W: 20, H: 20}}
	engine.State = []byte("trained-state")

	tr := New(engine, Options{ModelDir: modelDir, WholeImageFallback: true})
	if _, err := tr.Train(context.Background(), root); err != nil {
		t.Fatalf("Train failed: %v", err)
	}

	state, err := registry.LoadModelState(modelDir)
	if err != nil {
		t.Fatalf("LoadModelState failed: %v", err)
	}
	if string(state) != "trained-state" {
		t.Errorf("model state = %q, want trained-state", state)
	}

	reg, err := registry.Load(modelDir)
	if err != nil {
		t.Fatalf("registry.Load failed: %v", err)
	}
	if reg.Len() != 2 {
		t.Errorf("registry has %d labels, want 2", reg.Len())
	}
}

func TestTrainCancellation(t *testing.T) {
	root := setupEnrollment(t, map[string]int{"alice": 3})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tr := New(mock.New(), Options{ModelDir: t.TempDir(), WholeImageFallback: true})
	if _, err := tr.Train(ctx, root); !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want context.Canceled", err)
	}
}
