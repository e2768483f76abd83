package pixel

import (
	"errors"
	"image"
	"testing"

	"github.com/kozaktomas/face-attendance/internal/vision"
)

// flatImage creates a grayscale image filled with a single intensity.
func flatImage(size int, value uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, size, size))
	for i := range img.Pix {
		img.Pix[i] = value
	}
	return img
}

func TestDetect(t *testing.T) {
	engine := New()

	tests := []struct {
		name        string
		img         *image.Gray
		opts        vision.DetectOptions
		wantRegions int
	}{
		{"flat frame yields nothing", flatImage(100, 128), vision.DetectOptions{}, 0},
		{"tiny frame below min size", checkered(10), vision.DetectOptions{}, 0},
		{"contrasty frame yields one region", checkered(100), vision.DetectOptions{}, 1},
		{"min size can be lowered", checkered(10), vision.DetectOptions{MinSize: 8}, 1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			regions, err := engine.Detect(tc.img, tc.opts)
			if err != nil {
				t.Fatalf("Detect failed: %v", err)
			}
			if len(regions) != tc.wantRegions {
				t.Errorf("got %d regions, want %d", len(regions), tc.wantRegions)
			}
		})
	}
}

func TestDetectRegionCoversFrame(t *testing.T) {
	engine := New()
	img := checkered(80)

	regions, err := engine.Detect(img, vision.DetectOptions{})
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if len(regions) != 1 {
		t.Fatalf("got %d regions, want 1", len(regions))
	}
	if regions[0].W != 80 || regions[0].H != 80 {
		t.Errorf("region %+v does not cover the 80x80 frame", regions[0])
	}
}

func TestTrainAndPredict(t *testing.T) {
	engine := New()

	alice := checkered(64)
	bob := stripes(64)

	samples := []vision.Sample{
		{Pixels: alice, Label: 1},
		{Pixels: alice, Label: 1},
		{Pixels: bob, Label: 2},
	}

	state, err := engine.Train(samples)
	if err != nil {
		t.Fatalf("Train failed: %v", err)
	}
	if len(state) == 0 {
		t.Fatal("Train returned empty model state")
	}

	label, dist, err := engine.Predict(alice)
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}
	if label != 1 {
		t.Errorf("got label %d, want 1", label)
	}
	if dist != 0 {
		t.Errorf("got distance %f for an exact training image, want 0", dist)
	}

	label, dist, err = engine.Predict(bob)
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}
	if label != 2 {
		t.Errorf("got label %d, want 2", label)
	}
	if dist != 0 {
		t.Errorf("got distance %f, want 0", dist)
	}
}

func TestTrainEmptySamples(t *testing.T) {
	engine := New()
	if _, err := engine.Train(nil); err == nil {
		t.Error("expected error for empty sample set")
	}
}

func TestPredictWithoutModel(t *testing.T) {
	engine := New()
	_, _, err := engine.Predict(checkered(32))
	if !errors.Is(err, vision.ErrNotLoaded) {
		t.Errorf("got %v, want ErrNotLoaded", err)
	}
}

func TestPredictEmptyCrop(t *testing.T) {
	engine := New()
	if _, err := engine.Train([]vision.Sample{{Pixels: checkered(32), Label: 1}}); err != nil {
		t.Fatalf("Train failed: %v", err)
	}
	if _, _, err := engine.Predict(image.NewGray(image.Rect(0, 0, 0, 0))); err == nil {
		t.Error("expected error for empty crop")
	}
}

func TestModelStateRoundTrip(t *testing.T) {
	trainEngine := New()
	state, err := trainEngine.Train([]vision.Sample{
		{Pixels: checkered(64), Label: 1},
		{Pixels: stripes(64), Label: 2},
	})
	if err != nil {
		t.Fatalf("Train failed: %v", err)
	}

	freshEngine := New()
	if err := freshEngine.Load(state); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	label, _, err := freshEngine.Predict(stripes(64))
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}
	if label != 2 {
		t.Errorf("got label %d after state round trip, want 2", label)
	}
}

func TestLoadCorruptState(t *testing.T) {
	engine := New()
	if err := engine.Load([]byte("not a model")); err == nil {
		t.Error("expected error for corrupt model state")
	}
}

// checkered creates a high-contrast checkerboard test image.
func checkered(size int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, size, size))
	for y := range size {
		for x := range size {
			if (x/8+y/8)%2 == 0 {
				img.Pix[img.PixOffset(x, y)] = 255
			}
		}
	}
	return img
}

// stripes creates a high-contrast horizontal stripe test image.
func stripes(size int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, size, size))
	for y := range size {
		if (y/8)%2 == 0 {
			continue
		}
		for x := range size {
			img.Pix[img.PixOffset(x, y)] = 255
		}
	}
	return img
}
