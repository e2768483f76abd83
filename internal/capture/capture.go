// Package capture persists crops of unrecognized faces for later audit or
// enrollment.
package capture

import (
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Saver writes unknown face crops into a dedicated directory.
type Saver struct {
	dir string
}

// New creates a saver writing into dir. The directory is created on first use.
func New(dir string) *Saver {
	return &Saver{dir: dir}
}

// Save writes a JPEG crop and returns its path. File names combine a
// nanosecond UTC timestamp with a short random suffix, so they sort in
// capture order and never collide; an existing file is never overwritten.
func (s *Saver) Save(crop image.Image) (string, error) {
	if crop == nil || crop.Bounds().Empty() {
		return "", fmt.Errorf("refusing to save empty crop")
	}
	if err := os.MkdirAll(s.dir, 0750); err != nil {
		return "", fmt.Errorf("creating capture directory: %w", err)
	}

	name := fmt.Sprintf("unknown_%s_%s.jpg",
		time.Now().UTC().Format("20060102T150405.000000000"),
		uuid.NewString()[:8])
	path := filepath.Join(s.dir, name)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0640) //nolint:gosec // dir comes from config
	if err != nil {
		return "", fmt.Errorf("creating capture file: %w", err)
	}
	defer f.Close()

	if err := jpeg.Encode(f, crop, &jpeg.Options{Quality: 90}); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("encoding capture: %w", err)
	}
	return path, nil
}
