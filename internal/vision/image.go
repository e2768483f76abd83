package vision

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
)

// DecodeGray decodes image bytes and converts them to grayscale.
func DecodeGray(data []byte) (*image.Gray, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return ToGray(img), nil
}

// ReadGray reads an image file and converts it to grayscale.
func ReadGray(path string) (*image.Gray, error) {
	data, err := os.ReadFile(path) //nolint:gosec // paths come from enrollment config
	if err != nil {
		return nil, fmt.Errorf("failed to read image %s: %w", path, err)
	}
	return DecodeGray(data)
}

// ToGray converts any image to *image.Gray using the standard luma weights.
func ToGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	bounds := img.Bounds()
	gray := image.NewGray(bounds)
	draw.Draw(gray, bounds, img, bounds.Min, draw.Src)
	return gray
}

// Crop extracts a region from a grayscale image. The region is clamped to the
// image bounds; an empty intersection yields a 0x0 image.
func Crop(img *image.Gray, region Region) *image.Gray {
	r := region.Rect().Intersect(img.Bounds())
	out := image.NewGray(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Draw(out, out.Bounds(), img, r.Min, draw.Src)
	return out
}

// ResizeGray scales a grayscale image to the given dimensions.
func ResizeGray(img *image.Gray, width, height int) *image.Gray {
	dst := image.NewGray(image.Rect(0, 0, width, height))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Over, nil)
	return dst
}
