package media

import (
	"fmt"
	"image/jpeg"
	"os"

	"cliphub/internal/filesystem"
	"cliphub/internal/logging"

	"github.com/disintegration/imaging"
)

// ImagingResizer resizes frames in pure Go with disintegration/imaging.
// The encoder has no Huffman optimization pass; size-optimized output
// needs RESIZER=vips.
type ImagingResizer struct {
	Retry filesystem.RetryConfig
}

// NewImagingResizer returns an ImagingResizer with the default retry policy.
func NewImagingResizer() *ImagingResizer {
	return &ImagingResizer{Retry: filesystem.DefaultRetryConfig()}
}

// Resize fits the frame within maxW x maxH preserving aspect ratio, flattens
// any transparency onto white and writes a quality-85 JPEG. Frames already
// inside the box keep their size. The output appears atomically.
func (r *ImagingResizer) Resize(inputPath, outputPath string, maxW, maxH int) error {
	if maxW <= 0 || maxH <= 0 {
		return fmt.Errorf("invalid bounding box %dx%d", maxW, maxH)
	}

	img, err := loadFrame(inputPath)
	if err != nil {
		return err
	}

	// Fit never upscales: smaller sources are returned at original size
	thumb := flatten(imaging.Fit(img, maxW, maxH, imaging.Lanczos))

	err = filesystem.WriteAtomic(outputPath, r.Retry, func(f *os.File) error {
		return jpeg.Encode(f, thumb, &jpeg.Options{Quality: JPEGQuality})
	})
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", outputPath, err)
	}

	logging.Debug("Resized %s -> %s (%dx%d)", inputPath, outputPath, thumb.Bounds().Dx(), thumb.Bounds().Dy())
	return nil
}

// NewResizer returns the resizer selected by name. "vips" uses libvips when
// it initialized successfully and otherwise falls back to imaging.
func NewResizer(name string) Resizer {
	switch name {
	case "vips":
		if IsVipsAvailable() {
			return NewVipsResizer()
		}
		logging.Warn("RESIZER=vips but libvips is not available, using imaging")
	case "", "imaging":
	default:
		logging.Warn("Unknown resizer %q, using imaging", name)
	}
	return NewImagingResizer()
}
