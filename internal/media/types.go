package media

import (
	"context"
	"errors"
	"fmt"
)

// Size is one thumbnail variant: a label and the bounding box the frame is
// fitted into.
type Size struct {
	Label  string
	Width  int
	Height int
}

// DefaultSizes are the thumbnail variants, in generation order.
var DefaultSizes = []Size{
	{Label: "sm", Width: 320, Height: 180},
	{Label: "md", Width: 640, Height: 360},
	{Label: "lg", Width: 1280, Height: 720},
}

// JPEGQuality is the encoder quality used for every variant.
const JPEGQuality = 85

// Prober reports the duration of a video in seconds.
type Prober interface {
	Duration(ctx context.Context, path string) (float64, error)
}

// FrameExtractor writes a single still frame of sourcePath, taken at
// timestamp seconds, to outputPath. It reports success as a bool and never
// leaves a partial output file behind on failure.
type FrameExtractor interface {
	ExtractFrame(ctx context.Context, sourcePath, outputPath string, timestamp float64) bool
}

// Resizer scales the image at inputPath down to fit within maxW x maxH
// (never up) and writes it to outputPath as an opaque JPEG.
type Resizer interface {
	Resize(inputPath, outputPath string, maxW, maxH int) error
}

// ErrNoDuration is returned by probers when the container reports no usable
// duration.
var ErrNoDuration = errors.New("no duration reported")

// ImageDecodeError is returned when a frame cannot be decoded as an image.
type ImageDecodeError struct {
	Path string
	Err  error
}

func (e *ImageDecodeError) Error() string {
	return fmt.Sprintf("failed to decode image %s: %v", e.Path, e.Err)
}

func (e *ImageDecodeError) Unwrap() error {
	return e.Err
}
