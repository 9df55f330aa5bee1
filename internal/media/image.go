package media

import (
	"fmt"
	"image"
	"image/color"
	"os"

	"cliphub/internal/logging"

	// Frame decoders
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp" // WebP frame support
)

// MaxImagePixels bounds the frames we will decode. ffmpeg frames of 8K
// video are ~33MP; anything larger is not a video frame.
const MaxImagePixels = 40_000_000

// ImageDimensions holds image width and height
type ImageDimensions struct {
	Width  int
	Height int
}

// GetImageDimensions returns image dimensions without fully decoding the image
func GetImageDimensions(path string) (*ImageDimensions, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := file.Close(); err != nil {
			logging.Warn("failed to close image file %s: %v", path, err)
		}
	}()

	config, _, err := image.DecodeConfig(file)
	if err != nil {
		return nil, err
	}

	return &ImageDimensions{
		Width:  config.Width,
		Height: config.Height,
	}, nil
}

// loadFrame decodes the image at path. Any failure, including a frame that
// exceeds MaxImagePixels, is reported as an *ImageDecodeError.
func loadFrame(path string) (image.Image, error) {
	dims, err := GetImageDimensions(path)
	if err != nil {
		return nil, &ImageDecodeError{Path: path, Err: err}
	}
	if dims.Width <= 0 || dims.Height <= 0 || dims.Width*dims.Height > MaxImagePixels {
		return nil, &ImageDecodeError{
			Path: path,
			Err:  fmt.Errorf("unsupported frame size %dx%d", dims.Width, dims.Height),
		}
	}

	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, &ImageDecodeError{Path: path, Err: err}
	}
	return img, nil
}

// flatten composites img onto an opaque white background so the result has
// no alpha channel.
func flatten(img image.Image) image.Image {
	b := img.Bounds()
	bg := imaging.New(b.Dx(), b.Dy(), color.White)
	return imaging.Overlay(bg, img, image.Pt(0, 0), 1.0)
}
