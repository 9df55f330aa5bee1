package media

import (
	"fmt"
	"math"
	"os"
	"sync"

	"cliphub/internal/filesystem"
	"cliphub/internal/logging"

	"github.com/davidbyttow/govips/v2/vips"
)

var (
	vipsInitialized bool
	vipsInitMutex   sync.Mutex
	vipsAvailable   bool
)

// vipsLogging maps the application log level onto the libvips level and a
// handler that forwards surviving messages to our logger. glib levels are
// ordered most severe first, so a message passes when l <= floor.
func vipsLogging(level logging.LogLevel) (vips.LogLevel, func(string, vips.LogLevel, string)) {
	vipsLog := logging.For("vips")

	forward := func(floor vips.LogLevel) func(string, vips.LogLevel, string) {
		return func(domain string, l vips.LogLevel, msg string) {
			if l > floor {
				return
			}
			switch {
			case l <= vips.LogLevelCritical:
				vipsLog.Error("%s: %s", domain, msg)
			case l == vips.LogLevelWarning:
				vipsLog.Warn("%s: %s", domain, msg)
			default:
				vipsLog.Debug("%s: %s", domain, msg)
			}
		}
	}

	switch level {
	case logging.LevelDebug:
		return vips.LogLevelInfo, forward(vips.LogLevelDebug)
	case logging.LevelWarn:
		return vips.LogLevelError, forward(vips.LogLevelError)
	case logging.LevelError:
		return vips.LogLevelCritical, forward(vips.LogLevelCritical)
	default:
		return vips.LogLevelWarning, forward(vips.LogLevelWarning)
	}
}

// InitVips starts libvips once per process. Must be called before
// NewResizer("vips").
func InitVips() error {
	vipsInitMutex.Lock()
	defer vipsInitMutex.Unlock()

	if vipsInitialized {
		return nil
	}

	level, handler := vipsLogging(logging.GetLevel())
	vips.LoggingSettings(handler, level)

	// Frames are small; keep the cache tight so a burst of uploads
	// does not balloon memory
	vips.Startup(&vips.Config{
		ConcurrencyLevel: 1,
		MaxCacheMem:      32 * 1024 * 1024,
		MaxCacheSize:     50,
	})

	vipsInitialized = true
	vipsAvailable = true
	logging.Info("libvips initialized successfully (version: %s)", vips.Version)
	return nil
}

// ShutdownVips releases libvips. libvips cannot be restarted afterwards.
func ShutdownVips() {
	vipsInitMutex.Lock()
	defer vipsInitMutex.Unlock()

	if vipsInitialized {
		vips.Shutdown()
		vipsInitialized = false
		vipsAvailable = false
		logging.Info("libvips shutdown complete")
	}
}

// IsVipsAvailable returns whether libvips is initialized and available
func IsVipsAvailable() bool {
	vipsInitMutex.Lock()
	defer vipsInitMutex.Unlock()
	return vipsAvailable
}

// VipsResizer resizes frames with libvips.
type VipsResizer struct {
	Retry filesystem.RetryConfig
}

// NewVipsResizer returns a VipsResizer with the default retry policy.
func NewVipsResizer() *VipsResizer {
	return &VipsResizer{Retry: filesystem.DefaultRetryConfig()}
}

// fitScale is the scale that fits w x h inside maxW x maxH, capped at 1.
func fitScale(w, h, maxW, maxH int) float64 {
	if w <= 0 || h <= 0 {
		return 1
	}
	return math.Min(1, math.Min(float64(maxW)/float64(w), float64(maxH)/float64(h)))
}

// Resize has the same contract as ImagingResizer.Resize.
func (r *VipsResizer) Resize(inputPath, outputPath string, maxW, maxH int) error {
	if !IsVipsAvailable() {
		return fmt.Errorf("libvips not available")
	}
	if maxW <= 0 || maxH <= 0 {
		return fmt.Errorf("invalid bounding box %dx%d", maxW, maxH)
	}

	ref, err := vips.LoadImageFromFile(inputPath, vips.NewImportParams())
	if err != nil {
		return &ImageDecodeError{Path: inputPath, Err: err}
	}
	defer ref.Close()

	if ref.HasAlpha() {
		if err := ref.Flatten(&vips.Color{R: 255, G: 255, B: 255}); err != nil {
			return fmt.Errorf("vips flatten failed: %w", err)
		}
	}

	if scale := fitScale(ref.Width(), ref.Height(), maxW, maxH); scale < 1 {
		if err := ref.Resize(scale, vips.KernelLanczos3); err != nil {
			return fmt.Errorf("vips resize failed: %w", err)
		}
	}

	buf, _, err := ref.ExportJpeg(&vips.JpegExportParams{
		Quality:        JPEGQuality,
		OptimizeCoding: true,
	})
	if err != nil {
		return fmt.Errorf("vips export failed: %w", err)
	}

	err = filesystem.WriteAtomic(outputPath, r.Retry, func(f *os.File) error {
		_, werr := f.Write(buf)
		return werr
	})
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", outputPath, err)
	}

	logging.Debug("Vips resized %s -> %s (%dx%d)", inputPath, outputPath, ref.Width(), ref.Height())
	return nil
}
