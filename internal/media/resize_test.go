package media

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func init() {
	_ = InitVips()
}

// writePNG writes a w x h PNG filled with c.
func writePNG(t *testing.T, dir string, w, h int, c color.Color) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	path := filepath.Join(dir, "frame.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	return path
}

func readJPEG(t *testing.T, path string) image.Image {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, format, err := image.Decode(f)
	if err != nil {
		t.Fatalf("decode %s: %v", path, err)
	}
	if format != "jpeg" {
		t.Fatalf("format = %s, want jpeg", format)
	}
	return img
}

func resizers(t *testing.T) map[string]Resizer {
	t.Helper()
	rs := map[string]Resizer{"imaging": NewImagingResizer()}
	if IsVipsAvailable() {
		rs["vips"] = NewVipsResizer()
	}
	return rs
}

func TestResizeFitsBoundingBox(t *testing.T) {
	tests := []struct {
		name         string
		srcW, srcH   int
		size         Size
		wantW, wantH int
	}{
		{"16:9 into sm", 1920, 1080, DefaultSizes[0], 320, 180},
		{"16:9 into md", 1920, 1080, DefaultSizes[1], 640, 360},
		{"16:9 into lg", 1920, 1080, DefaultSizes[2], 1280, 720},
		{"portrait into md", 1080, 1920, DefaultSizes[1], 203, 360},
		{"square into sm", 500, 500, DefaultSizes[0], 180, 180},
		{"smaller than box is not upscaled", 200, 100, DefaultSizes[2], 200, 100},
	}

	for name, r := range resizers(t) {
		for _, tt := range tests {
			t.Run(name+"/"+tt.name, func(t *testing.T) {
				dir := t.TempDir()
				src := writePNG(t, dir, tt.srcW, tt.srcH, color.NRGBA{R: 10, G: 120, B: 200, A: 255})
				out := filepath.Join(dir, "out.jpg")

				if err := r.Resize(src, out, tt.size.Width, tt.size.Height); err != nil {
					t.Fatalf("Resize() error = %v", err)
				}

				b := readJPEG(t, out).Bounds()
				if abs(b.Dx()-tt.wantW) > 1 || abs(b.Dy()-tt.wantH) > 1 {
					t.Errorf("size = %dx%d, want %dx%d", b.Dx(), b.Dy(), tt.wantW, tt.wantH)
				}
				if b.Dx() > tt.size.Width || b.Dy() > tt.size.Height {
					t.Errorf("size %dx%d exceeds box %dx%d", b.Dx(), b.Dy(), tt.size.Width, tt.size.Height)
				}
			})
		}
	}
}

func TestResizeFlattensTransparency(t *testing.T) {
	for name, r := range resizers(t) {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			src := writePNG(t, dir, 64, 64, color.NRGBA{})
			out := filepath.Join(dir, "out.jpg")

			if err := r.Resize(src, out, 320, 180); err != nil {
				t.Fatalf("Resize() error = %v", err)
			}

			cr, cg, cb, ca := readJPEG(t, out).At(32, 32).RGBA()
			if ca != 0xffff {
				t.Errorf("alpha = %#x, want opaque", ca)
			}
			// JPEG is lossy; fully transparent input must come out near white
			if cr>>8 < 245 || cg>>8 < 245 || cb>>8 < 245 {
				t.Errorf("pixel = (%d,%d,%d), want white background", cr>>8, cg>>8, cb>>8)
			}
		})
	}
}

func TestResizeDecodeError(t *testing.T) {
	for name, r := range resizers(t) {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			src := filepath.Join(dir, "corrupt.jpg")
			if err := os.WriteFile(src, []byte("not an image"), 0o644); err != nil {
				t.Fatal(err)
			}
			out := filepath.Join(dir, "out.jpg")

			err := r.Resize(src, out, 320, 180)
			var decodeErr *ImageDecodeError
			if !errors.As(err, &decodeErr) {
				t.Fatalf("Resize() error = %v, want *ImageDecodeError", err)
			}
			if _, err := os.Stat(out); !os.IsNotExist(err) {
				t.Error("output written for undecodable input")
			}
		})
	}
}

func TestResizeInvalidBox(t *testing.T) {
	dir := t.TempDir()
	src := writePNG(t, dir, 10, 10, color.White)
	if err := NewImagingResizer().Resize(src, filepath.Join(dir, "out.jpg"), 0, 180); err == nil {
		t.Error("Resize() with zero width expected error")
	}
}

func TestResizeMissingInput(t *testing.T) {
	dir := t.TempDir()
	err := NewImagingResizer().Resize(filepath.Join(dir, "missing.jpg"), filepath.Join(dir, "out.jpg"), 320, 180)
	if err == nil {
		t.Error("Resize() on missing input expected error")
	}
}

func TestNewResizer(t *testing.T) {
	if _, ok := NewResizer("").(*ImagingResizer); !ok {
		t.Error(`NewResizer("") should default to imaging`)
	}
	if _, ok := NewResizer("bogus").(*ImagingResizer); !ok {
		t.Error(`NewResizer("bogus") should fall back to imaging`)
	}
	r := NewResizer("vips")
	if IsVipsAvailable() {
		if _, ok := r.(*VipsResizer); !ok {
			t.Errorf(`NewResizer("vips") = %T, want *VipsResizer`, r)
		}
	} else if _, ok := r.(*ImagingResizer); !ok {
		t.Errorf(`NewResizer("vips") without libvips = %T, want *ImagingResizer`, r)
	}
}

func TestFitScale(t *testing.T) {
	tests := []struct {
		w, h, maxW, maxH int
		want             float64
	}{
		{1920, 1080, 640, 360, 1.0 / 3},
		{100, 100, 640, 360, 1},
		{0, 0, 640, 360, 1},
		{1000, 2000, 640, 360, 0.18},
	}
	for _, tt := range tests {
		got := fitScale(tt.w, tt.h, tt.maxW, tt.maxH)
		if diff := got - tt.want; diff > 1e-9 || diff < -1e-9 {
			t.Errorf("fitScale(%d,%d,%d,%d) = %v, want %v", tt.w, tt.h, tt.maxW, tt.maxH, got, tt.want)
		}
	}
}

func TestDefaultSizes(t *testing.T) {
	want := []Size{{"sm", 320, 180}, {"md", 640, 360}, {"lg", 1280, 720}}
	if len(DefaultSizes) != len(want) {
		t.Fatalf("len(DefaultSizes) = %d, want %d", len(DefaultSizes), len(want))
	}
	for i, s := range want {
		if DefaultSizes[i] != s {
			t.Errorf("DefaultSizes[%d] = %+v, want %+v", i, DefaultSizes[i], s)
		}
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
