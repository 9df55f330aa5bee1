package media

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"os/exec"
	"strconv"

	"cliphub/internal/logging"

	"github.com/abema/go-mp4"
)

// MaxFrameTimestamp caps the extraction timestamp so short clips still yield
// a frame from their opening second.
const MaxFrameTimestamp = 1.0

// ExtractionTimestamp picks where to grab the thumbnail frame:
// min(1.0, 0.1*duration) when probing succeeded, 0.0 otherwise.
func ExtractionTimestamp(duration float64, err error) float64 {
	if err != nil || math.IsNaN(duration) || math.IsInf(duration, 0) || duration <= 0 {
		return 0.0
	}
	return math.Min(MaxFrameTimestamp, duration*0.1)
}

// FFprobe probes durations with the ffprobe binary.
type FFprobe struct {
	// Path is the ffprobe binary; defaults to "ffprobe" on $PATH.
	Path string
}

type ffprobeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// Duration runs ffprobe and returns format.duration in seconds.
func (p FFprobe) Duration(ctx context.Context, path string) (float64, error) {
	bin := p.Path
	if bin == "" {
		bin = "ffprobe"
	}

	cmd := exec.CommandContext(ctx, bin,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		path,
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return 0, fmt.Errorf("ffprobe error: %w - %s", err, stderr.String())
	}

	var out ffprobeOutput
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		return 0, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}
	if out.Format.Duration == "" {
		return 0, ErrNoDuration
	}

	d, err := strconv.ParseFloat(out.Format.Duration, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", out.Format.Duration, err)
	}
	return d, nil
}

// MP4Prober reads the duration from the moov/mvhd box of an MP4 container
// without shelling out.
type MP4Prober struct{}

// Duration returns the movie header duration in seconds.
func (MP4Prober) Duration(_ context.Context, path string) (float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err := f.Close(); err != nil {
			logging.Warn("failed to close %s: %v", path, err)
		}
	}()

	boxes, err := mp4.ExtractBoxWithPayload(f, nil, mp4.BoxPath{mp4.BoxTypeMoov(), mp4.BoxTypeMvhd()})
	if err != nil {
		return 0, fmt.Errorf("failed to read mvhd box: %w", err)
	}
	if len(boxes) == 0 {
		return 0, ErrNoDuration
	}

	mvhd, ok := boxes[0].Payload.(*mp4.Mvhd)
	if !ok || mvhd.Timescale == 0 {
		return 0, ErrNoDuration
	}

	units := float64(mvhd.DurationV0)
	if mvhd.Version == 1 {
		units = float64(mvhd.DurationV1)
	}
	return units / float64(mvhd.Timescale), nil
}

// ChainProber tries each prober in order and returns the first success.
type ChainProber []Prober

// Duration returns the first successful probe result, or all errors joined.
func (c ChainProber) Duration(ctx context.Context, path string) (float64, error) {
	if len(c) == 0 {
		return 0, errors.New("no probers configured")
	}

	var errs []error
	for _, p := range c {
		d, err := p.Duration(ctx, path)
		if err == nil {
			return d, nil
		}
		errs = append(errs, err)
	}
	return 0, errors.Join(errs...)
}

// DefaultProber prefers ffprobe and falls back to reading the MP4 header.
func DefaultProber(ffprobePath string) Prober {
	return ChainProber{FFprobe{Path: ffprobePath}, MP4Prober{}}
}
