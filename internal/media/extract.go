package media

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strconv"

	"cliphub/internal/logging"
)

// FFmpegExtractor extracts frames with the ffmpeg binary.
type FFmpegExtractor struct {
	// Path is the ffmpeg binary; defaults to "ffmpeg" on $PATH.
	Path string
}

// ExtractFrame runs ffmpeg to write one frame at timestamp to outputPath,
// overwriting any existing file. It returns true only when ffmpeg exits
// cleanly and outputPath exists and is non-empty.
func (e FFmpegExtractor) ExtractFrame(ctx context.Context, sourcePath, outputPath string, timestamp float64) bool {
	bin := e.Path
	if bin == "" {
		bin = "ffmpeg"
	}

	cmd := exec.CommandContext(ctx, bin,
		"-y",
		"-ss", strconv.FormatFloat(timestamp, 'f', -1, 64),
		"-i", sourcePath,
		"-frames:v", "1",
		"-f", "image2",
		outputPath,
	)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		logging.Warn("ffmpeg error extracting frame from %s: %v - %s", sourcePath, err, stderr.String())
		removePartial(outputPath)
		return false
	}

	info, err := os.Stat(outputPath)
	if err != nil {
		logging.Warn("ffmpeg produced no output for %s", sourcePath)
		return false
	}
	if info.Size() == 0 {
		logging.Warn("ffmpeg produced an empty frame for %s", sourcePath)
		removePartial(outputPath)
		return false
	}

	logging.Debug("Extracted frame at %.3fs from %s (%d bytes)", timestamp, sourcePath, info.Size())
	return true
}

func removePartial(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logging.Warn("failed to remove partial frame %s: %v", path, err)
	}
}
