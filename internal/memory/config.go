package memory

import (
	"math"
	"os"
	"runtime/debug"
	"strconv"

	"cliphub/internal/logging"
)

// DefaultMemoryRatio is the share of the container limit given to the Go
// heap. The remainder covers ffmpeg children, libvips buffers and stacks.
const DefaultMemoryRatio = 0.85

// LimitSource says where the Go memory limit came from.
type LimitSource string

// Limit sources.
const (
	SourceGoMemLimit  LimitSource = "GOMEMLIMIT"
	SourceMemoryLimit LimitSource = "MEMORY_LIMIT"
	SourceNone        LimitSource = "none"
)

// LimitResult describes what ConfigureFromEnv did.
type LimitResult struct {
	Source         LimitSource
	ContainerLimit int64
	GoMemLimit     int64
	Ratio          float64
}

// Configured reports whether a Go memory limit is in effect.
func (r LimitResult) Configured() bool {
	return r.GoMemLimit > 0
}

// ConfigureFromEnv sets the Go memory limit from the container limit.
// Call it early in main, before the thumbnail workers start.
//
//   - GOMEMLIMIT: honored as is when set
//   - MEMORY_LIMIT: container limit in bytes (Kubernetes downward API)
//   - MEMORY_RATIO: share of MEMORY_LIMIT for the heap, (0, 1]
func ConfigureFromEnv() LimitResult {
	if v := os.Getenv("GOMEMLIMIT"); v != "" {
		result := LimitResult{Source: SourceGoMemLimit}
		if limit := debug.SetMemoryLimit(-1); limit > 0 && limit < math.MaxInt64 {
			result.GoMemLimit = limit
		}
		logging.Info("GOMEMLIMIT set via environment: %s", v)
		return result
	}

	raw := os.Getenv("MEMORY_LIMIT")
	if raw == "" {
		logging.Debug("MEMORY_LIMIT not set, GOMEMLIMIT will not be configured automatically")
		return LimitResult{Source: SourceNone}
	}

	containerLimit, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || containerLimit <= 0 {
		logging.Warn("Failed to parse MEMORY_LIMIT %q, ignoring", raw)
		return LimitResult{Source: SourceNone}
	}

	ratio := parseRatio(os.Getenv("MEMORY_RATIO"))
	goMemLimit := int64(float64(containerLimit) * ratio)
	debug.SetMemoryLimit(goMemLimit)

	logging.Info("Configured GOMEMLIMIT: %s (%.1f%% of %s container limit)",
		formatBytes(goMemLimit), ratio*100, formatBytes(containerLimit))

	return LimitResult{
		Source:         SourceMemoryLimit,
		ContainerLimit: containerLimit,
		GoMemLimit:     goMemLimit,
		Ratio:          ratio,
	}
}

func parseRatio(raw string) float64 {
	if raw == "" {
		return DefaultMemoryRatio
	}
	ratio, err := strconv.ParseFloat(raw, 64)
	if err != nil || ratio <= 0 || ratio > 1 {
		logging.Warn("MEMORY_RATIO %q invalid, using default %.2f", raw, DefaultMemoryRatio)
		return DefaultMemoryRatio
	}
	return ratio
}

// formatBytes renders b with a binary unit suffix.
func formatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return strconv.FormatInt(b, 10) + " B"
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return strconv.FormatFloat(float64(b)/float64(div), 'f', 1, 64) + " " + string("KMGTPE"[exp]) + "iB"
}
