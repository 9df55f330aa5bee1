package storage

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"cliphub/internal/filesystem"
	"cliphub/internal/logging"
	"cliphub/internal/metrics"
)

// Labels are the variant size labels, in generation order.
var Labels = []string{"sm", "md", "lg"}

// RecordedLabel is the variant whose path is stored on the clip record.
const RecordedLabel = "md"

// Layout locates thumbnail artifacts. Dir is the on-disk directory;
// URLPrefix is the relative path stored on clip records and served over HTTP.
type Layout struct {
	Dir       string
	URLPrefix string
}

// DefaultURLPrefix is the stored-path prefix used by existing clip records.
const DefaultURLPrefix = "uploads/thumbnails"

// Manager owns every thumbnail artifact file on disk. Artifact names are a
// pure function of (clip id, label) so cleanup and regeneration are
// idempotent.
type Manager struct {
	layout Layout
	retry  filesystem.RetryConfig
	log    *logging.Logger
}

// NewManager creates the thumbnail directory and returns a Manager for it.
func NewManager(layout Layout) (*Manager, error) {
	if layout.Dir == "" {
		return nil, errors.New("thumbnail directory is required")
	}
	if layout.URLPrefix == "" {
		layout.URLPrefix = DefaultURLPrefix
	}
	if err := os.MkdirAll(layout.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create thumbnail directory %s: %w", layout.Dir, err)
	}
	return &Manager{
		layout: layout,
		retry:  filesystem.DefaultRetryConfig(),
		log:    logging.For("storage"),
	}, nil
}

// Layout returns the manager's layout.
func (m *Manager) Layout() Layout {
	return m.layout
}

// RawFrameName returns "{id}_raw.jpg".
func RawFrameName(clipID int64) string {
	return strconv.FormatInt(clipID, 10) + "_raw.jpg"
}

// VariantName returns "{id}_thumb_{label}.jpg".
func VariantName(clipID int64, label string) string {
	return strconv.FormatInt(clipID, 10) + "_thumb_" + label + ".jpg"
}

// ParseArtifactName is the inverse of RawFrameName and VariantName. It
// reports the clip id and the label ("raw" for the extracted frame) of an
// artifact file name, and ok=false for any other name.
func ParseArtifactName(name string) (clipID int64, label string, ok bool) {
	stem, found := strings.CutSuffix(name, ".jpg")
	if !found {
		return 0, "", false
	}
	idPart, rest, found := strings.Cut(stem, "_")
	if !found {
		return 0, "", false
	}
	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil || id <= 0 || strconv.FormatInt(id, 10) != idPart {
		return 0, "", false
	}

	if rest == "raw" {
		return id, "raw", true
	}
	if label, found := strings.CutPrefix(rest, "thumb_"); found {
		for _, l := range Labels {
			if l == label {
				return id, label, true
			}
		}
	}
	return 0, "", false
}

// RawFramePath is the on-disk path of the transient extracted frame.
func (m *Manager) RawFramePath(clipID int64) string {
	return filepath.Join(m.layout.Dir, RawFrameName(clipID))
}

// VariantPath is the on-disk path of one resized variant.
func (m *Manager) VariantPath(clipID int64, label string) string {
	return filepath.Join(m.layout.Dir, VariantName(clipID, label))
}

// RecordedPath is the value written to the clip's thumbnail_path,
// e.g. "uploads/thumbnails/7_thumb_md.jpg".
func (m *Manager) RecordedPath(clipID int64) string {
	return path.Join(m.layout.URLPrefix, VariantName(clipID, RecordedLabel))
}

// ArtifactPaths lists every artifact path that may exist for a clip.
func (m *Manager) ArtifactPaths(clipID int64) []string {
	paths := make([]string, 0, len(Labels)+1)
	for _, label := range Labels {
		paths = append(paths, m.VariantPath(clipID, label))
	}
	return append(paths, m.RawFramePath(clipID))
}

// Existing returns the artifact paths currently present on disk.
func (m *Manager) Existing(clipID int64) []string {
	var present []string
	for _, p := range m.ArtifactPaths(clipID) {
		if _, err := filesystem.StatWithRetry(p, m.retry); err == nil {
			present = append(present, p)
		}
	}
	return present
}

// Cleanup deletes the raw frame and every variant for clipID. Missing files
// are not errors, so calling it on an already clean clip is a no-op.
// trigger labels the cleanup in metrics ("variant_failure", "clip_deleted",
// "manual", "orphan_sweep").
func (m *Manager) Cleanup(clipID int64, trigger string) error {
	metrics.ArtifactCleanupsTotal.WithLabelValues(trigger).Inc()

	var errs []error
	removed := 0
	for _, p := range m.ArtifactPaths(clipID) {
		ok, err := filesystem.RemoveIfExists(p, m.retry)
		if err != nil {
			errs = append(errs, fmt.Errorf("remove %s: %w", p, err))
			continue
		}
		if ok {
			removed++
		}
	}

	if removed > 0 {
		metrics.ArtifactFilesRemoved.Add(float64(removed))
		m.log.Debug("Removed %d artifact(s) for clip %d (%s)", removed, clipID, trigger)
	}
	return errors.Join(errs...)
}

// Obligation is a scoped cleanup guard for artifact writes. Paths are
// tracked as they are produced; Fire removes every tracked path unless
// Release was called first. Typical use:
//
//	ob := m.Obligation()
//	defer ob.Fire()
//	ob.Track(path)
//	... write path ...
//	ob.Release()
type Obligation struct {
	mu       sync.Mutex
	paths    []string
	released bool
	fired    bool
	remove   func(string) (bool, error)
}

// Obligation returns an armed obligation whose removals go through the
// manager's retry policy.
func (m *Manager) Obligation() *Obligation {
	return &Obligation{
		remove: func(p string) (bool, error) {
			return filesystem.RemoveIfExists(p, m.retry)
		},
	}
}

// Track adds paths to be removed if the obligation fires.
func (o *Obligation) Track(paths ...string) {
	o.mu.Lock()
	o.paths = append(o.paths, paths...)
	o.mu.Unlock()
}

// Release disarms the obligation; a later Fire does nothing.
func (o *Obligation) Release() {
	o.mu.Lock()
	o.released = true
	o.mu.Unlock()
}

// Fire removes the tracked paths once if the obligation is still armed.
// It returns the number of files removed.
func (o *Obligation) Fire() (int, error) {
	o.mu.Lock()
	if o.released || o.fired {
		o.mu.Unlock()
		return 0, nil
	}
	o.fired = true
	paths := o.paths
	o.mu.Unlock()

	var errs []error
	removed := 0
	for _, p := range paths {
		ok, err := o.remove(p)
		if err != nil {
			errs = append(errs, fmt.Errorf("remove %s: %w", p, err))
			continue
		}
		if ok {
			removed++
		}
	}
	if removed > 0 {
		metrics.ArtifactFilesRemoved.Add(float64(removed))
	}
	return removed, errors.Join(errs...)
}
