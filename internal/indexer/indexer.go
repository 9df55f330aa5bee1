package indexer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"cliphub/internal/database"
	"cliphub/internal/logging"
	"cliphub/internal/mediatypes"
	"cliphub/internal/metrics"
	"cliphub/internal/storage"
)

// ErrIndexInProgress is returned by Index when another scan is running.
var ErrIndexInProgress = errors.New("artifact index already in progress")

// ClipLookup resolves clip ids; *database.Database implements it.
type ClipLookup interface {
	GetClip(ctx context.Context, id int64) (*database.Clip, error)
}

// Orphan is a clip id that has artifact files but no clip record.
type Orphan struct {
	ClipID int64    `json:"clipId"`
	Files  []string `json:"files"`
}

// Report is the result of one scan of the thumbnail directory.
type Report struct {
	StartedAt time.Time     `json:"startedAt"`
	Duration  time.Duration `json:"duration"`
	// Files counts artifact files; Clips counts distinct clip ids.
	Files   int      `json:"files"`
	Clips   int      `json:"clips"`
	Orphans []Orphan `json:"orphans,omitempty"`
	// Unrecognized lists file names that do not follow the artifact
	// naming convention. They are never touched.
	Unrecognized []string `json:"unrecognized,omitempty"`
}

// OrphanFiles returns the number of files across all orphans.
func (r Report) OrphanFiles() int {
	n := 0
	for _, o := range r.Orphans {
		n += len(o.Files)
	}
	return n
}

// Scan lists the thumbnail directory, groups artifacts by clip id and
// reports the ids whose clip record no longer exists. It never deletes
// anything. A clip deleted while its pipeline run is still writing shows
// up as an orphan until the run's own cleanup catches up.
func Scan(ctx context.Context, lookup ClipLookup, dir string) (Report, error) {
	report := Report{StartedAt: time.Now()}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return report, fmt.Errorf("failed to read thumbnail directory %s: %w", dir, err)
	}

	byClip := make(map[int64][]string)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		id, _, ok := storage.ParseArtifactName(name)
		if !ok {
			if mediatypes.GetFileType(filepath.Ext(name)) != mediatypes.FileTypeImage {
				logging.Debug("Unexpected file in thumbnail directory: %s", name)
			}
			report.Unrecognized = append(report.Unrecognized, name)
			continue
		}
		byClip[id] = append(byClip[id], name)
		report.Files++
	}
	report.Clips = len(byClip)

	ids := make([]int64, 0, len(byClip))
	for id := range byClip {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		_, err := lookup.GetClip(ctx, id)
		if errors.Is(err, database.ErrClipNotFound) {
			files := byClip[id]
			sort.Strings(files)
			report.Orphans = append(report.Orphans, Orphan{ClipID: id, Files: files})
			continue
		}
		if err != nil {
			return report, fmt.Errorf("failed to look up clip %d: %w", id, err)
		}
	}

	report.Duration = time.Since(report.StartedAt)
	return report, nil
}

// Indexer scans the thumbnail directory in the background and publishes
// the latest Report as metrics. It only reports; removing orphans is an
// explicit operator action (clipctl orphans --remove).
type Indexer struct {
	lookup   ClipLookup
	dir      string
	interval time.Duration
	log      *logging.Logger

	stopChan chan struct{}
	stopOnce sync.Once

	indexMu    sync.Mutex
	isIndexing bool
	last       *Report

	// Callback when a scan completes
	onIndexComplete func(Report)
}

// New creates an Indexer for dir. An interval of 0 disables periodic scans;
// Index and TriggerIndex still work.
func New(lookup ClipLookup, dir string, interval time.Duration) *Indexer {
	return &Indexer{
		lookup:   lookup,
		dir:      dir,
		interval: interval,
		log:      logging.For("indexer"),
		stopChan: make(chan struct{}),
	}
}

// SetOnIndexComplete sets a callback invoked after every successful scan.
func (idx *Indexer) SetOnIndexComplete(callback func(Report)) {
	idx.onIndexComplete = callback
}

// Start runs an initial scan and then one per interval, in the background.
func (idx *Indexer) Start() {
	if idx.interval <= 0 {
		idx.log.Info("Periodic artifact scan disabled")
		return
	}
	go idx.periodicIndex()
}

// Stop ends periodic scanning. A scan in progress runs to completion.
func (idx *Indexer) Stop() {
	idx.stopOnce.Do(func() { close(idx.stopChan) })
}

func (idx *Indexer) tryStartIndexing() bool {
	idx.indexMu.Lock()
	defer idx.indexMu.Unlock()
	if idx.isIndexing {
		return false
	}
	idx.isIndexing = true
	return true
}

// Index performs one scan and records its report.
func (idx *Indexer) Index(ctx context.Context) (Report, error) {
	if !idx.tryStartIndexing() {
		return Report{}, ErrIndexInProgress
	}

	report, err := Scan(ctx, idx.lookup, idx.dir)

	idx.indexMu.Lock()
	idx.isIndexing = false
	if err == nil {
		idx.last = &report
	}
	idx.indexMu.Unlock()

	if err != nil {
		metrics.ArtifactIndexRunsTotal.WithLabelValues("error").Inc()
		return report, err
	}

	metrics.ArtifactIndexRunsTotal.WithLabelValues("success").Inc()
	metrics.ArtifactIndexDuration.Set(report.Duration.Seconds())
	metrics.ArtifactIndexLastRun.Set(float64(time.Now().Unix()))
	metrics.ArtifactFiles.Set(float64(report.Files))
	metrics.ArtifactOrphanClips.Set(float64(len(report.Orphans)))

	if len(report.Orphans) > 0 {
		idx.log.Warn("Found %d orphaned artifact file(s) for %d deleted clip(s)", report.OrphanFiles(), len(report.Orphans))
	} else {
		idx.log.Debug("Artifact scan: %d file(s) for %d clip(s), no orphans", report.Files, report.Clips)
	}

	if idx.onIndexComplete != nil {
		idx.onIndexComplete(report)
	}
	return report, nil
}

func (idx *Indexer) periodicIndex() {
	idx.runScheduled("Initial")

	ticker := time.NewTicker(idx.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			idx.runScheduled("Periodic")
		case <-idx.stopChan:
			return
		}
	}
}

func (idx *Indexer) runScheduled(kind string) {
	if _, err := idx.Index(context.Background()); err != nil && !errors.Is(err, ErrIndexInProgress) {
		idx.log.Error("%s artifact scan failed: %v", kind, err)
	}
}

// TriggerIndex starts a scan in the background.
func (idx *Indexer) TriggerIndex() {
	go idx.runScheduled("Manual")
}

// IsIndexing returns whether a scan is in progress.
func (idx *Indexer) IsIndexing() bool {
	idx.indexMu.Lock()
	defer idx.indexMu.Unlock()
	return idx.isIndexing
}

// LastReport returns the most recent successful report.
func (idx *Indexer) LastReport() (Report, bool) {
	idx.indexMu.Lock()
	defer idx.indexMu.Unlock()
	if idx.last == nil {
		return Report{}, false
	}
	return *idx.last, true
}
