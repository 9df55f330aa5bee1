package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"cliphub/internal/database"
	"cliphub/internal/filesystem"
	"cliphub/internal/logging"
	"cliphub/internal/media"
	"cliphub/internal/mediatypes"
	"cliphub/internal/metrics"
	"cliphub/internal/pipeline"
	"cliphub/internal/storage"

	"github.com/google/uuid"
)

var (
	// ErrInvalidExtension is returned for files whose extension is not
	// accepted.
	ErrInvalidExtension = errors.New("invalid file extension")
	// ErrPayloadTooLarge is returned when an upload exceeds the size limit.
	ErrPayloadTooLarge = errors.New("file too large")
	// ErrTitleRequired is returned when a clip has no title.
	ErrTitleRequired = errors.New("title is required")
	// ErrSourceMissing is returned when a clip's video file is gone.
	ErrSourceMissing = errors.New("source video is missing")
)

// DefaultMaxUploadSize is 1 GiB.
const DefaultMaxUploadSize int64 = 1 << 30

// ClipStore is the slice of the record store ingestion needs.
type ClipStore interface {
	CreateClip(ctx context.Context, nc database.NewClip) (*database.Clip, error)
	GetClip(ctx context.Context, id int64) (*database.Clip, error)
	DeleteClip(ctx context.Context, id int64) error
}

// Scheduler accepts pipeline jobs; *pipeline.Queue implements it.
type Scheduler interface {
	Submit(job pipeline.Job) error
}

// Config controls where and what may be uploaded.
type Config struct {
	UploadDir          string
	MaxUploadSize      int64
	AcceptedExtensions []string
	// NotifyOnUpload requests an announcement when the upload's
	// thumbnail is ready.
	NotifyOnUpload bool
}

// Service is the upload ingestion path and the clip deletion path.
type Service struct {
	cfg       Config
	store     ClipStore
	prober    media.Prober
	scheduler Scheduler
	artifacts *storage.Manager
	retry     filesystem.RetryConfig
	log       *logging.Logger
}

// NewService creates the upload directory and returns a Service.
func NewService(cfg Config, store ClipStore, prober media.Prober, scheduler Scheduler, artifacts *storage.Manager) (*Service, error) {
	if cfg.UploadDir == "" {
		return nil, errors.New("upload directory is required")
	}
	if cfg.MaxUploadSize <= 0 {
		cfg.MaxUploadSize = DefaultMaxUploadSize
	}
	if len(cfg.AcceptedExtensions) == 0 {
		cfg.AcceptedExtensions = []string{".mp4"}
	}
	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory %s: %w", cfg.UploadDir, err)
	}

	return &Service{
		cfg:       cfg,
		store:     store,
		prober:    prober,
		scheduler: scheduler,
		artifacts: artifacts,
		retry:     filesystem.DefaultRetryConfig(),
		log:       logging.For("ingest"),
	}, nil
}

// MaxUploadSize returns the configured limit in bytes.
func (s *Service) MaxUploadSize() int64 {
	return s.cfg.MaxUploadSize
}

// Staged is an upload written to a temporary file and not yet committed.
type Staged struct {
	ID       string
	Filename string
	TempPath string
	Size     int64
}

// Metadata is the user-supplied part of a clip.
type Metadata struct {
	UserID      int64
	Title       string
	Description *string
	Private     bool
}

// cleanFilename strips any directory components from a client filename.
func cleanFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(name)
	if name == "." || name == "/" || name == ".." {
		return ""
	}
	return name
}

func (s *Service) acceptedExtension(name string) bool {
	ext := mediatypes.NormalizeExtension(filepath.Ext(name))
	if ext == "" {
		return false
	}
	for _, accepted := range s.cfg.AcceptedExtensions {
		if ext == mediatypes.NormalizeExtension(accepted) {
			return true
		}
	}
	return false
}

// ctxReader stops a copy once ctx is cancelled.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

// Stage streams r to {UploadDir}/temp_{uuid}. It reads at most one byte past
// the size limit; an oversized upload is deleted and reported as
// ErrPayloadTooLarge.
func (s *Service) Stage(ctx context.Context, filename string, r io.Reader) (*Staged, error) {
	name := cleanFilename(filename)
	if name == "" || !s.acceptedExtension(name) {
		metrics.UploadsTotal.WithLabelValues("invalid_extension").Inc()
		return nil, ErrInvalidExtension
	}

	id := uuid.New().String()
	tempPath := filepath.Join(s.cfg.UploadDir, "temp_"+id)

	f, err := os.OpenFile(tempPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		metrics.UploadsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}

	n, copyErr := io.Copy(f, io.LimitReader(ctxReader{ctx: ctx, r: r}, s.cfg.MaxUploadSize+1))
	closeErr := f.Close()

	fail := func(status string, err error) (*Staged, error) {
		metrics.UploadsTotal.WithLabelValues(status).Inc()
		if rmErr := os.Remove(tempPath); rmErr != nil && !os.IsNotExist(rmErr) {
			s.log.Warn("failed to remove temp upload %s: %v", tempPath, rmErr)
		}
		return nil, err
	}

	switch {
	case copyErr != nil:
		return fail("error", fmt.Errorf("failed to write upload: %w", copyErr))
	case closeErr != nil:
		return fail("error", fmt.Errorf("failed to write upload: %w", closeErr))
	case n > s.cfg.MaxUploadSize:
		s.log.Info("Rejected upload %s: exceeds %d bytes", name, s.cfg.MaxUploadSize)
		return fail("too_large", ErrPayloadTooLarge)
	}

	s.log.Debug("Staged %s (%d bytes) at %s", name, n, tempPath)
	return &Staged{ID: id, Filename: name, TempPath: tempPath, Size: n}, nil
}

// Discard removes a staged upload that will not be committed.
func (s *Service) Discard(st *Staged) {
	if st == nil {
		return
	}
	if _, err := filesystem.RemoveIfExists(st.TempPath, s.retry); err != nil {
		s.log.Warn("failed to discard staged upload %s: %v", st.TempPath, err)
	}
}

// Commit finalizes a staged upload: renames it to {uuid}_{filename}, probes
// its duration, creates the clip record and schedules thumbnail
// generation. Scheduling failures are logged; the upload still succeeds.
// The body is already on disk, so a client that disconnects now does not
// abort the commit.
func (s *Service) Commit(ctx context.Context, st *Staged, meta Metadata) (*database.Clip, error) {
	ctx = context.WithoutCancel(ctx)

	if strings.TrimSpace(meta.Title) == "" {
		s.Discard(st)
		metrics.UploadsTotal.WithLabelValues("error").Inc()
		return nil, ErrTitleRequired
	}

	finalPath := filepath.Join(s.cfg.UploadDir, st.ID+"_"+st.Filename)
	if err := filesystem.RenameWithRetry(st.TempPath, finalPath, s.retry); err != nil {
		s.Discard(st)
		metrics.UploadsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to finalize upload: %w", err)
	}

	var duration *int64
	if d, err := s.prober.Duration(ctx, finalPath); err != nil {
		metrics.UploadProbeFailures.Inc()
		s.log.Info("Could not determine duration of %s: %v", st.Filename, err)
	} else {
		secs := int64(d)
		duration = &secs
	}

	clip, err := s.store.CreateClip(ctx, database.NewClip{
		UserID:      meta.UserID,
		Filename:    st.ID + "_" + st.Filename,
		FilePath:    finalPath,
		FileSize:    st.Size,
		Duration:    duration,
		Title:       strings.TrimSpace(meta.Title),
		Description: meta.Description,
		Private:     meta.Private,
	})
	if err != nil {
		if _, rmErr := filesystem.RemoveIfExists(finalPath, s.retry); rmErr != nil {
			s.log.Warn("failed to remove %s after record failure: %v", finalPath, rmErr)
		}
		metrics.UploadsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to create clip record: %w", err)
	}

	metrics.UploadsTotal.WithLabelValues("success").Inc()
	metrics.UploadBytes.Observe(float64(st.Size))
	s.log.Info("Clip %d uploaded by user %d (%s, %d bytes)", clip.ID, clip.UserID, clip.Filename, clip.FileSize)

	if err := s.schedule(clip.ID, finalPath, s.cfg.NotifyOnUpload); err != nil {
		s.log.Warn("Thumbnail generation for clip %d not scheduled: %v", clip.ID, err)
	}

	return clip, nil
}

func (s *Service) schedule(clipID int64, sourcePath string, notify bool) error {
	if s.scheduler == nil {
		return errors.New("no scheduler configured")
	}
	return s.scheduler.Submit(pipeline.Job{ClipID: clipID, SourcePath: sourcePath, Notify: notify})
}

// Reprocess schedules thumbnail generation for an existing clip without
// sending a notification.
func (s *Service) Reprocess(ctx context.Context, clipID int64) error {
	clip, err := s.store.GetClip(ctx, clipID)
	if err != nil {
		return err
	}
	if _, err := filesystem.StatWithRetry(clip.FilePath, s.retry); err != nil {
		return fmt.Errorf("%w: %s", ErrSourceMissing, clip.FilePath)
	}

	if err := s.schedule(clip.ID, clip.FilePath, false); err != nil {
		return err
	}
	s.log.Info("Reprocessing thumbnails for clip %d", clip.ID)
	return nil
}

// Delete removes the clip's video file, its thumbnail artifacts and its
// record, in that order. Missing files are not errors.
func (s *Service) Delete(ctx context.Context, clipID int64) error {
	clip, err := s.store.GetClip(ctx, clipID)
	if err != nil {
		return err
	}

	var errs []error
	if _, err := filesystem.RemoveIfExists(clip.FilePath, s.retry); err != nil {
		errs = append(errs, fmt.Errorf("remove video: %w", err))
	}
	if err := s.artifacts.Cleanup(clip.ID, "clip_deleted"); err != nil {
		errs = append(errs, fmt.Errorf("remove thumbnails: %w", err))
	}
	if err := s.store.DeleteClip(ctx, clip.ID); err != nil {
		errs = append(errs, fmt.Errorf("delete record: %w", err))
	}

	if err := errors.Join(errs...); err != nil {
		return err
	}
	s.log.Info("Clip %d deleted", clip.ID)
	return nil
}
