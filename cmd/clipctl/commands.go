package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cliphub/internal/database"
	"cliphub/internal/filesystem"
	"cliphub/internal/indexer"
	"cliphub/internal/notify"
	"cliphub/internal/pipeline"
)

// ReprocessCmd runs the thumbnail pipeline for one clip in the foreground.
type ReprocessCmd struct {
	ID     int64 `arg:"" help:"Clip id"`
	Notify bool  `help:"Announce the clip once its thumbnail is recorded"`
}

func (cmd *ReprocessCmd) Run(ctx context.Context, a *app) error {
	clip, err := a.db.GetClip(ctx, cmd.ID)
	if err != nil {
		return fmt.Errorf("clip %d: %w", cmd.ID, err)
	}
	return a.runPipeline(ctx, clip, cmd.Notify)
}

func (a *app) runPipeline(ctx context.Context, clip *database.Clip, announce bool) error {
	if _, err := filesystem.StatWithRetry(clip.FilePath, filesystem.DefaultRetryConfig()); err != nil {
		return fmt.Errorf("clip %d: video file missing: %s", clip.ID, clip.FilePath)
	}

	notifier := a.notifier
	if !announce || notifier == nil {
		notifier = notify.Nop{}
	}

	orch, err := pipeline.NewOrchestrator(pipeline.Deps{
		Store:     a.db,
		Storage:   a.artifacts,
		Prober:    a.prober,
		Extractor: a.extractor,
		Resizer:   a.resizer,
		Notifier:  notifier,
	})
	if err != nil {
		return err
	}

	result := orch.RunObserved(ctx, pipeline.Job{ClipID: clip.ID, SourcePath: clip.FilePath, Notify: announce},
		func(s pipeline.State) { a.printf("  clip %d: %s\n", clip.ID, s) })

	if result.Outcome != pipeline.OutcomeSuccess {
		if result.Err != nil {
			return fmt.Errorf("clip %d: %s: %w", clip.ID, result.Outcome, result.Err)
		}
		return fmt.Errorf("clip %d: %s", clip.ID, result.Outcome)
	}
	a.printf("Clip %d thumbnail: %s (%v)\n", clip.ID, result.ThumbnailPath, result.Duration.Round(time.Millisecond))
	return nil
}

// CleanupCmd removes a clip's thumbnail files and clears its thumbnail
// reference so the clip can be reprocessed.
type CleanupCmd struct {
	ID   int64 `arg:"" help:"Clip id"`
	Keep bool  `help:"Leave the thumbnail reference on the record"`
}

func (cmd *CleanupCmd) Run(ctx context.Context, a *app) error {
	// Artifacts of a deleted clip can still be removed
	_, err := a.db.GetClip(ctx, cmd.ID)
	switch {
	case errors.Is(err, database.ErrClipNotFound):
	case err != nil:
		return err
	case !cmd.Keep:
		if err := a.db.ClearThumbnailPath(ctx, cmd.ID); err != nil {
			return fmt.Errorf("clip %d: %w", cmd.ID, err)
		}
	}

	found := len(a.artifacts.Existing(cmd.ID))
	if err := a.artifacts.Cleanup(cmd.ID, "manual"); err != nil {
		return fmt.Errorf("clip %d: %w", cmd.ID, err)
	}
	a.printf("Removed %d artifact file(s) for clip %d\n", found, cmd.ID)
	return nil
}

// StatusCmd prints a clip record and which of its artifact files exist.
type StatusCmd struct {
	ID int64 `arg:"" help:"Clip id"`
}

func (cmd *StatusCmd) Run(ctx context.Context, a *app) error {
	clip, err := a.db.GetClip(ctx, cmd.ID)
	if err != nil {
		return fmt.Errorf("clip %d: %w", cmd.ID, err)
	}

	a.printf("Clip %d: %s\n", clip.ID, clip.Title)
	if owner, err := a.db.GetClipOwner(ctx, clip.ID); err == nil {
		a.printf("  Owner:      %s (%d)\n", owner.Username, owner.ID)
	}
	a.printf("  Video:      %s (%d bytes)\n", clip.FilePath, clip.FileSize)
	if _, err := os.Stat(clip.FilePath); err != nil {
		a.printf("              missing\n")
	}
	if clip.Duration != nil {
		a.printf("  Duration:   %ds\n", *clip.Duration)
	}
	a.printf("  Private:    %v\n", clip.Private)
	if clip.HasThumbnail() {
		a.printf("  Thumbnail:  %s\n", *clip.ThumbnailPath)
	} else {
		a.printf("  Thumbnail:  none\n")
	}

	existing := make(map[string]bool)
	for _, p := range a.artifacts.Existing(clip.ID) {
		existing[p] = true
	}
	a.printf("  Artifacts:\n")
	for _, p := range a.artifacts.ArtifactPaths(clip.ID) {
		mark := "-"
		if existing[p] {
			mark = "+"
		}
		a.printf("    %s %s\n", mark, filepath.Base(p))
	}
	return nil
}

// PendingCmd lists clips with no recorded thumbnail and optionally runs
// the pipeline for each.
type PendingCmd struct {
	Limit     int  `help:"Maximum clips to list" default:"50"`
	Reprocess bool `help:"Run the thumbnail pipeline for each listed clip"`
}

func (cmd *PendingCmd) Run(ctx context.Context, a *app) error {
	clips, err := a.db.ListClipsWithoutThumbnail(ctx, cmd.Limit)
	if err != nil {
		return err
	}
	if len(clips) == 0 {
		a.printf("No clips without a thumbnail\n")
		return nil
	}

	var failed []error
	for i := range clips {
		clip := &clips[i]
		a.printf("%d\t%s\t%s\n", clip.ID, clip.UploadedAt.Format("2006-01-02 15:04"), clip.Title)
		if cmd.Reprocess {
			if err := a.runPipeline(ctx, clip, false); err != nil {
				a.printf("  %v\n", err)
				failed = append(failed, err)
			}
		}
	}

	if len(failed) > 0 {
		return fmt.Errorf("%d of %d clip(s) failed", len(failed), len(clips))
	}
	return nil
}

// OrphansCmd reports artifact files whose clip record no longer exists.
type OrphansCmd struct {
	Remove bool `help:"Delete the orphaned files"`
}

func (cmd *OrphansCmd) Run(ctx context.Context, a *app) error {
	report, err := indexer.Scan(ctx, a.db, a.artifacts.Layout().Dir)
	if err != nil {
		return err
	}

	a.printf("Scanned %d artifact file(s) for %d clip(s) in %v\n",
		report.Files, report.Clips, report.Duration.Round(time.Millisecond))
	for _, name := range report.Unrecognized {
		a.printf("  unrecognized: %s\n", name)
	}
	if len(report.Orphans) == 0 {
		a.printf("No orphaned artifacts\n")
		return nil
	}

	for _, o := range report.Orphans {
		a.printf("  clip %d (no record): %s\n", o.ClipID, strings.Join(o.Files, ", "))
	}
	if !cmd.Remove {
		a.printf("%d orphaned file(s); rerun with --remove to delete them\n", report.OrphanFiles())
		return nil
	}

	var errs []error
	for _, o := range report.Orphans {
		if err := a.artifacts.Cleanup(o.ClipID, "orphan_sweep"); err != nil {
			errs = append(errs, fmt.Errorf("clip %d: %w", o.ClipID, err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}
	a.printf("Removed %d orphaned file(s)\n", report.OrphanFiles())
	return nil
}

// UserAddCmd creates a clip owner.
type UserAddCmd struct {
	Username string `arg:"" help:"Username"`
	Role     string `help:"Role" enum:"user,admin" default:"user"`
	Avatar   string `help:"Profile picture URL"`
}

func (cmd *UserAddCmd) Run(ctx context.Context, a *app) error {
	var avatar *string
	if cmd.Avatar != "" {
		avatar = &cmd.Avatar
	}
	u, err := a.db.CreateUser(ctx, cmd.Username, cmd.Role, avatar)
	if err != nil {
		return err
	}
	a.printf("Created user %d: %s (%s)\n", u.ID, u.Username, u.Role)
	return nil
}

// UserShowCmd prints one user.
type UserShowCmd struct {
	ID int64 `arg:"" help:"User id"`
}

func (cmd *UserShowCmd) Run(ctx context.Context, a *app) error {
	u, err := a.db.GetUser(ctx, cmd.ID)
	if err != nil {
		return fmt.Errorf("user %d: %w", cmd.ID, err)
	}
	a.printf("User %d: %s (%s)\n", u.ID, u.Username, u.Role)
	if u.ProfilePictureURL != nil {
		a.printf("  Avatar:  %s\n", *u.ProfilePictureURL)
	}
	a.printf("  Created: %s\n", u.CreatedAt.Format("2006-01-02 15:04:05"))
	return nil
}

// UserCmd groups user commands.
type UserCmd struct {
	Add  UserAddCmd  `cmd:"" help:"Create a user"`
	Show UserShowCmd `cmd:"" help:"Show a user"`
}
