package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cliphub/internal/database"
	"cliphub/internal/filesystem"
	"cliphub/internal/logging"
	"cliphub/internal/media"
	"cliphub/internal/metrics"
	"cliphub/internal/notify"
	"cliphub/internal/storage"
)

// ClipStore is the slice of the record store the pipeline needs.
type ClipStore interface {
	GetClip(ctx context.Context, id int64) (*database.Clip, error)
	SetThumbnailPath(ctx context.Context, id int64, path string) (bool, error)
	ClearThumbnailPath(ctx context.Context, id int64) error
	GetClipOwner(ctx context.Context, clipID int64) (*database.User, error)
}

// Job asks for thumbnails for one clip.
type Job struct {
	ClipID     int64
	SourcePath string
	// Notify sends an announcement once the thumbnail is recorded.
	Notify bool
}

// Result describes a finished run.
type Result struct {
	ClipID        int64
	State         State
	Outcome       string
	ThumbnailPath string
	Err           error
	Duration      time.Duration
}

// Deps wires an Orchestrator.
type Deps struct {
	Store     ClipStore
	Storage   *storage.Manager
	Prober    media.Prober
	Extractor media.FrameExtractor
	Resizer   media.Resizer
	Notifier  notify.Notifier
	// Sizes defaults to media.DefaultSizes.
	Sizes []media.Size
}

// Orchestrator turns an uploaded video into thumbnail variants and records
// the medium one on the clip.
type Orchestrator struct {
	store     ClipStore
	storage   *storage.Manager
	prober    media.Prober
	extractor media.FrameExtractor
	resizer   media.Resizer
	notifier  notify.Notifier
	sizes     []media.Size
	log       *logging.Logger
}

// NewOrchestrator validates deps and returns an Orchestrator.
func NewOrchestrator(deps Deps) (*Orchestrator, error) {
	switch {
	case deps.Store == nil:
		return nil, errors.New("pipeline: clip store is required")
	case deps.Storage == nil:
		return nil, errors.New("pipeline: storage manager is required")
	case deps.Prober == nil:
		return nil, errors.New("pipeline: prober is required")
	case deps.Extractor == nil:
		return nil, errors.New("pipeline: frame extractor is required")
	case deps.Resizer == nil:
		return nil, errors.New("pipeline: resizer is required")
	}

	sizes := deps.Sizes
	if len(sizes) == 0 {
		sizes = media.DefaultSizes
	}
	notifier := deps.Notifier
	if notifier == nil {
		notifier = notify.Nop{}
	}

	return &Orchestrator{
		store:     deps.Store,
		storage:   deps.Storage,
		prober:    deps.Prober,
		extractor: deps.Extractor,
		resizer:   deps.Resizer,
		notifier:  notifier,
		sizes:     sizes,
		log:       logging.For("pipeline"),
	}, nil
}

// Run executes one pipeline run to completion. Failures are reported in the
// Result, never returned or raised.
func (o *Orchestrator) Run(ctx context.Context, job Job) Result {
	return o.RunObserved(ctx, job, nil)
}

// RunObserved is Run with a callback invoked on every state transition.
func (o *Orchestrator) RunObserved(ctx context.Context, job Job, observe func(State)) Result {
	start := time.Now()
	id := job.ClipID

	transition := func(s State) {
		o.log.Debug("clip %d: %s", id, s)
		if observe != nil {
			observe(s)
		}
	}
	finish := func(s State, outcome string, err error) Result {
		transition(s)
		metrics.PipelineRunsTotal.WithLabelValues(outcome).Inc()
		r := Result{ClipID: id, State: s, Outcome: outcome, Err: err, Duration: time.Since(start)}
		if outcome == OutcomeSuccess {
			r.ThumbnailPath = o.storage.RecordedPath(id)
		}
		return r
	}

	transition(NoThumbnail)

	// Probe failure is not fatal: extract from the first frame instead
	endProbe := timePhase("probe")
	duration, probeErr := o.prober.Duration(ctx, job.SourcePath)
	endProbe()
	if probeErr != nil {
		o.log.Debug("clip %d: probe failed, using first frame: %v", id, probeErr)
	}
	timestamp := media.ExtractionTimestamp(duration, probeErr)

	ob := o.storage.Obligation()
	defer func() {
		if n, err := ob.Fire(); err != nil {
			o.log.Warn("clip %d: failed to remove partial artifacts: %v", id, err)
		} else if n > 0 {
			o.log.Debug("clip %d: removed %d partial artifact(s)", id, n)
		}
	}()

	transition(ExtractingFrame)
	rawPath := o.storage.RawFramePath(id)
	ob.Track(rawPath)

	endExtract := timePhase("extract")
	ok := o.extractor.ExtractFrame(ctx, job.SourcePath, rawPath, timestamp)
	endExtract()
	if !ok {
		o.log.Warn("clip %d: failed to extract frame from %s", id, job.SourcePath)
		return finish(Failed, OutcomeExtractFailed, fmt.Errorf("frame extraction failed for %s", job.SourcePath))
	}

	transition(GeneratingVariants)
	endVariants := timePhase("variants")
	for _, size := range o.sizes {
		variant := o.storage.VariantPath(id, size.Label)
		ob.Track(variant)

		if err := o.resizer.Resize(rawPath, variant, size.Width, size.Height); err != nil {
			endVariants()
			o.log.Warn("clip %d: failed to generate %s thumbnail: %v", id, size.Label, err)
			o.rollbackVariants(ctx, id, ob)
			return finish(Failed, OutcomeVariantFailed, fmt.Errorf("generate %s variant: %w", size.Label, err))
		}
	}
	endVariants()

	// Variants are complete; from here on they belong to the clip
	ob.Release()

	transition(Finalizing)
	endFinalize := timePhase("finalize")
	if _, err := filesystem.RemoveIfExists(rawPath, filesystem.DefaultRetryConfig()); err != nil {
		o.log.Warn("clip %d: failed to remove raw frame: %v", id, err)
	}

	recorded := o.storage.RecordedPath(id)
	updated, err := o.store.SetThumbnailPath(ctx, id, recorded)
	endFinalize()
	if err != nil {
		o.log.Error("clip %d: failed to record thumbnail: %v", id, err)
		return finish(Failed, OutcomeStoreError, err)
	}
	if !updated {
		// Deleted while we worked; ids are never reused so the files
		// are ours to drop
		o.log.Info("clip %d was deleted during thumbnail generation, discarding artifacts", id)
		if cerr := o.storage.Cleanup(id, "clip_deleted"); cerr != nil {
			o.log.Warn("clip %d: cleanup after deletion: %v", id, cerr)
		}
		return finish(Done, OutcomeRecordMissing, nil)
	}

	o.log.Info("clip %d: thumbnail ready at %s", id, recorded)

	if job.Notify {
		o.announce(ctx, id)
	}

	return finish(Done, OutcomeSuccess, nil)
}

// rollbackVariants removes every artifact of a clip after a failed variant
// step. A clip still recording an earlier thumbnail is cleared first so
// the record never points at a removed file. If the record cannot be
// checked or cleared the variants stay on disk and only the raw frame goes.
func (o *Orchestrator) rollbackVariants(ctx context.Context, id int64, ob *storage.Obligation) {
	clip, err := o.store.GetClip(ctx, id)
	if err == nil && clip.HasThumbnail() {
		err = o.store.ClearThumbnailPath(ctx, id)
		if err == nil {
			o.log.Info("clip %d: cleared previous thumbnail after failed regeneration", id)
		}
	}
	if err != nil && !errors.Is(err, database.ErrClipNotFound) {
		o.log.Error("clip %d: keeping variants, could not clear thumbnail reference: %v", id, err)
		ob.Release()
		if _, rerr := filesystem.RemoveIfExists(o.storage.RawFramePath(id), filesystem.DefaultRetryConfig()); rerr != nil {
			o.log.Warn("clip %d: failed to remove raw frame: %v", id, rerr)
		}
		return
	}

	if cerr := o.storage.Cleanup(id, "variant_failure"); cerr != nil {
		o.log.Warn("clip %d: cleanup after variant failure: %v", id, cerr)
	}
}

// announce re-reads the clip and owner and hands them to the notifier.
// Every failure here is logged and swallowed.
func (o *Orchestrator) announce(ctx context.Context, id int64) {
	defer timePhase("notify")()

	clip, err := o.store.GetClip(ctx, id)
	if err != nil {
		o.log.Debug("clip %d: skipping notification: %v", id, err)
		return
	}
	owner, err := o.store.GetClipOwner(ctx, id)
	if err != nil {
		o.log.Debug("clip %d: skipping notification, owner lookup failed: %v", id, err)
		return
	}
	if err := o.notifier.Notify(ctx, clip, owner); err != nil {
		o.log.Warn("clip %d: notification failed: %v", id, err)
	}
}

func timePhase(phase string) func() {
	start := time.Now()
	return func() {
		metrics.PipelinePhaseDuration.WithLabelValues(phase).Observe(time.Since(start).Seconds())
	}
}
