package handlers

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"time"

	"cliphub/internal/database"
	"cliphub/internal/ingest"
	"cliphub/internal/pipeline"
)

// Store is the read side of the clip record store.
type Store interface {
	GetClip(ctx context.Context, id int64) (*database.Clip, error)
	GetClipOwner(ctx context.Context, clipID int64) (*database.User, error)
	Ping(ctx context.Context) error
}

// Clips is the ingestion and deletion service; *ingest.Service
// implements it.
type Clips interface {
	Stage(ctx context.Context, filename string, r io.Reader) (*ingest.Staged, error)
	Discard(st *ingest.Staged)
	Commit(ctx context.Context, st *ingest.Staged, meta ingest.Metadata) (*database.Clip, error)
	Reprocess(ctx context.Context, clipID int64) error
	Delete(ctx context.Context, clipID int64) error
	MaxUploadSize() int64
}

// PipelineStatus reports queued and running thumbnail jobs;
// *pipeline.Queue implements it.
type PipelineStatus interface {
	Status(clipID int64) (pipeline.State, bool)
	Pending() int
	InFlight() int
}

type Handlers struct {
	store     Store
	clips     Clips
	pipeline  PipelineStatus
	startTime time.Time
}

// New creates the HTTP handlers. status may be nil when no queue runs.
func New(store Store, clips Clips, status PipelineStatus) *Handlers {
	return &Handlers{
		store:     store,
		clips:     clips,
		pipeline:  status,
		startTime: time.Now(),
	}
}

// caller is the identity forwarded by the authenticating proxy.
type caller struct {
	UserID int64
	Role   string
}

func (c caller) isAdmin() bool {
	return c.Role == database.RoleAdmin
}

// canAccess reports whether c may see or modify a clip owned by ownerID.
func (c caller) canAccess(ownerID int64) bool {
	return c.UserID == ownerID || c.isAdmin()
}

// callerFromRequest reads X-User-ID and X-User-Role. ok is false when no
// valid user id is present.
func callerFromRequest(r *http.Request) (c caller, ok bool) {
	id, err := strconv.ParseInt(r.Header.Get("X-User-ID"), 10, 64)
	if err != nil || id <= 0 {
		return caller{}, false
	}
	role := r.Header.Get("X-User-Role")
	if role == "" {
		role = database.RoleUser
	}
	return caller{UserID: id, Role: role}, true
}
