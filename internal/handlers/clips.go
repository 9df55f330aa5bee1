package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"cliphub/internal/database"
	"cliphub/internal/ingest"
	"cliphub/internal/logging"
	"cliphub/internal/mediatypes"
	"cliphub/internal/pipeline"
)

const (
	// maxFieldSize bounds each non-file form field.
	maxFieldSize = 64 << 10
	// maxFormOverhead is the body allowance on top of the file limit for
	// multipart headers and text fields.
	maxFormOverhead = 1 << 20
)

var errFieldTooLarge = errors.New("form field too large")

// clipResponse is a clip as returned to the frontend.
type clipResponse struct {
	*database.Clip
	Username        string `json:"username"`
	ContentType     string `json:"content_type"`
	ThumbnailStatus string `json:"thumbnail_status"`
}

func (h *Handlers) thumbnailStatus(clip *database.Clip) string {
	if h.pipeline != nil {
		if s, ok := h.pipeline.Status(clip.ID); ok {
			if s == pipeline.NoThumbnail {
				return "queued"
			}
			return s.String()
		}
	}
	if clip.HasThumbnail() {
		return pipeline.Done.String()
	}
	return pipeline.NoThumbnail.String()
}

func (h *Handlers) toResponse(r *http.Request, clip *database.Clip) clipResponse {
	resp := clipResponse{
		Clip:            clip,
		ContentType:     mediatypes.GetMimeType(filepath.Ext(clip.Filename)),
		ThumbnailStatus: h.thumbnailStatus(clip),
	}
	if owner, err := h.store.GetClipOwner(r.Context(), clip.ID); err == nil {
		resp.Username = owner.Username
	} else if !errors.Is(err, database.ErrUserNotFound) && !errors.Is(err, database.ErrClipNotFound) {
		logging.Warn("failed to load owner of clip %d: %v", clip.ID, err)
	}
	return resp
}

func readField(part io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(part, maxFieldSize+1))
	if err != nil {
		return "", err
	}
	if len(data) > maxFieldSize {
		return "", errFieldTooLarge
	}
	return string(data), nil
}

// uploadError maps an ingestion error to a status code and message.
func uploadError(err error, maxSize int64) (int, string) {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.Is(err, ingest.ErrInvalidExtension):
		return http.StatusBadRequest, "File type not allowed"
	case errors.Is(err, ingest.ErrPayloadTooLarge), errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge, fmt.Sprintf("File too large (max %d bytes)", maxSize)
	case errors.Is(err, ingest.ErrTitleRequired):
		return http.StatusBadRequest, "Title is required"
	case errors.Is(err, errFieldTooLarge):
		return http.StatusBadRequest, "Form field too large"
	default:
		return http.StatusInternalServerError, "Failed to save clip"
	}
}

// UploadClip accepts a multipart form with a file part and title,
// description and private fields. The file is streamed to disk without
// buffering the whole body.
func (h *Handlers) UploadClip(w http.ResponseWriter, r *http.Request) {
	c, ok := callerFromRequest(r)
	if !ok {
		writeJSONError(w, "Not authenticated", http.StatusUnauthorized)
		return
	}

	maxSize := h.clips.MaxUploadSize()
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+maxFormOverhead)

	reader, err := r.MultipartReader()
	if err != nil {
		writeJSONError(w, "Expected multipart form data", http.StatusBadRequest)
		return
	}

	var staged *ingest.Staged
	defer func() {
		// Set to nil once Commit owns the staged file
		if staged != nil {
			h.clips.Discard(staged)
		}
	}()

	fail := func(err error) {
		code, msg := uploadError(err, maxSize)
		if code == http.StatusInternalServerError {
			logging.Error("Upload by user %d failed: %v", c.UserID, err)
		}
		writeJSONError(w, msg, code)
	}

	meta := ingest.Metadata{UserID: c.UserID}

	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			var maxBytes *http.MaxBytesError
			if errors.As(err, &maxBytes) {
				fail(err)
			} else {
				writeJSONError(w, "Malformed multipart body", http.StatusBadRequest)
			}
			return
		}

		switch part.FormName() {
		case "file":
			if staged != nil {
				_ = part.Close()
				writeJSONError(w, "Only one file may be uploaded", http.StatusBadRequest)
				return
			}
			staged, err = h.clips.Stage(r.Context(), part.FileName(), part)
		case "title":
			meta.Title, err = readField(part)
		case "description":
			var d string
			if d, err = readField(part); err == nil && strings.TrimSpace(d) != "" {
				meta.Description = &d
			}
		case "private":
			var v string
			if v, err = readField(part); err == nil {
				meta.Private, _ = strconv.ParseBool(strings.TrimSpace(v))
			}
		default:
			_, err = io.Copy(io.Discard, io.LimitReader(part, maxFieldSize))
		}
		_ = part.Close()

		if err != nil {
			fail(err)
			return
		}
	}

	if staged == nil {
		writeJSONError(w, "File is required", http.StatusBadRequest)
		return
	}

	st := staged
	staged = nil
	clip, err := h.clips.Commit(r.Context(), st, meta)
	if err != nil {
		fail(err)
		return
	}

	writeJSONStatusCode(w, http.StatusOK, h.toResponse(r, clip))
}

// loadClip resolves {id} and writes the error response if the clip
// cannot be loaded.
func (h *Handlers) loadClip(w http.ResponseWriter, r *http.Request) (*database.Clip, bool) {
	id, ok := clipIDFromRequest(r)
	if !ok {
		writeJSONError(w, "Invalid clip id", http.StatusBadRequest)
		return nil, false
	}

	clip, err := h.store.GetClip(r.Context(), id)
	if errors.Is(err, database.ErrClipNotFound) {
		writeJSONError(w, "Clip not found", http.StatusNotFound)
		return nil, false
	}
	if err != nil {
		logging.Error("failed to load clip %d: %v", id, err)
		writeJSONError(w, "Failed to load clip", http.StatusInternalServerError)
		return nil, false
	}
	return clip, true
}

// GetClip returns a clip. Private clips are visible to their owner and
// admins only.
func (h *Handlers) GetClip(w http.ResponseWriter, r *http.Request) {
	clip, ok := h.loadClip(w, r)
	if !ok {
		return
	}

	if clip.Private {
		c, authed := callerFromRequest(r)
		if !authed || !c.canAccess(clip.UserID) {
			writeJSONError(w, "This clip is private", http.StatusForbidden)
			return
		}
	}

	writeJSONStatusCode(w, http.StatusOK, h.toResponse(r, clip))
}

// DeleteClip removes a clip, its video and its thumbnails. Only the owner
// or an admin may delete.
func (h *Handlers) DeleteClip(w http.ResponseWriter, r *http.Request) {
	c, ok := callerFromRequest(r)
	if !ok {
		writeJSONError(w, "Not authenticated", http.StatusUnauthorized)
		return
	}

	clip, ok := h.loadClip(w, r)
	if !ok {
		return
	}
	if !c.canAccess(clip.UserID) {
		writeJSONError(w, "User does not have permission to delete this clip.", http.StatusForbidden)
		return
	}

	if err := h.clips.Delete(r.Context(), clip.ID); err != nil {
		if errors.Is(err, database.ErrClipNotFound) {
			writeJSONError(w, "Clip not found", http.StatusNotFound)
			return
		}
		logging.Error("failed to delete clip %d: %v", clip.ID, err)
		writeJSONError(w, "Failed to delete clip", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ReprocessThumbnail schedules a new thumbnail run for a clip. Only the
// owner or an admin may request it.
func (h *Handlers) ReprocessThumbnail(w http.ResponseWriter, r *http.Request) {
	c, ok := callerFromRequest(r)
	if !ok {
		writeJSONError(w, "Not authenticated", http.StatusUnauthorized)
		return
	}

	clip, ok := h.loadClip(w, r)
	if !ok {
		return
	}
	if !c.canAccess(clip.UserID) {
		writeJSONError(w, "User does not have permission to modify this clip.", http.StatusForbidden)
		return
	}

	err := h.clips.Reprocess(r.Context(), clip.ID)
	switch {
	case err == nil:
		writeJSONStatusCode(w, http.StatusAccepted, map[string]string{"status": "scheduled"})
	case errors.Is(err, pipeline.ErrAlreadyScheduled):
		writeJSONError(w, "Thumbnail generation already in progress", http.StatusConflict)
	case errors.Is(err, ingest.ErrSourceMissing):
		writeJSONError(w, "Video file not found", http.StatusGone)
	case errors.Is(err, pipeline.ErrQueueFull), errors.Is(err, pipeline.ErrQueueStopped):
		w.Header().Set("Retry-After", "30")
		writeJSONError(w, "Thumbnail queue is busy", http.StatusServiceUnavailable)
	case errors.Is(err, database.ErrClipNotFound):
		writeJSONError(w, "Clip not found", http.StatusNotFound)
	default:
		logging.Error("failed to reprocess clip %d: %v", clip.ID, err)
		writeJSONError(w, "Failed to schedule thumbnail generation", http.StatusInternalServerError)
	}
}
