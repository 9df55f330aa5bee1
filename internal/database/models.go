package database

import (
	"errors"
	"time"
)

var (
	// ErrClipNotFound is returned when no clip has the requested id.
	ErrClipNotFound = errors.New("clip not found")
	// ErrUserNotFound is returned when no user has the requested id.
	ErrUserNotFound = errors.New("user not found")
)

// Roles
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Clip is an uploaded video. JSON names match the existing frontend.
type Clip struct {
	ID            int64     `json:"id"`
	UserID        int64     `json:"user_id"`
	Filename      string    `json:"filename"`
	FilePath      string    `json:"file_path"`
	FileSize      int64     `json:"file_size"`
	Duration      *int64    `json:"duration"`
	Title         string    `json:"title"`
	Description   *string   `json:"description"`
	ThumbnailPath *string   `json:"thumbnail_path"`
	Private       bool      `json:"private"`
	UploadedAt    time.Time `json:"uploaded_at"`
}

// HasThumbnail reports whether the clip has a recorded thumbnail.
func (c *Clip) HasThumbnail() bool {
	return c.ThumbnailPath != nil && *c.ThumbnailPath != ""
}

// NewClip holds the fields supplied when a clip record is created. The
// thumbnail path always starts out empty.
type NewClip struct {
	UserID      int64
	Filename    string
	FilePath    string
	FileSize    int64
	Duration    *int64
	Title       string
	Description *string
	Private     bool
}

// User is a clip owner.
type User struct {
	ID                int64     `json:"id"`
	Username          string    `json:"username"`
	Role              string    `json:"role"`
	ProfilePictureURL *string   `json:"profile_picture_url"`
	CreatedAt         time.Time `json:"created_at"`
}
