package mediatypes

import "strings"

// FileType represents the kind of a file in the upload or thumbnail
// directories.
type FileType string

const (
	// FileTypeImage represents an image file.
	FileTypeImage FileType = "image"
	// FileTypeVideo represents a video file.
	FileTypeVideo FileType = "video"
	// FileTypeOther represents an unknown or unsupported file type.
	FileTypeOther FileType = "other"
)

// ImageExtensions maps extensions to whether they are image formats. Only
// JPEG is ever written to the thumbnail directory.
var ImageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
}

// VideoExtensions maps extensions to whether they are video containers
// ffmpeg can extract a frame from. ACCEPTED_EXTENSIONS is limited to these.
var VideoExtensions = map[string]bool{
	".mp4":  true,
	".m4v":  true,
	".mov":  true,
	".mkv":  true,
	".webm": true,
	".avi":  true,
	".mpeg": true,
	".mpg":  true,
	".3gp":  true,
	".ts":   true,
}

// MimeTypes maps extensions to their MIME types.
var MimeTypes = map[string]string{
	// Images
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",

	// Videos
	".mp4":  "video/mp4",
	".m4v":  "video/x-m4v",
	".mov":  "video/quicktime",
	".mkv":  "video/x-matroska",
	".webm": "video/webm",
	".avi":  "video/x-msvideo",
	".mpeg": "video/mpeg",
	".mpg":  "video/mpeg",
	".3gp":  "video/3gpp",
	".ts":   "video/mp2t",
}

// NormalizeExtension lowercases ext and adds the leading dot if missing.
// It returns "" for blank input.
func NormalizeExtension(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" || ext == "." {
		return ""
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// GetFileType returns the FileType for ext. The extension is normalized
// first, so "MP4" and ".mp4" are equivalent.
func GetFileType(ext string) FileType {
	ext = NormalizeExtension(ext)
	if VideoExtensions[ext] {
		return FileTypeVideo
	}
	if ImageExtensions[ext] {
		return FileTypeImage
	}
	return FileTypeOther
}

// GetMimeType returns the MIME type for ext, or "application/octet-stream"
// if the extension is not recognized.
func GetMimeType(ext string) string {
	if mime, ok := MimeTypes[NormalizeExtension(ext)]; ok {
		return mime
	}
	return "application/octet-stream"
}

// IsVideo reports whether ext is a supported video container.
func IsVideo(ext string) bool {
	return GetFileType(ext) == FileTypeVideo
}
