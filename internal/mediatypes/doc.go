// Package mediatypes classifies files by extension for the upload and
// thumbnail directories.
//
// It has no dependencies beyond the standard library so startup, ingest
// and the artifact indexer can all import it without cycles.
//
// Extensions are normalized before lookup, so configuration values such as
// "MP4" or "mov" behave like ".mp4" and ".mov":
//
//	mediatypes.IsVideo("MOV")        // true
//	mediatypes.GetMimeType(".jpg")   // "image/jpeg"
//	mediatypes.NormalizeExtension(" webm ") // ".webm"
//
// VideoExtensions is the set ACCEPTED_EXTENSIONS may draw from.
package mediatypes
