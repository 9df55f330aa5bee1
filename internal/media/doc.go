// Package media wraps the external tools and image libraries used to turn an
// uploaded video into thumbnails.
//
// It provides:
//   - Probers that read a video's duration (ffprobe, or the MP4 mvhd box)
//   - An ffmpeg-backed FrameExtractor that writes one still frame
//   - Resizers (imaging, or libvips when available) that fit a frame into a
//     bounding box and encode it as JPEG
//
// None of these types know about clips or storage layout; the pipeline
// package composes them.
package media
