// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// Key types:
//   - Result: parsed ffprobe output containing streams and format metadata
//   - Stream: individual audio/video stream properties
//   - Format: container-level metadata (duration, size)
//
// Inspect executes ffprobe directly; Parse decodes output captured by another
// runner. Helper methods on Result expose the frame rate, audio presence and
// frame count hint the frame store needs to rebuild a video.
package ffprobe
