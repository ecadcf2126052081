// Package framestore turns videos into numbered still frames and back, using
// ffmpeg and ffprobe.
//
// Frames are written as lossless RGB PNG files named <index>.png starting at
// zero, so a frame's path is a pure function of its index. Reassembly stores
// the stills with the png video codec (pixel exact) and remuxes the source's
// first audio track without re-encoding. Every external command goes through a
// CommandRunner so tests can substitute ffmpeg.
package framestore
