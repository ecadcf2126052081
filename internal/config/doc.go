// Package config loads, normalizes, and validates vidsteg configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// VIDSTEG_FFMPEG and VIDSTEG_FFPROBE. The Config type centralizes every knob
// the encode and decode pipelines need: staging and output directories, the
// fragment budget, the output container, argon2id cost parameters, and the
// metrics textfile path.
//
// Shared secrets are never read from configuration. Always obtain settings
// through this package so downstream code receives sanitized paths, canonical
// log formats, and clear validation errors.
package config
