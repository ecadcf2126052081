// Package services defines shared utilities consumed by the encode and decode
// pipelines and the CLI front-end.
//
// Key responsibilities:
//   - Context helpers that stamp request identifiers and pipeline step names
//     for logging and staging workspace naming.
//   - Structured error markers plus the Wrap helper that classify failures
//     into the validation / credential / decryption / external tool taxonomy.
//
// Use these helpers when wiring new pipeline logic so error reporting stays
// uniform between the core and every front-end.
package services
