// Package main hosts the vidsteg CLI entrypoint and command graph.
//
// The Cobra command tree parses flags, resolves configuration and key
// material, and hands the work to the encode and decode pipelines. Output is
// human readable by default; --json switches every command to a stable JSON
// document for scripting.
//
// Keep this package lean: behaviour belongs in the internal packages, and
// commands here only translate between the terminal and those packages.
package main
