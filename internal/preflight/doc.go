// Package preflight provides readiness checks for the external tools and
// filesystem paths vidsteg depends on.
//
// The CLI "vidsteg doctor" command runs every check and renders the results.
// Encode and decode call RunAll before acquiring a staging workspace so a
// missing directory fails fast instead of after frame extraction.
package preflight
