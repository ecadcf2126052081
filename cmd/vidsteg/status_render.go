package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// statusKind is ordered by severity so a report can keep the worst one seen.
type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

const (
	statusLabelWidth = 24
	statusIndent     = "  "
)

var statusStyles = [...]struct{ label, color string }{
	statusInfo:  {"INFO", ansiBlue},
	statusOK:    {"OK", ansiGreen},
	statusWarn:  {"WARN", ansiYellow},
	statusError: {"ERROR", ansiRed},
}

func (k statusKind) String() string {
	if k < 0 || int(k) >= len(statusStyles) {
		return statusStyles[statusInfo].label
	}
	return statusStyles[k].label
}

func (k statusKind) color() string {
	if k < 0 || int(k) >= len(statusStyles) {
		return ""
	}
	return statusStyles[k].color
}

// checkStatus maps a pass/fail check to its status kind; optional checks
// degrade to a warning.
func checkStatus(passed, optional bool) statusKind {
	switch {
	case passed:
		return statusOK
	case optional:
		return statusWarn
	default:
		return statusError
	}
}

// recoveryStatus grades a decode by how many probed frames gave up a fragment.
func recoveryStatus(found, probed int) statusKind {
	switch {
	case probed > 0 && found == probed:
		return statusOK
	case found > 0:
		return statusWarn
	default:
		return statusError
	}
}

// formatStatusLine renders "  label:   [KIND] detail" padded to a fixed label
// column.
func formatStatusLine(label string, kind statusKind, detail string, colorize bool) string {
	tag := "[" + kind.String() + "]"
	if detail != "" {
		tag += " " + detail
	}
	line := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, label+":", tag)
	if colorize && kind.color() != "" {
		return kind.color() + line + ansiReset
	}
	return line
}

// statusReport writes status lines and section headers to out and remembers
// the most severe kind it printed.
type statusReport struct {
	out      io.Writer
	colorize bool
	worst    statusKind
}

func newStatusReport(out io.Writer) *statusReport {
	return &statusReport{out: out, colorize: shouldColorize(out)}
}

func (r *statusReport) section(title string) {
	header := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	rule := strings.Repeat("-", len(header))
	if r.colorize {
		header, rule = ansiBlue+header+ansiReset, ansiBlue+rule+ansiReset
	}
	fmt.Fprintln(r.out, header)
	fmt.Fprintln(r.out, rule)
}

func (r *statusReport) line(label string, kind statusKind, detail string) {
	r.worst = max(r.worst, kind)
	fmt.Fprintln(r.out, formatStatusLine(label, kind, detail, r.colorize))
}

func (r *statusReport) failed() bool { return r.worst >= statusError }

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
