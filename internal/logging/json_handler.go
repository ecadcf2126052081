package logging

import (
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// redactedKeys name attributes whose values never reach a log sink. Matching
// ignores case so "Secret" and "secret" are both masked.
var redactedKeys = map[string]struct{}{
	"key":         {},
	"secret":      {},
	"passphrase":  {},
	"password":    {},
	"private_key": {},
	"plaintext":   {},
	"message":     {},
}

const redactedValue = "[redacted]"

func redact(key string, value slog.Value) slog.Value {
	if _, ok := redactedKeys[strings.ToLower(key)]; ok && value.Kind() != slog.KindGroup {
		return slog.StringValue(redactedValue)
	}
	return value
}

// jsonAttr shapes top-level records for the log file: a UTC "ts", lowercase
// level names and a short file:line source. Sensitive keys are masked at any
// depth.
func jsonAttr(groups []string, attr slog.Attr) slog.Attr {
	attr.Value = redact(attr.Key, attr.Value)
	if len(groups) > 0 {
		return attr
	}
	switch attr.Key {
	case slog.TimeKey:
		if attr.Value.Kind() != slog.KindTime {
			return attr
		}
		return slog.String("ts", attr.Value.Time().UTC().Format(time.RFC3339Nano))
	case slog.LevelKey:
		return slog.String(slog.LevelKey, strings.ToLower(attr.Value.String()))
	case slog.SourceKey:
		src, ok := attr.Value.Any().(*slog.Source)
		if !ok || src == nil {
			return attr
		}
		return slog.String(slog.SourceKey, filepath.Base(src.File)+":"+strconv.Itoa(src.Line))
	}
	return attr
}

func newJSONHandler(w io.Writer, lvl slog.Leveler, addSource bool) slog.Handler {
	return slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       lvl,
		AddSource:   addSource,
		ReplaceAttr: jsonAttr,
	})
}
