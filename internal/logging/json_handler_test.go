package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestJSONHandlerShapesRecord(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	slog.New(newJSONHandler(&buf, lvl, true)).Warn("frame skipped", FrameIndex(9))

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("decode record: %v (%q)", err, buf.String())
	}
	if _, ok := rec["time"]; ok {
		t.Fatalf("expected time renamed to ts: %v", rec)
	}
	ts, _ := rec["ts"].(string)
	if !strings.HasSuffix(ts, "Z") {
		t.Fatalf("expected UTC timestamp, got %q", ts)
	}
	if rec["level"] != "warn" {
		t.Fatalf("level = %v, want warn", rec["level"])
	}
	if src, _ := rec["source"].(string); !strings.HasPrefix(src, "json_handler_test.go:") {
		t.Fatalf("source = %v, want short file:line", rec["source"])
	}
	if rec[FieldFrameIndex] != float64(9) {
		t.Fatalf("frame_index = %v", rec[FieldFrameIndex])
	}
}

func TestHandlersRedactSecrets(t *testing.T) {
	var jsonBuf, consoleBuf bytes.Buffer
	lvl := new(slog.LevelVar)
	logger := TeeLogger(
		slog.New(newJSONHandler(&jsonBuf, lvl, false)),
		newPrettyHandler(&consoleBuf, lvl, false, false),
	)
	logger.WithGroup("credentials").Info("resolved key",
		String("Secret", "hunter2"),
		String("key", "hunter2"),
		String("scheme", "symmetric"),
	)

	for name, out := range map[string]string{"json": jsonBuf.String(), "console": consoleBuf.String()} {
		if strings.Contains(out, "hunter2") {
			t.Fatalf("%s output leaked the secret: %q", name, out)
		}
		if !strings.Contains(out, redactedValue) || !strings.Contains(out, "symmetric") {
			t.Fatalf("%s output missing expected fields: %q", name, out)
		}
	}
}
