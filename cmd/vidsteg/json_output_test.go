package main

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"vidsteg/internal/services"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{services.Wrap(services.ErrValidation, "cli", "message", "empty", nil), 2},
		{services.Wrap(services.ErrMissingCredential, "cipher", "decrypt", "no key", nil), 2},
		{services.Wrap(services.ErrMissingFrameIndices, "decoder", "validate", "none", nil), 2},
		{services.Wrap(services.ErrDecryption, "cipher", "decrypt", "bad", nil), 1},
		{services.Wrap(services.ErrExternalTool, "framestore", "remux", "exit 1", nil), 1},
		{errors.New("plain"), 1},
	}
	for _, tc := range tests {
		if got := exitCode(tc.err); got != tc.want {
			t.Fatalf("exitCode(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

func TestDecodeJSONErrorNamesStep(t *testing.T) {
	env := setupCLITestEnv(t)
	video := writeSourceVideo(t, 40)
	enc := encodeJSON(t, env, video, "-m", "json errors", "--key", "right")

	out, _, err := runCLI(t, []string{"decode", enc.Video, "--key", "wrong", "--frames", frameFlag(enc.Indices), "--json"}, env.configPath)
	if !errors.Is(err, services.ErrDecryption) {
		t.Fatalf("expected decryption error, got %v", err)
	}
	var payload errorOutput
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("parse error output %q: %v", out, err)
	}
	if payload.Kind != "DecryptionError" || payload.Operation != "decode" || payload.Step != "decrypted" {
		t.Fatalf("unexpected error document: %+v", payload)
	}
	if exitCode(err) != 1 {
		t.Fatalf("exit code = %d", exitCode(err))
	}
}

func TestRenderTableWithFooter(t *testing.T) {
	got := renderTableWithFooter(
		[]string{"Workspace", "Size"},
		[][]string{{"encode-a", "1.0 kB"}, {"decode-b"}},
		[]string{"", "3.0 kB"},
		[]columnAlignment{alignLeft, alignRight},
	)
	for _, want := range []string{"Workspace", "encode-a", "decode-b", "3.0 KB"} {
		if !strings.Contains(strings.ToUpper(got), strings.ToUpper(want)) {
			t.Fatalf("table missing %q:\n%s", want, got)
		}
	}
	if renderTable(nil, nil, nil) != "" {
		t.Fatal("expected empty render for no headers")
	}
}
