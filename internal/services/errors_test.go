package services_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"vidsteg/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalTool, "framestore", "remux", "ffmpeg exited", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"framestore", "remux", "ffmpeg exited"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapWithoutCause(t *testing.T) {
	err := services.Wrap(services.ErrMissingFrameIndices, "decode", "", "", nil)
	if !errors.Is(err, services.ErrMissingFrameIndices) {
		t.Fatalf("expected marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "decode") {
		t.Fatalf("expected stage in message, got %q", err.Error())
	}
}

func TestKindMapping(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{errors.New("plain"), "Error"},
		{services.Wrap(services.ErrValidation, "encode", "init", "message required", nil), "ValidationError"},
		{services.Wrap(services.ErrInsufficientFrames, "frameselect", "", "", nil), "InsufficientFramesError"},
		{services.Wrap(services.ErrMissingCredential, "cipher", "", "", nil), "MissingCredentialError"},
		{services.Wrap(services.ErrDecryption, "cipher", "", "", nil), "DecryptionError"},
		{services.Wrap(services.ErrMissingFrameIndices, "decode", "", "", nil), "MissingFrameIndicesError"},
		{fmt.Errorf("step: %w", services.Wrap(services.ErrExternalTool, "ffmpeg", "", "", nil)), "ExternalToolError"},
	}
	for _, tt := range tests {
		if got := services.Kind(tt.err); got != tt.want {
			t.Errorf("Kind(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
