package main

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"vidsteg/internal/services"
	"vidsteg/internal/staging"
	"vidsteg/internal/testsupport"
)

func TestFramesCommandPreviewsSelection(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"frames", "150"}, env.configPath)
	if err != nil {
		t.Fatalf("frames: %v", err)
	}
	requireContains(t, out, "Manifest: [9, 18, 28, 37, 46, 56, 65, 75, 84, 93, 103, 112, 121, 131, 140]")

	out, _, err = runCLI(t, []string{"frames", "20", "--count", "4", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("frames --json: %v", err)
	}
	var payload struct {
		Indices []int `json:"indices"`
	}
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("parse frames output: %v", err)
	}
	if len(payload.Indices) != 4 || payload.Indices[0] != 4 || payload.Indices[3] != 16 {
		t.Fatalf("unexpected indices %v", payload.Indices)
	}

	_, _, err = runCLI(t, []string{"frames", "10"}, env.configPath)
	if !errors.Is(err, services.ErrInsufficientFrames) {
		t.Fatalf("expected insufficient frames, got %v", err)
	}
	_, _, err = runCLI(t, []string{"frames", "many"}, env.configPath)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestKeygenHybridEncodeAndUnwrap(t *testing.T) {
	env := setupCLITestEnv(t)
	keyDir := t.TempDir()
	priv := filepath.Join(keyDir, "id.pem")
	pub := filepath.Join(keyDir, "id.pub.pem")

	out, _, err := runCLI(t, []string{"keygen", "--private", priv, "--public", pub}, env.configPath)
	if err != nil {
		t.Fatalf("keygen: %v", err)
	}
	requireContains(t, out, "Key size:    2048 bits")
	if _, _, err := runCLI(t, []string{"keygen", "--private", priv, "--public", pub}, env.configPath); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected keygen to refuse overwriting, got %v", err)
	}

	video := writeSourceVideo(t, 45)
	enc := encodeJSON(t, env, video, "-m", "shared plans", "--key", "s3cret", "--public-key", pub)
	if enc.WrappedKey == "" {
		t.Fatal("expected a wrapped key in hybrid mode")
	}

	out, _, err = runCLI(t, []string{"unwrap-key", enc.WrappedKey, "--private-key", priv}, "")
	if err != nil {
		t.Fatalf("unwrap-key: %v", err)
	}
	secret := strings.TrimSpace(out)
	if secret != "s3cret" {
		t.Fatalf("unwrapped %q", secret)
	}

	out, _, err = runCLI(t, []string{"decode", enc.Video, "--key", secret, "--frames", frameFlag(enc.Indices)}, env.configPath)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	requireContains(t, out, "shared plans")

	_, _, err = runCLI(t, []string{"unwrap-key", enc.WrappedKey}, "")
	if !errors.Is(err, services.ErrMissingCredential) {
		t.Fatalf("expected missing credential, got %v", err)
	}
}

func TestAsymmetricEncodeDecode(t *testing.T) {
	env := setupCLITestEnv(t)
	priv, pub := testsupport.RSAKeyFiles(t)
	video := writeSourceVideo(t, 80)

	enc := encodeJSON(t, env, video, "-m", "for the key holder", "--scheme", "rsa", "--public-key", pub)
	if enc.WrappedKey != "" {
		t.Fatalf("asymmetric encode must not wrap a key")
	}
	out, _, err := runCLI(t, []string{"decode", enc.Video, "--scheme", "asymmetric", "--private-key", priv, "--frames", frameFlag(enc.Indices)}, env.configPath)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	requireContains(t, out, "for the key holder")

	otherPriv, _ := testsupport.OtherRSAKeyFiles(t)
	_, _, err = runCLI(t, []string{"decode", enc.Video, "--scheme", "asymmetric", "--private-key", otherPriv, "--frames", frameFlag(enc.Indices)}, env.configPath)
	if !errors.Is(err, services.ErrDecryption) {
		t.Fatalf("expected decryption error with mismatched key, got %v", err)
	}
}

func TestStagingListAndClean(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"staging", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("staging list: %v", err)
	}
	requireContains(t, out, "No staging workspaces found")

	stale := filepath.Join(env.cfg.Paths.StagingDir, "encode-stale")
	if err := os.MkdirAll(stale, 0o755); err != nil {
		t.Fatalf("mkdir stale: %v", err)
	}
	if err := os.WriteFile(filepath.Join(stale, "0.png"), []byte("frame"), 0o644); err != nil {
		t.Fatalf("write stale file: %v", err)
	}
	busy, err := staging.Acquire(env.cfg.Paths.StagingDir, "decode", "busy")
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	t.Cleanup(func() { _ = busy.Release() })

	out, _, err = runCLI(t, []string{"staging", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("staging list: %v", err)
	}
	requireContains(t, out, "encode-stale")
	requireContains(t, out, "decode-busy")
	requireContains(t, out, "Total: 2 workspaces")

	out, _, err = runCLI(t, []string{"staging", "clean"}, env.configPath)
	if err != nil {
		t.Fatalf("staging clean: %v", err)
	}
	requireContains(t, out, "No stale workspaces to clean")

	out, _, err = runCLI(t, []string{"staging", "clean", "--all"}, env.configPath)
	if err != nil {
		t.Fatalf("staging clean --all: %v", err)
	}
	requireContains(t, out, "Removed 1 unlocked workspaces")
	requireContains(t, out, "Kept 1 workspaces in use")

	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Fatalf("expected stale workspace removed, stat err=%v", err)
	}
	if _, err := os.Stat(busy.Path); err != nil {
		t.Fatalf("expected locked workspace kept: %v", err)
	}
}

func TestDoctorReportsDependencies(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"doctor"}, env.configPath)
	if err == nil {
		t.Fatal("expected doctor to fail when the png encoder is missing")
	}
	requireContains(t, out, "FFmpeg png encoder")
	requireContains(t, out, "Missing dependencies")

	script := "#!/bin/sh\ncase \"$*\" in\n*-encoders*) echo ' V....D png                  PNG (Portable Network Graphics) image' ;;\n*) echo 'ffmpeg version 7.1' ;;\nesac\n"
	stub := filepath.Join(testsupport.BaseDir(env.cfg), "bin", "ffmpeg")
	if err := os.WriteFile(stub, []byte(script), 0o755); err != nil {
		t.Fatalf("write ffmpeg stub: %v", err)
	}

	out, _, err = runCLI(t, []string{"doctor"}, env.configPath)
	if err != nil {
		t.Fatalf("doctor: %v\n%s", err, out)
	}
	requireContains(t, out, "Ready (ffmpeg version 7.1)")
	requireContains(t, out, "Staging directory")
	requireContains(t, out, "[OK]")
}
