package main

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"vidsteg/internal/config"
	"vidsteg/internal/fileutil"
	"vidsteg/internal/framestore"
	"vidsteg/internal/pipeline"
	"vidsteg/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	baseDir    string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)
	t.Setenv(secretEnvVar, "")
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())

	configPath := filepath.Join(homeDir, ".config", "vidsteg", "config.toml")
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	writeTestConfig(t, configPath, cfg)

	useFakeFrameStore(t)

	return &cliTestEnv{
		cfg:        cfg,
		configPath: configPath,
		baseDir:    base,
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(`[paths]
staging_dir = %q
output_dir = %q
log_dir = %q

[video]
fragment_budget = %d

[crypto]
argon2_time = %d
argon2_memory_kib = %d
argon2_threads = %d
rsa_key_bits = %d

[logging]
level = "error"
`,
		cfg.Paths.StagingDir,
		cfg.Paths.OutputDir,
		cfg.Paths.LogDir,
		cfg.Video.FragmentBudget,
		cfg.Crypto.Argon2Time,
		cfg.Crypto.Argon2MemoryKiB,
		cfg.Crypto.Argon2Threads,
		cfg.Crypto.RSAKeyBits,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

// cliFrames replaces ffmpeg in CLI tests. A "video" is a file holding the
// path of a directory of numbered PNG frames.
type cliFrames struct {
	t *testing.T
}

func useFakeFrameStore(t *testing.T) {
	t.Helper()
	previous := newFrameStore
	newFrameStore = func(*config.Config, *slog.Logger) pipeline.FrameStore {
		return cliFrames{t: t}
	}
	t.Cleanup(func() { newFrameStore = previous })
}

func (f cliFrames) Extract(_ context.Context, video, dir string) (framestore.FrameSet, error) {
	return f.copyFrames(video, dir, -1)
}

func (f cliFrames) ExtractUpTo(_ context.Context, video, dir string, last int) (framestore.FrameSet, error) {
	return f.copyFrames(video, dir, last)
}

func (f cliFrames) Reassemble(_ context.Context, req framestore.ReassembleRequest) error {
	archive := f.t.TempDir()
	for i := range req.Frames.Count {
		if err := fileutil.CopyFile(framestore.FramePath(req.Frames.Dir, i), framestore.FramePath(archive, i)); err != nil {
			return err
		}
	}
	if err := os.MkdirAll(filepath.Dir(req.Output), 0o755); err != nil {
		return err
	}
	return os.WriteFile(req.Output, []byte(archive), 0o644)
}

func (f cliFrames) copyFrames(video, dir string, last int) (framestore.FrameSet, error) {
	src, err := os.ReadFile(video)
	if err != nil {
		return framestore.FrameSet{}, err
	}
	total, err := framestore.CountFrames(string(src))
	if err != nil {
		return framestore.FrameSet{}, err
	}
	if last >= 0 {
		total = min(total, last+1)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return framestore.FrameSet{}, err
	}
	for i := range total {
		if err := fileutil.CopyFile(framestore.FramePath(string(src), i), framestore.FramePath(dir, i)); err != nil {
			return framestore.FrameSet{}, err
		}
	}
	return framestore.FrameSet{Source: video, Dir: dir, Count: total, FrameRate: "30"}, nil
}

func writeSourceVideo(t *testing.T, frames int) string {
	t.Helper()
	base := t.TempDir()
	frameDir := filepath.Join(base, "frames")
	testsupport.WriteFrames(t, frameDir, frames, 16, 16)
	video := filepath.Join(base, "clip.mp4")
	if err := os.WriteFile(video, []byte(frameDir), 0o644); err != nil {
		t.Fatalf("write source video: %v", err)
	}
	return video
}
