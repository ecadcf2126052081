package staging

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"vidsteg/internal/logging"
)

func TestCleanStaleInvalidPaths(t *testing.T) {
	for _, dir := range []string{"", "   ", "/nonexistent/path/12345"} {
		result := CleanStale(context.Background(), dir, time.Hour, logging.NewNop())
		if len(result.Removed) != 0 || len(result.Errors) != 0 {
			t.Errorf("expected empty result for path %q", dir)
		}
	}
}

func TestCleanStaleRemovesOldDirectories(t *testing.T) {
	tmpDir := t.TempDir()

	// Create old directory
	oldDir := filepath.Join(tmpDir, "old-staging")
	if err := os.Mkdir(oldDir, 0o755); err != nil {
		t.Fatalf("create old dir: %v", err)
	}
	// Set modification time to 2 hours ago
	oldTime := time.Now().Add(-2 * time.Hour)
	if err := os.Chtimes(oldDir, oldTime, oldTime); err != nil {
		t.Fatalf("set old time: %v", err)
	}

	// Create recent directory
	recentDir := filepath.Join(tmpDir, "recent-staging")
	if err := os.Mkdir(recentDir, 0o755); err != nil {
		t.Fatalf("create recent dir: %v", err)
	}

	result := CleanStale(context.Background(), tmpDir, time.Hour, logging.NewNop())

	if len(result.Removed) != 1 {
		t.Fatalf("expected 1 removed, got %d", len(result.Removed))
	}
	if result.Removed[0] != oldDir {
		t.Errorf("expected %s to be removed, got %s", oldDir, result.Removed[0])
	}

	// Old dir should be gone
	if _, err := os.Stat(oldDir); !os.IsNotExist(err) {
		t.Error("old directory should have been removed")
	}

	// Recent dir should still exist
	if _, err := os.Stat(recentDir); err != nil {
		t.Error("recent directory should still exist")
	}
}

func TestCleanStaleIgnoresFiles(t *testing.T) {
	tmpDir := t.TempDir()

	// Create an old file (should be ignored)
	oldFile := filepath.Join(tmpDir, "old-file.txt")
	if err := os.WriteFile(oldFile, []byte("test"), 0o644); err != nil {
		t.Fatalf("create file: %v", err)
	}
	oldTime := time.Now().Add(-2 * time.Hour)
	if err := os.Chtimes(oldFile, oldTime, oldTime); err != nil {
		t.Fatalf("set old time: %v", err)
	}

	result := CleanStale(context.Background(), tmpDir, time.Hour, logging.NewNop())

	if len(result.Removed) != 0 {
		t.Errorf("expected no removals for files, got %d", len(result.Removed))
	}

	// File should still exist
	if _, err := os.Stat(oldFile); err != nil {
		t.Error("file should not have been removed")
	}
}

func TestCleanStaleSkipsLockedWorkspace(t *testing.T) {
	root := t.TempDir()
	ws, err := Acquire(root, "encode", "busy")
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer ws.Release()

	abandoned := filepath.Join(root, "decode-abandoned")
	if err := os.Mkdir(abandoned, 0o755); err != nil {
		t.Fatalf("create abandoned dir: %v", err)
	}
	if err := os.WriteFile(abandoned+".lock", nil, 0o644); err != nil {
		t.Fatalf("create abandoned lock: %v", err)
	}
	oldTime := time.Now().Add(-48 * time.Hour)
	for _, path := range []string{ws.Path, abandoned} {
		if err := os.Chtimes(path, oldTime, oldTime); err != nil {
			t.Fatalf("set old time: %v", err)
		}
	}

	result := CleanStale(context.Background(), root, time.Hour, logging.NewNop())

	if len(result.Removed) != 1 || result.Removed[0] != abandoned {
		t.Fatalf("expected only %s removed, got %v", abandoned, result.Removed)
	}
	if len(result.Skipped) != 1 || result.Skipped[0] != ws.Path {
		t.Fatalf("expected %s skipped, got %v", ws.Path, result.Skipped)
	}
	if _, err := os.Stat(ws.Path); err != nil {
		t.Fatalf("locked workspace should survive cleanup: %v", err)
	}
	if _, err := os.Stat(abandoned + ".lock"); !os.IsNotExist(err) {
		t.Fatalf("abandoned lock file should be removed, stat err = %v", err)
	}
}

func TestCleanStaleHonorsCancellation(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "encode-old")
	if err := os.Mkdir(dir, 0o755); err != nil {
		t.Fatalf("create dir: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := CleanStale(ctx, root, 0, logging.NewNop())
	if len(result.Removed) != 0 || len(result.Errors) != 1 {
		t.Fatalf("expected cancellation error only, got %+v", result)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Fatalf("directory should remain after cancellation: %v", err)
	}
}

func TestListDirectoriesInvalidPaths(t *testing.T) {
	for _, path := range []string{"", "/nonexistent/path/12345"} {
		dirs, err := ListDirectories(path)
		if err != nil {
			t.Fatalf("unexpected error for %q: %v", path, err)
		}
		if dirs != nil {
			t.Errorf("expected nil for path %q, got %v", path, dirs)
		}
	}
}

func TestListDirectories(t *testing.T) {
	tmpDir := t.TempDir()

	// Create some directories
	dir1 := filepath.Join(tmpDir, "staging-1")
	if err := os.Mkdir(dir1, 0o755); err != nil {
		t.Fatalf("create dir1: %v", err)
	}

	dir2 := filepath.Join(tmpDir, "staging-2")
	if err := os.Mkdir(dir2, 0o755); err != nil {
		t.Fatalf("create dir2: %v", err)
	}

	// Create a file (should be ignored)
	file := filepath.Join(tmpDir, "not-a-dir.txt")
	if err := os.WriteFile(file, []byte("test"), 0o644); err != nil {
		t.Fatalf("create file: %v", err)
	}

	// Add a file inside dir1 for size calculation
	innerFile := filepath.Join(dir1, "data.bin")
	if err := os.WriteFile(innerFile, []byte("12345"), 0o644); err != nil {
		t.Fatalf("create inner file: %v", err)
	}

	dirs, err := ListDirectories(tmpDir)
	if err != nil {
		t.Fatalf("ListDirectories: %v", err)
	}

	if len(dirs) != 2 {
		t.Fatalf("expected 2 directories, got %d", len(dirs))
	}

	// Check that dir1 has the correct size
	var foundDir1 bool
	for _, d := range dirs {
		if d.Name == "staging-1" {
			foundDir1 = true
			if d.Size != 5 {
				t.Errorf("dir1 size = %d, want 5", d.Size)
			}
		}
	}
	if !foundDir1 {
		t.Error("did not find staging-1 in results")
	}
}

func TestListDirectoriesReportsLocks(t *testing.T) {
	root := t.TempDir()
	ws, err := Acquire(root, "decode", "live")
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer ws.Release()
	if err := os.Mkdir(filepath.Join(root, "encode-idle"), 0o755); err != nil {
		t.Fatalf("create idle dir: %v", err)
	}

	dirs, err := ListDirectories(root)
	if err != nil {
		t.Fatalf("ListDirectories: %v", err)
	}
	locked := map[string]bool{}
	for _, d := range dirs {
		locked[d.Name] = d.Locked
	}
	if !locked["decode-live"] || locked["encode-idle"] {
		t.Fatalf("unexpected lock state: %v", locked)
	}
}

func TestDirInfo(t *testing.T) {
	tmpDir := t.TempDir()

	dir := filepath.Join(tmpDir, "test-staging")
	if err := os.Mkdir(dir, 0o755); err != nil {
		t.Fatalf("create dir: %v", err)
	}

	dirs, err := ListDirectories(tmpDir)
	if err != nil {
		t.Fatalf("ListDirectories: %v", err)
	}

	if len(dirs) != 1 {
		t.Fatalf("expected 1 directory, got %d", len(dirs))
	}

	info := dirs[0]
	if info.Name != "test-staging" {
		t.Errorf("Name = %q, want test-staging", info.Name)
	}
	if info.Path != dir {
		t.Errorf("Path = %q, want %q", info.Path, dir)
	}
	if info.ModTime.IsZero() {
		t.Error("ModTime should not be zero")
	}
}
