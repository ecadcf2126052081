package staging

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gofrs/flock"

	"vidsteg/internal/services"
)

const lockSuffix = ".lock"

// ErrWorkspaceBusy reports that another process holds the workspace lock.
var ErrWorkspaceBusy = errors.New("staging workspace is in use")

// Workspace is a locked scratch directory for a single encode or decode run.
type Workspace struct {
	Path     string
	lockPath string
	lock     *flock.Flock
	once     sync.Once
	err      error
}

// Acquire creates root/<kind>-<id> and takes an exclusive lock on its sibling
// lock file. Callers must Release the workspace when the run ends.
func Acquire(root, kind, id string) (*Workspace, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, services.Wrap(services.ErrConfiguration, "staging", "acquire", "staging_dir is not configured", nil)
	}
	kind = strings.TrimSpace(kind)
	id = strings.TrimSpace(id)
	if kind == "" || id == "" || strings.ContainsAny(kind+id, `/\`) {
		return nil, services.Wrap(services.ErrValidation, "staging", "acquire", fmt.Sprintf("invalid workspace name %q-%q", kind, id), nil)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create staging dir: %w", err)
	}

	name := kind + "-" + id
	lockPath := filepath.Join(root, name+lockSuffix)
	lock := flock.New(lockPath)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire workspace lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrWorkspaceBusy, name)
	}

	path := filepath.Join(root, name)
	if err := os.MkdirAll(path, 0o755); err != nil {
		_ = lock.Unlock()
		_ = os.Remove(lockPath)
		return nil, fmt.Errorf("create workspace: %w", err)
	}
	return &Workspace{Path: path, lockPath: lockPath, lock: lock}, nil
}

// Join returns a path inside the workspace.
func (w *Workspace) Join(elem ...string) string {
	return filepath.Join(append([]string{w.Path}, elem...)...)
}

// Release removes the workspace directory and its lock file. It is safe to
// call more than once; only the first call does any work.
func (w *Workspace) Release() error {
	if w == nil {
		return nil
	}
	w.once.Do(func() {
		removeErr := os.RemoveAll(w.Path)
		unlockErr := w.lock.Unlock()
		lockFileErr := os.Remove(w.lockPath)
		if os.IsNotExist(lockFileErr) {
			lockFileErr = nil
		}
		w.err = errors.Join(removeErr, unlockErr, lockFileErr)
	})
	return w.err
}

// tryClaim takes the lock guarding dir when it is free. A nil lock with ok set
// means dir has no lock file at all.
func tryClaim(dir string) (*flock.Flock, bool, error) {
	lockPath := dir + lockSuffix
	if _, err := os.Stat(lockPath); os.IsNotExist(err) {
		return nil, true, nil
	}
	lock := flock.New(lockPath)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	return lock, true, nil
}
