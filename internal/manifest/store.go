package manifest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"epub2audio/internal/fileutil"
	"epub2audio/internal/services"
)

const lockRetryDelay = 50 * time.Millisecond

// Load reads a manifest from path.
func Load(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Manifest{}, services.Wrap(services.ErrNotFound, "manifest", "load", fmt.Sprintf("manifest not found at %s", path), err)
		}
		return Manifest{}, fmt.Errorf("read manifest %s: %w", path, err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Manifest{}, services.Wrap(services.ErrParse, "manifest", "load", fmt.Sprintf("invalid manifest JSON at %s", path), err)
	}
	return m, nil
}

// Save writes m to path under the manifest lock.
func Save(ctx context.Context, path string, m Manifest) error {
	return withLock(ctx, path, func() error {
		return write(path, m)
	})
}

// Update loads the manifest at path, applies fn, and saves the result while
// holding the lock for the whole read-modify-write cycle.
func Update(ctx context.Context, path string, fn func(*Manifest) error) error {
	return withLock(ctx, path, func() error {
		m, err := Load(path)
		if err != nil {
			return err
		}
		if err := fn(&m); err != nil {
			return err
		}
		return write(path, m)
	})
}

// SaveMerged merges rebuilt into any manifest already at path and saves it.
func SaveMerged(ctx context.Context, path string, rebuilt Manifest) (Manifest, error) {
	var merged Manifest
	err := withLock(ctx, path, func() error {
		existing, err := Load(path)
		switch {
		case err == nil:
			merged = Merge(existing, rebuilt)
		case errors.Is(err, services.ErrNotFound):
			merged = rebuilt
		default:
			return err
		}
		return write(path, merged)
	})
	return merged, err
}

func write(path string, m Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	data = append(data, '\n')
	if err := fileutil.WriteFileAtomic(path, data, 0o644); err != nil {
		return fmt.Errorf("write manifest %s: %w", path, err)
	}
	return nil
}

func withLock(ctx context.Context, path string, fn func() error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create manifest directory: %w", err)
	}
	lock := flock.New(path + ".lock")
	ok, err := lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("acquire manifest lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("acquire manifest lock: %s is held by another process", path)
	}
	defer func() { _ = lock.Unlock() }()
	return fn()
}
