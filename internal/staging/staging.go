// Package staging manages the scratch directory used by the staged
// transcoder: choosing where it lives and sweeping files left behind by
// conversions that never finished (for example after a crash).
package staging

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

const subdir = "opus2mp3"

// shmDir is a memory-backed filesystem on most Linux systems.
var shmDir = "/dev/shm"

// stagedName matches files created by the staged transcoder.
var stagedName = regexp.MustCompile(`^[0-9a-f]{32}\.(opus|mp3)$`)

// DefaultDir returns the preferred staging directory: a subdirectory of
// /dev/shm when it is usable, otherwise of the OS temp dir.
func DefaultDir() string {
	if writable(shmDir) {
		return filepath.Join(shmDir, subdir)
	}
	return filepath.Join(os.TempDir(), subdir)
}

// EnsureDir creates dir if needed, or DefaultDir when dir is blank, and
// returns the directory in use.
func EnsureDir(dir string) (string, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		dir = DefaultDir()
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}
	return dir, nil
}

func writable(dir string) bool {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return false
	}
	f, err := os.CreateTemp(dir, ".probe-*")
	if err != nil {
		return false
	}
	name := f.Name()
	f.Close()
	os.Remove(name)
	return true
}

// SweepResult contains the outcome of a sweep.
type SweepResult struct {
	Removed []string
	Errors  []SweepError
}

// SweepError pairs a path with the error hit while removing it.
type SweepError struct {
	Path  string
	Error error
}

// Sweep removes staged files in dir whose modification time is older than
// maxAge. Files not named like staged files are left alone.
func Sweep(ctx context.Context, dir string, maxAge time.Duration, logger *slog.Logger) SweepResult {
	result := SweepResult{}
	if logger == nil {
		logger = slog.Default()
	}

	dir = strings.TrimSpace(dir)
	if dir == "" {
		return result
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			result.Errors = append(result.Errors, SweepError{Path: dir, Error: err})
		}
		return result
	}

	cutoff := time.Now().Add(-maxAge)

	for _, entry := range entries {
		if entry.IsDir() || !stagedName.MatchString(entry.Name()) {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		info, err := entry.Info()
		if err != nil {
			// Removed by its owner between ReadDir and now.
			if os.IsNotExist(err) {
				continue
			}
			result.Errors = append(result.Errors, SweepError{Path: path, Error: err})
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}

		if err := os.Remove(path); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			result.Errors = append(result.Errors, SweepError{Path: path, Error: err})
			logger.WarnContext(ctx, "failed to remove stale staging file",
				slog.String("path", path),
				slog.Any("error", err),
			)
			continue
		}

		result.Removed = append(result.Removed, path)
		logger.InfoContext(ctx, "removed stale staging file",
			slog.String("path", path),
			slog.Duration("age", time.Since(info.ModTime())),
		)
	}

	return result
}
