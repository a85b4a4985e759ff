// Package discovery finds backup files in a storage backend.
package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/shyim/backup-pruner/internal/storage"
)

// Lister lists backup files below a prefix. storage.Storage satisfies it.
type Lister interface {
	List(ctx context.Context, prefix string) ([]storage.BackupFile, error)
}

// Options controls which files are considered backups
type Options struct {
	// Prefix is the directory inside the storage to search
	Prefix string
	// Extensions are matched against the end of the file name, e.g. "tar" or "tar.gz"
	Extensions []string
	// Recursive includes files in nested directories
	Recursive bool
}

// Error is returned when the backup root cannot be read. No group can be
// formed after it, so callers should abort the run.
type Error struct {
	Prefix string
	Err    error
}

func (e *Error) Error() string {
	if e.Prefix == "" {
		return fmt.Sprintf("discovery failed: %v", e.Err)
	}
	return fmt.Sprintf("discovery failed for %s: %v", e.Prefix, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Find lists the storage and returns the files matching opts
func Find(ctx context.Context, lister Lister, opts Options) ([]storage.BackupFile, error) {
	suffixes := make([]string, 0, len(opts.Extensions))
	for _, ext := range opts.Extensions {
		ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
		if ext != "" {
			suffixes = append(suffixes, "."+ext)
		}
	}
	if len(suffixes) == 0 {
		return nil, fmt.Errorf("no file extensions configured")
	}

	prefix := strings.Trim(opts.Prefix, "/")

	files, err := lister.List(ctx, prefix)
	if err != nil {
		return nil, &Error{Prefix: prefix, Err: err}
	}

	matched := make([]storage.BackupFile, 0, len(files))
	for _, f := range files {
		rel := f.Key
		if prefix != "" {
			if !strings.HasPrefix(rel, prefix+"/") {
				continue
			}
			rel = strings.TrimPrefix(rel, prefix+"/")
		}

		if !opts.Recursive && strings.Contains(rel, "/") {
			continue
		}

		if !hasSuffix(strings.ToLower(path.Base(rel)), suffixes) {
			continue
		}

		matched = append(matched, f)
	}

	slog.Debug("discovered backups",
		"prefix", prefix,
		"listed", len(files),
		"matched", len(matched),
	)

	return matched, nil
}

func hasSuffix(name string, suffixes []string) bool {
	for _, s := range suffixes {
		// "x.tar" matches "tar" but ".tar" alone is not a backup
		if len(name) > len(s) && strings.HasSuffix(name, s) {
			return true
		}
	}
	return false
}
