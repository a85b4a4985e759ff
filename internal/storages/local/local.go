package local

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/shyim/backup-pruner/internal/storage"
)

func init() {
	storage.Register(&LocalStorageType{})
}

// LocalStorageType is the factory for local storage
type LocalStorageType struct{}

// Name returns the storage type identifier
func (t *LocalStorageType) Name() string {
	return "local"
}

// Create instantiates a new local storage from options.
// The directory is not created: a missing backup root is reported by List.
func (t *LocalStorageType) Create(poolName string, options map[string]string) (storage.Storage, error) {
	path, ok := options["path"]
	if !ok || path == "" {
		return nil, fmt.Errorf("local storage requires 'path' option")
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve storage path: %w", err)
	}

	return &LocalStorage{basePath: absPath}, nil
}

// LocalStorage implements Storage for local filesystem
type LocalStorage struct {
	basePath string
}

// List returns all files below the prefix in walk order. Keys are slash
// separated and relative to the base path.
func (l *LocalStorage) List(ctx context.Context, prefix string) ([]storage.BackupFile, error) {
	info, err := os.Stat(l.basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read backup root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("backup root %s is not a directory", l.basePath)
	}

	searchPath := filepath.Join(l.basePath, filepath.FromSlash(prefix))
	if _, err := os.Stat(searchPath); os.IsNotExist(err) {
		return nil, nil
	}

	var files []storage.BackupFile

	err = filepath.WalkDir(searchPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if d.IsDir() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}

		relPath, err := filepath.Rel(l.basePath, path)
		if err != nil {
			return err
		}

		files = append(files, storage.BackupFile{
			Key:          filepath.ToSlash(relPath),
			Size:         info.Size(),
			LastModified: info.ModTime(),
		})

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}

	return files, nil
}

// Delete removes a backup file
func (l *LocalStorage) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	fullPath := filepath.Join(l.basePath, filepath.FromSlash(key))

	if err := os.Remove(fullPath); err != nil {
		if os.IsNotExist(err) {
			return nil // Already deleted
		}
		return fmt.Errorf("failed to delete file: %w", err)
	}

	// Try to clean up empty parent directories
	dir := filepath.Dir(fullPath)
	for dir != l.basePath && len(dir) > len(l.basePath) {
		if err := os.Remove(dir); err != nil {
			break // Directory not empty or other error
		}
		dir = filepath.Dir(dir)
	}

	return nil
}
