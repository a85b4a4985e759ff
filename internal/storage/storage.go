package storage

import (
	"context"
	"time"
)

// BackupFile represents a stored backup file
type BackupFile struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// Storage defines the interface for backup storage backends
type Storage interface {
	// List returns all backups below the prefix, including nested ones.
	// An unreadable storage root is reported as an error.
	List(ctx context.Context, prefix string) ([]BackupFile, error)

	// Delete removes a backup. Deleting a missing backup is not an error.
	Delete(ctx context.Context, key string) error
}

// StorageType creates Storage instances from configuration.
// Each storage backend implements this interface to provide factory functionality.
type StorageType interface {
	// Name returns the type identifier ("local", "s3", etc.)
	Name() string

	// Create instantiates storage from pool configuration options
	Create(poolName string, options map[string]string) (Storage, error)
}
