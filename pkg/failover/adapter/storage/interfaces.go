// Package storage defines the common interfaces for storage adapters.
// These interfaces abstract object storage operations so the orchestrator can
// archive execution history to different backends (e.g., local file system,
// object stores) through a unified API.
package storage

import (
	"context"
	"io"
)

// StorageExecutor defines generic storage operations.
// It is embedded into StorageConnection to provide concrete storage functionalities.
type StorageExecutor interface {
	// Upload uploads data to the specified bucket and object name.
	// 'data' is the stream of data to upload. 'contentType' is the MIME type of the data.
	Upload(ctx context.Context, bucket, objectName string, data io.Reader, contentType string) error
	// Download downloads data from the specified bucket and object name.
	// It returns a ReadCloser which must be closed by the caller after use.
	Download(ctx context.Context, bucket, objectName string) (io.ReadCloser, error)
	// ListObjects lists objects within the specified bucket and prefix.
	// The 'fn' callback function is called for each object name found.
	ListObjects(ctx context.Context, bucket, prefix string, fn func(objectName string) error) error
	// DeleteObject deletes the specified object from the bucket.
	DeleteObject(ctx context.Context, bucket, objectName string) error
}

// StorageConnection represents a single named storage connection.
type StorageConnection interface {
	StorageExecutor

	// Close releases any resources held by the connection.
	Close() error
	// Type returns the backend type of this connection (e.g., "local").
	Type() string
	// Name returns the configured name of this connection.
	Name() string
}

// StorageProvider manages the acquisition and lifecycle of storage connections
// of one backend type.
type StorageProvider interface {
	// GetConnection retrieves a StorageConnection with the specified name.
	GetConnection(name string) (StorageConnection, error)
	// CloseAll closes all connections managed by this provider.
	CloseAll() error
	// Type returns the backend type handled by this provider (e.g., "local").
	Type() string
	// ForceReconnect forces the closure and re-establishment of an existing
	// connection with the specified name.
	ForceReconnect(name string) (StorageConnection, error)
}

// StorageConnectionResolver resolves named storage connections by looking up
// the backend type in configuration and dispatching to the matching provider.
type StorageConnectionResolver interface {
	// ResolveStorageConnection resolves a StorageConnection instance by name.
	ResolveStorageConnection(ctx context.Context, name string) (StorageConnection, error)
}
