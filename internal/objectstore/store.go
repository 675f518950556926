// Package objectstore uploads backup archives to object storage and reads
// them back for verification.
package objectstore

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned by FetchObject when the object does not exist.
// It is distinct from other storage failures so callers can treat a missing
// object as information rather than an error.
var ErrNotFound = errors.New("object not found")

// Object is a readable stored object.
type Object struct {
	// Body streams the object bytes. Callers must close it.
	Body io.ReadCloser
	// ContentLength is the length declared by the backend, or -1 when unknown.
	ContentLength int64
}

// Store is the object storage contract used by the backup workflow.
type Store interface {
	// Upload streams the local file to bucket/key, overwriting any existing object.
	Upload(ctx context.Context, localPath, bucket, key string, metadata map[string]string) error

	// FetchObject opens bucket/key for reading.
	// Returns an error wrapping ErrNotFound if the object does not exist.
	FetchObject(ctx context.Context, bucket, key string) (*Object, error)
}
