// Package objectstore provides the bucket-store backends that hold record
// files, plus the factory and location registry that pick a backend for a
// named storage location.
package objectstore

import (
	"context"
	"io"

	"github.com/nyulibraries/ultraviolet-cli/internal/domain"
)

// BucketStore is one storage bucket backing a draft. Keys are relative to the
// location's prefix.
type BucketStore interface {
	// Put stores a whole object in one shot.
	Put(ctx context.Context, key string, r io.Reader, size int64) (domain.StoredObjectRef, error)
	// CreateMultipart opens a multipart upload descriptor for an object of
	// the given total size, split into chunkSize parts.
	CreateMultipart(ctx context.Context, key string, size, chunkSize int64) (Multipart, error)
	// Delete removes an object.
	Delete(ctx context.Context, key string) error
	// Bucket returns the backing bucket name.
	Bucket() string
	// Platform returns the backend identifier ("s3" or "gcs").
	Platform() string
}

// Multipart is an in-flight multipart upload. Part indexes are zero-based
// and must be submitted sequentially; each successful PutPart is durable, so
// an aborted upload never leaves a corrupted merged object.
type Multipart interface {
	PutPart(ctx context.Context, n int64, r io.Reader, size int64) error
	// Complete merges all submitted parts into one stored object tagged with
	// versionID.
	Complete(ctx context.Context, versionID string) (domain.StoredObjectRef, error)
	// Abort rolls back the upload, discarding submitted parts.
	Abort(ctx context.Context) error
}

// Platform identifiers.
const (
	PlatformS3  = "s3"
	PlatformGCS = "gcs"
)
