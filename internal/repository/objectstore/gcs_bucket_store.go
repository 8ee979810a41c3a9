package objectstore

import (
	"context"
	"fmt"
	"io"
	"path"

	"cloud.google.com/go/storage"
	log "github.com/sirupsen/logrus"

	"github.com/nyulibraries/ultraviolet-cli/internal/domain"
)

// GCSBucketStore implements BucketStore for Google Cloud Storage. GCS has no
// native multipart API; parts are staged as numbered objects and merged with
// the composer.
type GCSBucketStore struct {
	client *storage.Client
	bucket string
	prefix string
}

// NewGCSBucketStore initializes a new GCSBucketStore.
func NewGCSBucketStore(client *storage.Client, bucket, prefix string) *GCSBucketStore {
	return &GCSBucketStore{
		client: client,
		bucket: bucket,
		prefix: prefix,
	}
}

func (g *GCSBucketStore) Bucket() string {
	return g.bucket
}

func (g *GCSBucketStore) Platform() string {
	return PlatformGCS
}

func (g *GCSBucketStore) fullKey(key string) string {
	if g.prefix == "" {
		return key
	}
	return path.Join(g.prefix, key)
}

// Put stores a whole object in one shot.
func (g *GCSBucketStore) Put(ctx context.Context, key string, r io.Reader, size int64) (domain.StoredObjectRef, error) {
	fullKey := g.fullKey(key)
	log.Debugf("Putting gs://%s/%s (%d bytes)", g.bucket, fullKey, size)

	w := g.client.Bucket(g.bucket).Object(fullKey).NewWriter(ctx)
	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		return domain.StoredObjectRef{}, fmt.Errorf("writing to GCS: %w", err)
	}
	if err := w.Close(); err != nil {
		return domain.StoredObjectRef{}, fmt.Errorf("committing GCS object: %w", err)
	}
	return domain.StoredObjectRef{
		Bucket: g.bucket,
		Key:    fullKey,
		Size:   size,
	}, nil
}

// CreateMultipart opens a composer-backed multipart upload.
func (g *GCSBucketStore) CreateMultipart(ctx context.Context, key string, size, chunkSize int64) (Multipart, error) {
	// The composer merges at most 32 source objects in one call.
	if parts := (size + chunkSize - 1) / chunkSize; parts > 32 {
		return nil, fmt.Errorf("gcs composer supports at most 32 parts, need %d (increase chunk size)", parts)
	}
	return &gcsMultipart{
		client: g.client,
		bucket: g.bucket,
		key:    g.fullKey(key),
		size:   size,
	}, nil
}

// Delete removes an object.
func (g *GCSBucketStore) Delete(ctx context.Context, key string) error {
	if err := g.client.Bucket(g.bucket).Object(g.fullKey(key)).Delete(ctx); err != nil {
		return fmt.Errorf("deleting from GCS: %w", err)
	}
	return nil
}

type gcsMultipart struct {
	client *storage.Client
	bucket string
	key    string
	size   int64
	staged []string
}

func (m *gcsMultipart) partKey(n int64) string {
	return fmt.Sprintf("%s.part_%d", m.key, n)
}

// PutPart stages part n as its own committed object.
func (m *gcsMultipart) PutPart(ctx context.Context, n int64, r io.Reader, size int64) error {
	partKey := m.partKey(n)
	w := m.client.Bucket(m.bucket).Object(partKey).NewWriter(ctx)
	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		return fmt.Errorf("staging part %d: %w", n, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("committing part %d: %w", n, err)
	}
	m.staged = append(m.staged, partKey)
	return nil
}

// Complete composes staged parts into the final object and removes them.
func (m *gcsMultipart) Complete(ctx context.Context, versionID string) (domain.StoredObjectRef, error) {
	bucket := m.client.Bucket(m.bucket)

	srcs := make([]*storage.ObjectHandle, len(m.staged))
	for i, key := range m.staged {
		srcs[i] = bucket.Object(key)
	}

	composer := bucket.Object(m.key).ComposerFrom(srcs...)
	if _, err := composer.Run(ctx); err != nil {
		return domain.StoredObjectRef{}, fmt.Errorf("composing %s: %w", m.key, err)
	}

	for _, key := range m.staged {
		if err := bucket.Object(key).Delete(ctx); err != nil {
			log.Warnf("Failed to delete staged part %s: %v", key, err)
		}
	}

	return domain.StoredObjectRef{
		Bucket:    m.bucket,
		Key:       m.key,
		VersionID: versionID,
		Size:      m.size,
	}, nil
}

// Abort removes staged parts.
func (m *gcsMultipart) Abort(ctx context.Context) error {
	bucket := m.client.Bucket(m.bucket)
	for _, key := range m.staged {
		if err := bucket.Object(key).Delete(ctx); err != nil {
			return fmt.Errorf("removing staged part %s: %w", key, err)
		}
	}
	m.staged = nil
	return nil
}
