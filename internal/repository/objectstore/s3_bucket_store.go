package objectstore

import (
	"context"
	"fmt"
	"io"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	log "github.com/sirupsen/logrus"

	"github.com/nyulibraries/ultraviolet-cli/internal/domain"
)

// S3BucketStore implements BucketStore against an S3 bucket.
type S3BucketStore struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3BucketStore initializes a new S3BucketStore.
func NewS3BucketStore(client *s3.Client, bucket, prefix string) *S3BucketStore {
	return &S3BucketStore{
		client: client,
		bucket: bucket,
		prefix: prefix,
	}
}

func (s *S3BucketStore) Bucket() string {
	return s.bucket
}

func (s *S3BucketStore) Platform() string {
	return PlatformS3
}

func (s *S3BucketStore) fullKey(key string) string {
	if s.prefix == "" {
		return key
	}
	return path.Join(s.prefix, key)
}

// Put stores a whole object in one shot.
func (s *S3BucketStore) Put(ctx context.Context, key string, r io.Reader, size int64) (domain.StoredObjectRef, error) {
	fullKey := s.fullKey(key)
	log.Debugf("Putting s3://%s/%s (%d bytes)", s.bucket, fullKey, size)

	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(fullKey),
		Body:   r,
	}
	if size >= 0 {
		input.ContentLength = aws.Int64(size)
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return domain.StoredObjectRef{}, err
	}
	return domain.StoredObjectRef{
		Bucket: s.bucket,
		Key:    fullKey,
		Size:   size,
	}, nil
}

// CreateMultipart opens an S3 multipart upload for the object.
func (s *S3BucketStore) CreateMultipart(ctx context.Context, key string, size, chunkSize int64) (Multipart, error) {
	fullKey := s.fullKey(key)
	out, err := s.client.CreateMultipartUpload(ctx, &s3.CreateMultipartUploadInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(fullKey),
	})
	if err != nil {
		return nil, err
	}
	log.Debugf("Opened multipart upload %s for s3://%s/%s", aws.ToString(out.UploadId), s.bucket, fullKey)
	return &s3Multipart{
		client:   s.client,
		bucket:   s.bucket,
		key:      fullKey,
		uploadID: aws.ToString(out.UploadId),
		size:     size,
	}, nil
}

// Delete removes an object.
func (s *S3BucketStore) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.fullKey(key)),
	})
	return err
}

type s3Multipart struct {
	client   *s3.Client
	bucket   string
	key      string
	uploadID string
	size     int64
	parts    []types.CompletedPart
}

// PutPart submits part n. S3 numbers parts from 1; callers index from 0.
func (m *s3Multipart) PutPart(ctx context.Context, n int64, r io.Reader, size int64) error {
	partNumber := int32(n) + 1
	out, err := m.client.UploadPart(ctx, &s3.UploadPartInput{
		Bucket:        aws.String(m.bucket),
		Key:           aws.String(m.key),
		UploadId:      aws.String(m.uploadID),
		PartNumber:    aws.Int32(partNumber),
		Body:          r,
		ContentLength: aws.Int64(size),
	})
	if err != nil {
		return err
	}
	m.parts = append(m.parts, types.CompletedPart{
		ETag:       out.ETag,
		PartNumber: aws.Int32(partNumber),
	})
	return nil
}

func (m *s3Multipart) Complete(ctx context.Context, versionID string) (domain.StoredObjectRef, error) {
	_, err := m.client.CompleteMultipartUpload(ctx, &s3.CompleteMultipartUploadInput{
		Bucket:   aws.String(m.bucket),
		Key:      aws.String(m.key),
		UploadId: aws.String(m.uploadID),
		MultipartUpload: &types.CompletedMultipartUpload{
			Parts: m.parts,
		},
	})
	if err != nil {
		return domain.StoredObjectRef{}, err
	}
	return domain.StoredObjectRef{
		Bucket:    m.bucket,
		Key:       m.key,
		VersionID: versionID,
		Size:      m.size,
	}, nil
}

func (m *s3Multipart) Abort(ctx context.Context) error {
	_, err := m.client.AbortMultipartUpload(ctx, &s3.AbortMultipartUploadInput{
		Bucket:   aws.String(m.bucket),
		Key:      aws.String(m.key),
		UploadId: aws.String(m.uploadID),
	})
	if err != nil {
		return fmt.Errorf("aborting multipart upload for %s: %w", m.key, err)
	}
	return nil
}
