package objectstore

import (
	"fmt"

	"cloud.google.com/go/storage"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/nyulibraries/ultraviolet-cli/internal/config"
)

// Factory creates bucket stores from location configurations.
type Factory struct {
	awsConfig aws.Config
	gcsClient *storage.Client
}

// NewFactory creates a new factory.
func NewFactory(awsConfig aws.Config, gcsClient *storage.Client) *Factory {
	return &Factory{
		awsConfig: awsConfig,
		gcsClient: gcsClient,
	}
}

// Open returns the bucket store for a location, keyed by its platform.
func (f *Factory) Open(loc config.LocationConfig) (BucketStore, error) {
	switch loc.Platform {
	case PlatformS3:
		client := s3.NewFromConfig(f.awsConfig)
		return NewS3BucketStore(client, loc.Bucket, loc.Prefix), nil
	case PlatformGCS:
		if f.gcsClient == nil {
			return nil, fmt.Errorf("GCS client not configured")
		}
		return NewGCSBucketStore(f.gcsClient, loc.Bucket, loc.Prefix), nil
	default:
		return nil, fmt.Errorf("unsupported storage platform: %s", loc.Platform)
	}
}
