// Package s3 implements the object store contract on top of AWS S3.
package s3

import (
	"context"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"

	"github.com/skiffdb/skiff/pkg/errors"
	"github.com/skiffdb/skiff/pkg/repositories"
)

// api is the subset of the S3 SDK client the store uses.
type api interface {
	GetObject(ctx context.Context, params *awss3.GetObjectInput, optFns ...func(*awss3.Options)) (*awss3.GetObjectOutput, error)
}

// Store adapts the S3 SDK client to the ObjectStore contract.
type Store struct {
	client api
	logger zerolog.Logger
}

var _ repositories.ObjectStore = (*Store)(nil)

// NewStore creates an object store backed by an S3 client.
func NewStore(client *awss3.Client, logger zerolog.Logger) *Store {
	return &Store{client: client, logger: logger}
}

// newStoreWithAPI is the test seam for injecting a fake SDK client.
func newStoreWithAPI(client api, logger zerolog.Logger) *Store {
	return &Store{client: client, logger: logger}
}

// Get fetches the result blob at the engine-reported output location.
func (s *Store) Get(ctx context.Context, location string) (io.ReadCloser, error) {
	bucket, key, err := ParseLocation(location)
	if err != nil {
		return nil, err
	}

	s.logger.Debug().Str("bucket", bucket).Str("key", key).Msg("fetching result blob")

	out, err := s.client.GetObject(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, errors.Wrapf(err, errors.CodeNotFound,
			"failed to fetch result blob s3://%s/%s", bucket, key)
	}
	return out.Body, nil
}

// ParseLocation splits an output location like "s3://bucket/prefix/file"
// into bucket and key. The scheme prefix is optional.
func ParseLocation(location string) (bucket, key string, err error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(location), "s3://")
	if trimmed == "" {
		return "", "", errors.ErrEmptyLocation
	}

	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", errors.Newf(errors.CodeInvalidRequest,
			"output location %q has no bucket/key split", location)
	}
	return parts[0], parts[1], nil
}
