package s3

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skiffdb/skiff/pkg/errors"
)

type fakeAPI struct {
	in   *awss3.GetObjectInput
	body string
	err  error
}

func (f *fakeAPI) GetObject(ctx context.Context, params *awss3.GetObjectInput, optFns ...func(*awss3.Options)) (*awss3.GetObjectOutput, error) {
	f.in = params
	if f.err != nil {
		return nil, f.err
	}
	return &awss3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(f.body))}, nil
}

func TestParseLocation(t *testing.T) {
	tests := []struct {
		location string
		bucket   string
		key      string
		wantErr  bool
	}{
		{"s3://bucket/results/out.csv", "bucket", "results/out.csv", false},
		{"bucket/out.csv", "bucket", "out.csv", false},
		{"  s3://bucket/out.csv  ", "bucket", "out.csv", false},
		{"", "", "", true},
		{"s3://", "", "", true},
		{"s3://bucket", "", "", true},
		{"s3://bucket/", "", "", true},
		{"s3:///key", "", "", true},
	}

	for _, tt := range tests {
		bucket, key, err := ParseLocation(tt.location)
		if tt.wantErr {
			assert.Error(t, err, "location %q", tt.location)
			continue
		}
		require.NoError(t, err, "location %q", tt.location)
		assert.Equal(t, tt.bucket, bucket)
		assert.Equal(t, tt.key, key)
	}
}

func TestGetFetchesBlob(t *testing.T) {
	api := &fakeAPI{body: "a,b\n1,2\n"}
	store := newStoreWithAPI(api, zerolog.Nop())

	body, err := store.Get(context.Background(), "s3://bucket/results/out.csv")
	require.NoError(t, err)
	defer body.Close()

	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "a,b\n1,2\n", string(data))

	assert.Equal(t, "bucket", aws.ToString(api.in.Bucket))
	assert.Equal(t, "results/out.csv", aws.ToString(api.in.Key))
}

func TestGetWrapsFetchFailure(t *testing.T) {
	api := &fakeAPI{err: io.ErrUnexpectedEOF}
	store := newStoreWithAPI(api, zerolog.Nop())

	_, err := store.Get(context.Background(), "s3://bucket/out.csv")
	require.Error(t, err)
	assert.Equal(t, errors.CodeNotFound, errors.GetCode(err))
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestGetRejectsBadLocation(t *testing.T) {
	store := newStoreWithAPI(&fakeAPI{}, zerolog.Nop())

	_, err := store.Get(context.Background(), "")
	assert.ErrorIs(t, err, errors.ErrEmptyLocation)
}
