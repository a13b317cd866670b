//go:build integration

package storage

import (
	"context"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	testAccessKey = "minioadmin"
	testSecretKey = "minioadmin"
	testRegion    = "us-east-1"
	testBucket    = "test-bucket"
)

// setupMinIOContainer starts a MinIO container for S3-compatible testing.
func setupMinIOContainer(t *testing.T) (string, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "minio/minio:latest",
		ExposedPorts: []string{"9000/tcp"},
		Env: map[string]string{
			"MINIO_ROOT_USER":     testAccessKey,
			"MINIO_ROOT_PASSWORD": testSecretKey,
		},
		Cmd: []string{"server", "/data"},
		WaitingFor: wait.ForHTTP("/minio/health/live").
			WithPort("9000/tcp").
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err, "failed to start MinIO container")

	host, err := container.Host(ctx)
	require.NoError(t, err)

	port, err := container.MappedPort(ctx, "9000")
	require.NoError(t, err)

	url := fmt.Sprintf("http://%s:%s", host, port.Port())

	require.NoError(t, createBucketAndSeed(ctx, url, testBucket, nil))

	return url, func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}
}

// createBucketAndSeed creates the test bucket and uploads any seed objects
// (keyed by object key -> content) using a raw SDK client, independent of
// the Client under test.
func createBucketAndSeed(ctx context.Context, url, bucket string, seed map[string]string) error {
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(testRegion),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(testAccessKey, testSecretKey, "")),
		config.WithEndpointResolverWithOptions(aws.EndpointResolverWithOptionsFunc(
			func(service, region string, options ...interface{}) (aws.Endpoint, error) {
				return aws.Endpoint{URL: url, SigningRegion: region, HostnameImmutable: true}, nil
			})),
	)
	if err != nil {
		return err
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) { o.UsePathStyle = true })

	if _, err := client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)}); err != nil {
		if _, err := client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(bucket)}); err != nil {
			return err
		}
	}

	for key, content := range seed {
		if _, err := client.PutObject(ctx, &s3.PutObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
			Body:   strings.NewReader(content),
		}); err != nil {
			return err
		}
	}

	return nil
}

func TestClient_Open_Integration(t *testing.T) {
	url, cleanup := setupMinIOContainer(t)
	defer cleanup()

	ctx := context.Background()
	require.NoError(t, createBucketAndSeed(ctx, url, testBucket, map[string]string{
		"paper/1.20.4/build-1.jar": "jar bytes",
	}))

	client, err := New(ctx, Config{
		Endpoint:  url,
		Region:    testRegion,
		Bucket:    testBucket,
		AccessKey: testAccessKey,
		SecretKey: testSecretKey,
		PathStyle: true,
	})
	require.NoError(t, err)

	rc, err := client.Open(ctx, "paper/1.20.4/build-1.jar")
	require.NoError(t, err)
	defer rc.Close()

	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "jar bytes", string(body))
}

func TestClient_Open_Integration_NotFound(t *testing.T) {
	url, cleanup := setupMinIOContainer(t)
	defer cleanup()

	ctx := context.Background()
	client, err := New(ctx, Config{
		Endpoint:  url,
		Region:    testRegion,
		Bucket:    testBucket,
		AccessKey: testAccessKey,
		SecretKey: testSecretKey,
		PathStyle: true,
	})
	require.NoError(t, err)

	_, err = client.Open(ctx, "does/not/exist.jar")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClient_Head_Integration(t *testing.T) {
	url, cleanup := setupMinIOContainer(t)
	defer cleanup()

	ctx := context.Background()
	require.NoError(t, createBucketAndSeed(ctx, url, testBucket, map[string]string{
		"velocity/3.3/build-9.jar": "0123456789",
	}))

	client, err := New(ctx, Config{
		Endpoint:  url,
		Region:    testRegion,
		Bucket:    testBucket,
		AccessKey: testAccessKey,
		SecretKey: testSecretKey,
		PathStyle: true,
	})
	require.NoError(t, err)

	size, err := client.Head(ctx, "velocity/3.3/build-9.jar")
	require.NoError(t, err)
	assert.Equal(t, int64(10), size)
}
