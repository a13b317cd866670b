// Package storage is the slow upstream artifact store filecache.Cache
// falls back to on a miss: an S3-compatible bucket holding every build's
// jar/zip/installation file, addressed by the same path-component keys
// the files table stores. Adapted from a multi-backend (LakeFS/MinIO/
// Hetzner/AWS) upload toolkit down to the single streaming download path
// this registry actually needs.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// sharedHTTPClient provides connection pooling across every Client this
// process creates.
var sharedHTTPClient = &http.Client{
	Timeout: 60 * time.Second,
	Transport: &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 20,
		IdleConnTimeout:     90 * time.Second,
	},
}

// Config describes the S3-compatible endpoint builds are stored under,
// matching config.Env's S3* fields.
type Config struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	PathStyle bool
}

// Client is the S3-compatible object store artifacts are read from.
// Implements filecache.Source.
type Client struct {
	s3     S3Client
	bucket string
}

// New builds a Client against cfg's endpoint, matching the credential/
// endpoint-resolution pattern the teacher's MinIO and Hetzner helpers
// use, generalized into one reusable constructor.
func New(ctx context.Context, cfg Config) (*Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
		awsconfig.WithEndpointResolverWithOptions(aws.EndpointResolverWithOptionsFunc(
			func(service, region string, options ...interface{}) (aws.Endpoint, error) {
				return aws.Endpoint{
					URL:               cfg.Endpoint,
					SigningRegion:     region,
					HostnameImmutable: true,
				}, nil
			})),
	)
	if err != nil {
		return nil, fmt.Errorf("load s3 configuration: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.PathStyle
		o.HTTPClient = sharedHTTPClient
	})

	return &Client{s3: client, bucket: cfg.Bucket}, nil
}

// NewWithS3Client wraps an already-configured S3Client (or MockS3Client
// in tests) directly, bypassing endpoint/credential resolution.
func NewWithS3Client(client S3Client, bucket string) *Client {
	return &Client{s3: client, bucket: bucket}
}

// ErrNotFound is returned by Open when path has no matching object.
var ErrNotFound = errors.New("storage: object not found")

// Open streams path's object body, matching filecache.Source. path
// is the same slash-joined key files.path's component array renders to.
func (c *Client) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	key := strings.TrimPrefix(path, "/")

	out, err := c.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get object %s: %w", key, err)
	}

	return out.Body, nil
}

// Head reports an object's size without downloading its body, used to
// populate File.Size for objects the database row predates.
func (c *Client) Head(ctx context.Context, path string) (int64, error) {
	key := strings.TrimPrefix(path, "/")

	out, err := c.s3.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var notFound *types.NotFound
		var noKey *types.NoSuchKey
		if errors.As(err, &notFound) || errors.As(err, &noKey) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("head object %s: %w", key, err)
	}

	if out.ContentLength == nil {
		return 0, nil
	}
	return *out.ContentLength, nil
}
