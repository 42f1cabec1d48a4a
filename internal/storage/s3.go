// Package storage is the gateway to the S3-compatible object store holding
// uploaded certificate files. Keys are content-addressed:
// certificates/{enrollment}/{sha256}.{ext}.
package storage

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/complementa/backend/internal/config"
)

// PresignExpiry is how long generated download URLs stay valid.
const PresignExpiry = time.Hour

var contentTypes = map[string]string{
	"pdf":  "application/pdf",
	"png":  "image/png",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"tiff": "image/tiff",
	"bmp":  "image/bmp",
}

// Client wraps two S3 clients: one on the in-network endpoint for object
// operations and one on the externally reachable endpoint for presigned
// URLs handed to browsers.
type Client struct {
	s3       *s3.Client
	presign  *s3.PresignClient
	bucket   string
	endpoint string
	logger   *slog.Logger
}

// New builds the object-store client from configuration.
func New(ctx context.Context, cfg config.S3Config) (*Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("aws config: %w", err)
	}

	newClient := func(endpoint string) *s3.Client {
		return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(endpoint)
			// LocalStack and MinIO only route path-style requests.
			o.UsePathStyle = true
		})
	}

	return &Client{
		s3:       newClient(cfg.Endpoint),
		presign:  s3.NewPresignClient(newClient(cfg.ExternalEndpoint)),
		bucket:   cfg.Bucket,
		endpoint: cfg.Endpoint,
		logger:   slog.With("component", "storage", "bucket", cfg.Bucket),
	}, nil
}

// EnsureBucket creates the bucket when it does not exist yet.
func (c *Client) EnsureBucket(ctx context.Context) error {
	_, err := c.s3.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(c.bucket)})
	if err == nil {
		return nil
	}

	_, err = c.s3.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(c.bucket)})
	if err != nil {
		var owned *types.BucketAlreadyOwnedByYou
		if errors.As(err, &owned) {
			return nil
		}
		return fmt.Errorf("create bucket %s: %w", c.bucket, err)
	}
	c.logger.Info("created bucket")
	return nil
}

// Upload stores a file under its content-addressed key with identifying
// object metadata.
func (c *Client) Upload(ctx context.Context, key string, content []byte, metadata map[string]string) error {
	_, err := c.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(content),
		ContentType: aws.String(ContentTypeFor(Extension(key))),
		Metadata:    metadata,
	})
	if err != nil {
		return fmt.Errorf("put object %s: %w", key, err)
	}
	c.logger.Info("uploaded object", "key", key, "size", len(content))
	return nil
}

// Download fetches an object's full content.
func (c *Client) Download(ctx context.Context, key string) ([]byte, error) {
	out, err := c.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("get object %s: %w", key, err)
	}
	defer out.Body.Close()

	content, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read object %s: %w", key, err)
	}
	return content, nil
}

// PresignGet returns a time-limited download URL on the external endpoint.
func (c *Client) PresignGet(ctx context.Context, key string) (string, error) {
	req, err := c.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(PresignExpiry))
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", key, err)
	}
	return req.URL, nil
}

// HealthCheck verifies the bucket is reachable.
func (c *Client) HealthCheck(ctx context.Context) error {
	_, err := c.s3.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(c.bucket)})
	if err != nil {
		return fmt.Errorf("bucket %s unreachable: %w", c.bucket, err)
	}
	return nil
}

// Checksum returns the lowercase SHA-256 hex digest of content.
func Checksum(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// ObjectKey builds the content-addressed key for a submission file.
func ObjectKey(enrollmentNumber, checksum, filename string) string {
	return fmt.Sprintf("certificates/%s/%s.%s", enrollmentNumber, checksum, Extension(filename))
}

// Extension returns the lowercase extension of a filename or key, defaulting
// to pdf when absent.
func Extension(name string) string {
	if i := strings.LastIndex(name, "."); i >= 0 && i < len(name)-1 {
		return strings.ToLower(name[i+1:])
	}
	return "pdf"
}

// ContentTypeFor maps a file extension to its MIME type.
func ContentTypeFor(ext string) string {
	if ct, ok := contentTypes[strings.ToLower(ext)]; ok {
		return ct
	}
	return "application/octet-stream"
}
