// Package media uploads narrated audio to S3 and hands back public URLs.
package media

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
)

// Options describes the bucket audio files are written to.
type Options struct {
	Bucket string
	Region string
	// Endpoint overrides the S3 endpoint (MinIO, LocalStack).
	Endpoint string
	// PublicBaseURL is prepended to object keys to build public URLs.
	// Defaults to the virtual-hosted S3 URL of the bucket.
	PublicBaseURL string
	KeyPrefix     string
}

// S3Store uploads files to a single bucket.
type S3Store struct {
	client s3iface.S3API
	opts   Options
	logger *slog.Logger
}

// NewS3Store builds an S3 client from the default AWS credential chain.
func NewS3Store(opts Options, logger *slog.Logger) (*S3Store, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("MEDIA_BUCKET must be set")
	}

	awsCfg := aws.NewConfig().WithRegion(opts.Region)
	if opts.Endpoint != "" {
		awsCfg = awsCfg.WithEndpoint(opts.Endpoint).WithS3ForcePathStyle(true)
	}

	sess, err := session.NewSessionWithOptions(session.Options{
		Config:            *awsCfg,
		SharedConfigState: session.SharedConfigEnable,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create aws session: %w", err)
	}

	return NewS3StoreWithClient(s3.New(sess), opts, logger), nil
}

// NewS3StoreWithClient wraps an existing S3 client.
func NewS3StoreWithClient(client s3iface.S3API, opts Options, logger *slog.Logger) *S3Store {
	if opts.PublicBaseURL == "" {
		opts.PublicBaseURL = defaultPublicBaseURL(opts)
	}
	opts.PublicBaseURL = strings.TrimRight(opts.PublicBaseURL, "/")

	return &S3Store{client: client, opts: opts, logger: logger}
}

// Upload stores the content under name and returns its public URL.
func (s *S3Store) Upload(ctx context.Context, name string, content io.Reader) (string, error) {
	data, err := io.ReadAll(content)
	if err != nil {
		return "", fmt.Errorf("failed to buffer %s: %w", name, err)
	}

	key := s.objectKey(name)
	_, err = s.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.opts.Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentType(name)),
	})
	if err != nil {
		s.logger.Error("Failed to upload object to S3", "bucket", s.opts.Bucket, "key", key, "error", err)
		return "", fmt.Errorf("failed to upload %s: %w", name, err)
	}

	url := s.opts.PublicBaseURL + "/" + key
	s.logger.Debug("Uploaded object to S3", "key", key, "url", url, "bytes", len(data))
	return url, nil
}

func (s *S3Store) objectKey(name string) string {
	if s.opts.KeyPrefix == "" {
		return name
	}
	return path.Join(s.opts.KeyPrefix, name)
}

func defaultPublicBaseURL(opts Options) string {
	if opts.Endpoint != "" {
		return strings.TrimRight(opts.Endpoint, "/") + "/" + opts.Bucket
	}
	if opts.Region == "" || opts.Region == "us-east-1" {
		return fmt.Sprintf("https://%s.s3.amazonaws.com", opts.Bucket)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", opts.Bucket, opts.Region)
}

func contentType(name string) string {
	if strings.HasSuffix(name, ".mp3") {
		return "audio/mpeg"
	}
	return "application/octet-stream"
}
