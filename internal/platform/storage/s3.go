// Package storage stores export outputs in an S3-compatible bucket and
// hands out presigned download URLs.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/phrazzld/carousel-api/internal/config"
	"github.com/phrazzld/carousel-api/internal/export"
)

// Client uploads objects to one bucket.
type Client struct {
	s3         *s3.Client
	presigner  *s3.PresignClient
	bucket     string
	presignTTL time.Duration
	now        func() time.Time
}

var _ export.OutputSink = (*Client)(nil)

// New creates a storage client. Static credentials are used when both keys
// are set; otherwise the SDK's anonymous credentials apply, which suits
// public test buckets only.
func New(cfg config.StorageConfig) (*Client, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("storage bucket cannot be empty")
	}
	if cfg.PresignTTL <= 0 {
		cfg.PresignTTL = time.Hour
	}

	opts := s3.Options{
		Region:                     cfg.Region,
		UsePathStyle:               cfg.UsePathStyle,
		RequestChecksumCalculation: aws.RequestChecksumCalculationWhenRequired,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(strings.TrimRight(cfg.Endpoint, "/"))
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts.Credentials = credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")
	} else {
		opts.Credentials = aws.AnonymousCredentials{}
	}

	s3Client := s3.New(opts)
	return &Client{
		s3:         s3Client,
		presigner:  s3.NewPresignClient(s3Client),
		bucket:     cfg.Bucket,
		presignTTL: cfg.PresignTTL,
		now:        time.Now,
	}, nil
}

// Put uploads data under key and returns a presigned GET URL together with
// its expiry.
func (c *Client) Put(ctx context.Context, key, contentType string, data []byte) (string, time.Time, error) {
	_, err := c.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(c.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return "", time.Time{}, fmt.Errorf("s3 upload %s/%s: %w", c.bucket, key, err)
	}

	expires := c.now().Add(c.presignTTL)
	url, err := c.PresignedURL(ctx, key, c.presignTTL)
	if err != nil {
		return "", time.Time{}, err
	}
	return url, expires, nil
}

// PresignedURL generates a pre-signed GET URL for key valid for ttl.
func (c *Client) PresignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	req, err := c.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("s3 presign %s/%s: %w", c.bucket, key, err)
	}
	return req.URL, nil
}
