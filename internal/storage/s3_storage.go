package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/ranlab/bizdir-backend/pkg/logger"
)

// S3Storage stores export snapshots in a single bucket.
type S3Storage struct {
	client  *s3.Client
	presign *s3.PresignClient
	bucket  string
	baseURL string
}

type S3Options struct {
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	// Endpoint overrides the S3 endpoint, e.g. for MinIO.
	Endpoint string
	// BaseURL is a CDN or custom domain in front of the bucket.
	BaseURL string
}

func NewS3Storage(ctx context.Context, opts S3Options) (*S3Storage, error) {
	var cfg aws.Config
	var err error

	// Static credentials win; otherwise use the default chain (env, profile, IAM role)
	if opts.AccessKeyID != "" && opts.SecretAccessKey != "" {
		cfg = aws.Config{
			Region: opts.Region,
			Credentials: credentials.NewStaticCredentialsProvider(
				opts.AccessKeyID,
				opts.SecretAccessKey,
				"",
			),
		}
	} else {
		cfg, err = config.LoadDefaultConfig(ctx, config.WithRegion(opts.Region))
		if err != nil {
			return nil, fmt.Errorf("failed to load aws config: %w", err)
		}
	}

	// Custom endpoints (MinIO) only serve path-style URLs
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Storage{
		client:  client,
		presign: s3.NewPresignClient(client),
		bucket:  opts.Bucket,
		baseURL: opts.BaseURL,
	}, nil
}

// Put uploads body under key and returns the object's public URL.
func (s *S3Storage) Put(ctx context.Context, key, contentType string, body io.Reader) (string, error) {
	// payload signing needs a seekable body on plain HTTP endpoints
	seekable, ok := body.(io.ReadSeeker)
	if !ok {
		data, err := io.ReadAll(body)
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", key, err)
		}
		seekable = bytes.NewReader(data)
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
		Body:        seekable,
	})
	if err != nil {
		logger.Error("Failed to upload object", err, logger.Fields{
			"bucket": s.bucket,
			"key":    key,
		})
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return s.objectURL(key), nil
}

// PresignGet returns a time-limited download URL for key.
func (s *S3Storage) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("failed to presign %s: %w", key, err)
	}
	return req.URL, nil
}

func (s *S3Storage) objectURL(key string) string {
	if s.baseURL != "" {
		// Use CloudFront or custom domain
		return fmt.Sprintf("%s/%s", s.baseURL, key)
	}
	// Use S3 direct URL
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.client.Options().Region, key)
}
