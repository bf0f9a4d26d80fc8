package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
)

// Uploader is the subset of the s3manager uploader used by S3Sink.
type Uploader interface {
	UploadWithContext(ctx aws.Context, input *s3manager.UploadInput, opts ...func(*s3manager.Uploader)) (*s3manager.UploadOutput, error)
}

// S3Config selects the bucket and key prefix for uploads.
type S3Config struct {
	Region string
	Bucket string
	Prefix string
}

// S3Sink uploads objects to a bucket.
type S3Sink struct {
	bucket   string
	prefix   string
	uploader Uploader
}

// NewS3Sink opens an AWS session for cfg.Region and returns a sink backed
// by an s3manager uploader. Credentials come from the standard AWS
// environment and shared config.
func NewS3Sink(cfg S3Config) (*S3Sink, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3 bucket is required")
	}
	awsCfg := &aws.Config{}
	if cfg.Region != "" {
		awsCfg.Region = aws.String(cfg.Region)
	}
	sess, err := session.NewSessionWithOptions(session.Options{
		Config:            *awsCfg,
		SharedConfigState: session.SharedConfigEnable,
	})
	if err != nil {
		return nil, fmt.Errorf("create aws session: %w", err)
	}
	return NewS3SinkWithUploader(cfg, s3manager.NewUploader(sess)), nil
}

// NewS3SinkWithUploader builds a sink around an existing uploader.
func NewS3SinkWithUploader(cfg S3Config, u Uploader) *S3Sink {
	return &S3Sink{bucket: cfg.Bucket, prefix: strings.Trim(cfg.Prefix, "/"), uploader: u}
}

// Key returns the object key name is stored under.
func (s *S3Sink) Key(name string) string {
	name = strings.TrimLeft(name, "/")
	if s.prefix == "" {
		return name
	}
	return path.Join(s.prefix, name)
}

// Put uploads r and returns its s3:// URL.
func (s *S3Sink) Put(ctx context.Context, name, contentType string, r io.Reader) (string, error) {
	if name == "" {
		return "", errors.New("empty object name")
	}
	key := s.Key(name)
	input := &s3manager.UploadInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   r,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if _, err := s.uploader.UploadWithContext(ctx, input); err != nil {
		return "", fmt.Errorf("upload s3://%s/%s: %w", s.bucket, key, err)
	}
	return "s3://" + s.bucket + "/" + key, nil
}

// ForLocation returns a sink able to store loc along with the object
// name to pass to Put. S3 locations use region from cfg.
func ForLocation(loc Location, region string) (Sink, string, error) {
	if !loc.IsS3() {
		return NewFileSink(loc.Dir()), loc.Base(), nil
	}
	sink, err := NewS3Sink(S3Config{Region: region, Bucket: loc.Bucket, Prefix: loc.Dir()})
	if err != nil {
		return nil, "", err
	}
	return sink, loc.Base(), nil
}
