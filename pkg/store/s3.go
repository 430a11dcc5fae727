package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// metaExpiresAt the object metadata holding the expiry (unix nanoseconds).
const metaExpiresAt = "expires-at"

type s3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3 is a store where each key is an object in a bucket.
type S3 struct {
	client s3API
	bucket string
	prefix string
	now    func() time.Time
}

// NewS3 creates a S3 store using the default AWS configuration chain.
func NewS3(ctx context.Context, bucket, prefix string) (*S3, error) {
	if bucket == "" {
		return nil, errors.New("missing S3 bucket")
	}

	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	return newS3(s3.NewFromConfig(cfg), bucket, prefix), nil
}

func newS3(client s3API, bucket, prefix string) *S3 {
	return &S3{
		client: client,
		bucket: bucket,
		prefix: prefix,
		now:    time.Now,
	}
}

// Get gets a value.
func (s *S3) Get(ctx context.Context, key string) ([]byte, bool, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, false, nil
		}

		return nil, false, fmt.Errorf("failed to get object %q: %w", key, err)
	}

	defer func() { _ = out.Body.Close() }()

	if raw, ok := out.Metadata[metaExpiresAt]; ok {
		exp, err := strconv.ParseInt(raw, 10, 64)
		if err == nil && exp != 0 && expired(s.now(), time.Unix(0, exp)) {
			return nil, false, nil
		}
	}

	value, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read object %q: %w", key, err)
	}

	return value, true, nil
}

// Set sets a value.
func (s *S3) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	input := &s3.PutObjectInput{
		Bucket:   aws.String(s.bucket),
		Key:      aws.String(s.objectKey(key)),
		Body:     bytes.NewReader(value),
		Metadata: map[string]string{},
	}

	if exp := expiresAt(s.now(), ttl); !exp.IsZero() {
		input.Metadata[metaExpiresAt] = strconv.FormatInt(exp.UnixNano(), 10)
		input.Expires = aws.Time(exp)
	}

	_, err := s.client.PutObject(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to put object %q: %w", key, err)
	}

	return nil
}

// Delete deletes a value.
func (s *S3) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object %q: %w", key, err)
	}

	return nil
}

func (s *S3) objectKey(key string) string {
	return path.Join(s.prefix, key)
}
