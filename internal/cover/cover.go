// Package cover stores book cover images in S3-compatible object storage.
package cover

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// MaxImageSize caps cover uploads at 10MB.
const MaxImageSize = 10 * 1024 * 1024

var contentTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// Config holds S3 connection settings. PublicBaseURL is the prefix under
// which uploaded objects are reachable (bucket website or CDN endpoint).
type Config struct {
	Endpoint      string
	Region        string
	Bucket        string
	AccessKey     string
	SecretKey     string
	PublicBaseURL string
}

// s3API is the subset of the S3 client the storage uses.
type s3API interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, input *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

type Storage struct {
	cfg    Config
	client s3API
}

// New creates a Storage. With incomplete credentials the storage stays
// unconfigured and uploads are refused.
func New(cfg Config) *Storage {
	st := &Storage{cfg: cfg}
	if cfg.Bucket != "" && cfg.AccessKey != "" && cfg.SecretKey != "" {
		st.client = newS3Client(cfg)
	}
	return st
}

func newS3Client(cfg Config) *s3.Client {
	opts := s3.Options{
		Region:       cfg.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: true,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return s3.New(opts)
}

// Configured returns true when uploads can be accepted.
func (s *Storage) Configured() bool {
	return s.client != nil
}

// Validate checks a candidate upload before any bytes move: extension must
// be an image type, size must be within MaxImageSize.
func Validate(filename string, size int64) error {
	if filename == "" {
		return fmt.Errorf("invalid filename")
	}
	if size <= 0 {
		return fmt.Errorf("no file provided")
	}
	if size > MaxImageSize {
		return fmt.Errorf("file too large (max 10MB)")
	}
	ext := strings.ToLower(path.Ext(filename))
	if _, ok := contentTypes[ext]; !ok {
		return fmt.Errorf("invalid file type %q", ext)
	}
	return nil
}

// Upload validates and stores a cover image, returning its public URL.
// Object keys are random so re-uploads never clobber each other.
func (s *Storage) Upload(ctx context.Context, filename string, r io.Reader, size int64) (string, error) {
	if !s.Configured() {
		return "", fmt.Errorf("cover storage not configured")
	}
	if err := Validate(filename, size); err != nil {
		return "", err
	}

	ext := strings.ToLower(path.Ext(filename))
	key := "covers/" + uuid.New().String() + ext

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.cfg.Bucket),
		Key:           aws.String(key),
		Body:          r,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentTypes[ext]),
	})
	if err != nil {
		return "", fmt.Errorf("upload cover: %w", err)
	}

	return strings.TrimSuffix(s.cfg.PublicBaseURL, "/") + "/" + key, nil
}

// Delete removes a previously uploaded cover by its public URL. Unknown or
// external URLs are ignored.
func (s *Storage) Delete(ctx context.Context, coverURL string) error {
	if !s.Configured() {
		return nil
	}
	prefix := strings.TrimSuffix(s.cfg.PublicBaseURL, "/") + "/"
	key, ok := strings.CutPrefix(coverURL, prefix)
	if !ok || !strings.HasPrefix(key, "covers/") {
		return nil
	}

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete cover: %w", err)
	}
	return nil
}
