package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

type objectDeleter interface {
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3ImageStore keeps images in an S3 (or compatible) bucket.
type S3ImageStore struct {
	bucket    string
	publicURL string
	maxBytes  int64
	uploader  uploader
	deleter   objectDeleter
	now       func() time.Time
}

type S3Options struct {
	Bucket    string
	Region    string
	Endpoint  string
	PublicURL string
	MaxBytes  int64
}

// NewS3ImageStoreFromConfig loads AWS credentials from the environment and
// builds a store for opts.Bucket. A custom endpoint switches to path-style addressing.
func NewS3ImageStoreFromConfig(ctx context.Context, opts S3Options) (*S3ImageStore, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("storage bucket is required")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(opts.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})

	publicURL := opts.PublicURL
	if publicURL == "" {
		if opts.Endpoint != "" {
			publicURL = strings.TrimRight(opts.Endpoint, "/") + "/" + opts.Bucket
		} else {
			publicURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", opts.Bucket, opts.Region)
		}
	}

	return NewS3ImageStore(opts.Bucket, publicURL, opts.MaxBytes, manager.NewUploader(client), client), nil
}

func NewS3ImageStore(bucket, publicURL string, maxBytes int64, up uploader, deleter objectDeleter) *S3ImageStore {
	return &S3ImageStore{
		bucket:    bucket,
		publicURL: strings.TrimRight(publicURL, "/"),
		maxBytes:  maxBytes,
		uploader:  up,
		deleter:   deleter,
		now:       time.Now,
	}
}

func (s *S3ImageStore) Save(ctx context.Context, filename string, r io.Reader) (string, error) {
	imagePath, err := NewImagePath(filename, s.now())
	if err != nil {
		return "", err
	}

	data, err := readLimited(r, s.maxBytes)
	if err != nil {
		return "", err
	}

	_, err = s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(imagePath),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(ContentType(imagePath)),
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", imagePath, err)
	}

	return imagePath, nil
}

func (s *S3ImageStore) Delete(ctx context.Context, imagePath string) error {
	key, err := cleanImagePath(imagePath)
	if err != nil {
		return err
	}

	_, err = s.deleter.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

func (s *S3ImageStore) URL(imagePath string) string {
	return s.publicURL + "/" + strings.TrimPrefix(imagePath, "/")
}
