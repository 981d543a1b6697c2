package media

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/aws/aws-sdk-go/service/s3/s3manager/s3manageriface"

	"github.com/equisy/equisy-api/internal/config"
)

// S3Storage uploads to an S3 compatible bucket.
type S3Storage struct {
	bucket   string
	uploader s3manageriface.UploaderAPI
	client   s3iface.S3API
}

// NewS3Storage opens an AWS session from cfg. Static keys are used when
// set, otherwise the default credential chain applies.
func NewS3Storage(cfg config.MediaConfig) (*S3Storage, error) {
	if cfg.S3Bucket == "" {
		return nil, fmt.Errorf("media.NewS3Storage: bucket is required")
	}

	awsCfg := aws.NewConfig().WithRegion(cfg.S3Region)
	if cfg.S3Endpoint != "" {
		awsCfg = awsCfg.WithEndpoint(cfg.S3Endpoint).WithS3ForcePathStyle(true)
	}
	if cfg.S3AccessKeyID != "" {
		awsCfg = awsCfg.WithCredentials(credentials.NewStaticCredentials(cfg.S3AccessKeyID, cfg.S3SecretAccessKey, ""))
	}

	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("media.NewS3Storage: %w", err)
	}

	client := s3.New(sess)
	return NewS3StorageWith(cfg.S3Bucket, s3manager.NewUploaderWithClient(client), client), nil
}

// NewS3StorageWith wires explicit clients.
func NewS3StorageWith(bucket string, uploader s3manageriface.UploaderAPI, client s3iface.S3API) *S3Storage {
	return &S3Storage{bucket: bucket, uploader: uploader, client: client}
}

func (s *S3Storage) Save(ctx context.Context, key string, r io.Reader, contentType string) (string, error) {
	if err := checkKey(key); err != nil {
		return "", err
	}

	in := &s3manager.UploadInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   r,
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}

	out, err := s.uploader.UploadWithContext(ctx, in)
	if err != nil {
		return "", fmt.Errorf("media.S3Storage.Save: %w", err)
	}
	return out.Location, nil
}

func (s *S3Storage) Delete(ctx context.Context, key string) error {
	if err := checkKey(key); err != nil {
		return err
	}

	_, err := s.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("media.S3Storage.Delete: %w", err)
	}
	return nil
}
