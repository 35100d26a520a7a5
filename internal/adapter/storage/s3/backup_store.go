// Package s3 stores wallet snapshots in an S3-compatible bucket.
package s3

import (
	"context"
	"fmt"
	"io"
	"strings"

	"ledger-wallet/config"
	"ledger-wallet/pkg/apperror"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
)

// objectAPI is the part of *s3.Client the store uses.
type objectAPI interface {
	PutObject(ctx context.Context, in *awss3.PutObjectInput, optFns ...func(*awss3.Options)) (*awss3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *awss3.GetObjectInput, optFns ...func(*awss3.Options)) (*awss3.GetObjectOutput, error)
}

// BackupStore implements ports.BackupStore. Keys have the form
// "bucket/object/key".
type BackupStore struct {
	api objectAPI
}

// loadDefaultConfig is a seam for tests.
var loadDefaultConfig = awsconfig.LoadDefaultConfig

// NewBackupStore builds an S3 client from cfg. Static credentials and a
// custom endpoint are used when set; a custom endpoint implies path-style
// addressing, as MinIO expects.
func NewBackupStore(ctx context.Context, cfg config.BackupConfig) (*BackupStore, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.S3Region),
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}
	awsCfg, err := loadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	client := awss3.NewFromConfig(awsCfg, func(o *awss3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
			o.UsePathStyle = true
		}
	})
	return &BackupStore{api: client}, nil
}

func (s *BackupStore) Upload(ctx context.Context, key string, body io.Reader) error {
	bucket, object, err := splitKey(key)
	if err != nil {
		return err
	}
	_, err = s.api.PutObject(ctx, &awss3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(object),
		Body:        body,
		ContentType: aws.String("application/octet-stream"),
	})
	if err != nil {
		return fmt.Errorf("put s3://%s: %w", key, err)
	}
	return nil
}

func (s *BackupStore) Download(ctx context.Context, key string, dst io.Writer) error {
	bucket, object, err := splitKey(key)
	if err != nil {
		return err
	}
	out, err := s.api.GetObject(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(object),
	})
	if err != nil {
		return fmt.Errorf("get s3://%s: %w", key, err)
	}
	defer out.Body.Close()

	if _, err := io.Copy(dst, out.Body); err != nil {
		return fmt.Errorf("reading s3://%s: %w", key, err)
	}
	return nil
}

func splitKey(key string) (bucket, object string, err error) {
	bucket, object, ok := strings.Cut(key, "/")
	if !ok || bucket == "" || object == "" || strings.HasSuffix(object, "/") {
		return "", "", apperror.Validation(fmt.Sprintf("backup key %q must be bucket/object", key))
	}
	return bucket, object, nil
}
