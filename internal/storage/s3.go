package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/dgonzalezpy/documind/constants"
)

// S3Config configures the S3 backend.
type S3Config struct {
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
	TempDir   string // where remote blobs are materialized for processing
}

// S3 stores blobs in an S3 bucket. Handles are object keys; resolving one
// downloads the object into TempDir and hands ownership of the temporary
// file to the caller.
type S3 struct {
	client  *s3.Client
	cfg     S3Config
	log     *slog.Logger
}

func NewS3(ctx context.Context, cfg S3Config, logger *slog.Logger) (*S3, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("S3 bucket name not set")
	}
	if cfg.Region == "" {
		return nil, fmt.Errorf("AWS region not set")
	}
	if cfg.TempDir == "" {
		cfg.TempDir = os.TempDir()
	}
	if logger == nil {
		logger = slog.Default()
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return &S3{client: s3.NewFromConfig(awsCfg), cfg: cfg, log: logger}, nil
}

func (s *S3) Upload(ctx context.Context, localPath string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("open source: %w", err)
	}
	defer f.Close()

	key := uuid.New().String() + filepath.Ext(localPath)
	uploader := manager.NewUploader(s.client)
	_, err = uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.Bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String(constants.MIMEByPath(localPath)),
	})
	if err != nil {
		return "", fmt.Errorf("s3 upload failed: %w", err)
	}

	s.log.Info("storage.s3.uploaded", "bucket", s.cfg.Bucket, "key", key)
	return key, nil
}

func (s *S3) ResolveLocalPath(ctx context.Context, handle string) (string, error) {
	tmp, err := os.CreateTemp(s.cfg.TempDir, "documind-*"+filepath.Ext(handle))
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer tmp.Close()

	downloader := manager.NewDownloader(s.client)
	if _, err := downloader.Download(ctx, tmp, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(handle),
	}); err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("s3 download failed: %w", err)
	}

	s.log.Info("storage.s3.downloaded", "key", handle, "path", tmp.Name())
	return tmp.Name(), nil
}

func (s *S3) ExternalURL(handle string) string {
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.cfg.Bucket, s.cfg.Region, handle)
}
