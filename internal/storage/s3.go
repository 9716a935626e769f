package storage

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"

	cfgpkg "github.com/local/pdfchat/internal/config"
)

// S3Client fetches documents referenced as s3://bucket/key.
type S3Client struct {
	client        *s3.Client
	defaultBucket string
}

// NewS3Client creates a new S3 client. Static credentials from cfg take
// precedence over the default provider chain.
func NewS3Client(ctx context.Context, cfg cfgpkg.StorageConfig) (*S3Client, error) {
	var opts []func(*awscfg.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awscfg.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awscfg.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken),
		))
	}

	awsCfg, err := awscfg.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &S3Client{client: s3.NewFromConfig(awsCfg), defaultBucket: cfg.Bucket}, nil
}

// ParseS3URL splits s3://bucket/key. A URL without a bucket segment
// (s3:///key) uses defaultBucket.
func ParseS3URL(ref, defaultBucket string) (bucket, key string, err error) {
	path := strings.TrimPrefix(ref, "s3://")
	if path == ref {
		return "", "", fmt.Errorf("invalid s3 url: %s", ref)
	}
	slash := strings.Index(path, "/")
	if slash < 0 || slash == len(path)-1 {
		return "", "", fmt.Errorf("invalid s3 url: %s", ref)
	}
	bucket, key = path[:slash], path[slash+1:]
	if bucket == "" {
		bucket = defaultBucket
	}
	if bucket == "" {
		return "", "", fmt.Errorf("invalid s3 url: %s (no bucket)", ref)
	}
	return bucket, key, nil
}

// DownloadToTemp downloads the object behind ref into a temp file and
// returns its path. The caller removes the file.
func (s *S3Client) DownloadToTemp(ctx context.Context, ref string) (string, error) {
	bucket, key, err := ParseS3URL(ref, s.defaultBucket)
	if err != nil {
		return "", err
	}

	f, err := os.CreateTemp("", "s3pdf-*.pdf")
	if err != nil {
		return "", err
	}
	defer f.Close()

	n, err := manager.NewDownloader(s.client).Download(ctx, f, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("failed to download from S3: %w", err)
	}

	log.Info().Str("bucket", bucket).Str("key", key).Int64("bytes", n).Msg("downloaded s3 pdf to temp")
	return f.Name(), nil
}

// CheckBucket verifies the default bucket is reachable with the configured credentials.
func (s *S3Client) CheckBucket(ctx context.Context) error {
	if s.defaultBucket == "" {
		return fmt.Errorf("no bucket configured")
	}
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.defaultBucket)})
	return err
}
