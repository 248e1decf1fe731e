package media

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"
)

// S3Config configures the S3 media backend
type S3Config struct {
	Bucket string
	Region string

	// Endpoint overrides the default S3 endpoint (for MinIO, LocalStack)
	Endpoint string

	// Credentials (optional - uses default chain if not provided)
	AccessKeyID     string
	SecretAccessKey string

	UsePathStyle bool
	Timeout      time.Duration
}

// S3Store writes objects to an S3 compatible bucket
type S3Store struct {
	cfg    S3Config
	client *s3.Client
}

func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}

	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	log.Info().Str("bucket", cfg.Bucket).Str("region", cfg.Region).Msg("Media store initialized (s3)")
	return &S3Store{cfg: cfg, client: client}, nil
}

func (s *S3Store) Save(ctx context.Context, key, contentType string, body io.ReadSeeker) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	input := &s3.PutObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
		Body:   body,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("failed to upload %s to S3: %w", key, err)
	}
	return fmt.Sprintf("s3://%s/%s", s.cfg.Bucket, key), nil
}
