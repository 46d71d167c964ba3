package digest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
)

// Archiver copies generated digests to long-term storage
type Archiver interface {
	Archive(ctx context.Context, d *Digest) (string, error)
}

// Uploader is the subset of manager.Uploader used by S3Archiver
type Uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// S3Config configures the S3 archiver
type S3Config struct {
	Bucket string
	Prefix string
	Region string
	// Endpoint targets an S3-compatible store (MinIO, R2); path-style addressing is used when set
	Endpoint  string
	AccessKey string
	SecretKey string
}

// S3Archiver writes digests as JSON objects keyed by date
type S3Archiver struct {
	uploader Uploader
	bucket   string
	prefix   string
	log      zerolog.Logger
}

// NewS3Archiver creates an archiver using the default AWS credential chain,
// or static credentials when both keys are configured
func NewS3Archiver(ctx context.Context, cfg S3Config, log zerolog.Logger) (*S3Archiver, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("archive bucket is required")
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return NewS3ArchiverWithUploader(manager.NewUploader(client), cfg.Bucket, cfg.Prefix, log), nil
}

// NewS3ArchiverWithUploader creates an archiver around an existing uploader
func NewS3ArchiverWithUploader(uploader Uploader, bucket, prefix string, log zerolog.Logger) *S3Archiver {
	if prefix == "" {
		prefix = "digests"
	}
	return &S3Archiver{
		uploader: uploader,
		bucket:   bucket,
		prefix:   strings.Trim(prefix, "/"),
		log:      log.With().Str("component", "digest_archiver").Logger(),
	}
}

// ObjectKey returns the object key for a digest date, e.g. digests/2024/09/10.json
func (a *S3Archiver) ObjectKey(date string) string {
	parts := strings.Split(date, "-")
	if len(parts) != 3 {
		return path.Join(a.prefix, date+".json")
	}
	return path.Join(a.prefix, parts[0], parts[1], parts[2]+".json")
}

// Archive uploads the digest and returns its object key
func (a *S3Archiver) Archive(ctx context.Context, d *Digest) (string, error) {
	body, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode digest: %w", err)
	}

	key := a.ObjectKey(d.Date)
	_, err = a.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
		Metadata:    map[string]string{"digest-id": d.ID},
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload digest %s: %w", d.Date, err)
	}

	a.log.Info().Str("bucket", a.bucket).Str("key", key).Msg("Digest archived")
	return key, nil
}
