// Package s3 uploads straight to an S3-compatible bucket (R2, MinIO, AWS)
// for self-hosted sites that do not go through the platform's upload API.
package s3

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/debemdeboas/archive-studio/internal/config"
	"github.com/debemdeboas/archive-studio/internal/upload"
)

var storageLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	storageLogger = l
}

var ErrNoBucket = errors.New("no bucket configured")

// Backend presigns PUTs against the bucket and serves objects from
// PublicBaseURL.
type Backend struct {
	client    *s3.Client
	presigner *s3.PresignClient

	bucket        string
	keyPrefix     string
	publicBaseURL string
	expiry        time.Duration

	newID func() string
}

var _ upload.Backend = (*Backend)(nil)

func New(ctx context.Context, cfg config.S3Config) (*Backend, error) {
	if cfg.Bucket == "" {
		return nil, ErrNoBucket
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	}

	client := s3.NewFromConfig(awsCfg, s3Opts...)

	expiry := cfg.PresignExpiry
	if expiry <= 0 {
		expiry = 15 * time.Minute
	}

	return &Backend{
		client:        client,
		presigner:     s3.NewPresignClient(client),
		bucket:        cfg.Bucket,
		keyPrefix:     cfg.KeyPrefix,
		publicBaseURL: strings.TrimSuffix(cfg.PublicBaseURL, "/"),
		expiry:        expiry,
		newID:         func() string { return uuid.New().String() },
	}, nil
}

// objectKey is <prefix><purpose>/[<target>/]<uuid><ext>.
func (b *Backend) objectKey(in upload.PresignInput) string {
	ext := strings.ToLower(path.Ext(in.Filename))

	parts := []string{string(in.Purpose)}
	if in.Purpose == "" {
		parts[0] = string(upload.PurposePostImage)
	}
	if in.TargetID != "" {
		parts = append(parts, in.TargetID)
	}
	parts = append(parts, b.newID()+ext)

	return b.keyPrefix + strings.Join(parts, "/")
}

func (b *Backend) Presign(ctx context.Context, in upload.PresignInput) (*upload.Target, error) {
	key := b.objectKey(in)

	req, err := b.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(b.bucket),
		Key:           aws.String(key),
		ContentType:   aws.String(in.ContentType),
		ContentLength: aws.Int64(in.Size),
	}, s3.WithPresignExpires(b.expiry))
	if err != nil {
		return nil, fmt.Errorf("s3 presign: %w", err)
	}

	headers := map[string]string{}
	for name, values := range req.SignedHeader {
		if strings.EqualFold(name, "host") || strings.EqualFold(name, config.HContentLength) || len(values) == 0 {
			continue
		}
		headers[name] = values[0]
	}

	storageLogger.Debug().Str("key", key).Msg("Presigned upload")

	return &upload.Target{
		UploadURL:  req.URL,
		Key:        key,
		PreviewURL: b.PublicURL(key),
		Headers:    headers,
	}, nil
}

// Complete checks the object landed and returns its public URL.
func (b *Backend) Complete(ctx context.Context, in upload.CompleteInput) (string, error) {
	if _, err := b.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(in.Key),
	}); err != nil {
		return "", fmt.Errorf("s3 head: %w", err)
	}
	return b.PublicURL(in.Key), nil
}

func (b *Backend) Abort(ctx context.Context, key string) error {
	_, err := b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("s3 delete: %w", err)
	}
	return nil
}

// PublicURL is empty when no public base URL is configured, which makes
// Complete fail the upload rather than hand out an unusable link.
func (b *Backend) PublicURL(key string) string {
	if b.publicBaseURL == "" {
		return ""
	}
	return b.publicBaseURL + "/" + key
}
