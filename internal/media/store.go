// Package media stores user avatars in an S3-compatible bucket.
package media

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dom/account-service/internal/config"
	"github.com/google/uuid"
)

// UploadTTL is how long a presigned avatar upload URL stays valid.
const UploadTTL = 15 * time.Minute

// ErrNotConfigured is returned when no bucket is configured.
var ErrNotConfigured = errors.New("media storage is not configured")

// Store holds avatar objects.
type Store interface {
	PresignAvatarUpload(ctx context.Context, userID uuid.UUID) (*Upload, error)
	Delete(ctx context.Context, key string) error
	URL(key string) string
}

// Upload is a presigned PUT target for a new avatar.
type Upload struct {
	URL       string    `json:"url"`
	Key       string    `json:"key"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// AvatarPrefix is the key prefix under which a user's avatars live.
func AvatarPrefix(userID uuid.UUID) string {
	return "avatars/" + userID.String() + "/"
}

// IsAvatarKey reports whether ref looks like a key in the avatar namespace
// rather than an external URL.
func IsAvatarKey(ref string) bool {
	return strings.HasPrefix(ref, "avatars/")
}

type objectDeleter interface {
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

type putPresigner interface {
	PresignPutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// S3Store implements Store on top of aws-sdk-go-v2.
type S3Store struct {
	client    objectDeleter
	presigner putPresigner
	bucket    string
	publicURL string
}

// NewS3Store builds the S3 client. Static credentials are used when an access
// key is configured, otherwise the default AWS credential chain applies. A
// custom endpoint (MinIO and friends) switches to path-style addressing.
func NewS3Store(ctx context.Context, cfg config.MediaConfig) (*S3Store, error) {
	if !cfg.Enabled() {
		return nil, ErrNotConfigured
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Store{
		client:    client,
		presigner: s3.NewPresignClient(client),
		bucket:    cfg.Bucket,
		publicURL: publicBaseURL(cfg),
	}, nil
}

func (s *S3Store) PresignAvatarUpload(ctx context.Context, userID uuid.UUID) (*Upload, error) {
	key := AvatarPrefix(userID) + uuid.NewString()

	req, err := s.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(UploadTTL))
	if err != nil {
		return nil, fmt.Errorf("presign avatar upload: %w", err)
	}

	return &Upload{
		URL:       req.URL,
		Key:       key,
		ExpiresAt: time.Now().Add(UploadTTL),
	}, nil
}

func (s *S3Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete object %s: %w", key, err)
	}
	return nil
}

// URL returns the public address of an object.
func (s *S3Store) URL(key string) string {
	return s.publicURL + "/" + key
}

func publicBaseURL(cfg config.MediaConfig) string {
	switch {
	case cfg.PublicURL != "":
		return strings.TrimSuffix(cfg.PublicURL, "/")
	case cfg.Endpoint != "":
		return strings.TrimSuffix(cfg.Endpoint, "/") + "/" + cfg.Bucket
	default:
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
	}
}
