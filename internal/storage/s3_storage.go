package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	aws_config "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"renthub/internal/config"
	"renthub/internal/models"
)

// AllowedProofContentTypes lists the file types accepted as payment proof.
var AllowedProofContentTypes = map[string]bool{
	"image/jpeg":      true,
	"image/jpg":       true,
	"image/png":       true,
	"image/gif":       true,
	"image/webp":      true,
	"application/pdf": true,
}

// IsAllowedProofType reports whether contentType may be uploaded as proof. Parameters such as charset are ignored.
func IsAllowedProofType(contentType string) bool {
	mediaType, _, _ := strings.Cut(contentType, ";")
	return AllowedProofContentTypes[strings.ToLower(strings.TrimSpace(mediaType))]
}

type objectStore interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

type objectPresigner interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// S3Storage keeps payment proofs in a private bucket and hands out short-lived download links.
type S3Storage struct {
	bucket    string
	urlTTL    time.Duration
	client    objectStore
	presigner objectPresigner
}

// NewS3Storage creates a new S3 storage service.
func NewS3Storage(ctx context.Context, cfg *config.Config) (*S3Storage, error) {
	opts := []func(*aws_config.LoadOptions) error{aws_config.WithRegion(cfg.AwsRegion)}
	if cfg.AwsAccessKeyID != "" {
		// Static keys when given; otherwise the default chain (IAM role, shared profile).
		opts = append(opts, aws_config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AwsAccessKeyID,
			cfg.AwsSecretAccessKey,
			"", // session token
		)))
	}
	awsCfg, err := aws_config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	s3Client := s3.NewFromConfig(awsCfg)
	return &S3Storage{
		bucket:    cfg.AwsS3Bucket,
		urlTTL:    cfg.ProofURLTTL,
		client:    s3Client,
		presigner: s3.NewPresignClient(s3Client),
	}, nil
}

// ProofKey builds the object key for a tenant's proof upload.
func ProofKey(tenantID primitive.ObjectID, filename string) string {
	name := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		name = "proof"
	}
	return fmt.Sprintf("payment-proofs/%s/%s_%s", tenantID.Hex(), uuid.NewString(), name)
}

// UploadPaymentProof streams body into the bucket.
func (s *S3Storage) UploadPaymentProof(ctx context.Context, tenantID primitive.ObjectID, filename, contentType string, size int64, body io.Reader) (*models.PaymentProof, error) {
	key := ProofKey(tenantID, filename)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(size),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload payment proof %s: %w", key, err)
	}

	slog.Debug("stored payment proof", "key", key, "size", size)
	return &models.PaymentProof{Key: key, Filename: filename, ContentType: contentType, Size: size}, nil
}

// PresignProofURL creates a pre-signed GET URL for a stored proof.
func (s *S3Storage) PresignProofURL(ctx context.Context, key string) (string, error) {
	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.urlTTL))
	if err != nil {
		return "", fmt.Errorf("failed to presign proof URL for key %s: %w", key, err)
	}
	return req.URL, nil
}

// DeletePaymentProof removes a stored proof.
func (s *S3Storage) DeletePaymentProof(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete payment proof %s: %w", key, err)
	}
	return nil
}
