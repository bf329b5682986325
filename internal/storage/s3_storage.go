package storage

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/ikkim/annualreport-backend/pkg/logger"
)

const defaultPresignExpiry = 15 * time.Minute

// S3Storage keeps generated exports in a bucket and hands out time-limited
// download links.
type S3Storage struct {
	client        *s3.Client
	bucket        string
	baseURL       string
	presignExpiry time.Duration
}

func NewS3Storage(region, bucket, accessKeyID, secretAccessKey, baseURL string, presignExpiry time.Duration) *S3Storage {
	var cfg aws.Config
	var err error

	// Static keys when configured, otherwise the default credential chain
	if accessKeyID != "" && secretAccessKey != "" {
		cfg = aws.Config{
			Region: region,
			Credentials: credentials.NewStaticCredentialsProvider(
				accessKeyID,
				secretAccessKey,
				"",
			),
		}
	} else {
		cfg, err = config.LoadDefaultConfig(context.TODO(),
			config.WithRegion(region),
		)
		if err != nil {
			cfg = aws.Config{
				Region: region,
			}
		}
	}

	if presignExpiry <= 0 {
		presignExpiry = defaultPresignExpiry
	}

	return &S3Storage{
		client:        s3.NewFromConfig(cfg),
		bucket:        bucket,
		baseURL:       baseURL,
		presignExpiry: presignExpiry,
	}
}

// Upload stores body under key.
func (s *S3Storage) Upload(ctx context.Context, key, contentType string, body []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(body))),
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}

	logger.Debug("Object uploaded", map[string]interface{}{
		"bucket": s.bucket,
		"key":    key,
		"size":   len(body),
	})
	return nil
}

// PresignGet returns a GET URL for key that expires after the configured window.
func (s *S3Storage) PresignGet(ctx context.Context, key string) (string, error) {
	presignClient := s3.NewPresignClient(s.client)

	req, err := presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.presignExpiry))
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}
	return req.URL, nil
}

// ObjectURL is the permanent address of key, through the CDN when one is configured.
func (s *S3Storage) ObjectURL(key string) string {
	if s.baseURL != "" {
		return fmt.Sprintf("%s/%s", s.baseURL, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.client.Options().Region, key)
}
