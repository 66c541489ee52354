package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/credgate/internal/server/models"
)

// S3Options configures the S3-compatible audit bucket.
type S3Options struct {
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	Endpoint  string
}

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		return c.PutObject(ctx, in, optFns...)
	}
)

// S3Sink writes each event as its own JSON object, keyed by date, account
// and event id, so objects are never overwritten.
type S3Sink struct {
	client *s3.Client
	bucket string
}

// NewS3Sink builds an S3 client with static credentials and a custom endpoint
// (MinIO and other S3-compatible stores work).
func NewS3Sink(ctx context.Context, o S3Options) (*S3Sink, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(o.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(o.AccessKey, o.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := newS3ClientFromConfig(cfg, func(so *s3.Options) {
		if o.Endpoint != "" {
			so.BaseEndpoint = aws.String(o.Endpoint)
		}
		so.UsePathStyle = true
	})

	return &S3Sink{client: client, bucket: o.Bucket}, nil
}

// ObjectKey returns the key an event is stored under.
func ObjectKey(e *models.SecurityEvent) string {
	d := e.CreatedAt.UTC()
	return fmt.Sprintf("security-events/%04d/%02d/%02d/%s/%s.json", d.Year(), d.Month(), d.Day(), e.AccountID, e.ID)
}

func (s *S3Sink) Write(ctx context.Context, e *models.SecurityEvent) error {
	body, err := json.Marshal(e)
	if err != nil {
		return err
	}
	_, err = putObject(s.client, ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(ObjectKey(e)),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("s3 put: %w", err)
	}
	return nil
}
