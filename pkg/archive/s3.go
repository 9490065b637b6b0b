package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/subledger/subledger/pkg/billing"
)

var tracer = otel.Tracer("subledger/archive")

// S3Config holds object-store settings for the S3 archiver. Leaving
// AccessKey/SecretKey empty falls back to the default AWS credential chain;
// Endpoint plus UsePathStyle targets MinIO and other S3-compatible stores.
type S3Config struct {
	Region       string
	Bucket       string
	Prefix       string
	AccessKey    string
	SecretKey    string
	Endpoint     string
	UsePathStyle bool
}

// S3Archiver writes invoices as JSON objects under
// <prefix>/<userID>/<invoiceID>.json.
type S3Archiver struct {
	client *s3.Client
	bucket string
	prefix string
}

var _ Archiver = (*S3Archiver)(nil)

// NewS3Archiver creates an S3-backed archiver.
func NewS3Archiver(ctx context.Context, cfg S3Config) (*S3Archiver, error) {
	var awsConfig aws.Config
	var err error

	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		awsConfig, err = config.LoadDefaultConfig(ctx,
			config.WithRegion(cfg.Region),
			config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
				cfg.AccessKey,
				cfg.SecretKey,
				"",
			)),
		)
	} else {
		awsConfig, err = config.LoadDefaultConfig(ctx,
			config.WithRegion(cfg.Region),
		)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		if cfg.UsePathStyle {
			o.UsePathStyle = true
		}
	})

	return &S3Archiver{
		client: client,
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
	}, nil
}

// StoreInvoice uploads the invoice to the configured bucket.
func (a *S3Archiver) StoreInvoice(ctx context.Context, inv *billing.Invoice) error {
	ctx, span := tracer.Start(ctx, "archive.put", trace.WithAttributes(
		attribute.String("s3.bucket", a.bucket),
		attribute.String("invoice.id", inv.ID),
	))
	defer span.End()

	data, err := json.MarshalIndent(inv, "", "  ")
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to marshal invoice")
		return fmt.Errorf("failed to marshal invoice: %w", err)
	}

	key := a.objectKey(inv)
	span.SetAttributes(
		attribute.String("s3.key", key),
		attribute.Int("content.size", len(data)),
	)

	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to upload invoice")
		return fmt.Errorf("failed to upload invoice to s3: %w", err)
	}

	span.SetStatus(codes.Ok, "invoice archived")
	return nil
}

func (a *S3Archiver) objectKey(inv *billing.Invoice) string {
	if a.prefix == "" {
		return fmt.Sprintf("%s/%s.json", inv.UserID, inv.ID)
	}
	return fmt.Sprintf("%s/%s/%s.json", a.prefix, inv.UserID, inv.ID)
}
