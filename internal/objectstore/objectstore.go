// Package objectstore archives receipt photos in S3 compatible storage.
package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

type putter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Archive uploads receipt images to a bucket.
type Archive struct {
	client putter
	bucket string
	now    func() time.Time
	newID  func() string
}

// Settings describe the bucket. An empty Endpoint uses AWS itself.
type Settings struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
}

func NewArchive(ctx context.Context, s Settings) (*Archive, error) {
	if s.Bucket == "" {
		return nil, errors.New("bucket is empty")
	}
	region := s.Region
	if region == "" {
		region = "auto"
	}

	opts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if s.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(s.AccessKey, s.SecretKey, ""),
		))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if s.Endpoint != "" {
			o.BaseEndpoint = aws.String(s.Endpoint)
			o.UsePathStyle = true
		}
	})
	return newArchive(client, s.Bucket), nil
}

func newArchive(client putter, bucket string) *Archive {
	return &Archive{
		client: client,
		bucket: bucket,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// StoreReceipt uploads image and returns its object key.
func (a *Archive) StoreReceipt(ctx context.Context, image []byte, contentType string) (string, error) {
	key := a.receiptKey(contentType)
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(image),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("put object %s: %w", key, err)
	}
	return key, nil
}

func (a *Archive) receiptKey(contentType string) string {
	return fmt.Sprintf("receipts/%s/%s%s", a.now().UTC().Format("2006/01/02"), a.newID(), extension(contentType))
}

func extension(contentType string) string {
	switch strings.ToLower(contentType) {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "image/heic":
		return ".heic"
	case "image/heif":
		return ".heif"
	default:
		return ".bin"
	}
}
