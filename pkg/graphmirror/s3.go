// Package graphmirror implements graphstore.Mirror backends that copy
// flushed shards off-box after every flush, for deployments that want a
// durable secondary copy of the graph cache beyond local disk. Mirroring
// is additive: the local cache directory remains the source of truth for
// iteration: mirrors are never read back.
package graphmirror

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3 implements graphstore.Mirror against an S3-compatible bucket.
type S3 struct {
	client *s3.Client
	bucket string
	prefix string
}

// S3Config configures an S3 mirror.
type S3Config struct {
	Bucket   string
	Region   string
	Endpoint string // optional, for MinIO/LocalStack
	Prefix   string
}

// NewS3 builds a mirror backed by cfg, loading AWS credentials from the
// default provider chain.
func NewS3(ctx context.Context, cfg S3Config) (*S3, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("graphmirror: load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &S3{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

// Put uploads data at objectKey, implementing graphstore.Mirror.
func (s *S3) Put(ctx context.Context, objectKey string, data []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.prefix + objectKey),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("graphmirror: s3 put %s: %w", objectKey, err)
	}
	return nil
}
