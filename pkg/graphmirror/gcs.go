//go:build gcp

package graphmirror

import (
	"context"
	"fmt"

	"cloud.google.com/go/storage"
)

// GCS implements graphstore.Mirror against a Google Cloud Storage bucket.
// Isolated behind the "gcp" build tag the same way the teacher isolates
// its own GCS-backed artifact store, so the default build carries no
// dependency on GCP credentials discovery.
type GCS struct {
	client *storage.Client
	bucket string
	prefix string
}

// GCSConfig configures a GCS mirror.
type GCSConfig struct {
	Bucket string
	Prefix string
}

// NewGCS builds a mirror backed by cfg, using application default
// credentials.
func NewGCS(ctx context.Context, cfg GCSConfig) (*GCS, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("graphmirror: create GCS client: %w", err)
	}
	return &GCS{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

// Put uploads data at objectKey, implementing graphstore.Mirror.
func (g *GCS) Put(ctx context.Context, objectKey string, data []byte) error {
	w := g.client.Bucket(g.bucket).Object(g.prefix + objectKey).NewWriter(ctx)
	w.ContentType = "application/json"
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("graphmirror: gcs put %s: %w", objectKey, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("graphmirror: gcs put %s: close: %w", objectKey, err)
	}
	return nil
}
