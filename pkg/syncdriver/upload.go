package syncdriver

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mindburn-labs/integration-core/pkg/eventqueue"
	"github.com/mindburn-labs/integration-core/pkg/graphstore"
	"github.com/mindburn-labs/integration-core/pkg/limiter"
	"github.com/mindburn-labs/integration-core/pkg/model"
)

// BatchSize is the recommended maximum number of entities or
// relationships per upload batch (§6).
const BatchSize = 250

// Uploader drains a graph store into a synchronization job, packing items
// into bounded batches and posting them with bounded parallelism.
type Uploader struct {
	client      *Client
	log         model.Logger
	concurrency int
}

// NewUploader returns an Uploader posting through client, announcing
// progress on log, with batch posts bounded to concurrency at a time.
func NewUploader(client *Client, log model.Logger, concurrency int) *Uploader {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Uploader{client: client, log: log, concurrency: concurrency}
}

// Run iterates store's entities and relationships, uploading every batch
// to job. Emits sync_upload_start before the first batch and
// sync_upload_end after the last, per §4.6.
func (u *Uploader) Run(ctx context.Context, store *graphstore.Store, job model.SynchronizationJob) error {
	u.log.SynchronizationUploadStart(job)
	start := time.Now()

	err := u.uploadAll(ctx, store, job)

	u.log.SynchronizationUploadEnd(job)
	u.log.PublishMetric(model.Metric{
		MetricName: "sync_upload_duration",
		Unit:       model.MetricUnitMilliseconds,
		Value:      float64(time.Since(start).Milliseconds()),
		Timestamp:  time.Now().UnixMilli(),
	})
	return err
}

func (u *Uploader) uploadAll(ctx context.Context, store *graphstore.Store, job model.SynchronizationJob) error {
	entityBatches, err := collectBatches(func(visit func(model.Entity) error) error {
		return store.IterateEntities(ctx, graphstore.Filter{}, visit)
	})
	if err != nil {
		return err
	}
	relationshipBatches, err := collectBatches(func(visit func(model.Relationship) error) error {
		return store.IterateRelationships(ctx, graphstore.Filter{}, visit)
	})
	if err != nil {
		return err
	}

	lim := limiter.NewLocal(u.concurrency)
	g, gctx := errgroup.WithContext(ctx)

	for _, batch := range entityBatches {
		batch := batch
		if err := lim.Wait(gctx); err != nil {
			return err
		}
		g.Go(func() error {
			defer lim.Done()
			return u.client.PostEntities(gctx, job, batch)
		})
	}
	for _, batch := range relationshipBatches {
		batch := batch
		if err := lim.Wait(gctx); err != nil {
			return err
		}
		g.Go(func() error {
			defer lim.Done()
			return u.client.PostRelationships(gctx, job, batch)
		})
	}

	return g.Wait()
}

func collectBatches[T any](iterate func(visit func(T) error) error) ([][]T, error) {
	var batches [][]T
	var current []T
	err := iterate(func(item T) error {
		current = append(current, item)
		if len(current) >= BatchSize {
			batches = append(batches, current)
			current = nil
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(current) > 0 {
		batches = append(batches, current)
	}
	return batches, nil
}

// jobPoster adapts Client.PostEvent to eventqueue.Poster for one job.
type jobPoster struct {
	client *Client
	job    model.SynchronizationJob
}

// NewEventPoster returns an eventqueue.Poster that posts every enqueued
// event to job via client.
func NewEventPoster(client *Client, job model.SynchronizationJob) eventqueue.Poster {
	return jobPoster{client: client, job: job}
}

func (p jobPoster) PostEvent(ctx context.Context, name string, payload map[string]any) error {
	return p.client.PostEvent(ctx, p.job, name, payload)
}
