// Package graphstore implements the disk-backed graph object store (spec
// §4.3, component C3): two BucketMaps buffer entities and relationships
// by bucket path (conventionally a step ID); the buffer flushes to a
// type-partitioned on-disk index once it crosses a threshold, under a
// single-writer lock, and serves filtered iteration by walking that
// index back off disk.
package graphstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/mindburn-labs/integration-core/pkg/bucketmap"
	"github.com/mindburn-labs/integration-core/pkg/ierr"
	"github.com/mindburn-labs/integration-core/pkg/model"
)

// FlushThreshold is the default total-item-count that triggers an async
// flush of the relevant BucketMap (§4.3).
const FlushThreshold = 500

// FlushParallelism bounds how many buckets are written to disk
// concurrently during one flush.
const FlushParallelism = 8

// KeyLedger enforces _key uniqueness at the point of storage (§3
// invariant: "_key uniqueness is enforced at the point of storage
// (store-level policy, not scheduler)"). pkg/graphstore/keyledger.go
// provides a SQLite-backed implementation.
type KeyLedger interface {
	// Reserve claims kind+key; it returns an error if the key was already
	// claimed by a prior entity/relationship of the same kind.
	Reserve(kind, key string) error
}

// Mirror optionally copies flushed shard bytes to off-box storage.
// pkg/graphmirror provides S3/GCS implementations; nil disables mirroring.
type Mirror interface {
	Put(ctx context.Context, objectKey string, data []byte) error
}

// Store is the single-writer graph object buffer/flusher.
type Store struct {
	cacheDir string
	ledger   KeyLedger
	mirror   Mirror

	mu            sync.Mutex // the single-writer lock (binary semaphore, §4.3)
	entities      *bucketmap.BucketMap[model.Entity]
	relationships *bucketmap.BucketMap[model.Relationship]
}

// New constructs a Store rooted at cacheDir (§3 storage layout). ledger
// and mirror may be nil.
func New(cacheDir string, ledger KeyLedger, mirror Mirror) *Store {
	return &Store{
		cacheDir:      cacheDir,
		ledger:        ledger,
		mirror:        mirror,
		entities:      bucketmap.New[model.Entity](),
		relationships: bucketmap.New[model.Relationship](),
	}
}

// AddEntities appends items to the entities BucketMap under path. If the
// threshold is crossed, the call blocks on an async flush of the
// entities map before returning, applying backpressure.
func (s *Store) AddEntities(ctx context.Context, path string, items []model.Entity) error {
	s.mu.Lock()
	s.entities.Add(path, items)
	over := s.entities.TotalItemCount() >= FlushThreshold
	s.mu.Unlock()

	if over {
		return s.flushEntities(ctx)
	}
	return nil
}

// AddRelationships is AddEntities' relationship-side twin.
func (s *Store) AddRelationships(ctx context.Context, path string, items []model.Relationship) error {
	s.mu.Lock()
	s.relationships.Add(path, items)
	over := s.relationships.TotalItemCount() >= FlushThreshold
	s.mu.Unlock()

	if over {
		return s.flushRelationships(ctx)
	}
	return nil
}

// Flush flushes both maps concurrently.
func (s *Store) Flush(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.flushEntities(gctx) })
	g.Go(func() error { return s.flushRelationships(gctx) })
	return g.Wait()
}

func (s *Store) flushEntities(ctx context.Context) error {
	s.mu.Lock()
	snapshot := s.entities.Drain()
	s.mu.Unlock()
	return flushSnapshot(ctx, s.cacheDir, "entities", snapshot, s.ledger, s.mirror, func(e model.Entity) string { return e.Type }, func(e model.Entity) string { return e.Key })
}

func (s *Store) flushRelationships(ctx context.Context) error {
	s.mu.Lock()
	snapshot := s.relationships.Drain()
	s.mu.Unlock()
	return flushSnapshot(ctx, s.cacheDir, "relationships", snapshot, s.ledger, s.mirror, func(r model.Relationship) string { return r.Type }, func(r model.Relationship) string { return r.Key })
}

func flushSnapshot[T any](ctx context.Context, cacheDir, kind string, snapshot map[string][]T, ledger KeyLedger, mirror Mirror, typeOf func(T) string, keyOf func(T) string) error {
	if len(snapshot) == 0 {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(FlushParallelism)

	for _, items := range snapshot {
		items := items
		g.Go(func() error {
			return flushBucket(gctx, cacheDir, kind, items, ledger, mirror, typeOf, keyOf)
		})
	}
	return g.Wait()
}

func flushBucket[T any](ctx context.Context, cacheDir, kind string, items []T, ledger KeyLedger, mirror Mirror, typeOf func(T) string, keyOf func(T) string) error {
	byType := make(map[string][]T)
	for _, item := range items {
		t := typeOf(item)
		byType[t] = append(byType[t], item)
		if ledger != nil {
			if err := ledger.Reserve(kind, keyOf(item)); err != nil {
				return ierr.Canonicalization(fmt.Sprintf("duplicate _key %q for kind %s: %v", keyOf(item), kind, err))
			}
		}
	}

	for typ, typed := range byType {
		shardID := uuid.NewString()
		payload := map[string][]T{kind: typed}
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("graphstore: marshal shard: %w", err)
		}

		shardPath := filepath.Join(cacheDir, "index", kind, typ, shardID+".json")
		if err := writeFile(shardPath, data); err != nil {
			return err
		}

		if mirror != nil {
			objectKey := fmt.Sprintf("%s/%s/%s.json", kind, typ, shardID)
			if err := mirror.Put(ctx, objectKey, data); err != nil {
				return fmt.Errorf("graphstore: mirror shard %s: %w", objectKey, err)
			}
		}
	}
	return nil
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("graphstore: mkdir %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("graphstore: write %s: %w", path, err)
	}
	return nil
}
