package graphstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mindburn-labs/integration-core/pkg/model"
)

// Filter narrows iteration to one _type; an empty Type iterates every
// type's shards.
type Filter struct {
	Type string
}

type entityShard struct {
	Entities []model.Entity `json:"entities"`
}

type relationshipShard struct {
	Relationships []model.Relationship `json:"relationships"`
}

// IterateEntities flushes the entities map, then walks the on-disk type
// index matching filter.Type, decoding each shard and invoking iteratee
// once per entity in shard-discovery, then insertion, order.
func (s *Store) IterateEntities(ctx context.Context, filter Filter, iteratee func(model.Entity) error) error {
	if err := s.flushEntities(ctx); err != nil {
		return err
	}
	return walkShards(s.cacheDir, "entities", filter.Type, func(path string) error {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("graphstore: read shard %s: %w", path, err)
		}
		var shard entityShard
		if err := json.Unmarshal(data, &shard); err != nil {
			return fmt.Errorf("graphstore: decode shard %s: %w", path, err)
		}
		for _, e := range shard.Entities {
			if err := iteratee(e); err != nil {
				return err
			}
		}
		return nil
	})
}

// IterateRelationships is IterateEntities' relationship-side twin.
func (s *Store) IterateRelationships(ctx context.Context, filter Filter, iteratee func(model.Relationship) error) error {
	if err := s.flushRelationships(ctx); err != nil {
		return err
	}
	return walkShards(s.cacheDir, "relationships", filter.Type, func(path string) error {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("graphstore: read shard %s: %w", path, err)
		}
		var shard relationshipShard
		if err := json.Unmarshal(data, &shard); err != nil {
			return fmt.Errorf("graphstore: decode shard %s: %w", path, err)
		}
		for _, r := range shard.Relationships {
			if err := iteratee(r); err != nil {
				return err
			}
		}
		return nil
	})
}

func walkShards(cacheDir, kind, typeFilter string, visit func(path string) error) error {
	indexRoot := filepath.Join(cacheDir, "index", kind)
	typeDirs, err := os.ReadDir(indexRoot)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("graphstore: read index %s: %w", indexRoot, err)
	}

	for _, typeDir := range typeDirs {
		if !typeDir.IsDir() {
			continue
		}
		if typeFilter != "" && typeDir.Name() != typeFilter {
			continue
		}
		dirPath := filepath.Join(indexRoot, typeDir.Name())
		shardFiles, err := os.ReadDir(dirPath)
		if err != nil {
			return fmt.Errorf("graphstore: read shard dir %s: %w", dirPath, err)
		}
		for _, shard := range shardFiles {
			if shard.IsDir() {
				continue
			}
			if err := visit(filepath.Join(dirPath, shard.Name())); err != nil {
				return err
			}
		}
	}
	return nil
}
