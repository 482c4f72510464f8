package graphstore

import (
	"context"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mindburn-labs/integration-core/pkg/model"
)

func mkEntity(t *testing.T, key, typ string) model.Entity {
	t.Helper()
	return model.Entity{Key: key, Type: typ, Class: []string{"Resource"}, Properties: map[string]any{"displayName": key}}
}

func TestAddEntitiesBelowThresholdDoesNotFlush(t *testing.T) {
	dir := t.TempDir()
	s := New(dir, nil, nil)
	ctx := context.Background()

	for i := 0; i < FlushThreshold-1; i++ {
		require.NoError(t, s.AddEntities(ctx, "step-a", []model.Entity{mkEntity(t, uniqueKey(i), "t")}))
	}
	assert.Equal(t, FlushThreshold-1, s.entities.TotalItemCount())

	var count int
	err := s.IterateEntities(ctx, Filter{}, func(model.Entity) error {
		count++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, FlushThreshold-1, count)
}

func TestFlushResetsBucketMapTotal(t *testing.T) {
	dir := t.TempDir()
	s := New(dir, nil, nil)
	ctx := context.Background()

	items := make([]model.Entity, FlushThreshold)
	for i := range items {
		items[i] = mkEntity(t, uniqueKey(i), "t")
	}
	require.NoError(t, s.AddEntities(ctx, "step-a", items))
	assert.Equal(t, 0, s.entities.TotalItemCount())
}

func TestIterateReturnsExactlyAddedItemsOfMatchingType(t *testing.T) {
	dir := t.TempDir()
	s := New(dir, nil, nil)
	ctx := context.Background()

	require.NoError(t, s.AddEntities(ctx, "step-a", []model.Entity{mkEntity(t, "a1", "TypeA"), mkEntity(t, "b1", "TypeB")}))
	require.NoError(t, s.Flush(ctx))

	var gotA, gotB []model.Entity
	require.NoError(t, s.IterateEntities(ctx, Filter{Type: "TypeA"}, func(e model.Entity) error {
		gotA = append(gotA, e)
		return nil
	}))
	require.NoError(t, s.IterateEntities(ctx, Filter{Type: "TypeB"}, func(e model.Entity) error {
		gotB = append(gotB, e)
		return nil
	}))

	require.Len(t, gotA, 1)
	require.Len(t, gotB, 1)
	assert.Equal(t, "a1", gotA[0].Key)
	assert.Equal(t, "b1", gotB[0].Key)
	assert.Equal(t, "a1", gotA[0].Properties["displayName"])
}

func TestDuplicateKeyRejectedByLedger(t *testing.T) {
	dir := t.TempDir()
	ledger, err := NewSQLiteKeyLedger(":memory:")
	require.NoError(t, err)
	defer ledger.Close()

	s := New(dir, ledger, nil)
	ctx := context.Background()

	require.NoError(t, s.AddEntities(ctx, "step-a", []model.Entity{mkEntity(t, "dup", "t")}))
	require.NoError(t, s.Flush(ctx))

	require.NoError(t, s.AddEntities(ctx, "step-b", []model.Entity{mkEntity(t, "dup", "t")}))
	err = s.Flush(ctx)
	require.Error(t, err)
}

func uniqueKey(i int) string {
	return "k-" + strconv.Itoa(i)
}
