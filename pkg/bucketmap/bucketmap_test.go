package bucketmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddGetKeysAndTotal(t *testing.T) {
	m := New[string]()
	m.Add("step-a", []string{"x", "y"})
	m.Add("step-b", []string{"z"})

	assert.Equal(t, []string{"x", "y"}, m.Get("step-a"))
	assert.Equal(t, []string{"z"}, m.Get("step-b"))
	assert.Equal(t, 3, m.TotalItemCount())
	assert.ElementsMatch(t, []string{"step-a", "step-b"}, m.Keys())
}

func TestAddPreservesInsertionOrderWithinBucket(t *testing.T) {
	m := New[int]()
	m.Add("a", []int{1, 2})
	m.Add("a", []int{3, 4})
	assert.Equal(t, []int{1, 2, 3, 4}, m.Get("a"))
}

func TestDeleteSubtractsFromTotal(t *testing.T) {
	m := New[int]()
	m.Add("a", []int{1, 2, 3})
	m.Add("b", []int{4})
	require.Equal(t, 4, m.TotalItemCount())

	m.Delete("a")
	assert.Nil(t, m.Get("a"))
	assert.Equal(t, 1, m.TotalItemCount())
}

func TestDeleteUnknownBucketIsNoop(t *testing.T) {
	m := New[int]()
	m.Add("a", []int{1})
	m.Delete("missing")
	assert.Equal(t, 1, m.TotalItemCount())
}

func TestDrainResetsMapAndReturnsSnapshot(t *testing.T) {
	m := New[int]()
	m.Add("a", []int{1, 2})
	m.Add("b", []int{3})

	snap := m.Drain()
	assert.Equal(t, []int{1, 2}, snap["a"])
	assert.Equal(t, []int{3}, snap["b"])
	assert.Equal(t, 0, m.TotalItemCount())
	assert.Empty(t, m.Keys())

	// Adds after drain land in the fresh map, independent of the snapshot.
	m.Add("a", []int{9})
	assert.Equal(t, []int{9}, m.Get("a"))
	assert.Equal(t, []int{1, 2}, snap["a"])
}
