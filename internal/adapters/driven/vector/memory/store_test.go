package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical vectors", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"orthogonal vectors", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite vectors", []float32{1, 0}, []float32{-1, 0}, -1},
		{"mismatched lengths", []float32{1, 0}, []float32{1, 0, 0}, 0},
		{"zero vector", []float32{0, 0}, []float32{1, 1}, 0},
		{"empty vectors", nil, nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, CosineSimilarity(tt.a, tt.b), 1e-9)
		})
	}
}

func TestStore(t *testing.T) {
	ctx := context.Background()

	t.Run("search ranks by similarity", func(t *testing.T) {
		store := New()
		require.NoError(t, store.Store(ctx, "/x", []float32{1, 0, 0}, nil))
		require.NoError(t, store.Store(ctx, "/y", []float32{0, 1, 0}, nil))
		require.NoError(t, store.Store(ctx, "/z", []float32{0.9, 0.1, 0}, nil))

		hits, err := store.Search(ctx, []float32{1, 0, 0}, 2)
		require.NoError(t, err)
		require.Len(t, hits, 2)
		assert.Equal(t, "/x", hits[0].ID)
		assert.Equal(t, "/z", hits[1].ID)
	})

	t.Run("store replaces existing id", func(t *testing.T) {
		store := New()
		require.NoError(t, store.Store(ctx, "/x", []float32{1, 0}, nil))
		require.NoError(t, store.Store(ctx, "/x", []float32{0, 1}, map[string]string{"source": "manual"}))

		hits, err := store.Search(ctx, []float32{0, 1}, 1)
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, "/x", hits[0].ID)
		assert.InDelta(t, 1, hits[0].Score, 1e-9)
		assert.Equal(t, "manual", hits[0].Metadata["source"])
	})

	t.Run("stored vector is copied", func(t *testing.T) {
		store := New()
		vec := []float32{1, 0}
		require.NoError(t, store.Store(ctx, "/x", vec, nil))
		vec[0] = 0 // caller mutation must not leak in

		hits, err := store.Search(ctx, []float32{1, 0}, 1)
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.InDelta(t, 1, hits[0].Score, 1e-9)
	})

	t.Run("delete removes the vector", func(t *testing.T) {
		store := New()
		require.NoError(t, store.Store(ctx, "/x", []float32{1, 0}, nil))
		require.NoError(t, store.Delete(ctx, "/x"))
		require.NoError(t, store.Delete(ctx, "/x")) // idempotent

		hits, err := store.Search(ctx, []float32{1, 0}, 5)
		require.NoError(t, err)
		assert.Empty(t, hits)
	})

	t.Run("equal scores break ties by id", func(t *testing.T) {
		store := New()
		require.NoError(t, store.Store(ctx, "/b", []float32{1, 0}, nil))
		require.NoError(t, store.Store(ctx, "/a", []float32{1, 0}, nil))

		hits, err := store.Search(ctx, []float32{1, 0}, 5)
		require.NoError(t, err)
		require.Len(t, hits, 2)
		assert.Equal(t, "/a", hits[0].ID)
	})
}
