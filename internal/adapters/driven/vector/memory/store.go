// Package memory provides an in-memory VectorStore using brute-force
// cosine similarity. Suitable for single-process workspace sessions.
package memory

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/custodia-labs/workbench/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.VectorStore = (*Store)(nil)

type entry struct {
	embedding []float32
	metadata  map[string]string
}

// Store is an in-memory implementation of driven.VectorStore.
type Store struct {
	mu      sync.RWMutex
	entries map[string]entry
}

// New creates an empty in-memory vector store.
func New() *Store {
	return &Store{entries: make(map[string]entry)}
}

// Store inserts or replaces the vector for the given id.
func (s *Store) Store(_ context.Context, id string, embedding []float32, metadata map[string]string) error {
	vec := make([]float32, len(embedding))
	copy(vec, embedding)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[id] = entry{embedding: vec, metadata: metadata}
	return nil
}

// Delete removes a vector. Unknown ids are a no-op.
func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, id)
	return nil
}

// Search returns the k entries most similar to the query vector by
// cosine similarity, highest first.
func (s *Store) Search(_ context.Context, query []float32, k int) ([]driven.VectorHit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	hits := make([]driven.VectorHit, 0, len(s.entries))
	for id, e := range s.entries {
		hits = append(hits, driven.VectorHit{
			ID:       id,
			Score:    CosineSimilarity(query, e.embedding),
			Metadata: e.metadata,
		})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Close releases resources.
func (s *Store) Close() error {
	return nil
}

// CosineSimilarity computes the cosine of the angle between two vectors.
// Mismatched lengths or zero vectors score 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
