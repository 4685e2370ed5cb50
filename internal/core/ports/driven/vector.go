package driven

import "context"

// VectorStore stores embeddings and answers nearest-neighbour queries.
// Durability is entirely the store's concern; the hybrid index never
// caches vectors itself.
type VectorStore interface {
	// Store inserts or replaces the vector for the given id.
	Store(ctx context.Context, id string, embedding []float32, metadata map[string]string) error

	// Delete removes a vector from the store. Unknown ids are a no-op.
	Delete(ctx context.Context, id string) error

	// Search finds the k nearest neighbours to the query vector.
	Search(ctx context.Context, query []float32, k int) ([]VectorHit, error)

	// Close releases resources.
	Close() error
}

// VectorHit represents a similarity search result.
type VectorHit struct {
	// ID is the matched document id (a workspace path).
	ID string

	// Score is the cosine similarity (0-1).
	Score float64

	// Metadata is whatever was stored alongside the vector.
	Metadata map[string]string
}
