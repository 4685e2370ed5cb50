package driving

import (
	"context"

	"github.com/custodia-labs/workbench/internal/core/domain"
)

// SearchIndex is the driving interface over the hybrid index: upsert
// documents, search them, and prune entries for deleted files.
type SearchIndex interface {
	// Upsert adds or replaces a document keyed by its path.
	Upsert(ctx context.Context, doc domain.IndexedDocument) error

	// Search ranks indexed documents against the query.
	Search(ctx context.Context, query string, opts domain.SearchOptions) ([]domain.SearchHit, error)

	// Remove deletes a document from both the lexical and vector halves.
	Remove(ctx context.Context, path string) error

	// Len reports the number of indexed documents.
	Len() int
}
