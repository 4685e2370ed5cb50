package domain

// SearchMode selects which half of the hybrid index answers a query.
type SearchMode string

const (
	// SearchModeBM25 uses only the lexical (BM25) index.
	SearchModeBM25 SearchMode = "bm25"

	// SearchModeVector uses only vector similarity search.
	SearchModeVector SearchMode = "vector"

	// SearchModeHybrid blends lexical and vector scores. Default.
	SearchModeHybrid SearchMode = "hybrid"
)

// Default search parameters.
const (
	DefaultTopK          = 5
	DefaultVectorWeight  = 0.6
	DefaultSnippetLength = 200
)

// SearchOptions configures a search query.
type SearchOptions struct {
	// Mode selects bm25, vector, or hybrid scoring. Empty means hybrid.
	Mode SearchMode

	// TopK is the maximum number of results (default 5).
	TopK int

	// MinScore filters results below this combined score after ranking.
	MinScore float64

	// VectorWeight is the blend weight for the vector half in hybrid
	// mode, in [0,1] (default 0.6).
	VectorWeight float64

	// IncludeContent attaches the full document content to each hit.
	IncludeContent bool

	// SnippetLength is the maximum snippet size in characters (default 200).
	SnippetLength int
}

// Normalize fills unset options with their defaults.
func (o SearchOptions) Normalize() SearchOptions {
	if o.Mode == "" {
		o.Mode = SearchModeHybrid
	}
	if o.TopK <= 0 {
		o.TopK = DefaultTopK
	}
	if o.SnippetLength <= 0 {
		o.SnippetLength = DefaultSnippetLength
	}
	if o.VectorWeight < 0 {
		o.VectorWeight = 0
	}
	if o.VectorWeight > 1 {
		o.VectorWeight = 1
	}
	return o
}

// SearchHit is a single ranked search result. Scores are min-max
// normalized into [0,1]; a lone hit always scores 1.
type SearchHit struct {
	// Path is the matched document's workspace path.
	Path string

	// Score is the combined relevance score in [0,1].
	Score float64

	// BM25Score is the normalized lexical score, nil if the lexical
	// half did not contribute.
	BM25Score *float64

	// VectorScore is the normalized similarity score, nil if the vector
	// half did not contribute.
	VectorScore *float64

	// Content is the full document content (only when requested).
	Content string

	// Snippet is a short excerpt around the first query match.
	Snippet string

	// LineStart and LineEnd bound the snippet, 1-indexed inclusive.
	LineStart int
	LineEnd   int
}
