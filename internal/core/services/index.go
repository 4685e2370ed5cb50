package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/workbench/internal/core/domain"
	"github.com/custodia-labs/workbench/internal/core/ports/driven"
	"github.com/custodia-labs/workbench/internal/core/ports/driving"
	"github.com/custodia-labs/workbench/internal/logger"
)

// Ensure HybridIndex implements the interface.
var _ driving.SearchIndex = (*HybridIndex)(nil)

// BM25 parameters.
const (
	bm25K1 = 1.2
	bm25B  = 0.75

	// hybridPoolFactor widens the lexical candidate pool in hybrid mode
	// so the blend is not starved of keyword matches.
	hybridPoolFactor = 3
)

// HybridIndex maintains an in-memory lexical (BM25) index over workspace
// documents and delegates the vector half to an embedding service plus a
// vector store. Lexical state is guarded by a single RWMutex: upserts
// take the write lock, searches score under the read lock.
type HybridIndex struct {
	mu      sync.RWMutex
	docs    map[string]domain.IndexedDocument
	docFreq map[string]int // term -> number of documents containing it
	lengths map[string]int // path -> token count
	sumLen  int            // sum of all token counts, for the average

	embedder driven.EmbeddingService
	vectors  driven.VectorStore
}

// NewHybridIndex creates a hybrid index. The embedder and vector store
// are optional; when either is nil the index degrades to lexical-only
// and vector/hybrid searches fall back to BM25.
func NewHybridIndex(embedder driven.EmbeddingService, vectors driven.VectorStore) *HybridIndex {
	return &HybridIndex{
		docs:     make(map[string]domain.IndexedDocument),
		docFreq:  make(map[string]int),
		lengths:  make(map[string]int),
		embedder: embedder,
		vectors:  vectors,
	}
}

// Len reports the number of indexed documents.
func (ix *HybridIndex) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.docs)
}

// tokenize lowercases the text, splits on non-alphanumeric runs, and
// drops tokens shorter than 2 characters.
func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9')
	})
	tokens := fields[:0]
	for _, f := range fields {
		if len(f) >= 2 {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// termSet returns the distinct terms in the text.
func termSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range tokenize(text) {
		set[tok] = struct{}{}
	}
	return set
}

// Upsert adds or replaces the document for its path. Document frequency
// counts depend only on current document-set membership: replacing a
// document first subtracts the prior content's term set, so re-indexing
// identical content never double-counts. The embedding is computed
// before any lexical state mutates, so an embedding failure leaves the
// index unchanged.
func (ix *HybridIndex) Upsert(ctx context.Context, doc domain.IndexedDocument) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	// Vector half first: embed and store. A transient failure here is
	// surfaced to the caller with no lexical mutation.
	if ix.embedder != nil && ix.vectors != nil {
		embedding, err := ix.embedder.Embed(ctx, doc.Content)
		if err != nil {
			return fmt.Errorf("embed %s: %w", doc.Path, err)
		}
		meta := map[string]string{"path": doc.Path, "source": doc.Source}
		if err := ix.vectors.Store(ctx, doc.Path, embedding, meta); err != nil {
			return fmt.Errorf("store vector %s: %w", doc.Path, err)
		}
	}

	tokens := tokenize(doc.Content)

	ix.mu.Lock()
	defer ix.mu.Unlock()

	if old, ok := ix.docs[doc.Path]; ok {
		for term := range termSet(old.Content) {
			if ix.docFreq[term] <= 1 {
				delete(ix.docFreq, term)
			} else {
				ix.docFreq[term]--
			}
		}
		ix.sumLen -= ix.lengths[doc.Path]
	}

	ix.docs[doc.Path] = doc
	ix.lengths[doc.Path] = len(tokens)
	ix.sumLen += len(tokens)
	for term := range termSet(doc.Content) {
		ix.docFreq[term]++
	}

	logger.Debug("Indexed: path=%s tokens=%d docs=%d", doc.Path, len(tokens), len(ix.docs))
	return nil
}

// Remove deletes a document from the lexical index and the vector store.
// Unknown paths are a no-op on the lexical side.
func (ix *HybridIndex) Remove(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	ix.mu.Lock()
	if old, ok := ix.docs[path]; ok {
		for term := range termSet(old.Content) {
			if ix.docFreq[term] <= 1 {
				delete(ix.docFreq, term)
			} else {
				ix.docFreq[term]--
			}
		}
		ix.sumLen -= ix.lengths[path]
		delete(ix.lengths, path)
		delete(ix.docs, path)
	}
	ix.mu.Unlock()

	if ix.vectors != nil {
		if err := ix.vectors.Delete(ctx, path); err != nil {
			return fmt.Errorf("delete vector %s: %w", path, err)
		}
	}
	return nil
}

// scored pairs a path with a normalized score.
type scored struct {
	path  string
	score float64
}

// Search ranks indexed documents against the query. Empty queries and an
// empty index return an empty result set, not an error. Vector and
// embedding failures propagate; retry policy lives above this core.
func (ix *HybridIndex) Search(
	ctx context.Context, query string, opts domain.SearchOptions,
) ([]domain.SearchHit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	opts = opts.Normalize()
	switch opts.Mode {
	case domain.SearchModeBM25, domain.SearchModeVector, domain.SearchModeHybrid:
	default:
		return nil, fmt.Errorf("unknown search mode %q: %w", opts.Mode, domain.ErrInvalidInput)
	}

	query = strings.TrimSpace(query)
	if query == "" || ix.Len() == 0 {
		return []domain.SearchHit{}, nil
	}

	logger.Section("Search Execution")
	logger.Debug("Query: %q mode=%s topK=%d weight=%.2f", query, opts.Mode, opts.TopK, opts.VectorWeight)

	mode := ix.effectiveMode(opts.Mode)
	if mode != opts.Mode {
		logger.Info("Degraded search mode: %s -> %s", opts.Mode, mode)
	}

	var hits []domain.SearchHit
	switch mode {
	case domain.SearchModeBM25:
		lex := ix.lexicalSearch(query, opts.TopK)
		hits = make([]domain.SearchHit, 0, len(lex))
		for _, s := range lex {
			score := s.score
			hits = append(hits, domain.SearchHit{Path: s.path, Score: score, BM25Score: &score})
		}

	case domain.SearchModeVector:
		vec, err := ix.vectorSearch(ctx, query, opts.TopK)
		if err != nil {
			return nil, err
		}
		hits = make([]domain.SearchHit, 0, len(vec))
		for _, s := range vec {
			score := s.score
			hits = append(hits, domain.SearchHit{Path: s.path, Score: score, VectorScore: &score})
		}

	case domain.SearchModeHybrid:
		lex := ix.lexicalSearch(query, opts.TopK*hybridPoolFactor)
		vec, err := ix.vectorSearch(ctx, query, opts.TopK)
		if err != nil {
			return nil, err
		}
		hits = blend(lex, vec, opts.VectorWeight, opts.TopK)
	}

	// Threshold applies after ranking and truncation.
	filtered := hits[:0]
	for _, h := range hits {
		if h.Score >= opts.MinScore {
			filtered = append(filtered, h)
		}
	}
	hits = filtered

	ix.hydrate(hits, query, opts)
	logger.Debug("Results: %d", len(hits))
	return hits, nil
}

// effectiveMode degrades vector-dependent modes to BM25 when no
// embedding service or vector store is configured.
func (ix *HybridIndex) effectiveMode(mode domain.SearchMode) domain.SearchMode {
	if mode == domain.SearchModeBM25 {
		return mode
	}
	if ix.embedder == nil || ix.vectors == nil {
		return domain.SearchModeBM25
	}
	return mode
}

// lexicalSearch scores every document containing at least one query term
// with BM25 and returns the top limit results, min-max normalized.
// Term frequencies are recomputed from the raw content on every call;
// only document membership, document frequency, and lengths are
// maintained incrementally, which keeps replacement drift-free.
func (ix *HybridIndex) lexicalSearch(query string, limit int) []scored {
	queryTerms := tokenize(query)
	if len(queryTerms) == 0 {
		return nil
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	n := len(ix.docs)
	if n == 0 {
		return nil
	}
	avgLen := float64(ix.sumLen) / float64(n)

	var results []scored
	for path, doc := range ix.docs {
		freq := make(map[string]int)
		for _, tok := range tokenize(doc.Content) {
			freq[tok]++
		}

		docLen := float64(ix.lengths[path])
		var score float64
		for _, term := range queryTerms {
			f := float64(freq[term])
			if f == 0 {
				continue
			}
			df := float64(ix.docFreq[term])
			idf := math.Log(1 + (float64(n)-df+0.5)/(df+0.5))
			denom := f + bm25K1*(1-bm25B+bm25B*docLen/avgLen)
			score += idf * (f * (bm25K1 + 1)) / denom
		}
		if score > 0 {
			results = append(results, scored{path: path, score: score})
		}
	}

	// Normalization spans the full retained set; truncation comes after.
	sortScored(results)
	normalizeScores(results)
	if len(results) > limit {
		results = results[:limit]
	}
	return results
}

// vectorSearch embeds the query, asks the vector store for the nearest
// documents, and min-max normalizes the similarity scores.
func (ix *HybridIndex) vectorSearch(ctx context.Context, query string, limit int) ([]scored, error) {
	embedding, err := ix.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	hits, err := ix.vectors.Search(ctx, embedding, limit)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	results := make([]scored, len(hits))
	for i, hit := range hits {
		results[i] = scored{path: hit.ID, score: hit.Score}
	}
	sortScored(results)
	normalizeScores(results)
	return results, nil
}

// blend merges lexical and vector result lists by path with
// score = weight*vector + (1-weight)*bm25; a missing half counts as 0.
func blend(lex, vec []scored, weight float64, topK int) []domain.SearchHit {
	type parts struct {
		bm25, vector *float64
	}
	byPath := make(map[string]*parts)
	for _, s := range lex {
		score := s.score
		byPath[s.path] = &parts{bm25: &score}
	}
	for _, s := range vec {
		score := s.score
		if p, ok := byPath[s.path]; ok {
			p.vector = &score
		} else {
			byPath[s.path] = &parts{vector: &score}
		}
	}

	hits := make([]domain.SearchHit, 0, len(byPath))
	for path, p := range byPath {
		var bm25, vector float64
		if p.bm25 != nil {
			bm25 = *p.bm25
		}
		if p.vector != nil {
			vector = *p.vector
		}
		hits = append(hits, domain.SearchHit{
			Path:        path,
			Score:       weight*vector + (1-weight)*bm25,
			BM25Score:   p.bm25,
			VectorScore: p.vector,
		})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Path < hits[j].Path
	})
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits
}

// hydrate attaches snippets (and optionally content) to the hits.
func (ix *HybridIndex) hydrate(hits []domain.SearchHit, query string, opts domain.SearchOptions) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	for i := range hits {
		doc, ok := ix.docs[hits[i].Path]
		if !ok {
			// Raced a removal between scoring and hydration.
			continue
		}
		snippet, start, end := extractSnippet(doc.Content, query, opts.SnippetLength)
		hits[i].Snippet = snippet
		hits[i].LineStart = start
		hits[i].LineEnd = end
		if opts.IncludeContent {
			hits[i].Content = doc.Content
		}
	}
}

// sortScored orders by score descending, path ascending on ties.
func sortScored(results []scored) {
	sort.Slice(results, func(i, j int) bool {
		if results[i].score != results[j].score {
			return results[i].score > results[j].score
		}
		return results[i].path < results[j].path
	})
}

// normalizeScores min-max normalizes in place into [0,1]. A zero score
// range (including a single result) collapses every score to 1.
func normalizeScores(results []scored) {
	if len(results) == 0 {
		return
	}
	minScore, maxScore := results[0].score, results[0].score
	for _, r := range results[1:] {
		if r.score < minScore {
			minScore = r.score
		}
		if r.score > maxScore {
			maxScore = r.score
		}
	}
	span := maxScore - minScore
	for i := range results {
		if span == 0 {
			results[i].score = 1
		} else {
			results[i].score = (results[i].score - minScore) / span
		}
	}
}
