package store

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/eldtechnologies/faqbot/internal/models"
)

// MemoryStore is an in-memory VectorStore using brute-force cosine
// similarity. Used in tests and for local development without a database.
type MemoryStore struct {
	mu        sync.RWMutex
	dimension int
	docs      []models.Document // insertion order, for stable pagination
	index     map[string]int    // id -> position in docs
}

// NewMemoryStore creates an empty in-memory store with the given
// embedding dimensionality.
func NewMemoryStore(dimension int) *MemoryStore {
	return &MemoryStore{
		dimension: dimension,
		index:     make(map[string]int),
	}
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() {}

// Ping always succeeds for the in-memory store.
func (s *MemoryStore) Ping(ctx context.Context) error { return nil }

// Dimension returns the fixed embedding dimensionality.
func (s *MemoryStore) Dimension() int { return s.dimension }

// Upsert inserts or replaces a document.
func (s *MemoryStore) Upsert(ctx context.Context, doc *models.Document) error {
	if len(doc.Embedding) != s.dimension {
		return ErrDimensionMismatch
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if pos, ok := s.index[doc.ID]; ok {
		s.docs[pos] = *doc
		return nil
	}
	s.index[doc.ID] = len(s.docs)
	s.docs = append(s.docs, *doc)
	return nil
}

// Delete removes documents by id and returns how many were removed.
func (s *MemoryStore) Delete(ctx context.Context, ids []string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	remove := make(map[string]bool, len(ids))
	for _, id := range ids {
		remove[id] = true
	}

	var kept []models.Document
	var removed int64
	for _, d := range s.docs {
		if remove[d.ID] {
			removed++
			continue
		}
		kept = append(kept, d)
	}

	s.docs = kept
	s.index = make(map[string]int, len(kept))
	for i, d := range kept {
		s.index[d.ID] = i
	}
	return removed, nil
}

// Query returns a page of documents matching the search and filters.
func (s *MemoryStore) Query(ctx context.Context, q DocumentQuery) (*DocumentPage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []models.Document
	for _, d := range s.docs {
		if q.Search != "" && !strings.Contains(strings.ToLower(d.Query), strings.ToLower(q.Search)) {
			continue
		}
		if !matchesFilters(d, q.Filters) {
			continue
		}
		matched = append(matched, models.Document{ID: d.ID, Query: d.Query, Answer: d.Answer})
	}

	return paginate(matched, q.Page, q.Limit), nil
}

// NearestNeighbors returns up to k documents by descending cosine similarity.
func (s *MemoryStore) NearestNeighbors(ctx context.Context, vector []float32, k int) ([]models.DocumentMatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matches := make([]models.DocumentMatch, 0, len(s.docs))
	for _, d := range s.docs {
		matches = append(matches, models.DocumentMatch{
			ID:     d.ID,
			Query:  d.Query,
			Answer: d.Answer,
			Score:  CosineSimilarity(vector, d.Embedding),
		})
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })

	if k > len(matches) {
		k = len(matches)
	}
	return matches[:k], nil
}

// matchesFilters evaluates a conjunctive predicate list against a document.
func matchesFilters(d models.Document, filters []Predicate) bool {
	for _, f := range filters {
		var v string
		switch f.Field {
		case "id":
			v = d.ID
		case "query":
			v = d.Query
		case "answer":
			v = d.Answer
		default:
			return false
		}

		var ok bool
		switch f.Op {
		case OpEq:
			ok = v == f.Value
		case OpLt:
			ok = v < f.Value
		case OpLte:
			ok = v <= f.Value
		case OpGt:
			ok = v > f.Value
		case OpGte:
			ok = v >= f.Value
		case OpContains:
			ok = strings.Contains(strings.ToLower(v), strings.ToLower(f.Value))
		}
		if !ok {
			return false
		}
	}
	return true
}

// paginate slices results for an offset page and fills in totals.
func paginate(docs []models.Document, page, limit int) *DocumentPage {
	total := len(docs)
	totalPages := (total + limit - 1) / limit

	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}

	return &DocumentPage{
		Results:    docs[start:end],
		Total:      total,
		Page:       page,
		TotalPages: totalPages,
	}
}

// CosineSimilarity computes the cosine similarity of two vectors.
// Returns 0 for zero-length or zero-norm vectors.
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
