// Package data implements the knowledge-store facade: ingest, deletion,
// listing and similarity search over the vector store. Used by both the
// retrieval tool and the management endpoints.
package data

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/eldtechnologies/faqbot/internal/llm"
	"github.com/eldtechnologies/faqbot/internal/models"
	"github.com/eldtechnologies/faqbot/internal/store"
)

const (
	defaultLimit = 10
	maxLimit     = 100

	// DefaultTopK is the similarity-search result count when the caller
	// does not specify k.
	DefaultTopK = 5
	maxTopK     = 10
)

// Service is the Data Service: embedding, document CRUD and similarity
// search over a VectorStore.
type Service struct {
	embedder llm.Embedder
	vectors  store.VectorStore
}

// NewService creates a Data Service with injected dependencies.
func NewService(embedder llm.Embedder, vectors store.VectorStore) *Service {
	return &Service{embedder: embedder, vectors: vectors}
}

// Embed delegates to the embedding provider.
func (s *Service) Embed(ctx context.Context, text string) ([]float32, error) {
	return s.embedder.Embed(ctx, text)
}

// IngestItem is one question/answer pair to ingest.
type IngestItem struct {
	Query  string `json:"query"`
	Answer string `json:"answer"`
}

// Ingest embeds each item's query and stores the resulting documents.
// The batch is not atomic: items that fail are skipped and reported in
// the joined error while the rest are still inserted.
func (s *Service) Ingest(ctx context.Context, items []IngestItem) ([]string, error) {
	var ids []string
	var errs []error

	for i, item := range items {
		if item.Query == "" || item.Answer == "" {
			errs = append(errs, fmt.Errorf("item %d: query and answer are required", i))
			continue
		}

		embedding, err := s.embedder.Embed(ctx, item.Query)
		if err != nil {
			errs = append(errs, fmt.Errorf("item %d: embed: %w", i, err))
			continue
		}

		doc := &models.Document{
			ID:        uuid.New().String(),
			Query:     item.Query,
			Answer:    item.Answer,
			Embedding: embedding,
		}
		if err := s.vectors.Upsert(ctx, doc); err != nil {
			errs = append(errs, fmt.Errorf("item %d: store: %w", i, err))
			continue
		}
		ids = append(ids, doc.ID)
	}

	return ids, errors.Join(errs...)
}

// Remove deletes documents by id and returns how many were removed.
func (s *Service) Remove(ctx context.Context, ids []string) (int64, error) {
	return s.vectors.Delete(ctx, ids)
}

// ListParams select a page of documents.
type ListParams struct {
	Page    int               `json:"page"`
	Limit   int               `json:"limit"`
	Search  string            `json:"search,omitempty"`
	Filters []store.Predicate `json:"filter,omitempty"`
}

// List returns a page of documents. Page defaults to 1, limit to 10
// (capped at 100); predicates are validated before touching the store.
func (s *Service) List(ctx context.Context, params ListParams) (*store.DocumentPage, error) {
	if params.Page < 1 {
		params.Page = 1
	}
	if params.Limit < 1 {
		params.Limit = defaultLimit
	}
	if params.Limit > maxLimit {
		return nil, fmt.Errorf("limit must be at most %d", maxLimit)
	}
	for _, f := range params.Filters {
		if err := f.Validate(); err != nil {
			return nil, err
		}
	}

	return s.vectors.Query(ctx, store.DocumentQuery{
		Page:    params.Page,
		Limit:   params.Limit,
		Search:  params.Search,
		Filters: params.Filters,
	})
}

// SimilaritySearch returns up to k documents by descending cosine
// similarity. k is clamped to [1,10] and defaults to 5.
func (s *Service) SimilaritySearch(ctx context.Context, vector []float32, k int) ([]models.DocumentMatch, error) {
	if k <= 0 {
		k = DefaultTopK
	}
	if k > maxTopK {
		k = maxTopK
	}
	return s.vectors.NearestNeighbors(ctx, vector, k)
}
