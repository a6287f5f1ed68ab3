package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/eldtechnologies/faqbot/internal/models"
)

// ErrDimensionMismatch is returned by Upsert when a document's embedding
// length differs from the store's fixed dimensionality.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// Op is a filter predicate operator.
type Op string

const (
	OpEq       Op = "eq"
	OpLt       Op = "lt"
	OpLte      Op = "lte"
	OpGt       Op = "gt"
	OpGte      Op = "gte"
	OpContains Op = "contains"
)

// filterFields are the document fields predicates may reference.
var filterFields = map[string]bool{
	"id":     true,
	"query":  true,
	"answer": true,
}

// Predicate is one conjunctive filter condition on a stored field.
// Range operators compare lexicographically (all stored fields are text).
type Predicate struct {
	Field string `json:"field"`
	Op    Op     `json:"op"`
	Value string `json:"value"`
}

// Validate rejects predicates on unknown fields or with unknown operators.
func (p Predicate) Validate() error {
	if !filterFields[p.Field] {
		return fmt.Errorf("unknown filter field %q", p.Field)
	}
	switch p.Op {
	case OpEq, OpLt, OpLte, OpGt, OpGte, OpContains:
		return nil
	default:
		return fmt.Errorf("unknown filter op %q", p.Op)
	}
}

// DocumentQuery selects documents for listing. Pagination is offset-based
// and stable only in the absence of concurrent writes.
type DocumentQuery struct {
	Page    int // 1-based
	Limit   int
	Search  string // case-insensitive substring match on query
	Filters []Predicate
}

// DocumentPage is one page of listing results. Embeddings are omitted.
type DocumentPage struct {
	Results    []models.Document `json:"results"`
	Total      int               `json:"total"`
	Page       int               `json:"page"`
	TotalPages int               `json:"totalPages"`
}

// VectorStore is the knowledge-store contract: document CRUD with
// pagination, plus k-nearest-neighbor search over the stored embeddings.
// PostgresStore, SQLiteStore and MemoryStore implement this interface.
type VectorStore interface {
	// Connection management
	Close()
	Ping(ctx context.Context) error

	// Dimension returns the fixed embedding dimensionality all stored
	// documents must satisfy.
	Dimension() int

	Upsert(ctx context.Context, doc *models.Document) error
	Delete(ctx context.Context, ids []string) (int64, error)
	Query(ctx context.Context, q DocumentQuery) (*DocumentPage, error)

	// NearestNeighbors returns up to k matches ordered by descending
	// cosine similarity. Tie order is store-defined.
	NearestNeighbors(ctx context.Context, vector []float32, k int) ([]models.DocumentMatch, error)
}

// CheckpointStore persists per-thread conversation state across
// invocations. Sequential invocations for the same thread must observe
// each other's writes in program order; cross-thread access is
// independent. MemoryCheckpoints and RedisCheckpoints implement this.
type CheckpointStore interface {
	// LoadThread returns the state for the thread, or a fresh empty
	// state when the thread has not been seen before.
	LoadThread(ctx context.Context, threadID string) (*models.ThreadState, error)

	// SaveThread replaces the stored state for the thread.
	SaveThread(ctx context.Context, state *models.ThreadState) error
}
