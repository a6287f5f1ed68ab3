package store

import (
	"context"
	"strconv"
	"testing"

	"github.com/eldtechnologies/faqbot/internal/models"
)

const testDims = 4

func seedStore(t *testing.T, n int) *MemoryStore {
	t.Helper()
	s := NewMemoryStore(testDims)
	for i := 0; i < n; i++ {
		err := s.Upsert(context.Background(), &models.Document{
			ID:        "doc-" + strconv.Itoa(i),
			Query:     "question " + strconv.Itoa(i),
			Answer:    "answer " + strconv.Itoa(i),
			Embedding: []float32{float32(i), 1, 0, 0},
		})
		if err != nil {
			t.Fatal(err)
		}
	}
	return s
}

func TestUpsertRejectsDimensionMismatch(t *testing.T) {
	s := NewMemoryStore(testDims)

	err := s.Upsert(context.Background(), &models.Document{
		ID:        "bad",
		Query:     "q",
		Answer:    "a",
		Embedding: []float32{1, 2}, // wrong length
	})
	if err != ErrDimensionMismatch {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestUpsertReplacesExisting(t *testing.T) {
	s := seedStore(t, 1)

	err := s.Upsert(context.Background(), &models.Document{
		ID:        "doc-0",
		Query:     "updated question",
		Answer:    "updated answer",
		Embedding: []float32{0, 1, 0, 0},
	})
	if err != nil {
		t.Fatal(err)
	}

	page, err := s.Query(context.Background(), DocumentQuery{Page: 1, Limit: 10})
	if err != nil {
		t.Fatal(err)
	}
	if page.Total != 1 {
		t.Fatalf("upsert of an existing id must not add a document, total %d", page.Total)
	}
	if page.Results[0].Query != "updated question" {
		t.Errorf("document not replaced: %q", page.Results[0].Query)
	}
}

func TestDeleteReturnsRemovedCount(t *testing.T) {
	s := seedStore(t, 5)

	removed, err := s.Delete(context.Background(), []string{"doc-1", "doc-3", "missing"})
	if err != nil {
		t.Fatal(err)
	}
	if removed != 2 {
		t.Errorf("expected 2 removed, got %d", removed)
	}

	page, _ := s.Query(context.Background(), DocumentQuery{Page: 1, Limit: 10})
	if page.Total != 3 {
		t.Errorf("expected 3 documents left, got %d", page.Total)
	}
}

func TestQueryPagination(t *testing.T) {
	s := seedStore(t, 25)

	page, err := s.Query(context.Background(), DocumentQuery{Page: 3, Limit: 10})
	if err != nil {
		t.Fatal(err)
	}
	if page.Total != 25 || page.TotalPages != 3 || page.Page != 3 {
		t.Errorf("unexpected page meta: %+v", page)
	}
	if len(page.Results) != 5 {
		t.Errorf("last page should hold the remainder, got %d", len(page.Results))
	}

	past, _ := s.Query(context.Background(), DocumentQuery{Page: 9, Limit: 10})
	if len(past.Results) != 0 {
		t.Errorf("page past the end should be empty, got %d", len(past.Results))
	}
}

func TestQuerySearchIsCaseInsensitive(t *testing.T) {
	s := NewMemoryStore(testDims)
	s.Upsert(context.Background(), &models.Document{
		ID: "a", Query: "What are your Opening Hours?", Answer: "9-5", Embedding: []float32{1, 0, 0, 0},
	})
	s.Upsert(context.Background(), &models.Document{
		ID: "b", Query: "Do you deliver?", Answer: "yes", Embedding: []float32{0, 1, 0, 0},
	})

	page, err := s.Query(context.Background(), DocumentQuery{Page: 1, Limit: 10, Search: "opening hours"})
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Results) != 1 || page.Results[0].ID != "a" {
		t.Errorf("expected the hours document, got %+v", page.Results)
	}
}

func TestQueryFilters(t *testing.T) {
	s := seedStore(t, 10)

	page, err := s.Query(context.Background(), DocumentQuery{
		Page:  1,
		Limit: 10,
		Filters: []Predicate{
			{Field: "answer", Op: OpContains, Value: "answer"},
			{Field: "id", Op: OpEq, Value: "doc-7"},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Results) != 1 || page.Results[0].ID != "doc-7" {
		t.Errorf("conjunctive filter should match exactly doc-7, got %+v", page.Results)
	}
}

func TestPredicateValidate(t *testing.T) {
	if err := (Predicate{Field: "query", Op: OpContains, Value: "x"}).Validate(); err != nil {
		t.Errorf("valid predicate rejected: %v", err)
	}
	if err := (Predicate{Field: "embedding", Op: OpEq, Value: "x"}).Validate(); err == nil {
		t.Error("predicate on non-listed field should be rejected")
	}
	if err := (Predicate{Field: "query", Op: "regex", Value: "x"}).Validate(); err == nil {
		t.Error("unknown operator should be rejected")
	}
}

func TestNearestNeighborsOrderAndBound(t *testing.T) {
	s := NewMemoryStore(testDims)
	vectors := [][]float32{
		{1, 0, 0, 0},
		{0.9, 0.1, 0, 0},
		{0, 1, 0, 0},
		{0, 0, 1, 0},
	}
	for i, v := range vectors {
		s.Upsert(context.Background(), &models.Document{
			ID: "doc-" + strconv.Itoa(i), Query: "q", Answer: "a", Embedding: v,
		})
	}

	matches, err := s.NearestNeighbors(context.Background(), []float32{1, 0, 0, 0}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}
	if matches[0].ID != "doc-0" || matches[1].ID != "doc-1" {
		t.Errorf("matches not ordered by similarity: %+v", matches)
	}
	if matches[0].Score < matches[1].Score {
		t.Error("scores must be descending")
	}

	// k larger than the corpus is bounded by the corpus
	all, _ := s.NearestNeighbors(context.Background(), []float32{1, 0, 0, 0}, 10)
	if len(all) != 4 {
		t.Errorf("expected 4 matches, got %d", len(all))
	}
	seen := make(map[string]bool)
	for _, m := range all {
		if seen[m.ID] {
			t.Errorf("duplicate id %s in results", m.ID)
		}
		seen[m.ID] = true
	}
}

func TestCosineSimilarity(t *testing.T) {
	if got := CosineSimilarity([]float32{1, 0}, []float32{1, 0}); got < 0.999 {
		t.Errorf("identical vectors should score 1, got %f", got)
	}
	if got := CosineSimilarity([]float32{1, 0}, []float32{0, 1}); got > 0.001 {
		t.Errorf("orthogonal vectors should score 0, got %f", got)
	}
	if got := CosineSimilarity([]float32{0, 0}, []float32{1, 0}); got != 0 {
		t.Errorf("zero vector should score 0, got %f", got)
	}
	if got := CosineSimilarity([]float32{1}, []float32{1, 0}); got != 0 {
		t.Errorf("mismatched lengths should score 0, got %f", got)
	}
}
