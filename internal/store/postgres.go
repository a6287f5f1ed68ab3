package store

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eldtechnologies/faqbot/internal/models"
)

// PostgresStore is a VectorStore backed by PostgreSQL with the pgvector
// extension. Similarity search is served by the index (cosine distance
// operator <=>), so it scales past the in-process backends.
type PostgresStore struct {
	pool      *pgxpool.Pool
	dimension int
}

// NewPostgresStore creates a new PostgreSQL store with a connection pool.
func NewPostgresStore(ctx context.Context, databaseURL string, dimension int) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, err
	}

	store := &PostgresStore{pool: pool, dimension: dimension}

	if err := store.initSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return store, nil
}

// initSchema creates the extension, table and index if they don't exist.
func (s *PostgresStore) initSchema(ctx context.Context) error {
	schema := fmt.Sprintf(`
	CREATE EXTENSION IF NOT EXISTS vector;

	CREATE TABLE IF NOT EXISTS documents (
		id UUID PRIMARY KEY,
		query TEXT NOT NULL,
		answer TEXT NOT NULL,
		embedding vector(%d) NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	CREATE INDEX IF NOT EXISTS idx_documents_embedding
		ON documents USING hnsw (embedding vector_cosine_ops);
	`, s.dimension)

	_, err := s.pool.Exec(ctx, schema)
	return err
}

// Close closes the database connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Ping checks the database connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Dimension returns the fixed embedding dimensionality.
func (s *PostgresStore) Dimension() int { return s.dimension }

// Upsert inserts or replaces a document.
func (s *PostgresStore) Upsert(ctx context.Context, doc *models.Document) error {
	if len(doc.Embedding) != s.dimension {
		return ErrDimensionMismatch
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO documents (id, query, answer, embedding)
		VALUES ($1, $2, $3, $4::vector)
		ON CONFLICT (id) DO UPDATE SET query = EXCLUDED.query, answer = EXCLUDED.answer, embedding = EXCLUDED.embedding
	`, doc.ID, doc.Query, doc.Answer, vectorLiteral(doc.Embedding))
	return err
}

// Delete removes documents by id and returns how many were removed.
func (s *PostgresStore) Delete(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	tag, err := s.pool.Exec(ctx, `DELETE FROM documents WHERE id = ANY($1::uuid[])`, ids)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// Query returns a page of documents matching the search and filters.
func (s *PostgresStore) Query(ctx context.Context, q DocumentQuery) (*DocumentPage, error) {
	where, args := buildPostgresWhere(q)

	var total int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM documents`+where, args...).Scan(&total)
	if err != nil {
		return nil, err
	}

	offset := (q.Page - 1) * q.Limit
	limitPos := len(args) + 1
	rows, err := s.pool.Query(ctx, fmt.Sprintf(`
		SELECT id, query, answer FROM documents%s
		ORDER BY created_at, id
		LIMIT $%d OFFSET $%d
	`, where, limitPos, limitPos+1), append(args, q.Limit, offset)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []models.Document
	for rows.Next() {
		var d models.Document
		if err := rows.Scan(&d.ID, &d.Query, &d.Answer); err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &DocumentPage{
		Results:    docs,
		Total:      total,
		Page:       q.Page,
		TotalPages: (total + q.Limit - 1) / q.Limit,
	}, nil
}

// NearestNeighbors runs an index-backed cosine similarity search.
func (s *PostgresStore) NearestNeighbors(ctx context.Context, vector []float32, k int) ([]models.DocumentMatch, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, query, answer, 1 - (embedding <=> $1::vector) AS score
		FROM documents
		ORDER BY embedding <=> $1::vector
		LIMIT $2
	`, vectorLiteral(vector), k)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []models.DocumentMatch
	for rows.Next() {
		var m models.DocumentMatch
		if err := rows.Scan(&m.ID, &m.Query, &m.Answer, &m.Score); err != nil {
			return nil, err
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

// buildPostgresWhere assembles the WHERE clause for a listing query.
// Predicate fields are validated against the whitelist before they reach
// the store (Predicate.Validate), so interpolating them is safe.
func buildPostgresWhere(q DocumentQuery) (string, []any) {
	var conds []string
	var args []any

	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if q.Search != "" {
		conds = append(conds, `query ILIKE '%' || `+arg(q.Search)+` || '%'`)
	}
	for _, f := range q.Filters {
		field := f.Field
		if field == "id" {
			field = "id::text"
		}
		switch f.Op {
		case OpEq:
			conds = append(conds, field+" = "+arg(f.Value))
		case OpLt:
			conds = append(conds, field+" < "+arg(f.Value))
		case OpLte:
			conds = append(conds, field+" <= "+arg(f.Value))
		case OpGt:
			conds = append(conds, field+" > "+arg(f.Value))
		case OpGte:
			conds = append(conds, field+" >= "+arg(f.Value))
		case OpContains:
			conds = append(conds, field+` ILIKE '%' || `+arg(f.Value)+` || '%'`)
		}
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// vectorLiteral renders a vector in pgvector's text format: [1,2,3]
func vectorLiteral(v []float32) string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, f := range v {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.FormatFloat(float64(f), 'g', -1, 32))
	}
	sb.WriteByte(']')
	return sb.String()
}
