package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/eldtechnologies/faqbot/internal/models"
)

// SQLiteStore is a VectorStore backed by SQLite. Embeddings are stored as
// JSON blobs and ranked by cosine similarity in-process; fine for the
// knowledge-base sizes this service handles, Postgres+pgvector is the
// production backend.
type SQLiteStore struct {
	db        *sql.DB
	dimension int
}

// NewSQLiteStore creates a new SQLite store.
// If dbPath is empty, defaults to "./data/faqbot.db"
func NewSQLiteStore(ctx context.Context, dbPath string, dimension int) (*SQLiteStore, error) {
	if dbPath == "" {
		dbPath = "./data/faqbot.db"
	}

	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db, dimension: dimension}

	if err := store.initSchema(ctx); err != nil {
		return nil, err
	}

	return store, nil
}

// initSchema creates tables if they don't exist.
func (s *SQLiteStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		query TEXT NOT NULL,
		answer TEXT NOT NULL,
		embedding BLOB NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_documents_query ON documents(query);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() {
	s.db.Close()
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Dimension returns the fixed embedding dimensionality.
func (s *SQLiteStore) Dimension() int { return s.dimension }

// Upsert inserts or replaces a document.
func (s *SQLiteStore) Upsert(ctx context.Context, doc *models.Document) error {
	if len(doc.Embedding) != s.dimension {
		return ErrDimensionMismatch
	}

	blob, err := json.Marshal(doc.Embedding)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO documents (id, query, answer, embedding)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET query = excluded.query, answer = excluded.answer, embedding = excluded.embedding
	`, doc.ID, doc.Query, doc.Answer, blob)
	return err
}

// Delete removes documents by id and returns how many were removed.
func (s *SQLiteStore) Delete(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Query returns a page of documents matching the search and filters.
func (s *SQLiteStore) Query(ctx context.Context, q DocumentQuery) (*DocumentPage, error) {
	where, args := buildSQLiteWhere(q)

	var total int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`+where, args...).Scan(&total)
	if err != nil {
		return nil, err
	}

	offset := (q.Page - 1) * q.Limit
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, query, answer FROM documents`+where+`
		ORDER BY created_at, id
		LIMIT ? OFFSET ?
	`, append(args, q.Limit, offset)...)
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

// NearestNeighbors ranks all stored documents by cosine similarity.
func (s *SQLiteStore) NearestNeighbors(ctx context.Context, vector []float32, k int) ([]models.DocumentMatch, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, query, answer, embedding FROM documents`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []models.DocumentMatch
	for rows.Next() {
		var m models.DocumentMatch
		var blob []byte
		if err := rows.Scan(&m.ID, &m.Query, &m.Answer, &blob); err != nil {
			return nil, err
		}
		var embedding []float32
		if err := json.Unmarshal(blob, &embedding); err != nil {
			continue // corrupt row, skip it
		}
		m.Score = CosineSimilarity(vector, embedding)
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if k > len(matches) {
		k = len(matches)
	}
	return matches[:k], nil
}

// buildSQLiteWhere assembles the WHERE clause for a listing query.
func buildSQLiteWhere(q DocumentQuery) (string, []any) {
	var conds []string
	var args []any

	if q.Search != "" {
		conds = append(conds, `lower(query) LIKE '%' || lower(?) || '%'`)
		args = append(args, q.Search)
	}
	for _, f := range q.Filters {
		switch f.Op {
		case OpEq:
			conds = append(conds, fmt.Sprintf("%s = ?", f.Field))
			args = append(args, f.Value)
		case OpLt:
			conds = append(conds, fmt.Sprintf("%s < ?", f.Field))
			args = append(args, f.Value)
		case OpLte:
			conds = append(conds, fmt.Sprintf("%s <= ?", f.Field))
			args = append(args, f.Value)
		case OpGt:
			conds = append(conds, fmt.Sprintf("%s > ?", f.Field))
			args = append(args, f.Value)
		case OpGte:
			conds = append(conds, fmt.Sprintf("%s >= ?", f.Field))
			args = append(args, f.Value)
		case OpContains:
			conds = append(conds, fmt.Sprintf("lower(%s) LIKE '%%' || lower(?) || '%%'", f.Field))
			args = append(args, f.Value)
		}
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}
