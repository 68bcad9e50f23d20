// Package index wraps the Postgres/pgvector similarity store behind the
// narrow surface the retrieval pipeline needs: upsert, filtered
// nearest-neighbor search and delete by file id.
package index

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/docchat/internal/model"
	appErr "github.com/xxxsen/docchat/internal/pkg/errors"
)

type Config struct {
	DSN       string `json:"dsn"`
	Table     string `json:"table"`
	VectorDim int    `json:"vector_dim"`
	EfSearch  int    `json:"ef_search"`
}

type Store struct {
	db       *sqlx.DB
	table    string
	dim      int
	efSearch int
}

func Open(cfg Config) (*Store, error) {
	db, err := sqlx.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open index db: %w", err)
	}
	return New(db, cfg), nil
}

func New(db *sqlx.DB, cfg Config) *Store {
	table := cfg.Table
	if table == "" {
		table = "doc_chunks"
	}
	dim := cfg.VectorDim
	if dim <= 0 {
		dim = 1024
	}
	efSearch := cfg.EfSearch
	if efSearch <= 0 {
		efSearch = 64
	}
	return &Store{db: db, table: table, dim: dim, efSearch: efSearch}
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", appErr.ErrIndexUnavailable, err)
	}
	return nil
}

// EnsureSchema creates the chunk table and its indexes. It is idempotent;
// running it against an existing schema is a no-op.
func (s *Store) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id BIGSERIAL PRIMARY KEY,
			file_id TEXT NOT NULL,
			file_name TEXT NOT NULL,
			file_path TEXT NOT NULL,
			page_number INT NOT NULL,
			chunk_number INT NOT NULL,
			content TEXT NOT NULL,
			exact_data TEXT NOT NULL,
			embedding vector(%d) NOT NULL
		)`, s.table, s.dim),
		fmt.Sprintf(`CREATE UNIQUE INDEX IF NOT EXISTS idx_%s_chunk
			ON %s (file_id, page_number, chunk_number)`, s.table, s.table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_file_id ON %s (file_id)`, s.table, s.table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_embedding
			ON %s USING hnsw (embedding vector_cosine_ops)
			WITH (m = 16, ef_construction = 256)`, s.table, s.table),
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%w: ensure schema: %v", appErr.ErrIndexUnavailable, err)
		}
	}
	return nil
}

// Upsert stores documents with their vectors. Re-ingesting the same
// (file_id, page, chunk) replaces the previous row.
func (s *Store) Upsert(ctx context.Context, docs []model.Document, vectors [][]float32) error {
	if len(docs) != len(vectors) {
		return fmt.Errorf("%d documents with %d vectors", len(docs), len(vectors))
	}
	if len(docs) == 0 {
		return nil
	}
	query := fmt.Sprintf(`
		INSERT INTO %s (file_id, file_name, file_path, page_number, chunk_number, content, exact_data, embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (file_id, page_number, chunk_number) DO UPDATE SET
			file_name = EXCLUDED.file_name,
			file_path = EXCLUDED.file_path,
			content = EXCLUDED.content,
			exact_data = EXCLUDED.exact_data,
			embedding = EXCLUDED.embedding
	`, s.table)
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin upsert: %v", appErr.ErrIndexUnavailable, err)
	}
	defer tx.Rollback()
	for i, doc := range docs {
		meta := doc.Metadata
		if _, err := tx.ExecContext(ctx, query,
			meta.FileID,
			meta.FileName,
			meta.FilePath,
			meta.PageNumber,
			meta.ChunkNumber,
			doc.Content,
			meta.ExactData,
			pgvector.NewVector(vectors[i]),
		); err != nil {
			return fmt.Errorf("%w: upsert chunk %d: %v", appErr.ErrIndexUnavailable, i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit upsert: %v", appErr.ErrIndexUnavailable, err)
	}
	return nil
}

// Search returns the k nearest chunks by cosine similarity. A non-empty
// fileIDs set is applied inside the query so the limit is satisfied by
// eligible candidates only.
func (s *Store) Search(ctx context.Context, vector []float32, k int, fileIDs []string) ([]model.SearchHit, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: begin search: %v", appErr.ErrIndexUnavailable, err)
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("SET LOCAL hnsw.ef_search = %d", s.efSearch)); err != nil {
		return nil, fmt.Errorf("%w: set ef_search: %v", appErr.ErrIndexUnavailable, err)
	}

	query := fmt.Sprintf(`
		SELECT file_id, file_name, file_path, page_number, chunk_number, content, exact_data,
			1 - (embedding <=> $1) AS score
		FROM %s
	`, s.table)
	args := []interface{}{pgvector.NewVector(vector)}
	if len(fileIDs) > 0 {
		query += " WHERE file_id = ANY($2)"
		args = append(args, pq.Array(fileIDs))
	}
	query += fmt.Sprintf(" ORDER BY embedding <=> $1 LIMIT %d", k)

	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: search: %v", appErr.ErrIndexUnavailable, err)
	}
	defer rows.Close()

	var hits []model.SearchHit
	for rows.Next() {
		var hit model.SearchHit
		meta := &hit.Document.Metadata
		if err := rows.Scan(
			&meta.FileID,
			&meta.FileName,
			&meta.FilePath,
			&meta.PageNumber,
			&meta.ChunkNumber,
			&hit.Document.Content,
			&meta.ExactData,
			&hit.Score,
		); err != nil {
			return nil, fmt.Errorf("%w: scan hit: %v", appErr.ErrIndexUnavailable, err)
		}
		hits = append(hits, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate hits: %v", appErr.ErrIndexUnavailable, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: commit search: %v", appErr.ErrIndexUnavailable, err)
	}
	logutil.GetLogger(ctx).Debug("vector search done", zap.Int("hits", len(hits)), zap.Int("k", k))
	return hits, nil
}

// DeleteByFileID removes every chunk of the file. Deleting a file that is
// not indexed is a no-op returning count 0.
func (s *Store) DeleteByFileID(ctx context.Context, fileID string) (int64, error) {
	res, err := s.db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE file_id = $1", s.table), fileID)
	if err != nil {
		return 0, fmt.Errorf("%w: delete %s: %v", appErr.ErrIndexUnavailable, fileID, err)
	}
	return res.RowsAffected()
}

func (s *Store) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.GetContext(ctx, &count, fmt.Sprintf("SELECT COUNT(*) FROM %s", s.table)); err != nil {
		return 0, fmt.Errorf("%w: count: %v", appErr.ErrIndexUnavailable, err)
	}
	return count, nil
}
