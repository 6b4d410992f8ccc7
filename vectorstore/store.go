// Package vectorstore provides the retrieval index behind RAG: document
// chunks with embeddings persisted in Postgres, searched by cosine
// similarity.
package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Chunk is one indexed passage of a document version.
type Chunk struct {
	DocumentID string    `json:"document_id"`
	Index      int       `json:"index"`
	Content    string    `json:"content"`
	Embedding  []float32 `json:"-"`
}

// SearchResult is a chunk with its similarity to the query embedding.
type SearchResult struct {
	Chunk Chunk   `json:"chunk"`
	Score float64 `json:"score"`
}

// Store persists chunks in a dedicated table, separate from the ORM-managed
// schema. Search is a brute-force cosine scan; fine for the corpus sizes this
// system indexes (document versions, not web-scale collections).
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// InitSchema creates the chunk table if missing.
func (s *Store) InitSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS vector_chunks (
		document_id UUID NOT NULL,
		chunk_index INTEGER NOT NULL,
		content TEXT NOT NULL,
		embedding JSONB NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (document_id, chunk_index)
	);
	CREATE INDEX IF NOT EXISTS idx_vector_chunks_document ON vector_chunks(document_id);
	`
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("initializing vector schema: %w", err)
	}
	return nil
}

// Upsert saves chunks with their embeddings, replacing any existing chunk at
// the same (document, index) position.
func (s *Store) Upsert(ctx context.Context, chunks []Chunk) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, chunk := range chunks {
		embeddingJSON, err := json.Marshal(chunk.Embedding)
		if err != nil {
			return fmt.Errorf("encoding embedding: %w", err)
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO vector_chunks (document_id, chunk_index, content, embedding)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (document_id, chunk_index)
			DO UPDATE SET content = EXCLUDED.content, embedding = EXCLUDED.embedding
		`, chunk.DocumentID, chunk.Index, chunk.Content, embeddingJSON)
		if err != nil {
			return fmt.Errorf("inserting chunk: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// Search finds the topK most similar chunks to a query embedding, optionally
// restricted to one document.
func (s *Store) Search(ctx context.Context, embedding []float32, topK int, documentID string) ([]SearchResult, error) {
	query := `SELECT document_id, chunk_index, content, embedding FROM vector_chunks`
	args := []interface{}{}
	if documentID != "" {
		query += ` WHERE document_id = $1`
		args = append(args, documentID)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var chunk Chunk
		var embeddingJSON []byte

		if err := rows.Scan(&chunk.DocumentID, &chunk.Index, &chunk.Content, &embeddingJSON); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		if err := json.Unmarshal(embeddingJSON, &chunk.Embedding); err != nil {
			continue // Skip corrupted embeddings
		}

		results = append(results, SearchResult{
			Chunk: chunk,
			Score: CosineSimilarity(embedding, chunk.Embedding),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading chunks: %w", err)
	}

	return TopK(results, topK), nil
}

// DeleteDocument removes all chunks for a document.
func (s *Store) DeleteDocument(ctx context.Context, documentID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM vector_chunks WHERE document_id = $1`, documentID)
	return err
}

// Count returns the number of stored chunks.
func (s *Store) Count(ctx context.Context) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM vector_chunks`).Scan(&count)
	return count, err
}

// TopK sorts results by score descending and truncates to k.
func TopK(results []SearchResult, k int) []SearchResult {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if k > 0 && len(results) > k {
		results = results[:k]
	}
	return results
}

// CosineSimilarity calculates cosine similarity between two vectors.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}
