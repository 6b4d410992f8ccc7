package vectorstore

import (
	"context"
	"fmt"
	"log/slog"
)

// Passage is a retrieved excerpt ready for prompt assembly and citation
// recording.
type Passage struct {
	DocumentID string  `json:"document_id"`
	ChunkIndex int     `json:"chunk_index"`
	Excerpt    string  `json:"excerpt"`
	Score      float64 `json:"score"`
}

// Retriever pairs the store with an embedder to index documents and answer
// similarity queries.
type Retriever struct {
	store    *Store
	embedder Embedder
	topK     int
}

func NewRetriever(store *Store, embedder Embedder, topK int) *Retriever {
	if topK <= 0 {
		topK = 5
	}
	return &Retriever{
		store:    store,
		embedder: embedder,
		topK:     topK,
	}
}

// Index chunks a document version's content, embeds each chunk and upserts
// the result. Existing chunks for the document are replaced so the index
// always reflects the latest version.
func (r *Retriever) Index(ctx context.Context, documentID, content string) (int, error) {
	sections := MergeSmall(SplitSections(content), 2000)
	if len(sections) == 0 {
		return 0, nil
	}

	if err := r.store.DeleteDocument(ctx, documentID); err != nil {
		return 0, fmt.Errorf("clearing previous chunks: %w", err)
	}

	chunks := make([]Chunk, 0, len(sections))
	for i, sec := range sections {
		text := sec.Content
		if sec.Heading != "" {
			text = sec.Heading + "\n" + text
		}
		embedding, err := r.embedder.Embed(ctx, text)
		if err != nil {
			return 0, fmt.Errorf("embedding chunk %d: %w", i, err)
		}
		chunks = append(chunks, Chunk{
			DocumentID: documentID,
			Index:      i,
			Content:    text,
			Embedding:  embedding,
		})
	}

	if err := r.store.Upsert(ctx, chunks); err != nil {
		return 0, fmt.Errorf("storing chunks: %w", err)
	}

	slog.Info("Document indexed", "document_id", documentID, "chunks", len(chunks))
	return len(chunks), nil
}

// Remove drops every indexed chunk for a document.
func (r *Retriever) Remove(ctx context.Context, documentID string) error {
	return r.store.DeleteDocument(ctx, documentID)
}

// Retrieve embeds the query and returns the topK most similar passages,
// optionally scoped to one document.
func (r *Retriever) Retrieve(ctx context.Context, query string, documentID string) ([]Passage, error) {
	embedding, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	results, err := r.store.Search(ctx, embedding, r.topK, documentID)
	if err != nil {
		return nil, fmt.Errorf("searching chunks: %w", err)
	}

	passages := make([]Passage, len(results))
	for i, res := range results {
		passages[i] = Passage{
			DocumentID: res.Chunk.DocumentID,
			ChunkIndex: res.Chunk.Index,
			Excerpt:    res.Chunk.Content,
			Score:      res.Score,
		}
	}
	return passages, nil
}
