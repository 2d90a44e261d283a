package knowledge

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"
)

// FormatFloat32VectorForPgvector converts a float32 slice to pgvector string format
// Example output: "[0.1,0.2,0.3]"
func FormatFloat32VectorForPgvector(embedding []float32) string {
	parts := make([]string, len(embedding))
	for i, v := range embedding {
		parts[i] = strconv.FormatFloat(float64(v), 'f', -1, 32)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// PgvectorRetriever searches passages stored in postgres with the pgvector extension
type PgvectorRetriever struct {
	db       *sqlx.DB
	embedder Embedder
}

// NewPgvectorRetriever creates a retriever over db
func NewPgvectorRetriever(db *sqlx.DB, embedder Embedder) *PgvectorRetriever {
	return &PgvectorRetriever{db: db, embedder: embedder}
}

// CreateTables creates the passage table if it does not exist
func (r *PgvectorRetriever) CreateTables(ctx context.Context) error {
	statements := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		`CREATE TABLE IF NOT EXISTS knowledge_passages (
			id TEXT PRIMARY KEY,
			namespace TEXT NOT NULL,
			doc_id TEXT NOT NULL,
			content TEXT NOT NULL,
			source TEXT NOT NULL DEFAULT '',
			embedding vector NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_knowledge_passages_namespace ON knowledge_passages (namespace)`,
	}
	for _, stmt := range statements {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create knowledge tables: %w", err)
		}
	}
	return nil
}

type passageRow struct {
	DocID      string  `db:"doc_id"`
	Content    string  `db:"content"`
	Source     string  `db:"source"`
	Similarity float64 `db:"similarity"`
}

// Retrieve embeds query and returns the most similar passages of namespace
func (r *PgvectorRetriever) Retrieve(ctx context.Context, namespace, query string, limit int) ([]Passage, error) {
	vectors, err := r.embedder.CreateEmbeddings(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("embedder returned no vector")
	}

	var rows []passageRow
	err = r.db.SelectContext(ctx, &rows, `
		SELECT doc_id, content, source, 1 - (embedding <=> $1::vector) AS similarity
		FROM knowledge_passages
		WHERE namespace = $2
		ORDER BY embedding <=> $1::vector
		LIMIT $3`,
		FormatFloat32VectorForPgvector(vectors[0]), namespace, limit)
	if err != nil {
		return nil, fmt.Errorf("pgvector query failed: %w", err)
	}

	passages := make([]Passage, len(rows))
	for i, row := range rows {
		passages[i] = Passage{ID: row.DocID, Text: row.Content, Source: row.Source, Score: row.Similarity}
	}
	return passages, nil
}

// Index embeds and upserts docs into namespace
func (r *PgvectorRetriever) Index(ctx context.Context, namespace string, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}
	texts := make([]string, len(docs))
	for i, doc := range docs {
		texts[i] = doc.Text
	}
	vectors, err := r.embedder.CreateEmbeddings(ctx, texts)
	if err != nil {
		return fmt.Errorf("failed to embed documents: %w", err)
	}
	if len(vectors) != len(docs) {
		return fmt.Errorf("embedder returned %d vectors for %d documents", len(vectors), len(docs))
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for i, doc := range docs {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO knowledge_passages (id, namespace, doc_id, content, source, embedding, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6::vector, NOW())
			ON CONFLICT (id) DO UPDATE SET
				content = EXCLUDED.content,
				source = EXCLUDED.source,
				embedding = EXCLUDED.embedding,
				updated_at = NOW()`,
			PointID(namespace, doc.ID), namespace, doc.ID, doc.Text, doc.Source,
			FormatFloat32VectorForPgvector(vectors[i]))
		if err != nil {
			return fmt.Errorf("failed to store passage %s: %w", doc.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit passages: %w", err)
	}
	return nil
}
