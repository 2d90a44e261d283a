// Package knowledge searches an organization's knowledge base and decides
// whether the best passage is relevant enough to answer from.
package knowledge

import (
	"context"
	"fmt"
	"strings"
)

const (
	// DefaultMinScore is the inclusive relevance threshold
	DefaultMinScore = 0.78
	// DefaultLimit is the number of passages requested per search
	DefaultLimit = 5
)

// Passage is one retrieved knowledge base chunk
type Passage struct {
	ID     string  `json:"id"`
	Text   string  `json:"text"`
	Source string  `json:"source,omitempty"`
	Score  float64 `json:"score"`
}

// Document is a passage to be indexed
type Document struct {
	ID     string `yaml:"id" json:"id"`
	Text   string `yaml:"text" json:"text"`
	Source string `yaml:"source" json:"source,omitempty"`
}

// Result is the outcome of one search
type Result struct {
	Found      bool
	Text       string
	Score      float64
	NumResults int
	Passages   []Passage
}

// Retriever runs a similarity search scoped to a namespace. Passages are
// returned best first.
type Retriever interface {
	Retrieve(ctx context.Context, namespace, query string, limit int) ([]Passage, error)
}

// Indexer stores documents for later retrieval
type Indexer interface {
	Index(ctx context.Context, namespace string, docs []Document) error
}

// Embedder turns texts into vectors
type Embedder interface {
	CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
}

// Option configures a Searcher
type Option func(*Searcher)

// WithMinScore overrides the relevance threshold
func WithMinScore(score float64) Option {
	return func(s *Searcher) { s.minScore = score }
}

// WithLimit overrides the number of passages requested
func WithLimit(limit int) Option {
	return func(s *Searcher) {
		if limit > 0 {
			s.limit = limit
		}
	}
}

// Searcher applies the relevance threshold on top of a Retriever
type Searcher struct {
	retriever Retriever
	minScore  float64
	limit     int
}

// NewSearcher creates a Searcher over retriever
func NewSearcher(retriever Retriever, opts ...Option) *Searcher {
	s := &Searcher{
		retriever: retriever,
		minScore:  DefaultMinScore,
		limit:     DefaultLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// MinScore returns the configured threshold
func (s *Searcher) MinScore() float64 {
	return s.minScore
}

// Search queries the knowledge base of namespace. A result is found when the
// top passage scores at least the threshold; the text is then the passages at
// or above the threshold joined in retrieval order. Retrieval errors are returned wrapped.
func (s *Searcher) Search(ctx context.Context, namespace, query string) (Result, error) {
	passages, err := s.retriever.Retrieve(ctx, namespace, query, s.limit)
	if err != nil {
		return Result{}, fmt.Errorf("knowledge search failed: %w", err)
	}

	result := Result{NumResults: len(passages), Passages: passages}
	if len(passages) == 0 {
		return result, nil
	}

	result.Score = passages[0].Score
	if result.Score < s.minScore {
		return result, nil
	}

	result.Found = true
	texts := make([]string, 0, len(passages))
	for _, p := range passages {
		if p.Score < s.minScore {
			continue
		}
		if text := strings.TrimSpace(p.Text); text != "" {
			texts = append(texts, text)
		}
	}
	result.Text = strings.Join(texts, "\n")
	return result, nil
}

// NoopRetriever never finds anything; used when no backend is configured
type NoopRetriever struct{}

// Retrieve returns no passages
func (NoopRetriever) Retrieve(context.Context, string, string, int) ([]Passage, error) {
	return nil, nil
}
