package knowledge

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRetriever struct {
	passages  []Passage
	err       error
	namespace string
	query     string
	limit     int
}

func (f *fakeRetriever) Retrieve(_ context.Context, namespace, query string, limit int) ([]Passage, error) {
	f.namespace, f.query, f.limit = namespace, query, limit
	return f.passages, f.err
}

type fakeEmbedder struct {
	vectors [][]float32
	err     error
	texts   []string
}

func (f *fakeEmbedder) CreateEmbeddings(_ context.Context, texts []string) ([][]float32, error) {
	f.texts = texts
	if f.err != nil {
		return nil, f.err
	}
	if f.vectors != nil {
		return f.vectors, nil
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{0.1, 0.2, 0.3}
	}
	return out, nil
}

func TestSearcher_Threshold(t *testing.T) {
	tests := []struct {
		name      string
		passages  []Passage
		wantFound bool
		wantText  string
		wantScore float64
	}{
		{
			name:      "score exactly at threshold is a hit",
			passages:  []Passage{{Text: "Export lives under Settings.", Score: 0.78}},
			wantFound: true,
			wantText:  "Export lives under Settings.",
			wantScore: 0.78,
		},
		{
			name:      "score just below threshold is a miss",
			passages:  []Passage{{Text: "Export lives under Settings.", Score: 0.7799}},
			wantFound: false,
			wantScore: 0.7799,
		},
		{
			name: "matching passages joined in retrieval order",
			passages: []Passage{
				{Text: "First passage.", Score: 0.91},
				{Text: "  ", Score: 0.85},
				{Text: "Second passage.", Score: 0.80},
				{Text: "Unrelated passage.", Score: 0.10},
			},
			wantFound: true,
			wantText:  "First passage.\nSecond passage.",
			wantScore: 0.91,
		},
		{
			name:      "no passages",
			passages:  nil,
			wantFound: false,
		},
		{
			name:      "blank top passage is still a hit",
			passages:  []Passage{{Text: " ", Score: 0.95}},
			wantFound: true,
			wantScore: 0.95,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			retriever := &fakeRetriever{passages: tt.passages}
			result, err := NewSearcher(retriever).Search(context.Background(), "org-1", "how do I export")
			require.NoError(t, err)
			assert.Equal(t, tt.wantFound, result.Found)
			assert.Equal(t, tt.wantText, result.Text)
			assert.Equal(t, tt.wantScore, result.Score)
			assert.Equal(t, len(tt.passages), result.NumResults)
		})
	}
}

func TestSearcher_Options(t *testing.T) {
	retriever := &fakeRetriever{passages: []Passage{{Text: "x", Score: 0.7}}}
	searcher := NewSearcher(retriever, WithMinScore(0.6), WithLimit(3))

	result, err := searcher.Search(context.Background(), "org-9", "q")
	require.NoError(t, err)
	assert.True(t, result.Found)
	assert.Equal(t, 0.6, searcher.MinScore())
	assert.Equal(t, 3, retriever.limit)
	assert.Equal(t, "org-9", retriever.namespace)

	_, _ = NewSearcher(retriever, WithLimit(0)).Search(context.Background(), "org-9", "q")
	assert.Equal(t, DefaultLimit, retriever.limit)
}

func TestSearcher_PropagatesErrors(t *testing.T) {
	boom := errors.New("backend down")
	_, err := NewSearcher(&fakeRetriever{err: boom}).Search(context.Background(), "org-1", "q")
	assert.ErrorIs(t, err, boom)
}

func TestNoopRetriever(t *testing.T) {
	result, err := NewSearcher(NoopRetriever{}).Search(context.Background(), "org-1", "q")
	require.NoError(t, err)
	assert.False(t, result.Found)
	assert.Zero(t, result.NumResults)
}

func TestFormatFloat32VectorForPgvector(t *testing.T) {
	assert.Equal(t, "[0.1,0.25,-1]", FormatFloat32VectorForPgvector([]float32{0.1, 0.25, -1}))
	assert.Equal(t, "[]", FormatFloat32VectorForPgvector(nil))
}

func TestPointID_Stable(t *testing.T) {
	assert.Equal(t, PointID("org-1", "faq-1"), PointID("org-1", "faq-1"))
	assert.NotEqual(t, PointID("org-1", "faq-1"), PointID("org-2", "faq-1"))
}

func TestWidenScore(t *testing.T) {
	assert.Equal(t, 0.78, widenScore(float32(0.78)))
	assert.Equal(t, 0.5, widenScore(float32(0.5)))
}
