package knowledge

import (
	"context"
	"errors"
	"testing"

	"github.com/qdrant/go-client/qdrant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeQdrant struct {
	points  []*qdrant.ScoredPoint
	err     error
	query   *qdrant.QueryPoints
	upserts *qdrant.UpsertPoints
}

func (f *fakeQdrant) Query(_ context.Context, request *qdrant.QueryPoints) ([]*qdrant.ScoredPoint, error) {
	f.query = request
	return f.points, f.err
}

func (f *fakeQdrant) Upsert(_ context.Context, request *qdrant.UpsertPoints) (*qdrant.UpdateResult, error) {
	f.upserts = request
	return &qdrant.UpdateResult{}, f.err
}

func TestQdrantRetriever_Retrieve(t *testing.T) {
	fake := &fakeQdrant{
		points: []*qdrant.ScoredPoint{
			{
				Score: 0.78,
				Payload: qdrant.NewValueMap(map[string]any{
					payloadDocID:  "faq-export",
					payloadText:   "Open Settings and choose Export.",
					payloadSource: "faq.md",
				}),
			},
		},
	}
	embedder := &fakeEmbedder{}
	retriever := &QdrantRetriever{client: fake, embedder: embedder, collection: "kb"}

	passages, err := retriever.Retrieve(context.Background(), "org-1", "how to export", 4)
	require.NoError(t, err)
	require.Len(t, passages, 1)
	assert.Equal(t, "faq-export", passages[0].ID)
	assert.Equal(t, "Open Settings and choose Export.", passages[0].Text)
	assert.Equal(t, 0.78, passages[0].Score)

	assert.Equal(t, []string{"how to export"}, embedder.texts)
	assert.Equal(t, "kb", fake.query.CollectionName)
	assert.Equal(t, uint64(4), fake.query.GetLimit())
	require.Len(t, fake.query.Filter.Must, 1)
	assert.Equal(t, payloadNamespace, fake.query.Filter.Must[0].GetField().GetKey())
	assert.Equal(t, "org-1", fake.query.Filter.Must[0].GetField().GetMatch().GetKeyword())

	// boundary score stays a hit after the float32 round trip
	result, err := NewSearcher(retriever).Search(context.Background(), "org-1", "how to export")
	require.NoError(t, err)
	assert.True(t, result.Found)
}

func TestQdrantRetriever_Errors(t *testing.T) {
	t.Run("embedding failure", func(t *testing.T) {
		retriever := &QdrantRetriever{client: &fakeQdrant{}, embedder: &fakeEmbedder{err: errors.New("quota")}}
		_, err := retriever.Retrieve(context.Background(), "org-1", "q", 5)
		assert.ErrorContains(t, err, "failed to embed query")
	})

	t.Run("query failure", func(t *testing.T) {
		retriever := &QdrantRetriever{client: &fakeQdrant{err: errors.New("unavailable")}, embedder: &fakeEmbedder{}}
		_, err := retriever.Retrieve(context.Background(), "org-1", "q", 5)
		assert.ErrorContains(t, err, "qdrant query failed")
	})
}

func TestQdrantRetriever_Index(t *testing.T) {
	fake := &fakeQdrant{}
	retriever := &QdrantRetriever{client: fake, embedder: &fakeEmbedder{}, collection: "kb"}

	err := retriever.Index(context.Background(), "org-1", []Document{
		{ID: "a", Text: "Alpha"},
		{ID: "b", Text: "Beta", Source: "guide.md"},
	})
	require.NoError(t, err)
	require.Len(t, fake.upserts.Points, 2)
	assert.Equal(t, PointID("org-1", "a"), fake.upserts.Points[0].GetId().GetUuid())
	assert.Equal(t, "org-1", fake.upserts.Points[1].GetPayload()[payloadNamespace].GetStringValue())
	assert.Equal(t, "guide.md", fake.upserts.Points[1].GetPayload()[payloadSource].GetStringValue())

	assert.NoError(t, retriever.Index(context.Background(), "org-1", nil))
}

func TestQdrantRetriever_IndexVectorMismatch(t *testing.T) {
	retriever := &QdrantRetriever{
		client:   &fakeQdrant{},
		embedder: &fakeEmbedder{vectors: [][]float32{{0.1}}},
	}
	err := retriever.Index(context.Background(), "org-1", []Document{{ID: "a"}, {ID: "b"}})
	assert.ErrorContains(t, err, "1 vectors for 2 documents")
}
