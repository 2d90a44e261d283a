package knowledge

import (
	"context"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

// Payload keys stored with every point
const (
	payloadNamespace = "namespace"
	payloadText      = "text"
	payloadSource    = "source"
	payloadDocID     = "doc_id"
)

// QdrantConfig holds the connection settings of a qdrant collection
type QdrantConfig struct {
	Host       string
	Port       int
	APIKey     string
	UseTLS     bool
	Collection string
}

// qdrantPoints is the subset of the qdrant client used for search and indexing
type qdrantPoints interface {
	Query(ctx context.Context, request *qdrant.QueryPoints) ([]*qdrant.ScoredPoint, error)
	Upsert(ctx context.Context, request *qdrant.UpsertPoints) (*qdrant.UpdateResult, error)
}

// QdrantRetriever searches and indexes passages in a qdrant collection
type QdrantRetriever struct {
	client     qdrantPoints
	conn       *qdrant.Client
	embedder   Embedder
	collection string
}

// NewQdrantRetriever connects to qdrant
func NewQdrantRetriever(cfg QdrantConfig, embedder Embedder) (*QdrantRetriever, error) {
	conn, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to qdrant: %w", err)
	}
	return &QdrantRetriever{
		client:     conn,
		conn:       conn,
		embedder:   embedder,
		collection: cfg.Collection,
	}, nil
}

// EnsureCollection creates the collection with cosine distance if missing
func (r *QdrantRetriever) EnsureCollection(ctx context.Context, dimensions int) error {
	if r.conn == nil {
		return nil
	}
	exists, err := r.conn.CollectionExists(ctx, r.collection)
	if err != nil {
		return fmt.Errorf("failed to check collection %s: %w", r.collection, err)
	}
	if exists {
		return nil
	}
	err = r.conn.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: r.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dimensions),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection %s: %w", r.collection, err)
	}
	return nil
}

// Close releases the gRPC connection
func (r *QdrantRetriever) Close() error {
	if r.conn == nil {
		return nil
	}
	return r.conn.Close()
}

// Retrieve embeds query and returns the closest passages of namespace
func (r *QdrantRetriever) Retrieve(ctx context.Context, namespace, query string, limit int) ([]Passage, error) {
	vectors, err := r.embedder.CreateEmbeddings(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("embedder returned no vector")
	}

	points, err := r.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: r.collection,
		Query:          qdrant.NewQuery(vectors[0]...),
		Filter: &qdrant.Filter{
			Must: []*qdrant.Condition{qdrant.NewMatch(payloadNamespace, namespace)},
		},
		Limit:       qdrant.PtrOf(uint64(limit)),
		WithPayload: qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant query failed: %w", err)
	}

	passages := make([]Passage, 0, len(points))
	for _, point := range points {
		payload := point.GetPayload()
		passages = append(passages, Passage{
			ID:     payload[payloadDocID].GetStringValue(),
			Text:   payload[payloadText].GetStringValue(),
			Source: payload[payloadSource].GetStringValue(),
			Score:  widenScore(point.GetScore()),
		})
	}
	return passages, nil
}

// Index embeds and upserts docs into namespace
func (r *QdrantRetriever) Index(ctx context.Context, namespace string, docs []Document) error {
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

	points := make([]*qdrant.PointStruct, len(docs))
	for i, doc := range docs {
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(PointID(namespace, doc.ID)),
			Vectors: qdrant.NewVectors(vectors[i]...),
			Payload: qdrant.NewValueMap(map[string]any{
				payloadNamespace: namespace,
				payloadDocID:     doc.ID,
				payloadText:      doc.Text,
				payloadSource:    doc.Source,
			}),
		}
	}

	_, err = r.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: r.collection,
		Wait:           qdrant.PtrOf(true),
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("qdrant upsert failed: %w", err)
	}
	return nil
}

// PointID derives a stable point UUID from namespace and document id
func PointID(namespace, docID string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(namespace+"/"+docID)).String()
}

// widenScore converts a float32 score without picking up binary noise, so a
// stored 0.78 compares equal to the 0.78 threshold.
func widenScore(score float32) float64 {
	widened, err := strconv.ParseFloat(strconv.FormatFloat(float64(score), 'f', -1, 32), 64)
	if err != nil {
		return float64(score)
	}
	return widened
}
