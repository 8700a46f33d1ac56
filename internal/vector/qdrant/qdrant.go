package qdrant

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/qdrant/go-client/qdrant"

	"github.com/hautbar/barkeep/internal/vector"
)

// Store implements vector.Index on a Qdrant instance. Cocktails and user
// memories live in separate collections, both cosine-distance.
type Store struct {
	client     *qdrant.Client
	cocktails  string
	memories   string
	vectorSize uint64
	logger     *slog.Logger
}

func New(host string, port int, cocktailsCollection, memoriesCollection string, vectorSize uint64, logger *slog.Logger) (*Store, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("create qdrant client: %w", err)
	}

	s := &Store{
		client:     client,
		cocktails:  cocktailsCollection,
		memories:   memoriesCollection,
		vectorSize: vectorSize,
		logger:     logger,
	}

	ctx := context.Background()
	if err := s.ensureCollection(ctx, s.cocktails); err != nil {
		return nil, err
	}
	if err := s.ensureCollection(ctx, s.memories); err != nil {
		return nil, err
	}
	if err := s.ensureUserIDIndex(ctx); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Store) ensureCollection(ctx context.Context, name string) error {
	exists, err := s.client.CollectionExists(ctx, name)
	if err != nil {
		return fmt.Errorf("check collection %s: %w", name, err)
	}
	if exists {
		return nil
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     s.vectorSize,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("create collection %s: %w", name, err)
	}
	s.logger.Info("created collection", "name", name, "vector_size", s.vectorSize)
	return nil
}

// ensureUserIDIndex creates a keyword payload index so memory reads can
// filter by user_id equality.
func (s *Store) ensureUserIDIndex(ctx context.Context) error {
	fieldType := qdrant.FieldType_FieldTypeKeyword
	_, err := s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
		CollectionName: s.memories,
		FieldName:      "user_id",
		FieldType:      &fieldType,
	})
	if err != nil {
		return fmt.Errorf("create user_id index: %w", err)
	}
	return nil
}

func (s *Store) SearchCocktails(ctx context.Context, vec []float32, topK int) ([]vector.Match, error) {
	return s.query(ctx, s.cocktails, vec, topK, nil)
}

func (s *Store) UpsertCocktails(ctx context.Context, records []vector.Record) error {
	points := make([]*qdrant.PointStruct, len(records))
	for i, rec := range records {
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(rec.ID),
			Vectors: qdrant.NewVectors(rec.Vector...),
			Payload: qdrant.NewValueMap(rec.Metadata),
		}
	}

	wait := true
	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.cocktails,
		Points:         points,
		Wait:           &wait,
	})
	if err != nil {
		return fmt.Errorf("upsert cocktails: %w", err)
	}
	return nil
}

func (s *Store) StoreMemory(ctx context.Context, id string, vec []float32, metadata map[string]any) error {
	wait := true
	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.memories,
		Points: []*qdrant.PointStruct{
			{
				Id:      qdrant.NewIDUUID(id),
				Vectors: qdrant.NewVectors(vec...),
				Payload: qdrant.NewValueMap(metadata),
			},
		},
		Wait: &wait,
	})
	if err != nil {
		return fmt.Errorf("store memory: %w", err)
	}
	return nil
}

func (s *Store) UserMemories(ctx context.Context, vec []float32, userID string, topK int) ([]vector.Match, error) {
	filter := &qdrant.Filter{
		Must: []*qdrant.Condition{
			qdrant.NewMatch("user_id", userID),
		},
	}
	return s.query(ctx, s.memories, vec, topK, filter)
}

func (s *Store) query(ctx context.Context, collection string, vec []float32, topK int, filter *qdrant.Filter) ([]vector.Match, error) {
	limit := uint64(topK)
	points, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: collection,
		Query:          qdrant.NewQuery(vec...),
		Limit:          &limit,
		Filter:         filter,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", collection, err)
	}

	matches := make([]vector.Match, len(points))
	for i, pt := range points {
		matches[i] = vector.Match{
			Metadata: payloadToMap(pt.Payload),
			Score:    float64(pt.Score),
		}
	}
	return matches, nil
}

func (s *Store) Close() {
	_ = s.client.Close()
}

func payloadToMap(payload map[string]*qdrant.Value) map[string]any {
	m := make(map[string]any, len(payload))
	for k, v := range payload {
		m[k] = valueToAny(v)
	}
	return m
}

func valueToAny(v *qdrant.Value) any {
	switch k := v.GetKind().(type) {
	case *qdrant.Value_StringValue:
		return k.StringValue
	case *qdrant.Value_DoubleValue:
		return k.DoubleValue
	case *qdrant.Value_IntegerValue:
		return k.IntegerValue
	case *qdrant.Value_BoolValue:
		return k.BoolValue
	case *qdrant.Value_ListValue:
		values := k.ListValue.GetValues()
		items := make([]any, len(values))
		for i, item := range values {
			items[i] = valueToAny(item)
		}
		return items
	case *qdrant.Value_StructValue:
		return payloadToMap(k.StructValue.GetFields())
	default:
		return nil
	}
}
