// Package qdrant provides a vector index backed by a Qdrant server via its
// official gRPC client. This is the backend for deployments where the index
// outgrows a single embedded database.
package qdrant

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	qdrantgo "github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/lumihq/recall/pkg/vector"
)

// DefaultCollectionName is the default collection for conversation memory.
const DefaultCollectionName = "chat_history"

// maxGrpcMsgSize raises the default 4MB gRPC cap; a single ingest batch of
// high-dimensional embeddings can exceed it.
const maxGrpcMsgSize = 32 << 20

// Index implements vector.Index against a Qdrant server.
type Index struct {
	client         *qdrantgo.Client
	collectionName string
	dimensions     uint
	logger         *zap.Logger
}

// Config holds configuration for the Qdrant index.
type Config struct {
	// Host is the Qdrant server host. Defaults to "localhost".
	Host string

	// Port is the Qdrant gRPC port. Defaults to 6334.
	Port int

	// APIKey authenticates requests when the server requires it.
	APIKey string

	// CollectionName names the collection. Defaults to
	// DefaultCollectionName if empty.
	CollectionName string

	// Dimensions is the embedding dimension count. Must be configured; the
	// collection is created with this size and later upserts must match.
	Dimensions uint
}

// NewIndex connects to Qdrant and attaches to the configured collection,
// creating it with cosine distance when it does not exist yet.
func NewIndex(ctx context.Context, c Config, logger *zap.Logger) (*Index, error) {
	if c.Dimensions == 0 {
		return nil, fmt.Errorf("qdrant embedding dimensions cannot be 0, must be configured")
	}

	host := c.Host
	if host == "" {
		host = "localhost"
	}
	port := c.Port
	if port == 0 {
		port = 6334
	}
	collectionName := c.CollectionName
	if collectionName == "" {
		collectionName = DefaultCollectionName
	}

	client, err := qdrantgo.NewClient(&qdrantgo.Config{
		Host:   host,
		Port:   port,
		APIKey: c.APIKey,
		GrpcOptions: []grpc.DialOption{
			grpc.WithDefaultCallOptions(
				grpc.MaxCallRecvMsgSize(maxGrpcMsgSize),
				grpc.MaxCallSendMsgSize(maxGrpcMsgSize),
			),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: connecting to qdrant: %v", vector.ErrConnection, err)
	}

	exists, err := client.CollectionExists(ctx, collectionName)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: checking collection %q: %v", vector.ErrConnection, collectionName, err)
	}

	if !exists {
		err = client.CreateCollection(ctx, &qdrantgo.CreateCollection{
			CollectionName: collectionName,
			VectorsConfig: qdrantgo.NewVectorsConfig(&qdrantgo.VectorParams{
				Size:     uint64(c.Dimensions),
				Distance: qdrantgo.Distance_Cosine,
			}),
		})
		if err != nil {
			client.Close()
			return nil, fmt.Errorf("%w: creating collection %q: %v", vector.ErrConnection, collectionName, err)
		}
	}

	logger.Info("qdrant index initialized",
		zap.String("host", host),
		zap.Int("port", port),
		zap.String("collection", collectionName),
		zap.Bool("created", !exists),
	)

	return &Index{
		client:         client,
		collectionName: collectionName,
		dimensions:     c.Dimensions,
		logger:         logger,
	}, nil
}

// buildFilter translates a metadata filter into Qdrant match conditions.
func buildFilter(filter vector.Filter) (*qdrantgo.Filter, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	if len(filter) == 0 {
		return nil, nil
	}

	must := make([]*qdrantgo.Condition, 0, len(filter))
	for _, p := range filter {
		must = append(must, qdrantgo.NewMatch(p.Field, p.Value))
	}
	return &qdrantgo.Filter{Must: must}, nil
}

// Upsert stores records durably and returns the assigned IDs in input order.
func (x *Index) Upsert(ctx context.Context, records []vector.Record) ([]string, error) {
	if len(records) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(records))
	points := make([]*qdrantgo.PointStruct, 0, len(records))
	for _, rec := range records {
		if uint(len(rec.Embedding)) != x.dimensions {
			return nil, fmt.Errorf("%w: record has %d dimensions, index has %d",
				vector.ErrDimensionMismatch, len(rec.Embedding), x.dimensions)
		}

		id := rec.ID
		if id == "" {
			id = uuid.NewString()
		}
		ids = append(ids, id)

		payload := map[string]any{"content": rec.Content}
		for k, v := range rec.Metadata {
			payload[k] = v
		}

		points = append(points, &qdrantgo.PointStruct{
			Id:      qdrantgo.NewID(id),
			Vectors: qdrantgo.NewVectors(rec.Embedding...),
			Payload: qdrantgo.NewValueMap(payload),
		})
	}

	_, err := x.client.Upsert(ctx, &qdrantgo.UpsertPoints{
		CollectionName: x.collectionName,
		Points:         points,
		Wait:           qdrantgo.PtrOf(true),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: upserting points: %v", vector.ErrConnection, err)
	}

	x.logger.Debug("upserted records into qdrant",
		zap.Int("count", len(points)),
	)

	return ids, nil
}

// Query returns up to topK records matching the filter, ascending by
// distance. Qdrant scores cosine similarity (higher = closer); scores are
// converted to distances to keep the lower-is-better contract.
func (x *Index) Query(ctx context.Context, embedding []float32, topK int, filter vector.Filter) ([]vector.QueryResult, error) {
	if topK <= 0 {
		topK = 10
	}

	qf, err := buildFilter(filter)
	if err != nil {
		return nil, err
	}

	points, err := x.client.Query(ctx, &qdrantgo.QueryPoints{
		CollectionName: x.collectionName,
		Query:          qdrantgo.NewQuery(embedding...),
		Limit:          qdrantgo.PtrOf(uint64(topK)),
		Filter:         qf,
		WithPayload:    qdrantgo.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: querying points: %v", vector.ErrConnection, err)
	}

	results := make([]vector.QueryResult, 0, len(points))
	for _, pt := range points {
		rec := vector.Record{
			ID:       pt.GetId().GetUuid(),
			Metadata: make(map[string]string, len(pt.GetPayload())),
		}
		for k, v := range pt.GetPayload() {
			if k == "content" {
				rec.Content = v.GetStringValue()
				continue
			}
			rec.Metadata[k] = v.GetStringValue()
		}

		results = append(results, vector.QueryResult{
			Record: rec,
			Score:  1 - pt.GetScore(),
		})
	}

	x.logger.Debug("queried qdrant",
		zap.Int("results", len(results)),
	)

	return results, nil
}

// DeleteWhere removes every record matching the filter and reports how many
// were deleted. Qdrant's delete does not report a count, so matching points
// are counted first.
func (x *Index) DeleteWhere(ctx context.Context, filter vector.Filter) (int, error) {
	qf, err := buildFilter(filter)
	if err != nil {
		return 0, err
	}

	matched, err := x.client.Count(ctx, &qdrantgo.CountPoints{
		CollectionName: x.collectionName,
		Filter:         qf,
		Exact:          qdrantgo.PtrOf(true),
	})
	if err != nil {
		return 0, fmt.Errorf("%w: counting points for deletion: %v", vector.ErrConnection, err)
	}
	if matched == 0 {
		return 0, nil
	}

	selector := qdrantgo.NewPointsSelectorFilter(qf)
	if qf == nil {
		// An empty filter means "everything".
		selector = qdrantgo.NewPointsSelectorFilter(&qdrantgo.Filter{})
	}

	_, err = x.client.Delete(ctx, &qdrantgo.DeletePoints{
		CollectionName: x.collectionName,
		Points:         selector,
		Wait:           qdrantgo.PtrOf(true),
	})
	if err != nil {
		return 0, fmt.Errorf("%w: deleting points: %v", vector.ErrConnection, err)
	}

	x.logger.Debug("deleted records from qdrant",
		zap.Int("count", int(matched)),
	)

	return int(matched), nil
}

// Count returns the total number of records in the collection.
func (x *Index) Count(ctx context.Context) (int, error) {
	count, err := x.client.Count(ctx, &qdrantgo.CountPoints{
		CollectionName: x.collectionName,
		Exact:          qdrantgo.PtrOf(true),
	})
	if err != nil {
		return 0, fmt.Errorf("%w: counting points: %v", vector.ErrConnection, err)
	}
	return int(count), nil
}

// Close releases the client connection.
func (x *Index) Close() error {
	return x.client.Close()
}

var _ vector.Index = (*Index)(nil)
