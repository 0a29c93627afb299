package services

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"
)

// SearchService maintains a vector index over the searchable text of
// completed candidate profiles so recruiters can run similarity lookups.
type SearchService interface {
	InitCollection() error
	IndexCandidate(ctx context.Context, recordID uuid.UUID, searchableText string) error
	SearchCandidates(ctx context.Context, query string, limit int) ([]CandidateMatch, error)
	RemoveCandidate(ctx context.Context, recordID uuid.UUID) error
}

type CandidateMatch struct {
	RecordID string
	Score    float32
	Snippet  string
}

const snippetLength = 300

type searchService struct {
	client         *qdrant.Client
	inference      InferenceService
	collectionName string
	vectorSize     uint64
	logger         *zap.Logger
}

func NewSearchService(urlStr, apiKey, collectionName string, inference InferenceService, logger *zap.Logger) (SearchService, error) {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return nil, fmt.Errorf("invalid Qdrant URL: %w", err)
	}

	host := parsed.Hostname()
	useTLS := parsed.Scheme == "https"

	// gRPC port, not the REST port
	port := 6334
	if p := parsed.Port(); p != "" {
		if v, err := strconv.Atoi(p); err == nil {
			port = v
		}
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: apiKey,
		UseTLS: useTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	return &searchService{
		client:         client,
		inference:      inference,
		collectionName: collectionName,
		vectorSize:     768, // text-embedding-004 output size
		logger:         logger,
	}, nil
}

// InitCollection implements SearchService.
func (s *searchService) InitCollection() error {
	ctx := context.Background()

	exists, err := s.client.CollectionExists(ctx, s.collectionName)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}
	if exists {
		return nil
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collectionName,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     s.vectorSize,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	s.logger.Info("qdrant collection created", zap.String("collection", s.collectionName))
	return nil
}

// IndexCandidate implements SearchService. Re-indexing the same record
// replaces its point, so repeated processing stays idempotent here too.
func (s *searchService) IndexCandidate(ctx context.Context, recordID uuid.UUID, searchableText string) error {
	embedding, err := s.inference.Embed(ctx, searchableText)
	if err != nil {
		return fmt.Errorf("failed to embed candidate text: %w", err)
	}

	snippet := searchableText
	if len(snippet) > snippetLength {
		snippet = snippet[:snippetLength]
	}

	point := &qdrant.PointStruct{
		Id:      qdrant.NewID(recordID.String()),
		Vectors: qdrant.NewVectors(embedding...),
		Payload: qdrant.NewValueMap(map[string]interface{}{
			"record_id": recordID.String(),
			"snippet":   snippet,
		}),
	}

	_, err = s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collectionName,
		Points:         []*qdrant.PointStruct{point},
	})
	if err != nil {
		return fmt.Errorf("failed to upsert candidate point: %w", err)
	}

	return nil
}

// SearchCandidates implements SearchService.
func (s *searchService) SearchCandidates(ctx context.Context, query string, limit int) ([]CandidateMatch, error) {
	if limit <= 0 {
		limit = 10
	}

	embedding, err := s.inference.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	points, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collectionName,
		Query:          qdrant.NewQuery(embedding...),
		Limit:          qdrant.PtrOf(uint64(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search candidates: %w", err)
	}

	var matches []CandidateMatch
	for _, point := range points {
		match := CandidateMatch{Score: point.Score}

		if recordID, ok := point.Payload["record_id"]; ok {
			if val, ok := recordID.GetKind().(*qdrant.Value_StringValue); ok {
				match.RecordID = val.StringValue
			}
		}
		if snippet, ok := point.Payload["snippet"]; ok {
			if val, ok := snippet.GetKind().(*qdrant.Value_StringValue); ok {
				match.Snippet = val.StringValue
			}
		}

		matches = append(matches, match)
	}

	return matches, nil
}

// RemoveCandidate implements SearchService.
func (s *searchService) RemoveCandidate(ctx context.Context, recordID uuid.UUID) error {
	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.collectionName,
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Points{
				Points: &qdrant.PointsIdsList{
					Ids: []*qdrant.PointId{qdrant.NewID(recordID.String())},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to delete candidate point: %w", err)
	}
	return nil
}
