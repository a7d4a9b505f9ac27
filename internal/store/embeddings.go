package store

import (
	"context"
	"fmt"
)

// EmbeddingHit is one scored identifier from the vector index. Distance is
// cosine distance, so lower is closer; Score is 1-distance for callers that
// want a similarity.
type EmbeddingHit struct {
	RefID    string
	Distance float64
}

// Score converts the cosine distance into a similarity in [0,1].
func (h EmbeddingHit) Score() float64 {
	s := 1 - h.Distance
	if s < 0 {
		return 0
	}
	return s
}

// SearchEmbeddings returns the closest content embeddings for one
// collection, ordered by cosine distance.
func (s *Store) SearchEmbeddings(ctx context.Context, collection string, vector []float32, topK int) ([]EmbeddingHit, error) {
	if topK <= 0 {
		topK = 5
	}
	vecLiteral, err := encodeVectorLiteral(vector)
	if err != nil {
		return nil, err
	}
	rows, err := s.DB.QueryContext(ctx, `
SELECT ref_id, embedding <=> $1::vector AS distance
FROM content_embeddings
WHERE collection = $2
ORDER BY embedding <=> $1::vector
LIMIT $3
`, vecLiteral, collection, topK)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var hits []EmbeddingHit
	for rows.Next() {
		var h EmbeddingHit
		if err := rows.Scan(&h.RefID, &h.Distance); err != nil {
			return nil, err
		}
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

// UpsertEmbedding stores or replaces the semantic vector for one catalog
// record. Used by the seed command.
func (s *Store) UpsertEmbedding(ctx context.Context, collection, refID string, vector []float32) error {
	if collection == "" || refID == "" {
		return fmt.Errorf("collection and ref_id required")
	}
	vecLiteral, err := encodeVectorLiteral(vector)
	if err != nil {
		return err
	}
	_, err = s.DB.ExecContext(ctx, `
INSERT INTO content_embeddings (collection, ref_id, embedding, created_at)
VALUES ($1,$2,$3::vector,NOW())
ON CONFLICT (collection, ref_id) DO UPDATE SET
  embedding = EXCLUDED.embedding,
  created_at = NOW();
`, collection, refID, vecLiteral)
	return err
}
