package vector

import (
	"fmt"

	"github.com/rahulm/onebox/internal/embedding"
	"github.com/rahulm/onebox/pkg/types"
)

// seedTexts is the fixed knowledge corpus the reply generator retrieves
// from. It is written once at startup and read-only afterwards.
var seedTexts = []string{
	"Onebox automates cold outreach and engagement.",
	"If a lead is interested, share https://cal.com/example to book a call.",
	"Reply concisely and professionally.",
}

// Seed provisions the knowledge collection and writes the fixed corpus,
// embedding each snippet with the given embedder. Re-running it is
// idempotent: points are upserted by id.
func (s *Store) Seed(embedder *embedding.Embedder) error {
	if err := s.EnsureCollection(); err != nil {
		return err
	}

	for i, text := range seedTexts {
		point := types.KnowledgePoint{
			ID:      i + 1,
			Vector:  embedder.Embed(text),
			Payload: text,
		}
		if err := s.UpsertPoint(point); err != nil {
			return fmt.Errorf("failed to seed point %d: %w", point.ID, err)
		}
	}

	s.logger.WithField("points", len(seedTexts)).Info("Seeded knowledge collection")
	return nil
}
