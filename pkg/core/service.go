// Package core is the embeddable retrieval facade. It exposes exactly
// the two operations downstream callers need: ranked retrieval over the
// current generation, and the provenance label decision for a hit set.
package core

import (
	"context"

	"github.com/maic-lab/ragcore/internal/label"
	"github.com/maic-lab/ragcore/internal/search"
)

// Hit is one ranked retrieval result.
type Hit struct {
	ChunkID    string            `json:"chunk_id"`
	DocumentID string            `json:"document_id"`
	Text       string            `json:"text"`
	Score      float64           `json:"score"`
	Position   int               `json:"position"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// Label is the provenance class of an answer.
type Label string

const (
	PrimarySource   Label = Label(label.PrimarySource)
	SecondarySource Label = Label(label.SecondarySource)
	ModelKnowledge  Label = Label(label.ModelKnowledge)
)

// Decision is the outcome of a label decision.
type Decision struct {
	Label          Label `json:"label"`
	SupportingHits []Hit `json:"supporting_hits,omitempty"`
}

// Service answers queries and labels their provenance.
type Service struct {
	engine *search.Engine
}

// NewService wraps a search engine.
func NewService(engine *search.Engine) *Service {
	return &Service{engine: engine}
}

// Search returns the topK best-matching chunks for query. It fails with
// a NOT_READY error unless a generation is published and intact.
func (s *Service) Search(ctx context.Context, query string, topK int) ([]Hit, error) {
	hits, err := s.engine.Search(ctx, query, topK)
	if err != nil {
		return nil, err
	}
	return fromSearchHits(hits), nil
}

// DecideLabel maps retrieval hits to a provenance label. Empty input
// always yields ModelKnowledge.
func (s *Service) DecideLabel(hits []Hit) Decision {
	decision := label.Decide(toSearchHits(hits))
	return Decision{
		Label:          Label(decision.Label),
		SupportingHits: fromSearchHits(decision.SupportingHits),
	}
}

func fromSearchHits(hits []search.Hit) []Hit {
	if hits == nil {
		return nil
	}
	out := make([]Hit, len(hits))
	for i, h := range hits {
		out[i] = Hit(h)
	}
	return out
}

func toSearchHits(hits []Hit) []search.Hit {
	if hits == nil {
		return nil
	}
	out := make([]search.Hit, len(hits))
	for i, h := range hits {
		out[i] = search.Hit(h)
	}
	return out
}
