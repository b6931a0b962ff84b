// Package label decides which provenance label an answer must carry,
// based on the retrieval hits that back it. The label set is closed and
// the precedence is fixed: primary sources outrank secondary sources,
// and an answer with no retrieval support is model knowledge.
package label

import (
	"strings"

	"github.com/maic-lab/ragcore/internal/docsource"
	"github.com/maic-lab/ragcore/internal/search"
)

// Label is the provenance class of an answer.
type Label string

const (
	// PrimarySource means at least one hit comes from curated primary
	// material.
	PrimarySource Label = "PRIMARY_SOURCE"

	// SecondarySource means the best available support is secondary
	// material such as books or PDFs.
	SecondarySource Label = "SECONDARY_SOURCE"

	// ModelKnowledge means retrieval produced no usable support.
	ModelKnowledge Label = "MODEL_KNOWLEDGE"
)

// primaryTextMarker tags curated primary passages inline, so primary
// provenance survives even when source metadata is stripped.
const primaryTextMarker = "[이유문법]"

// Decision is the outcome of a label decision.
type Decision struct {
	// Label is the decided provenance label.
	Label Label `json:"label"`

	// SupportingHits is the subset of input hits carrying the winning
	// class, in their original rank order. Empty for ModelKnowledge.
	SupportingHits []search.Hit `json:"supporting_hits,omitempty"`
}

// Decide maps retrieval hits to a provenance label. The same hit set
// always yields the same decision: precedence alone decides, never
// scores or hit counts beyond presence.
func Decide(hits []search.Hit) Decision {
	var primary, secondary []search.Hit
	for _, hit := range hits {
		switch classOf(hit) {
		case docsource.ClassPrimary:
			primary = append(primary, hit)
		case docsource.ClassSecondary:
			secondary = append(secondary, hit)
		}
	}

	switch {
	case len(primary) > 0:
		return Decision{Label: PrimarySource, SupportingHits: primary}
	case len(secondary) > 0:
		return Decision{Label: SecondarySource, SupportingHits: secondary}
	default:
		return Decision{Label: ModelKnowledge}
	}
}

// classOf resolves a hit's source class from its metadata, falling back
// to the inline primary marker.
func classOf(hit search.Hit) string {
	if class, ok := hit.Metadata[docsource.MetaSourceClass]; ok && class != "" {
		return class
	}
	if strings.Contains(hit.Text, primaryTextMarker) {
		return docsource.ClassPrimary
	}
	return ""
}
