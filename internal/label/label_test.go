package label

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maic-lab/ragcore/internal/search"
)

func hit(id, class string) search.Hit {
	h := search.Hit{ChunkID: id, DocumentID: id + ".md", Text: "text of " + id}
	if class != "" {
		h.Metadata = map[string]string{"source_class": class}
	}
	return h
}

func TestDecide_PrimaryOutranksEverything(t *testing.T) {
	hits := []search.Hit{
		hit("c1", "secondary"),
		hit("c2", "primary"),
		hit("c3", ""),
		hit("c4", "primary"),
	}

	d := Decide(hits)
	assert.Equal(t, PrimarySource, d.Label)
	require.Len(t, d.SupportingHits, 2)
	assert.Equal(t, "c2", d.SupportingHits[0].ChunkID)
	assert.Equal(t, "c4", d.SupportingHits[1].ChunkID)
}

func TestDecide_SecondaryWhenNoPrimary(t *testing.T) {
	hits := []search.Hit{
		hit("c1", ""),
		hit("c2", "secondary"),
	}

	d := Decide(hits)
	assert.Equal(t, SecondarySource, d.Label)
	require.Len(t, d.SupportingHits, 1)
	assert.Equal(t, "c2", d.SupportingHits[0].ChunkID)
}

func TestDecide_EmptyHitsIsModelKnowledge(t *testing.T) {
	d := Decide(nil)
	assert.Equal(t, ModelKnowledge, d.Label)
	assert.Empty(t, d.SupportingHits)

	d = Decide([]search.Hit{})
	assert.Equal(t, ModelKnowledge, d.Label)
}

func TestDecide_UnclassifiedHitsAreModelKnowledge(t *testing.T) {
	hits := []search.Hit{hit("c1", ""), hit("c2", "")}

	d := Decide(hits)
	assert.Equal(t, ModelKnowledge, d.Label)
	assert.Empty(t, d.SupportingHits)
}

func TestDecide_InlineMarkerCountsAsPrimary(t *testing.T) {
	marked := search.Hit{ChunkID: "c1", Text: "[이유문법] 동사 활용 규칙"}
	hits := []search.Hit{hit("c0", "secondary"), marked}

	d := Decide(hits)
	assert.Equal(t, PrimarySource, d.Label)
	require.Len(t, d.SupportingHits, 1)
	assert.Equal(t, "c1", d.SupportingHits[0].ChunkID)
}

func TestDecide_Deterministic(t *testing.T) {
	hits := []search.Hit{
		hit("c1", "secondary"),
		hit("c2", "primary"),
		hit("c3", ""),
	}

	first := Decide(hits)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, Decide(hits))
	}
}

func TestDecide_UnknownClassIsIgnored(t *testing.T) {
	hits := []search.Hit{hit("c1", "tertiary")}

	d := Decide(hits)
	assert.Equal(t, ModelKnowledge, d.Label)
}
