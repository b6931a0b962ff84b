// Package chunkstore is the durable representation of indexed content.
// A store is a set of generations under one persist root; exactly one
// generation is current at a time, selected by an atomically-swapped
// pointer file. Writers (indexer, restore) build a whole new generation
// and publish it; readers only ever see a fully published generation.
//
// Persisted layout per generation:
//
//	<root>/CURRENT                      current generation directory name
//	<root>/.ready                       readiness marker (READY|BUILDING|MISSING)
//	<root>/generations/<id>/chunks.jsonl   one chunk record per line
//	<root>/generations/<id>/manifest.json  document -> chunk ids + content hash
//	<root>/generations/<id>/quality.json   build statistics
package chunkstore

import "time"

// Chunk is one indexed unit of text. Chunks are immutable; a changed
// document yields a fully new chunk set for that document.
type Chunk struct {
	// ID is derived deterministically from document ID + ordinal, so
	// re-indexing unchanged content reproduces identical IDs.
	ID string `json:"chunk_id"`

	// DocumentID is the owning document's identity.
	DocumentID string `json:"document_id"`

	// Text is the chunk content.
	Text string `json:"text"`

	// TokenCount is the number of whitespace-delimited tokens in Text.
	TokenCount int `json:"token_count"`

	// Position is the chunk's ordinal within its document, starting at 0.
	Position int `json:"position"`

	// Metadata carries free-form hints (e.g. source_class for labeling).
	Metadata map[string]string `json:"metadata,omitempty"`
}

// ManifestEntry records one document's contribution to a generation.
type ManifestEntry struct {
	ContentHash string    `json:"content_hash"`
	ChunkIDs    []string  `json:"chunk_ids"`
	IndexedAt   time.Time `json:"indexed_at"`
}

// Manifest maps document IDs to their chunk sets for one generation.
// Invariant: every chunk ID referenced here exists in chunks.jsonl, and
// every chunk's document ID appears here.
type Manifest struct {
	Generation string                   `json:"generation"`
	CreatedAt  time.Time                `json:"created_at"`
	Documents  map[string]ManifestEntry `json:"documents"`
}

// ChunkCount returns the total number of chunk references in the manifest.
func (m *Manifest) ChunkCount() int {
	n := 0
	for _, entry := range m.Documents {
		n += len(entry.ChunkIDs)
	}
	return n
}

// QualityReport summarizes a build, persisted alongside the manifest and
// packaged into archives.
type QualityReport struct {
	Generation    string    `json:"generation"`
	DocumentCount int       `json:"document_count"`
	ChunkCount    int       `json:"chunk_count"`
	DedupedChunks int       `json:"deduped_chunks"`
	MinTokens     int       `json:"min_tokens"`
	AvgTokens     float64   `json:"avg_tokens"`
	MaxTokens     int       `json:"max_tokens"`
	BuiltAt       time.Time `json:"built_at"`
}
