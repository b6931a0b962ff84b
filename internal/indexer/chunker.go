package indexer

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"unicode"

	"github.com/maic-lab/ragcore/internal/chunkstore"
	"github.com/maic-lab/ragcore/internal/docsource"
)

// Chunker splits document content into bounded-size overlapping windows.
// Chunking is deterministic: the same content always yields the same
// chunks with the same IDs, which is what makes re-indexing an unchanged
// document reproduce its previous generation byte for byte.
type Chunker struct {
	// Size is the window size in runes.
	Size int

	// Overlap is how many runes consecutive windows share.
	Overlap int
}

// chunkIDLength is the hex prefix length of chunk IDs.
const chunkIDLength = 24

// ChunkID derives the stable chunk identity from document ID + ordinal.
func ChunkID(documentID string, ordinal int) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%d", documentID, ordinal)))
	return hex.EncodeToString(sum[:])[:chunkIDLength]
}

// Chunk splits one document's content into chunks. Windows prefer to end
// at a whitespace boundary so words are not cut mid-token; the window is
// hard-cut only when no whitespace exists in its second half.
func (c *Chunker) Chunk(doc docsource.Document, content []byte) []chunkstore.Chunk {
	text := strings.TrimSpace(string(content))
	if text == "" {
		return nil
	}

	// Degenerate settings are clamped so the walk always advances.
	size := c.Size
	if size < 1 {
		size = 1
	}
	overlap := c.Overlap
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size - 1
	}

	runes := []rune(text)

	var chunks []chunkstore.Chunk
	ordinal := 0
	for start := 0; start < len(runes); {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		} else {
			end = breakAtWhitespace(runes, start, end)
		}

		piece := strings.TrimSpace(string(runes[start:end]))
		if piece != "" {
			chunks = append(chunks, chunkstore.Chunk{
				ID:         ChunkID(doc.ID, ordinal),
				DocumentID: doc.ID,
				Text:       piece,
				TokenCount: len(strings.Fields(piece)),
				Position:   ordinal,
				Metadata:   doc.Metadata,
			})
			ordinal++
		}

		if end == len(runes) {
			break
		}
		// Overlap counts back from the actual cut, not the fixed window
		// end, so runes after a retreated cut are never skipped.
		next := end - overlap
		if next <= start {
			next = end
		}
		start = next
	}
	return chunks
}

// breakAtWhitespace moves end left to the nearest whitespace, but no
// further than the midpoint of the window.
func breakAtWhitespace(runes []rune, start, end int) int {
	limit := start + (end-start)/2
	for i := end; i > limit; i-- {
		if unicode.IsSpace(runes[i-1]) {
			return i
		}
	}
	return end
}

// NormalizeForDedup canonicalizes chunk text for duplicate detection:
// lowercased with all whitespace runs collapsed, so formatting-only
// variants of the same paragraph hash identically.
func NormalizeForDedup(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

// DedupHash returns the hash used for cross-document deduplication.
func DedupHash(text string) string {
	sum := sha256.Sum256([]byte(NormalizeForDedup(text)))
	return hex.EncodeToString(sum[:])
}
