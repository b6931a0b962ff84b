// Package docsource supplies source documents to the indexer and the
// manifest differencer. Implementations of Source are the authoritative
// view of what "current" means during diffing.
package docsource

import (
	"context"
	"time"
)

// Document identifies one source file as observed during a scan.
// A Document is immutable once observed for a given scan.
type Document struct {
	// ID is the stable identity of the document (relative path).
	ID string `json:"id"`

	// Path is the path the content was read from.
	Path string `json:"path"`

	// MTime is the file modification time at scan time.
	MTime time.Time `json:"mtime"`

	// Size is the file size in bytes at scan time.
	Size int64 `json:"size"`

	// ContentHash is the SHA256 of the file content, hex-encoded.
	// Diffing compares hashes, never mtimes, so a touch without an edit
	// does not register as a change.
	ContentHash string `json:"content_hash"`

	// Metadata carries free-form hints (e.g. source_class) that flow into
	// chunk metadata and ultimately into label decisions.
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Source lists current documents and serves their content.
type Source interface {
	// List returns the current document set, sorted by ID.
	List(ctx context.Context) ([]Document, error)

	// Read returns the content bytes for a document ID.
	Read(ctx context.Context, id string) ([]byte, error)
}
