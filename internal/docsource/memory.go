package docsource

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// MemSource is an in-memory Source for tests and fixtures.
type MemSource struct {
	docs    map[string][]byte
	meta    map[string]map[string]string
	scanned time.Time
}

// NewMemSource creates an empty in-memory source.
func NewMemSource() *MemSource {
	return &MemSource{
		docs:    make(map[string][]byte),
		meta:    make(map[string]map[string]string),
		scanned: time.Now(),
	}
}

// Put adds or replaces a document.
func (m *MemSource) Put(id string, content []byte) *MemSource {
	m.docs[id] = content
	return m
}

// PutWithMeta adds or replaces a document with metadata.
func (m *MemSource) PutWithMeta(id string, content []byte, meta map[string]string) *MemSource {
	m.docs[id] = content
	m.meta[id] = meta
	return m
}

// Remove deletes a document.
func (m *MemSource) Remove(id string) *MemSource {
	delete(m.docs, id)
	delete(m.meta, id)
	return m
}

// List returns the current document set sorted by ID.
func (m *MemSource) List(_ context.Context) ([]Document, error) {
	docs := make([]Document, 0, len(m.docs))
	for id, content := range m.docs {
		docs = append(docs, Document{
			ID:          id,
			Path:        id,
			MTime:       m.scanned,
			Size:        int64(len(content)),
			ContentHash: HashContent(content),
			Metadata:    m.meta[id],
		})
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs, nil
}

// Read returns the content bytes for a document ID.
func (m *MemSource) Read(_ context.Context, id string) ([]byte, error) {
	content, ok := m.docs[id]
	if !ok {
		return nil, fmt.Errorf("document %s not found", id)
	}
	return content, nil
}
