package indexer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/maic-lab/ragcore/internal/chunkstore"
	"github.com/maic-lab/ragcore/internal/docsource"
)

func manifestWith(entries map[string]string) *chunkstore.Manifest {
	m := &chunkstore.Manifest{
		Generation: "gen-20260801T000000-1",
		CreatedAt:  time.Now().UTC(),
		Documents:  make(map[string]chunkstore.ManifestEntry, len(entries)),
	}
	for id, hash := range entries {
		m.Documents[id] = chunkstore.ManifestEntry{ContentHash: hash}
	}
	return m
}

func TestDiff_DetectsAddedAndChanged(t *testing.T) {
	manifest := manifestWith(map[string]string{"A": "hashA"})
	current := []docsource.Document{
		{ID: "A", ContentHash: "hashA2"},
		{ID: "B", ContentHash: "hashB"},
	}

	result := Diff(current, manifest)
	assert.Equal(t, []string{"B"}, result.Added)
	assert.Equal(t, []string{"A"}, result.Changed)
	assert.Empty(t, result.Removed)
	assert.False(t, result.InSync())
}

func TestDiff_DetectsRemoved(t *testing.T) {
	manifest := manifestWith(map[string]string{"A": "hashA", "B": "hashB"})
	current := []docsource.Document{{ID: "A", ContentHash: "hashA"}}

	result := Diff(current, manifest)
	assert.Empty(t, result.Added)
	assert.Empty(t, result.Changed)
	assert.Equal(t, []string{"B"}, result.Removed)
}

func TestDiff_UnchangedSetIsInSync(t *testing.T) {
	manifest := manifestWith(map[string]string{"A": "hashA", "B": "hashB"})
	current := []docsource.Document{
		{ID: "A", ContentHash: "hashA"},
		{ID: "B", ContentHash: "hashB"},
	}

	assert.True(t, Diff(current, manifest).InSync())
}

func TestDiff_NilManifestMeansEverythingAdded(t *testing.T) {
	current := []docsource.Document{
		{ID: "B", ContentHash: "hashB"},
		{ID: "A", ContentHash: "hashA"},
	}

	result := Diff(current, nil)
	assert.Equal(t, []string{"A", "B"}, result.Added)
	assert.Empty(t, result.Changed)
	assert.Empty(t, result.Removed)
}

func TestDiff_IgnoresMetadataOnlyDifferences(t *testing.T) {
	manifest := manifestWith(map[string]string{"A": "hashA"})
	// Same hash, different mtime and size: content comparison only.
	current := []docsource.Document{
		{ID: "A", ContentHash: "hashA", MTime: time.Now(), Size: 9999},
	}

	assert.True(t, Diff(current, manifest).InSync())
}

func TestDiff_OutputsSorted(t *testing.T) {
	current := []docsource.Document{
		{ID: "z.md", ContentHash: "h1"},
		{ID: "a.md", ContentHash: "h2"},
		{ID: "m.md", ContentHash: "h3"},
	}

	result := Diff(current, nil)
	assert.Equal(t, []string{"a.md", "m.md", "z.md"}, result.Added)
}
