package indexer

import (
	"sort"

	"github.com/maic-lab/ragcore/internal/chunkstore"
	"github.com/maic-lab/ragcore/internal/docsource"
)

// DiffResult reports drift between the current document set and a stored
// manifest. It is advisory: computing it never mutates state.
type DiffResult struct {
	// Added documents are present in the source set but not the manifest.
	Added []string `json:"added"`

	// Changed documents exist in both but with different content hashes.
	Changed []string `json:"changed"`

	// Removed documents are in the manifest but gone from the source set.
	Removed []string `json:"removed"`
}

// InSync reports whether nothing drifted.
func (d DiffResult) InSync() bool {
	return len(d.Added) == 0 && len(d.Changed) == 0 && len(d.Removed) == 0
}

// Diff compares current documents against a manifest by content hash.
// Comparison never looks at modification times, so touching a file
// without editing it does not register as a change. A nil manifest means
// everything is added.
func Diff(current []docsource.Document, manifest *chunkstore.Manifest) DiffResult {
	var result DiffResult

	known := map[string]chunkstore.ManifestEntry{}
	if manifest != nil {
		known = manifest.Documents
	}

	currentIDs := make(map[string]struct{}, len(current))
	for _, doc := range current {
		currentIDs[doc.ID] = struct{}{}
		entry, ok := known[doc.ID]
		switch {
		case !ok:
			result.Added = append(result.Added, doc.ID)
		case entry.ContentHash != doc.ContentHash:
			result.Changed = append(result.Changed, doc.ID)
		}
	}

	for id := range known {
		if _, ok := currentIDs[id]; !ok {
			result.Removed = append(result.Removed, id)
		}
	}

	sort.Strings(result.Added)
	sort.Strings(result.Changed)
	sort.Strings(result.Removed)
	return result
}
