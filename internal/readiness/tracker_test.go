package readiness

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maic-lab/ragcore/internal/chunkstore"
)

func publishGeneration(t *testing.T, store *chunkstore.Store, gen string) {
	t.Helper()

	chunks := []chunkstore.Chunk{
		{ID: "c1", DocumentID: "a.md", Text: "alpha", TokenCount: 1, Position: 0},
		{ID: "c2", DocumentID: "a.md", Text: "beta", TokenCount: 1, Position: 1},
		{ID: "c3", DocumentID: "b.md", Text: "gamma", TokenCount: 1, Position: 0},
	}
	manifest := &chunkstore.Manifest{
		Generation: gen,
		CreatedAt:  time.Now().UTC(),
		Documents: map[string]chunkstore.ManifestEntry{
			"a.md": {ContentHash: "h1", ChunkIDs: []string{"c1", "c2"}},
			"b.md": {ContentHash: "h2", ChunkIDs: []string{"c3"}},
		},
	}
	require.NoError(t, store.WriteGeneration(gen, chunks, manifest, nil))
	require.NoError(t, store.Publish(gen))
}

func newTracker(t *testing.T) (*chunkstore.Store, *Tracker) {
	t.Helper()
	store, err := chunkstore.NewStore(t.TempDir())
	require.NoError(t, err)
	tracker, err := NewTracker(store)
	require.NoError(t, err)
	t.Cleanup(func() { _ = tracker.Close() })
	return store, tracker
}

func TestStatus_EmptyStoreIsMissing(t *testing.T) {
	_, tracker := newTracker(t)

	status := tracker.Status()
	assert.Equal(t, chunkstore.StateMissing, status.State)
	assert.Zero(t, status.ChunkCount)
}

func TestStatus_PublishedGenerationIsReady(t *testing.T) {
	store, tracker := newTracker(t)
	publishGeneration(t, store, "gen-20260801T000000-1")
	tracker.Invalidate()

	status := tracker.Status()
	assert.Equal(t, chunkstore.StateReady, status.State)
	assert.Equal(t, "gen-20260801T000000-1", status.Generation)
	assert.Equal(t, 3, status.ChunkCount)
}

func TestStatus_BuildingMarkerWins(t *testing.T) {
	store, tracker := newTracker(t)
	publishGeneration(t, store, "gen-20260801T000000-1")

	prev, err := tracker.BeginWrite()
	require.NoError(t, err)
	assert.Equal(t, chunkstore.StateReady, prev)

	status := tracker.Status()
	assert.Equal(t, chunkstore.StateBuilding, status.State)

	// Roll back: previous generation still present, so READY again.
	tracker.FailWrite(prev)
	status = tracker.Status()
	assert.Equal(t, chunkstore.StateReady, status.State)
	assert.Equal(t, 3, status.ChunkCount)
}

func TestFailWrite_DamagedStoreDoesNotRollBackToReady(t *testing.T) {
	store, tracker := newTracker(t)
	gen := "gen-20260801T000000-1"
	publishGeneration(t, store, gen)

	prev, err := tracker.BeginWrite()
	require.NoError(t, err)
	require.Equal(t, chunkstore.StateReady, prev)

	// Damage the live generation while the write is in flight: the chunk
	// file loses the records the manifest still references.
	chunksPath := filepath.Join(store.GenerationDir(gen), chunkstore.ChunksFileName)
	require.NoError(t, os.WriteFile(chunksPath, []byte("{\"chunk_id\":\"c1\",\"document_id\":\"a.md\"}\n"), 0o644))

	tracker.FailWrite(prev)
	assert.Equal(t, chunkstore.StateMissing, tracker.Status().State)
}

func TestStatus_FailedFirstBuildIsMissing(t *testing.T) {
	_, tracker := newTracker(t)

	prev, err := tracker.BeginWrite()
	require.NoError(t, err)
	assert.Equal(t, chunkstore.StateMissing, prev)

	tracker.FailWrite(prev)
	assert.Equal(t, chunkstore.StateMissing, tracker.Status().State)
}

func TestStatus_ExternalDeletionObservedAsMissing(t *testing.T) {
	store, tracker := newTracker(t)
	gen := "gen-20260801T000000-1"
	publishGeneration(t, store, gen)
	tracker.CompleteWrite(gen)

	require.Equal(t, chunkstore.StateReady, tracker.Status().State)

	// Delete the underlying store files behind the tracker's back.
	require.NoError(t, os.RemoveAll(store.GenerationDir(gen)))

	assert.Eventually(t, func() bool {
		return tracker.Status().State == chunkstore.StateMissing
	}, 2*time.Second, 20*time.Millisecond, "tracker should observe external deletion")
}

func TestStatus_InvalidMarkerIsMissingNotReady(t *testing.T) {
	store, tracker := newTracker(t)
	publishGeneration(t, store, "gen-20260801T000000-1")

	// Overwrite the marker with a legacy synonym. It must not be coerced.
	require.NoError(t, os.WriteFile(filepath.Join(store.Root(), chunkstore.MarkerFileName), []byte("ready"), 0o644))
	tracker.Invalidate()

	status := tracker.Status()
	assert.Equal(t, chunkstore.StateMissing, status.State)
}

func TestStatus_TracksTransitionTime(t *testing.T) {
	store, tracker := newTracker(t)

	first := tracker.Status()
	require.Equal(t, chunkstore.StateMissing, first.State)

	publishGeneration(t, store, "gen-20260801T000000-1")
	tracker.Invalidate()

	second := tracker.Status()
	require.Equal(t, chunkstore.StateReady, second.State)
	assert.False(t, second.LastTransitionAt.Before(first.LastTransitionAt))
}
