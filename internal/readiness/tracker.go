// Package readiness derives the tri-state health signal other subsystems
// must check before issuing queries. The state is computed from the
// presence and structural consistency of the chunk store plus the
// readiness marker, cached between writes so Status calls do not rescan
// the store.
package readiness

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/maic-lab/ragcore/internal/chunkstore"
)

// Status is the externally visible readiness snapshot.
type Status struct {
	State            chunkstore.State `json:"state"`
	Generation       string           `json:"generation,omitempty"`
	ChunkCount       int              `json:"chunk_count"`
	LastTransitionAt time.Time        `json:"last_transition_at"`
	Message          string           `json:"message,omitempty"`
}

const statusCacheKey = "current"

// Tracker computes and caches the readiness state of one chunk store.
// The cache is invalidated on every write transition and on filesystem
// events under the persist root, so externally deleted store files are
// observed without a full rescan per call.
type Tracker struct {
	store *chunkstore.Store

	mu         sync.Mutex
	cache      *lru.Cache[string, Status]
	watcher    *fsnotify.Watcher
	watchedGen string
	lastState  chunkstore.State
	lastChange time.Time
}

// NewTracker creates a tracker for the given store. The filesystem watcher
// is best-effort: if it cannot be started the tracker still works, it just
// probes on every call.
func NewTracker(store *chunkstore.Store) (*Tracker, error) {
	cache, err := lru.New[string, Status](4)
	if err != nil {
		return nil, err
	}

	t := &Tracker{
		store: store,
		cache: cache,
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		slog.Warn("readiness_watcher_unavailable", slog.String("error", err.Error()))
		return t, nil
	}
	t.watcher = watcher

	for _, dir := range []string{store.Root(), filepath.Join(store.Root(), chunkstore.GenerationsDirName)} {
		if err := watcher.Add(dir); err != nil {
			slog.Warn("readiness_watch_failed", slog.String("dir", dir), slog.String("error", err.Error()))
		}
	}

	go t.watchLoop()
	return t, nil
}

// Close stops the filesystem watcher.
func (t *Tracker) Close() error {
	if t.watcher != nil {
		return t.watcher.Close()
	}
	return nil
}

func (t *Tracker) watchLoop() {
	for {
		select {
		case _, ok := <-t.watcher.Events:
			if !ok {
				return
			}
			t.Invalidate()
		case _, ok := <-t.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

// Invalidate drops the cached status. Writers call this on every
// transition; the watcher calls it on external filesystem changes.
func (t *Tracker) Invalidate() {
	t.cache.Purge()
}

// Status returns the current readiness snapshot, probing the store only
// when the cache is cold.
func (t *Tracker) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()

	if cached, ok := t.cache.Get(statusCacheKey); ok && t.watcher != nil {
		return cached
	}

	status := t.probe()
	if status.State != t.lastState {
		t.lastState = status.State
		t.lastChange = time.Now().UTC()
	}
	status.LastTransitionAt = t.lastChange
	t.cache.Add(statusCacheKey, status)
	return status
}

// probe computes the state from disk. Every failure path degrades to
// MISSING rather than erroring: an unreadable store must read as "not
// safe to serve", never crash a status call.
func (t *Tracker) probe() Status {
	marker, err := chunkstore.ReadMarker(t.store.Root())
	if err != nil {
		return Status{State: chunkstore.StateMissing, Message: "readiness marker is invalid; migrate or rebuild"}
	}

	if marker == chunkstore.StateBuilding {
		return Status{State: chunkstore.StateBuilding, Message: "a build or restore is in progress"}
	}

	gen, err := t.store.Current()
	if err != nil {
		return Status{State: chunkstore.StateMissing, Message: "current-generation pointer is corrupt; rebuild required"}
	}
	if gen == "" || marker == chunkstore.StateMissing {
		return Status{State: chunkstore.StateMissing, Message: "no index present; run a build or restore"}
	}

	// marker == READY: confirm the generation is actually serveable.
	chunksPath := filepath.Join(t.store.GenerationDir(gen), chunkstore.ChunksFileName)
	info, err := os.Stat(chunksPath)
	if err != nil || info.Size() == 0 {
		return Status{State: chunkstore.StateMissing, Generation: gen,
			Message: "store files are missing or empty; rebuild required"}
	}

	manifest, err := t.store.LoadManifest(gen)
	if err != nil {
		return Status{State: chunkstore.StateMissing, Generation: gen,
			Message: "manifest is unreadable; rebuild required"}
	}

	return Status{
		State:      chunkstore.StateReady,
		Generation: gen,
		ChunkCount: manifest.ChunkCount(),
		Message:    fmt.Sprintf("serving generation %s", gen),
	}
}

// BeginWrite transitions the marker to BUILDING and returns the prior
// state for rollback. Callers must follow with CompleteWrite or FailWrite
// before returning; the tracker is never left in BUILDING across a call
// boundary.
func (t *Tracker) BeginWrite() (chunkstore.State, error) {
	prev, err := chunkstore.ReadMarker(t.store.Root())
	if err != nil {
		// Invalid legacy marker: treat prior state as MISSING so a failed
		// write does not resurrect an unvalidated READY.
		prev = chunkstore.StateMissing
	}
	if err := chunkstore.WriteMarker(t.store.Root(), chunkstore.StateBuilding); err != nil {
		return prev, err
	}
	t.Invalidate()
	return prev, nil
}

// CompleteWrite records a successful publish. The store's Publish already
// set the marker READY; this re-arms the watcher on the new generation and
// drops the cache.
func (t *Tracker) CompleteWrite(gen string) {
	t.mu.Lock()
	if t.watcher != nil {
		if t.watchedGen != "" {
			_ = t.watcher.Remove(t.store.GenerationDir(t.watchedGen))
		}
		if err := t.watcher.Add(t.store.GenerationDir(gen)); err == nil {
			t.watchedGen = gen
		}
	}
	t.mu.Unlock()
	t.Invalidate()
}

// FailWrite rolls the marker back after a failed build or restore. The
// store returns to READY only when the current generation still passes the
// integrity check; a predecessor damaged during the failed write degrades
// to MISSING rather than serving corrupt data under a READY marker.
func (t *Tracker) FailWrite(prev chunkstore.State) {
	rollback := chunkstore.StateMissing
	if prev == chunkstore.StateReady {
		if gen, err := t.store.Current(); err == nil && gen != "" {
			if verr := t.store.Verify(gen); verr == nil {
				rollback = chunkstore.StateReady
			} else {
				slog.Error("readiness_rollback_degraded",
					slog.String("generation", gen),
					slog.String("error", verr.Error()))
			}
		}
	}
	if err := chunkstore.WriteMarker(t.store.Root(), rollback); err != nil {
		slog.Error("readiness_rollback_failed", slog.String("error", err.Error()))
	}
	t.Invalidate()
}
