// Package indexer builds chunk store generations from source documents
// and reports drift between the current source set and the stored
// manifest.
package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/maic-lab/ragcore/internal/chunkstore"
	"github.com/maic-lab/ragcore/internal/docsource"
	rcerrors "github.com/maic-lab/ragcore/internal/errors"
	"github.com/maic-lab/ragcore/internal/readiness"
)

// Options configures an Indexer.
type Options struct {
	// ChunkSize is the sliding window size in runes.
	ChunkSize int

	// ChunkOverlap is the overlap between consecutive windows in runes.
	ChunkOverlap int

	// Workers is the number of concurrent chunking workers (0 = NumCPU).
	Workers int

	// KeepGenerations is how many superseded generations survive GC.
	KeepGenerations int
}

// Indexer owns all writes to the chunk store. A full rebuild replaces the
// current generation wholesale; readers keep seeing the previous
// generation until the atomic publish.
type Indexer struct {
	store   *chunkstore.Store
	tracker *readiness.Tracker
	source  docsource.Source
	opts    Options

	genSeq atomic.Int64
}

// defaultChunkSize is the fallback window size for callers constructing
// Options directly without running config validation.
const defaultChunkSize = 1200

// New creates an Indexer. Chunking options that would not produce a
// terminating window walk are replaced with safe values.
func New(store *chunkstore.Store, tracker *readiness.Tracker, source docsource.Source, opts Options) *Indexer {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = defaultChunkSize
	}
	if opts.ChunkOverlap < 0 || opts.ChunkOverlap >= opts.ChunkSize {
		opts.ChunkOverlap = opts.ChunkSize / 8
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	return &Indexer{store: store, tracker: tracker, source: source, opts: opts}
}

// NewGenerationID returns a sortable, timestamp-based generation ID.
// The sequence suffix disambiguates builds within the same second.
func (ix *Indexer) NewGenerationID() string {
	return fmt.Sprintf("gen-%s-%d", time.Now().UTC().Format("20060102T150405"), ix.genSeq.Add(1))
}

// BuildIndex builds and publishes a new generation from documents.
// An empty document list is rejected without mutating any existing store.
// Any failure mid-build leaves the previous generation untouched and
// READY (or the store MISSING if there was none) and surfaces BuildFailed
// with the underlying cause.
func (ix *Indexer) BuildIndex(ctx context.Context, documents []docsource.Document) (string, error) {
	if len(documents) == 0 {
		return "", rcerrors.InputError("document list is empty; refusing to build an empty index")
	}

	gen := ix.NewGenerationID()
	runID := uuid.NewString()
	log := slog.With(slog.String("generation", gen), slog.String("run_id", runID))
	log.Info("index_build_started", slog.Int("documents", len(documents)))

	prev, err := ix.tracker.BeginWrite()
	if err != nil {
		return "", rcerrors.BuildFailed("could not mark store as building", err)
	}

	fail := func(cause error) (string, error) {
		_ = ix.store.Discard(gen)
		ix.tracker.FailWrite(prev)
		log.Error("index_build_failed", slog.String("error", cause.Error()))
		return "", rcerrors.BuildFailed("indexing aborted; previous generation untouched", cause)
	}

	perDoc, err := ix.chunkAll(ctx, documents)
	if err != nil {
		return fail(err)
	}

	chunks, manifest, quality := ix.assemble(gen, documents, perDoc)

	if err := ix.store.WriteGeneration(gen, chunks, manifest, quality); err != nil {
		return fail(err)
	}
	if err := ix.store.Publish(gen); err != nil {
		return fail(err)
	}
	ix.tracker.CompleteWrite(gen)

	if err := ix.store.GC(ix.opts.KeepGenerations); err != nil {
		// Housekeeping only; the new generation is already live.
		log.Warn("generation_gc_failed", slog.String("error", err.Error()))
	}

	log.Info("index_build_published",
		slog.Int("chunks", quality.ChunkCount),
		slog.Int("deduped", quality.DedupedChunks))
	return gen, nil
}

// chunkAll reads and chunks every document concurrently. Results keep the
// input ordering so the later dedup pass is deterministic.
func (ix *Indexer) chunkAll(ctx context.Context, documents []docsource.Document) ([][]chunkstore.Chunk, error) {
	chunker := &Chunker{Size: ix.opts.ChunkSize, Overlap: ix.opts.ChunkOverlap}
	perDoc := make([][]chunkstore.Chunk, len(documents))

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ix.opts.Workers)
	for i, doc := range documents {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}

			content, err := ix.source.Read(gctx, doc.ID)
			if err != nil {
				return fmt.Errorf("document %s: %w", doc.ID, err)
			}
			chunks := chunker.Chunk(doc, content)
			mu.Lock()
			perDoc[i] = chunks
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return perDoc, nil
}

// assemble runs the generation-scoped dedup pass in document order and
// produces the final chunk list, manifest, and quality report. Duplicate
// paragraphs across documents count once: the first occurrence wins.
func (ix *Indexer) assemble(gen string, documents []docsource.Document, perDoc [][]chunkstore.Chunk) ([]chunkstore.Chunk, *chunkstore.Manifest, *chunkstore.QualityReport) {
	now := time.Now().UTC()
	manifest := &chunkstore.Manifest{
		Generation: gen,
		CreatedAt:  now,
		Documents:  make(map[string]chunkstore.ManifestEntry, len(documents)),
	}

	seen := make(map[string]struct{})
	var kept []chunkstore.Chunk
	deduped := 0
	minTokens, maxTokens, totalTokens := 0, 0, 0

	for i, doc := range documents {
		chunkIDs := make([]string, 0, len(perDoc[i]))
		for _, c := range perDoc[i] {
			hash := DedupHash(c.Text)
			if _, dup := seen[hash]; dup {
				deduped++
				continue
			}
			seen[hash] = struct{}{}
			kept = append(kept, c)
			chunkIDs = append(chunkIDs, c.ID)

			if minTokens == 0 || c.TokenCount < minTokens {
				minTokens = c.TokenCount
			}
			if c.TokenCount > maxTokens {
				maxTokens = c.TokenCount
			}
			totalTokens += c.TokenCount
		}
		manifest.Documents[doc.ID] = chunkstore.ManifestEntry{
			ContentHash: doc.ContentHash,
			ChunkIDs:    chunkIDs,
			IndexedAt:   now,
		}
	}

	avg := 0.0
	if len(kept) > 0 {
		avg = float64(totalTokens) / float64(len(kept))
	}
	quality := &chunkstore.QualityReport{
		Generation:    gen,
		DocumentCount: len(documents),
		ChunkCount:    len(kept),
		DedupedChunks: deduped,
		MinTokens:     minTokens,
		AvgTokens:     avg,
		MaxTokens:     maxTokens,
		BuiltAt:       now,
	}
	return kept, manifest, quality
}
