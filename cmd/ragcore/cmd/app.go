package cmd

import (
	"context"

	"github.com/maic-lab/ragcore/internal/archive"
	"github.com/maic-lab/ragcore/internal/archive/ghregistry"
	"github.com/maic-lab/ragcore/internal/chunkstore"
	"github.com/maic-lab/ragcore/internal/config"
	"github.com/maic-lab/ragcore/internal/docsource"
	"github.com/maic-lab/ragcore/internal/indexer"
	"github.com/maic-lab/ragcore/internal/readiness"
	"github.com/maic-lab/ragcore/internal/search"
)

// primaryPrefixes marks curated grammar files as primary sources by
// file name prefix.
var primaryPrefixes = []string{"이유문법", "grammar_core"}

// app bundles the subsystems wired over one persist root.
type app struct {
	cfg     *config.Config
	store   *chunkstore.Store
	tracker *readiness.Tracker
	source  *docsource.FSSource
}

// newApp loads configuration and wires the store, tracker, and document
// source. Callers must Close it.
func newApp() (*app, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}

	store, err := chunkstore.NewStore(cfg.Paths.PersistRoot)
	if err != nil {
		return nil, err
	}
	tracker, err := readiness.NewTracker(store)
	if err != nil {
		return nil, err
	}

	source := docsource.NewFSSource(docsource.FSOptions{
		Root:            cfg.Paths.SourceDir,
		PrimaryPrefixes: primaryPrefixes,
		Workers:         cfg.Index.Workers,
	})

	return &app{cfg: cfg, store: store, tracker: tracker, source: source}, nil
}

// Close releases the tracker's filesystem watcher.
func (a *app) Close() {
	_ = a.tracker.Close()
}

// indexer builds the write-side pipeline.
func (a *app) indexer() *indexer.Indexer {
	return indexer.New(a.store, a.tracker, a.source, indexer.Options{
		ChunkSize:       a.cfg.Index.ChunkSize,
		ChunkOverlap:    a.cfg.Index.ChunkOverlap,
		Workers:         a.cfg.Index.Workers,
		KeepGenerations: a.cfg.Index.KeepGenerations,
	})
}

// engine builds the read-side query engine.
func (a *app) engine() (*search.Engine, error) {
	return search.NewEngine(a.store, a.tracker, nil)
}

// archiveManager wires the backup manager against the configured GitHub
// release registry.
func (a *app) archiveManager(ctx context.Context) (*archive.Manager, error) {
	registry, err := ghregistry.New(ctx, ghregistry.Options{
		Owner:   a.cfg.Registry.Owner,
		Repo:    a.cfg.Registry.Repo,
		Token:   a.cfg.Registry.Token,
		Timeout: a.cfg.Registry.Timeout,
	})
	if err != nil {
		return nil, err
	}
	return archive.NewManager(a.store, a.tracker, registry), nil
}
