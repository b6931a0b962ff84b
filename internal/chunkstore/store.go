package chunkstore

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	rcerrors "github.com/maic-lab/ragcore/internal/errors"
)

const (
	// PointerFileName holds the current generation directory name.
	PointerFileName = "CURRENT"
	// GenerationsDirName is the directory holding all generations.
	GenerationsDirName = "generations"

	// ChunksFileName is the line-delimited chunk records file.
	ChunksFileName = "chunks.jsonl"
	// ManifestFileName is the single structured manifest record.
	ManifestFileName = "manifest.json"
	// QualityFileName is the build statistics record.
	QualityFileName = "quality.json"
)

// Store manages chunk store generations under one persist root.
// Writes are serialized; reads only touch published generations and never
// block writers beyond the atomic pointer swap itself.
type Store struct {
	root string
	mu   sync.Mutex // serializes pointer swaps and marker writes
}

// NewStore opens (creating if needed) a store rooted at root.
func NewStore(root string) (*Store, error) {
	if err := os.MkdirAll(filepath.Join(root, GenerationsDirName), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create persist root: %w", err)
	}
	return &Store{root: root}, nil
}

// Root returns the persist root directory.
func (s *Store) Root() string {
	return s.root
}

// GenerationDir returns the directory for a generation ID.
func (s *Store) GenerationDir(gen string) string {
	return filepath.Join(s.root, GenerationsDirName, gen)
}

// Current returns the published generation ID, or "" when none exists.
// A pointer that exists but does not resolve to a generation directory is
// reported as a corrupt pointer; callers treat that as MISSING rather than
// terminating.
func (s *Store) Current() (string, error) {
	data, err := os.ReadFile(filepath.Join(s.root, PointerFileName))
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", rcerrors.Wrap(rcerrors.ErrCodeCorruptPointer, err)
	}

	gen := strings.TrimSpace(string(data))
	if gen == "" || strings.ContainsAny(gen, "/\\\n") {
		return "", rcerrors.New(rcerrors.ErrCodeCorruptPointer,
			fmt.Sprintf("current-generation pointer contains %q", gen), nil).
			WithSuggestion("run 'ragcore index' to rebuild")
	}
	if _, err := os.Stat(s.GenerationDir(gen)); err != nil {
		return "", rcerrors.New(rcerrors.ErrCodeCorruptPointer,
			fmt.Sprintf("current-generation pointer names missing generation %s", gen), err).
			WithSuggestion("run 'ragcore index' to rebuild")
	}
	return gen, nil
}

// WriteGeneration persists chunks, manifest, and quality report into the
// generation's directory. The generation is invisible to readers until
// Publish points CURRENT at it.
func (s *Store) WriteGeneration(gen string, chunks []Chunk, manifest *Manifest, quality *QualityReport) error {
	dir := s.GenerationDir(gen)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create generation dir: %w", err)
	}

	if err := s.writeChunks(filepath.Join(dir, ChunksFileName), chunks); err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(dir, ManifestFileName), manifest); err != nil {
		return err
	}
	if quality != nil {
		if err := writeJSON(filepath.Join(dir, QualityFileName), quality); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) writeChunks(path string, chunks []Chunk) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create chunks file: %w", err)
	}

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for i := range chunks {
		if err := enc.Encode(&chunks[i]); err != nil {
			_ = f.Close()
			return fmt.Errorf("failed to encode chunk %s: %w", chunks[i].ID, err)
		}
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to flush chunks file: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to sync chunks file: %w", err)
	}
	return f.Close()
}

// Publish verifies a generation and atomically points CURRENT at it.
// Readers observe either the previous generation or the new one in full,
// never a mix. The readiness marker is set READY after the swap.
func (s *Store) Publish(gen string) error {
	if err := s.Verify(gen); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	pointer := filepath.Join(s.root, PointerFileName)
	tmp := pointer + ".tmp"
	if err := os.WriteFile(tmp, []byte(gen+"\n"), 0o644); err != nil {
		return fmt.Errorf("failed to stage pointer: %w", err)
	}
	if err := os.Rename(tmp, pointer); err != nil {
		return fmt.Errorf("failed to swap pointer: %w", err)
	}

	return WriteMarker(s.root, StateReady)
}

// Discard removes an unpublished generation directory.
func (s *Store) Discard(gen string) error {
	current, _ := s.Current()
	if gen == current {
		return fmt.Errorf("refusing to discard current generation %s", gen)
	}
	return os.RemoveAll(s.GenerationDir(gen))
}

// Adopt verifies a staged directory and installs it as generation gen by
// rename. An existing directory for gen is swapped aside first and removed
// only once the staged copy is in place; a failed install swaps it back.
// Callers must hold the readiness marker in BUILDING across the swap so
// readers never observe the rename window.
func (s *Store) Adopt(gen, stagingDir string) error {
	if err := s.VerifyDir(stagingDir); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := s.GenerationDir(gen)
	displaced := dir + ".displaced"
	_ = os.RemoveAll(displaced)

	swapped := false
	if _, err := os.Stat(dir); err == nil {
		if err := os.Rename(dir, displaced); err != nil {
			return fmt.Errorf("failed to displace generation %s: %w", gen, err)
		}
		swapped = true
	}
	if err := os.Rename(stagingDir, dir); err != nil {
		if swapped {
			_ = os.Rename(displaced, dir)
		}
		return fmt.Errorf("failed to install generation %s: %w", gen, err)
	}
	if swapped {
		_ = os.RemoveAll(displaced)
	}
	return nil
}

// LoadManifest reads a generation's manifest.
func (s *Store) LoadManifest(gen string) (*Manifest, error) {
	var m Manifest
	if err := readJSON(filepath.Join(s.GenerationDir(gen), ManifestFileName), &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// LoadQuality reads a generation's quality report, or nil when absent.
func (s *Store) LoadQuality(gen string) (*QualityReport, error) {
	path := filepath.Join(s.GenerationDir(gen), QualityFileName)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}
	var q QualityReport
	if err := readJSON(path, &q); err != nil {
		return nil, err
	}
	return &q, nil
}

// LoadChunks reads all chunk records of a generation in file order.
func (s *Store) LoadChunks(gen string) ([]Chunk, error) {
	return loadChunksFile(filepath.Join(s.GenerationDir(gen), ChunksFileName))
}

func loadChunksFile(path string) ([]Chunk, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open chunks file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var chunks []Chunk
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}
		var c Chunk
		if err := json.Unmarshal([]byte(raw), &c); err != nil {
			return nil, rcerrors.New(rcerrors.ErrCodeStoreCorrupt,
				fmt.Sprintf("chunk record at %s:%d does not parse", ChunksFileName, line), err)
		}
		chunks = append(chunks, c)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan chunks file: %w", err)
	}
	return chunks, nil
}

// Verify runs the structural integrity check for a generation: every chunk
// record parses, every manifest chunk ID resolves to exactly one chunk, and
// every chunk's document appears in the manifest. An empty generation fails
// verification; READY implies non-empty by contract.
func (s *Store) Verify(gen string) error {
	return s.VerifyDir(s.GenerationDir(gen))
}

// VerifyDir runs the same integrity check against any directory holding
// generation files, so staged content can be validated before it is
// installed into the store.
func (s *Store) VerifyDir(dir string) error {
	name := filepath.Base(dir)
	var manifest Manifest
	if err := readJSON(filepath.Join(dir, ManifestFileName), &manifest); err != nil {
		return rcerrors.New(rcerrors.ErrCodeStoreCorrupt,
			fmt.Sprintf("generation %s has no readable manifest", name), err)
	}
	chunks, err := loadChunksFile(filepath.Join(dir, ChunksFileName))
	if err != nil {
		return err
	}
	if len(chunks) == 0 {
		return rcerrors.New(rcerrors.ErrCodeStoreCorrupt,
			fmt.Sprintf("generation %s contains no chunks", name), nil)
	}

	seen := make(map[string]*Chunk, len(chunks))
	for i := range chunks {
		c := &chunks[i]
		if prev, dup := seen[c.ID]; dup {
			return rcerrors.New(rcerrors.ErrCodeStoreCorrupt,
				fmt.Sprintf("duplicate chunk id %s (documents %s and %s)", c.ID, prev.DocumentID, c.DocumentID), nil)
		}
		seen[c.ID] = c
		if _, ok := manifest.Documents[c.DocumentID]; !ok {
			return rcerrors.New(rcerrors.ErrCodeStoreCorrupt,
				fmt.Sprintf("chunk %s references document %s absent from manifest", c.ID, c.DocumentID), nil)
		}
	}

	referenced := make(map[string]struct{}, len(chunks))
	for docID, entry := range manifest.Documents {
		for _, id := range entry.ChunkIDs {
			if _, ok := seen[id]; !ok {
				return rcerrors.New(rcerrors.ErrCodeStoreCorrupt,
					fmt.Sprintf("manifest references chunk %s (document %s) missing from store", id, docID), nil)
			}
			referenced[id] = struct{}{}
		}
	}
	for id, c := range seen {
		if _, ok := referenced[id]; !ok {
			return rcerrors.New(rcerrors.ErrCodeStoreCorrupt,
				fmt.Sprintf("chunk %s (document %s) is not referenced by the manifest", id, c.DocumentID), nil)
		}
	}
	return nil
}

// Generations lists all generation IDs on disk, sorted ascending.
// Generation IDs are timestamp-prefixed, so this is oldest-first.
func (s *Store) Generations() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.root, GenerationsDirName))
	if err != nil {
		return nil, err
	}
	var gens []string
	for _, e := range entries {
		if e.IsDir() {
			gens = append(gens, e.Name())
		}
	}
	sort.Strings(gens)
	return gens, nil
}

// GC removes superseded generations, keeping the current one plus up to
// keep most-recent predecessors for in-flight readers. Never touches the
// current generation, so the atomicity guarantee is preserved.
func (s *Store) GC(keep int) error {
	current, err := s.Current()
	if err != nil {
		// Corrupt pointer: do nothing rather than guess what to delete.
		return nil
	}

	gens, err := s.Generations()
	if err != nil {
		return err
	}

	var old []string
	for _, gen := range gens {
		if gen != current {
			old = append(old, gen)
		}
	}
	if len(old) <= keep {
		return nil
	}
	for _, gen := range old[:len(old)-keep] {
		if err := os.RemoveAll(s.GenerationDir(gen)); err != nil {
			return fmt.Errorf("failed to remove generation %s: %w", gen, err)
		}
	}
	return nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filepath.Base(path), err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	return os.Rename(tmp, path)
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}
	return nil
}
