package docsource

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
)

// ClassPrimary and ClassSecondary are the metadata values the label decider
// keys on. Documents without a recognized class carry no source_class entry.
const (
	MetaSourceClass = "source_class"
	ClassPrimary    = "primary"
	ClassSecondary  = "secondary"
)

// FSOptions configures a filesystem source.
type FSOptions struct {
	// Root is the directory scanned for documents.
	Root string

	// PrimaryPrefixes marks curated primary material by filename prefix.
	PrimaryPrefixes []string

	// Workers is the number of concurrent hashing workers (0 = NumCPU).
	Workers int

	// MaxFileSize skips files larger than this many bytes (0 = 10MB).
	MaxFileSize int64
}

// DefaultMaxFileSize is the default per-file size cap (10MB).
const DefaultMaxFileSize int64 = 10 * 1024 * 1024

// FSSource lists documents from a directory tree. Hidden entries and
// binary files are skipped; content hashing runs in parallel.
type FSSource struct {
	opts FSOptions
}

// NewFSSource creates a filesystem-backed document source.
func NewFSSource(opts FSOptions) *FSSource {
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = DefaultMaxFileSize
	}
	return &FSSource{opts: opts}
}

// List walks the root and returns the current document set sorted by ID.
func (s *FSSource) List(ctx context.Context) ([]Document, error) {
	root := s.opts.Root
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("source directory %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("source path %s is not a directory", root)
	}

	var paths []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if strings.HasPrefix(name, ".") && path != root {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", root, err)
	}

	var (
		mu   sync.Mutex
		docs []Document
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Workers)
	for _, path := range paths {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}

			doc, ok, err := s.observe(path)
			if err != nil {
				return err
			}
			if !ok {
				return nil
			}
			mu.Lock()
			docs = append(docs, doc)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs, nil
}

// Read returns the content bytes for a document ID.
func (s *FSSource) Read(_ context.Context, id string) ([]byte, error) {
	path := filepath.Join(s.opts.Root, filepath.FromSlash(id))
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read document %s: %w", id, err)
	}
	return data, nil
}

// observe stats and hashes one file. ok is false for skipped files.
func (s *FSSource) observe(path string) (Document, bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Document{}, false, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.Size() > s.opts.MaxFileSize {
		return Document{}, false, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return Document{}, false, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if isBinary(content) {
		return Document{}, false, nil
	}

	rel, err := filepath.Rel(s.opts.Root, path)
	if err != nil {
		return Document{}, false, err
	}
	id := filepath.ToSlash(rel)

	doc := Document{
		ID:          id,
		Path:        path,
		MTime:       info.ModTime(),
		Size:        info.Size(),
		ContentHash: HashContent(content),
	}
	if class := s.classify(id); class != "" {
		doc.Metadata = map[string]string{MetaSourceClass: class}
	}
	return doc, true, nil
}

// classify derives the source class from filename and path hints.
// Curated primary material is matched by filename prefix; book-like
// material (pdf, book/ or grammar paths) is secondary.
func (s *FSSource) classify(id string) string {
	name := filepath.Base(id)
	for _, prefix := range s.opts.PrimaryPrefixes {
		if prefix != "" && strings.HasPrefix(name, prefix) {
			return ClassPrimary
		}
	}

	low := strings.ToLower(id)
	if strings.HasSuffix(low, ".pdf") {
		return ClassSecondary
	}
	if strings.HasPrefix(low, "book/") || strings.Contains(low, "/book/") || strings.Contains(low, "grammar") {
		return ClassSecondary
	}
	return ""
}

// HashContent returns the hex-encoded SHA256 of content.
func HashContent(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// isBinary reports whether content looks like binary data.
// A NUL byte in the first 8KB is the signal, as in git.
func isBinary(content []byte) bool {
	probe := content
	if len(probe) > 8192 {
		probe = probe[:8192]
	}
	return bytes.IndexByte(probe, 0) >= 0
}
