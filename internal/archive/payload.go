package archive

import (
	"archive/zip"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/maic-lab/ragcore/internal/chunkstore"
	rcerrors "github.com/maic-lab/ragcore/internal/errors"
)

// maxEntrySize caps a single archive entry on extraction. Generations are
// text files; anything past this is a hostile or corrupt archive.
const maxEntrySize = 1 << 30

// Checksum returns the hex sha256 of payload bytes.
func Checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Pack serializes one generation into a zip payload and returns it with
// its checksum. The zip holds the generation files flat at the archive
// root, so payloads for identical generation content are interchangeable.
func Pack(store *chunkstore.Store, generation string) ([]byte, string, error) {
	dir := store.GenerationDir(generation)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	names := []string{chunkstore.ChunksFileName, chunkstore.ManifestFileName, chunkstore.QualityFileName}
	for _, name := range names {
		content, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			if os.IsNotExist(err) && name == chunkstore.QualityFileName {
				continue
			}
			return nil, "", fmt.Errorf("read %s: %w", name, err)
		}
		w, err := zw.Create(name)
		if err != nil {
			return nil, "", err
		}
		if _, err := w.Write(content); err != nil {
			return nil, "", err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, "", err
	}

	data := buf.Bytes()
	return data, Checksum(data), nil
}

// PeekManifest reads the manifest out of a payload without extracting it,
// so callers learn the generation ID before touching the store.
func PeekManifest(data []byte) (*chunkstore.Manifest, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, rcerrors.New(rcerrors.ErrCodeCorruptArchive, "payload is not a zip archive", err)
	}

	for _, f := range zr.File {
		if f.Name != chunkstore.ManifestFileName {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		defer rc.Close()

		var manifest chunkstore.Manifest
		if err := json.NewDecoder(io.LimitReader(rc, maxEntrySize)).Decode(&manifest); err != nil {
			return nil, rcerrors.New(rcerrors.ErrCodeCorruptArchive, "archived manifest is unparsable", err)
		}
		if manifest.Generation == "" {
			return nil, rcerrors.New(rcerrors.ErrCodeCorruptArchive, "archived manifest has no generation", nil)
		}
		return &manifest, nil
	}
	return nil, rcerrors.New(rcerrors.ErrCodeCorruptArchive, "payload has no manifest", nil)
}

// Unpack extracts a payload into destDir. Entry names are restricted to
// flat, relative file names; anything resembling path traversal rejects
// the whole archive before a single byte lands in destDir.
func Unpack(data []byte, destDir string) error {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return rcerrors.New(rcerrors.ErrCodeCorruptArchive, "payload is not a zip archive", err)
	}

	for _, f := range zr.File {
		if !safeEntryName(f.Name) {
			return rcerrors.New(rcerrors.ErrCodeCorruptArchive,
				fmt.Sprintf("archive entry %q has an unsafe name", f.Name), nil)
		}
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return err
	}
	for _, f := range zr.File {
		if err := extractEntry(f, destDir); err != nil {
			return err
		}
	}
	return nil
}

func extractEntry(f *zip.File, destDir string) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.OpenFile(filepath.Join(destDir, f.Name), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, io.LimitReader(rc, maxEntrySize)); err != nil {
		return err
	}
	return out.Sync()
}

// safeEntryName accepts only flat relative file names.
func safeEntryName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	if strings.ContainsAny(name, `/\`) {
		return false
	}
	return filepath.Base(name) == name
}
