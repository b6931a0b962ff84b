// Package archive backs up published generations to a release registry
// and restores them, with checksums guarding every transfer and a file
// lock serializing operations per persist root.
package archive

import (
	"context"
	"time"
)

// Latest is the version selector that resolves to the most recently
// uploaded artifact.
const Latest = "latest"

// Artifact describes one stored backup.
type Artifact struct {
	Version   string    `json:"version"`
	Checksum  string    `json:"checksum"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

// Registry is the remote store for backup payloads. Upload with an
// existing version replaces that version's payload, so retried backups
// are idempotent. Download accepts Latest.
type Registry interface {
	Upload(ctx context.Context, version string, payload []byte, checksum string) error
	Download(ctx context.Context, version string) (payload []byte, checksum string, err error)
	List(ctx context.Context) ([]Artifact, error)
}
