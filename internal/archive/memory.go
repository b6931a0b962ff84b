package archive

import (
	"context"
	"sync"
	"time"

	rcerrors "github.com/maic-lab/ragcore/internal/errors"
)

// MemRegistry is an in-memory Registry for tests and offline use.
type MemRegistry struct {
	mu        sync.Mutex
	artifacts map[string]memArtifact
	order     []string
	failNext  int
}

type memArtifact struct {
	payload   []byte
	checksum  string
	createdAt time.Time
}

// NewMemRegistry creates an empty in-memory registry.
func NewMemRegistry() *MemRegistry {
	return &MemRegistry{artifacts: make(map[string]memArtifact)}
}

// FailNext makes the next n calls fail with a retryable registry error.
func (m *MemRegistry) FailNext(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNext = n
}

func (m *MemRegistry) checkFail() error {
	if m.failNext > 0 {
		m.failNext--
		return rcerrors.RegistryUnavailable("injected registry failure", nil)
	}
	return nil
}

// Upload implements Registry. Re-uploading a version replaces its payload.
func (m *MemRegistry) Upload(ctx context.Context, version string, payload []byte, checksum string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkFail(); err != nil {
		return err
	}

	if _, exists := m.artifacts[version]; !exists {
		m.order = append(m.order, version)
	}
	m.artifacts[version] = memArtifact{
		payload:   append([]byte(nil), payload...),
		checksum:  checksum,
		createdAt: time.Now().UTC(),
	}
	return nil
}

// Download implements Registry.
func (m *MemRegistry) Download(ctx context.Context, version string) ([]byte, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkFail(); err != nil {
		return nil, "", err
	}

	if version == Latest {
		if len(m.order) == 0 {
			return nil, "", rcerrors.New(rcerrors.ErrCodeVersionNotFound, "registry is empty", nil)
		}
		version = m.order[len(m.order)-1]
	}
	art, ok := m.artifacts[version]
	if !ok {
		return nil, "", rcerrors.New(rcerrors.ErrCodeVersionNotFound, "version "+version+" not found", nil)
	}
	return append([]byte(nil), art.payload...), art.checksum, nil
}

// List implements Registry. Artifacts come back in upload order.
func (m *MemRegistry) List(ctx context.Context) ([]Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkFail(); err != nil {
		return nil, err
	}

	out := make([]Artifact, 0, len(m.order))
	for _, version := range m.order {
		art := m.artifacts[version]
		out = append(out, Artifact{
			Version:   version,
			Checksum:  art.checksum,
			Size:      int64(len(art.payload)),
			CreatedAt: art.createdAt,
		})
	}
	return out, nil
}

// Corrupt flips a byte in a stored payload without updating its checksum.
// Test hook for the checksum verification path.
func (m *MemRegistry) Corrupt(version string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	art, ok := m.artifacts[version]
	if !ok || len(art.payload) == 0 {
		return false
	}
	art.payload[len(art.payload)/2] ^= 0xFF
	m.artifacts[version] = art
	return true
}
