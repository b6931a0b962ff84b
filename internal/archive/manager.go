package archive

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/maic-lab/ragcore/internal/chunkstore"
	rcerrors "github.com/maic-lab/ragcore/internal/errors"
	"github.com/maic-lab/ragcore/internal/readiness"
)

// LockFileName is the per-root lock serializing backup and restore.
const LockFileName = ".backup.lock"

// Manager runs backup and restore against one persist root. Operations
// are mutually exclusive per root: the second concurrent caller gets a
// CONCURRENT_OPERATION error instead of queueing.
type Manager struct {
	store    *chunkstore.Store
	tracker  *readiness.Tracker
	registry Registry
	retry    rcerrors.RetryConfig
}

// NewManager creates a Manager using the default retry policy for
// registry calls.
func NewManager(store *chunkstore.Store, tracker *readiness.Tracker, registry Registry) *Manager {
	return &Manager{
		store:    store,
		tracker:  tracker,
		registry: registry,
		retry:    rcerrors.DefaultRetryConfig(),
	}
}

// lock takes the per-root operation lock without blocking.
func (m *Manager) lock(op string) (*flock.Flock, error) {
	fl := flock.New(filepath.Join(m.store.Root(), LockFileName))
	locked, err := fl.TryLock()
	if err != nil {
		return nil, err
	}
	if !locked {
		return nil, rcerrors.ConcurrentOperation(op)
	}
	return fl, nil
}

// Backup packs the current READY generation and uploads it under version.
// An empty version defaults to the generation ID. Re-running a backup of
// the same version replaces the stored payload, so retries after a
// partial upload converge instead of erroring.
func (m *Manager) Backup(ctx context.Context, version string) (Artifact, error) {
	status := m.tracker.Status()
	if status.State != chunkstore.StateReady {
		return Artifact{}, rcerrors.NotReady(string(status.State))
	}

	fl, err := m.lock("backup")
	if err != nil {
		return Artifact{}, err
	}
	defer fl.Unlock()

	generation := status.Generation
	if version == "" {
		version = generation
	}

	payload, checksum, err := Pack(m.store, generation)
	if err != nil {
		return Artifact{}, rcerrors.New(rcerrors.ErrCodeStoreCorrupt, "could not pack generation "+generation, err)
	}

	_, err = rcerrors.Retry(ctx, m.retry, func() (struct{}, error) {
		return struct{}{}, m.registry.Upload(ctx, version, payload, checksum)
	})
	if err != nil {
		return Artifact{}, err
	}

	slog.Info("backup_uploaded",
		slog.String("version", version),
		slog.String("generation", generation),
		slog.String("checksum", checksum),
		slog.Int("bytes", len(payload)))
	return Artifact{Version: version, Checksum: checksum, Size: int64(len(payload))}, nil
}

// Restore downloads a version (or Latest) and publishes it locally.
//
// A READY local index wins over the remote: without force the restore is
// a no-op, because the local copy is at least as new as whatever was
// backed up from it. The payload is unpacked and verified in a staging
// directory outside the store; a live generation is only ever replaced by
// rename, so any failure leaves the pre-restore state intact.
func (m *Manager) Restore(ctx context.Context, version string, force bool) (string, error) {
	fl, err := m.lock("restore")
	if err != nil {
		return "", err
	}
	defer fl.Unlock()

	status := m.tracker.Status()
	if status.State == chunkstore.StateReady && !force {
		slog.Info("restore_skipped_local_wins", slog.String("generation", status.Generation))
		return status.Generation, nil
	}

	type download struct {
		payload  []byte
		checksum string
	}
	got, err := rcerrors.Retry(ctx, m.retry, func() (download, error) {
		payload, checksum, err := m.registry.Download(ctx, version)
		return download{payload, checksum}, err
	})
	if err != nil {
		return "", err
	}

	if actual := Checksum(got.payload); actual != got.checksum {
		return "", rcerrors.CorruptArchive(version, got.checksum, actual)
	}

	manifest, err := PeekManifest(got.payload)
	if err != nil {
		return "", err
	}
	generation := manifest.Generation

	if err := ctx.Err(); err != nil {
		return "", err
	}

	staging := filepath.Join(m.store.Root(), ".restore-"+generation)
	if err := os.RemoveAll(staging); err != nil {
		return "", err
	}

	prev, err := m.tracker.BeginWrite()
	if err != nil {
		return "", err
	}
	fail := func(cause error) (string, error) {
		_ = os.RemoveAll(staging)
		m.tracker.FailWrite(prev)
		return "", cause
	}

	if err := Unpack(got.payload, staging); err != nil {
		return fail(err)
	}
	if err := m.store.Adopt(generation, staging); err != nil {
		return fail(rcerrors.New(rcerrors.ErrCodeCorruptArchive, "restored generation failed verification", err))
	}
	if err := m.store.Publish(generation); err != nil {
		return fail(err)
	}
	m.tracker.CompleteWrite(generation)

	slog.Info("restore_published",
		slog.String("version", version),
		slog.String("generation", generation))
	return generation, nil
}

// Versions lists the artifacts available in the registry.
func (m *Manager) Versions(ctx context.Context) ([]Artifact, error) {
	return rcerrors.Retry(ctx, m.retry, func() ([]Artifact, error) {
		return m.registry.List(ctx)
	})
}
