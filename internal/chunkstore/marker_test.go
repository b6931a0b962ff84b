package chunkstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rcerrors "github.com/maic-lab/ragcore/internal/errors"
)

func TestParseState_ClosedEnumeration(t *testing.T) {
	valid := []string{"READY", "BUILDING", "MISSING", " READY\n"}
	for _, s := range valid {
		_, err := ParseState(s)
		assert.NoError(t, err, "input %q", s)
	}

	// Ad hoc synonyms must be rejected, not coerced.
	invalid := []string{"ready", "ok", "done", "Ready", "READY!", "", "yes"}
	for _, s := range invalid {
		_, err := ParseState(s)
		require.Error(t, err, "input %q", s)
		assert.True(t, rcerrors.HasCode(err, rcerrors.ErrCodeMarkerInvalid))
	}
}

func TestReadMarker_MissingFileIsMissing(t *testing.T) {
	state, err := ReadMarker(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, StateMissing, state)
}

func TestWriteReadMarker_RoundTrips(t *testing.T) {
	root := t.TempDir()

	for _, state := range []State{StateBuilding, StateReady, StateMissing} {
		require.NoError(t, WriteMarker(root, state))
		got, err := ReadMarker(root)
		require.NoError(t, err)
		assert.Equal(t, state, got)
	}
}

func TestWriteMarker_RejectsNonCanonical(t *testing.T) {
	assert.Error(t, WriteMarker(t.TempDir(), State("ready")))
}

func TestMigrateMarker_RewritesLegacySynonym(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, MarkerFileName), []byte("ready\n"), 0o644))

	// Plain read refuses the legacy value.
	_, err := ReadMarker(root)
	require.Error(t, err)

	migrated, err := MigrateMarker(root)
	require.NoError(t, err)
	assert.True(t, migrated)

	state, err := ReadMarker(root)
	require.NoError(t, err)
	assert.Equal(t, StateReady, state)

	// Second run is a no-op.
	migrated, err = MigrateMarker(root)
	require.NoError(t, err)
	assert.False(t, migrated)
}

func TestMigrateMarker_RefusesUnknownGarbage(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, MarkerFileName), []byte("perhaps"), 0o644))

	migrated, err := MigrateMarker(root)
	require.Error(t, err)
	assert.False(t, migrated)
	assert.True(t, rcerrors.HasCode(err, rcerrors.ErrCodeMarkerInvalid))
}
