package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runCommand executes the CLI with args and returns combined output.
func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var buf bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&buf)
	root.SetErr(&buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

// setupWorkspace points the CLI at temp source and persist directories.
func setupWorkspace(t *testing.T) (sourceDir, persistRoot string) {
	t.Helper()

	sourceDir = t.TempDir()
	persistRoot = t.TempDir()
	t.Setenv("RAGCORE_SOURCE_DIR", sourceDir)
	t.Setenv("RAGCORE_PERSIST_ROOT", persistRoot)
	return sourceDir, persistRoot
}

func writeDoc(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestRootCmd_RegistersSubcommands(t *testing.T) {
	root := NewRootCmd()

	var names []string
	for _, sub := range root.Commands() {
		names = append(names, sub.Name())
	}
	for _, want := range []string{"index", "diff", "status", "search", "backup", "restore", "versions", "version"} {
		assert.Contains(t, names, want)
	}
}

func TestVersionCmd(t *testing.T) {
	out, err := runCommand(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "ragcore")
}

func TestStatusCmd_EmptyStoreIsMissing(t *testing.T) {
	setupWorkspace(t)

	out, err := runCommand(t, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "MISSING")
}

func TestIndexThenStatusAndSearch(t *testing.T) {
	sourceDir, _ := setupWorkspace(t)
	writeDoc(t, sourceDir, "verbs.md", "verb conjugation rules for past tense endings")
	writeDoc(t, sourceDir, "particles.md", "subject and topic particles mark the noun role")

	out, err := runCommand(t, "index")
	require.NoError(t, err)
	assert.Contains(t, out, "Published generation")

	out, err = runCommand(t, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "READY")

	out, err = runCommand(t, "search", "verb", "--top-k", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "verbs.md")
	assert.Contains(t, out, "label:")
}

func TestIndexCmd_EmptySourceFails(t *testing.T) {
	setupWorkspace(t)

	_, err := runCommand(t, "index")
	require.Error(t, err)
}

func TestSearchCmd_FailsWithoutIndex(t *testing.T) {
	setupWorkspace(t)

	_, err := runCommand(t, "search", "anything")
	require.Error(t, err)
}

func TestDiffCmd_ReportsDrift(t *testing.T) {
	sourceDir, _ := setupWorkspace(t)
	writeDoc(t, sourceDir, "a.md", "original content")

	_, err := runCommand(t, "index")
	require.NoError(t, err)

	out, err := runCommand(t, "diff")
	require.NoError(t, err)
	assert.Contains(t, out, "in sync")

	writeDoc(t, sourceDir, "a.md", "edited content")
	writeDoc(t, sourceDir, "b.md", "new document")

	out, err = runCommand(t, "diff")
	require.Error(t, err)
	assert.Contains(t, out, "changed  a.md")
	assert.Contains(t, out, "added    b.md")
}

func TestStatusCmd_JSONOutput(t *testing.T) {
	setupWorkspace(t)

	out, err := runCommand(t, "status", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"state"`)
	assert.Contains(t, out, "MISSING")
}

func TestStatusCmd_MigratesLegacyMarker(t *testing.T) {
	sourceDir, persistRoot := setupWorkspace(t)
	writeDoc(t, sourceDir, "a.md", "some content")

	_, err := runCommand(t, "index")
	require.NoError(t, err)

	// Simulate a marker written by an older release.
	require.NoError(t, os.WriteFile(filepath.Join(persistRoot, ".ready"), []byte("ready"), 0o644))

	out, err := runCommand(t, "status", "--migrate-marker")
	require.NoError(t, err)
	assert.Contains(t, out, "Migrated legacy readiness marker")
	assert.Contains(t, out, "READY")
}

func TestBackupCmd_FailsWithoutRegistryConfig(t *testing.T) {
	sourceDir, _ := setupWorkspace(t)
	writeDoc(t, sourceDir, "a.md", "some content")
	t.Setenv("RAGCORE_REGISTRY_TOKEN", "")

	_, err := runCommand(t, "index")
	require.NoError(t, err)

	_, err = runCommand(t, "backup")
	require.Error(t, err)
}
