package backup

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArchiveRoundTrip(t *testing.T) {
	srcDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(srcDir, "a.sav"), []byte("X"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(srcDir, "b.sav"), []byte("Y"), 0o644))

	archivePath := filepath.Join(t.TempDir(), "out.tar.gz")
	require.NoError(t, packDir(srcDir, archivePath))

	destDir := t.TempDir()
	require.NoError(t, extractArchive(archivePath, destDir))

	a, err := os.ReadFile(filepath.Join(destDir, "a.sav"))
	require.NoError(t, err)
	assert.Equal(t, "X", string(a))

	b, err := os.ReadFile(filepath.Join(destDir, "b.sav"))
	require.NoError(t, err)
	assert.Equal(t, "Y", string(b))
}

func TestArchiveRoundTripNestedDirs(t *testing.T) {
	srcDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(srcDir, "profiles", "p1"), 0o755))
	require.NoError(t, os.WriteFile(
		filepath.Join(srcDir, "profiles", "p1", "slot.dat"), []byte("deep"), 0o644))

	archivePath := filepath.Join(t.TempDir(), "out.tar.gz")
	require.NoError(t, packDir(srcDir, archivePath))

	destDir := t.TempDir()
	require.NoError(t, extractArchive(archivePath, destDir))

	got, err := os.ReadFile(filepath.Join(destDir, "profiles", "p1", "slot.dat"))
	require.NoError(t, err)
	assert.Equal(t, "deep", string(got))
}

func TestArchiveEmptyDir(t *testing.T) {
	archivePath := filepath.Join(t.TempDir(), "out.tar.gz")
	require.NoError(t, packDir(t.TempDir(), archivePath))

	destDir := t.TempDir()
	require.NoError(t, extractArchive(archivePath, destDir))

	entries, err := os.ReadDir(destDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestExtractRejectsTraversal(t *testing.T) {
	_, err := secureJoin("/tmp/dest", "../../etc/passwd")
	require.Error(t, err)

	_, err = secureJoin("/tmp/dest", "ok/file.sav")
	require.NoError(t, err)
}
