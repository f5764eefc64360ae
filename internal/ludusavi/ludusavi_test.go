package ludusavi

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRemapMappingMissingIndexIsFine(t *testing.T) {
	err := remapMapping(t.TempDir(), "/home/u", "/home/u/.wine2", "/home/u/.wine", slog.Default())
	require.NoError(t, err)
}

func TestRemapMappingRewritesPrefix(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, mappingFile)

	original := "backups:\n  - path: /home/u/.wine/drive_c/users/u/save.dat\n"
	require.NoError(t, os.WriteFile(path, []byte(original), 0o644))

	err := remapMapping(dir, "", "/home/u/.wine2", "/home/u/.wine", slog.Default())
	require.NoError(t, err)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(got), "/home/u/.wine2/drive_c/users/u/save.dat")
	assert.NotContains(t, string(got), "/home/u/.wine/drive_c")
}

func TestRemapMappingNoChangeLeavesFileAlone(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, mappingFile)

	original := "backups: []\n"
	require.NoError(t, os.WriteFile(path, []byte(original), 0o644))

	err := remapMapping(dir, "", "/p", "/p", slog.Default())
	require.NoError(t, err)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, original, string(got))
}

func TestNewDefaultsBinary(t *testing.T) {
	tool := New("", slog.Default())
	assert.Equal(t, "ludusavi", tool.binary)
}
