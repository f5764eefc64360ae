package backup

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPipeline(t *testing.T, client *fakeRemote, tool *fakeTool, notifier *fakeNotifier) (*Pipeline, string) {
	t.Helper()

	stagingRoot := t.TempDir()
	logger := slog.Default()
	resolver := NewResolver(client, "", logger)
	packager := NewPackager(tool, stagingRoot, logger)

	return NewPipeline(client, resolver, packager, tool, notifier, stagingRoot, logger), stagingRoot
}

func TestUploadCreatesArtifactWithMetadata(t *testing.T) {
	client := newFakeRemote()
	tool := newFakeTool()
	notifier := &fakeNotifier{}
	p, stagingRoot := testPipeline(t, client, tool, notifier)

	artifact, err := p.Upload(context.Background(), "steam", "123", PackOptions{Label: "run1"})
	require.NoError(t, err)
	require.NotNil(t, artifact)

	assert.Contains(t, artifact.Name, "steam-123")
	assert.Equal(t, "steam", artifact.Metadata.Shop)
	assert.Equal(t, "123", artifact.Metadata.ObjectID)
	assert.Equal(t, "run1", artifact.Metadata.Label)
	assert.Positive(t, artifact.SizeBytes)

	// Remote side holds the metadata as the file description.
	stored, err := client.GetFile(context.Background(), artifact.ID)
	require.NoError(t, err)

	meta := ParseMetadata(stored.Description)
	assert.Equal(t, "steam", meta.Shop)

	// Completion event scoped to (objectID, shop).
	assert.Equal(t, []string{"upload-complete:123:steam"}, notifier.events)

	// Local staging and archive cleaned up.
	entries, err := os.ReadDir(stagingRoot)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestUploadCleansUpOnCaptureFailure(t *testing.T) {
	client := newFakeRemote()
	tool := newFakeTool()
	tool.saveFiles = nil
	notifier := &fakeNotifier{}
	p, stagingRoot := testPipeline(t, client, tool, notifier)

	// Capture with no save files still succeeds; force a failure via a
	// read-only staging root instead.
	require.NoError(t, os.Chmod(stagingRoot, 0o555))
	t.Cleanup(func() { _ = os.Chmod(stagingRoot, 0o755) })

	_, err := p.Upload(context.Background(), "steam", "123", PackOptions{})
	require.Error(t, err)
	assert.Empty(t, notifier.events, "no completion event on failure")
}

func TestRestoreRoundTrip(t *testing.T) {
	client := newFakeRemote()
	tool := newFakeTool()
	notifier := &fakeNotifier{}
	p, _ := testPipeline(t, client, tool, notifier)
	ctx := context.Background()

	artifact, err := p.Upload(ctx, "steam", "123", PackOptions{})
	require.NoError(t, err)

	require.NoError(t, p.Restore(ctx, "steam", "123", artifact.ID, ""))

	// Staging directory holds the extracted save files for the capture tool.
	require.Len(t, tool.restoreArgs, 1)
	call := tool.restoreArgs[0]
	assert.Equal(t, "123", call.objectID)

	a, err := os.ReadFile(filepath.Join(call.srcDir, "a.sav"))
	require.NoError(t, err)
	assert.Equal(t, "X", string(a))

	assert.Contains(t, notifier.events, "download-complete:123:steam")
}

func TestRestorePassesBothPrefixesForRemap(t *testing.T) {
	client := newFakeRemote()
	tool := newFakeTool()
	notifier := &fakeNotifier{}
	p, _ := testPipeline(t, client, tool, notifier)
	ctx := context.Background()

	meta := Metadata{
		Shop:           "steam",
		ObjectID:       "123",
		HomeDir:        "/home/u/.wine/drive_c/users/u",
		WinePrefixPath: "/home/u/.wine",
	}

	artifact, err := client.CreateFile(ctx, "steam-123-x.tar.gz", "", meta.Encode(),
		archiveReader(t, map[string]string{"a.sav": "X"}))
	require.NoError(t, err)

	require.NoError(t, p.Restore(ctx, "steam", "123", artifact.ID, "/home/u/.wine2"))

	require.Len(t, tool.restoreArgs, 1)
	call := tool.restoreArgs[0]
	assert.Equal(t, "/home/u/.wine", call.recordedPrefix, "recorded prefix from metadata")
	assert.Equal(t, "/home/u/.wine2", call.currentPrefix, "current prefix from caller")
	assert.Equal(t, "/home/u/.wine/drive_c/users/u", call.homeDirMapping)
}

func TestRestoreCorruptMetadataProceedsBestEffort(t *testing.T) {
	client := newFakeRemote()
	tool := newFakeTool()
	notifier := &fakeNotifier{}
	p, _ := testPipeline(t, client, tool, notifier)
	ctx := context.Background()

	artifact, err := client.CreateFile(ctx, "steam-123-x.tar.gz", "", "not json",
		archiveReader(t, map[string]string{"a.sav": "X"}))
	require.NoError(t, err)

	require.NoError(t, p.Restore(ctx, "steam", "123", artifact.ID, ""))

	require.Len(t, tool.restoreArgs, 1)
	assert.Empty(t, tool.restoreArgs[0].homeDirMapping)
	assert.Empty(t, tool.restoreArgs[0].recordedPrefix)
}

func TestRestoreDeletesArchiveKeepsStaging(t *testing.T) {
	client := newFakeRemote()
	tool := newFakeTool()
	notifier := &fakeNotifier{}
	p, stagingRoot := testPipeline(t, client, tool, notifier)
	ctx := context.Background()

	artifact, err := client.CreateFile(ctx, "steam-123-x.tar.gz", "", "{}",
		archiveReader(t, map[string]string{"a.sav": "X"}))
	require.NoError(t, err)

	require.NoError(t, p.Restore(ctx, "steam", "123", artifact.ID, ""))

	entries, err := os.ReadDir(stagingRoot)
	require.NoError(t, err)
	require.Len(t, entries, 1, "staging directory stays, archive is gone")
	assert.Equal(t, "steam-123", entries[0].Name())
}

// archiveReader packs the given files into an in-memory tar.gz stream.
func archiveReader(t *testing.T, files map[string]string) *os.File {
	t.Helper()

	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}

	path := filepath.Join(t.TempDir(), "in.tar.gz")
	require.NoError(t, packDir(dir, path))

	f, err := os.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })

	return f
}
