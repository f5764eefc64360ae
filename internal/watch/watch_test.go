package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abrahampo1/savecloud/internal/backup"
)

type fakeUploader struct {
	mu    sync.Mutex
	calls []uploadCall
}

type uploadCall struct {
	shop       string
	objectID   string
	winePrefix string
}

func (u *fakeUploader) UploadSaveGame(
	_ context.Context, shop, objectID string, opts backup.PackOptions,
) (*backup.Artifact, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	u.calls = append(u.calls, uploadCall{shop: shop, objectID: objectID, winePrefix: opts.WinePrefix})

	return &backup.Artifact{Name: "fake.tar.gz"}, nil
}

func (u *fakeUploader) callCount() int {
	u.mu.Lock()
	defer u.mu.Unlock()

	return len(u.calls)
}

func runWatcher(t *testing.T, uploader *fakeUploader, targets []Target) context.CancelFunc {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() {
		done <- New(uploader, nil).Run(ctx, targets)
	}()

	t.Cleanup(func() {
		cancel()

		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("watcher did not stop")
		}
	})

	// Give the watch loop a moment to register before the test writes files.
	time.Sleep(100 * time.Millisecond)

	return cancel
}

func TestWriteTriggersBackupAfterDebounce(t *testing.T) {
	dir := t.TempDir()
	uploader := &fakeUploader{}

	runWatcher(t, uploader, []Target{{
		Shop:       "steam",
		ObjectID:   "123",
		Path:       dir,
		WinePrefix: "/wine",
		Debounce:   100 * time.Millisecond,
	}})

	require.NoError(t, os.WriteFile(filepath.Join(dir, "slot1.sav"), []byte("data"), 0o644))

	require.Eventually(t, func() bool {
		return uploader.callCount() == 1
	}, 5*time.Second, 20*time.Millisecond)

	uploader.mu.Lock()
	call := uploader.calls[0]
	uploader.mu.Unlock()

	assert.Equal(t, "steam", call.shop)
	assert.Equal(t, "123", call.objectID)
	assert.Equal(t, "/wine", call.winePrefix)
}

func TestRapidWritesCoalesceIntoOneBackup(t *testing.T) {
	dir := t.TempDir()
	uploader := &fakeUploader{}

	runWatcher(t, uploader, []Target{{
		Shop:     "steam",
		ObjectID: "123",
		Path:     dir,
		Debounce: 300 * time.Millisecond,
	}})

	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "slot1.sav"), []byte{byte(i)}, 0o644))
		time.Sleep(20 * time.Millisecond)
	}

	require.Eventually(t, func() bool {
		return uploader.callCount() >= 1
	}, 5*time.Second, 20*time.Millisecond)

	// Settle past another debounce window to catch spurious extra uploads.
	time.Sleep(500 * time.Millisecond)
	assert.Equal(t, 1, uploader.callCount())
}

func TestNewSubdirectoryIsWatched(t *testing.T) {
	dir := t.TempDir()
	uploader := &fakeUploader{}

	runWatcher(t, uploader, []Target{{
		Shop:     "steam",
		ObjectID: "123",
		Path:     dir,
		Debounce: 100 * time.Millisecond,
	}})

	sub := filepath.Join(dir, "profiles")
	require.NoError(t, os.Mkdir(sub, 0o755))

	require.Eventually(t, func() bool {
		return uploader.callCount() >= 1
	}, 5*time.Second, 20*time.Millisecond)

	first := uploader.callCount()

	// A write inside the new directory must still trigger a backup.
	require.NoError(t, os.WriteFile(filepath.Join(sub, "slot2.sav"), []byte("x"), 0o644))

	require.Eventually(t, func() bool {
		return uploader.callCount() > first
	}, 5*time.Second, 20*time.Millisecond)
}

func TestRunNoTargets(t *testing.T) {
	require.NoError(t, New(&fakeUploader{}, nil).Run(context.Background(), nil))
}

func TestRunMissingPath(t *testing.T) {
	err := New(&fakeUploader{}, nil).Run(context.Background(), []Target{{
		Shop:     "steam",
		ObjectID: "123",
		Path:     filepath.Join(t.TempDir(), "missing"),
		Debounce: 100 * time.Millisecond,
	}})
	require.Error(t, err)
}
