package backup

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abrahampo1/savecloud/internal/auth"
)

func TestHappyPathBackup(t *testing.T) {
	client := newFakeRemote()
	tool := newFakeTool()
	notifier := &fakeNotifier{}

	svc := NewService(nil, client, tool, notifier, t.TempDir(), "", slog.Default())
	ctx := context.Background()

	artifact, err := svc.UploadSaveGame(ctx, "steam", "123", PackOptions{})
	require.NoError(t, err)
	require.NotNil(t, artifact)

	listed, err := svc.ListBackups(ctx, "steam", "123")
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, "steam", listed[0].Metadata.Shop)
	assert.Equal(t, "123", listed[0].Metadata.ObjectID)

	require.NoError(t, svc.RestoreSaveGame(ctx, "steam", "123", listed[0].ID, ""))
	require.Len(t, tool.restoreArgs, 1)
}

func TestNotConfiguredFailsFastWithZeroNetworkCalls(t *testing.T) {
	tool := newFakeTool()
	notifier := &fakeNotifier{}

	svc := NewService(nil, nil, tool, notifier, t.TempDir(), "", slog.Default())
	ctx := context.Background()

	_, err := svc.UploadSaveGame(ctx, "steam", "123", PackOptions{})
	assert.ErrorIs(t, err, auth.ErrNotConfigured)

	_, err = svc.ListBackups(ctx, "steam", "123")
	assert.ErrorIs(t, err, auth.ErrNotConfigured)

	err = svc.RestoreSaveGame(ctx, "steam", "123", "id", "")
	assert.ErrorIs(t, err, auth.ErrNotConfigured)

	err = svc.DeleteBackup(ctx, "id")
	assert.ErrorIs(t, err, auth.ErrNotConfigured)

	_, err = svc.Authenticate(ctx, func(string) error { return nil })
	assert.ErrorIs(t, err, auth.ErrNotConfigured)

	assert.Zero(t, tool.captured, "no capture on not-configured")
	assert.Empty(t, notifier.events)
}

func TestDeleteBackup(t *testing.T) {
	client := newFakeRemote()
	svc := NewService(nil, client, newFakeTool(), &fakeNotifier{}, t.TempDir(), "", slog.Default())
	ctx := context.Background()

	artifact, err := svc.UploadSaveGame(ctx, "steam", "123", PackOptions{})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteBackup(ctx, artifact.ID))

	listed, err := svc.ListBackups(ctx, "steam", "123")
	require.NoError(t, err)
	assert.Empty(t, listed)
}

func TestDisconnectWithoutSessionInvalidatesResolver(t *testing.T) {
	client := newFakeRemote()
	svc := NewService(nil, client, newFakeTool(), &fakeNotifier{}, t.TempDir(), "", slog.Default())
	ctx := context.Background()

	_, err := svc.ListBackups(ctx, "steam", "123")
	require.NoError(t, err)

	require.NoError(t, svc.Disconnect(ctx))

	_, err = svc.ListBackups(ctx, "steam", "123")
	require.NoError(t, err)
	assert.Equal(t, 4, client.listCalls, "folder re-resolved after disconnect")
}
