package backup

import (
	"context"
	"log/slog"

	"github.com/abrahampo1/savecloud/internal/auth"
	"github.com/abrahampo1/savecloud/internal/remote"
)

// Service is the engine facade: it composes the token lifecycle session,
// folder resolver, packager, transfer pipeline, and catalog, and enforces
// the not-configured fast-fail before any operation can touch the network.
//
// Concurrent operations on different (shop, objectID) pairs are safe and
// stage independently. The engine does not serialize concurrent operations
// on the same pair — callers do (e.g. by disabling the action while one is
// in flight).
type Service struct {
	session  *auth.Session
	client   remote.Client
	resolver *Resolver
	pipeline *Pipeline
	catalog  *Catalog
	logger   *slog.Logger
}

// NewService wires the engine. client may be nil when the feature is not
// configured; every operation then fails fast with auth.ErrNotConfigured.
// session may be nil for backends without an interactive auth lifecycle.
func NewService(
	session *auth.Session, client remote.Client, tool CaptureTool,
	notifier Notifier, stagingRoot, folderName string, logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}

	resolver := NewResolver(client, folderName, logger)
	packager := NewPackager(tool, stagingRoot, logger)

	return &Service{
		session:  session,
		client:   client,
		resolver: resolver,
		pipeline: NewPipeline(client, resolver, packager, tool, notifier, stagingRoot, logger),
		catalog:  NewCatalog(client, resolver, logger),
		logger:   logger,
	}
}

// configured reports whether a remote client exists. Checked before every
// operation so nothing attempts a network call with a nil client.
func (s *Service) configured() bool {
	return s.client != nil
}

// Authenticate runs the interactive authorization flow and returns the
// authenticated user's profile.
func (s *Service) Authenticate(ctx context.Context, openURL func(string) error) (*auth.UserInfo, error) {
	if s.session == nil {
		return nil, auth.ErrNotConfigured
	}

	return s.session.Login(ctx, openURL)
}

// Disconnect clears the session's local credentials (best-effort remote
// revoke) and drops the cached backup folder handle.
func (s *Service) Disconnect(ctx context.Context) error {
	if s.session != nil {
		if err := s.session.Disconnect(ctx); err != nil {
			return err
		}
	}

	s.resolver.Invalidate()

	return nil
}

// Status reports local-only connection state.
func (s *Service) Status(ctx context.Context) (auth.Status, error) {
	if s.session == nil {
		return auth.Status{Connected: s.configured()}, nil
	}

	return s.session.ConnectionStatus(ctx)
}

// UploadSaveGame packs and uploads a backup for the game.
func (s *Service) UploadSaveGame(ctx context.Context, shop, objectID string, opts PackOptions) (*Artifact, error) {
	if !s.configured() {
		return nil, auth.ErrNotConfigured
	}

	return s.pipeline.Upload(ctx, shop, objectID, opts)
}

// RestoreSaveGame downloads the chosen artifact and restores it locally.
func (s *Service) RestoreSaveGame(ctx context.Context, shop, objectID, artifactID, currentWinePrefix string) error {
	if !s.configured() {
		return auth.ErrNotConfigured
	}

	return s.pipeline.Restore(ctx, shop, objectID, artifactID, currentWinePrefix)
}

// ListBackups returns the game's backups, newest first.
func (s *Service) ListBackups(ctx context.Context, shop, objectID string) ([]Artifact, error) {
	if !s.configured() {
		return nil, auth.ErrNotConfigured
	}

	return s.catalog.List(ctx, shop, objectID)
}

// DeleteBackup removes a backup remotely.
func (s *Service) DeleteBackup(ctx context.Context, artifactID string) error {
	if !s.configured() {
		return auth.ErrNotConfigured
	}

	return s.catalog.Delete(ctx, artifactID)
}
