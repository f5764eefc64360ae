package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/abrahampo1/savecloud/internal/auth"
	"github.com/abrahampo1/savecloud/internal/backup"
	"github.com/abrahampo1/savecloud/internal/config"
	"github.com/abrahampo1/savecloud/internal/drive"
	"github.com/abrahampo1/savecloud/internal/kvstore"
	"github.com/abrahampo1/savecloud/internal/ludusavi"
	"github.com/abrahampo1/savecloud/internal/notify"
	"github.com/abrahampo1/savecloud/internal/remote"
	"github.com/abrahampo1/savecloud/internal/s3store"
)

// authHTTPTimeout bounds token and profile requests. Transfer requests are
// deliberately unbounded — archives can be large and slow links are fine.
const authHTTPTimeout = 30 * time.Second

// app wires the full engine for one CLI invocation: credential store,
// session, storage backend, capture tool, and the backup service facade.
type app struct {
	cfg     *config.Config
	store   *kvstore.Store
	session *auth.Session
	service *backup.Service
	logger  *slog.Logger
}

// newApp assembles the engine from the resolved configuration. The caller
// must Close() it to release the credential database.
func newApp(ctx context.Context, logger *slog.Logger) (*app, error) {
	cfg := resolvedCfg

	dbPath := config.DefaultDatabasePath()
	if dbPath == "" {
		return nil, fmt.Errorf("cannot determine data directory")
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	store, err := kvstore.Open(ctx, dbPath, logger)
	if err != nil {
		return nil, err
	}

	session := auth.New(auth.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		CallbackPort: cfg.CallbackPort,
	}, auth.NewCredentialStore(store, logger), &http.Client{Timeout: authHTTPTimeout}, logger)

	if err := session.Seed(ctx); err != nil {
		store.Close()
		return nil, err
	}

	client, session, err := buildRemoteClient(ctx, cfg, session, logger)
	if err != nil {
		store.Close()
		return nil, err
	}

	tool := ludusavi.New(cfg.LudusaviBinary, logger)
	notifier := notify.New(cfg.NotifyURL, logger)
	staging := filepath.Join(expandHome(cfg.StagingDir), "staging")

	return &app{
		cfg:     cfg,
		store:   store,
		session: session,
		service: backup.NewService(session, client, tool, notifier, staging, cfg.FolderName, logger),
		logger:  logger,
	}, nil
}

// buildRemoteClient selects the storage backend. For drive, a nil client is
// returned when OAuth credentials are absent so the service fails fast with
// the not-configured error. For s3, there is no interactive session.
func buildRemoteClient(
	ctx context.Context, cfg *config.Config, session *auth.Session, logger *slog.Logger,
) (remote.Client, *auth.Session, error) {
	switch cfg.Provider {
	case config.ProviderS3:
		client, err := s3store.New(ctx, s3store.Config{
			Bucket:          cfg.S3.Bucket,
			Region:          cfg.S3.Region,
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			ForcePathStyle:  cfg.S3.ForcePathStyle,
		}, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("configuring s3 backend: %w", err)
		}

		return client, nil, nil

	default:
		if !session.Configured() {
			return nil, session, nil
		}

		client := drive.NewClient(drive.DefaultBaseURL, drive.DefaultUploadURL, &http.Client{}, session, logger)

		return client, session, nil
	}
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.logger.Warn("closing credential store", slog.String("error", err.Error()))
	}
}
