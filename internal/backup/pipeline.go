package backup

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/abrahampo1/savecloud/internal/remote"
)

// Artifact is the transient in-memory view of a remote backup.
type Artifact struct {
	ID         string
	Name       string
	SizeBytes  int64
	CreatedAt  time.Time
	ModifiedAt time.Time
	Metadata   Metadata
}

// Pipeline streams archives to and from the remote folder. Network failures
// are not retried here — they propagate to the caller, which owns
// user-facing retry.
type Pipeline struct {
	client      remote.Client
	resolver    *Resolver
	packager    *Packager
	tool        CaptureTool
	notifier    Notifier
	stagingRoot string
	logger      *slog.Logger
}

// NewPipeline wires the transfer pipeline.
func NewPipeline(
	client remote.Client, resolver *Resolver, packager *Packager,
	tool CaptureTool, notifier Notifier, stagingRoot string, logger *slog.Logger,
) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}

	return &Pipeline{
		client:      client,
		resolver:    resolver,
		packager:    packager,
		tool:        tool,
		notifier:    notifier,
		stagingRoot: stagingRoot,
		logger:      logger,
	}
}

// Upload packs the game's save data and streams the archive to the remote
// folder with the metadata JSON-encoded as the file description. The local
// archive and staging directory are deleted on every exit path; only their
// deletion failures are swallowed.
func (p *Pipeline) Upload(ctx context.Context, shop, objectID string, opts PackOptions) (*Artifact, error) {
	folderID, err := p.resolver.Resolve(ctx)
	if err != nil {
		return nil, err
	}

	stagingDir := p.packager.StagingDir(shop, objectID)

	var archivePath string

	defer func() {
		removeQuietly(archivePath, p.logger)
		removeQuietly(stagingDir, p.logger)
	}()

	archivePath, meta, err := p.packager.Pack(ctx, shop, objectID, opts)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(archivePath)
	if err != nil {
		return nil, fmt.Errorf("backup: opening archive for upload: %w", err)
	}
	defer f.Close()

	created, err := p.client.CreateFile(ctx, filepath.Base(archivePath), folderID, meta.Encode(), f)
	if err != nil {
		return nil, err
	}

	p.notifier.Emit(uploadCompleteEvent(objectID, shop))

	p.logger.Info("backup uploaded",
		slog.String("shop", shop),
		slog.String("object_id", objectID),
		slog.String("artifact_id", created.ID),
	)

	return &Artifact{
		ID:         created.ID,
		Name:       created.Name,
		SizeBytes:  created.Size,
		CreatedAt:  created.CreatedAt,
		ModifiedAt: created.ModifiedAt,
		Metadata:   meta,
	}, nil
}

// Restore fetches the chosen artifact, extracts it into a fresh staging
// directory, and hands the capture tool both the recorded and current
// compatibility prefixes so it can remap paths written under a different
// environment. Save files are only swapped in after a fully successful
// extraction, so a failed restore leaves prior local state untouched.
//
// The local archive file is deleted on every exit path; the staging
// directory is intentionally left for the capture tool's own lifecycle.
func (p *Pipeline) Restore(ctx context.Context, shop, objectID, artifactID, currentWinePrefix string) error {
	f, err := p.client.GetFile(ctx, artifactID)
	if err != nil {
		return err
	}

	// A corrupt description degrades to empty metadata; the restore
	// proceeds with best-effort path mapping.
	meta := ParseMetadata(f.Description)

	archivePath := filepath.Join(p.stagingRoot,
		fmt.Sprintf("restore-%s-%s.tar.gz", gameFingerprint(shop, objectID), uuid.NewString()))

	defer removeQuietly(archivePath, p.logger)

	if err := p.downloadArchive(ctx, artifactID, archivePath); err != nil {
		return err
	}

	stagingDir := p.packager.StagingDir(shop, objectID)

	if err := os.RemoveAll(stagingDir); err != nil {
		return fmt.Errorf("backup: clearing staging directory: %w", err)
	}

	if err := os.MkdirAll(stagingDir, 0o755); err != nil {
		return fmt.Errorf("backup: creating staging directory: %w", err)
	}

	if err := extractArchive(archivePath, stagingDir); err != nil {
		return err
	}

	err = p.tool.Restore(ctx, stagingDir, objectID, meta.HomeDir, currentWinePrefix, meta.WinePrefixPath)
	if err != nil {
		return fmt.Errorf("backup: restoring save data: %w", err)
	}

	p.notifier.Emit(downloadCompleteEvent(objectID, shop))

	p.logger.Info("backup restored",
		slog.String("shop", shop),
		slog.String("object_id", objectID),
		slog.String("artifact_id", artifactID),
	)

	return nil
}

// downloadArchive streams the artifact content to a fresh local file.
func (p *Pipeline) downloadArchive(ctx context.Context, artifactID, archivePath string) error {
	if err := os.MkdirAll(filepath.Dir(archivePath), 0o755); err != nil {
		return fmt.Errorf("backup: creating staging root: %w", err)
	}

	out, err := os.Create(archivePath)
	if err != nil {
		return fmt.Errorf("backup: creating local archive: %w", err)
	}

	if _, err := p.client.GetFileContent(ctx, artifactID, out); err != nil {
		out.Close()
		return err
	}

	if err := out.Close(); err != nil {
		return fmt.Errorf("backup: closing local archive: %w", err)
	}

	return nil
}
