package backup

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/user"
	"path/filepath"
	"runtime"
	"time"
)

// CaptureTool is the save-data capture tool contract. Defined at the
// consumer; internal/ludusavi provides the real implementation.
type CaptureTool interface {
	Capture(ctx context.Context, shop, objectID, destDir, winePrefix string) error
	Restore(ctx context.Context, srcDir, objectID, homeDirMapping, currentPrefix, recordedPrefix string) error
}

// Notifier is the fire-and-forget UI notification channel.
type Notifier interface {
	Emit(name string)
}

// PackOptions carries the optional inputs of a pack operation.
type PackOptions struct {
	// WinePrefix is the compatibility-layer prefix the game runs under,
	// empty for native installs.
	WinePrefix string
	// DownloadOptionTitle is an optional human-readable title recorded in
	// the metadata.
	DownloadOptionTitle string
	// Label is an optional user-assigned backup label.
	Label string
}

// Packager invokes the capture tool, stages its output, and produces a
// single portable archive plus a metadata record. It never talks to the
// network.
type Packager struct {
	tool        CaptureTool
	stagingRoot string
	logger      *slog.Logger
}

// NewPackager creates a Packager staging under stagingRoot.
func NewPackager(tool CaptureTool, stagingRoot string, logger *slog.Logger) *Packager {
	if logger == nil {
		logger = slog.Default()
	}

	return &Packager{tool: tool, stagingRoot: stagingRoot, logger: logger}
}

// StagingDir returns the staging directory for a (shop, objectID) pair.
// Concurrent operations on the same pair share this path and are not
// serialized here — callers serialize per-game operations externally.
func (p *Packager) StagingDir(shop, objectID string) string {
	return filepath.Join(p.stagingRoot, gameFingerprint(shop, objectID))
}

// Pack captures the game's save data into a fresh staging directory and
// archives it. Returns the archive path and the assembled metadata record.
func (p *Packager) Pack(ctx context.Context, shop, objectID string, opts PackOptions) (string, Metadata, error) {
	stagingDir := p.StagingDir(shop, objectID)

	// Stale staging from an earlier attempt is removed best-effort; a
	// leftover directory is non-fatal and capture overwrites its contents.
	if err := os.RemoveAll(stagingDir); err != nil {
		p.logger.Warn("removing stale staging directory failed, proceeding",
			slog.String("path", stagingDir),
			slog.String("error", err.Error()),
		)
	}

	if err := os.MkdirAll(stagingDir, 0o755); err != nil {
		return "", Metadata{}, fmt.Errorf("backup: creating staging directory: %w", err)
	}

	if err := p.tool.Capture(ctx, shop, objectID, stagingDir, opts.WinePrefix); err != nil {
		return "", Metadata{}, fmt.Errorf("backup: capturing save data: %w", err)
	}

	stamp := time.Now().UTC().Format("20060102T150405Z")
	archivePath := filepath.Join(p.stagingRoot, artifactName(shop, objectID, stamp))

	if err := packDir(stagingDir, archivePath); err != nil {
		return "", Metadata{}, err
	}

	meta := p.buildMetadata(shop, objectID, opts)

	p.logger.Info("packed save data",
		slog.String("shop", shop),
		slog.String("object_id", objectID),
		slog.String("archive", archivePath),
	)

	return archivePath, meta, nil
}

// buildMetadata assembles the provenance record for a new backup.
func (p *Packager) buildMetadata(shop, objectID string, opts PackOptions) Metadata {
	hostname, err := os.Hostname()
	if err != nil {
		p.logger.Warn("hostname lookup failed", slog.String("error", err.Error()))
	}

	meta := Metadata{
		Shop:                shop,
		ObjectID:            objectID,
		Hostname:            hostname,
		Platform:            runtime.GOOS,
		DownloadOptionTitle: opts.DownloadOptionTitle,
		Label:               opts.Label,
	}

	if opts.WinePrefix != "" {
		realPrefix := resolveRealPath(opts.WinePrefix)
		meta.WinePrefixPath = realPrefix
		meta.HomeDir = compatHomeDir(realPrefix)
	}

	return meta
}

// compatHomeDir computes how the compatibility-layer prefix maps to a
// conventional user-profile path.
func compatHomeDir(winePrefix string) string {
	username := "steamuser"
	if u, err := user.Current(); err == nil && u.Username != "" {
		username = u.Username
	}

	return filepath.ToSlash(filepath.Join(winePrefix, "drive_c", "users", username))
}

// resolveRealPath resolves symlinks, falling back to the raw path.
func resolveRealPath(path string) string {
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		return path
	}

	return resolved
}

// removeQuietly deletes a path on a cleanup-only path: failures are logged,
// never raised, so a stuck temp file cannot fail the overall operation.
func removeQuietly(path string, logger *slog.Logger) {
	if path == "" {
		return
	}

	if err := os.RemoveAll(path); err != nil {
		logger.Warn("cleanup failed",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
	}
}
