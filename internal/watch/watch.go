// Package watch implements automatic backups: it monitors configured save
// directories with fsnotify and triggers an upload after writes settle.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/errgroup"

	"github.com/abrahampo1/savecloud/internal/backup"
)

// Uploader triggers a backup for a game. Satisfied by *backup.Service.
type Uploader interface {
	UploadSaveGame(ctx context.Context, shop, objectID string, opts backup.PackOptions) (*backup.Artifact, error)
}

// Target is one watched save directory and the game identity its changes
// back up.
type Target struct {
	Shop       string
	ObjectID   string
	Path       string
	WinePrefix string
	Debounce   time.Duration
}

// Watcher runs one filesystem watch loop per target and uploads a backup
// when a target's directory has been quiet for its debounce interval.
type Watcher struct {
	uploader Uploader
	logger   *slog.Logger
}

// New creates a Watcher.
func New(uploader Uploader, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}

	return &Watcher{uploader: uploader, logger: logger}
}

// Run watches all targets until ctx is cancelled. One failing watch loop
// stops the rest; upload failures are logged and the loop keeps watching.
func (w *Watcher) Run(ctx context.Context, targets []Target) error {
	if len(targets) == 0 {
		return nil
	}

	g, ctx := errgroup.WithContext(ctx)

	for i := range targets {
		target := targets[i]

		g.Go(func() error {
			return w.watchTarget(ctx, target)
		})
	}

	return g.Wait()
}

func (w *Watcher) watchTarget(ctx context.Context, target Target) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: creating watcher for %s: %w", target.Path, err)
	}
	defer watcher.Close()

	if err := addRecursive(watcher, target.Path); err != nil {
		return fmt.Errorf("watch: %w", err)
	}

	w.logger.Info("watching save directory",
		slog.String("shop", target.Shop),
		slog.String("objectID", target.ObjectID),
		slog.String("path", target.Path),
	)

	// The debounce timer starts stopped; the first relevant event arms it.
	timer := time.NewTimer(target.Debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case fsEvent, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if !w.handleFsEvent(fsEvent, watcher) {
				continue
			}

			timer.Reset(target.Debounce)

		case watchErr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}

			w.logger.Warn("filesystem watcher error",
				slog.String("path", target.Path),
				slog.String("error", watchErr.Error()),
			)

		case <-timer.C:
			w.backup(ctx, target)
		}
	}
}

// handleFsEvent reports whether the event should reset the debounce timer.
// Newly created directories are added to the watch so nested save files
// keep triggering backups.
func (w *Watcher) handleFsEvent(fsEvent fsnotify.Event, watcher *fsnotify.Watcher) bool {
	// Ignore chmod events — mode changes don't alter save data.
	if fsEvent.Has(fsnotify.Chmod) && !fsEvent.Has(fsnotify.Create) && !fsEvent.Has(fsnotify.Write) {
		return false
	}

	if fsEvent.Has(fsnotify.Create) {
		if info, err := os.Stat(fsEvent.Name); err == nil && info.IsDir() {
			if addErr := watcher.Add(fsEvent.Name); addErr != nil {
				w.logger.Warn("failed to add watch on new directory",
					slog.String("path", fsEvent.Name), slog.String("error", addErr.Error()))
			}
		}
	}

	return true
}

func (w *Watcher) backup(ctx context.Context, target Target) {
	w.logger.Info("save directory settled, backing up",
		slog.String("shop", target.Shop),
		slog.String("objectID", target.ObjectID),
	)

	artifact, err := w.uploader.UploadSaveGame(ctx, target.Shop, target.ObjectID, backup.PackOptions{
		WinePrefix: target.WinePrefix,
	})
	if err != nil {
		w.logger.Error("automatic backup failed",
			slog.String("shop", target.Shop),
			slog.String("objectID", target.ObjectID),
			slog.String("error", err.Error()),
		)

		return
	}

	w.logger.Info("automatic backup complete",
		slog.String("name", artifact.Name),
		slog.Int64("sizeBytes", artifact.SizeBytes),
	)
}

// addRecursive registers the directory and all its subdirectories with the
// watcher. fsnotify watches are not recursive on any supported platform.
func addRecursive(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if !d.IsDir() {
			return nil
		}

		if addErr := watcher.Add(path); addErr != nil {
			return fmt.Errorf("adding watch on %s: %w", path, addErr)
		}

		return nil
	})
}
