package backup

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/abrahampo1/savecloud/internal/remote"
)

// Resolver finds-or-creates the single remote folder holding all backups
// and memoizes its handle for the process lifetime. The query-then-create
// pattern means two cold-starting processes can still race and create two
// folders; within one process singleflight collapses concurrent first
// resolutions into a single network round trip.
type Resolver struct {
	client remote.Client
	name   string
	logger *slog.Logger

	group singleflight.Group

	mu     sync.Mutex
	cached string
}

// NewResolver creates a Resolver for the given well-known folder name.
func NewResolver(client remote.Client, name string, logger *slog.Logger) *Resolver {
	if name == "" {
		name = DefaultFolderName
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Resolver{client: client, name: name, logger: logger}
}

// Resolve returns the backup folder handle, serving repeat calls from the
// in-memory cache without a network call.
func (r *Resolver) Resolve(ctx context.Context) (string, error) {
	r.mu.Lock()
	cached := r.cached
	r.mu.Unlock()

	if cached != "" {
		return cached, nil
	}

	id, err, _ := r.group.Do("resolve", func() (any, error) {
		return r.resolveRemote(ctx)
	})
	if err != nil {
		return "", err
	}

	return id.(string), nil
}

// resolveRemote queries for a non-trashed folder with the well-known name,
// creating it when absent, and caches the result.
func (r *Resolver) resolveRemote(ctx context.Context) (string, error) {
	// A concurrent caller may have populated the cache while we waited.
	r.mu.Lock()
	if r.cached != "" {
		cached := r.cached
		r.mu.Unlock()

		return cached, nil
	}
	r.mu.Unlock()

	folders, err := r.client.ListFiles(ctx, remote.ListQuery{Name: r.name, OnlyFolders: true})
	if err != nil {
		return "", err
	}

	var id string

	if len(folders) > 0 {
		id = folders[0].ID
		r.logger.Debug("found existing backup folder", slog.String("id", id))
	} else {
		created, createErr := r.client.CreateFolder(ctx, r.name)
		if createErr != nil {
			return "", createErr
		}

		id = created.ID
		r.logger.Info("created backup folder",
			slog.String("name", r.name),
			slog.String("id", id),
		)
	}

	r.mu.Lock()
	r.cached = id
	r.mu.Unlock()

	return id, nil
}

// Invalidate drops the cached handle. Called on disconnect.
func (r *Resolver) Invalidate() {
	r.mu.Lock()
	r.cached = ""
	r.mu.Unlock()
}
