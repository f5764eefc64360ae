package backup

import (
	"context"
	"log/slog"
	"sort"

	"github.com/abrahampo1/savecloud/internal/remote"
)

// Catalog lists and deletes a game's remote backups.
type Catalog struct {
	client   remote.Client
	resolver *Resolver
	logger   *slog.Logger
}

// NewCatalog creates a Catalog.
func NewCatalog(client remote.Client, resolver *Resolver, logger *slog.Logger) *Catalog {
	if logger == nil {
		logger = slog.Default()
	}

	return &Catalog{client: client, resolver: resolver, logger: logger}
}

// List returns the game's backups, newest first. A corrupt metadata
// description never fails the listing: the embedded shop and objectID fall
// back to the caller-supplied values and the label reads as empty.
func (c *Catalog) List(ctx context.Context, shop, objectID string) ([]Artifact, error) {
	folderID, err := c.resolver.Resolve(ctx)
	if err != nil {
		return nil, err
	}

	files, err := c.client.ListFiles(ctx, remote.ListQuery{
		NameContains: gameFingerprint(shop, objectID),
		ParentID:     folderID,
	})
	if err != nil {
		return nil, err
	}

	out := make([]Artifact, 0, len(files))

	for _, f := range files {
		meta := ParseMetadata(f.Description)
		if meta.Shop == "" {
			meta.Shop = shop
		}

		if meta.ObjectID == "" {
			meta.ObjectID = objectID
		}

		out = append(out, Artifact{
			ID:         f.ID,
			Name:       f.Name,
			SizeBytes:  f.Size,
			CreatedAt:  f.CreatedAt,
			ModifiedAt: f.ModifiedAt,
			Metadata:   meta,
		})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })

	return out, nil
}

// Delete removes the artifact remotely. Provider errors propagate
// untouched — there is no soft-delete at this layer.
func (c *Catalog) Delete(ctx context.Context, artifactID string) error {
	c.logger.Info("deleting backup", slog.String("artifact_id", artifactID))

	return c.client.DeleteFile(ctx, artifactID)
}
