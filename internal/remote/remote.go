// Package remote defines the interface every storage provider implements,
// plus the provider-neutral file and query types. Backends live in their own
// packages (internal/drive, internal/s3store) and assert conformance at
// compile time.
package remote

import (
	"context"
	"io"
	"time"
)

// File describes a remote artifact or folder as reported by a provider.
type File struct {
	// ID is the provider-assigned opaque identifier.
	ID string
	// Name is the remote file name.
	Name string
	// Size is the content size in bytes (zero for folders).
	Size int64
	// Description is the free-text description attached to the file.
	// Backup metadata is JSON-encoded here.
	Description string
	// CreatedAt and ModifiedAt are provider timestamps.
	CreatedAt  time.Time
	ModifiedAt time.Time
	// IsFolder reports whether the entry is a folder.
	IsFolder bool
}

// ListQuery narrows a ListFiles call. Zero-valued fields are not applied.
// Trashed entries are never returned.
type ListQuery struct {
	// Name matches the exact file name.
	Name string
	// NameContains matches file names containing the substring.
	NameContains string
	// ParentID restricts results to children of the given folder.
	ParentID string
	// OnlyFolders restricts results to folders.
	OnlyFolders bool
}

// Client is the storage provider interface the backup engine depends on.
type Client interface {
	// ListFiles returns non-trashed files matching the query,
	// newest-created first.
	ListFiles(ctx context.Context, q ListQuery) ([]File, error)

	// CreateFile uploads content as a new file under parentID with the given
	// description attached, and returns the created file.
	CreateFile(ctx context.Context, name, parentID, description string, content io.Reader) (*File, error)

	// GetFile fetches a file's metadata (including its description) by ID.
	GetFile(ctx context.Context, id string) (*File, error)

	// GetFileContent streams the file's content to w and returns the number
	// of bytes written.
	GetFileContent(ctx context.Context, id string, w io.Writer) (int64, error)

	// DeleteFile removes the file. Provider errors propagate untouched.
	DeleteFile(ctx context.Context, id string) error

	// CreateFolder creates a folder with the given name and returns it.
	CreateFolder(ctx context.Context, name string) (*File, error)
}
