// Package storage defines the persistence boundary the filesystem core
// consumes: typed find/create/update/delete operations over users,
// directories, and files, plus the cascading directory-tree delete.
package storage

import (
	"context"

	"github.com/fileybot/filey/pkg/namespace"
)

// Store is the interface every storage driver implements. All lookups are
// scoped to a user id so one user can never resolve another user's records.
// Absent records are reported with NotFoundError.
type Store interface {
	// Users
	FindUserByChatID(ctx context.Context, chatID string) (*namespace.User, error)
	CreateUser(ctx context.Context, chatID string) (*namespace.User, error)
	GetUser(ctx context.Context, id string) (*namespace.User, error)
	UpdateUserSettings(ctx context.Context, id string, settings map[string]any) (*namespace.User, error)

	// Directories
	GetDirectory(ctx context.Context, userID, id string) (*namespace.Directory, error)
	FindRootDirectory(ctx context.Context, userID string) (*namespace.Directory, error)
	FindDirectoryByName(ctx context.Context, userID, parentID, name string) (*namespace.Directory, error)
	ListDirectories(ctx context.Context, userID, parentID string) ([]*namespace.Directory, error)
	CreateDirectory(ctx context.Context, userID string, parentID *string, name string) (*namespace.Directory, error)
	RenameDirectory(ctx context.Context, userID, id, name string) (*namespace.Directory, error)

	// DeleteDirectoryTree removes a directory and every descendant directory
	// and file in one transaction. Partial cascades must never be observable.
	DeleteDirectoryTree(ctx context.Context, userID, id string) error

	// Files
	GetFile(ctx context.Context, userID, id string) (*namespace.File, error)
	FindFileByName(ctx context.Context, userID, directoryID, name string) (*namespace.File, error)
	ListFiles(ctx context.Context, userID, directoryID string) ([]*namespace.File, error)
	CreateFile(ctx context.Context, file *namespace.File) (*namespace.File, error)
	RenameFile(ctx context.Context, userID, id, name string) (*namespace.File, error)
	DeleteFile(ctx context.Context, userID, id string) error

	Close() error
}
