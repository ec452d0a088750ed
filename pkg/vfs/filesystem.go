// Package vfs implements the per-chat virtual filesystem engine: the working
// path, path resolution, and every mutating operation over the directory
// tree. Persistence is delegated to a storage.Store; the engine itself only
// holds the owner's working path in memory.
package vfs

import (
	"context"
	"strings"

	"github.com/fileybot/filey/pkg/namespace"
	"github.com/fileybot/filey/pkg/storage"
)

// ParentToken is the reserved name that navigates to the parent directory.
const ParentToken = ".."

// Filesystem is one user's view of their namespace tree. It is not safe for
// concurrent use; the session layer serializes access per chat.
type Filesystem struct {
	store storage.Store
	user  *namespace.User
	path  []*namespace.Directory
}

// Open finds or creates the user for the given chat identity and that user's
// root directory, and positions the working path at the root. It must
// complete before any other method is called.
func Open(ctx context.Context, store storage.Store, chatID string) (*Filesystem, error) {
	user, err := store.FindUserByChatID(ctx, chatID)
	if storage.IsNotFound(err) {
		user, err = store.CreateUser(ctx, chatID)
	}
	if err != nil {
		return nil, err
	}

	root, err := store.FindRootDirectory(ctx, user.ID)
	if storage.IsNotFound(err) {
		root, err = store.CreateDirectory(ctx, user.ID, nil, "")
	}
	if err != nil {
		return nil, err
	}

	return &Filesystem{
		store: store,
		user:  user,
		path:  []*namespace.Directory{root},
	}, nil
}

// User returns the owner record this filesystem was opened for.
func (f *Filesystem) User() *namespace.User {
	return f.user
}

// Current returns the working path's last element, the current directory.
func (f *Filesystem) Current() *namespace.Directory {
	return f.path[len(f.path)-1]
}

// Parent returns the current directory's parent, or the current directory
// itself at the root.
func (f *Filesystem) Parent() *namespace.Directory {
	if len(f.path) == 1 {
		return f.path[0]
	}

	return f.path[len(f.path)-2]
}

// Pwd renders the working path as a string: each element's name followed by
// a separator, root first. The root's empty name yields the leading slash.
func (f *Filesystem) Pwd() string {
	var b strings.Builder
	for _, dir := range f.path {
		b.WriteString(dir.Name)
		b.WriteString("/")
	}

	return b.String()
}

// Cd changes into the named child directory, or to the parent when name is
// the ".." token. At the root, ".." is a no-op.
func (f *Filesystem) Cd(ctx context.Context, name string) error {
	if name == ParentToken {
		f.CdUp()
		return nil
	}

	dir, err := f.store.FindDirectoryByName(ctx, f.user.ID, f.Current().ID, name)
	if storage.IsNotFound(err) {
		return DirectoryNotFoundError{Name: name}
	}
	if err != nil {
		return err
	}
	f.path = append(f.path, dir)

	return nil
}

// CdUp pops the working path's last element. No-op at the root.
func (f *Filesystem) CdUp() {
	if len(f.path) == 1 {
		return
	}
	f.path = f.path[:len(f.path)-1]
}

// CdByID jumps to a directory by id and rebuilds the whole working path by
// walking the parent chain back to the root. The target doesn't have to be a
// child of the current directory; buttons from old listings point anywhere
// in the tree.
func (f *Filesystem) CdByID(ctx context.Context, id string) error {
	dir, err := f.store.GetDirectory(ctx, f.user.ID, id)
	if storage.IsNotFound(err) {
		return DirectoryNotFoundError{Name: id}
	}
	if err != nil {
		return err
	}

	path := []*namespace.Directory{dir}
	for dir.ParentID != nil {
		dir, err = f.store.GetDirectory(ctx, f.user.ID, *dir.ParentID)
		if err != nil {
			return err
		}
		path = append([]*namespace.Directory{dir}, path...)
	}
	f.path = path

	return nil
}

// Mkdir creates a child directory in the current directory. Names must be
// unique across both kinds within a directory.
func (f *Filesystem) Mkdir(ctx context.Context, name string) error {
	if err := f.checkName(ctx, name); err != nil {
		return err
	}

	_, err := f.store.CreateDirectory(ctx, f.user.ID, &f.Current().ID, name)

	return err
}

// Touch creates a file in the current directory with the given payload
// reference and metadata. Collision rules are the same as Mkdir's.
func (f *Filesystem) Touch(ctx context.Context, name, payloadRef string, metadata map[string]any) error {
	if err := f.checkName(ctx, name); err != nil {
		return err
	}

	_, err := f.store.CreateFile(ctx, &namespace.File{
		Name:        name,
		UserID:      f.user.ID,
		DirectoryID: f.Current().ID,
		PayloadRef:  payloadRef,
		Metadata:    metadata,
	})

	return err
}

// checkName rejects the parent token and the empty string (only a root may
// have an empty name), and enforces cross-kind name uniqueness within the
// current directory.
func (f *Filesystem) checkName(ctx context.Context, name string) error {
	if name == "" || name == ParentToken {
		return ForbiddenNameError{Name: name}
	}

	if _, err := f.store.FindDirectoryByName(ctx, f.user.ID, f.Current().ID, name); err == nil {
		return DirectoryExistsError{Name: name}
	} else if !storage.IsNotFound(err) {
		return err
	}

	if _, err := f.store.FindFileByName(ctx, f.user.ID, f.Current().ID, name); err == nil {
		return FileExistsError{Name: name}
	} else if !storage.IsNotFound(err) {
		return err
	}

	return nil
}

// Rm removes the named file, or, when no file matches, the named directory
// together with all of its descendants. The directory cascade is a single
// store-level transaction.
func (f *Filesystem) Rm(ctx context.Context, name string) error {
	file, err := f.store.FindFileByName(ctx, f.user.ID, f.Current().ID, name)
	if err == nil {
		return f.store.DeleteFile(ctx, f.user.ID, file.ID)
	}
	if !storage.IsNotFound(err) {
		return err
	}

	dir, err := f.store.FindDirectoryByName(ctx, f.user.ID, f.Current().ID, name)
	if storage.IsNotFound(err) {
		return NotFoundError{Name: name}
	}
	if err != nil {
		return err
	}

	return f.store.DeleteDirectoryTree(ctx, f.user.ID, dir.ID)
}

// Ls lists the current directory: directories first, then files, each tagged
// with its kind. Order within each kind is store order, which is stable
// between consecutive calls.
func (f *Filesystem) Ls(ctx context.Context) ([]namespace.Entry, error) {
	dirs, err := f.store.ListDirectories(ctx, f.user.ID, f.Current().ID)
	if err != nil {
		return nil, err
	}

	files, err := f.store.ListFiles(ctx, f.user.ID, f.Current().ID)
	if err != nil {
		return nil, err
	}

	entries := make([]namespace.Entry, 0, len(dirs)+len(files))
	for _, dir := range dirs {
		entries = append(entries, namespace.DirEntry(dir))
	}
	for _, file := range files {
		entries = append(entries, namespace.FileEntry(file))
	}

	return entries, nil
}

// Rename gives the target entry a new name. The collision check is scoped to
// the target's own parent directory and, deliberately, to the target's own
// kind: a file may take the name of a sibling directory. The target may live
// anywhere in the tree, not just the current directory.
func (f *Filesystem) Rename(ctx context.Context, target namespace.Entry, newName string) error {
	if newName == "" || newName == ParentToken {
		return ForbiddenNameError{Name: newName}
	}

	switch target.Kind {
	case namespace.KindDirectory:
		if target.Directory.Root() {
			return ForbiddenNameError{Name: newName}
		}
		if _, err := f.store.FindDirectoryByName(ctx, f.user.ID, *target.Directory.ParentID, newName); err == nil {
			return DirectoryExistsError{Name: newName}
		} else if !storage.IsNotFound(err) {
			return err
		}

		_, err := f.store.RenameDirectory(ctx, f.user.ID, target.Directory.ID, newName)
		return err

	case namespace.KindFile:
		if _, err := f.store.FindFileByName(ctx, f.user.ID, target.File.DirectoryID, newName); err == nil {
			return FileExistsError{Name: newName}
		} else if !storage.IsNotFound(err) {
			return err
		}

		_, err := f.store.RenameFile(ctx, f.user.ID, target.File.ID, newName)
		return err
	}

	return ForbiddenNameError{Name: newName}
}

// File is an owner-scoped point lookup. A missing or foreign-owned id
// returns nil, not an error.
func (f *Filesystem) File(ctx context.Context, id string) (*namespace.File, error) {
	file, err := f.store.GetFile(ctx, f.user.ID, id)
	if storage.IsNotFound(err) {
		return nil, nil
	}

	return file, err
}

// Dir is the directory counterpart of File.
func (f *Filesystem) Dir(ctx context.Context, id string) (*namespace.Directory, error) {
	dir, err := f.store.GetDirectory(ctx, f.user.ID, id)
	if storage.IsNotFound(err) {
		return nil, nil
	}

	return dir, err
}

// Depth returns the working path length; 1 means the root.
func (f *Filesystem) Depth() int {
	return len(f.path)
}
