// Package inmemory provides an in-memory storage driver used by tests and
// by serve when no database is configured.
package inmemory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fileybot/filey/pkg/namespace"
	"github.com/fileybot/filey/pkg/storage"
)

// Driver implements storage.Store with process-local maps. Listing order is
// insertion order, so pagination windows stay stable between calls.
type Driver struct {
	mu        sync.RWMutex
	users     map[string]*namespace.User
	dirs      map[string]*namespace.Directory
	files     map[string]*namespace.File
	dirOrder  []string
	fileOrder []string
}

// NewDriver creates an empty in-memory store.
func NewDriver() *Driver {
	return &Driver{
		users: make(map[string]*namespace.User),
		dirs:  make(map[string]*namespace.Directory),
		files: make(map[string]*namespace.File),
	}
}

// FindUserByChatID looks a user up by external chat identity.
func (d *Driver) FindUserByChatID(_ context.Context, chatID string) (*namespace.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	for _, u := range d.users {
		if u.ChatID == chatID {
			return copyUser(u), nil
		}
	}

	return nil, storage.NotFoundError{Kind: "user", Ref: chatID}
}

// CreateUser inserts a user record with empty settings.
func (d *Driver) CreateUser(_ context.Context, chatID string) (*namespace.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	u := &namespace.User{
		ID:        uuid.NewString(),
		ChatID:    chatID,
		Settings:  map[string]any{},
		CreatedAt: time.Now().UTC(),
	}
	d.users[u.ID] = u

	return copyUser(u), nil
}

// GetUser fetches a user by internal id.
func (d *Driver) GetUser(_ context.Context, id string) (*namespace.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	u, ok := d.users[id]
	if !ok {
		return nil, storage.NotFoundError{Kind: "user", Ref: id}
	}

	return copyUser(u), nil
}

// UpdateUserSettings replaces the user's settings blob.
func (d *Driver) UpdateUserSettings(_ context.Context, id string, settings map[string]any) (*namespace.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	u, ok := d.users[id]
	if !ok {
		return nil, storage.NotFoundError{Kind: "user", Ref: id}
	}
	u.Settings = copyBlob(settings)

	return copyUser(u), nil
}

// GetDirectory fetches a directory by id, scoped to the user.
func (d *Driver) GetDirectory(_ context.Context, userID, id string) (*namespace.Directory, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	dir, ok := d.dirs[id]
	if !ok || dir.UserID != userID {
		return nil, storage.NotFoundError{Kind: "directory", Ref: id}
	}

	return copyDir(dir), nil
}

// FindRootDirectory fetches the user's root (empty name, no parent).
func (d *Driver) FindRootDirectory(_ context.Context, userID string) (*namespace.Directory, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	for _, id := range d.dirOrder {
		dir := d.dirs[id]
		if dir.UserID == userID && dir.ParentID == nil && dir.Name == "" {
			return copyDir(dir), nil
		}
	}

	return nil, storage.NotFoundError{Kind: "directory", Ref: "root"}
}

// FindDirectoryByName fetches the child directory with the given name.
func (d *Driver) FindDirectoryByName(_ context.Context, userID, parentID, name string) (*namespace.Directory, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	for _, id := range d.dirOrder {
		dir := d.dirs[id]
		if dir.UserID == userID && dir.ParentID != nil && *dir.ParentID == parentID && dir.Name == name {
			return copyDir(dir), nil
		}
	}

	return nil, storage.NotFoundError{Kind: "directory", Ref: name}
}

// ListDirectories returns the child directories of a directory in insertion
// order.
func (d *Driver) ListDirectories(_ context.Context, userID, parentID string) ([]*namespace.Directory, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var dirs []*namespace.Directory
	for _, id := range d.dirOrder {
		dir := d.dirs[id]
		if dir.UserID == userID && dir.ParentID != nil && *dir.ParentID == parentID {
			dirs = append(dirs, copyDir(dir))
		}
	}

	return dirs, nil
}

// CreateDirectory inserts a directory. A nil parentID with an empty name
// creates a user's root.
func (d *Driver) CreateDirectory(_ context.Context, userID string, parentID *string, name string) (*namespace.Directory, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	dir := &namespace.Directory{
		ID:        uuid.NewString(),
		Name:      name,
		UserID:    userID,
		ParentID:  copyID(parentID),
		CreatedAt: time.Now().UTC(),
	}
	d.dirs[dir.ID] = dir
	d.dirOrder = append(d.dirOrder, dir.ID)

	return copyDir(dir), nil
}

// RenameDirectory updates a directory's name in place.
func (d *Driver) RenameDirectory(_ context.Context, userID, id, name string) (*namespace.Directory, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	dir, ok := d.dirs[id]
	if !ok || dir.UserID != userID {
		return nil, storage.NotFoundError{Kind: "directory", Ref: id}
	}
	dir.Name = name

	return copyDir(dir), nil
}

// DeleteDirectoryTree removes a directory and all of its descendants.
func (d *Driver) DeleteDirectoryTree(_ context.Context, userID, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	root, ok := d.dirs[id]
	if !ok || root.UserID != userID {
		return storage.NotFoundError{Kind: "directory", Ref: id}
	}

	doomed := map[string]bool{id: true}
	// Walk in insertion order; parents always precede their children, so one
	// pass marks the whole subtree.
	for _, did := range d.dirOrder {
		dir := d.dirs[did]
		if dir.ParentID != nil && doomed[*dir.ParentID] {
			doomed[did] = true
		}
	}

	for did := range doomed {
		delete(d.dirs, did)
	}
	d.dirOrder = compact(d.dirOrder, func(did string) bool { return doomed[did] })

	removedFiles := map[string]bool{}
	for _, fid := range d.fileOrder {
		if doomed[d.files[fid].DirectoryID] {
			removedFiles[fid] = true
			delete(d.files, fid)
		}
	}
	d.fileOrder = compact(d.fileOrder, func(fid string) bool { return removedFiles[fid] })

	return nil
}

// GetFile fetches a file by id, scoped to the user.
func (d *Driver) GetFile(_ context.Context, userID, id string) (*namespace.File, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	f, ok := d.files[id]
	if !ok || f.UserID != userID {
		return nil, storage.NotFoundError{Kind: "file", Ref: id}
	}

	return copyFile(f), nil
}

// FindFileByName fetches the file with the given name inside a directory.
func (d *Driver) FindFileByName(_ context.Context, userID, directoryID, name string) (*namespace.File, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	for _, id := range d.fileOrder {
		f := d.files[id]
		if f.UserID == userID && f.DirectoryID == directoryID && f.Name == name {
			return copyFile(f), nil
		}
	}

	return nil, storage.NotFoundError{Kind: "file", Ref: name}
}

// ListFiles returns the files inside a directory in insertion order.
func (d *Driver) ListFiles(_ context.Context, userID, directoryID string) ([]*namespace.File, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var files []*namespace.File
	for _, id := range d.fileOrder {
		f := d.files[id]
		if f.UserID == userID && f.DirectoryID == directoryID {
			files = append(files, copyFile(f))
		}
	}

	return files, nil
}

// CreateFile inserts a file record, assigning its id and creation time.
func (d *Driver) CreateFile(_ context.Context, file *namespace.File) (*namespace.File, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	f := copyFile(file)
	f.ID = uuid.NewString()
	f.CreatedAt = time.Now().UTC()
	d.files[f.ID] = f
	d.fileOrder = append(d.fileOrder, f.ID)

	return copyFile(f), nil
}

// RenameFile updates a file's name in place.
func (d *Driver) RenameFile(_ context.Context, userID, id, name string) (*namespace.File, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	f, ok := d.files[id]
	if !ok || f.UserID != userID {
		return nil, storage.NotFoundError{Kind: "file", Ref: id}
	}
	f.Name = name

	return copyFile(f), nil
}

// DeleteFile removes a single file.
func (d *Driver) DeleteFile(_ context.Context, userID, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	f, ok := d.files[id]
	if !ok || f.UserID != userID {
		return storage.NotFoundError{Kind: "file", Ref: id}
	}
	delete(d.files, id)
	d.fileOrder = compact(d.fileOrder, func(fid string) bool { return fid == id })

	return nil
}

// Close is a no-op.
func (d *Driver) Close() error {
	return nil
}

func copyUser(u *namespace.User) *namespace.User {
	c := *u
	c.Settings = copyBlob(u.Settings)
	return &c
}

func copyDir(dir *namespace.Directory) *namespace.Directory {
	c := *dir
	c.ParentID = copyID(dir.ParentID)
	return &c
}

func copyFile(f *namespace.File) *namespace.File {
	c := *f
	c.Metadata = copyBlob(f.Metadata)
	return &c
}

func copyID(id *string) *string {
	if id == nil {
		return nil
	}
	c := *id
	return &c
}

func copyBlob(m map[string]any) map[string]any {
	c := make(map[string]any, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}

func compact(ids []string, drop func(string) bool) []string {
	kept := ids[:0]
	for _, id := range ids {
		if !drop(id) {
			kept = append(kept, id)
		}
	}
	return kept
}
