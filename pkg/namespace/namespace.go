// Package namespace defines the record types of the per-chat virtual
// filesystem: users, directories, files, and the tagged Entry union over the
// two node kinds.
package namespace

import "time"

// User is the owner of one namespace tree. One User exists per external chat
// identity; it is created lazily on first contact and never deleted.
type User struct {
	ID        string
	ChatID    string
	Settings  map[string]any
	CreatedAt time.Time
}

// Directory is a tree node. The root directory has an empty name and a nil
// ParentID; every other directory has both.
type Directory struct {
	ID        string
	Name      string
	UserID    string
	ParentID  *string
	CreatedAt time.Time
}

// Root reports whether this directory is a user's root.
func (d *Directory) Root() bool {
	return d.ParentID == nil
}

// File is a leaf node. PayloadRef is the chat message id the stored content
// can be re-sent from; Metadata carries the original message descriptor.
type File struct {
	ID          string
	Name        string
	UserID      string
	DirectoryID string
	PayloadRef  string
	Metadata    map[string]any
	CreatedAt   time.Time
}

// Kind discriminates the two node kinds of an Entry.
type Kind int

const (
	KindDirectory Kind = iota
	KindFile
)

func (k Kind) String() string {
	switch k {
	case KindDirectory:
		return "directory"
	case KindFile:
		return "file"
	}
	return "unknown"
}

// Entry is the tagged union over Directory and File. Exactly one of the two
// pointers is set, matching Kind. Cross-kind operations switch on Kind so
// both arms are always handled.
type Entry struct {
	Kind      Kind
	Directory *Directory
	File      *File
}

// DirEntry wraps a directory as an Entry.
func DirEntry(d *Directory) Entry {
	return Entry{Kind: KindDirectory, Directory: d}
}

// FileEntry wraps a file as an Entry.
func FileEntry(f *File) Entry {
	return Entry{Kind: KindFile, File: f}
}

// ID returns the wrapped node's id.
func (e Entry) ID() string {
	switch e.Kind {
	case KindDirectory:
		return e.Directory.ID
	case KindFile:
		return e.File.ID
	}
	return ""
}

// Name returns the wrapped node's name.
func (e Entry) Name() string {
	switch e.Kind {
	case KindDirectory:
		return e.Directory.Name
	case KindFile:
		return e.File.Name
	}
	return ""
}

// ParentID returns the id of the directory containing this entry. It is nil
// only for the root directory.
func (e Entry) ParentID() *string {
	switch e.Kind {
	case KindDirectory:
		return e.Directory.ParentID
	case KindFile:
		return &e.File.DirectoryID
	}
	return nil
}
