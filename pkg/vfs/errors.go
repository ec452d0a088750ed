package vfs

// The error set below is closed and fully recoverable: the session layer
// translates each into a chat reply and keeps going. Anything else bubbling
// out of a Filesystem method is a store failure and fatal for that event.

// DirectoryNotFoundError is returned when a named child directory doesn't
// exist in the current directory.
type DirectoryNotFoundError struct {
	Name string
}

func (e DirectoryNotFoundError) Error() string {
	return "directory does not exist: " + e.Name
}

// NotFoundError is returned when neither a file nor a directory with the
// given name exists.
type NotFoundError struct {
	Name string
}

func (e NotFoundError) Error() string {
	return "no file or directory named: " + e.Name
}

// DirectoryExistsError is returned when a sibling directory already uses the
// name.
type DirectoryExistsError struct {
	Name string
}

func (e DirectoryExistsError) Error() string {
	return "a directory with this name already exists: " + e.Name
}

// FileExistsError is returned when a sibling file already uses the name.
type FileExistsError struct {
	Name string
}

func (e FileExistsError) Error() string {
	return "a file with this name already exists: " + e.Name
}

// ForbiddenNameError is returned for reserved names like the ".." parent
// token.
type ForbiddenNameError struct {
	Name string
}

func (e ForbiddenNameError) Error() string {
	return "forbidden name: " + e.Name
}
