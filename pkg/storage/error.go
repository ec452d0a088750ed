package storage

import "errors"

// NotFoundError is returned when a record doesn't exist in the store, or is
// owned by a different user.
type NotFoundError struct {
	Kind string
	Ref  string
}

func (e NotFoundError) Error() string {
	if e.Ref == "" {
		return e.Kind + " not found"
	}

	return e.Kind + " not found: " + e.Ref
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nf NotFoundError
	return errors.As(err, &nf)
}
