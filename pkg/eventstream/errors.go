package eventstream

import "errors"

// ErrNilEntryEvent indicates a nil entry event payload was provided to a
// publisher.
var ErrNilEntryEvent = errors.New("nil entry event")
