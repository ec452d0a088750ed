// Package eventstream publishes namespace mutation audit events to an event
// stream backend. Publishing is best effort: the session layer logs failures
// and never fails a chat interaction over them.
package eventstream

import "context"

// Publisher publishes entry events to an event stream backend.
type Publisher interface {
	PublishEntry(ctx context.Context, event *EntryEvent) error
	Close() error
}
