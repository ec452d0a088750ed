package eventstream

import (
	"time"

	"github.com/google/uuid"

	"github.com/fileybot/filey/pkg/namespace"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeEntryCreated is emitted after a directory or file is created.
	EventTypeEntryCreated = "filey.entry.created"

	// EventTypeEntryRemoved is emitted after a directory (and its subtree) or
	// a file is removed.
	EventTypeEntryRemoved = "filey.entry.removed"

	// EventTypeEntryRenamed is emitted after a rename.
	EventTypeEntryRenamed = "filey.entry.renamed"
)

// EntryEvent is a transport-neutral audit event for one namespace mutation.
type EntryEvent struct {
	SchemaVersion int       `json:"schema_version"`
	EventType     string    `json:"event_type"`
	EventID       string    `json:"event_id"`
	EmittedAt     time.Time `json:"emitted_at"`
	ChatID        string    `json:"chat_id"`
	UserID        string    `json:"user_id"`
	Kind          string    `json:"kind"`
	Name          string    `json:"name"`
	NewName       string    `json:"new_name,omitempty"`
	Path          string    `json:"path"`
}

// NewEntryEvent builds an event for a mutation of the given kind at the given
// working path.
func NewEntryEvent(eventType, chatID, userID string, kind namespace.Kind, name, path string) *EntryEvent {
	return &EntryEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     eventType,
		EventID:       uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		ChatID:        chatID,
		UserID:        userID,
		Kind:          kind.String(),
		Name:          name,
		Path:          path,
	}
}
