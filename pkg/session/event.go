package session

// EventKind classifies an inbound chat event.
type EventKind int

const (
	// EventStart is the first-contact greeting command.
	EventStart EventKind = iota

	// EventCommand is a named command with raw argument text.
	EventCommand

	// EventMessage is a free-form message, optionally carrying an attachment
	// descriptor.
	EventMessage

	// EventCallback is an encoded-action button press.
	EventCallback
)

// Attachment describes the file attached to a message, as declared by the
// transport.
type Attachment struct {
	FileName string
	MimeType string
}

// Event is one inbound chat interaction, already stripped of any transport
// specifics.
type Event struct {
	ChatID string
	Kind   EventKind

	// Command and Args are set for EventCommand.
	Command string
	Args    string

	// Text, MessageID, Attachment, and Metadata are set for EventMessage.
	// MessageID doubles as the payload reference for stored files; Metadata
	// is the raw message descriptor persisted alongside.
	Text       string
	MessageID  string
	Attachment *Attachment
	Metadata   map[string]any

	// CallbackData is set for EventCallback.
	CallbackData string
}

// Button is one labeled inline button carrying an encoded action.
type Button struct {
	Label string
	Data  string
}

// Render is one outbound reply: a text block, optionally a keyboard of
// encoded-action buttons, or a forward of a previously stored message.
type Render struct {
	Text     string
	Markdown bool
	Keyboard [][]Button

	// ForwardRef, when set, asks the transport to re-send the stored message
	// it references instead of sending Text.
	ForwardRef string
}
