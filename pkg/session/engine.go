package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/fileybot/filey/pkg/eventstream"
	"github.com/fileybot/filey/pkg/namespace"
	"github.com/fileybot/filey/pkg/settings"
	"github.com/fileybot/filey/pkg/storage"
	"github.com/fileybot/filey/pkg/vfs"
)

// DefaultPageSize is how many entries a listing page shows.
const DefaultPageSize = 10

const welcomeText = `Welcome to Filey (formerly FileX)!

I keep a private filesystem for this chat. Send me any message or file and I store it in the current directory.

Commands:
/ls — list the current directory
/mkdir <name> — create a directory
/toggle_list_options — show or hide the per-row rename and delete buttons
/cancel — abort a pending rename`

// Config tunes the engine.
type Config struct {
	// PageSize is entries per listing page; DefaultPageSize when zero.
	PageSize int

	// IdleTimeout evicts sessions idle that long; zero disables eviction.
	IdleTimeout time.Duration
}

// Engine drives the conversational protocol. It is safe for concurrent use;
// events for the same chat serialize on the chat's session.
type Engine struct {
	registry *Registry
	events   eventstream.Publisher
	log      *slog.Logger
	pageSize int
}

// NewEngine creates the protocol engine on top of a store and an audit event
// publisher.
func NewEngine(cfg Config, store storage.Store, events eventstream.Publisher, log *slog.Logger) *Engine {
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	return &Engine{
		registry: NewRegistry(store, cfg.IdleTimeout),
		events:   events,
		log:      log,
		pageSize: pageSize,
	}
}

// Sessions returns the live session count.
func (e *Engine) Sessions() int {
	return e.registry.Len()
}

// Close stops the registry janitor.
func (e *Engine) Close() {
	e.registry.Close()
}

// Handle processes one inbound event and returns the replies to deliver.
// User mistakes (bad names, stale buttons) come back as reply text; only
// store and infrastructure failures surface as errors.
func (e *Engine) Handle(ctx context.Context, ev Event) ([]Render, error) {
	if ev.ChatID == "" {
		return nil, errors.New("event without chat id")
	}

	sess := e.registry.Lookup(ev.ChatID)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if err := sess.init(ctx, e.registry.store); err != nil {
		return nil, fmt.Errorf("opening session for chat %s: %w", ev.ChatID, err)
	}

	switch ev.Kind {
	case EventStart:
		return []Render{{Text: welcomeText}}, nil
	case EventCommand:
		return e.handleCommand(ctx, sess, ev)
	case EventMessage:
		return e.handleMessage(ctx, sess, ev)
	case EventCallback:
		return e.handleCallback(ctx, sess, ev)
	}

	return nil, fmt.Errorf("unhandled event kind %d", ev.Kind)
}

func (e *Engine) handleCommand(ctx context.Context, sess *Session, ev Event) ([]Render, error) {
	switch ev.Command {
	case "ls":
		return e.renderListing(ctx, sess, 0, nil)

	case "mkdir":
		if ev.Args == "" {
			return []Render{{Text: "Usage: /mkdir <name>"}}, nil
		}
		if err := sess.fs.Mkdir(ctx, ev.Args); err != nil {
			return e.replyError(err)
		}
		e.publish(ctx, sess, eventstream.EventTypeEntryCreated, namespace.KindDirectory, ev.Args, "")

		return e.renderListing(ctx, sess, 0, nil)

	case "toggle_list_options":
		return e.toggleListOptions(ctx, sess)

	case "cancel":
		if sess.renaming == nil {
			return []Render{{Text: "Nothing to cancel."}}, nil
		}
		sess.renaming = nil

		return e.renderListing(ctx, sess, 0, []Render{{Text: "Rename cancelled."}})
	}

	return []Render{{Text: "Unknown command. Try /ls."}}, nil
}

func (e *Engine) toggleListOptions(ctx context.Context, sess *Session) ([]Render, error) {
	prefs, err := sess.prefs.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading settings: %w", err)
	}

	toggled := !prefs.ShowListOptions
	if err := sess.prefs.Set(ctx, settings.KeyShowListOptions, toggled); err != nil {
		return nil, fmt.Errorf("writing settings: %w", err)
	}

	state := "hidden"
	if toggled {
		state = "shown"
	}

	return e.renderListing(ctx, sess, 0, []Render{{Text: "List options are now " + state + "."}})
}

// handleMessage stores the message as a file in the current directory, unless
// a rename is pending, in which case the message text is consumed as the new
// name. Either way the session ends up idle again.
func (e *Engine) handleMessage(ctx context.Context, sess *Session, ev Event) ([]Render, error) {
	if sess.renaming != nil {
		return e.finishRename(ctx, sess, ev.Text)
	}

	name := ev.Text
	if ev.Attachment != nil && ev.Attachment.FileName != "" {
		name = ev.Attachment.FileName
	}
	if name == "" {
		name = ev.MessageID
	}

	if err := sess.fs.Touch(ctx, name, ev.MessageID, ev.Metadata); err != nil {
		return e.replyError(err)
	}
	e.publish(ctx, sess, eventstream.EventTypeEntryCreated, namespace.KindFile, name, "")

	return e.renderListing(ctx, sess, 0, nil)
}

// finishRename applies a pending rename. The pending marker is cleared no
// matter what happens; a failed rename doesn't leave the chat stuck waiting
// for names.
func (e *Engine) finishRename(ctx context.Context, sess *Session, newName string) ([]Render, error) {
	pending := sess.renaming
	sess.renaming = nil

	if newName == "" {
		return []Render{{Text: "That doesn't look like a name. Rename cancelled."}}, nil
	}

	target, err := e.resolveEntry(ctx, sess, pending.kind, pending.id)
	if err != nil {
		return e.replyError(err)
	}

	oldName := target.Name()
	if err := sess.fs.Rename(ctx, target, newName); err != nil {
		return e.replyError(err)
	}

	e.publish(ctx, sess, eventstream.EventTypeEntryRenamed, pending.kind, oldName, newName)

	return e.renderListing(ctx, sess, 0, nil)
}

func (e *Engine) handleCallback(ctx context.Context, sess *Session, ev Event) ([]Render, error) {
	act, err := ParseAction(ctx, ev.CallbackData, sess.fs)
	if errors.Is(err, ErrMalformedAction) {
		return []Render{{Text: "That button is no longer valid."}}, nil
	}
	if err != nil {
		return e.replyError(err)
	}

	switch act.Tag {
	case ActionChangeDir:
		if err := sess.fs.CdByID(ctx, act.Target.ID()); err != nil {
			return e.replyError(err)
		}
		return e.renderListing(ctx, sess, 0, nil)

	case ActionOpen:
		// Callback data is client-controlled; an open tag forged onto a
		// directory id must not reach the File pointer.
		if act.Target.Kind != namespace.KindFile {
			return []Render{{Text: "That button is no longer valid."}}, nil
		}
		return []Render{{ForwardRef: act.Target.File.PayloadRef}}, nil

	case ActionRemove:
		confirm := Render{
			Text: fmt.Sprintf("Confirm delete %q?", act.Target.Name()),
			Keyboard: [][]Button{{
				{Label: "✔️ Yes", Data: Action{Tag: ActionConfirmDelete, Target: act.Target}.Encode()},
				{Label: "❌ No", Data: Action{Tag: ActionRefuteDelete, Target: act.Target}.Encode()},
			}},
		}
		return []Render{confirm}, nil

	case ActionConfirmDelete:
		if err := sess.fs.Rm(ctx, act.Target.Name()); err != nil {
			return e.replyError(err)
		}
		e.publish(ctx, sess, eventstream.EventTypeEntryRemoved, act.Target.Kind, act.Target.Name(), "")

		return e.renderListing(ctx, sess, 0, []Render{{Text: fmt.Sprintf("%q deleted!", act.Target.Name())}})

	case ActionRefuteDelete:
		return e.renderListing(ctx, sess, 0, []Render{{Text: "OK!"}})

	case ActionNextPage, ActionPrevPage:
		page, err := strconv.Atoi(act.Extra)
		if err != nil {
			return []Render{{Text: "That button is no longer valid."}}, nil
		}
		if err := sess.fs.CdByID(ctx, act.Target.ID()); err != nil {
			return e.replyError(err)
		}
		return e.renderListing(ctx, sess, page, nil)

	case ActionRename:
		sess.renaming = &pendingRename{id: act.Target.ID(), kind: act.Target.Kind}

		return []Render{{Text: "Write the new name and send the message."}}, nil
	}

	return []Render{{Text: "That button is no longer valid."}}, nil
}

// resolveEntry re-fetches an entry by id, surfacing a typed not-found when it
// vanished since the button was issued.
func (e *Engine) resolveEntry(ctx context.Context, sess *Session, kind namespace.Kind, id string) (namespace.Entry, error) {
	switch kind {
	case namespace.KindDirectory:
		dir, err := sess.fs.Dir(ctx, id)
		if err != nil {
			return namespace.Entry{}, err
		}
		if dir == nil {
			return namespace.Entry{}, vfs.DirectoryNotFoundError{Name: id}
		}
		return namespace.DirEntry(dir), nil

	case namespace.KindFile:
		file, err := sess.fs.File(ctx, id)
		if err != nil {
			return namespace.Entry{}, err
		}
		if file == nil {
			return namespace.Entry{}, vfs.NotFoundError{Name: id}
		}
		return namespace.FileEntry(file), nil
	}

	return namespace.Entry{}, fmt.Errorf("unhandled entry kind %d", kind)
}

// replyError turns a user-recoverable failure into reply text and passes
// everything else through as an error.
func (e *Engine) replyError(err error) ([]Render, error) {
	var (
		dirExists  vfs.DirectoryExistsError
		fileExists vfs.FileExistsError
		forbidden  vfs.ForbiddenNameError
		dirMissing vfs.DirectoryNotFoundError
		missing    vfs.NotFoundError
	)

	switch {
	case errors.As(err, &dirExists):
		return []Render{{Text: "There is already a directory with the same name: " + dirExists.Name}}, nil
	case errors.As(err, &fileExists):
		return []Render{{Text: "There is already a file with the same name: " + fileExists.Name}}, nil
	case errors.As(err, &forbidden):
		return []Render{{Text: "That name is forbidden: " + forbidden.Name}}, nil
	case errors.As(err, &dirMissing):
		return []Render{{Text: "There is no such directory anymore: " + dirMissing.Name}}, nil
	case errors.As(err, &missing):
		return []Render{{Text: "There is no file or directory with that name: " + missing.Name}}, nil
	}

	return nil, err
}

// publish emits an audit event for a mutation in the current directory.
// Publish failures are logged, never surfaced; the mutation already happened.
func (e *Engine) publish(ctx context.Context, sess *Session, eventType string, kind namespace.Kind, name, newName string) {
	event := eventstream.NewEntryEvent(eventType, sess.chatID, sess.fs.User().ID, kind, name, sess.fs.Pwd())
	event.NewName = newName

	if err := e.events.PublishEntry(ctx, event); err != nil {
		e.log.Warn("publishing entry event", "error", err, "event_type", eventType)
	}
}
