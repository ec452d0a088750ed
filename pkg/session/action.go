package session

import (
	"context"
	"errors"
	"strings"

	"github.com/fileybot/filey/pkg/namespace"
	"github.com/fileybot/filey/pkg/vfs"
)

// ActionTag identifies what a button press asks for. The values are part of
// the wire format and must stay stable: buttons issued long ago are still
// live in chat history.
type ActionTag string

const (
	ActionRemove        ActionTag = "r"
	ActionChangeDir     ActionTag = "c"
	ActionOpen          ActionTag = "m"
	ActionConfirmDelete ActionTag = "yd"
	ActionRefuteDelete  ActionTag = "nd"
	ActionNextPage      ActionTag = "np"
	ActionPrevPage      ActionTag = "pp"
	ActionRename        ActionTag = "ren"
)

const (
	actionDelim = "#"

	kindCharDirectory = "d"
	kindCharFile      = "f"
)

// ErrMalformedAction is returned for callback payloads that don't parse as
// an encoded action.
var ErrMalformedAction = errors.New("malformed action payload")

// Action is one decoded button press: a tag, the target entry it refers to,
// and an optional extra field (the page index for pagination tags).
type Action struct {
	Tag    ActionTag
	Target namespace.Entry
	Extra  string
}

// Encode serializes the action to its wire form:
// <tag>#<kind>#<id>[#<extra>].
func (a Action) Encode() string {
	kind := kindCharFile
	if a.Target.Kind == namespace.KindDirectory {
		kind = kindCharDirectory
	}

	encoded := string(a.Tag) + actionDelim + kind + actionDelim + a.Target.ID()
	if a.Extra != "" {
		encoded += actionDelim + a.Extra
	}

	return encoded
}

// ParseAction decodes a wire payload and re-resolves its target through the
// owner-scoped filesystem, so a stale id or another user's id comes back as
// not-found instead of leaking a foreign object. The extra field is optional.
func ParseAction(ctx context.Context, raw string, fs *vfs.Filesystem) (Action, error) {
	parts := strings.SplitN(raw, actionDelim, 4)
	if len(parts) < 3 {
		return Action{}, ErrMalformedAction
	}

	action := Action{Tag: ActionTag(parts[0])}
	if len(parts) == 4 {
		action.Extra = parts[3]
	}

	id := parts[2]
	switch parts[1] {
	case kindCharDirectory:
		dir, err := fs.Dir(ctx, id)
		if err != nil {
			return Action{}, err
		}
		if dir == nil {
			return Action{}, vfs.DirectoryNotFoundError{Name: id}
		}
		action.Target = namespace.DirEntry(dir)

	case kindCharFile:
		file, err := fs.File(ctx, id)
		if err != nil {
			return Action{}, err
		}
		if file == nil {
			return Action{}, vfs.NotFoundError{Name: id}
		}
		action.Target = namespace.FileEntry(file)

	default:
		return Action{}, ErrMalformedAction
	}

	return action, nil
}
