// Package session is the conversational protocol engine: it turns inbound
// chat events into filesystem operations and renders the replies, keeping one
// live Session per chat with its working path, memoized preferences, and
// special-mode state.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/fileybot/filey/pkg/namespace"
	"github.com/fileybot/filey/pkg/settings"
	"github.com/fileybot/filey/pkg/storage"
	"github.com/fileybot/filey/pkg/vfs"
)

// pendingRename marks a session waiting for the next message to be consumed
// as a new name for the referenced entry.
type pendingRename struct {
	id   string
	kind namespace.Kind
}

// Session is one chat's live state. All access goes through mu; the registry
// janitor uses TryLock so it never evicts a session mid-operation.
type Session struct {
	mu sync.Mutex

	chatID   string
	fs       *vfs.Filesystem
	prefs    *settings.Store
	renaming *pendingRename

	lastSeen time.Time
}

// init lazily opens the filesystem and preference store on first use. Opening
// the filesystem creates the user and root on first contact, so the
// preference store always finds its user.
func (s *Session) init(ctx context.Context, store storage.Store) error {
	if s.fs != nil {
		return nil
	}

	fs, err := vfs.Open(ctx, store, s.chatID)
	if err != nil {
		return err
	}

	prefs, err := settings.Open(ctx, store, s.chatID)
	if err != nil {
		return err
	}

	s.fs = fs
	s.prefs = prefs

	return nil
}

// Registry owns the chat-id-to-session map. Idle sessions are evicted by a
// background janitor; an evicted chat's next event transparently rebuilds the
// session at the root directory.
type Registry struct {
	store       storage.Store
	idleTimeout time.Duration

	mu       sync.Mutex
	sessions map[string]*Session

	stop     chan struct{}
	stopOnce sync.Once
}

// NewRegistry creates a session registry. A zero idleTimeout disables
// eviction.
func NewRegistry(store storage.Store, idleTimeout time.Duration) *Registry {
	r := &Registry{
		store:       store,
		idleTimeout: idleTimeout,
		sessions:    make(map[string]*Session),
		stop:        make(chan struct{}),
	}

	if idleTimeout > 0 {
		go r.janitor()
	}

	return r
}

// Lookup returns the chat's session, creating it if absent, and refreshes its
// idle clock.
func (r *Registry) Lookup(chatID string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.sessions[chatID]
	if !ok {
		sess = &Session{chatID: chatID}
		r.sessions[chatID] = sess
	}
	sess.lastSeen = time.Now()

	return sess
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.sessions)
}

// Close stops the janitor. Sessions hold no resources of their own.
func (r *Registry) Close() {
	r.stopOnce.Do(func() { close(r.stop) })
}

func (r *Registry) janitor() {
	interval := r.idleTimeout / 4
	if interval < time.Second {
		interval = time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
			r.evictIdle(time.Now())
		}
	}
}

// evictIdle drops sessions idle past the timeout. TryLock skips sessions with
// an operation in flight; they get another look next tick.
func (r *Registry) evictIdle(now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for chatID, sess := range r.sessions {
		if now.Sub(sess.lastSeen) < r.idleTimeout {
			continue
		}
		if !sess.mu.TryLock() {
			continue
		}
		delete(r.sessions, chatID)
		sess.mu.Unlock()
	}
}
