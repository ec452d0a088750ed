// Package settings is the per-user preference store: a small fixed schema of
// options layered over hard-coded defaults, persisted as the settings blob on
// the user record, and memoized after the first read.
package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/fileybot/filey/pkg/namespace"
	"github.com/fileybot/filey/pkg/storage"
)

// Settings is the full preference schema.
type Settings struct {
	// ShowListOptions controls whether listings carry per-row edit/delete
	// buttons.
	ShowListOptions bool `json:"showListOptions"`
}

// Defaults returns the hard-coded defaults every user starts from.
func Defaults() Settings {
	return Settings{ShowListOptions: true}
}

// Key names a single preference.
type Key string

const KeyShowListOptions Key = "showListOptions"

// Store reads and writes one user's preferences.
type Store struct {
	store  storage.Store
	user   *namespace.User
	mu     sync.Mutex
	cached *Settings
}

// Open binds a preference store to the user owning the given chat identity.
// The user must already exist; the session layer opens the filesystem (which
// creates the user) first.
func Open(ctx context.Context, store storage.Store, chatID string) (*Store, error) {
	user, err := store.FindUserByChatID(ctx, chatID)
	if err != nil {
		return nil, err
	}

	return &Store{store: store, user: user}, nil
}

// Get returns the defaults overlaid with the persisted blob. The merged
// result is memoized until the next Set.
func (s *Store) Get(ctx context.Context) (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.get(ctx)
}

func (s *Store) get(ctx context.Context) (Settings, error) {
	if s.cached != nil {
		return *s.cached, nil
	}

	user, err := s.store.GetUser(ctx, s.user.ID)
	if err != nil {
		return Settings{}, err
	}

	merged := overlay(defaultsBlob(), user.Settings)
	parsed, err := fromBlob(merged)
	if err != nil {
		return Settings{}, err
	}
	s.cached = &parsed

	return parsed, nil
}

// Set persists a single changed key merged over the defaults and the
// last-known values, then drops the memo so the next Get re-reads storage
// instead of trusting the value just written.
func (s *Store) Set(ctx context.Context, key Key, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.get(ctx)
	if err != nil {
		return err
	}

	currentBlob, err := toBlob(current)
	if err != nil {
		return err
	}

	merged := overlay(defaultsBlob(), currentBlob)
	merged[string(key)] = value

	if _, err := s.store.UpdateUserSettings(ctx, s.user.ID, merged); err != nil {
		return err
	}
	s.cached = nil

	return nil
}

func overlay(base, over map[string]any) map[string]any {
	merged := make(map[string]any, len(base)+len(over))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range over {
		merged[k] = v
	}

	return merged
}

func defaultsBlob() map[string]any {
	blob, err := toBlob(Defaults())
	if err != nil {
		// Defaults always marshal; a failure here is a programming error.
		panic(err)
	}

	return blob
}

func toBlob(s Settings) (map[string]any, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshaling settings: %w", err)
	}

	var blob map[string]any
	if err := json.Unmarshal(data, &blob); err != nil {
		return nil, fmt.Errorf("remarshaling settings: %w", err)
	}

	return blob, nil
}

func fromBlob(blob map[string]any) (Settings, error) {
	data, err := json.Marshal(blob)
	if err != nil {
		return Settings{}, fmt.Errorf("marshaling settings blob: %w", err)
	}

	parsed := Defaults()
	if err := json.Unmarshal(data, &parsed); err != nil {
		return Settings{}, fmt.Errorf("parsing settings blob: %w", err)
	}

	return parsed, nil
}
