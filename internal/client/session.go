// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Neighborhood Watch Contributors

package client

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/Skets-max/Project-473/internal/auth"
	"github.com/Skets-max/Project-473/internal/guard"
	"github.com/Skets-max/Project-473/internal/xdg"
)

// StorageKey is the fixed key the session blob is stored under.
const StorageKey = "neighborhood_watch_user"

// Session is the persisted record of who this client is logged in as.
type Session struct {
	UserID        string        `json:"user_id"`
	Role          auth.Role     `json:"role"`
	Authenticated bool          `json:"authenticated"`
	EmailVerified bool          `json:"email_verified"`
	IssuedAt      time.Time     `json:"issued_at"`
	ExpiresAt     time.Time     `json:"expires_at,omitzero"`
	Token         string        `json:"token"`
	User          *auth.Profile `json:"user,omitempty"`
}

// SessionFromLogin builds the blob saved after a successful login.
func SessionFromLogin(result *LoginResult) *Session {
	s := &Session{
		Authenticated: true,
		IssuedAt:      time.Now().UTC(),
		ExpiresAt:     result.ExpiresAt,
		Token:         result.Token,
		User:          result.User,
	}
	if result.User != nil {
		s.UserID = result.User.ID
		s.Role = result.User.Role
		s.EmailVerified = result.User.EmailVerified
	}
	return s
}

// Expired reports whether the server-issued expiry has passed.
func (s *Session) Expired() bool {
	return !s.ExpiresAt.IsZero() && !time.Now().Before(s.ExpiresAt)
}

// Context converts the blob into the session context the guard consumes.
// Blobs that are not authenticated or carry a malformed user ID yield nil.
func (s *Session) Context() *auth.SessionContext {
	if s == nil || !s.Authenticated {
		return nil
	}
	userID, err := ulid.Parse(s.UserID)
	if err != nil {
		return nil
	}
	expires := s.ExpiresAt
	if expires.IsZero() {
		expires = s.IssuedAt.Add(auth.DefaultSessionTTL)
	}
	sc := &auth.SessionContext{
		Session: &auth.Session{
			UserID:        userID,
			Role:          s.Role,
			EmailVerified: s.EmailVerified,
			CreatedAt:     s.IssuedAt,
			ExpiresAt:     expires,
		},
	}
	if s.User != nil {
		sc.User = *s.User
	}
	sc.User.Role = s.Role
	sc.User.EmailVerified = s.EmailVerified
	return sc
}

// Check runs the route guard against the blob for a role's resources.
func (s *Session) Check(role auth.Role) guard.Decision {
	return guard.Check(s.Context(), role)
}

// SessionHolder persists one Session in a JSON file. Writes replace the file
// atomically so a concurrent reader sees either the old or the new blob.
type SessionHolder struct {
	mu   sync.Mutex
	path string
}

// NewSessionHolder stores the session at path.
func NewSessionHolder(path string) *SessionHolder {
	return &SessionHolder{path: path}
}

// DefaultSessionHolder stores the session under the XDG config directory.
func DefaultSessionHolder() (*SessionHolder, error) {
	path, err := xdg.SessionFile()
	if err != nil {
		return nil, err
	}
	return NewSessionHolder(path), nil
}

// Path returns the backing file.
func (h *SessionHolder) Path() string {
	return h.path
}

// Load returns the stored session, or nil when none is stored.
func (h *SessionHolder) Load() (*Session, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.load()
}

func (h *SessionHolder) load() (*Session, error) {
	entries, err := h.readEntries()
	if err != nil {
		return nil, err
	}
	raw, ok := entries[StorageKey]
	if !ok || string(raw) == "null" {
		return nil, nil
	}
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, oops.Code("SESSION_FILE_CORRUPT").With("path", h.path).Wrap(err)
	}
	return &s, nil
}

// Save stores s, replacing any previous session.
func (h *SessionHolder) Save(s *Session) error {
	if s == nil {
		return h.Clear()
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	entries, err := h.readEntries()
	if err != nil {
		entries = map[string]json.RawMessage{}
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return oops.Code("SESSION_FILE_WRITE_FAILED").With("path", h.path).Wrap(err)
	}
	entries[StorageKey] = raw
	return h.writeEntries(entries)
}

// Clear removes the stored session. Clearing an empty holder is not an error.
func (h *SessionHolder) Clear() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	entries, err := h.readEntries()
	if err != nil {
		// A corrupt file holds no usable session; drop it.
		return h.remove()
	}
	if _, ok := entries[StorageKey]; !ok {
		return nil
	}
	delete(entries, StorageKey)
	if len(entries) == 0 {
		return h.remove()
	}
	return h.writeEntries(entries)
}

func (h *SessionHolder) remove() error {
	if err := os.Remove(h.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return oops.Code("SESSION_FILE_WRITE_FAILED").With("path", h.path).Wrap(err)
	}
	return nil
}

func (h *SessionHolder) readEntries() (map[string]json.RawMessage, error) {
	data, err := os.ReadFile(h.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]json.RawMessage{}, nil
	}
	if err != nil {
		return nil, oops.Code("SESSION_FILE_READ_FAILED").With("path", h.path).Wrap(err)
	}
	entries := map[string]json.RawMessage{}
	if len(data) == 0 {
		return entries, nil
	}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, oops.Code("SESSION_FILE_CORRUPT").With("path", h.path).Wrap(err)
	}
	return entries, nil
}

func (h *SessionHolder) writeEntries(entries map[string]json.RawMessage) error {
	dir := filepath.Dir(h.path)
	if err := xdg.EnsureDir(dir); err != nil {
		return err
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return oops.Code("SESSION_FILE_WRITE_FAILED").With("path", h.path).Wrap(err)
	}

	tmp, err := os.CreateTemp(dir, ".session-*.json")
	if err != nil {
		return oops.Code("SESSION_FILE_WRITE_FAILED").With("path", h.path).Wrap(err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return oops.Code("SESSION_FILE_WRITE_FAILED").With("path", h.path).Wrap(err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return oops.Code("SESSION_FILE_WRITE_FAILED").With("path", h.path).Wrap(err)
	}
	if err := tmp.Close(); err != nil {
		return oops.Code("SESSION_FILE_WRITE_FAILED").With("path", h.path).Wrap(err)
	}
	if err := os.Rename(tmp.Name(), h.path); err != nil {
		return oops.Code("SESSION_FILE_WRITE_FAILED").With("path", h.path).Wrap(err)
	}
	return nil
}

// Watch calls fn with the freshly loaded session every time another process
// changes the file, including a nil session after logout. It blocks until
// ctx is done.
func (h *SessionHolder) Watch(ctx context.Context, fn func(*Session)) error {
	dir := filepath.Dir(h.path)
	if err := xdg.EnsureDir(dir); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return oops.Code("SESSION_WATCH_FAILED").With("path", h.path).Wrap(err)
	}
	defer func() { _ = watcher.Close() }()

	// Writes land by rename, so the directory is watched rather than the file.
	if err := watcher.Add(dir); err != nil {
		return oops.Code("SESSION_WATCH_FAILED").With("path", dir).Wrap(err)
	}

	name := filepath.Clean(h.path)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != name {
				continue
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) &&
				!ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
				continue
			}
			s, err := h.Load()
			if err != nil {
				continue
			}
			fn(s)
		case werr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return oops.Code("SESSION_WATCH_FAILED").With("path", h.path).Wrap(werr)
		}
	}
}
