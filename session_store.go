package auth

import (
	"context"
	"sync"
	"time"
)

// SessionData is the persisted state for one platform session. Only the
// session manager writes these fields.
type SessionData struct {
	SessionToken         string     `json:"session_token,omitempty"`
	AccessToken          string     `json:"access_token,omitempty"`
	RefreshToken         string     `json:"refresh_token,omitempty"`
	AccessTokenExpiresAt *time.Time `json:"access_token_expires_at,omitempty"`
	User                 *User      `json:"user,omitempty"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

// Empty reports whether the session holds no tokens.
func (d *SessionData) Empty() bool {
	return d == nil || (d.SessionToken == "" && d.AccessToken == "" && d.RefreshToken == "")
}

// Clone returns a deep copy.
func (d *SessionData) Clone() *SessionData {
	if d == nil {
		return nil
	}
	out := *d
	if d.AccessTokenExpiresAt != nil {
		exp := *d.AccessTokenExpiresAt
		out.AccessTokenExpiresAt = &exp
	}
	if d.User != nil {
		user := *d.User
		out.User = &user
	}
	return &out
}

var _ SessionStore = (*MemorySessionStore)(nil)

// MemorySessionStore is a SessionStore for tests and single process
// deployments.
type MemorySessionStore struct {
	mu   sync.RWMutex
	data map[string]*SessionData
}

// NewMemorySessionStore returns an empty store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{data: make(map[string]*SessionData)}
}

// Get implements SessionStore.
func (s *MemorySessionStore) Get(ctx context.Context, sessionID string) (*SessionData, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data[sessionID].Clone(), nil
}

// Save implements SessionStore.
func (s *MemorySessionStore) Save(ctx context.Context, sessionID string, data *SessionData) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[sessionID] = data.Clone()
	return nil
}

// Delete implements SessionStore.
func (s *MemorySessionStore) Delete(ctx context.Context, sessionID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, sessionID)
	return nil
}
