// Package session holds the client's authentication state: the bearer token,
// the user record and whether they have been loaded from storage yet.
package session

import (
	"log/slog"
	"sync"

	"github.com/smartkrishi/smartkrishi-go/internal/model"
	"github.com/smartkrishi/smartkrishi-go/internal/storage"
)

// State is a snapshot of a Store.
type State struct {
	Token       string
	User        *model.User
	Initialized bool
}

// Authenticated reports whether the snapshot holds a token.
func (s State) Authenticated() bool {
	return s.Token != ""
}

// Store is the single authentication state of a running client. All mutation
// goes through its methods, which keep the persisted credential record in
// sync. Token and user are independent: either may be set without the other.
type Store struct {
	creds  *Credentials
	logger *slog.Logger

	initOnce sync.Once

	mu          sync.RWMutex
	token       string
	user        *model.User
	initialized bool

	// userRecord is the stored value that user was written as or read
	// from. An event carrying the same value leaves user untouched.
	userRecord string
}

// NewStore returns an empty, uninitialized store backed by creds.
func NewStore(creds *Credentials, logger *slog.Logger) *Store {
	return &Store{creds: creds, logger: logger}
}

// Initialize loads the persisted record once. Later calls do nothing. The
// store is marked initialized even if the record cannot be read.
func (s *Store) Initialize() {
	s.initOnce.Do(func() {
		defer func() {
			s.mu.Lock()
			s.initialized = true
			s.mu.Unlock()
		}()

		token := s.creds.Token()
		user := s.creds.User()

		s.mu.Lock()
		defer s.mu.Unlock()

		if token != "" {
			s.token = token
		}
		if user != nil {
			s.user = user
		}

		s.logger.Debug("session loaded", "authenticated", token != "", "has_user", user != nil)
	})
}

// State returns a snapshot of the store.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return State{Token: s.token, User: s.user, Initialized: s.initialized}
}

// Token returns the current token, "" when logged out.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// User returns the current user, nil when unknown.
func (s *Store) User() *model.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

// Initialized reports whether Initialize has completed. It never reverts.
func (s *Store) Initialized() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.initialized
}

// Authenticated reports whether the store holds a token.
func (s *Store) Authenticated() bool {
	return s.Token() != ""
}

// SetToken persists and sets token. An empty token erases it.
func (s *Store) SetToken(token string) {
	// Persist outside the lock: in-process notifiers deliver the resulting
	// event synchronously to HandleEvent.
	s.creds.saveToken(token)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
}

// SetUser persists and sets u. A nil user erases it.
func (s *Store) SetUser(u *model.User) {
	record := s.creds.saveUser(u)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = u
	s.userRecord = record
}

// Login stores the result of a successful register or login. user may be nil.
func (s *Store) Login(token string, user *model.User) {
	s.SetToken(token)
	s.SetUser(user)

	s.logger.Info("logged in", "user_id", user.ID())
}

// Logout erases the token and the user.
func (s *Store) Logout() {
	s.SetToken("")
	s.SetUser(nil)

	s.logger.Info("logged out")
}

// HandleEvent adopts a change made to the credential record elsewhere. It only
// updates memory; writing back would echo the change to every other client.
func (s *Store) HandleEvent(e storage.Event) {
	if e.Cleared() {
		s.mu.Lock()
		s.token, s.user, s.userRecord = "", nil, ""
		s.mu.Unlock()

		s.logger.Debug("session cleared by storage")
		return
	}

	switch e.Key {
	case TokenKey:
		token := ""
		if !e.Removed {
			token = e.Value
		}

		s.mu.Lock()
		s.token = token
		s.mu.Unlock()
	case UserKey:
		s.mu.Lock()
		switch {
		case e.Removed:
			s.user, s.userRecord = nil, ""
		case s.user != nil && e.Value == s.userRecord:
			// Our own write coming back.
		default:
			s.user, s.userRecord = decodeUser(e.Value), e.Value
		}
		s.mu.Unlock()
	default:
		return
	}

	s.logger.Debug("session synced from storage", "key", e.Key, "removed", e.Removed)
}

// Watch subscribes the store to n until the returned function is called.
func (s *Store) Watch(n storage.Notifier) (stop func()) {
	return n.Subscribe(s.HandleEvent)
}
