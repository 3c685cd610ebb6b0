package session

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/smartkrishi/smartkrishi-go/internal/model"
	"github.com/smartkrishi/smartkrishi-go/internal/storage"
)

// Storage keys of the persisted credential record.
const (
	TokenKey = "token"
	UserKey  = "user"
)

// Credentials is the persisted mirror of the session token and user. It is
// the only code that reads or writes the two keys. Storage failures are
// logged and otherwise ignored: an unreadable record reads as logged out and
// a failed write leaves the in-memory session authoritative.
type Credentials struct {
	storage storage.Storage
	logger  *slog.Logger
}

// NewCredentials returns the credential record kept in s.
func NewCredentials(s storage.Storage, logger *slog.Logger) *Credentials {
	return &Credentials{storage: s, logger: logger}
}

// Token returns the persisted bearer token, or "" when there is none.
func (c *Credentials) Token() string {
	v, ok, err := c.storage.Get(TokenKey)
	if err != nil {
		c.logger.Debug("reading token", "error", err)
		return ""
	}
	if !ok {
		return ""
	}
	return v
}

// User returns the persisted user, or nil when there is none.
func (c *Credentials) User() *model.User {
	v, ok, err := c.storage.Get(UserKey)
	if err != nil {
		c.logger.Debug("reading user", "error", err)
		return nil
	}
	if !ok {
		return nil
	}
	return decodeUser(v)
}

// Clear erases the whole record. It is the single forced-logout path shared
// by the session store and the request client.
func (c *Credentials) Clear() {
	c.saveToken("")
	c.saveUser(nil)
}

func (c *Credentials) saveToken(token string) {
	var err error
	if token == "" {
		err = c.storage.Remove(TokenKey)
	} else {
		err = c.storage.Set(TokenKey, token)
	}
	if err != nil {
		c.logger.Debug("persisting token", "error", err)
	}
}

// saveUser persists u and returns the stored value, "" when u is nil.
func (c *Credentials) saveUser(u *model.User) string {
	var (
		record string
		err    error
	)
	if u == nil {
		err = c.storage.Remove(UserKey)
	} else {
		record = encodeUser(u)
		err = c.storage.Set(UserKey, record)
	}
	if err != nil {
		c.logger.Debug("persisting user", "error", err)
	}
	return record
}

// encodeUser serializes u for storage. Raw users are stored verbatim, and a
// record that cannot be marshaled falls back to its printed form.
func encodeUser(u *model.User) string {
	if raw, ok := u.Raw(); ok {
		return raw
	}

	data, err := json.Marshal(u)
	if err != nil {
		return fmt.Sprint(u.Fields())
	}
	return string(data)
}

// decodeUser parses a stored user. Anything that is not a JSON object is kept
// as a raw user.
func decodeUser(v string) *model.User {
	var fields map[string]any
	if err := json.Unmarshal([]byte(v), &fields); err != nil || fields == nil {
		return model.RawUser(v)
	}
	return model.NewUser(fields)
}
