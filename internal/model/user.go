package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"strconv"
	"strings"
)

// User is the loosely typed account record returned by the backend. Only the
// fields the pages render are exposed as methods; everything else is kept
// as-is and passed through on serialization.
//
// A user that could not be decoded from storage keeps its raw text instead of
// fields.
type User struct {
	fields map[string]any
	raw    string
	isRaw  bool
}

// NewUser returns a user backed by a copy of fields.
func NewUser(fields map[string]any) *User {
	if fields == nil {
		fields = map[string]any{}
	}
	return &User{fields: maps.Clone(fields)}
}

// RawUser returns a user that only carries an undecodable text record.
func RawUser(text string) *User {
	return &User{raw: text, isRaw: true}
}

// Fields returns a copy of the user's fields. It is nil for raw users.
func (u *User) Fields() map[string]any {
	if u == nil || u.isRaw {
		return nil
	}
	return maps.Clone(u.fields)
}

// Raw returns the raw text of a user that could not be decoded.
func (u *User) Raw() (string, bool) {
	if u == nil {
		return "", false
	}
	return u.raw, u.isRaw
}

// ID returns the first identifier field the backend is known to use.
func (u *User) ID() string {
	for _, key := range []string{"id", "_id", "userId"} {
		if s := u.stringField(key); s != "" {
			return s
		}
	}
	return ""
}

// Name returns the user's display name, if any.
func (u *User) Name() string {
	return u.stringField("name")
}

// Email returns the user's email address, if any.
func (u *User) Email() string {
	return u.stringField("email")
}

// DisplayName returns the name, then the email, then "User".
func (u *User) DisplayName() string {
	if name := strings.TrimSpace(u.Name()); name != "" {
		return name
	}
	if email := strings.TrimSpace(u.Email()); email != "" {
		return email
	}
	return "User"
}

func (u *User) stringField(key string) string {
	if u == nil || u.isRaw {
		return ""
	}
	switch v := u.fields[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// MarshalJSON encodes the fields as an object, or the raw text as a string.
func (u *User) MarshalJSON() ([]byte, error) {
	if u == nil {
		return []byte("null"), nil
	}
	if u.isRaw {
		return json.Marshal(u.raw)
	}
	if u.fields == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(u.fields)
}

// UnmarshalJSON accepts an object, or a string which becomes a raw user.
func (u *User) UnmarshalJSON(data []byte) error {
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err == nil && fields != nil {
		*u = User{fields: fields}
		return nil
	}

	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		*u = User{raw: text, isRaw: true}
		return nil
	}

	return errors.New("user must be a JSON object or string")
}

// RegisterRequest is the registration payload sent to the backend.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest is the login payload sent to the backend.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResult is what the client keeps from a successful register or login.
// Either field may be empty if the backend omitted it.
type AuthResult struct {
	Token string
	User  *User
}
