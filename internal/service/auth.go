package service

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strings"

	"github.com/smartkrishi/smartkrishi-go/internal/apiclient"
	"github.com/smartkrishi/smartkrishi-go/internal/model"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrNameRequired       = errors.New("name is required")
	ErrEmailRequired      = errors.New("email is required")
	ErrPasswordRequired   = errors.New("password is required")
)

// Requester sends requests to the backend.
type Requester interface {
	Get(ctx context.Context, path string) (*apiclient.Response, error)
	Post(ctx context.Context, path string, body any) (*apiclient.Response, error)
}

// Token fields accepted in register and login replies, in order of preference.
var (
	registerTokenKeys = []string{"token", "accessToken"}
	loginTokenKeys    = []string{"token", "accessToken", "jwt"}
)

// AuthService calls the backend's authentication endpoints.
type AuthService struct {
	api Requester
}

// NewAuthService creates a new AuthService.
func NewAuthService(api Requester) *AuthService {
	return &AuthService{api: api}
}

// Register creates an account and returns the token and user the backend
// issued for it.
func (s *AuthService) Register(ctx context.Context, req model.RegisterRequest) (model.AuthResult, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)

	if req.Name == "" {
		return model.AuthResult{}, ErrNameRequired
	}
	if req.Email == "" {
		return model.AuthResult{}, ErrEmailRequired
	}
	if req.Password == "" {
		return model.AuthResult{}, ErrPasswordRequired
	}

	resp, err := s.api.Post(ctx, "/auth/register", req)
	if err != nil {
		return model.AuthResult{}, fmt.Errorf("register: %w", err)
	}

	return authResult(resp.Object(), registerTokenKeys), nil
}

// Login authenticates with email and password. A rejected login wraps both
// ErrInvalidCredentials and the backend's *apiclient.Error.
func (s *AuthService) Login(ctx context.Context, req model.LoginRequest) (model.AuthResult, error) {
	req.Email = strings.TrimSpace(req.Email)

	if req.Email == "" {
		return model.AuthResult{}, ErrEmailRequired
	}
	if req.Password == "" {
		return model.AuthResult{}, ErrPasswordRequired
	}

	resp, err := s.api.Post(ctx, "/auth/login", req)
	if err != nil {
		if errors.Is(err, apiclient.ErrUnauthorized) {
			return model.AuthResult{}, fmt.Errorf("%w: %w", ErrInvalidCredentials, err)
		}
		return model.AuthResult{}, fmt.Errorf("login: %w", err)
	}

	return authResult(resp.Object(), loginTokenKeys), nil
}

// authResult extracts the token and user from a reply. The user is the
// "user" object when present, else the reply itself without its token
// fields.
func authResult(data map[string]any, tokenKeys []string) model.AuthResult {
	var res model.AuthResult

	for _, key := range tokenKeys {
		if s, ok := data[key].(string); ok && s != "" {
			res.Token = s
			break
		}
	}

	if u, ok := data["user"].(map[string]any); ok {
		res.User = model.NewUser(u)
		return res
	}

	fields := maps.Clone(data)
	for _, key := range loginTokenKeys {
		delete(fields, key)
	}
	if len(fields) > 0 {
		res.User = model.NewUser(fields)
	}

	return res
}
