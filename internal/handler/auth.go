package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/smartkrishi/smartkrishi-go/internal/apiclient"
	"github.com/smartkrishi/smartkrishi-go/internal/model"
	"github.com/smartkrishi/smartkrishi-go/internal/service"
	"github.com/smartkrishi/smartkrishi-go/internal/session"
)

// Messages shown on the login and register forms.
const (
	msgLoginFieldsRequired    = "Please enter email and password."
	msgRegisterFieldsRequired = "Please fill all fields."
	msgSocialLogin            = "Social login not implemented."
	msgSocialSignup           = "Social signup not implemented."
	msgInvalidCredentials     = "Invalid credentials."
	msgRegisterUnauthorized   = "Unauthorized. Please try again."
	msgNetwork                = "Network error. Please check your connection."
)

type loginView struct {
	Page
	Email string
}

type registerView struct {
	Page
	FirstName string
	LastName  string
	Email     string
}

// AuthHandler serves the login, register and logout pages.
type AuthHandler struct {
	service *service.AuthService
	views   *Views
	logger  *slog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(svc *service.AuthService, views *Views, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{service: svc, views: views, logger: logger}
}

// HandleLoginForm handles GET /login requests.
func (h *AuthHandler) HandleLoginForm(w http.ResponseWriter, r *http.Request) {
	h.views.Render(w, http.StatusOK, "login", loginView{Page: Page{Title: "Login"}})
}

// HandleLogin handles POST /login requests.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	store, ok := session.FromContext(r.Context())
	if !ok {
		http.Error(w, "session unavailable", http.StatusInternalServerError)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	view := loginView{Page: Page{Title: "Login"}, Email: strings.TrimSpace(r.PostFormValue("email"))}
	password := r.PostFormValue("password")

	if r.PostFormValue("provider") != "" {
		view.Error = msgSocialLogin
		h.views.Render(w, http.StatusOK, "login", view)
		return
	}

	if view.Email == "" || password == "" {
		view.Error = msgLoginFieldsRequired
		h.views.Render(w, http.StatusBadRequest, "login", view)
		return
	}

	res, err := h.service.Login(r.Context(), model.LoginRequest{Email: view.Email, Password: password})
	if err != nil {
		status := http.StatusBadGateway
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			status = http.StatusUnauthorized
			view.Error = payloadMessage(err, msgInvalidCredentials)
		default:
			view.Error = backendMessage(err, "Login")
		}

		h.logger.Info("login failed", "email", view.Email, "error", err)
		h.views.Render(w, status, "login", view)
		return
	}

	store.Login(res.Token, res.User)
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

// HandleRegisterForm handles GET /register requests.
func (h *AuthHandler) HandleRegisterForm(w http.ResponseWriter, r *http.Request) {
	h.views.Render(w, http.StatusOK, "register", registerView{Page: Page{Title: "Register"}})
}

// HandleRegister handles POST /register requests.
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	store, ok := session.FromContext(r.Context())
	if !ok {
		http.Error(w, "session unavailable", http.StatusInternalServerError)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	view := registerView{
		Page:      Page{Title: "Register"},
		FirstName: strings.TrimSpace(r.PostFormValue("firstname")),
		LastName:  strings.TrimSpace(r.PostFormValue("lastname")),
		Email:     strings.TrimSpace(r.PostFormValue("email")),
	}
	password := r.PostFormValue("password")

	if r.PostFormValue("provider") != "" {
		view.Error = msgSocialSignup
		h.views.Render(w, http.StatusOK, "register", view)
		return
	}

	if view.FirstName == "" || view.LastName == "" || view.Email == "" || password == "" {
		view.Error = msgRegisterFieldsRequired
		h.views.Render(w, http.StatusBadRequest, "register", view)
		return
	}

	res, err := h.service.Register(r.Context(), model.RegisterRequest{
		Name:     view.FirstName + " " + view.LastName,
		Email:    view.Email,
		Password: password,
	})
	if err != nil {
		status := http.StatusBadGateway
		switch {
		case errors.Is(err, service.ErrNameRequired), errors.Is(err, service.ErrEmailRequired), errors.Is(err, service.ErrPasswordRequired):
			status = http.StatusBadRequest
			view.Error = msgRegisterFieldsRequired
		case errors.Is(err, apiclient.ErrUnauthorized):
			status = http.StatusUnauthorized
			view.Error = msgRegisterUnauthorized
		default:
			view.Error = backendMessage(err, "Registration")
		}

		h.logger.Info("registration failed", "email", view.Email, "error", err)
		h.views.Render(w, status, "register", view)
		return
	}

	store.Login(res.Token, res.User)
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

// HandleLogout handles POST /logout requests.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if store, ok := session.FromContext(r.Context()); ok {
		store.Logout()
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// backendMessage turns a failed backend call into a form message: the
// backend's own message if it sent one, else "<action> failed (<status>)."
// Failures without a response show msgNetwork; the cause is only logged.
func backendMessage(err error, action string) string {
	var apiErr *apiclient.Error
	if !errors.As(err, &apiErr) || apiErr.Status == 0 {
		return msgNetwork
	}

	return payloadMessage(err, fmt.Sprintf("%s failed (%d).", action, apiErr.Status))
}

// payloadMessage returns the "message" or "error" field of the backend reply
// carried by err, or fallback.
func payloadMessage(err error, fallback string) string {
	var apiErr *apiclient.Error
	if !errors.As(err, &apiErr) {
		return fallback
	}

	if obj, ok := apiErr.Payload.(map[string]any); ok {
		for _, key := range []string{"message", "error"} {
			if s, ok := obj[key].(string); ok && s != "" {
				return s
			}
		}
	}
	return fallback
}
