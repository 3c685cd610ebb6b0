package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/smartkrishi/smartkrishi-go/internal/middleware"
	"github.com/smartkrishi/smartkrishi-go/internal/session"
)

// Routes are the dependencies of the application router.
type Routes struct {
	Provider *session.Provider
	Views    *Views
	Auth     *AuthHandler
	Pages    *PageHandler
	Soil     *SoilHandler

	// Metrics serves /metrics when set.
	Metrics http.Handler
	// FormLimit guards the login and register submissions when set.
	FormLimit func(http.Handler) http.Handler
	// Use is applied to every route before the session middleware.
	Use []func(http.Handler) http.Handler
}

// NewRouter returns the application router.
func NewRouter(rt Routes) http.Handler {
	r := chi.NewRouter()
	r.Use(rt.Use...)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	if rt.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", rt.Metrics)
	}

	r.Group(func(r chi.Router) {
		r.Use(rt.Provider.Middleware)

		r.Get("/", rt.Pages.HandleHome)
		r.Post("/logout", rt.Auth.HandleLogout)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RedirectIfAuthenticated("/dashboard", rt.Views.Checking()))

			r.Get("/login", rt.Auth.HandleLoginForm)
			r.Get("/register", rt.Auth.HandleRegisterForm)

			r.Group(func(r chi.Router) {
				if rt.FormLimit != nil {
					r.Use(rt.FormLimit)
				}
				r.Post("/login", rt.Auth.HandleLogin)
				r.Post("/register", rt.Auth.HandleRegister)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireSession("/login", rt.Views.Checking()))

			r.Get("/dashboard", rt.Pages.HandleDashboard)
			r.Get("/soil", rt.Soil.HandleSoil)
		})
	})

	return r
}
