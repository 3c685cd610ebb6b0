package handler

import (
	"net/http"
	"time"

	"github.com/smartkrishi/smartkrishi-go/internal/session"
	"github.com/smartkrishi/smartkrishi-go/internal/token"
)

type dashboardView struct {
	Page
	DisplayName string
	Email       string
	ExpiresAt   string
	Expired     bool
}

// PageHandler serves the pages that need no backend call.
type PageHandler struct {
	views *Views
	now   func() time.Time
}

// NewPageHandler creates a new PageHandler.
func NewPageHandler(views *Views) *PageHandler {
	return &PageHandler{views: views, now: time.Now}
}

// HandleHome handles GET / requests.
func (h *PageHandler) HandleHome(w http.ResponseWriter, r *http.Request) {
	h.views.Render(w, http.StatusOK, "home", Page{})
}

// HandleDashboard handles GET /dashboard requests.
func (h *PageHandler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	store, ok := session.FromContext(r.Context())
	if !ok {
		http.Error(w, "session unavailable", http.StatusInternalServerError)
		return
	}

	st := store.State()
	view := dashboardView{
		Page:        Page{Title: "Dashboard"},
		DisplayName: st.User.DisplayName(),
		Email:       st.User.Email(),
	}

	// Opaque tokens simply show no expiry.
	if claims, err := token.Inspect(st.Token); err == nil && !claims.ExpiresAt.IsZero() {
		view.ExpiresAt = claims.ExpiresAt.Local().Format(time.RFC1123)
		view.Expired = claims.Expired(h.now())
	}

	h.views.Render(w, http.StatusOK, "dashboard", view)
}
