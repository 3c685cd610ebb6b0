package middleware

import (
	"net/http"

	"github.com/smartkrishi/smartkrishi-go/internal/session"
)

// RequireSession lets requests through only when the session holds a token
// and redirects the rest to redirect. While the session is still loading the
// pending handler answers instead.
func RequireSession(redirect string, pending http.Handler) func(http.Handler) http.Handler {
	return gate(pending, func(st session.State) (string, bool) {
		return redirect, !st.Authenticated()
	})
}

// RedirectIfAuthenticated sends requests that already have a session to
// redirect. It guards the login and register pages.
func RedirectIfAuthenticated(redirect string, pending http.Handler) func(http.Handler) http.Handler {
	return gate(pending, func(st session.State) (string, bool) {
		return redirect, st.Authenticated()
	})
}

func gate(pending http.Handler, decide func(session.State) (string, bool)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			store, ok := session.FromContext(r.Context())
			if !ok {
				http.Error(w, "session unavailable", http.StatusInternalServerError)
				return
			}

			st := store.State()
			if !st.Initialized {
				pending.ServeHTTP(w, r)
				return
			}

			if to, redirect := decide(st); redirect {
				http.Redirect(w, r, to, redirectStatus(r))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// redirectStatus keeps GETs as GETs and turns form posts into a GET.
func redirectStatus(r *http.Request) int {
	if r.Method == http.MethodGet || r.Method == http.MethodHead {
		return http.StatusFound
	}
	return http.StatusSeeOther
}
