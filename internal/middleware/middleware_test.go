package middleware

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/smartkrishi/smartkrishi-go/internal/model"
	"github.com/smartkrishi/smartkrishi-go/internal/session"
	"github.com/smartkrishi/smartkrishi-go/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T, initialize bool) *session.Store {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := session.NewStore(session.NewCredentials(storage.NewMemory(), logger), logger)
	if initialize {
		s.Initialize()
	}
	return s
}

var (
	okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "page")
	})
	pendingHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "checking")
	})
)

func serve(s *session.Store, h http.Handler, method string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/page", nil)
	if s != nil {
		req = req.WithContext(session.NewContext(req.Context(), s))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRequireSession(t *testing.T) {
	h := RequireSession("/login", pendingHandler)(okHandler)

	t.Run("pending", func(t *testing.T) {
		rec := serve(newStore(t, false), h, http.MethodGet)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "checking", rec.Body.String())
	})

	t.Run("anonymous", func(t *testing.T) {
		rec := serve(newStore(t, true), h, http.MethodGet)
		assert.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, "/login", rec.Header().Get("Location"))
	})

	t.Run("anonymous_post", func(t *testing.T) {
		rec := serve(newStore(t, true), h, http.MethodPost)
		assert.Equal(t, http.StatusSeeOther, rec.Code)
	})

	t.Run("authenticated", func(t *testing.T) {
		s := newStore(t, true)
		s.Login("tok", nil)

		rec := serve(s, h, http.MethodGet)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "page", rec.Body.String())
	})

	t.Run("user_without_token", func(t *testing.T) {
		s := newStore(t, true)
		s.SetUser(model.NewUser(map[string]any{"name": "Asha"}))

		rec := serve(s, h, http.MethodGet)
		assert.Equal(t, http.StatusFound, rec.Code)
	})

	t.Run("no_store", func(t *testing.T) {
		rec := serve(nil, h, http.MethodGet)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestRedirectIfAuthenticated(t *testing.T) {
	h := RedirectIfAuthenticated("/dashboard", pendingHandler)(okHandler)

	rec := serve(newStore(t, false), h, http.MethodGet)
	assert.Equal(t, "checking", rec.Body.String())

	rec = serve(newStore(t, true), h, http.MethodGet)
	assert.Equal(t, "page", rec.Body.String())

	s := newStore(t, true)
	s.Login("tok", nil)
	rec = serve(s, h, http.MethodGet)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/dashboard", rec.Header().Get("Location"))
}

func TestRateLimit(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	h := RateLimit(ctx, 0.001, 2)(okHandler)

	send := func(addr string) int {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, send("10.0.0.1:1000"))
	assert.Equal(t, http.StatusOK, send("10.0.0.1:1001"))
	assert.Equal(t, http.StatusTooManyRequests, send("10.0.0.1:1002"))
	assert.Equal(t, http.StatusOK, send("10.0.0.2:1000"), "limits are per address")
	assert.Equal(t, http.StatusOK, send("no-port"))
}

func TestRateLimiterEvict(t *testing.T) {
	rl := newIPRateLimiter(1, 1)
	now := time.Now()

	rl.allow("a", now)
	rl.allow("b", now.Add(idleVisitor))
	rl.evict(now.Add(idleVisitor + time.Second))

	require.Len(t, rl.visitors, 1)
	assert.Contains(t, rl.visitors, "b")
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	h := Logger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing", nil))

	out := buf.String()
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "path=/missing")
	assert.Contains(t, out, "status=404")

	buf.Reset()
	Logger(logger)(okHandler).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Contains(t, buf.String(), "status=200")
}
