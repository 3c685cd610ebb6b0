package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/smartkrishi/smartkrishi-go/internal/apiclient"
	"github.com/smartkrishi/smartkrishi-go/internal/model"
	"github.com/smartkrishi/smartkrishi-go/internal/service"
	"github.com/smartkrishi/smartkrishi-go/internal/session"
	"github.com/smartkrishi/smartkrishi-go/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testApp struct {
	router  http.Handler
	store   *session.Store
	storage *storage.Memory
	backend *httptest.Server
}

// newTestApp wires the real components against a fake backend.
func newTestApp(t *testing.T, backend http.HandlerFunc) *testApp {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)

	mem := storage.NewMemory()
	creds := session.NewCredentials(mem, logger)
	store := session.NewStore(creds, logger)
	provider := session.NewProvider(store, mem)
	provider.Start()
	t.Cleanup(provider.Close)

	client := apiclient.New(srv.URL, creds, apiclient.WithLogger(logger))

	views, err := NewViews("Smart Krishi", logger)
	require.NoError(t, err)

	router := NewRouter(Routes{
		Provider: provider,
		Views:    views,
		Auth:     NewAuthHandler(service.NewAuthService(client), views, logger),
		Pages:    NewPageHandler(views),
		Soil:     NewSoilHandler(service.NewSoilService(client), views, model.Coordinate{Lat: 26.7, Lon: 83.3}, logger),
	})

	return &testApp{router: router, store: store, storage: mem, backend: srv}
}

func (a *testApp) get(path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func (a *testApp) post(path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func reply(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}
}

func failBackend(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected backend call %s %s", r.Method, r.URL)
	}
}

func TestHealth(t *testing.T) {
	app := newTestApp(t, failBackend(t))

	rec := app.get("/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestHome(t *testing.T) {
	app := newTestApp(t, failBackend(t))

	rec := app.get("/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `href="/login"`)
	assert.Contains(t, rec.Body.String(), `href="/register"`)
	assert.Contains(t, rec.Body.String(), "<title>Smart Krishi</title>")
}

func TestProtectedPagesRedirect(t *testing.T) {
	app := newTestApp(t, failBackend(t))

	for _, path := range []string{"/dashboard", "/soil"} {
		rec := app.get(path)
		assert.Equal(t, http.StatusFound, rec.Code, path)
		assert.Equal(t, "/login", rec.Header().Get("Location"), path)
	}
}

func TestPublicPagesRedirectWithSession(t *testing.T) {
	app := newTestApp(t, failBackend(t))
	app.store.Login("tok", nil)

	for _, path := range []string{"/login", "/register"} {
		rec := app.get(path)
		assert.Equal(t, http.StatusFound, rec.Code, path)
		assert.Equal(t, "/dashboard", rec.Header().Get("Location"), path)
	}

	rec := app.post("/login", url.Values{"email": {"a@b.c"}, "password": {"p"}})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/dashboard", rec.Header().Get("Location"))
}

func TestCheckingPage(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	views, err := NewViews("Smart Krishi", logger)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	views.Checking().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Checking authentication…")
	assert.Contains(t, rec.Body.String(), `http-equiv="refresh"`)
}

func TestLogin_Success(t *testing.T) {
	var got map[string]string
	var gotPath string

	app := newTestApp(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = io.WriteString(w, `{"token":"T1","user":{"id":"1","name":"Asha","email":"asha@example.com"}}`)
	})

	rec := app.post("/login", url.Values{"email": {" asha@example.com "}, "password": {"secret"}})

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/dashboard", rec.Header().Get("Location"))
	assert.Equal(t, "/auth/login", gotPath)
	assert.Equal(t, map[string]string{"email": "asha@example.com", "password": "secret"}, got)

	assert.Equal(t, "T1", app.store.Token())
	assert.Equal(t, "Asha", app.store.User().Name())

	v, ok, err := app.storage.Get(session.TokenKey)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "T1", v)

	dash := app.get("/dashboard")
	assert.Equal(t, http.StatusOK, dash.Code)
	assert.Contains(t, dash.Body.String(), "Welcome, Asha!")
	assert.Contains(t, dash.Body.String(), "asha@example.com")
}

func TestLogin_Validation(t *testing.T) {
	app := newTestApp(t, failBackend(t))

	rec := app.post("/login", url.Values{"email": {"a@b.c"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), msgLoginFieldsRequired)
	assert.Contains(t, rec.Body.String(), `value="a@b.c"`)
	assert.False(t, app.store.Authenticated())
}

func TestLogin_Social(t *testing.T) {
	app := newTestApp(t, failBackend(t))

	rec := app.post("/login", url.Values{"provider": {"google"}})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), msgSocialLogin)

	rec = app.post("/register", url.Values{"provider": {"google"}})
	assert.Contains(t, rec.Body.String(), msgSocialSignup)
}

func TestLogin_Failures(t *testing.T) {
	testCases := []struct {
		name       string
		status     int
		body       string
		wantStatus int
		wantMsg    string
	}{{
		name:       "unauthorized_with_message",
		status:     http.StatusUnauthorized,
		body:       `{"message":"Wrong password"}`,
		wantStatus: http.StatusUnauthorized,
		wantMsg:    "Wrong password",
	}, {
		name:       "unauthorized_plain",
		status:     http.StatusUnauthorized,
		body:       "",
		wantStatus: http.StatusUnauthorized,
		wantMsg:    msgInvalidCredentials,
	}, {
		name:       "error_field",
		status:     http.StatusBadRequest,
		body:       `{"error":"account locked"}`,
		wantStatus: http.StatusBadGateway,
		wantMsg:    "account locked",
	}, {
		name:       "no_message",
		status:     http.StatusInternalServerError,
		body:       "",
		wantStatus: http.StatusBadGateway,
		wantMsg:    "Login failed (500).",
	}}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			app := newTestApp(t, reply(tc.status, tc.body))

			rec := app.post("/login", url.Values{"email": {"a@b.c"}, "password": {"p"}})

			assert.Equal(t, tc.wantStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tc.wantMsg)
			assert.False(t, app.store.Authenticated())
		})
	}
}

func TestLogin_BackendDown(t *testing.T) {
	app := newTestApp(t, failBackend(t))
	app.backend.Close()

	rec := app.post("/login", url.Values{"email": {"a@b.c"}, "password": {"p"}})

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), msgNetwork)
	assert.NotContains(t, rec.Body.String(), "connection refused")
	assert.NotContains(t, rec.Body.String(), app.backend.URL)
}

func TestRegister_BackendDown(t *testing.T) {
	app := newTestApp(t, failBackend(t))
	app.backend.Close()

	rec := app.post("/register", url.Values{"firstname": {"A"}, "lastname": {"B"}, "email": {"a@b.c"}, "password": {"p"}})

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), msgNetwork)
	assert.NotContains(t, rec.Body.String(), "dial tcp")
}

func TestSoil_BackendDown(t *testing.T) {
	app := newTestApp(t, failBackend(t))
	app.backend.Close()
	app.store.Login("tok", nil)

	rec := app.get("/soil")

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), msgSoilFailed)
	assert.NotContains(t, rec.Body.String(), "dial tcp")
	assert.True(t, app.store.Authenticated())
}

func TestRegister_Success(t *testing.T) {
	var got map[string]string
	var gotPath string

	app := newTestApp(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"accessToken":"T2","name":"Khusi Khan","email":"khusi@example.com"}`)
	})

	rec := app.post("/register", url.Values{
		"firstname": {" Khusi "},
		"lastname":  {"Khan"},
		"email":     {"khusi@example.com"},
		"password":  {"pw"},
	})

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/auth/register", gotPath)
	assert.Equal(t, map[string]string{"name": "Khusi Khan", "email": "khusi@example.com", "password": "pw"}, got)
	assert.Equal(t, "T2", app.store.Token())
	assert.Equal(t, "Khusi Khan", app.store.User().DisplayName())
	assert.Nil(t, app.store.User().Fields()["accessToken"])
}

func TestRegister_Validation(t *testing.T) {
	app := newTestApp(t, failBackend(t))

	rec := app.post("/register", url.Values{"firstname": {"A"}, "lastname": {" "}, "email": {"a@b.c"}, "password": {"p"}})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), msgRegisterFieldsRequired)
}

func TestRegister_Failures(t *testing.T) {
	app := newTestApp(t, reply(http.StatusUnauthorized, `{"message":"nope"}`))
	form := url.Values{"firstname": {"A"}, "lastname": {"B"}, "email": {"a@b.c"}, "password": {"p"}}

	rec := app.post("/register", form)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), msgRegisterUnauthorized)

	app = newTestApp(t, reply(http.StatusConflict, ""))
	rec = app.post("/register", form)
	assert.Contains(t, rec.Body.String(), "Registration failed (409).")
}

func TestLogout(t *testing.T) {
	app := newTestApp(t, failBackend(t))
	app.store.Login("tok", model.NewUser(map[string]any{"id": "1"}))

	rec := app.post("/logout", nil)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
	assert.False(t, app.store.Authenticated())
	assert.Nil(t, app.store.User())
	assert.Empty(t, app.storage.Snapshot())
}

func TestDashboard_DisplayName(t *testing.T) {
	app := newTestApp(t, failBackend(t))

	app.store.Login("opaque", model.NewUser(map[string]any{"email": "only@example.com"}))
	assert.Contains(t, app.get("/dashboard").Body.String(), "Welcome, only@example.com!")

	app.store.Login("opaque", nil)
	body := app.get("/dashboard").Body.String()
	assert.Contains(t, body, "Welcome, User!")
	assert.NotContains(t, body, "Session valid until")
}

func TestDashboard_TokenExpiry(t *testing.T) {
	app := newTestApp(t, failBackend(t))

	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	}).SignedString([]byte("backend-secret"))
	require.NoError(t, err)

	app.store.Login(raw, nil)
	body := app.get("/dashboard").Body.String()

	assert.Contains(t, body, "Session expired at")
}

func TestSoil_Success(t *testing.T) {
	var gotQuery, gotAuth string
	app := newTestApp(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		gotAuth = r.Header.Get("Authorization")
		_, _ = io.WriteString(w, `{"data":{"pH":6.4,"nitrogen":"180"}}`)
	})
	app.store.Login("tok", nil)

	rec := app.get("/soil")
	body := rec.Body.String()

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "lat=26.7&lon=83.3", gotQuery)
	assert.Equal(t, "Bearer tok", gotAuth)
	assert.Contains(t, body, "<strong>pH:</strong> 6.4")
	assert.Contains(t, body, "<strong>Organic Carbon:</strong> N/A")
	assert.Contains(t, body, "<strong>Nitrogen:</strong> 180")
}

func TestSoil_Unauthorized(t *testing.T) {
	app := newTestApp(t, reply(http.StatusUnauthorized, `{"message":"expired"}`))
	app.store.Login("stale", model.NewUser(map[string]any{"id": "1"}))

	rec := app.get("/soil")

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
	assert.False(t, app.store.Authenticated())
	assert.Nil(t, app.store.User())
	assert.Empty(t, app.storage.Snapshot())
}

func TestSoil_Failure(t *testing.T) {
	app := newTestApp(t, reply(http.StatusServiceUnavailable, `{"message":"soil service down"}`))
	app.store.Login("tok", nil)

	rec := app.get("/soil")

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "soil service down")
	assert.True(t, app.store.Authenticated())
}

func TestCrossTabLogout(t *testing.T) {
	app := newTestApp(t, failBackend(t))
	app.store.Login("tok", nil)
	require.Equal(t, http.StatusOK, app.get("/dashboard").Code)

	// Another tab sharing the storage logs out.
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	other := session.NewStore(session.NewCredentials(app.storage, logger), logger)
	other.Initialize()
	other.Logout()

	rec := app.get("/dashboard")
	assert.Equal(t, http.StatusFound, rec.Code)
}
