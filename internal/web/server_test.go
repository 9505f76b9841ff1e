// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Alcove Contributors

package web_test

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/alcove-web/alcove/internal/auth"
	"github.com/alcove-web/alcove/internal/auth/authtest"
	"github.com/alcove-web/alcove/internal/web"
)

// testGateway bundles a server with the fakes behind it.
type testGateway struct {
	server *web.Server
	repo   *authtest.MemoryRepository
}

func newTestGateway(t *testing.T, mutate func(*web.Options)) *testGateway {
	t.Helper()

	repo := authtest.NewMemoryRepository()
	hasher := auth.NewBcryptHasher(bcrypt.MinCost)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	service, err := auth.NewServiceWithLogger(repo, hasher, logger)
	require.NoError(t, err)
	codec, err := auth.NewIdentityCodec(repo)
	require.NoError(t, err)

	opts := web.Options{
		SessionSecret: "test-secret",
		Service:       service,
		Codec:         codec,
		Logger:        logger,
	}
	if mutate != nil {
		mutate(&opts)
	}

	server, err := web.New(opts)
	require.NoError(t, err)

	return &testGateway{server: server, repo: repo}
}

// get performs a GET request, carrying any session cookies.
func (g *testGateway) get(t *testing.T, path string, cookies []*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = "192.0.2.1:5000"
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	g.server.Handler().ServeHTTP(rec, req)
	return rec
}

// postForm submits an urlencoded form, carrying any session cookies.
func (g *testGateway) postForm(t *testing.T, path string, form url.Values, cookies []*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.RemoteAddr = "192.0.2.1:5000"
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	g.server.Handler().ServeHTTP(rec, req)
	return rec
}

func credentials(email, password string) url.Values {
	return url.Values{"email": {email}, "password": {password}}
}

// register signs up a user and returns the session cookies.
func (g *testGateway) register(t *testing.T, email, password string) []*http.Cookie {
	t.Helper()
	rec := g.postForm(t, "/register", credentials(email, password), nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/secrets", rec.Header().Get("Location"))
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)
	return cookies
}

func TestNew_Validation(t *testing.T) {
	repo := authtest.NewMemoryRepository()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	service, err := auth.NewServiceWithLogger(repo, auth.NewBcryptHasher(bcrypt.MinCost), logger)
	require.NoError(t, err)
	codec, err := auth.NewIdentityCodec(repo)
	require.NoError(t, err)

	tests := []struct {
		name string
		opts web.Options
	}{
		{name: "missing secret", opts: web.Options{Service: service, Codec: codec}},
		{name: "missing service", opts: web.Options{SessionSecret: "s", Codec: codec}},
		{name: "missing codec", opts: web.Options{SessionSecret: "s", Service: service}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := web.New(tt.opts)
			assert.Error(t, err)
		})
	}
}

func TestPublicPages(t *testing.T) {
	g := newTestGateway(t, nil)

	for _, path := range []string{"/", "/login", "/register", "/music", "/arts", "/drumkit", "/paint"} {
		rec := g.get(t, path, nil)
		assert.Equal(t, http.StatusOK, rec.Code, "GET %s", path)
	}
}

func TestScienceRedirectsExternally(t *testing.T) {
	g := newTestGateway(t, nil)

	rec := g.get(t, "/science", nil)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "https://fold.it/play", rec.Header().Get("Location"))
}

func TestSecrets_AnonymousRedirectsToLogin(t *testing.T) {
	g := newTestGateway(t, nil)

	rec := g.get(t, "/secrets", nil)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}

func TestRegister_EstablishesSession(t *testing.T) {
	g := newTestGateway(t, nil)

	cookies := g.register(t, "amelia@example.com", "hunter2")

	rec := g.get(t, "/secrets", cookies)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "amelia@example.com")
	assert.Equal(t, 1, g.repo.Count())
}

func TestRegister_Rejections(t *testing.T) {
	g := newTestGateway(t, nil)
	g.register(t, "amelia@example.com", "hunter2")

	tests := []struct {
		name         string
		form         url.Values
		wantLocation string
	}{
		{name: "duplicate email", form: credentials("amelia@example.com", "other"), wantLocation: "/login"},
		{name: "invalid email", form: credentials("not-an-email", "hunter2"), wantLocation: "/register"},
		{name: "missing email", form: url.Values{"password": {"hunter2"}}, wantLocation: "/register"},
		{name: "missing password", form: url.Values{"email": {"new@example.com"}}, wantLocation: "/register"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := g.postForm(t, "/register", tt.form, nil)
			assert.Equal(t, http.StatusSeeOther, rec.Code)
			assert.Equal(t, tt.wantLocation, rec.Header().Get("Location"))
		})
	}

	assert.Equal(t, 1, g.repo.Count(), "no rejection creates a user")
}

func TestLogin(t *testing.T) {
	t.Run("valid credentials reach the protected area", func(t *testing.T) {
		g := newTestGateway(t, nil)
		g.register(t, "amelia@example.com", "hunter2")

		rec := g.postForm(t, "/login", credentials("amelia@example.com", "hunter2"), nil)
		require.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/secrets", rec.Header().Get("Location"))

		secrets := g.get(t, "/secrets", rec.Result().Cookies())
		assert.Equal(t, http.StatusOK, secrets.Code)
	})

	t.Run("wrong password bounces to login", func(t *testing.T) {
		g := newTestGateway(t, nil)
		g.register(t, "amelia@example.com", "hunter2")

		rec := g.postForm(t, "/login", credentials("amelia@example.com", "wrong"), nil)
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/login", rec.Header().Get("Location"))
	})

	t.Run("unknown email bounces to login", func(t *testing.T) {
		g := newTestGateway(t, nil)

		rec := g.postForm(t, "/login", credentials("nobody@example.com", "hunter2"), nil)
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/login", rec.Header().Get("Location"))
	})

	t.Run("missing fields bounce to login", func(t *testing.T) {
		g := newTestGateway(t, nil)

		rec := g.postForm(t, "/login", url.Values{"email": {"amelia@example.com"}}, nil)
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/login", rec.Header().Get("Location"))
	})
}

func TestLogout(t *testing.T) {
	g := newTestGateway(t, nil)
	cookies := g.register(t, "amelia@example.com", "hunter2")

	rec := g.get(t, "/logout", cookies)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	// The session no longer opens the protected area.
	cleared := rec.Result().Cookies()
	secrets := g.get(t, "/secrets", cleared)
	assert.Equal(t, http.StatusFound, secrets.Code)
	assert.Equal(t, "/login", secrets.Header().Get("Location"))

	// Logging out again, already anonymous, gives the same outcome.
	again := g.get(t, "/logout", cleared)
	assert.Equal(t, http.StatusSeeOther, again.Code)
	assert.Equal(t, "/", again.Header().Get("Location"))
}

func TestLogin_Throttled(t *testing.T) {
	g := newTestGateway(t, func(opts *web.Options) {
		opts.Throttle = auth.NewThrottle(auth.ThrottleConfig{
			MaxAttempts: 2,
			Lock:        time.Minute,
		})
	})
	g.register(t, "amelia@example.com", "hunter2")

	for range 2 {
		rec := g.postForm(t, "/login", credentials("amelia@example.com", "wrong"), nil)
		assert.Equal(t, http.StatusSeeOther, rec.Code)
	}

	rec := g.postForm(t, "/login", credentials("amelia@example.com", "hunter2"), nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestSecrets_StorageFailureIsAnError(t *testing.T) {
	g := newTestGateway(t, nil)
	cookies := g.register(t, "amelia@example.com", "hunter2")

	g.repo.ErrGetByID = assert.AnError

	rec := g.get(t, "/secrets", cookies)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestSecrets_DeletedUserIsAnonymous(t *testing.T) {
	// A session whose identity no longer resolves falls back to the login
	// redirect instead of erroring.
	g := newTestGateway(t, nil)
	cookies := g.register(t, "amelia@example.com", "hunter2")

	g.repo.ErrGetByID = auth.ErrNotFound

	rec := g.get(t, "/secrets", cookies)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}

func TestSessionCookie_Attributes(t *testing.T) {
	g := newTestGateway(t, nil)

	rec := g.postForm(t, "/register", credentials("amelia@example.com", "hunter2"), nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)

	var session *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == web.SessionCookieName {
			session = c
		}
	}
	require.NotNil(t, session, "session cookie missing")

	assert.True(t, session.HttpOnly)
	assert.True(t, session.Secure)
	assert.Equal(t, http.SameSiteLaxMode, session.SameSite)
	assert.NotContains(t, session.Value, "amelia", "cookie never carries the email")
	assert.NotContains(t, session.Value, "hunter2", "cookie never carries the password")
}
