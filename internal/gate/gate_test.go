package gate

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/splax/moviegate/internal/session"
	jwtpkg "github.com/splax/moviegate/pkg/jwt"
)

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixture struct {
	gate   *Gate
	tokens *jwtpkg.Service
	now    time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{now: time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)}
	tokens, err := jwtpkg.NewService("gate-secret", time.Hour, jwtpkg.WithClock(func() time.Time { return f.now }))
	require.NoError(t, err)
	f.tokens = tokens
	f.gate = New(session.New(false), tokens, newLogger())
	return f
}

func okHandler(called *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		*called = true
		w.WriteHeader(http.StatusOK)
	})
}

func TestIsPublic(t *testing.T) {
	g := New(session.New(false), nil, newLogger())
	for _, path := range []string{"/", "/login", "/login/", "/signup", "/api/auth/me", "/static/app.css", "/healthz"} {
		assert.True(t, g.IsPublic(path), path)
	}
	for _, path := range []string{"/movies", "/movies/movie/42", "/api/movies/popular", "/profile"} {
		assert.False(t, g.IsPublic(path), path)
	}
}

func TestPublicPathSkipsVerification(t *testing.T) {
	f := newFixture(t)
	var called bool

	rec := httptest.NewRecorder()
	f.gate.Middleware(okHandler(&called)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/login", nil))

	assert.True(t, called)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestProtectedPageWithoutCookieRedirects(t *testing.T) {
	f := newFixture(t)
	var called bool

	rec := httptest.NewRecorder()
	f.gate.Middleware(okHandler(&called)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/movies", nil))

	assert.False(t, called)
	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "/login", loc.Path)
	assert.Equal(t, "/movies", loc.Query().Get("next"))
}

func TestProtectedPageWithExpiredCookieRedirects(t *testing.T) {
	f := newFixture(t)
	token, err := f.tokens.IssueDefault(jwtpkg.Identity{ID: "u-1", Email: "a@example.com"})
	require.NoError(t, err)
	f.now = f.now.Add(time.Hour)

	var called bool
	req := httptest.NewRequest(http.MethodGet, "/movies/movie/42", nil)
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: token})
	rec := httptest.NewRecorder()
	f.gate.Middleware(okHandler(&called)).ServeHTTP(rec, req)

	assert.False(t, called)
	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	assert.Equal(t, "/login?next=%2Fmovies%2Fmovie%2F42", rec.Header().Get("Location"))
}

func TestProtectedPageWithTamperedCookieRedirects(t *testing.T) {
	f := newFixture(t)
	var called bool
	req := httptest.NewRequest(http.MethodGet, "/movies", nil)
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: "not.a.token"})
	rec := httptest.NewRecorder()
	f.gate.Middleware(okHandler(&called)).ServeHTTP(rec, req)

	assert.False(t, called)
	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
}

func TestProtectedAPIWithoutCookieIsUnauthorized(t *testing.T) {
	f := newFixture(t)
	var called bool

	rec := httptest.NewRecorder()
	f.gate.Middleware(okHandler(&called)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/movies/popular", nil))

	assert.False(t, called)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"Unauthorized"}`, rec.Body.String())
}

func TestValidCookiePassesClaims(t *testing.T) {
	f := newFixture(t)
	token, err := f.tokens.IssueDefault(jwtpkg.Identity{ID: "u-9", Email: "ok@example.com"})
	require.NoError(t, err)

	var subject string
	handler := http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		claims, ok := ClaimsFromContext(req.Context())
		require.True(t, ok)
		subject = claims.Subject
	})
	req := httptest.NewRequest(http.MethodGet, "/movies", nil)
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: token})
	rec := httptest.NewRecorder()
	f.gate.Middleware(handler).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u-9", subject)
}

func TestWithPublicPrefixesOverridesDefaults(t *testing.T) {
	g := New(session.New(false), nil, newLogger(), WithPublicPrefixes("/open"))
	assert.True(t, g.IsPublic("/open/door"))
	assert.False(t, g.IsPublic("/login"))
	assert.True(t, g.IsPublic("/"))
}
