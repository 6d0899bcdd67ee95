// Package gate decides per request whether a session is required and, when it
// is, verifies the session cookie before the request reaches its handler.
package gate

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/splax/moviegate/internal/session"
	jwtpkg "github.com/splax/moviegate/pkg/jwt"
)

// LoginPath is where denied page navigations are sent.
const LoginPath = "/login"

// DefaultPublicPrefixes lists the paths reachable without a session.
var DefaultPublicPrefixes = []string{
	"/login",
	"/signup",
	"/api/auth/login",
	"/api/auth/signup",
	"/api/auth/logout",
	"/api/auth/me",
	"/static",
	"/assets",
	"/public",
	"/favicon",
	"/healthz",
	"/metrics",
}

// Verifier checks a session token.
type Verifier interface {
	Verify(token string) (*jwtpkg.Claims, error)
}

type contextKey struct{}

// Gate is the access-control middleware.
type Gate struct {
	sessions session.Manager
	verifier Verifier
	logger   *slog.Logger
	public   []string
}

// Option customises a Gate.
type Option func(*Gate)

// WithPublicPrefixes replaces the public allow-list.
func WithPublicPrefixes(prefixes ...string) Option {
	return func(g *Gate) {
		g.public = append([]string(nil), prefixes...)
	}
}

// New constructs a Gate.
func New(sessions session.Manager, verifier Verifier, logger *slog.Logger, opts ...Option) *Gate {
	g := &Gate{
		sessions: sessions,
		verifier: verifier,
		logger:   logger,
		public:   DefaultPublicPrefixes,
	}
	if g.logger == nil {
		g.logger = slog.Default()
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// IsPublic reports whether path is reachable without a session. The landing
// page matches exactly, everything else by prefix.
func (g *Gate) IsPublic(path string) bool {
	if path == "/" {
		return true
	}
	for _, prefix := range g.public {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// Middleware wraps next with the session check. Every request is verified
// independently.
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if g.IsPublic(req.URL.Path) {
			next.ServeHTTP(w, req)
			return
		}
		token, ok := g.sessions.Read(req)
		if !ok {
			g.deny(w, req, "missing_session")
			return
		}
		claims, err := g.verifier.Verify(token)
		if err != nil {
			g.logger.Debug("session rejected", "path", req.URL.Path, "error", err)
			g.deny(w, req, "invalid_session")
			return
		}
		next.ServeHTTP(w, req.WithContext(WithClaims(req.Context(), claims)))
	})
}

func (g *Gate) deny(w http.ResponseWriter, req *http.Request, reason string) {
	if strings.HasPrefix(req.URL.Path, "/api/") {
		g.logger.Debug("api request denied", "path", req.URL.Path, "reason", reason)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"Unauthorized"}` + "\n"))
		return
	}
	g.logger.Debug("redirecting to login", "path", req.URL.Path, "reason", reason)
	http.Redirect(w, req, LoginRedirect(req.URL.Path), http.StatusTemporaryRedirect)
}

// LoginRedirect builds the login URL that returns to path after login.
func LoginRedirect(path string) string {
	return LoginPath + "?" + url.Values{"next": {path}}.Encode()
}

// WithClaims stores verified claims on ctx.
func WithClaims(ctx context.Context, claims *jwtpkg.Claims) context.Context {
	return context.WithValue(ctx, contextKey{}, claims)
}

// ClaimsFromContext extracts the claims placed by the gate.
func ClaimsFromContext(ctx context.Context) (*jwtpkg.Claims, bool) {
	claims, ok := ctx.Value(contextKey{}).(*jwtpkg.Claims)
	return claims, ok && claims != nil
}
