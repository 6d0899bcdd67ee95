// Package session attaches, clears and reads the session cookie.
package session

import (
	"net/http"
	"strings"
	"time"
)

// CookieName is the name of the session cookie.
const CookieName = "session"

// Manager issues the session cookie with fixed attributes.
type Manager struct {
	name   string
	secure bool
}

// New returns a Manager. secure marks cookies Secure, which production requires.
func New(secure bool) Manager {
	return Manager{name: CookieName, secure: secure}
}

// Name reports the cookie name.
func (m Manager) Name() string {
	return m.name
}

// Attach sets the session cookie on w. It must run before the status line is written.
func (m Manager) Attach(w http.ResponseWriter, token string, ttl time.Duration) {
	http.SetCookie(w, m.cookie(token, int(ttl/time.Second), time.Time{}))
}

// Clear expires the session cookie on w. Clearing an absent session is harmless.
func (m Manager) Clear(w http.ResponseWriter) {
	http.SetCookie(w, m.cookie("", -1, time.Unix(0, 0)))
}

// Read returns the session token carried by req, if any.
func (m Manager) Read(req *http.Request) (string, bool) {
	cookie, err := req.Cookie(m.name)
	if err != nil {
		return "", false
	}
	token := strings.TrimSpace(cookie.Value)
	if token == "" {
		return "", false
	}
	return token, true
}

func (m Manager) cookie(value string, maxAge int, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     m.name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		Expires:  expires,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	}
}
