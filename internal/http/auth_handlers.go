package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/splax/moviegate/internal/domain"
	"github.com/splax/moviegate/internal/service/auth"
)

type authResponse struct {
	OK   bool              `json:"ok"`
	User domain.PublicUser `json:"user"`
}

type meResponse struct {
	User *domain.PublicUser `json:"user"`
}

func (r *Router) handleSignup(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	var payload auth.SignupInput
	if err := decodeJSON(w, req, &payload); err != nil {
		r.metrics.recordAuth("signup", "invalid")
		writeError(w, http.StatusBadRequest, msgInvalidPayload)
		return
	}
	sess, err := r.auth.Signup(req.Context(), payload)
	if err != nil {
		r.writeAuthError(w, req, "signup", err)
		return
	}
	r.metrics.recordAuth("signup", "success")
	r.sessions.Attach(w, sess.Token, r.tokenTTL)
	writeJSON(w, http.StatusOK, authResponse{OK: true, User: sess.User.Public()})
}

func (r *Router) handleLogin(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	var payload auth.LoginInput
	if err := decodeJSON(w, req, &payload); err != nil {
		r.metrics.recordAuth("login", "invalid")
		writeError(w, http.StatusBadRequest, msgInvalidPayload)
		return
	}
	sess, err := r.auth.Login(req.Context(), payload)
	if err != nil {
		r.writeAuthError(w, req, "login", err)
		return
	}
	r.metrics.recordAuth("login", "success")
	r.sessions.Attach(w, sess.Token, r.tokenTTL)
	writeJSON(w, http.StatusOK, authResponse{OK: true, User: sess.User.Public()})
}

func (r *Router) handleLogout(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	r.metrics.recordAuth("logout", "success")
	r.sessions.Clear(w)
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (r *Router) handleMe(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, meResponse{User: r.currentUser(req)})
}

// currentUser resolves the session on req, if it carries a valid one.
func (r *Router) currentUser(req *http.Request) *domain.PublicUser {
	token, ok := r.sessions.Read(req)
	if !ok {
		return nil
	}
	user, ok := r.auth.Me(token)
	if !ok {
		return nil
	}
	return &user
}

func (r *Router) writeAuthError(w http.ResponseWriter, req *http.Request, action string, err error) {
	switch {
	case errors.Is(err, auth.ErrInvalidInput):
		r.metrics.recordAuth(action, "invalid")
		writeError(w, http.StatusBadRequest, msgInvalidPayload)
	case errors.Is(err, auth.ErrEmailInUse):
		r.metrics.recordAuth(action, "conflict")
		writeError(w, http.StatusConflict, msgEmailInUse)
	case errors.Is(err, auth.ErrInvalidCredentials):
		r.metrics.recordAuth(action, "rejected")
		writeError(w, http.StatusUnauthorized, msgInvalidCredentials)
	default:
		r.metrics.recordAuth(action, "error")
		r.logger.Error("auth request failed", "action", action, "path", req.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, msgInternal)
	}
}

// decodeJSON reads a single JSON document of at most maxBodyBytes.
func decodeJSON(w http.ResponseWriter, req *http.Request, v any) error {
	req.Body = http.MaxBytesReader(w, req.Body, maxBodyBytes)
	dec := json.NewDecoder(req.Body)
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("unexpected data after JSON body")
	}
	return nil
}
