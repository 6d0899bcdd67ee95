package httpx

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"filippo.io/csrf"
	"github.com/klauspost/compress/gzhttp"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/splax/moviegate/internal/domain"
	"github.com/splax/moviegate/internal/gate"
	"github.com/splax/moviegate/internal/service/auth"
	"github.com/splax/moviegate/internal/session"
	"github.com/splax/moviegate/internal/web"
)

const (
	healthCheckTimeout = 2 * time.Second
	maxBodyBytes       = 1 << 20
)

// Catalog lists and describes movies.
type Catalog interface {
	Popular(ctx context.Context, page int) (domain.MoviePage, error)
	TopRated(ctx context.Context, page int) (domain.MoviePage, error)
	Search(ctx context.Context, query string, page int) (domain.MoviePage, error)
	Details(ctx context.Context, id int64) (*domain.MovieDetail, error)
	Credits(ctx context.Context, id int64) (*domain.Credits, error)
}

// Deps are the collaborators a Router needs.
type Deps struct {
	Logger      *slog.Logger
	Auth        auth.Service
	Sessions    session.Manager
	Gate        *gate.Gate
	Catalog     Catalog
	Pages       *web.Pages
	TokenTTL    time.Duration
	CORSOrigins []string
	Health      func(context.Context) error
}

// Router wires HTTP endpoints to services.
type Router struct {
	mux      *http.ServeMux
	handler  http.Handler
	logger   *slog.Logger
	auth     auth.Service
	sessions session.Manager
	gate     *gate.Gate
	catalog  Catalog
	pages    *web.Pages
	tokenTTL time.Duration
	health   func(context.Context) error
	metrics  *metrics
}

// NewRouter assembles routes with dependencies.
func NewRouter(deps Deps) (*Router, error) {
	if deps.Gate == nil {
		return nil, errors.New("httpx: gate required")
	}
	if deps.Pages == nil {
		return nil, errors.New("httpx: pages required")
	}
	if deps.TokenTTL <= 0 {
		return nil, errors.New("httpx: token ttl must be positive")
	}
	r := &Router{
		mux:      http.NewServeMux(),
		logger:   deps.Logger,
		auth:     deps.Auth,
		sessions: deps.Sessions,
		gate:     deps.Gate,
		catalog:  deps.Catalog,
		pages:    deps.Pages,
		tokenTTL: deps.TokenTTL,
		health:   deps.Health,
		metrics:  newMetrics(),
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	r.register()

	protection := csrf.New()
	for _, origin := range deps.CORSOrigins {
		if err := protection.AddTrustedOrigin(origin); err != nil {
			return nil, fmt.Errorf("trust origin %q: %w", origin, err)
		}
	}
	var h http.Handler = r.mux
	h = captureContext(h)
	h = r.gate.Middleware(h)
	h = protection.Handler(h)
	if len(deps.CORSOrigins) > 0 {
		h = withCORS(deps.CORSOrigins, h)
	}
	r.handler = r.audit(h)
	return r, nil
}

// ServeHTTP runs the middleware chain in front of the mux.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.handler.ServeHTTP(w, req)
}

func (r *Router) register() {
	r.mux.HandleFunc("/healthz", r.handleHealthz)
	r.mux.Handle("/metrics", promhttp.HandlerFor(r.metrics.registry, promhttp.HandlerOpts{}))

	r.mux.HandleFunc("/api/auth/signup", r.handleSignup)
	r.mux.HandleFunc("/api/auth/login", r.handleLogin)
	r.mux.HandleFunc("/api/auth/logout", r.handleLogout)
	r.mux.HandleFunc("/api/auth/me", r.handleMe)

	movies := gzhttp.GzipHandler(http.HandlerFunc(r.handleMovieAPI))
	r.mux.Handle("/api/movies/", movies)
	r.mux.HandleFunc("/api/", func(w http.ResponseWriter, _ *http.Request) { r.notFound(w) })

	r.mux.Handle("/static/", web.Static())
	r.mux.HandleFunc("/favicon.ico", func(w http.ResponseWriter, req *http.Request) {
		req.URL.Path = "/static/favicon.ico"
		web.Static().ServeHTTP(w, req)
	})
	r.mux.HandleFunc("/login", r.handleLoginPage)
	r.mux.HandleFunc("/signup", r.handleSignupPage)
	r.mux.HandleFunc("/movies", r.handleMoviesPage)
	r.mux.HandleFunc("/movies/movie/", r.handleMoviePage)
	r.mux.HandleFunc("/", r.handleHome)
}

func (r *Router) handleHealthz(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	components := make(map[string]any)
	status := "ok"
	if r.health != nil {
		ctx, cancel := context.WithTimeout(req.Context(), healthCheckTimeout)
		defer cancel()
		if err := r.health(ctx); err != nil {
			status = "degraded"
			components["store"] = map[string]any{
				"status": "down",
				"error":  err.Error(),
			}
		} else {
			components["store"] = map[string]any{"status": "up"}
		}
	}
	payload := map[string]any{
		"status":     status,
		"components": components,
		"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
	}
	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, payload)
}

func (r *Router) audit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w}
		start := time.Now()
		_, route := r.mux.Handler(req)
		next.ServeHTTP(recorder, req)

		status := recorder.status
		if status == 0 {
			status = http.StatusOK
		}
		ctx := recorder.ctx
		if ctx == nil {
			ctx = req.Context()
		}
		duration := time.Since(start)
		if route == "" {
			route = "unmatched"
		}
		r.metrics.recordRequest(req.Method, route, status, duration)

		actor := "anonymous"
		fields := []any{
			"method", req.Method,
			"path", req.URL.Path,
			"status", status,
			"bytes", recorder.bytes,
			"duration_ms", duration.Milliseconds(),
		}
		if ip := clientIP(req); ip != "" {
			fields = append(fields, "ip", ip)
		}
		if reqID := strings.TrimSpace(req.Header.Get("X-Request-ID")); reqID != "" {
			fields = append(fields, "request_id", reqID)
		}
		if claims, ok := gate.ClaimsFromContext(ctx); ok {
			actor = "user"
			fields = append(fields, "user_id", claims.Subject)
		}
		fields = append(fields, "actor", actor)

		switch {
		case status >= http.StatusInternalServerError:
			r.logger.Error("http_request", fields...)
		case status >= http.StatusBadRequest:
			r.logger.Warn("http_request", fields...)
		default:
			r.logger.Info("http_request", fields...)
		}
	})
}

type contextSetter interface {
	SetContext(context.Context)
}

// captureContext hands the gate-enriched context back to the audit recorder.
func captureContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if setter, ok := w.(contextSetter); ok {
			setter.SetContext(req.Context())
		}
		next.ServeHTTP(w, req)
	})
}

func withCORS(origins []string, h http.Handler) http.Handler {
	middleware := cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "X-Request-ID"},
		AllowCredentials: true,
	})
	return middleware.Handler(h)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
	ctx    context.Context
}

func (sr *statusRecorder) WriteHeader(code int) {
	if sr.status == 0 {
		sr.status = code
	}
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if sr.status == 0 {
		sr.status = http.StatusOK
	}
	n, err := sr.ResponseWriter.Write(b)
	sr.bytes += n
	return n, err
}

func (sr *statusRecorder) SetContext(ctx context.Context) {
	sr.ctx = ctx
}

func (sr *statusRecorder) Flush() {
	if f, ok := sr.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (sr *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := sr.ResponseWriter.(http.Hijacker); ok {
		return h.Hijack()
	}
	return nil, nil, errors.New("hijacker not supported")
}

func (sr *statusRecorder) Unwrap() http.ResponseWriter {
	return sr.ResponseWriter
}

func clientIP(req *http.Request) string {
	if forwarded := strings.TrimSpace(req.Header.Get("X-Forwarded-For")); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		if len(parts) > 0 {
			ip := strings.TrimSpace(parts[0])
			if ip != "" {
				return ip
			}
		}
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(req.RemoteAddr))
	if err != nil {
		return strings.TrimSpace(req.RemoteAddr)
	}
	return host
}

func (r *Router) methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
}

func (r *Router) notFound(w http.ResponseWriter) {
	writeError(w, http.StatusNotFound, "Not found")
}
